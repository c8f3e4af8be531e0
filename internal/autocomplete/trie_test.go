package autocomplete

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggest_SortedPrefixMatches(t *testing.T) {
	tr := FromWords([]string{"cat", "car", "cab", "dog"})
	assert.Equal(t, []string{"cab", "car", "cat"}, tr.Suggest("ca", 5))
	assert.Equal(t, []string{"cab", "car"}, tr.Suggest("ca", 2))
	assert.Equal(t, []string{"dog"}, tr.Suggest("D", 5))
}

func TestSuggest_PrefixIsAWord(t *testing.T) {
	tr := FromWords([]string{"car", "card", "care", "cart"})
	assert.Equal(t, []string{"car", "card", "care", "cart"}, tr.Suggest("car", 10))
}

func TestSuggest_EmptyPrefixListsEverything(t *testing.T) {
	tr := FromWords([]string{"b", "a", "c"})
	assert.Equal(t, []string{"a", "b"}, tr.Suggest("", 2))
}

func TestSuggest_UnknownPrefixAndZeroLimit(t *testing.T) {
	tr := FromWords([]string{"cat"})
	assert.Empty(t, tr.Suggest("x", 5))
	assert.Empty(t, tr.Suggest("cats", 5))
	assert.Empty(t, tr.Suggest("ca", 0))
	assert.NotNil(t, tr.Suggest("x", 5))
}

func TestInsert_Idempotent(t *testing.T) {
	tr := New()
	tr.Insert("cat")
	tr.Insert("CAT")
	tr.Insert("  cat ")
	tr.Insert("")
	assert.Equal(t, 1, tr.Len())
	assert.Equal(t, []string{"cat"}, tr.Suggest("c", 5))
}

func TestSuggest_EveryResultHasPrefix(t *testing.T) {
	words := []string{"über", "ünder", "under", "umbrella", "u", "zeta"}
	tr := FromWords(words)
	got := tr.Suggest("u", 10)
	assert.Equal(t, []string{"u", "umbrella", "under"}, got)
	for _, w := range tr.Suggest("ü", 10) {
		assert.True(t, strings.HasPrefix(w, "ü"))
	}
	assert.Len(t, tr.Suggest("ü", 10), 2)
}

func BenchmarkSuggest(b *testing.B) {
	tr := New()
	for _, a := range "abcdefghij" {
		for _, c := range "klmnopqrst" {
			for _, d := range "uvwxyz" {
				tr.Insert(string([]rune{a, c, d}))
			}
		}
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tr.Suggest("a", DefaultLimit)
	}
}
