package lexicon

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/lumisearch/lumi/pkg/errors"
)

func TestIDOrInsert_AssignsZeroBasedMonotonicIDs(t *testing.T) {
	l := New()

	id, created := l.IDOrInsert("cat")
	assert.Equal(t, 0, id)
	assert.True(t, created)

	id, created = l.IDOrInsert("dog")
	assert.Equal(t, 1, id)
	assert.True(t, created)

	id, created = l.IDOrInsert("CAT")
	assert.Equal(t, 0, id)
	assert.False(t, created)
	assert.Equal(t, 2, l.Len())
}

func TestIDOrInsert_RejectsEmpty(t *testing.T) {
	l := New()
	id, created := l.IDOrInsert("   ")
	assert.Equal(t, -1, id)
	assert.False(t, created)
	assert.Equal(t, 0, l.Len())
}

func TestID_CaseInsensitive(t *testing.T) {
	l, err := FromWords([]string{"cat", "dog", "fish"})
	require.NoError(t, err)

	id, ok := l.ID("Dog")
	require.True(t, ok)
	assert.Equal(t, 1, id)

	_, ok = l.ID("bird")
	assert.False(t, ok)

	word, ok := l.Word(2)
	require.True(t, ok)
	assert.Equal(t, "fish", word)

	_, ok = l.Word(3)
	assert.False(t, ok)
}

func TestFromWords_RejectsDuplicates(t *testing.T) {
	_, err := FromWords([]string{"cat", "Cat"})
	assert.Error(t, err)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.json")
	l := New()
	for _, w := range []string{"zebra", "apple", "Mango", "apple"} {
		l.IDOrInsert(w)
	}
	require.NoError(t, l.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, l.Words(), loaded.Words())
	for _, w := range l.Words() {
		want, _ := l.ID(w)
		got, ok := loaded.ID(w)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}

	// ids keep growing from where the saved lexicon stopped
	id, created := loaded.IDOrInsert("kiwi")
	assert.True(t, created)
	assert.Equal(t, 3, id)
}

func TestLoad_FileFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"lexicon": ["cat", "dog", "fish"]}`), 0644))

	l, err := Load(path)
	require.NoError(t, err)
	id, ok := l.ID("fish")
	require.True(t, ok)
	assert.Equal(t, 2, id)
}

func TestLoad_MissingIsConfigurationError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConfiguration))
}

func TestLoadOrEmpty_Missing(t *testing.T) {
	l, err := LoadOrEmpty(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, l.Len())
}
