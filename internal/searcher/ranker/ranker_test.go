package ranker

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumisearch/lumi/internal/index"
)

func noVectors(int) []float32 { return nil }

func TestIDF(t *testing.T) {
	assert.InDelta(t, math.Log(50000.0/3), IDF(50000, 2), 1e-12)
	assert.Zero(t, IDF(0, 3))
	// rarer terms weigh more
	for df := 0; df < 100; df++ {
		assert.Greater(t, IDF(1000, df), IDF(1000, df+1))
	}
}

func TestRank_LexicalReusesTotalFrequency(t *testing.T) {
	hits := index.PostingList{5: 3}
	params := RankParams{TotalDocs: 100, DocFreqs: []int{1, 4}}

	got := Rank(hits, params, noVectors, 0)
	require.Len(t, got, 1)
	want := 3*math.Log(100.0/2) + 3*math.Log(100.0/5)
	assert.InDelta(t, want, got[0].Score, 1e-9)
	assert.Equal(t, 3, got[0].TotalTermFreq)
	assert.Zero(t, got[0].Semantic)
}

func TestRank_SemanticBoost(t *testing.T) {
	hits := index.PostingList{1: 1, 2: 1}
	vectors := map[int][]float32{1: {1, 0}, 2: {0, 1}}
	params := RankParams{TotalDocs: 10, DocFreqs: []int{1}, QueryVector: []float32{1, 0}}

	got := Rank(hits, params, func(id int) []float32 { return vectors[id] }, 0)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].DocID)
	assert.InDelta(t, SemanticWeight, got[0].Score-got[1].Score, 1e-9)
	assert.InDelta(t, 1.0, got[0].Semantic, 1e-9)
}

func TestRank_DimensionMismatchScoresZero(t *testing.T) {
	hits := index.PostingList{1: 2}
	params := RankParams{TotalDocs: 10, DocFreqs: []int{0}, QueryVector: []float32{1, 0}}
	got := Rank(hits, params, func(int) []float32 { return []float32{1, 0, 0} }, 0)
	assert.Zero(t, got[0].Semantic)
	assert.InDelta(t, 2*math.Log(10), got[0].Score, 1e-9)
}

func TestRank_TiesBreakByDocID(t *testing.T) {
	hits := index.PostingList{9: 2, 3: 2, 7: 2, 1: 5}
	params := RankParams{TotalDocs: 10, DocFreqs: []int{1}}

	got := Rank(hits, params, noVectors, 0)
	ids := make([]int, len(got))
	for i, d := range got {
		ids[i] = d.DocID
	}
	assert.Equal(t, []int{1, 3, 7, 9}, ids)
}

func TestRank_LimitMatchesFullSortPrefix(t *testing.T) {
	hits := index.PostingList{}
	for doc := 0; doc < 50; doc++ {
		hits[doc] = doc%7 + 1
	}
	params := RankParams{TotalDocs: 1000, DocFreqs: []int{3}}

	all := Rank(hits, params, noVectors, 0)
	top := Rank(hits, params, noVectors, 10)
	require.Len(t, all, 50)
	assert.Equal(t, all[:10], top)
}

func TestTopK_DefaultsToTen(t *testing.T) {
	docs := make([]ScoredDoc, 20)
	for i := range docs {
		docs[i] = ScoredDoc{DocID: i, Score: float64(i)}
	}
	got := TopK(docs, 0)
	require.Len(t, got, DefaultTopK)
	assert.Equal(t, 19, got[0].DocID)
	assert.Equal(t, 10, got[9].DocID)
}

func BenchmarkRank(b *testing.B) {
	hits := index.PostingList{}
	for doc := 0; doc < 10000; doc++ {
		hits[doc] = doc%13 + 1
	}
	params := RankParams{TotalDocs: 50000, DocFreqs: []int{120, 45}}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Rank(hits, params, noVectors, DefaultTopK)
	}
}
