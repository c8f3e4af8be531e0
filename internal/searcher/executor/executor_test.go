package executor

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumisearch/lumi/internal/barrel"
	"github.com/lumisearch/lumi/internal/dftable"
	"github.com/lumisearch/lumi/internal/embedding"
	"github.com/lumisearch/lumi/internal/index"
	"github.com/lumisearch/lumi/internal/lexicon"
	"github.com/lumisearch/lumi/internal/searcher/parser"
	"github.com/lumisearch/lumi/internal/shard"
	apperrors "github.com/lumisearch/lumi/pkg/errors"
	"github.com/lumisearch/lumi/pkg/metrics"
)

type fixture struct {
	exec    *Executor
	store   *shard.Store
	metrics *metrics.Metrics
	vectors *embedding.Store
	// setupLoads counts the barrel reads done while building the fixture.
	setupLoads float64
}

// newFixture writes postings (keyed by word) into the barrels the router
// assigns them to.
func newFixture(t *testing.T, words []string, postings map[string]index.PostingList) *fixture {
	t.Helper()
	ctx := context.Background()
	lex, err := lexicon.FromWords(words)
	require.NoError(t, err)

	m := metrics.New(nil)
	store, err := shard.Open(filepath.Join(t.TempDir(), "barrels"), shard.Options{Create: true, Metrics: m})
	require.NoError(t, err)

	shards := map[int]index.Shard{}
	for word, pl := range postings {
		id, ok := lex.ID(word)
		require.True(t, ok, word)
		sid := barrel.ShardOf(word)
		if shards[sid] == nil {
			shards[sid] = index.Shard{}
		}
		shards[sid][id] = pl
	}
	for sid, sh := range shards {
		require.NoError(t, store.Save(ctx, sid, sh))
	}
	df, err := dftable.Build(ctx, store)
	require.NoError(t, err)

	vectors, err := embedding.New(8)
	require.NoError(t, err)
	f := &fixture{
		exec: New(Config{
			Lexicon:   lex,
			Store:     store,
			DF:        df,
			Vectors:   vectors,
			TotalDocs: 100,
			Metrics:   m,
		}),
		store:   store,
		metrics: m,
		vectors: vectors,
	}
	f.setupLoads = totalLoads(m)
	return f
}

func totalLoads(m *metrics.Metrics) float64 {
	return testutil.ToFloat64(m.ShardLoadsTotal.WithLabelValues("disk")) +
		testutil.ToFloat64(m.ShardLoadsTotal.WithLabelValues("missing"))
}

// diskLoads is the number of barrel reads since the fixture was built.
func diskLoads(f *fixture) float64 {
	return totalLoads(f.metrics) - f.setupLoads
}

func TestExecute_CatDog(t *testing.T) {
	f := newFixture(t, []string{"cat", "dog", "fish"}, map[string]index.PostingList{
		"cat": {5: 2},
		"dog": {5: 1, 7: 3},
	})

	res, err := f.exec.Execute(context.Background(), parser.Parse("cat dog"), 0)
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, 5, res.Results[0].DocID)
	assert.Equal(t, 3, res.Results[0].TotalTermFreq)
	assert.Equal(t, 1, res.TotalHits)

	// df(cat)=1, df(dog)=2, N=100, ttf reused for both words
	want := 3*math.Log(100.0/2) + 3*math.Log(100.0/3)
	assert.InDelta(t, want, res.Results[0].Score, 1e-9)
}

func TestExecute_EmptyQuery(t *testing.T) {
	f := newFixture(t, []string{"cat"}, nil)
	_, err := f.exec.Execute(context.Background(), parser.Parse(" ,, "), 10)
	assert.ErrorIs(t, err, apperrors.ErrEmptyQuery)
}

func TestExecute_UnknownWordShortCircuits(t *testing.T) {
	f := newFixture(t, []string{"cat", "dog"}, map[string]index.PostingList{
		"cat": {5: 2},
		"dog": {5: 1},
	})

	res, err := f.exec.Execute(context.Background(), parser.Parse("zebra cat dog"), 10)
	require.NoError(t, err)
	assert.Empty(t, res.Results)
	assert.Zero(t, res.ShardsLoaded)
	assert.Empty(t, res.Shards)
	assert.Zero(t, diskLoads(f))
}

func TestExecute_EmptyIntersectionStopsLoading(t *testing.T) {
	// apple, kiwi and zebra route to three different buckets
	f := newFixture(t, []string{"apple", "kiwi", "zebra"}, map[string]index.PostingList{
		"apple": {1: 1},
		"kiwi":  {2: 1},
		"zebra": {1: 1, 2: 1},
	})

	res, err := f.exec.Execute(context.Background(), parser.Parse("apple kiwi zebra"), 10)
	require.NoError(t, err)
	assert.Empty(t, res.Results)
	assert.Equal(t, 2, res.ShardsLoaded)
	assert.Equal(t, []int{barrel.ShardOf("apple"), barrel.ShardOf("kiwi")}, res.Shards)
	assert.Equal(t, 2.0, diskLoads(f))
}

func TestExecute_EachShardLoadedOnce(t *testing.T) {
	f := newFixture(t, []string{"cat"}, map[string]index.PostingList{
		"cat": {1: 1, 2: 2},
	})

	res, err := f.exec.Execute(context.Background(), parser.Parse("cat cat CAT"), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ShardsLoaded)
	assert.Equal(t, []int{barrel.ShardOf("cat")}, res.Shards)
	assert.Equal(t, 1.0, diskLoads(f))
	require.Len(t, res.Results, 2)
	assert.Equal(t, 2, res.Results[0].DocID)
	assert.Equal(t, 6, res.Results[0].TotalTermFreq)
}

func TestExecute_SemanticBoostReordersTies(t *testing.T) {
	f := newFixture(t, []string{"cat"}, map[string]index.PostingList{
		"cat": {1: 1, 2: 1},
	})
	f.vectors.SetWordVector("cat", []float32{1, 0})
	f.vectors.SetDocVector(1, []float32{0, 1})
	f.vectors.SetDocVector(2, []float32{1, 0})

	res, err := f.exec.Execute(context.Background(), parser.Parse("cat"), 10)
	require.NoError(t, err)
	require.Len(t, res.Results, 2)
	assert.Equal(t, 2, res.Results[0].DocID)
	assert.InDelta(t, 0.35, res.Results[0].Score-res.Results[1].Score, 1e-9)
}

func TestExecute_LimitTruncates(t *testing.T) {
	pl := index.PostingList{}
	for doc := 1; doc <= 25; doc++ {
		pl[doc] = doc
	}
	f := newFixture(t, []string{"cat"}, map[string]index.PostingList{"cat": pl})

	res, err := f.exec.Execute(context.Background(), parser.Parse("cat"), 10)
	require.NoError(t, err)
	assert.Len(t, res.Results, 10)
	assert.Equal(t, 25, res.TotalHits)
	assert.Equal(t, 25, res.Results[0].DocID)

	all, err := f.exec.Execute(context.Background(), parser.Parse("cat"), 0)
	require.NoError(t, err)
	assert.Len(t, all.Results, 25)
}

func TestExecute_CanceledContext(t *testing.T) {
	f := newFixture(t, []string{"cat"}, map[string]index.PostingList{"cat": {1: 1}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.exec.Execute(ctx, parser.Parse("cat"), 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecute_MissingBarrelIsEmpty(t *testing.T) {
	lex, err := lexicon.FromWords([]string{"cat"})
	require.NoError(t, err)
	store, err := shard.Open(filepath.Join(t.TempDir(), "absent"), shard.Options{})
	require.NoError(t, err)
	exec := New(Config{Lexicon: lex, Store: store, DF: dftable.New(), TotalDocs: 10})

	res, err := exec.Execute(context.Background(), parser.Parse("cat"), 10)
	require.NoError(t, err)
	assert.Empty(t, res.Results)
	assert.Equal(t, 1, res.ShardsLoaded)
}
