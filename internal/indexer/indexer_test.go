package indexer

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumisearch/lumi/internal/barrel"
	"github.com/lumisearch/lumi/internal/dftable"
	"github.com/lumisearch/lumi/internal/index"
	"github.com/lumisearch/lumi/internal/shard"
	"github.com/lumisearch/lumi/pkg/config"
	apperrors "github.com/lumisearch/lumi/pkg/errors"
)

func testConfig(t testing.TB) config.IndexerConfig {
	t.Helper()
	cfg := config.Default().Indexer
	cfg.DataDir = t.TempDir()
	return cfg
}

func openStore(t testing.TB, cfg config.IndexerConfig) *shard.Store {
	t.Helper()
	store, err := shard.Open(cfg.BarrelsPath(), shard.Options{Create: true})
	require.NoError(t, err)
	return store
}

func postingsOf(t *testing.T, store *shard.Store, state *State, word string) index.PostingList {
	t.Helper()
	termID, ok := state.Lexicon.ID(word)
	if !ok {
		return index.PostingList{}
	}
	sh, err := store.LoadFresh(context.Background(), barrel.ShardOf(word))
	require.NoError(t, err)
	return index.Postings(termID, sh)
}

func TestAddDocument_PersistsEverything(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	store := openStore(t, cfg)
	ix := New(cfg, NewState(), store, nil)

	res, err := ix.AddDocument(ctx, 42, "Quantum foam, quantum FOAM and zebras.")
	require.NoError(t, err)
	assert.Equal(t, []string{"quantum", "foam", "and", "zebras"}, res.NewWords)
	assert.Equal(t, 4, res.Terms)
	assert.NotEmpty(t, res.ShardsWritten)

	loaded, err := LoadState(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"quantum", "foam", "and", "zebras"}, loaded.Lexicon.Words())
	assert.Equal(t, 4, loaded.Barrels.Len())

	assert.Equal(t, index.PostingList{42: 2}, postingsOf(t, store, loaded, "quantum"))
	assert.Equal(t, index.PostingList{42: 2}, postingsOf(t, store, loaded, "foam"))
	assert.Equal(t, index.PostingList{42: 1}, postingsOf(t, store, loaded, "zebras"))

	for _, w := range []string{"quantum", "foam", "zebras"} {
		id, _ := loaded.Lexicon.ID(w)
		shardID, ok := loaded.Barrels.Get(id)
		require.True(t, ok)
		assert.Equal(t, barrel.ShardOf(w), shardID)
	}
}

func TestAddDocument_DFOncePerDocument(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	store := openStore(t, cfg)
	state := NewState()
	ix := New(cfg, state, store, nil)

	_, err := ix.AddDocument(ctx, 1, "cat cat cat dog")
	require.NoError(t, err)
	_, err = ix.AddDocument(ctx, 2, "cat")
	require.NoError(t, err)

	catID, _ := state.Lexicon.ID("cat")
	dogID, _ := state.Lexicon.ID("dog")
	assert.Equal(t, 2, state.DF.Get(catID))
	assert.Equal(t, 1, state.DF.Get(dogID))

	// the in-memory table agrees with the barrels
	mismatches, err := state.DF.Verify(ctx, store)
	require.NoError(t, err)
	assert.Empty(t, mismatches)

	df, err := dftable.Load(cfg.DFPath())
	require.NoError(t, err)
	assert.Equal(t, 2, df.Get(catID))
}

func TestAddDocument_RejectsDuplicateDocID(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	store := openStore(t, cfg)
	state := NewState()
	ix := New(cfg, state, store, nil)

	_, err := ix.AddDocument(ctx, 7, "apple pie")
	require.NoError(t, err)

	_, err = ix.AddDocument(ctx, 7, "apple tart")
	assert.ErrorIs(t, err, apperrors.ErrDocumentExists)

	// nothing changed
	_, ok := state.Lexicon.ID("tart")
	assert.False(t, ok)
	appleID, _ := state.Lexicon.ID("apple")
	assert.Equal(t, 1, state.DF.Get(appleID))
	assert.Equal(t, index.PostingList{7: 1}, postingsOf(t, store, state, "apple"))
}

func TestAddDocument_RejectsDuplicateWithUnseenWords(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	store := openStore(t, cfg)
	state := NewState()
	ix := New(cfg, state, store, nil)

	_, err := ix.AddDocument(ctx, 1, "first")
	require.NoError(t, err)
	_, err = ix.AddDocument(ctx, 1, "again")
	assert.ErrorIs(t, err, apperrors.ErrDocumentExists)

	_, ok := state.Lexicon.ID("again")
	assert.False(t, ok)
	assert.Equal(t, 1, state.Documents())
}

func TestAddDocument_DuplicateDetectedAfterReload(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	store := openStore(t, cfg)

	_, err := New(cfg, NewState(), store, nil).AddDocument(ctx, 9, "north wind")
	require.NoError(t, err)

	loaded, err := LoadState(cfg)
	require.NoError(t, err)
	ix := New(cfg, loaded, store, nil)
	_, err = ix.AddDocument(ctx, 9, "south sea")
	assert.ErrorIs(t, err, apperrors.ErrDocumentExists)
	_, err = ix.AddDocument(ctx, 10, "south sea")
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Documents())
}

func TestAddDocument_EmptyTextIsNoop(t *testing.T) {
	cfg := testConfig(t)
	store := openStore(t, cfg)
	state := NewState()
	ix := New(cfg, state, store, nil)

	res, err := ix.AddDocument(context.Background(), 3, "  ... !! ")
	require.NoError(t, err)
	assert.Empty(t, res.NewWords)
	assert.Empty(t, res.ShardsWritten)
	assert.Zero(t, state.Lexicon.Len())
	_, statErr := os.Stat(cfg.LexiconPath())
	assert.True(t, os.IsNotExist(statErr))
}

func TestAddDocument_NegativeID(t *testing.T) {
	cfg := testConfig(t)
	ix := New(cfg, NewState(), openStore(t, cfg), nil)
	_, err := ix.AddDocument(context.Background(), -1, "word")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestAddDocument_AppendsToExistingPostings(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	store := openStore(t, cfg)
	state := NewState()
	ix := New(cfg, state, store, nil)

	_, err := ix.AddDocument(ctx, 1, "river stone")
	require.NoError(t, err)
	res, err := ix.AddDocument(ctx, 2, "river river")
	require.NoError(t, err)
	assert.Empty(t, res.NewWords)

	assert.Equal(t, index.PostingList{1: 1, 2: 2}, postingsOf(t, store, state, "river"))
	assert.Equal(t, index.PostingList{1: 1}, postingsOf(t, store, state, "stone"))
}
