package dftable

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumisearch/lumi/internal/index"
	apperrors "github.com/lumisearch/lumi/pkg/errors"
)

type fakeStore map[int]index.Shard

func (f fakeStore) ForEach(ctx context.Context, fn func(int, index.Shard) error) error {
	for id := 0; id < 32; id++ {
		if err := fn(id, f[id]); err != nil {
			return err
		}
	}
	return nil
}

type failingStore struct{}

func (failingStore) ForEach(context.Context, func(int, index.Shard) error) error {
	return errors.New("disk gone")
}

func TestTable_GetSetIncrement(t *testing.T) {
	tb := New()
	assert.Zero(t, tb.Get(4))
	tb.Increment(4)
	tb.Increment(4)
	tb.Set(7, 9)
	assert.Equal(t, 2, tb.Get(4))
	assert.Equal(t, 9, tb.Get(7))
	assert.Equal(t, 2, tb.Len())
}

func TestBuild_CountsPostings(t *testing.T) {
	store := fakeStore{
		0:  {0: {1: 3, 5: 1}},
		17: {1: {5: 2}, 2: {1: 1, 2: 1, 3: 1}},
	}
	tb, err := Build(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, 2, tb.Get(0))
	assert.Equal(t, 1, tb.Get(1))
	assert.Equal(t, 3, tb.Get(2))
	assert.Equal(t, 3, tb.Len())
}

func TestBuild_PropagatesScanError(t *testing.T) {
	_, err := Build(context.Background(), failingStore{})
	assert.Error(t, err)
}

func TestVerify_ReportsDivergence(t *testing.T) {
	store := fakeStore{3: {0: {1: 1, 2: 1}, 1: {1: 1}}}
	tb := New()
	tb.Set(0, 2)
	tb.Set(1, 2)
	tb.Set(9, 1)

	got, err := tb.Verify(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, []Mismatch{
		{TermID: 1, Stored: 2, Postings: 1},
		{TermID: 9, Stored: 1, Postings: 0},
	}, got)
}

func TestVerify_ConsistentTable(t *testing.T) {
	store := fakeStore{3: {0: {1: 1, 2: 1}}}
	tb, err := Build(context.Background(), store)
	require.NoError(t, err)
	got, err := tb.Verify(context.Background(), store)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "df_map.json")
	tb := New()
	tb.Set(0, 2)
	tb.Set(12, 1)
	require.NoError(t, tb.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"0": 2, "12": 1}`, string(data))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Get(0))
	assert.Equal(t, 1, loaded.Get(12))
}

func TestLoad_SkipsMalformedEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "df_map.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"1": 4, "x": 2, "2": "many", "3": -1}`), 0644))

	tb, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, tb.Len())
	assert.Equal(t, 4, tb.Get(1))
}

func TestLoad_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "df_map.json")
	_, err := Load(path)
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)

	tb, err := LoadOrEmpty(path)
	require.NoError(t, err)
	assert.Zero(t, tb.Len())
}
