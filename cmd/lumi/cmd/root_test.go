package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumisearch/lumi/internal/engine"
	apperrors "github.com/lumisearch/lumi/pkg/errors"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestAddSearchComplete(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, "", "--data-dir", dir, "add", "5", "cat", "dog", "cat")
	require.NoError(t, err)
	assert.Contains(t, out, "indexed doc 5")

	_, err = run(t, "cat and a car", "--data-dir", dir, "add", "6")
	require.NoError(t, err)

	out, err = run(t, "", "--data-dir", dir, "search", "cat", "dog")
	require.NoError(t, err)
	assert.Contains(t, out, "doc 5")
	assert.NotContains(t, out, "doc 6")
	assert.Contains(t, out, "1 of 1 matches")

	out, err = run(t, "", "--data-dir", dir, "complete", "ca")
	require.NoError(t, err)
	assert.Equal(t, "car\ncat\n", out)
}

func TestSearch_JSONAndNoMatches(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, "", "--data-dir", dir, "add", "1", "lighthouse")
	require.NoError(t, err)

	out, err := run(t, "", "--data-dir", dir, "search", "lighthouse", "--format", "json", "--all")
	require.NoError(t, err)
	var res struct {
		TotalHits int `json:"total_hits"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 1, res.TotalHits)

	out, err = run(t, "", "--data-dir", dir, "search", "harbor")
	require.NoError(t, err)
	assert.Contains(t, out, "No documents match")
}

func TestAdd_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, "", "--data-dir", dir, "add", "seven", "text")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = run(t, "", "--data-dir", dir, "add", "1", "one")
	require.NoError(t, err)
	_, err = run(t, "", "--data-dir", dir, "add", "1", "again")
	assert.ErrorIs(t, err, apperrors.ErrDocumentExists)
}

func TestBuildStatsVerify(t *testing.T) {
	dir := t.TempDir()
	corpusDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(corpusDir, "a.txt"), []byte("red green"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(corpusDir, "b.txt"), []byte("green blue"), 0644))

	out, err := run(t, "", "--data-dir", dir, "build", corpusDir)
	require.NoError(t, err)
	assert.Contains(t, out, "2 documents, 3 terms")

	out, err = run(t, "", "--data-dir", dir, "stats")
	require.NoError(t, err)
	var stats engine.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 2, stats.Documents)
	assert.Equal(t, 3, stats.Terms)

	out, err = run(t, "", "--data-dir", dir, "verify")
	require.NoError(t, err)
	assert.Equal(t, "index consistent\n", out)
}

func TestSearch_RequiresQuery(t *testing.T) {
	_, err := run(t, "", "--data-dir", t.TempDir(), "search")
	assert.Error(t, err)
}
