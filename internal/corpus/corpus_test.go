package corpus

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumisearch/lumi/internal/indexer"
	apperrors "github.com/lumisearch/lumi/pkg/errors"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
}

func TestDirSource_SortedIDsFromOne(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.txt", "second")
	writeFile(t, dir, "a.txt", "first")
	writeFile(t, dir, "notes.md", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.txt"), 0755))

	got := map[int]string{}
	err := DirSource{Dir: dir}.Each(context.Background(), func(id int, text string) error {
		got[id] = text
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, map[int]string{1: "first", 2: "second"}, got)
}

func TestDirSource_MissingDir(t *testing.T) {
	err := DirSource{Dir: filepath.Join(t.TempDir(), "none")}.Each(context.Background(), func(int, string) error {
		return nil
	})
	assert.Error(t, err)
}

func TestDocIDFromName(t *testing.T) {
	id, ok := DocIDFromName("/corpus/42.txt")
	assert.True(t, ok)
	assert.Equal(t, 42, id)

	_, ok = DocIDFromName("readme.txt")
	assert.False(t, ok)
	_, ok = DocIDFromName("-3.txt")
	assert.False(t, ok)
}

type recordingAdder struct {
	mu    sync.Mutex
	added map[int]string
}

func (r *recordingAdder) AddDocument(_ context.Context, docID int, text string) (*indexer.AddResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.added[docID]; ok {
		return nil, apperrors.ErrDocumentExists
	}
	r.added[docID] = text
	return &indexer.AddResult{DocID: docID}, nil
}

func (r *recordingAdder) get(id int) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	text, ok := r.added[id]
	return text, ok
}

func TestWatcher_IndexesNewFiles(t *testing.T) {
	dir := t.TempDir()
	adder := &recordingAdder{added: map[int]string{}}
	w := NewWatcher(dir, adder, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	// give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)

	writeFile(t, dir, "7.txt", "lunar eclipse")
	writeFile(t, dir, "draft.txt", "no id")

	assert.Eventually(t, func() bool {
		text, ok := adder.get(7)
		return ok && text == "lunar eclipse"
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	adder.mu.Lock()
	assert.Len(t, adder.added, 1)
	adder.mu.Unlock()
}
