package corpus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lumisearch/lumi/internal/indexer"
	apperrors "github.com/lumisearch/lumi/pkg/errors"
)

const defaultDebounce = 300 * time.Millisecond

// DocumentAdder applies one document to the index.
type DocumentAdder interface {
	AddDocument(ctx context.Context, docID int, text string) (*indexer.AddResult, error)
}

// Watcher indexes .txt files as they appear in a directory. A file named
// <n>.txt is added as document n; other names are skipped. Writes are
// debounced so a file is read once its writer has gone quiet.
type Watcher struct {
	dir      string
	adder    DocumentAdder
	debounce time.Duration
	logger   *slog.Logger
}

func NewWatcher(dir string, adder DocumentAdder, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Watcher{
		dir:      dir,
		adder:    adder,
		debounce: debounce,
		logger:   slog.Default().With("component", "corpus-watcher", "dir", dir),
	}
}

// Run watches until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fsw.Close()
	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	w.logger.Info("watching for documents")

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 || !isText(ev.Name) {
				continue
			}
			pending[ev.Name] = time.Now().Add(w.debounce)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", "error", err)
		case now := <-ticker.C:
			for path, due := range pending {
				if now.Before(due) {
					continue
				}
				delete(pending, path)
				if err := w.index(ctx, path); err != nil {
					return err
				}
			}
		}
	}
}

// index adds one file. Only errors that make further indexing pointless
// are returned.
func (w *Watcher) index(ctx context.Context, path string) error {
	docID, ok := DocIDFromName(path)
	if !ok {
		w.logger.Warn("skipping file without a numeric name", "file", filepath.Base(path))
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		w.logger.Warn("skipping unreadable file", "file", filepath.Base(path), "error", err)
		return nil
	}
	res, err := w.adder.AddDocument(ctx, docID, string(data))
	switch {
	case err == nil:
		w.logger.Info("document indexed", "doc_id", docID, "new_words", len(res.NewWords))
	case errors.Is(err, apperrors.ErrDocumentExists), errors.Is(err, apperrors.ErrInvalidInput):
		w.logger.Warn("document not indexed", "doc_id", docID, "error", err)
	case errors.Is(err, apperrors.ErrIndexLocked):
		w.logger.Error("index locked, document not indexed", "doc_id", docID, "error", err)
	default:
		return fmt.Errorf("indexing %s: %w", path, err)
	}
	return nil
}

// DocIDFromName parses the doc id from a file name such as "42.txt".
func DocIDFromName(path string) (int, bool) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	id, err := strconv.Atoi(stem)
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}

func isText(path string) bool {
	return strings.EqualFold(filepath.Ext(path), textExt)
}
