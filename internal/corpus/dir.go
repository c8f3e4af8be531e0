// Package corpus enumerates documents for indexing: from a directory of
// text files, from a Postgres table, or continuously from files dropped
// into a watched directory.
package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const textExt = ".txt"

// DirSource yields every .txt file directly inside Dir. Doc ids follow the
// sorted file names, starting at 1.
type DirSource struct {
	Dir string
}

func (s DirSource) Each(ctx context.Context, fn func(docID int, text string) error) error {
	logger := slog.Default().With("component", "corpus", "dir", s.Dir)
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return fmt.Errorf("listing corpus directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), textExt) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := os.ReadFile(filepath.Join(s.Dir, name))
		if err != nil {
			logger.Warn("skipping unreadable file", "file", name, "error", err)
			continue
		}
		if err := fn(i+1, string(data)); err != nil {
			return fmt.Errorf("document %d (%s): %w", i+1, name, err)
		}
	}
	logger.Info("corpus enumerated", "files", len(names))
	return nil
}
