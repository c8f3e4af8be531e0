// Package dftable keeps the document frequency of every term: the number of
// distinct documents whose postings contain it.
package dftable

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/lumisearch/lumi/internal/index"
	"github.com/lumisearch/lumi/internal/jsonfile"
	apperrors "github.com/lumisearch/lumi/pkg/errors"
)

// ShardScanner iterates every barrel once. *shard.Store satisfies it.
type ShardScanner interface {
	ForEach(ctx context.Context, fn func(id int, sh index.Shard) error) error
}

// Table maps term id to document frequency.
type Table struct {
	df map[int]int
}

func New() *Table {
	return &Table{df: make(map[int]int)}
}

// Get returns the document frequency of termID, 0 when unknown.
func (t *Table) Get(termID int) int {
	return t.df[termID]
}

func (t *Table) Set(termID, df int) {
	t.df[termID] = df
}

// Increment adds one document to termID. Callers invoke it once per
// (term, new document) pair.
func (t *Table) Increment(termID int) {
	t.df[termID]++
}

// Len is the number of terms with an entry.
func (t *Table) Len() int {
	return len(t.df)
}

// Build derives a table by scanning every barrel: the df of a term is the
// size of its posting list. Missing barrels contribute nothing.
func Build(ctx context.Context, store ShardScanner) (*Table, error) {
	t := New()
	err := store.ForEach(ctx, func(_ int, sh index.Shard) error {
		for termID, pl := range sh {
			t.df[termID] = len(pl)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("building df table: %w", err)
	}
	return t, nil
}

// Mismatch is a term whose stored df disagrees with its posting count.
type Mismatch struct {
	TermID   int `json:"term_id"`
	Stored   int `json:"stored"`
	Postings int `json:"postings"`
}

// Verify compares the table against the barrels and returns every
// disagreement ordered by term id. Terms present only in the table are
// reported with zero postings.
func (t *Table) Verify(ctx context.Context, store ShardScanner) ([]Mismatch, error) {
	actual, err := Build(ctx, store)
	if err != nil {
		return nil, err
	}
	var out []Mismatch
	for termID, n := range actual.df {
		if stored := t.df[termID]; stored != n {
			out = append(out, Mismatch{TermID: termID, Stored: stored, Postings: n})
		}
	}
	for termID, stored := range t.df {
		if _, ok := actual.df[termID]; !ok && stored != 0 {
			out = append(out, Mismatch{TermID: termID, Stored: stored})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TermID < out[j].TermID })
	return out, nil
}

// Load reads {"<termId>": df}. Entries with a bad id or value are skipped
// with a warning; an unreadable file is a configuration error.
func Load(path string) (*Table, error) {
	var raw map[string]json.RawMessage
	if err := jsonfile.Read(path, &raw); err != nil {
		return nil, apperrors.Configf("loading df table %s: %v", path, err)
	}
	logger := slog.Default().With("component", "dftable")
	t := New()
	for k, v := range raw {
		termID, err := strconv.Atoi(k)
		if err != nil || termID < 0 {
			logger.Warn("skipping df entry with invalid term id", "term_id", k)
			continue
		}
		var df int
		if err := json.Unmarshal(v, &df); err != nil || df < 0 {
			logger.Warn("skipping df entry with invalid value", "term_id", termID, "value", string(v))
			continue
		}
		t.df[termID] = df
	}
	return t, nil
}

// LoadOrEmpty is Load, except a missing file yields an empty table.
func LoadOrEmpty(path string) (*Table, error) {
	if !jsonfile.Exists(path) {
		return New(), nil
	}
	return Load(path)
}

// Save writes the table to path.
func (t *Table) Save(path string) error {
	out := make(map[string]int, len(t.df))
	for termID, df := range t.df {
		out[strconv.Itoa(termID)] = df
	}
	if err := jsonfile.Write(path, out); err != nil {
		return fmt.Errorf("saving df table: %w", err)
	}
	return nil
}
