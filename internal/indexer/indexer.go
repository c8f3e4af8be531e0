// Package indexer adds documents to the persisted index, either one at a
// time or in bulk.
package indexer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lumisearch/lumi/internal/barrel"
	"github.com/lumisearch/lumi/internal/index"
	"github.com/lumisearch/lumi/internal/lexicon"
	"github.com/lumisearch/lumi/internal/shard"
	"github.com/lumisearch/lumi/internal/tokenizer"
	"github.com/lumisearch/lumi/pkg/config"
	apperrors "github.com/lumisearch/lumi/pkg/errors"
	"github.com/lumisearch/lumi/pkg/metrics"
)

// AddResult describes what AddDocument changed.
type AddResult struct {
	DocID int `json:"doc_id"`
	// NewWords are the words that entered the lexicon, in id order.
	NewWords      []string `json:"new_words"`
	Terms         int      `json:"terms"`
	ShardsWritten []int    `json:"shards_written"`
}

// Indexer applies single-document updates. It is not safe for concurrent
// use; callers serialize writers.
type Indexer struct {
	cfg     config.IndexerConfig
	state   *State
	store   *shard.Store
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New returns an Indexer that mutates state and persists through store.
// m may be nil.
func New(cfg config.IndexerConfig, state *State, store *shard.Store, m *metrics.Metrics) *Indexer {
	return &Indexer{
		cfg:     cfg,
		state:   state,
		store:   store,
		metrics: m,
		logger:  slog.Default().With("component", "indexer"),
	}
}

// AddDocument indexes text under docID and persists the touched barrels,
// then the barrel map, the lexicon and the DF table. The update is not
// transactional: a failure part way leaves earlier files written.
//
// A docID that already has any posting is rejected with ErrDocumentExists
// before anything is modified. A document with no words is accepted and
// changes nothing. A non-nil result with an error means the in-memory state
// and possibly some files were changed.
func (ix *Indexer) AddDocument(ctx context.Context, docID int, text string) (*AddResult, error) {
	if docID < 0 {
		return nil, fmt.Errorf("%w: negative document id %d", apperrors.ErrInvalidInput, docID)
	}
	if ix.state.docs == nil {
		if err := ix.state.LoadDocuments(ctx, ix.store); err != nil {
			return nil, fmt.Errorf("adding document %d: %w", docID, err)
		}
	}
	if ix.state.HasDocument(docID) {
		return nil, fmt.Errorf("%w: document %d", apperrors.ErrDocumentExists, docID)
	}
	words, freqs := termFrequencies(text)
	result := &AddResult{DocID: docID, NewWords: []string{}, ShardsWritten: []int{}}
	if len(words) == 0 {
		ix.logger.Warn("document has no indexable words", "doc_id", docID)
		return result, nil
	}

	// Load every barrel up front so that nothing fails after the in-memory
	// structures start changing.
	session := ix.store.NewWriteSession()
	for _, w := range words {
		if _, err := session.Get(ctx, barrel.ShardOf(w)); err != nil {
			return nil, fmt.Errorf("adding document %d: %w", docID, err)
		}
	}

	for _, w := range words {
		termID, created := ix.state.Lexicon.IDOrInsert(w)
		shardID := barrel.ShardOf(w)
		if created {
			ix.state.Barrels.Set(termID, shardID)
			result.NewWords = append(result.NewWords, w)
		}
		ix.state.DF.Increment(termID)

		sh, err := session.Get(ctx, shardID)
		if err != nil {
			return result, fmt.Errorf("adding document %d: %w", docID, err)
		}
		sh[termID] = index.MergeInsert(sh[termID], docID, freqs[w])
		if err := session.MarkDirty(shardID); err != nil {
			return result, err
		}
	}
	result.Terms = len(words)
	ix.state.addDocument(docID)

	written, err := session.Flush(ctx)
	result.ShardsWritten = written
	if err != nil {
		return result, fmt.Errorf("adding document %d: %w", docID, err)
	}
	if err := ix.state.Save(ix.cfg); err != nil {
		return result, fmt.Errorf("adding document %d: %w", docID, err)
	}

	if ix.metrics != nil {
		ix.metrics.DocsIndexedTotal.WithLabelValues("incremental").Inc()
		ix.metrics.LexiconSize.Set(float64(ix.state.Lexicon.Len()))
	}
	ix.logger.Info("document added",
		"doc_id", docID,
		"terms", result.Terms,
		"new_words", len(result.NewWords),
		"shards_written", written,
	)
	return result, nil
}

// termFrequencies returns the distinct normalized words of text in order
// of first occurrence, with their within-document counts.
func termFrequencies(text string) ([]string, map[string]int) {
	var words []string
	freqs := make(map[string]int)
	for _, tok := range tokenizer.Tokenize(text) {
		w := lexicon.Normalize(tok.Term)
		if w == "" {
			continue
		}
		if freqs[w] == 0 {
			words = append(words, w)
		}
		freqs[w]++
	}
	return words, freqs
}
