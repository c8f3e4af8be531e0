package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lumisearch/lumi/internal/barrel"
	"github.com/lumisearch/lumi/internal/dftable"
	"github.com/lumisearch/lumi/internal/index"
	"github.com/lumisearch/lumi/internal/lexicon"
	"github.com/lumisearch/lumi/internal/shard"
	"github.com/lumisearch/lumi/pkg/config"
	apperrors "github.com/lumisearch/lumi/pkg/errors"
	"github.com/lumisearch/lumi/pkg/metrics"
)

// BuildStats summarizes a bulk build.
type BuildStats struct {
	Documents int           `json:"documents"`
	Terms     int           `json:"terms"`
	Postings  int           `json:"postings"`
	Shards    int           `json:"shards"`
	Duration  time.Duration `json:"duration"`
}

// Builder indexes a whole corpus in memory and replaces the persisted index
// with it on Build. One Builder serves one run.
type Builder struct {
	cfg     config.IndexerConfig
	store   *shard.Store
	lex     *lexicon.Lexicon
	mem     *index.MemoryIndex
	metrics *metrics.Metrics
	logger  *slog.Logger
	started time.Time
}

func NewBuilder(cfg config.IndexerConfig, store *shard.Store, m *metrics.Metrics) *Builder {
	return &Builder{
		cfg:     cfg,
		store:   store,
		lex:     lexicon.New(),
		mem:     index.NewMemoryIndex(),
		metrics: m,
		logger:  slog.Default().With("component", "index-builder"),
		started: time.Now(),
	}
}

// Add indexes one document in memory. Term ids are assigned in order of
// first occurrence across the corpus.
func (b *Builder) Add(docID int, text string) error {
	if docID < 0 {
		return fmt.Errorf("%w: negative document id %d", apperrors.ErrInvalidInput, docID)
	}
	if b.mem.Has(docID) {
		return fmt.Errorf("%w: document %d", apperrors.ErrDocumentExists, docID)
	}
	words, freqs := termFrequencies(text)
	if len(words) == 0 {
		b.logger.Warn("document has no indexable words", "doc_id", docID)
		return nil
	}
	termFreq := make(map[int]int, len(words))
	for _, w := range words {
		termID, _ := b.lex.IDOrInsert(w)
		termFreq[termID] = freqs[w]
	}
	b.mem.AddDocument(docID, termFreq)
	if b.metrics != nil {
		b.metrics.DocsIndexedTotal.WithLabelValues("bulk").Inc()
	}
	b.logger.Debug("document indexed in memory",
		"doc_id", docID,
		"terms", len(words),
		"mem_size", b.mem.Size(),
	)
	return nil
}

// Build writes every non-empty barrel, removes barrels left over from an
// earlier index, derives the DF table by scanning the barrels, and saves
// the barrel map, lexicon and DF table.
func (b *Builder) Build(ctx context.Context) (*BuildStats, error) {
	words := b.lex.Words()
	parts := b.mem.Partition(func(termID int) int {
		return barrel.ShardOf(words[termID])
	})
	for id := 0; id < barrel.ShardCount; id++ {
		sh, ok := parts[id]
		if !ok {
			if err := b.store.Remove(id); err != nil {
				return nil, fmt.Errorf("building index: %w", err)
			}
			continue
		}
		if err := b.store.Save(ctx, id, sh); err != nil {
			return nil, fmt.Errorf("building index: %w", err)
		}
	}

	df, err := dftable.Build(ctx, b.store)
	if err != nil {
		return nil, err
	}
	barrels := barrel.NewMap()
	barrels.Reconcile(words)
	state := &State{Lexicon: b.lex, Barrels: barrels, DF: df}
	if err := state.Save(b.cfg); err != nil {
		return nil, fmt.Errorf("building index: %w", err)
	}

	stats := &BuildStats{
		Documents: b.mem.DocCount(),
		Terms:     b.mem.Terms(),
		Postings:  b.mem.Size(),
		Shards:    len(parts),
		Duration:  time.Since(b.started),
	}
	if b.metrics != nil {
		b.metrics.LexiconSize.Set(float64(b.lex.Len()))
	}
	b.logger.Info("index built",
		"documents", stats.Documents,
		"terms", stats.Terms,
		"postings", stats.Postings,
		"shards", stats.Shards,
		"duration", stats.Duration,
	)
	return stats, nil
}
