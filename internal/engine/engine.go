// Package engine ties the index components together behind one object that
// serves queries and autocomplete and applies document additions. Queries
// share a read lock; additions take the write lock and, when configured, a
// lock file so that only one process commits at a time.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/lumisearch/lumi/internal/autocomplete"
	"github.com/lumisearch/lumi/internal/barrel"
	"github.com/lumisearch/lumi/internal/dftable"
	"github.com/lumisearch/lumi/internal/embedding"
	"github.com/lumisearch/lumi/internal/indexer"
	"github.com/lumisearch/lumi/internal/searcher/executor"
	"github.com/lumisearch/lumi/internal/searcher/parser"
	"github.com/lumisearch/lumi/internal/searcher/ranker"
	"github.com/lumisearch/lumi/internal/shard"
	"github.com/lumisearch/lumi/pkg/config"
	apperrors "github.com/lumisearch/lumi/pkg/errors"
	"github.com/lumisearch/lumi/pkg/metrics"
)

// lockRetryDelay is how often a blocked commit retries the lock file.
const lockRetryDelay = 50 * time.Millisecond

// ResultCache stores search results across queries. It must be emptied
// whenever the index changes.
type ResultCache interface {
	GetOrCompute(ctx context.Context, key string, limit int, compute func() (*executor.SearchResult, error)) (*executor.SearchResult, bool, error)
	Invalidate(ctx context.Context) error
}

type Option func(*Engine)

// WithResultCache serves repeated queries from c.
func WithResultCache(c ResultCache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithMetrics records engine activity in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithVectors uses an already loaded embedding store instead of reading the
// configured files.
func WithVectors(v *embedding.Store) Option {
	return func(e *Engine) { e.vectors = v }
}

type Engine struct {
	cfg      *config.Config
	mu       sync.RWMutex
	fileLock *flock.Flock

	store   *shard.Store
	state   *indexer.State
	trie    *autocomplete.Trie
	vectors *embedding.Store
	exec    *executor.Executor
	ix      *indexer.Indexer

	cache   ResultCache
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Open loads the persisted index named by cfg. A directory with no index
// files opens as an empty index.
func Open(cfg *config.Config, opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:    cfg,
		logger: slog.Default().With("component", "engine"),
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := os.MkdirAll(cfg.Indexer.DataDir, 0755); err != nil {
		return nil, apperrors.Configf("creating data directory %s: %v", cfg.Indexer.DataDir, err)
	}
	if path := cfg.Indexer.LockPath(); path != "" {
		e.fileLock = flock.New(path)
	}

	store, err := shard.Open(cfg.Indexer.BarrelsPath(), shard.Options{
		Create:    true,
		CacheSize: cfg.Indexer.ShardCacheSize,
		Metrics:   e.metrics,
	})
	if err != nil {
		return nil, err
	}
	e.store = store

	if e.vectors == nil {
		vectors, err := embedding.Load(cfg.Embeddings.WordVectorsFile, cfg.Embeddings.DocVectorsFile, cfg.Embeddings.QueryCacheSize)
		if err != nil {
			return nil, err
		}
		e.vectors = vectors
	}

	if err := e.loadLocked(context.Background()); err != nil {
		return nil, err
	}
	e.logger.Info("engine opened",
		"data_dir", cfg.Indexer.DataDir,
		"documents", e.state.Documents(),
		"terms", e.state.Lexicon.Len(),
		"word_vectors", e.vectors.WordCount(),
		"doc_vectors", e.vectors.DocCount(),
	)
	return e, nil
}

// loadLocked reads the index metadata, collects the indexed document ids
// from the barrels and rebuilds everything derived from them. The caller
// holds mu for writing, or has not published e yet.
func (e *Engine) loadLocked(ctx context.Context) error {
	state, err := indexer.LoadState(e.cfg.Indexer)
	if err != nil {
		return err
	}
	if err := state.LoadDocuments(ctx, e.store); err != nil {
		return err
	}
	e.state = state
	e.trie = autocomplete.FromWords(state.Lexicon.Words())
	e.exec = executor.New(executor.Config{
		Lexicon:   state.Lexicon,
		Store:     e.store,
		DF:        state.DF,
		Vectors:   e.vectors,
		TotalDocs: e.cfg.Indexer.TotalDocuments,
		Metrics:   e.metrics,
	})
	e.ix = indexer.New(e.cfg.Indexer, state, e.store, e.metrics)
	if e.metrics != nil {
		e.metrics.LexiconSize.Set(float64(state.Lexicon.Len()))
	}
	return nil
}

// Reload rereads the persisted index, for example after a bulk build by
// another process.
func (e *Engine) Reload(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store.Purge()
	if err := e.loadLocked(ctx); err != nil {
		return fmt.Errorf("reloading index: %w", err)
	}
	e.invalidate(ctx)
	e.logger.Info("index reloaded", "terms", e.state.Lexicon.Len())
	return nil
}

// Search returns the best limit documents for query; limit <= 0 means
// ranker.DefaultTopK.
func (e *Engine) Search(ctx context.Context, query string, limit int) ([]ranker.ScoredDoc, error) {
	if limit <= 0 {
		limit = ranker.DefaultTopK
	}
	res, _, err := e.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return res.Results, nil
}

// SearchAll returns every matching document in rank order.
func (e *Engine) SearchAll(ctx context.Context, query string) ([]ranker.ScoredDoc, error) {
	res, _, err := e.Query(ctx, query, 0)
	if err != nil {
		return nil, err
	}
	return res.Results, nil
}

// Query runs query and reports whether the result came from the result
// cache. A limit <= 0 returns every match.
func (e *Engine) Query(ctx context.Context, query string, limit int) (*executor.SearchResult, bool, error) {
	start := time.Now()
	plan := parser.Parse(query)
	if plan.Empty() {
		e.observeQuery("empty", false, start, 0)
		return nil, false, apperrors.ErrEmptyQuery
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	var (
		res      *executor.SearchResult
		cacheHit bool
		err      error
	)
	if e.cache != nil {
		res, cacheHit, err = e.cache.GetOrCompute(ctx, plan.Key(), limit, func() (*executor.SearchResult, error) {
			return e.exec.Execute(ctx, plan, limit)
		})
	} else {
		res, err = e.exec.Execute(ctx, plan, limit)
	}
	if err != nil {
		e.observeQuery("error", cacheHit, start, 0)
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", apperrors.ErrTimeout, err)
		}
		return nil, false, err
	}
	if cacheHit && res.Query != plan.RawQuery {
		// Entries are shared by every spelling of the same terms.
		hit := *res
		hit.Query = plan.RawQuery
		res = &hit
	}
	resultType := "hit"
	if len(res.Results) == 0 {
		resultType = "zero_result"
	}
	e.observeQuery(resultType, cacheHit, start, len(res.Results))
	return res, cacheHit, nil
}

func (e *Engine) observeQuery(resultType string, cacheHit bool, start time.Time, n int) {
	if e.metrics == nil {
		return
	}
	status := "miss"
	if cacheHit {
		status = "hit"
	}
	e.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	e.metrics.SearchLatency.WithLabelValues(status).Observe(time.Since(start).Seconds())
	if resultType != "empty" && resultType != "error" {
		e.metrics.SearchResultsCount.Observe(float64(n))
	}
}

// Autocomplete returns up to limit lexicon words starting with prefix. A
// non-positive limit uses the configured default.
func (e *Engine) Autocomplete(prefix string, limit int) []string {
	if limit <= 0 {
		limit = e.cfg.Search.AutocompleteLimit
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.metrics != nil {
		e.metrics.AutocompleteTotal.Inc()
	}
	return e.trie.Suggest(prefix, limit)
}

// AddDocument indexes text under docID and commits it to disk. Concurrent
// queries wait for the commit; another process holding the lock file makes
// it fail with ErrIndexLocked once ctx is done.
func (e *Engine) AddDocument(ctx context.Context, docID int, text string) (*indexer.AddResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	unlock, err := e.lockFile(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	res, err := e.ix.AddDocument(ctx, docID, text)
	if err != nil {
		if res != nil {
			// Some files were written; resync memory with disk.
			e.logger.Error("document add left the index partially written, reloading",
				"doc_id", docID, "error", err)
			if reloadErr := e.loadLocked(context.WithoutCancel(ctx)); reloadErr != nil {
				e.logger.Error("reload after failed add failed", "error", reloadErr)
			}
			e.store.Purge()
			e.invalidate(ctx)
		}
		return nil, err
	}
	for _, w := range res.NewWords {
		e.trie.Insert(w)
	}
	if len(res.ShardsWritten) > 0 {
		e.invalidate(ctx)
	}
	return res, nil
}

// lockFile takes the cross-process commit lock, retrying until ctx ends.
func (e *Engine) lockFile(ctx context.Context) (func(), error) {
	if e.fileLock == nil {
		return func() {}, nil
	}
	ok, err := e.fileLock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrIndexLocked, e.fileLock.Path())
		}
		return nil, fmt.Errorf("locking index: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrIndexLocked, e.fileLock.Path())
	}
	return func() {
		if err := e.fileLock.Unlock(); err != nil {
			e.logger.Error("releasing index lock", "error", err)
		}
	}, nil
}

func (e *Engine) invalidate(ctx context.Context) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Invalidate(ctx); err != nil {
		e.logger.Warn("result cache invalidation failed", "error", err)
	}
}

// Stats describes the loaded index.
type Stats struct {
	Documents      int `json:"documents"`
	Terms          int `json:"terms"`
	BarrelEntries  int `json:"barrel_entries"`
	DFEntries      int `json:"df_entries"`
	ShardFiles     int `json:"shard_files"`
	WordVectors    int `json:"word_vectors"`
	DocVectors     int `json:"doc_vectors"`
	TotalDocuments int `json:"total_documents"`
}

func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	files := 0
	for id := 0; id < barrel.ShardCount; id++ {
		if e.store.Exists(id) {
			files++
		}
	}
	return Stats{
		Documents:      e.state.Documents(),
		Terms:          e.state.Lexicon.Len(),
		BarrelEntries:  e.state.Barrels.Len(),
		DFEntries:      e.state.DF.Len(),
		ShardFiles:     files,
		WordVectors:    e.vectors.WordCount(),
		DocVectors:     e.vectors.DocCount(),
		TotalDocuments: e.cfg.Indexer.TotalDocuments,
	}
}

// Verify compares the loaded DF table with the barrels on disk.
func (e *Engine) Verify(ctx context.Context) ([]dftable.Mismatch, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.DF.Verify(ctx, e.store)
}

// Close releases the lock file handle.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fileLock != nil {
		return e.fileLock.Close()
	}
	return nil
}
