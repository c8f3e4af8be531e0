package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lumisearch/lumi/internal/barrel"
	"github.com/lumisearch/lumi/internal/dftable"
	"github.com/lumisearch/lumi/internal/embedding"
	"github.com/lumisearch/lumi/internal/index"
	"github.com/lumisearch/lumi/internal/lexicon"
	"github.com/lumisearch/lumi/internal/searcher/parser"
	"github.com/lumisearch/lumi/internal/searcher/ranker"
	"github.com/lumisearch/lumi/internal/shard"
	apperrors "github.com/lumisearch/lumi/pkg/errors"
	"github.com/lumisearch/lumi/pkg/metrics"
)

type SearchResult struct {
	Query     string   `json:"query"`
	Terms     []string `json:"terms"`
	TotalHits int      `json:"total_hits"`
	// Shards lists the barrels the query read, in load order.
	Shards       []int              `json:"shards"`
	ShardsLoaded int                `json:"shards_loaded"`
	Results      []ranker.ScoredDoc `json:"results"`
}

// Config carries the index structures a query reads. Vectors and Metrics
// may be nil.
type Config struct {
	Lexicon   *lexicon.Lexicon
	Store     *shard.Store
	DF        *dftable.Table
	Vectors   *embedding.Store
	TotalDocs int
	Metrics   *metrics.Metrics
}

type Executor struct {
	cfg    Config
	logger *slog.Logger
}

func New(cfg Config) *Executor {
	return &Executor{
		cfg:    cfg,
		logger: slog.Default().With("component", "query-executor"),
	}
}

// Execute intersects the postings of every word in plan, scores the
// survivors and returns them best first, cut to limit when limit > 0.
// Each barrel is loaded at most once, and no barrel is loaded after the
// intersection becomes empty.
func (e *Executor) Execute(ctx context.Context, plan *parser.QueryPlan, limit int) (*SearchResult, error) {
	if plan.Empty() {
		return nil, apperrors.ErrEmptyQuery
	}
	session := e.cfg.Store.NewSession()
	fetch := func(i int) (index.PostingList, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		word := plan.Terms[i]
		termID, ok := e.cfg.Lexicon.ID(word)
		if !ok {
			return index.PostingList{}, nil
		}
		sh, err := session.Get(ctx, barrel.ShardOf(word))
		if err != nil {
			return nil, fmt.Errorf("loading postings for %q: %w", word, err)
		}
		return index.Postings(termID, sh), nil
	}
	hits, err := index.IntersectAll(len(plan.Terms), fetch)
	if err != nil {
		return nil, err
	}
	if e.cfg.Metrics != nil {
		e.cfg.Metrics.ShardsPerQuery.Observe(float64(session.Loads()))
	}

	result := &SearchResult{
		Query:        plan.RawQuery,
		Terms:        plan.Terms,
		TotalHits:    len(hits),
		Shards:       session.Touched(),
		ShardsLoaded: session.Loads(),
		Results:      []ranker.ScoredDoc{},
	}
	if len(hits) == 0 {
		e.logger.Debug("query matched nothing", "query", plan.RawQuery, "shards", result.Shards)
		return result, nil
	}

	params := ranker.RankParams{TotalDocs: e.cfg.TotalDocs}
	for _, word := range plan.Terms {
		if termID, ok := e.cfg.Lexicon.ID(word); ok {
			params.DocFreqs = append(params.DocFreqs, e.cfg.DF.Get(termID))
		}
	}
	getDocVector := func(int) []float32 { return nil }
	if e.cfg.Vectors != nil {
		params.QueryVector = e.cfg.Vectors.QueryVector(plan.Terms)
		getDocVector = e.cfg.Vectors.DocVector
	}
	result.Results = ranker.Rank(hits, params, getDocVector, limit)

	e.logger.Info("query executed",
		"query", plan.RawQuery,
		"terms", plan.Terms,
		"candidates", len(hits),
		"results", len(result.Results),
		"shards_loaded", result.ShardsLoaded,
	)
	return result, nil
}
