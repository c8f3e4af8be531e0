package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/gofrs/flock"

	"github.com/lumisearch/lumi/internal/indexer"
	"github.com/lumisearch/lumi/internal/shard"
	"github.com/lumisearch/lumi/pkg/config"
	apperrors "github.com/lumisearch/lumi/pkg/errors"
	"github.com/lumisearch/lumi/pkg/metrics"
)

// DocumentSource enumerates a corpus for a bulk build.
type DocumentSource interface {
	Each(ctx context.Context, fn func(docID int, text string) error) error
}

// Build replaces the index under cfg with one built from src. It holds the
// lock file for the whole run. m may be nil.
func Build(ctx context.Context, cfg *config.Config, src DocumentSource, m *metrics.Metrics) (*indexer.BuildStats, error) {
	logger := slog.Default().With("component", "engine")
	if err := os.MkdirAll(cfg.Indexer.DataDir, 0755); err != nil {
		return nil, apperrors.Configf("creating data directory %s: %v", cfg.Indexer.DataDir, err)
	}
	if path := cfg.Indexer.LockPath(); path != "" {
		fl := flock.New(path)
		defer fl.Close()
		ok, err := fl.TryLockContext(ctx, lockRetryDelay)
		if err != nil || !ok {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrIndexLocked, path)
		}
		defer fl.Unlock()
	}

	store, err := shard.Open(cfg.Indexer.BarrelsPath(), shard.Options{Create: true, Metrics: m})
	if err != nil {
		return nil, err
	}
	b := indexer.NewBuilder(cfg.Indexer, store, m)
	added := 0
	err = src.Each(ctx, func(docID int, text string) error {
		if err := b.Add(docID, text); err != nil {
			return err
		}
		added++
		if added%1000 == 0 {
			logger.Info("bulk indexing progress", "documents", added)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading corpus: %w", err)
	}
	return b.Build(ctx)
}
