// Package cache keeps search results in Redis so that repeated queries skip
// shard loading. Concurrent misses on the same key are collapsed with
// singleflight. A circuit breaker skips Redis entirely while it is failing,
// so an outage costs queries nothing beyond the missed cache.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/lumisearch/lumi/internal/searcher/executor"
	"github.com/lumisearch/lumi/pkg/metrics"
	pkgredis "github.com/lumisearch/lumi/pkg/redis"
	"github.com/lumisearch/lumi/pkg/resilience"
)

const keyPrefix = "search:"

// Store is the subset of the Redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	store   Store
	ttl     time.Duration
	group   singleflight.Group
	breaker *resilience.Breaker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New returns a cache over store whose entries live for ttl. m may be nil.
func New(store Store, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		store: store,
		ttl:   ttl,
		breaker: resilience.NewBreaker("redis-query-cache", resilience.BreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     10 * time.Second,
			IsFailure:        func(err error) bool { return !pkgredis.IsNil(err) },
		}),
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Get looks up the result for the normalized query key and limit. Store
// errors are logged and reported as a miss.
func (c *QueryCache) Get(ctx context.Context, key string, limit int) (*executor.SearchResult, bool) {
	k := buildKey(key, limit)
	var data []byte
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.store.Get(ctx, k)
		return err
	})
	if err != nil {
		if !pkgredis.IsNil(err) && !errors.Is(err, resilience.ErrCircuitOpen) {
			c.logger.Error("cache get failed", "key", k, "error", err)
		}
		c.miss()
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Error("cache entry undecodable", "key", k, "error", err)
		c.miss()
		return nil, false
	}
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	c.logger.Debug("cache hit", "query", key, "key", k)
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, key string, limit int, result *executor.SearchResult) {
	k := buildKey(key, limit)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", k, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.store.Set(ctx, k, data, c.ttl)
	})
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Error("cache set failed", "key", k, "error", err)
	}
}

// GetOrCompute returns the cached result or runs compute once for all
// concurrent callers of the same key. The bool reports a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	key string,
	limit int,
	compute func() (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, key, limit); ok {
		return result, true, nil
	}
	val, err, _ := c.group.Do(buildKey(key, limit), func() (any, error) {
		result, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, limit, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*executor.SearchResult), false, nil
}

// Invalidate drops every cached result.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) miss() {
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func buildKey(key string, limit int) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s:limit=%d", key, limit)))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
