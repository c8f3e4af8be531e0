// Package shard persists barrels as JSON files, one file per barrel, and
// loads them whole. Missing barrels read as empty. An optional LRU keeps
// decoded barrels across queries; it never changes what a load returns.
package shard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/lumisearch/lumi/internal/barrel"
	"github.com/lumisearch/lumi/internal/index"
	"github.com/lumisearch/lumi/internal/jsonfile"
	apperrors "github.com/lumisearch/lumi/pkg/errors"
	"github.com/lumisearch/lumi/pkg/metrics"
)

// Options configures a Store.
type Options struct {
	// Create makes the barrel directory if it does not exist. Writers set
	// it; failing to create the directory is a configuration error.
	Create bool
	// CacheSize is the number of decoded barrels kept across operations.
	// Zero disables the cache.
	CacheSize int
	Metrics   *metrics.Metrics
}

// Store reads and writes barrel files under one directory.
type Store struct {
	dir     string
	cache   *lru.Cache[int, index.Shard]
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Open returns a Store rooted at dir.
func Open(dir string, opts Options) (*Store, error) {
	s := &Store{
		dir:     dir,
		metrics: opts.Metrics,
		logger:  slog.Default().With("component", "shard-store"),
	}
	if opts.Create {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, apperrors.Configf("creating barrel directory %s: %v", dir, err)
		}
	} else if _, err := os.Stat(dir); err != nil {
		s.logger.Warn("barrel directory not found, every barrel reads as empty", "dir", dir)
	}
	if opts.CacheSize > 0 {
		cache, err := lru.New[int, index.Shard](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("creating shard cache: %w", err)
		}
		s.cache = cache
	}
	return s, nil
}

// Dir returns the barrel directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file holding barrel id.
func (s *Store) Path(id int) string {
	return filepath.Join(s.dir, fmt.Sprintf("shard_%d.json", id))
}

// Exists reports whether barrel id has a file.
func (s *Store) Exists(id int) bool {
	return jsonfile.Exists(s.Path(id))
}

// Load returns barrel id. A barrel without a file is empty. Shards served
// from the cache are shared: callers must treat them as read-only unless
// they came from LoadFresh.
func (s *Store) Load(ctx context.Context, id int) (index.Shard, error) {
	if s.cache != nil {
		if sh, ok := s.cache.Get(id); ok {
			s.countLoad("lru")
			return sh, nil
		}
	}
	sh, err := s.LoadFresh(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Add(id, sh)
	}
	return sh, nil
}

// LoadFresh reads barrel id from disk, bypassing the cache. The returned
// shard is owned by the caller.
func (s *Store) LoadFresh(ctx context.Context, id int) (index.Shard, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !barrel.Valid(id) {
		return nil, fmt.Errorf("%w: barrel id %d out of range", apperrors.ErrInvalidInput, id)
	}
	path := s.Path(id)
	var raw map[string]json.RawMessage
	if err := jsonfile.Read(path, &raw); err != nil {
		if jsonfile.IsNotExist(err) {
			s.countLoad("missing")
			return make(index.Shard), nil
		}
		return nil, fmt.Errorf("%w: barrel %d: %v", apperrors.ErrShardUnavailable, id, err)
	}
	s.countLoad("disk")
	return s.decode(id, raw), nil
}

// Save overwrites barrel id with sh. The whole file is rewritten.
func (s *Store) Save(ctx context.Context, id int, sh index.Shard) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !barrel.Valid(id) {
		return fmt.Errorf("%w: barrel id %d out of range", apperrors.ErrInvalidInput, id)
	}
	if err := jsonfile.Write(s.Path(id), encode(sh)); err != nil {
		return fmt.Errorf("saving barrel %d: %w", id, err)
	}
	if s.cache != nil {
		s.cache.Add(id, sh)
	}
	s.logger.Debug("barrel saved", "shard_id", id, "terms", len(sh))
	return nil
}

// Remove deletes the file of barrel id. Removing a missing barrel is not an
// error.
func (s *Store) Remove(id int) error {
	if s.cache != nil {
		s.cache.Remove(id)
	}
	if err := os.Remove(s.Path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing barrel %d: %w", id, err)
	}
	return nil
}

// ForEach loads every barrel once in id order and calls fn with it.
func (s *Store) ForEach(ctx context.Context, fn func(id int, sh index.Shard) error) error {
	for id := 0; id < barrel.ShardCount; id++ {
		sh, err := s.LoadFresh(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(id, sh); err != nil {
			return err
		}
	}
	return nil
}

// Purge drops every cached barrel.
func (s *Store) Purge() {
	if s.cache != nil {
		s.cache.Purge()
	}
}

func (s *Store) countLoad(source string) {
	if s.metrics != nil {
		s.metrics.ShardLoadsTotal.WithLabelValues(source).Inc()
	}
}

// decode converts {"<termId>": {"<docId>": freq}}. Records whose ids or
// frequency do not parse are skipped with a warning.
func (s *Store) decode(id int, raw map[string]json.RawMessage) index.Shard {
	sh := make(index.Shard, len(raw))
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		termID, err := strconv.Atoi(k)
		if err != nil {
			s.logger.Warn("skipping term with invalid id", "shard_id", id, "term_id", k)
			continue
		}
		var docs map[string]json.RawMessage
		if err := json.Unmarshal(raw[k], &docs); err != nil {
			s.logger.Warn("skipping term with malformed postings", "shard_id", id, "term_id", termID, "error", err)
			continue
		}
		pl := make(index.PostingList, len(docs))
		for docKey, freqRaw := range docs {
			docID, err := strconv.Atoi(docKey)
			if err != nil {
				s.logger.Warn("skipping posting with invalid doc id", "shard_id", id, "term_id", termID, "doc_id", docKey)
				continue
			}
			var freq int
			if err := json.Unmarshal(freqRaw, &freq); err != nil || freq < 0 {
				s.logger.Warn("skipping posting with invalid frequency", "shard_id", id, "term_id", termID, "doc_id", docID, "freq", string(freqRaw))
				continue
			}
			pl[docID] = freq
		}
		sh[termID] = pl
	}
	return sh
}

func encode(sh index.Shard) map[string]map[string]int {
	out := make(map[string]map[string]int, len(sh))
	for termID, pl := range sh {
		docs := make(map[string]int, len(pl))
		for docID, freq := range pl {
			docs[strconv.Itoa(docID)] = freq
		}
		out[strconv.Itoa(termID)] = docs
	}
	return out
}
