package shard

import (
	"context"
	"fmt"
	"sort"

	"github.com/lumisearch/lumi/internal/index"
)

// Session is the per-operation barrel cache. Each barrel is loaded at most
// once per session and the session is discarded when the operation ends.
// A writable session reads from disk and owns what it loads; a read session
// may share shards with the store cache and must not mutate them.
type Session struct {
	store    *Store
	writable bool
	shards   map[int]index.Shard
	order    []int
	dirty    map[int]struct{}
}

// NewSession starts a read-only session.
func (s *Store) NewSession() *Session {
	return &Session{store: s, shards: make(map[int]index.Shard)}
}

// NewWriteSession starts a session whose shards may be modified and
// written back with Flush.
func (s *Store) NewWriteSession() *Session {
	return &Session{
		store:    s,
		writable: true,
		shards:   make(map[int]index.Shard),
		dirty:    make(map[int]struct{}),
	}
}

// Get returns barrel id, loading it on first use.
func (se *Session) Get(ctx context.Context, id int) (index.Shard, error) {
	if sh, ok := se.shards[id]; ok {
		return sh, nil
	}
	var (
		sh  index.Shard
		err error
	)
	if se.writable {
		sh, err = se.store.LoadFresh(ctx, id)
	} else {
		sh, err = se.store.Load(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	se.shards[id] = sh
	se.order = append(se.order, id)
	return sh, nil
}

// Touched returns the ids of the barrels loaded so far, in load order.
func (se *Session) Touched() []int {
	out := make([]int, len(se.order))
	copy(out, se.order)
	return out
}

// Loads is the number of distinct barrels loaded.
func (se *Session) Loads() int {
	return len(se.order)
}

// MarkDirty schedules barrel id to be written by Flush. The barrel must
// have been loaded through Get.
func (se *Session) MarkDirty(id int) error {
	if !se.writable {
		return fmt.Errorf("marking barrel %d dirty: session is read-only", id)
	}
	if _, ok := se.shards[id]; !ok {
		return fmt.Errorf("marking barrel %d dirty: barrel not loaded", id)
	}
	se.dirty[id] = struct{}{}
	return nil
}

// Flush writes every dirty barrel in ascending id order and returns the
// ids written.
func (se *Session) Flush(ctx context.Context) ([]int, error) {
	ids := make([]int, 0, len(se.dirty))
	for id := range se.dirty {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for i, id := range ids {
		if err := se.store.Save(ctx, id, se.shards[id]); err != nil {
			return ids[:i], err
		}
		delete(se.dirty, id)
	}
	return ids, nil
}
