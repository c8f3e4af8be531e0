package barrel

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/lumisearch/lumi/internal/jsonfile"
	apperrors "github.com/lumisearch/lumi/pkg/errors"
)

// Map records the barrel of every term id. It is derived data: ShardOf on
// the term's word is authoritative, and the persisted map lets readers that
// only hold term ids locate postings.
type Map struct {
	shards map[int]int
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{shards: make(map[int]int)}
}

// Get returns the barrel recorded for termID.
func (m *Map) Get(termID int) (int, bool) {
	id, ok := m.shards[termID]
	return id, ok
}

// Set records the barrel for termID.
func (m *Map) Set(termID, shardID int) {
	m.shards[termID] = shardID
}

// Len returns the number of recorded terms.
func (m *Map) Len() int {
	return len(m.shards)
}

// Reconcile makes the map agree with the router for every word, where
// words[i] is the word of term id i. It returns how many entries were added
// or corrected.
func (m *Map) Reconcile(words []string) int {
	changed := 0
	for id, w := range words {
		want := ShardOf(w)
		if got, ok := m.shards[id]; !ok || got != want {
			if ok {
				slog.Warn("barrel map disagrees with router, using router",
					"term_id", id, "word", w, "mapped", got, "routed", want)
			}
			m.shards[id] = want
			changed++
		}
	}
	return changed
}

// MarshalJSON encodes {"<termId>": shardId}.
func (m *Map) MarshalJSON() ([]byte, error) {
	out := make(map[string]int, len(m.shards))
	for termID, shardID := range m.shards {
		out[strconv.Itoa(termID)] = shardID
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes {"<termId>": shardId}, tolerating [shardId] as an
// alternate encoding. Entries with a bad key or value are skipped with a
// warning.
func (m *Map) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.shards = make(map[int]int, len(raw))
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		termID, err := strconv.Atoi(k)
		if err != nil {
			slog.Warn("skipping barrel map entry with invalid term id", "key", k)
			continue
		}
		shardID, err := decodeShardID(raw[k])
		if err != nil || !Valid(shardID) {
			slog.Warn("skipping barrel map entry with invalid shard", "term_id", termID, "value", string(raw[k]))
			continue
		}
		m.shards[termID] = shardID
	}
	return nil
}

func decodeShardID(raw json.RawMessage) (int, error) {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var arr []int
	if err := json.Unmarshal(raw, &arr); err != nil {
		return 0, err
	}
	if len(arr) != 1 {
		return 0, fmt.Errorf("expected single-element array, got %d elements", len(arr))
	}
	return arr[0], nil
}

// LoadMap reads a barrel map file. A missing or malformed file is a
// configuration error.
func LoadMap(path string) (*Map, error) {
	m := NewMap()
	if err := jsonfile.Read(path, m); err != nil {
		return nil, apperrors.Configf("loading barrel map %s: %v", path, err)
	}
	return m, nil
}

// LoadMapOrEmpty is LoadMap, except that a missing file yields an empty map.
func LoadMapOrEmpty(path string) (*Map, error) {
	if !jsonfile.Exists(path) {
		return NewMap(), nil
	}
	return LoadMap(path)
}

// Save writes the map atomically.
func (m *Map) Save(path string) error {
	if err := jsonfile.Write(path, m); err != nil {
		return fmt.Errorf("saving barrel map: %w", err)
	}
	return nil
}
