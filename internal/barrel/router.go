// Package barrel provides deterministic word → shard routing. A word's first
// character selects one of eight alphabetical buckets and an xxhash of the
// whole word selects one of four sub-buckets inside it, giving 32 barrels.
package barrel

import (
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"

	"github.com/lumisearch/lumi/internal/lexicon"
)

const (
	// BucketCount is the number of first-character buckets.
	BucketCount = 8
	// SubBuckets is the number of hash sub-buckets per bucket.
	SubBuckets = 4
	// ShardCount is the total number of barrels.
	ShardCount = BucketCount * SubBuckets
)

// ShardOf returns the barrel for word. The indexer and the query path must
// both route through this function; changing the hash moves every term.
func ShardOf(word string) int {
	norm := lexicon.Normalize(word)
	sub := int(xxhash.Sum64String(norm) % SubBuckets)
	return bucketOf(norm)*SubBuckets + sub
}

// Valid reports whether id is a barrel id.
func Valid(id int) bool {
	return id >= 0 && id < ShardCount
}

// bucketOf classifies the first rune: a–c, d–f, g–i, j–l, m–o, p–r, s–u,
// and everything else (v–z, digits, symbols, non-ASCII, empty).
func bucketOf(word string) int {
	r, _ := utf8.DecodeRuneInString(word)
	if r < 'a' || r > 'u' {
		return BucketCount - 1
	}
	return int(r-'a') / 3
}
