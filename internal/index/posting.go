// Package index holds the posting-list algebra: lookup inside a shard,
// intersection, and incremental insertion.
package index

// PostingList maps document id to term frequency.
type PostingList map[int]int

// Shard maps term id to the term's postings. It is the in-memory form of one
// barrel file.
type Shard map[int]PostingList

// Postings returns the postings of termID in s, or an empty list.
func Postings(termID int, s Shard) PostingList {
	if pl, ok := s[termID]; ok {
		return pl
	}
	return PostingList{}
}

// Intersect keeps the documents present in both lists. Each surviving value
// is a[doc]+b[doc]: the total occurrences of all matched words, not the
// frequency of any single term. The smaller list drives the loop.
func Intersect(a, b PostingList) PostingList {
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	out := make(PostingList, len(small))
	for doc, freq := range small {
		if other, ok := large[doc]; ok {
			out[doc] = freq + other
		}
	}
	return out
}

// IntersectAll folds Intersect left to right over n lists obtained from
// fetch. It stops at the first empty intermediate result without calling
// fetch for the remaining lists, so their shards are never loaded.
func IntersectAll(n int, fetch func(i int) (PostingList, error)) (PostingList, error) {
	if n == 0 {
		return PostingList{}, nil
	}
	acc, err := fetch(0)
	if err != nil {
		return nil, err
	}
	if len(acc) == 0 {
		return PostingList{}, nil
	}
	acc = acc.Clone()
	for i := 1; i < n; i++ {
		next, err := fetch(i)
		if err != nil {
			return nil, err
		}
		acc = Intersect(acc, next)
		if len(acc) == 0 {
			return acc, nil
		}
	}
	return acc, nil
}

// MergeInsert adds delta to the frequency of docID, creating the entry if
// needed. It returns the list, allocating one when pl is nil.
func MergeInsert(pl PostingList, docID, delta int) PostingList {
	if pl == nil {
		pl = make(PostingList, 1)
	}
	pl[docID] += delta
	return pl
}

// Clone returns a copy of pl.
func (pl PostingList) Clone() PostingList {
	out := make(PostingList, len(pl))
	for doc, freq := range pl {
		out[doc] = freq
	}
	return out
}

// Contains reports whether docID has a posting.
func (pl PostingList) Contains(docID int) bool {
	_, ok := pl[docID]
	return ok
}
