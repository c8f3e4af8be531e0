package index

// MemoryIndex accumulates postings for a bulk build before they are split
// into barrels and written out.
type MemoryIndex struct {
	index    map[int]PostingList
	docs     map[int]struct{}
	postings int
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		index: make(map[int]PostingList),
		docs:  make(map[int]struct{}),
	}
}

// AddDocument records the within-document frequency of every term in
// termFreq for docID. Adding the same document twice accumulates.
func (m *MemoryIndex) AddDocument(docID int, termFreq map[int]int) {
	for termID, freq := range termFreq {
		pl := m.index[termID]
		if !pl.Contains(docID) {
			m.postings++
		}
		m.index[termID] = MergeInsert(pl, docID, freq)
	}
	m.docs[docID] = struct{}{}
}

// Partition splits the index into barrels using shardOf. Barrels with no
// terms are absent from the result.
func (m *MemoryIndex) Partition(shardOf func(termID int) int) map[int]Shard {
	out := make(map[int]Shard)
	for termID, pl := range m.index {
		id := shardOf(termID)
		s, ok := out[id]
		if !ok {
			s = make(Shard)
			out[id] = s
		}
		s[termID] = pl
	}
	return out
}

// Has reports whether docID has been added.
func (m *MemoryIndex) Has(docID int) bool {
	_, ok := m.docs[docID]
	return ok
}

func (m *MemoryIndex) Terms() int {
	return len(m.index)
}

func (m *MemoryIndex) DocCount() int {
	return len(m.docs)
}

// Size is the number of (term, document) postings held.
func (m *MemoryIndex) Size() int {
	return m.postings
}
