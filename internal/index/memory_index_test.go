package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryIndex_AddAndPartition(t *testing.T) {
	mi := NewMemoryIndex()
	mi.AddDocument(5, map[int]int{0: 2, 1: 1})
	mi.AddDocument(7, map[int]int{1: 3})

	assert.Equal(t, 2, mi.DocCount())
	assert.Equal(t, 2, mi.Terms())
	assert.Equal(t, 3, mi.Size())
	assert.True(t, mi.Has(7))
	assert.False(t, mi.Has(6))

	parts := mi.Partition(func(termID int) int { return termID * 10 })
	assert.Len(t, parts, 2)
	assert.Equal(t, Shard{0: {5: 2}}, parts[0])
	assert.Equal(t, Shard{1: {5: 1, 7: 3}}, parts[10])
}
