// Package autocomplete suggests lexicon words that start with a prefix.
package autocomplete

import (
	"sort"

	"github.com/lumisearch/lumi/internal/lexicon"
)

// DefaultLimit is the number of suggestions returned when none is given.
const DefaultLimit = 5

type edge struct {
	r     rune
	child int
}

type node struct {
	edges  []edge // sorted by r
	isWord bool
}

// Trie is an arena-backed prefix tree. Node 0 is the root; children are
// indices into the arena.
type Trie struct {
	nodes []node
	words int
}

func New() *Trie {
	return &Trie{nodes: []node{{}}}
}

// FromWords builds a trie holding every word.
func FromWords(words []string) *Trie {
	t := New()
	for _, w := range words {
		t.Insert(w)
	}
	return t
}

// Insert adds the normalized word. Inserting a word twice has no effect.
func (t *Trie) Insert(word string) {
	word = lexicon.Normalize(word)
	if word == "" {
		return
	}
	cur := 0
	for _, r := range word {
		next, ok := t.child(cur, r)
		if !ok {
			next = len(t.nodes)
			t.nodes = append(t.nodes, node{})
			t.addEdge(cur, r, next)
		}
		cur = next
	}
	if !t.nodes[cur].isWord {
		t.nodes[cur].isWord = true
		t.words++
	}
}

// Len is the number of distinct words.
func (t *Trie) Len() int {
	return t.words
}

// Suggest returns up to limit words starting with prefix, in ascending rune
// order. An unknown prefix or a non-positive limit yields nothing.
func (t *Trie) Suggest(prefix string, limit int) []string {
	out := []string{}
	if limit <= 0 {
		return out
	}
	prefix = lexicon.Normalize(prefix)
	cur := 0
	for _, r := range prefix {
		next, ok := t.child(cur, r)
		if !ok {
			return out
		}
		cur = next
	}
	buf := []rune(prefix)
	t.collect(cur, buf, limit, &out)
	return out
}

func (t *Trie) collect(n int, buf []rune, limit int, out *[]string) {
	if len(*out) >= limit {
		return
	}
	if t.nodes[n].isWord {
		*out = append(*out, string(buf))
	}
	for _, e := range t.nodes[n].edges {
		if len(*out) >= limit {
			return
		}
		t.collect(e.child, append(buf, e.r), limit, out)
	}
}

func (t *Trie) child(n int, r rune) (int, bool) {
	edges := t.nodes[n].edges
	i := sort.Search(len(edges), func(i int) bool { return edges[i].r >= r })
	if i < len(edges) && edges[i].r == r {
		return edges[i].child, true
	}
	return 0, false
}

func (t *Trie) addEdge(n int, r rune, child int) {
	edges := t.nodes[n].edges
	i := sort.Search(len(edges), func(i int) bool { return edges[i].r >= r })
	edges = append(edges, edge{})
	copy(edges[i+1:], edges[i:])
	edges[i] = edge{r: r, child: child}
	t.nodes[n].edges = edges
}
