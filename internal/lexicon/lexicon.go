// Package lexicon maps normalized words to stable integer term ids.
//
// Term ids are 0-based: the first word ever inserted gets id 0 and every
// later word gets the next integer. The persisted form is an ordered array
// where position p holds the word with id p. Ids are never reused or
// reassigned, so a saved and reloaded lexicon assigns identical ids.
package lexicon

import (
	"fmt"
	"strings"

	"github.com/lumisearch/lumi/internal/jsonfile"
	apperrors "github.com/lumisearch/lumi/pkg/errors"
)

// Normalize returns the canonical form under which words are stored and
// looked up.
func Normalize(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

// Lexicon is a word ↔ term-id bijection. It is not safe for concurrent
// mutation.
type Lexicon struct {
	ids   map[string]int
	words []string
}

// File is the on-disk shape: {"lexicon": [word0, word1, ...]}.
type File struct {
	Lexicon []string `json:"lexicon"`
}

// New returns an empty lexicon.
func New() *Lexicon {
	return &Lexicon{ids: make(map[string]int)}
}

// FromWords builds a lexicon whose ids follow the order of words. Words are
// normalized; a duplicate after normalization is an error because it would
// break the bijection.
func FromWords(words []string) (*Lexicon, error) {
	l := &Lexicon{
		ids:   make(map[string]int, len(words)),
		words: make([]string, 0, len(words)),
	}
	for pos, w := range words {
		norm := Normalize(w)
		if norm == "" {
			return nil, fmt.Errorf("empty word at position %d", pos)
		}
		if prev, ok := l.ids[norm]; ok {
			return nil, fmt.Errorf("duplicate word %q at positions %d and %d", norm, prev, pos)
		}
		l.ids[norm] = pos
		l.words = append(l.words, norm)
	}
	return l, nil
}

// ID returns the term id of word, or false if the word is unknown.
func (l *Lexicon) ID(word string) (int, bool) {
	id, ok := l.ids[Normalize(word)]
	return id, ok
}

// IDOrInsert returns the id of word, assigning the next id if it is new.
// created reports whether a new id was assigned. Words that normalize to
// the empty string get id -1 and are not stored.
func (l *Lexicon) IDOrInsert(word string) (id int, created bool) {
	norm := Normalize(word)
	if norm == "" {
		return -1, false
	}
	if id, ok := l.ids[norm]; ok {
		return id, false
	}
	id = len(l.words)
	l.ids[norm] = id
	l.words = append(l.words, norm)
	return id, true
}

// Word returns the word for id.
func (l *Lexicon) Word(id int) (string, bool) {
	if id < 0 || id >= len(l.words) {
		return "", false
	}
	return l.words[id], true
}

// Len returns the number of terms.
func (l *Lexicon) Len() int {
	return len(l.words)
}

// Words returns every word in id order. The slice is a copy.
func (l *Lexicon) Words() []string {
	out := make([]string, len(l.words))
	copy(out, l.words)
	return out
}

// Load reads a lexicon file. A missing or malformed file is a configuration
// error.
func Load(path string) (*Lexicon, error) {
	var f File
	if err := jsonfile.Read(path, &f); err != nil {
		return nil, apperrors.Configf("loading lexicon %s: %v", path, err)
	}
	l, err := FromWords(f.Lexicon)
	if err != nil {
		return nil, apperrors.Configf("lexicon %s: %v", path, err)
	}
	return l, nil
}

// LoadOrEmpty is Load, except that a missing file yields an empty lexicon.
func LoadOrEmpty(path string) (*Lexicon, error) {
	if !jsonfile.Exists(path) {
		return New(), nil
	}
	return Load(path)
}

// Save writes the lexicon atomically.
func (l *Lexicon) Save(path string) error {
	words := l.words
	if words == nil {
		words = []string{}
	}
	if err := jsonfile.Write(path, File{Lexicon: words}); err != nil {
		return fmt.Errorf("saving lexicon: %w", err)
	}
	return nil
}
