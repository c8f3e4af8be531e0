// Package tokenizer splits raw text into words for the indexer and the query
// parser. It splits on non-alphanumeric boundaries and leaves case untouched;
// normalization belongs to the lexicon.
package tokenizer

import (
	"strings"
	"unicode"
)

// Token represents a single word and its position in the original text.
type Token struct {
	Term     string
	Position int
}

// Tokenize breaks text into Tokens. Punctuation, whitespace and symbols are
// separators, so "don't" yields "don" and "t".
func Tokenize(text string) []Token {
	words := Words(text)
	tokens := make([]Token, 0, len(words))
	for pos, word := range words {
		tokens = append(tokens, Token{
			Term:     word,
			Position: pos,
		})
	}
	return tokens
}

// Words is Tokenize without positions.
func Words(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
