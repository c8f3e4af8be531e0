package parser

import (
	"strings"

	"github.com/lumisearch/lumi/internal/lexicon"
	"github.com/lumisearch/lumi/internal/tokenizer"
)

// QueryPlan is a conjunction of normalized words in query order. Words such
// as AND, OR and NOT carry no operator meaning and are searched like any
// other word.
type QueryPlan struct {
	Terms    []string
	RawQuery string
}

func Parse(query string) *QueryPlan {
	plan := &QueryPlan{
		Terms:    make([]string, 0),
		RawQuery: query,
	}
	for _, tok := range tokenizer.Tokenize(query) {
		if term := lexicon.Normalize(tok.Term); term != "" {
			plan.Terms = append(plan.Terms, term)
		}
	}
	return plan
}

// Empty reports whether the query has no searchable words.
func (p *QueryPlan) Empty() bool {
	return len(p.Terms) == 0
}

// Key identifies the plan for caching: two queries with the same words in
// the same order share a key.
func (p *QueryPlan) Key() string {
	return strings.Join(p.Terms, " ")
}
