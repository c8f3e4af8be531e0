// Package ranker scores intersected documents by TF-IDF plus a weighted
// cosine similarity and orders them.
package ranker

import (
	"math"
	"sort"

	"github.com/lumisearch/lumi/internal/embedding"
	"github.com/lumisearch/lumi/internal/index"
)

const (
	SemanticWeight = 0.35
	DefaultTopK    = 10
)

type ScoredDoc struct {
	DocID         int     `json:"doc_id"`
	Score         float64 `json:"score"`
	Lexical       float64 `json:"lexical"`
	Semantic      float64 `json:"semantic"`
	TotalTermFreq int     `json:"ttf"`
}

type RankParams struct {
	// TotalDocs is the corpus size N used by IDF.
	TotalDocs int
	// DocFreqs holds the df of every query word that has a term id, one
	// entry per occurrence in the query.
	DocFreqs []int
	// QueryVector may be nil; semantic scores are then 0.
	QueryVector []float32
}

// Rank scores every document in hits and returns them best first, cut to
// limit when limit > 0. getDocVector returns nil for documents without a
// vector.
func Rank(
	hits index.PostingList,
	params RankParams,
	getDocVector func(docID int) []float32,
	limit int,
) []ScoredDoc {
	idfs := make([]float64, len(params.DocFreqs))
	for i, df := range params.DocFreqs {
		idfs[i] = IDF(params.TotalDocs, df)
	}
	result := make([]ScoredDoc, 0, len(hits))
	for docID, ttf := range hits {
		lexical := 0.0
		// ttf is the summed frequency of all matched words and is reused
		// for each word's idf.
		for _, idf := range idfs {
			lexical += float64(ttf) * idf
		}
		semantic := 0.0
		if len(params.QueryVector) > 0 {
			semantic = embedding.CosineSimilarity(params.QueryVector, getDocVector(docID))
		}
		result = append(result, ScoredDoc{
			DocID:         docID,
			Score:         lexical + SemanticWeight*semantic,
			Lexical:       lexical,
			Semantic:      semantic,
			TotalTermFreq: ttf,
		})
	}
	if limit > 0 && limit < len(result) {
		return TopK(result, limit)
	}
	Sort(result)
	return result
}

// IDF returns ln(n / (1 + df)). It is 0 for an empty corpus.
func IDF(n, df int) float64 {
	if n <= 0 {
		return 0
	}
	return math.Log(float64(n) / float64(1+df))
}

// Sort orders docs by descending score, ties by ascending doc id.
func Sort(docs []ScoredDoc) {
	sort.Slice(docs, func(i, j int) bool {
		return better(docs[i], docs[j])
	})
}

func better(a, b ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.DocID < b.DocID
}
