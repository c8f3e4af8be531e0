// Package embedding holds the read-only word and document vectors used for
// semantic scoring, and derives query vectors from them.
package embedding

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/lumisearch/lumi/internal/jsonfile"
	"github.com/lumisearch/lumi/internal/lexicon"
	apperrors "github.com/lumisearch/lumi/pkg/errors"
)

// DefaultQueryCacheSize is used when a non-positive size is configured.
const DefaultQueryCacheSize = 1000

// maxLineSize bounds one line of the word-vector file.
const maxLineSize = 4 << 20

// Store maps words and document ids to vectors. It is loaded once per
// process and never modified by queries.
type Store struct {
	words   map[string][]float32
	docs    map[int][]float32
	queries *lru.Cache[string, []float32]
	logger  *slog.Logger
}

// New returns an empty store whose query vectors are cached in an LRU of
// queryCacheSize entries. A non-positive size uses DefaultQueryCacheSize.
func New(queryCacheSize int) (*Store, error) {
	if queryCacheSize <= 0 {
		queryCacheSize = DefaultQueryCacheSize
	}
	cache, err := lru.New[string, []float32](queryCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating query vector cache: %w", err)
	}
	return &Store{
		words:   make(map[string][]float32),
		docs:    make(map[int][]float32),
		queries: cache,
		logger:  slog.Default().With("component", "embedding"),
	}, nil
}

// Load builds a store from the word-vector and document-vector files. Either
// path may be empty or missing; the corresponding table is then empty and
// semantic scores are 0.
func Load(wordPath, docPath string, queryCacheSize int) (*Store, error) {
	s, err := New(queryCacheSize)
	if err != nil {
		return nil, err
	}
	if err := s.LoadWordVectors(wordPath); err != nil {
		return nil, err
	}
	if err := s.LoadDocVectors(docPath); err != nil {
		return nil, err
	}
	s.logger.Info("embeddings loaded", "words", len(s.words), "documents", len(s.docs))
	return s, nil
}

// LoadWordVectors reads lines of the form "word v1 v2 ... vn".
func (s *Store) LoadWordVectors(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Warn("word vectors file not found, semantic scoring disabled", "path", path)
			return nil
		}
		return apperrors.Configf("opening word vectors %s: %v", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		vec, err := parseFloats(fields[1:])
		if err != nil {
			s.logger.Warn("skipping malformed word vector", "path", path, "line", lineNo, "error", err)
			continue
		}
		s.words[lexicon.Normalize(fields[0])] = vec
	}
	if err := sc.Err(); err != nil {
		return apperrors.Configf("reading word vectors %s: %v", path, err)
	}
	return nil
}

// LoadDocVectors reads {"<docId>": [v1, ..., vn]}.
func (s *Store) LoadDocVectors(path string) error {
	if path == "" {
		return nil
	}
	var raw map[string]json.RawMessage
	if err := jsonfile.Read(path, &raw); err != nil {
		if jsonfile.IsNotExist(err) {
			s.logger.Warn("document vectors file not found, semantic scoring disabled", "path", path)
			return nil
		}
		return apperrors.Configf("loading document vectors %s: %v", path, err)
	}
	for k, v := range raw {
		docID, err := strconv.Atoi(k)
		if err != nil {
			s.logger.Warn("skipping document vector with invalid id", "doc_id", k)
			continue
		}
		var vec []float32
		if err := json.Unmarshal(v, &vec); err != nil {
			s.logger.Warn("skipping malformed document vector", "doc_id", docID, "error", err)
			continue
		}
		s.docs[docID] = vec
	}
	return nil
}

// SetWordVector stores vec for word.
func (s *Store) SetWordVector(word string, vec []float32) {
	s.words[lexicon.Normalize(word)] = vec
	s.queries.Purge()
}

// SetDocVector stores vec for docID.
func (s *Store) SetDocVector(docID int, vec []float32) {
	s.docs[docID] = vec
}

// WordVector returns the vector of word, or nil when absent.
func (s *Store) WordVector(word string) []float32 {
	return s.words[lexicon.Normalize(word)]
}

// DocVector returns the vector of docID, or nil when absent.
func (s *Store) DocVector(docID int) []float32 {
	return s.docs[docID]
}

func (s *Store) WordCount() int { return len(s.words) }
func (s *Store) DocCount() int  { return len(s.docs) }

// QueryVector is the component-wise mean of the vectors of the known words.
// The dimension of the first vector found wins; later vectors of another
// dimension are ignored. It returns nil when no word has a vector.
func (s *Store) QueryVector(words []string) []float32 {
	normalized := make([]string, len(words))
	for i, w := range words {
		normalized[i] = lexicon.Normalize(w)
	}
	key := strings.Join(normalized, "\x00")
	if vec, ok := s.queries.Get(key); ok {
		return vec
	}

	var (
		sum   []float64
		found int
	)
	for _, w := range normalized {
		vec := s.WordVector(w)
		if len(vec) == 0 {
			continue
		}
		if sum == nil {
			sum = make([]float64, len(vec))
		} else if len(vec) != len(sum) {
			continue
		}
		for i, x := range vec {
			sum[i] += float64(x)
		}
		found++
	}

	var out []float32
	if found > 0 {
		out = make([]float32, len(sum))
		for i := range sum {
			out[i] = float32(sum[i] / float64(found))
		}
	}
	s.queries.Add(key, out)
	return out
}

// CosineSimilarity returns u·v / (|u||v|). It is 0 when either vector is
// empty or has zero norm, or when their dimensions differ.
func CosineSimilarity(u, v []float32) float64 {
	if len(u) == 0 || len(u) != len(v) {
		return 0
	}
	var dot, nu, nv float64
	for i := range u {
		a, b := float64(u[i]), float64(v[i])
		dot += a * b
		nu += a * a
		nv += b * b
	}
	if nu == 0 || nv == 0 {
		return 0
	}
	return dot / (math.Sqrt(nu) * math.Sqrt(nv))
}

func parseFloats(fields []string) ([]float32, error) {
	vec := make([]float32, len(fields))
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return nil, fmt.Errorf("component %d: %w", i, err)
		}
		vec[i] = float32(x)
	}
	return vec, nil
}
