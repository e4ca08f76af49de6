package embedder

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// StatisticalDimension is the fixed vector size of the TF-IDF fallback.
const StatisticalDimension = 384

// seedCorpus provides document frequencies for the IDF weights. It skews
// toward the kind of text this system indexes: technical prose, code talk,
// and task lists. Terms outside the corpus get the maximum IDF.
var seedCorpus = []string{
	"the system processes each document and stores the result",
	"a function returns an error when the input is invalid",
	"configuration values are read from the environment at startup",
	"the service exposes an api for search and retrieval",
	"each task in the checklist must be completed in order",
	"the database stores records in a single table with an index",
	"code review found a bug in the error handling path",
	"the client sends a request and waits for the server response",
	"tests cover the edge cases for empty and oversized input",
	"the team shipped the release after fixing the last issue",
	"a graph connects documents through shared keywords and entities",
	"vectors are compared with cosine similarity for ranking",
	"the worker pool limits how many jobs run at the same time",
	"business requirements describe what the product must do",
	"the pipeline chunks text embeds it and updates the index",
	"logging goes to standard error so the protocol stream stays clean",
	"a type defines methods and the interface it satisfies",
	"the cache evicts the least recently used entry when full",
	"import statements declare the packages a file depends on",
	"the status moves from pending to processing to completed",
}

// StatisticalBackend is the deterministic last-resort embedder: hashed
// TF-IDF over a built-in seed corpus, L2-normalized. It needs no network
// and no model files, so it can never fail at runtime.
type StatisticalBackend struct {
	dim int
	idf map[string]float64
	// maxIDF is the weight for terms absent from the seed corpus.
	maxIDF float64
}

// NewStatisticalBackend builds the fallback embedder with the given
// dimension. Dimensions below 1 use StatisticalDimension.
func NewStatisticalBackend(dim int) *StatisticalBackend {
	if dim < 1 {
		dim = StatisticalDimension
	}

	df := make(map[string]int)
	for _, doc := range seedCorpus {
		seen := make(map[string]bool)
		for _, term := range tokenize(doc) {
			if !seen[term] {
				seen[term] = true
				df[term]++
			}
		}
	}

	n := float64(len(seedCorpus))
	idf := make(map[string]float64, len(df))
	for term, count := range df {
		idf[term] = math.Log(1 + n/(1+float64(count)))
	}

	return &StatisticalBackend{
		dim:    dim,
		idf:    idf,
		maxIDF: math.Log(1 + n),
	}
}

func (s *StatisticalBackend) Encode(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = s.embed(text)
	}
	return vectors, nil
}

// embed computes a hashed TF-IDF vector: each term's weight lands in the
// bucket chosen by an FNV hash of the term, and the result is normalized to
// unit length so cosine similarity reduces to a dot product.
func (s *StatisticalBackend) embed(text string) []float32 {
	vec := make([]float32, s.dim)

	tf := make(map[string]int)
	for _, term := range tokenize(text) {
		tf[term]++
	}

	for term, count := range tf {
		idf, ok := s.idf[term]
		if !ok {
			idf = s.maxIDF
		}
		weight := float64(count) * idf

		h := fnv.New32a()
		_, _ = h.Write([]byte(term))
		bucket := int(h.Sum32() % uint32(s.dim))
		vec[bucket] += float32(weight)
	}

	return normalize(vec)
}

func (s *StatisticalBackend) ID() string {
	return "statistical-tfidf"
}

func (s *StatisticalBackend) Close() error { return nil }

// tokenize lowercases and splits on any non-letter, non-digit rune.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// normalize scales v to unit length. The zero vector is returned unchanged.
func normalize(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}
	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}
