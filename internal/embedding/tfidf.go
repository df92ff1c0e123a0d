package embedding

import (
	"context"
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// TFIDFEmbedder is the offline embedding backend. Prepare fits it to the
// section texts of one run plus the persona query; Embed then maps text
// onto that vocabulary. Terms are accent-folded so "Crème brûlée" in a
// heading matches "creme brulee" in a job description, and term
// frequency is damped so a section that repeats one word does not
// outrank one that covers more of the query.
type TFIDFEmbedder struct {
	mu           sync.RWMutex
	vocabulary   map[string]int
	idf          []float64
	prepared     bool
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// NewTFIDFEmbedder returns an embedder that must be prepared before use.
func NewTFIDFEmbedder() *TFIDFEmbedder {
	return &TFIDFEmbedder{
		vocabulary:   make(map[string]int),
		tokenPattern: regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}]+)*`),
		stopwords:    Stopwords(),
	}
}

// Prepare replaces the vocabulary with the terms of corpus and their
// smoothed inverse document frequencies. It is safe to call again for a
// new run.
func (e *TFIDFEmbedder) Prepare(corpus []string) error {
	if len(corpus) == 0 {
		return errors.New("empty corpus for TF-IDF prepare")
	}

	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range e.tokenize(text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	// Sorted terms keep vector layout stable across runs.
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	if len(terms) == 0 {
		return errors.New("no tokens found in corpus")
	}

	vocabulary := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	n := float64(len(corpus))
	for i, term := range terms {
		vocabulary[term] = i
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}

	e.mu.Lock()
	e.vocabulary = vocabulary
	e.idf = idf
	e.prepared = true
	e.mu.Unlock()
	return nil
}

// Dimension is the vocabulary size after Prepare
func (e *TFIDFEmbedder) Dimension() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.idf)
}

// Embed returns the L2-normalised TF-IDF vector of text. Text with no
// vocabulary terms yields a zero vector rather than an error.
func (e *TFIDFEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.prepared {
		return nil, errors.New("tfidf embedder not prepared")
	}

	vec := make([]float64, len(e.idf))
	tf := make(map[int]int)
	for _, tok := range e.tokenize(text) {
		if idx, ok := e.vocabulary[tok]; ok {
			tf[idx]++
		}
	}
	if len(tf) == 0 {
		return vec, nil
	}
	for idx, count := range tf {
		vec[idx] = (1 + math.Log(float64(count))) * e.idf[idx]
	}

	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

func (e *TFIDFEmbedder) tokenize(text string) []string {
	raw := e.tokenPattern.FindAllString(foldAccents(strings.ToLower(text)), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := e.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

// foldAccents strips combining marks after canonical decomposition.
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Stopwords returns the English function words ignored by the local backends.
func Stopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
