// Package embedding provides text embedding backends and vector similarity.
package embedding

import (
	"context"
	"fmt"
	"math"
)

// Embedder converts text into a vector. Identical input must yield identical
// output within one run.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// BatchEmbedder embeds several texts in one request. Output order matches input order.
type BatchEmbedder interface {
	Embedder
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// Preparer is implemented by embedders that must see the corpus before embedding.
type Preparer interface {
	Prepare(corpus []string) error
}

// Cosine returns the cosine similarity of a and b.
// A zero vector has similarity 0 with everything.
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp rounding noise so the score stays inside [-1, 1].
	return math.Max(-1, math.Min(1, sim)), nil
}
