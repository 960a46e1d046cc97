// Package embedding produces fixed-dimension unit vectors for the
// vector search index and the memory store.
package embedding

import (
	"context"
	"math"
)

// Embedder turns text into a fixed-dimension embedding. Implementations
// must return unit-normalized vectors so cosine similarity reduces to a
// dot product.
type Embedder interface {
	// Embed returns the embedding for one text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dim returns the embedding dimension (1536 or 3072).
	Dim() int
}

// Normalize scales v to unit length in place and returns it. Zero
// vectors pass through unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1.0 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
	return v
}

// Cosine returns the cosine similarity of two unit-normalized vectors.
func Cosine(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}
