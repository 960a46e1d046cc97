package embedding

import (
	"context"
	"hash/fnv"
	"strings"
)

// Deterministic is a token-hashing embedder used by tests and offline
// development. Similar texts share token buckets and therefore land
// near each other in the vector space; no network, no model.
type Deterministic struct {
	dim int
}

// NewDeterministic creates a deterministic embedder of the given dimension.
func NewDeterministic(dim int) *Deterministic {
	return &Deterministic{dim: dim}
}

func (d *Deterministic) Dim() int { return d.dim }

// Embed implements Embedder.
func (d *Deterministic) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, d.dim)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[int(h.Sum32())%d.dim]++
	}
	return Normalize(vec), nil
}
