// Package retrieval implements hybrid full-text + vector search over
// the news corpus with reciprocal-rank fusion, optional reranking,
// deduplication, and a short-lived result cache.
package retrieval

import (
	"context"
	"errors"
	"time"

	"github.com/newslens/newslens/pkg/budget"
	"github.com/newslens/newslens/pkg/models"
)

// Candidate list size fed into fusion from each search arm, and kept
// after fusion for the optional rerank pass.
const candidateLimit = 30

// Bounds on the final result size.
const (
	MinKFinal = 5
	MaxKFinal = 10
)

// ErrIndexUnavailable signals that one search arm has no usable index;
// the retriever falls back to the other arm for that query.
var ErrIndexUnavailable = errors.New("search index unavailable")

// Query is one retrieval request. Window is a token from the fixed
// grammar (6h..1y); Language "auto" skips the language filter; empty
// Sources skips the domain filter.
type Query struct {
	Text      string   `json:"text"`
	Window    string   `json:"window"`
	Language  string   `json:"language"`
	Sources   []string `json:"sources,omitempty"`
	KFinal    int      `json:"k_final"`
	UseRerank bool     `json:"use_rerank"`
}

// Filter is the pre-filter applied to the corpus before either search arm.
type Filter struct {
	Since    time.Time
	Until    time.Time
	Language string   // "" = no filter
	Sources  []string // nil = no filter
	Limit    int
	Offset   int
}

// LexicalSearcher is the full-text arm.
type LexicalSearcher interface {
	SearchLexical(ctx context.Context, query string, f Filter) ([]models.Document, error)
}

// VectorSearcher is the semantic arm.
type VectorSearcher interface {
	SearchVector(ctx context.Context, query string, f Filter) ([]models.Document, error)
}

// Reranker re-scores fused candidates against the query.
type Reranker interface {
	Rerank(ctx context.Context, query string, docs []models.Document, ledger *budget.Ledger) ([]models.Document, error)
}
