// Package llm exposes a uniform call surface over the configured LLM
// providers: typed fallback chains, per-call timeouts, token/cost
// accounting against the request ledger, and per-provider concurrency
// caps. The router is the only component that knows provider identity.
package llm

import (
	"context"
	"errors"
)

// Sentinel errors surfaced to the orchestrator.
var (
	// ErrModelUnavailable means every candidate in a route's chain failed.
	ErrModelUnavailable = errors.New("all models in route chain failed")
	// ErrBudgetExceeded means the ledger could not afford the next call.
	ErrBudgetExceeded = errors.New("request budget exceeded")
)

// Completion is the provider-neutral result of one LLM call. Token
// counts are zero when the provider did not report usage; the router
// substitutes estimates before recording on the ledger.
type Completion struct {
	Text      string
	TokensIn  int
	TokensOut int
}

// Provider is a narrow adapter over one LLM backend. Adapters hide
// provider JSON shapes from every caller.
type Provider interface {
	// Name returns the route-table identifier (e.g. "model-O").
	Name() string
	// Model returns the underlying model identifier.
	Model() string
	// Complete runs one prompt to completion. Implementations must
	// honor ctx cancellation end to end.
	Complete(ctx context.Context, prompt string, maxTokens int) (*Completion, error)
}
