// Package agents holds the single-purpose analysis units dispatched by
// the pipeline. Every agent reads retrieved documents, calls models
// through the router under the request ledger, and returns a typed
// result. Agents never emit user-visible errors; the pipeline converts
// agent failures into response warnings.
package agents

import (
	"context"

	"github.com/newslens/newslens/pkg/budget"
	"github.com/newslens/newslens/pkg/llm"
	"github.com/newslens/newslens/pkg/models"
)

// ModelCaller is the slice of the model router agents use.
// *llm.Router satisfies it; tests substitute scripted callers.
type ModelCaller interface {
	RouteFor(task string) llm.Route
	Call(ctx context.Context, route llm.Route, prompt string, docs []models.Document,
		maxTokens int, ledger *budget.Ledger) (*llm.Completion, *llm.CallMeta, error)
}

// Input is the uniform agent input assembled by the pipeline.
type Input struct {
	Query    string
	Window   string
	Language string
	Docs     []models.Document
	Params   map[string]string
	Plan     budget.Plan

	// Prior holds earlier agent outputs by name; only synthesis reads it.
	Prior map[string]*Output
}

// Output is the uniform agent result. Result carries the
// command-specific typed payload; Insights feed the response envelope.
type Output struct {
	Agent    string
	Insights []models.Insight
	Result   any
	Warnings []string

	// Docs is set when the agent changed the working document set
	// (agentic re-retrieval); nil means the input set stands.
	Docs []models.Document

	// Model is the model that produced the output, for meta.
	Model string
}

// Agent is the uniform contract every analysis unit implements.
type Agent interface {
	Name() string
	// ParallelSafe reports whether the pipeline may fan the agent out
	// concurrently with others.
	ParallelSafe() bool
	Run(ctx context.Context, in Input, router ModelCaller, ledger *budget.Ledger) (*Output, error)
}

// refsFor builds evidence references for the top documents, capped at n.
func refsFor(docs []models.Document, n int) []models.EvidenceRef {
	if len(docs) < n {
		n = len(docs)
	}
	refs := make([]models.EvidenceRef, 0, n)
	for _, d := range docs[:n] {
		refs = append(refs, models.RefFromDocument(d))
	}
	return refs
}

// clamp01 clips x into [0,1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
