package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/newslens/newslens/pkg/budget"
	"github.com/newslens/newslens/pkg/config"
	"github.com/newslens/newslens/pkg/models"
)

// Route is an immutable per-task provider chain.
type Route struct {
	TaskID    string
	Primary   string
	Fallbacks []string
	Timeout   time.Duration
}

// CallMeta describes the attempt that produced a completion.
type CallMeta struct {
	Provider  string
	Model     string
	TokensIn  int
	TokensOut int
	CostCents float64
	Latency   time.Duration
	Attempts  int
}

// Router is the uniform call surface over every configured provider.
// Routers are stateless apart from the provider set and concurrency
// caps; the per-request ledger is passed into every call.
type Router struct {
	providers map[string]Provider
	backends  map[string]string // provider name → backend kind
	sems      map[string]*semaphore.Weighted
	routes    map[string]Route
}

// NewRouter builds a router from configuration and pre-constructed
// provider adapters keyed by route-table name.
func NewRouter(cfg *config.Config, providers map[string]Provider) (*Router, error) {
	r := &Router{
		providers: providers,
		backends:  make(map[string]string),
		sems:      make(map[string]*semaphore.Weighted),
		routes:    make(map[string]Route),
	}
	for name, pc := range cfg.Providers {
		if _, ok := providers[name]; !ok {
			return nil, fmt.Errorf("no adapter constructed for provider %q", name)
		}
		r.backends[name] = pc.Provider
		maxConc := pc.MaxConcurrent
		if maxConc <= 0 {
			maxConc = 8
		}
		r.sems[name] = semaphore.NewWeighted(int64(maxConc))
	}
	for task, rc := range cfg.Routes {
		timeout, err := rc.TimeoutDuration()
		if err != nil {
			return nil, err
		}
		r.routes[task] = Route{
			TaskID:    task,
			Primary:   rc.Primary,
			Fallbacks: append([]string(nil), rc.Fallbacks...),
			Timeout:   timeout,
		}
	}
	return r, nil
}

// RouteFor returns the route for a task, falling back to the synthesis
// route for unknown tasks.
func (r *Router) RouteFor(task string) Route {
	if route, ok := r.routes[task]; ok {
		return route
	}
	return r.routes[config.TaskSynthesis]
}

// Call runs the prompt (with an optional document context block)
// through the route's chain. The primary is attempted first; on
// timeout, transport error, or provider failure the fallbacks run in
// order. Every attempt settles against the ledger. Returns
// ErrBudgetExceeded before the first attempt that the ledger cannot
// afford, and ErrModelUnavailable when the whole chain fails.
func (r *Router) Call(
	ctx context.Context,
	route Route,
	prompt string,
	docs []models.Document,
	maxTokens int,
	ledger *budget.Ledger,
) (*Completion, *CallMeta, error) {
	fullPrompt := prompt
	if len(docs) > 0 {
		fullPrompt = prompt + "\n\n" + FormatDocuments(docs, maxTokens*3)
	}

	candidates := append([]string{route.Primary}, route.Fallbacks...)
	var lastErr error

	for attempt, name := range candidates {
		provider, ok := r.providers[name]
		if !ok {
			lastErr = fmt.Errorf("provider %q not configured", name)
			continue
		}

		estIn := EstimateTokens(fullPrompt, r.backends[name])
		estCost := CostCents(provider.Model(), estIn, maxTokens)
		if !ledger.CanAfford(estIn+maxTokens, estCost) {
			return nil, nil, fmt.Errorf("task %s: %w", route.TaskID, ErrBudgetExceeded)
		}

		completion, latency, err := r.attempt(ctx, provider, name, route.Timeout, fullPrompt, maxTokens, ledger)
		if err != nil {
			// The request left the process; settle the estimated input cost.
			ledger.Record(estIn, CostCents(provider.Model(), estIn, 0), latency)
			lastErr = err
			slog.Warn("LLM attempt failed, trying next candidate",
				"task", route.TaskID, "provider", name, "attempt", attempt+1, "error", err)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		tokensIn, tokensOut := completion.TokensIn, completion.TokensOut
		if tokensIn == 0 {
			tokensIn = estIn
		}
		if tokensOut == 0 {
			tokensOut = EstimateTokens(completion.Text, r.backends[name])
		}
		cost := CostCents(provider.Model(), tokensIn, tokensOut)
		ledger.Record(tokensIn+tokensOut, cost, latency)

		return completion, &CallMeta{
			Provider:  name,
			Model:     provider.Model(),
			TokensIn:  tokensIn,
			TokensOut: tokensOut,
			CostCents: cost,
			Latency:   latency,
			Attempts:  attempt + 1,
		}, nil
	}

	return nil, nil, fmt.Errorf("task %s: %w: %v", route.TaskID, ErrModelUnavailable, lastErr)
}

// attempt runs one provider call under the route timeout, the ledger's
// remaining duration, and the provider's concurrency cap. The timeout
// is enforced here, not just at the transport layer, so a slow
// provider aborts instead of blocking the request.
func (r *Router) attempt(
	ctx context.Context,
	provider Provider,
	name string,
	timeout time.Duration,
	prompt string,
	maxTokens int,
	ledger *budget.Ledger,
) (*Completion, time.Duration, error) {
	if remaining := ledger.RemainingDuration(); remaining < timeout {
		timeout = remaining
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := r.sems[name].Acquire(callCtx, 1); err != nil {
		return nil, 0, fmt.Errorf("provider %s saturated: %w", name, err)
	}
	defer r.sems[name].Release(1)

	start := time.Now()
	completion, err := provider.Complete(callCtx, prompt, maxTokens)
	latency := time.Since(start)
	if err != nil {
		return nil, latency, err
	}
	return completion, latency, nil
}

// FormatDocuments renders retrieved documents as a numbered context
// block, truncated to roughly maxChars.
func FormatDocuments(docs []models.Document, maxChars int) string {
	var sb strings.Builder
	sb.WriteString("Documents:\n")
	for i, d := range docs {
		block := fmt.Sprintf("[%d] %s (%s, %s)\n%s\n", i+1, d.Title, d.PublishedDate, d.ArticleID, d.Snippet)
		if sb.Len()+len(block) > maxChars {
			break
		}
		sb.WriteString(block)
	}
	return sb.String()
}
