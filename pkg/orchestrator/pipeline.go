package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/newslens/newslens/pkg/agents"
	"github.com/newslens/newslens/pkg/budget"
	"github.com/newslens/newslens/pkg/llm"
	"github.com/newslens/newslens/pkg/models"
)

// Pipeline executes a command's agent set: parallel-safe agents fan
// out under a shared deadline, the rest run in declared order. A
// failing agent becomes a response warning; the stage fails only when
// every agent of the command failed.
type Pipeline struct {
	registry map[string]agents.Agent
	router   agents.ModelCaller
}

// NewPipeline indexes the agent set by name.
func NewPipeline(router agents.ModelCaller, agentSet ...agents.Agent) *Pipeline {
	registry := make(map[string]agents.Agent, len(agentSet))
	for _, a := range agentSet {
		registry[a.Name()] = a
	}
	return &Pipeline{registry: registry, router: router}
}

// planKey maps command names onto the degradation table's keys.
func planKey(command string) string {
	switch command {
	case "graph_query":
		return "graph"
	case "events_link":
		return "events"
	case "memory_suggest", "memory_store", "memory_recall":
		return "memory"
	default:
		return command
	}
}

// Run fires the context's agent set and returns the outputs by agent
// name. The returned error, if any, is an *Error.
func (p *Pipeline) Run(ctx context.Context, c *Context, ledger *budget.Ledger) (map[string]*agents.Output, error) {
	if len(c.Spec.Agents) == 0 {
		return map[string]*agents.Output{}, nil
	}

	plan := ledger.DegradePlan(planKey(c.Spec.Name))
	for _, w := range plan.Warnings {
		ledger.AddWarning(w)
	}
	if plan.KFinal > 0 && len(c.Docs) > plan.KFinal {
		c.Docs = c.Docs[:plan.KFinal]
		c.KFinal = plan.KFinal
	}

	// All agent work shares the request deadline regardless of how
	// many agents the command fans out.
	runCtx, cancel := context.WithDeadline(ctx, ledger.Deadline())
	defer cancel()

	var (
		parallel []agents.Agent
		serial   []agents.Agent
	)
	for _, name := range c.Spec.Agents {
		a, ok := p.registry[name]
		if !ok {
			return nil, newError(models.CodeInternal, "agent %q is not registered", name)
		}
		// Synthesis reads prior outputs, so it always runs after the
		// fan-out even though it is parallel-safe on its own.
		if a.ParallelSafe() && name != "synthesis" {
			parallel = append(parallel, a)
		} else {
			serial = append(serial, a)
		}
	}

	outputs := make(map[string]*agents.Output, len(c.Spec.Agents))
	var failures []error
	var mu sync.Mutex

	input := func(prior map[string]*agents.Output) agents.Input {
		return agents.Input{
			Query:    c.Query,
			Window:   c.Window,
			Language: c.Language,
			Docs:     c.Docs,
			Params:   c.Params,
			Plan:     plan,
			Prior:    prior,
		}
	}

	g, gctx := errgroup.WithContext(runCtx)
	for _, a := range parallel {
		g.Go(func() error {
			out, err := a.Run(gctx, input(nil), p.router, ledger)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.Warn("Agent failed", "agent", a.Name(), "error", err)
				ledger.AddWarning("agent_failed:" + a.Name())
				failures = append(failures, fmt.Errorf("%s: %w", a.Name(), err))
				return nil
			}
			outputs[a.Name()] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, newError(models.CodeInternal, "agent fan-out aborted: %v", err)
	}

	for _, a := range serial {
		out, err := a.Run(runCtx, input(outputs), p.router, ledger)
		if err != nil {
			slog.Warn("Agent failed", "agent", a.Name(), "error", err)
			ledger.AddWarning("agent_failed:" + a.Name())
			failures = append(failures, fmt.Errorf("%s: %w", a.Name(), err))
			continue
		}
		outputs[a.Name()] = out
		if out.Docs != nil {
			c.Docs = out.Docs
		}
	}

	if len(outputs) == 0 {
		return nil, stageError(failures)
	}
	return outputs, nil
}

// stageError classifies a total agent wipeout into the error taxonomy.
func stageError(failures []error) *Error {
	code := models.CodeInternal
	allModel := len(failures) > 0
	for _, err := range failures {
		if errors.Is(err, llm.ErrBudgetExceeded) {
			code = models.CodeBudgetExceeded
			allModel = false
			break
		}
		if !errors.Is(err, llm.ErrModelUnavailable) {
			allModel = false
		}
	}
	if allModel {
		code = models.CodeModelUnavailable
	}
	return newError(code, "all agents failed: %v", errors.Join(failures...))
}
