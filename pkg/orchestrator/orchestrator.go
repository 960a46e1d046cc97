package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/newslens/newslens/pkg/agents"
	"github.com/newslens/newslens/pkg/budget"
	"github.com/newslens/newslens/pkg/config"
	"github.com/newslens/newslens/pkg/memory"
	"github.com/newslens/newslens/pkg/models"
	"github.com/newslens/newslens/pkg/policy"
)

// State is a step of the per-request lifecycle, logged at every transition.
type State string

const (
	StateReceived      State = "received"
	StateContextBuilt  State = "context_built"
	StateRetrievalDone State = "retrieval_done"
	StateAgentsDone    State = "agents_done"
	StateFormatted     State = "formatted"
	StateValidated     State = "validated"
	StateEmitted       State = "emitted"
	StateErrored       State = "errored"
)

// Request is one inbound command.
type Request struct {
	Command       string
	UserID        string
	Lang          string
	CorrelationID string // generated when empty
}

// Orchestrator drives a request through the four-stage pipeline and is
// the single component that emits user-visible responses and errors.
type Orchestrator struct {
	cfg       *config.Config
	builder   *ContextBuilder
	pipeline  *Pipeline
	validator *policy.Validator
	formatter *Formatter
}

// New wires the orchestrator from the merged config and the shared
// process-wide components.
func New(cfg *config.Config, retriever DocRetriever, router agents.ModelCaller, agentSet []agents.Agent, version string) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		builder:   NewContextBuilder(cfg, retriever),
		pipeline:  NewPipeline(router, agentSet...),
		validator: policy.NewValidator(cfg.Policy),
		formatter: NewFormatter(version),
	}
}

// DefaultAgentSet builds every analysis agent the command table can
// dispatch to.
func DefaultAgentSet(retriever agents.DocRetriever, memStore *memory.Store) []agents.Agent {
	return []agents.Agent{
		&agents.KeyphraseAgent{},
		&agents.ExpansionAgent{},
		&agents.SentimentAgent{},
		&agents.TopicsAgent{},
		&agents.CompetitorAgent{},
		&agents.ForecastAgent{},
		&agents.SynthesisAgent{},
		agents.NewAskAgent(retriever),
		&agents.EventsAgent{},
		&agents.GraphAgent{},
		agents.NewMemoryAgent(memStore),
	}
}

// Handle runs one command to completion. Exactly one of the two
// returns is non-nil.
func (o *Orchestrator) Handle(ctx context.Context, req Request) (*models.AnalysisResponse, *models.ErrorResponse) {
	if req.CorrelationID == "" {
		req.CorrelationID = uuid.NewString()
	}
	lang := models.NormalizeLanguage(req.Lang)

	ledger := budget.NewLedger(budget.Limits{
		MaxTokens:    o.cfg.Budget.MaxTokensPerCommand,
		MaxCostCents: o.cfg.Budget.MaxCostCentsPerCommand,
		MaxDuration:  o.cfg.Budget.MaxDuration(),
	})
	reqCtx, cancel := context.WithDeadline(ctx, ledger.Deadline())
	defer cancel()

	started := time.Now()
	o.transition(req.CorrelationID, StateReceived, "command", req.Command)

	c, err := o.builder.Build(reqCtx, req, ledger)
	if err != nil {
		return nil, o.errored(req.CorrelationID, lang, err)
	}
	lang = c.Language
	o.transition(req.CorrelationID, StateContextBuilt, "command", c.Spec.Name)
	o.transition(req.CorrelationID, StateRetrievalDone, "docs", len(c.Docs), "window", c.Window)

	outputs, err := o.pipeline.Run(reqCtx, c, ledger)
	if err != nil {
		return nil, o.errored(req.CorrelationID, lang, err)
	}
	o.transition(req.CorrelationID, StateAgentsDone, "agents", len(outputs))

	resp := o.formatter.Format(c, outputs, ledger)
	o.transition(req.CorrelationID, StateFormatted)

	if err := o.validator.Enforce(resp, c.Language, c.RetrievalSkipped); err != nil {
		var vErr *policy.ValidationError
		if errors.As(err, &vErr) {
			err = newError(models.CodeValidationFailed, "policy violations: %s", strings.Join(vErr.Violations, "; "))
		}
		return nil, o.errored(req.CorrelationID, lang, err)
	}
	o.transition(req.CorrelationID, StateValidated)

	tokens, cents, _ := ledger.Usage()
	o.transition(req.CorrelationID, StateEmitted,
		"tokens", tokens, "cost_cents", cents, "elapsed", time.Since(started).Round(time.Millisecond))
	return resp, nil
}

func (o *Orchestrator) transition(correlationID string, state State, attrs ...any) {
	args := append([]any{"correlation_id", correlationID, "state", state}, attrs...)
	slog.Info("Request state", args...)
}

// errored converts an internal failure into the canonical error
// envelope. Unclassified errors surface as INTERNAL.
func (o *Orchestrator) errored(correlationID, lang string, err error) *models.ErrorResponse {
	code := models.CodeInternal
	tech := err.Error()
	var oe *Error
	if errors.As(err, &oe) {
		code = oe.Code
		tech = oe.Tech
	}
	slog.Error("Request state", "correlation_id", correlationID, "state", StateErrored, "code", code, "error", tech)
	return models.NewErrorResponse(code, tech, lang, models.Meta{
		Version:       o.formatter.version,
		CorrelationID: correlationID,
	})
}
