package agents

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/newslens/newslens/pkg/budget"
	"github.com/newslens/newslens/pkg/config"
	"github.com/newslens/newslens/pkg/llm"
	"github.com/newslens/newslens/pkg/models"
	"github.com/newslens/newslens/pkg/retrieval"
)

// Depth bounds for the agentic loop.
const (
	minAskDepth = 1
	maxAskDepth = 3
)

// DocRetriever is the slice of the retriever the agentic loop uses for
// re-retrieval between iterations.
type DocRetriever interface {
	Retrieve(ctx context.Context, q retrieval.Query, ledger *budget.Ledger) ([]models.Document, error)
}

// AskStep records one iteration of the loop.
type AskStep struct {
	Iteration  int    `json:"iteration"`
	Query      string `json:"query"`
	Sufficient bool   `json:"sufficient"`
	Reason     string `json:"reason,omitempty"`
}

// AskResult is the typed payload of the agentic_rag agent.
type AskResult struct {
	Steps     []AskStep `json:"steps"`
	Answer    string    `json:"answer"`
	Followups []string  `json:"followups"`
}

// AskAgent runs the iterative answer loop: generate, self-check
// sufficiency, reformulate, re-retrieve. It stops on the first of
// sufficiency, configured depth, or budget refusal. Iterations are
// strictly serial; each one reads the previous answer.
type AskAgent struct {
	retriever DocRetriever
}

// NewAskAgent wires the agentic loop with its re-retrieval dependency.
func NewAskAgent(retriever DocRetriever) *AskAgent {
	return &AskAgent{retriever: retriever}
}

func (a *AskAgent) Name() string       { return "agentic_rag" }
func (a *AskAgent) ParallelSafe() bool { return false }

type modelAnswer struct {
	Answer    string   `json:"answer"`
	Followups []string `json:"followups"`
}

type modelSelfCheck struct {
	Sufficient bool   `json:"sufficient"`
	Reason     string `json:"reason"`
	NewQuery   string `json:"new_query"`
}

func (a *AskAgent) Run(ctx context.Context, in Input, router ModelCaller, ledger *budget.Ledger) (*Output, error) {
	depth := a.depth(in)
	route := router.RouteFor(config.TaskAsk)

	result := &AskResult{}
	var warnings []string
	docs := in.Docs
	query := in.Query
	var model string

	for iter := 1; iter <= depth; iter++ {
		prompt := fmt.Sprintf(`Answer the question using only the numbered snippets as evidence. If they don't cover the question, say what is missing.
Question: %s
Return ONLY JSON: {"answer":"...","followups":["..."]}`, query)
		if len(docs) == 0 {
			// General-knowledge question, retrieval was bypassed.
			prompt = fmt.Sprintf(`Answer the question from general knowledge, factually and concisely.
Question: %s
Return ONLY JSON: {"answer":"...","followups":["..."]}`, query)
		}

		completion, meta, err := router.Call(ctx, route, prompt, docs, 1024, ledger)
		if err != nil {
			if errors.Is(err, llm.ErrBudgetExceeded) && result.Answer != "" {
				// Keep the best answer produced so far.
				warnings = append(warnings, "degradation_depth_reduced")
				break
			}
			return nil, err
		}
		model = meta.Model

		var ans modelAnswer
		if err := decodeModelJSON(completion.Text, &ans); err != nil {
			return nil, fmt.Errorf("answer output: %w", err)
		}
		result.Answer = ans.Answer
		result.Followups = cleanList(ans.Followups)

		step := AskStep{Iteration: iter, Query: query}

		if iter == depth || in.Plan.DropSelfCheck {
			step.Sufficient = true
			result.Steps = append(result.Steps, step)
			break
		}

		check, err := a.selfCheck(ctx, router, route, query, result.Answer, ledger)
		if err != nil {
			if errors.Is(err, llm.ErrBudgetExceeded) {
				warnings = append(warnings, "degradation_depth_reduced")
				step.Sufficient = true
				result.Steps = append(result.Steps, step)
				break
			}
			return nil, err
		}
		step.Sufficient = check.Sufficient
		step.Reason = check.Reason
		result.Steps = append(result.Steps, step)
		if check.Sufficient {
			break
		}

		// Reformulate and re-retrieve; new documents join the context.
		if check.NewQuery != "" {
			query = check.NewQuery
		}
		more, err := a.retriever.Retrieve(ctx, retrieval.Query{
			Text:     query,
			Window:   in.Window,
			Language: in.Language,
			KFinal:   retrieval.MinKFinal,
		}, ledger)
		if err == nil && len(more) > 0 {
			docs = retrieval.Dedup(append(docs, more...))
		}
	}

	if strings.TrimSpace(result.Answer) == "" {
		return nil, fmt.Errorf("agentic loop produced no answer")
	}

	out := &Output{
		Agent: a.Name(),
		Insights: []models.Insight{{
			Type:         models.InsightFact,
			Text:         models.Truncate(result.Answer, models.MaxInsightLen),
			EvidenceRefs: refsFor(docs, 3),
		}},
		Result:   result,
		Warnings: warnings,
		Model:    model,
	}
	if len(docs) != len(in.Docs) {
		out.Docs = docs
	}
	return out, nil
}

func (a *AskAgent) selfCheck(ctx context.Context, router ModelCaller, route llm.Route, query, answer string, ledger *budget.Ledger) (*modelSelfCheck, error) {
	prompt := fmt.Sprintf(`Question: %s
Draft answer: %s
Is the draft sufficient and well-grounded? If not, propose a better search query.
Return ONLY JSON: {"sufficient":true,"reason":"...","new_query":"..."}`, query, answer)

	completion, _, err := router.Call(ctx, route, prompt, nil, 256, ledger)
	if err != nil {
		return nil, err
	}
	var check modelSelfCheck
	if err := decodeModelJSON(completion.Text, &check); err != nil {
		return nil, fmt.Errorf("self-check output: %w", err)
	}
	return &check, nil
}

// depth resolves the iteration count: the degradation plan wins, then
// the depth param, then the minimum.
func (a *AskAgent) depth(in Input) int {
	depth := minAskDepth
	if s, ok := in.Params["depth"]; ok {
		if n, err := strconv.Atoi(s); err == nil {
			depth = n
		}
	}
	if in.Plan.Depth > 0 && in.Plan.Depth < depth {
		depth = in.Plan.Depth
	}
	if depth < minAskDepth {
		depth = minAskDepth
	}
	if depth > maxAskDepth {
		depth = maxAskDepth
	}
	return depth
}
