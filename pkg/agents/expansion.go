package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/newslens/newslens/pkg/budget"
	"github.com/newslens/newslens/pkg/config"
)

// ExpansionResult is the typed payload of the query_expansion agent.
type ExpansionResult struct {
	Intents    []string `json:"intents"`
	Expansions []string `json:"expansions"`
	Negatives  []string `json:"negatives"`
}

// ExpansionAgent reformulates the query into intents, broadened
// variants, and negative terms for downstream retrieval tuning.
type ExpansionAgent struct{}

func (a *ExpansionAgent) Name() string       { return "query_expansion" }
func (a *ExpansionAgent) ParallelSafe() bool { return true }

func (a *ExpansionAgent) Run(ctx context.Context, in Input, router ModelCaller, ledger *budget.Ledger) (*Output, error) {
	prompt := fmt.Sprintf(`Analyze the search query %q.
List the user intents behind it, up to 8 expanded query variants, and terms that should be excluded as noise.
Return ONLY JSON: {"intents":["..."],"expansions":["..."],"negatives":["..."]}`, in.Query)

	completion, meta, err := router.Call(ctx, router.RouteFor(config.TaskQueryExpansion), prompt, nil, 512, ledger)
	if err != nil {
		return nil, err
	}

	var result ExpansionResult
	if err := decodeModelJSON(completion.Text, &result); err != nil {
		return nil, fmt.Errorf("query expansion output: %w", err)
	}
	result.Intents = cleanList(result.Intents)
	result.Expansions = cleanList(result.Expansions)
	result.Negatives = cleanList(result.Negatives)
	if len(result.Expansions) == 0 {
		return nil, fmt.Errorf("query expansion produced no variants")
	}

	return &Output{
		Agent:  a.Name(),
		Result: &result,
		Model:  meta.Model,
	}, nil
}

func cleanList(ss []string) []string {
	out := ss[:0:0]
	seen := make(map[string]bool)
	for _, s := range ss {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
