package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/newslens/newslens/pkg/budget"
	"github.com/newslens/newslens/pkg/config"
	"github.com/newslens/newslens/pkg/llm"
	"github.com/newslens/newslens/pkg/models"
)

// LLMReranker re-scores fused candidates with a cheap model. The model
// returns the candidate indices in relevance order; anything it omits
// keeps its fused position after the ranked ones.
type LLMReranker struct {
	router *llm.Router
}

// NewLLMReranker creates a reranker calling through the model router.
func NewLLMReranker(router *llm.Router) *LLMReranker {
	return &LLMReranker{router: router}
}

// Rerank implements Reranker.
func (r *LLMReranker) Rerank(ctx context.Context, query string, docs []models.Document, ledger *budget.Ledger) ([]models.Document, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Rank these news snippets by relevance to the query.\nQuery: %s\n\n", query)
	for i, d := range docs {
		fmt.Fprintf(&sb, "[%d] %s — %s\n", i, d.Title, d.Snippet)
	}
	sb.WriteString("\nReturn ONLY a JSON array of the snippet indices, most relevant first. Example: [2,0,1]")

	completion, _, err := r.router.Call(ctx, r.router.RouteFor(config.TaskRerank), sb.String(), nil, 256, ledger)
	if err != nil {
		return nil, err
	}

	var order []int
	if err := json.Unmarshal([]byte(extractJSONArray(completion.Text)), &order); err != nil {
		return nil, fmt.Errorf("unparseable rerank output: %w", err)
	}

	seen := make(map[int]bool, len(order))
	out := make([]models.Document, 0, len(docs))
	for _, idx := range order {
		if idx >= 0 && idx < len(docs) && !seen[idx] {
			seen[idx] = true
			out = append(out, docs[idx])
		}
	}
	for i, d := range docs {
		if !seen[i] {
			out = append(out, d)
		}
	}
	return out, nil
}

// extractJSONArray pulls the first [...] block out of model output that
// may be wrapped in prose or code fences.
func extractJSONArray(s string) string {
	start := strings.IndexByte(s, '[')
	end := strings.LastIndexByte(s, ']')
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}
