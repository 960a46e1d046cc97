package agents

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/newslens/newslens/pkg/budget"
	"github.com/newslens/newslens/pkg/memory"
	"github.com/newslens/newslens/pkg/models"
)

// MemoryResult is the typed payload of the memory_ops agent; exactly
// one field is set depending on the operation.
type MemoryResult struct {
	Op         string                    `json:"op"`
	Suggestion *models.StorageSuggestion `json:"suggestion,omitempty"`
	Stored     *models.MemoryRecord      `json:"stored,omitempty"`
	Recalled   []models.RecalledRecord   `json:"recalled,omitempty"`
}

// MemoryAgent bridges commands to the memory store: suggest scores a
// candidate, store persists it, recall searches by similarity. The
// model router is unused; memory operations are deterministic.
type MemoryAgent struct {
	store *memory.Store
}

// NewMemoryAgent wires the agent to the process-wide memory store.
func NewMemoryAgent(store *memory.Store) *MemoryAgent {
	return &MemoryAgent{store: store}
}

func (a *MemoryAgent) Name() string       { return "memory_ops" }
func (a *MemoryAgent) ParallelSafe() bool { return false }

func (a *MemoryAgent) Run(ctx context.Context, in Input, _ ModelCaller, _ *budget.Ledger) (*Output, error) {
	op := strings.ToLower(in.Params["op"])

	if in.Plan.RecallOnly && op != "recall" {
		return nil, fmt.Errorf("memory %s unavailable under current budget, only recall", op)
	}

	result := &MemoryResult{Op: op}
	var warnings []string

	switch op {
	case "suggest":
		s := memory.SuggestStorage(in.Params["content"], nil)
		result.Suggestion = &s

	case "store":
		content := in.Params["content"]
		memType := models.MemoryType(in.Params["type"])
		if memType == "" {
			suggestion := memory.SuggestStorage(content, nil)
			if !suggestion.Store {
				return nil, fmt.Errorf("content rejected by storage heuristic: %s", suggestion.Reason)
			}
			memType = suggestion.Type
		}
		ttl := 0
		if s := in.Params["ttl_days"]; s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				return nil, fmt.Errorf("invalid ttl_days %q", s)
			}
			ttl = n
		}
		rec, err := a.store.Store(ctx, memory.StoreInput{
			Type:    memType,
			Content: content,
			TTLDays: ttl,
			UserID:  in.Params["user_id"],
			Tags:    splitList(in.Params["tags"]),
		})
		if err != nil {
			return nil, err
		}
		result.Stored = rec

	case "recall":
		minSim := 0.5
		if s := in.Params["min_similarity"]; s != "" {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid min_similarity %q", s)
			}
			minSim = f
		}
		recalled, err := a.store.Recall(ctx, memory.RecallQuery{
			Text:   in.Query,
			UserID: in.Params["user_id"],
			MinSim: minSim,
		})
		if err != nil {
			return nil, err
		}
		result.Recalled = recalled
		if len(recalled) == 0 {
			warnings = append(warnings, "memory_recall_empty")
		}

	default:
		return nil, fmt.Errorf("unknown memory operation %q", op)
	}

	return &Output{
		Agent:    a.Name(),
		Result:   result,
		Warnings: warnings,
	}, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return cleanList(strings.Split(s, ","))
}
