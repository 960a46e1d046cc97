package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/newslens/newslens/pkg/budget"
	"github.com/newslens/newslens/pkg/config"
	"github.com/newslens/newslens/pkg/models"
)

// MaxSummaryLen bounds the synthesis summary.
const MaxSummaryLen = 400

// Conflict is a detected contradiction between agent outputs.
type Conflict struct {
	Description string   `json:"description"`
	Agents      []string `json:"agents"`
}

// Action is one recommendation with an impact grade.
type Action struct {
	Text   string `json:"text"`
	Impact string `json:"impact"` // low | medium | high
}

// SynthesisResult is the typed payload of the synthesis agent.
type SynthesisResult struct {
	Summary   string     `json:"summary"`
	Conflicts []Conflict `json:"conflicts"`
	Actions   []Action   `json:"actions"`
}

// SynthesisAgent merges prior agent outputs into a summary with
// recommendations. Conflicts are detected deterministically from the
// typed prior results; the model writes prose, not verdicts.
type SynthesisAgent struct{}

func (a *SynthesisAgent) Name() string       { return "synthesis" }
func (a *SynthesisAgent) ParallelSafe() bool { return true }

type modelSynthesis struct {
	Summary string `json:"summary"`
	Actions []struct {
		Text   string `json:"text"`
		Impact string `json:"impact"`
	} `json:"actions"`
}

func (a *SynthesisAgent) Run(ctx context.Context, in Input, router ModelCaller, ledger *budget.Ledger) (*Output, error) {
	conflicts := detectConflicts(in.Prior)

	var priorNotes strings.Builder
	for name, out := range in.Prior {
		for _, ins := range out.Insights {
			fmt.Fprintf(&priorNotes, "- [%s] %s\n", name, ins.Text)
		}
	}
	for _, c := range conflicts {
		fmt.Fprintf(&priorNotes, "- [conflict] %s\n", c.Description)
	}

	prompt := fmt.Sprintf(`Synthesize these analysis findings into a summary of at most %d characters and 1 to 5 recommended actions, each graded low, medium or high impact.
Findings:
%s
Return ONLY JSON: {"summary":"...","actions":[{"text":"...","impact":"medium"}]}`, MaxSummaryLen, priorNotes.String())

	completion, meta, err := router.Call(ctx, router.RouteFor(config.TaskSynthesis), prompt, in.Docs, 768, ledger)
	if err != nil {
		return nil, err
	}
	var raw modelSynthesis
	if err := decodeModelJSON(completion.Text, &raw); err != nil {
		return nil, fmt.Errorf("synthesis output: %w", err)
	}
	if strings.TrimSpace(raw.Summary) == "" {
		return nil, fmt.Errorf("synthesis produced an empty summary")
	}

	result := &SynthesisResult{
		Summary:   models.Truncate(raw.Summary, MaxSummaryLen),
		Conflicts: conflicts,
	}
	for _, act := range raw.Actions {
		if strings.TrimSpace(act.Text) == "" {
			continue
		}
		impact := strings.ToLower(act.Impact)
		if impact != "low" && impact != "high" {
			impact = "medium"
		}
		result.Actions = append(result.Actions, Action{Text: act.Text, Impact: impact})
		if len(result.Actions) == 5 {
			break
		}
	}
	if len(result.Actions) == 0 {
		return nil, fmt.Errorf("synthesis produced no actions")
	}

	insights := []models.Insight{{
		Type:         models.InsightRecommendation,
		Text:         models.Truncate(result.Actions[0].Text, models.MaxInsightLen),
		EvidenceRefs: refsFor(in.Docs, 3),
	}}
	for _, c := range conflicts {
		insights = append(insights, models.Insight{
			Type:         models.InsightConflict,
			Text:         models.Truncate(c.Description, models.MaxInsightLen),
			EvidenceRefs: refsFor(in.Docs, 2),
		})
	}

	return &Output{
		Agent:    a.Name(),
		Insights: insights,
		Result:   result,
		Model:    meta.Model,
	}, nil
}

// detectConflicts looks for contradictions across the typed prior
// results, e.g. negative sentiment paired with a rising topic.
func detectConflicts(prior map[string]*Output) []Conflict {
	var conflicts []Conflict

	var sent *SentimentResult
	if out, ok := prior["sentiment"]; ok {
		sent, _ = out.Result.(*SentimentResult)
	}
	if sent != nil && sent.Overall < -0.15 {
		if out, ok := prior["topics"]; ok {
			if topics, ok := out.Result.(*TopicsResult); ok {
				for _, t := range topics.Topics {
					if t.Trend == "rising" {
						conflicts = append(conflicts, Conflict{
							Description: fmt.Sprintf("Topic %q is rising while overall sentiment is negative (%.2f).", t.Label, sent.Overall),
							Agents:      []string{"sentiment", "topics"},
						})
					}
				}
			}
		}
		if out, ok := prior["trend_forecaster"]; ok {
			if fc, ok := out.Result.(*ForecastResult); ok && fc.Direction == "up" {
				conflicts = append(conflicts, Conflict{
					Description: fmt.Sprintf("Coverage is forecast up while sentiment is negative (%.2f).", sent.Overall),
					Agents:      []string{"sentiment", "trend_forecaster"},
				})
			}
		}
	}
	return conflicts
}
