package agents

import (
	"context"
	"fmt"

	"github.com/newslens/newslens/pkg/budget"
	"github.com/newslens/newslens/pkg/config"
	"github.com/newslens/newslens/pkg/models"
)

// SentimentResult is the typed payload of the sentiment agent.
type SentimentResult struct {
	Overall  float64            `json:"overall"`
	Emotions map[string]float64 `json:"emotions"`
	Aspects  map[string]float64 `json:"aspects"`

	// PerDoc keeps the raw per-document scores the overall was
	// computed from, indexed like the input documents.
	PerDoc []float64 `json:"per_doc"`
}

// SentimentAgent scores tone per document and aggregates
// deterministically: overall is the snippet-length-weighted mean, and
// emotions are scaled down to sum at most 1 with the residual
// implicitly neutral.
type SentimentAgent struct{}

func (a *SentimentAgent) Name() string       { return "sentiment" }
func (a *SentimentAgent) ParallelSafe() bool { return true }

// modelSentiment is the raw shape requested from the model.
type modelSentiment struct {
	PerDoc   []float64          `json:"per_doc"`
	Emotions map[string]float64 `json:"emotions"`
	Aspects  map[string]float64 `json:"aspects"`
}

func (a *SentimentAgent) Run(ctx context.Context, in Input, router ModelCaller, ledger *budget.Ledger) (*Output, error) {
	prompt := fmt.Sprintf(`Score the sentiment of each numbered news snippet on [-1,1].
Also estimate emotions (joy, anger, fear, sadness, surprise) as fractions, and per-aspect sentiment for up to 5 salient aspects.
Return ONLY JSON: {"per_doc":[0.0],"emotions":{"joy":0.0},"aspects":{"pricing":0.0}}
per_doc must have exactly %d entries, in snippet order.`, len(in.Docs))

	completion, meta, err := router.Call(ctx, router.RouteFor(config.TaskSentiment), prompt, in.Docs, 768, ledger)
	if err != nil {
		return nil, err
	}

	var raw modelSentiment
	if err := decodeModelJSON(completion.Text, &raw); err != nil {
		return nil, fmt.Errorf("sentiment output: %w", err)
	}
	if len(raw.PerDoc) != len(in.Docs) {
		return nil, fmt.Errorf("sentiment output has %d scores for %d documents", len(raw.PerDoc), len(in.Docs))
	}

	for i, s := range raw.PerDoc {
		raw.PerDoc[i] = clampSigned(s)
	}
	for k, v := range raw.Aspects {
		raw.Aspects[k] = clampSigned(v)
	}

	result := &SentimentResult{
		Overall:  weightedOverall(raw.PerDoc, in.Docs),
		Emotions: normalizeEmotions(raw.Emotions),
		Aspects:  raw.Aspects,
		PerDoc:   raw.PerDoc,
	}

	insight := models.Insight{
		Type:         models.InsightFact,
		Text:         models.Truncate(fmt.Sprintf("Overall sentiment is %s (%.2f) across %d sources.", tone(result.Overall), result.Overall, len(in.Docs)), models.MaxInsightLen),
		EvidenceRefs: refsFor(in.Docs, 3),
	}

	return &Output{
		Agent:    a.Name(),
		Insights: []models.Insight{insight},
		Result:   result,
		Model:    meta.Model,
	}, nil
}

// weightedOverall is the snippet-length-weighted mean of per-document scores.
func weightedOverall(scores []float64, docs []models.Document) float64 {
	var sum, weight float64
	for i, s := range scores {
		w := float64(len([]rune(docs[i].Snippet)))
		if w == 0 {
			w = 1
		}
		sum += s * w
		weight += w
	}
	if weight == 0 {
		return 0
	}
	return sum / weight
}

// normalizeEmotions clips negatives and scales the distribution so it
// sums to at most 1. The residual mass is implicitly neutral.
func normalizeEmotions(emotions map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(emotions))
	var sum float64
	for k, v := range emotions {
		if v < 0 {
			v = 0
		}
		out[k] = v
		sum += v
	}
	if sum > 1 {
		for k := range out {
			out[k] /= sum
		}
	}
	return out
}

func clampSigned(x float64) float64 {
	if x < -1 {
		return -1
	}
	if x > 1 {
		return 1
	}
	return x
}

func tone(overall float64) string {
	switch {
	case overall >= 0.15:
		return "positive"
	case overall <= -0.15:
		return "negative"
	default:
		return "neutral"
	}
}
