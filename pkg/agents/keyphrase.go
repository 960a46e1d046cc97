package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/newslens/newslens/pkg/budget"
	"github.com/newslens/newslens/pkg/config"
	"github.com/newslens/newslens/pkg/models"
)

// Keyphrase bounds enforced after the model responds.
const (
	minKeyphrases = 5
	maxKeyphrases = 15
)

// KeyphraseEntry is one scored phrase.
type KeyphraseEntry struct {
	Phrase   string   `json:"phrase"`
	Score    float64  `json:"score"`
	Ngram    int      `json:"ngram"`
	Variants []string `json:"variants"`
}

// KeyphraseResult is the typed payload of the keyphrase agent.
type KeyphraseResult struct {
	Phrases []KeyphraseEntry `json:"phrases"`
}

// KeyphraseAgent extracts scored keyphrases from the document set.
type KeyphraseAgent struct{}

func (a *KeyphraseAgent) Name() string       { return "keyphrase" }
func (a *KeyphraseAgent) ParallelSafe() bool { return true }

func (a *KeyphraseAgent) Run(ctx context.Context, in Input, router ModelCaller, ledger *budget.Ledger) (*Output, error) {
	prompt := fmt.Sprintf(`Extract the %d to %d most important keyphrases from these news snippets about %q.
Return ONLY JSON: {"phrases":[{"phrase":"...","score":0.0,"ngram":1,"variants":["..."]}]}
Scores are relevance in [0,1]; ngram is the word count of the phrase.`,
		minKeyphrases, maxKeyphrases, in.Query)

	completion, meta, err := router.Call(ctx, router.RouteFor(config.TaskKeyphrase), prompt, in.Docs, 1024, ledger)
	if err != nil {
		return nil, err
	}

	var result KeyphraseResult
	if err := decodeModelJSON(completion.Text, &result); err != nil {
		return nil, fmt.Errorf("keyphrase output: %w", err)
	}

	kept := result.Phrases[:0:0]
	for _, p := range result.Phrases {
		if strings.TrimSpace(p.Phrase) == "" {
			continue
		}
		p.Score = clamp01(p.Score)
		if p.Ngram <= 0 {
			p.Ngram = len(strings.Fields(p.Phrase))
		}
		kept = append(kept, p)
	}
	if len(kept) < minKeyphrases {
		return nil, fmt.Errorf("keyphrase output too sparse: %d phrases", len(kept))
	}
	if len(kept) > maxKeyphrases {
		kept = kept[:maxKeyphrases]
	}
	result.Phrases = kept

	top := make([]string, 0, 3)
	for _, p := range kept[:min(3, len(kept))] {
		top = append(top, p.Phrase)
	}
	insight := models.Insight{
		Type:         models.InsightFact,
		Text:         models.Truncate("Dominant keyphrases: "+strings.Join(top, ", "), models.MaxInsightLen),
		EvidenceRefs: refsFor(in.Docs, 3),
	}

	return &Output{
		Agent:    a.Name(),
		Insights: []models.Insight{insight},
		Result:   &result,
		Model:    meta.Model,
	}, nil
}
