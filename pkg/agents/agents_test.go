package agents

import (
	"context"
	"time"

	"github.com/newslens/newslens/pkg/budget"
	"github.com/newslens/newslens/pkg/llm"
	"github.com/newslens/newslens/pkg/models"
)

// fakeCaller scripts router responses call by call. When the script
// runs out the last entry repeats.
type fakeCaller struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (f *fakeCaller) RouteFor(task string) llm.Route {
	return llm.Route{TaskID: task, Primary: "fake", Timeout: time.Second}
}

func (f *fakeCaller) Call(_ context.Context, _ llm.Route, prompt string, _ []models.Document, _ int, _ *budget.Ledger) (*llm.Completion, *llm.CallMeta, error) {
	i := f.calls
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, nil, f.errs[i]
	}
	text := ""
	if len(f.responses) > 0 {
		if i >= len(f.responses) {
			i = len(f.responses) - 1
		}
		text = f.responses[i]
	}
	return &llm.Completion{Text: text, TokensIn: 100, TokensOut: 50},
		&llm.CallMeta{Provider: "fake", Model: "fake-model"}, nil
}

func agentLedger() *budget.Ledger {
	return budget.NewLedger(budget.Limits{
		MaxTokens:    100000,
		MaxCostCents: 1000,
		MaxDuration:  time.Minute,
	})
}

func sampleDoc(id, date, title, snippet, url string) models.Document {
	return models.Document{
		ArticleID:     id,
		Title:         title,
		URL:           url,
		PublishedDate: date,
		Language:      "en",
		Snippet:       snippet,
	}
}

func sampleDocs() []models.Document {
	return []models.Document{
		sampleDoc("a1", "2026-08-24", "Bank holds rates", "The central bank kept its benchmark rate unchanged amid inflation concerns.", "https://reuters.com/a1"),
		sampleDoc("a2", "2026-08-25", "Markets rally on rates", "Equity markets rallied after the central bank rate decision.", "https://bloomberg.com/a2"),
		sampleDoc("a3", "2026-08-26", "Inflation outlook", "Analysts expect inflation to ease over the next two quarters.", "https://reuters.com/a3"),
	}
}
