package agents

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/newslens/newslens/pkg/budget"
	"github.com/newslens/newslens/pkg/config"
	"github.com/newslens/newslens/pkg/llm"
	"github.com/newslens/newslens/pkg/models"
)

// Documents published within this many days of each other merge into
// one event cluster when they share an entity.
const eventClusterDays = 2

// EventsResult is the typed payload of the events agent.
type EventsResult struct {
	Events      []models.TimelineEvent `json:"events"`
	Timeline    []string               `json:"timeline"` // event IDs in chronological order
	CausalLinks []models.CausalLink    `json:"causal_links"`
}

// EventsAgent extracts events from documents, clusters them by time
// and shared entities, orders the timeline, and asks the model for
// causal links between adjacent events. Clustering and ordering are
// deterministic; only the causal narration involves a model.
type EventsAgent struct{}

func (a *EventsAgent) Name() string       { return "events" }
func (a *EventsAgent) ParallelSafe() bool { return false }

type modelEvents struct {
	Events []struct {
		Title    string   `json:"title"`
		DocIdx   []int    `json:"doc_idx"`
		Entities []string `json:"entities"`
	} `json:"events"`
}

type modelCausal struct {
	Links []struct {
		Cause      int     `json:"cause"`
		Effect     int     `json:"effect"`
		Relation   string  `json:"relation"`
		Confidence float64 `json:"confidence"`
	} `json:"links"`
}

func (a *EventsAgent) Run(ctx context.Context, in Input, router ModelCaller, ledger *budget.Ledger) (*Output, error) {
	route := router.RouteFor(config.TaskEvents)

	prompt := `Extract the distinct news events from these snippets. For each event give a short title, the snippet indices reporting it, and the entities involved.
Return ONLY JSON: {"events":[{"title":"...","doc_idx":[0],"entities":["..."]}]}`
	completion, meta, err := router.Call(ctx, route, prompt, in.Docs, 1024, ledger)
	if err != nil {
		return nil, err
	}
	var raw modelEvents
	if err := decodeModelJSON(completion.Text, &raw); err != nil {
		return nil, fmt.Errorf("events output: %w", err)
	}

	events := buildEvents(raw, in.Docs)
	if len(events) == 0 {
		return nil, fmt.Errorf("no events extracted from %d documents", len(in.Docs))
	}
	events = clusterEvents(events)
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].StartDate != events[j].StartDate {
			return events[i].StartDate < events[j].StartDate
		}
		return events[i].Title < events[j].Title
	})

	result := &EventsResult{Events: events}
	for _, e := range events {
		result.Timeline = append(result.Timeline, e.ID)
	}

	var warnings []string
	if !in.Plan.SkipAlternatives && len(events) > 1 {
		links, err := a.causalLinks(ctx, router, route, events, ledger)
		if err != nil {
			warnings = append(warnings, "causal_inference_failed")
		} else {
			result.CausalLinks = links
		}
	} else if in.Plan.SkipAlternatives {
		warnings = append(warnings, "degradation_causal_links_skipped")
	}

	first, last := events[0], events[len(events)-1]
	insight := models.Insight{
		Type:         models.InsightFact,
		Text:         models.Truncate(fmt.Sprintf("%d events from %s to %s, starting with %q.", len(events), first.StartDate, last.EndDate, first.Title), models.MaxInsightLen),
		EvidenceRefs: refsFor(in.Docs, 3),
	}

	return &Output{
		Agent:    a.Name(),
		Insights: []models.Insight{insight},
		Result:   result,
		Warnings: warnings,
		Model:    meta.Model,
	}, nil
}

// buildEvents converts model event proposals into timeline events with
// dates derived from the cited documents.
func buildEvents(raw modelEvents, docs []models.Document) []models.TimelineEvent {
	var events []models.TimelineEvent
	for _, e := range raw.Events {
		if strings.TrimSpace(e.Title) == "" {
			continue
		}
		var start, end string
		var sourceIDs []string
		for _, i := range e.DocIdx {
			if i < 0 || i >= len(docs) {
				continue
			}
			d := docs[i]
			if start == "" || d.PublishedDate < start {
				start = d.PublishedDate
			}
			if d.PublishedDate > end {
				end = d.PublishedDate
			}
			if d.ArticleID != "" {
				sourceIDs = append(sourceIDs, d.ArticleID)
			}
		}
		if start == "" {
			continue
		}
		events = append(events, models.TimelineEvent{
			ID:           uuid.NewString(),
			Title:        e.Title,
			StartDate:    start,
			EndDate:      end,
			Entities:     cleanList(e.Entities),
			SourceDocIDs: sourceIDs,
		})
	}
	return events
}

// clusterEvents merges events that share an entity and overlap within
// the clustering window.
func clusterEvents(events []models.TimelineEvent) []models.TimelineEvent {
	merged := make([]models.TimelineEvent, 0, len(events))
	for _, e := range events {
		combined := false
		for i := range merged {
			if shareEntity(merged[i].Entities, e.Entities) && withinDays(merged[i], e, eventClusterDays) {
				merged[i] = mergeEvents(merged[i], e)
				combined = true
				break
			}
		}
		if !combined {
			merged = append(merged, e)
		}
	}
	return merged
}

func shareEntity(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, x := range a {
		set[strings.ToLower(x)] = true
	}
	for _, x := range b {
		if set[strings.ToLower(x)] {
			return true
		}
	}
	return false
}

func withinDays(a, b models.TimelineEvent, days int) bool {
	as, err1 := time.Parse("2006-01-02", a.StartDate)
	bs, err2 := time.Parse("2006-01-02", b.StartDate)
	if err1 != nil || err2 != nil {
		return false
	}
	diff := as.Sub(bs)
	if diff < 0 {
		diff = -diff
	}
	return diff <= time.Duration(days)*24*time.Hour
}

func mergeEvents(a, b models.TimelineEvent) models.TimelineEvent {
	if b.StartDate < a.StartDate {
		a.StartDate = b.StartDate
	}
	if b.EndDate > a.EndDate {
		a.EndDate = b.EndDate
	}
	a.Entities = cleanList(append(a.Entities, b.Entities...))
	a.SourceDocIDs = cleanList(append(a.SourceDocIDs, b.SourceDocIDs...))
	return a
}

func (a *EventsAgent) causalLinks(ctx context.Context, router ModelCaller, route llm.Route, events []models.TimelineEvent, ledger *budget.Ledger) ([]models.CausalLink, error) {
	var sb strings.Builder
	sb.WriteString("Timeline of events:\n")
	for i, e := range events {
		fmt.Fprintf(&sb, "[%d] %s (%s)\n", i, e.Title, e.StartDate)
	}
	sb.WriteString(`Which earlier events plausibly caused later ones? Only link events with a concrete mechanism, with confidence in [0,1].
Return ONLY JSON: {"links":[{"cause":0,"effect":1,"relation":"triggered","confidence":0.7}]}`)

	completion, _, err := router.Call(ctx, route, sb.String(), nil, 512, ledger)
	if err != nil {
		return nil, err
	}
	var raw modelCausal
	if err := decodeModelJSON(completion.Text, &raw); err != nil {
		return nil, err
	}

	var links []models.CausalLink
	for _, l := range raw.Links {
		if l.Cause < 0 || l.Cause >= len(events) || l.Effect < 0 || l.Effect >= len(events) || l.Cause == l.Effect {
			continue
		}
		// Causes precede effects on the timeline.
		if events[l.Cause].StartDate > events[l.Effect].StartDate {
			continue
		}
		links = append(links, models.CausalLink{
			CauseID:    events[l.Cause].ID,
			EffectID:   events[l.Effect].ID,
			Relation:   l.Relation,
			Confidence: clamp01(l.Confidence),
		})
	}
	return links, nil
}
