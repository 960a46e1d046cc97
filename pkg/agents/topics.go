package agents

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/newslens/newslens/pkg/budget"
	"github.com/newslens/newslens/pkg/config"
	"github.com/newslens/newslens/pkg/models"
)

// Cluster count bounds enforced after the model responds.
const (
	minTopics = 3
	maxTopics = 8
)

// Topic is one document cluster.
type Topic struct {
	Label string   `json:"label"`
	Terms []string `json:"terms"`
	Size  int      `json:"size"`
	Trend string   `json:"trend"` // rising | falling | stable
}

// TopicsResult is the typed payload of the topics agent.
type TopicsResult struct {
	Topics []Topic `json:"topics"`
}

// TopicsAgent clusters the document set into labeled topics. The model
// proposes clusters and term sets; trend direction is computed
// deterministically from document dates, never taken from the model.
type TopicsAgent struct{}

func (a *TopicsAgent) Name() string       { return "topics" }
func (a *TopicsAgent) ParallelSafe() bool { return true }

type modelTopics struct {
	Topics []struct {
		Label  string   `json:"label"`
		Terms  []string `json:"terms"`
		DocIdx []int    `json:"doc_idx"`
	} `json:"topics"`
}

func (a *TopicsAgent) Run(ctx context.Context, in Input, router ModelCaller, ledger *budget.Ledger) (*Output, error) {
	prompt := fmt.Sprintf(`Cluster these news snippets into %d to %d topics.
For each topic give a short label, up to 8 characteristic terms, and the snippet indices belonging to it.
Return ONLY JSON: {"topics":[{"label":"...","terms":["..."],"doc_idx":[0]}]}`, minTopics, maxTopics)

	completion, meta, err := router.Call(ctx, router.RouteFor(config.TaskTopics), prompt, in.Docs, 1024, ledger)
	if err != nil {
		return nil, err
	}

	var raw modelTopics
	if err := decodeModelJSON(completion.Text, &raw); err != nil {
		return nil, fmt.Errorf("topics output: %w", err)
	}

	result := &TopicsResult{}
	for _, t := range raw.Topics {
		if strings.TrimSpace(t.Label) == "" || len(t.DocIdx) == 0 {
			continue
		}
		var clusterDocs []models.Document
		for _, i := range t.DocIdx {
			if i >= 0 && i < len(in.Docs) {
				clusterDocs = append(clusterDocs, in.Docs[i])
			}
		}
		if len(clusterDocs) == 0 {
			continue
		}
		result.Topics = append(result.Topics, Topic{
			Label: t.Label,
			Terms: t.Terms,
			Size:  len(clusterDocs),
			Trend: topicTrend(clusterDocs),
		})
	}
	if len(result.Topics) < minTopics {
		return nil, fmt.Errorf("topics output too sparse: %d clusters", len(result.Topics))
	}
	if len(result.Topics) > maxTopics {
		sort.SliceStable(result.Topics, func(i, j int) bool {
			return result.Topics[i].Size > result.Topics[j].Size
		})
		result.Topics = result.Topics[:maxTopics]
	}

	lead := result.Topics[0]
	insight := models.Insight{
		Type:         models.InsightFact,
		Text:         models.Truncate(fmt.Sprintf("Leading topic %q spans %d of %d sources and is %s.", lead.Label, lead.Size, len(in.Docs), lead.Trend), models.MaxInsightLen),
		EvidenceRefs: refsFor(in.Docs, 3),
	}

	return &Output{
		Agent:    a.Name(),
		Insights: []models.Insight{insight},
		Result:   result,
		Model:    meta.Model,
	}, nil
}

// topicTrend compares document counts in the first and last third of
// the cluster's date span: rising at +20%, falling at -20%, else
// stable. Clusters too small or too narrow to split are stable.
func topicTrend(docs []models.Document) string {
	if len(docs) < 3 {
		return "stable"
	}
	var lo, hi time.Time
	times := make([]time.Time, 0, len(docs))
	for _, d := range docs {
		t, err := time.Parse("2006-01-02", d.PublishedDate)
		if err != nil {
			continue
		}
		times = append(times, t)
		if lo.IsZero() || t.Before(lo) {
			lo = t
		}
		if t.After(hi) {
			hi = t
		}
	}
	span := hi.Sub(lo)
	if len(times) < 3 || span == 0 {
		return "stable"
	}

	firstCut := lo.Add(span / 3)
	lastCut := hi.Add(-span / 3)
	var early, late int
	for _, t := range times {
		if !t.After(firstCut) {
			early++
		}
		if t.After(lastCut) {
			late++
		}
	}
	switch {
	case early == 0 && late > 0:
		return "rising"
	case float64(late) >= 1.2*float64(early):
		return "rising"
	case float64(late) <= 0.8*float64(early):
		return "falling"
	default:
		return "stable"
	}
}
