// Package orchestrator is the engine entry point: it normalizes
// commands, builds validated execution contexts (running retrieval
// with auto-recovery), drives the four-stage pipeline, and emits
// either a canonical response or a typed error. No other component
// writes user-visible text.
package orchestrator

import (
	"strings"

	"github.com/newslens/newslens/pkg/config"
)

// CommandSpec is one row of the command table: the canonical token,
// its route task, and the agent set fired for it.
type CommandSpec struct {
	Name          string
	Task          string
	Agents        []string // declared order; sequential agents run in it
	SkipRetrieval bool
	RequiresQuery bool

	// RequiredParams lists argument keys of which at least one must be
	// present, e.g. domains or niche for the competitor comparison.
	RequiredParams []string
}

// commandTable maps normalized command tokens to their specs. Lookup
// keys are the canonical forms after whitespace collapsing.
var commandTable = map[string]*CommandSpec{
	"/trends": {
		Name:   "trends",
		Task:   config.TaskTopics,
		Agents: []string{"topics", "sentiment"},
	},
	"/analyze keywords": {
		Name:          "analyze_keywords",
		Task:          config.TaskKeyphrase,
		Agents:        []string{"keyphrase", "query_expansion"},
		RequiresQuery: true,
	},
	"/analyze sentiment": {
		Name:   "analyze_sentiment",
		Task:   config.TaskSentiment,
		Agents: []string{"sentiment"},
	},
	"/analyze topics": {
		Name:   "analyze_topics",
		Task:   config.TaskTopics,
		Agents: []string{"topics"},
	},
	"/analyze competitors": {
		Name:           "analyze_competitors",
		Task:           config.TaskCompetitors,
		Agents:         []string{"competitor_news"},
		RequiredParams: []string{"domains", "niche"},
	},
	"/predict trends": {
		Name:   "predict_trends",
		Task:   config.TaskTrend,
		Agents: []string{"trend_forecaster"},
	},
	"/synthesize": {
		Name:   "synthesize",
		Task:   config.TaskSynthesis,
		Agents: []string{"topics", "sentiment", "synthesis"},
	},
	"/ask": {
		Name:          "ask",
		Task:          config.TaskAsk,
		Agents:        []string{"agentic_rag"},
		RequiresQuery: true,
	},
	"/events link": {
		Name:   "events_link",
		Task:   config.TaskEvents,
		Agents: []string{"events"},
	},
	"/graph query": {
		Name:          "graph_query",
		Task:          config.TaskGraph,
		Agents:        []string{"graph"},
		RequiresQuery: true,
	},
	"/memory suggest": {
		Name:          "memory_suggest",
		Task:          config.TaskMemoryOps,
		Agents:        []string{"memory_ops"},
		SkipRetrieval: true,
	},
	"/memory store": {
		Name:          "memory_store",
		Task:          config.TaskMemoryOps,
		Agents:        []string{"memory_ops"},
		SkipRetrieval: true,
	},
	"/memory recall": {
		Name:          "memory_recall",
		Task:          config.TaskMemoryOps,
		Agents:        []string{"memory_ops"},
		SkipRetrieval: true,
		RequiresQuery: true,
	},
	"/search": {
		Name:          "search",
		Task:          config.TaskRerank,
		Agents:        nil, // retriever only
		RequiresQuery: true,
	},
}

// memoryOps maps memory command names to their store operation.
var memoryOps = map[string]string{
	"memory_suggest": "suggest",
	"memory_store":   "store",
	"memory_recall":  "recall",
}

// normalizeCommand splits a raw command line into its table spec and
// the trailing argument string. Two-word commands like "/analyze
// keywords" bind greedily before one-word ones.
func normalizeCommand(raw string) (*CommandSpec, string, bool) {
	fields := strings.Fields(strings.TrimSpace(raw))
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return nil, "", false
	}
	if len(fields) >= 2 {
		key := fields[0] + " " + strings.ToLower(fields[1])
		if spec, ok := commandTable[key]; ok {
			return spec, strings.Join(fields[2:], " "), true
		}
	}
	if spec, ok := commandTable[fields[0]]; ok {
		return spec, strings.Join(fields[1:], " "), true
	}
	return nil, "", false
}

// generalKnowledgePrefixes mark /ask queries answerable without the
// news corpus; those skip retrieval entirely.
var generalKnowledgePrefixes = []string{
	"what is", "what are", "who is", "who was", "define", "explain",
	"how does", "how do", "что такое", "кто такой", "кто такая", "объясни",
}

func isGeneralKnowledge(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	for _, p := range generalKnowledgePrefixes {
		if strings.HasPrefix(q, p) {
			return true
		}
	}
	return false
}
