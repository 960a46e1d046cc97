package orchestrator

import (
	"fmt"
	"strings"

	"github.com/newslens/newslens/pkg/agents"
	"github.com/newslens/newslens/pkg/budget"
	"github.com/newslens/newslens/pkg/models"
)

// Typed result payloads for the multi-agent commands. Single-agent
// commands expose the agent's own result type directly.
type TrendsPayload struct {
	Topics    *agents.TopicsResult    `json:"topics,omitempty"`
	Sentiment *agents.SentimentResult `json:"sentiment,omitempty"`
}

type KeywordsPayload struct {
	Keyphrases *agents.KeyphraseResult `json:"keyphrases,omitempty"`
	Expansion  *agents.ExpansionResult `json:"expansion,omitempty"`
}

type SynthesisPayload struct {
	Synthesis *agents.SynthesisResult `json:"synthesis,omitempty"`
	Topics    *agents.TopicsResult    `json:"topics,omitempty"`
	Sentiment *agents.SentimentResult `json:"sentiment,omitempty"`
}

type SearchPayload struct {
	Docs []models.Document `json:"docs"`
}

// Formatter assembles the canonical response envelope from the
// context and the agent outputs.
type Formatter struct {
	version string
}

// NewFormatter pins the build version stamped into response meta.
func NewFormatter(version string) *Formatter {
	return &Formatter{version: version}
}

// Format builds the response. It never fails: missing agent outputs
// degrade to a thinner envelope, and the policy validator downstream
// decides whether the result is still emittable.
func (f *Formatter) Format(c *Context, outputs map[string]*agents.Output, ledger *budget.Ledger) *models.AnalysisResponse {
	resp := &models.AnalysisResponse{
		Header: models.Truncate(header(c), models.MaxHeaderLen),
		Result: resultPayload(c, outputs),
		Meta: models.Meta{
			Model:         firstModel(c.Spec.Agents, outputs),
			Version:       f.version,
			CorrelationID: c.CorrelationID,
		},
	}

	for _, name := range c.Spec.Agents {
		out, ok := outputs[name]
		if !ok {
			continue
		}
		resp.Insights = append(resp.Insights, out.Insights...)
	}

	docs := c.Docs
	if len(docs) > models.MaxEvidence {
		docs = docs[:models.MaxEvidence]
	}
	for _, d := range docs {
		resp.Evidence = append(resp.Evidence, models.EvidenceFromDocument(d))
	}

	resp.Warnings = collectWarnings(c.Spec.Agents, outputs, ledger)
	resp.Meta.Confidence = confidence(resp.Warnings)
	resp.TLDR = models.Truncate(tldr(c, outputs), models.MaxTLDRLen)
	return resp
}

func header(c *Context) string {
	ru := c.Language == "ru"
	switch c.Spec.Name {
	case "trends":
		return pick(ru, "Тренды за %s", "Trends for %s", c.Window)
	case "analyze_keywords":
		return pick(ru, "Ключевые слова: %s", "Keywords: %s", c.Query)
	case "analyze_sentiment":
		return pick(ru, "Тональность за %s", "Sentiment for %s", c.Window)
	case "analyze_topics":
		return pick(ru, "Темы за %s", "Topics for %s", c.Window)
	case "analyze_competitors":
		return pick(ru, "Конкуренты за %s", "Competitors for %s", c.Window)
	case "predict_trends":
		return pick(ru, "Прогноз за %s", "Forecast for %s", c.Window)
	case "synthesize":
		return pick(ru, "Синтез за %s", "Synthesis for %s", c.Window)
	case "ask":
		return pick(ru, "Ответ: %s", "Answer: %s", c.Query)
	case "events_link":
		return pick(ru, "События за %s", "Events for %s", c.Window)
	case "graph_query":
		return pick(ru, "Граф: %s", "Graph: %s", c.Query)
	case "memory_suggest":
		if ru {
			return "Память: подсказка"
		}
		return "Memory suggestion"
	case "memory_store":
		if ru {
			return "Память: сохранение"
		}
		return "Memory store"
	case "memory_recall":
		if ru {
			return "Память: выборка"
		}
		return "Memory recall"
	case "search":
		return pick(ru, "Поиск: %s", "Search: %s", c.Query)
	default:
		return c.Spec.Name
	}
}

func pick(ru bool, ruFormat, enFormat, arg string) string {
	if ru {
		return fmt.Sprintf(ruFormat, arg)
	}
	return fmt.Sprintf(enFormat, arg)
}

// tldr prefers the synthesis summary, then the agentic answer, then
// the first insight, then a plain source-count line. Candidates in the
// wrong script for the response language fall through to the localized
// fallback.
func tldr(c *Context, outputs map[string]*agents.Output) string {
	if s := tldrCandidate(c, outputs); s != "" && scriptMatches(s, c.Language) {
		return s
	}
	if c.Language == "ru" {
		return fmt.Sprintf("Проанализировано источников: %d, период %s.", len(c.Docs), c.Window)
	}
	return fmt.Sprintf("%d sources analyzed over %s.", len(c.Docs), c.Window)
}

func tldrCandidate(c *Context, outputs map[string]*agents.Output) string {
	if out, ok := outputs["synthesis"]; ok {
		if r, ok := out.Result.(*agents.SynthesisResult); ok && r.Summary != "" {
			return r.Summary
		}
	}
	if out, ok := outputs["agentic_rag"]; ok {
		if r, ok := out.Result.(*agents.AskResult); ok && r.Answer != "" {
			return r.Answer
		}
	}
	for _, name := range c.Spec.Agents {
		if out, ok := outputs[name]; ok && len(out.Insights) > 0 {
			return out.Insights[0].Text
		}
	}
	return ""
}

// scriptMatches reports whether the text's dominant script agrees with
// the response language; scriptless text always matches.
func scriptMatches(text, lang string) bool {
	var latin, cyrillic int
	for _, r := range text {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			latin++
		case r >= 'а' && r <= 'я', r >= 'А' && r <= 'Я', r == 'ё', r == 'Ё':
			cyrillic++
		}
	}
	if latin == 0 && cyrillic == 0 {
		return true
	}
	if lang == "ru" {
		return cyrillic > latin
	}
	return latin >= cyrillic
}

func resultPayload(c *Context, outputs map[string]*agents.Output) any {
	result := func(name string) any {
		if out, ok := outputs[name]; ok {
			return out.Result
		}
		return nil
	}
	switch c.Spec.Name {
	case "trends":
		p := &TrendsPayload{}
		p.Topics, _ = result("topics").(*agents.TopicsResult)
		p.Sentiment, _ = result("sentiment").(*agents.SentimentResult)
		return p
	case "analyze_keywords":
		p := &KeywordsPayload{}
		p.Keyphrases, _ = result("keyphrase").(*agents.KeyphraseResult)
		p.Expansion, _ = result("query_expansion").(*agents.ExpansionResult)
		return p
	case "synthesize":
		p := &SynthesisPayload{}
		p.Synthesis, _ = result("synthesis").(*agents.SynthesisResult)
		p.Topics, _ = result("topics").(*agents.TopicsResult)
		p.Sentiment, _ = result("sentiment").(*agents.SentimentResult)
		return p
	case "search":
		return &SearchPayload{Docs: c.Docs}
	default:
		if len(c.Spec.Agents) == 1 {
			return result(c.Spec.Agents[0])
		}
		return nil
	}
}

func firstModel(order []string, outputs map[string]*agents.Output) string {
	for _, name := range order {
		if out, ok := outputs[name]; ok && out.Model != "" {
			return out.Model
		}
	}
	return ""
}

func collectWarnings(order []string, outputs map[string]*agents.Output, ledger *budget.Ledger) []string {
	seen := map[string]bool{}
	var warnings []string
	add := func(w string) {
		if w != "" && !seen[w] {
			seen[w] = true
			warnings = append(warnings, w)
		}
	}
	for _, w := range ledger.Warnings() {
		add(w)
	}
	for _, name := range order {
		if out, ok := outputs[name]; ok {
			for _, w := range out.Warnings {
				add(w)
			}
		}
	}
	return warnings
}

// confidence starts at a fixed base and discounts for every failed
// agent and every degradation step the request absorbed.
func confidence(warnings []string) float64 {
	conf := 0.8
	for _, w := range warnings {
		switch {
		case strings.HasPrefix(w, "agent_failed:"):
			conf -= 0.15
		case strings.HasPrefix(w, "degradation_"):
			conf -= 0.05
		}
	}
	if conf < 0.1 {
		conf = 0.1
	}
	return conf
}
