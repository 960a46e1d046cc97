package models

import "regexp"

// InsightType classifies a single generated claim.
type InsightType string

const (
	InsightFact           InsightType = "fact"
	InsightHypothesis     InsightType = "hypothesis"
	InsightRecommendation InsightType = "recommendation"
	InsightConflict       InsightType = "conflict"
)

// DateRe matches the strict evidence date format.
var DateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// EvidenceRef points a claim back into the source corpus.
// At least one of ArticleID/URL must be set; Date is strict YYYY-MM-DD.
type EvidenceRef struct {
	ArticleID string `json:"article_id,omitempty"`
	URL       string `json:"url,omitempty"`
	Date      string `json:"date"`
}

// Insight is a single claim. Insights cite retrieved evidence; the
// policy validator rejects uncited insights except for commands that
// ran without retrieval.
type Insight struct {
	Type         InsightType   `json:"type"`
	Text         string        `json:"text"`
	EvidenceRefs []EvidenceRef `json:"evidence_refs"`
}

// Evidence is a displayed source card. At most MaxEvidence per response.
type Evidence struct {
	Title     string `json:"title"`
	ArticleID string `json:"article_id,omitempty"`
	URL       string `json:"url,omitempty"`
	Date      string `json:"date"`
	Snippet   string `json:"snippet"`
}

// Meta carries response provenance.
type Meta struct {
	Confidence    float64 `json:"confidence"`
	Model         string  `json:"model"`
	Version       string  `json:"version"`
	CorrelationID string  `json:"correlation_id"`
	Experiment    string  `json:"experiment,omitempty"`
	Arm           string  `json:"arm,omitempty"`
}

// AnalysisResponse is the canonical success envelope for every command.
// Result holds the command-specific typed payload.
type AnalysisResponse struct {
	Header   string     `json:"header"`
	TLDR     string     `json:"tldr"`
	Insights []Insight  `json:"insights"`
	Evidence []Evidence `json:"evidence"`
	Result   any        `json:"result"`
	Meta     Meta       `json:"meta"`
	Warnings []string   `json:"warnings"`
}

// EvidenceFromDocument builds a source card from a retrieved document.
func EvidenceFromDocument(d Document) Evidence {
	return Evidence{
		Title:     Truncate(d.Title, MaxTitleLen),
		ArticleID: d.ArticleID,
		URL:       d.URL,
		Date:      d.PublishedDate,
		Snippet:   Truncate(d.Snippet, MaxSnippetLen),
	}
}

// RefFromDocument builds an evidence reference from a retrieved document.
func RefFromDocument(d Document) EvidenceRef {
	return EvidenceRef{ArticleID: d.ArticleID, URL: d.URL, Date: d.PublishedDate}
}
