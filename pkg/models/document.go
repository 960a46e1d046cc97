// Package models defines the value types shared across the query
// orchestration engine: retrieved documents, response envelopes,
// memory records, and the canonical error taxonomy.
package models

import (
	"strings"
	"time"
)

// Field length limits enforced by the formatter and the policy validator.
const (
	MaxHeaderLen  = 100
	MaxTLDRLen    = 220
	MaxInsightLen = 180
	MaxSnippetLen = 240
	MaxTitleLen   = 200
	MaxEvidence   = 5
)

// Document is a read-only snapshot of a retrieved corpus chunk.
// Agents share documents without synchronization and must not mutate them.
type Document struct {
	ArticleID     string  `json:"article_id,omitempty"`
	Title         string  `json:"title"`
	URL           string  `json:"url,omitempty"`
	PublishedDate string  `json:"published_date"` // YYYY-MM-DD
	Language      string  `json:"language"`       // "en" | "ru"
	Score         float64 `json:"score"`
	Snippet       string  `json:"snippet"`
}

// NormalizeDocument clamps the snippet, normalizes the language tag,
// and synthesizes today's date when the source carries none.
func NormalizeDocument(d Document, now time.Time) Document {
	d.Snippet = Truncate(d.Snippet, MaxSnippetLen)
	d.Language = NormalizeLanguage(d.Language)
	if d.PublishedDate == "" {
		d.PublishedDate = now.UTC().Format("2006-01-02")
	}
	return d
}

// NormalizeLanguage maps free-form language tags to the two supported
// corpus languages. Unknown tags default to English.
func NormalizeLanguage(lang string) string {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "ru", "rus", "russian", "ru-ru":
		return "ru"
	default:
		return "en"
	}
}

// Truncate cuts s to at most limit runes, appending an ellipsis when
// something was dropped. Limit must be > 1.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
