package policy

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/newslens/newslens/pkg/config"
	"github.com/newslens/newslens/pkg/models"
)

// ValidationError aggregates every hard-check violation found in one
// pass so a caller sees the whole damage, not just the first field.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "response validation failed: " + strings.Join(e.Violations, "; ")
}

// Validator enforces the response contract. It runs after synthesis
// and before formatting; a response it rejects is never shown.
type Validator struct {
	masker *Masker
	trust  *TrustScorer
}

// NewValidator builds the validator from policy configuration.
func NewValidator(cfg config.PolicyConfig) *Validator {
	return &Validator{
		masker: NewMasker(cfg.PIIMasking()),
		trust:  NewTrustScorer(cfg.DomainWhitelist, cfg.DomainBlacklist),
	}
}

// Enforce applies domain trust filtering, then validates the response
// in place, then applies PII masking on success. reqLang is the
// normalized request language. Trust filtering runs first so an
// insight stripped of its last reference by the blacklist fails the
// evidence-ref hard check. retrievalSkipped relaxes that check for
// commands that intentionally run without retrieval, such as
// general-knowledge questions and memory operations.
func (v *Validator) Enforce(resp *models.AnalysisResponse, reqLang string, retrievalSkipped bool) error {
	v.applyTrust(resp)

	var violations []string

	if resp.Header == "" {
		violations = append(violations, "header is empty")
	}
	if n := len([]rune(resp.Header)); n > models.MaxHeaderLen {
		violations = append(violations, fmt.Sprintf("header exceeds %d chars (%d)", models.MaxHeaderLen, n))
	}
	if n := len([]rune(resp.TLDR)); n > models.MaxTLDRLen {
		violations = append(violations, fmt.Sprintf("tldr exceeds %d chars (%d)", models.MaxTLDRLen, n))
	}
	if len(resp.Evidence) > models.MaxEvidence {
		violations = append(violations, fmt.Sprintf("evidence count %d exceeds %d", len(resp.Evidence), models.MaxEvidence))
	}
	if resp.Meta.Confidence < 0 || resp.Meta.Confidence > 1 {
		violations = append(violations, fmt.Sprintf("confidence %.3f outside [0,1]", resp.Meta.Confidence))
	}

	for i, ins := range resp.Insights {
		if n := len([]rune(ins.Text)); n > models.MaxInsightLen {
			violations = append(violations, fmt.Sprintf("insight %d exceeds %d chars (%d)", i, models.MaxInsightLen, n))
		}
		switch ins.Type {
		case models.InsightFact, models.InsightHypothesis, models.InsightRecommendation, models.InsightConflict:
		default:
			violations = append(violations, fmt.Sprintf("insight %d has unknown type %q", i, ins.Type))
		}
		if len(ins.EvidenceRefs) == 0 && !retrievalSkipped {
			violations = append(violations, fmt.Sprintf("insight %d has no evidence refs", i))
		}
		for j, ref := range ins.EvidenceRefs {
			if ref.ArticleID == "" && ref.URL == "" {
				violations = append(violations, fmt.Sprintf("insight %d ref %d has neither article_id nor url", i, j))
			}
			if !models.DateRe.MatchString(ref.Date) {
				violations = append(violations, fmt.Sprintf("insight %d ref %d date %q is not YYYY-MM-DD", i, j, ref.Date))
			}
		}
	}
	for i, ev := range resp.Evidence {
		if n := len([]rune(ev.Snippet)); n > models.MaxSnippetLen {
			violations = append(violations, fmt.Sprintf("evidence %d snippet exceeds %d chars (%d)", i, models.MaxSnippetLen, n))
		}
		if !models.DateRe.MatchString(ev.Date) {
			violations = append(violations, fmt.Sprintf("evidence %d date %q is not YYYY-MM-DD", i, ev.Date))
		}
	}

	if reqLang != "" && resp.Header != "" {
		if got := dominantScript(resp.Header + " " + resp.TLDR); got != "" && got != reqLang {
			violations = append(violations, fmt.Sprintf("response language %q does not match requested %q", got, reqLang))
		}
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}

	v.maskResponse(resp)
	return nil
}

// dominantScript guesses the text language from its script. Returns
// "" when the text has no letters to judge by.
func dominantScript(text string) string {
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
		return ""
	}
	if cyrillic > latin {
		return "ru"
	}
	return "en"
}

// maskResponse runs PII masking over every free-text field, collating
// warnings once per kind.
func (v *Validator) maskResponse(resp *models.AnalysisResponse) {
	seen := make(map[string]bool)
	mask := func(text string) string {
		masked, warns := v.masker.Mask(text)
		for _, w := range warns {
			if !seen[w] {
				seen[w] = true
				resp.Warnings = append(resp.Warnings, w)
			}
		}
		return masked
	}

	resp.Header = mask(resp.Header)
	resp.TLDR = mask(resp.TLDR)
	for i := range resp.Insights {
		resp.Insights[i].Text = mask(resp.Insights[i].Text)
	}
	for i := range resp.Evidence {
		resp.Evidence[i].Snippet = mask(resp.Evidence[i].Snippet)
		resp.Evidence[i].Title = mask(resp.Evidence[i].Title)
	}
}

// applyTrust drops blacklisted sources from the evidence list and from
// every insight's references, then scales confidence by the lowest
// trust weight among the surviving domains. Evidence carrying only an
// article id has no domain to judge and passes through unscored.
func (v *Validator) applyTrust(resp *models.AnalysisResponse) {
	minTrust := 1.0
	dropped := false

	kept := resp.Evidence[:0:0]
	for _, ev := range resp.Evidence {
		if ev.URL == "" {
			kept = append(kept, ev)
			continue
		}
		score, blocked := v.trust.Score(ev.URL)
		if blocked {
			dropped = true
			continue
		}
		if score < minTrust {
			minTrust = score
		}
		kept = append(kept, ev)
	}
	resp.Evidence = kept

	for i := range resp.Insights {
		refs := resp.Insights[i].EvidenceRefs[:0:0]
		for _, ref := range resp.Insights[i].EvidenceRefs {
			if ref.URL != "" {
				if _, blocked := v.trust.Score(ref.URL); blocked {
					dropped = true
					continue
				}
			}
			refs = append(refs, ref)
		}
		resp.Insights[i].EvidenceRefs = refs
	}

	if dropped {
		resp.Warnings = append(resp.Warnings, "evidence_dropped_blacklisted")
	}
	if len(resp.Evidence) > 0 && minTrust < 1.0 {
		resp.Meta.Confidence *= minTrust
	}
}

// allowedTopLevel is the closed key set of the response envelope.
var allowedTopLevel = map[string]bool{
	"header": true, "tldr": true, "insights": true,
	"evidence": true, "result": true, "meta": true, "warnings": true,
}

// CheckUnknownFields rejects raw response JSON carrying top-level keys
// outside the envelope schema. Model output is untrusted; extra keys
// usually mean the model invented structure.
func CheckUnknownFields(raw []byte) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return fmt.Errorf("response is not a JSON object: %w", err)
	}
	var unknown []string
	for key := range top {
		if !allowedTopLevel[key] {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		return &ValidationError{
			Violations: []string{fmt.Sprintf("unknown top-level fields: %s", strings.Join(unknown, ", "))},
		}
	}
	return nil
}
