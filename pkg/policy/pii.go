// Package policy enforces the response contract: hard validation of
// the analysis envelope, PII masking, and source-domain trust scoring.
// Validation runs after every synthesis pass; a response that fails a
// hard check never reaches the user.
package policy

import (
	"fmt"
	"regexp"
	"strings"
)

// piiPattern is a pre-compiled detector with its redaction kind.
// Replacement is always "[REDACTED_<KIND>]".
type piiPattern struct {
	kind  string
	regex *regexp.Regexp
	// verify rejects regex matches that fail a structural check,
	// e.g. credit card candidates that fail the Luhn checksum.
	verify func(match string) bool
}

// Built-in PII detectors, applied in order. More specific patterns run
// before broader ones so a credit card is not half-eaten by the phone
// detector.
var piiPatterns = []piiPattern{
	{
		kind:  "SSN",
		regex: regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	},
	{
		kind:   "CREDIT_CARD",
		regex:  regexp.MustCompile(`\b(?:\d[ -]?){13,19}\b`),
		verify: luhnValid,
	},
	{
		kind:  "EMAIL",
		regex: regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
	},
	{
		kind:   "PHONE",
		regex:  regexp.MustCompile(`(?:\+|\b)\d[\d\- ()]{8,14}\d\b`),
		verify: phoneDigits,
	},
	{
		kind:  "IP",
		regex: regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`),
	},
	{
		kind:  "PASSPORT",
		regex: regexp.MustCompile(`\b[A-Z]{1,2}\d{6,9}\b`),
	},
}

// Masker applies the built-in PII detectors to free text fields of a
// response. Compiled once at startup and safe for concurrent use.
type Masker struct {
	enabled bool
}

// NewMasker creates a masker. Disabled maskers pass text through unchanged.
func NewMasker(enabled bool) *Masker {
	return &Masker{enabled: enabled}
}

// Mask replaces every detected PII span with its redaction token and
// returns the masked text plus one "pii_masked:<kind>" warning per
// kind found, lowercased and deduplicated.
func (m *Masker) Mask(text string) (string, []string) {
	if !m.enabled || text == "" {
		return text, nil
	}

	var warnings []string
	seen := make(map[string]bool)
	for _, p := range piiPatterns {
		matched := false
		text = p.regex.ReplaceAllStringFunc(text, func(match string) string {
			if p.verify != nil && !p.verify(match) {
				return match
			}
			matched = true
			return fmt.Sprintf("[REDACTED_%s]", p.kind)
		})
		if matched && !seen[p.kind] {
			seen[p.kind] = true
			warnings = append(warnings, "pii_masked:"+strings.ToLower(p.kind))
		}
	}
	return text, warnings
}

// phoneDigits rejects phone candidates whose digit count falls
// outside plausible bounds. A leading "+" marks an explicit dialing
// prefix, so short hyphenated numbers like +1-555-1234 count as
// phones; without it the floor stays at 10 digits so dates and plain
// numeric runs are left alone.
func phoneDigits(s string) bool {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	if strings.HasPrefix(s, "+") {
		return n >= 7 && n <= 13
	}
	return n >= 10 && n <= 13
}

// luhnValid reports whether the digit sequence passes the Luhn
// checksum. Separators are ignored; sequences outside 13..19 digits
// are rejected.
func luhnValid(s string) bool {
	var digits []int
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits = append(digits, int(r-'0'))
		}
	}
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
