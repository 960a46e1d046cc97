package policy

import (
	"net/url"
	"strings"
)

// Trust levels assigned to evidence domains.
const (
	trustFull    = 1.0
	trustDefault = 0.7
)

// TrustScorer classifies evidence source domains against the
// configured whitelist and blacklist. Lookup is by normalized
// registrable domain; subdomains inherit their parent's listing.
type TrustScorer struct {
	whitelist map[string]bool
	blacklist map[string]bool
}

// NewTrustScorer builds the scorer from configured domain lists.
func NewTrustScorer(whitelist, blacklist []string) *TrustScorer {
	t := &TrustScorer{
		whitelist: make(map[string]bool, len(whitelist)),
		blacklist: make(map[string]bool, len(blacklist)),
	}
	for _, d := range whitelist {
		t.whitelist[normalizeDomain(d)] = true
	}
	for _, d := range blacklist {
		t.blacklist[normalizeDomain(d)] = true
	}
	return t
}

// Score returns the trust weight for an evidence source. Blacklisted
// domains return 0 with blocked=true; unknown domains get the default
// weight. The raw value may be a bare domain or a full URL.
func (t *TrustScorer) Score(raw string) (score float64, blocked bool) {
	domain := normalizeDomain(raw)
	if domain == "" {
		return trustDefault, false
	}
	for d := domain; d != ""; d = parentDomain(d) {
		if t.blacklist[d] {
			return 0, true
		}
		if t.whitelist[d] {
			return trustFull, false
		}
	}
	return trustDefault, false
}

// normalizeDomain lowercases, strips scheme, port, path, and a
// leading "www." prefix.
func normalizeDomain(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return ""
	}
	if strings.Contains(raw, "://") {
		if u, err := url.Parse(raw); err == nil && u.Hostname() != "" {
			raw = u.Hostname()
		}
	}
	if i := strings.IndexAny(raw, "/:"); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimPrefix(raw, "www.")
}

// parentDomain drops the leftmost label, so "a.b.com" walks to
// "b.com" and then "". A bare TLD has no parent.
func parentDomain(d string) string {
	i := strings.Index(d, ".")
	if i < 0 {
		return ""
	}
	rest := d[i+1:]
	if !strings.Contains(rest, ".") {
		return ""
	}
	return rest
}
