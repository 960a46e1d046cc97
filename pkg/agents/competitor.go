package agents

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/newslens/newslens/pkg/budget"
	"github.com/newslens/newslens/pkg/config"
	"github.com/newslens/newslens/pkg/models"
)

// Jaccard overlap compares the top terms per domain.
const topTermsPerDomain = 20

// The overlap matrix carries at most this many rows; aggressive
// budget degradation trims it further via Plan.MaxOverlapRows.
const maxOverlapRows = 20

// OverlapRow is one pairwise Jaccard entry of the overlap matrix.
type OverlapRow struct {
	DomainA string  `json:"domain_a"`
	DomainB string  `json:"domain_b"`
	Jaccard float64 `json:"jaccard"`
}

// Positioning is the inferred market stance of one domain.
type Positioning struct {
	Domain string `json:"domain"`
	Stance string `json:"stance"` // leader | fast_follower | niche
	Share  int    `json:"share"`  // document count
}

// CompetitorResult is the typed payload of the competitor_news agent.
type CompetitorResult struct {
	Overlap     []OverlapRow  `json:"overlap"`
	Positioning []Positioning `json:"positioning"`
	Gaps        []string      `json:"gaps"`
}

// CompetitorAgent compares coverage across source domains: pairwise
// Jaccard similarity on stemmed top-term sets, stance from coverage
// share, and model-narrated coverage gaps.
type CompetitorAgent struct{}

func (a *CompetitorAgent) Name() string       { return "competitor_news" }
func (a *CompetitorAgent) ParallelSafe() bool { return true }

type modelGaps struct {
	Gaps []string `json:"gaps"`
}

func (a *CompetitorAgent) Run(ctx context.Context, in Input, router ModelCaller, ledger *budget.Ledger) (*Output, error) {
	byDomain := groupByDomain(in.Docs)
	if requested := splitDomainList(in.Params["domains"]); len(requested) > 0 {
		byDomain = restrictDomains(byDomain, requested)
	}
	if len(byDomain) < 2 {
		return nil, fmt.Errorf("need at least 2 source domains, got %d", len(byDomain))
	}

	domains := make([]string, 0, len(byDomain))
	for d := range byDomain {
		domains = append(domains, d)
	}
	sort.Strings(domains)

	terms := make(map[string]map[string]bool, len(domains))
	for _, d := range domains {
		terms[d] = topTerms(byDomain[d], topTermsPerDomain)
	}

	result := &CompetitorResult{}
	for i := 0; i < len(domains); i++ {
		for j := i + 1; j < len(domains); j++ {
			result.Overlap = append(result.Overlap, OverlapRow{
				DomainA: domains[i],
				DomainB: domains[j],
				Jaccard: jaccard(terms[domains[i]], terms[domains[j]]),
			})
		}
	}
	sort.SliceStable(result.Overlap, func(i, j int) bool {
		return result.Overlap[i].Jaccard > result.Overlap[j].Jaccard
	})

	var warnings []string
	limit := maxOverlapRows
	if in.Plan.MaxOverlapRows > 0 && in.Plan.MaxOverlapRows < limit {
		limit = in.Plan.MaxOverlapRows
	}
	if len(result.Overlap) > limit {
		result.Overlap = result.Overlap[:limit]
		if limit < maxOverlapRows {
			warnings = append(warnings, "degradation_overlap_trimmed")
		}
	}

	result.Positioning = stances(byDomain, domains, len(in.Docs))

	prompt := `Compare how these news sources cover the story set. Name up to 5 concrete coverage gaps: angles or events that some sources cover and others ignore.
Return ONLY JSON: {"gaps":["..."]}`
	if niche := in.Params["niche"]; niche != "" {
		prompt = fmt.Sprintf(`Compare how these news sources cover the %q niche. Name up to 5 concrete coverage gaps: angles or events that some sources cover and others ignore.
Return ONLY JSON: {"gaps":["..."]}`, niche)
	}
	completion, meta, err := router.Call(ctx, router.RouteFor(config.TaskCompetitors), prompt, in.Docs, 512, ledger)
	if err != nil {
		return nil, err
	}
	var raw modelGaps
	if err := decodeModelJSON(completion.Text, &raw); err != nil {
		return nil, fmt.Errorf("competitor output: %w", err)
	}
	result.Gaps = cleanList(raw.Gaps)

	lead := result.Positioning[0]
	insight := models.Insight{
		Type:         models.InsightFact,
		Text:         models.Truncate(fmt.Sprintf("%s leads coverage with %d of %d articles across %d domains.", lead.Domain, lead.Share, len(in.Docs), len(domains)), models.MaxInsightLen),
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

// splitDomainList parses the comma-separated domains argument.
func splitDomainList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// restrictDomains narrows the comparison set to the requested domains.
func restrictDomains(byDomain map[string][]models.Document, requested []string) map[string][]models.Document {
	out := make(map[string][]models.Document, len(requested))
	for _, r := range requested {
		r = domainOf(r)
		if docs, ok := byDomain[r]; ok {
			out[r] = docs
		}
	}
	return out
}

func groupByDomain(docs []models.Document) map[string][]models.Document {
	out := make(map[string][]models.Document)
	for _, d := range docs {
		domain := domainOf(d.URL)
		if domain == "" {
			continue
		}
		out[domain] = append(out[domain], d)
	}
	return out
}

func domainOf(rawURL string) string {
	s := strings.ToLower(rawURL)
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/:"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimPrefix(s, "www.")
}

var wordRe = regexp.MustCompile(`[a-zа-яё]+`)

// Short function words excluded from term sets.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "that": true, "with": true,
	"this": true, "from": true, "has": true, "are": true, "was": true,
	"will": true, "have": true, "its": true, "but": true, "not": true,
	"как": true, "что": true, "для": true, "это": true, "его": true,
}

// topTerms collects the n most frequent stemmed terms across a
// domain's titles and snippets.
func topTerms(docs []models.Document, n int) map[string]bool {
	freq := make(map[string]int)
	for _, d := range docs {
		for _, w := range wordRe.FindAllString(strings.ToLower(d.Title+" "+d.Snippet), -1) {
			if len(w) < 3 || stopWords[w] {
				continue
			}
			freq[stem(w)]++
		}
	}
	type tf struct {
		term string
		n    int
	}
	all := make([]tf, 0, len(freq))
	for t, c := range freq {
		all = append(all, tf{t, c})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].n != all[j].n {
			return all[i].n > all[j].n
		}
		return all[i].term < all[j].term
	})
	if len(all) > n {
		all = all[:n]
	}
	out := make(map[string]bool, len(all))
	for _, t := range all {
		out[t.term] = true
	}
	return out
}

// stem strips common English and Russian inflection suffixes. Crude,
// but stable, which matters more than linguistic accuracy here.
var stemSuffixes = []string{
	"ingly", "edly", "ings", "ing", "tion", "sion", "ness", "ment",
	"ies", "ed", "es", "s", "ly",
	"ости", "ение", "ами", "ями", "ов", "ев", "ах", "ях", "ый", "ая", "ое", "ть",
}

func stem(w string) string {
	for _, suf := range stemSuffixes {
		if strings.HasSuffix(w, suf) && len(w)-len(suf) >= 3 {
			return strings.TrimSuffix(w, suf)
		}
	}
	return w
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if b[t] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// stances ranks domains by coverage share: the top domain is the
// leader, domains within half its share are fast followers, the rest
// niche.
func stances(byDomain map[string][]models.Document, domains []string, total int) []Positioning {
	out := make([]Positioning, 0, len(domains))
	for _, d := range domains {
		out = append(out, Positioning{Domain: d, Share: len(byDomain[d])})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Share != out[j].Share {
			return out[i].Share > out[j].Share
		}
		return out[i].Domain < out[j].Domain
	})
	leadShare := out[0].Share
	for i := range out {
		switch {
		case i == 0:
			out[i].Stance = "leader"
		case out[i].Share*2 >= leadShare:
			out[i].Stance = "fast_follower"
		default:
			out[i].Stance = "niche"
		}
	}
	return out
}
