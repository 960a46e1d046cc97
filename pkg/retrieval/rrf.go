package retrieval

import (
	"sort"

	"github.com/newslens/newslens/pkg/models"
)

// rrfK is the standard reciprocal-rank-fusion dampening constant.
const rrfK = 60

// FuseRRF merges independently ranked lists with reciprocal rank
// fusion: rrf(d) = Σ 1/(k + rank_i(d)) over every list containing d.
// A document missing from a list contributes nothing for that list
// (its rank is treated as +∞), which is also how a whole absent index
// degrades to single-arm ranking.
//
// Ordering is fully deterministic: equal RRF scores break by more
// recent published date, then shorter snippet, then lexicographic
// article ID. The fused score replaces each document's Score field.
func FuseRRF(lists ...[]models.Document) []models.Document {
	type fused struct {
		doc   models.Document
		score float64
	}
	byKey := make(map[string]*fused)
	var order []string // insertion order keeps map iteration out of results

	for _, list := range lists {
		for rank, doc := range list {
			key := docKey(doc)
			f, ok := byKey[key]
			if !ok {
				f = &fused{doc: doc}
				byKey[key] = f
				order = append(order, key)
			}
			f.score += 1.0 / float64(rrfK+rank+1)
		}
	}

	out := make([]models.Document, 0, len(order))
	for _, key := range order {
		f := byKey[key]
		f.doc.Score = f.score
		out = append(out, f.doc)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return lessRanked(out[i], out[j])
	})
	return out
}

// lessRanked orders documents by fused score descending with the
// deterministic tie-break chain.
func lessRanked(a, b models.Document) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.PublishedDate != b.PublishedDate {
		return a.PublishedDate > b.PublishedDate
	}
	if len(a.Snippet) != len(b.Snippet) {
		return len(a.Snippet) < len(b.Snippet)
	}
	return a.ArticleID < b.ArticleID
}

// Dedup removes documents sharing an article ID, preserving the
// highest-ranked occurrence. Documents without an article ID are kept
// keyed by URL.
func Dedup(docs []models.Document) []models.Document {
	seen := make(map[string]bool, len(docs))
	out := docs[:0:0]
	for _, d := range docs {
		key := docKey(d)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	return out
}

func docKey(d models.Document) string {
	if d.ArticleID != "" {
		return "a:" + d.ArticleID
	}
	return "u:" + d.URL
}
