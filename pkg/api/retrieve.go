package api

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/newslens/newslens/pkg/config"
	"github.com/newslens/newslens/pkg/models"
	"github.com/newslens/newslens/pkg/retrieval"
)

// Raw retrieval accepts a wider k range than the command pipeline.
const (
	retrieveMinK    = 1
	retrieveMaxK    = 50
	retrieveDefault = 10

	// hours caps at one year
	retrieveMaxHours = 8760
)

// RetrieveRequest is the body of POST /v1/retrieve. The lookback is
// given in hours; window accepts a ladder token ("24h", "1w") as an
// alias and is ignored when hours is set.
type RetrieveRequest struct {
	Query   string   `json:"query" binding:"required"`
	Hours   int      `json:"hours"`
	Window  string   `json:"window"`
	Lang    string   `json:"lang"`
	Sources []string `json:"sources"`
	K       int      `json:"k"`
	Cursor  string   `json:"cursor"`
}

// RetrieveItem is one result row.
type RetrieveItem struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	URL     string  `json:"url,omitempty"`
	Snippet string  `json:"snippet"`
	TS      string  `json:"ts"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
}

// RetrieveResponse pages through raw lexical matches.
type RetrieveResponse struct {
	Items          []RetrieveItem  `json:"items"`
	NextCursor     string          `json:"next_cursor,omitempty"`
	Coverage       float64         `json:"coverage"`
	FreshnessStats *FreshnessStats `json:"freshness_stats,omitempty"`
}

// FreshnessStats summarizes result age.
type FreshnessStats struct {
	MedianSec int64 `json:"median_sec"`
}

func (s *Server) retrieveHandler(c *gin.Context) {
	var req RetrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	k := req.K
	if k == 0 {
		k = retrieveDefault
	}
	if k < retrieveMinK || k > retrieveMaxK {
		c.JSON(http.StatusBadRequest, gin.H{"error": "k must be in [1,50]"})
		return
	}
	var window time.Duration
	switch {
	case req.Hours != 0:
		if req.Hours < 0 || req.Hours > retrieveMaxHours {
			c.JSON(http.StatusBadRequest, gin.H{"error": "hours must be in [1,8760]"})
			return
		}
		window = time.Duration(req.Hours) * time.Hour
	default:
		if req.Window == "" {
			req.Window = "24h"
		}
		var ok bool
		window, ok = config.ParseWindow(req.Window)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown window " + req.Window})
			return
		}
	}
	offset, err := retrieval.DecodeCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad cursor"})
		return
	}

	now := s.now().UTC()
	filter := retrieval.Filter{
		Since:   now.Add(-window),
		Until:   now,
		Sources: req.Sources,
		Limit:   k + 1, // one extra row decides whether a next page exists
		Offset:  offset,
	}
	if req.Lang != "" && req.Lang != "auto" {
		filter.Language = models.NormalizeLanguage(req.Lang)
	}

	docs, err := s.searcher.SearchLexical(c.Request.Context(), req.Query, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	next := ""
	if len(docs) > k {
		docs = docs[:k]
		next = retrieval.EncodeCursor(offset + k)
	}

	resp := RetrieveResponse{
		Items:          make([]RetrieveItem, 0, len(docs)),
		NextCursor:     next,
		Coverage:       float64(len(docs)) / float64(k),
		FreshnessStats: freshness(docs, now),
	}
	for _, d := range docs {
		resp.Items = append(resp.Items, RetrieveItem{
			ID:      d.ArticleID,
			Title:   d.Title,
			URL:     d.URL,
			Snippet: d.Snippet,
			TS:      d.PublishedDate,
			Source:  sourceDomain(d.URL),
			Score:   d.Score,
		})
	}
	c.JSON(http.StatusOK, resp)
}

func sourceDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

// freshness computes the median result age in seconds.
func freshness(docs []models.Document, now time.Time) *FreshnessStats {
	ages := make([]int64, 0, len(docs))
	for _, d := range docs {
		ts, err := time.Parse("2006-01-02", d.PublishedDate)
		if err != nil {
			continue
		}
		ages = append(ages, int64(now.Sub(ts).Seconds()))
	}
	if len(ages) == 0 {
		return nil
	}
	sort.Slice(ages, func(i, j int) bool { return ages[i] < ages[j] })
	return &FreshnessStats{MedianSec: ages[len(ages)/2]}
}
