package memory

import (
	"strings"

	"github.com/newslens/newslens/pkg/models"
)

// Content below this length is too thin to be worth a memory record.
const minSuggestLen = 40

// Phrases that mark durable knowledge rather than a one-off event.
var semanticMarkers = []string{
	"always", "typically", "in general", "historically", "tends to",
	"every quarter", "every year", "policy is", "известно, что", "как правило",
}

// Importance cues found in analysis output.
var importanceMarkers = []string{
	"significant", "major", "unprecedented", "record", "critical",
	"first time", "впервые", "рекордн",
}

// SuggestStorage decides whether analysis output deserves a memory
// record and with what shape. Purely heuristic; the agent calling it
// may still override the TTL.
func SuggestStorage(content string, refs []string) models.StorageSuggestion {
	trimmed := strings.TrimSpace(content)
	if len([]rune(trimmed)) < minSuggestLen {
		return models.StorageSuggestion{
			Store:  false,
			Reason: "content too short to be a useful memory",
		}
	}

	lower := strings.ToLower(trimmed)
	memType := models.MemoryEpisodic
	for _, marker := range semanticMarkers {
		if strings.Contains(lower, marker) {
			memType = models.MemorySemantic
			break
		}
	}

	importance := 0.5
	for _, marker := range importanceMarkers {
		if strings.Contains(lower, marker) {
			importance = 0.8
			break
		}
	}
	// Claims grounded in multiple sources are worth keeping longer.
	if len(refs) >= 3 && importance < 0.7 {
		importance = 0.7
	}

	ttl := models.DefaultEpisodicTTLDays
	reason := "event-shaped finding, episodic retention"
	if memType == models.MemorySemantic {
		ttl = models.DefaultSemanticTTLDays
		reason = "generalizing claim, semantic retention"
	}

	return models.StorageSuggestion{
		Store:      true,
		Type:       memType,
		Importance: importance,
		TTLDays:    ttl,
		Reason:     reason,
	}
}
