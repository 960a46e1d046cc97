package models

import "time"

// MemoryType distinguishes event-shaped records from durable knowledge.
type MemoryType string

const (
	MemoryEpisodic MemoryType = "episodic"
	MemorySemantic MemoryType = "semantic"
)

// Default TTLs applied by the storage suggester.
const (
	DefaultEpisodicTTLDays = 90
	DefaultSemanticTTLDays = 180
)

// MemoryRecord is a persistent, vector-indexed record owned by the
// memory store. Agents hold records by ID only.
type MemoryRecord struct {
	ID          string     `json:"id"`
	Type        MemoryType `json:"type"`
	Content     string     `json:"content"`
	Embedding   []float32  `json:"-"`
	Importance  float64    `json:"importance"`
	TTLDays     int        `json:"ttl_days"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	AccessedAt  time.Time  `json:"accessed_at"`
	AccessCount int        `json:"access_count"`
	Refs        []string   `json:"refs,omitempty"`
	UserID      string     `json:"user_id,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// RecalledRecord pairs a record with its cosine similarity to the query.
type RecalledRecord struct {
	MemoryRecord
	Similarity float64 `json:"similarity"`
}

// StorageSuggestion is the output of the memory suggester heuristic.
type StorageSuggestion struct {
	Store      bool       `json:"store"`
	Type       MemoryType `json:"type"`
	Importance float64    `json:"importance"`
	TTLDays    int        `json:"ttl_days"`
	Reason     string     `json:"reason"`
}
