package models

// GraphNode is an entity in a transient per-query knowledge graph.
type GraphNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

// GraphEdge is a weighted relation between two nodes.
type GraphEdge struct {
	Src    string  `json:"src"`
	Tgt    string  `json:"tgt"`
	Type   string  `json:"type"`
	Weight float64 `json:"weight"`
}

// KnowledgeGraph lives for the duration of a single /graph query.
// Construction enforces MaxNodes/MaxEdges; the graph never outlives
// the response.
type KnowledgeGraph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// TimelineEvent is an extracted news event scoped to one /events query.
type TimelineEvent struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	StartDate    string   `json:"start_date"`
	EndDate      string   `json:"end_date"`
	Entities     []string `json:"entities,omitempty"`
	SourceDocIDs []string `json:"source_doc_ids,omitempty"`
}

// CausalLink is an inferred relation between two timeline events.
type CausalLink struct {
	CauseID    string  `json:"cause_id"`
	EffectID   string  `json:"effect_id"`
	Relation   string  `json:"relation"`
	Confidence float64 `json:"confidence"`
}
