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

// Default knowledge-graph caps; the degradation plan may lower them.
const (
	defaultHopLimit = 4
	defaultMaxNodes = 200
	defaultMaxEdges = 600
)

// GraphResult is the typed payload of the graph agent.
type GraphResult struct {
	Graph  models.KnowledgeGraph `json:"graph"`
	Paths  [][]string            `json:"paths"`
	Answer string                `json:"answer"`
}

// GraphAgent builds a transient knowledge graph over the document set:
// entity extraction (model first, regex fallback), co-occurrence
// edges, bounded BFS from query-matched seeds, and an answer grounded
// in the extracted subgraph.
type GraphAgent struct{}

func (a *GraphAgent) Name() string       { return "graph" }
func (a *GraphAgent) ParallelSafe() bool { return false }

type modelEntities struct {
	Entities []struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"entities"`
}

func (a *GraphAgent) Run(ctx context.Context, in Input, router ModelCaller, ledger *budget.Ledger) (*Output, error) {
	maxNodes := defaultMaxNodes
	maxEdges := defaultMaxEdges
	hopLimit := defaultHopLimit
	if in.Plan.MaxNodes > 0 {
		maxNodes = in.Plan.MaxNodes
	}
	if in.Plan.MaxEdges > 0 {
		maxEdges = in.Plan.MaxEdges
	}
	if in.Plan.HopLimit > 0 {
		hopLimit = in.Plan.HopLimit
	}
	if h, ok := in.Params["hops"]; ok {
		if n, err := parsePositive(h); err == nil && n < hopLimit {
			hopLimit = n
		}
	}

	var warnings []string
	entities, entityDocs := a.extractEntities(ctx, in, router, ledger, &warnings)
	if len(entities) == 0 {
		return nil, fmt.Errorf("no entities extracted from %d documents", len(in.Docs))
	}

	graph := buildGraph(entities, entityDocs, maxNodes, maxEdges)
	seeds := seedNodes(graph, in.Query)
	paths := bfsPaths(graph, seeds, hopLimit)

	answer, model, err := a.answer(ctx, in, router, ledger, graph, paths)
	if err != nil {
		return nil, err
	}

	result := &GraphResult{Graph: graph, Paths: paths, Answer: answer}
	insight := models.Insight{
		Type:         models.InsightFact,
		Text:         models.Truncate(answer, models.MaxInsightLen),
		EvidenceRefs: refsFor(in.Docs, 3),
	}

	return &Output{
		Agent:    a.Name(),
		Insights: []models.Insight{insight},
		Result:   result,
		Warnings: warnings,
		Model:    model,
	}, nil
}

// extractEntities asks the model for typed entities and falls back to
// capitalized-sequence matching when the model call or parse fails.
func (a *GraphAgent) extractEntities(ctx context.Context, in Input, router ModelCaller, ledger *budget.Ledger, warnings *[]string) (map[string]string, map[string][]int) {
	prompt := `Extract the named entities (people, organizations, locations, products) from these news snippets.
Return ONLY JSON: {"entities":[{"name":"...","type":"org"}]}`

	entityType := make(map[string]string)
	completion, _, err := router.Call(ctx, router.RouteFor(config.TaskGraph), prompt, in.Docs, 768, ledger)
	if err == nil {
		var raw modelEntities
		if derr := decodeModelJSON(completion.Text, &raw); derr == nil {
			for _, e := range raw.Entities {
				name := strings.TrimSpace(e.Name)
				if name != "" {
					entityType[name] = e.Type
				}
			}
		}
	}
	if len(entityType) == 0 {
		*warnings = append(*warnings, "graph_ner_fallback")
		for _, name := range regexEntities(in.Docs) {
			entityType[name] = "unknown"
		}
	}

	// Map each entity to the documents mentioning it.
	entityDocs := make(map[string][]int)
	for name := range entityType {
		for i, d := range in.Docs {
			text := d.Title + " " + d.Snippet
			if strings.Contains(strings.ToLower(text), strings.ToLower(name)) {
				entityDocs[name] = append(entityDocs[name], i)
			}
		}
		if len(entityDocs[name]) == 0 {
			delete(entityType, name)
		}
	}
	return entityType, entityDocs
}

var capSeqRe = regexp.MustCompile(`\b[A-ZА-ЯЁ][a-zа-яё]+(?:\s+[A-ZА-ЯЁ][a-zа-яё]+){0,3}\b`)

// regexEntities is the NER fallback: repeated capitalized sequences.
func regexEntities(docs []models.Document) []string {
	freq := make(map[string]int)
	for _, d := range docs {
		for _, m := range capSeqRe.FindAllString(d.Title+" "+d.Snippet, -1) {
			freq[m]++
		}
	}
	var out []string
	for name, n := range freq {
		if n >= 2 {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// buildGraph creates co-occurrence edges weighted by shared document
// count, trimming to the node and edge caps by degree and weight.
func buildGraph(entityType map[string]string, entityDocs map[string][]int, maxNodes, maxEdges int) models.KnowledgeGraph {
	names := make([]string, 0, len(entityDocs))
	for name := range entityDocs {
		names = append(names, name)
	}
	// Most-mentioned entities first, deterministic on ties.
	sort.Slice(names, func(i, j int) bool {
		if len(entityDocs[names[i]]) != len(entityDocs[names[j]]) {
			return len(entityDocs[names[i]]) > len(entityDocs[names[j]])
		}
		return names[i] < names[j]
	})
	if len(names) > maxNodes {
		names = names[:maxNodes]
	}

	var graph models.KnowledgeGraph
	for _, name := range names {
		graph.Nodes = append(graph.Nodes, models.GraphNode{
			ID:    name,
			Label: name,
			Type:  entityType[name],
		})
	}

	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			shared := intersectCount(entityDocs[names[i]], entityDocs[names[j]])
			if shared == 0 {
				continue
			}
			graph.Edges = append(graph.Edges, models.GraphEdge{
				Src:    names[i],
				Tgt:    names[j],
				Type:   "co_occurs",
				Weight: float64(shared),
			})
		}
	}
	sort.SliceStable(graph.Edges, func(i, j int) bool {
		return graph.Edges[i].Weight > graph.Edges[j].Weight
	})
	if len(graph.Edges) > maxEdges {
		graph.Edges = graph.Edges[:maxEdges]
	}
	return graph
}

func intersectCount(a, b []int) int {
	set := make(map[int]bool, len(a))
	for _, x := range a {
		set[x] = true
	}
	n := 0
	for _, x := range b {
		if set[x] {
			n++
		}
	}
	return n
}

// seedNodes picks the nodes whose labels overlap the query terms; when
// nothing matches, the best-connected node seeds the traversal.
func seedNodes(graph models.KnowledgeGraph, query string) []string {
	q := strings.ToLower(query)
	var seeds []string
	for _, n := range graph.Nodes {
		if strings.Contains(q, strings.ToLower(n.Label)) || strings.Contains(strings.ToLower(n.Label), q) {
			seeds = append(seeds, n.ID)
		}
	}
	if len(seeds) == 0 && len(graph.Nodes) > 0 {
		seeds = []string{graph.Nodes[0].ID}
	}
	return seeds
}

// bfsPaths walks the graph breadth-first from every seed up to the hop
// limit, recording the path to each reached node.
func bfsPaths(graph models.KnowledgeGraph, seeds []string, hopLimit int) [][]string {
	adj := make(map[string][]string)
	for _, e := range graph.Edges {
		adj[e.Src] = append(adj[e.Src], e.Tgt)
		adj[e.Tgt] = append(adj[e.Tgt], e.Src)
	}

	var paths [][]string
	for _, seed := range seeds {
		visited := map[string]bool{seed: true}
		queue := [][]string{{seed}}
		for len(queue) > 0 {
			path := queue[0]
			queue = queue[1:]
			if len(path) > 1 {
				paths = append(paths, path)
			}
			if len(path) > hopLimit {
				continue
			}
			last := path[len(path)-1]
			next := append([]string(nil), adj[last]...)
			sort.Strings(next)
			for _, n := range next {
				if visited[n] {
					continue
				}
				visited[n] = true
				withNext := make([]string, len(path)+1)
				copy(withNext, path)
				withNext[len(path)] = n
				queue = append(queue, withNext)
			}
		}
	}
	return paths
}

func (a *GraphAgent) answer(ctx context.Context, in Input, router ModelCaller, ledger *budget.Ledger, graph models.KnowledgeGraph, paths [][]string) (string, string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Question: %s\nEntity relations found in the news:\n", in.Query)
	limit := len(paths)
	if limit > 15 {
		limit = 15
	}
	for _, p := range paths[:limit] {
		fmt.Fprintf(&sb, "- %s\n", strings.Join(p, " -> "))
	}
	sb.WriteString("Answer the question from these relations and the snippets, in 2-3 sentences.")

	completion, meta, err := router.Call(ctx, router.RouteFor(config.TaskGraph), sb.String(), in.Docs, 512, ledger)
	if err != nil {
		return "", "", err
	}
	answer := strings.TrimSpace(completion.Text)
	if answer == "" {
		return "", "", fmt.Errorf("graph answer is empty")
	}
	return answer, meta.Model, nil
}

func parsePositive(s string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("value must be positive")
	}
	return n, nil
}
