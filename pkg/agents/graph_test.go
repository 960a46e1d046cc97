package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newslens/newslens/pkg/budget"
	"github.com/newslens/newslens/pkg/models"
)

func TestRegexEntities(t *testing.T) {
	docs := []models.Document{
		{Title: "Acme Corp raises prices", Snippet: "Acme Corp announced changes."},
		{Title: "Markets react", Snippet: "Analysts discussed Acme Corp today."},
	}
	entities := regexEntities(docs)
	assert.Contains(t, entities, "Acme Corp")
}

func TestBuildGraph_CooccurrenceEdges(t *testing.T) {
	entityType := map[string]string{"Acme": "org", "Jane Doe": "person", "Paris": "loc"}
	entityDocs := map[string][]int{
		"Acme":     {0, 1},
		"Jane Doe": {0},
		"Paris":    {2},
	}
	graph := buildGraph(entityType, entityDocs, 10, 10)

	assert.Len(t, graph.Nodes, 3)
	require.Len(t, graph.Edges, 1) // only Acme and Jane Doe share a document
	assert.Equal(t, "co_occurs", graph.Edges[0].Type)
	assert.Equal(t, 1.0, graph.Edges[0].Weight)
}

func TestBuildGraph_RespectsCaps(t *testing.T) {
	entityType := make(map[string]string)
	entityDocs := make(map[string][]int)
	for _, name := range []string{"A", "B", "C", "D"} {
		entityType[name] = "org"
		entityDocs[name] = []int{0} // everything co-occurs
	}
	graph := buildGraph(entityType, entityDocs, 3, 2)
	assert.Len(t, graph.Nodes, 3)
	assert.Len(t, graph.Edges, 2)
}

func TestBFSPaths_HopLimit(t *testing.T) {
	graph := models.KnowledgeGraph{
		Nodes: []models.GraphNode{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}},
		Edges: []models.GraphEdge{
			{Src: "a", Tgt: "b"}, {Src: "b", Tgt: "c"}, {Src: "c", Tgt: "d"},
		},
	}

	paths := bfsPaths(graph, []string{"a"}, 1)
	require.Len(t, paths, 1)
	assert.Equal(t, []string{"a", "b"}, paths[0])

	paths = bfsPaths(graph, []string{"a"}, 3)
	assert.Len(t, paths, 3) // a-b, a-b-c, a-b-c-d
}

func TestSeedNodes(t *testing.T) {
	graph := models.KnowledgeGraph{Nodes: []models.GraphNode{
		{ID: "Acme", Label: "Acme"},
		{ID: "Paris", Label: "Paris"},
	}}

	assert.Equal(t, []string{"Acme"}, seedNodes(graph, "what is acme doing"))
	// No match: best-connected node seeds the walk.
	assert.Equal(t, []string{"Acme"}, seedNodes(graph, "unrelated"))
}

func TestGraphAgent_Run_ModelNER(t *testing.T) {
	caller := &fakeCaller{responses: []string{
		`{"entities":[{"name":"central bank","type":"org"},{"name":"inflation","type":"topic"}]}`,
		`The central bank's decision is linked to inflation expectations.`,
	}}
	agent := &GraphAgent{}

	out, err := agent.Run(context.Background(), Input{
		Query: "central bank", Docs: sampleDocs(),
	}, caller, agentLedger())
	require.NoError(t, err)

	result := out.Result.(*GraphResult)
	assert.NotEmpty(t, result.Graph.Nodes)
	assert.NotEmpty(t, result.Answer)
	assert.Empty(t, out.Warnings)
}

func TestGraphAgent_Run_FallbackNER(t *testing.T) {
	// First call returns unparseable entities, so the regex fallback
	// runs; the second call answers.
	docs := []models.Document{
		sampleDoc("a1", "2026-08-24", "Acme Corp expands", "Acme Corp opened offices.", "https://x.com/1"),
		sampleDoc("a2", "2026-08-25", "Acme Corp hiring", "Acme Corp asked regulators.", "https://x.com/2"),
	}
	caller := &fakeCaller{responses: []string{
		`not json`,
		`Acme Corp is expanding.`,
	}}
	agent := &GraphAgent{}

	out, err := agent.Run(context.Background(), Input{Query: "Acme Corp", Docs: docs}, caller, agentLedger())
	require.NoError(t, err)
	assert.Contains(t, out.Warnings, "graph_ner_fallback")
}

func TestGraphAgent_PlanCapsApply(t *testing.T) {
	caller := &fakeCaller{responses: []string{
		`{"entities":[{"name":"central bank","type":"org"},{"name":"inflation","type":"topic"},{"name":"markets","type":"topic"}]}`,
		`Answer text.`,
	}}
	agent := &GraphAgent{}

	out, err := agent.Run(context.Background(), Input{
		Query: "central bank",
		Docs:  sampleDocs(),
		Plan:  budget.Plan{MaxNodes: 2, MaxEdges: 1, HopLimit: 1},
	}, caller, agentLedger())
	require.NoError(t, err)

	result := out.Result.(*GraphResult)
	assert.LessOrEqual(t, len(result.Graph.Nodes), 2)
	assert.LessOrEqual(t, len(result.Graph.Edges), 1)
}
