package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyphraseAgent_Run(t *testing.T) {
	caller := &fakeCaller{responses: []string{`{"phrases":[
		{"phrase":"rate decision","score":0.9,"ngram":2,"variants":["rate call"]},
		{"phrase":"central bank","score":1.7,"variants":[]},
		{"phrase":"inflation","score":0.7,"ngram":1},
		{"phrase":"  ","score":0.5},
		{"phrase":"market rally","score":0.6,"ngram":2},
		{"phrase":"benchmark rate","score":0.5,"ngram":2},
		{"phrase":"easing","score":0.4,"ngram":1}
	]}`}}
	agent := &KeyphraseAgent{}

	out, err := agent.Run(context.Background(), Input{Query: "rates", Docs: sampleDocs()}, caller, agentLedger())
	require.NoError(t, err)

	result := out.Result.(*KeyphraseResult)
	require.Len(t, result.Phrases, 6) // blank phrase dropped
	// Scores clamp to [0,1], missing ngram derives from word count.
	assert.Equal(t, 1.0, result.Phrases[1].Score)
	assert.Equal(t, 2, result.Phrases[1].Ngram)
	require.Len(t, out.Insights, 1)
	assert.NotEmpty(t, out.Insights[0].EvidenceRefs)
}

func TestKeyphraseAgent_RejectsSparseOutput(t *testing.T) {
	caller := &fakeCaller{responses: []string{`{"phrases":[{"phrase":"one","score":0.5,"ngram":1}]}`}}
	agent := &KeyphraseAgent{}

	_, err := agent.Run(context.Background(), Input{Query: "q", Docs: sampleDocs()}, caller, agentLedger())
	assert.ErrorContains(t, err, "too sparse")
}

func TestExpansionAgent_Run(t *testing.T) {
	caller := &fakeCaller{responses: []string{
		`{"intents":["research"],"expansions":["rate decision news","Rate Decision News","central bank policy"],"negatives":["sports"]}`,
	}}
	agent := &ExpansionAgent{}

	out, err := agent.Run(context.Background(), Input{Query: "rates"}, caller, agentLedger())
	require.NoError(t, err)

	result := out.Result.(*ExpansionResult)
	// Case-insensitive duplicates collapse.
	assert.Equal(t, []string{"rate decision news", "central bank policy"}, result.Expansions)
	assert.Equal(t, []string{"sports"}, result.Negatives)
}

func TestExpansionAgent_RejectsEmptyExpansions(t *testing.T) {
	caller := &fakeCaller{responses: []string{`{"intents":["x"],"expansions":[],"negatives":[]}`}}
	agent := &ExpansionAgent{}

	_, err := agent.Run(context.Background(), Input{Query: "q"}, caller, agentLedger())
	assert.ErrorContains(t, err, "no variants")
}
