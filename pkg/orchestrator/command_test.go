package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCommand_TwoWordBindsFirst(t *testing.T) {
	spec, rest, ok := normalizeCommand("/analyze sentiment window=3d")
	require.True(t, ok)
	assert.Equal(t, "analyze_sentiment", spec.Name)
	assert.Equal(t, "window=3d", rest)
}

func TestNormalizeCommand_SingleWord(t *testing.T) {
	spec, rest, ok := normalizeCommand("/trends window=6h lang=ru")
	require.True(t, ok)
	assert.Equal(t, "trends", spec.Name)
	assert.Equal(t, "window=6h lang=ru", rest)
}

func TestNormalizeCommand_AskKeepsQuestion(t *testing.T) {
	spec, rest, ok := normalizeCommand("/ask why did yields spike --depth=2")
	require.True(t, ok)
	assert.Equal(t, "ask", spec.Name)
	assert.Equal(t, "why did yields spike --depth=2", rest)
}

func TestNormalizeCommand_Unknown(t *testing.T) {
	_, _, ok := normalizeCommand("/unknown")
	assert.False(t, ok)
	_, _, ok = normalizeCommand("plain text")
	assert.False(t, ok)
}

func TestParseArgs_Full(t *testing.T) {
	args, err := parseArgs(`window=3d lang=ru sources=reuters.com,bloomberg.com topic="rate hikes" k=7 no-rerank`)
	require.NoError(t, err)
	assert.Equal(t, "3d", args.Window)
	assert.Equal(t, "ru", args.Lang)
	assert.Equal(t, []string{"reuters.com", "bloomberg.com"}, args.Sources)
	assert.Equal(t, "rate hikes", args.Topic)
	assert.Equal(t, 7, args.KFinal)
	require.NotNil(t, args.Rerank)
	assert.False(t, *args.Rerank)
}

func TestParseArgs_KClamped(t *testing.T) {
	args, err := parseArgs("k=50")
	require.NoError(t, err)
	assert.Equal(t, 10, args.KFinal)

	args, err = parseArgs("k=1")
	require.NoError(t, err)
	assert.Equal(t, 5, args.KFinal)

	_, err = parseArgs("k=many")
	assert.Error(t, err)
}

func TestParseArgs_TrailingAndFlags(t *testing.T) {
	args, err := parseArgs("why did yields spike --depth=2 --rerank")
	require.NoError(t, err)
	assert.Equal(t, "why did yields spike", args.Trailing)
	assert.Equal(t, "2", args.Params["depth"])
	require.NotNil(t, args.Rerank)
	assert.True(t, *args.Rerank)
}

func TestIsGeneralKnowledge(t *testing.T) {
	assert.True(t, isGeneralKnowledge("What is quantitative easing"))
	assert.True(t, isGeneralKnowledge("что такое инфляция"))
	assert.False(t, isGeneralKnowledge("why did yields spike this week"))
}
