package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateTokens_HeuristicFloor(t *testing.T) {
	// Providers without a tokenizer use the chars/4 heuristic; short
	// prompts must still settle at least one token.
	assert.Equal(t, 0, EstimateTokens("", "anthropic"))
	assert.Equal(t, 1, EstimateTokens("p", "anthropic"))
	assert.Equal(t, 1, EstimateTokens("abc", "gemini"))
	assert.Equal(t, 2, EstimateTokens("abcdefgh", "anthropic"))
}
