package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrustScorer_Whitelist(t *testing.T) {
	ts := NewTrustScorer([]string{"reuters.com", "www.Bloomberg.com"}, nil)

	score, blocked := ts.Score("reuters.com")
	assert.False(t, blocked)
	assert.Equal(t, 1.0, score)

	// Normalization strips scheme, www and path variants.
	score, _ = ts.Score("https://www.reuters.com/markets/article-1")
	assert.Equal(t, 1.0, score)
	score, _ = ts.Score("bloomberg.com")
	assert.Equal(t, 1.0, score)
}

func TestTrustScorer_SubdomainInherits(t *testing.T) {
	ts := NewTrustScorer([]string{"reuters.com"}, []string{"spamnews.example"})

	score, blocked := ts.Score("graphics.reuters.com")
	assert.False(t, blocked)
	assert.Equal(t, 1.0, score)

	_, blocked = ts.Score("feed.spamnews.example")
	assert.True(t, blocked)
}

func TestTrustScorer_Blacklist(t *testing.T) {
	ts := NewTrustScorer(nil, []string{"fakenews.example"})

	score, blocked := ts.Score("https://fakenews.example/story")
	assert.True(t, blocked)
	assert.Equal(t, 0.0, score)
}

func TestTrustScorer_DefaultScore(t *testing.T) {
	ts := NewTrustScorer([]string{"reuters.com"}, []string{"fakenews.example"})

	score, blocked := ts.Score("some-local-paper.net")
	assert.False(t, blocked)
	assert.Equal(t, 0.7, score)

	// Missing source falls back to the default weight, never a block.
	score, blocked = ts.Score("")
	assert.False(t, blocked)
	assert.Equal(t, 0.7, score)
}
