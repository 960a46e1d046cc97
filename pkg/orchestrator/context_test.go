package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newslens/newslens/pkg/budget"
	"github.com/newslens/newslens/pkg/models"
)

func buildLedger(t *testing.T) *budget.Ledger {
	t.Helper()
	cfg := testConfig()
	return budget.NewLedger(budget.Limits{
		MaxTokens:    cfg.Budget.MaxTokensPerCommand,
		MaxCostCents: cfg.Budget.MaxCostCentsPerCommand,
		MaxDuration:  cfg.Budget.MaxDuration(),
	})
}

func TestBuild_DefaultsApplied(t *testing.T) {
	fr := &fakeRetriever{script: [][]models.Document{testDocs(6)}}
	b := NewContextBuilder(testConfig(), fr)

	c, err := b.Build(context.Background(), Request{Command: "/trends", CorrelationID: "x"}, buildLedger(t))
	require.NoError(t, err)
	assert.Equal(t, "24h", c.Window)
	assert.Equal(t, 6, c.KFinal)
	assert.Equal(t, "en", c.Language)
	assert.True(t, c.UseRerank)
	assert.Equal(t, "latest news", c.Query)
	assert.Len(t, c.Docs, 6)
}

func TestBuild_QueryPriority(t *testing.T) {
	fr := &fakeRetriever{script: [][]models.Document{testDocs(6)}}
	b := NewContextBuilder(testConfig(), fr)

	c, err := b.Build(context.Background(), Request{
		Command: `/trends query="bond yields" topic=rates free text here`,
	}, buildLedger(t))
	require.NoError(t, err)
	assert.Equal(t, "bond yields", c.Query)
}

func TestBuild_GeneralKnowledgeAskSkipsRetrieval(t *testing.T) {
	fr := &fakeRetriever{}
	b := NewContextBuilder(testConfig(), fr)

	c, err := b.Build(context.Background(), Request{Command: "/ask what is a repo rate"}, buildLedger(t))
	require.NoError(t, err)
	assert.Empty(t, fr.queries)
	assert.Empty(t, c.Docs)
}

func TestBuild_CompetitorsRequireDomainsOrNiche(t *testing.T) {
	fr := &fakeRetriever{script: [][]models.Document{testDocs(6)}}
	b := NewContextBuilder(testConfig(), fr)

	_, err := b.Build(context.Background(), Request{Command: "/analyze competitors"}, buildLedger(t))
	var oe *Error
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, models.CodeValidationFailed, oe.Code)
	assert.Contains(t, oe.Tech, "domains, niche")

	c, err := b.Build(context.Background(), Request{
		Command: "/analyze competitors domains=reuters.com,bloomberg.com",
	}, buildLedger(t))
	require.NoError(t, err)
	assert.Equal(t, "reuters.com,bloomberg.com", c.Params["domains"])

	c, err = b.Build(context.Background(), Request{
		Command: "/analyze competitors niche=fintech",
	}, buildLedger(t))
	require.NoError(t, err)
	assert.Equal(t, "fintech", c.Query)
}

func TestBuild_FilterRelaxation(t *testing.T) {
	// The requested window is already the widest rung, so recovery goes
	// straight from the ladder to filter relaxation.
	fr := &fakeRetriever{script: [][]models.Document{nil, testDocs(5)}}
	b := NewContextBuilder(testConfig(), fr)
	ledger := buildLedger(t)

	c, err := b.Build(context.Background(), Request{
		Command: "/trends window=1y sources=niche.example lang=ru",
	}, ledger)
	require.NoError(t, err)

	require.Len(t, fr.queries, 2)
	assert.Equal(t, "auto", fr.queries[1].Language)
	assert.Empty(t, fr.queries[1].Sources)
	assert.Contains(t, ledger.Warnings(), "degradation_filters_relaxed")
	assert.Empty(t, c.Sources)
}

func TestBuild_RerankOffFallback(t *testing.T) {
	fr := &fakeRetriever{script: [][]models.Document{nil, nil, testDocs(6)}}
	b := NewContextBuilder(testConfig(), fr)
	ledger := buildLedger(t)

	c, err := b.Build(context.Background(), Request{Command: "/trends window=1y"}, ledger)
	require.NoError(t, err)

	require.Len(t, fr.queries, 3)
	last := fr.queries[2]
	assert.False(t, last.UseRerank)
	assert.Equal(t, 10, last.KFinal)
	assert.Contains(t, ledger.Warnings(), "degradation_rerank_disabled")
	assert.False(t, c.UseRerank)
}

func TestBuild_InvalidWindow(t *testing.T) {
	b := NewContextBuilder(testConfig(), &fakeRetriever{})

	_, err := b.Build(context.Background(), Request{Command: "/trends window=42min"}, buildLedger(t))
	var oe *Error
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, models.CodeValidationFailed, oe.Code)
}

func TestBuild_InvalidDocDate(t *testing.T) {
	docs := testDocs(5)
	docs[2].PublishedDate = "26 Aug 2026"
	b := NewContextBuilder(testConfig(), &fakeRetriever{script: [][]models.Document{docs}})

	_, err := b.Build(context.Background(), Request{Command: "/trends"}, buildLedger(t))
	var oe *Error
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, models.CodeInternal, oe.Code)
}

func TestBuild_KPinnedToRetrievedDocs(t *testing.T) {
	b := NewContextBuilder(testConfig(), &fakeRetriever{script: [][]models.Document{testDocs(5)}})

	c, err := b.Build(context.Background(), Request{Command: "/trends k=10"}, buildLedger(t))
	require.NoError(t, err)
	assert.Equal(t, 5, c.KFinal)
}
