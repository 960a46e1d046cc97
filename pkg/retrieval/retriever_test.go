package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newslens/newslens/pkg/budget"
	"github.com/newslens/newslens/pkg/models"
)

type fakeArm struct {
	docs       []models.Document
	err        error
	gotFilter  Filter
	callCount  int
	lastQuery  string
}

func (f *fakeArm) SearchLexical(_ context.Context, query string, filter Filter) ([]models.Document, error) {
	f.callCount++
	f.lastQuery = query
	f.gotFilter = filter
	return f.docs, f.err
}

func (f *fakeArm) SearchVector(_ context.Context, query string, filter Filter) ([]models.Document, error) {
	f.callCount++
	f.lastQuery = query
	f.gotFilter = filter
	return f.docs, f.err
}

type fakeReranker struct {
	reverse bool
	err     error
	calls   int
}

func (f *fakeReranker) Rerank(_ context.Context, _ string, docs []models.Document, _ *budget.Ledger) ([]models.Document, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if !f.reverse {
		return docs, nil
	}
	out := make([]models.Document, len(docs))
	for i, d := range docs {
		out[len(docs)-1-i] = d
	}
	return out, nil
}

func manyDocs(n int, prefix string) []models.Document {
	docs := make([]models.Document, n)
	for i := range docs {
		docs[i] = doc(prefix+string(rune('a'+i)), "2026-08-20", "snippet")
	}
	return docs
}

func testLedger() *budget.Ledger {
	return budget.NewLedger(budget.Limits{
		MaxTokens:    10000,
		MaxCostCents: 100,
		MaxDuration:  time.Minute,
	})
}

func newTestRetriever(lex, vec *fakeArm, rr Reranker) *Retriever {
	r := NewRetriever(lex, vec, rr, nil)
	r.now = func() time.Time { return time.Date(2026, 8, 21, 12, 0, 0, 0, time.UTC) }
	return r
}

func TestRetrieve_HybridFusion(t *testing.T) {
	lex := &fakeArm{docs: []models.Document{
		doc("a1", "2026-08-20", "alpha"),
		doc("a2", "2026-08-19", "beta"),
	}}
	vec := &fakeArm{docs: []models.Document{
		doc("a2", "2026-08-19", "beta"),
		doc("a3", "2026-08-18", "gamma"),
	}}
	r := newTestRetriever(lex, vec, nil)

	docs, err := r.Retrieve(context.Background(), Query{
		Text: "ai regulation", Window: "24h", KFinal: 5,
	}, testLedger())
	require.NoError(t, err)

	// a2 appears in both arms so it outranks either single-arm doc.
	require.Len(t, docs, 3)
	assert.Equal(t, "a2", docs[0].ArticleID)
	assert.Equal(t, 1, lex.callCount)
	assert.Equal(t, 1, vec.callCount)
	assert.Equal(t, "ai regulation", lex.lastQuery)
}

func TestRetrieve_WindowBoundsFilter(t *testing.T) {
	lex := &fakeArm{}
	vec := &fakeArm{}
	r := newTestRetriever(lex, vec, nil)

	_, err := r.Retrieve(context.Background(), Query{
		Text: "q", Window: "3d", Language: "EN", Sources: []string{"reuters.com"}, KFinal: 5,
	}, testLedger())
	require.NoError(t, err)

	want := time.Date(2026, 8, 18, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, want, lex.gotFilter.Since)
	assert.Equal(t, "en", lex.gotFilter.Language)
	assert.Equal(t, []string{"reuters.com"}, lex.gotFilter.Sources)
	assert.Equal(t, candidateLimit, lex.gotFilter.Limit)
}

func TestRetrieve_RejectsBadKFinal(t *testing.T) {
	r := newTestRetriever(&fakeArm{}, &fakeArm{}, nil)

	_, err := r.Retrieve(context.Background(), Query{Text: "q", Window: "24h", KFinal: 4}, testLedger())
	assert.Error(t, err)
	_, err = r.Retrieve(context.Background(), Query{Text: "q", Window: "24h", KFinal: 11}, testLedger())
	assert.Error(t, err)
}

func TestRetrieve_RejectsUnknownWindow(t *testing.T) {
	r := newTestRetriever(&fakeArm{}, &fakeArm{}, nil)

	_, err := r.Retrieve(context.Background(), Query{Text: "q", Window: "45m", KFinal: 5}, testLedger())
	assert.ErrorContains(t, err, "unknown window")
}

func TestRetrieve_VectorArmUnavailable(t *testing.T) {
	lex := &fakeArm{docs: []models.Document{doc("a1", "2026-08-20", "alpha")}}
	vec := &fakeArm{err: ErrIndexUnavailable}
	r := newTestRetriever(lex, vec, nil)

	docs, err := r.Retrieve(context.Background(), Query{Text: "q", Window: "24h", KFinal: 5}, testLedger())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a1", docs[0].ArticleID)
}

func TestRetrieve_HardArmFailure(t *testing.T) {
	lex := &fakeArm{err: errors.New("connection refused")}
	vec := &fakeArm{}
	r := newTestRetriever(lex, vec, nil)

	_, err := r.Retrieve(context.Background(), Query{Text: "q", Window: "24h", KFinal: 5}, testLedger())
	assert.ErrorContains(t, err, "lexical search failed")
}

func TestRetrieve_TruncatesToKFinal(t *testing.T) {
	lex := &fakeArm{docs: manyDocs(20, "lx")}
	vec := &fakeArm{docs: manyDocs(20, "vc")}
	r := newTestRetriever(lex, vec, nil)

	docs, err := r.Retrieve(context.Background(), Query{Text: "q", Window: "24h", KFinal: 7}, testLedger())
	require.NoError(t, err)
	assert.Len(t, docs, 7)
}

func TestRetrieve_RerankReorders(t *testing.T) {
	lex := &fakeArm{docs: []models.Document{
		doc("a1", "2026-08-20", "alpha"),
		doc("a2", "2026-08-19", "beta"),
		doc("a3", "2026-08-18", "gamma"),
		doc("a4", "2026-08-17", "delta"),
		doc("a5", "2026-08-16", "epsilon"),
	}}
	vec := &fakeArm{err: ErrIndexUnavailable}
	rr := &fakeReranker{reverse: true}
	r := newTestRetriever(lex, vec, rr)

	docs, err := r.Retrieve(context.Background(), Query{
		Text: "q", Window: "24h", KFinal: 5, UseRerank: true,
	}, testLedger())
	require.NoError(t, err)
	assert.Equal(t, 1, rr.calls)
	assert.Equal(t, "a5", docs[0].ArticleID)
}

func TestRetrieve_RerankFailureKeepsFusedOrder(t *testing.T) {
	lex := &fakeArm{docs: []models.Document{
		doc("a1", "2026-08-20", "alpha"),
		doc("a2", "2026-08-19", "beta"),
	}}
	vec := &fakeArm{err: ErrIndexUnavailable}
	rr := &fakeReranker{err: errors.New("model unavailable")}
	r := newTestRetriever(lex, vec, rr)
	ledger := testLedger()

	docs, err := r.Retrieve(context.Background(), Query{
		Text: "q", Window: "24h", KFinal: 5, UseRerank: true,
	}, ledger)
	require.NoError(t, err)
	assert.Equal(t, "a1", docs[0].ArticleID)
	assert.Contains(t, ledger.Warnings(), "rerank_failed")
}

func TestRetrieve_RerankSkippedWhenDisabled(t *testing.T) {
	lex := &fakeArm{docs: []models.Document{
		doc("a1", "2026-08-20", "alpha"),
		doc("a2", "2026-08-19", "beta"),
	}}
	rr := &fakeReranker{reverse: true}
	r := newTestRetriever(lex, &fakeArm{err: ErrIndexUnavailable}, rr)

	_, err := r.Retrieve(context.Background(), Query{
		Text: "q", Window: "24h", KFinal: 5, UseRerank: false,
	}, testLedger())
	require.NoError(t, err)
	assert.Equal(t, 0, rr.calls)
}
