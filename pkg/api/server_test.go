package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newslens/newslens/pkg/database"
	"github.com/newslens/newslens/pkg/models"
	"github.com/newslens/newslens/pkg/orchestrator"
	"github.com/newslens/newslens/pkg/retrieval"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeHandler struct {
	resp    *models.AnalysisResponse
	errResp *models.ErrorResponse
	last    orchestrator.Request
}

func (f *fakeHandler) Handle(_ context.Context, req orchestrator.Request) (*models.AnalysisResponse, *models.ErrorResponse) {
	f.last = req
	return f.resp, f.errResp
}

type fakeSearcher struct {
	docs []models.Document
	err  error
	last retrieval.Filter
}

func (f *fakeSearcher) SearchLexical(_ context.Context, _ string, filter retrieval.Filter) ([]models.Document, error) {
	f.last = filter
	if f.err != nil {
		return nil, f.err
	}
	docs := f.docs
	if filter.Offset < len(docs) {
		docs = docs[filter.Offset:]
	} else {
		docs = nil
	}
	if len(docs) > filter.Limit {
		docs = docs[:filter.Limit]
	}
	return docs, nil
}

type fakeDB struct{ err error }

func (f *fakeDB) Health(context.Context) (*database.HealthStatus, error) {
	if f.err != nil {
		return &database.HealthStatus{Status: "unhealthy"}, f.err
	}
	return &database.HealthStatus{Status: "healthy"}, nil
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func searchDocs(n int) []models.Document {
	docs := make([]models.Document, 0, n)
	for i := 0; i < n; i++ {
		docs = append(docs, models.Document{
			ArticleID:     fmt.Sprintf("a%d", i+1),
			Title:         fmt.Sprintf("Story %d", i+1),
			URL:           fmt.Sprintf("https://www.reuters.com/story-%d", i+1),
			PublishedDate: time.Now().UTC().AddDate(0, 0, -i).Format("2006-01-02"),
			Language:      "en",
			Score:         1.0 - float64(i)*0.01,
			Snippet:       "snippet",
		})
	}
	return docs
}

func TestQuery_Success(t *testing.T) {
	handler := &fakeHandler{resp: &models.AnalysisResponse{
		Header: "Trends for 24h",
		TLDR:   "tldr",
		Meta:   models.Meta{Confidence: 0.8, CorrelationID: "ignored"},
	}}
	srv := NewServer(handler, &fakeSearcher{}, &fakeDB{}, nil, nil)

	w := postJSON(t, srv.Router(), "/v1/query", gin.H{"command": "/trends", "user_id": "u1"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.AnalysisResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Trends for 24h", resp.Header)

	assert.Equal(t, "/trends", handler.last.Command)
	assert.Equal(t, "u1", handler.last.UserID)
	assert.NotEmpty(t, handler.last.CorrelationID)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestQuery_ErrorCodeMapping(t *testing.T) {
	cases := []struct {
		code   models.ErrorCode
		status int
	}{
		{models.CodeValidationFailed, http.StatusBadRequest},
		{models.CodeNoData, http.StatusNotFound},
		{models.CodeBudgetExceeded, http.StatusTooManyRequests},
		{models.CodeModelUnavailable, http.StatusServiceUnavailable},
		{models.CodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			handler := &fakeHandler{errResp: models.NewErrorResponse(tc.code, "tech", "en", models.Meta{})}
			srv := NewServer(handler, &fakeSearcher{}, &fakeDB{}, nil, nil)

			w := postJSON(t, srv.Router(), "/v1/query", gin.H{"command": "/trends"})
			assert.Equal(t, tc.status, w.Code)

			var resp models.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tc.code, resp.Code)
		})
	}
}

func TestQuery_MissingCommand(t *testing.T) {
	srv := NewServer(&fakeHandler{}, &fakeSearcher{}, &fakeDB{}, nil, nil)

	w := postJSON(t, srv.Router(), "/v1/query", gin.H{"user_id": "u1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQuery_RequestIDAdopted(t *testing.T) {
	handler := &fakeHandler{resp: &models.AnalysisResponse{Header: "h"}}
	srv := NewServer(handler, &fakeSearcher{}, &fakeDB{}, nil, nil)

	payload, _ := json.Marshal(gin.H{"command": "/trends"})
	req := httptest.NewRequest(http.MethodPost, "/v1/query", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDHeader, "corr-7")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, "corr-7", handler.last.CorrelationID)
	assert.Equal(t, "corr-7", w.Header().Get(RequestIDHeader))
}

func TestRetrieve_Paginates(t *testing.T) {
	searcher := &fakeSearcher{docs: searchDocs(7)}
	srv := NewServer(&fakeHandler{}, searcher, &fakeDB{}, nil, nil)
	router := srv.Router()

	w := postJSON(t, router, "/v1/retrieve", gin.H{"query": "rates", "k": 5})
	require.Equal(t, http.StatusOK, w.Code)

	var page RetrieveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Items, 5)
	assert.NotEmpty(t, page.NextCursor)
	assert.InDelta(t, 1.0, page.Coverage, 0.001)
	assert.Equal(t, "reuters.com", page.Items[0].Source)
	require.NotNil(t, page.FreshnessStats)
	assert.GreaterOrEqual(t, page.FreshnessStats.MedianSec, int64(0))

	w = postJSON(t, router, "/v1/retrieve", gin.H{"query": "rates", "k": 5, "cursor": page.NextCursor})
	require.Equal(t, http.StatusOK, w.Code)

	var rest RetrieveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rest))
	assert.Len(t, rest.Items, 2)
	assert.Empty(t, rest.NextCursor)
	assert.Equal(t, "a6", rest.Items[0].ID)
	assert.InDelta(t, 0.4, rest.Coverage, 0.001)
}

func TestRetrieve_HoursWindow(t *testing.T) {
	searcher := &fakeSearcher{docs: searchDocs(3)}
	srv := NewServer(&fakeHandler{}, searcher, &fakeDB{}, nil, nil)
	fixed := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	srv.now = func() time.Time { return fixed }
	router := srv.Router()

	w := postJSON(t, router, "/v1/retrieve", gin.H{"query": "q", "hours": 48})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, fixed.Add(-48*time.Hour), searcher.last.Since)

	// hours wins over the window alias when both are set.
	w = postJSON(t, router, "/v1/retrieve", gin.H{"query": "q", "hours": 6, "window": "1w"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, fixed.Add(-6*time.Hour), searcher.last.Since)

	w = postJSON(t, router, "/v1/retrieve", gin.H{"query": "q", "hours": 9000})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRetrieve_Validation(t *testing.T) {
	srv := NewServer(&fakeHandler{}, &fakeSearcher{}, &fakeDB{}, nil, nil)
	router := srv.Router()

	w := postJSON(t, router, "/v1/retrieve", gin.H{"query": "q", "k": 51})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(t, router, "/v1/retrieve", gin.H{"query": "q", "window": "never"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(t, router, "/v1/retrieve", gin.H{"query": "q", "cursor": "!!"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(t, router, "/v1/retrieve", gin.H{"k": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRetrieve_SearchFailure(t *testing.T) {
	srv := NewServer(&fakeHandler{}, &fakeSearcher{err: errors.New("db down")}, &fakeDB{}, nil, nil)

	w := postJSON(t, srv.Router(), "/v1/retrieve", gin.H{"query": "q"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHealthz(t *testing.T) {
	srv := NewServer(&fakeHandler{}, &fakeSearcher{}, &fakeDB{}, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy"`)

	srv = NewServer(&fakeHandler{}, &fakeSearcher{}, &fakeDB{err: errors.New("no pool")}, nil, nil)
	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
