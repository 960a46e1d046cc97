// Package api exposes the engine over HTTP: command execution,
// raw corpus retrieval, and health.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/newslens/newslens/pkg/database"
	"github.com/newslens/newslens/pkg/models"
	"github.com/newslens/newslens/pkg/orchestrator"
	"github.com/newslens/newslens/pkg/retrieval"
)

// CommandHandler runs one command end to end. *orchestrator.Orchestrator
// satisfies it.
type CommandHandler interface {
	Handle(ctx context.Context, req orchestrator.Request) (*models.AnalysisResponse, *models.ErrorResponse)
}

// HealthChecker pings the backing store. *database.Client satisfies it.
type HealthChecker interface {
	Health(ctx context.Context) (*database.HealthStatus, error)
}

// Server is the HTTP front of the engine.
type Server struct {
	handler  CommandHandler
	searcher retrieval.LexicalSearcher
	db       HealthChecker
	quota    *Quota        // nil disables per-user quotas
	redis    *redis.Client // nil means cache/quotas are not configured

	now func() time.Time
}

// NewServer wires the server to the orchestrator and its backends.
func NewServer(handler CommandHandler, searcher retrieval.LexicalSearcher, db HealthChecker, quota *Quota, redisClient *redis.Client) *Server {
	return &Server{
		handler:  handler,
		searcher: searcher,
		db:       db,
		quota:    quota,
		redis:    redisClient,
		now:      time.Now,
	}
}

// Router builds the gin engine with all routes and middleware bound.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID())

	r.GET("/healthz", s.healthHandler)

	v1 := r.Group("/v1")
	v1.POST("/query", s.queryHandler)
	v1.POST("/retrieve", s.retrieveHandler)
	return r
}

// httpStatus maps the error taxonomy onto HTTP status codes.
func httpStatus(code models.ErrorCode) int {
	switch code {
	case models.CodeValidationFailed:
		return http.StatusBadRequest
	case models.CodeNoData:
		return http.StatusNotFound
	case models.CodeBudgetExceeded:
		return http.StatusTooManyRequests
	case models.CodeModelUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
