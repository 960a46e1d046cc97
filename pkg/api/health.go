package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/newslens/newslens/pkg/version"
)

// healthHandler handles GET /healthz. Only the engine's own storage is
// checked; provider outages must not flip readiness. Redis losing a
// heartbeat degrades the report without failing it, since cache and
// quotas fail open.
func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	dbHealth, err := s.db.Health(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"version":  version.Full(),
			"database": dbHealth,
			"error":    err.Error(),
		})
		return
	}

	status := "healthy"
	redisStatus := "not_configured"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			status = "degraded"
			redisStatus = "unreachable"
		} else {
			redisStatus = "healthy"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"version":  version.Full(),
		"database": dbHealth,
		"redis":    redisStatus,
	})
}
