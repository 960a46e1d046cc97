package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/newslens/newslens/pkg/models"
	"github.com/newslens/newslens/pkg/orchestrator"
)

// QueryRequest is the body of POST /v1/query.
type QueryRequest struct {
	Command string `json:"command" binding:"required"`
	UserID  string `json:"user_id"`
	Lang    string `json:"lang"`
}

func (s *Server) queryHandler(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewErrorResponse(
			models.CodeValidationFailed, err.Error(), models.NormalizeLanguage(req.Lang), models.Meta{
				CorrelationID: requestID(c),
			}))
		return
	}

	if !s.quota.Allow(c.Request.Context(), req.UserID) {
		c.JSON(http.StatusTooManyRequests, models.NewErrorResponse(
			models.CodeBudgetExceeded, "daily per-user quota exhausted", models.NormalizeLanguage(req.Lang), models.Meta{
				CorrelationID: requestID(c),
			}))
		return
	}

	resp, errResp := s.handler.Handle(c.Request.Context(), orchestrator.Request{
		Command:       req.Command,
		UserID:        req.UserID,
		Lang:          req.Lang,
		CorrelationID: requestID(c),
	})
	if errResp != nil {
		c.JSON(httpStatus(errResp.Code), errResp)
		return
	}
	c.JSON(http.StatusOK, resp)
}
