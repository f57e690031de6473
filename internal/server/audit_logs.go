package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/medisync/medledger/internal/audit/domain"
)

func (s *Server) ListAuditLogs(c *gin.Context) {
	req := auditdomain.ListAuditLogRequest{
		Pagination: paginationQuery(c),
		Action:     c.Query("action"),
		TargetType: c.Query("target_type"),
		TargetID:   c.Query("target_id"),
		ActorType:  c.Query("actor_type"),
	}

	startAt, ok := timeQuery(c, "start_at")
	if !ok {
		AbortWithError(c, auditdomain.ErrInvalidTimeRange)
		return
	}
	req.StartAt = startAt
	endAt, ok := timeQuery(c, "end_at")
	if !ok {
		AbortWithError(c, auditdomain.ErrInvalidTimeRange)
		return
	}
	req.EndAt = endAt

	resp, err := s.auditSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
