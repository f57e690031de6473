package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	statementdomain "github.com/medisync/medledger/internal/statement/domain"
)

func (s *Server) GetStatement(c *gin.Context) {
	subjectID, ok := idParam(c, "id")
	if !ok {
		AbortWithError(c, statementdomain.ErrInvalidSubject)
		return
	}

	query := statementdomain.Query{SubjectID: subjectID}
	startAt, ok := timeQuery(c, "start_at")
	if !ok {
		AbortWithError(c, statementdomain.ErrInvalidTimeRange)
		return
	}
	query.StartAt = startAt
	endAt, ok := timeQuery(c, "end_at")
	if !ok {
		AbortWithError(c, statementdomain.ErrInvalidTimeRange)
		return
	}
	query.EndAt = endAt

	resp, err := s.statementSvc.Generate(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetTotals(c *gin.Context) {
	subjectID, ok := idParam(c, "id")
	if !ok {
		AbortWithError(c, statementdomain.ErrInvalidSubject)
		return
	}

	totals, err := s.statementSvc.TotalsFor(c.Request.Context(), subjectID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, totals)
}
