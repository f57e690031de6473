package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	chargedomain "github.com/medisync/medledger/internal/charge/domain"
)

func (s *Server) CreateCharge(c *gin.Context) {
	var req chargedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.chargeSvc.Create(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) GetCharge(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		AbortWithError(c, chargedomain.ErrChargeNotFound)
		return
	}

	resp, err := s.chargeSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) ListCharges(c *gin.Context) {
	subjectID, ok := idQuery(c, "subject_id")
	if !ok {
		AbortWithError(c, chargedomain.ErrInvalidSubject)
		return
	}

	filter := chargedomain.ListFilter{
		SubjectID:  subjectID,
		Pagination: paginationQuery(c),
	}
	if raw := c.Query("status"); raw != "" {
		status := chargedomain.Status(raw)
		filter.Status = &status
	}

	resp, err := s.chargeSvc.List(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) VoidCharge(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		AbortWithError(c, chargedomain.ErrChargeNotFound)
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.chargeSvc.Void(c.Request.Context(), actorFrom(c), id, req.Reason)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
