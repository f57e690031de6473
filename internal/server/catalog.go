package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/medisync/medledger/internal/catalog/domain"
)

func (s *Server) ListServices(c *gin.Context) {
	includeInactive := c.Query("include_inactive") == "true"

	items, err := s.catalogSvc.List(c.Request.Context(), includeInactive)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"services": items})
}

func (s *Server) GetService(c *gin.Context) {
	resp, err := s.catalogSvc.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) UpsertService(c *gin.Context) {
	var req catalogdomain.UpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.catalogSvc.Upsert(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) DeactivateService(c *gin.Context) {
	resp, err := s.catalogSvc.Deactivate(c.Request.Context(), c.Param("code"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
