package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	pricingdomain "github.com/medisync/medledger/internal/pricing/domain"
)

func (s *Server) ResolvePrice(c *gin.Context) {
	scope, ok := scopeQuery(c)
	if !ok {
		AbortWithError(c, pricingdomain.ErrInvalidScope)
		return
	}

	query := pricingdomain.ResolveQuery{
		ServiceCode: c.Query("service_code"),
		Scope:       scope,
	}
	if payerID, ok := idQuery(c, "payer_id"); ok {
		query.PayerID = &payerID
	}

	quote, err := s.pricingSvc.Resolve(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (s *Server) ListPrices(c *gin.Context) {
	scope, ok := scopeQuery(c)
	if !ok {
		AbortWithError(c, pricingdomain.ErrInvalidScope)
		return
	}

	items, err := s.pricingSvc.ListPrices(c.Request.Context(), scope)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"prices": items})
}

func (s *Server) SetPrice(c *gin.Context) {
	var req pricingdomain.SetPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.pricingSvc.SetPrice(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) SetPayerPrice(c *gin.Context) {
	var req pricingdomain.SetPayerPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.pricingSvc.SetPayerPrice(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) RegisterPayer(c *gin.Context) {
	var req pricingdomain.RegisterPayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.pricingSvc.RegisterPayer(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) AffiliatePayer(c *gin.Context) {
	payerID, ok := idParam(c, "id")
	if !ok {
		AbortWithError(c, pricingdomain.ErrInvalidPayer)
		return
	}

	var req struct {
		FacilityID string `json:"facility_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	facilityID, ok := parseID(req.FacilityID)
	if !ok {
		AbortWithError(c, pricingdomain.ErrInvalidFacility)
		return
	}

	err := s.pricingSvc.AffiliatePayer(c.Request.Context(), payerID, facilityID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
