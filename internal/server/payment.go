package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	chargedomain "github.com/medisync/medledger/internal/charge/domain"
	paymentdomain "github.com/medisync/medledger/internal/payment/domain"
)

func (s *Server) PostPayment(c *gin.Context) {
	var req paymentdomain.PostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.paymentSvc.Post(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (s *Server) GetPayment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		AbortWithError(c, paymentdomain.ErrPaymentNotFound)
		return
	}

	resp, err := s.paymentSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) ListPayments(c *gin.Context) {
	subjectID, ok := idQuery(c, "subject_id")
	if !ok {
		AbortWithError(c, chargedomain.ErrInvalidSubject)
		return
	}

	resp, err := s.paymentSvc.List(c.Request.Context(), paymentdomain.ListFilter{
		SubjectID:  subjectID,
		Pagination: paginationQuery(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) ReversePayment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		AbortWithError(c, paymentdomain.ErrPaymentNotFound)
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.paymentSvc.Reverse(c.Request.Context(), actorFrom(c), id, req.Reason)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
