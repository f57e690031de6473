package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/medisync/medledger/internal/audit/domain"
	"github.com/medisync/medledger/internal/authorization"
	catalogdomain "github.com/medisync/medledger/internal/catalog/domain"
	chargedomain "github.com/medisync/medledger/internal/charge/domain"
	paymentdomain "github.com/medisync/medledger/internal/payment/domain"
	pricingdomain "github.com/medisync/medledger/internal/pricing/domain"
	statementdomain "github.com/medisync/medledger/internal/statement/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case errors.Is(err, paymentdomain.ErrLockConflict):
		// Retryable: the client should repeat the request.
		return http.StatusConflict, errorPayload{
			Type:    "lock_conflict",
			Message: "concurrent update, retry the request",
		}
	case isUnprocessableError(err):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "unprocessable",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrInternal):
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, catalogdomain.ErrInvalidCode),
		errors.Is(err, catalogdomain.ErrInvalidName),
		errors.Is(err, catalogdomain.ErrInvalidDefaultPrice),
		errors.Is(err, catalogdomain.ErrInvalidCurrency),
		errors.Is(err, pricingdomain.ErrInvalidAmount),
		errors.Is(err, pricingdomain.ErrInvalidCurrency),
		errors.Is(err, pricingdomain.ErrInvalidPayer),
		errors.Is(err, pricingdomain.ErrInvalidFacility),
		errors.Is(err, pricingdomain.ErrInvalidScope),
		errors.Is(err, chargedomain.ErrInvalidSubject),
		errors.Is(err, chargedomain.ErrInvalidQuantity),
		errors.Is(err, chargedomain.ErrInvalidVoidReason),
		errors.Is(err, paymentdomain.ErrInvalidPaymentAmount),
		errors.Is(err, paymentdomain.ErrInvalidMethod),
		errors.Is(err, paymentdomain.ErrInvalidAllocation),
		errors.Is(err, paymentdomain.ErrInvalidReverseReason),
		errors.Is(err, statementdomain.ErrInvalidSubject),
		errors.Is(err, statementdomain.ErrInvalidTimeRange),
		errors.Is(err, auditdomain.ErrInvalidActor),
		errors.Is(err, auditdomain.ErrInvalidPageToken),
		errors.Is(err, auditdomain.ErrInvalidTimeRange),
		errors.Is(err, authorization.ErrInvalidActor),
		errors.Is(err, authorization.ErrInvalidScope),
		errors.Is(err, authorization.ErrInvalidRole):
		return true
	default:
		return false
	}
}

// Conflicts are rejections of a write that raced or repeated: duplicate
// allocations, duplicate price activations, reversing twice.
func isConflictError(err error) bool {
	switch {
	case errors.Is(err, pricingdomain.ErrPriceConflict),
		errors.Is(err, paymentdomain.ErrDuplicateAllocation),
		errors.Is(err, paymentdomain.ErrPaymentAlreadyReversed):
		return true
	default:
		return false
	}
}

// Unprocessable requests are well formed but break a ledger invariant.
func isUnprocessableError(err error) bool {
	switch {
	case errors.Is(err, catalogdomain.ErrServiceInactive),
		errors.Is(err, chargedomain.ErrInvalidPrice),
		errors.Is(err, chargedomain.ErrChargeHasPayments),
		errors.Is(err, chargedomain.ErrInvalidChargeState),
		errors.Is(err, paymentdomain.ErrOverAllocation),
		errors.Is(err, paymentdomain.ErrAllocationExceedsPayment),
		errors.Is(err, paymentdomain.ErrScopeMismatch),
		errors.Is(err, paymentdomain.ErrCurrencyMismatch):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, catalogdomain.ErrServiceNotFound),
		errors.Is(err, pricingdomain.ErrPayerNotFound),
		errors.Is(err, chargedomain.ErrChargeNotFound),
		errors.Is(err, paymentdomain.ErrPaymentNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	default:
		return "invalid value"
	}
}
