package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/medisync/medledger/internal/audit/domain"
	pricingdomain "github.com/medisync/medledger/internal/pricing/domain"
	"github.com/medisync/medledger/pkg/db/pagination"
)

type CreateRequest struct {
	SubjectID   snowflake.ID        `json:"subject_id"`
	Scope       pricingdomain.Scope `json:"scope"`
	ServiceCode string              `json:"service_code"`
	Quantity    int64               `json:"quantity"`
	PayerID     *snowflake.ID       `json:"payer_id,omitempty"`
	Metadata    map[string]any      `json:"metadata,omitempty"`
}

type ListFilter struct {
	SubjectID  snowflake.ID
	Status     *Status
	Pagination pagination.Pagination
}

type Response struct {
	ID             string                    `json:"id"`
	SubjectID      string                    `json:"subject_id"`
	FacilityID     *string                   `json:"facility_id,omitempty"`
	OwnerID        *string                   `json:"owner_id,omitempty"`
	ServiceCode    string                    `json:"service_code"`
	Quantity       int64                     `json:"quantity"`
	UnitPriceCents int64                     `json:"unit_price_cents"`
	AmountCents    int64                     `json:"amount_cents"`
	Currency       string                    `json:"currency"`
	PriceSource    pricingdomain.PriceSource `json:"price_source"`
	Status         Status                    `json:"status"`
	Metadata       map[string]any            `json:"metadata,omitempty"`
	VoidReason     *string                   `json:"void_reason,omitempty"`
	CreatedAt      time.Time                 `json:"created_at"`
	UpdatedAt      time.Time                 `json:"updated_at"`
}

type ListResponse struct {
	Charges  []Response          `json:"charges"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type Service interface {
	// Create resolves the price for the scope, snapshots it, and opens an
	// UNPAID charge. The charge amount never changes afterward.
	Create(ctx context.Context, actor auditdomain.Actor, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id snowflake.ID) (*Response, error)
	List(ctx context.Context, filter ListFilter) (*ListResponse, error)
	// Void cancels a charge that has no money allocated against it. Voided
	// charges stay in history but drop out of outstanding totals.
	Void(ctx context.Context, actor auditdomain.Actor, id snowflake.ID, reason string) (*Response, error)
}

var (
	ErrChargeNotFound     = errors.New("charge_not_found")
	ErrInvalidSubject     = errors.New("invalid_subject")
	ErrInvalidQuantity    = errors.New("invalid_quantity")
	ErrInvalidPrice       = errors.New("invalid_price")
	ErrInvalidVoidReason  = errors.New("invalid_void_reason")
	ErrChargeHasPayments  = errors.New("charge_has_payments")
	ErrInvalidChargeState = errors.New("invalid_charge_state")
)
