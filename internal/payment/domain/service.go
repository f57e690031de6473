package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/medisync/medledger/internal/audit/domain"
	chargedomain "github.com/medisync/medledger/internal/charge/domain"
	pricingdomain "github.com/medisync/medledger/internal/pricing/domain"
	"github.com/medisync/medledger/pkg/db/pagination"
)

type AllocationRequest struct {
	ChargeID    snowflake.ID `json:"charge_id"`
	AmountCents int64        `json:"amount_cents"`
}

// PostRequest records money received and, optionally, how it is split across
// charges. Allocations may sum to less than the amount; the remainder stays
// unallocated credit. They must never sum to more.
type PostRequest struct {
	SubjectID   snowflake.ID        `json:"subject_id"`
	Scope       pricingdomain.Scope `json:"scope"`
	AmountCents int64               `json:"amount_cents"`
	Currency    string              `json:"currency"`
	Method      string              `json:"method"`
	Reference   string              `json:"reference"`
	Allocations []AllocationRequest `json:"allocations"`
	Metadata    map[string]any      `json:"metadata,omitempty"`
}

type ListFilter struct {
	SubjectID  snowflake.ID
	Pagination pagination.Pagination
}

type AllocationResponse struct {
	ChargeID    string `json:"charge_id"`
	AmountCents int64  `json:"amount_cents"`
	Active      bool   `json:"active"`
}

type Response struct {
	ID            string               `json:"id"`
	SubjectID     string               `json:"subject_id"`
	FacilityID    *string              `json:"facility_id,omitempty"`
	OwnerID       *string              `json:"owner_id,omitempty"`
	AmountCents   int64                `json:"amount_cents"`
	Currency      string               `json:"currency"`
	Method        string               `json:"method"`
	Reference     string               `json:"reference"`
	Status        Status               `json:"status"`
	Allocations   []AllocationResponse `json:"allocations,omitempty"`
	Metadata      map[string]any       `json:"metadata,omitempty"`
	ReverseReason *string              `json:"reverse_reason,omitempty"`
	ReversedAt    *time.Time           `json:"reversed_at,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

type ListResponse struct {
	Payments []Response          `json:"payments"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

// ChargeStatusChange reports a charge whose status moved during a posting or
// reversal, for callers that surface the rollup.
type ChargeStatusChange struct {
	ChargeID string              `json:"charge_id"`
	Status   chargedomain.Status `json:"status"`
}

type PostResult struct {
	Payment       Response             `json:"payment"`
	ChargeChanges []ChargeStatusChange `json:"charge_changes,omitempty"`
}

type Service interface {
	// Post records a payment and applies its allocations atomically. Either
	// the payment, every allocation, and every charge status update commit
	// together, or nothing does.
	Post(ctx context.Context, actor auditdomain.Actor, req PostRequest) (*PostResult, error)
	// Reverse backs out a posted payment in full: its allocations deactivate
	// and affected charges roll back, possibly regressing to UNPAID.
	Reverse(ctx context.Context, actor auditdomain.Actor, id snowflake.ID, reason string) (*PostResult, error)
	Get(ctx context.Context, id snowflake.ID) (*Response, error)
	List(ctx context.Context, filter ListFilter) (*ListResponse, error)
}

var (
	ErrPaymentNotFound          = errors.New("payment_not_found")
	ErrInvalidPaymentAmount     = errors.New("invalid_payment_amount")
	ErrInvalidMethod            = errors.New("invalid_method")
	ErrInvalidAllocation        = errors.New("invalid_allocation")
	ErrDuplicateAllocation      = errors.New("duplicate_allocation")
	ErrAllocationExceedsPayment = errors.New("allocation_exceeds_payment")
	ErrOverAllocation           = errors.New("over_allocation")
	ErrScopeMismatch            = errors.New("scope_mismatch")
	ErrCurrencyMismatch         = errors.New("currency_mismatch")
	ErrInvalidReverseReason     = errors.New("invalid_reverse_reason")
	ErrPaymentAlreadyReversed   = errors.New("payment_already_reversed")
	// ErrLockConflict signals contention on charge rows; the request is safe
	// to retry.
	ErrLockConflict = errors.New("lock_conflict")
)
