package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	pricingdomain "github.com/medisync/medledger/internal/pricing/domain"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPosted   Status = "POSTED"
	StatusReversed Status = "REVERSED"
)

const (
	MethodCash     = "cash"
	MethodCard     = "card"
	MethodTransfer = "transfer"
	MethodPayer    = "payer"
)

// Payment is an immutable credit received for a billable subject. Money is
// never edited after posting; mistakes are corrected by reversing the whole
// payment and posting a new one.
type Payment struct {
	ID            snowflake.ID      `json:"id" gorm:"primaryKey"`
	SubjectID     snowflake.ID      `json:"subject_id" gorm:"index:ix_payments_subject"`
	FacilityID    *snowflake.ID     `json:"facility_id,omitempty"`
	OwnerID       *snowflake.ID     `json:"owner_id,omitempty"`
	AmountCents   int64             `json:"amount_cents"`
	Currency      string            `json:"currency"`
	Method        string            `json:"method"`
	Reference     string            `json:"reference"`
	Status        Status            `json:"status"`
	Metadata      datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedBy     string            `json:"created_by"`
	ReversedBy    *string           `json:"reversed_by,omitempty"`
	ReverseReason *string           `json:"reverse_reason,omitempty"`
	ReversedAt    *time.Time        `json:"reversed_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}

func (p *Payment) Scope() pricingdomain.Scope {
	return pricingdomain.Scope{FacilityID: p.FacilityID, OwnerID: p.OwnerID}
}

// PaymentAllocation links a slice of a payment to one charge. The
// (payment_id, charge_id) pair is unique; a payment touches a charge at most
// once. Reversal flips Active off instead of deleting rows.
type PaymentAllocation struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	PaymentID   snowflake.ID `json:"payment_id" gorm:"uniqueIndex:ux_payment_allocations_pair"`
	ChargeID    snowflake.ID `json:"charge_id" gorm:"uniqueIndex:ux_payment_allocations_pair;index:ix_payment_allocations_charge"`
	AmountCents int64        `json:"amount_cents"`
	Active      bool         `json:"active"`
	CreatedAt   time.Time    `json:"created_at"`
}

func (PaymentAllocation) TableName() string {
	return "payment_allocations"
}
