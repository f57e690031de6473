package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	pricingdomain "github.com/medisync/medledger/internal/pricing/domain"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusUnpaid        Status = "UNPAID"
	StatusPartiallyPaid Status = "PARTIALLY_PAID"
	StatusPaid          Status = "PAID"
	StatusVoid          Status = "VOID"
)

// Charge is an immutable debit against a billable subject. The price fields
// are a snapshot taken at creation; later overrides never touch existing rows.
type Charge struct {
	ID             snowflake.ID            `json:"id" gorm:"primaryKey"`
	SubjectID      snowflake.ID            `json:"subject_id" gorm:"index:ix_charges_subject"`
	FacilityID     *snowflake.ID           `json:"facility_id,omitempty"`
	OwnerID        *snowflake.ID           `json:"owner_id,omitempty"`
	ServiceID      snowflake.ID            `json:"service_id"`
	ServiceCode    string                  `json:"service_code"`
	Quantity       int64                   `json:"quantity"`
	UnitPriceCents int64                   `json:"unit_price_cents"`
	AmountCents    int64                   `json:"amount_cents"`
	Currency       string                  `json:"currency"`
	PriceSource    pricingdomain.PriceSource `json:"price_source"`
	Status         Status                  `json:"status"`
	Metadata       datatypes.JSONMap       `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedBy      string                  `json:"created_by"`
	VoidReason     *string                 `json:"void_reason,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

func (Charge) TableName() string {
	return "charges"
}

func (c *Charge) Scope() pricingdomain.Scope {
	return pricingdomain.Scope{FacilityID: c.FacilityID, OwnerID: c.OwnerID}
}
