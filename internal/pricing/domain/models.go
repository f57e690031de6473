package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Scope is the pricing context a price or charge belongs to: a facility or an
// independent provider ("owner"), never both.
type Scope struct {
	FacilityID *snowflake.ID `json:"facility_id,omitempty"`
	OwnerID    *snowflake.ID `json:"owner_id,omitempty"`
}

var ErrInvalidScope = errors.New("invalid_scope")

func (s Scope) Validate() error {
	hasFacility := s.FacilityID != nil && *s.FacilityID != 0
	hasOwner := s.OwnerID != nil && *s.OwnerID != 0
	if hasFacility == hasOwner {
		return ErrInvalidScope
	}
	return nil
}

func (s Scope) IsFacility() bool { return s.FacilityID != nil && *s.FacilityID != 0 }
func (s Scope) IsOwner() bool    { return s.OwnerID != nil && *s.OwnerID != 0 }

// Key renders the scope as an authorization domain string.
func (s Scope) Key() string {
	if s.IsFacility() {
		return "facility:" + s.FacilityID.String()
	}
	if s.IsOwner() {
		return "owner:" + s.OwnerID.String()
	}
	return ""
}

// PriceSource names the precedence tier a resolved price came from.
type PriceSource string

const (
	SourcePayerOverride    PriceSource = "payer_override"
	SourceFacilityOverride PriceSource = "facility_override"
	SourceOwnerOverride    PriceSource = "owner_override"
	SourceDefault          PriceSource = "default"
)

// Price is a facility- or owner-scoped override of a service's default price.
// At most one active row exists per (facility, service) or (owner, service).
type Price struct {
	ID         snowflake.ID  `json:"id" gorm:"primaryKey"`
	FacilityID *snowflake.ID `json:"facility_id,omitempty" gorm:"index"`
	OwnerID    *snowflake.ID `json:"owner_id,omitempty" gorm:"index"`
	ServiceID  snowflake.ID  `json:"service_id" gorm:"not null;index"`
	AmountCents int64        `json:"amount_cents" gorm:"not null"`
	Currency   string        `json:"currency" gorm:"type:text;not null"`
	Active     bool          `json:"active" gorm:"not null;default:true"`
	CreatedAt  time.Time     `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time     `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Price) TableName() string { return "prices" }

// PayerPrice is an HMO override scoped to (facility, payer, service). It wins
// over facility/owner overrides when the subject is insured under the payer
// and the payer is affiliated with the facility. Duplicates are tolerated;
// the most recently created active row wins.
type PayerPrice struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	FacilityID  snowflake.ID `json:"facility_id" gorm:"not null;index"`
	PayerID     snowflake.ID `json:"payer_id" gorm:"not null;index"`
	ServiceID   snowflake.ID `json:"service_id" gorm:"not null;index"`
	AmountCents int64        `json:"amount_cents" gorm:"not null"`
	Currency    string       `json:"currency" gorm:"type:text;not null"`
	Active      bool         `json:"active" gorm:"not null;default:true"`
	CreatedAt   time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (PayerPrice) TableName() string { return "payer_prices" }

// Payer is an HMO/insurer known to the pricing engine.
type Payer struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	Name      string       `json:"name" gorm:"type:text;not null"`
	Code      string       `json:"code" gorm:"type:text;not null;uniqueIndex:ux_payers_code"`
	Active    bool         `json:"active" gorm:"not null;default:true"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Payer) TableName() string { return "payers" }

// PayerAffiliation links a payer to a facility. A payer override only applies
// at facilities the payer is affiliated with.
type PayerAffiliation struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey"`
	PayerID    snowflake.ID `json:"payer_id" gorm:"not null;uniqueIndex:ux_payer_affiliations,priority:1"`
	FacilityID snowflake.ID `json:"facility_id" gorm:"not null;uniqueIndex:ux_payer_affiliations,priority:2"`
	CreatedAt  time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (PayerAffiliation) TableName() string { return "payer_affiliations" }
