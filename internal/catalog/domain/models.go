package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// BillableService is a catalog row: a stable service code with its fallback
// price. Codes are the identifiers billing callers use; rows are deactivated,
// never deleted, so charges always keep a valid reference.
type BillableService struct {
	ID                snowflake.ID `json:"id" gorm:"primaryKey"`
	Code              string       `json:"code" gorm:"type:text;not null;uniqueIndex:ux_billable_services_code"`
	Name              string       `json:"name" gorm:"type:text;not null"`
	DefaultPriceCents int64        `json:"default_price_cents" gorm:"not null;default:0"`
	Currency          string       `json:"currency" gorm:"type:text;not null"`
	Active            bool         `json:"active" gorm:"not null;default:true"`
	CreatedAt         time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (BillableService) TableName() string { return "billable_services" }
