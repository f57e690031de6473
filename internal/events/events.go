package events

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	EventChargeCreated   = "charge.created"
	EventChargeVoided    = "charge.voided"
	EventPaymentPosted   = "payment.posted"
	EventPaymentReversed = "payment.reversed"
)

// Event is an outbox message emitted inside a billing transaction. Downstream
// collaborators (notifications, reporting) consume it after commit; billing
// writes never wait on them.
type Event struct {
	SubjectID snowflake.ID
	Type      string
	Payload   map[string]any
	DedupeKey string
}

// BillingEvent is the persisted outbox row.
type BillingEvent struct {
	ID          snowflake.ID      `gorm:"primaryKey"`
	SubjectID   snowflake.ID      `gorm:"not null;index"`
	EventType   string            `gorm:"type:text;not null;index"`
	Payload     datatypes.JSONMap `gorm:"type:jsonb"`
	DedupeKey   string            `gorm:"type:text;not null;uniqueIndex:ux_billing_events_dedupe"`
	Published   bool              `gorm:"not null;default:false;index"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	PublishedAt *time.Time        `gorm:""`
}

// TableName sets the database table name.
func (BillingEvent) TableName() string { return "billing_events" }
