package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Actor identifies who performed a ledger operation. It is always passed
// explicitly; nothing in the engine reads an ambient request context for it.
type Actor struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

func (a Actor) IsZero() bool { return a.Type == "" && a.ID == "" }

// String renders the actor as "type:id" for snapshot columns.
func (a Actor) String() string { return a.Type + ":" + a.ID }

const (
	ActorTypeStaff  = "staff"
	ActorTypeSystem = "system"
)

// SystemActor is used by bootstrap and scheduled jobs.
var SystemActor = Actor{Type: ActorTypeSystem, ID: "medledger"}

// AuditLog records a single billing action for the audit trail.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey"`
	ActorType  string            `gorm:"type:text;not null;index"`
	ActorID    string            `gorm:"type:text;not null;index"`
	Action     string            `gorm:"type:text;not null;index"`
	TargetType string            `gorm:"type:text;not null"`
	TargetID   *string           `gorm:"type:text;index"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index"`
}

// TableName sets the database table name.
func (AuditLog) TableName() string { return "audit_logs" }

// AuditCursor is the decoded list cursor.
type AuditCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

// ListFilter narrows audit log queries.
type ListFilter struct {
	Action     string
	TargetType string
	TargetID   string
	ActorType  string
	StartAt    *time.Time
	EndAt      *time.Time
	Cursor     *AuditCursor
	Limit      int
}
