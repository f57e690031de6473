package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/medisync/medledger/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, charge *Charge) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Charge, error)
	// FindByIDForUpdate locks the charge row for the duration of the
	// surrounding transaction on dialects that support row locks.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Charge, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, cursor *pagination.Cursor, limit int) ([]Charge, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status Status, reason *string, updatedAt time.Time) error
	// SumAllocated returns the total active allocation amount against a
	// charge. Callers needing a stable read hold the charge row lock first.
	SumAllocated(ctx context.Context, db *gorm.DB, chargeID snowflake.ID) (int64, error)
}
