package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/medisync/medledger/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	ListBySubject(ctx context.Context, db *gorm.DB, subjectID snowflake.ID, cursor *pagination.Cursor, limit int) ([]Payment, error)
	MarkReversed(ctx context.Context, db *gorm.DB, payment *Payment) error

	InsertAllocation(ctx context.Context, db *gorm.DB, allocation *PaymentAllocation) error
	AllocationsByPayment(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) ([]PaymentAllocation, error)
	DeactivateAllocations(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) error
}
