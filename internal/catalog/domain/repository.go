package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, svc *BillableService) error
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*BillableService, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*BillableService, error)
	List(ctx context.Context, db *gorm.DB, includeInactive bool) ([]BillableService, error)
	SetActive(ctx context.Context, db *gorm.DB, code string, active bool) error
}
