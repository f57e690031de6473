package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/medisync/medledger/internal/catalog/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() catalogdomain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, svc *catalogdomain.BillableService) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO billable_services (
			id, code, name, default_price_cents, currency, active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (code) DO UPDATE SET
			name = excluded.name,
			default_price_cents = excluded.default_price_cents,
			currency = excluded.currency,
			updated_at = excluded.updated_at`,
		svc.ID,
		svc.Code,
		svc.Name,
		svc.DefaultPriceCents,
		svc.Currency,
		svc.Active,
		svc.CreatedAt,
		svc.UpdatedAt,
	).Error
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*catalogdomain.BillableService, error) {
	var svc catalogdomain.BillableService
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, name, default_price_cents, currency, active, created_at, updated_at
		 FROM billable_services WHERE code = ?`,
		code,
	).Scan(&svc).Error
	if err != nil {
		return nil, err
	}
	if svc.ID == 0 {
		return nil, nil
	}
	return &svc, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*catalogdomain.BillableService, error) {
	var svc catalogdomain.BillableService
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, name, default_price_cents, currency, active, created_at, updated_at
		 FROM billable_services WHERE id = ?`,
		id,
	).Scan(&svc).Error
	if err != nil {
		return nil, err
	}
	if svc.ID == 0 {
		return nil, nil
	}
	return &svc, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, includeInactive bool) ([]catalogdomain.BillableService, error) {
	var items []catalogdomain.BillableService
	stmt := db.WithContext(ctx).Model(&catalogdomain.BillableService{})
	if !includeInactive {
		stmt = stmt.Where("active = ?", true)
	}
	if err := stmt.Order("code ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) SetActive(ctx context.Context, db *gorm.DB, code string, active bool) error {
	return db.WithContext(ctx).Exec(
		`UPDATE billable_services SET active = ?, updated_at = ? WHERE code = ?`,
		active,
		time.Now().UTC(),
		code,
	).Error
}
