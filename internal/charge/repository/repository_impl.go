package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	chargedomain "github.com/medisync/medledger/internal/charge/domain"
	"github.com/medisync/medledger/pkg/db"
	"github.com/medisync/medledger/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() chargedomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, tx *gorm.DB, charge *chargedomain.Charge) error {
	return tx.WithContext(ctx).Exec(
		`INSERT INTO charges (
			id, subject_id, facility_id, owner_id, service_id, service_code,
			quantity, unit_price_cents, amount_cents, currency, price_source,
			status, metadata, created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		charge.ID,
		charge.SubjectID,
		charge.FacilityID,
		charge.OwnerID,
		charge.ServiceID,
		charge.ServiceCode,
		charge.Quantity,
		charge.UnitPriceCents,
		charge.AmountCents,
		charge.Currency,
		charge.PriceSource,
		charge.Status,
		charge.Metadata,
		charge.CreatedBy,
		charge.CreatedAt,
		charge.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*chargedomain.Charge, error) {
	return r.find(ctx, tx, id, false)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*chargedomain.Charge, error) {
	return r.find(ctx, tx, id, true)
}

func (r *repo) find(ctx context.Context, tx *gorm.DB, id snowflake.ID, forUpdate bool) (*chargedomain.Charge, error) {
	query := `SELECT id, subject_id, facility_id, owner_id, service_id, service_code,
		quantity, unit_price_cents, amount_cents, currency, price_source,
		status, metadata, created_by, void_reason, created_at, updated_at
	 FROM charges WHERE id = ?`
	if forUpdate {
		query += db.LockingClause(tx)
	}

	var charge chargedomain.Charge
	if err := tx.WithContext(ctx).Raw(query, id).Scan(&charge).Error; err != nil {
		return nil, err
	}
	if charge.ID == 0 {
		return nil, nil
	}
	return &charge, nil
}

func (r *repo) List(ctx context.Context, tx *gorm.DB, filter chargedomain.ListFilter, cursor *pagination.Cursor, limit int) ([]chargedomain.Charge, error) {
	stmt := tx.WithContext(ctx).Model(&chargedomain.Charge{}).
		Where("subject_id = ?", filter.SubjectID)

	if filter.Status != nil {
		stmt = stmt.Where("status = ?", *filter.Status)
	}

	if cursor != nil && cursor.CreatedAt != "" {
		createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where("(created_at, id) < (?, ?)", createdAt, cursor.ID)
	}

	var items []chargedomain.Charge
	err := stmt.Order("created_at DESC, id DESC").Limit(limit).Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UpdateStatus(ctx context.Context, tx *gorm.DB, id snowflake.ID, status chargedomain.Status, reason *string, updatedAt time.Time) error {
	updates := map[string]any{
		"status":     status,
		"updated_at": updatedAt,
	}
	if reason != nil {
		updates["void_reason"] = *reason
	}
	return tx.WithContext(ctx).Model(&chargedomain.Charge{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repo) SumAllocated(ctx context.Context, tx *gorm.DB, chargeID snowflake.ID) (int64, error) {
	var total int64
	err := tx.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount_cents), 0)
		 FROM payment_allocations
		 WHERE charge_id = ? AND active = ?`,
		chargeID,
		true,
	).Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
