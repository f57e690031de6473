package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	paymentdomain "github.com/medisync/medledger/internal/payment/domain"
	"github.com/medisync/medledger/pkg/db"
	"github.com/medisync/medledger/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() paymentdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, tx *gorm.DB, p *paymentdomain.Payment) error {
	return tx.WithContext(ctx).Exec(
		`INSERT INTO payments (
			id, subject_id, facility_id, owner_id, amount_cents, currency,
			method, reference, status, metadata, created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.SubjectID,
		p.FacilityID,
		p.OwnerID,
		p.AmountCents,
		p.Currency,
		p.Method,
		p.Reference,
		p.Status,
		p.Metadata,
		p.CreatedBy,
		p.CreatedAt,
		p.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*paymentdomain.Payment, error) {
	return r.find(ctx, tx, id, false)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*paymentdomain.Payment, error) {
	return r.find(ctx, tx, id, true)
}

func (r *repo) find(ctx context.Context, tx *gorm.DB, id snowflake.ID, forUpdate bool) (*paymentdomain.Payment, error) {
	query := `SELECT id, subject_id, facility_id, owner_id, amount_cents, currency,
		method, reference, status, metadata, created_by, reversed_by,
		reverse_reason, reversed_at, created_at, updated_at
	 FROM payments WHERE id = ?`
	if forUpdate {
		query += db.LockingClause(tx)
	}

	var p paymentdomain.Payment
	if err := tx.WithContext(ctx).Raw(query, id).Scan(&p).Error; err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) ListBySubject(ctx context.Context, tx *gorm.DB, subjectID snowflake.ID, cursor *pagination.Cursor, limit int) ([]paymentdomain.Payment, error) {
	stmt := tx.WithContext(ctx).Model(&paymentdomain.Payment{}).
		Where("subject_id = ?", subjectID)

	if cursor != nil && cursor.CreatedAt != "" {
		createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where("(created_at, id) < (?, ?)", createdAt, cursor.ID)
	}

	var items []paymentdomain.Payment
	err := stmt.Order("created_at DESC, id DESC").Limit(limit).Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) MarkReversed(ctx context.Context, tx *gorm.DB, p *paymentdomain.Payment) error {
	return tx.WithContext(ctx).Exec(
		`UPDATE payments
		 SET status = ?, reversed_by = ?, reverse_reason = ?, reversed_at = ?, updated_at = ?
		 WHERE id = ?`,
		paymentdomain.StatusReversed,
		p.ReversedBy,
		p.ReverseReason,
		p.ReversedAt,
		p.UpdatedAt,
		p.ID,
	).Error
}

func (r *repo) InsertAllocation(ctx context.Context, tx *gorm.DB, a *paymentdomain.PaymentAllocation) error {
	return tx.WithContext(ctx).Exec(
		`INSERT INTO payment_allocations (id, payment_id, charge_id, amount_cents, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.PaymentID,
		a.ChargeID,
		a.AmountCents,
		a.Active,
		a.CreatedAt,
	).Error
}

func (r *repo) AllocationsByPayment(ctx context.Context, tx *gorm.DB, paymentID snowflake.ID) ([]paymentdomain.PaymentAllocation, error) {
	var items []paymentdomain.PaymentAllocation
	err := tx.WithContext(ctx).Raw(
		`SELECT id, payment_id, charge_id, amount_cents, active, created_at
		 FROM payment_allocations
		 WHERE payment_id = ?
		 ORDER BY charge_id ASC`,
		paymentID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) DeactivateAllocations(ctx context.Context, tx *gorm.DB, paymentID snowflake.ID) error {
	return tx.WithContext(ctx).Exec(
		`UPDATE payment_allocations SET active = ? WHERE payment_id = ? AND active = ?`,
		false,
		paymentID,
		true,
	).Error
}
