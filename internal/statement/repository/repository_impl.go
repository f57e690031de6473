package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	chargedomain "github.com/medisync/medledger/internal/charge/domain"
	paymentdomain "github.com/medisync/medledger/internal/payment/domain"
	statementdomain "github.com/medisync/medledger/internal/statement/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() statementdomain.Repository {
	return &repo{}
}

func (r *repo) ChargesBySubject(ctx context.Context, db *gorm.DB, query statementdomain.Query) ([]chargedomain.Charge, error) {
	stmt := db.WithContext(ctx).Model(&chargedomain.Charge{}).
		Where("subject_id = ?", query.SubjectID)
	stmt = timeRange(stmt, query)

	var items []chargedomain.Charge
	if err := stmt.Order("created_at ASC, id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) PaymentsBySubject(ctx context.Context, db *gorm.DB, query statementdomain.Query) ([]paymentdomain.Payment, error) {
	stmt := db.WithContext(ctx).Model(&paymentdomain.Payment{}).
		Where("subject_id = ?", query.SubjectID)
	stmt = timeRange(stmt, query)

	var items []paymentdomain.Payment
	if err := stmt.Order("created_at ASC, id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) AllocationsForPayments(ctx context.Context, db *gorm.DB, paymentIDs []snowflake.ID) (map[snowflake.ID][]paymentdomain.PaymentAllocation, error) {
	out := make(map[snowflake.ID][]paymentdomain.PaymentAllocation, len(paymentIDs))
	if len(paymentIDs) == 0 {
		return out, nil
	}

	var rows []paymentdomain.PaymentAllocation
	err := db.WithContext(ctx).
		Where("payment_id IN ?", paymentIDs).
		Order("charge_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.PaymentID] = append(out[row.PaymentID], row)
	}
	return out, nil
}

// Totals computes the subject position in one round trip. Voided charges and
// reversed payments contribute nothing; allocations count only while active
// and only against non-void charges.
func (r *repo) Totals(ctx context.Context, db *gorm.DB, subjectID snowflake.ID) (*statementdomain.Totals, error) {
	var totals statementdomain.Totals
	err := db.WithContext(ctx).Raw(
		`SELECT
			COALESCE((SELECT SUM(amount_cents) FROM charges
				WHERE subject_id = ? AND status <> ?), 0) AS charges_total,
			COALESCE((SELECT SUM(amount_cents) FROM payments
				WHERE subject_id = ? AND status <> ?), 0) AS payments_total,
			COALESCE((SELECT SUM(pa.amount_cents) FROM payment_allocations pa
				JOIN charges c ON c.id = pa.charge_id
				WHERE c.subject_id = ? AND c.status <> ? AND pa.active = ?), 0) AS allocated_total`,
		subjectID, chargedomain.StatusVoid,
		subjectID, paymentdomain.StatusReversed,
		subjectID, chargedomain.StatusVoid, true,
	).Row().Scan(&totals.ChargesTotal, &totals.PaymentsTotal, &totals.AllocatedTotal)
	if err != nil {
		return nil, err
	}

	totals.Balance = totals.ChargesTotal - totals.PaymentsTotal
	totals.Outstanding = totals.ChargesTotal - totals.AllocatedTotal
	return &totals, nil
}

func timeRange(stmt *gorm.DB, query statementdomain.Query) *gorm.DB {
	if query.StartAt != nil {
		stmt = stmt.Where("created_at >= ?", *query.StartAt)
	}
	if query.EndAt != nil {
		stmt = stmt.Where("created_at < ?", *query.EndAt)
	}
	return stmt
}
