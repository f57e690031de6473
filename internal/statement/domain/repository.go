package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	chargedomain "github.com/medisync/medledger/internal/charge/domain"
	paymentdomain "github.com/medisync/medledger/internal/payment/domain"
	"gorm.io/gorm"
)

type Repository interface {
	ChargesBySubject(ctx context.Context, db *gorm.DB, query Query) ([]chargedomain.Charge, error)
	PaymentsBySubject(ctx context.Context, db *gorm.DB, query Query) ([]paymentdomain.Payment, error)
	AllocationsForPayments(ctx context.Context, db *gorm.DB, paymentIDs []snowflake.ID) (map[snowflake.ID][]paymentdomain.PaymentAllocation, error)
	Totals(ctx context.Context, db *gorm.DB, subjectID snowflake.ID) (*Totals, error)
}
