package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	chargedomain "github.com/medisync/medledger/internal/charge/domain"
	paymentdomain "github.com/medisync/medledger/internal/payment/domain"
)

// Totals summarizes a subject's ledger position. Balance answers "how much
// money is owed versus received"; Outstanding answers "how much billed work is
// not yet covered by an allocation". They differ when credit sits unallocated.
type Totals struct {
	ChargesTotal   int64 `json:"charges_total_cents"`
	PaymentsTotal  int64 `json:"payments_total_cents"`
	AllocatedTotal int64 `json:"allocated_total_cents"`
	Balance        int64 `json:"balance_cents"`
	Outstanding    int64 `json:"outstanding_cents"`
}

type Query struct {
	SubjectID snowflake.ID
	StartAt   *time.Time
	EndAt     *time.Time
}

// Statement is the full ledger view for one subject: every charge including
// voided ones, every payment including reversed ones, and the totals with
// void and reversed rows excluded.
type Statement struct {
	SubjectID   string                   `json:"subject_id"`
	Charges     []chargedomain.Response  `json:"charges"`
	Payments    []paymentdomain.Response `json:"payments"`
	Totals      Totals                   `json:"totals"`
	GeneratedAt time.Time                `json:"generated_at"`
}

type Service interface {
	Generate(ctx context.Context, query Query) (*Statement, error)
	// TotalsFor computes the position without loading full history.
	TotalsFor(ctx context.Context, subjectID snowflake.ID) (*Totals, error)
}

var (
	ErrInvalidSubject   = errors.New("invalid_subject")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
)
