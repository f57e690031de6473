package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	chargedomain "github.com/medisync/medledger/internal/charge/domain"
	"github.com/medisync/medledger/internal/clock"
	paymentdomain "github.com/medisync/medledger/internal/payment/domain"
	statementdomain "github.com/medisync/medledger/internal/statement/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  statementdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  statementdomain.Repository
}

func NewService(p Params) statementdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("statement.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Generate(ctx context.Context, query statementdomain.Query) (*statementdomain.Statement, error) {
	if query.SubjectID == 0 {
		return nil, statementdomain.ErrInvalidSubject
	}
	if query.StartAt != nil && query.EndAt != nil && query.EndAt.Before(*query.StartAt) {
		return nil, statementdomain.ErrInvalidTimeRange
	}

	charges, err := s.repo.ChargesBySubject(ctx, s.db, query)
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.PaymentsBySubject(ctx, s.db, query)
	if err != nil {
		return nil, err
	}

	paymentIDs := make([]snowflake.ID, 0, len(payments))
	for i := range payments {
		paymentIDs = append(paymentIDs, payments[i].ID)
	}
	allocations, err := s.repo.AllocationsForPayments(ctx, s.db, paymentIDs)
	if err != nil {
		return nil, err
	}

	totals, err := s.repo.Totals(ctx, s.db, query.SubjectID)
	if err != nil {
		return nil, err
	}

	statement := statementdomain.Statement{
		SubjectID:   query.SubjectID.String(),
		Charges:     make([]chargedomain.Response, 0, len(charges)),
		Payments:    make([]paymentdomain.Response, 0, len(payments)),
		Totals:      *totals,
		GeneratedAt: s.clock.Now(),
	}
	for i := range charges {
		statement.Charges = append(statement.Charges, *chargeResponse(&charges[i]))
	}
	for i := range payments {
		statement.Payments = append(statement.Payments, *paymentResponse(&payments[i], allocations[payments[i].ID]))
	}
	return &statement, nil
}

func (s *Service) TotalsFor(ctx context.Context, subjectID snowflake.ID) (*statementdomain.Totals, error) {
	if subjectID == 0 {
		return nil, statementdomain.ErrInvalidSubject
	}
	return s.repo.Totals(ctx, s.db, subjectID)
}

func chargeResponse(c *chargedomain.Charge) *chargedomain.Response {
	resp := chargedomain.Response{
		ID:             c.ID.String(),
		SubjectID:      c.SubjectID.String(),
		ServiceCode:    c.ServiceCode,
		Quantity:       c.Quantity,
		UnitPriceCents: c.UnitPriceCents,
		AmountCents:    c.AmountCents,
		Currency:       c.Currency,
		PriceSource:    c.PriceSource,
		Status:         c.Status,
		Metadata:       c.Metadata,
		VoidReason:     c.VoidReason,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
	if c.FacilityID != nil {
		facilityID := c.FacilityID.String()
		resp.FacilityID = &facilityID
	}
	if c.OwnerID != nil {
		ownerID := c.OwnerID.String()
		resp.OwnerID = &ownerID
	}
	return &resp
}

func paymentResponse(p *paymentdomain.Payment, allocations []paymentdomain.PaymentAllocation) *paymentdomain.Response {
	resp := paymentdomain.Response{
		ID:            p.ID.String(),
		SubjectID:     p.SubjectID.String(),
		AmountCents:   p.AmountCents,
		Currency:      p.Currency,
		Method:        p.Method,
		Reference:     p.Reference,
		Status:        p.Status,
		Metadata:      p.Metadata,
		ReverseReason: p.ReverseReason,
		ReversedAt:    p.ReversedAt,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if p.FacilityID != nil {
		facilityID := p.FacilityID.String()
		resp.FacilityID = &facilityID
	}
	if p.OwnerID != nil {
		ownerID := p.OwnerID.String()
		resp.OwnerID = &ownerID
	}
	for _, alloc := range allocations {
		resp.Allocations = append(resp.Allocations, paymentdomain.AllocationResponse{
			ChargeID:    alloc.ChargeID.String(),
			AmountCents: alloc.AmountCents,
			Active:      alloc.Active,
		})
	}
	return &resp
}
