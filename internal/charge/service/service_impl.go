package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/medisync/medledger/internal/audit/domain"
	chargedomain "github.com/medisync/medledger/internal/charge/domain"
	"github.com/medisync/medledger/internal/clock"
	"github.com/medisync/medledger/internal/events"
	"github.com/medisync/medledger/internal/observability/metrics"
	pricingdomain "github.com/medisync/medledger/internal/pricing/domain"
	"github.com/medisync/medledger/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       chargedomain.Repository
	PricingSvc pricingdomain.Service
	Outbox     *events.Outbox
	AuditSvc   auditdomain.Service `optional:"true"`
	Metrics    *metrics.Metrics    `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       chargedomain.Repository
	pricingSvc pricingdomain.Service
	outbox     *events.Outbox
	auditSvc   auditdomain.Service
	metrics    *metrics.Metrics
}

func NewService(p Params) chargedomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("charge.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		pricingSvc: p.PricingSvc,
		outbox:     p.Outbox,
		auditSvc:   p.AuditSvc,
		metrics:    p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, actor auditdomain.Actor, req chargedomain.CreateRequest) (*chargedomain.Response, error) {
	if actor.IsZero() {
		return nil, auditdomain.ErrInvalidActor
	}
	if req.SubjectID == 0 {
		return nil, chargedomain.ErrInvalidSubject
	}
	if req.Quantity < 1 {
		return nil, chargedomain.ErrInvalidQuantity
	}
	if err := req.Scope.Validate(); err != nil {
		return nil, err
	}

	quote, err := s.pricingSvc.Resolve(ctx, pricingdomain.ResolveQuery{
		ServiceCode: req.ServiceCode,
		Scope:       req.Scope,
		PayerID:     req.PayerID,
	})
	if err != nil {
		return nil, err
	}
	// A resolved price is never negative through SetPrice, but an override row
	// written outside the API must not become a negative ledger entry.
	if quote.UnitPriceCents < 0 {
		s.log.Error("resolved price is negative",
			zap.String("service_code", req.ServiceCode),
			zap.Int64("unit_price_cents", quote.UnitPriceCents),
		)
		return nil, chargedomain.ErrInvalidPrice
	}

	now := s.clock.Now()
	amount := quote.UnitPriceCents * req.Quantity
	charge := chargedomain.Charge{
		ID:             s.genID.Generate(),
		SubjectID:      req.SubjectID,
		FacilityID:     req.Scope.FacilityID,
		OwnerID:        req.Scope.OwnerID,
		ServiceID:      quote.ServiceID,
		ServiceCode:    quote.ServiceCode,
		Quantity:       req.Quantity,
		UnitPriceCents: quote.UnitPriceCents,
		AmountCents:    amount,
		Currency:       quote.Currency,
		PriceSource:    quote.Source,
		Status:         chargedomain.StatusFor(amount, 0),
		Metadata:       toJSONMap(req.Metadata),
		CreatedBy:      actor.String(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &charge); err != nil {
			return err
		}
		return s.outbox.PublishTx(ctx, tx, events.Event{
			SubjectID: charge.SubjectID,
			Type:      events.EventChargeCreated,
			DedupeKey: events.EventChargeCreated + ":" + charge.ID.String(),
			Payload: map[string]any{
				"charge_id":    charge.ID.String(),
				"service_code": charge.ServiceCode,
				"amount_cents": charge.AmountCents,
				"price_source": string(charge.PriceSource),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordChargeCreated(ctx, string(charge.PriceSource))
	s.audit(ctx, actor, "charge.create", charge.ID, map[string]any{
		"service_code": charge.ServiceCode,
		"amount_cents": charge.AmountCents,
		"price_source": string(charge.PriceSource),
	})

	return toResponse(&charge), nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*chargedomain.Response, error) {
	charge, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if charge == nil {
		return nil, chargedomain.ErrChargeNotFound
	}
	return toResponse(charge), nil
}

func (s *Service) List(ctx context.Context, filter chargedomain.ListFilter) (*chargedomain.ListResponse, error) {
	if filter.SubjectID == 0 {
		return nil, chargedomain.ErrInvalidSubject
	}

	limit := filter.Pagination.PageSize
	if limit <= 0 {
		limit = 25
	}

	var cursor *pagination.Cursor
	if token := filter.Pagination.PageToken; token != "" {
		decoded, err := pagination.DecodeCursor(token)
		if err != nil {
			return nil, auditdomain.ErrInvalidPageToken
		}
		cursor = decoded
	}

	items, err := s.repo.List(ctx, s.db, filter, cursor, limit+1)
	if err != nil {
		return nil, err
	}

	resp := chargedomain.ListResponse{Charges: make([]chargedomain.Response, 0, len(items))}
	if len(items) > limit {
		items = items[:limit]
		last := items[len(items)-1]
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        last.ID.String(),
			CreatedAt: last.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return nil, err
		}
		resp.PageInfo = pagination.PageInfo{NextPageToken: token, HasMore: true}
	}
	for i := range items {
		resp.Charges = append(resp.Charges, *toResponse(&items[i]))
	}
	return &resp, nil
}

func (s *Service) Void(ctx context.Context, actor auditdomain.Actor, id snowflake.ID, reason string) (*chargedomain.Response, error) {
	if actor.IsZero() {
		return nil, auditdomain.ErrInvalidActor
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, chargedomain.ErrInvalidVoidReason
	}

	var voided *chargedomain.Charge
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		charge, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if charge == nil {
			return chargedomain.ErrChargeNotFound
		}
		if !chargedomain.CanTransition(charge.Status, chargedomain.StatusVoid) || charge.Status == chargedomain.StatusVoid {
			return chargedomain.ErrInvalidChargeState
		}

		allocated, err := s.repo.SumAllocated(ctx, tx, charge.ID)
		if err != nil {
			return err
		}
		if allocated > 0 {
			return chargedomain.ErrChargeHasPayments
		}

		now := s.clock.Now()
		if err := s.repo.UpdateStatus(ctx, tx, charge.ID, chargedomain.StatusVoid, &reason, now); err != nil {
			return err
		}

		charge.Status = chargedomain.StatusVoid
		charge.VoidReason = &reason
		charge.UpdatedAt = now
		voided = charge

		return s.outbox.PublishTx(ctx, tx, events.Event{
			SubjectID: charge.SubjectID,
			Type:      events.EventChargeVoided,
			DedupeKey: events.EventChargeVoided + ":" + charge.ID.String(),
			Payload: map[string]any{
				"charge_id": charge.ID.String(),
				"reason":    reason,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordChargeVoided(ctx)
	s.audit(ctx, actor, "charge.void", voided.ID, map[string]any{"reason": reason})

	return toResponse(voided), nil
}

func (s *Service) audit(ctx context.Context, actor auditdomain.Actor, action string, chargeID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	targetID := chargeID.String()
	if err := s.auditSvc.AuditLog(ctx, actor, action, "charge", &targetID, metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

func toJSONMap(m map[string]any) datatypes.JSONMap {
	if len(m) == 0 {
		return nil
	}
	out := datatypes.JSONMap{}
	for key, value := range m {
		out[key] = value
	}
	return out
}

func toResponse(c *chargedomain.Charge) *chargedomain.Response {
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
