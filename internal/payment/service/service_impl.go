package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/medisync/medledger/internal/audit/domain"
	"github.com/medisync/medledger/internal/authorization"
	chargedomain "github.com/medisync/medledger/internal/charge/domain"
	"github.com/medisync/medledger/internal/clock"
	"github.com/medisync/medledger/internal/config"
	"github.com/medisync/medledger/internal/events"
	"github.com/medisync/medledger/internal/observability/metrics"
	paymentdomain "github.com/medisync/medledger/internal/payment/domain"
	"github.com/medisync/medledger/pkg/db"
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
	Cfg        config.Config
	Repo       paymentdomain.Repository
	ChargeRepo chargedomain.Repository
	Outbox     *events.Outbox
	Authz      authorization.Service `optional:"true"`
	AuditSvc   auditdomain.Service   `optional:"true"`
	Metrics    *metrics.Metrics      `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	cfg        config.Config
	repo       paymentdomain.Repository
	chargeRepo chargedomain.Repository
	outbox     *events.Outbox
	authz      authorization.Service
	auditSvc   auditdomain.Service
	metrics    *metrics.Metrics
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		cfg:        p.Cfg,
		repo:       p.Repo,
		chargeRepo: p.ChargeRepo,
		outbox:     p.Outbox,
		authz:      p.Authz,
		auditSvc:   p.AuditSvc,
		metrics:    p.Metrics,
	}
}

var validMethods = map[string]struct{}{
	paymentdomain.MethodCash:     {},
	paymentdomain.MethodCard:     {},
	paymentdomain.MethodTransfer: {},
	paymentdomain.MethodPayer:    {},
}

func (s *Service) Post(ctx context.Context, actor auditdomain.Actor, req paymentdomain.PostRequest) (*paymentdomain.PostResult, error) {
	if actor.IsZero() {
		return nil, auditdomain.ErrInvalidActor
	}
	if req.SubjectID == 0 {
		return nil, chargedomain.ErrInvalidSubject
	}
	if req.AmountCents <= 0 {
		return nil, paymentdomain.ErrInvalidPaymentAmount
	}
	if err := req.Scope.Validate(); err != nil {
		return nil, err
	}

	method := strings.ToLower(strings.TrimSpace(req.Method))
	if _, ok := validMethods[method]; !ok {
		return nil, paymentdomain.ErrInvalidMethod
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}

	allocations, err := normalizeAllocations(req.Allocations, req.AmountCents)
	if err != nil {
		return nil, err
	}

	if s.authz != nil && !s.authz.CanPostPayment(ctx, actor, req.Scope.Key()) {
		return nil, authorization.ErrForbidden
	}

	now := s.clock.Now()
	payment := paymentdomain.Payment{
		ID:          s.genID.Generate(),
		SubjectID:   req.SubjectID,
		FacilityID:  req.Scope.FacilityID,
		OwnerID:     req.Scope.OwnerID,
		AmountCents: req.AmountCents,
		Currency:    currency,
		Method:      method,
		Reference:   strings.TrimSpace(req.Reference),
		Status:      paymentdomain.StatusPosted,
		Metadata:    toJSONMap(req.Metadata),
		CreatedBy:   actor.String(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var changes []paymentdomain.ChargeStatusChange
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.setLockTimeout(ctx, tx); err != nil {
			return err
		}

		if err := s.repo.Insert(ctx, tx, &payment); err != nil {
			return err
		}

		// Charges lock in ascending id order so concurrent postings against
		// overlapping charge sets cannot deadlock.
		for _, alloc := range allocations {
			charge, err := s.chargeRepo.FindByIDForUpdate(ctx, tx, alloc.ChargeID)
			if err != nil {
				return err
			}
			if charge == nil {
				return chargedomain.ErrChargeNotFound
			}
			if charge.Status == chargedomain.StatusVoid {
				return chargedomain.ErrInvalidChargeState
			}
			if charge.Scope().Key() != req.Scope.Key() || charge.SubjectID != req.SubjectID {
				return paymentdomain.ErrScopeMismatch
			}
			if charge.Currency != currency {
				return paymentdomain.ErrCurrencyMismatch
			}

			allocated, err := s.chargeRepo.SumAllocated(ctx, tx, charge.ID)
			if err != nil {
				return err
			}
			if allocated+alloc.AmountCents > charge.AmountCents {
				return paymentdomain.ErrOverAllocation
			}

			if err := s.repo.InsertAllocation(ctx, tx, &paymentdomain.PaymentAllocation{
				ID:          s.genID.Generate(),
				PaymentID:   payment.ID,
				ChargeID:    charge.ID,
				AmountCents: alloc.AmountCents,
				Active:      true,
				CreatedAt:   now,
			}); err != nil {
				if db.IsDuplicateKeyErr(err) {
					return paymentdomain.ErrDuplicateAllocation
				}
				return err
			}

			next := chargedomain.StatusFor(charge.AmountCents, allocated+alloc.AmountCents)
			if next != charge.Status {
				if !chargedomain.CanTransition(charge.Status, next) {
					return chargedomain.ErrInvalidChargeState
				}
				if err := s.chargeRepo.UpdateStatus(ctx, tx, charge.ID, next, nil, now); err != nil {
					return err
				}
				changes = append(changes, paymentdomain.ChargeStatusChange{
					ChargeID: charge.ID.String(),
					Status:   next,
				})
			}
		}

		return s.outbox.PublishTx(ctx, tx, events.Event{
			SubjectID: payment.SubjectID,
			Type:      events.EventPaymentPosted,
			DedupeKey: events.EventPaymentPosted + ":" + payment.ID.String(),
			Payload: map[string]any{
				"payment_id":   payment.ID.String(),
				"amount_cents": payment.AmountCents,
				"method":       payment.Method,
				"allocations":  len(allocations),
			},
		})
	})
	if err != nil {
		if db.IsLockTimeoutErr(err) {
			s.metrics.RecordLockConflict(ctx)
			return nil, paymentdomain.ErrLockConflict
		}
		return nil, err
	}

	s.metrics.RecordPaymentPosted(ctx, payment.Method)
	s.audit(ctx, actor, "payment.post", payment.ID, map[string]any{
		"amount_cents": payment.AmountCents,
		"method":       payment.Method,
		"reference":    payment.Reference,
		"allocations":  len(allocations),
	})

	resp := toResponse(&payment, allocationRows(payment.ID, allocations, now))
	return &paymentdomain.PostResult{Payment: *resp, ChargeChanges: changes}, nil
}

func (s *Service) Reverse(ctx context.Context, actor auditdomain.Actor, id snowflake.ID, reason string) (*paymentdomain.PostResult, error) {
	if actor.IsZero() {
		return nil, auditdomain.ErrInvalidActor
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, paymentdomain.ErrInvalidReverseReason
	}

	var (
		payment *paymentdomain.Payment
		rows    []paymentdomain.PaymentAllocation
		changes []paymentdomain.ChargeStatusChange
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.setLockTimeout(ctx, tx); err != nil {
			return err
		}

		found, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if found == nil {
			return paymentdomain.ErrPaymentNotFound
		}
		if found.Status == paymentdomain.StatusReversed {
			return paymentdomain.ErrPaymentAlreadyReversed
		}

		allocs, err := s.repo.AllocationsByPayment(ctx, tx, found.ID)
		if err != nil {
			return err
		}

		now := s.clock.Now()

		// Allocation rows come back in charge id order, so the charge locks
		// here follow the same ordering as posting.
		for _, alloc := range allocs {
			if !alloc.Active {
				continue
			}
			charge, err := s.chargeRepo.FindByIDForUpdate(ctx, tx, alloc.ChargeID)
			if err != nil {
				return err
			}
			if charge == nil {
				return chargedomain.ErrChargeNotFound
			}

			allocated, err := s.chargeRepo.SumAllocated(ctx, tx, charge.ID)
			if err != nil {
				return err
			}
			next := chargedomain.StatusFor(charge.AmountCents, allocated-alloc.AmountCents)
			if next != charge.Status {
				if !chargedomain.CanTransition(charge.Status, next) {
					return chargedomain.ErrInvalidChargeState
				}
				if err := s.chargeRepo.UpdateStatus(ctx, tx, charge.ID, next, nil, now); err != nil {
					return err
				}
				changes = append(changes, paymentdomain.ChargeStatusChange{
					ChargeID: charge.ID.String(),
					Status:   next,
				})
			}
		}

		if err := s.repo.DeactivateAllocations(ctx, tx, found.ID); err != nil {
			return err
		}

		reversedBy := actor.String()
		found.Status = paymentdomain.StatusReversed
		found.ReversedBy = &reversedBy
		found.ReverseReason = &reason
		found.ReversedAt = &now
		found.UpdatedAt = now
		if err := s.repo.MarkReversed(ctx, tx, found); err != nil {
			return err
		}

		payment = found
		for i := range allocs {
			allocs[i].Active = false
		}
		rows = allocs

		return s.outbox.PublishTx(ctx, tx, events.Event{
			SubjectID: found.SubjectID,
			Type:      events.EventPaymentReversed,
			DedupeKey: events.EventPaymentReversed + ":" + found.ID.String(),
			Payload: map[string]any{
				"payment_id":   found.ID.String(),
				"amount_cents": found.AmountCents,
				"reason":       reason,
			},
		})
	})
	if err != nil {
		if db.IsLockTimeoutErr(err) {
			s.metrics.RecordLockConflict(ctx)
			return nil, paymentdomain.ErrLockConflict
		}
		return nil, err
	}

	s.metrics.RecordPaymentReversed(ctx)
	s.audit(ctx, actor, "payment.reverse", payment.ID, map[string]any{
		"amount_cents": payment.AmountCents,
		"reason":       reason,
	})

	return &paymentdomain.PostResult{Payment: *toResponse(payment, rows), ChargeChanges: changes}, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*paymentdomain.Response, error) {
	payment, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, paymentdomain.ErrPaymentNotFound
	}
	rows, err := s.repo.AllocationsByPayment(ctx, s.db, payment.ID)
	if err != nil {
		return nil, err
	}
	return toResponse(payment, rows), nil
}

func (s *Service) List(ctx context.Context, filter paymentdomain.ListFilter) (*paymentdomain.ListResponse, error) {
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

	items, err := s.repo.ListBySubject(ctx, s.db, filter.SubjectID, cursor, limit+1)
	if err != nil {
		return nil, err
	}

	resp := paymentdomain.ListResponse{Payments: make([]paymentdomain.Response, 0, len(items))}
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
		resp.Payments = append(resp.Payments, *toResponse(&items[i], nil))
	}
	return &resp, nil
}

// setLockTimeout bounds lock waits for the transaction on engines that support
// it, so contended postings fail fast as retryable conflicts instead of
// queueing indefinitely.
func (s *Service) setLockTimeout(ctx context.Context, tx *gorm.DB) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	timeout := s.cfg.LockTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return tx.WithContext(ctx).Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", timeout.Milliseconds())).Error
}

func (s *Service) audit(ctx context.Context, actor auditdomain.Actor, action string, paymentID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	targetID := paymentID.String()
	if err := s.auditSvc.AuditLog(ctx, actor, action, "payment", &targetID, metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

// normalizeAllocations validates the requested split and returns it sorted by
// charge id ascending.
func normalizeAllocations(in []paymentdomain.AllocationRequest, amountCents int64) ([]paymentdomain.AllocationRequest, error) {
	seen := make(map[snowflake.ID]struct{}, len(in))
	var total int64
	out := make([]paymentdomain.AllocationRequest, 0, len(in))
	for _, alloc := range in {
		if alloc.ChargeID == 0 || alloc.AmountCents <= 0 {
			return nil, paymentdomain.ErrInvalidAllocation
		}
		if _, dup := seen[alloc.ChargeID]; dup {
			return nil, paymentdomain.ErrDuplicateAllocation
		}
		seen[alloc.ChargeID] = struct{}{}
		total += alloc.AmountCents
		out = append(out, alloc)
	}
	if total > amountCents {
		return nil, paymentdomain.ErrAllocationExceedsPayment
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChargeID < out[j].ChargeID })
	return out, nil
}

func allocationRows(paymentID snowflake.ID, allocations []paymentdomain.AllocationRequest, createdAt time.Time) []paymentdomain.PaymentAllocation {
	rows := make([]paymentdomain.PaymentAllocation, 0, len(allocations))
	for _, alloc := range allocations {
		rows = append(rows, paymentdomain.PaymentAllocation{
			PaymentID:   paymentID,
			ChargeID:    alloc.ChargeID,
			AmountCents: alloc.AmountCents,
			Active:      true,
			CreatedAt:   createdAt,
		})
	}
	return rows
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

func toResponse(p *paymentdomain.Payment, allocations []paymentdomain.PaymentAllocation) *paymentdomain.Response {
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
