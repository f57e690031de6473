package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/medisync/medledger/internal/audit/domain"
	catalogdomain "github.com/medisync/medledger/internal/catalog/domain"
	"github.com/medisync/medledger/internal/clock"
	"github.com/medisync/medledger/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Cfg      config.Config
	Repo     catalogdomain.Repository
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	cfg      config.Config
	repo     catalogdomain.Repository
	auditSvc auditdomain.Service
}

func NewService(p Params) catalogdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("catalog.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		cfg:      p.Cfg,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Upsert(ctx context.Context, req catalogdomain.UpsertRequest) (*catalogdomain.Response, error) {
	code := normalizeCode(req.Code)
	if code == "" {
		return nil, catalogdomain.ErrInvalidCode
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, catalogdomain.ErrInvalidName
	}
	if req.DefaultPriceCents < 0 {
		return nil, catalogdomain.ErrInvalidDefaultPrice
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}
	if len(currency) != 3 {
		return nil, catalogdomain.ErrInvalidCurrency
	}

	now := s.clock.Now()
	row := catalogdomain.BillableService{
		ID:                s.genID.Generate(),
		Code:              code,
		Name:              name,
		DefaultPriceCents: req.DefaultPriceCents,
		Currency:          currency,
		Active:            true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.Upsert(ctx, tx, &row)
	})
	if err != nil {
		return nil, err
	}

	// Re-read so updates return the surviving row, not the candidate insert.
	stored, err := s.repo.FindByCode(ctx, s.db, code)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, catalogdomain.ErrServiceNotFound
	}

	return toResponse(stored), nil
}

func (s *Service) Get(ctx context.Context, code string) (*catalogdomain.Response, error) {
	normalized := normalizeCode(code)
	if normalized == "" {
		return nil, catalogdomain.ErrInvalidCode
	}

	svc, err := s.repo.FindByCode(ctx, s.db, normalized)
	if err != nil {
		return nil, err
	}
	if svc == nil {
		return nil, catalogdomain.ErrServiceNotFound
	}
	return toResponse(svc), nil
}

func (s *Service) List(ctx context.Context, includeInactive bool) ([]catalogdomain.Response, error) {
	items, err := s.repo.List(ctx, s.db, includeInactive)
	if err != nil {
		return nil, err
	}

	out := make([]catalogdomain.Response, 0, len(items))
	for i := range items {
		out = append(out, *toResponse(&items[i]))
	}
	return out, nil
}

func (s *Service) Deactivate(ctx context.Context, code string) (*catalogdomain.Response, error) {
	normalized := normalizeCode(code)
	if normalized == "" {
		return nil, catalogdomain.ErrInvalidCode
	}

	svc, err := s.repo.FindByCode(ctx, s.db, normalized)
	if err != nil {
		return nil, err
	}
	if svc == nil {
		return nil, catalogdomain.ErrServiceNotFound
	}
	if !svc.Active {
		return toResponse(svc), nil
	}

	if err := s.repo.SetActive(ctx, s.db, normalized, false); err != nil {
		return nil, err
	}
	svc.Active = false

	if s.auditSvc != nil {
		targetID := svc.ID.String()
		_ = s.auditSvc.AuditLog(ctx, auditdomain.SystemActor, "catalog.deactivate", "billable_service", &targetID, map[string]any{
			"code": normalized,
		})
	}

	return toResponse(svc), nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func toResponse(svc *catalogdomain.BillableService) *catalogdomain.Response {
	return &catalogdomain.Response{
		ID:                svc.ID.String(),
		Code:              svc.Code,
		Name:              svc.Name,
		DefaultPriceCents: svc.DefaultPriceCents,
		Currency:          svc.Currency,
		Active:            svc.Active,
		CreatedAt:         svc.CreatedAt,
		UpdatedAt:         svc.UpdatedAt,
	}
}
