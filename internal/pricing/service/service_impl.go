package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/medisync/medledger/internal/audit/domain"
	catalogdomain "github.com/medisync/medledger/internal/catalog/domain"
	"github.com/medisync/medledger/internal/clock"
	pricingdomain "github.com/medisync/medledger/internal/pricing/domain"
	"github.com/medisync/medledger/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        pricingdomain.Repository
	CatalogRepo catalogdomain.Repository
	AuditSvc    auditdomain.Service `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        pricingdomain.Repository
	catalogRepo catalogdomain.Repository
	auditSvc    auditdomain.Service
}

func NewService(p Params) pricingdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("pricing.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		catalogRepo: p.CatalogRepo,
		auditSvc:    p.AuditSvc,
	}
}

// Resolve returns the single applicable unit price for a service in a scope.
// Precedence, each tier short-circuiting on a match:
//  1. payer override, when the subject is insured and the payer is affiliated
//     with the facility
//  2. facility override
//  3. owner override
//  4. the service's default price
//
// Resolution performs no writes; absence of an override falls through to the
// next tier and never fails.
func (s *Service) Resolve(ctx context.Context, query pricingdomain.ResolveQuery) (*pricingdomain.Quote, error) {
	code := strings.ToUpper(strings.TrimSpace(query.ServiceCode))
	if code == "" {
		return nil, catalogdomain.ErrInvalidCode
	}
	if err := query.Scope.Validate(); err != nil {
		return nil, err
	}

	svc, err := s.catalogRepo.FindByCode(ctx, s.db, code)
	if err != nil {
		return nil, err
	}
	if svc == nil {
		return nil, catalogdomain.ErrServiceNotFound
	}
	if !svc.Active {
		return nil, catalogdomain.ErrServiceInactive
	}

	if query.PayerID != nil && *query.PayerID != 0 && query.Scope.IsFacility() {
		affiliated, err := s.repo.IsPayerAffiliated(ctx, s.db, *query.PayerID, *query.Scope.FacilityID)
		if err != nil {
			return nil, err
		}
		if affiliated {
			override, err := s.repo.FindActivePayerPrice(ctx, s.db, *query.Scope.FacilityID, *query.PayerID, svc.ID)
			if err != nil {
				return nil, err
			}
			if override != nil {
				return &pricingdomain.Quote{
					ServiceID:      svc.ID,
					ServiceCode:    svc.Code,
					UnitPriceCents: override.AmountCents,
					Currency:       override.Currency,
					Source:         pricingdomain.SourcePayerOverride,
				}, nil
			}
		}
	}

	override, err := s.repo.FindActivePrice(ctx, s.db, query.Scope, svc.ID)
	if err != nil {
		return nil, err
	}
	if override != nil {
		source := pricingdomain.SourceFacilityOverride
		if query.Scope.IsOwner() {
			source = pricingdomain.SourceOwnerOverride
		}
		return &pricingdomain.Quote{
			ServiceID:      svc.ID,
			ServiceCode:    svc.Code,
			UnitPriceCents: override.AmountCents,
			Currency:       override.Currency,
			Source:         source,
		}, nil
	}

	return &pricingdomain.Quote{
		ServiceID:      svc.ID,
		ServiceCode:    svc.Code,
		UnitPriceCents: svc.DefaultPriceCents,
		Currency:       svc.Currency,
		Source:         pricingdomain.SourceDefault,
	}, nil
}

func (s *Service) SetPrice(ctx context.Context, req pricingdomain.SetPriceRequest) (*pricingdomain.PriceResponse, error) {
	if err := req.Scope.Validate(); err != nil {
		return nil, err
	}
	if req.AmountCents < 0 {
		return nil, pricingdomain.ErrInvalidAmount
	}

	svc, err := s.lookupService(ctx, req.ServiceCode)
	if err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = svc.Currency
	}
	if len(currency) != 3 {
		return nil, pricingdomain.ErrInvalidCurrency
	}

	now := s.clock.Now()
	price := pricingdomain.Price{
		ID:          s.genID.Generate(),
		FacilityID:  req.Scope.FacilityID,
		OwnerID:     req.Scope.OwnerID,
		ServiceID:   svc.ID,
		AmountCents: req.AmountCents,
		Currency:    currency,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// Supersede-then-insert keeps the one-active-row invariant. A concurrent
	// writer racing past the deactivate trips the partial unique index.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.DeactivatePrices(ctx, tx, req.Scope, svc.ID); err != nil {
			return err
		}
		return s.repo.InsertPrice(ctx, tx, &price)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, pricingdomain.ErrPriceConflict
		}
		return nil, err
	}

	if s.auditSvc != nil {
		targetID := price.ID.String()
		_ = s.auditSvc.AuditLog(ctx, auditdomain.SystemActor, "pricing.set_price", "price", &targetID, map[string]any{
			"scope":        req.Scope.Key(),
			"service_code": svc.Code,
			"amount_cents": req.AmountCents,
		})
	}

	return toPriceResponse(&price, svc.Code), nil
}

func (s *Service) SetPayerPrice(ctx context.Context, req pricingdomain.SetPayerPriceRequest) (*pricingdomain.PriceResponse, error) {
	if req.FacilityID == 0 {
		return nil, pricingdomain.ErrInvalidFacility
	}
	if req.PayerID == 0 {
		return nil, pricingdomain.ErrInvalidPayer
	}
	if req.AmountCents < 0 {
		return nil, pricingdomain.ErrInvalidAmount
	}

	payer, err := s.repo.FindPayerByID(ctx, s.db, req.PayerID)
	if err != nil {
		return nil, err
	}
	if payer == nil {
		return nil, pricingdomain.ErrPayerNotFound
	}

	svc, err := s.lookupService(ctx, req.ServiceCode)
	if err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = svc.Currency
	}
	if len(currency) != 3 {
		return nil, pricingdomain.ErrInvalidCurrency
	}

	price := pricingdomain.PayerPrice{
		ID:          s.genID.Generate(),
		FacilityID:  req.FacilityID,
		PayerID:     req.PayerID,
		ServiceID:   svc.ID,
		AmountCents: req.AmountCents,
		Currency:    currency,
		Active:      true,
		CreatedAt:   s.clock.Now(),
	}

	if err := s.repo.InsertPayerPrice(ctx, s.db, &price); err != nil {
		return nil, err
	}

	facilityID := price.FacilityID.String()
	return &pricingdomain.PriceResponse{
		ID:          price.ID.String(),
		FacilityID:  &facilityID,
		ServiceCode: svc.Code,
		AmountCents: price.AmountCents,
		Currency:    price.Currency,
		Active:      price.Active,
		CreatedAt:   price.CreatedAt,
	}, nil
}

func (s *Service) ListPrices(ctx context.Context, scope pricingdomain.Scope) ([]pricingdomain.PriceResponse, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	items, err := s.repo.ListPrices(ctx, s.db, scope)
	if err != nil {
		return nil, err
	}

	out := make([]pricingdomain.PriceResponse, 0, len(items))
	for i := range items {
		svc, err := s.catalogRepo.FindByID(ctx, s.db, items[i].ServiceID)
		if err != nil {
			return nil, err
		}
		code := ""
		if svc != nil {
			code = svc.Code
		}
		out = append(out, *toPriceResponse(&items[i], code))
	}
	return out, nil
}

func (s *Service) RegisterPayer(ctx context.Context, req pricingdomain.RegisterPayerRequest) (*pricingdomain.PayerResponse, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return nil, pricingdomain.ErrInvalidPayer
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pricingdomain.ErrInvalidPayer
	}

	payer := pricingdomain.Payer{
		ID:        s.genID.Generate(),
		Name:      name,
		Code:      code,
		Active:    true,
		CreatedAt: s.clock.Now(),
	}

	if err := s.repo.InsertPayer(ctx, s.db, &payer); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, pricingdomain.ErrPriceConflict
		}
		return nil, err
	}

	return &pricingdomain.PayerResponse{
		ID:        payer.ID.String(),
		Code:      payer.Code,
		Name:      payer.Name,
		Active:    payer.Active,
		CreatedAt: payer.CreatedAt,
	}, nil
}

func (s *Service) AffiliatePayer(ctx context.Context, payerID, facilityID snowflake.ID) error {
	if payerID == 0 {
		return pricingdomain.ErrInvalidPayer
	}
	if facilityID == 0 {
		return pricingdomain.ErrInvalidFacility
	}

	payer, err := s.repo.FindPayerByID(ctx, s.db, payerID)
	if err != nil {
		return err
	}
	if payer == nil {
		return pricingdomain.ErrPayerNotFound
	}

	return s.repo.InsertAffiliation(ctx, s.db, &pricingdomain.PayerAffiliation{
		ID:         s.genID.Generate(),
		PayerID:    payerID,
		FacilityID: facilityID,
		CreatedAt:  s.clock.Now(),
	})
}

func (s *Service) lookupService(ctx context.Context, code string) (*catalogdomain.BillableService, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, catalogdomain.ErrInvalidCode
	}
	svc, err := s.catalogRepo.FindByCode(ctx, s.db, normalized)
	if err != nil {
		return nil, err
	}
	if svc == nil {
		return nil, catalogdomain.ErrServiceNotFound
	}
	if !svc.Active {
		return nil, catalogdomain.ErrServiceInactive
	}
	return svc, nil
}

func toPriceResponse(p *pricingdomain.Price, serviceCode string) *pricingdomain.PriceResponse {
	resp := pricingdomain.PriceResponse{
		ID:          p.ID.String(),
		ServiceCode: serviceCode,
		AmountCents: p.AmountCents,
		Currency:    p.Currency,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt,
	}
	if p.FacilityID != nil {
		facilityID := p.FacilityID.String()
		resp.FacilityID = &facilityID
	}
	if p.OwnerID != nil {
		ownerID := p.OwnerID.String()
		resp.OwnerID = &ownerID
	}
	return &resp
}
