package authorization

import (
	"context"
	_ "embed"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/medisync/medledger/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor auditdomain.Actor, scope string, object string, action string) error {
	if actor.IsZero() {
		return ErrInvalidActor
	}
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return ErrInvalidScope
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject := subjectFor(actor)
	allowed, err := s.enforcer.Enforce(subject, scopeDomain(scope), object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, actor, scope, object, action)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) CanPostPayment(ctx context.Context, actor auditdomain.Actor, scope string) bool {
	return s.Authorize(ctx, actor, scope, ObjectPayment, ActionPaymentPost) == nil
}

func (s *ServiceImpl) AssignRole(ctx context.Context, actor auditdomain.Actor, role string, scope string) error {
	if actor.IsZero() {
		return ErrInvalidActor
	}
	role = strings.TrimSpace(role)
	switch role {
	case RoleCashier, RoleBillingAdmin, RoleAuditor:
	default:
		return ErrInvalidRole
	}
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return ErrInvalidScope
	}

	if _, err := s.enforcer.AddRoleForUserInDomain(subjectFor(actor), role, scopeDomain(scope)); err != nil {
		return err
	}
	return nil
}

func (s *ServiceImpl) auditDenied(ctx context.Context, actor auditdomain.Actor, scope, object, action string) {
	if s.auditSvc == nil {
		return
	}
	if err := s.auditSvc.AuditLog(ctx, actor, "authorization.denied", object, nil, map[string]any{
		"scope":  scope,
		"action": action,
	}); err != nil {
		s.log.Warn("failed to audit authorization denial", zap.Error(err))
	}
}

func subjectFor(actor auditdomain.Actor) string {
	return actor.Type + ":" + actor.ID
}

func scopeDomain(scope string) string {
	return "scope:" + scope
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Cashier: front-desk charging and payment posting.
		{RoleCashier, ObjectCatalog, ActionCatalogView},
		{RoleCashier, ObjectPrice, ActionPriceView},
		{RoleCashier, ObjectCharge, ActionChargeView},
		{RoleCashier, ObjectCharge, ActionChargeCreate},
		{RoleCashier, ObjectPayment, ActionPaymentView},
		{RoleCashier, ObjectPayment, ActionPaymentPost},
		{RoleCashier, ObjectStatement, ActionStatementView},

		// Billing admin: full ledger control.
		{RoleBillingAdmin, ObjectCatalog, ActionCatalogView},
		{RoleBillingAdmin, ObjectCatalog, ActionCatalogUpsert},
		{RoleBillingAdmin, ObjectPrice, ActionPriceView},
		{RoleBillingAdmin, ObjectPrice, ActionPriceSet},
		{RoleBillingAdmin, ObjectCharge, ActionChargeView},
		{RoleBillingAdmin, ObjectCharge, ActionChargeCreate},
		{RoleBillingAdmin, ObjectCharge, ActionChargeVoid},
		{RoleBillingAdmin, ObjectPayment, ActionPaymentView},
		{RoleBillingAdmin, ObjectPayment, ActionPaymentPost},
		{RoleBillingAdmin, ObjectPayment, ActionPaymentReverse},
		{RoleBillingAdmin, ObjectStatement, ActionStatementView},
		{RoleBillingAdmin, ObjectAuditLog, ActionAuditLogView},
		{RoleBillingAdmin, ObjectRole, ActionRoleAssign},

		// Auditor: read only.
		{RoleAuditor, ObjectCharge, ActionChargeView},
		{RoleAuditor, ObjectPayment, ActionPaymentView},
		{RoleAuditor, ObjectStatement, ActionStatementView},
		{RoleAuditor, ObjectAuditLog, ActionAuditLogView},
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy[0], policy[1], policy[2]); err != nil {
			return err
		}
	}
	return nil
}

var Module = fx.Module("authorization",
	fx.Provide(NewEnforcer),
	fx.Provide(NewService),
)
