package authorization

import (
	"context"
	"errors"

	auditdomain "github.com/medisync/medledger/internal/audit/domain"
)

const (
	ObjectCatalog   = "catalog"
	ObjectPrice     = "price"
	ObjectCharge    = "charge"
	ObjectPayment   = "payment"
	ObjectStatement = "statement"
	ObjectAuditLog  = "audit_log"
	ObjectRole      = "role"
)

const (
	ActionCatalogView   = "catalog.view"
	ActionCatalogUpsert = "catalog.upsert"

	ActionPriceView = "price.view"
	ActionPriceSet  = "price.set"

	ActionChargeView   = "charge.view"
	ActionChargeCreate = "charge.create"
	ActionChargeVoid   = "charge.void"

	ActionPaymentView    = "payment.view"
	ActionPaymentPost    = "payment.post"
	ActionPaymentReverse = "payment.reverse"

	ActionStatementView = "statement.view"

	ActionAuditLogView = "audit_log.view"

	ActionRoleAssign = "role.assign"
)

const (
	RoleCashier      = "role:cashier"
	RoleBillingAdmin = "role:billing_admin"
	RoleAuditor      = "role:auditor"
)

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidScope  = errors.New("invalid_scope")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrInvalidRole   = errors.New("invalid_role")
	ErrForbidden     = errors.New("forbidden")
)

// Service is the single capability-check surface for the billing engine.
// Ledger code never inspects role strings; it asks for a capability against a
// scope and gets a yes/no.
type Service interface {
	Authorize(ctx context.Context, actor auditdomain.Actor, scope string, object string, action string) error
	CanPostPayment(ctx context.Context, actor auditdomain.Actor, scope string) bool
	AssignRole(ctx context.Context, actor auditdomain.Actor, role string, scope string) error
}
