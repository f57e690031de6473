package authorization

import (
	"context"
	"testing"

	auditdomain "github.com/medisync/medledger/internal/audit/domain"
	"github.com/medisync/medledger/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T) Service {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)

	enforcer, err := NewEnforcer(conn)
	require.NoError(t, err)

	return NewService(Params{
		DB:       conn,
		Log:      zap.NewNop(),
		Enforcer: enforcer,
	})
}

func TestCashierCapabilities(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	cashier := auditdomain.Actor{Type: auditdomain.ActorTypeStaff, ID: "u-1"}
	scope := "facility:100"

	require.NoError(t, svc.AssignRole(ctx, cashier, RoleCashier, scope))

	assert.NoError(t, svc.Authorize(ctx, cashier, scope, ObjectCharge, ActionChargeCreate))
	assert.True(t, svc.CanPostPayment(ctx, cashier, scope))

	// Voiding and reversing stay with billing admins.
	assert.ErrorIs(t, svc.Authorize(ctx, cashier, scope, ObjectCharge, ActionChargeVoid), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, cashier, scope, ObjectPayment, ActionPaymentReverse), ErrForbidden)
}

func TestRolesAreScopeBound(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	cashier := auditdomain.Actor{Type: auditdomain.ActorTypeStaff, ID: "u-2"}

	require.NoError(t, svc.AssignRole(ctx, cashier, RoleCashier, "facility:100"))

	assert.False(t, svc.CanPostPayment(ctx, cashier, "facility:200"))
	assert.ErrorIs(t, svc.Authorize(ctx, cashier, "facility:200", ObjectCharge, ActionChargeCreate), ErrForbidden)
}

func TestAuditorIsReadOnly(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	auditor := auditdomain.Actor{Type: auditdomain.ActorTypeStaff, ID: "u-3"}
	scope := "facility:100"

	require.NoError(t, svc.AssignRole(ctx, auditor, RoleAuditor, scope))

	assert.NoError(t, svc.Authorize(ctx, auditor, scope, ObjectAuditLog, ActionAuditLogView))
	assert.ErrorIs(t, svc.Authorize(ctx, auditor, scope, ObjectCharge, ActionChargeCreate), ErrForbidden)
	assert.False(t, svc.CanPostPayment(ctx, auditor, scope))
}

func TestAssignRoleValidation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	actor := auditdomain.Actor{Type: auditdomain.ActorTypeStaff, ID: "u-4"}

	assert.ErrorIs(t, svc.AssignRole(ctx, actor, "role:superuser", "facility:100"), ErrInvalidRole)
	assert.ErrorIs(t, svc.AssignRole(ctx, actor, RoleCashier, " "), ErrInvalidScope)
	assert.ErrorIs(t, svc.AssignRole(ctx, auditdomain.Actor{}, RoleCashier, "facility:100"), ErrInvalidActor)
}

func TestAuthorizeValidation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	actor := auditdomain.Actor{Type: auditdomain.ActorTypeStaff, ID: "u-5"}

	assert.ErrorIs(t, svc.Authorize(ctx, auditdomain.Actor{}, "facility:100", ObjectCharge, ActionChargeView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, actor, "", ObjectCharge, ActionChargeView), ErrInvalidScope)
	assert.ErrorIs(t, svc.Authorize(ctx, actor, "facility:100", "", ActionChargeView), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, actor, "facility:100", ObjectCharge, ""), ErrInvalidAction)
}
