package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/medisync/medledger/internal/audit/domain"
	"github.com/medisync/medledger/internal/audit/repository"
	"github.com/medisync/medledger/pkg/db"
	"github.com/medisync/medledger/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var staff = auditdomain.Actor{Type: auditdomain.ActorTypeStaff, ID: "u-9"}

func newService(t *testing.T) auditdomain.Service {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&auditdomain.AuditLog{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
}

func TestAuditLogMasksReferences(t *testing.T) {
	svc := newService(t)
	targetID := "12345"

	err := svc.AuditLog(context.Background(), staff, "payment.post", "payment", &targetID, map[string]any{
		"reference":    "RCP-2025-061234",
		"amount_cents": int64(5000),
	})
	require.NoError(t, err)

	resp, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{Action: "payment.post"})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)

	entry := resp.AuditLogs[0]
	assert.Equal(t, "staff", entry.ActorType)
	assert.Equal(t, "u-9", entry.ActorID)
	assert.Equal(t, "****1234", entry.Metadata["reference"])
}

func TestAuditLogValidation(t *testing.T) {
	svc := newService(t)

	err := svc.AuditLog(context.Background(), staff, " ", "charge", nil, nil)
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)

	err = svc.AuditLog(context.Background(), auditdomain.Actor{}, "charge.create", "charge", nil, nil)
	assert.ErrorIs(t, err, auditdomain.ErrInvalidActor)
}

func TestListFiltersByActionAndTarget(t *testing.T) {
	svc := newService(t)
	chargeID := "100"
	paymentID := "200"

	require.NoError(t, svc.AuditLog(context.Background(), staff, "charge.create", "charge", &chargeID, nil))
	require.NoError(t, svc.AuditLog(context.Background(), staff, "charge.void", "charge", &chargeID, nil))
	require.NoError(t, svc.AuditLog(context.Background(), staff, "payment.post", "payment", &paymentID, nil))

	byAction, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{Action: "charge.void"})
	require.NoError(t, err)
	assert.Len(t, byAction.AuditLogs, 1)

	byTarget, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{TargetType: "charge"})
	require.NoError(t, err)
	assert.Len(t, byTarget.AuditLogs, 2)
}

func TestListRejectsBadPageToken(t *testing.T) {
	svc := newService(t)

	_, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{PageToken: "!!not-base64!!"},
	})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidPageToken)
}
