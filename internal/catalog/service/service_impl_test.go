package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/medisync/medledger/internal/catalog/domain"
	"github.com/medisync/medledger/internal/catalog/repository"
	"github.com/medisync/medledger/internal/clock"
	"github.com/medisync/medledger/internal/config"
	"github.com/medisync/medledger/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T) catalogdomain.Service {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&catalogdomain.BillableService{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)),
		Cfg:   config.Config{DefaultCurrency: "NGN"},
		Repo:  repository.Provide(),
	})
}

func TestUpsertNormalizesCode(t *testing.T) {
	svc := newService(t)

	created, err := svc.Upsert(context.Background(), catalogdomain.UpsertRequest{
		Code:              "  consult ",
		Name:              "General consultation",
		DefaultPriceCents: 5000,
	})
	require.NoError(t, err)
	assert.Equal(t, "CONSULT", created.Code)
	assert.Equal(t, "NGN", created.Currency)

	got, err := svc.Get(context.Background(), "consult")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestUpsertUpdatesExistingCode(t *testing.T) {
	svc := newService(t)

	first, err := svc.Upsert(context.Background(), catalogdomain.UpsertRequest{
		Code:              "LAB-FBC",
		Name:              "Full blood count",
		DefaultPriceCents: 3000,
	})
	require.NoError(t, err)

	second, err := svc.Upsert(context.Background(), catalogdomain.UpsertRequest{
		Code:              "LAB-FBC",
		Name:              "Full blood count",
		DefaultPriceCents: 3500,
	})
	require.NoError(t, err)

	// The original row survives with the new price.
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(3500), second.DefaultPriceCents)

	all, err := svc.List(context.Background(), true)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpsertValidation(t *testing.T) {
	svc := newService(t)

	_, err := svc.Upsert(context.Background(), catalogdomain.UpsertRequest{Name: "x"})
	assert.ErrorIs(t, err, catalogdomain.ErrInvalidCode)

	_, err = svc.Upsert(context.Background(), catalogdomain.UpsertRequest{Code: "X"})
	assert.ErrorIs(t, err, catalogdomain.ErrInvalidName)

	_, err = svc.Upsert(context.Background(), catalogdomain.UpsertRequest{
		Code: "X", Name: "x", DefaultPriceCents: -1,
	})
	assert.ErrorIs(t, err, catalogdomain.ErrInvalidDefaultPrice)

	_, err = svc.Upsert(context.Background(), catalogdomain.UpsertRequest{
		Code: "X", Name: "x", Currency: "NAIRA",
	})
	assert.ErrorIs(t, err, catalogdomain.ErrInvalidCurrency)
}

func TestDeactivateHidesFromDefaultList(t *testing.T) {
	svc := newService(t)

	_, err := svc.Upsert(context.Background(), catalogdomain.UpsertRequest{
		Code: "XRAY-CHEST", Name: "Chest X-ray", DefaultPriceCents: 8000,
	})
	require.NoError(t, err)

	deactivated, err := svc.Deactivate(context.Background(), "XRAY-CHEST")
	require.NoError(t, err)
	assert.False(t, deactivated.Active)

	// Deactivating again is a no-op.
	again, err := svc.Deactivate(context.Background(), "XRAY-CHEST")
	require.NoError(t, err)
	assert.False(t, again.Active)

	active, err := svc.List(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := svc.List(context.Background(), true)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGetUnknownService(t *testing.T) {
	svc := newService(t)

	_, err := svc.Get(context.Background(), "NOPE")
	assert.ErrorIs(t, err, catalogdomain.ErrServiceNotFound)
}
