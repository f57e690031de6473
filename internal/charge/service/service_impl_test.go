package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/medisync/medledger/internal/audit/domain"
	catalogdomain "github.com/medisync/medledger/internal/catalog/domain"
	catalogrepo "github.com/medisync/medledger/internal/catalog/repository"
	chargedomain "github.com/medisync/medledger/internal/charge/domain"
	chargerepo "github.com/medisync/medledger/internal/charge/repository"
	"github.com/medisync/medledger/internal/clock"
	"github.com/medisync/medledger/internal/events"
	paymentdomain "github.com/medisync/medledger/internal/payment/domain"
	pricingdomain "github.com/medisync/medledger/internal/pricing/domain"
	pricingrepo "github.com/medisync/medledger/internal/pricing/repository"
	pricingservice "github.com/medisync/medledger/internal/pricing/service"
	"github.com/medisync/medledger/pkg/db"
	"github.com/medisync/medledger/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testActor = auditdomain.Actor{Type: auditdomain.ActorTypeStaff, ID: "u-1"}

type fixture struct {
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
	svc   chargedomain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&catalogdomain.BillableService{},
		&pricingdomain.Price{},
		&pricingdomain.PayerPrice{},
		&pricingdomain.Payer{},
		&pricingdomain.PayerAffiliation{},
		&chargedomain.Charge{},
		&paymentdomain.Payment{},
		&paymentdomain.PaymentAllocation{},
		&events.BillingEvent{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	pricingSvc := pricingservice.NewService(pricingservice.Params{
		DB:          conn,
		Log:         log,
		GenID:       node,
		Clock:       fake,
		Repo:        pricingrepo.Provide(),
		CatalogRepo: catalogrepo.Provide(),
	})

	svc := NewService(Params{
		DB:         conn,
		Log:        log,
		GenID:      node,
		Clock:      fake,
		Repo:       chargerepo.Provide(),
		PricingSvc: pricingSvc,
		Outbox:     events.NewOutbox(events.Params{Log: log, GenID: node}),
	})

	return &fixture{db: conn, node: node, clock: fake, svc: svc}
}

func (f *fixture) seedService(t *testing.T, code string, defaultPrice int64) {
	t.Helper()
	now := f.clock.Now()
	require.NoError(t, f.db.Create(&catalogdomain.BillableService{
		ID:                f.node.Generate(),
		Code:              code,
		Name:              code,
		DefaultPriceCents: defaultPrice,
		Currency:          "NGN",
		Active:            true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}).Error)
}

func facilityScope(id snowflake.ID) pricingdomain.Scope {
	return pricingdomain.Scope{FacilityID: &id}
}

func listPage(token string, size int) pagination.Pagination {
	return pagination.Pagination{PageToken: token, PageSize: size}
}

func TestCreateChargeSnapshotsPrice(t *testing.T) {
	f := newFixture(t)
	f.seedService(t, "CONSULT", 5000)
	facilityID := f.node.Generate()
	subjectID := f.node.Generate()

	resp, err := f.svc.Create(context.Background(), testActor, chargedomain.CreateRequest{
		SubjectID:   subjectID,
		Scope:       facilityScope(facilityID),
		ServiceCode: "CONSULT",
		Quantity:    2,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(5000), resp.UnitPriceCents)
	assert.Equal(t, int64(10000), resp.AmountCents)
	assert.Equal(t, pricingdomain.SourceDefault, resp.PriceSource)
	assert.Equal(t, chargedomain.StatusUnpaid, resp.Status)

	// Later repricing never touches an existing charge.
	require.NoError(t, f.db.Exec(`UPDATE billable_services SET default_price_cents = ? WHERE code = ?`, 9000, "CONSULT").Error)
	id, err := snowflake.ParseString(resp.ID)
	require.NoError(t, err)
	stored, err := f.svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), stored.AmountCents)

	var eventCount int64
	require.NoError(t, f.db.Model(&events.BillingEvent{}).Where("event_type = ?", events.EventChargeCreated).Count(&eventCount).Error)
	assert.Equal(t, int64(1), eventCount)
}

func TestCreateChargeValidation(t *testing.T) {
	f := newFixture(t)
	f.seedService(t, "CONSULT", 5000)
	facilityID := f.node.Generate()

	_, err := f.svc.Create(context.Background(), testActor, chargedomain.CreateRequest{
		SubjectID:   f.node.Generate(),
		Scope:       facilityScope(facilityID),
		ServiceCode: "CONSULT",
		Quantity:    0,
	})
	assert.ErrorIs(t, err, chargedomain.ErrInvalidQuantity)

	_, err = f.svc.Create(context.Background(), testActor, chargedomain.CreateRequest{
		Scope:       facilityScope(facilityID),
		ServiceCode: "CONSULT",
		Quantity:    1,
	})
	assert.ErrorIs(t, err, chargedomain.ErrInvalidSubject)

	_, err = f.svc.Create(context.Background(), auditdomain.Actor{}, chargedomain.CreateRequest{
		SubjectID:   f.node.Generate(),
		Scope:       facilityScope(facilityID),
		ServiceCode: "CONSULT",
		Quantity:    1,
	})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidActor)
}

func TestCreateChargeRejectsNegativeResolvedPrice(t *testing.T) {
	f := newFixture(t)
	f.seedService(t, "CONSULT", 5000)
	facilityID := f.node.Generate()

	var billable catalogdomain.BillableService
	require.NoError(t, f.db.Where("code = ?", "CONSULT").First(&billable).Error)

	// An override row written outside the pricing API, bypassing validation.
	now := f.clock.Now()
	require.NoError(t, f.db.Create(&pricingdomain.Price{
		ID:          f.node.Generate(),
		FacilityID:  &facilityID,
		ServiceID:   billable.ID,
		AmountCents: -5000,
		Currency:    "NGN",
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}).Error)

	_, err := f.svc.Create(context.Background(), testActor, chargedomain.CreateRequest{
		SubjectID:   f.node.Generate(),
		Scope:       facilityScope(facilityID),
		ServiceCode: "CONSULT",
		Quantity:    2,
	})
	assert.ErrorIs(t, err, chargedomain.ErrInvalidPrice)

	var count int64
	require.NoError(t, f.db.Model(&chargedomain.Charge{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestVoidCharge(t *testing.T) {
	f := newFixture(t)
	f.seedService(t, "CONSULT", 5000)
	facilityID := f.node.Generate()

	resp, err := f.svc.Create(context.Background(), testActor, chargedomain.CreateRequest{
		SubjectID:   f.node.Generate(),
		Scope:       facilityScope(facilityID),
		ServiceCode: "CONSULT",
		Quantity:    1,
	})
	require.NoError(t, err)
	id, err := snowflake.ParseString(resp.ID)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	voided, err := f.svc.Void(context.Background(), testActor, id, "entered in error")
	require.NoError(t, err)
	assert.Equal(t, chargedomain.StatusVoid, voided.Status)
	require.NotNil(t, voided.VoidReason)
	assert.Equal(t, "entered in error", *voided.VoidReason)

	// The status write stamps updated_at from the injected clock.
	var stored chargedomain.Charge
	require.NoError(t, f.db.First(&stored, "id = ?", id).Error)
	assert.True(t, stored.UpdatedAt.Equal(f.clock.Now()))

	// Void is terminal.
	_, err = f.svc.Void(context.Background(), testActor, id, "again")
	assert.ErrorIs(t, err, chargedomain.ErrInvalidChargeState)
}

func TestVoidChargeWithAllocationRejected(t *testing.T) {
	f := newFixture(t)
	f.seedService(t, "CONSULT", 5000)
	facilityID := f.node.Generate()

	resp, err := f.svc.Create(context.Background(), testActor, chargedomain.CreateRequest{
		SubjectID:   f.node.Generate(),
		Scope:       facilityScope(facilityID),
		ServiceCode: "CONSULT",
		Quantity:    1,
	})
	require.NoError(t, err)
	id, err := snowflake.ParseString(resp.ID)
	require.NoError(t, err)

	require.NoError(t, f.db.Create(&paymentdomain.PaymentAllocation{
		ID:          f.node.Generate(),
		PaymentID:   f.node.Generate(),
		ChargeID:    id,
		AmountCents: 1000,
		Active:      true,
		CreatedAt:   f.clock.Now(),
	}).Error)

	_, err = f.svc.Void(context.Background(), testActor, id, "mistake")
	assert.ErrorIs(t, err, chargedomain.ErrChargeHasPayments)
}

func TestVoidRequiresReason(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Void(context.Background(), testActor, f.node.Generate(), "  ")
	assert.ErrorIs(t, err, chargedomain.ErrInvalidVoidReason)
}

func TestListChargesPaginates(t *testing.T) {
	f := newFixture(t)
	f.seedService(t, "CONSULT", 5000)
	facilityID := f.node.Generate()
	subjectID := f.node.Generate()

	for i := 0; i < 5; i++ {
		f.clock.Advance(time.Minute)
		_, err := f.svc.Create(context.Background(), testActor, chargedomain.CreateRequest{
			SubjectID:   subjectID,
			Scope:       facilityScope(facilityID),
			ServiceCode: "CONSULT",
			Quantity:    1,
		})
		require.NoError(t, err)
	}

	first, err := f.svc.List(context.Background(), chargedomain.ListFilter{
		SubjectID:  subjectID,
		Pagination: listPage("", 3),
	})
	require.NoError(t, err)
	assert.Len(t, first.Charges, 3)
	assert.True(t, first.PageInfo.HasMore)

	second, err := f.svc.List(context.Background(), chargedomain.ListFilter{
		SubjectID:  subjectID,
		Pagination: listPage(first.PageInfo.NextPageToken, 3),
	})
	require.NoError(t, err)
	assert.Len(t, second.Charges, 2)
	assert.False(t, second.PageInfo.HasMore)
}

func TestGetUnknownCharge(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Get(context.Background(), f.node.Generate())
	if !errors.Is(err, chargedomain.ErrChargeNotFound) {
		t.Fatalf("err = %v, want charge_not_found", err)
	}
}
