package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/medisync/medledger/internal/audit/domain"
	catalogdomain "github.com/medisync/medledger/internal/catalog/domain"
	catalogrepo "github.com/medisync/medledger/internal/catalog/repository"
	chargedomain "github.com/medisync/medledger/internal/charge/domain"
	chargerepo "github.com/medisync/medledger/internal/charge/repository"
	chargeservice "github.com/medisync/medledger/internal/charge/service"
	"github.com/medisync/medledger/internal/clock"
	"github.com/medisync/medledger/internal/config"
	"github.com/medisync/medledger/internal/events"
	paymentdomain "github.com/medisync/medledger/internal/payment/domain"
	paymentrepo "github.com/medisync/medledger/internal/payment/repository"
	pricingdomain "github.com/medisync/medledger/internal/pricing/domain"
	pricingrepo "github.com/medisync/medledger/internal/pricing/repository"
	pricingservice "github.com/medisync/medledger/internal/pricing/service"
	"github.com/medisync/medledger/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var cashier = auditdomain.Actor{Type: auditdomain.ActorTypeStaff, ID: "cashier-1"}

type fixture struct {
	db         *gorm.DB
	node       *snowflake.Node
	clock      *clock.FakeClock
	svc        paymentdomain.Service
	chargeSvc  chargedomain.Service
	facilityID snowflake.ID
	subjectID  snowflake.ID
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
	cfg := config.Config{DefaultCurrency: "NGN"}
	outbox := events.NewOutbox(events.Params{Log: log, GenID: node})

	pricingSvc := pricingservice.NewService(pricingservice.Params{
		DB:          conn,
		Log:         log,
		GenID:       node,
		Clock:       fake,
		Repo:        pricingrepo.Provide(),
		CatalogRepo: catalogrepo.Provide(),
	})
	chargeSvc := chargeservice.NewService(chargeservice.Params{
		DB:         conn,
		Log:        log,
		GenID:      node,
		Clock:      fake,
		Repo:       chargerepo.Provide(),
		PricingSvc: pricingSvc,
		Outbox:     outbox,
	})
	svc := NewService(Params{
		DB:         conn,
		Log:        log,
		GenID:      node,
		Clock:      fake,
		Cfg:        cfg,
		Repo:       paymentrepo.Provide(),
		ChargeRepo: chargerepo.Provide(),
		Outbox:     outbox,
	})

	f := &fixture{
		db:         conn,
		node:       node,
		clock:      fake,
		svc:        svc,
		chargeSvc:  chargeSvc,
		facilityID: node.Generate(),
		subjectID:  node.Generate(),
	}

	now := fake.Now()
	require.NoError(t, conn.Create(&catalogdomain.BillableService{
		ID:                node.Generate(),
		Code:              "CONSULT",
		Name:              "General consultation",
		DefaultPriceCents: 5000,
		Currency:          "NGN",
		Active:            true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}).Error)

	return f
}

func (f *fixture) scope() pricingdomain.Scope {
	return pricingdomain.Scope{FacilityID: &f.facilityID}
}

func (f *fixture) openCharge(t *testing.T, quantity int64) snowflake.ID {
	t.Helper()
	resp, err := f.chargeSvc.Create(context.Background(), cashier, chargedomain.CreateRequest{
		SubjectID:   f.subjectID,
		Scope:       f.scope(),
		ServiceCode: "CONSULT",
		Quantity:    quantity,
	})
	require.NoError(t, err)
	id, err := snowflake.ParseString(resp.ID)
	require.NoError(t, err)
	return id
}

func (f *fixture) chargeStatus(t *testing.T, id snowflake.ID) chargedomain.Status {
	t.Helper()
	resp, err := f.chargeSvc.Get(context.Background(), id)
	require.NoError(t, err)
	return resp.Status
}

func (f *fixture) post(t *testing.T, amount int64, allocs ...paymentdomain.AllocationRequest) *paymentdomain.PostResult {
	t.Helper()
	result, err := f.svc.Post(context.Background(), cashier, paymentdomain.PostRequest{
		SubjectID:   f.subjectID,
		Scope:       f.scope(),
		AmountCents: amount,
		Method:      paymentdomain.MethodCash,
		Allocations: allocs,
	})
	require.NoError(t, err)
	return result
}

func TestFullPaymentMarksChargePaid(t *testing.T) {
	f := newFixture(t)
	chargeID := f.openCharge(t, 1)

	result := f.post(t, 5000, paymentdomain.AllocationRequest{ChargeID: chargeID, AmountCents: 5000})

	assert.Equal(t, paymentdomain.StatusPosted, result.Payment.Status)
	require.Len(t, result.ChargeChanges, 1)
	assert.Equal(t, chargedomain.StatusPaid, result.ChargeChanges[0].Status)
	assert.Equal(t, chargedomain.StatusPaid, f.chargeStatus(t, chargeID))
}

func TestPartialPaymentMarksChargePartiallyPaid(t *testing.T) {
	f := newFixture(t)
	chargeID := f.openCharge(t, 1)

	f.post(t, 2000, paymentdomain.AllocationRequest{ChargeID: chargeID, AmountCents: 2000})
	assert.Equal(t, chargedomain.StatusPartiallyPaid, f.chargeStatus(t, chargeID))

	// Second partial payment closes the charge.
	f.post(t, 3000, paymentdomain.AllocationRequest{ChargeID: chargeID, AmountCents: 3000})
	assert.Equal(t, chargedomain.StatusPaid, f.chargeStatus(t, chargeID))
}

func TestPaymentSplitsAcrossCharges(t *testing.T) {
	f := newFixture(t)
	first := f.openCharge(t, 1)
	second := f.openCharge(t, 1)

	result := f.post(t, 8000,
		paymentdomain.AllocationRequest{ChargeID: first, AmountCents: 5000},
		paymentdomain.AllocationRequest{ChargeID: second, AmountCents: 3000},
	)

	assert.Len(t, result.ChargeChanges, 2)
	assert.Equal(t, chargedomain.StatusPaid, f.chargeStatus(t, first))
	assert.Equal(t, chargedomain.StatusPartiallyPaid, f.chargeStatus(t, second))
}

func TestUnallocatedRemainderIsCredit(t *testing.T) {
	f := newFixture(t)
	chargeID := f.openCharge(t, 1)

	result := f.post(t, 10000, paymentdomain.AllocationRequest{ChargeID: chargeID, AmountCents: 5000})

	assert.Equal(t, int64(10000), result.Payment.AmountCents)
	assert.Equal(t, chargedomain.StatusPaid, f.chargeStatus(t, chargeID))
}

func TestOverAllocationRejected(t *testing.T) {
	f := newFixture(t)
	chargeID := f.openCharge(t, 1)

	f.post(t, 4000, paymentdomain.AllocationRequest{ChargeID: chargeID, AmountCents: 4000})

	// 4000 already applied against a 5000 charge; 2000 more would overshoot.
	_, err := f.svc.Post(context.Background(), cashier, paymentdomain.PostRequest{
		SubjectID:   f.subjectID,
		Scope:       f.scope(),
		AmountCents: 2000,
		Method:      paymentdomain.MethodCash,
		Allocations: []paymentdomain.AllocationRequest{{ChargeID: chargeID, AmountCents: 2000}},
	})
	assert.ErrorIs(t, err, paymentdomain.ErrOverAllocation)
	assert.Equal(t, chargedomain.StatusPartiallyPaid, f.chargeStatus(t, chargeID))
}

func TestAllocationsExceedingPaymentRejected(t *testing.T) {
	f := newFixture(t)
	chargeID := f.openCharge(t, 1)

	_, err := f.svc.Post(context.Background(), cashier, paymentdomain.PostRequest{
		SubjectID:   f.subjectID,
		Scope:       f.scope(),
		AmountCents: 3000,
		Method:      paymentdomain.MethodCash,
		Allocations: []paymentdomain.AllocationRequest{{ChargeID: chargeID, AmountCents: 5000}},
	})
	assert.ErrorIs(t, err, paymentdomain.ErrAllocationExceedsPayment)
}

func TestDuplicateAllocationRejected(t *testing.T) {
	f := newFixture(t)
	chargeID := f.openCharge(t, 1)

	_, err := f.svc.Post(context.Background(), cashier, paymentdomain.PostRequest{
		SubjectID:   f.subjectID,
		Scope:       f.scope(),
		AmountCents: 5000,
		Method:      paymentdomain.MethodCash,
		Allocations: []paymentdomain.AllocationRequest{
			{ChargeID: chargeID, AmountCents: 2000},
			{ChargeID: chargeID, AmountCents: 3000},
		},
	})
	assert.ErrorIs(t, err, paymentdomain.ErrDuplicateAllocation)
}

func TestPostValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Post(context.Background(), cashier, paymentdomain.PostRequest{
		SubjectID:   f.subjectID,
		Scope:       f.scope(),
		AmountCents: 0,
		Method:      paymentdomain.MethodCash,
	})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidPaymentAmount)

	_, err = f.svc.Post(context.Background(), cashier, paymentdomain.PostRequest{
		SubjectID:   f.subjectID,
		Scope:       f.scope(),
		AmountCents: 1000,
		Method:      "barter",
	})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidMethod)

	_, err = f.svc.Post(context.Background(), auditdomain.Actor{}, paymentdomain.PostRequest{
		SubjectID:   f.subjectID,
		Scope:       f.scope(),
		AmountCents: 1000,
		Method:      paymentdomain.MethodCash,
	})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidActor)
}

func TestAllocationAgainstVoidChargeRejected(t *testing.T) {
	f := newFixture(t)
	chargeID := f.openCharge(t, 1)
	_, err := f.chargeSvc.Void(context.Background(), cashier, chargeID, "entered in error")
	require.NoError(t, err)

	_, err = f.svc.Post(context.Background(), cashier, paymentdomain.PostRequest{
		SubjectID:   f.subjectID,
		Scope:       f.scope(),
		AmountCents: 5000,
		Method:      paymentdomain.MethodCash,
		Allocations: []paymentdomain.AllocationRequest{{ChargeID: chargeID, AmountCents: 5000}},
	})
	assert.ErrorIs(t, err, chargedomain.ErrInvalidChargeState)
}

func TestScopeMismatchRejected(t *testing.T) {
	f := newFixture(t)
	chargeID := f.openCharge(t, 1)

	otherFacility := f.node.Generate()
	_, err := f.svc.Post(context.Background(), cashier, paymentdomain.PostRequest{
		SubjectID:   f.subjectID,
		Scope:       pricingdomain.Scope{FacilityID: &otherFacility},
		AmountCents: 5000,
		Method:      paymentdomain.MethodCash,
		Allocations: []paymentdomain.AllocationRequest{{ChargeID: chargeID, AmountCents: 5000}},
	})
	assert.ErrorIs(t, err, paymentdomain.ErrScopeMismatch)
}

func TestCurrencyMismatchRejected(t *testing.T) {
	f := newFixture(t)
	chargeID := f.openCharge(t, 1)

	_, err := f.svc.Post(context.Background(), cashier, paymentdomain.PostRequest{
		SubjectID:   f.subjectID,
		Scope:       f.scope(),
		AmountCents: 5000,
		Currency:    "USD",
		Method:      paymentdomain.MethodCash,
		Allocations: []paymentdomain.AllocationRequest{{ChargeID: chargeID, AmountCents: 5000}},
	})
	assert.ErrorIs(t, err, paymentdomain.ErrCurrencyMismatch)
}

func TestFailedPostingLeavesNothingBehind(t *testing.T) {
	f := newFixture(t)
	good := f.openCharge(t, 1)

	// Second allocation targets a charge that does not exist, so the whole
	// posting must roll back, including the applied first allocation.
	_, err := f.svc.Post(context.Background(), cashier, paymentdomain.PostRequest{
		SubjectID:   f.subjectID,
		Scope:       f.scope(),
		AmountCents: 8000,
		Method:      paymentdomain.MethodCash,
		Allocations: []paymentdomain.AllocationRequest{
			{ChargeID: good, AmountCents: 5000},
			{ChargeID: f.node.Generate(), AmountCents: 3000},
		},
	})
	assert.ErrorIs(t, err, chargedomain.ErrChargeNotFound)

	assert.Equal(t, chargedomain.StatusUnpaid, f.chargeStatus(t, good))
	var payments, allocations int64
	require.NoError(t, f.db.Model(&paymentdomain.Payment{}).Count(&payments).Error)
	require.NoError(t, f.db.Model(&paymentdomain.PaymentAllocation{}).Count(&allocations).Error)
	assert.Zero(t, payments)
	assert.Zero(t, allocations)
}

func TestReverseRegressesCharges(t *testing.T) {
	f := newFixture(t)
	chargeID := f.openCharge(t, 1)
	result := f.post(t, 5000, paymentdomain.AllocationRequest{ChargeID: chargeID, AmountCents: 5000})
	paymentID, err := snowflake.ParseString(result.Payment.ID)
	require.NoError(t, err)
	require.Equal(t, chargedomain.StatusPaid, f.chargeStatus(t, chargeID))

	reversed, err := f.svc.Reverse(context.Background(), cashier, paymentID, "duplicate entry")
	require.NoError(t, err)

	assert.Equal(t, paymentdomain.StatusReversed, reversed.Payment.Status)
	require.Len(t, reversed.ChargeChanges, 1)
	assert.Equal(t, chargedomain.StatusUnpaid, reversed.ChargeChanges[0].Status)
	assert.Equal(t, chargedomain.StatusUnpaid, f.chargeStatus(t, chargeID))

	var active int64
	require.NoError(t, f.db.Model(&paymentdomain.PaymentAllocation{}).
		Where("payment_id = ? AND active = ?", paymentID, true).Count(&active).Error)
	assert.Zero(t, active)
}

func TestReversePartialRegression(t *testing.T) {
	f := newFixture(t)
	chargeID := f.openCharge(t, 1)

	f.post(t, 2000, paymentdomain.AllocationRequest{ChargeID: chargeID, AmountCents: 2000})
	second := f.post(t, 3000, paymentdomain.AllocationRequest{ChargeID: chargeID, AmountCents: 3000})
	require.Equal(t, chargedomain.StatusPaid, f.chargeStatus(t, chargeID))

	secondID, err := snowflake.ParseString(second.Payment.ID)
	require.NoError(t, err)
	_, err = f.svc.Reverse(context.Background(), cashier, secondID, "card dispute")
	require.NoError(t, err)

	// The first payment's 2000 still stands.
	assert.Equal(t, chargedomain.StatusPartiallyPaid, f.chargeStatus(t, chargeID))
}

func TestReverseTwiceRejected(t *testing.T) {
	f := newFixture(t)
	chargeID := f.openCharge(t, 1)
	result := f.post(t, 5000, paymentdomain.AllocationRequest{ChargeID: chargeID, AmountCents: 5000})
	paymentID, err := snowflake.ParseString(result.Payment.ID)
	require.NoError(t, err)

	_, err = f.svc.Reverse(context.Background(), cashier, paymentID, "duplicate entry")
	require.NoError(t, err)
	_, err = f.svc.Reverse(context.Background(), cashier, paymentID, "again")
	assert.ErrorIs(t, err, paymentdomain.ErrPaymentAlreadyReversed)
}

func TestReverseRequiresReason(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Reverse(context.Background(), cashier, f.node.Generate(), " ")
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidReverseReason)
}

func TestReverseFreesCapacityForNewPayment(t *testing.T) {
	f := newFixture(t)
	chargeID := f.openCharge(t, 1)
	result := f.post(t, 5000, paymentdomain.AllocationRequest{ChargeID: chargeID, AmountCents: 5000})
	paymentID, err := snowflake.ParseString(result.Payment.ID)
	require.NoError(t, err)

	_, err = f.svc.Reverse(context.Background(), cashier, paymentID, "wrong patient")
	require.NoError(t, err)

	// Deactivated allocations no longer count, so a fresh full payment lands.
	f.post(t, 5000, paymentdomain.AllocationRequest{ChargeID: chargeID, AmountCents: 5000})
	assert.Equal(t, chargedomain.StatusPaid, f.chargeStatus(t, chargeID))
}

func TestGetPaymentIncludesAllocations(t *testing.T) {
	f := newFixture(t)
	chargeID := f.openCharge(t, 1)
	result := f.post(t, 5000, paymentdomain.AllocationRequest{ChargeID: chargeID, AmountCents: 5000})
	paymentID, err := snowflake.ParseString(result.Payment.ID)
	require.NoError(t, err)

	resp, err := f.svc.Get(context.Background(), paymentID)
	require.NoError(t, err)
	require.Len(t, resp.Allocations, 1)
	assert.Equal(t, chargeID.String(), resp.Allocations[0].ChargeID)
	assert.True(t, resp.Allocations[0].Active)
}

func TestListPayments(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.clock.Advance(time.Minute)
		f.post(t, 1000)
	}

	resp, err := f.svc.List(context.Background(), paymentdomain.ListFilter{SubjectID: f.subjectID})
	require.NoError(t, err)
	assert.Len(t, resp.Payments, 3)
	assert.False(t, resp.PageInfo.HasMore)
}
