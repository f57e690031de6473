package metrics

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Config configures the domain metric instruments.
type Config struct {
	ServiceName string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	chargesCreated  metric.Int64Counter
	chargesVoided   metric.Int64Counter
	paymentsPosted  metric.Int64Counter
	paymentReversed metric.Int64Counter
	lockConflicts   metric.Int64Counter
}

// New configures the domain metrics instruments against the global meter provider.
func New(cfg Config) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "medledger"
	}
	meter := otel.Meter(name)

	chargesCreated, err := meter.Int64Counter("medledger_charges_created_total")
	if err != nil {
		return nil, err
	}
	chargesVoided, err := meter.Int64Counter("medledger_charges_voided_total")
	if err != nil {
		return nil, err
	}
	paymentsPosted, err := meter.Int64Counter("medledger_payments_posted_total")
	if err != nil {
		return nil, err
	}
	paymentReversed, err := meter.Int64Counter("medledger_payments_reversed_total")
	if err != nil {
		return nil, err
	}
	lockConflicts, err := meter.Int64Counter("medledger_charge_lock_conflicts_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		chargesCreated:  chargesCreated,
		chargesVoided:   chargesVoided,
		paymentsPosted:  paymentsPosted,
		paymentReversed: paymentReversed,
		lockConflicts:   lockConflicts,
	}, nil
}

// RecordChargeCreated increments charge creation counts per price source tier.
func (m *Metrics) RecordChargeCreated(ctx context.Context, priceSource string) {
	if m == nil {
		return
	}
	m.chargesCreated.Add(ctx, 1, metric.WithAttributes(
		attribute.String("price_source", strings.TrimSpace(priceSource)),
	))
}

// RecordChargeVoided increments void counts.
func (m *Metrics) RecordChargeVoided(ctx context.Context) {
	if m == nil {
		return
	}
	m.chargesVoided.Add(ctx, 1)
}

// RecordPaymentPosted increments posted payment counts per method.
func (m *Metrics) RecordPaymentPosted(ctx context.Context, method string) {
	if m == nil {
		return
	}
	m.paymentsPosted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", strings.TrimSpace(method)),
	))
}

// RecordPaymentReversed increments reversal counts.
func (m *Metrics) RecordPaymentReversed(ctx context.Context) {
	if m == nil {
		return
	}
	m.paymentReversed.Add(ctx, 1)
}

// RecordLockConflict increments charge row-lock contention counts.
func (m *Metrics) RecordLockConflict(ctx context.Context) {
	if m == nil {
		return
	}
	m.lockConflicts.Add(ctx, 1)
}
