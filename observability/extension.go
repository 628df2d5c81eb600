// Package observability provides a metrics extension for Cadence that records
// lifecycle event counts via a MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/cadence/customer"
	"github.com/xraph/cadence/invoice"
	"github.com/xraph/cadence/payment"
	"github.com/xraph/cadence/plan"
	"github.com/xraph/cadence/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                  = (*MetricsExtension)(nil)
	_ plugin.OnPlanCreated           = (*MetricsExtension)(nil)
	_ plugin.OnCustomerCreated       = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionAssigned  = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionChanged   = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionCancelled = (*MetricsExtension)(nil)
	_ plugin.OnInvoiceGenerated      = (*MetricsExtension)(nil)
	_ plugin.OnInvoicePaid           = (*MetricsExtension)(nil)
	_ plugin.OnInvoiceFailed         = (*MetricsExtension)(nil)
	_ plugin.OnSweepCompleted        = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Cadence plugin to automatically track billing metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Catalog and customer metrics
	PlanCreated     Counter
	CustomerCreated Counter

	// Subscription metrics
	SubscriptionAssigned   Counter
	SubscriptionUpgraded   Counter
	SubscriptionDowngraded Counter
	SubscriptionCancelled  Counter

	// Invoice metrics
	InvoiceGenerated Counter
	InvoiceProrated  Counter
	InvoicePaid      Counter
	InvoiceFailed    Counter
	InvoiceAmount    Histogram

	// Sweep metrics
	RecurringSweepInvoiced  Counter
	RecurringSweepFailed    Counter
	RecurringSweepLatency   Histogram
	ReprocessSweepRecovered Counter
	ReprocessSweepFailed    Counter
	ReprocessSweepLatency   Histogram
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		PlanCreated:     factory.Counter("cadence.plan.created"),
		CustomerCreated: factory.Counter("cadence.customer.created"),

		SubscriptionAssigned:   factory.Counter("cadence.subscription.assigned"),
		SubscriptionUpgraded:   factory.Counter("cadence.subscription.upgraded"),
		SubscriptionDowngraded: factory.Counter("cadence.subscription.downgraded"),
		SubscriptionCancelled:  factory.Counter("cadence.subscription.cancelled"),

		InvoiceGenerated: factory.Counter("cadence.invoice.generated"),
		InvoiceProrated:  factory.Counter("cadence.invoice.prorated"),
		InvoicePaid:      factory.Counter("cadence.invoice.paid"),
		InvoiceFailed:    factory.Counter("cadence.invoice.failed"),
		InvoiceAmount:    factory.Histogram("cadence.invoice.amount"),

		RecurringSweepInvoiced:  factory.Counter("cadence.sweep.recurring.invoiced"),
		RecurringSweepFailed:    factory.Counter("cadence.sweep.recurring.failed"),
		RecurringSweepLatency:   factory.Histogram("cadence.sweep.recurring.latency_ms"),
		ReprocessSweepRecovered: factory.Counter("cadence.sweep.reprocess.recovered"),
		ReprocessSweepFailed:    factory.Counter("cadence.sweep.reprocess.failed"),
		ReprocessSweepLatency:   factory.Histogram("cadence.sweep.reprocess.latency_ms"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnPlanCreated implements plugin.OnPlanCreated.
func (m *MetricsExtension) OnPlanCreated(_ context.Context, _ *plan.Plan) error {
	m.PlanCreated.Inc()
	return nil
}

// OnCustomerCreated implements plugin.OnCustomerCreated.
func (m *MetricsExtension) OnCustomerCreated(_ context.Context, _ *customer.Customer) error {
	m.CustomerCreated.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionAssigned implements plugin.OnSubscriptionAssigned.
func (m *MetricsExtension) OnSubscriptionAssigned(_ context.Context, _ *customer.Customer, _ *plan.Plan) error {
	m.SubscriptionAssigned.Inc()
	return nil
}

// OnSubscriptionChanged implements plugin.OnSubscriptionChanged.
func (m *MetricsExtension) OnSubscriptionChanged(_ context.Context, _ *customer.Customer, _, _ *plan.Plan, change plugin.Change) error {
	if change == plugin.ChangeDowngrade {
		m.SubscriptionDowngraded.Inc()
	} else {
		m.SubscriptionUpgraded.Inc()
	}
	return nil
}

// OnSubscriptionCancelled implements plugin.OnSubscriptionCancelled.
func (m *MetricsExtension) OnSubscriptionCancelled(_ context.Context, _ *customer.Customer) error {
	m.SubscriptionCancelled.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Invoice lifecycle hooks
// ──────────────────────────────────────────────────

// OnInvoiceGenerated implements plugin.OnInvoiceGenerated.
func (m *MetricsExtension) OnInvoiceGenerated(_ context.Context, inv *invoice.Invoice) error {
	m.InvoiceGenerated.Inc()
	if inv.IsProrated {
		m.InvoiceProrated.Inc()
	}
	m.InvoiceAmount.Observe(inv.Amount.InexactFloat64())
	return nil
}

// OnInvoicePaid implements plugin.OnInvoicePaid.
func (m *MetricsExtension) OnInvoicePaid(_ context.Context, _ *invoice.Invoice, _ *payment.Payment) error {
	m.InvoicePaid.Inc()
	return nil
}

// OnInvoiceFailed implements plugin.OnInvoiceFailed.
func (m *MetricsExtension) OnInvoiceFailed(_ context.Context, _ *invoice.Invoice, _ error) error {
	m.InvoiceFailed.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Sweep hooks
// ──────────────────────────────────────────────────

// OnSweepCompleted implements plugin.OnSweepCompleted.
func (m *MetricsExtension) OnSweepCompleted(_ context.Context, sweep plugin.Sweep, processed, failed int, elapsed time.Duration) error {
	ms := float64(elapsed.Milliseconds())
	switch sweep {
	case plugin.SweepRecurringInvoices:
		m.RecurringSweepInvoiced.Add(float64(processed))
		m.RecurringSweepFailed.Add(float64(failed))
		m.RecurringSweepLatency.Observe(ms)
	case plugin.SweepReprocessPayments:
		m.ReprocessSweepRecovered.Add(float64(processed))
		m.ReprocessSweepFailed.Add(float64(failed))
		m.ReprocessSweepLatency.Observe(ms)
	}
	return nil
}
