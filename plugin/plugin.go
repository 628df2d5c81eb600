// Package plugin provides the hook system of the billing engine.
// Plugins implement any subset of the hook interfaces below and are
// dispatched by a Registry.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/cadence/customer"
	"github.com/xraph/cadence/invoice"
	"github.com/xraph/cadence/payment"
	"github.com/xraph/cadence/plan"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// Change is the direction of a mid-cycle plan change.
type Change string

const (
	ChangeUpgrade   Change = "upgrade"
	ChangeDowngrade Change = "downgrade"
)

// Sweep names a scheduled batch job.
type Sweep string

const (
	SweepRecurringInvoices Sweep = "recurring_invoices"
	SweepReprocessPayments Sweep = "reprocess_payments"
)

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts. engine is the *cadence.Engine.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Catalog and subscription hooks
// ──────────────────────────────────────────────────

// OnPlanCreated is called when a plan is added to the catalog.
type OnPlanCreated interface {
	Plugin
	OnPlanCreated(ctx context.Context, p *plan.Plan) error
}

// OnCustomerCreated is called when a customer is created with a subscription.
type OnCustomerCreated interface {
	Plugin
	OnCustomerCreated(ctx context.Context, c *customer.Customer) error
}

// OnSubscriptionAssigned is called when a customer is (re)assigned a plan
// with a fresh billing window.
type OnSubscriptionAssigned interface {
	Plugin
	OnSubscriptionAssigned(ctx context.Context, c *customer.Customer, p *plan.Plan) error
}

// OnSubscriptionChanged is called after a prorated upgrade or downgrade.
type OnSubscriptionChanged interface {
	Plugin
	OnSubscriptionChanged(ctx context.Context, c *customer.Customer, oldPlan, newPlan *plan.Plan, change Change) error
}

// OnSubscriptionCancelled is called when a subscription is cancelled.
type OnSubscriptionCancelled interface {
	Plugin
	OnSubscriptionCancelled(ctx context.Context, c *customer.Customer) error
}

// ──────────────────────────────────────────────────
// Invoice hooks
// ──────────────────────────────────────────────────

// OnInvoiceGenerated is called when an invoice is created.
type OnInvoiceGenerated interface {
	Plugin
	OnInvoiceGenerated(ctx context.Context, inv *invoice.Invoice) error
}

// OnInvoicePaid is called when an invoice is settled.
type OnInvoicePaid interface {
	Plugin
	OnInvoicePaid(ctx context.Context, inv *invoice.Invoice, p *payment.Payment) error
}

// OnInvoiceFailed is called when a payment attempt on an invoice fails.
type OnInvoiceFailed interface {
	Plugin
	OnInvoiceFailed(ctx context.Context, inv *invoice.Invoice, err error) error
}

// ──────────────────────────────────────────────────
// Batch hooks
// ──────────────────────────────────────────────────

// OnSweepCompleted is called at the end of every scheduled sweep.
type OnSweepCompleted interface {
	Plugin
	OnSweepCompleted(ctx context.Context, sweep Sweep, processed, failed int, elapsed time.Duration) error
}
