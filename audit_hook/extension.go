// Package audithook bridges Cadence billing events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on a
// particular audit store. Callers inject a RecorderFunc adapter at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/cadence/customer"
	"github.com/xraph/cadence/invoice"
	"github.com/xraph/cadence/payment"
	"github.com/xraph/cadence/plan"
	"github.com/xraph/cadence/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                  = (*Extension)(nil)
	_ plugin.OnPlanCreated           = (*Extension)(nil)
	_ plugin.OnCustomerCreated       = (*Extension)(nil)
	_ plugin.OnSubscriptionAssigned  = (*Extension)(nil)
	_ plugin.OnSubscriptionChanged   = (*Extension)(nil)
	_ plugin.OnSubscriptionCancelled = (*Extension)(nil)
	_ plugin.OnInvoiceGenerated      = (*Extension)(nil)
	_ plugin.OnInvoicePaid           = (*Extension)(nil)
	_ plugin.OnInvoiceFailed         = (*Extension)(nil)
	_ plugin.OnSweepCompleted        = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a single entry in the audit trail.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Cadence billing events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// OnPlanCreated implements plugin.OnPlanCreated.
func (e *Extension) OnPlanCreated(ctx context.Context, p *plan.Plan) error {
	return e.record(ctx, ActionPlanCreated, SeverityInfo, OutcomeSuccess,
		ResourcePlan, p.ID.String(), CategoryBilling, nil,
		"name", p.Name,
		"price", p.Price.StringFixed(2),
		"billing_duration", p.BillingDurationDays,
	)
}

// OnCustomerCreated implements plugin.OnCustomerCreated.
func (e *Extension) OnCustomerCreated(ctx context.Context, c *customer.Customer) error {
	return e.record(ctx, ActionCustomerCreated, SeverityInfo, OutcomeSuccess,
		ResourceCustomer, c.ID.String(), CategorySubscription, nil,
		"plan_id", c.PlanID.String(),
	)
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionAssigned implements plugin.OnSubscriptionAssigned.
func (e *Extension) OnSubscriptionAssigned(ctx context.Context, c *customer.Customer, p *plan.Plan) error {
	return e.record(ctx, ActionSubscriptionAssigned, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, c.ID.String(), CategorySubscription, nil,
		"plan_id", p.ID.String(),
		"next_billing_date", c.NextBillingDate.Format(time.RFC3339),
	)
}

// OnSubscriptionChanged implements plugin.OnSubscriptionChanged.
func (e *Extension) OnSubscriptionChanged(ctx context.Context, c *customer.Customer, oldPlan, newPlan *plan.Plan, change plugin.Change) error {
	action := ActionSubscriptionUpgraded
	if change == plugin.ChangeDowngrade {
		action = ActionSubscriptionDowngraded
	}
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, c.ID.String(), CategorySubscription, nil,
		"from_plan_id", oldPlan.ID.String(),
		"to_plan_id", newPlan.ID.String(),
		"credits", c.Credits.StringFixed(2),
	)
}

// OnSubscriptionCancelled implements plugin.OnSubscriptionCancelled.
func (e *Extension) OnSubscriptionCancelled(ctx context.Context, c *customer.Customer) error {
	return e.record(ctx, ActionSubscriptionCancelled, SeverityWarning, OutcomeSuccess,
		ResourceSubscription, c.ID.String(), CategorySubscription, nil,
		"plan_id", c.PlanID.String(),
	)
}

// ──────────────────────────────────────────────────
// Invoice lifecycle hooks
// ──────────────────────────────────────────────────

// OnInvoiceGenerated implements plugin.OnInvoiceGenerated.
func (e *Extension) OnInvoiceGenerated(ctx context.Context, inv *invoice.Invoice) error {
	return e.record(ctx, ActionInvoiceGenerated, SeverityInfo, OutcomeSuccess,
		ResourceInvoice, inv.ID.String(), CategoryPayment, nil,
		"customer_id", inv.CustomerID.String(),
		"amount", inv.Amount.StringFixed(2),
		"prorated", inv.IsProrated,
	)
}

// OnInvoicePaid implements plugin.OnInvoicePaid.
func (e *Extension) OnInvoicePaid(ctx context.Context, inv *invoice.Invoice, p *payment.Payment) error {
	return e.record(ctx, ActionInvoicePaid, SeverityInfo, OutcomeSuccess,
		ResourceInvoice, inv.ID.String(), CategoryPayment, nil,
		"payment_id", p.ID.String(),
		"amount", p.Amount.StringFixed(2),
		"method", string(p.Method),
	)
}

// OnInvoiceFailed implements plugin.OnInvoiceFailed.
func (e *Extension) OnInvoiceFailed(ctx context.Context, inv *invoice.Invoice, err error) error {
	return e.record(ctx, ActionInvoiceFailed, SeverityCritical, OutcomeFailure,
		ResourceInvoice, inv.ID.String(), CategoryPayment, err,
		"customer_id", inv.CustomerID.String(),
		"amount", inv.Amount.StringFixed(2),
	)
}

// OnSweepCompleted implements plugin.OnSweepCompleted.
func (e *Extension) OnSweepCompleted(ctx context.Context, sweep plugin.Sweep, processed, failed int, elapsed time.Duration) error {
	outcome, severity := OutcomeSuccess, SeverityInfo
	if failed > 0 {
		outcome, severity = OutcomePartial, SeverityWarning
	}
	return e.record(ctx, ActionSweepCompleted, severity, outcome,
		ResourceSweep, string(sweep), CategoryOperations, nil,
		"processed", processed,
		"failed", failed,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled. Recorder
// failures are logged and never returned to the engine.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
