package cadence

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/cadence/customer"
	"github.com/xraph/cadence/id"
	"github.com/xraph/cadence/invoice"
	"github.com/xraph/cadence/notify"
	"github.com/xraph/cadence/plugin"
	"github.com/xraph/cadence/types"
)

// ──────────────────────────────────────────────────
// Invoicing
// ──────────────────────────────────────────────────

// GenerateInvoice bills a customer the full price of their current plan,
// due now. Credits and billing dates are left untouched.
func (e *Engine) GenerateInvoice(ctx context.Context, customerID id.CustomerID) (*invoice.Invoice, error) {
	c, err := e.resolveCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	p, err := e.resolvePlan(ctx, c.PlanID, ErrPlanNotFound)
	if err != nil {
		return nil, err
	}

	inv := newInvoice(c.ID, types.RoundAmount(p.Price), decimal.Zero, e.clock.Now(), false)
	if err := e.store.CreateInvoice(ctx, inv); err != nil {
		return nil, fmt.Errorf("cadence: create invoice: %w", err)
	}

	e.logger.Info("invoice generated",
		"invoice_id", inv.ID.String(),
		"customer_id", c.ID.String(),
		"amount", types.FormatAmount(inv.Amount),
	)
	e.plugins.EmitInvoiceGenerated(ctx, inv)
	e.notify(ctx, notify.KindInvoiceGenerated, c.Email, inv.ID)
	return inv, nil
}

// GetInvoice retrieves an invoice by ID.
func (e *Engine) GetInvoice(ctx context.Context, invoiceID id.InvoiceID) (*invoice.Invoice, error) {
	if invoiceID.IsNil() {
		return nil, ErrInvoiceNotFound
	}
	inv, err := e.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("cadence: get invoice %s: %w", invoiceID, err)
	}
	return inv, nil
}

// ListCustomerInvoices returns every invoice issued to a customer, oldest
// first. An unknown customer yields an empty list.
func (e *Engine) ListCustomerInvoices(ctx context.Context, customerID id.CustomerID) ([]*invoice.Invoice, error) {
	return e.store.ListInvoices(ctx, invoice.ListOpts{CustomerID: customerID})
}

// ListFailedInvoices returns every invoice whose last payment attempt failed.
func (e *Engine) ListFailedInvoices(ctx context.Context) ([]*invoice.Invoice, error) {
	return e.store.ListInvoices(ctx, invoice.ListOpts{Status: invoice.StatusFailed})
}

// SweepReport summarizes one recurring billing sweep.
type SweepReport struct {
	Scanned  int           `json:"scanned"`
	Due      int           `json:"due"`
	Invoiced int           `json:"invoiced"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
	Errors   MultiError    `json:"-"`
}

// RunRecurringInvoices walks every customer page by page and invoices each
// active customer whose next billing date has been reached. The invoice
// amount is the plan price less the customer's full credit balance, floored
// at zero. The customer's credits are cleared and a new billing window
// starts at the sweep time.
//
// A failure on one customer is recorded in the report and the sweep moves
// on. Customers whose plan no longer exists are skipped. The returned error
// is non-nil only when the listing itself fails or ctx is cancelled.
func (e *Engine) RunRecurringInvoices(ctx context.Context) (*SweepReport, error) {
	started := time.Now()
	now := e.clock.Now()
	report := &SweepReport{}
	seen := make(map[string]struct{})

	defer func() {
		report.Duration = time.Since(started)
		e.plugins.EmitSweepCompleted(ctx, plugin.SweepRecurringInvoices, report.Invoiced, report.Failed, report.Duration)
		e.logger.Info("recurring invoice sweep finished",
			"scanned", report.Scanned,
			"due", report.Due,
			"invoiced", report.Invoiced,
			"skipped", report.Skipped,
			"failed", report.Failed,
			"elapsed", report.Duration,
		)
	}()

	cursor := ""
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		page, err := e.store.ListCustomers(ctx, cursor, e.pageSize)
		if err != nil {
			return report, fmt.Errorf("cadence: list customers: %w", err)
		}

		for _, c := range page.Customers {
			// The listing may repeat entries across pages.
			if _, dup := seen[c.ID.String()]; dup {
				continue
			}
			seen[c.ID.String()] = struct{}{}
			report.Scanned++

			if !c.IsDue(now) {
				continue
			}
			report.Due++

			var billed bool
			err := safely(func() error {
				var err error
				billed, err = e.billCycle(ctx, c, now)
				return err
			})
			switch {
			case err != nil:
				report.Failed++
				report.Errors.Add(fmt.Errorf("customer %s: %w", c.ID, err))
				e.logger.Error("recurring invoice failed",
					"customer_id", c.ID.String(),
					"error", err,
				)
			case billed:
				report.Invoiced++
			default:
				report.Skipped++
			}
		}

		if page.NextCursor == "" {
			return report, nil
		}
		cursor = page.NextCursor
	}
}

// billCycle invoices a single due customer. It reports false when the
// customer has no resolvable plan.
func (e *Engine) billCycle(ctx context.Context, c *customer.Customer, now time.Time) (bool, error) {
	p, err := e.resolvePlan(ctx, c.PlanID, ErrPlanNotFound)
	if err != nil {
		if IsNotFound(err) {
			e.logger.Warn("subscription plan not found, skipping customer",
				"customer_id", c.ID.String(),
				"plan_id", c.PlanID.String(),
			)
			return false, nil
		}
		return false, err
	}
	if p.BillingDurationDays <= 0 {
		return false, fmt.Errorf("%w: plan %s has billing duration %d", ErrConfiguration, p.ID, p.BillingDurationDays)
	}

	owed, applied := types.ApplyCredits(p.Price, c.Credits)
	inv := newInvoice(c.ID, owed, applied, now, false)
	if err := e.store.CreateInvoice(ctx, inv); err != nil {
		return false, fmt.Errorf("create invoice: %w", err)
	}

	c.Credits = decimal.Zero
	c.ResetWindow(now, p.BillingDurationDays)
	c.Touch(now)
	if err := e.store.UpdateCustomer(ctx, c); err != nil {
		e.discardInvoice(ctx, inv)
		return false, fmt.Errorf("update customer: %w", err)
	}

	e.logger.Info("invoice generated",
		"invoice_id", inv.ID.String(),
		"customer_id", c.ID.String(),
		"amount", types.FormatAmount(inv.Amount),
	)
	e.plugins.EmitInvoiceGenerated(ctx, inv)
	e.notify(ctx, notify.KindInvoiceGenerated, c.Email, inv.ID)
	return true, nil
}

// discardInvoice deletes an invoice whose customer update failed, so the
// customer is left as it was before the operation.
func (e *Engine) discardInvoice(ctx context.Context, inv *invoice.Invoice) {
	if err := e.store.DeleteInvoice(ctx, inv.ID); err != nil {
		e.logger.Error("failed to discard invoice",
			"invoice_id", inv.ID.String(),
			"customer_id", inv.CustomerID.String(),
			"error", err,
		)
	}
}

// newInvoice builds an unpaid invoice due at now. A positive applied amount
// is recorded as the credits consumed.
func newInvoice(customerID id.CustomerID, amount, applied decimal.Decimal, now time.Time, prorated bool) *invoice.Invoice {
	inv := &invoice.Invoice{
		Entity:        types.NewEntity(now),
		ID:            id.NewInvoiceID(),
		CustomerID:    customerID,
		Amount:        types.RoundAmount(amount),
		DueDate:       now,
		PaymentStatus: invoice.StatusGenerated,
		IsProrated:    prorated,
	}
	if applied.IsPositive() {
		credits := types.RoundAmount(applied)
		inv.CreditsApplied = &credits
	}
	return inv
}
