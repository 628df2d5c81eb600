package cadence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/cadence/customer"
	"github.com/xraph/cadence/id"
	"github.com/xraph/cadence/invoice"
	"github.com/xraph/cadence/notify"
	"github.com/xraph/cadence/payment"
	"github.com/xraph/cadence/plugin"
)

// ──────────────────────────────────────────────────
// Settlement
// ──────────────────────────────────────────────────

// ProcessPayment settles an invoice in full with method. An invoice that
// is already paid is rejected with ErrAlreadyPaid and nothing is recorded.
// When the gateway declines, the invoice is marked failed and
// ErrPaymentDeclined is returned; the failed invoice is picked up by
// ReprocessFailedPayments.
func (e *Engine) ProcessPayment(ctx context.Context, invoiceID id.InvoiceID, method payment.Method) (*payment.Payment, error) {
	inv, c, pay, err := e.settle(ctx, invoiceID, method, e.clock.Now())
	if c != nil {
		if err != nil {
			e.notify(ctx, notify.KindPaymentFailed, c.Email, inv.ID)
		} else {
			e.notify(ctx, notify.KindPaymentSucceeded, c.Email, inv.ID)
		}
	}
	if err != nil {
		return nil, err
	}
	return pay, nil
}

// settle charges and records payment for one invoice. The customer is
// returned whenever it was resolved, so callers can notify it of the
// outcome. settle never notifies.
func (e *Engine) settle(ctx context.Context, invoiceID id.InvoiceID, method payment.Method, now time.Time) (*invoice.Invoice, *customer.Customer, *payment.Payment, error) {
	if !method.Valid() {
		return nil, nil, nil, ValidationError{Field: "payment_method", Message: fmt.Sprintf("unknown method %q", method)}
	}

	inv, err := e.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, nil, nil, err
	}
	if inv.IsPaid() {
		return inv, nil, nil, fmt.Errorf("%w: %s", ErrAlreadyPaid, inv.ID)
	}

	c, err := e.resolveCustomer(ctx, inv.CustomerID)
	if err != nil {
		return inv, nil, nil, err
	}

	approved, err := e.gateway.Charge(ctx, payment.Charge{
		InvoiceID: inv.ID,
		Amount:    inv.Amount,
		Method:    method,
	})
	if err == nil && !approved {
		err = fmt.Errorf("%w: %s", ErrPaymentDeclined, inv.ID)
	}
	if err != nil {
		if markErr := e.store.MarkInvoiceFailed(ctx, inv.ID); markErr != nil {
			err = errors.Join(err, fmt.Errorf("cadence: mark invoice %s failed: %w", inv.ID, markErr))
		} else {
			inv.PaymentStatus = invoice.StatusFailed
		}
		e.logger.Warn("payment failed",
			"invoice_id", inv.ID.String(),
			"customer_id", c.ID.String(),
			"method", string(method),
			"error", err,
		)
		e.plugins.EmitInvoiceFailed(ctx, inv, err)
		return inv, c, nil, err
	}

	pay := &payment.Payment{
		ID:          id.NewPaymentID(),
		InvoiceID:   inv.ID,
		Amount:      inv.Amount,
		Method:      method,
		PaymentDate: now,
	}
	if err := e.store.MarkInvoicePaid(ctx, inv.ID, now); err != nil {
		return inv, c, nil, fmt.Errorf("cadence: mark invoice %s paid: %w", inv.ID, err)
	}
	if err := e.store.CreatePayment(ctx, pay); err != nil {
		return inv, c, nil, fmt.Errorf("cadence: record payment: %w", err)
	}

	paidAt := now
	inv.PaymentStatus = invoice.StatusPaid
	inv.PaymentDate = &paidAt
	inv.Touch(now)

	e.logger.Info("payment processed",
		"invoice_id", inv.ID.String(),
		"payment_id", pay.ID.String(),
		"method", string(method),
	)
	e.plugins.EmitInvoicePaid(ctx, inv, pay)
	return inv, c, pay, nil
}

// ReprocessReport summarizes one failed-payment retry sweep.
type ReprocessReport struct {
	Attempted int           `json:"attempted"`
	Recovered int           `json:"recovered"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Duration  time.Duration `json:"duration"`
	Errors    MultiError    `json:"-"`
}

// ReprocessFailedPayments retries every failed invoice with the configured
// retry method. Each customer gets exactly one email per invoice: success
// or failure. A failure on one invoice never stops the others, and no
// invoice is ever created.
func (e *Engine) ReprocessFailedPayments(ctx context.Context) (*ReprocessReport, error) {
	started := time.Now()
	now := e.clock.Now()
	report := &ReprocessReport{}

	defer func() {
		report.Duration = time.Since(started)
		e.plugins.EmitSweepCompleted(ctx, plugin.SweepReprocessPayments, report.Recovered, report.Failed, report.Duration)
		e.logger.Info("failed payment sweep finished",
			"attempted", report.Attempted,
			"recovered", report.Recovered,
			"failed", report.Failed,
			"skipped", report.Skipped,
			"elapsed", report.Duration,
		)
	}()

	failed, err := e.ListFailedInvoices(ctx)
	if err != nil {
		return report, fmt.Errorf("cadence: list failed invoices: %w", err)
	}

	for _, inv := range failed {
		// Only a torn-down ctx stops the batch; per-invoice errors never do.
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Attempted++

		e.logger.Info("reprocessing payment",
			"invoice_id", inv.ID.String(),
			"customer_id", inv.CustomerID.String(),
		)

		var c *customer.Customer
		err := safely(func() error {
			var err error
			_, c, _, err = e.settle(ctx, inv.ID, e.retryMethod, now)
			return err
		})

		switch {
		case err == nil:
			report.Recovered++
			e.notify(ctx, notify.KindPaymentSucceeded, c.Email, inv.ID)
		case errors.Is(err, ErrAlreadyPaid):
			report.Skipped++
		default:
			report.Failed++
			report.Errors.Add(fmt.Errorf("invoice %s: %w", inv.ID, err))
			if c != nil {
				e.notify(ctx, notify.KindPaymentFailed, c.Email, inv.ID)
			}
		}
	}

	return report, nil
}
