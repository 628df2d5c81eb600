package cadence

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xraph/cadence/customer"
	"github.com/xraph/cadence/id"
	"github.com/xraph/cadence/invoice"
	"github.com/xraph/cadence/plugin"
	"github.com/xraph/cadence/proration"
	"github.com/xraph/cadence/types"
)

// ──────────────────────────────────────────────────
// Subscription Lifecycle
// ──────────────────────────────────────────────────

type signup struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

// CreateCustomerWithSubscription signs up a customer on planID. The first
// billing window opens now and no credit is carried.
func (e *Engine) CreateCustomerWithSubscription(ctx context.Context, name, email string, planID id.PlanID) (*customer.Customer, error) {
	in := signup{Name: strings.TrimSpace(name), Email: strings.TrimSpace(email)}
	if err := ValidateStruct(in); err != nil {
		return nil, err
	}

	p, err := e.resolvePlan(ctx, planID, ErrPlanNotFound)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	c := &customer.Customer{
		Entity:  types.NewEntity(now),
		ID:      id.NewCustomerID(),
		Name:    in.Name,
		Email:   in.Email,
		PlanID:  p.ID,
		Status:  customer.StatusActive,
		Credits: decimal.Zero,
	}
	c.ResetWindow(now, p.BillingDurationDays)

	if err := e.store.CreateCustomer(ctx, c); err != nil {
		return nil, fmt.Errorf("cadence: create customer: %w", err)
	}

	e.logger.Info("customer created",
		"customer_id", c.ID.String(),
		"plan_id", p.ID.String(),
	)
	e.plugins.EmitCustomerCreated(ctx, c)
	return c, nil
}

// GetCustomer retrieves a customer by ID.
func (e *Engine) GetCustomer(ctx context.Context, customerID id.CustomerID) (*customer.Customer, error) {
	return e.resolveCustomer(ctx, customerID)
}

// ListCustomers returns one page of customers. Pass "" as cursor for the
// first page and the returned NextCursor for subsequent ones.
func (e *Engine) ListCustomers(ctx context.Context, cursor string, limit int) (*customer.Page, error) {
	if limit <= 0 {
		limit = e.pageSize
	}
	return e.store.ListCustomers(ctx, cursor, limit)
}

// AssignSubscription moves a customer onto planID with a fresh billing
// window starting now and reactivates the subscription. Any credit balance
// is discarded; unused credit does not survive a reassignment.
func (e *Engine) AssignSubscription(ctx context.Context, customerID id.CustomerID, planID id.PlanID) (*customer.Customer, error) {
	c, err := e.resolveCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	p, err := e.resolvePlan(ctx, planID, ErrPlanNotFound)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	c.PlanID = p.ID
	c.Status = customer.StatusActive
	c.Credits = decimal.Zero
	c.ResetWindow(now, p.BillingDurationDays)
	c.Touch(now)

	if err := e.store.UpdateCustomer(ctx, c); err != nil {
		return nil, fmt.Errorf("cadence: update customer %s: %w", c.ID, err)
	}

	e.plugins.EmitSubscriptionAssigned(ctx, c, p)
	return c, nil
}

// CancelSubscription stops billing a customer. Billing sweeps skip
// cancelled customers until AssignSubscription reactivates them.
func (e *Engine) CancelSubscription(ctx context.Context, customerID id.CustomerID) (*customer.Customer, error) {
	c, err := e.resolveCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if c.Status == customer.StatusCancelled {
		return c, nil
	}

	c.Status = customer.StatusCancelled
	c.Touch(e.clock.Now())

	if err := e.store.UpdateCustomer(ctx, c); err != nil {
		return nil, fmt.Errorf("cadence: update customer %s: %w", c.ID, err)
	}

	e.plugins.EmitSubscriptionCancelled(ctx, c)
	return c, nil
}

// Upgrade switches a customer to newPlanID mid-cycle and bills the
// difference on a prorated invoice. Days elapsed since the window opened
// are charged at the current plan's rate, the rest of the cycle at the new
// plan's rate; both rates use the new plan's billing duration. The whole
// credit balance is consumed by the invoice. No payment is taken.
func (e *Engine) Upgrade(ctx context.Context, customerID id.CustomerID, newPlanID id.PlanID) (*invoice.Invoice, error) {
	c, err := e.resolveCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	oldPlan, err := e.resolvePlan(ctx, c.PlanID, ErrCurrentPlanNotFound)
	if err != nil {
		return nil, err
	}
	newPlan, err := e.resolvePlan(ctx, newPlanID, ErrNewPlanNotFound)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	daysUsed := proration.DaysElapsed(c.BillingStartDate, now)
	cost, err := proration.Upgrade(oldPlan.Price, newPlan.Price, daysUsed, newPlan.BillingDurationDays)
	if err != nil {
		return nil, fmt.Errorf("%w: plan %s: %w", ErrConfiguration, newPlan.ID, err)
	}

	owed, applied := types.ApplyCredits(cost.Total(), c.Credits)
	inv := newInvoice(c.ID, owed, applied, now, true)

	if err := e.store.CreateInvoice(ctx, inv); err != nil {
		return nil, fmt.Errorf("cadence: create invoice: %w", err)
	}

	c.Credits = decimal.Zero
	c.PlanID = newPlan.ID
	c.ResetWindow(now, newPlan.BillingDurationDays)
	c.Touch(now)

	if err := e.store.UpdateCustomer(ctx, c); err != nil {
		e.discardInvoice(ctx, inv)
		return nil, fmt.Errorf("cadence: update customer %s: %w", c.ID, err)
	}

	e.logger.Info("subscription upgraded",
		"customer_id", c.ID.String(),
		"from_plan", oldPlan.ID.String(),
		"to_plan", newPlan.ID.String(),
		"days_used", daysUsed,
		"invoice_id", inv.ID.String(),
		"amount", types.FormatAmount(inv.Amount),
	)
	e.plugins.EmitInvoiceGenerated(ctx, inv)
	e.plugins.EmitSubscriptionChanged(ctx, c, oldPlan, newPlan, plugin.ChangeUpgrade)
	return inv, nil
}

// Downgrade switches a customer to newPlanID mid-cycle and credits the
// unused difference to the customer's balance. The credit is the daily
// rate difference over the days left in the cycle, floored at zero, so a
// downgrade never reduces an existing balance. The day count is not
// clamped. No invoice is created.
// It returns the credit granted.
func (e *Engine) Downgrade(ctx context.Context, customerID id.CustomerID, newPlanID id.PlanID) (decimal.Decimal, error) {
	c, err := e.resolveCustomer(ctx, customerID)
	if err != nil {
		return decimal.Zero, err
	}
	oldPlan, err := e.resolvePlan(ctx, c.PlanID, ErrCurrentPlanNotFound)
	if err != nil {
		return decimal.Zero, err
	}
	newPlan, err := e.resolvePlan(ctx, newPlanID, ErrNewPlanNotFound)
	if err != nil {
		return decimal.Zero, err
	}

	now := e.clock.Now()
	totalDays := newPlan.BillingDurationDays
	// Past the end of the cycle daysRemaining goes negative and the sign
	// of the credit flips with it; only the final credit is floored.
	daysRemaining := totalDays - proration.DaysElapsed(c.BillingStartDate, now)
	credit, err := proration.DowngradeCredit(oldPlan.Price, newPlan.Price, daysRemaining, totalDays)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: plan %s: %w", ErrConfiguration, newPlan.ID, err)
	}
	credit = types.RoundAmount(types.NonNegative(credit))

	c.Credits = c.Credits.Add(credit)
	c.PlanID = newPlan.ID
	c.ResetWindow(now, totalDays)
	c.Touch(now)

	if err := e.store.UpdateCustomer(ctx, c); err != nil {
		return decimal.Zero, fmt.Errorf("cadence: update customer %s: %w", c.ID, err)
	}

	e.logger.Info("subscription downgraded",
		"customer_id", c.ID.String(),
		"from_plan", oldPlan.ID.String(),
		"to_plan", newPlan.ID.String(),
		"days_remaining", daysRemaining,
		"credit", types.FormatAmount(credit),
	)
	e.plugins.EmitSubscriptionChanged(ctx, c, oldPlan, newPlan, plugin.ChangeDowngrade)
	return credit, nil
}
