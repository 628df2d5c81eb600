// Package storetest is a behavioral test suite shared by every store.Store
// implementation.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/cadence"
	"github.com/xraph/cadence/customer"
	"github.com/xraph/cadence/id"
	"github.com/xraph/cadence/invoice"
	"github.com/xraph/cadence/payment"
	"github.com/xraph/cadence/plan"
	"github.com/xraph/cadence/store"
	"github.com/xraph/cadence/types"
)

// Factory returns a fresh, migrated, empty store.
type Factory func(t *testing.T) store.Store

var epoch = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

// Run executes the suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("Plans", func(t *testing.T) { testPlans(t, newStore(t)) })
	t.Run("Customers", func(t *testing.T) { testCustomers(t, newStore(t)) })
	t.Run("CustomerPages", func(t *testing.T) { testCustomerPages(t, newStore(t)) })
	t.Run("Invoices", func(t *testing.T) { testInvoices(t, newStore(t)) })
	t.Run("Payments", func(t *testing.T) { testPayments(t, newStore(t)) })
	t.Run("Ping", func(t *testing.T) {
		require.NoError(t, newStore(t).Ping(context.Background()))
	})
}

// NewPlan returns an unsaved active plan.
func NewPlan(name string, days int, price string, at time.Time) *plan.Plan {
	return &plan.Plan{
		Entity:              types.NewEntity(at),
		ID:                  id.NewPlanID(),
		Name:                name,
		BillingDurationDays: days,
		Price:               decimal.RequireFromString(price),
		Status:              plan.StatusActive,
	}
}

// NewCustomer returns an unsaved active customer on planID.
func NewCustomer(planID id.PlanID, at time.Time) *customer.Customer {
	return &customer.Customer{
		Entity:           types.NewEntity(at),
		ID:               id.NewCustomerID(),
		Name:             "Grace Hopper",
		Email:            "grace@example.com",
		PlanID:           planID,
		Status:           customer.StatusActive,
		BillingStartDate: at,
		NextBillingDate:  at.AddDate(0, 0, 30),
		Credits:          decimal.Zero,
	}
}

// NewInvoice returns an unsaved generated invoice.
func NewInvoice(customerID id.CustomerID, amount string, at time.Time) *invoice.Invoice {
	return &invoice.Invoice{
		Entity:        types.NewEntity(at),
		ID:            id.NewInvoiceID(),
		CustomerID:    customerID,
		Amount:        decimal.RequireFromString(amount),
		DueDate:       at,
		PaymentStatus: invoice.StatusGenerated,
	}
}

func testPlans(t *testing.T, s store.Store) {
	ctx := context.Background()

	basic := NewPlan("Basic", 30, "50", epoch)
	pro := NewPlan("Pro", 30, "100.50", epoch.Add(time.Minute))
	pro.Status = plan.StatusInactive
	require.NoError(t, s.CreatePlan(ctx, basic))
	require.NoError(t, s.CreatePlan(ctx, pro))
	assert.ErrorIs(t, s.CreatePlan(ctx, basic), cadence.ErrAlreadyExists)

	got, err := s.GetPlan(ctx, pro.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pro", got.Name)
	assert.Equal(t, 30, got.BillingDurationDays)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("100.50")), "price %s", got.Price)

	_, err = s.GetPlan(ctx, id.NewPlanID())
	assert.ErrorIs(t, err, cadence.ErrPlanNotFound)

	all, err := s.ListPlans(ctx, plan.ListOpts{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, basic.ID.String(), all[0].ID.String())

	active, err := s.ListPlans(ctx, plan.ListOpts{Status: plan.StatusActive})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, basic.ID.String(), active[0].ID.String())
}

func testCustomers(t *testing.T, s store.Store) {
	ctx := context.Background()
	planID := id.NewPlanID()

	c := NewCustomer(planID, epoch)
	require.NoError(t, s.CreateCustomer(ctx, c))
	assert.ErrorIs(t, s.CreateCustomer(ctx, c), cadence.ErrAlreadyExists)

	got, err := s.GetCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Email, got.Email)
	assert.Equal(t, planID.String(), got.PlanID.String())
	assert.True(t, got.NextBillingDate.Equal(c.NextBillingDate))

	got.Credits = decimal.RequireFromString("12.34")
	got.Status = customer.StatusCancelled
	require.NoError(t, s.UpdateCustomer(ctx, got))

	again, err := s.GetCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, customer.StatusCancelled, again.Status)
	assert.Equal(t, "12.34", again.Credits.StringFixed(2))

	_, err = s.GetCustomer(ctx, id.NewCustomerID())
	assert.ErrorIs(t, err, cadence.ErrCustomerNotFound)

	ghost := NewCustomer(planID, epoch)
	assert.ErrorIs(t, s.UpdateCustomer(ctx, ghost), cadence.ErrCustomerNotFound)
}

func testCustomerPages(t *testing.T, s store.Store) {
	ctx := context.Background()
	planID := id.NewPlanID()

	empty, err := s.ListCustomers(ctx, "", 3)
	require.NoError(t, err)
	assert.NotNil(t, empty.Customers)
	assert.Empty(t, empty.Customers)
	assert.Empty(t, empty.NextCursor)

	want := map[string]bool{}
	for i := range 7 {
		c := NewCustomer(planID, epoch.Add(time.Duration(i)*time.Second))
		require.NoError(t, s.CreateCustomer(ctx, c))
		want[c.ID.String()] = true
	}

	got := map[string]bool{}
	cursor := ""
	for pages := 0; ; pages++ {
		require.Less(t, pages, 100, "listing did not terminate")

		page, err := s.ListCustomers(ctx, cursor, 3)
		require.NoError(t, err)
		for _, c := range page.Customers {
			got[c.ID.String()] = true
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	assert.Equal(t, want, got)
}

func testInvoices(t *testing.T, s store.Store) {
	ctx := context.Background()
	alice, bob := id.NewCustomerID(), id.NewCustomerID()

	first := NewInvoice(alice, "100", epoch)
	second := NewInvoice(alice, "70", epoch.Add(time.Hour))
	credits := decimal.RequireFromString("30")
	second.CreditsApplied = &credits
	other := NewInvoice(bob, "5", epoch.Add(2*time.Hour))
	for _, inv := range []*invoice.Invoice{first, second, other} {
		require.NoError(t, s.CreateInvoice(ctx, inv))
	}
	assert.ErrorIs(t, s.CreateInvoice(ctx, first), cadence.ErrAlreadyExists)

	got, err := s.GetInvoice(ctx, second.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CreditsApplied)
	assert.Equal(t, "30.00", got.CreditsApplied.StringFixed(2))
	assert.Nil(t, got.PaymentDate)

	_, err = s.GetInvoice(ctx, id.NewInvoiceID())
	assert.ErrorIs(t, err, cadence.ErrInvoiceNotFound)

	mine, err := s.ListInvoices(ctx, invoice.ListOpts{CustomerID: alice})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, first.ID.String(), mine[0].ID.String())
	assert.Equal(t, second.ID.String(), mine[1].ID.String())

	paidAt := epoch.Add(3 * time.Hour)
	require.NoError(t, s.MarkInvoicePaid(ctx, first.ID, paidAt))
	require.NoError(t, s.MarkInvoiceFailed(ctx, other.ID))
	assert.ErrorIs(t, s.MarkInvoicePaid(ctx, id.NewInvoiceID(), paidAt), cadence.ErrInvoiceNotFound)
	assert.ErrorIs(t, s.MarkInvoiceFailed(ctx, id.NewInvoiceID()), cadence.ErrInvoiceNotFound)

	paid, err := s.GetInvoice(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusPaid, paid.PaymentStatus)
	require.NotNil(t, paid.PaymentDate)
	assert.True(t, paid.PaymentDate.Equal(paidAt))

	failed, err := s.ListInvoices(ctx, invoice.ListOpts{Status: invoice.StatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, other.ID.String(), failed[0].ID.String())

	limited, err := s.ListInvoices(ctx, invoice.ListOpts{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, second.ID.String(), limited[0].ID.String())

	require.NoError(t, s.DeleteInvoice(ctx, second.ID))
	_, err = s.GetInvoice(ctx, second.ID)
	assert.ErrorIs(t, err, cadence.ErrInvoiceNotFound)
	assert.ErrorIs(t, s.DeleteInvoice(ctx, second.ID), cadence.ErrInvoiceNotFound)

	mine, err = s.ListInvoices(ctx, invoice.ListOpts{CustomerID: alice})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, first.ID.String(), mine[0].ID.String())
}

func testPayments(t *testing.T, s store.Store) {
	ctx := context.Background()
	inv := NewInvoice(id.NewCustomerID(), "42", epoch)
	require.NoError(t, s.CreateInvoice(ctx, inv))

	none, err := s.ListPayments(ctx, inv.ID)
	require.NoError(t, err)
	assert.Empty(t, none)

	p := &payment.Payment{
		ID:          id.NewPaymentID(),
		InvoiceID:   inv.ID,
		Amount:      inv.Amount,
		Method:      payment.MethodPayPal,
		PaymentDate: epoch,
	}
	require.NoError(t, s.CreatePayment(ctx, p))

	got, err := s.ListPayments(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, p.ID.String(), got[0].ID.String())
	assert.Equal(t, payment.MethodPayPal, got[0].Method)
	assert.True(t, got[0].Amount.Equal(inv.Amount))
}
