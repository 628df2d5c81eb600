// Package store defines the aggregate persistence interface of the billing
// engine. Backends live in subpackages: memory, redis, sqlite, postgres and
// mongo.
package store

import (
	"context"
	"time"

	"github.com/xraph/cadence/customer"
	"github.com/xraph/cadence/id"
	"github.com/xraph/cadence/invoice"
	"github.com/xraph/cadence/payment"
	"github.com/xraph/cadence/plan"
)

// Store is the unified storage interface for all Cadence entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
//
// Lookups of missing records return the matching cadence sentinel
// (ErrPlanNotFound, ErrCustomerNotFound, ErrInvoiceNotFound). Writes are
// last-writer-wins; no backend offers optimistic locking.
type Store interface {
	// Plan methods
	CreatePlan(ctx context.Context, p *plan.Plan) error
	GetPlan(ctx context.Context, planID id.PlanID) (*plan.Plan, error)
	ListPlans(ctx context.Context, opts plan.ListOpts) ([]*plan.Plan, error)

	// Customer methods
	CreateCustomer(ctx context.Context, c *customer.Customer) error
	GetCustomer(ctx context.Context, customerID id.CustomerID) (*customer.Customer, error)
	UpdateCustomer(ctx context.Context, c *customer.Customer) error
	ListCustomers(ctx context.Context, cursor string, limit int) (*customer.Page, error)

	// Invoice methods
	CreateInvoice(ctx context.Context, inv *invoice.Invoice) error
	GetInvoice(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error)
	ListInvoices(ctx context.Context, opts invoice.ListOpts) ([]*invoice.Invoice, error)
	MarkInvoicePaid(ctx context.Context, invID id.InvoiceID, paidAt time.Time) error
	MarkInvoiceFailed(ctx context.Context, invID id.InvoiceID) error
	// DeleteInvoice removes an invoice. The engine only uses it to roll
	// back an invoice whose customer update failed.
	DeleteInvoice(ctx context.Context, invID id.InvoiceID) error

	// Payment methods
	CreatePayment(ctx context.Context, p *payment.Payment) error
	ListPayments(ctx context.Context, invID id.InvoiceID) ([]*payment.Payment, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// DefaultPageSize is the customer page size used when a caller passes a
// non-positive limit.
const DefaultPageSize = 100
