// Package memory is an in-process Store. Records are copied on the way in
// and out so callers never share state with the store.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/xraph/cadence"
	"github.com/xraph/cadence/customer"
	"github.com/xraph/cadence/id"
	"github.com/xraph/cadence/invoice"
	"github.com/xraph/cadence/payment"
	"github.com/xraph/cadence/plan"
	"github.com/xraph/cadence/store"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

type Store struct {
	mu     sync.RWMutex
	closed bool

	plans     map[string]*plan.Plan
	customers map[string]*customer.Customer
	invoices  map[string]*invoice.Invoice
	payments  map[string][]*payment.Payment // keyed by invoice ID
}

func New() *Store {
	return &Store{
		plans:     make(map[string]*plan.Plan),
		customers: make(map[string]*customer.Customer),
		invoices:  make(map[string]*invoice.Invoice),
		payments:  make(map[string][]*payment.Payment),
	}
}

// Plan Store implementation
func (s *Store) CreatePlan(_ context.Context, p *plan.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.plans[p.ID.String()]; exists {
		return cadence.ErrAlreadyExists
	}
	cp := *p
	s.plans[p.ID.String()] = &cp
	return nil
}

func (s *Store) GetPlan(_ context.Context, planID id.PlanID) (*plan.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.plans[planID.String()]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, cadence.ErrPlanNotFound
}

func (s *Store) ListPlans(_ context.Context, opts plan.ListOpts) ([]*plan.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*plan.Plan, 0, len(s.plans))
	for _, p := range s.plans {
		if opts.Status == "" || p.Status == opts.Status {
			cp := *p
			result = append(result, &cp)
		}
	}
	slices.SortFunc(result, func(a, b *plan.Plan) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return id.Compare(a.ID, b.ID)
	})

	return window(result, opts.Offset, opts.Limit), nil
}

// Customer Store implementation
func (s *Store) CreateCustomer(_ context.Context, c *customer.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.customers[c.ID.String()]; exists {
		return cadence.ErrAlreadyExists
	}
	cp := *c
	s.customers[c.ID.String()] = &cp
	return nil
}

func (s *Store) GetCustomer(_ context.Context, customerID id.CustomerID) (*customer.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.customers[customerID.String()]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, cadence.ErrCustomerNotFound
}

func (s *Store) UpdateCustomer(_ context.Context, c *customer.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.customers[c.ID.String()]; !exists {
		return cadence.ErrCustomerNotFound
	}
	cp := *c
	s.customers[c.ID.String()] = &cp
	return nil
}

// ListCustomers returns customers in ID order starting after cursor, which
// is the ID of the last customer of the previous page.
func (s *Store) ListCustomers(_ context.Context, cursor string, limit int) (*customer.Page, error) {
	if limit <= 0 {
		limit = store.DefaultPageSize
	}

	s.mu.RLock()
	keys := make([]string, 0, len(s.customers))
	for k := range s.customers {
		if k > cursor {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	page := &customer.Page{Customers: make([]*customer.Customer, 0, min(limit, len(keys)))}
	for _, k := range keys {
		if len(page.Customers) == limit {
			break
		}
		cp := *s.customers[k]
		page.Customers = append(page.Customers, &cp)
	}
	s.mu.RUnlock()

	if len(keys) > limit {
		page.NextCursor = page.Customers[len(page.Customers)-1].ID.String()
	}
	return page, nil
}

// Invoice Store implementation
func (s *Store) CreateInvoice(_ context.Context, inv *invoice.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.invoices[inv.ID.String()]; exists {
		return cadence.ErrAlreadyExists
	}
	s.invoices[inv.ID.String()] = copyInvoice(inv)
	return nil
}

func (s *Store) GetInvoice(_ context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if inv, ok := s.invoices[invID.String()]; ok {
		return copyInvoice(inv), nil
	}
	return nil, cadence.ErrInvoiceNotFound
}

func (s *Store) ListInvoices(_ context.Context, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*invoice.Invoice, 0)
	for _, inv := range s.invoices {
		if !opts.CustomerID.IsNil() && inv.CustomerID.String() != opts.CustomerID.String() {
			continue
		}
		if opts.Status != "" && inv.PaymentStatus != opts.Status {
			continue
		}
		result = append(result, copyInvoice(inv))
	}
	slices.SortFunc(result, func(a, b *invoice.Invoice) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return id.Compare(a.ID, b.ID)
	})

	return window(result, opts.Offset, opts.Limit), nil
}

func (s *Store) MarkInvoicePaid(_ context.Context, invID id.InvoiceID, paidAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invoices[invID.String()]
	if !ok {
		return cadence.ErrInvoiceNotFound
	}
	inv.PaymentStatus = invoice.StatusPaid
	inv.PaymentDate = &paidAt
	inv.Touch(paidAt)
	return nil
}

func (s *Store) MarkInvoiceFailed(_ context.Context, invID id.InvoiceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invoices[invID.String()]
	if !ok {
		return cadence.ErrInvoiceNotFound
	}
	inv.PaymentStatus = invoice.StatusFailed
	return nil
}

func (s *Store) DeleteInvoice(_ context.Context, invID id.InvoiceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.invoices[invID.String()]; !ok {
		return cadence.ErrInvoiceNotFound
	}
	delete(s.invoices, invID.String())
	return nil
}

// Payment Store implementation
func (s *Store) CreatePayment(_ context.Context, p *payment.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := p.InvoiceID.String()
	for _, existing := range s.payments[key] {
		if existing.ID.String() == p.ID.String() {
			return cadence.ErrAlreadyExists
		}
	}
	cp := *p
	s.payments[key] = append(s.payments[key], &cp)
	return nil
}

func (s *Store) ListPayments(_ context.Context, invID id.InvoiceID) ([]*payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.payments[invID.String()]
	result := make([]*payment.Payment, len(list))
	for i, p := range list {
		cp := *p
		result[i] = &cp
	}
	return result, nil
}

// Core methods
func (s *Store) Migrate(_ context.Context) error {
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return cadence.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func copyInvoice(inv *invoice.Invoice) *invoice.Invoice {
	cp := *inv
	if inv.PaymentDate != nil {
		t := *inv.PaymentDate
		cp.PaymentDate = &t
	}
	if inv.CreditsApplied != nil {
		d := *inv.CreditsApplied
		cp.CreditsApplied = &d
	}
	return &cp
}

// window applies offset and limit to a sorted slice. A zero limit means no limit.
func window[T any](items []T, offset, limit int) []T {
	start := min(max(offset, 0), len(items))
	end := len(items)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	return items[start:end]
}
