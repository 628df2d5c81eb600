// Package redis is a Store backed by Redis, laid out like a flat key-value
// namespace. Each record is a JSON document under "<prefix><kind>:<id>";
// payments are appended to a list per invoice.
//
// Customer listing uses SCAN, so pages may repeat a customer or miss one
// created mid-listing. Invoice listing scans every invoice key.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

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

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "cadence:"

const (
	kindPlan     = "plan"
	kindCustomer = "customer"
	kindInvoice  = "invoice"
	kindPayments = "payments"

	// watchRetries bounds optimistic retries of read-modify-write updates.
	watchRetries = 5
)

// Store implements store.Store on top of a go-redis client.
type Store struct {
	client goredis.UniversalClient
	prefix string
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets the key prefix (default DefaultPrefix).
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// New returns a Store using client. The store takes ownership of the
// client and closes it on Close.
func New(client goredis.UniversalClient, opts ...Option) *Store {
	s := &Store{client: client, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open dials a single Redis server at addr.
func Open(addr, password string, db int, opts ...Option) *Store {
	return New(goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}), opts...)
}

// Client returns the underlying go-redis client.
func (s *Store) Client() goredis.UniversalClient { return s.client }

// ==================== Plan Store ====================

func (s *Store) CreatePlan(ctx context.Context, p *plan.Plan) error {
	return s.create(ctx, kindPlan, p.ID.String(), p)
}

func (s *Store) GetPlan(ctx context.Context, planID id.PlanID) (*plan.Plan, error) {
	var p plan.Plan
	if err := s.get(ctx, kindPlan, planID.String(), &p, cadence.ErrPlanNotFound); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListPlans(ctx context.Context, opts plan.ListOpts) ([]*plan.Plan, error) {
	all, err := scanAll[plan.Plan](ctx, s, kindPlan)
	if err != nil {
		return nil, err
	}

	var out []*plan.Plan
	for _, p := range all {
		if opts.Status != "" && p.Status != opts.Status {
			continue
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b *plan.Plan) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return id.Compare(a.ID, b.ID)
	})
	return window(out, opts.Offset, opts.Limit), nil
}

// ==================== Customer Store ====================

func (s *Store) CreateCustomer(ctx context.Context, c *customer.Customer) error {
	return s.create(ctx, kindCustomer, c.ID.String(), c)
}

func (s *Store) GetCustomer(ctx context.Context, customerID id.CustomerID) (*customer.Customer, error) {
	var c customer.Customer
	if err := s.get(ctx, kindCustomer, customerID.String(), &c, cadence.ErrCustomerNotFound); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, c *customer.Customer) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("cadence/redis: encode customer: %w", err)
	}
	ok, err := s.client.SetXX(ctx, s.key(kindCustomer, c.ID.String()), data, 0).Result()
	if err != nil {
		return s.wrap("update customer", err)
	}
	if !ok {
		return cadence.ErrCustomerNotFound
	}
	return nil
}

// ListCustomers returns one SCAN step over customer keys. cursor is the
// SCAN cursor from the previous page; "" starts a new listing.
func (s *Store) ListCustomers(ctx context.Context, cursor string, limit int) (*customer.Page, error) {
	if limit <= 0 {
		limit = store.DefaultPageSize
	}

	var pos uint64
	if cursor != "" {
		var err error
		if pos, err = strconv.ParseUint(cursor, 10, 64); err != nil {
			return nil, cadence.ValidationError{Field: "cursor", Message: "malformed"}
		}
	}

	// Skip empty SCAN steps so callers see a page with data or the end.
	var keys []string
	for {
		var err error
		keys, pos, err = s.client.Scan(ctx, pos, s.pattern(kindCustomer), int64(limit)).Result()
		if err != nil {
			return nil, s.wrap("scan customers", err)
		}
		if len(keys) > 0 || pos == 0 {
			break
		}
	}

	customers, err := load[customer.Customer](ctx, s, keys)
	if err != nil {
		return nil, err
	}

	if customers == nil {
		customers = []*customer.Customer{}
	}
	page := &customer.Page{Customers: customers}
	if pos != 0 {
		page.NextCursor = strconv.FormatUint(pos, 10)
	}
	return page, nil
}

// ==================== Invoice Store ====================

func (s *Store) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	return s.create(ctx, kindInvoice, inv.ID.String(), inv)
}

func (s *Store) GetInvoice(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	var inv invoice.Invoice
	if err := s.get(ctx, kindInvoice, invID.String(), &inv, cadence.ErrInvoiceNotFound); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *Store) ListInvoices(ctx context.Context, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	all, err := scanAll[invoice.Invoice](ctx, s, kindInvoice)
	if err != nil {
		return nil, err
	}

	var out []*invoice.Invoice
	for _, inv := range all {
		if !opts.CustomerID.IsNil() && inv.CustomerID.String() != opts.CustomerID.String() {
			continue
		}
		if opts.Status != "" && inv.PaymentStatus != opts.Status {
			continue
		}
		out = append(out, inv)
	}
	slices.SortFunc(out, func(a, b *invoice.Invoice) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return id.Compare(a.ID, b.ID)
	})
	return window(out, opts.Offset, opts.Limit), nil
}

func (s *Store) MarkInvoicePaid(ctx context.Context, invID id.InvoiceID, paidAt time.Time) error {
	return s.updateInvoice(ctx, invID, func(inv *invoice.Invoice) {
		at := paidAt
		inv.PaymentStatus = invoice.StatusPaid
		inv.PaymentDate = &at
		inv.Touch(paidAt)
	})
}

func (s *Store) MarkInvoiceFailed(ctx context.Context, invID id.InvoiceID) error {
	return s.updateInvoice(ctx, invID, func(inv *invoice.Invoice) {
		inv.PaymentStatus = invoice.StatusFailed
	})
}

func (s *Store) DeleteInvoice(ctx context.Context, invID id.InvoiceID) error {
	n, err := s.client.Del(ctx, s.key(kindInvoice, invID.String())).Result()
	if err != nil {
		return s.wrap("delete invoice", err)
	}
	if n == 0 {
		return cadence.ErrInvoiceNotFound
	}
	return nil
}

// updateInvoice applies mutate under WATCH so a concurrent writer forces
// a retry instead of being overwritten.
func (s *Store) updateInvoice(ctx context.Context, invID id.InvoiceID, mutate func(*invoice.Invoice)) error {
	key := s.key(kindInvoice, invID.String())

	txf := func(tx *goredis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, goredis.Nil) {
			return cadence.ErrInvoiceNotFound
		}
		if err != nil {
			return err
		}

		var inv invoice.Invoice
		if err := json.Unmarshal(data, &inv); err != nil {
			return fmt.Errorf("cadence/redis: decode invoice: %w", err)
		}
		mutate(&inv)
		out, err := json.Marshal(&inv)
		if err != nil {
			return fmt.Errorf("cadence/redis: encode invoice: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		return err
	}

	for range watchRetries {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		if errors.Is(err, cadence.ErrInvoiceNotFound) {
			return err
		}
		return s.wrap("update invoice", err)
	}
	return fmt.Errorf("cadence/redis: update invoice %s: too much contention", invID)
}

// ==================== Payment Store ====================

func (s *Store) CreatePayment(ctx context.Context, p *payment.Payment) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("cadence/redis: encode payment: %w", err)
	}
	if err := s.client.RPush(ctx, s.key(kindPayments, p.InvoiceID.String()), data).Err(); err != nil {
		return s.wrap("create payment", err)
	}
	return nil
}

func (s *Store) ListPayments(ctx context.Context, invID id.InvoiceID) ([]*payment.Payment, error) {
	raw, err := s.client.LRange(ctx, s.key(kindPayments, invID.String()), 0, -1).Result()
	if err != nil {
		return nil, s.wrap("list payments", err)
	}

	out := make([]*payment.Payment, 0, len(raw))
	for _, r := range raw {
		var p payment.Payment
		if err := json.Unmarshal([]byte(r), &p); err != nil {
			return nil, fmt.Errorf("cadence/redis: decode payment: %w", err)
		}
		out = append(out, &p)
	}
	return out, nil
}

// ==================== Lifecycle ====================

// Migrate is a no-op; Redis needs no schema.
func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(ctx context.Context) error {
	return s.wrap("ping", s.client.Ping(ctx).Err())
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ==================== Helpers ====================

func (s *Store) key(kind, recordID string) string {
	return s.prefix + kind + ":" + recordID
}

func (s *Store) pattern(kind string) string {
	return s.prefix + kind + ":*"
}

func (s *Store) create(ctx context.Context, kind, recordID string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cadence/redis: encode %s: %w", kind, err)
	}
	ok, err := s.client.SetNX(ctx, s.key(kind, recordID), data, 0).Result()
	if err != nil {
		return s.wrap("create "+kind, err)
	}
	if !ok {
		return cadence.ErrAlreadyExists
	}
	return nil
}

func (s *Store) get(ctx context.Context, kind, recordID string, v any, notFound error) error {
	data, err := s.client.Get(ctx, s.key(kind, recordID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return notFound
	}
	if err != nil {
		return s.wrap("get "+kind, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("cadence/redis: decode %s: %w", kind, err)
	}
	return nil
}

func (s *Store) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, goredis.ErrClosed) {
		return cadence.ErrStoreClosed
	}
	return fmt.Errorf("cadence/redis: %s: %w", op, err)
}

// scanAll loads every record of kind.
func scanAll[T any](ctx context.Context, s *Store, kind string) ([]*T, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.pattern(kind), store.DefaultPageSize).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, s.wrap("scan "+kind, err)
	}
	slices.Sort(keys)
	keys = slices.Compact(keys)
	return load[T](ctx, s, keys)
}

// load fetches keys with MGET, skipping any deleted since they were listed.
func load[T any](ctx context.Context, s *Store, keys []string) ([]*T, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, s.wrap("mget", err)
	}

	out := make([]*T, 0, len(vals))
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var rec T
		if err := json.Unmarshal([]byte(str), &rec); err != nil {
			return nil, fmt.Errorf("cadence/redis: decode %s: %w", keys[i], err)
		}
		out = append(out, &rec)
	}
	return out, nil
}

func window[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
