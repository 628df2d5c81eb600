// Package mongo implements store.Store on MongoDB through the grove ORM.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/cadence"
	"github.com/xraph/cadence/customer"
	"github.com/xraph/cadence/id"
	"github.com/xraph/cadence/invoice"
	"github.com/xraph/cadence/payment"
	"github.com/xraph/cadence/plan"
	cadencestore "github.com/xraph/cadence/store"
)

// Collection name constants.
const (
	colPlans     = "cadence_plans"
	colCustomers = "cadence_customers"
	colInvoices  = "cadence_invoices"
	colPayments  = "cadence_payments"
)

// compile-time interface check
var _ cadencestore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all cadence collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("cadence/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Plan Store ====================

func (s *Store) CreatePlan(ctx context.Context, p *plan.Plan) error {
	_, err := s.mdb.NewInsert(toPlanModel(p)).Exec(ctx)
	return insertErr("create plan", err)
}

func (s *Store) GetPlan(ctx context.Context, planID id.PlanID) (*plan.Plan, error) {
	var m planModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": planID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, cadence.ErrPlanNotFound
		}
		return nil, fmt.Errorf("cadence/mongo: get plan: %w", err)
	}
	return fromPlanModel(&m)
}

func (s *Store) ListPlans(ctx context.Context, opts plan.ListOpts) ([]*plan.Plan, error) {
	var models []planModel

	filter := bson.M{}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("cadence/mongo: list plans: %w", err)
	}

	result := make([]*plan.Plan, len(models))
	for i := range models {
		p, err := fromPlanModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}

// ==================== Customer Store ====================

func (s *Store) CreateCustomer(ctx context.Context, c *customer.Customer) error {
	_, err := s.mdb.NewInsert(toCustomerModel(c)).Exec(ctx)
	return insertErr("create customer", err)
}

func (s *Store) GetCustomer(ctx context.Context, customerID id.CustomerID) (*customer.Customer, error) {
	var m customerModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": customerID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, cadence.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("cadence/mongo: get customer: %w", err)
	}
	return fromCustomerModel(&m)
}

func (s *Store) UpdateCustomer(ctx context.Context, c *customer.Customer) error {
	m := toCustomerModel(c)
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("cadence/mongo: update customer: %w", err)
	}
	if res.MatchedCount() == 0 {
		return cadence.ErrCustomerNotFound
	}
	return nil
}

// ListCustomers pages through customers in _id order. The cursor is the ID
// of the last customer of the previous page.
func (s *Store) ListCustomers(ctx context.Context, cursor string, limit int) (*customer.Page, error) {
	if limit <= 0 {
		limit = cadencestore.DefaultPageSize
	}

	filter := bson.M{}
	if cursor != "" {
		filter["_id"] = bson.M{"$gt": cursor}
	}

	var models []customerModel
	err := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Limit(int64(limit + 1)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("cadence/mongo: list customers: %w", err)
	}

	page := &customer.Page{Customers: []*customer.Customer{}}
	for i := range models {
		if i == limit {
			page.NextCursor = models[i-1].ID
			break
		}
		c, err := fromCustomerModel(&models[i])
		if err != nil {
			return nil, err
		}
		page.Customers = append(page.Customers, c)
	}
	return page, nil
}

// ==================== Invoice Store ====================

func (s *Store) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	_, err := s.mdb.NewInsert(toInvoiceModel(inv)).Exec(ctx)
	return insertErr("create invoice", err)
}

func (s *Store) GetInvoice(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	var m invoiceModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": invID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, cadence.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("cadence/mongo: get invoice: %w", err)
	}
	return fromInvoiceModel(&m)
}

func (s *Store) ListInvoices(ctx context.Context, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	var models []invoiceModel

	filter := bson.M{}
	if !opts.CustomerID.IsNil() {
		filter["customer_id"] = opts.CustomerID.String()
	}
	if opts.Status != "" {
		filter["payment_status"] = string(opts.Status)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("cadence/mongo: list invoices: %w", err)
	}

	result := make([]*invoice.Invoice, len(models))
	for i := range models {
		inv, err := fromInvoiceModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = inv
	}
	return result, nil
}

func (s *Store) MarkInvoicePaid(ctx context.Context, invID id.InvoiceID, paidAt time.Time) error {
	res, err := s.mdb.NewUpdate((*invoiceModel)(nil)).
		Filter(bson.M{"_id": invID.String()}).
		Set("payment_status", string(invoice.StatusPaid)).
		Set("payment_date", paidAt).
		Set("updated_at", paidAt).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("cadence/mongo: mark invoice paid: %w", err)
	}
	if res.MatchedCount() == 0 {
		return cadence.ErrInvoiceNotFound
	}
	return nil
}

func (s *Store) MarkInvoiceFailed(ctx context.Context, invID id.InvoiceID) error {
	res, err := s.mdb.NewUpdate((*invoiceModel)(nil)).
		Filter(bson.M{"_id": invID.String()}).
		Set("payment_status", string(invoice.StatusFailed)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("cadence/mongo: mark invoice failed: %w", err)
	}
	if res.MatchedCount() == 0 {
		return cadence.ErrInvoiceNotFound
	}
	return nil
}

func (s *Store) DeleteInvoice(ctx context.Context, invID id.InvoiceID) error {
	res, err := s.mdb.NewDelete((*invoiceModel)(nil)).
		Filter(bson.M{"_id": invID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("cadence/mongo: delete invoice: %w", err)
	}
	if res.DeletedCount() == 0 {
		return cadence.ErrInvoiceNotFound
	}
	return nil
}

// ==================== Payment Store ====================

func (s *Store) CreatePayment(ctx context.Context, p *payment.Payment) error {
	_, err := s.mdb.NewInsert(toPaymentModel(p)).Exec(ctx)
	return insertErr("create payment", err)
}

func (s *Store) ListPayments(ctx context.Context, invID id.InvoiceID) ([]*payment.Payment, error) {
	var models []paymentModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"invoice_id": invID.String()}).
		Sort(bson.D{{Key: "payment_date", Value: 1}, {Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("cadence/mongo: list payments: %w", err)
	}

	result := make([]*payment.Payment, len(models))
	for i := range models {
		p, err := fromPaymentModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}

// ==================== Helpers ====================

// insertErr wraps an insert failure, mapping duplicate keys to
// cadence.ErrAlreadyExists.
func insertErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: cadence/mongo: %s: %w", cadence.ErrAlreadyExists, op, err)
	}
	return fmt.Errorf("cadence/mongo: %s: %w", op, err)
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all cadence collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colPlans: {
			{Keys: bson.D{{Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: 1}}},
		},
		colCustomers: {
			{Keys: bson.D{{Key: "plan_id", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "next_billing_date", Value: 1}}},
			{Keys: bson.D{{Key: "email", Value: 1}}},
		},
		colInvoices: {
			{Keys: bson.D{{Key: "customer_id", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "payment_status", Value: 1}}},
		},
		colPayments: {
			{
				Keys:    bson.D{{Key: "invoice_id", Value: 1}, {Key: "payment_date", Value: 1}},
				Options: options.Index().SetName("invoice_payments"),
			},
		},
	}
}
