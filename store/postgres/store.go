// Package postgres implements store.Store on PostgreSQL through the grove ORM.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/cadence"
	"github.com/xraph/cadence/customer"
	"github.com/xraph/cadence/id"
	"github.com/xraph/cadence/invoice"
	"github.com/xraph/cadence/payment"
	"github.com/xraph/cadence/plan"
	cadencestore "github.com/xraph/cadence/store"
)

// compile-time interface check
var _ cadencestore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("cadence/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("cadence/postgres: migration failed: %w", err)
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
	_, err := s.pg.NewInsert(toPlanModel(p)).Exec(ctx)
	return insertErr(err)
}

func (s *Store) GetPlan(ctx context.Context, planID id.PlanID) (*plan.Plan, error) {
	m := new(planModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", planID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, cadence.ErrPlanNotFound
		}
		return nil, err
	}
	return fromPlanModel(m)
}

func (s *Store) ListPlans(ctx context.Context, opts plan.ListOpts) ([]*plan.Plan, error) {
	var models []planModel
	q := s.pg.NewSelect(&models)

	if opts.Status != "" {
		q = q.Where("status = $1", string(opts.Status))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC, id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	_, err := s.pg.NewInsert(toCustomerModel(c)).Exec(ctx)
	return insertErr(err)
}

func (s *Store) GetCustomer(ctx context.Context, customerID id.CustomerID) (*customer.Customer, error) {
	m := new(customerModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", customerID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, cadence.ErrCustomerNotFound
		}
		return nil, err
	}
	return fromCustomerModel(m)
}

func (s *Store) UpdateCustomer(ctx context.Context, c *customer.Customer) error {
	res, err := s.pg.NewUpdate(toCustomerModel(c)).WherePK().Exec(ctx)
	return affected(res, err, cadence.ErrCustomerNotFound)
}

// ListCustomers pages through customers in ID order. The cursor is the ID of
// the last customer of the previous page.
func (s *Store) ListCustomers(ctx context.Context, cursor string, limit int) (*customer.Page, error) {
	if limit <= 0 {
		limit = cadencestore.DefaultPageSize
	}

	var models []customerModel
	q := s.pg.NewSelect(&models)
	if cursor != "" {
		q = q.Where("id > $1", cursor)
	}
	q = q.OrderExpr("id ASC").Limit(limit + 1)

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	_, err := s.pg.NewInsert(toInvoiceModel(inv)).Exec(ctx)
	return insertErr(err)
}

func (s *Store) GetInvoice(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	m := new(invoiceModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", invID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, cadence.ErrInvoiceNotFound
		}
		return nil, err
	}
	return fromInvoiceModel(m)
}

func (s *Store) ListInvoices(ctx context.Context, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	var models []invoiceModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if !opts.CustomerID.IsNil() {
		argIdx++
		q = q.Where(fmt.Sprintf("customer_id = $%d", argIdx), opts.CustomerID.String())
	}
	if opts.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("payment_status = $%d", argIdx), string(opts.Status))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC, id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	res, err := s.pg.NewUpdate((*invoiceModel)(nil)).
		Set("payment_status = $1", string(invoice.StatusPaid)).
		Set("payment_date = $2", paidAt).
		Set("updated_at = $3", paidAt).
		Where("id = $4", invID.String()).
		Exec(ctx)
	return affected(res, err, cadence.ErrInvoiceNotFound)
}

func (s *Store) MarkInvoiceFailed(ctx context.Context, invID id.InvoiceID) error {
	res, err := s.pg.NewUpdate((*invoiceModel)(nil)).
		Set("payment_status = $1", string(invoice.StatusFailed)).
		Where("id = $2", invID.String()).
		Exec(ctx)
	return affected(res, err, cadence.ErrInvoiceNotFound)
}

func (s *Store) DeleteInvoice(ctx context.Context, invID id.InvoiceID) error {
	res, err := s.pg.NewDelete((*invoiceModel)(nil)).
		Where("id = $1", invID.String()).
		Exec(ctx)
	return affected(res, err, cadence.ErrInvoiceNotFound)
}

// ==================== Payment Store ====================

func (s *Store) CreatePayment(ctx context.Context, p *payment.Payment) error {
	_, err := s.pg.NewInsert(toPaymentModel(p)).Exec(ctx)
	return insertErr(err)
}

func (s *Store) ListPayments(ctx context.Context, invID id.InvoiceID) ([]*payment.Payment, error) {
	var models []paymentModel
	err := s.pg.NewSelect(&models).
		Where("invoice_id = $1", invID.String()).
		OrderExpr("payment_date ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
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

type rowsAffecter interface {
	RowsAffected() (int64, error)
}

// affected maps a zero-row update to notFound.
func affected(res rowsAffecter, err error, notFound error) error {
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound
	}
	return nil
}

// insertErr maps a PostgreSQL unique violation (23505) to
// cadence.ErrAlreadyExists.
func insertErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) && pgErr.SQLState() == "23505" {
		return fmt.Errorf("%w: %w", cadence.ErrAlreadyExists, err)
	}
	return err
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
