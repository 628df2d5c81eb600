package cadence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/cadence/clock"
	"github.com/xraph/cadence/customer"
	"github.com/xraph/cadence/id"
	"github.com/xraph/cadence/notify"
	"github.com/xraph/cadence/payment"
	"github.com/xraph/cadence/plan"
	"github.com/xraph/cadence/plugin"
	"github.com/xraph/cadence/store"
	"github.com/xraph/cadence/types"
)

// Engine is the subscription billing engine.
type Engine struct {
	store    store.Store
	plugins  *plugin.Registry
	logger   *slog.Logger
	clock    clock.Clock
	notifier notify.Notifier
	gateway  payment.Gateway

	// Configuration
	retryMethod   payment.Method
	pageSize      int
	notifyTimeout time.Duration
}

// New creates a new Engine backed by s.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:         s,
		plugins:       plugin.NewRegistry(),
		logger:        slog.Default(),
		clock:         clock.System{},
		gateway:       payment.ApproveAll,
		retryMethod:   payment.MethodCreditCard,
		pageSize:      store.DefaultPageSize,
		notifyTimeout: plugin.DefaultTimeout,
	}
	e.notifier = notify.NewLog(e.logger)

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
		if l, ok := e.notifier.(*notify.Log); ok {
			l.Logger = logger
		}
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithClock sets the time source.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithNotifier sets where customer emails are sent.
func WithNotifier(n notify.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithGateway sets the payment gateway. The default approves every charge.
func WithGateway(g payment.Gateway) Option {
	return func(e *Engine) { e.gateway = g }
}

// WithRetryMethod sets the payment method used when reprocessing failed
// invoices (default credit_card).
func WithRetryMethod(m payment.Method) Option {
	return func(e *Engine) { e.retryMethod = m }
}

// WithSweepPageSize sets how many customers the billing sweep reads per page.
func WithSweepPageSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.pageSize = n
		}
	}
}

// WithHookTimeout bounds each plugin hook and notification call.
func WithHookTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.notifyTimeout = d
			e.plugins.WithTimeout(d)
		}
	}
}

// Start migrates the store and initializes plugins.
func (e *Engine) Start(ctx context.Context) error {
	if !e.retryMethod.Valid() {
		return fmt.Errorf("%w: unknown retry payment method %q", ErrConfiguration, e.retryMethod)
	}

	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("cadence started",
		"retry_method", string(e.retryMethod),
		"page_size", e.pageSize,
		"plugins", e.plugins.Count(),
	)

	return nil
}

// Stop shuts down plugins and closes the store.
func (e *Engine) Stop() error {
	e.plugins.EmitShutdown(context.Background())
	return e.store.Close()
}

// Store returns the backing store.
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// ──────────────────────────────────────────────────
// Plan Catalog
// ──────────────────────────────────────────────────

type planInput struct {
	Name                string          `json:"name" validate:"required"`
	BillingDurationDays int             `json:"billing_duration" validate:"gt=0"`
	Price               decimal.Decimal `json:"price" validate:"gte=0"`
}

// CreatePlan adds an active plan to the catalog.
func (e *Engine) CreatePlan(ctx context.Context, name string, billingDurationDays int, price decimal.Decimal) (*plan.Plan, error) {
	in := planInput{Name: strings.TrimSpace(name), BillingDurationDays: billingDurationDays, Price: price}
	if err := ValidateStruct(in); err != nil {
		return nil, err
	}

	p := &plan.Plan{
		Entity:              types.NewEntity(e.clock.Now()),
		ID:                  id.NewPlanID(),
		Name:                in.Name,
		BillingDurationDays: billingDurationDays,
		Price:               price,
		Status:              plan.StatusActive,
	}

	if err := e.store.CreatePlan(ctx, p); err != nil {
		return nil, fmt.Errorf("cadence: create plan: %w", err)
	}

	e.plugins.EmitPlanCreated(ctx, p)
	return p, nil
}

// GetPlan retrieves a plan by ID.
func (e *Engine) GetPlan(ctx context.Context, planID id.PlanID) (*plan.Plan, error) {
	return e.resolvePlan(ctx, planID, ErrPlanNotFound)
}

// ListPlans lists catalog plans.
func (e *Engine) ListPlans(ctx context.Context, opts plan.ListOpts) ([]*plan.Plan, error) {
	return e.store.ListPlans(ctx, opts)
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

// resolvePlan loads a plan, reporting a missing one as notFound.
func (e *Engine) resolvePlan(ctx context.Context, planID id.PlanID, notFound error) (*plan.Plan, error) {
	if planID.IsNil() {
		return nil, notFound
	}
	p, err := e.store.GetPlan(ctx, planID)
	if err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			return nil, fmt.Errorf("%w: %s", notFound, planID)
		}
		return nil, fmt.Errorf("cadence: get plan %s: %w", planID, err)
	}
	return p, nil
}

func (e *Engine) resolveCustomer(ctx context.Context, customerID id.CustomerID) (*customer.Customer, error) {
	if customerID.IsNil() {
		return nil, ErrCustomerNotFound
	}
	c, err := e.store.GetCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, ErrCustomerNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCustomerNotFound, customerID)
		}
		return nil, fmt.Errorf("cadence: get customer %s: %w", customerID, err)
	}
	return c, nil
}

// notify sends a customer email. Delivery failures are logged and never
// returned: the billing change that triggered them stands.
func (e *Engine) notify(ctx context.Context, kind notify.Kind, email string, invoiceID id.InvoiceID) {
	ctx, cancel := context.WithTimeout(ctx, e.notifyTimeout)
	defer cancel()

	err := safely(func() error {
		return e.notifier.Notify(ctx, kind, email, invoiceID)
	})
	if err != nil {
		e.logger.Warn("notification not delivered",
			"kind", string(kind),
			"invoice_id", invoiceID.String(),
			"error", fmt.Errorf("%w: %w", ErrDeliveryFailure, err),
		)
	}
}

// safely runs fn, converting a panic into an error.
func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cadence: recovered panic: %v", r)
		}
	}()
	return fn()
}
