package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/cadence/customer"
	"github.com/xraph/cadence/invoice"
	"github.com/xraph/cadence/payment"
	"github.com/xraph/cadence/plan"
)

// DefaultTimeout bounds every hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit                  []OnInit
	onShutdown              []OnShutdown
	onPlanCreated           []OnPlanCreated
	onCustomerCreated       []OnCustomerCreated
	onSubscriptionAssigned  []OnSubscriptionAssigned
	onSubscriptionChanged   []OnSubscriptionChanged
	onSubscriptionCancelled []OnSubscriptionCancelled
	onInvoiceGenerated      []OnInvoiceGenerated
	onInvoicePaid           []OnInvoicePaid
	onInvoiceFailed         []OnInvoiceFailed
	onSweepCompleted        []OnSweepCompleted
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-call hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnPlanCreated); ok {
		r.onPlanCreated = append(r.onPlanCreated, v)
	}
	if v, ok := p.(OnCustomerCreated); ok {
		r.onCustomerCreated = append(r.onCustomerCreated, v)
	}
	if v, ok := p.(OnSubscriptionAssigned); ok {
		r.onSubscriptionAssigned = append(r.onSubscriptionAssigned, v)
	}
	if v, ok := p.(OnSubscriptionChanged); ok {
		r.onSubscriptionChanged = append(r.onSubscriptionChanged, v)
	}
	if v, ok := p.(OnSubscriptionCancelled); ok {
		r.onSubscriptionCancelled = append(r.onSubscriptionCancelled, v)
	}
	if v, ok := p.(OnInvoiceGenerated); ok {
		r.onInvoiceGenerated = append(r.onInvoiceGenerated, v)
	}
	if v, ok := p.(OnInvoicePaid); ok {
		r.onInvoicePaid = append(r.onInvoicePaid, v)
	}
	if v, ok := p.(OnInvoiceFailed); ok {
		r.onInvoiceFailed = append(r.onInvoiceFailed, v)
	}
	if v, ok := p.(OnSweepCompleted); ok {
		r.onSweepCompleted = append(r.onSweepCompleted, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	name string
	typ  reflect.Type
}{
	{"OnInit", reflect.TypeOf((*OnInit)(nil)).Elem()},
	{"OnShutdown", reflect.TypeOf((*OnShutdown)(nil)).Elem()},
	{"OnPlanCreated", reflect.TypeOf((*OnPlanCreated)(nil)).Elem()},
	{"OnCustomerCreated", reflect.TypeOf((*OnCustomerCreated)(nil)).Elem()},
	{"OnSubscriptionAssigned", reflect.TypeOf((*OnSubscriptionAssigned)(nil)).Elem()},
	{"OnSubscriptionChanged", reflect.TypeOf((*OnSubscriptionChanged)(nil)).Elem()},
	{"OnSubscriptionCancelled", reflect.TypeOf((*OnSubscriptionCancelled)(nil)).Elem()},
	{"OnInvoiceGenerated", reflect.TypeOf((*OnInvoiceGenerated)(nil)).Elem()},
	{"OnInvoicePaid", reflect.TypeOf((*OnInvoicePaid)(nil)).Elem()},
	{"OnInvoiceFailed", reflect.TypeOf((*OnInvoiceFailed)(nil)).Elem()},
	{"OnSweepCompleted", reflect.TypeOf((*OnSweepCompleted)(nil)).Elem()},
}

// implementedInterfaces returns the hook interfaces p implements.
func implementedInterfaces(p Plugin) []string {
	var names []string
	v := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if v.Implements(h.typ) {
			names = append(names, h.name)
		}
	}
	return names
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// emit runs call for every plugin in hooks, logging failures under hook.
func emit[T Plugin](ctx context.Context, r *Registry, hook string, hooks []T, call func(T) error) {
	for _, p := range hooks {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return call(p)
		}); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	hooks := r.onInit
	r.mu.RUnlock()

	emit(ctx, r, "OnInit", hooks, func(p OnInit) error { return p.OnInit(ctx, engine) })
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	hooks := r.onShutdown
	r.mu.RUnlock()

	emit(ctx, r, "OnShutdown", hooks, func(p OnShutdown) error { return p.OnShutdown(ctx) })
}

// EmitPlanCreated emits a plan created event.
func (r *Registry) EmitPlanCreated(ctx context.Context, pl *plan.Plan) {
	r.mu.RLock()
	hooks := r.onPlanCreated
	r.mu.RUnlock()

	emit(ctx, r, "OnPlanCreated", hooks, func(p OnPlanCreated) error { return p.OnPlanCreated(ctx, pl) })
}

// EmitCustomerCreated emits a customer created event.
func (r *Registry) EmitCustomerCreated(ctx context.Context, c *customer.Customer) {
	r.mu.RLock()
	hooks := r.onCustomerCreated
	r.mu.RUnlock()

	emit(ctx, r, "OnCustomerCreated", hooks, func(p OnCustomerCreated) error { return p.OnCustomerCreated(ctx, c) })
}

// EmitSubscriptionAssigned emits a subscription assigned event.
func (r *Registry) EmitSubscriptionAssigned(ctx context.Context, c *customer.Customer, pl *plan.Plan) {
	r.mu.RLock()
	hooks := r.onSubscriptionAssigned
	r.mu.RUnlock()

	emit(ctx, r, "OnSubscriptionAssigned", hooks, func(p OnSubscriptionAssigned) error {
		return p.OnSubscriptionAssigned(ctx, c, pl)
	})
}

// EmitSubscriptionChanged emits a plan change event.
func (r *Registry) EmitSubscriptionChanged(ctx context.Context, c *customer.Customer, oldPlan, newPlan *plan.Plan, change Change) {
	r.mu.RLock()
	hooks := r.onSubscriptionChanged
	r.mu.RUnlock()

	emit(ctx, r, "OnSubscriptionChanged", hooks, func(p OnSubscriptionChanged) error {
		return p.OnSubscriptionChanged(ctx, c, oldPlan, newPlan, change)
	})
}

// EmitSubscriptionCancelled emits a subscription cancelled event.
func (r *Registry) EmitSubscriptionCancelled(ctx context.Context, c *customer.Customer) {
	r.mu.RLock()
	hooks := r.onSubscriptionCancelled
	r.mu.RUnlock()

	emit(ctx, r, "OnSubscriptionCancelled", hooks, func(p OnSubscriptionCancelled) error {
		return p.OnSubscriptionCancelled(ctx, c)
	})
}

// EmitInvoiceGenerated emits an invoice generated event.
func (r *Registry) EmitInvoiceGenerated(ctx context.Context, inv *invoice.Invoice) {
	r.mu.RLock()
	hooks := r.onInvoiceGenerated
	r.mu.RUnlock()

	emit(ctx, r, "OnInvoiceGenerated", hooks, func(p OnInvoiceGenerated) error { return p.OnInvoiceGenerated(ctx, inv) })
}

// EmitInvoicePaid emits an invoice paid event.
func (r *Registry) EmitInvoicePaid(ctx context.Context, inv *invoice.Invoice, pay *payment.Payment) {
	r.mu.RLock()
	hooks := r.onInvoicePaid
	r.mu.RUnlock()

	emit(ctx, r, "OnInvoicePaid", hooks, func(p OnInvoicePaid) error { return p.OnInvoicePaid(ctx, inv, pay) })
}

// EmitInvoiceFailed emits an invoice payment failure event.
func (r *Registry) EmitInvoiceFailed(ctx context.Context, inv *invoice.Invoice, cause error) {
	r.mu.RLock()
	hooks := r.onInvoiceFailed
	r.mu.RUnlock()

	emit(ctx, r, "OnInvoiceFailed", hooks, func(p OnInvoiceFailed) error { return p.OnInvoiceFailed(ctx, inv, cause) })
}

// EmitSweepCompleted emits a sweep completed event.
func (r *Registry) EmitSweepCompleted(ctx context.Context, sweep Sweep, processed, failed int, elapsed time.Duration) {
	r.mu.RLock()
	hooks := r.onSweepCompleted
	r.mu.RUnlock()

	emit(ctx, r, "OnSweepCompleted", hooks, func(p OnSweepCompleted) error {
		return p.OnSweepCompleted(ctx, sweep, processed, failed, elapsed)
	})
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the billing pipeline. A panicking hook is
// reported as an error.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- fmt.Errorf("plugin panic: %s: %v", pluginName, rec)
			}
		}()
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
