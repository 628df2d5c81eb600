package extension

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/xraph/cadence"
	"github.com/xraph/cadence/plugin"
	"github.com/xraph/cadence/store"
)

// Option configures the Cadence Forge extension.
type Option func(*Extension)

// WithStore sets the store for the billing engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithEngineOption passes a cadence.Option through to the underlying engine.
func WithEngineOption(opt cadence.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers a cadence plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, cadence.WithPlugin(p))
	}
}

// WithMetrics registers the Prometheus metrics plugin on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(e *Extension) { e.registerer = reg }
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableRoutes prevents building the HTTP handler.
func WithDisableRoutes() Option {
	return func(e *Extension) { e.config.DisableRoutes = true }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithDisableScheduler prevents the cron sweeps from running.
func WithDisableScheduler() Option {
	return func(e *Extension) { e.config.DisableScheduler = true }
}

// WithBasePath sets the URL prefix for billing routes.
func WithBasePath(path string) Option {
	return func(e *Extension) { e.config.BasePath = path }
}

// WithSchedules sets the cron expressions of both sweeps.
func WithSchedules(recurringInvoices, reprocessPayments string) Option {
	return func(e *Extension) {
		e.config.RecurringInvoicesSchedule = recurringInvoices
		e.config.ReprocessPaymentsSchedule = reprocessPayments
	}
}

// WithRetryMethod sets the payment method used by the reprocessing sweep.
func WithRetryMethod(method string) Option {
	return func(e *Extension) { e.config.RetryMethod = method }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
