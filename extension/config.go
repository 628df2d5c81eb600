package extension

import (
	"time"

	"github.com/xraph/cadence/payment"
	"github.com/xraph/cadence/scheduler"
	"github.com/xraph/cadence/store"
)

// Config holds the Cadence extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.cadence" or "cadence" keys).
type Config struct {
	// DisableRoutes prevents building the HTTP handler.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// DisableScheduler prevents the cron sweeps from running. The sweeps can
	// still be triggered through the engine or the HTTP routes.
	DisableScheduler bool `json:"disable_scheduler" mapstructure:"disable_scheduler" yaml:"disable_scheduler"`

	// BasePath is the URL prefix for billing routes (default: "/billing").
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// RecurringInvoicesSchedule is the cron expression of the billing sweep
	// (default: "0 23 * * *").
	RecurringInvoicesSchedule string `json:"recurring_invoices_schedule" mapstructure:"recurring_invoices_schedule" yaml:"recurring_invoices_schedule"`

	// ReprocessPaymentsSchedule is the cron expression of the failed-payment
	// sweep (default: "0 0 * * *").
	ReprocessPaymentsSchedule string `json:"reprocess_payments_schedule" mapstructure:"reprocess_payments_schedule" yaml:"reprocess_payments_schedule"`

	// SweepTimeout bounds a single scheduled sweep (default: 30m).
	SweepTimeout time.Duration `json:"sweep_timeout" mapstructure:"sweep_timeout" yaml:"sweep_timeout"`

	// RetryMethod is the payment method used when reprocessing failed
	// invoices (default: "credit_card").
	RetryMethod string `json:"retry_method" mapstructure:"retry_method" yaml:"retry_method"`

	// SweepPageSize is the number of customers read per page during the
	// billing sweep (default: 100).
	SweepPageSize int `json:"sweep_page_size" mapstructure:"sweep_page_size" yaml:"sweep_page_size"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BasePath:                  "/billing",
		RecurringInvoicesSchedule: scheduler.DefaultRecurringInvoices,
		ReprocessPaymentsSchedule: scheduler.DefaultReprocessPayments,
		SweepTimeout:              scheduler.DefaultTimeout,
		RetryMethod:               string(payment.MethodCreditCard),
		SweepPageSize:             store.DefaultPageSize,
	}
}

// schedulerConfig returns the cron settings of cfg.
func (c Config) schedulerConfig() scheduler.Config {
	return scheduler.Config{
		RecurringInvoices: c.RecurringInvoicesSchedule,
		ReprocessPayments: c.ReprocessPaymentsSchedule,
		Timeout:           c.SweepTimeout,
	}
}
