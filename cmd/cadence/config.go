package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/xraph/cadence/notify"
	"github.com/xraph/cadence/payment"
	"github.com/xraph/cadence/scheduler"
)

// Config is the server configuration file layout.
type Config struct {
	Addr      string           `yaml:"addr"`
	LogLevel  string           `yaml:"log_level"`
	Store     StoreConfig      `yaml:"store"`
	Scheduler scheduler.Config `yaml:"scheduler"`
	SendGrid  SendGridConfig   `yaml:"sendgrid"`
	Billing   BillingConfig    `yaml:"billing"`
	Audit     bool             `yaml:"audit"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver   string `yaml:"driver"` // memory or redis
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// SendGridConfig enables e-mail notifications when APIKey is set.
type SendGridConfig struct {
	APIKey  string        `yaml:"api_key"`
	From    string        `yaml:"from"`
	Timeout time.Duration `yaml:"timeout"`
}

// BillingConfig tunes the engine.
type BillingConfig struct {
	RetryMethod   string        `yaml:"retry_method"`
	SweepPageSize int           `yaml:"sweep_page_size"`
	HookTimeout   time.Duration `yaml:"hook_timeout"`
}

func defaultConfig() Config {
	return Config{
		Addr:      ":8080",
		LogLevel:  "info",
		Store:     StoreConfig{Driver: "memory"},
		Scheduler: scheduler.DefaultConfig(),
		Billing:   BillingConfig{RetryMethod: string(payment.MethodCreditCard)},
		Audit:     true,
	}
}

// loadConfig reads configuration with the following priority, highest
// first:
//  1. Environment variables with the CADENCE_ prefix (CADENCE_STORE_ADDR,
//     CADENCE_BILLING_SWEEP_PAGE_SIZE, ...). SENDGRID_API_KEY is also read.
//  2. The YAML file at path, if path is non-empty.
//  3. Built-in defaults.
func loadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, defaultConfig())

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return defaultConfig(), fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("CADENCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("sendgrid.api_key", "CADENCE_SENDGRID_API_KEY", "SENDGRID_API_KEY"); err != nil {
		return defaultConfig(), fmt.Errorf("bind env: %w", err)
	}

	cfg := Config{
		Addr:     v.GetString("addr"),
		LogLevel: v.GetString("log_level"),
		Store: StoreConfig{
			Driver:   v.GetString("store.driver"),
			Addr:     v.GetString("store.addr"),
			Password: v.GetString("store.password"),
			DB:       v.GetInt("store.db"),
			Prefix:   v.GetString("store.prefix"),
		},
		Scheduler: scheduler.Config{
			RecurringInvoices: v.GetString("scheduler.recurring_invoices"),
			ReprocessPayments: v.GetString("scheduler.reprocess_payments"),
			Timeout:           v.GetDuration("scheduler.timeout"),
		},
		SendGrid: SendGridConfig{
			APIKey:  v.GetString("sendgrid.api_key"),
			From:    v.GetString("sendgrid.from"),
			Timeout: v.GetDuration("sendgrid.timeout"),
		},
		Billing: BillingConfig{
			RetryMethod:   v.GetString("billing.retry_method"),
			SweepPageSize: v.GetInt("billing.sweep_page_size"),
			HookTimeout:   v.GetDuration("billing.hook_timeout"),
		},
		Audit: v.GetBool("audit"),
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys the
// file leaves out.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("addr", d.Addr)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.addr", d.Store.Addr)
	v.SetDefault("store.password", d.Store.Password)
	v.SetDefault("store.db", d.Store.DB)
	v.SetDefault("store.prefix", d.Store.Prefix)
	v.SetDefault("scheduler.recurring_invoices", d.Scheduler.RecurringInvoices)
	v.SetDefault("scheduler.reprocess_payments", d.Scheduler.ReprocessPayments)
	v.SetDefault("scheduler.timeout", d.Scheduler.Timeout)
	v.SetDefault("sendgrid.from", d.SendGrid.From)
	v.SetDefault("sendgrid.timeout", d.SendGrid.Timeout)
	v.SetDefault("billing.retry_method", d.Billing.RetryMethod)
	v.SetDefault("billing.sweep_page_size", d.Billing.SweepPageSize)
	v.SetDefault("billing.hook_timeout", d.Billing.HookTimeout)
	v.SetDefault("audit", d.Audit)
}

func (c Config) validate() error {
	switch c.Store.Driver {
	case "memory":
	case "redis":
		if c.Store.Addr == "" {
			return fmt.Errorf("store: redis driver needs an addr")
		}
	default:
		return fmt.Errorf("store: unknown driver %q", c.Store.Driver)
	}
	if !payment.Method(c.Billing.RetryMethod).Valid() {
		return fmt.Errorf("billing: invalid retry method %q", c.Billing.RetryMethod)
	}
	if _, err := c.level(); err != nil {
		return err
	}
	return nil
}

func (c Config) level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return lvl, fmt.Errorf("log_level: %w", err)
	}
	return lvl, nil
}

func (c SendGridConfig) notifier() notify.SendGridConfig {
	return notify.SendGridConfig{
		APIKey:  c.APIKey,
		From:    c.From,
		Timeout: c.Timeout,
	}
}
