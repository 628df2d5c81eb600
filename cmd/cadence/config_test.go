package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/cadence/scheduler"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CADENCE_ADDR", ":9090")

	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, scheduler.DefaultRecurringInvoices, cfg.Scheduler.RecurringInvoices)
	assert.Equal(t, "credit_card", cfg.Billing.RetryMethod)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cadence.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":7000"
log_level: debug
store:
  driver: redis
  addr: localhost:6379
  prefix: "billing:"
scheduler:
  recurring_invoices: "0 1 * * *"
  reprocess_payments: ""
  timeout: 5m
billing:
  retry_method: paypal
  sweep_page_size: 25
`), 0o600))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Addr)
	assert.Equal(t, "redis", cfg.Store.Driver)
	assert.Equal(t, "billing:", cfg.Store.Prefix)
	assert.Equal(t, "0 1 * * *", cfg.Scheduler.RecurringInvoices)
	assert.Empty(t, cfg.Scheduler.ReprocessPayments)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.Timeout)
	assert.Equal(t, "paypal", cfg.Billing.RetryMethod)
	assert.Equal(t, 25, cfg.Billing.SweepPageSize)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cadence.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  driver: memory
billing:
  sweep_page_size: 25
`), 0o600))

	t.Setenv("CADENCE_STORE_DRIVER", "redis")
	t.Setenv("CADENCE_STORE_ADDR", "redis:6379")
	t.Setenv("CADENCE_STORE_DB", "3")
	t.Setenv("CADENCE_BILLING_SWEEP_PAGE_SIZE", "50")
	t.Setenv("CADENCE_SCHEDULER_TIMEOUT", "90s")
	t.Setenv("SENDGRID_API_KEY", "SG.key")

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.Store.Driver)
	assert.Equal(t, "redis:6379", cfg.Store.Addr)
	assert.Equal(t, 3, cfg.Store.DB)
	assert.Equal(t, 50, cfg.Billing.SweepPageSize)
	assert.Equal(t, 90*time.Second, cfg.Scheduler.Timeout)
	assert.Equal(t, "SG.key", cfg.SendGrid.APIKey)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Store.Driver = "etcd" }},
		{"redis without addr", func(c *Config) { c.Store.Driver = "redis" }},
		{"bad retry method", func(c *Config) { c.Billing.RetryMethod = "cash" }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.validate())
		})
	}
	assert.NoError(t, defaultConfig().validate())
}
