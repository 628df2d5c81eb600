package extension

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/cadence"
	"github.com/xraph/cadence/plugin"
	"github.com/xraph/cadence/store/memory"
)

func TestMergeWithDefaults(t *testing.T) {
	e := New()
	cfg := e.mergeWithDefaults(Config{SweepPageSize: 25})

	assert.Equal(t, 25, cfg.SweepPageSize)
	assert.Equal(t, "/billing", cfg.BasePath)
	assert.Equal(t, "0 23 * * *", cfg.RecurringInvoicesSchedule)
	assert.Equal(t, "0 0 * * *", cfg.ReprocessPaymentsSchedule)
	assert.Equal(t, 30*time.Minute, cfg.SweepTimeout)
	assert.Equal(t, "credit_card", cfg.RetryMethod)
}

func TestMergeConfigurations(t *testing.T) {
	e := New()
	fromFile := Config{
		BasePath:    "/api/billing",
		RetryMethod: "paypal",
	}
	programmatic := Config{
		DisableScheduler:          true,
		BasePath:                  "/ignored",
		ReprocessPaymentsSchedule: "30 1 * * *",
		SweepPageSize:             10,
	}

	cfg := e.mergeConfigurations(fromFile, programmatic)
	assert.True(t, cfg.DisableScheduler)
	assert.False(t, cfg.DisableMigrate)
	assert.Equal(t, "/api/billing", cfg.BasePath)
	assert.Equal(t, "paypal", cfg.RetryMethod)
	assert.Equal(t, "30 1 * * *", cfg.ReprocessPaymentsSchedule)
	assert.Equal(t, "0 23 * * *", cfg.RecurringInvoicesSchedule)
	assert.Equal(t, 10, cfg.SweepPageSize)
}

func TestBuildMountsRoutes(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := New(WithStore(memory.New()), WithBasePath("/billing/"), WithMetrics(reg))
	e.config = e.mergeWithDefaults(e.config)
	require.NoError(t, e.build())
	require.NotNil(t, e.Engine())
	require.NotNil(t, e.Scheduler())
	require.NotNil(t, e.Handler())

	ctx := context.Background()
	require.NoError(t, e.Engine().Start(ctx))
	defer func() { _ = e.Engine().Stop() }()

	w := httptest.NewRecorder()
	e.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/billing/", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	e.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/customers", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	_, err := e.Engine().CreatePlan(ctx, "Basic", 30, decimal.NewFromInt(50))
	require.NoError(t, err)
	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	_, ok := e.Scheduler().Next(plugin.SweepRecurringInvoices)
	assert.False(t, ok, "scheduler is not started by build")
	assert.NoError(t, e.Health(ctx))
}

func TestBuildWithoutRoutes(t *testing.T) {
	e := New(WithDisableRoutes())
	e.config = e.mergeWithDefaults(e.config)
	require.NoError(t, e.build())
	assert.Nil(t, e.Handler())
}

func TestBuildRejectsBadConfig(t *testing.T) {
	e := New(WithRetryMethod("cash"))
	e.config = e.mergeWithDefaults(e.config)
	assert.ErrorIs(t, e.build(), cadence.ErrConfiguration)

	e = New(WithSchedules("not a schedule", ""))
	e.config = e.mergeWithDefaults(e.config)
	assert.ErrorIs(t, e.build(), cadence.ErrConfiguration)
}
