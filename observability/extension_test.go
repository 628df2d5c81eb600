package observability_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/cadence"
	"github.com/xraph/cadence/clock"
	"github.com/xraph/cadence/notify"
	"github.com/xraph/cadence/observability"
	"github.com/xraph/cadence/payment"
	"github.com/xraph/cadence/store/memory"
)

// count reads a counter created by the Prometheus factory.
func count(t *testing.T, c observability.Counter) float64 {
	t.Helper()
	collector, ok := c.(prometheus.Collector)
	require.True(t, ok, "counter %T is not a prometheus collector", c)
	return testutil.ToFloat64(collector)
}

func TestMetricsFromEngine(t *testing.T) {
	reg := prometheus.NewRegistry()
	factory := observability.NewPrometheusFactory(reg)
	metrics := observability.NewMetricsExtension(factory)

	clk := clock.NewMock(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	engine := cadence.New(memory.New(),
		cadence.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		cadence.WithClock(clk),
		cadence.WithNotifier(&notify.Recorder{}),
		cadence.WithPlugin(metrics),
	)
	ctx := context.Background()
	require.NoError(t, engine.Start(ctx))
	defer func() { _ = engine.Stop() }()

	basic, err := engine.CreatePlan(ctx, "Basic", 30, decimal.NewFromInt(50))
	require.NoError(t, err)
	premium, err := engine.CreatePlan(ctx, "Premium", 30, decimal.NewFromInt(80))
	require.NoError(t, err)

	c, err := engine.CreateCustomerWithSubscription(ctx, "Ada", "ada@example.com", basic.ID)
	require.NoError(t, err)

	clk.AdvanceDays(10)
	inv, err := engine.Upgrade(ctx, c.ID, premium.ID)
	require.NoError(t, err)
	_, err = engine.Downgrade(ctx, c.ID, basic.ID)
	require.NoError(t, err)

	_, err = engine.ProcessPayment(ctx, inv.ID, payment.MethodCreditCard)
	require.NoError(t, err)

	clk.AdvanceDays(30)
	_, err = engine.RunRecurringInvoices(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2.0, count(t, metrics.PlanCreated))
	assert.Equal(t, 1.0, count(t, metrics.CustomerCreated))
	assert.Equal(t, 1.0, count(t, metrics.SubscriptionUpgraded))
	assert.Equal(t, 1.0, count(t, metrics.SubscriptionDowngraded))
	assert.Equal(t, 2.0, count(t, metrics.InvoiceGenerated))
	assert.Equal(t, 1.0, count(t, metrics.InvoiceProrated))
	assert.Equal(t, 1.0, count(t, metrics.InvoicePaid))
	assert.Equal(t, 1.0, count(t, metrics.RecurringSweepInvoiced))
	assert.Zero(t, count(t, metrics.RecurringSweepFailed))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["cadence_invoice_paid_total"])
	assert.True(t, names["cadence_invoice_amount"])
	assert.True(t, names["cadence_sweep_recurring_latency_ms"])
}

func TestPrometheusFactoryCachesByName(t *testing.T) {
	f := observability.NewPrometheusFactory(prometheus.NewRegistry())

	a := f.Counter("cadence.invoice.paid")
	b := f.Counter("cadence.invoice.paid")
	a.Inc()
	b.Add(2)

	assert.Equal(t, 3.0, testutil.ToFloat64(a.(prometheus.Counter)))
	assert.NotPanics(t, func() { f.Histogram("cadence.invoice.amount").Observe(12.5) })
	assert.NotPanics(t, func() { f.Histogram("cadence.invoice.amount").Observe(7) })
}
