package scheduler_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/cadence"
	"github.com/xraph/cadence/plugin"
	"github.com/xraph/cadence/scheduler"
)

type fakeSweeper struct {
	invoices  atomic.Int32
	reprocess atomic.Int32
	err       error
}

func (f *fakeSweeper) RunRecurringInvoices(context.Context) (*cadence.SweepReport, error) {
	f.invoices.Add(1)
	return &cadence.SweepReport{}, f.err
}

func (f *fakeSweeper) ReprocessFailedPayments(context.Context) (*cadence.ReprocessReport, error) {
	f.reprocess.Add(1)
	return &cadence.ReprocessReport{}, f.err
}

func quiet() scheduler.Option {
	return scheduler.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRunDispatches(t *testing.T) {
	f := &fakeSweeper{}
	s, err := scheduler.New(f, scheduler.DefaultConfig(), quiet())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Run(ctx, plugin.SweepRecurringInvoices))
	require.NoError(t, s.Run(ctx, plugin.SweepReprocessPayments))
	require.NoError(t, s.Run(ctx, plugin.SweepReprocessPayments))

	assert.Equal(t, int32(1), f.invoices.Load())
	assert.Equal(t, int32(2), f.reprocess.Load())

	err = s.Run(ctx, plugin.Sweep("nightly_backup"))
	assert.ErrorIs(t, err, cadence.ErrInvalidInput)
}

func TestRunPropagatesSweepError(t *testing.T) {
	boom := errors.New("list customers: connection reset")
	s, err := scheduler.New(&fakeSweeper{err: boom}, scheduler.DefaultConfig(), quiet())
	require.NoError(t, err)

	assert.ErrorIs(t, s.Run(context.Background(), plugin.SweepRecurringInvoices), boom)
}

func TestInvalidSchedule(t *testing.T) {
	cfg := scheduler.DefaultConfig()
	cfg.ReprocessPayments = "every tuesday"

	_, err := scheduler.New(&fakeSweeper{}, cfg, quiet())
	assert.ErrorIs(t, err, cadence.ErrConfiguration)
}

func TestNextAndDisabled(t *testing.T) {
	cfg := scheduler.DefaultConfig()
	cfg.ReprocessPayments = ""

	s, err := scheduler.New(&fakeSweeper{}, cfg, quiet())
	require.NoError(t, err)
	s.Start()
	defer func() { _ = s.Stop(context.Background()) }()

	next, ok := s.Next(plugin.SweepRecurringInvoices)
	require.True(t, ok)
	assert.Equal(t, 23, next.UTC().Hour())
	assert.Equal(t, 0, next.UTC().Minute())
	assert.True(t, next.After(time.Now()))

	_, ok = s.Next(plugin.SweepReprocessPayments)
	assert.False(t, ok)
}

func TestScheduledSweepFires(t *testing.T) {
	f := &fakeSweeper{}
	s, err := scheduler.New(f, scheduler.Config{RecurringInvoices: "@every 1s"}, quiet())
	require.NoError(t, err)

	s.Start()
	require.Eventually(t, func() bool { return f.invoices.Load() > 0 }, 5*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.Zero(t, f.reprocess.Load())
}
