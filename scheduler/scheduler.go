// Package scheduler runs the billing sweeps on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/xraph/cadence"
	"github.com/xraph/cadence/plugin"
)

// Default schedules, evaluated in UTC.
const (
	DefaultRecurringInvoices = "0 23 * * *"
	DefaultReprocessPayments = "0 0 * * *"
	DefaultTimeout           = 30 * time.Minute
)

// Sweeper is the part of the engine the scheduler drives.
type Sweeper interface {
	RunRecurringInvoices(ctx context.Context) (*cadence.SweepReport, error)
	ReprocessFailedPayments(ctx context.Context) (*cadence.ReprocessReport, error)
}

// Config holds the cron expressions of both sweeps. An empty expression
// disables that sweep.
type Config struct {
	RecurringInvoices string        `json:"recurring_invoices" yaml:"recurring_invoices"`
	ReprocessPayments string        `json:"reprocess_payments" yaml:"reprocess_payments"`
	Timeout           time.Duration `json:"timeout" yaml:"timeout"`
}

// DefaultConfig returns the daily schedules.
func DefaultConfig() Config {
	return Config{
		RecurringInvoices: DefaultRecurringInvoices,
		ReprocessPayments: DefaultReprocessPayments,
		Timeout:           DefaultTimeout,
	}
}

// Scheduler owns a cron runner with one entry per enabled sweep. A sweep
// that is still running when its next tick fires is skipped.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	logger  *slog.Logger
	timeout time.Duration
	entries map[plugin.Sweep]cron.EntryID

	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// New validates cfg and registers the enabled sweeps. Nothing runs until
// Start.
func New(sweeper Sweeper, cfg Config, opts ...Option) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		sweeper: sweeper,
		logger:  slog.Default(),
		timeout: cfg.Timeout,
		entries: make(map[plugin.Sweep]cron.EntryID),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}

	log := cronLogger{s.logger}
	s.cron = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(log),
		cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)),
	)

	jobs := []struct {
		sweep plugin.Sweep
		spec  string
	}{
		{plugin.SweepRecurringInvoices, cfg.RecurringInvoices},
		{plugin.SweepReprocessPayments, cfg.ReprocessPayments},
	}
	for _, j := range jobs {
		if j.spec == "" {
			continue
		}
		sweep := j.sweep
		entryID, err := s.cron.AddFunc(j.spec, func() { _ = s.Run(s.ctx, sweep) })
		if err != nil {
			cancel()
			return nil, fmt.Errorf("%w: %s schedule %q: %w", cadence.ErrConfiguration, sweep, j.spec, err)
		}
		s.entries[sweep] = entryID
	}

	return s, nil
}

// Start begins firing scheduled sweeps in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.entries))
}

// Stop prevents new sweeps from starting and waits for running ones, up to
// ctx's deadline. Running sweeps see their context cancelled once ctx is
// done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()
	select {
	case <-done:
		s.cancel()
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}

// Next reports when sweep fires next. ok is false if the sweep is disabled
// or the scheduler has not been started.
func (s *Scheduler) Next(sweep plugin.Sweep) (next time.Time, ok bool) {
	entryID, ok := s.entries[sweep]
	if !ok {
		return time.Time{}, false
	}
	next = s.cron.Entry(entryID).Next
	return next, !next.IsZero()
}

// Run executes sweep once, synchronously, bounded by the scheduler timeout.
// Hitting the timeout is treated like the host going away: writes already
// committed for earlier customers or invoices stand, and the next run picks
// up whatever is still due.
func (s *Scheduler) Run(ctx context.Context, sweep plugin.Sweep) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	switch sweep {
	case plugin.SweepRecurringInvoices:
		report, err := s.sweeper.RunRecurringInvoices(ctx)
		if err != nil {
			s.logger.Error("recurring invoice sweep aborted", "error", err)
			return err
		}
		if report.Errors.HasErrors() {
			s.logger.Warn("recurring invoice sweep had failures",
				"failed", report.Failed,
				"first_error", report.Errors.First(),
			)
		}
	case plugin.SweepReprocessPayments:
		report, err := s.sweeper.ReprocessFailedPayments(ctx)
		if err != nil {
			s.logger.Error("failed payment sweep aborted", "error", err)
			return err
		}
		if report.Errors.HasErrors() {
			s.logger.Warn("failed payment sweep had failures",
				"failed", report.Failed,
				"first_error", report.Errors.First(),
			)
		}
	default:
		return fmt.Errorf("%w: unknown sweep %q", cadence.ErrInvalidInput, sweep)
	}
	return nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
