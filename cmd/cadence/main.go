// Command cadence runs the billing engine as a standalone HTTP service with
// scheduled sweeps and Prometheus metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xraph/cadence"
	"github.com/xraph/cadence/api"
	audithook "github.com/xraph/cadence/audit_hook"
	"github.com/xraph/cadence/notify"
	"github.com/xraph/cadence/observability"
	"github.com/xraph/cadence/payment"
	"github.com/xraph/cadence/scheduler"
	"github.com/xraph/cadence/store"
	"github.com/xraph/cadence/store/memory"
	redisstore "github.com/xraph/cadence/store/redis"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	lvl, _ := cfg.level()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("cadence exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	engine := cadence.New(openStore(cfg.Store), engineOptions(cfg, logger, reg)...)

	ctx := context.Background()
	if err := engine.Start(ctx); err != nil {
		return err
	}

	sched, err := scheduler.New(engine, cfg.Scheduler, scheduler.WithLogger(logger))
	if err != nil {
		_ = engine.Stop()
		return err
	}
	sched.Start()

	router := api.NewRouter(engine, api.WithLogger(logger))
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("cadence listening", "addr", cfg.Addr, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return errors.Join(
		serveErr,
		srv.Shutdown(shutdownCtx),
		sched.Stop(shutdownCtx),
		engine.Stop(),
	)
}

func openStore(cfg StoreConfig) store.Store {
	if cfg.Driver == "redis" {
		var opts []redisstore.Option
		if cfg.Prefix != "" {
			opts = append(opts, redisstore.WithPrefix(cfg.Prefix))
		}
		return redisstore.Open(cfg.Addr, cfg.Password, cfg.DB, opts...)
	}
	return memory.New()
}

func engineOptions(cfg Config, logger *slog.Logger, reg prometheus.Registerer) []cadence.Option {
	opts := []cadence.Option{
		cadence.WithLogger(logger),
		cadence.WithRetryMethod(payment.Method(cfg.Billing.RetryMethod)),
		cadence.WithPlugin(observability.NewMetricsExtension(observability.NewPrometheusFactory(reg))),
	}

	if cfg.SendGrid.APIKey != "" {
		opts = append(opts, cadence.WithNotifier(notify.NewSendGrid(cfg.SendGrid.notifier(), nil)))
	} else {
		opts = append(opts, cadence.WithNotifier(notify.NewLog(logger)))
	}

	if cfg.Billing.SweepPageSize > 0 {
		opts = append(opts, cadence.WithSweepPageSize(cfg.Billing.SweepPageSize))
	}
	if cfg.Billing.HookTimeout > 0 {
		opts = append(opts, cadence.WithHookTimeout(cfg.Billing.HookTimeout))
	}

	if cfg.Audit {
		auditLog := logger.With("component", "audit")
		recorder := audithook.RecorderFunc(func(ctx context.Context, ev *audithook.AuditEvent) error {
			auditLog.InfoContext(ctx, ev.Action,
				"resource", ev.Resource,
				"resource_id", ev.ResourceID,
				"outcome", ev.Outcome,
				"severity", ev.Severity,
				"metadata", ev.Metadata,
			)
			return nil
		})
		opts = append(opts, cadence.WithPlugin(audithook.New(recorder, audithook.WithLogger(logger))))
	}
	return opts
}
