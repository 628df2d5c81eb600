// Package extension provides the Forge extension adapter for Cadence.
//
// It implements the forge.Extension interface to integrate the billing
// engine and its sweep scheduler into a Forge application with DI
// registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.cadence" or "cadence" keys.
package extension

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/cadence"
	"github.com/xraph/cadence/api"
	"github.com/xraph/cadence/observability"
	"github.com/xraph/cadence/payment"
	"github.com/xraph/cadence/scheduler"
	"github.com/xraph/cadence/store"
	"github.com/xraph/cadence/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "cadence"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Subscription billing engine with prorated plan changes"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Cadence as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *cadence.Engine
	scheduler  *scheduler.Scheduler
	handler    http.Handler
	store      store.Store
	registerer prometheus.Registerer
	engineOpts []cadence.Option
}

// New creates a new Cadence Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying billing engine.
// This is nil until Register is called.
func (e *Extension) Engine() *cadence.Engine { return e.engine }

// Scheduler returns the sweep scheduler.
// This is nil until Register is called.
func (e *Extension) Scheduler() *scheduler.Scheduler { return e.scheduler }

// Handler returns the billing routes mounted under the configured base path.
// It is nil until Register is called, and stays nil when routes are disabled.
func (e *Extension) Handler() http.Handler { return e.handler }

// Register implements [forge.Extension]. It loads configuration,
// initializes the engine and scheduler, and registers both in the DI
// container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if err := e.build(); err != nil {
		return err
	}

	if err := vessel.Provide(fapp.Container(), func() (*cadence.Engine, error) {
		return e.engine, nil
	}); err != nil {
		return err
	}
	return vessel.Provide(fapp.Container(), func() (*scheduler.Scheduler, error) {
		return e.scheduler, nil
	})
}

// build wires the engine, scheduler and handler from the resolved config.
func (e *Extension) build() error {
	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	opts, err := e.buildEngineOpts()
	if err != nil {
		return err
	}
	e.engine = cadence.New(e.store, opts...)

	sched, err := scheduler.New(e.engine, e.config.schedulerConfig())
	if err != nil {
		return err
	}
	e.scheduler = sched

	if !e.config.DisableRoutes {
		e.handler = e.buildHandler()
	}
	return nil
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("cadence: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	if !e.config.DisableScheduler {
		e.scheduler.Start()
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension]. It waits for a running sweep before
// closing the engine.
func (e *Extension) Stop(ctx context.Context) error {
	var errs []error
	if e.scheduler != nil && !e.config.DisableScheduler {
		errs = append(errs, e.scheduler.Stop(ctx))
	}
	if e.engine != nil {
		errs = append(errs, e.engine.Stop())
	}
	e.MarkStopped()
	return errors.Join(errs...)
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("cadence: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs cadence.Option values from the resolved config.
func (e *Extension) buildEngineOpts() ([]cadence.Option, error) {
	opts := make([]cadence.Option, 0, len(e.engineOpts)+4)

	method := payment.Method(e.config.RetryMethod)
	if !method.Valid() {
		return nil, fmt.Errorf("%w: unknown retry payment method %q", cadence.ErrConfiguration, e.config.RetryMethod)
	}
	opts = append(opts,
		cadence.WithRetryMethod(method),
		cadence.WithSweepPageSize(e.config.SweepPageSize),
	)

	if e.registerer != nil {
		factory := observability.NewPrometheusFactory(e.registerer)
		opts = append(opts, cadence.WithPlugin(observability.NewMetricsExtension(factory)))
	}

	// Append any pass-through engine options.
	opts = append(opts, e.engineOpts...)

	return opts, nil
}

func (e *Extension) buildHandler() http.Handler {
	router := mux.NewRouter()
	base := strings.TrimSuffix(e.config.BasePath, "/")
	if base == "" {
		api.NewHandlers(e.engine).RegisterRoutes(router)
		return router
	}
	api.NewHandlers(e.engine).RegisterRoutes(router.PathPrefix(base).Subrouter())
	return router
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("cadence: configuration is required but not found in config files; " +
				"ensure 'extensions.cadence' or 'cadence' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("cadence: configuration loaded",
		forge.F("disable_routes", e.config.DisableRoutes),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("disable_scheduler", e.config.DisableScheduler),
		forge.F("base_path", e.config.BasePath),
		forge.F("recurring_invoices_schedule", e.config.RecurringInvoicesSchedule),
		forge.F("reprocess_payments_schedule", e.config.ReprocessPaymentsSchedule),
		forge.F("retry_method", e.config.RetryMethod),
		forge.F("sweep_page_size", e.config.SweepPageSize),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.cadence" first (namespaced pattern).
	if cm.IsSet("extensions.cadence") {
		if err := cm.Bind("extensions.cadence", &cfg); err == nil {
			e.Logger().Debug("cadence: loaded config from file",
				forge.F("key", "extensions.cadence"),
			)
			return cfg, true
		}
		e.Logger().Warn("cadence: failed to bind extensions.cadence config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "cadence" key.
	if cm.IsSet("cadence") {
		if err := cm.Bind("cadence", &cfg); err == nil {
			e.Logger().Debug("cadence: loaded config from file",
				forge.F("key", "cadence"),
			)
			return cfg, true
		}
		e.Logger().Warn("cadence: failed to bind cadence config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.BasePath == "" {
		cfg.BasePath = defaults.BasePath
	}
	if cfg.RecurringInvoicesSchedule == "" {
		cfg.RecurringInvoicesSchedule = defaults.RecurringInvoicesSchedule
	}
	if cfg.ReprocessPaymentsSchedule == "" {
		cfg.ReprocessPaymentsSchedule = defaults.ReprocessPaymentsSchedule
	}
	if cfg.SweepTimeout == 0 {
		cfg.SweepTimeout = defaults.SweepTimeout
	}
	if cfg.RetryMethod == "" {
		cfg.RetryMethod = defaults.RetryMethod
	}
	if cfg.SweepPageSize == 0 {
		cfg.SweepPageSize = defaults.SweepPageSize
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableRoutes {
		yamlConfig.DisableRoutes = true
	}
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.DisableScheduler {
		yamlConfig.DisableScheduler = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.BasePath == "" {
		yamlConfig.BasePath = programmaticConfig.BasePath
	}
	if yamlConfig.RecurringInvoicesSchedule == "" {
		yamlConfig.RecurringInvoicesSchedule = programmaticConfig.RecurringInvoicesSchedule
	}
	if yamlConfig.ReprocessPaymentsSchedule == "" {
		yamlConfig.ReprocessPaymentsSchedule = programmaticConfig.ReprocessPaymentsSchedule
	}
	if yamlConfig.RetryMethod == "" {
		yamlConfig.RetryMethod = programmaticConfig.RetryMethod
	}

	// Duration/int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.SweepTimeout == 0 {
		yamlConfig.SweepTimeout = programmaticConfig.SweepTimeout
	}
	if yamlConfig.SweepPageSize == 0 {
		yamlConfig.SweepPageSize = programmaticConfig.SweepPageSize
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
