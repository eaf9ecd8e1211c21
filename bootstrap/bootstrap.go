// Package bootstrap wires configuration, modules, events and the HTTP
// server into a runnable application.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	apihttp "github.com/ComplyCloud/brane/adapters/http"
	"github.com/ComplyCloud/brane/adapters/metrics"
	"github.com/ComplyCloud/brane/config"
	"github.com/ComplyCloud/brane/core/schema"
	"github.com/ComplyCloud/brane/core/service"
	"github.com/ComplyCloud/brane/modules/journal"
	"github.com/ComplyCloud/brane/modules/logger"
)

// App is the assembled application.
type App struct {
	Config     *config.Config
	Logger     zerolog.Logger
	Service    *service.Service
	Metrics    *metrics.Collector
	Registry   *prometheus.Registry
	Journal    *journal.Module
	HTTPServer *http.Server
	Watcher    *EventWatcher

	definitions []schema.Definition
	output      io.Writer
}

// Option configures New.
type Option func(*App)

// WithOutput sends log output to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(a *App) { a.output = w }
}

// New assembles an App from cfg. Nothing is started.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{Config: cfg, output: os.Stdout}
	for _, opt := range opts {
		opt(a)
	}

	a.Logger = setupLogger(cfg.Logging, a.output).With().Str("service", cfg.Service.Name).Logger()

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Metrics = metrics.NewWithRegistry(a.Registry)

	a.Service = service.New(
		service.WithLogger(a.Logger),
		service.WithObserver(a.Metrics),
	)

	if err := a.registerModules(); err != nil {
		return nil, err
	}
	if err := a.registerThings(); err != nil {
		return nil, err
	}
	if err := a.registerEvents(); err != nil {
		return nil, err
	}

	a.initHTTPServer()
	return a, nil
}

func (a *App) registerModules() error {
	modules := []service.Module{logger.New(a.Logger)}
	if a.Config.Journal.Enabled {
		a.Journal = journal.New(a.Config.Journal.Path)
		modules = append(modules, a.Journal)
	}
	for _, m := range modules {
		if err := a.Service.AddModule(m); err != nil {
			return fmt.Errorf("register module: %w", err)
		}
	}
	return nil
}

func (a *App) registerThings() error {
	for _, tc := range a.Config.Things {
		if err := a.Service.AddThing(service.NewThing(tc.Name, tc.Attributes)); err != nil {
			return fmt.Errorf("register thing: %w", err)
		}
	}
	return nil
}

func (a *App) registerEvents() error {
	if a.Config.Events.Dir == "" {
		return nil
	}
	defs, err := schema.ParseDir(a.Config.Events.Dir)
	if err != nil {
		return fmt.Errorf("load events: %w", err)
	}
	for _, def := range defs {
		if err := a.Service.AddEvent(DeclarativeEvent(def)); err != nil {
			return fmt.Errorf("register event from %s: %w", def.Source, err)
		}
	}
	a.definitions = defs
	a.Logger.Debug().Int("count", len(defs)).Str("dir", a.Config.Events.Dir).Msg("event definitions loaded")
	return nil
}

func (a *App) initHTTPServer() {
	rcfg := apihttp.RouterConfig{
		Metrics:  a.Metrics,
		Gatherer: a.Registry,
		Timeout:  a.Config.Server.WriteTimeout,
	}
	if a.Config.Metrics.Enabled {
		rcfg.MetricsPath = a.Config.Metrics.Path
	}
	if a.Journal != nil {
		rcfg.Journal = a.Journal
	}

	a.HTTPServer = &http.Server{
		Addr:         a.Config.Server.Addr(),
		Handler:      apihttp.NewRouter(a.Service, a.Logger, rcfg),
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}
}

// Definitions returns the declarative event definitions that were loaded.
func (a *App) Definitions() []schema.Definition { return a.definitions }

// Start starts every module in dependency order.
func (a *App) Start(ctx context.Context) error {
	if err := a.Service.Start(ctx); err != nil {
		return err
	}
	a.Logger.Info().
		Strs("order", a.Service.Order()).
		Strs("events", a.Service.Events().Names()).
		Int("things", a.Service.Things().Len()).
		Msg("application ready")
	return nil
}

// Run starts the service and serves HTTP until ctx is cancelled, a
// termination signal arrives or the server fails. A startup error is
// returned without serving.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		a.closeJournal()
		return err
	}

	if err := a.startWatcher(); err != nil {
		a.closeJournal()
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.stopWatcher()
		a.closeJournal()
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		a.Logger.Info().Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown stops the HTTP server and closes the journal.
func (a *App) Shutdown() error {
	timeout := a.Config.Server.ShutdownTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a.stopWatcher()

	var errs []error
	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
			errs = append(errs, err)
		}
	}
	if err := a.closeJournal(); err != nil {
		errs = append(errs, err)
	}

	a.Logger.Info().Msg("shutdown complete")
	return errors.Join(errs...)
}

// startWatcher starts reloading event definitions when events.watch is set.
func (a *App) startWatcher() error {
	if !a.Config.Events.Watch || a.Config.Events.Dir == "" {
		return nil
	}
	w := NewEventWatcher(a.Config.Events.Dir, a.Service, a.Logger)
	if err := w.Start(); err != nil {
		return err
	}
	a.Watcher = w
	return nil
}

func (a *App) stopWatcher() {
	if a.Watcher != nil {
		a.Watcher.Stop()
	}
}

func (a *App) closeJournal() error {
	if a.Journal == nil {
		return nil
	}
	if err := a.Journal.Close(); err != nil {
		a.Logger.Error().Err(err).Msg("journal close error")
		return err
	}
	return nil
}

// setupLogger builds the root logger from the logging config.
func setupLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: out != os.Stdout}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
