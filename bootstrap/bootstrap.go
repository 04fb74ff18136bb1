// Package bootstrap wires all dependencies of a cassette process: logging,
// metrics, file systems, module factories, cache stores and the admin server.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/artpar/cassette/adapters/clock"
	"github.com/artpar/cassette/adapters/factory"
	apihttp "github.com/artpar/cassette/adapters/http"
	"github.com/artpar/cassette/adapters/idgen"
	"github.com/artpar/cassette/adapters/localfs"
	"github.com/artpar/cassette/adapters/manifestfile"
	"github.com/artpar/cassette/adapters/metrics"
	"github.com/artpar/cassette/adapters/sqlite"
	"github.com/artpar/cassette/adapters/watch"
	"github.com/artpar/cassette/app"
	"github.com/artpar/cassette/config"
	"github.com/artpar/cassette/domain/module"
	"github.com/artpar/cassette/ports"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// App represents a configured cassette process.
type App struct {
	Config      *config.Config
	Logger      zerolog.Logger
	Metrics     *metrics.Collector
	Registry    *prometheus.Registry
	Application *app.Application

	kinds   []module.Kind
	version string
}

// Options provides optional settings for New.
type Options struct {
	LogOutput io.Writer // default os.Stdout
	Version   string
}

// New creates the application described by cfg. Nothing is scanned until
// Initialize.
func New(cfg *config.Config) (*App, error) {
	return NewWithOptions(cfg, Options{})
}

// NewWithOptions creates the application with custom options.
func NewWithOptions(cfg *config.Config, opts Options) (*App, error) {
	if opts.LogOutput == nil {
		opts.LogOutput = os.Stdout
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	logger := setupLogger(cfg.Logging, opts.LogOutput)

	kinds, err := cfg.ModuleKinds()
	if err != nil {
		return nil, fmt.Errorf("kinds: %w", err)
	}

	source, err := localfs.Open(cfg.SourceDir, false)
	if err != nil {
		return nil, fmt.Errorf("open source directory: %w", err)
	}
	cacheRoot, err := localfs.Open(cfg.CacheDir, true)
	if err != nil {
		return nil, fmt.Errorf("open cache directory: %w", err)
	}

	opener, err := cacheStoreOpener(cfg.Cache)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewWithRegistry(reg)

	application := app.New(source, cacheRoot,
		app.WithLogger(logger),
		app.WithFactories(factory.Defaults()),
		app.WithCacheStore(opener),
		app.WithMetrics(m),
		app.WithClock(clock.Real{}),
		app.WithIDGenerator(idgen.UUID{}),
	)

	logger.Info().
		Str("source", source.Path()).
		Str("cache", cacheRoot.Path()).
		Str("driver", cfg.Cache.Driver).
		Msg("cassette configured")

	return &App{
		Config:      cfg,
		Logger:      logger,
		Metrics:     m,
		Registry:    reg,
		Application: application,
		kinds:       kinds,
		version:     opts.Version,
	}, nil
}

// Kinds returns the enabled module kinds.
func (a *App) Kinds() []module.Kind {
	return append([]module.Kind(nil), a.kinds...)
}

// Initialize registers a container factory for every enabled kind and
// builds the containers.
func (a *App) Initialize(ctx context.Context) error {
	for _, kind := range a.kinds {
		a.Application.AddModuleContainerFactory(kind, a.containerFactory(kind))
	}
	return a.Application.InitializeModuleContainers(ctx)
}

// Rebuild re-runs the container factories of every enabled kind. Caches
// whose sources are unchanged are reused.
func (a *App) Rebuild(ctx context.Context) error {
	start := time.Now()
	err := a.Initialize(ctx)
	a.Metrics.Rebuild(time.Now(), err)
	if err != nil {
		return fmt.Errorf("rebuild: %w", err)
	}
	a.Logger.Info().Dur("duration", time.Since(start)).Msg("modules rebuilt")
	return nil
}

// ClearCache drops the stored manifests of kinds, or of every enabled kind
// when none are given.
func (a *App) ClearCache(ctx context.Context, kinds ...module.Kind) error {
	if len(kinds) == 0 {
		kinds = a.kinds
	}

	var result *multierror.Error
	for _, kind := range kinds {
		mc, err := a.Application.ModuleCache(kind)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		invalidateErr := mc.Invalidate(ctx)
		if invalidateErr != nil {
			result = multierror.Append(result, invalidateErr)
		}
		if err := mc.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		if invalidateErr == nil {
			a.Logger.Info().Str("kind", string(kind)).Msg("cache cleared")
		}
	}
	return result.ErrorOrNil()
}

// Router returns the admin HTTP handler.
func (a *App) Router() http.Handler {
	cfg := apihttp.RouterConfig{
		Metrics:       a.Metrics,
		EnableMetrics: a.Config.Metrics.Enabled,
		Version:       a.version,
	}
	if cfg.EnableMetrics {
		cfg.MetricsHandler = promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})
	}
	return apihttp.NewRouter(apihttp.NewHandler(a.Application, a.Logger), a.Logger, cfg)
}

// Serve runs the admin server until ctx is done, then shuts it down.
func (a *App) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Config.Addr())
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return a.serve(ctx, ln)
}

func (a *App) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      a.Router(),
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().Str("addr", ln.Addr().String()).Msg("starting http server")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	a.Logger.Info().Msg("http server stopped")
	return nil
}

// Watch rebuilds the modules whenever the sources change, until ctx is done.
func (a *App) Watch(ctx context.Context) error {
	w, err := watch.New(watch.Config{
		Root:     a.Config.SourceDir,
		Debounce: a.Config.Watch.Debounce,
		Ignore:   []string{a.Config.CacheDir},
		Metrics:  a.Metrics,
	}, a.Logger)
	if err != nil {
		return err
	}

	return w.Run(ctx, func(ctx context.Context, paths []string) {
		a.Logger.Info().Strs("paths", paths).Msg("sources changed")
		if err := a.Rebuild(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("rebuild failed")
		}
	})
}

// Close releases every initialized container.
func (a *App) Close() error {
	return a.Application.Close()
}

func (a *App) containerFactory(kind module.Kind) ports.ModuleContainerFactory {
	if a.Config.Cache.Driver == config.CacheDriverNone {
		return app.DirectContainerFactory{App: a.Application, Kind: kind}
	}
	return app.CachedContainerFactory{App: a.Application, Kind: kind}
}

func cacheStoreOpener(cfg config.CacheConfig) (ports.CacheStoreOpener, error) {
	switch cfg.Driver {
	case config.CacheDriverSQLite:
		return sqlite.Opener(cfg.Filename), nil
	case config.CacheDriverYAML:
		return manifestfile.Opener(cfg.Filename), nil
	case config.CacheDriverNone:
		return app.NopCacheStore, nil
	}
	return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
}

func setupLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
