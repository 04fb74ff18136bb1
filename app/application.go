// Package app provides the services that compose modules: the kind-keyed
// application registry, module caches and container factories.
package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/artpar/cassette/core/registry"
	"github.com/artpar/cassette/domain/module"
	"github.com/artpar/cassette/ports"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
)

// Application owns the source and cache roots and the containers built from
// them, one per module kind.
//
// Container factories are registered with AddModuleContainerFactory and run
// by InitializeModuleContainers; a kind's container is available from
// ModuleContainer only after that.
type Application struct {
	source ports.FileSystem
	cache  ports.FileSystem

	factories *registry.Registry
	openStore ports.CacheStoreOpener
	clock     ports.Clock
	ids       ports.IDGenerator
	metrics   ports.Metrics
	logger    zerolog.Logger

	initMu     sync.Mutex // serializes InitializeModuleContainers
	mu         sync.RWMutex
	pending    []registration
	containers map[module.Kind]*module.Container
}

type registration struct {
	kind    module.Kind
	factory ports.ModuleContainerFactory
}

// Option configures an Application.
type Option func(*Application)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Application) { a.logger = logger }
}

// WithFactories sets the kind registry used by ModuleFactory. The
// application keeps its own copy.
func WithFactories(reg *registry.Registry) Option {
	return func(a *Application) { a.factories = reg.Clone() }
}

// WithCacheStore sets how module caches persist their manifests. Without it
// nothing is persisted and every load rebuilds.
func WithCacheStore(open ports.CacheStoreOpener) Option {
	return func(a *Application) { a.openStore = open }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m ports.Metrics) Option {
	return func(a *Application) { a.metrics = m }
}

// WithClock sets the clock stamped on cache manifests. Without it the
// system clock is read in UTC.
func WithClock(clk ports.Clock) Option {
	return func(a *Application) { a.clock = clk }
}

// WithIDGenerator sets the generator of cache manifest generations. Without
// it generations are random UUIDs.
func WithIDGenerator(ids ports.IDGenerator) Option {
	return func(a *Application) { a.ids = ids }
}

// New creates an application over a source root and a cache root.
// The roots never change afterwards.
func New(source, cache ports.FileSystem, opts ...Option) *Application {
	a := &Application{
		source:     source,
		cache:      cache,
		factories:  registry.New(),
		openStore:  openNopStore,
		clock:      systemClock{},
		ids:        uuidGenerator{},
		metrics:    nopMetrics{},
		logger:     zerolog.Nop(),
		containers: make(map[module.Kind]*module.Container),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With().Str("component", "application").Logger()
	return a
}

// RootDirectory returns the source root.
func (a *Application) RootDirectory() ports.FileSystem {
	return a.source
}

// CacheDirectory returns the cache root.
func (a *Application) CacheDirectory() ports.FileSystem {
	return a.cache
}

// ModuleFactory returns the factory for kind, bound to the source root.
// A kind missing from the registry is a configuration error.
func (a *Application) ModuleFactory(kind module.Kind) (ports.ModuleFactory, error) {
	ctor, ok := a.factories.Lookup(kind)
	if !ok {
		return nil, &module.UnknownKindError{Kind: kind}
	}
	return ctor(a.RootDirectory()), nil
}

// ModuleCache returns a new cache for kind, stored in the cache root
// sub-directory named after the kind. The caller owns it and must Close it.
func (a *Application) ModuleCache(kind module.Kind) (*ModuleCache, error) {
	factory, err := a.ModuleFactory(kind)
	if err != nil {
		return nil, err
	}

	scope, err := a.cache.AtSubDirectory(string(kind), true)
	if err != nil {
		return nil, fmt.Errorf("open %s cache directory: %w", kind, err)
	}

	store, err := a.openStore(scope)
	if err != nil {
		return nil, fmt.Errorf("open %s cache store: %w", kind, err)
	}

	return NewModuleCache(ModuleCacheConfig{
		Kind:    kind,
		Source:  a.source,
		Scope:   scope,
		Factory: factory,
		Store:   store,
		Clock:   a.clock,
		IDs:     a.ids,
		Metrics: a.metrics,
		Logger:  a.logger,
	}), nil
}

// AddModuleContainerFactory queues factory to build the container of kind.
// Nothing runs until InitializeModuleContainers.
func (a *Application) AddModuleContainerFactory(kind module.Kind, factory ports.ModuleContainerFactory) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.pending = append(a.pending, registration{kind: kind, factory: factory})
}

// InitializeModuleContainers runs the queued factories in registration order
// and stores each container under its kind, replacing any earlier one.
//
// It stops at the first failing factory. Containers built before the failure
// are kept; the failing registration and those after it stay queued, so a
// later call retries them.
func (a *Application) InitializeModuleContainers(ctx context.Context) error {
	a.initMu.Lock()
	defer a.initMu.Unlock()

	a.mu.RLock()
	pending := make([]registration, len(a.pending))
	copy(pending, a.pending)
	a.mu.RUnlock()

	for i, r := range pending {
		container, err := r.factory.CreateModuleContainer(ctx)
		if err != nil {
			a.metrics.ContainerInitialized(string(r.kind), 0, 0, err)
			a.dequeue(i)
			return fmt.Errorf("initialize %s container: %w", r.kind, err)
		}
		if container == nil {
			container = module.NewContainer(r.kind)
		}

		assets := countAssets(container)
		a.metrics.ContainerInitialized(string(r.kind), container.Len(), assets, nil)

		a.mu.Lock()
		a.containers[r.kind] = container
		a.mu.Unlock()

		a.logger.Info().
			Str("kind", string(r.kind)).
			Int("modules", container.Len()).
			Int("assets", assets).
			Msg("module container initialized")
	}

	a.dequeue(len(pending))
	return nil
}

// dequeue drops the first n registrations. Registrations added while the
// factories ran are behind them and survive.
func (a *Application) dequeue(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.pending = append([]registration(nil), a.pending[n:]...)
}

// ModuleContainer returns the initialized container of kind.
func (a *Application) ModuleContainer(kind module.Kind) (*module.Container, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if c, ok := a.containers[kind]; ok {
		return c, nil
	}

	pending := false
	for _, r := range a.pending {
		if r.kind == kind {
			pending = true
			break
		}
	}
	return nil, &module.ContainerNotInitializedError{Kind: kind, Pending: pending}
}

// Kinds returns the kinds with an initialized container, sorted.
func (a *Application) Kinds() []module.Kind {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return sortedKinds(a.containers)
}

// Pending returns the number of queued container factories.
func (a *Application) Pending() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.pending)
}

// Close releases every initialized container.
func (a *Application) Close() error {
	a.mu.Lock()
	containers := a.containers
	a.containers = make(map[module.Kind]*module.Container)
	a.mu.Unlock()

	var result *multierror.Error
	for _, kind := range sortedKinds(containers) {
		if err := containers[kind].Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close %s container: %w", kind, err))
		}
	}
	return result.ErrorOrNil()
}

func sortedKinds(m map[module.Kind]*module.Container) []module.Kind {
	kinds := make([]module.Kind, 0, len(m))
	for k := range m {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func countAssets(c *module.Container) int {
	n := 0
	for _, m := range c.Modules() {
		n += len(m.Assets())
	}
	return n
}

// Fallbacks used when no clock, ID generator or metrics recorder is
// supplied. Processes inject the adapters/clock and adapters/idgen
// implementations; these keep the package usable on its own since it never
// imports adapters.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

type uuidGenerator struct{}

func (uuidGenerator) New() string { return uuid.NewString() }

type nopMetrics struct{}

func (nopMetrics) CacheHit(string) {}

func (nopMetrics) CacheMiss(string, string, time.Duration) {}

func (nopMetrics) ContainerInitialized(string, int, int, error) {}
