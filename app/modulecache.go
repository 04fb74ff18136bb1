package app

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"github.com/artpar/cassette/domain/cache"
	"github.com/artpar/cassette/domain/module"
	"github.com/artpar/cassette/ports"
	"github.com/rs/zerolog"
)

// ModuleCacheConfig contains the collaborators of a ModuleCache.
type ModuleCacheConfig struct {
	Kind    module.Kind
	Source  ports.FileSystem
	Scope   ports.FileSystem // cache directory of the kind
	Factory ports.ModuleFactory
	Store   ports.CacheStore
	Clock   ports.Clock
	IDs     ports.IDGenerator
	Metrics ports.Metrics
	Logger  zerolog.Logger
}

// ModuleCache persists the result of a module factory scan and serves it
// back while the source tree is unchanged.
type ModuleCache struct {
	kind    module.Kind
	source  ports.FileSystem
	scope   ports.FileSystem
	factory ports.ModuleFactory
	store   ports.CacheStore
	clock   ports.Clock
	ids     ports.IDGenerator
	metrics ports.Metrics
	logger  zerolog.Logger
}

// NewModuleCache creates a module cache.
func NewModuleCache(cfg ModuleCacheConfig) *ModuleCache {
	if cfg.Clock == nil {
		cfg.Clock = systemClock{}
	}
	if cfg.IDs == nil {
		cfg.IDs = uuidGenerator{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = nopMetrics{}
	}
	return &ModuleCache{
		kind:    cfg.Kind,
		source:  cfg.Source,
		scope:   cfg.Scope,
		factory: cfg.Factory,
		store:   cfg.Store,
		clock:   cfg.Clock,
		ids:     cfg.IDs,
		metrics: cfg.Metrics,
		logger:  cfg.Logger.With().Str("kind", string(cfg.Kind)).Logger(),
	}
}

// Kind returns the cached module kind.
func (c *ModuleCache) Kind() module.Kind {
	return c.kind
}

// Scope returns the cache directory of the kind.
func (c *ModuleCache) Scope() ports.FileSystem {
	return c.scope
}

// LoadContainer returns the container of the kind. A stored manifest that
// still matches the source tree is restored without running the factory;
// otherwise the factory scans the tree and the result is stored.
func (c *ModuleCache) LoadContainer(ctx context.Context) (*module.Container, error) {
	stat := StatFS(c.source)

	reason := "empty"
	manifest, ok, err := c.store.Load(ctx)
	switch {
	case err != nil:
		reason = "load_error"
		c.logger.Warn().Err(err).Msg("cache manifest unreadable, rebuilding")
	case ok:
		fresh := cache.Check(manifest, c.kind, stat)
		if fresh.Fresh {
			c.metrics.CacheHit(string(c.kind))
			c.logger.Debug().
				Str("generation", manifest.Generation).
				Int("modules", len(manifest.Modules)).
				Msg("module cache hit")
			return module.NewContainer(c.kind, cache.Restore(manifest, c.source)...), nil
		}
		reason = fresh.Reason
		c.logger.Debug().
			Str("reason", fresh.Reason).
			Str("path", fresh.Path).
			Msg("module cache stale")
	}

	start := time.Now()
	modules, err := c.factory.CreateModules(ctx)
	if err != nil {
		return nil, fmt.Errorf("create %s modules: %w", c.kind, err)
	}
	c.metrics.CacheMiss(string(c.kind), reason, time.Since(start))

	dirs, err := ListDirectories(c.source)
	if err != nil {
		// Without the directory list a stored manifest could miss new
		// modules; keep the scan result and store nothing.
		c.logger.Warn().Err(err).Msg("failed to list source directories")
		return module.NewContainer(c.kind, modules...), nil
	}

	manifest = cache.Build(cache.BuildParams{
		Kind:           c.kind,
		Generation:     c.ids.New(),
		CreatedAt:      c.clock.Now(),
		Stat:           stat,
		Directories:    dirs,
		DefinitionFile: module.DefinitionFileName,
		Modules:        modules,
	})
	if err := c.store.Save(ctx, manifest); err != nil {
		// The scan result is still good; the next load scans again.
		c.logger.Warn().Err(err).Msg("failed to save cache manifest")
	}

	c.logger.Debug().
		Str("reason", reason).
		Str("generation", manifest.Generation).
		Int("modules", len(modules)).
		Msg("module cache rebuilt")

	return module.NewContainer(c.kind, modules...), nil
}

// Invalidate drops the stored manifest so the next load rebuilds.
func (c *ModuleCache) Invalidate(ctx context.Context) error {
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear %s cache: %w", c.kind, err)
	}
	return nil
}

// Close releases the cache store.
func (c *ModuleCache) Close() error {
	return c.store.Close()
}

// StatFS observes paths of fsys for manifest freshness checks.
func StatFS(fsys fs.FS) cache.StatFunc {
	return func(p string) cache.FileState {
		info, err := fs.Stat(fsys, p)
		if err != nil {
			return cache.FileState{}
		}
		return cache.FileState{
			Exists:  true,
			Size:    info.Size(),
			ModTime: info.ModTime(),
			IsDir:   info.IsDir(),
		}
	}
}

// ListDirectories returns every directory below the root of fsys, sorted and
// slash-separated. Hidden directories and their contents are skipped.
func ListDirectories(fsys fs.FS) ([]string, error) {
	var dirs []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() || p == "." {
			return nil
		}
		if module.IsHidden(p) {
			return fs.SkipDir
		}
		dirs = append(dirs, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk source directories: %w", err)
	}
	return dirs, nil
}

// nopStore stores nothing; every load is a miss.
type nopStore struct{}

func openNopStore(ports.FileSystem) (ports.CacheStore, error) {
	return nopStore{}, nil
}

func (nopStore) Load(context.Context) (cache.Manifest, bool, error) {
	return cache.Manifest{}, false, nil
}

func (nopStore) Save(context.Context, cache.Manifest) error { return nil }

func (nopStore) Clear(context.Context) error { return nil }

func (nopStore) Close() error { return nil }

// NopCacheStore is a ports.CacheStoreOpener that persists nothing.
var NopCacheStore ports.CacheStoreOpener = openNopStore
