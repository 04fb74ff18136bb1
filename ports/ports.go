// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"io/fs"
	"time"

	"github.com/artpar/cassette/domain/cache"
	"github.com/artpar/cassette/domain/module"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// Metrics records composition events. Implementations must accept being
// called from several goroutines.
type Metrics interface {
	CacheHit(kind string)
	CacheMiss(kind, reason string, took time.Duration)
	ContainerInitialized(kind string, modules, assets int, err error)
}

// -----------------------------------------------------------------------------
// File System Ports
// -----------------------------------------------------------------------------

// FileSystem is a path-scoped view of a directory tree. Names passed to its
// methods are slash-separated and relative to the scope, as in io/fs.
type FileSystem interface {
	fs.FS

	// Path returns where the scope is located (an OS path for disk-backed
	// implementations).
	Path() string

	// AtSubDirectory derives the scope of a sub-directory. When create is
	// true the directory is created if missing; otherwise a missing directory
	// is an error.
	AtSubDirectory(name string, create bool) (FileSystem, error)

	// ReadFile reads the named file.
	ReadFile(name string) ([]byte, error)

	// Stat describes the named file.
	Stat(name string) (fs.FileInfo, error)

	// WriteFile replaces the named file's content, creating parents.
	WriteFile(name string, data []byte) error

	// Remove deletes the named file. Removing a missing file is not an error.
	Remove(name string) error
}

// -----------------------------------------------------------------------------
// Module Ports
// -----------------------------------------------------------------------------

// ModuleFactory produces the modules of one kind from a source root.
type ModuleFactory interface {
	// Kind returns the kind of module produced.
	Kind() module.Kind

	// CreateModules scans the source root.
	CreateModules(ctx context.Context) ([]*module.Module, error)
}

// ModuleFactoryConstructor builds a module factory against a source root.
type ModuleFactoryConstructor func(root FileSystem) ModuleFactory

// ModuleContainerFactory builds the container of one kind.
type ModuleContainerFactory interface {
	CreateModuleContainer(ctx context.Context) (*module.Container, error)
}

// ModuleContainerFactoryFunc adapts a function to ModuleContainerFactory.
type ModuleContainerFactoryFunc func(ctx context.Context) (*module.Container, error)

// CreateModuleContainer calls f.
func (f ModuleContainerFactoryFunc) CreateModuleContainer(ctx context.Context) (*module.Container, error) {
	return f(ctx)
}

// -----------------------------------------------------------------------------
// Cache Ports
// -----------------------------------------------------------------------------

// CacheStore persists the manifest of one module kind inside its cache scope.
type CacheStore interface {
	// Load returns the stored manifest. ok is false when nothing is stored.
	Load(ctx context.Context) (m cache.Manifest, ok bool, err error)

	// Save replaces the stored manifest.
	Save(ctx context.Context, m cache.Manifest) error

	// Clear removes the stored manifest.
	Clear(ctx context.Context) error

	// Close releases the store.
	Close() error
}

// CacheStoreOpener opens a cache store inside a cache scope.
type CacheStoreOpener func(scope FileSystem) (CacheStore, error)
