package app

import (
	"context"
	"fmt"

	"github.com/artpar/cassette/domain/module"
	"github.com/artpar/cassette/ports"
	"github.com/hashicorp/go-multierror"
)

// CachedContainerFactory builds the container of a kind through the kind's
// module cache. The cache is opened for the build and closed after it.
type CachedContainerFactory struct {
	App  *Application
	Kind module.Kind
}

// CreateModuleContainer implements ports.ModuleContainerFactory.
func (f CachedContainerFactory) CreateModuleContainer(ctx context.Context) (*module.Container, error) {
	mc, err := f.App.ModuleCache(f.Kind)
	if err != nil {
		return nil, err
	}

	container, err := mc.LoadContainer(ctx)
	if closeErr := mc.Close(); closeErr != nil {
		if err == nil {
			// The container is not handed out; release what it holds.
			err = multierror.Append(fmt.Errorf("close %s cache: %w", f.Kind, closeErr), container.Close())
		} else {
			err = multierror.Append(err, closeErr)
		}
	}
	if err != nil {
		return nil, err
	}
	return container, nil
}

// DirectContainerFactory builds the container of a kind by running its
// module factory, bypassing any cache.
type DirectContainerFactory struct {
	App  *Application
	Kind module.Kind
}

// CreateModuleContainer implements ports.ModuleContainerFactory.
func (f DirectContainerFactory) CreateModuleContainer(ctx context.Context) (*module.Container, error) {
	factory, err := f.App.ModuleFactory(f.Kind)
	if err != nil {
		return nil, err
	}
	modules, err := factory.CreateModules(ctx)
	if err != nil {
		return nil, fmt.Errorf("create %s modules: %w", f.Kind, err)
	}
	return module.NewContainer(f.Kind, modules...), nil
}

var (
	_ ports.ModuleContainerFactory = CachedContainerFactory{}
	_ ports.ModuleContainerFactory = DirectContainerFactory{}
)
