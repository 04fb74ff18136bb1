// Package registry maps module kinds to the constructors of their module
// factories. It is the dispatch table behind Application.ModuleFactory:
// deployments extend or replace the supported kind set by registering
// constructors here, without touching the application.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/artpar/cassette/domain/module"
	"github.com/artpar/cassette/ports"
)

// Registry manages kind to factory-constructor bindings.
type Registry struct {
	mu           sync.RWMutex
	constructors map[module.Kind]ports.ModuleFactoryConstructor
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		constructors: make(map[module.Kind]ports.ModuleFactoryConstructor),
	}
}

// Register binds a kind. Binding a kind twice is an error; use Replace to
// override a binding on purpose.
func (r *Registry) Register(kind module.Kind, ctor ports.ModuleFactoryConstructor) error {
	if kind == "" {
		return fmt.Errorf("register: empty module kind")
	}
	if ctor == nil {
		return fmt.Errorf("register %s: nil constructor", kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.constructors[kind]; exists {
		return &DuplicateKindError{Kind: kind}
	}
	r.constructors[kind] = ctor
	return nil
}

// Replace binds a kind, overriding any existing binding.
func (r *Registry) Replace(kind module.Kind, ctor ports.ModuleFactoryConstructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[kind] = ctor
}

// Lookup returns the constructor bound to kind.
func (r *Registry) Lookup(kind module.Kind) (ports.ModuleFactoryConstructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ctor, ok := r.constructors[kind]
	return ctor, ok
}

// Kinds returns the registered kinds, sorted.
func (r *Registry) Kinds() []module.Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]module.Kind, 0, len(r.constructors))
	for k := range r.constructors {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Clone returns an independent copy, so a deployment can start from the
// defaults and adjust them.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c := New()
	for k, v := range r.constructors {
		c.constructors[k] = v
	}
	return c
}

// DuplicateKindError is returned when a kind is registered twice.
type DuplicateKindError struct {
	Kind module.Kind
}

// Error returns the error message.
func (e *DuplicateKindError) Error() string {
	return fmt.Sprintf("module kind %q already registered", e.Kind)
}
