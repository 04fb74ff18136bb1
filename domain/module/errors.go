package module

import (
	"errors"
	"fmt"
)

// Configuration errors. They indicate a deployment or programming mistake and
// are never retried.
var (
	ErrUnknownKind             = errors.New("unknown module kind")
	ErrContainerNotInitialized = errors.New("module container not initialized")
)

// UnknownKindError is returned when a factory or cache is requested for a kind
// nobody registered.
type UnknownKindError struct {
	Kind Kind
}

// Error returns the error message.
func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("cannot find the factory for %s", e.Kind)
}

// Unwrap returns ErrUnknownKind.
func (e *UnknownKindError) Unwrap() error {
	return ErrUnknownKind
}

// ContainerNotInitializedError is returned when a container is requested for a
// kind that was never registered, or was registered but not yet initialized.
type ContainerNotInitializedError struct {
	Kind    Kind
	Pending bool // registered, waiting for InitializeModuleContainers
}

// Error returns the error message.
func (e *ContainerNotInitializedError) Error() string {
	if e.Pending {
		return fmt.Sprintf("module container for %s is registered but InitializeModuleContainers has not run", e.Kind)
	}
	return fmt.Sprintf("no module container factory registered for %s", e.Kind)
}

// Unwrap returns ErrContainerNotInitialized.
func (e *ContainerNotInitializedError) Unwrap() error {
	return ErrContainerNotInitialized
}
