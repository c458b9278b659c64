// Package factory provides a typed factory and registry used to construct
// pluggable components by name.
package factory

import (
	"fmt"
	"sort"
	"sync"

	"alarm-relay/internal/common/errors"
)

// Creator builds a T from its dependencies C
type Creator[C any, T any] func(C) (T, error)

// Factory is a named Creator
type Factory[C any, T any] struct {
	name    string
	creator Creator[C, T]
}

// NewFactory names creator
func NewFactory[C any, T any](name string, creator Creator[C, T]) *Factory[C, T] {
	return &Factory[C, T]{name: name, creator: creator}
}

// Create runs the creator. A nil creator is reported rather than called.
func (f *Factory[C, T]) Create(deps C) (T, error) {
	if f.creator == nil {
		var zero T
		return zero, errors.InternalError(fmt.Sprintf("factory %s has no creator", f.name), nil)
	}
	return f.creator(deps)
}

// GetType returns the name the factory registers under
func (f *Factory[C, T]) GetType() string {
	return f.name
}

// Registry maps names to factories. It is safe for concurrent use.
type Registry[C any, T any] struct {
	mu        sync.RWMutex
	factories map[string]*Factory[C, T]
}

// NewRegistry creates an empty registry
func NewRegistry[C any, T any]() *Registry[C, T] {
	return &Registry[C, T]{factories: make(map[string]*Factory[C, T])}
}

// Register adds f; a second factory with the same name is an error
func (r *Registry[C, T]) Register(f *Factory[C, T]) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[f.name]; exists {
		return errors.InternalError(fmt.Sprintf("factory for type %s already registered", f.name), nil)
	}
	r.factories[f.name] = f
	return nil
}

// Create builds an instance with the factory registered under name
func (r *Registry[C, T]) Create(name string, deps C) (T, error) {
	r.mu.RLock()
	f, exists := r.factories[name]
	r.mu.RUnlock()

	if !exists {
		var zero T
		return zero, errors.InternalError(fmt.Sprintf("no factory registered for type %s", name), nil)
	}
	return f.Create(deps)
}

// IsRegistered reports whether name has a factory
func (r *Registry[C, T]) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.factories[name]
	return exists
}

// GetTypes returns the registered names, sorted
func (r *Registry[C, T]) GetTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
