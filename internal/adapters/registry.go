package adapters

import (
	"alarm-relay/internal/common/factory"
)

// Factory builds one kind of adapter from its dependencies
type Factory = *factory.Factory[Dependencies, Adapter]

// NewFactory names creator
func NewFactory(name string, creator func(Dependencies) (Adapter, error)) Factory {
	return factory.NewFactory[Dependencies, Adapter](name, creator)
}

// Registry holds the adapter factories known to the process
type Registry struct {
	inner *factory.Registry[Dependencies, Adapter]
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{inner: factory.NewRegistry[Dependencies, Adapter]()}
}

// Register adds f; a duplicate name is an error
func (r *Registry) Register(f Factory) error {
	return r.inner.Register(f)
}

// Create builds the adapter registered under name
func (r *Registry) Create(name string, deps Dependencies) (Adapter, error) {
	return r.inner.Create(name, deps)
}

// Types returns the registered adapter names, sorted
func (r *Registry) Types() []string {
	return r.inner.GetTypes()
}

// IsRegistered reports whether name has a factory
func (r *Registry) IsRegistered(name string) bool {
	return r.inner.IsRegistered(name)
}
