package courier

import (
	"slices"
	"strings"
	"sync"
)

// Registry maps carrier names to workflow factories.
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a carrier. Registering a name again replaces its factory.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Factory returns the workflow factory of a carrier.
func (r *Registry) Factory(name string) (Factory, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if ok {
		return f, nil
	}
	return nil, NewConfigurationError("carrier %q is not registered (available: %s)", name, strings.Join(r.Names(), ", "))
}

// Open starts a fresh workflow with the named carrier.
func (r *Registry) Open(name string) (Courier, error) {
	f, err := r.Factory(name)
	if err != nil {
		return nil, err
	}
	return f(), nil
}

// Names returns the registered carrier names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
