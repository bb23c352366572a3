package environment

import (
	"sort"
	"sync"
)

// Registry maps environment names to providers. Names without a registered
// provider fall back to the registry's fallback provider, so any identifier
// can be used without a registration step.
type Registry struct {
	mu        sync.RWMutex
	builtins  []string
	providers map[string]Provider
	fallback  Provider
}

// NewRegistry creates a registry whose built-in environments and unknown
// names are served by fallback.
func NewRegistry(fallback Provider) *Registry {
	return &Registry{
		builtins:  append([]string(nil), Builtins...),
		providers: make(map[string]Provider),
		fallback:  fallback,
	}
}

// Register binds name to p, replacing any earlier binding.
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	r.providers[name] = p
	r.mu.Unlock()
}

// Lookup returns the provider for name.
func (r *Registry) Lookup(name string) Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.providers[name]; ok {
		return p
	}
	return r.fallback
}

// Builtins returns the built-in names in canonical order.
func (r *Registry) Builtins() []string {
	return append([]string(nil), r.builtins...)
}

// Registered returns the names with an explicit provider, sorted.
func (r *Registry) Registered() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}
