package worker

import (
	"sort"
	"sync"
)

// MockRegistry stores substitute implementations keyed by module id.
// It is safe for concurrent use.
type MockRegistry struct {
	mu    sync.RWMutex
	mocks map[string]any
}

// NewMockRegistry creates an empty registry.
func NewMockRegistry() *MockRegistry {
	return &MockRegistry{mocks: make(map[string]any)}
}

// Register swaps impl in for id, replacing any earlier mock.
func (r *MockRegistry) Register(id string, impl any) {
	r.mu.Lock()
	r.mocks[id] = impl
	r.mu.Unlock()
}

// Lookup returns the mock registered for id.
func (r *MockRegistry) Lookup(id string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	impl, ok := r.mocks[id]
	return impl, ok
}

// Clear forgets every registered mock.
func (r *MockRegistry) Clear() {
	r.mu.Lock()
	clear(r.mocks)
	r.mu.Unlock()
}

// Len returns the number of registered mocks.
func (r *MockRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.mocks)
}

// keys returns the registered ids in sorted order.
func (r *MockRegistry) keys() []string {
	r.mu.RLock()
	keys := make([]string, 0, len(r.mocks))
	for id := range r.mocks {
		keys = append(keys, id)
	}
	r.mu.RUnlock()
	sort.Strings(keys)
	return keys
}
