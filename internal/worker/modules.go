package worker

import (
	"strings"
	"sync"
)

// MockModulePrefix marks cache entries that belong to the mock layer.
// They survive a partial reset.
const MockModulePrefix = "mock:"

// ModuleCache memoizes loaded modules by id.
type ModuleCache struct {
	mu      sync.Mutex
	modules map[string]any
	keep    []string
}

// NewModuleCache creates an empty cache. Entries whose id starts with one of
// the keep prefixes are never discarded by Reset.
func NewModuleCache(keep []string) *ModuleCache {
	return &ModuleCache{
		modules: make(map[string]any),
		keep:    append([]string(nil), keep...),
	}
}

// Load returns the cached module for id.
func (c *ModuleCache) Load(id string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.modules[id]
	return m, ok
}

// Store caches module under id.
func (c *ModuleCache) Store(id string, module any) {
	c.mu.Lock()
	c.modules[id] = module
	c.mu.Unlock()
}

// GetOrLoad returns the cached module for id, evaluating load on a miss.
// A failed load is not cached.
func (c *ModuleCache) GetOrLoad(id string, load func() (any, error)) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.modules[id]; ok {
		return m, nil
	}
	m, err := load()
	if err != nil {
		return nil, err
	}
	c.modules[id] = m
	return m, nil
}

// Reset discards cached modules so later loads evaluate from source again.
// Kept prefixes always survive; mock entries survive unless full is set.
// It returns the number of discarded entries.
func (c *ModuleCache) Reset(full bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	discarded := 0
	for id := range c.modules {
		if c.kept(id) || (!full && strings.HasPrefix(id, MockModulePrefix)) {
			continue
		}
		delete(c.modules, id)
		discarded++
	}
	return discarded
}

// Len returns the number of cached modules.
func (c *ModuleCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.modules)
}

func (c *ModuleCache) kept(id string) bool {
	for _, prefix := range c.keep {
		if prefix != "" && strings.HasPrefix(id, prefix) {
			return true
		}
	}
	return false
}
