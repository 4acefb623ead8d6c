package collector

import (
	"sort"
	"sync"
)

// Registry holds market collectors by name.
type Registry struct {
	mu         sync.RWMutex
	collectors map[string]MarketCollector
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		collectors: make(map[string]MarketCollector),
	}
}

// Register adds c, replacing any collector with the same name.
func (r *Registry) Register(c MarketCollector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collectors[c.Name()] = c
}

// Get retrieves a collector by name.
func (r *Registry) Get(name string) (MarketCollector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.collectors[name]
	return c, ok
}

// Names lists registered collectors in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.collectors))
	for n := range r.collectors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
