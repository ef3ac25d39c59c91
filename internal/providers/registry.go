package providers

import (
	"fmt"
	"sync"

	"github.com/sawpanic/tokensleuth/internal/domain"
)

// Registry holds the registered adapters and resolves the ordered provider
// list for a data kind. Priority order is configuration, not code: adding a
// provider is a config change plus an adapter implementation.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	priority map[domain.DataKind][]string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
		priority: make(map[domain.DataKind][]string),
	}
}

// Register adds an adapter under its ID
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.ID()] = a
}

// SetPriority installs the ordered provider list for a data kind
func (r *Registry) SetPriority(kind domain.DataKind, ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.priority[kind] = append([]string(nil), ids...)
}

// Get returns the adapter registered under id
func (r *Registry) Get(id string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[id]
	return a, ok
}

// Ranked returns the adapters for a data kind in priority order, filtered to
// those that support the chain
func (r *Registry) Ranked(chain domain.Chain, kind domain.DataKind) []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Adapter
	for _, id := range r.priority[kind] {
		a, ok := r.adapters[id]
		if !ok {
			continue
		}
		if a.Supports(chain, kind) {
			out = append(out, a)
		}
	}
	return out
}

// Validate checks that every configured priority entry names a registered
// adapter
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for kind, ids := range r.priority {
		for _, id := range ids {
			if _, ok := r.adapters[id]; !ok {
				return fmt.Errorf("data kind %s: unknown provider %q", kind, id)
			}
		}
	}
	return nil
}
