package extractor

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds extraction strategies indexed by spec name.
type Registry struct {
	strategies map[string]Strategy
	mu         sync.RWMutex
}

// NewRegistry creates an empty strategy registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
	}
}

// Register adds a strategy for the given spec name.
// Panics if the spec is already registered.
func (r *Registry) Register(spec string, s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.strategies[spec]; exists {
		panic(fmt.Sprintf("extractor strategy already registered: %s", spec))
	}
	r.strategies[spec] = s
}

// Resolve returns the strategy for the given spec name, failing closed on
// unknown names.
func (r *Registry) Resolve(spec string) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.strategies[spec]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSpec, spec)
	}
	return s, nil
}

// List returns all registered spec names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]string, 0, len(r.strategies))
	for spec := range r.strategies {
		specs = append(specs, spec)
	}
	sort.Strings(specs)
	return specs
}

// --- Default Global Registry ---

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the global strategy registry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register adds a strategy to the default registry.
func Register(spec string, s Strategy) {
	defaultRegistry.Register(spec, s)
}

// Resolve resolves a spec name against the default registry.
func Resolve(spec string) (Strategy, error) {
	return defaultRegistry.Resolve(spec)
}
