package engine

import (
	"fmt"
	"sort"
	"sync"

	"github.com/yangguo/epub2audio/pkg/types"
)

// Registry manages engine instances
type Registry struct {
	engines map[string]Engine
	mu      sync.RWMutex
}

// NewRegistry creates a new engine registry
func NewRegistry() *Registry {
	return &Registry{
		engines: make(map[string]Engine),
	}
}

// Register adds an engine to the registry
func (r *Registry) Register(e Engine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := e.Name()
	if _, exists := r.engines[name]; exists {
		return fmt.Errorf("engine already registered: %s", name)
	}

	r.engines[name] = e
	return nil
}

// Get retrieves an engine by name
func (r *Registry) Get(name string) (Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.engines[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEngine, name)
	}

	return e, nil
}

// List returns all registered engine names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes all registered engines
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, e := range r.engines {
		if err := e.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close engine %s: %w", name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing engines: %v", errs)
	}
	return nil
}

// BuildRegistry creates engine instances from configuration
func BuildRegistry(cfg types.EngineConfig) (*Registry, error) {
	r := NewRegistry()

	gtts, err := NewGTTSEngine(cfg.GTTS)
	if err != nil {
		return nil, fmt.Errorf("failed to create gtts engine: %w", err)
	}
	if err := r.Register(gtts); err != nil {
		return nil, err
	}

	if err := r.Register(NewEdgeEngine(cfg.Edge)); err != nil {
		return nil, err
	}

	return r, nil
}
