package source

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IshaanNene/harvestgoat/internal/config"
	"github.com/IshaanNene/harvestgoat/internal/fetcher"
	"github.com/IshaanNene/harvestgoat/internal/types"
)

// Registry holds the configured adapters in registration order.
type Registry struct {
	adapters map[string]Adapter
	order    []string
	logger   *slog.Logger
	mu       sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
		logger:   logger.With("component", "source_registry"),
	}
}

// Register adds an adapter. Names must be unique.
func (r *Registry) Register(a Adapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := a.Name()
	if _, exists := r.adapters[name]; exists {
		return fmt.Errorf("source %q already registered", name)
	}
	r.adapters[name] = a
	r.order = append(r.order, name)

	d := a.Descriptor()
	r.logger.Debug("source registered", "name", name, "kind", d.Kind, "url", d.URL)
	return nil
}

// Get returns an adapter by name.
func (r *Registry) Get(name string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[name]
	return a, ok
}

// All returns every adapter in registration order.
func (r *Registry) All() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Adapter, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.adapters[name])
	}
	return out
}

// Select returns the named adapters in the given order. With no names it
// returns every enabled adapter in registration order.
func (r *Registry) Select(names []string) ([]Adapter, error) {
	if len(names) == 0 {
		var out []Adapter
		for _, a := range r.All() {
			if !a.Descriptor().Disabled {
				out = append(out, a)
			}
		}
		return out, nil
	}

	out := make([]Adapter, 0, len(names))
	for _, name := range names {
		a, ok := r.Get(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", types.ErrUnknownSource, name)
		}
		out = append(out, a)
	}
	return out, nil
}

// Count returns the number of registered adapters.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.adapters)
}

// Load builds a registry from the built-in descriptors and the optional
// catalog file named in cfg. Catalog entries replace built-ins of the same
// name and are otherwise appended.
func Load(cfg *config.Config, f fetcher.Fetcher, logger *slog.Logger) (*Registry, error) {
	loc, err := cfg.Harvest.Location()
	if err != nil {
		return nil, err
	}

	descs := Builtin(loc)
	if cfg.Harvest.SourcesFile != "" {
		cat, err := config.LoadCatalog(cfg.Harvest.SourcesFile)
		if err != nil {
			return nil, err
		}
		descs, err = merge(descs, cat.Sources, loc)
		if err != nil {
			return nil, err
		}
	}

	reg := NewRegistry(logger)
	for _, d := range descs {
		a, err := New(d, f, logger)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(a); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func merge(descs []*Descriptor, specs []config.SourceSpec, loc *time.Location) ([]*Descriptor, error) {
	index := make(map[string]int, len(descs))
	for i, d := range descs {
		index[d.Name] = i
	}
	for _, spec := range specs {
		d, err := FromSpec(spec, loc)
		if err != nil {
			return nil, err
		}
		if i, ok := index[d.Name]; ok {
			descs[i] = d
			continue
		}
		index[d.Name] = len(descs)
		descs = append(descs, d)
	}
	return descs, nil
}
