package inverter

import (
	"fmt"
	"sort"
	"strings"
)

// Registry holds the known inverter models by name. It is built once at
// startup and read-only afterwards.
type Registry struct {
	models map[string]*Model
}

// NewRegistry validates and registers models.
//
// Returns:
//   - *Registry: Registry containing every model
//   - error: If a model is invalid or two models share a name
func NewRegistry(models ...*Model) (*Registry, error) {
	r := &Registry{models: make(map[string]*Model, len(models))}
	for _, m := range models {
		if m == nil {
			continue
		}
		if err := m.Validate(); err != nil {
			return nil, err
		}
		key := strings.ToLower(m.Name)
		if _, exists := r.models[key]; exists {
			return nil, fmt.Errorf("%w: model %q registered twice", ErrInvalidModel, m.Name)
		}
		r.models[key] = m
	}
	return r, nil
}

// DefaultRegistry registers the built-in models plus extra (typically from
// LoadDefinitions), applying opts to all of them.
func DefaultRegistry(opts Options, extra ...*Model) (*Registry, error) {
	models := append([]*Model{X3(opts)}, extra...)
	if opts.StatusSensor {
		for i, m := range models {
			if m != nil {
				models[i] = withStatusSensor(m)
			}
		}
	}
	return NewRegistry(models...)
}

// Lookup returns the model registered under name (case-insensitive).
func (r *Registry) Lookup(name string) (*Model, error) {
	m, ok := r.models[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownModel, name, strings.Join(r.Names(), ", "))
	}
	return m, nil
}

// Names returns the registered model names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
