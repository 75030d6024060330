package rails

import (
	"fmt"
	"strings"
)

// Registry maintains the rail adapters keyed by uppercased country code. It
// is built once at process start and read-only afterwards; adapters hold
// provider clients but no per-request state, so one instance per country is
// shared by every concurrent saga.
type Registry struct {
	adapters map[string]Adapter
	bridge   BridgeAdapter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter under every country it serves.
func (r *Registry) Register(a Adapter) error {
	for _, cc := range a.Countries() {
		key := strings.ToUpper(cc)
		if existing, exists := r.adapters[key]; exists {
			return fmt.Errorf("country %s already registered to adapter %s", key, existing.Name())
		}
		r.adapters[key] = a
	}
	return nil
}

// RegisterBridge sets the stablecoin bridge adapter.
func (r *Registry) RegisterBridge(b BridgeAdapter) error {
	if r.bridge != nil {
		return fmt.Errorf("bridge adapter %s already registered", r.bridge.Name())
	}
	r.bridge = b
	return nil
}

// AdapterFor resolves the adapter for a country code. Unsupported countries
// fail explicitly; there is no default adapter.
func (r *Registry) AdapterFor(countryCode string) (Adapter, error) {
	a, ok := r.adapters[strings.ToUpper(strings.TrimSpace(countryCode))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCountry, countryCode)
	}
	return a, nil
}

// AdapterNamed resolves an adapter by its Name. Used by reconciliation,
// which only knows the provider recorded on a step, not the corridor.
func (r *Registry) AdapterNamed(name string) (Adapter, error) {
	seen := make(map[string]bool)
	for _, a := range r.adapters {
		if seen[a.Name()] {
			continue
		}
		seen[a.Name()] = true
		if a.Name() == name {
			return a, nil
		}
	}
	return nil, fmt.Errorf("no adapter named %q", name)
}

// Bridge returns the registered stablecoin bridge adapter.
func (r *Registry) Bridge() (BridgeAdapter, error) {
	if r.bridge == nil {
		return nil, fmt.Errorf("no bridge adapter registered")
	}
	return r.bridge, nil
}

// Countries lists all registered country codes.
func (r *Registry) Countries() []string {
	out := make([]string, 0, len(r.adapters))
	for cc := range r.adapters {
		out = append(out, cc)
	}
	return out
}
