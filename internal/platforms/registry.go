package platforms

import "sort"

// Registry resolves provider identifiers to their Adapter implementation
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry creates a registry over the given adapters
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Provider()] = a
	}
	return r
}

// Get returns the adapter for a provider, or an unknown-provider error
func (r *Registry) Get(provider string) (Adapter, error) {
	adapter, ok := r.adapters[provider]
	if !ok {
		return nil, NewUnknownProvider(provider)
	}
	return adapter, nil
}

// Providers returns the registered provider identifiers, sorted
func (r *Registry) Providers() []string {
	providers := make([]string, 0, len(r.adapters))
	for provider := range r.adapters {
		providers = append(providers, provider)
	}
	sort.Strings(providers)
	return providers
}
