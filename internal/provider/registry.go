package provider

import (
	"fmt"
	"sort"
	"strings"
)

// Registry is a finite, case-insensitive map from platform name to Provider,
// built once at startup.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry indexes providers by lowercased name. Duplicate or empty names
// are construction errors.
func NewRegistry(providers ...Provider) (*Registry, error) {
	m := make(map[string]Provider, len(providers))
	for _, p := range providers {
		name := strings.ToLower(strings.TrimSpace(p.Name()))
		if name == "" {
			return nil, fmt.Errorf("provider with empty name")
		}
		if _, ok := m[name]; ok {
			return nil, fmt.Errorf("duplicate provider registration for %q", name)
		}
		m[name] = p
	}
	return &Registry{providers: m}, nil
}

// Lookup resolves a platform name. Unknown or empty platforms report false;
// the dispatcher treats that as a PlatformNotSupported terminal failure.
func (r *Registry) Lookup(platform string) (Provider, bool) {
	p, ok := r.providers[strings.ToLower(strings.TrimSpace(platform))]
	return p, ok
}

// Platforms lists the registered platform names in stable order.
func (r *Registry) Platforms() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
