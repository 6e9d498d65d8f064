package adapters

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jhnmartin/hey-sub000/internal/payment/domain"
)

// Registry holds one ready adapter per configured provider.
type Registry struct {
	adapters map[string]domain.PaymentAdapter
}

// NewRegistry builds an adapter for every factory that has a config entry.
// Factories without config are skipped so an unconfigured provider is
// reported as not found rather than failing startup.
func NewRegistry(configs map[string]map[string]any, factories ...domain.AdapterFactory) (*Registry, error) {
	registry := &Registry{adapters: map[string]domain.PaymentAdapter{}}
	for _, factory := range factories {
		if factory == nil {
			continue
		}
		provider := normalize(factory.Provider())
		cfg, ok := configs[provider]
		if provider == "" || !ok {
			continue
		}
		adapter, err := factory.NewAdapter(domain.AdapterConfig{Provider: provider, Config: cfg})
		if err != nil {
			return nil, fmt.Errorf("payment adapter %s: %w", provider, err)
		}
		registry.adapters[provider] = adapter
	}
	return registry, nil
}

func (r *Registry) Adapter(provider string) (domain.PaymentAdapter, error) {
	if r == nil {
		return nil, domain.ErrProviderNotFound
	}
	adapter, ok := r.adapters[normalize(provider)]
	if !ok {
		return nil, domain.ErrProviderNotFound
	}
	return adapter, nil
}

func (r *Registry) Providers() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.adapters))
	for provider := range r.adapters {
		out = append(out, provider)
	}
	sort.Strings(out)
	return out
}

func normalize(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}
