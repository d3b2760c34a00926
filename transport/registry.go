package transport

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-interactions/core"
)

type AdapterFactory func(config map[string]any) (core.TransportAdapter, error)

// Registry resolves transport adapters by kind. Registered adapters win over
// factories.
type Registry struct {
	mu        sync.RWMutex
	adapters  map[string]core.TransportAdapter
	factories map[string]AdapterFactory
}

func NewRegistry() *Registry {
	return &Registry{
		adapters:  map[string]core.TransportAdapter{},
		factories: map[string]AdapterFactory{},
	}
}

// Factory config keys understood by the default REST factory.
const (
	ConfigHTTPClient           = "http_client"
	ConfigSigner               = "signer"
	ConfigUserAgent            = "user_agent"
	ConfigMaxResponseBodyBytes = "max_response_body_bytes"
)

// NewDefaultRegistry knows REST and dry run factories. REST adapters carry
// a signer, so each Build returns a fresh one.
func NewDefaultRegistry() *Registry {
	registry := NewRegistry()
	_ = registry.RegisterFactory(KindREST, restFactory)
	_ = registry.RegisterFactory(KindDryRun, dryRunFactory)
	return registry
}

func (r *Registry) Register(adapter core.TransportAdapter) error {
	if r == nil {
		return fmt.Errorf("transport: registry is nil")
	}
	if adapter == nil {
		return fmt.Errorf("transport: adapter is nil")
	}
	kind := normalizeKind(adapter.Kind())
	if kind == "" {
		return fmt.Errorf("transport: adapter kind is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[kind]; exists {
		return fmt.Errorf("transport: adapter kind %q already registered", kind)
	}
	r.adapters[kind] = adapter
	return nil
}

func (r *Registry) RegisterFactory(kind string, factory AdapterFactory) error {
	if r == nil {
		return fmt.Errorf("transport: registry is nil")
	}
	kind = normalizeKind(kind)
	if kind == "" {
		return fmt.Errorf("transport: adapter kind is required")
	}
	if factory == nil {
		return fmt.Errorf("transport: adapter factory is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[kind]; exists {
		return fmt.Errorf("transport: adapter factory kind %q already registered", kind)
	}
	r.factories[kind] = factory
	return nil
}

func (r *Registry) Build(kind string, config map[string]any) (core.TransportAdapter, error) {
	if r == nil {
		return nil, fmt.Errorf("transport: registry is nil")
	}
	kind = normalizeKind(kind)
	if kind == "" {
		return nil, fmt.Errorf("transport: adapter kind is required")
	}

	r.mu.RLock()
	adapter, ok := r.adapters[kind]
	factory := r.factories[kind]
	r.mu.RUnlock()
	if ok {
		return adapter, nil
	}
	if factory == nil {
		return nil, fmt.Errorf("transport: adapter kind %q not registered", kind)
	}
	built, err := factory(cloneMap(config))
	if err != nil {
		return nil, err
	}
	if built == nil {
		return nil, fmt.Errorf("transport: factory for %q returned nil adapter", kind)
	}
	return built, nil
}

func (r *Registry) Get(kind string) (core.TransportAdapter, bool) {
	if r == nil {
		return nil, false
	}
	kind = normalizeKind(kind)
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[kind]
	return adapter, ok
}

// Kinds lists registered adapter and factory kinds in sorted order.
func (r *Registry) Kinds() []string {
	if r == nil {
		return []string{}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := map[string]struct{}{}
	for kind := range r.adapters {
		seen[kind] = struct{}{}
	}
	for kind := range r.factories {
		seen[kind] = struct{}{}
	}
	kinds := make([]string, 0, len(seen))
	for kind := range seen {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

func normalizeKind(kind string) string {
	return strings.TrimSpace(strings.ToLower(kind))
}

func restFactory(config map[string]any) (core.TransportAdapter, error) {
	var client HTTPDoer
	if raw, ok := config[ConfigHTTPClient]; ok && raw != nil {
		doer, ok := raw.(HTTPDoer)
		if !ok {
			return nil, fmt.Errorf("transport: %s must implement HTTPDoer, got %T", ConfigHTTPClient, raw)
		}
		client = doer
	}
	adapter := NewRESTAdapter(client)
	if raw, ok := config[ConfigSigner]; ok && raw != nil {
		signer, ok := raw.(core.Signer)
		if !ok {
			return nil, fmt.Errorf("transport: %s must implement core.Signer, got %T", ConfigSigner, raw)
		}
		adapter.Signer = signer
	}
	if userAgent, ok := config[ConfigUserAgent].(string); ok {
		adapter.UserAgent = strings.TrimSpace(userAgent)
	}
	if limit, ok := config[ConfigMaxResponseBodyBytes].(int64); ok && limit > 0 {
		adapter.MaxResponseBodyBytes = limit
	}
	return adapter, nil
}

func dryRunFactory(config map[string]any) (core.TransportAdapter, error) {
	adapter := NewDryRunAdapter()
	if status, ok := config["status"].(int); ok && status > 0 {
		adapter.Status = status
	}
	if body, ok := config["body"].(string); ok {
		adapter.Body = []byte(body)
	}
	return adapter, nil
}

func cloneMap(input map[string]any) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}
	output := make(map[string]any, len(input))
	for key, value := range input {
		output[key] = value
	}
	return output
}
