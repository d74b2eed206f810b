package llm

import (
	"fmt"
	"sort"
	"sync"
)

// ProviderFactory builds a provider from the process environment.
type ProviderFactory func() (Provider, error)

var (
	registryMu sync.RWMutex
	providers  = make(map[string]ProviderFactory)
)

// RegisterProvider makes a provider available under name. Provider packages
// call it from init, so importing the package is enough to enable it.
func RegisterProvider(name string, factory ProviderFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	providers[name] = factory
}

// Providers lists the registered provider names in sorted order.
func Providers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewProvider builds the provider registered under name.
func NewProvider(name string) (Provider, error) {
	registryMu.RLock()
	factory, exists := providers[name]
	registryMu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("unsupported provider %q (registered: %v)", name, Providers())
	}
	return factory()
}
