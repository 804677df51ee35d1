package dictionary

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/trialdata/conformance/engine/data"
)

// Dictionary type names the built-in factories are registered under.
const (
	TypeMedDRA  = "meddra"
	TypeWhoDrug = "whodrug"
)

// TermsFactory produces a parsed term tree from a dictionary directory.
// Implementations belong to the dictionary-parsing layer; this core only
// consumes the resulting collections.
type TermsFactory interface {
	InstallTerms(ctx context.Context, directoryPath string) (*TermCollection, error)
}

// FactoryConstructor builds a TermsFactory bound to a data service.
type FactoryConstructor func(dataService data.DataService) TermsFactory

// FactoryRegistry is a pluggable registry of terms factories keyed by
// dictionary-type name. New types may be registered at runtime.
type FactoryRegistry struct {
	mu          sync.RWMutex
	registered  map[string]FactoryConstructor
	dataService data.DataService
}

// NewFactoryRegistry creates a registry bound to the given data service.
func NewFactoryRegistry(dataService data.DataService) *FactoryRegistry {
	return &FactoryRegistry{
		registered:  make(map[string]FactoryConstructor),
		dataService: dataService,
	}
}

// Register adds a factory under the given dictionary-type name, replacing
// any existing registration.
func (r *FactoryRegistry) Register(name string, constructor FactoryConstructor) error {
	if name == "" {
		return fmt.Errorf("service name must not be empty")
	}
	if constructor == nil {
		return fmt.Errorf("factory constructor for %q must not be nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registered[name] = constructor
	return nil
}

// Service returns a factory instance for the given dictionary-type name.
func (r *FactoryRegistry) Service(name string) (TermsFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	constructor, ok := r.registered[name]
	if !ok {
		return nil, fmt.Errorf("service name must be one of %v, given service name is %q", r.names(), name)
	}
	return constructor(r.dataService), nil
}

func (r *FactoryRegistry) names() []string {
	names := make([]string, 0, len(r.registered))
	for name := range r.registered {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
