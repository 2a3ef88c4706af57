package indexer

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/BuidlGuidl/ethereum-bazaar/internal/logger"
	"github.com/BuidlGuidl/ethereum-bazaar/pkg/config"
)

// Factory creates an indexer instance from its configuration entry.
type Factory func(cfg config.IndexerConfig, deps Deps, log *logger.Logger) (Indexer, error)

var (
	registry = make(map[string]Factory)
	mu       sync.RWMutex
)

// Register registers an indexer factory under a case-insensitive type name.
// Indexer packages call it from init().
func Register(indexerType string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	name := strings.ToLower(indexerType)
	if _, exists := registry[name]; exists {
		logger.GetDefaultLogger().Infof("indexer type %s already registered, overwriting", name)
	}

	registry[name] = factory
}

// GetFactory returns the factory for the given indexer type, or nil.
func GetFactory(indexerType string) Factory {
	mu.RLock()
	defer mu.RUnlock()
	return registry[strings.ToLower(indexerType)]
}

// ListRegistered returns the registered indexer types, sorted.
func ListRegistered() []string {
	mu.RLock()
	defer mu.RUnlock()

	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// Create builds an indexer with the factory registered for indexerType.
func Create(indexerType string, cfg config.IndexerConfig, deps Deps, log *logger.Logger) (Indexer, error) {
	factory := GetFactory(indexerType)
	if factory == nil {
		return nil, fmt.Errorf("unknown indexer type: %s (registered types: %v)", indexerType, ListRegistered())
	}

	return factory(cfg, deps, log)
}
