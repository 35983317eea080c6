package core

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[string]ImportDefinition)
	registryMu sync.RWMutex
)

// Register adds an import definition to the registry.
// Panics if an import with the same key is already registered or the
// definition is missing a required hook.
func Register(def ImportDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Info.Key]; exists {
		panic(fmt.Sprintf("import already registered: %s", def.Info.Key))
	}
	if def.Prepare == nil || def.NaturalKey == nil || def.Insert == nil {
		panic(fmt.Sprintf("import %s: Prepare, NaturalKey and Insert are required", def.Info.Key))
	}
	if def.Info.Policy == "" {
		def.Info.Policy = PolicyStrict
	}

	// Populate column lists from the contract if not set
	if len(def.Info.Required) == 0 && len(def.Info.Optional) == 0 {
		for _, c := range def.Columns {
			if c.Required {
				def.Info.Required = append(def.Info.Required, c.Name)
			} else {
				def.Info.Optional = append(def.Info.Optional, c.Name)
			}
		}
	}

	registry[def.Info.Key] = def
}

// Get returns an import definition by key.
// Returns false if not found.
func Get(key string) (ImportDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	return def, ok
}

// All returns all registered import definitions sorted by key.
func All() []ImportDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]ImportDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Info.Key < result[j].Info.Key
	})

	return result
}

// ImportCount returns the number of registered imports.
func ImportCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered imports. Only for use in tests.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]ImportDefinition)
}
