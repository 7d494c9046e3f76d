package topology

import (
	"fmt"
	"sync"
)

// Constructor builds a new Node of a concrete model for the given id.
type Constructor func(id uint64, model string) *Node

var (
	registryMu sync.Mutex
	registry   = map[string]Constructor{}
)

// Register associates model with ctor. It is intended to run from package
// init() for each concrete node type, before any topology is parsed.
// Registering the same model twice is a registration failure.
func Register(model string, ctor Constructor) error {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[model]; exists {
		return fmt.Errorf("topology: registration failure: model %q already registered", model)
	}
	registry[model] = ctor
	return nil
}

// Instantiate looks up model and constructs a new node with the given id.
func Instantiate(model string, id uint64) (*Node, error) {
	registryMu.Lock()
	ctor, ok := registry[model]
	registryMu.Unlock()

	if !ok {
		return nil, fmt.Errorf("topology: type not found: %q", model)
	}
	return ctor(id, model), nil
}
