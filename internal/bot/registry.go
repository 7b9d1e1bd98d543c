package bot

import (
	"fmt"
	"sync"
)

// Registry holds registered modules in registration order.
type Registry struct {
	mu      sync.RWMutex
	modules []Module
	names   map[string]struct{}
}

// NewRegistry creates a new module registry.
func NewRegistry() *Registry {
	return &Registry{
		modules: make([]Module, 0),
		names:   make(map[string]struct{}),
	}
}

// Register adds a module to the registry.
// It panics if m is nil or a module with the same name is already registered.
func (r *Registry) Register(m Module) {
	if m == nil {
		panic("bot: Register module is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := m.Name()
	if _, dup := r.names[name]; dup {
		panic(fmt.Sprintf("bot: Register called twice for module %q", name))
	}
	r.names[name] = struct{}{}
	r.modules = append(r.modules, m)
}

// Modules returns a snapshot of all registered modules.
func (r *Registry) Modules() []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Module, len(r.modules))
	copy(result, r.modules)
	return result
}

var globalRegistry = NewRegistry()

// Register adds a module to the global registry.
// Modules call it from their init function.
func Register(m Module) {
	globalRegistry.Register(m)
}

// Modules returns all modules from the global registry.
func Modules() []Module {
	return globalRegistry.Modules()
}

// ResetGlobalRegistry resets the global registry.
// This is intended for testing purposes only.
func ResetGlobalRegistry() {
	globalRegistry = NewRegistry()
}
