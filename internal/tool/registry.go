// Package tool provides the tool registry and the built-in generation tools
// available to workflow steps.
package tool

import (
	"sort"
	"sync"

	"github.com/pitabwire/loom/model"
)

// Registry maps tool identifiers to Tool implementations. Registration
// normally happens once at startup; Resolve is called on every workflow step.
// It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]model.Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]model.Tool)}
}

// Register adds a tool under its own name. Registering a second tool with
// the same name replaces the first.
func (r *Registry) Register(t model.Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Resolve looks up a tool by identifier.
func (r *Registry) Resolve(name string) (model.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool identifiers in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
