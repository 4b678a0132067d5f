// Package remote provides the replay handler registry for calls against the
// remote data service.
package remote

import (
	"fmt"
	"sync"

	"github.com/jbctechsolutions/syncbridge/internal/application/ports"
	"github.com/jbctechsolutions/syncbridge/internal/domain/action"
)

// Registry manages the registration and lookup of replay handlers by action
// type.
type Registry struct {
	mu       sync.RWMutex
	handlers map[action.Type]ports.ReplayHandler
	order    []action.Type // maintains registration order
}

// Ensure Registry implements RemoteRegistryPort at compile time.
var _ ports.RemoteRegistryPort = (*Registry)(nil)

// NewRegistry creates a new empty handler registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[action.Type]ports.ReplayHandler),
		order:    make([]action.Type, 0),
	}
}

// Register adds a handler for the given action type.
// If a handler for the same type already exists, it will be replaced.
func (r *Registry) Register(actionType action.Type, handler ports.ReplayHandler) error {
	if actionType == "" {
		return fmt.Errorf("action type cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[actionType]; !exists {
		r.order = append(r.order, actionType)
	}

	r.handlers[actionType] = handler
	return nil
}

// Handler returns the replay handler for the given action type, or false if
// none is registered.
func (r *Registry) Handler(actionType action.Type) (ports.ReplayHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[actionType]
	return h, ok
}

// Types returns all registered action types in registration order.
func (r *Registry) Types() []action.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]action.Type, len(r.order))
	copy(result, r.order)
	return result
}

// Remove removes a handler from the registry.
// Returns true if the handler was found and removed.
func (r *Registry) Remove(actionType action.Type) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[actionType]; !exists {
		return false
	}

	delete(r.handlers, actionType)

	for i, t := range r.order {
		if t == actionType {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	return true
}

// Count returns the number of registered handlers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// Clear removes all handlers from the registry.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers = make(map[action.Type]ports.ReplayHandler)
	r.order = make([]action.Type, 0)
}
