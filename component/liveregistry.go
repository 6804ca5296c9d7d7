package component

import (
	"fmt"
	"slices"
	"sync"
)

// A LiveRegistry tracks every component that is alive in a process. It is
// shared between a context and its collaborators and must be passed around
// explicitly. It is safe for concurrent use.
type LiveRegistry struct {
	mu         sync.RWMutex
	components []Component
	nameIndex  map[string]int
}

// NewLiveRegistry creates an empty LiveRegistry.
func NewLiveRegistry() *LiveRegistry {
	return &LiveRegistry{nameIndex: make(map[string]int)}
}

// Add registers a component. Names must be unique.
func (r *LiveRegistry) Add(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if _, ok := r.nameIndex[name]; ok {
		return fmt.Errorf("component %s already registered", name)
	}

	r.components = append(r.components, c)
	r.nameIndex[name] = len(r.components) - 1

	return nil
}

// Remove unregisters the named component. It returns false if the component
// is not registered.
func (r *LiveRegistry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.nameIndex[name]
	if !ok {
		return false
	}

	r.components = slices.Delete(r.components, i, i+1)
	r.reindex()

	return true
}

// Get returns the named component.
func (r *LiveRegistry) Get(name string) (Component, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.nameIndex[name]
	if !ok {
		return nil, false
	}

	return r.components[i], true
}

// Components returns the registered components in registration order.
func (r *LiveRegistry) Components() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.components)
}

// Len returns the number of registered components.
func (r *LiveRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.components)
}

// BuildAll builds every registered component.
func (r *LiveRegistry) BuildAll() error {
	for _, c := range r.Components() {
		if err := c.Build(); err != nil {
			return fmt.Errorf("build %s: %w", c.Name(), err)
		}
	}

	return nil
}

// InitialiseAll initialises every registered component.
func (r *LiveRegistry) InitialiseAll() error {
	for _, c := range r.Components() {
		if err := c.Initialise(); err != nil {
			return fmt.Errorf("initialise %s: %w", c.Name(), err)
		}
	}

	return nil
}

func (r *LiveRegistry) reindex() {
	clear(r.nameIndex)

	for i, c := range r.components {
		r.nameIndex[c.Name()] = i
	}
}
