// Package component defines the lifecycle shared by the context and its
// collaborators.
package component

import (
	"github.com/sarchlab/stepper/config"
	"github.com/sarchlab/stepper/hooking"
)

// A Component is an element that takes part in the simulation lifecycle.
// Each phase method must be safe to call more than once; calls after the
// phase completed do nothing.
type Component interface {
	Name() string
	Build() error
	Initialise() error
	Execute() error
	Destroy() error
}

// Configurable components read their settings and register their hooks
// while the context is being constructed.
type Configurable interface {
	AssignFromDictionary(
		registry *hooking.Registry,
		dict config.Dictionary,
	) error
}

// A Factory creates the collaborator components of a simulation.
type Factory interface {
	Instantiate(dict config.Dictionary) ([]Component, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(dict config.Dictionary) ([]Component, error)

// Instantiate calls f.
func (f FactoryFunc) Instantiate(dict config.Dictionary) ([]Component, error) {
	return f(dict)
}
