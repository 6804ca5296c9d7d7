// Package simulation provides the Context, which owns the entry points of a
// simulation and drives its lifecycle and its time-stepping loop.
package simulation

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"

	"github.com/sarchlab/stepper/checkpointing"
	"github.com/sarchlab/stepper/comm"
	"github.com/sarchlab/stepper/component"
	"github.com/sarchlab/stepper/config"
	"github.com/sarchlab/stepper/hooking"
	"go.opentelemetry.io/otel/trace"
)

// ErrNoHooks is returned when an entry point that must be populated has no
// hook.
var ErrNoHooks = errors.New("entry point has no hooks")

// A ModuleLoader loads collaborator modules named in the configuration. It
// runs after the construct hooks and before the construct-extensions hooks.
type ModuleLoader interface {
	LoadModules(c *Context, dict config.Dictionary) error
}

// StoreOpener opens a checkpoint store.
type StoreOpener func(
	backend string,
	layout checkpointing.Layout,
) (checkpointing.Store, error)

// A Context owns the entry points of one simulation and drives it through
// construct, build, initialise, execute and destroy.
//
// Hooks receive the Context as their data argument.
type Context struct {
	*component.Base

	registry *hooking.Registry
	k        handles

	comm        comm.Communicator
	live        *component.LiveRegistry
	factory     component.Factory
	loader      ModuleLoader
	openStore   StoreOpener
	tracer      trace.Tracer
	progressOut io.Writer

	dict       config.Dictionary
	settings   Settings
	components []component.Component
	readStore  checkpointing.Store
	writeStore checkpointing.Store

	timeLock             sync.RWMutex
	currentTime          float64
	dt                   float64
	timeStep             int
	timeStepSinceRestart int

	maxSteps             MaxSteps
	updateOwed           bool
	dtWarned             bool
	gracefulQuit         atomic.Bool
	loadedFromCheckpoint bool
	nextCheckpointTime   float64
}

// Registry returns the entry point registry of the context.
func (c *Context) Registry() *hooking.Registry {
	return c.registry
}

// EntryPoint returns the handle of the named entry point.
func (c *Context) EntryPoint(name string) (hooking.Handle, error) {
	h, ok := c.registry.HandleFor(name)
	if !ok {
		return 0, fmt.Errorf("%w: %s", hooking.ErrEntryPointNotFound, name)
	}

	return h, nil
}

// AddEntryPoint registers an extra entry point and returns its handle.
func (c *Context) AddEntryPoint(ep hooking.EntryPoint) hooking.Handle {
	return c.registry.Add(ep)
}

// WarnIfNoHooks logs a warning if the entry point has no hook. It returns
// true if the entry point has hooks.
func (c *Context) WarnIfNoHooks(h hooking.Handle, caller string) bool {
	ep := c.registry.At(h)
	if ep.NumHooks() > 0 {
		return true
	}

	log.Printf("warning: %s: entry point %s of %s has no hooks",
		caller, ep.Name(), c.Name())

	return false
}

// ErrorIfNoHooks returns an error wrapping ErrNoHooks if the entry point has
// no hook.
func (c *Context) ErrorIfNoHooks(h hooking.Handle, caller string) error {
	ep := c.registry.At(h)
	if ep.NumHooks() > 0 {
		return nil
	}

	return fmt.Errorf("%s: %w: %s of %s", caller, ErrNoHooks, ep.Name(),
		c.Name())
}

// CheckpointExists tells if a checkpoint can be resumed from at the step.
func (c *Context) CheckpointExists(step int) bool {
	if c.readStore == nil {
		return false
	}

	return c.readStore.Exists(step)
}

// Settings returns the settings read at construction.
func (c *Context) Settings() Settings {
	return c.settings
}

// Dictionary returns the dictionary the context was constructed from.
func (c *Context) Dictionary() config.Dictionary {
	return c.dict
}

// Comm returns the communicator of the context.
func (c *Context) Comm() comm.Communicator {
	return c.comm
}

// LiveRegistry returns the live component registry the context belongs to.
func (c *Context) LiveRegistry() *component.LiveRegistry {
	return c.live
}

// Components returns the collaborator components created by the factory.
func (c *Context) Components() []component.Component {
	return append([]component.Component(nil), c.components...)
}

// CheckpointStores returns the stores used to read and to write time
// records. They are nil before construction.
func (c *Context) CheckpointStores() (read, write checkpointing.Store) {
	return c.readStore, c.writeStore
}

// CurrentTime returns the simulated time at the start of the current step.
func (c *Context) CurrentTime() float64 {
	c.timeLock.RLock()
	defer c.timeLock.RUnlock()

	return c.currentTime
}

// TimeStepSize returns the most recently computed time step size.
func (c *Context) TimeStepSize() float64 {
	c.timeLock.RLock()
	defer c.timeLock.RUnlock()

	return c.dt
}

// TimeStep returns the index of the current step.
func (c *Context) TimeStep() int {
	c.timeLock.RLock()
	defer c.timeLock.RUnlock()

	return c.timeStep
}

// TimeStepSinceRestart returns the number of steps started since the run
// started or resumed.
func (c *Context) TimeStepSinceRestart() int {
	c.timeLock.RLock()
	defer c.timeLock.RUnlock()

	return c.timeStepSinceRestart
}

// MaxSteps returns the step budget. It is resolved at Initialise.
func (c *Context) MaxSteps() MaxSteps {
	return c.maxSteps
}

// UpdateOwed tells if the next iteration starts by advancing time.
func (c *Context) UpdateOwed() bool {
	return c.updateOwed
}

// LoadedFromCheckpoint tells if the time state was restored from a
// checkpoint.
func (c *Context) LoadedFromCheckpoint() bool {
	return c.loadedFromCheckpoint
}

// RequestGracefulQuit asks the scheduler to stop after the current step. It
// may be called from any goroutine.
func (c *Context) RequestGracefulQuit() {
	c.gracefulQuit.Store(true)
}

// GracefulQuit tells if a graceful quit has been requested.
func (c *Context) GracefulQuit() bool {
	return c.gracefulQuit.Load()
}

// timeReached is the simulated time at the end of the current step.
func (c *Context) timeReached() float64 {
	c.timeLock.RLock()
	defer c.timeLock.RUnlock()

	return c.currentTime + c.dt
}

func (c *Context) setTime(step int, currentTime, dt float64) {
	c.timeLock.Lock()
	defer c.timeLock.Unlock()

	c.timeStep = step
	c.currentTime = currentTime
	c.dt = dt
}
