package simulation

import (
	"io"
	"os"

	"github.com/rs/xid"
	"github.com/sarchlab/stepper/checkpointing"
	"github.com/sarchlab/stepper/comm"
	"github.com/sarchlab/stepper/component"
	"github.com/sarchlab/stepper/hooking"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Builder can be used to build a Context.
type Builder struct {
	name        string
	comm        comm.Communicator
	live        *component.LiveRegistry
	factory     component.Factory
	loader      ModuleLoader
	openStore   StoreOpener
	tracer      trace.Tracer
	progressOut io.Writer
}

// MakeBuilder creates a new builder. By default the context runs on one
// process, owns a fresh live registry, stores checkpoints with the backend
// named in its configuration and reports progress to stderr.
func MakeBuilder() Builder {
	return Builder{
		comm:        comm.Single(),
		openStore:   checkpointing.Open,
		progressOut: os.Stderr,
	}
}

// WithName sets the name of the context. Hooks the context registers carry
// the name as their owner.
func (b Builder) WithName(name string) Builder {
	b.name = name
	return b
}

// WithCommunicator sets the communicator that connects the processes of the
// simulation.
func (b Builder) WithCommunicator(c comm.Communicator) Builder {
	b.comm = c
	return b
}

// WithLiveRegistry sets the live component registry the context joins.
func (b Builder) WithLiveRegistry(r *component.LiveRegistry) Builder {
	b.live = r
	return b
}

// WithFactory sets the factory that creates the collaborator components.
func (b Builder) WithFactory(f component.Factory) Builder {
	b.factory = f
	return b
}

// WithModuleLoader sets the loader of the dynamic modules.
func (b Builder) WithModuleLoader(l ModuleLoader) Builder {
	b.loader = l
	return b
}

// WithStoreOpener replaces the way checkpoint stores are opened.
func (b Builder) WithStoreOpener(o StoreOpener) Builder {
	b.openStore = o
	return b
}

// WithTracer sets the tracer used to trace the phases of Run.
func (b Builder) WithTracer(t trace.Tracer) Builder {
	b.tracer = t
	return b
}

// WithProgressWriter sets where the progress lines are written.
func (b Builder) WithProgressWriter(w io.Writer) Builder {
	b.progressOut = w
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.comm == nil {
		panic("communicator is not set")
	}

	if b.openStore == nil {
		panic("store opener is not set")
	}
}

// Build builds the context. The context is Unconstructed.
func (b Builder) Build() *Context {
	b.parametersMustBeValid()

	name := b.name
	if name == "" {
		name = "Context-" + xid.New().String()
	}

	c := &Context{
		Base:        component.NewBase(name),
		registry:    hooking.NewRegistry(),
		comm:        b.comm,
		live:        b.live,
		factory:     b.factory,
		loader:      b.loader,
		openStore:   b.openStore,
		tracer:      b.tracer,
		progressOut: b.progressOut,
		maxSteps:    MaxSteps{Kind: StepsUnspecified},
	}

	if c.live == nil {
		c.live = component.NewLiveRegistry()
	}

	if c.tracer == nil {
		c.tracer = otel.Tracer("github.com/sarchlab/stepper/simulation")
	}

	if c.progressOut == nil {
		c.progressOut = io.Discard
	}

	c.k = registerWellKnownEntryPoints(c.registry)
	c.registerDefaultHooks()

	return c
}
