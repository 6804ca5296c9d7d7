package simulation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"slices"

	"github.com/sarchlab/stepper/checkpointing"
	"github.com/sarchlab/stepper/comm"
	"github.com/sarchlab/stepper/component"
	"github.com/sarchlab/stepper/config"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Names of the hooks the Context registers on its own entry points.
const (
	HookReadSettings              = "ReadSettings"
	HookInstantiateComponents     = "InstantiateComponents"
	HookBuildAllLiveComponents    = "BuildAllLiveComponents"
	HookInitialiseAllLiveComps    = "InitialiseAllLiveComponents"
	HookDefaultExecute            = "DefaultExecute"
	HookDefaultStep               = "DefaultStep"
	HookReportProgress            = "ReportProgress"
	HookCreateCheckpointDirectory = "CreateCheckpointDirectory"
	HookSaveTimeInfo              = "SaveTimeInfo"
	HookDestroyComponents         = "DestroyComponents"
)

func (c *Context) registerDefaultHooks() {
	owner := c.Name()

	construct := c.pair(c.k.construct)
	mustRegister(construct.PrependAlwaysFirst(
		HookReadSettings, c.readSettings, owner))
	mustRegister(construct.Append(
		HookInstantiateComponents, c.instantiateComponents, owner))

	mustRegister(c.void(c.k.build).Append(HookBuildAllLiveComponents,
		func(any) error { return c.live.BuildAll() }, owner))
	mustRegister(c.void(c.k.initialise).Append(HookInitialiseAllLiveComps,
		func(any) error { return c.live.InitialiseAll() }, owner))
	mustRegister(c.void(c.k.execute).Append(HookDefaultExecute,
		func(any) error { return c.runLoop() }, owner))
	mustRegister(c.stepEntryPoint().Append(HookDefaultStep,
		c.defaultStep, owner))
	mustRegister(c.void(c.k.frequentOutput).Append(HookReportProgress,
		c.reportProgress, owner))

	save := c.void(c.k.save)
	mustRegister(save.PrependAlwaysFirst(HookCreateCheckpointDirectory,
		c.createCheckpointDirectory, owner))
	mustRegister(save.AppendAlwaysLast(HookSaveTimeInfo,
		c.saveTimeInfo, owner))

	mustRegister(c.void(c.k.destroy).Append(HookDestroyComponents,
		c.destroyComponents, owner))
}

func mustRegister(err error) {
	if err != nil {
		log.Panic(err)
	}
}

// Construct runs the construct entry point, loads the dynamic modules and
// then runs the construct-extensions entry point.
func (c *Context) Construct(dict config.Dictionary) error {
	return c.Advance(component.Constructed, func() error {
		c.dict = dict

		err := c.pair(c.k.construct).Run(c, dict)
		if err != nil {
			return fmt.Errorf("construct %s: %w", c.Name(), err)
		}

		if c.loader != nil {
			err = c.loader.LoadModules(c, dict)
			if err != nil {
				return fmt.Errorf("construct %s: load modules: %w",
					c.Name(), err)
			}
		}

		err = c.pair(c.k.constructExtensions).Run(c, dict)
		if err != nil {
			return fmt.Errorf("construct %s: %w", c.Name(), err)
		}

		return nil
	})
}

// Build runs the build entry point.
func (c *Context) Build() error {
	return c.Advance(component.Built, func() error {
		return c.void(c.k.build).Run(c)
	})
}

// Initialise builds the context if needed and runs the initialise entry
// point. It then resolves the step budget and sets up the time state, either
// fresh or from the checkpoint of the restart step.
func (c *Context) Initialise() error {
	if err := c.Build(); err != nil {
		return err
	}

	return c.Advance(component.Initialised, c.initialise)
}

func (c *Context) initialise() error {
	if err := c.prepareOutput(); err != nil {
		return err
	}

	if err := c.void(c.k.initialise).Run(c); err != nil {
		return fmt.Errorf("initialise %s: %w", c.Name(), err)
	}

	s := c.settings
	c.maxSteps = s.MaxSteps.Resolve(s.FinalTimeStep > 0, s.HasStopTime)

	if s.Restarting() {
		if err := c.loadCheckpoint(s.RestartTimestep); err != nil {
			return err
		}
	} else {
		c.setTime(0, s.StartTime, 0)
	}

	c.timeLock.Lock()
	c.timeStepSinceRestart = 0
	c.timeLock.Unlock()

	c.updateOwed = true
	c.nextCheckpointTime = c.firstCheckpointTime()

	if s.VisualOnly {
		c.RequestGracefulQuit()
	}

	return nil
}

// firstCheckpointTime returns the first multiple of the checkpoint time
// increment, counted from the start time, beyond the time the next update
// moves to.
func (c *Context) firstCheckpointTime() float64 {
	inc := c.settings.CheckpointAtTimeInc
	if inc <= 0 {
		return math.Inf(1)
	}

	start := c.settings.StartTime
	n := math.Floor((c.timeReached() - start) / inc)

	return start + inc*(n+1)
}

// Execute initialises the context if needed and runs the execute entry
// point, which drives the time-stepping loop.
func (c *Context) Execute() error {
	if err := c.Initialise(); err != nil {
		return err
	}

	return c.Advance(component.Executing, func() error {
		return c.void(c.k.execute).Run(c)
	})
}

// Destroy removes the context and its components from the live registry and
// then runs the destroy-extensions and destroy entry points.
func (c *Context) Destroy() error {
	return c.Advance(component.Destroyed, func() error {
		c.live.Remove(c.Name())

		for _, comp := range c.components {
			c.live.Remove(comp.Name())
		}

		err := c.void(c.k.destroyExtensions).Run(c)
		if err != nil {
			return fmt.Errorf("destroy %s: %w", c.Name(), err)
		}

		err = c.void(c.k.destroy).Run(c)
		if err != nil {
			return fmt.Errorf("destroy %s: %w", c.Name(), err)
		}

		return nil
	})
}

// Run drives the context through every phase. Each phase is traced as a
// span. Cancelling ctx requests a graceful quit. The context is destroyed
// even if an earlier phase fails.
func (c *Context) Run(ctx context.Context, dict config.Dictionary) error {
	ctx, span := c.tracer.Start(ctx, "simulation.Run",
		trace.WithAttributes(attribute.String("simulation.name", c.Name())))
	defer span.End()

	stop := context.AfterFunc(ctx, c.RequestGracefulQuit)
	defer stop()

	phases := []struct {
		name string
		fn   func() error
	}{
		{"construct", func() error { return c.Construct(dict) }},
		{"build", c.Build},
		{"initialise", c.Initialise},
		{"execute", c.Execute},
	}

	for _, p := range phases {
		err := c.tracePhase(ctx, p.name, p.fn)
		if err != nil {
			err = errors.Join(err, c.tracePhase(ctx, "destroy", c.Destroy))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())

			return err
		}
	}

	return c.tracePhase(ctx, "destroy", c.Destroy)
}

func (c *Context) tracePhase(
	ctx context.Context,
	name string,
	fn func() error,
) error {
	_, span := c.tracer.Start(ctx, "simulation."+name)
	defer span.End()

	err := fn()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return err
	}

	span.SetAttributes(
		attribute.Int("simulation.time_step", c.TimeStep()),
		attribute.Float64("simulation.current_time", c.CurrentTime()),
	)

	return nil
}

func (c *Context) readSettings(_, data1 any) error {
	dict, ok := data1.(config.Dictionary)
	if !ok {
		return fmt.Errorf("construct expects a dictionary, got %T", data1)
	}

	s, err := ReadSettings(dict)
	if err != nil {
		return err
	}

	c.settings = s
	c.setTime(0, s.StartTime, 0)

	c.readStore, err = c.openStore(s.CheckpointBackend, checkpointing.Layout{
		Dir:        s.CheckpointReadPath,
		Prefix:     s.CheckpointPrefix,
		AppendStep: s.CheckpointAppendStep,
	})
	if err != nil {
		return err
	}

	c.writeStore, err = c.openStore(s.CheckpointBackend, checkpointing.Layout{
		Dir:        s.CheckpointWritePath,
		Prefix:     s.CheckpointPrefix,
		AppendStep: s.CheckpointAppendStep,
	})
	if err != nil {
		return err
	}

	return c.live.Add(c)
}

func (c *Context) instantiateComponents(_, data1 any) error {
	if c.factory == nil {
		return nil
	}

	dict := data1.(config.Dictionary)

	comps, err := c.factory.Instantiate(dict)
	if err != nil {
		return fmt.Errorf("instantiate components: %w", err)
	}

	for _, comp := range comps {
		if err := c.live.Add(comp); err != nil {
			return err
		}

		c.components = append(c.components, comp)

		cfg, ok := comp.(component.Configurable)
		if !ok {
			continue
		}

		if err := cfg.AssignFromDictionary(c.registry, dict); err != nil {
			return fmt.Errorf("configure %s: %w", comp.Name(), err)
		}
	}

	return nil
}

func (c *Context) destroyComponents(any) error {
	var errs []error

	for _, comp := range slices.Backward(c.components) {
		if err := comp.Destroy(); err != nil {
			errs = append(errs, fmt.Errorf("destroy %s: %w", comp.Name(), err))
		}
	}

	return errors.Join(errs...)
}

func (c *Context) reportProgress(any) error {
	if !comm.IsCoordinator(c.comm) {
		return nil
	}

	fmt.Fprintf(c.progressOut, "%s: step %d, time %.6g, dt %.6g\n",
		c.Name(), c.TimeStep(), c.CurrentTime(), c.TimeStepSize())

	return nil
}

var _ component.Component = (*Context)(nil)
