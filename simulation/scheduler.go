package simulation

import (
	"fmt"
	"log"
	"math"

	"github.com/sarchlab/stepper/comm"
)

// stopTimeTolerance absorbs the rounding of accumulated time steps when the
// stop time is compared with the time reached.
const stopTimeTolerance = 1e-12

func (c *Context) runLoop() error {
	if c.maxSteps.Kind == StepsInitialiseOnly || c.quitRequested() {
		return c.finalOutput()
	}

	for {
		if c.updateOwed {
			if err := c.Update(); err != nil {
				return err
			}
		}

		c.comm.Barrier()

		dt, err := c.Dt()
		if err != nil {
			return err
		}

		if err := c.Step(dt); err != nil {
			return err
		}

		if reason := c.stopReason(); reason != "" {
			c.logf("stopping at step %d, time %g: %s",
				c.TimeStep(), c.timeReached(), reason)

			return nil
		}

		if c.quitRequested() {
			c.logf("graceful quit requested at step %d", c.TimeStep())

			return c.closingOutput()
		}
	}
}

// Update moves to the next step. It increments the step counters, advances
// the current time by the last time step size and runs the update-class and
// sync entry points.
func (c *Context) Update() error {
	c.timeLock.Lock()
	c.timeStep++
	c.timeStepSinceRestart++
	c.currentTime += c.dt
	c.timeLock.Unlock()

	c.updateOwed = false

	if err := c.class(c.k.updateClass).Run(c); err != nil {
		return err
	}

	return c.void(c.k.sync).Run(c)
}

// Dt asks the dt entry point for the size of the next time step. The
// smallest value proposed wins. Without any dt hook the previous size is
// kept, with a warning the first time.
func (c *Context) Dt() (float64, error) {
	dt, ok, err := c.dtEntryPoint().Run()
	if err != nil {
		return 0, err
	}

	if !ok {
		if c.TimeStepSize() == 0 && c.boundOnlyByStopTime() {
			return 0, c.ErrorIfNoHooks(c.k.dt, "Dt")
		}

		if !c.dtWarned {
			c.dtWarned = !c.WarnIfNoHooks(c.k.dt, "Dt")
		}

		return c.TimeStepSize(), nil
	}

	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt < 0 {
		return 0, fmt.Errorf("step %d: invalid time step size %g",
			c.TimeStep(), dt)
	}

	return dt, nil
}

// Step advances the simulation by dt. It runs the step entry point, owes an
// update to the next iteration and then fires the periodic outputs that are
// due.
func (c *Context) Step(dt float64) error {
	c.timeLock.Lock()
	c.dt = dt
	c.timeLock.Unlock()

	if err := c.stepEntryPoint().Run(c, dt); err != nil {
		return err
	}

	c.updateOwed = true

	return c.periodicOutput()
}

func (c *Context) defaultStep(_ any, _ float64) error {
	if err := c.ErrorIfNoHooks(c.k.solve, "DefaultStep"); err != nil {
		return err
	}

	if err := c.class(c.k.preSolveClass).Run(c); err != nil {
		return err
	}

	if err := c.void(c.k.solve).Run(c); err != nil {
		return err
	}

	if err := c.void(c.k.postSolve).Run(c); err != nil {
		return err
	}

	return c.class(c.k.postSolveClass).Run(c)
}

// boundOnlyByStopTime tells if nothing but the stop time ends the run, so
// time must advance for the loop to end.
func (c *Context) boundOnlyByStopTime() bool {
	return c.settings.HasStopTime &&
		c.maxSteps.Kind == StepsUnbounded &&
		c.settings.FinalTimeStep <= 0
}

func (c *Context) frequentOutputDue(step int) bool {
	return every(c.settings.FrequentOutputEvery, step)
}

func (c *Context) dumpDue(step int) bool {
	return !c.settings.StepDump && every(c.settings.DumpEvery, step)
}

func (c *Context) periodicOutput() error {
	s := c.settings
	step := c.TimeStep()

	if c.frequentOutputDue(step) {
		if err := c.void(c.k.frequentOutput).Run(c); err != nil {
			return err
		}
	}

	if c.dumpDue(step) {
		if err := c.Dump(); err != nil {
			return err
		}
	}

	onStep := every(s.CheckpointEvery, step)
	onTime := c.checkpointTimeCrossed()

	if onStep || onTime {
		if err := c.Checkpoint(); err != nil {
			return err
		}
	}

	if every(s.SaveDataEvery, step) {
		if err := c.void(c.k.dataSave).Run(c); err != nil {
			return err
		}
	}

	return nil
}

func every(interval, step int) bool {
	return interval > 0 && step%interval == 0
}

// finalOutput is what a run that takes no step still produces.
func (c *Context) finalOutput() error {
	if err := c.void(c.k.frequentOutput).Run(c); err != nil {
		return err
	}

	return c.Dump()
}

// closingOutput completes the outputs of a run ended by a graceful quit. An
// output that already fired at the current step is not repeated.
func (c *Context) closingOutput() error {
	step := c.TimeStep()

	if !c.frequentOutputDue(step) {
		if err := c.void(c.k.frequentOutput).Run(c); err != nil {
			return err
		}
	}

	if c.dumpDue(step) {
		return nil
	}

	return c.Dump()
}

// Dump runs the dump and dump-class entry points.
func (c *Context) Dump() error {
	if err := c.void(c.k.dump).Run(c); err != nil {
		return err
	}

	return c.class(c.k.dumpClass).Run(c)
}

// Checkpoint runs the save entry point. The checkpoint directory is created
// before every other save hook runs and the time record is written after
// them.
func (c *Context) Checkpoint() error {
	if err := c.void(c.k.save).Run(c); err != nil {
		return fmt.Errorf("checkpoint at step %d: %w", c.TimeStep(), err)
	}

	return nil
}

// checkpointTimeCrossed tells if the time reached passed the next checkpoint
// time. The threshold then moves past the time reached by whole increments.
func (c *Context) checkpointTimeCrossed() bool {
	inc := c.settings.CheckpointAtTimeInc
	if inc <= 0 {
		return false
	}

	reached := c.timeReached()
	if reached < c.nextCheckpointTime {
		return false
	}

	for c.nextCheckpointTime <= reached {
		c.nextCheckpointTime += inc
	}

	return true
}

func (c *Context) stopReason() string {
	s := c.settings

	if c.maxSteps.Reached(c.TimeStepSinceRestart()) {
		return fmt.Sprintf("step budget of %s spent", c.maxSteps)
	}

	if s.FinalTimeStep > 0 && c.TimeStep() >= s.FinalTimeStep {
		return fmt.Sprintf("final time step %d reached", s.FinalTimeStep)
	}

	if s.HasStopTime {
		margin := stopTimeTolerance * math.Max(1, math.Abs(s.StopTime))
		if c.timeReached() >= s.StopTime-margin {
			return fmt.Sprintf("stop time %g reached", s.StopTime)
		}
	}

	return ""
}

// quitRequested polls the graceful quit flag. With several processes, the
// coordinator's flag is shared so that every process stops at the same
// step.
func (c *Context) quitRequested() bool {
	if c.comm.Size() == 1 {
		return c.GracefulQuit()
	}

	flag := []float64{0}
	if comm.IsCoordinator(c.comm) && c.GracefulQuit() {
		flag[0] = 1
	}

	c.comm.BroadcastFloat64s(0, flag)

	return flag[0] != 0
}

func (c *Context) logf(format string, args ...any) {
	if !comm.IsCoordinator(c.comm) {
		return
	}

	log.Printf("%s: "+format, append([]any{c.Name()}, args...)...)
}
