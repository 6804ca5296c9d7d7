package simulation

import (
	"errors"
	"fmt"
	"os"

	"github.com/sarchlab/stepper/checkpointing"
	"github.com/sarchlab/stepper/comm"
)

// onCoordinator runs fn on the coordinating process and shares whether it
// succeeded, so that every process fails together.
func (c *Context) onCoordinator(what string, fn func() error) error {
	var err error

	status := []float64{0}

	if comm.IsCoordinator(c.comm) {
		err = fn()
		if err != nil {
			status[0] = 1
		}
	}

	c.comm.BroadcastFloat64s(0, status)

	switch {
	case err != nil:
		return fmt.Errorf("%s: %w", what, err)
	case status[0] != 0:
		return fmt.Errorf("%s: failed on the coordinating process", what)
	}

	return nil
}

// prepareOutput creates the output and checkpoint directories.
func (c *Context) prepareOutput() error {
	c.comm.Barrier()

	return c.onCoordinator("prepare output", func() error {
		for _, dir := range []string{
			c.settings.OutputPath,
			c.writeStore.Layout().Dir,
		} {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}

		return nil
	})
}

func (c *Context) createCheckpointDirectory(any) error {
	c.comm.Barrier()

	dir := c.writeStore.Layout().StepDir(c.TimeStep())

	return c.onCoordinator("create checkpoint directory", func() error {
		return os.MkdirAll(dir, 0o755)
	})
}

func (c *Context) saveTimeInfo(any) error {
	c.timeLock.RLock()
	rec := checkpointing.TimeRecord{
		Step:         c.timeStep,
		CurrentTime:  c.currentTime,
		Dt:           c.dt,
		ProcessCount: c.comm.Size(),
	}
	c.timeLock.RUnlock()

	return c.onCoordinator("save time info", func() error {
		return c.writeStore.Save(rec)
	})
}

// loadCheckpoint restores the time state of a step. The coordinator reads the
// time record and shares it with the other processes.
func (c *Context) loadCheckpoint(step int) error {
	var (
		rec checkpointing.TimeRecord
		err error
	)

	values := []float64{0, 0, 0}

	if comm.IsCoordinator(c.comm) {
		rec, err = c.readStore.Load(step)
		if err == nil {
			values = []float64{rec.CurrentTime, rec.Dt, 1}
		}
	}

	c.comm.BroadcastFloat64s(0, values)

	switch {
	case err != nil:
		return fmt.Errorf("restart at step %d: %w", step, err)
	case values[2] == 0:
		return fmt.Errorf("restart at step %d: %w on the coordinating process",
			step, checkpointing.ErrNotFound)
	}

	if comm.IsCoordinator(c.comm) && rec.ProcessCount != c.comm.Size() {
		c.logf("checkpoint of step %d was written by %d processes, "+
			"resuming with %d", step, rec.ProcessCount, c.comm.Size())
	}

	c.setTime(step, values[0], values[1])
	c.loadedFromCheckpoint = true

	return nil
}

// IsMissingCheckpoint tells if err was caused by a checkpoint that does not
// exist.
func IsMissingCheckpoint(err error) bool {
	return errors.Is(err, checkpointing.ErrNotFound)
}
