package datarecording

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/xid"
	"github.com/sarchlab/stepper/component"
	"github.com/sarchlab/stepper/config"
	"github.com/sarchlab/stepper/hooking"
	"github.com/sarchlab/stepper/simulation"
)

// Tables written by a StepRecorder.
const (
	StepTable       = "steps"
	CheckpointTable = "checkpoints"
)

// A TimeTeller reports where a simulation is in time. The Context passed to
// the hooks is one.
type TimeTeller interface {
	TimeStep() int
	CurrentTime() float64
	TimeStepSize() float64
}

// StepEntry is one row of the steps table.
type StepEntry struct {
	Step int
	Time float64
	Dt   float64

	// Elapsed is the wall clock time since Initialise, in seconds.
	Elapsed float64
}

// CheckpointEntry is one row of the checkpoints table.
type CheckpointEntry struct {
	Step int
	Time float64
	Dt   float64
}

// A StepRecorder is a collaborator that records every step and every
// checkpoint of a simulation.
type StepRecorder struct {
	*component.Base

	path     string
	recorder Recorder
	exec     *execRecorder
	start    time.Time
}

// NewStepRecorder creates a StepRecorder.
func NewStepRecorder(name string) *StepRecorder {
	return &StepRecorder{Base: component.NewBase(name)}
}

// Path returns the database file the recorder writes.
func (r *StepRecorder) Path() string {
	return r.path + ".sqlite3"
}

// AssignFromDictionary reads the recording path and hooks the recorder into
// the sync and save entry points.
func (r *StepRecorder) AssignFromDictionary(
	registry *hooking.Registry,
	dict config.Dictionary,
) error {
	outputPath, err := config.String(dict, "./output", "outputPath")
	if err != nil {
		return err
	}

	r.path, err = config.String(dict,
		filepath.Join(outputPath, "steps_"+xid.New().String()),
		"recordPath")
	if err != nil {
		return err
	}

	err = hooking.Register(registry, simulation.EntryPointSync, hooking.Append,
		hooking.Hook[hooking.VoidFunc]{
			Name:  "RecordStep",
			Func:  r.recordStep,
			Owner: r.Name(),
		})
	if err != nil {
		return err
	}

	return hooking.Register(registry, simulation.EntryPointSave,
		hooking.Append,
		hooking.Hook[hooking.VoidFunc]{
			Name:  "RecordCheckpoint",
			Func:  r.recordCheckpoint,
			Owner: r.Name(),
		})
}

// Build creates the database and its tables.
func (r *StepRecorder) Build() error {
	return r.Advance(component.Built, func() error {
		if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
			return err
		}

		recorder, err := NewRecorder(r.path)
		if err != nil {
			return err
		}

		r.recorder = recorder

		if err := recorder.CreateTable(StepTable, StepEntry{}); err != nil {
			return err
		}

		err = recorder.CreateTable(CheckpointTable, CheckpointEntry{})
		if err != nil {
			return err
		}

		r.exec, err = newExecRecorder(recorder)

		return err
	})
}

// Initialise starts the wall clock and notes how the program was run.
func (r *StepRecorder) Initialise() error {
	return r.Advance(component.Initialised, func() error {
		r.start = time.Now()
		r.exec.Start()

		return nil
	})
}

// Execute does nothing. The recorder works through its hooks.
func (r *StepRecorder) Execute() error {
	return r.Advance(component.Executing, func() error { return nil })
}

// Destroy writes the remaining rows and closes the database.
func (r *StepRecorder) Destroy() error {
	return r.Advance(component.Destroyed, func() error {
		if r.recorder == nil {
			return nil
		}

		if r.exec != nil {
			if err := r.exec.End(); err != nil {
				return err
			}
		}

		return r.recorder.Close()
	})
}

func (r *StepRecorder) recordStep(data any) error {
	t, err := timeTeller(data)
	if err != nil {
		return err
	}

	return r.recorder.InsertData(StepTable, StepEntry{
		Step:    t.TimeStep(),
		Time:    t.CurrentTime(),
		Dt:      t.TimeStepSize(),
		Elapsed: time.Since(r.start).Seconds(),
	})
}

func (r *StepRecorder) recordCheckpoint(data any) error {
	t, err := timeTeller(data)
	if err != nil {
		return err
	}

	err = r.recorder.InsertData(CheckpointTable, CheckpointEntry{
		Step: t.TimeStep(),
		Time: t.CurrentTime(),
		Dt:   t.TimeStepSize(),
	})
	if err != nil {
		return err
	}

	return r.recorder.Flush()
}

func timeTeller(data any) (TimeTeller, error) {
	t, ok := data.(TimeTeller)
	if !ok {
		return nil, fmt.Errorf("cannot record %T, it does not tell time", data)
	}

	return t, nil
}

var (
	_ component.Component    = (*StepRecorder)(nil)
	_ component.Configurable = (*StepRecorder)(nil)
)
