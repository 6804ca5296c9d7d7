package simulation

import (
	"fmt"
	"log"

	"github.com/sarchlab/stepper/config"
)

// Settings are the scalar configuration values a Context reads once, while
// it is being constructed.
type Settings struct {
	ExperimentName string
	OutputPath     string

	CheckpointReadPath   string
	CheckpointWritePath  string
	CheckpointAppendStep bool
	CheckpointPrefix     string
	CheckpointBackend    string

	StartTime float64
	StopTime  float64

	// HasStopTime is set when a stop time after the start time is
	// configured.
	HasStopTime bool

	MaxSteps      MaxSteps
	FinalTimeStep int

	// RestartTimestep is the step to resume from. Negative values start a
	// fresh run.
	RestartTimestep int

	FrequentOutputEvery int
	DumpEvery           int
	CheckpointEvery     int
	SaveDataEvery       int
	CheckpointAtTimeInc float64

	// VisualOnly sets the graceful quit flag before the loop starts.
	VisualOnly bool

	// StepDump means dumps are taken by collaborators from within the step,
	// so the scheduler does not trigger them.
	StepDump bool

	Extensions []string
}

// Restarting tells if the run resumes from a checkpoint.
func (s Settings) Restarting() bool {
	return s.RestartTimestep >= 0
}

// ReadSettings reads the settings from a dictionary.
func ReadSettings(dict config.Dictionary) (Settings, error) {
	r := settingsReader{dict: dict}
	s := Settings{}

	s.ExperimentName = r.readString("experiment", "experimentName")
	s.OutputPath = r.readString("./output", "outputPath")
	s.CheckpointReadPath = r.readString(s.OutputPath, "checkpointReadPath")
	s.CheckpointWritePath = r.readString(s.OutputPath, "checkpointWritePath")
	s.CheckpointAppendStep = r.readBool(false, "checkpointAppendStep")
	s.CheckpointPrefix = r.readString("", "checkpointPrefixString")
	s.CheckpointBackend = r.readString("json", "checkpointBackend")

	s.StartTime = r.readFloat(0, "start", "startTime")
	s.HasStopTime = config.Has(dict, "end", "stopTime")
	s.StopTime = r.readFloat(0, "end", "stopTime")

	if s.HasStopTime && s.StopTime <= s.StartTime {
		log.Printf("stop time %g is not after start time %g, ignoring it",
			s.StopTime, s.StartTime)

		s.HasStopTime = false
	}

	maxSteps := r.readInt(maxStepsUnspecified, "maxTimeSteps", "maxLoops")
	if r.err == nil {
		s.MaxSteps, r.err = ParseMaxSteps(maxSteps)
	}

	s.FinalTimeStep = r.readNonNegative(0, "finalTimeStep")
	s.RestartTimestep = r.readInt(-1, "restartTimestep")

	s.FrequentOutputEvery = r.readNonNegative(1, "frequentOutputEvery")
	s.DumpEvery = r.readNonNegative(0, "dumpEvery")
	s.CheckpointEvery = r.readNonNegative(0, "checkpointEvery")
	s.SaveDataEvery = r.readNonNegative(0, "saveDataEvery")
	s.CheckpointAtTimeInc = r.readFloat(0, "checkpointAtTimeInc")

	s.VisualOnly = r.readBool(false, "visualOnly")
	s.StepDump = r.readBool(false, "stepDump")

	if r.err == nil {
		s.Extensions, r.err = config.Strings(dict, "extensions")
	}

	if r.err == nil && s.CheckpointAtTimeInc < 0 {
		r.err = fmt.Errorf("%w: checkpointAtTimeInc must not be negative",
			config.ErrMalformed)
	}

	return s, r.err
}

// settingsReader keeps the first error and ignores the reads after it.
type settingsReader struct {
	dict config.Dictionary
	err  error
}

func (r *settingsReader) readString(def string, keys ...string) string {
	if r.err != nil {
		return def
	}

	var v string
	v, r.err = config.String(r.dict, def, keys...)

	return v
}

func (r *settingsReader) readBool(def bool, keys ...string) bool {
	if r.err != nil {
		return def
	}

	var v bool
	v, r.err = config.Bool(r.dict, def, keys...)

	return v
}

func (r *settingsReader) readFloat(def float64, keys ...string) float64 {
	if r.err != nil {
		return def
	}

	var v float64
	v, r.err = config.Float(r.dict, def, keys...)

	return v
}

func (r *settingsReader) readInt(def int, keys ...string) int {
	if r.err != nil {
		return def
	}

	var v int
	v, r.err = config.Int(r.dict, def, keys...)

	return v
}

func (r *settingsReader) readNonNegative(def int, keys ...string) int {
	v := r.readInt(def, keys...)
	if r.err == nil && v < 0 {
		r.err = fmt.Errorf("%w: %s must not be negative",
			config.ErrMalformed, keys[0])
	}

	return v
}
