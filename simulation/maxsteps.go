package simulation

import (
	"fmt"
)

// MaxStepsKind tells how the step budget of a run is bounded.
type MaxStepsKind int

// Step budget kinds.
const (
	// StepsUnspecified is resolved at Initialise: Unbounded when a final
	// step or stop time is configured, InitialiseOnly otherwise.
	StepsUnspecified MaxStepsKind = iota
	// StepsUnbounded runs until another condition stops the run.
	StepsUnbounded
	// StepsInitialiseOnly applies the initial condition and takes no step.
	StepsInitialiseOnly
	// StepsRunOnce takes a single step.
	StepsRunOnce
	// StepsExactly takes N steps after the start or restart.
	StepsExactly
)

// MaxSteps bounds the number of steps taken since the start or restart.
type MaxSteps struct {
	Kind MaxStepsKind
	N    int
}

// Integer encodings of the step budget used in configuration files.
const (
	maxStepsUnspecified    = -3
	maxStepsUnbounded      = -2
	maxStepsInitialiseOnly = -1
	maxStepsRunOnce        = 0
)

// Exactly returns a budget of n steps.
func Exactly(n int) MaxSteps {
	return MaxSteps{Kind: StepsExactly, N: n}
}

// ParseMaxSteps reads the integer encoding used by the maxTimeSteps key.
func ParseMaxSteps(v int) (MaxSteps, error) {
	switch {
	case v > 0:
		return Exactly(v), nil
	case v == maxStepsRunOnce:
		return MaxSteps{Kind: StepsRunOnce}, nil
	case v == maxStepsInitialiseOnly:
		return MaxSteps{Kind: StepsInitialiseOnly}, nil
	case v == maxStepsUnbounded:
		return MaxSteps{Kind: StepsUnbounded}, nil
	case v == maxStepsUnspecified:
		return MaxSteps{Kind: StepsUnspecified}, nil
	}

	return MaxSteps{}, fmt.Errorf("invalid maximum number of time steps %d", v)
}

// Resolve turns an unspecified budget into a concrete one.
func (m MaxSteps) Resolve(hasFinalStep, hasStopTime bool) MaxSteps {
	if m.Kind != StepsUnspecified {
		return m
	}

	if hasFinalStep || hasStopTime {
		return MaxSteps{Kind: StepsUnbounded}
	}

	return MaxSteps{Kind: StepsInitialiseOnly}
}

// Reached tells if the budget is spent after the given number of steps.
func (m MaxSteps) Reached(stepsSinceRestart int) bool {
	switch m.Kind {
	case StepsRunOnce:
		return stepsSinceRestart >= 1
	case StepsExactly:
		return stepsSinceRestart >= m.N
	}

	return false
}

func (m MaxSteps) String() string {
	switch m.Kind {
	case StepsUnspecified:
		return "unspecified"
	case StepsUnbounded:
		return "unbounded"
	case StepsInitialiseOnly:
		return "initialise only"
	case StepsRunOnce:
		return "run once"
	case StepsExactly:
		return fmt.Sprintf("%d steps", m.N)
	}

	return fmt.Sprintf("MaxSteps(%d, %d)", m.Kind, m.N)
}
