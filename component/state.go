package component

import (
	"errors"
	"fmt"
)

// ErrInvalidState is returned when a phase is requested in a state that
// cannot reach it.
var ErrInvalidState = errors.New("invalid lifecycle state")

// State is the furthest lifecycle phase a component has completed.
type State int

// Lifecycle states. Transitions only move forward.
const (
	Unconstructed State = iota
	Constructed
	Built
	Initialised
	Executing
	Destroyed
)

var stateNames = [...]string{
	"Unconstructed",
	"Constructed",
	"Built",
	"Initialised",
	"Executing",
	"Destroyed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}

	return stateNames[s]
}
