package component

import (
	"fmt"
)

// Base provides the phase bookkeeping of a component.
type Base struct {
	name       string
	state      State
	inProgress [Destroyed + 1]bool
}

// NewBase creates a Base in the Unconstructed state.
func NewBase(name string) *Base {
	return &Base{name: name}
}

// Name returns the name of the component.
func (b *Base) Name() string {
	return b.name
}

// State returns the furthest phase completed.
func (b *Base) State() State {
	return b.state
}

// Reached tells if the component has completed the phase s or is running it
// right now.
func (b *Base) Reached(s State) bool {
	return b.state >= s || b.inProgress[s]
}

// InProgress tells if the phase s is running.
func (b *Base) InProgress(s State) bool {
	return b.inProgress[s]
}

// Advance runs fn to move the component to state s.
//
// The phase is marked as reached before fn runs, so a call to Advance for the
// same phase made from within fn returns nil immediately. The mark is reset to
// its prior value when fn returns, whatever the outcome. The state only moves
// to s if fn succeeds. Every phase but Destroyed requires the previous one.
func (b *Base) Advance(s State, fn func() error) error {
	if b.Reached(s) {
		return nil
	}

	if s != Destroyed && b.state < s-1 {
		return fmt.Errorf("%w: %s cannot move from %s to %s",
			ErrInvalidState, b.name, b.state, s)
	}

	restore := b.enter(s)
	defer restore()

	if err := fn(); err != nil {
		return err
	}

	b.state = s

	return nil
}

func (b *Base) enter(s State) (restore func()) {
	prior := b.inProgress[s]
	b.inProgress[s] = true

	return func() { b.inProgress[s] = prior }
}
