// Package hooking provides named, ordered, typed callback lists (entry points)
// and the registry that hands out stable handles for them.
package hooking

import "fmt"

// CastType names the calling convention shared by every hook of an entry
// point.
type CastType int

// Calling conventions.
const (
	// CastVoid hooks receive one opaque reference.
	CastVoid CastType = iota
	// CastPair hooks receive two opaque references.
	CastPair
	// CastConstruct hooks receive two opaque references. The dispatcher
	// re-resolves the entry point through its registry handle before each
	// hook.
	CastConstruct
	// CastDt hooks take no argument and return a time step size.
	CastDt
	// CastStep hooks receive one opaque reference and the time step size.
	CastStep
	// CastClass hooks receive the reference stored on the hook followed by
	// one opaque reference.
	CastClass
)

var castTypeNames = map[CastType]string{
	CastVoid:      "void",
	CastPair:      "pair",
	CastConstruct: "construct",
	CastDt:        "dt",
	CastStep:      "step",
	CastClass:     "class",
}

func (c CastType) String() string {
	if n, ok := castTypeNames[c]; ok {
		return n
	}

	return fmt.Sprintf("CastType(%d)", int(c))
}

// Hook function shapes, one per calling convention.
type (
	// VoidFunc is the shape of CastVoid hooks.
	VoidFunc func(data any) error
	// PairFunc is the shape of CastPair and CastConstruct hooks.
	PairFunc func(data0, data1 any) error
	// DtFunc is the shape of CastDt hooks.
	DtFunc func() (float64, error)
	// StepFunc is the shape of CastStep hooks.
	StepFunc func(data any, dt float64) error
	// ClassFunc is the shape of CastClass hooks. ref is the Ref stored on the
	// hook.
	ClassFunc func(ref, data any) error
)

// Hook is one named callback subscribed to an entry point.
type Hook[F any] struct {
	Name string
	Func F

	// Owner tags who added the hook. It is used for diagnostics and for
	// removing everything one collaborator added.
	Owner string

	// Ref is handed to CastClass hooks as their first argument.
	Ref any
}

// Pin tells where a hook sits relative to the ordinary hooks.
type Pin int

// Pin positions.
const (
	Unpinned Pin = iota
	PinnedFirst
	PinnedLast
)

func (p Pin) String() string {
	switch p {
	case PinnedFirst:
		return "first"
	case PinnedLast:
		return "last"
	default:
		return ""
	}
}

// HookInfo describes a registered hook without exposing its function.
type HookInfo struct {
	Name  string `json:"name"`
	Owner string `json:"owner"`
	Pin   Pin    `json:"pin"`
}
