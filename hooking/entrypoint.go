package hooking

import (
	"fmt"
	"log"
	"math"
)

// An EntryPoint is an ordered, typed multi-subscriber dispatch point. The
// typed Run method and the hook insertion methods live on the concrete types.
type EntryPoint interface {
	Name() string
	CastType() CastType
	NumHooks() int
	HookNames() []string
	HookInfos() []HookInfo
	HasHook(name string) bool
	Remove(name string) error
	RemoveByOwner(owner string) int
	Purge()
}

// New creates an empty entry point of the given calling convention.
func New(name string, castType CastType) EntryPoint {
	switch castType {
	case CastVoid:
		return NewVoidEntryPoint(name)
	case CastPair:
		return NewPairEntryPoint(name)
	case CastConstruct:
		return NewConstructEntryPoint(name)
	case CastDt:
		return NewDtEntryPoint(name)
	case CastStep:
		return NewStepEntryPoint(name)
	case CastClass:
		return NewClassEntryPoint(name)
	}

	log.Panicf("unknown cast type %d for entry point %s", castType, name)

	return nil
}

// VoidEntryPoint dispatches hooks that receive one reference.
type VoidEntryPoint struct {
	HookList[VoidFunc]
}

// NewVoidEntryPoint creates a VoidEntryPoint.
func NewVoidEntryPoint(name string) *VoidEntryPoint {
	e := &VoidEntryPoint{}
	e.init(name, CastVoid)

	return e
}

// Run invokes every hook in order and stops at the first error.
func (e *VoidEntryPoint) Run(data any) error {
	for _, h := range e.Hooks() {
		if err := h.Func(data); err != nil {
			return e.hookErr(h.Name, err)
		}
	}

	return nil
}

// PairEntryPoint dispatches hooks that receive two references. The construct
// variant re-resolves itself through the registry before each hook, so a hook
// may replace the entry point that occupies its handle while it is being run.
type PairEntryPoint struct {
	HookList[PairFunc]

	dispatch func(e *PairEntryPoint, data0, data1 any) error
	registry *Registry
	handle   Handle
}

// NewPairEntryPoint creates a PairEntryPoint.
func NewPairEntryPoint(name string) *PairEntryPoint {
	e := &PairEntryPoint{dispatch: runPair}
	e.init(name, CastPair)

	return e
}

// NewConstructEntryPoint creates a PairEntryPoint with the re-resolving
// dispatcher. Until it is added to a Registry it behaves like a plain pair
// entry point.
func NewConstructEntryPoint(name string) *PairEntryPoint {
	e := &PairEntryPoint{dispatch: runConstruct}
	e.init(name, CastConstruct)

	return e
}

// Run invokes every hook in order and stops at the first error.
func (e *PairEntryPoint) Run(data0, data1 any) error {
	return e.dispatch(e, data0, data1)
}

func (e *PairEntryPoint) bind(r *Registry, h Handle) {
	e.registry = r
	e.handle = h
}

func runPair(e *PairEntryPoint, data0, data1 any) error {
	for _, h := range e.Hooks() {
		if err := h.Func(data0, data1); err != nil {
			return e.hookErr(h.Name, err)
		}
	}

	return nil
}

func runConstruct(e *PairEntryPoint, data0, data1 any) error {
	for i := 0; ; i++ {
		current := e.current()

		h, ok := current.hookAt(i)
		if !ok {
			return nil
		}

		if err := h.Func(data0, data1); err != nil {
			return current.hookErr(h.Name, err)
		}
	}
}

func (e *PairEntryPoint) current() *PairEntryPoint {
	if e.registry == nil {
		return e
	}

	current, ok := e.registry.At(e.handle).(*PairEntryPoint)
	if !ok {
		log.Panicf("entry point at handle %d is no longer a pair entry point",
			e.handle)
	}

	return current
}

// DtEntryPoint dispatches hooks that compute a time step size.
type DtEntryPoint struct {
	HookList[DtFunc]
}

// NewDtEntryPoint creates a DtEntryPoint.
func NewDtEntryPoint(name string) *DtEntryPoint {
	e := &DtEntryPoint{}
	e.init(name, CastDt)

	return e
}

// Run invokes every hook and returns the smallest value returned. ok is false
// when there is no hook to ask.
func (e *DtEntryPoint) Run() (dt float64, ok bool, err error) {
	hooks := e.Hooks()
	if len(hooks) == 0 {
		return 0, false, nil
	}

	dt = math.Inf(1)

	for _, h := range hooks {
		v, err := h.Func()
		if err != nil {
			return 0, false, e.hookErr(h.Name, err)
		}

		dt = math.Min(dt, v)
	}

	return dt, true, nil
}

// StepEntryPoint dispatches hooks that advance by a time step.
type StepEntryPoint struct {
	HookList[StepFunc]
}

// NewStepEntryPoint creates a StepEntryPoint.
func NewStepEntryPoint(name string) *StepEntryPoint {
	e := &StepEntryPoint{}
	e.init(name, CastStep)

	return e
}

// Run invokes every hook in order and stops at the first error.
func (e *StepEntryPoint) Run(data any, dt float64) error {
	for _, h := range e.Hooks() {
		if err := h.Func(data, dt); err != nil {
			return e.hookErr(h.Name, err)
		}
	}

	return nil
}

// ClassEntryPoint dispatches hooks that carry their own reference, typically
// the collaborator that registered them.
type ClassEntryPoint struct {
	HookList[ClassFunc]
}

// NewClassEntryPoint creates a ClassEntryPoint.
func NewClassEntryPoint(name string) *ClassEntryPoint {
	e := &ClassEntryPoint{}
	e.init(name, CastClass)

	return e
}

// AppendWithRef adds an ordinary hook that will be called with ref.
func (e *ClassEntryPoint) AppendWithRef(
	name string,
	fn ClassFunc,
	owner string,
	ref any,
) error {
	return e.Insert(Append, Hook[ClassFunc]{
		Name:  name,
		Func:  fn,
		Owner: owner,
		Ref:   ref,
	})
}

// Run invokes every hook in order and stops at the first error.
func (e *ClassEntryPoint) Run(data any) error {
	for _, h := range e.Hooks() {
		if err := h.Func(h.Ref, data); err != nil {
			return e.hookErr(h.Name, err)
		}
	}

	return nil
}

// Typed fetches an entry point by name and checks its concrete type.
func Typed[T EntryPoint](r *Registry, name string) (T, error) {
	var zero T

	ep, err := r.Lookup(name)
	if err != nil {
		return zero, err
	}

	typed, ok := ep.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is a %s entry point",
			ErrCastMismatch, name, ep.CastType())
	}

	return typed, nil
}
