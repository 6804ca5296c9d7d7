package simulation

import "github.com/sarchlab/stepper/hooking"

// Names of the entry points every Context creates.
const (
	EntryPointConstruct           = "construct"
	EntryPointConstructExtensions = "construct-extensions"
	EntryPointBuild               = "build"
	EntryPointInitialise          = "initialise"
	EntryPointExecute             = "execute"
	EntryPointDestroy             = "destroy"
	EntryPointDestroyExtensions   = "destroy-extensions"
	EntryPointDt                  = "dt"
	EntryPointStep                = "step"
	EntryPointUpdateClass         = "update-class"
	EntryPointPreSolveClass       = "pre-solve-class"
	EntryPointSolve               = "solve"
	EntryPointPostSolve           = "post-solve"
	EntryPointPostSolveClass      = "post-solve-class"
	EntryPointSync                = "sync"
	EntryPointFrequentOutput      = "frequent-output"
	EntryPointDump                = "dump"
	EntryPointDumpClass           = "dump-class"
	EntryPointSave                = "save"
	EntryPointDataSave            = "data-save"
)

type handles struct {
	construct           hooking.Handle
	constructExtensions hooking.Handle
	build               hooking.Handle
	initialise          hooking.Handle
	execute             hooking.Handle
	destroy             hooking.Handle
	destroyExtensions   hooking.Handle
	dt                  hooking.Handle
	step                hooking.Handle
	updateClass         hooking.Handle
	preSolveClass       hooking.Handle
	solve               hooking.Handle
	postSolve           hooking.Handle
	postSolveClass      hooking.Handle
	sync                hooking.Handle
	frequentOutput      hooking.Handle
	dump                hooking.Handle
	dumpClass           hooking.Handle
	save                hooking.Handle
	dataSave            hooking.Handle
}

type wellKnownEntryPoint struct {
	name     string
	castType hooking.CastType
	handle   func(k *handles) *hooking.Handle
}

// Registration order is the phase order, which is also the order entry
// points are listed in.
var wellKnownEntryPoints = []wellKnownEntryPoint{
	{EntryPointConstruct, hooking.CastConstruct,
		func(k *handles) *hooking.Handle { return &k.construct }},
	{EntryPointConstructExtensions, hooking.CastPair,
		func(k *handles) *hooking.Handle { return &k.constructExtensions }},
	{EntryPointBuild, hooking.CastVoid,
		func(k *handles) *hooking.Handle { return &k.build }},
	{EntryPointInitialise, hooking.CastVoid,
		func(k *handles) *hooking.Handle { return &k.initialise }},
	{EntryPointExecute, hooking.CastVoid,
		func(k *handles) *hooking.Handle { return &k.execute }},
	{EntryPointDestroy, hooking.CastVoid,
		func(k *handles) *hooking.Handle { return &k.destroy }},
	{EntryPointDestroyExtensions, hooking.CastVoid,
		func(k *handles) *hooking.Handle { return &k.destroyExtensions }},
	{EntryPointDt, hooking.CastDt,
		func(k *handles) *hooking.Handle { return &k.dt }},
	{EntryPointStep, hooking.CastStep,
		func(k *handles) *hooking.Handle { return &k.step }},
	{EntryPointUpdateClass, hooking.CastClass,
		func(k *handles) *hooking.Handle { return &k.updateClass }},
	{EntryPointPreSolveClass, hooking.CastClass,
		func(k *handles) *hooking.Handle { return &k.preSolveClass }},
	{EntryPointSolve, hooking.CastVoid,
		func(k *handles) *hooking.Handle { return &k.solve }},
	{EntryPointPostSolve, hooking.CastVoid,
		func(k *handles) *hooking.Handle { return &k.postSolve }},
	{EntryPointPostSolveClass, hooking.CastClass,
		func(k *handles) *hooking.Handle { return &k.postSolveClass }},
	{EntryPointSync, hooking.CastVoid,
		func(k *handles) *hooking.Handle { return &k.sync }},
	{EntryPointFrequentOutput, hooking.CastVoid,
		func(k *handles) *hooking.Handle { return &k.frequentOutput }},
	{EntryPointDump, hooking.CastVoid,
		func(k *handles) *hooking.Handle { return &k.dump }},
	{EntryPointDumpClass, hooking.CastClass,
		func(k *handles) *hooking.Handle { return &k.dumpClass }},
	{EntryPointSave, hooking.CastVoid,
		func(k *handles) *hooking.Handle { return &k.save }},
	{EntryPointDataSave, hooking.CastVoid,
		func(k *handles) *hooking.Handle { return &k.dataSave }},
}

func registerWellKnownEntryPoints(r *hooking.Registry) handles {
	k := handles{}
	for _, w := range wellKnownEntryPoints {
		*w.handle(&k) = r.Add(hooking.New(w.name, w.castType))
	}

	return k
}

func (c *Context) void(h hooking.Handle) *hooking.VoidEntryPoint {
	return c.registry.At(h).(*hooking.VoidEntryPoint)
}

func (c *Context) pair(h hooking.Handle) *hooking.PairEntryPoint {
	return c.registry.At(h).(*hooking.PairEntryPoint)
}

func (c *Context) class(h hooking.Handle) *hooking.ClassEntryPoint {
	return c.registry.At(h).(*hooking.ClassEntryPoint)
}

func (c *Context) stepEntryPoint() *hooking.StepEntryPoint {
	return c.registry.At(c.k.step).(*hooking.StepEntryPoint)
}

func (c *Context) dtEntryPoint() *hooking.DtEntryPoint {
	return c.registry.At(c.k.dt).(*hooking.DtEntryPoint)
}
