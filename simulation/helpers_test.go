package simulation_test

import (
	"io"

	. "github.com/onsi/gomega"
	"github.com/sarchlab/stepper/hooking"
	"github.com/sarchlab/stepper/simulation"
)

func newTestBuilder(name string) simulation.Builder {
	return simulation.MakeBuilder().
		WithName(name).
		WithProgressWriter(io.Discard)
}

func voidEP(c *simulation.Context, name string) *hooking.VoidEntryPoint {
	ep, err := hooking.Typed[*hooking.VoidEntryPoint](c.Registry(), name)
	Expect(err).NotTo(HaveOccurred())

	return ep
}

func classEP(c *simulation.Context, name string) *hooking.ClassEntryPoint {
	ep, err := hooking.Typed[*hooking.ClassEntryPoint](c.Registry(), name)
	Expect(err).NotTo(HaveOccurred())

	return ep
}

func dtEP(c *simulation.Context) *hooking.DtEntryPoint {
	ep, err := hooking.Typed[*hooking.DtEntryPoint](
		c.Registry(), simulation.EntryPointDt)
	Expect(err).NotTo(HaveOccurred())

	return ep
}

func withConstantDt(c *simulation.Context, dt float64) {
	Expect(dtEP(c).Append("const",
		func() (float64, error) { return dt, nil }, "test")).To(Succeed())
}

// stepLog records the step index every time one of the entry points it is
// attached to runs.
type stepLog map[string][]int

func (l stepLog) attach(c *simulation.Context, names ...string) {
	for _, name := range names {
		Expect(voidEP(c, name).Append("log-"+name, func(data any) error {
			ctx := data.(*simulation.Context)
			l[name] = append(l[name], ctx.TimeStep())

			return nil
		}, "test")).To(Succeed())
	}
}

func steps(from, to int) []int {
	s := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		s = append(s, i)
	}

	return s
}
