package simulation_test

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/stepper/component"
	"github.com/sarchlab/stepper/config"
	"github.com/sarchlab/stepper/hooking"
	"github.com/sarchlab/stepper/simulation"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Context", func() {
	var (
		dir  string
		dict config.Map
		c    *simulation.Context
		log  stepLog
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		dict = config.Map{"outputPath": dir}
		log = stepLog{}
		c = newTestBuilder("sim").Build()
	})

	run := func() error {
		if err := c.Construct(dict); err != nil {
			return err
		}

		return c.Execute()
	}

	It("should create every well-known entry point", func() {
		for _, name := range []string{
			simulation.EntryPointConstruct,
			simulation.EntryPointBuild,
			simulation.EntryPointDt,
			simulation.EntryPointStep,
			simulation.EntryPointSolve,
			simulation.EntryPointSave,
			simulation.EntryPointDumpClass,
		} {
			_, err := c.EntryPoint(name)
			Expect(err).NotTo(HaveOccurred())
		}

		_, err := c.EntryPoint("no-such-entry-point")
		Expect(errors.Is(err, hooking.ErrEntryPointNotFound)).To(BeTrue())
	})

	It("should run exactly the requested number of steps", func() {
		dict["maxTimeSteps"] = 7
		withConstantDt(c, 0.5)
		log.attach(c, simulation.EntryPointSolve)

		Expect(run()).To(Succeed())

		Expect(log[simulation.EntryPointSolve]).To(Equal(steps(1, 7)))
		Expect(c.TimeStep()).To(Equal(7))
		Expect(c.TimeStepSinceRestart()).To(Equal(7))
		Expect(c.CurrentTime()).To(Equal(3.0))
		Expect(c.TimeStepSize()).To(Equal(0.5))
		Expect(c.State()).To(Equal(component.Executing))
	})

	It("should fire the periodic outputs independently", func() {
		dict["maxTimeSteps"] = 15
		dict["frequentOutputEvery"] = 3
		dict["dumpEvery"] = 5
		dict["checkpointEvery"] = 0
		dict["saveDataEvery"] = 0
		log.attach(c,
			simulation.EntryPointSolve,
			simulation.EntryPointFrequentOutput,
			simulation.EntryPointDump,
			simulation.EntryPointSave,
			simulation.EntryPointDataSave,
		)

		Expect(run()).To(Succeed())

		Expect(log[simulation.EntryPointSolve]).To(HaveLen(15))
		Expect(log[simulation.EntryPointFrequentOutput]).
			To(Equal([]int{3, 6, 9, 12, 15}))
		Expect(log[simulation.EntryPointDump]).To(Equal([]int{5, 10, 15}))
		Expect(log[simulation.EntryPointSave]).To(BeEmpty())
		Expect(log[simulation.EntryPointDataSave]).To(BeEmpty())
	})

	It("should leave dumps to the collaborators in step dump mode", func() {
		dict["maxTimeSteps"] = 4
		dict["dumpEvery"] = 1
		dict["stepDump"] = true
		log.attach(c, simulation.EntryPointSolve, simulation.EntryPointDump)

		Expect(run()).To(Succeed())

		Expect(log[simulation.EntryPointDump]).To(BeEmpty())
	})

	It("should run the solve sequence in order", func() {
		dict["maxTimeSteps"] = 1

		var order []string
		record := func(name string) {
			order = append(order, name)
		}

		classHook := func(name string) hooking.ClassFunc {
			return func(ref, data any) error {
				Expect(ref).To(Equal("collaborator"))
				record(name)

				return nil
			}
		}

		Expect(classEP(c, simulation.EntryPointUpdateClass).AppendWithRef(
			"u", classHook("update-class"), "test", "collaborator")).
			To(Succeed())
		Expect(classEP(c, simulation.EntryPointPreSolveClass).AppendWithRef(
			"pre", classHook("pre-solve-class"), "test", "collaborator")).
			To(Succeed())
		Expect(voidEP(c, simulation.EntryPointSync).Append("sync",
			func(any) error { record("sync"); return nil }, "test")).
			To(Succeed())
		Expect(voidEP(c, simulation.EntryPointSolve).Append("solve",
			func(any) error { record("solve"); return nil }, "test")).
			To(Succeed())
		Expect(voidEP(c, simulation.EntryPointPostSolve).Append("post",
			func(any) error { record("post-solve"); return nil }, "test")).
			To(Succeed())
		Expect(classEP(c, simulation.EntryPointPostSolveClass).AppendWithRef(
			"postc", classHook("post-solve-class"), "test", "collaborator")).
			To(Succeed())

		Expect(run()).To(Succeed())

		Expect(order).To(Equal([]string{
			"update-class", "sync",
			"pre-solve-class", "solve", "post-solve", "post-solve-class",
		}))
	})

	It("should fail when nothing solves", func() {
		dict["maxTimeSteps"] = 3

		err := run()

		Expect(errors.Is(err, simulation.ErrNoHooks)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring(simulation.EntryPointSolve))
	})

	It("should apply only the initial condition without a step bound", func() {
		log.attach(c,
			simulation.EntryPointSolve,
			simulation.EntryPointFrequentOutput,
			simulation.EntryPointDump,
		)

		Expect(run()).To(Succeed())

		Expect(c.MaxSteps().Kind).To(Equal(simulation.StepsInitialiseOnly))
		Expect(log[simulation.EntryPointSolve]).To(BeEmpty())
		Expect(log[simulation.EntryPointFrequentOutput]).To(Equal([]int{0}))
		Expect(log[simulation.EntryPointDump]).To(Equal([]int{0}))
	})

	It("should only output in visual only mode", func() {
		dict["maxTimeSteps"] = 10
		dict["visualOnly"] = true
		log.attach(c,
			simulation.EntryPointSolve,
			simulation.EntryPointFrequentOutput,
			simulation.EntryPointDump,
		)

		Expect(run()).To(Succeed())

		Expect(c.GracefulQuit()).To(BeTrue())
		Expect(log[simulation.EntryPointSolve]).To(BeEmpty())
		Expect(log[simulation.EntryPointFrequentOutput]).To(HaveLen(1))
		Expect(log[simulation.EntryPointDump]).To(HaveLen(1))
	})

	It("should stop after the step a graceful quit is requested in", func() {
		dict["maxTimeSteps"] = -2
		dict["frequentOutputEvery"] = 0
		log.attach(c, simulation.EntryPointFrequentOutput)
		Expect(voidEP(c, simulation.EntryPointSolve).Append("quit",
			func(data any) error {
				ctx := data.(*simulation.Context)
				if ctx.TimeStep() == 3 {
					ctx.RequestGracefulQuit()
				}

				return nil
			}, "test")).To(Succeed())

		Expect(run()).To(Succeed())

		Expect(c.TimeStep()).To(Equal(3))
		Expect(log[simulation.EntryPointFrequentOutput]).To(Equal([]int{3}))
	})

	It("should not repeat the outputs of the step a quit is requested in",
		func() {
			dict["maxTimeSteps"] = -2
			dict["frequentOutputEvery"] = 1
			dict["dumpEvery"] = 1
			log.attach(c,
				simulation.EntryPointFrequentOutput,
				simulation.EntryPointDump,
			)
			Expect(voidEP(c, simulation.EntryPointSolve).Append("quit",
				func(data any) error {
					ctx := data.(*simulation.Context)
					if ctx.TimeStep() == 3 {
						ctx.RequestGracefulQuit()
					}

					return nil
				}, "test")).To(Succeed())

			Expect(run()).To(Succeed())

			Expect(log[simulation.EntryPointFrequentOutput]).
				To(Equal([]int{1, 2, 3}))
			Expect(log[simulation.EntryPointDump]).To(Equal([]int{1, 2, 3}))
		})

	Describe("termination", func() {
		BeforeEach(func() {
			log.attach(c, simulation.EntryPointSolve)
		})

		It("should stop at the final time step", func() {
			dict["finalTimeStep"] = 4

			Expect(run()).To(Succeed())

			Expect(c.MaxSteps().Kind).To(Equal(simulation.StepsUnbounded))
			Expect(log[simulation.EntryPointSolve]).To(Equal(steps(1, 4)))
		})

		It("should stop when the stop time is reached", func() {
			dict["end"] = 1.0
			withConstantDt(c, 0.1)

			Expect(run()).To(Succeed())

			Expect(log[simulation.EntryPointSolve]).To(Equal(steps(1, 10)))
		})

		It("should not stop at a stop time equal to the start time", func() {
			dict["start"] = 0
			dict["end"] = 0
			dict["maxTimeSteps"] = 4
			withConstantDt(c, 0.5)

			Expect(run()).To(Succeed())

			Expect(log[simulation.EntryPointSolve]).To(Equal(steps(1, 4)))
		})

		It("should fail when only a stop time bounds a run without dt",
			func() {
				dict["end"] = 1.0

				err := run()

				Expect(errors.Is(err, simulation.ErrNoHooks)).To(BeTrue())
				Expect(log[simulation.EntryPointSolve]).To(BeEmpty())
			})

		It("should accept the legacy start and stop keys", func() {
			dict["startTime"] = 2.0
			dict["stopTime"] = 3.0
			withConstantDt(c, 0.25)

			Expect(run()).To(Succeed())

			Expect(log[simulation.EntryPointSolve]).To(HaveLen(4))
			Expect(c.CurrentTime()).To(Equal(2.75))
		})

		It("should let the step budget win over other bounds", func() {
			dict["maxTimeSteps"] = 2
			dict["finalTimeStep"] = 5
			dict["end"] = 100.0
			withConstantDt(c, 1)

			Expect(run()).To(Succeed())

			Expect(log[simulation.EntryPointSolve]).To(Equal([]int{1, 2}))
		})

		It("should run once", func() {
			dict["maxTimeSteps"] = 0

			Expect(run()).To(Succeed())

			Expect(log[simulation.EntryPointSolve]).To(Equal([]int{1}))
		})
	})

	Describe("dt", func() {
		BeforeEach(func() {
			log.attach(c, simulation.EntryPointSolve)
		})

		It("should take the smallest proposed step size", func() {
			dict["maxTimeSteps"] = 2
			withConstantDt(c, 0.5)
			Expect(dtEP(c).Append("cfl",
				func() (float64, error) { return 0.125, nil }, "test")).
				To(Succeed())

			Expect(run()).To(Succeed())

			Expect(c.TimeStepSize()).To(Equal(0.125))
			Expect(c.CurrentTime()).To(Equal(0.125))
		})

		It("should reject a negative step size", func() {
			dict["maxTimeSteps"] = 2
			withConstantDt(c, -1)

			Expect(run()).To(MatchError(ContainSubstring("invalid time step")))
		})

		It("should keep the step size without dt hooks", func() {
			dict["maxTimeSteps"] = 3

			Expect(run()).To(Succeed())

			Expect(c.TimeStepSize()).To(Equal(0.0))
			Expect(c.CurrentTime()).To(Equal(0.0))
		})
	})

	Describe("lifecycle", func() {
		var (
			mockCtrl *gomock.Controller
			factory  *MockFactory
			compA    *MockComponent
			compB    *MockComponent
		)

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
			factory = NewMockFactory(mockCtrl)
			compA = NewMockComponent(mockCtrl)
			compB = NewMockComponent(mockCtrl)
			compA.EXPECT().Name().Return("A").AnyTimes()
			compB.EXPECT().Name().Return("B").AnyTimes()

			c = newTestBuilder("sim").WithFactory(factory).Build()
			factory.EXPECT().Instantiate(gomock.Any()).
				Return([]component.Component{compA, compB}, nil).
				AnyTimes()
		})

		AfterEach(func() {
			mockCtrl.Finish()
		})

		It("should build and initialise the live components once", func() {
			compA.EXPECT().Build().Return(nil)
			compB.EXPECT().Build().Return(nil)
			compA.EXPECT().Initialise().Return(nil)
			compB.EXPECT().Initialise().Return(nil)

			builds := 0
			Expect(voidEP(c, simulation.EntryPointBuild).Append("count",
				func(any) error { builds++; return nil }, "test")).
				To(Succeed())

			Expect(c.Construct(dict)).To(Succeed())
			Expect(c.LiveRegistry().Len()).To(Equal(3))

			Expect(c.Build()).To(Succeed())
			Expect(c.Build()).To(Succeed())
			Expect(c.Initialise()).To(Succeed())

			Expect(builds).To(Equal(1))
			Expect(c.State()).To(Equal(component.Initialised))
			Expect(c.InProgress(component.Built)).To(BeFalse())
		})

		It("should refuse to build before construction", func() {
			c = newTestBuilder("other").Build()

			err := c.Build()

			Expect(errors.Is(err, component.ErrInvalidState)).To(BeTrue())
		})

		It("should destroy the components in reverse order", func() {
			gomock.InOrder(
				compB.EXPECT().Destroy().Return(nil),
				compA.EXPECT().Destroy().Return(nil),
			)

			var seen []int
			Expect(voidEP(c, simulation.EntryPointDestroyExtensions).Append(
				"ext", func(data any) error {
					ctx := data.(*simulation.Context)
					seen = append(seen, ctx.LiveRegistry().Len())

					return nil
				}, "test")).To(Succeed())

			Expect(c.Construct(dict)).To(Succeed())
			Expect(c.Destroy()).To(Succeed())
			Expect(c.Destroy()).To(Succeed())

			Expect(seen).To(Equal([]int{0}))
			Expect(c.State()).To(Equal(component.Destroyed))
		})

		It("should report a failing component", func() {
			compA.EXPECT().Build().Return(errors.New("broken"))

			Expect(c.Construct(dict)).To(Succeed())

			err := c.Build()

			Expect(err).To(MatchError(ContainSubstring("broken")))
			Expect(c.State()).To(Equal(component.Constructed))
		})
	})

	It("should write progress lines", func() {
		buf := &bytes.Buffer{}
		c = newTestBuilder("sim").WithProgressWriter(buf).Build()
		dict["maxTimeSteps"] = 2
		log.attach(c, simulation.EntryPointSolve)
		withConstantDt(c, 0.5)

		Expect(run()).To(Succeed())

		Expect(buf.String()).To(Equal(
			"sim: step 1, time 0, dt 0.5\n" +
				"sim: step 2, time 0.5, dt 0.5\n"))
	})

	It("should refuse a malformed configuration", func() {
		dict["dumpEvery"] = -1

		err := c.Construct(dict)

		Expect(errors.Is(err, config.ErrMalformed)).To(BeTrue())
		Expect(c.State()).To(Equal(component.Unconstructed))
	})

	It("should fail when the output path cannot be created", func() {
		blocker := filepath.Join(dir, "file")
		Expect(os.WriteFile(blocker, nil, 0o644)).To(Succeed())
		dict["outputPath"] = filepath.Join(blocker, "out")

		Expect(c.Construct(dict)).To(Succeed())
		err := c.Initialise()

		Expect(err).To(MatchError(ContainSubstring("prepare output")))
	})

	It("should stop on the first failing hook", func() {
		dict["maxTimeSteps"] = 5
		Expect(voidEP(c, simulation.EntryPointSolve).Append("fail",
			func(data any) error {
				ctx := data.(*simulation.Context)
				if ctx.TimeStep() == 2 {
					return fmt.Errorf("diverged")
				}

				return nil
			}, "test")).To(Succeed())

		err := run()

		Expect(err).To(MatchError(ContainSubstring("diverged")))
		Expect(c.TimeStep()).To(Equal(2))
	})
})
