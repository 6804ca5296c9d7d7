package monitoring

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/stepper/config"
	"github.com/sarchlab/stepper/hooking"
	"github.com/sarchlab/stepper/simulation"
)

func newMonitoredContext(m *Monitor) *simulation.Context {
	c := simulation.MakeBuilder().
		WithName("Sim").
		WithProgressWriter(io.Discard).
		Build()

	dt, err := hooking.Typed[*hooking.DtEntryPoint](
		c.Registry(), simulation.EntryPointDt)
	Expect(err).NotTo(HaveOccurred())
	Expect(dt.Append("const",
		func() (float64, error) { return 0.5, nil }, "test")).To(Succeed())

	Expect(m.RegisterContext(c)).To(Succeed())

	return c
}

type probe struct {
	Count int
	Label string
}

func (p *probe) Name() string      { return "Probe" }
func (p *probe) Build() error      { return nil }
func (p *probe) Initialise() error { return nil }
func (p *probe) Execute() error    { return nil }
func (p *probe) Destroy() error    { return nil }

func get(h http.Handler, url string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))

	return rec
}

var _ = Describe("Monitor", func() {
	var (
		m    *Monitor
		c    *simulation.Context
		dict config.Map
	)

	BeforeEach(func() {
		m = NewMonitor()
		c = newMonitoredContext(m)
		dict = config.Map{
			"outputPath":   GinkgoT().TempDir(),
			"maxTimeSteps": 3,
		}
	})

	It("should refuse privileged ports", func() {
		m.WithPortNumber(80)

		Expect(m.portNumber).To(Equal(0))
	})

	It("should follow the steps with a progress bar", func() {
		var seen []uint64

		solve, err := hooking.Typed[*hooking.VoidEntryPoint](
			c.Registry(), simulation.EntryPointSolve)
		Expect(err).NotTo(HaveOccurred())
		Expect(solve.Append("peek", func(any) error {
			Expect(m.progressBars).To(HaveLen(1))
			Expect(m.progressBars[0].Total).To(Equal(uint64(3)))
			seen = append(seen, m.progressBars[0].Finished)

			return nil
		}, "test")).To(Succeed())

		Expect(c.Construct(dict)).To(Succeed())
		Expect(c.Execute()).To(Succeed())

		Expect(seen).To(Equal([]uint64{0, 1, 2}))
		Expect(m.progressBars).To(BeEmpty())
	})

	It("should serve while the context changes its registries", func() {
		h := m.Handler()
		done := make(chan struct{})
		wg := sync.WaitGroup{}

		for _, url := range []string{
			"/api/list_components",
			"/api/entry_points",
			"/api/component/Probe",
		} {
			wg.Add(1)

			go func() {
				defer wg.Done()
				defer GinkgoRecover()

				for {
					select {
					case <-done:
						return
					default:
						get(h, url)
					}
				}
			}()
		}

		dump, err := hooking.Typed[*hooking.VoidEntryPoint](
			c.Registry(), simulation.EntryPointDump)
		Expect(err).NotTo(HaveOccurred())

		solve, err := hooking.Typed[*hooking.VoidEntryPoint](
			c.Registry(), simulation.EntryPointSolve)
		Expect(err).NotTo(HaveOccurred())
		Expect(solve.Append("noop",
			func(any) error { return nil }, "test")).To(Succeed())

		for i := 0; i < 50; i++ {
			Expect(c.LiveRegistry().Add(&probe{})).To(Succeed())
			Expect(dump.Append("extra-"+strconv.Itoa(i),
				func(any) error { return nil }, "extra")).To(Succeed())
			Expect(c.LiveRegistry().Remove("Probe")).To(BeTrue())
		}

		Expect(c.Construct(dict)).To(Succeed())
		Expect(c.Execute()).To(Succeed())
		Expect(c.Registry().RemoveOwner("extra")).To(Equal(50))
		Expect(c.Destroy()).To(Succeed())

		close(done)
		wg.Wait()
	})

	Context("when serving", func() {
		var h http.Handler

		BeforeEach(func() {
			h = m.Handler()
			Expect(c.Construct(dict)).To(Succeed())
			Expect(c.Initialise()).To(Succeed())
		})

		It("should report the time state", func() {
			rec := get(h, "/api/now")

			Expect(rec.Code).To(Equal(http.StatusOK))

			rsp := nowRsp{}
			Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
			Expect(rsp.Name).To(Equal("Sim"))
			Expect(rsp.Step).To(Equal(0))
		})

		It("should list the entry points with their hooks", func() {
			rec := get(h, "/api/entry_points")

			rsp := []entryPointRsp{}
			Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
			Expect(rsp).To(HaveLen(c.Registry().Len()))
			Expect(rsp[0].Name).To(Equal(simulation.EntryPointConstruct))

			var step entryPointRsp
			for _, ep := range rsp {
				if ep.Name == simulation.EntryPointStep {
					step = ep
				}
			}

			names := []string{}
			for _, hook := range step.Hooks {
				names = append(names, hook.Name)
			}
			Expect(names).To(Equal([]string{
				simulation.HookDefaultStep, HookAdvanceProgress}))
		})

		It("should list the live components", func() {
			rec := get(h, "/api/list_components")

			names := []string{}
			Expect(json.Unmarshal(rec.Body.Bytes(), &names)).To(Succeed())
			Expect(names).To(ContainElement("Sim"))
		})

		It("should describe a live component", func() {
			Expect(c.LiveRegistry().Add(&probe{Count: 7, Label: "p"})).
				To(Succeed())

			rec := get(h, "/api/component/Probe")

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring("Count"))
		})

		It("should answer 404 for unknown components", func() {
			rec := get(h, "/api/component/Nobody")

			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		It("should refuse a malformed field request", func() {
			rec := get(h, "/api/field/not-json")

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("should request a graceful quit", func() {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec,
				httptest.NewRequest(http.MethodPost, "/api/quit", nil))

			Expect(rec.Code).To(Equal(http.StatusAccepted))
			Expect(c.GracefulQuit()).To(BeTrue())
		})

		It("should only quit on POST", func() {
			rec := get(h, "/api/quit")

			Expect(rec.Code).To(Equal(http.StatusMethodNotAllowed))
			Expect(c.GracefulQuit()).To(BeFalse())
		})

		It("should report the progress bars", func() {
			bar := m.CreateProgressBar("files", 10)
			bar.IncrementInProgress(4)
			bar.MoveInProgressToFinished(3)

			rec := get(h, "/api/progress")

			rsp := []progressBarRsp{}
			Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
			Expect(rsp).To(HaveLen(1))
			Expect(rsp[0].Name).To(Equal("files"))
			Expect(rsp[0].Finished).To(Equal(uint64(3)))
			Expect(rsp[0].InProgress).To(Equal(uint64(1)))
		})

		It("should report the resources", func() {
			rec := get(h, "/api/resource")

			rsp := resourceRsp{}
			Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
			Expect(rsp.MemorySize).To(BeNumerically(">", 0))
		})

		It("should serve the page", func() {
			rec := get(h, "/")

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(strings.HasPrefix(rec.Body.String(), "<!DOCTYPE html>")).
				To(BeTrue())
		})
	})

	It("should start and stop the server", func() {
		url, err := m.StartServer()
		Expect(err).NotTo(HaveOccurred())
		Expect(url).To(HavePrefix("http://localhost:"))

		Expect(m.StopServer()).To(Succeed())
	})
})
