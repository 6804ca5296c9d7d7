// Package monitoring turns a running simulation into a web server that
// reports its progress and lets a user inspect and stop it.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/rs/xid"
	"github.com/sarchlab/stepper/component"
	"github.com/sarchlab/stepper/hooking"
	"github.com/sarchlab/stepper/monitoring/web"
	"github.com/sarchlab/stepper/simulation"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// Names of the hooks a Monitor adds to the context it watches.
const (
	HookStartProgress    = "MonitorStartProgress"
	HookAdvanceProgress  = "MonitorAdvanceProgress"
	HookCompleteProgress = "MonitorCompleteProgress"
)

// Monitor can turn a simulation into a server and allows external monitoring
// and controlling of the simulation.
type Monitor struct {
	sim         *simulation.Context
	portNumber  int
	openBrowser bool
	profileTime time.Duration
	server      *http.Server

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
	stepBar          *ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{profileTime: time.Second}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithBrowser makes the monitor open its page in a browser once the server
// is up.
func (m *Monitor) WithBrowser(open bool) *Monitor {
	m.openBrowser = open
	return m
}

// WithProfileDuration sets how long the CPU is sampled when a profile is
// requested.
func (m *Monitor) WithProfileDuration(d time.Duration) *Monitor {
	m.profileTime = d
	return m
}

// RegisterContext sets the context to be monitored. A step progress bar
// follows the time-stepping loop of the context.
func (m *Monitor) RegisterContext(c *simulation.Context) error {
	m.sim = c
	owner := c.Name() + ".Monitor"

	execute, err := hooking.Typed[*hooking.VoidEntryPoint](
		c.Registry(), simulation.EntryPointExecute)
	if err != nil {
		return err
	}

	err = execute.Prepend(HookStartProgress, m.startProgress, owner)
	if err != nil {
		return err
	}

	err = execute.Append(HookCompleteProgress, m.completeProgress, owner)
	if err != nil {
		return err
	}

	return hooking.Register(c.Registry(), simulation.EntryPointStep,
		hooking.Append, hooking.Hook[hooking.StepFunc]{
			Name:  HookAdvanceProgress,
			Func:  m.advanceProgress,
			Owner: owner,
		})
}

func (m *Monitor) startProgress(any) error {
	m.stepBar = m.CreateProgressBar(m.sim.Name()+" steps", m.expectedSteps())

	return nil
}

func (m *Monitor) expectedSteps() uint64 {
	maxSteps := m.sim.MaxSteps()

	switch maxSteps.Kind {
	case simulation.StepsExactly:
		return uint64(maxSteps.N)
	case simulation.StepsRunOnce:
		return 1
	case simulation.StepsInitialiseOnly:
		return 0
	}

	final := m.sim.Settings().FinalTimeStep
	if final > m.sim.TimeStep() {
		return uint64(final - m.sim.TimeStep())
	}

	return 0
}

func (m *Monitor) advanceProgress(any, float64) error {
	if m.stepBar != nil {
		m.stepBar.IncrementFinished(1)
	}

	return nil
}

func (m *Monitor) completeProgress(any) error {
	if m.stepBar != nil {
		m.CompleteProgressBar(m.stepBar)
		m.stepBar = nil
	}

	return nil
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		Total:     total,
		StartTime: time.Now(),
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Handler returns the router that serves the monitoring API and pages.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/entry_points", m.listEntryPoints)
	r.HandleFunc("/api/list_components", m.listComponents)
	r.HandleFunc("/api/component/{name}", m.listComponentDetails)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/quit", m.quit).Methods(http.MethodPost)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts the monitor as a web server and returns its URL.
func (m *Monitor) StartServer() (string, error) {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(m.portNumber))
	if err != nil {
		return "", fmt.Errorf("start monitor: %w", err)
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	m.server = &http.Server{
		Handler:           m.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		err := m.server.Serve(listener)
		if err != nil && err != http.ErrServerClosed {
			log.Panic(err)
		}
	}()

	if m.openBrowser {
		browser.Stdout = os.Stderr
		if err := browser.OpenURL(url); err != nil {
			log.Printf("monitor: cannot open browser: %v", err)
		}
	}

	return url, nil
}

// StopServer shuts the server down.
func (m *Monitor) StopServer() error {
	if m.server == nil {
		return nil
	}

	return m.server.Close()
}

type nowRsp struct {
	Name string  `json:"name"`
	Step int     `json:"step"`
	Time float64 `json:"time"`
	Dt   float64 `json:"dt"`
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, nowRsp{
		Name: m.sim.Name(),
		Step: m.sim.TimeStep(),
		Time: m.sim.CurrentTime(),
		Dt:   m.sim.TimeStepSize(),
	})
}

type entryPointRsp struct {
	Name     string             `json:"name"`
	CastType string             `json:"cast_type"`
	Hooks    []hooking.HookInfo `json:"hooks"`
}

func (m *Monitor) listEntryPoints(w http.ResponseWriter, _ *http.Request) {
	eps := m.sim.Registry().EntryPoints()
	rsp := make([]entryPointRsp, 0, len(eps))

	for _, ep := range eps {
		rsp = append(rsp, entryPointRsp{
			Name:     ep.Name(),
			CastType: ep.CastType().String(),
			Hooks:    ep.HookInfos(),
		})
	}

	writeJSON(w, rsp)
}

func (m *Monitor) listComponents(w http.ResponseWriter, _ *http.Request) {
	comps := m.sim.LiveRegistry().Components()
	names := make([]string, 0, len(comps))

	for _, c := range comps {
		names = append(names, c.Name())
	}

	writeJSON(w, names)
}

func (m *Monitor) listComponentDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	comp := m.findComponentOr404(w, name)
	if comp == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(comp)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

type fieldReq struct {
	CompName  string `json:"comp_name,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	req := fieldReq{}

	err := json.Unmarshal([]byte(mux.Vars(r)["json"]), &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	comp := m.findComponentOr404(w, req.CompName)
	if comp == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(comp)
	serializer.SetMaxDepth(1)

	err = serializer.SetEntryPoint(strings.Split(req.FieldName, "."))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = serializer.Serialize(w)
	dieOnErr(err)
}

func (m *Monitor) quit(w http.ResponseWriter, _ *http.Request) {
	m.sim.RequestGracefulQuit()
	w.WriteHeader(http.StatusAccepted)
}

func (m *Monitor) findComponentOr404(
	w http.ResponseWriter,
	name string,
) component.Component {
	comp, ok := m.sim.LiveRegistry().Get(name)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Component not found"))
		dieOnErr(err)

		return nil
	}

	return comp
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]progressBarRsp, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}
	m.progressBarsLock.Unlock()

	writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(m.profileTime)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
