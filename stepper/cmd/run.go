package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sarchlab/stepper/component"
	"github.com/sarchlab/stepper/config"
	"github.com/sarchlab/stepper/datarecording"
	"github.com/sarchlab/stepper/extension"
	"github.com/sarchlab/stepper/monitoring"
	"github.com/sarchlab/stepper/simulation"
	"github.com/sarchlab/stepper/telemetry"
	"github.com/spf13/cobra"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions

	Name         string
	Restart      int
	MaxSteps     int
	Record       bool
	Monitor      bool
	MonitorPort  int
	OpenBrowser  bool
	OTelEndpoint string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <config.yaml>",
		Short: "Run a simulation",
		Long: `Run the simulation described by a YAML configuration file.

Lua modules listed under the extensions key are loaded relative to the
directory of the configuration file. An interrupt requests a graceful quit:
the current step completes and the final outputs are written.

Example:
  stepper run examples/decay/decay.yaml
  stepper run --restart 40 --max-steps 20 examples/decay/decay.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "",
		"name of the simulation context")
	cmd.Flags().IntVar(&opts.Restart, "restart", -1,
		"restart from the checkpoint of this step")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", 0,
		"number of steps to take, overriding maxTimeSteps")
	cmd.Flags().BoolVar(&opts.Record, "record", false,
		"record every step into a SQLite database")
	cmd.Flags().BoolVar(&opts.Monitor, "monitor", false,
		"serve the monitoring page while the simulation runs")
	cmd.Flags().IntVar(&opts.MonitorPort, "monitor-port", 0,
		"port of the monitoring server, random when 0")
	cmd.Flags().BoolVar(&opts.OpenBrowser, "open-browser", false,
		"open the monitoring page in a browser")
	cmd.Flags().StringVar(&opts.OTelEndpoint, "otel-endpoint", "",
		"OTLP/HTTP endpoint that receives the traces of the run")

	return cmd
}

func runSimulation(cmd *cobra.Command, opts *RunOptions, path string) error {
	dict, env, err := loadDictionary(path, opts.EnvFile)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("restart") {
		dict["restartTimestep"] = opts.Restart
	}

	if cmd.Flags().Changed("max-steps") {
		dict["maxTimeSteps"] = opts.MaxSteps
	}

	endpoint := opts.OTelEndpoint
	if endpoint == "" {
		endpoint = env.OTelEndpoint
	}

	shutdown, err := telemetry.Setup(cmd.Context(), "stepper", endpoint)
	if err != nil {
		return err
	}
	defer func() { _ = shutdown(context.Background()) }()

	c := simulation.MakeBuilder().
		WithName(opts.Name).
		WithModuleLoader(extension.NewLoader(filepath.Dir(path))).
		WithFactory(component.FactoryFunc(opts.instantiate)).
		WithProgressWriter(cmd.ErrOrStderr()).
		Build()

	if opts.Monitor {
		port := opts.MonitorPort
		if port == 0 {
			port = env.MonitorPort
		}

		m := monitoring.NewMonitor().
			WithPortNumber(port).
			WithBrowser(opts.OpenBrowser)

		if err := m.RegisterContext(c); err != nil {
			return err
		}

		if _, err := m.StartServer(); err != nil {
			return err
		}
		defer func() { _ = m.StopServer() }()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	return c.Run(ctx, dict)
}

func (o *RunOptions) instantiate(config.Dictionary) ([]component.Component, error) {
	if !o.Record {
		return nil, nil
	}

	return []component.Component{
		datarecording.NewStepRecorder("StepRecorder"),
	}, nil
}
