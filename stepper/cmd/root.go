// Package cmd provides the command-line interface of stepper.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	EnvFile string
}

// NewRootCommand creates the root command of the stepper CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "stepper",
		Short: "stepper runs checkpointable time-stepping simulations.",
		Long: `stepper runs time-stepping simulations whose physics is provided by ` +
			`Lua modules subscribing hooks to the entry points of a simulation ` +
			`context. Runs can be checkpointed, restarted, monitored and recorded.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env",
		"file of STEPPER_* variables loaded before the environment is read")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewCheckpointCommand(opts))
	cmd.AddCommand(NewEntryPointsCommand())

	return cmd
}

// Execute runs the root command and exits through atexit, so that the
// registered flushes run.
func Execute() {
	err := NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
