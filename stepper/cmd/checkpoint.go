package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/sarchlab/stepper/simulation"
	"github.com/spf13/cobra"
)

// ErrCheckpointMissing is returned by checkpoint exists when no checkpoint
// can be resumed from at the step.
var ErrCheckpointMissing = errors.New("checkpoint missing")

// NewCheckpointCommand creates the checkpoint command and its subcommands.
func NewCheckpointCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspect the checkpoints of a simulation",
	}

	cmd.AddCommand(newCheckpointExistsCommand(rootOpts))

	return cmd
}

func newCheckpointExistsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "exists <config.yaml> <step>",
		Short: "Tell if a run can restart from the checkpoint of a step",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			step, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid step %q: %w", args[1], err)
			}

			return checkpointExists(cmd.OutOrStdout(), rootOpts, args[0], step)
		},
	}
}

func checkpointExists(
	w io.Writer,
	opts *RootOptions,
	path string,
	step int,
) error {
	dict, _, err := loadDictionary(path, opts.EnvFile)
	if err != nil {
		return err
	}

	c := simulation.MakeBuilder().
		WithName("checkpoint").
		WithProgressWriter(io.Discard).
		Build()

	if err := c.Construct(dict); err != nil {
		return err
	}
	defer func() { _ = c.Destroy() }()

	read, _ := c.CheckpointStores()
	location := read.Layout().TimeInfoPath(step)

	if !c.CheckpointExists(step) {
		fmt.Fprintf(w, "no checkpoint at step %d (%s)\n", step, location)
		return fmt.Errorf("step %d: %w", step, ErrCheckpointMissing)
	}

	fmt.Fprintf(w, "checkpoint at step %d (%s)\n", step, location)

	return nil
}
