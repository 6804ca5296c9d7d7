package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/sarchlab/stepper/hooking"
	"github.com/sarchlab/stepper/simulation"
	"github.com/spf13/cobra"
)

// NewEntryPointsCommand creates the entrypoints command.
func NewEntryPointsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "entrypoints",
		Short: "List the entry points of a context and their default hooks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := simulation.MakeBuilder().
				WithName("Context").
				WithProgressWriter(io.Discard).
				Build()

			return printEntryPoints(cmd.OutOrStdout(), c.Registry())
		},
	}
}

func printEntryPoints(w io.Writer, r *hooking.Registry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "HANDLE\tENTRY POINT\tCAST\tHOOKS")

	for i, ep := range r.EntryPoints() {
		hooks := make([]string, 0, ep.NumHooks())
		for _, h := range ep.HookInfos() {
			s := h.Name
			if h.Pin != hooking.Unpinned {
				s += "(" + h.Pin.String() + ")"
			}

			hooks = append(hooks, s)
		}

		hookList := strings.Join(hooks, ", ")
		if hookList == "" {
			hookList = "-"
		}

		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i, ep.Name(), ep.CastType(), hookList)
	}

	return tw.Flush()
}
