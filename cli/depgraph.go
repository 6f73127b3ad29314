package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hannajonsd/sqli-reachability/analyzer"
	"github.com/hannajonsd/sqli-reachability/report"
)

func newDepGraphCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "depgraph [path]",
		Short: "Print the static module dependency graph as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) == 1 {
				path = args[0]
			}

			p, err := analyzer.New(a.cfg, a.logger).LoadProject(cmd.Context(), path)
			if err != nil {
				return err
			}

			data, err := report.Marshal(report.FromDepGraph(p.DepGraph(), p.ModuleNames()))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		// Skip config and logger setup.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}
}
