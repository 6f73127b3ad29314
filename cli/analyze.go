package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hannajonsd/sqli-reachability/analyzer"
	"github.com/hannajonsd/sqli-reachability/report"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analyze [path]",
		Short: "Report endpoints whose parameters reach a SQL execution call",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) == 1 {
				path = args[0]
			}

			an := analyzer.New(a.cfg, a.logger)
			res, err := an.AnalyzeRepository(cmd.Context(), path)
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			if asJSON {
				data, err := report.Marshal(res)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
			} else {
				analyzer.DisplayResults(cmd.OutOrStdout(), res, a.verbose)
			}

			if a.cfg.Output.Dir != "" {
				if _, err := an.WriteResults(res, a.cfg.Output.Dir); err != nil {
					return err
				}
			}

			if err := an.ExportGraph(cmd.Context(), res); err != nil {
				a.logger.Error("Neo4j export failed", zap.Error(err))
				return err
			}

			if res.FoundAny {
				return ErrVulnerable
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&asJSON, "json", false, "print the results document as JSON")
	flags.StringP("output", "o", "", "directory to write <project>-analysis-results.json into")
	flags.Int("max-visits", 0, "maximum nodes expanded per sink traversal (0 keeps the configured value)")
	flags.StringSlice("sink", nil, "method names treated as SQL execution")
	flags.String("neo4j-uri", "", "Neo4j bolt URI to export the graphs to")
	flags.String("neo4j-user", "neo4j", "Neo4j username")
	flags.String("neo4j-pass", "", "Neo4j password")
	flags.Bool("neo4j-clean", false, "remove this project's previously exported graph first")

	_ = a.v.BindPFlag("output.dir", flags.Lookup("output"))
	_ = a.v.BindPFlag("analysis.sink_methods", flags.Lookup("sink"))
	_ = a.v.BindPFlag("neo4j.uri", flags.Lookup("neo4j-uri"))
	_ = a.v.BindPFlag("neo4j.user", flags.Lookup("neo4j-user"))
	_ = a.v.BindPFlag("neo4j.password", flags.Lookup("neo4j-pass"))
	_ = a.v.BindPFlag("neo4j.clean", flags.Lookup("neo4j-clean"))

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if n, _ := cmd.Flags().GetInt("max-visits"); n > 0 {
			a.cfg.Analysis.MaxVisits = n
		}
		return nil
	}
	return cmd
}
