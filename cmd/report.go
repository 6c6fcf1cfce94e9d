package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/signalnine/martingale/internal/report"
)

var flagFormat string

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [run-dir]",
		Short: "Summarize stored simulation and scan results",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runDir := filepath.Join(appCfg.Results.Dir, "latest")
			if len(args) > 0 {
				runDir = args[0]
			}
			return report.Generate(runDir, flagFormat, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&flagFormat, "format", "table", "output format (table, markdown, json, html)")
	return cmd
}
