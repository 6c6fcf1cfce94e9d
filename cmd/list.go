package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/signalnine/martingale/internal/outcome"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the outcome table in use",
		RunE: func(cmd *cobra.Command, args []string) error {
			dist := appCfg.Distribution()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "LABEL\tPROBABILITY\tPAYOUT\tRETURN PER UNIT")
			for _, o := range dist.Outcomes() {
				marker := ""
				if o.Label == outcome.Label(appCfg.Target) {
					marker = "  (target)"
				}
				fmt.Fprintf(tw, "%s\t%.4f\t%gx\t%.4f%s\n", o.Label, o.Probability, o.Payout, dist.ExpectedReturn(o.Label), marker)
			}
			return tw.Flush()
		},
	}
}
