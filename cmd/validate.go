package cmd

import (
	"fmt"
	"text/tabwriter"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/signalnine/martingale/internal/outcome"
)

var (
	flagDraws     int
	flagTolerance float64
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the sampler's observed frequencies against the outcome table",
		RunE: func(cmd *cobra.Command, args []string) error {
			seed := resolveSeed(appCfg.Seed)
			sampler := outcome.NewSampler(appCfg.Distribution(), outcome.NewSource(seed))
			log.WithFields(log.Fields{"draws": flagDraws, "seed": seed}).Info("Sampling outcome table")

			cal, err := outcome.Calibrate(sampler, flagDraws)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "LABEL\tEXPECTED\tOBSERVED\tCOUNT\tDEVIATION")
			for _, s := range cal.Labels {
				fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%d\t%+.4f\n", s.Label, s.Expected, s.Observed, s.Count, s.Deviation)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nchi-squared: %.3f  p-value: %.4f  max deviation: %.4f\n",
				cal.ChiSquared, cal.PValue, cal.MaxDeviation)

			if !cal.Within(flagTolerance) {
				return fmt.Errorf("observed frequencies deviate by %.4f, above tolerance %.4f", cal.MaxDeviation, flagTolerance)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&flagDraws, "draws", 100000, "number of outcomes to draw")
	cmd.Flags().Float64Var(&flagTolerance, "tolerance", 0.01, "maximum allowed absolute deviation per label")
	return cmd
}
