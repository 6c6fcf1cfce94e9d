package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/signalnine/martingale/internal/chart"
	"github.com/signalnine/martingale/internal/config"
	"github.com/signalnine/martingale/internal/export"
	"github.com/signalnine/martingale/internal/outcome"
	"github.com/signalnine/martingale/internal/report"
	"github.com/signalnine/martingale/internal/result"
	"github.com/signalnine/martingale/internal/runner"
)

const (
	balanceChartFile = "balance.png"
	workbookFile     = "martingale.xlsx"
)

var (
	flagBalance   float64
	flagBet       float64
	flagTarget    string
	flagMaxRounds int
	flagRuns      int
	flagPlotLast  bool
	flagVerbose   bool
	flagOut       string
	flagXLSX      bool
)

func newSimulateCmd() *cobra.Command {
	def := config.Default()
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run one or more Martingale trials and summarize them",
		RunE:  runSimulate,
	}
	cmd.Flags().Float64Var(&flagBalance, "balance", def.Simulate.Balance, "initial balance")
	cmd.Flags().Float64Var(&flagBet, "bet", def.Simulate.Bet, "initial bet")
	cmd.Flags().StringVar(&flagTarget, "target", def.Target, "outcome label to bet on")
	cmd.Flags().IntVar(&flagMaxRounds, "max-rounds", def.MaxRounds, "maximum rounds per trial")
	cmd.Flags().IntVar(&flagRuns, "runs", def.Simulate.Runs, "number of trials")
	cmd.Flags().BoolVar(&flagPlotLast, "plot-last", false, "plot the balance history of the last trial (implied for a single run)")
	cmd.Flags().BoolVar(&flagVerbose, "verbose", false, "log every round of the last trial")
	cmd.Flags().StringVar(&flagOut, "out", "", "results directory (default from config)")
	cmd.Flags().BoolVar(&flagXLSX, "xlsx", false, "also write an Excel workbook")
	return cmd
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg := appCfg
	flags := cmd.Flags()
	if flags.Changed("balance") {
		cfg.Simulate.Balance = flagBalance
	}
	if flags.Changed("bet") {
		cfg.Simulate.Bet = flagBet
	}
	if flags.Changed("target") {
		cfg.Target = flagTarget
	}
	if flags.Changed("max-rounds") {
		cfg.MaxRounds = flagMaxRounds
	}
	if flags.Changed("runs") {
		cfg.Simulate.Runs = flagRuns
	}
	if flagPlotLast {
		cfg.Simulate.PlotLast = true
	}
	if flagOut != "" {
		cfg.Results.Dir = flagOut
	}
	runs := cfg.Simulate.Runs
	plotLast := cfg.Simulate.PlotLast || runs == 1

	tc := runner.TrialConfig{
		InitialBalance: cfg.Simulate.Balance,
		InitialBet:     cfg.Simulate.Bet,
		Target:         outcome.Label(cfg.Target),
		MaxRounds:      cfg.MaxRounds,
	}
	seed := resolveSeed(cfg.Seed)

	log.WithFields(log.Fields{
		"runs":       runs,
		"balance":    report.Money(tc.InitialBalance),
		"bet":        report.Money(tc.InitialBet),
		"target":     tc.Target,
		"max_rounds": tc.MaxRounds,
		"seed":       seed,
	}).Info("Running simulations")

	var opts []runner.BatchOption
	if runs > 1 {
		opts = append(opts, runner.WithProgress(func(done, total int) {
			log.Infof("Completed %d/%d runs", done, total)
		}))
	}
	if flagVerbose && runs > 0 {
		if !log.IsLevelEnabled(log.DebugLevel) {
			log.SetLevel(log.DebugLevel)
		}
		opts = append(opts, runner.WithTrialObserver(runs-1, logRound))
	}

	sampler := outcome.NewSampler(cfg.Distribution(), outcome.NewSource(seed))
	start := time.Now()
	batch, err := runner.RunBatch(sampler, tc, runs, opts...)
	if err != nil {
		return explain(err)
	}
	log.WithField("duration_ms", time.Since(start).Milliseconds()).Debug("Simulations completed")

	printSummary(cmd.OutOrStdout(), batch.Summary)

	runDir, id, err := result.CreateRunDir(cfg.Results.Dir)
	if err != nil {
		return err
	}
	meta := &result.RunMeta{
		ID:             id,
		Kind:           result.KindSimulate,
		CreatedAt:      time.Now().UTC(),
		Target:         tc.Target,
		MaxRounds:      tc.MaxRounds,
		Seed:           seed,
		Outcomes:       cfg.Distribution().Outcomes(),
		InitialBalance: tc.InitialBalance,
		InitialBet:     tc.InitialBet,
		Runs:           runs,
	}
	if err := result.WriteMeta(runDir, meta); err != nil {
		return err
	}
	if err := result.WriteSummary(runDir, &result.Summary{Config: tc, Summary: batch.Summary}); err != nil {
		return err
	}

	var history []float64
	if plotLast {
		last := batch.Last()
		if last == nil || last.RoundCount == 0 {
			log.Info("Last run had no rolls, skipping plot")
		} else {
			history = last.BalanceHistory
			if err := writeBalanceChart(filepath.Join(runDir, balanceChartFile), last, tc); err != nil {
				return err
			}
		}
	}

	if flagXLSX {
		wb := export.Workbook{Config: &tc, Summary: &batch.Summary, History: history}
		if err := export.WriteWorkbook(filepath.Join(runDir, workbookFile), wb); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nRun directory: %s\n", runDir)
	return nil
}

func writeBalanceChart(path string, res *runner.TrialResult, tc runner.TrialConfig) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating chart: %w", err)
	}
	defer f.Close()
	if err := chart.Balance(f, res, tc); err != nil {
		return err
	}
	log.WithField("path", path).Info("Balance chart written")
	return f.Close()
}

func logRound(r runner.Round) {
	log.WithFields(log.Fields{
		"round":       r.Index,
		"bet":         report.Money(r.Bet),
		"multiplier":  r.Multiplier,
		"won":         r.Won,
		"balance":     report.Money(r.Balance),
		"next_bet":    report.Money(r.NextBet),
		"loss_streak": r.LossStreak,
	}).Debug("Round")
}

func printSummary(w io.Writer, s runner.BatchSummary) {
	fmt.Fprintln(w, "--- Overall Simulation Statistics ---")
	fmt.Fprintf(w, "Number of Runs: %d\n", s.RunCount)
	fmt.Fprintf(w, "Average Roll Count: %.2f\n", s.AverageRoundCount)
	fmt.Fprintf(w, "Bankruptcy Rate: %.2f%% (%d/%d)\n", s.BankruptcyRate*100, s.BankruptCount, s.RunCount)
	fmt.Fprintf(w, "Average Final Balance: $%s\n", report.Money(s.AverageFinalBalance))
	fmt.Fprintf(w, "Average Max Balance Reached: $%s\n", report.Money(s.AveragePeakBalance))
	if s.RunCount > 1 {
		fmt.Fprintf(w, "Final Balance 95%% CI: $%s to $%s\n", report.Money(s.FinalBalanceCI95[0]), report.Money(s.FinalBalanceCI95[1]))
		fmt.Fprintf(w, "Final Balance min/median/p90/max: $%s / $%s / $%s / $%s\n",
			report.Money(s.FinalBalance.Min), report.Money(s.FinalBalance.Median),
			report.Money(s.FinalBalance.P90), report.Money(s.FinalBalance.Max))
		fmt.Fprintf(w, "Rounds median/p90/max: %.0f / %.0f / %.0f\n", s.Rounds.Median, s.Rounds.P90, s.Rounds.Max)
		fmt.Fprintf(w, "Longest Ending Loss Streak: %d\n", s.LongestLossStreak)
	}
}
