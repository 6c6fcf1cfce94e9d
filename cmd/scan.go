package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/signalnine/martingale/internal/chart"
	"github.com/signalnine/martingale/internal/config"
	"github.com/signalnine/martingale/internal/export"
	"github.com/signalnine/martingale/internal/outcome"
	"github.com/signalnine/martingale/internal/result"
	"github.com/signalnine/martingale/internal/runner"
)

const surfaceFile = "martingale_scan_3d.html"

var (
	flagBalanceRange  runner.Range
	flagBetRange      runner.Range
	flagRunsPerPoint  int
	flagWorkers       int
	flagScanTarget    string
	flagScanMaxRounds int
	flagScanOut       string
	flagScanXLSX      bool
)

func newScanCmd() *cobra.Command {
	def := config.Default()
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Sweep initial balance and bet and plot the average final balance",
		RunE:  runScan,
	}
	f := cmd.Flags()
	f.Float64Var(&flagBalanceRange.Start, "balance-start", def.Scan.Balance.Start, "first initial balance")
	f.Float64Var(&flagBalanceRange.End, "balance-end", def.Scan.Balance.End, "last initial balance (inclusive)")
	f.Float64Var(&flagBalanceRange.Step, "balance-step", def.Scan.Balance.Step, "initial balance step")
	f.Float64Var(&flagBetRange.Start, "bet-start", def.Scan.Bet.Start, "first initial bet")
	f.Float64Var(&flagBetRange.End, "bet-end", def.Scan.Bet.End, "last initial bet (inclusive)")
	f.Float64Var(&flagBetRange.Step, "bet-step", def.Scan.Bet.Step, "initial bet step")
	f.IntVar(&flagRunsPerPoint, "runs-per-point", def.Scan.RunsPerPoint, "trials per parameter combination")
	f.StringVar(&flagScanTarget, "target", def.Target, "outcome label to bet on")
	f.IntVar(&flagScanMaxRounds, "max-rounds", def.MaxRounds, "maximum rounds per trial")
	f.IntVar(&flagWorkers, "workers", def.Workers, "parameter combinations simulated concurrently")
	f.StringVar(&flagScanOut, "out", "", "results directory (default from config)")
	f.BoolVar(&flagScanXLSX, "xlsx", false, "also write an Excel workbook")
	return cmd
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg := appCfg
	flags := cmd.Flags()
	overrideFloat := func(name string, dst *float64, v float64) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	overrideFloat("balance-start", &cfg.Scan.Balance.Start, flagBalanceRange.Start)
	overrideFloat("balance-end", &cfg.Scan.Balance.End, flagBalanceRange.End)
	overrideFloat("balance-step", &cfg.Scan.Balance.Step, flagBalanceRange.Step)
	overrideFloat("bet-start", &cfg.Scan.Bet.Start, flagBetRange.Start)
	overrideFloat("bet-end", &cfg.Scan.Bet.End, flagBetRange.End)
	overrideFloat("bet-step", &cfg.Scan.Bet.Step, flagBetRange.Step)
	if flags.Changed("runs-per-point") {
		cfg.Scan.RunsPerPoint = flagRunsPerPoint
	}
	if flags.Changed("target") {
		cfg.Target = flagScanTarget
	}
	if flags.Changed("max-rounds") {
		cfg.MaxRounds = flagScanMaxRounds
	}
	if flags.Changed("workers") {
		cfg.Workers = flagWorkers
	}
	if flagScanOut != "" {
		cfg.Results.Dir = flagScanOut
	}
	seed := resolveSeed(cfg.Seed)

	log.WithFields(log.Fields{
		"balance":        cfg.Scan.Balance.String(),
		"bet":            cfg.Scan.Bet.String(),
		"runs_per_point": cfg.Scan.RunsPerPoint,
		"target":         cfg.Target,
		"max_rounds":     cfg.MaxRounds,
		"workers":        cfg.Workers,
		"seed":           seed,
	}).Info("Running parameter scan")

	start := time.Now()
	points, err := runner.Scan(cmd.Context(), runner.ScanRequest{
		Balance:      cfg.Scan.Balance,
		Bet:          cfg.Scan.Bet,
		RunsPerPoint: cfg.Scan.RunsPerPoint,
		Target:       outcome.Label(cfg.Target),
		MaxRounds:    cfg.MaxRounds,
		Distribution: cfg.Distribution(),
		Seed:         seed,
		Workers:      cfg.Workers,
		OnProgress: func(done, total int) {
			if done%10 == 0 || done == total {
				log.Infof("Completed %d/%d parameter combinations", done, total)
			}
		},
	})
	if err != nil {
		return explain(err)
	}
	log.WithFields(log.Fields{
		"points":      len(points),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Scan completed")

	runDir, id, err := result.CreateRunDir(cfg.Results.Dir)
	if err != nil {
		return err
	}
	balanceRange, betRange := cfg.Scan.Balance, cfg.Scan.Bet
	meta := &result.RunMeta{
		ID:           id,
		Kind:         result.KindScan,
		CreatedAt:    time.Now().UTC(),
		Target:       outcome.Label(cfg.Target),
		MaxRounds:    cfg.MaxRounds,
		Seed:         seed,
		Outcomes:     cfg.Distribution().Outcomes(),
		BalanceRange: &balanceRange,
		BetRange:     &betRange,
		RunsPerPoint: cfg.Scan.RunsPerPoint,
		Workers:      cfg.Workers,
	}
	if err := result.WriteMeta(runDir, meta); err != nil {
		return err
	}
	if err := result.WriteScan(runDir, &result.ScanResult{
		Balance:      balanceRange,
		Bet:          betRange,
		RunsPerPoint: cfg.Scan.RunsPerPoint,
		Target:       outcome.Label(cfg.Target),
		MaxRounds:    cfg.MaxRounds,
		Points:       points,
	}); err != nil {
		return err
	}

	if err := writeSurface(filepath.Join(runDir, surfaceFile), points, chart.SurfaceMeta{
		Target:       outcome.Label(cfg.Target),
		RunsPerPoint: cfg.Scan.RunsPerPoint,
		MaxRounds:    cfg.MaxRounds,
	}); err != nil {
		return err
	}

	if flagScanXLSX {
		if err := export.WriteWorkbook(filepath.Join(runDir, workbookFile), export.Workbook{Points: points}); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Scanned %d parameter combinations\nRun directory: %s\n", len(points), runDir)
	return nil
}

func writeSurface(path string, points []runner.ScanPoint, meta chart.SurfaceMeta) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating scan chart: %w", err)
	}
	defer f.Close()
	if err := chart.Surface(f, points, meta); err != nil {
		return err
	}
	log.WithField("path", path).Info("Scan chart written")
	return f.Close()
}
