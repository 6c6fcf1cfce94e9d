package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/gomarkdown/markdown"
	"github.com/shopspring/decimal"

	"github.com/signalnine/martingale/internal/outcome"
	"github.com/signalnine/martingale/internal/result"
	"github.com/signalnine/martingale/internal/runner"
)

type SimulationRow struct {
	Run     string              `json:"run"`
	Config  runner.TrialConfig  `json:"config"`
	Summary runner.BatchSummary `json:"summary"`
}

type ScanRow struct {
	Run                string           `json:"run"`
	Target             outcome.Label    `json:"target"`
	MaxRounds          int              `json:"max_rounds"`
	RunsPerPoint       int              `json:"runs_per_point"`
	Cells              int              `json:"cells"`
	MeanBankruptcyRate float64          `json:"mean_bankruptcy_rate"`
	Richest            runner.ScanPoint `json:"richest"`
	Safest             runner.ScanPoint `json:"safest"`
}

type Report struct {
	Simulations []SimulationRow `json:"simulations,omitempty"`
	Scans       []ScanRow       `json:"scans,omitempty"`
}

// Generate collects every stored summary and scan under dir and writes them
// in the requested format (table, markdown, json or html).
func Generate(dir, format string, w io.Writer) error {
	rep, err := Collect(dir)
	if err != nil {
		return err
	}
	switch format {
	case "markdown":
		return writeMarkdown(rep, w)
	case "json":
		return writeJSON(rep, w)
	case "html":
		return writeHTML(rep, w)
	case "table", "":
		return writeTable(rep, w)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// Collect walks dir, following a top-level symlink such as results/latest.
func Collect(dir string) (*Report, error) {
	root, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}
	rep := &Report{}
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		switch info.Name() {
		case result.SummaryFile:
			s, err := result.ReadSummary(path)
			if err != nil {
				return nil
			}
			rep.Simulations = append(rep.Simulations, SimulationRow{
				Run:     runName(root, path),
				Config:  s.Config,
				Summary: s.Summary,
			})
		case result.ScanFile:
			s, err := result.ReadScan(path)
			if err != nil {
				return nil
			}
			rep.Scans = append(rep.Scans, scanRow(runName(root, path), s))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(rep.Simulations) == 0 && len(rep.Scans) == 0 {
		return nil, fmt.Errorf("no %s or %s found under %s", result.SummaryFile, result.ScanFile, dir)
	}
	sort.Slice(rep.Simulations, func(i, j int) bool { return rep.Simulations[i].Run < rep.Simulations[j].Run })
	sort.Slice(rep.Scans, func(i, j int) bool { return rep.Scans[i].Run < rep.Scans[j].Run })
	return rep, nil
}

func runName(root, path string) string {
	rel, err := filepath.Rel(root, filepath.Dir(path))
	if err != nil || rel == "." {
		return filepath.Base(root)
	}
	return rel
}

func scanRow(run string, s *result.ScanResult) ScanRow {
	row := ScanRow{
		Run:          run,
		Target:       s.Target,
		MaxRounds:    s.MaxRounds,
		RunsPerPoint: s.RunsPerPoint,
		Cells:        len(s.Points),
	}
	if len(s.Points) == 0 {
		return row
	}
	row.Richest, row.Safest = s.Points[0], s.Points[0]
	var rate float64
	for _, p := range s.Points {
		rate += p.BankruptcyRate
		if p.AverageFinalBalance > row.Richest.AverageFinalBalance {
			row.Richest = p
		}
		if p.BankruptcyRate < row.Safest.BankruptcyRate ||
			(p.BankruptcyRate == row.Safest.BankruptcyRate && p.AverageFinalBalance > row.Safest.AverageFinalBalance) {
			row.Safest = p
		}
	}
	row.MeanBankruptcyRate = rate / float64(len(s.Points))
	return row
}

// Money renders an amount with exactly two decimals.
func Money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func cell(p runner.ScanPoint) string {
	return fmt.Sprintf("%s/%s -> %s (%.0f%% bust)",
		Money(p.InitialBalance), Money(p.InitialBet), Money(p.AverageFinalBalance), p.BankruptcyRate*100)
}

func writeTable(rep *Report, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if len(rep.Simulations) > 0 {
		fmt.Fprintln(tw, "RUN\tBALANCE\tBET\tTARGET\tRUNS\tAVG ROUNDS\tBANKRUPT\tAVG FINAL\tAVG PEAK")
		fmt.Fprintln(tw, strings.Repeat("-", 100))
		for _, s := range rep.Simulations {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%.1f\t%.1f%%\t%s\t%s\n",
				s.Run, Money(s.Config.InitialBalance), Money(s.Config.InitialBet), s.Config.Target,
				s.Summary.RunCount, s.Summary.AverageRoundCount, s.Summary.BankruptcyRate*100,
				Money(s.Summary.AverageFinalBalance), Money(s.Summary.AveragePeakBalance))
		}
	}
	if len(rep.Scans) > 0 {
		if len(rep.Simulations) > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintln(tw, "SCAN\tTARGET\tCELLS\tRUNS/CELL\tMEAN BANKRUPT\tRICHEST\tSAFEST")
		fmt.Fprintln(tw, strings.Repeat("-", 100))
		for _, s := range rep.Scans {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.1f%%\t%s\t%s\n",
				s.Run, s.Target, s.Cells, s.RunsPerPoint, s.MeanBankruptcyRate*100, cell(s.Richest), cell(s.Safest))
		}
	}
	return tw.Flush()
}

func writeMarkdown(rep *Report, w io.Writer) error {
	if len(rep.Simulations) > 0 {
		fmt.Fprintln(w, "## Simulations")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "| Run | Balance | Bet | Target | Runs | Avg Rounds | Bankrupt | Avg Final | Avg Peak |")
		fmt.Fprintln(w, "|---|---|---|---|---|---|---|---|---|")
		for _, s := range rep.Simulations {
			fmt.Fprintf(w, "| %s | %s | %s | %s | %d | %.1f | %.1f%% | %s | %s |\n",
				s.Run, Money(s.Config.InitialBalance), Money(s.Config.InitialBet), s.Config.Target,
				s.Summary.RunCount, s.Summary.AverageRoundCount, s.Summary.BankruptcyRate*100,
				Money(s.Summary.AverageFinalBalance), Money(s.Summary.AveragePeakBalance))
		}
	}
	if len(rep.Scans) > 0 {
		if len(rep.Simulations) > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, "## Scans")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "| Run | Target | Cells | Runs/Cell | Mean Bankrupt | Richest | Safest |")
		fmt.Fprintln(w, "|---|---|---|---|---|---|---|")
		for _, s := range rep.Scans {
			fmt.Fprintf(w, "| %s | %s | %d | %d | %.1f%% | %s | %s |\n",
				s.Run, s.Target, s.Cells, s.RunsPerPoint, s.MeanBankruptcyRate*100, cell(s.Richest), cell(s.Safest))
		}
	}
	return nil
}

func writeJSON(rep *Report, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

func writeHTML(rep *Report, w io.Writer) error {
	var md bytes.Buffer
	fmt.Fprintln(&md, "# Martingale report")
	fmt.Fprintln(&md)
	if err := writeMarkdown(rep, &md); err != nil {
		return err
	}
	_, err := w.Write(markdown.ToHTML(md.Bytes(), nil, nil))
	return err
}
