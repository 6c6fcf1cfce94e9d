package export

import (
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/signalnine/martingale/internal/runner"
)

var ErrEmptyWorkbook = errors.New("nothing to export")

const (
	SheetSummary = "Summary"
	SheetHistory = "History"
	SheetScan    = "Scan"
)

// Workbook holds what a single run can export. Sheets are written only for
// the parts that are set.
type Workbook struct {
	Config  *runner.TrialConfig
	Summary *runner.BatchSummary
	History []float64
	Points  []runner.ScanPoint
}

func WriteWorkbook(path string, wb Workbook) error {
	var sheets []string
	if wb.Summary != nil {
		sheets = append(sheets, SheetSummary)
	}
	if len(wb.History) > 0 {
		sheets = append(sheets, SheetHistory)
	}
	if len(wb.Points) > 0 {
		sheets = append(sheets, SheetScan)
	}
	if len(sheets) == 0 {
		return ErrEmptyWorkbook
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheets[0]); err != nil {
		return err
	}
	for _, name := range sheets[1:] {
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
	}

	for _, name := range sheets {
		var rows [][]interface{}
		switch name {
		case SheetSummary:
			rows = summaryRows(wb.Config, wb.Summary)
		case SheetHistory:
			rows = historyRows(wb.History, excelize.TotalRows)
		case SheetScan:
			rows = scanRows(wb.Points)
		}
		if err := writeRows(f, name, rows); err != nil {
			return fmt.Errorf("writing %s sheet: %w", name, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func summaryRows(cfg *runner.TrialConfig, s *runner.BatchSummary) [][]interface{} {
	rows := [][]interface{}{{"Metric", "Value"}}
	if cfg != nil {
		rows = append(rows,
			[]interface{}{"Initial balance", cfg.InitialBalance},
			[]interface{}{"Initial bet", cfg.InitialBet},
			[]interface{}{"Target", string(cfg.Target)},
			[]interface{}{"Max rounds", cfg.MaxRounds},
		)
	}
	return append(rows,
		[]interface{}{"Runs", s.RunCount},
		[]interface{}{"Average round count", s.AverageRoundCount},
		[]interface{}{"Bankruptcy rate", s.BankruptcyRate},
		[]interface{}{"Bankrupt runs", s.BankruptCount},
		[]interface{}{"Capped runs", s.CappedCount},
		[]interface{}{"Average final balance", s.AverageFinalBalance},
		[]interface{}{"Final balance CI95 low", s.FinalBalanceCI95[0]},
		[]interface{}{"Final balance CI95 high", s.FinalBalanceCI95[1]},
		[]interface{}{"Average peak balance", s.AveragePeakBalance},
		[]interface{}{"Median final balance", s.FinalBalance.Median},
		[]interface{}{"P90 final balance", s.FinalBalance.P90},
		[]interface{}{"Longest loss streak", s.LongestLossStreak},
	)
}

// historyRows lays the balance history out as (round, balance) rows. When
// the history does not fit in maxRows, every n-th round is kept along with
// the final one and the header says so.
func historyRows(history []float64, maxRows int) [][]interface{} {
	stride := 1
	if fit := maxRows - 2; len(history) > fit+1 && fit > 0 {
		stride = (len(history) + fit - 1) / fit
	}
	header := []interface{}{"Round", "Balance"}
	if stride > 1 {
		header = append(header, fmt.Sprintf("every %d rounds, last round included", stride))
	}
	rows := make([][]interface{}, 0, len(history)/stride+2)
	rows = append(rows, header)
	for i := 0; i < len(history); i += stride {
		rows = append(rows, []interface{}{i, history[i]})
	}
	if last := len(history) - 1; last%stride != 0 {
		rows = append(rows, []interface{}{last, history[last]})
	}
	return rows
}

func scanRows(points []runner.ScanPoint) [][]interface{} {
	rows := make([][]interface{}, 0, len(points)+1)
	rows = append(rows, []interface{}{"Initial balance", "Initial bet", "Average final balance", "Bankruptcy rate", "Average round count"})
	for _, p := range points {
		rows = append(rows, []interface{}{p.InitialBalance, p.InitialBet, p.AverageFinalBalance, p.BankruptcyRate, p.AverageRoundCount})
	}
	return rows
}
