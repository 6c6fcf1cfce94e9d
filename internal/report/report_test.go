package report_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/martingale/internal/outcome"
	"github.com/signalnine/martingale/internal/report"
	"github.com/signalnine/martingale/internal/result"
	"github.com/signalnine/martingale/internal/runner"
)

func seedRuns(t *testing.T) string {
	t.Helper()
	base := t.TempDir()

	sim := filepath.Join(base, "runs", "a-sim")
	require.NoError(t, result.WriteSummary(sim, &result.Summary{
		Config: runner.TrialConfig{InitialBalance: 20, InitialBet: 0.1, Target: outcome.T, MaxRounds: 1000},
		Summary: runner.BatchSummary{
			RunCount:            100,
			AverageRoundCount:   412.5,
			BankruptcyRate:      0.25,
			AverageFinalBalance: 21.456,
			AveragePeakBalance:  30,
		},
	}))

	scan := filepath.Join(base, "runs", "b-scan")
	require.NoError(t, result.WriteScan(scan, &result.ScanResult{
		Balance:      runner.Range{Start: 1, End: 2, Step: 1},
		Bet:          runner.Range{Start: 1, End: 1, Step: 1},
		RunsPerPoint: 10,
		Target:       outcome.T,
		MaxRounds:    100,
		Points: []runner.ScanPoint{
			{InitialBalance: 1, InitialBet: 1, AverageFinalBalance: 0.5, BankruptcyRate: 1},
			{InitialBalance: 2, InitialBet: 1, AverageFinalBalance: 3.5, BankruptcyRate: 0.5},
		},
	}))
	return base
}

func TestGenerateTable(t *testing.T) {
	base := seedRuns(t)

	var buf bytes.Buffer
	require.NoError(t, report.Generate(base, "table", &buf))
	out := buf.String()
	assert.Contains(t, out, "a-sim")
	assert.Contains(t, out, "b-scan")
	assert.Contains(t, out, "21.46")
	assert.Contains(t, out, "25.0%")
	assert.Contains(t, out, "75.0%")
}

func TestGenerateMarkdown(t *testing.T) {
	base := seedRuns(t)

	var buf bytes.Buffer
	require.NoError(t, report.Generate(base, "markdown", &buf))
	assert.Contains(t, buf.String(), "| Run | Balance |")
	assert.Contains(t, buf.String(), "## Scans")
}

func TestGenerateJSON(t *testing.T) {
	base := seedRuns(t)

	var buf bytes.Buffer
	require.NoError(t, report.Generate(base, "json", &buf))

	var rep report.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rep))
	require.Len(t, rep.Simulations, 1)
	require.Len(t, rep.Scans, 1)
	assert.Equal(t, 2, rep.Scans[0].Cells)
	assert.Equal(t, 3.5, rep.Scans[0].Richest.AverageFinalBalance)
	assert.Equal(t, 0.5, rep.Scans[0].Safest.BankruptcyRate)
	assert.InDelta(t, 0.75, rep.Scans[0].MeanBankruptcyRate, 1e-12)
}

func TestGenerateHTML(t *testing.T) {
	base := seedRuns(t)

	var buf bytes.Buffer
	require.NoError(t, report.Generate(base, "html", &buf))
	assert.Contains(t, buf.String(), "<h1")
	assert.Contains(t, buf.String(), "<table>")
}

func TestGenerateFollowsLatestSymlink(t *testing.T) {
	base := seedRuns(t)
	latest := filepath.Join(base, "latest")
	require.NoError(t, os.Symlink(filepath.Join(base, "runs", "a-sim"), latest))

	rep, err := report.Collect(latest)
	require.NoError(t, err)
	require.Len(t, rep.Simulations, 1)
	assert.Equal(t, "a-sim", rep.Simulations[0].Run)
	assert.Empty(t, rep.Scans)
}

func TestGenerateErrors(t *testing.T) {
	base := seedRuns(t)
	assert.Error(t, report.Generate(base, "pdf", &bytes.Buffer{}))
	assert.Error(t, report.Generate(t.TempDir(), "table", &bytes.Buffer{}))
	assert.Error(t, report.Generate(filepath.Join(base, "missing"), "table", &bytes.Buffer{}))
}

func TestMoney(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.00"},
		{0.1 + 0.2, "0.30"},
		{21.456, "21.46"},
		{-3, "-3.00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, report.Money(tt.in))
	}
}
