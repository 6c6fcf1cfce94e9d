package result_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/signalnine/martingale/internal/outcome"
	"github.com/signalnine/martingale/internal/result"
	"github.com/signalnine/martingale/internal/runner"
)

func TestCreateRunDir(t *testing.T) {
	base := t.TempDir()
	runDir, id, err := result.CreateRunDir(base)
	if err != nil {
		t.Fatalf("CreateRunDir: %v", err)
	}
	if _, err := os.Stat(runDir); os.IsNotExist(err) {
		t.Errorf("run directory not created: %s", runDir)
	}
	if !strings.HasSuffix(runDir, "-"+id[:8]) {
		t.Errorf("run dir %q does not end with id prefix %q", runDir, id[:8])
	}
	latest := filepath.Join(base, "latest")
	target, err := os.Readlink(latest)
	if err != nil {
		t.Fatalf("reading latest symlink: %v", err)
	}
	if target != runDir {
		t.Errorf("latest symlink: got %q, want %q", target, runDir)
	}
}

func TestCreateRunDirRepointsLatest(t *testing.T) {
	base := t.TempDir()
	first, _, err := result.CreateRunDir(base)
	if err != nil {
		t.Fatalf("CreateRunDir: %v", err)
	}
	second, _, err := result.CreateRunDir(base)
	if err != nil {
		t.Fatalf("CreateRunDir: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct run dirs, got %q twice", first)
	}
	target, _ := os.Readlink(filepath.Join(base, "latest"))
	if target != second {
		t.Errorf("latest symlink: got %q, want %q", target, second)
	}
}

func TestWriteAndReadMeta(t *testing.T) {
	dir := t.TempDir()
	meta := &result.RunMeta{
		ID:        "abc",
		Kind:      result.KindScan,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Target:    outcome.T,
		MaxRounds: 1000,
		Seed:      7,
		Outcomes:  outcome.Default().Outcomes(),
		BetRange:  &runner.Range{Start: 0.1, End: 1, Step: 0.1},
	}
	if err := result.WriteMeta(dir, meta); err != nil {
		t.Fatalf("WriteMeta: %v", err)
	}
	got, err := result.ReadMeta(filepath.Join(dir, result.MetaFile))
	if err != nil {
		t.Fatalf("ReadMeta: %v", err)
	}
	if got.Kind != meta.Kind || got.Seed != meta.Seed || !got.CreatedAt.Equal(meta.CreatedAt) {
		t.Errorf("meta round trip: got %+v", got)
	}
	if got.BetRange == nil || *got.BetRange != *meta.BetRange {
		t.Errorf("bet range: got %v, want %v", got.BetRange, meta.BetRange)
	}
	if got.BalanceRange != nil {
		t.Errorf("expected no balance range, got %v", got.BalanceRange)
	}
}

func TestWriteAndReadSummary(t *testing.T) {
	dir := t.TempDir()
	s := &result.Summary{
		Config: runner.TrialConfig{InitialBalance: 20, InitialBet: 0.1, Target: outcome.T, MaxRounds: 100},
		Summary: runner.BatchSummary{
			RunCount:            10,
			BankruptcyRate:      0.3,
			AverageFinalBalance: 18.5,
		},
	}
	if err := result.WriteSummary(dir, s); err != nil {
		t.Fatalf("WriteSummary: %v", err)
	}
	got, err := result.ReadSummary(filepath.Join(dir, result.SummaryFile))
	if err != nil {
		t.Fatalf("ReadSummary: %v", err)
	}
	if got.Summary.RunCount != 10 || got.Summary.AverageFinalBalance != 18.5 {
		t.Errorf("summary: got %+v", got.Summary)
	}
	if got.Config != s.Config {
		t.Errorf("config: got %+v, want %+v", got.Config, s.Config)
	}
}

func TestWriteAndReadScan(t *testing.T) {
	dir := t.TempDir()
	s := &result.ScanResult{
		Balance:      runner.Range{Start: 1, End: 2, Step: 1},
		Bet:          runner.Range{Start: 1, End: 1, Step: 1},
		RunsPerPoint: 5,
		Target:       outcome.T,
		MaxRounds:    50,
		Points: []runner.ScanPoint{
			{InitialBalance: 1, InitialBet: 1, AverageFinalBalance: 0.4, BankruptcyRate: 1, AverageRoundCount: 1.2},
			{InitialBalance: 2, InitialBet: 1, AverageFinalBalance: 2.6, BankruptcyRate: 0.8, AverageRoundCount: 4},
		},
	}
	if err := result.WriteScan(dir, s); err != nil {
		t.Fatalf("WriteScan: %v", err)
	}
	got, err := result.ReadScan(filepath.Join(dir, result.ScanFile))
	if err != nil {
		t.Fatalf("ReadScan: %v", err)
	}
	if len(got.Points) != 2 || got.Points[1] != s.Points[1] {
		t.Errorf("points: got %+v", got.Points)
	}
}

func TestReadSummaryErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := result.ReadSummary(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte("{not json"), 0o644)
	if _, err := result.ReadSummary(bad); err == nil {
		t.Error("expected error for malformed file")
	}
}
