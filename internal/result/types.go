package result

import (
	"time"

	"github.com/signalnine/martingale/internal/outcome"
	"github.com/signalnine/martingale/internal/runner"
)

type Kind string

const (
	KindSimulate Kind = "simulate"
	KindScan     Kind = "scan"
)

// RunMeta is written to run.json at the root of every run directory.
type RunMeta struct {
	ID        string            `json:"id"`
	Kind      Kind              `json:"kind"`
	CreatedAt time.Time         `json:"created_at"`
	Target    outcome.Label     `json:"target"`
	MaxRounds int               `json:"max_rounds"`
	Seed      uint64            `json:"seed"`
	Outcomes  []outcome.Outcome `json:"outcomes"`

	// simulate only
	InitialBalance float64 `json:"initial_balance,omitempty"`
	InitialBet     float64 `json:"initial_bet,omitempty"`
	Runs           int     `json:"runs,omitempty"`

	// scan only
	BalanceRange *runner.Range `json:"balance_range,omitempty"`
	BetRange     *runner.Range `json:"bet_range,omitempty"`
	RunsPerPoint int           `json:"runs_per_point,omitempty"`
	Workers      int           `json:"workers,omitempty"`
}

// Summary is summary.json: the batch configuration and its aggregates.
type Summary struct {
	Config  runner.TrialConfig  `json:"config"`
	Summary runner.BatchSummary `json:"summary"`
}

// ScanResult is scan.json.
type ScanResult struct {
	Balance      runner.Range       `json:"balance"`
	Bet          runner.Range       `json:"bet"`
	RunsPerPoint int                `json:"runs_per_point"`
	Target       outcome.Label      `json:"target"`
	MaxRounds    int                `json:"max_rounds"`
	Points       []runner.ScanPoint `json:"points"`
}
