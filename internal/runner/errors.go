package runner

import "errors"

var (
	// ErrInvalidConfig is returned before any round is played when a trial,
	// batch or scan request is not runnable.
	ErrInvalidConfig = errors.New("invalid trial config")

	// ErrEmptyRange means a scan range produced no values.
	ErrEmptyRange = errors.New("scan range is empty")

	// ErrNoFeasiblePoint means the scan ranges were valid but every
	// (balance, bet) cell had balance < bet.
	ErrNoFeasiblePoint = errors.New("no feasible scan point")
)
