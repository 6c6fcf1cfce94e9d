package runner

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"sync/atomic"

	"github.com/signalnine/martingale/internal/outcome"
)

// maxRangeValues bounds a single scan axis.
const maxRangeValues = 100_000

// Range is an arithmetic sequence from Start to End inclusive.
type Range struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
	Step  float64 `json:"step" yaml:"step"`
}

func (r Range) String() string {
	return fmt.Sprintf("[%g, %g] step %g", r.Start, r.End, r.Step)
}

// Len is the number of values in r, 0 when the range is empty.
func (r Range) Len() int {
	for _, v := range []float64{r.Start, r.End, r.Step} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
	}
	if !(r.Step > 0) || r.End < r.Start {
		return 0
	}
	// Slack keeps an end that is a whole number of steps away inclusive
	// despite float rounding, e.g. 0.05..1.0 by 0.05.
	n := math.Floor((r.End-r.Start)/r.Step+1e-9) + 1
	if n > maxRangeValues {
		return maxRangeValues + 1
	}
	return int(n)
}

// Values returns Start, Start+Step, ... up to End.
func (r Range) Values() []float64 {
	n := r.Len()
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = r.Start + float64(i)*r.Step
	}
	return vals
}

type ScanPoint struct {
	InitialBalance      float64 `json:"initial_balance"`
	InitialBet          float64 `json:"initial_bet"`
	AverageFinalBalance float64 `json:"average_final_balance"`
	BankruptcyRate      float64 `json:"bankruptcy_rate"`
	AverageRoundCount   float64 `json:"average_round_count"`
}

type ScanRequest struct {
	Balance      Range
	Bet          Range
	RunsPerPoint int
	Target       outcome.Label
	MaxRounds    int
	Distribution *outcome.Distribution
	// Seed feeds the stream every cell's own seed is drawn from. Zero
	// seeds from the clock.
	Seed    uint64
	Workers int
	// OnProgress may be called from several goroutines.
	OnProgress func(done, total int)
}

type cell struct {
	balance, bet float64
	seed1, seed2 uint64
}

// Scan runs one batch per feasible (balance, bet) cell of the grid and
// returns the points ordered by balance, then bet.
func Scan(ctx context.Context, req ScanRequest) ([]ScanPoint, error) {
	dist := req.Distribution
	if dist == nil {
		dist = outcome.Default()
	}

	if req.Balance.Len() == 0 {
		return nil, fmt.Errorf("%w: balance %s", ErrEmptyRange, req.Balance)
	}
	if req.Bet.Len() == 0 {
		return nil, fmt.Errorf("%w: bet %s", ErrEmptyRange, req.Bet)
	}
	if req.Balance.Len() > maxRangeValues || req.Bet.Len() > maxRangeValues {
		return nil, fmt.Errorf("%w: scan axes are limited to %d values", ErrInvalidConfig, maxRangeValues)
	}
	if req.RunsPerPoint < 1 {
		return nil, fmt.Errorf("%w: runs per point must be at least 1, got %d", ErrInvalidConfig, req.RunsPerPoint)
	}
	template := TrialConfig{
		InitialBalance: req.Balance.Start,
		InitialBet:     req.Bet.Start,
		Target:         req.Target,
		MaxRounds:      req.MaxRounds,
	}
	if err := template.Validate(dist); err != nil {
		return nil, err
	}

	master := outcome.NewSource(req.Seed)
	var cells []cell
	for _, balance := range req.Balance.Values() {
		for _, bet := range req.Bet.Values() {
			if balance < bet {
				continue
			}
			cells = append(cells, cell{
				balance: balance,
				bet:     bet,
				seed1:   master.Uint64(),
				seed2:   master.Uint64(),
			})
		}
	}
	if len(cells) == 0 {
		return nil, fmt.Errorf("%w: every balance in %s is below every bet in %s", ErrNoFeasiblePoint, req.Balance, req.Bet)
	}

	points := make([]ScanPoint, len(cells))
	var done atomic.Int64
	jobs := make([]Job, len(cells))
	for i, c := range cells {
		jobs[i] = func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s := outcome.NewSampler(dist, rand.New(rand.NewPCG(c.seed1, c.seed2)))
			cfg := template
			cfg.InitialBalance = c.balance
			cfg.InitialBet = c.bet
			b, err := RunBatch(s, cfg, req.RunsPerPoint)
			if err != nil {
				return fmt.Errorf("scan point (%g, %g): %w", c.balance, c.bet, err)
			}
			points[i] = ScanPoint{
				InitialBalance:      c.balance,
				InitialBet:          c.bet,
				AverageFinalBalance: b.Summary.AverageFinalBalance,
				BankruptcyRate:      b.Summary.BankruptcyRate,
				AverageRoundCount:   b.Summary.AverageRoundCount,
			}
			n := done.Add(1)
			if req.OnProgress != nil {
				req.OnProgress(int(n), len(cells))
			}
			return nil
		}
	}

	if errs := RunPool(ctx, req.Workers, jobs); len(errs) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, errs[0]
	}

	sort.SliceStable(points, func(i, j int) bool {
		if points[i].InitialBalance != points[j].InitialBalance {
			return points[i].InitialBalance < points[j].InitialBalance
		}
		return points[i].InitialBet < points[j].InitialBet
	})
	return points, nil
}
