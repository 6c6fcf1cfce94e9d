package runner

import (
	"fmt"
	"math"

	"github.com/signalnine/martingale/internal/outcome"
)

// TrialConfig holds the starting stake and stopping rule of one trial.
type TrialConfig struct {
	InitialBalance float64       `json:"initial_balance"`
	InitialBet     float64       `json:"initial_bet"`
	Target         outcome.Label `json:"target"`
	MaxRounds      int           `json:"max_rounds"`
}

// TrialResult is the outcome of one trial. BalanceHistory starts with the
// initial balance and has RoundCount+1 entries.
type TrialResult struct {
	FinalBalance     float64   `json:"final_balance"`
	RoundCount       int       `json:"round_count"`
	PeakBalance      float64   `json:"peak_balance"`
	Bankrupted       bool      `json:"bankrupted"`
	EndingLossStreak int       `json:"ending_loss_streak"`
	BalanceHistory   []float64 `json:"balance_history"`
}

// Round describes one resolved wager. Bet is the stake placed this round,
// NextBet the stake required for the following one.
type Round struct {
	Index      int
	Bet        float64
	Multiplier float64
	Won        bool
	Balance    float64
	NextBet    float64
	LossStreak int
}

type RoundObserver func(Round)

type trialOptions struct {
	observer RoundObserver
}

type TrialOption func(*trialOptions)

// WithRoundObserver registers fn to be called after every round.
func WithRoundObserver(fn RoundObserver) TrialOption {
	return func(o *trialOptions) { o.observer = fn }
}

// Validate checks cfg against the distribution the trial will be played on.
func (cfg TrialConfig) Validate(dist *outcome.Distribution) error {
	switch {
	case !(cfg.InitialBalance > 0) || math.IsInf(cfg.InitialBalance, 0):
		return fmt.Errorf("%w: initial balance must be positive, got %v", ErrInvalidConfig, cfg.InitialBalance)
	case !(cfg.InitialBet > 0) || math.IsInf(cfg.InitialBet, 0):
		return fmt.Errorf("%w: initial bet must be positive, got %v", ErrInvalidConfig, cfg.InitialBet)
	case cfg.MaxRounds <= 0:
		return fmt.Errorf("%w: max rounds must be positive, got %d", ErrInvalidConfig, cfg.MaxRounds)
	case !dist.Has(cfg.Target):
		return fmt.Errorf("%w: unknown target outcome %q (have %v)", ErrInvalidConfig, cfg.Target, dist.Labels())
	}
	return nil
}

// RunTrial plays one Martingale sequence until the player cannot cover the
// next bet or MaxRounds rounds have been played.
func RunTrial(s *outcome.Sampler, cfg TrialConfig, opts ...TrialOption) (*TrialResult, error) {
	if err := cfg.Validate(s.Distribution()); err != nil {
		return nil, err
	}
	var o trialOptions
	for _, opt := range opts {
		opt(&o)
	}

	balance := cfg.InitialBalance
	bet := cfg.InitialBet
	history := []float64{balance}

	if balance < bet {
		return &TrialResult{
			FinalBalance:   balance,
			PeakBalance:    balance,
			Bankrupted:     true,
			BalanceHistory: history,
		}, nil
	}

	var (
		rounds     int
		losses     int
		bankrupted bool
	)
	for {
		stake := bet
		mult := s.Sample(cfg.Target)
		rounds++

		if mult > 0 {
			balance += stake * mult
			bet = cfg.InitialBet
			losses = 0
		} else {
			balance -= stake
			losses++
			bet *= 2
		}
		history = append(history, balance)

		if o.observer != nil {
			o.observer(Round{
				Index:      rounds,
				Bet:        stake,
				Multiplier: mult,
				Won:        mult > 0,
				Balance:    balance,
				NextBet:    bet,
				LossStreak: losses,
			})
		}

		if balance < bet {
			bankrupted = true
			break
		}
		if rounds >= cfg.MaxRounds {
			break
		}
	}

	return &TrialResult{
		FinalBalance:     balance,
		RoundCount:       rounds,
		PeakBalance:      peak(history),
		Bankrupted:       bankrupted,
		EndingLossStreak: losses,
		BalanceHistory:   history,
	}, nil
}

func peak(history []float64) float64 {
	m := history[0]
	for _, v := range history[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
