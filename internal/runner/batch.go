package runner

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/signalnine/martingale/internal/outcome"
)

// Spread summarizes the distribution of one per-trial quantity.
type Spread struct {
	Min    float64 `json:"min"`
	Median float64 `json:"median"`
	P90    float64 `json:"p90"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"std_dev"`
}

type BatchSummary struct {
	RunCount            int     `json:"run_count"`
	AverageRoundCount   float64 `json:"average_round_count"`
	BankruptcyRate      float64 `json:"bankruptcy_rate"`
	AverageFinalBalance float64 `json:"average_final_balance"`
	AveragePeakBalance  float64 `json:"average_peak_balance"`

	BankruptCount     int        `json:"bankrupt_count"`
	CappedCount       int        `json:"capped_count"`
	SurvivalRate      float64    `json:"survival_rate"`
	LongestLossStreak int        `json:"longest_loss_streak"`
	Rounds            Spread     `json:"rounds"`
	FinalBalance      Spread     `json:"final_balance"`
	PeakBalance       Spread     `json:"peak_balance"`
	FinalBalanceCI95  [2]float64 `json:"final_balance_ci95"`
}

type Batch struct {
	Config  TrialConfig    `json:"config"`
	Results []*TrialResult `json:"-"`
	Summary BatchSummary   `json:"summary"`
}

// Last returns the final trial of the batch, or nil for an empty batch.
func (b *Batch) Last() *TrialResult {
	if len(b.Results) == 0 {
		return nil
	}
	return b.Results[len(b.Results)-1]
}

type batchOptions struct {
	progress  func(done, total int)
	observers map[int]RoundObserver
}

type BatchOption func(*batchOptions)

// maxPrealloc bounds the up-front result allocation; larger batches grow.
const maxPrealloc = 4096

// WithProgress reports progress every tenth of the batch and on the last
// trial.
func WithProgress(fn func(done, total int)) BatchOption {
	return func(o *batchOptions) { o.progress = fn }
}

// WithTrialObserver attaches a round observer to the i-th trial (0-based).
func WithTrialObserver(i int, fn RoundObserver) BatchOption {
	return func(o *batchOptions) {
		if o.observers == nil {
			o.observers = map[int]RoundObserver{}
		}
		o.observers[i] = fn
	}
}

// RunBatch runs runs independent trials of cfg on s and summarizes them.
func RunBatch(s *outcome.Sampler, cfg TrialConfig, runs int, opts ...BatchOption) (*Batch, error) {
	if runs < 0 {
		return nil, fmt.Errorf("%w: run count must not be negative, got %d", ErrInvalidConfig, runs)
	}
	if err := cfg.Validate(s.Distribution()); err != nil {
		return nil, err
	}
	var o batchOptions
	for _, opt := range opts {
		opt(&o)
	}

	every := runs / 10
	if every < 1 {
		every = 1
	}

	results := make([]*TrialResult, 0, min(runs, maxPrealloc))
	for i := 0; i < runs; i++ {
		var topts []TrialOption
		if fn, ok := o.observers[i]; ok {
			topts = append(topts, WithRoundObserver(fn))
		}
		res, err := RunTrial(s, cfg, topts...)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
		if o.progress != nil && ((i+1)%every == 0 || i+1 == runs) {
			o.progress(i+1, runs)
		}
	}

	return &Batch{
		Config:  cfg,
		Results: results,
		Summary: Summarize(cfg, results),
	}, nil
}

// Summarize aggregates trial results. An empty slice yields a zero summary.
func Summarize(cfg TrialConfig, results []*TrialResult) BatchSummary {
	n := len(results)
	if n == 0 {
		return BatchSummary{}
	}

	rounds := make([]float64, n)
	finals := make([]float64, n)
	peaks := make([]float64, n)
	var sum BatchSummary
	var totalRounds, totalFinal, totalPeak float64
	for i, r := range results {
		rounds[i] = float64(r.RoundCount)
		finals[i] = r.FinalBalance
		peaks[i] = r.PeakBalance
		totalRounds += rounds[i]
		totalFinal += r.FinalBalance
		totalPeak += r.PeakBalance
		if r.Bankrupted {
			sum.BankruptCount++
		} else if r.RoundCount >= cfg.MaxRounds {
			sum.CappedCount++
		}
		if r.EndingLossStreak > sum.LongestLossStreak {
			sum.LongestLossStreak = r.EndingLossStreak
		}
	}

	sum.RunCount = n
	sum.AverageRoundCount = totalRounds / float64(n)
	sum.AverageFinalBalance = totalFinal / float64(n)
	sum.AveragePeakBalance = totalPeak / float64(n)
	sum.BankruptcyRate = float64(sum.BankruptCount) / float64(n)
	sum.SurvivalRate = 1 - sum.BankruptcyRate
	sum.Rounds = spread(rounds)
	sum.FinalBalance = spread(finals)
	sum.PeakBalance = spread(peaks)
	sum.FinalBalanceCI95 = meanInterval(sum.AverageFinalBalance, finals, 0.95)
	return sum
}

func spread(data []float64) Spread {
	return Spread{
		Min:    finite(stats.Min(data)),
		Median: finite(stats.Median(data)),
		P90:    finite(stats.Percentile(data, 90)),
		Max:    finite(stats.Max(data)),
		StdDev: finite(stats.StandardDeviation(data)),
	}
}

// finite drops stats errors; summaries are JSON encoded and must not hold NaN.
func finite(v float64, err error) float64 {
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// meanInterval is the normal-approximation confidence interval of the mean.
func meanInterval(mean float64, data []float64, level float64) [2]float64 {
	if len(data) < 2 {
		return [2]float64{mean, mean}
	}
	sd, err := stats.StandardDeviationSample(data)
	if err != nil || math.IsNaN(sd) {
		return [2]float64{mean, mean}
	}
	z := distuv.UnitNormal.Quantile(1 - (1-level)/2)
	half := z * sd / math.Sqrt(float64(len(data)))
	return [2]float64{mean - half, mean + half}
}
