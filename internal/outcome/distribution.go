package outcome

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidDistribution is returned when an outcome table breaks the
// probability or payout invariants.
var ErrInvalidDistribution = errors.New("invalid outcome distribution")

// Tolerance is the allowed slack on the probability sum.
const Tolerance = 1e-6

// Label names one outcome of a round, such as "T" or "Ace".
type Label string

const (
	T   Label = "T"
	CT  Label = "CT"
	Ace Label = "Ace"
)

// Outcome is one row of the table: its chance per round and the gross
// multiplier paid on a winning bet.
type Outcome struct {
	Label       Label   `yaml:"label" json:"label"`
	Probability float64 `yaml:"probability" json:"probability"`
	Payout      float64 `yaml:"payout" json:"payout"`
}

// Distribution is an immutable, ordered outcome table. The order of the
// entries is the order in which the sampler lays out its intervals.
type Distribution struct {
	outcomes []Outcome
	bounds   []float64
	index    map[Label]int
}

// Default returns the T / CT / Ace game.
func Default() *Distribution {
	d, err := NewDistribution([]Outcome{
		{Label: T, Probability: 7.0 / 15, Payout: 2},
		{Label: CT, Probability: 7.0 / 15, Payout: 2},
		{Label: Ace, Probability: 1.0 / 15, Payout: 14},
	})
	if err != nil {
		panic(err)
	}
	return d
}

// NewDistribution validates outcomes and builds the sampling intervals.
// Errors wrap ErrInvalidDistribution.
func NewDistribution(outcomes []Outcome) (*Distribution, error) {
	if len(outcomes) == 0 {
		return nil, fmt.Errorf("%w: no outcomes defined", ErrInvalidDistribution)
	}
	d := &Distribution{
		outcomes: make([]Outcome, len(outcomes)),
		bounds:   make([]float64, len(outcomes)),
		index:    make(map[Label]int, len(outcomes)),
	}
	copy(d.outcomes, outcomes)

	var sum float64
	for i, o := range d.outcomes {
		if o.Label == "" {
			return nil, fmt.Errorf("%w: outcome %d: label is required", ErrInvalidDistribution, i)
		}
		if _, dup := d.index[o.Label]; dup {
			return nil, fmt.Errorf("%w: duplicate label %q", ErrInvalidDistribution, o.Label)
		}
		if o.Probability < 0 || math.IsNaN(o.Probability) || math.IsInf(o.Probability, 0) {
			return nil, fmt.Errorf("%w: %q: probability must be a non-negative number, got %v", ErrInvalidDistribution, o.Label, o.Probability)
		}
		if !(o.Payout > 0) || math.IsInf(o.Payout, 0) {
			return nil, fmt.Errorf("%w: %q: payout must be positive, got %v", ErrInvalidDistribution, o.Label, o.Payout)
		}
		d.index[o.Label] = i
		sum += o.Probability
		d.bounds[i] = sum
	}
	if math.Abs(sum-1) > Tolerance {
		return nil, fmt.Errorf("%w: probabilities sum to %.9f, want 1", ErrInvalidDistribution, sum)
	}
	// Pin the last bound so no u in [0,1) can fall past the table.
	d.bounds[len(d.bounds)-1] = 1
	return d, nil
}

// Outcomes returns a copy of the table in interval order.
func (d *Distribution) Outcomes() []Outcome {
	out := make([]Outcome, len(d.outcomes))
	copy(out, d.outcomes)
	return out
}

func (d *Distribution) Has(label Label) bool {
	_, ok := d.index[label]
	return ok
}

// Lookup returns the outcome entry for label.
func (d *Distribution) Lookup(label Label) (Outcome, bool) {
	i, ok := d.index[label]
	if !ok {
		return Outcome{}, false
	}
	return d.outcomes[i], true
}

func (d *Distribution) Labels() []Label {
	labels := make([]Label, len(d.outcomes))
	for i, o := range d.outcomes {
		labels[i] = o.Label
	}
	return labels
}

// ExpectedReturn is the mean gross credit per unit staked on label, i.e.
// p * payout. Values below 1 mean the house has the edge.
func (d *Distribution) ExpectedReturn(label Label) float64 {
	o, ok := d.Lookup(label)
	if !ok {
		return 0
	}
	return o.Probability * o.Payout
}
