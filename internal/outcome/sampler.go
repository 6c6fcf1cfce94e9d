package outcome

import (
	"math/rand/v2"
	"time"
)

// Source is a uniform random source on [0, 1). *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// NewSource returns a PCG-backed source. A zero seed seeds from the clock.
func NewSource(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Sampler draws round outcomes from a Distribution. It is not safe for
// concurrent use; give each goroutine its own Sampler and Source.
type Sampler struct {
	dist *Distribution
	src  Source
}

func NewSampler(dist *Distribution, src Source) *Sampler {
	return &Sampler{dist: dist, src: src}
}

func (s *Sampler) Distribution() *Distribution {
	return s.dist
}

// Draw consumes exactly one value from the source and returns the label
// whose interval contains it.
func (s *Sampler) Draw() Label {
	u := s.src.Float64()
	for i, b := range s.dist.bounds {
		if u < b {
			return s.dist.outcomes[i].Label
		}
	}
	return s.dist.outcomes[len(s.dist.outcomes)-1].Label
}

// Sample plays one round with a bet on target and returns the payout
// multiplier: the target's payout on a hit, 0 on a miss.
func (s *Sampler) Sample(target Label) float64 {
	if s.Draw() != target {
		return 0
	}
	o, _ := s.dist.Lookup(target)
	return o.Payout
}
