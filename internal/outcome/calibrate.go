package outcome

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// LabelStat compares the configured and observed frequency of one label.
type LabelStat struct {
	Label     Label   `json:"label"`
	Expected  float64 `json:"expected"`
	Observed  float64 `json:"observed"`
	Count     int     `json:"count"`
	Deviation float64 `json:"deviation"`
}

// Calibration is the result of an empirical check of a Sampler against its
// configured distribution.
type Calibration struct {
	Draws        int         `json:"draws"`
	Labels       []LabelStat `json:"labels"`
	MaxDeviation float64     `json:"max_deviation"`
	ChiSquared   float64     `json:"chi_squared"`
	PValue       float64     `json:"p_value"`
}

// Within reports whether every observed frequency is within tol of its
// configured probability.
func (c *Calibration) Within(tol float64) bool {
	return c.MaxDeviation <= tol
}

// Calibrate draws n labels from s and runs a Pearson goodness-of-fit test
// against the sampler's distribution.
func Calibrate(s *Sampler, n int) (*Calibration, error) {
	if n <= 0 {
		return nil, fmt.Errorf("draws must be positive, got %d", n)
	}
	outcomes := s.dist.Outcomes()
	counts := make(map[Label]int, len(outcomes))
	for i := 0; i < n; i++ {
		counts[s.Draw()]++
	}

	c := &Calibration{Draws: n}
	dof := 0
	for _, o := range outcomes {
		count := counts[o.Label]
		observed := float64(count) / float64(n)
		dev := math.Abs(observed - o.Probability)
		c.Labels = append(c.Labels, LabelStat{
			Label:     o.Label,
			Expected:  o.Probability,
			Observed:  observed,
			Count:     count,
			Deviation: dev,
		})
		if dev > c.MaxDeviation {
			c.MaxDeviation = dev
		}
		// Zero-probability cells carry no information for the test.
		if o.Probability == 0 {
			continue
		}
		expected := o.Probability * float64(n)
		c.ChiSquared += (float64(count) - expected) * (float64(count) - expected) / expected
		dof++
	}

	c.PValue = 1
	if dof > 1 {
		c.PValue = distuv.ChiSquared{K: float64(dof - 1)}.Survival(c.ChiSquared)
	}
	return c, nil
}
