package chart_test

import (
	"bytes"
	"errors"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/martingale/internal/chart"
	"github.com/signalnine/martingale/internal/outcome"
	"github.com/signalnine/martingale/internal/runner"
)

func TestBalancePNG(t *testing.T) {
	res := &runner.TrialResult{
		FinalBalance:     15,
		RoundCount:       3,
		PeakBalance:      15,
		EndingLossStreak: 0,
		BalanceHistory:   []float64{10, 9, 7, 15},
	}
	cfg := runner.TrialConfig{InitialBalance: 10, InitialBet: 1, Target: outcome.T, MaxRounds: 3}

	var buf bytes.Buffer
	require.NoError(t, chart.Balance(&buf, res, cfg))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 1200, img.Bounds().Dx())
	assert.Equal(t, 700, img.Bounds().Dy())
}

func TestBalanceFlatHistory(t *testing.T) {
	res := &runner.TrialResult{FinalBalance: 5, RoundCount: 1, PeakBalance: 5, BalanceHistory: []float64{5, 5}}
	cfg := runner.TrialConfig{InitialBalance: 5, InitialBet: 1, Target: outcome.T, MaxRounds: 1}

	var buf bytes.Buffer
	assert.NoError(t, chart.Balance(&buf, res, cfg))
	assert.NotZero(t, buf.Len())
}

func TestBalanceNoRounds(t *testing.T) {
	res := &runner.TrialResult{FinalBalance: 5, PeakBalance: 5, Bankrupted: true, BalanceHistory: []float64{5}}
	cfg := runner.TrialConfig{InitialBalance: 5, InitialBet: 10, Target: outcome.T, MaxRounds: 10}

	var buf bytes.Buffer
	err := chart.Balance(&buf, res, cfg)
	assert.True(t, errors.Is(err, chart.ErrNoRounds))
	assert.Zero(t, buf.Len())
	assert.True(t, errors.Is(chart.Balance(&buf, nil, cfg), chart.ErrNoRounds))
}

func TestSurfaceHTML(t *testing.T) {
	points := []runner.ScanPoint{
		{InitialBalance: 2, InitialBet: 1, AverageFinalBalance: 1.5, BankruptcyRate: 0.9, AverageRoundCount: 3},
		{InitialBalance: 4, InitialBet: 1, AverageFinalBalance: 5.25, BankruptcyRate: 0.4, AverageRoundCount: 12},
	}

	var buf bytes.Buffer
	require.NoError(t, chart.Surface(&buf, points, chart.SurfaceMeta{Target: outcome.T, RunsPerPoint: 50, MaxRounds: 1000}))
	out := buf.String()
	assert.Contains(t, out, "<html")
	assert.Contains(t, out, "scatter3D")
	assert.Contains(t, out, "Runs/Combo=50")
	assert.Contains(t, out, "5.25")
}

func TestSurfaceNoPoints(t *testing.T) {
	err := chart.Surface(&bytes.Buffer{}, nil, chart.SurfaceMeta{})
	assert.True(t, errors.Is(err, chart.ErrNoPoints))
}
