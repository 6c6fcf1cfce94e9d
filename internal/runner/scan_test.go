package runner_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/signalnine/martingale/internal/outcome"
	"github.com/signalnine/martingale/internal/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangeValues(t *testing.T) {
	tests := []struct {
		name string
		r    runner.Range
		want int
	}{
		{"single", runner.Range{Start: 1, End: 1, Step: 1}, 1},
		{"integers", runner.Range{Start: 2, End: 20, Step: 1}, 19},
		{"fractional inclusive end", runner.Range{Start: 0.05, End: 1, Step: 0.05}, 20},
		{"end between steps", runner.Range{Start: 1, End: 2.5, Step: 1}, 2},
		{"zero step", runner.Range{Start: 1, End: 2, Step: 0}, 0},
		{"negative step", runner.Range{Start: 1, End: 2, Step: -1}, 0},
		{"end before start", runner.Range{Start: 5, End: 1, Step: 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vals := tt.r.Values()
			require.Len(t, vals, tt.want)
			if tt.want > 0 {
				assert.Equal(t, tt.r.Start, vals[0])
				assert.LessOrEqual(t, vals[len(vals)-1], tt.r.End+1e-9)
			}
		})
	}
}

func scanReq() runner.ScanRequest {
	return runner.ScanRequest{
		Balance:      runner.Range{Start: 1, End: 4, Step: 1},
		Bet:          runner.Range{Start: 1, End: 3, Step: 1},
		RunsPerPoint: 5,
		Target:       outcome.T,
		MaxRounds:    200,
		Seed:         11,
		Workers:      1,
	}
}

func TestScanSkipsInfeasibleCells(t *testing.T) {
	points, err := runner.Scan(context.Background(), scanReq())
	require.NoError(t, err)

	var got [][2]float64
	for _, p := range points {
		got = append(got, [2]float64{p.InitialBalance, p.InitialBet})
		assert.GreaterOrEqual(t, p.InitialBalance, p.InitialBet)
	}
	assert.Equal(t, [][2]float64{
		{1, 1},
		{2, 1}, {2, 2},
		{3, 1}, {3, 2}, {3, 3},
		{4, 1}, {4, 2}, {4, 3},
	}, got)
}

func TestScanNoFeasiblePoint(t *testing.T) {
	req := scanReq()
	req.Balance = runner.Range{Start: 1, End: 1, Step: 1}
	req.Bet = runner.Range{Start: 5, End: 5, Step: 1}
	points, err := runner.Scan(context.Background(), req)
	assert.Nil(t, points)
	assert.True(t, errors.Is(err, runner.ErrNoFeasiblePoint))
	assert.False(t, errors.Is(err, runner.ErrEmptyRange))
}

func TestScanEmptyRange(t *testing.T) {
	for _, mutate := range []func(*runner.ScanRequest){
		func(r *runner.ScanRequest) { r.Balance.Step = 0 },
		func(r *runner.ScanRequest) { r.Bet.End = 0 },
	} {
		req := scanReq()
		mutate(&req)
		points, err := runner.Scan(context.Background(), req)
		assert.Nil(t, points)
		assert.True(t, errors.Is(err, runner.ErrEmptyRange))
	}
}

func TestScanInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*runner.ScanRequest)
	}{
		{"non-positive start", func(r *runner.ScanRequest) { r.Bet.Start = 0 }},
		{"zero runs", func(r *runner.ScanRequest) { r.RunsPerPoint = 0 }},
		{"zero max rounds", func(r *runner.ScanRequest) { r.MaxRounds = 0 }},
		{"unknown target", func(r *runner.ScanRequest) { r.Target = "green" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := scanReq()
			tt.mutate(&req)
			_, err := runner.Scan(context.Background(), req)
			assert.True(t, errors.Is(err, runner.ErrInvalidConfig))
		})
	}
}

func TestScanDeterministicAcrossWorkers(t *testing.T) {
	serial, err := runner.Scan(context.Background(), scanReq())
	require.NoError(t, err)

	req := scanReq()
	req.Workers = 4
	parallel, err := runner.Scan(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, serial, parallel)
}

func TestScanProgress(t *testing.T) {
	var calls atomic.Int32
	req := scanReq()
	req.Workers = 3
	req.OnProgress = func(done, total int) {
		calls.Add(1)
		assert.Equal(t, 9, total)
	}
	_, err := runner.Scan(context.Background(), req)
	require.NoError(t, err)
	assert.EqualValues(t, 9, calls.Load())
}

func TestScanCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := runner.Scan(ctx, scanReq())
	assert.True(t, errors.Is(err, context.Canceled))
}
