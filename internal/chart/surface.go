package chart

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/signalnine/martingale/internal/outcome"
	"github.com/signalnine/martingale/internal/runner"
)

var ErrNoPoints = errors.New("no scan points to plot")

type SurfaceMeta struct {
	Target       outcome.Label
	RunsPerPoint int
	MaxRounds    int
}

// viridis stops, low to high.
var viridis = []string{"#440154", "#3b528b", "#21918c", "#5ec962", "#fde725"}

// Surface writes a standalone HTML page with a 3-D scatter of the scan:
// initial balance, initial bet and average final balance, coloured by the
// latter.
func Surface(w io.Writer, points []runner.ScanPoint, meta SurfaceMeta) error {
	if len(points) == 0 {
		return ErrNoPoints
	}

	data := make([]opts.Chart3DData, len(points))
	lo, hi := points[0].AverageFinalBalance, points[0].AverageFinalBalance
	for i, p := range points {
		data[i] = opts.Chart3DData{
			Value: []interface{}{p.InitialBalance, p.InitialBet, p.AverageFinalBalance},
		}
		lo = min(lo, p.AverageFinalBalance)
		hi = max(hi, p.AverageFinalBalance)
	}
	if hi == lo {
		hi = lo + 1
	}

	scatter := charts.NewScatter3D()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Martingale Scan",
			Width:     "1200px",
			Height:    "800px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title: "Martingale Scan: Avg Final Balance vs. Initial Params",
			Subtitle: fmt.Sprintf("Choice=%s, Runs/Combo=%d, Max Rolls=%d",
				meta.Target, meta.RunsPerPoint, meta.MaxRounds),
		}),
		charts.WithXAxis3DOpts(opts.XAxis3D{Name: "Initial Balance ($)"}),
		charts.WithYAxis3DOpts(opts.YAxis3D{Name: "Initial Bet ($)"}),
		charts.WithZAxis3DOpts(opts.ZAxis3D{Name: "Average Final Balance ($)"}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Min:     float32(lo),
			Max:     float32(hi),
			InRange: &opts.VisualMapInRange{Color: viridis},
		}),
	)
	scatter.AddSeries("Avg Final Balance", data)

	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("rendering scan chart: %w", err)
	}
	return nil
}
