package chart

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/shopspring/decimal"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"

	"github.com/signalnine/martingale/internal/runner"
)

// ErrNoRounds is returned when the trial never placed a bet.
var ErrNoRounds = errors.New("trial has no rounds to plot")

const (
	width  = 1200
	height = 700

	marginLeft   = 90
	marginRight  = 30
	marginTop    = 50
	marginBottom = 60
)

// Balance draws the balance history of res as a PNG line chart with the
// run parameters and results boxed in the top right corner.
func Balance(w io.Writer, res *runner.TrialResult, cfg runner.TrialConfig) error {
	if res == nil || res.RoundCount == 0 || len(res.BalanceHistory) < 2 {
		return ErrNoRounds
	}

	face, err := loadFont(gomono.TTF, 12)
	if err != nil {
		return fmt.Errorf("failed to load font: %w", err)
	}
	titleFace, err := loadFont(gobold.TTF, 16)
	if err != nil {
		return fmt.Errorf("failed to load font: %w", err)
	}

	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	plotW := float64(width - marginLeft - marginRight)
	plotH := float64(height - marginTop - marginBottom)

	lo, hi := bounds(res.BalanceHistory)
	xMax := float64(len(res.BalanceHistory) - 1)
	px := func(x float64) float64 { return marginLeft + x/xMax*plotW }
	py := func(y float64) float64 { return marginTop + (hi-y)/(hi-lo)*plotH }

	// dashed grid and tick labels
	dc.SetFontFace(face)
	dc.SetLineWidth(1)
	for _, y := range ticks(lo, hi, 8) {
		dc.SetRGBA(0, 0, 0, 0.2)
		dc.SetDash(4, 4)
		dc.DrawLine(marginLeft, py(y), marginLeft+plotW, py(y))
		dc.Stroke()
		dc.SetRGB(0.2, 0.2, 0.2)
		dc.DrawStringAnchored(money(y), marginLeft-8, py(y), 1, 0.35)
	}
	for _, x := range ticks(0, xMax, 10) {
		dc.SetRGBA(0, 0, 0, 0.2)
		dc.SetDash(4, 4)
		dc.DrawLine(px(x), marginTop, px(x), marginTop+plotH)
		dc.Stroke()
		dc.SetRGB(0.2, 0.2, 0.2)
		dc.DrawStringAnchored(fmt.Sprintf("%.0f", x), px(x), marginTop+plotH+16, 0.5, 0.5)
	}
	dc.SetDash()

	dc.SetRGB(0.3, 0.3, 0.3)
	dc.DrawRectangle(marginLeft, marginTop, plotW, plotH)
	dc.Stroke()

	// balance line
	dc.SetRGB(0.12, 0.47, 0.71)
	dc.SetLineWidth(1.5)
	dc.MoveTo(px(0), py(res.BalanceHistory[0]))
	for i, v := range res.BalanceHistory[1:] {
		dc.LineTo(px(float64(i+1)), py(v))
	}
	dc.Stroke()

	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored("Roll Count", marginLeft+plotW/2, height-18, 0.5, 0.5)
	dc.Push()
	dc.RotateAbout(gg.Radians(-90), 20, marginTop+plotH/2)
	dc.DrawStringAnchored("Balance ($)", 20, marginTop+plotH/2, 0.5, 0.5)
	dc.Pop()

	dc.SetFontFace(titleFace)
	dc.DrawStringAnchored(fmt.Sprintf("Martingale Simulation (Last Run): Bal=$%s, Bet=$%s, Choice=%s",
		money(cfg.InitialBalance), money(cfg.InitialBet), cfg.Target), width/2, marginTop/2, 0.5, 0.5)

	dc.SetFontFace(face)
	drawStats(dc, statsLines(res, cfg), marginLeft+plotW-10, marginTop+10)

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return nil
}

func statsLines(res *runner.TrialResult, cfg runner.TrialConfig) []string {
	bankrupted := "No"
	if res.Bankrupted {
		bankrupted = "Yes"
	}
	return []string{
		"Run Parameters:",
		"  Initial Bal: $" + money(cfg.InitialBalance),
		"  Initial Bet: $" + money(cfg.InitialBet),
		"  Choice: " + string(cfg.Target),
		"Run Results:",
		fmt.Sprintf("  Total Rolls: %d", res.RoundCount),
		"  Final Balance: $" + money(res.FinalBalance),
		"  Max Balance: $" + money(res.PeakBalance),
		fmt.Sprintf("  Ending Streak: %d", res.EndingLossStreak),
		"  Bankrupted: " + bankrupted,
	}
}

// drawStats draws lines in a rounded box whose top right corner is (x, y).
func drawStats(dc *gg.Context, lines []string, x, y float64) {
	const pad, lineH = 8.0, 16.0
	var boxW float64
	for _, l := range lines {
		if w, _ := dc.MeasureString(l); w > boxW {
			boxW = w
		}
	}
	boxW += 2 * pad
	boxH := float64(len(lines))*lineH + 2*pad

	dc.SetRGBA(0.68, 0.85, 0.9, 0.8)
	dc.DrawRoundedRectangle(x-boxW, y, boxW, boxH, 6)
	dc.Fill()
	dc.SetRGB(0.1, 0.1, 0.1)
	dc.DrawStringWrapped(strings.Join(lines, "\n"), x-boxW+pad, y+pad, 0, 0, boxW, 1.33, gg.AlignLeft)
}

// bounds pads the history range so flat lines stay visible.
func bounds(history []float64) (lo, hi float64) {
	lo, hi = history[0], history[0]
	for _, v := range history {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		return lo - 1, hi + 1
	}
	pad := (hi - lo) * 0.05
	return lo - pad, hi + pad
}

// ticks returns round values in [lo, hi], roughly n of them.
func ticks(lo, hi float64, n int) []float64 {
	if hi <= lo || n < 1 {
		return nil
	}
	raw := (hi - lo) / float64(n)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	step := mag
	for _, m := range []float64{1, 2, 5, 10} {
		step = m * mag
		if step >= raw {
			break
		}
	}
	var out []float64
	for v := math.Ceil(lo/step) * step; v <= hi+step*1e-9; v += step {
		out = append(out, v)
	}
	return out
}

func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func loadFont(fontData []byte, size float64) (font.Face, error) {
	f, err := truetype.Parse(fontData)
	if err != nil {
		return nil, err
	}
	return truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	}), nil
}
