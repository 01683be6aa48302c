package plot

import (
	"math"
	"strconv"
	"strings"

	"github.com/atlasmap-sc/cellview/internal/scale"
	"github.com/atlasmap-sc/cellview/internal/surface"
)

const (
	tickSize     = 6.0
	tickPadding  = 3.0
	tickFontSize = 10.0
	axisColor    = "#000000"
)

// Margin is the space around the plotting area.
type Margin struct {
	Top, Right, Bottom, Left float64
}

// Layout is the outer pixel size and margins of a figure.
type Layout struct {
	Width, Height int
	Margin        Margin
}

// Inner returns the plotting area size.
func (l Layout) Inner() (w, h float64) {
	return float64(l.Width) - l.Margin.Left - l.Margin.Right,
		float64(l.Height) - l.Margin.Top - l.Margin.Bottom
}

func axisLine(x1, y1, x2, y2 float64) surface.Line {
	return surface.Line{X1: x1, Y1: y1, X2: x2, Y2: y2, Style: surface.Style{Stroke: axisColor, StrokeWidth: 1}}
}

// drawAxisBottom draws a horizontal axis at y with n ticks from l.
func drawAxisBottom(s *surface.Surface, l scale.Linear, y float64, n int) {
	r0, r1 := l.Range()
	s.Add(
		axisLine(r0, y, r1, y),
		axisLine(r0, y, r0, y+tickSize),
		axisLine(r1, y, r1, y+tickSize),
	)
	ticks := l.Ticks(n)
	labels := tickLabels(ticks)
	for i, v := range ticks {
		x := l.Map(v)
		s.Add(
			axisLine(x, y, x, y+tickSize),
			surface.Text{
				X: x, Y: y + tickSize + tickPadding + tickFontSize*0.71,
				Content: labels[i], Size: tickFontSize, Anchor: surface.AnchorMiddle, Fill: axisColor,
			},
		)
	}
}

// drawAxisLeft draws a vertical axis at x with n ticks from l.
func drawAxisLeft(s *surface.Surface, l scale.Linear, x float64, n int) {
	drawAxisVertical(s, l, x, n, -1)
}

// drawAxisRight draws a vertical axis at x with labels to its right.
func drawAxisRight(s *surface.Surface, l scale.Linear, x float64, n int) {
	drawAxisVertical(s, l, x, n, 1)
}

func drawAxisVertical(s *surface.Surface, l scale.Linear, x float64, n int, side float64) {
	r0, r1 := l.Range()
	s.Add(
		axisLine(x, r0, x, r1),
		axisLine(x, r0, x+side*tickSize, r0),
		axisLine(x, r1, x+side*tickSize, r1),
	)
	anchor := surface.AnchorEnd
	if side > 0 {
		anchor = surface.AnchorStart
	}
	ticks := l.Ticks(n)
	labels := tickLabels(ticks)
	for i, v := range ticks {
		y := l.Map(v)
		s.Add(
			axisLine(x, y, x+side*tickSize, y),
			surface.Text{
				X: x + side*(tickSize+tickPadding), Y: y,
				Content: labels[i], Size: tickFontSize, Anchor: anchor,
				Baseline: surface.BaselineMiddle, Fill: axisColor,
			},
		)
	}
}

// drawBandAxisBottom draws a categorical axis with labels rotated by -45
// degrees and anchored at their end.
func drawBandAxisBottom(s *surface.Surface, b scale.Band, r0, r1, y float64) {
	s.Add(
		axisLine(r0, y, r1, y),
		axisLine(r0, y, r0, y+tickSize),
		axisLine(r1, y, r1, y+tickSize),
	)

	// Offset of the label origin from the tick, before rotation.
	const dx, dy = -0.5 * tickFontSize, tickSize + tickPadding + 0.5*tickFontSize
	theta := -45 * math.Pi / 180
	ox := dx*math.Cos(theta) - dy*math.Sin(theta)
	oy := dx*math.Sin(theta) + dy*math.Cos(theta)

	for _, cat := range b.Domain() {
		x, ok := b.Center(cat)
		if !ok {
			continue
		}
		s.Add(
			axisLine(x, y, x, y+tickSize),
			surface.Text{
				X: x + ox, Y: y + oy,
				Content: cat, Size: tickFontSize, Anchor: surface.AnchorEnd,
				Rotate: -45, Fill: axisColor,
			},
		)
	}
}

// tickLabels formats ticks with the precision implied by their spacing.
func tickLabels(ticks []float64) []string {
	decimals := 0
	if len(ticks) > 1 {
		step := math.Abs(ticks[1] - ticks[0])
		if step > 0 && step < 1 {
			decimals = int(math.Ceil(-math.Log10(step) - 1e-9))
		}
	}
	out := make([]string, len(ticks))
	for i, v := range ticks {
		if v == 0 {
			v = 0 // drop negative zero
		}
		out[i] = strings.Replace(strconv.FormatFloat(v, 'f', decimals, 64), "-", "−", 1)
	}
	return out
}
