package plot

import (
	"math"

	"github.com/atlasmap-sc/cellview/internal/colorscale"
	"github.com/atlasmap-sc/cellview/internal/scale"
	"github.com/atlasmap-sc/cellview/internal/surface"
)

const (
	swatchSize     = 15.0
	swatchSpacing  = 25.0
	legendFontSize = 12.0

	gradientWidth  = 20.0
	gradientHeight = 200.0
	gradientStops  = 11
)

// LegendEntry is one categorical swatch.
type LegendEntry struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

// Legend describes what a legend shows, independent of drawing.
type Legend struct {
	Kind    string                 `json:"kind"`
	Entries []LegendEntry          `json:"entries,omitempty"`
	Min     *float64               `json:"min,omitempty"`
	Max     *float64               `json:"max,omitempty"`
	Stops   []surface.GradientStop `json:"stops,omitempty"`
}

// DescribeLegend returns the legend content for a colour scale.
func DescribeLegend(cs colorscale.Scale) Legend {
	switch c := cs.(type) {
	case *colorscale.Categorical:
		return Legend{Kind: "categorical", Entries: categoricalEntries(c)}
	case *colorscale.Continuous:
		lg := Legend{Kind: "continuous", Stops: gradient(c)}
		if lo, hi := c.Domain(); !math.IsNaN(lo) && !math.IsNaN(hi) {
			lg.Min, lg.Max = &lo, &hi
		}
		return lg
	}
	return Legend{}
}

func categoricalEntries(c *colorscale.Categorical) []LegendEntry {
	labels := c.Domain()
	out := make([]LegendEntry, len(labels))
	for i, l := range labels {
		out[i] = LegendEntry{Label: "Cluster " + l, Color: c.Color(l)}
	}
	return out
}

func gradient(c *colorscale.Continuous) []surface.GradientStop {
	lo, hi := c.Domain()
	stops := make([]surface.GradientStop, gradientStops)
	for i := range stops {
		t := float64(i) / float64(gradientStops-1)
		stops[i] = surface.GradientStop{Offset: t, Color: c.Color(lo + t*(hi-lo))}
	}
	return stops
}

// DrawCategoricalLegend draws one swatch and label per cluster, top-down from (x, y).
func DrawCategoricalLegend(s *surface.Surface, x, y float64, c *colorscale.Categorical) []LegendEntry {
	entries := categoricalEntries(c)
	for i, e := range entries {
		top := y + float64(i)*swatchSpacing
		s.Add(
			surface.Rect{X: x, Y: top, W: swatchSize, H: swatchSize, Style: surface.Style{Fill: e.Color}},
			surface.Text{X: x + 20, Y: top + 12, Content: e.Label, Size: legendFontSize},
		)
	}
	return entries
}

// DrawContinuousLegend draws a vertical gradient bar with low values at the
// bottom, a value axis on its right and a rotated "Expression" label.
func DrawContinuousLegend(s *surface.Surface, x, y float64, c *colorscale.Continuous, id string) {
	lo, hi := c.Domain()
	// Lower values sit at the bottom of the bar.
	s.Add(
		surface.LinearGradient{ID: id, X1: 0, Y1: 1, X2: 0, Y2: 0, Stops: gradient(c)},
		surface.Rect{X: x, Y: y, W: gradientWidth, H: gradientHeight, Gradient: id},
	)
	drawAxisRight(s, scale.NewLinear(lo, hi, y+gradientHeight, y), x+gradientWidth, 5)
	s.Add(surface.Text{
		X: x + gradientWidth + 40, Y: y + gradientHeight/2,
		Content: "Expression", Size: legendFontSize, Anchor: surface.AnchorMiddle, Rotate: 90,
	})
}
