package plot

import (
	"fmt"
	"math/rand"

	"github.com/atlasmap-sc/cellview/internal/scale"
	"github.com/atlasmap-sc/cellview/internal/stats"
	"github.com/atlasmap-sc/cellview/internal/surface"
)

// BoxPlotLayout is the default box-plot figure layout.
var BoxPlotLayout = Layout{
	Width:  900,
	Height: 500,
	Margin: Margin{Top: 80, Right: 40, Bottom: 120, Left: 60},
}

const (
	whiskerColor = "#666666"
	boxFill      = "#4a90e2"
	boxStroke    = "#2c5aa0"
	medianColor  = "#000000"
	pointColor   = "#000000"
)

// BoxPlotConfig contains box-plot renderer configuration.
type BoxPlotConfig struct {
	Layout      Layout
	PointRadius float64
}

// BoxPlotRenderer draws grouped box-and-whisker plots with a strip overlay.
type BoxPlotRenderer struct {
	config BoxPlotConfig
}

// NewBoxPlotRenderer creates a box-plot renderer.
func NewBoxPlotRenderer(cfg BoxPlotConfig) *BoxPlotRenderer {
	if cfg.Layout.Width <= 0 || cfg.Layout.Height <= 0 {
		cfg.Layout = BoxPlotLayout
	}
	if cfg.PointRadius <= 0 {
		cfg.PointRadius = 1.5
	}
	return &BoxPlotRenderer{config: cfg}
}

// BoxPlotRequest is the input of one box-plot render. Rand seeds the strip
// jitter; nil means a fresh random layout every call.
type BoxPlotRequest struct {
	Stats            []stats.GroupStats
	Gene             string
	GroupBy          stats.GroupBy
	IndicationFilter string
	Rand             *rand.Rand
}

// Title returns the heading for req.
func (req BoxPlotRequest) Title() string {
	title := fmt.Sprintf("%s Expression by %s", req.Gene, req.GroupBy.Label())
	if req.GroupBy == stats.GroupByCellLine && req.IndicationFilter != "" && req.IndicationFilter != stats.AllIndications {
		title += " (" + req.IndicationFilter + ")"
	}
	return title
}

// Render clears s and draws the box plot. Empty stats leave s in the
// "no data" state.
func (r *BoxPlotRenderer) Render(s *surface.Surface, req BoxPlotRequest) {
	l := r.config.Layout
	s.Resize(l.Width, l.Height)

	if len(req.Stats) == 0 {
		s.SetEmpty(fmt.Sprintf("No expression data available for %s", req.Gene))
		return
	}

	w, h := l.Inner()
	left, top := l.Margin.Left, l.Margin.Top

	groups := make([]string, len(req.Stats))
	highest := 0.0
	for i, g := range req.Stats {
		groups[i] = g.Group
		if i == 0 || g.Highest > highest {
			highest = g.Highest
		}
	}
	x := scale.NewBand(groups, left, left+w, scale.DefaultBandPadding)
	y := scale.NewLinear(0, highest*scale.ValueHeadroom, top+h, top)
	bw := x.Bandwidth()

	whisker := surface.Style{Stroke: whiskerColor, StrokeWidth: 1}
	for _, g := range req.Stats {
		x0, _ := x.Position(g.Group)
		cx := x0 + bw/2
		s.Add(
			surface.Line{X1: cx, Y1: y.Map(g.Min), X2: cx, Y2: y.Map(g.Max), Style: whisker},
			surface.Rect{
				X: x0, Y: y.Map(g.Q3), W: bw, H: y.Map(g.Q1) - y.Map(g.Q3),
				Style: surface.Style{
					Fill: boxFill, FillOpacity: 0.7,
					Stroke: boxStroke, StrokeWidth: 1.5, StrokeOpacity: 0.7,
				},
			},
			surface.Line{
				X1: x0, Y1: y.Map(g.Median), X2: x0 + bw, Y2: y.Map(g.Median),
				Style: surface.Style{Stroke: medianColor, StrokeWidth: 2},
			},
			surface.Line{X1: x0 + bw*0.25, Y1: y.Map(g.Min), X2: x0 + bw*0.75, Y2: y.Map(g.Min), Style: whisker},
			surface.Line{X1: x0 + bw*0.25, Y1: y.Map(g.Max), X2: x0 + bw*0.75, Y2: y.Map(g.Max), Style: whisker},
		)
	}

	// Strip points go on top of every box.
	for _, g := range req.Stats {
		cx, _ := x.Center(g.Group)
		for _, c := range g.Values {
			s.Add(surface.Circle{
				X: stats.Jitter(cx, bw, req.Rand),
				Y: y.Map(c.Log2Expression),
				R: r.config.PointRadius,
				Style: surface.Style{
					Fill: pointColor, FillOpacity: 0.4,
				},
			})
		}
	}

	drawBandAxisBottom(s, x, left, left+w, top+h)
	drawAxisLeft(s, y, left, 10)

	s.Add(
		surface.Text{
			X: left + w/2, Y: top - 50,
			Content: req.Title(), Size: 18, Bold: true, Anchor: surface.AnchorMiddle,
		},
		surface.Text{
			X: left - 45, Y: top + h/2,
			Content: "log2(Expression + 1)", Size: 14, Anchor: surface.AnchorMiddle, Rotate: -90,
		},
	)
}
