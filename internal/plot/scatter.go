// Package plot draws embedding scatter plots and grouped box plots onto a
// surface.
package plot

import (
	"fmt"
	"regexp"

	"github.com/atlasmap-sc/cellview/internal/colorscale"
	"github.com/atlasmap-sc/cellview/internal/data/dataset"
	"github.com/atlasmap-sc/cellview/internal/hittest"
	"github.com/atlasmap-sc/cellview/internal/scale"
	"github.com/atlasmap-sc/cellview/internal/surface"
	"github.com/atlasmap-sc/cellview/pkg/colormap"
)

// ColorMode selects how scatter points are coloured.
type ColorMode int

const (
	ColorByCluster ColorMode = iota
	ColorByExpression
)

func (m ColorMode) String() string {
	if m == ColorByExpression {
		return "gene"
	}
	return "cluster"
}

// ParseColorMode accepts "cluster" (or empty) and "gene".
func ParseColorMode(s string) (ColorMode, error) {
	switch s {
	case "", "cluster":
		return ColorByCluster, nil
	case "gene", "expression":
		return ColorByExpression, nil
	}
	return 0, fmt.Errorf("unknown color mode %q", s)
}

// ScatterLayout is the default embedding figure layout.
var ScatterLayout = Layout{
	Width:  800,
	Height: 450,
	Margin: Margin{Top: 60, Right: 150, Bottom: 60, Left: 60},
}

// ScatterConfig contains scatter renderer configuration.
type ScatterConfig struct {
	Layout       Layout
	PointRadius  float64
	Colormap     colormap.Colormap
	Palette      colormap.CategoricalColormap
	HitThreshold float64
}

// DefaultScatterConfig returns the standard embedding figure settings.
func DefaultScatterConfig() ScatterConfig {
	return ScatterConfig{
		Layout:       ScatterLayout,
		PointRadius:  3,
		Colormap:     colormap.Magma,
		Palette:      colormap.Category10,
		HitThreshold: hittest.DefaultThreshold,
	}
}

// ScatterRenderer draws embedding plots.
type ScatterRenderer struct {
	config ScatterConfig
}

// NewScatterRenderer creates a scatter renderer.
func NewScatterRenderer(cfg ScatterConfig) *ScatterRenderer {
	def := DefaultScatterConfig()
	if cfg.Layout.Width <= 0 || cfg.Layout.Height <= 0 {
		cfg.Layout = def.Layout
	}
	if cfg.PointRadius <= 0 {
		cfg.PointRadius = def.PointRadius
	}
	if cfg.Colormap == nil {
		cfg.Colormap = def.Colormap
	}
	if cfg.Palette.Len() == 0 {
		cfg.Palette = def.Palette
	}
	if cfg.HitThreshold <= 0 {
		cfg.HitThreshold = def.HitThreshold
	}
	return &ScatterRenderer{config: cfg}
}

// Layout returns the figure layout.
func (r *ScatterRenderer) Layout() Layout {
	return r.config.Layout
}

// Scale builds the colour scale Render would use for cells.
func (r *ScatterRenderer) Scale(cells []dataset.EnrichedCell, mode ColorMode) colorscale.Scale {
	return colorscale.New(mode == ColorByCluster, cells, r.config.Colormap, r.config.Palette)
}

// Axes builds the screen scales Render would use for cells.
func (r *ScatterRenderer) Axes(cells []dataset.EnrichedCell) (x, y scale.Linear) {
	l := r.config.Layout
	w, h := l.Inner()
	x = scale.CoordinateScale(cells, func(c dataset.EnrichedCell) float64 { return c.UMAP1 },
		l.Margin.Left, l.Margin.Left+w)
	y = scale.CoordinateScale(cells, func(c dataset.EnrichedCell) float64 { return c.UMAP2 },
		l.Margin.Top+h, l.Margin.Top)
	return x, y
}

// Tester builds a hit tester for cells without drawing anything.
func (r *ScatterRenderer) Tester(cells []dataset.EnrichedCell, mode ColorMode) *hittest.Tester {
	x, y := r.Axes(cells)
	return hittest.NewTester(cells, x, y, hittest.Options{
		Threshold: r.config.HitThreshold,
		ShowExpr:  mode == ColorByExpression,
	})
}

// Render clears s and draws cells, axes, title and legend. The returned
// tester is attached to s as its pointer listener. s must not be nil.
func (r *ScatterRenderer) Render(s *surface.Surface, cells []dataset.EnrichedCell, mode ColorMode, title string) (*hittest.Tester, error) {
	if mode != ColorByCluster && mode != ColorByExpression {
		return nil, fmt.Errorf("unknown color mode %d", mode)
	}
	l := r.config.Layout
	s.Resize(l.Width, l.Height)

	tester := r.Tester(cells, mode)
	if len(cells) == 0 {
		s.SetEmpty("No cells to display")
		tester.Attach(s)
		return tester, nil
	}

	w, h := l.Inner()
	x, y := r.Axes(cells)
	cs := r.Scale(cells, mode)

	for _, c := range cells {
		s.Add(surface.Circle{
			X: x.Map(c.UMAP1),
			Y: y.Map(c.UMAP2),
			R: r.config.PointRadius,
			Style: surface.Style{
				Fill:        cs.CellColor(c),
				FillOpacity: 0.7,
				Stroke:      "#ffffff",
				StrokeWidth: 0.5,
			},
		})
	}

	drawAxisBottom(s, x, l.Margin.Top+h, 5)
	s.Add(surface.Text{
		X: l.Margin.Left + w/2, Y: l.Margin.Top + h + 40,
		Content: "UMAP 1", Size: 14, Anchor: surface.AnchorMiddle,
	})
	drawAxisLeft(s, y, l.Margin.Left, 5)
	s.Add(surface.Text{
		X: l.Margin.Left - 45, Y: l.Margin.Top + h/2,
		Content: "UMAP 2", Size: 14, Anchor: surface.AnchorMiddle, Rotate: -90,
	})

	s.Add(surface.Text{
		X: l.Margin.Left + w/2, Y: 30,
		Content: title, Size: 18, Bold: true, Anchor: surface.AnchorMiddle,
	})

	legendX := l.Margin.Left + w + 20
	switch c := cs.(type) {
	case *colorscale.Categorical:
		DrawCategoricalLegend(s, legendX, l.Margin.Top, c)
	case *colorscale.Continuous:
		DrawContinuousLegend(s, legendX, l.Margin.Top+(h-gradientHeight)/2, c, gradientID(title))
	}

	tester.Attach(s)
	return tester, nil
}

var nonIdent = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func gradientID(title string) string {
	if title == "" {
		return "gradient-expr"
	}
	return "gradient-" + nonIdent.ReplaceAllString(title, "-")
}
