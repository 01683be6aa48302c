// Package colormap provides color schemes for visualization.
package colormap

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Colormap maps normalized values [0, 1] to "#rrggbb" colors.
type Colormap interface {
	Hex(t float64) string
}

// LinearColormap interpolates in RGB between evenly spaced stops.
type LinearColormap struct {
	name  string
	stops []colorful.Color
}

// NewLinear builds a colormap from hex stops. It panics on a malformed hex
// string since stops are package-level constants.
func NewLinear(name string, hexes ...string) LinearColormap {
	return LinearColormap{name: name, stops: mustParse(hexes)}
}

// Name returns the colormap name.
func (c LinearColormap) Name() string {
	return c.name
}

// Hex returns the color at position t (0-1) as "#rrggbb". NaN maps to the
// first stop.
func (c LinearColormap) Hex(t float64) string {
	return c.blend(t).Hex()
}

func (c LinearColormap) blend(t float64) colorful.Color {
	if t <= 0 || math.IsNaN(t) {
		return c.stops[0]
	}
	if t >= 1 {
		return c.stops[len(c.stops)-1]
	}

	idx := t * float64(len(c.stops)-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= len(c.stops) {
		upper = len(c.stops) - 1
	}
	return c.stops[lower].BlendRgb(c.stops[upper], idx-float64(lower)).Clamped()
}

// Magma (matplotlib magma, sampled at tenths)
var Magma = NewLinear("magma",
	"#000004", "#140e36", "#3b0f70", "#641a80", "#8c2981", "#b73779",
	"#de4968", "#f7705c", "#fe9f6d", "#fecf92", "#fcfdbf",
)

// Viridis colormap
var Viridis = NewLinear("viridis",
	"#440154", "#482878", "#3e4989", "#31688e", "#26828e",
	"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725",
)

// Plasma colormap
var Plasma = NewLinear("plasma",
	"#0d0887", "#41049d", "#6a00a8", "#8f0da4", "#b12a90", "#cc4778",
	"#e16462", "#f2844b", "#fca636", "#fcce25", "#f0f921",
)

// Inferno colormap
var Inferno = NewLinear("inferno",
	"#000004", "#160b39", "#420a68", "#6a176e", "#932667", "#bc3754",
	"#dd513a", "#f37819", "#fca50a", "#f6d746", "#fcffa4",
)

var sequential = map[string]LinearColormap{
	"magma":   Magma,
	"viridis": Viridis,
	"plasma":  Plasma,
	"inferno": Inferno,
}

// ByName looks up a sequential colormap.
func ByName(name string) (LinearColormap, bool) {
	c, ok := sequential[name]
	return c, ok
}

// CategoricalColormap provides distinct colors for categories.
type CategoricalColormap struct {
	colors []colorful.Color
}

// NewCategorical builds a palette from hex colors.
func NewCategorical(hexes ...string) CategoricalColormap {
	return CategoricalColormap{colors: mustParse(hexes)}
}

// Hex returns the color at index i (wraps around) as "#rrggbb".
func (c CategoricalColormap) Hex(i int) string {
	return c.colors[wrap(i, len(c.colors))].Hex()
}

// Len returns the palette size.
func (c CategoricalColormap) Len() int {
	return len(c.colors)
}

// Category10 is the d3 schemeCategory10 palette.
var Category10 = NewCategorical(
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
)

// Category20 extends Category10 with the lighter companions.
var Category20 = NewCategorical(
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
	"#aec7e8", "#ffbb78", "#98df8a", "#ff9896", "#c5b0d5",
	"#c49c94", "#f7b6d2", "#c7c7c7", "#dbdb8d", "#9edae5",
)

var categorical = map[string]CategoricalColormap{
	"category10": Category10,
	"category20": Category20,
}

// CategoricalByName looks up a cluster palette.
func CategoricalByName(name string) (CategoricalColormap, bool) {
	c, ok := categorical[name]
	return c, ok
}

func mustParse(hexes []string) []colorful.Color {
	out := make([]colorful.Color, len(hexes))
	for i, h := range hexes {
		c, err := colorful.Hex(h)
		if err != nil {
			panic("colormap: " + err.Error())
		}
		out[i] = c
	}
	return out
}

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}
