// Package colorscale assigns colours to cells, either by cluster label or by
// expression value. Scales are rebuilt from the collection being drawn and
// hold no state beyond their domain.
package colorscale

import (
	"math"
	"sort"

	"github.com/aclements/go-moremath/scale"

	"github.com/atlasmap-sc/cellview/internal/data/dataset"
	"github.com/atlasmap-sc/cellview/pkg/colormap"
)

// MissingColor is used for cells with no value to map.
const MissingColor = "#cccccc"

// Scale maps a cell to a "#rrggbb" colour.
type Scale interface {
	CellColor(c dataset.EnrichedCell) string
}

// Categorical maps cluster labels to a cycled palette in sorted label order.
type Categorical struct {
	labels  []string
	index   map[string]int
	palette colormap.CategoricalColormap
}

// NewCategorical builds a categorical scale over the distinct labels given.
// Order of the input does not matter.
func NewCategorical(labels []string, palette colormap.CategoricalColormap) *Categorical {
	index := make(map[string]int, len(labels))
	distinct := make([]string, 0, len(labels))
	for _, l := range labels {
		if _, ok := index[l]; ok {
			continue
		}
		index[l] = 0
		distinct = append(distinct, l)
	}
	sort.Strings(distinct)
	for i, l := range distinct {
		index[l] = i
	}
	return &Categorical{labels: distinct, index: index, palette: palette}
}

// Domain returns the sorted labels.
func (c *Categorical) Domain() []string {
	return c.labels
}

// Color returns the colour for label.
func (c *Categorical) Color(label string) string {
	i, ok := c.index[label]
	if !ok {
		return MissingColor
	}
	return c.palette.Hex(i)
}

func (c *Categorical) CellColor(cell dataset.EnrichedCell) string {
	return c.Color(cell.Cluster)
}

// Continuous maps expression values through a sequential colormap.
type Continuous struct {
	norm scale.Linear
	cmap colormap.Colormap
}

// NewContinuous builds a continuous scale over [lo, hi]. Values outside the
// domain are clamped; a zero-width domain maps to the middle of the colormap.
func NewContinuous(lo, hi float64, cmap colormap.Colormap) *Continuous {
	return &Continuous{
		norm: scale.Linear{Min: lo, Max: hi, Clamp: true},
		cmap: cmap,
	}
}

// Domain returns the value bounds.
func (c *Continuous) Domain() (lo, hi float64) {
	return c.norm.Min, c.norm.Max
}

// Color returns the colour for value v.
func (c *Continuous) Color(v float64) string {
	if math.IsNaN(v) {
		return MissingColor
	}
	return c.cmap.Hex(c.norm.Map(v))
}

func (c *Continuous) CellColor(cell dataset.EnrichedCell) string {
	if !cell.HasExpression {
		return MissingColor
	}
	return c.Color(cell.Expression)
}

// New selects the variant for a collection: categorical over the cluster
// labels present, or continuous over the expression extent. An empty palette
// falls back to Category10.
func New(isCluster bool, cells []dataset.EnrichedCell, cmap colormap.Colormap, palette colormap.CategoricalColormap) Scale {
	if isCluster {
		if palette.Len() == 0 {
			palette = colormap.Category10
		}
		labels := make([]string, len(cells))
		for i, c := range cells {
			labels[i] = c.Cluster
		}
		return NewCategorical(labels, palette)
	}

	lo, hi := math.NaN(), math.NaN()
	for _, c := range cells {
		if !c.HasExpression {
			continue
		}
		if math.IsNaN(lo) || c.Expression < lo {
			lo = c.Expression
		}
		if math.IsNaN(hi) || c.Expression > hi {
			hi = c.Expression
		}
	}
	return NewContinuous(lo, hi, cmap)
}
