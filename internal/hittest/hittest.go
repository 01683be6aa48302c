// Package hittest resolves pointer positions on an embedding plot to the
// nearest cell.
//
// Stateless lookups go through HoverAt. PointerMove, PointerLeave and OnChange
// form the embedding API for interactive callers that own the event loop.
package hittest

import (
	"fmt"
	"math"

	"github.com/atlasmap-sc/cellview/internal/data/dataset"
	"github.com/atlasmap-sc/cellview/internal/scale"
	"github.com/atlasmap-sc/cellview/internal/surface"
)

const (
	// DefaultThreshold is the hover radius in data units.
	DefaultThreshold = 0.5

	// LinearScanLimit is the collection size above which a grid index is built.
	LinearScanLimit = 2048
)

// HoverState describes the hovered cell, or nothing when Cell is nil.
type HoverState struct {
	Cell    *dataset.EnrichedCell `json:"cell"`
	ScreenX float64               `json:"screen_x"`
	ScreenY float64               `json:"screen_y"`
	Tooltip []string              `json:"tooltip,omitempty"`
}

// Active reports whether a cell is hovered.
func (h HoverState) Active() bool {
	return h.Cell != nil
}

// Options configures a Tester.
type Options struct {
	Threshold  float64
	ShowExpr   bool
	ForceIndex bool
}

// Tester finds the cell nearest to a pointer, in data space, strictly within
// the threshold. Ties go to the earliest cell in the collection.
type Tester struct {
	cells     []dataset.EnrichedCell
	x, y      scale.Linear
	threshold float64
	showExpr  bool
	grid      *grid

	hover    HoverState
	onChange func(HoverState)
}

// NewTester indexes cells for hit testing against the given screen scales.
func NewTester(cells []dataset.EnrichedCell, x, y scale.Linear, opts Options) *Tester {
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	t := &Tester{
		cells:     cells,
		x:         x,
		y:         y,
		threshold: threshold,
		showExpr:  opts.ShowExpr,
	}
	if opts.ForceIndex || len(cells) > LinearScanLimit {
		t.grid = newGrid(cells, threshold)
	}
	return t
}

// OnChange registers a callback invoked after every pointer event.
func (t *Tester) OnChange(fn func(HoverState)) {
	t.onChange = fn
}

// Attach installs the tester as the pointer listener of s.
func (t *Tester) Attach(s *surface.Surface) {
	s.OnPointer(func(x, y float64) { t.PointerMove(x, y) }, func() { t.PointerLeave() })
}

// Len returns the number of indexed cells.
func (t *Tester) Len() int {
	return len(t.cells)
}

// Hover returns the current hover state.
func (t *Tester) Hover() HoverState {
	return t.hover
}

// Nearest returns the collection index of the cell closest to (dx, dy) in
// data space if its distance is below the threshold.
func (t *Tester) Nearest(dx, dy float64) (int, bool) {
	if math.IsNaN(dx) || math.IsNaN(dy) {
		return -1, false
	}
	if t.grid != nil {
		return t.grid.nearest(t.cells, dx, dy, t.threshold)
	}

	best := -1
	bestDist := math.Inf(1)
	for i := range t.cells {
		d := math.Hypot(t.cells[i].UMAP1-dx, t.cells[i].UMAP2-dy)
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	if best < 0 || !(bestDist < t.threshold) {
		return -1, false
	}
	return best, true
}

// HoverAt returns the hover state a pointer at (px, py) would produce without
// changing the tester. It is safe for concurrent use.
func (t *Tester) HoverAt(px, py float64) HoverState {
	i, ok := t.Nearest(t.x.Invert(px), t.y.Invert(py))
	if !ok {
		return HoverState{}
	}
	c := t.cells[i]
	return HoverState{Cell: &c, ScreenX: px, ScreenY: py, Tooltip: t.tooltip(c)}
}

// PointerMove inverts a pointer position and updates the hover state.
func (t *Tester) PointerMove(px, py float64) HoverState {
	t.hover = t.HoverAt(px, py)
	t.notify()
	return t.hover
}

// PointerLeave clears the hover state.
func (t *Tester) PointerLeave() HoverState {
	t.hover = HoverState{}
	t.notify()
	return t.hover
}

func (t *Tester) notify() {
	if t.onChange != nil {
		t.onChange(t.hover)
	}
}

func (t *Tester) tooltip(c dataset.EnrichedCell) []string {
	lines := []string{
		"Cell: " + c.ID,
		"Cluster: " + c.Cluster,
	}
	if c.CellLine != "" {
		lines = append(lines, "Cell Line: "+c.CellLine)
	}
	if c.Indication != "" {
		lines = append(lines, "Indication: "+c.Indication)
	}
	if t.showExpr && c.HasExpression {
		lines = append(lines, fmt.Sprintf("Expression: %.3f", c.Expression))
	}
	return lines
}
