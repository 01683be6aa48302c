// Package viewer owns the figures of one interactive session and redraws
// each one only when the inputs it depends on change.
//
// It is the embedding API for interactive callers that own the event loop
// and feed pointer and state changes in. The HTTP server only uses
// DefaultState and ErrUnknownIndication.
package viewer

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/atlasmap-sc/cellview/internal/data/dataset"
	"github.com/atlasmap-sc/cellview/internal/hittest"
	"github.com/atlasmap-sc/cellview/internal/plot"
	"github.com/atlasmap-sc/cellview/internal/stats"
	"github.com/atlasmap-sc/cellview/internal/surface"
)

// MaxSelectedGenes bounds the number of gene expression plots.
const MaxSelectedGenes = 5

var (
	ErrTooManyGenes      = fmt.Errorf("at most %d genes can be selected", MaxSelectedGenes)
	ErrUnknownView       = errors.New("unknown view")
	ErrUnknownIndication = errors.New("unknown indication")
	ErrUnknownFigure     = errors.New("unknown figure")
)

// View is the active tab.
type View string

const (
	ViewEmbedding View = "embedding"
	ViewBoxPlot   View = "boxplot"
)

// ParseView accepts "embedding" (or "umap", or empty) and "boxplot".
func ParseView(s string) (View, error) {
	switch s {
	case "", "embedding", "umap":
		return ViewEmbedding, nil
	case "boxplot":
		return ViewBoxPlot, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownView, s)
}

// Figure names.
const (
	FigureCluster = "cluster"
	FigureBoxPlot = "boxplot"
	genePrefix    = "gene:"
)

// GeneFigure names the expression plot of gene.
func GeneFigure(gene string) string {
	return genePrefix + gene
}

// ViewState is the full set of user selections.
type ViewState struct {
	ActiveView       View          `json:"active_view"`
	SelectedGenes    []string      `json:"selected_genes"`
	BoxplotGene      string        `json:"boxplot_gene"`
	GroupBy          stats.GroupBy `json:"group_by"`
	IndicationFilter string        `json:"indication_filter"`
}

// DefaultState picks the initial selections for ds: CD79A and MS4A1 when
// expressed, else the first expressed gene; ERBB2 for the box plot when
// expressed, else the first expressed gene.
func DefaultState(ds *dataset.Dataset) ViewState {
	expressed := ds.ExpressedGenes()

	var genes []string
	for _, g := range []string{"CD79A", "MS4A1"} {
		if slices.Contains(expressed, g) {
			genes = append(genes, g)
		}
	}
	if len(genes) == 0 && len(expressed) > 0 {
		genes = []string{expressed[0]}
	}

	boxGene := ""
	if slices.Contains(expressed, "ERBB2") {
		boxGene = "ERBB2"
	} else if len(expressed) > 0 {
		boxGene = expressed[0]
	}

	return ViewState{
		ActiveView:       ViewEmbedding,
		SelectedGenes:    genes,
		BoxplotGene:      boxGene,
		GroupBy:          stats.GroupByIndication,
		IndicationFilter: stats.AllIndications,
	}
}

// Redraw lists the figures a call to Apply re-rendered.
type Redraw struct {
	Cluster bool     `json:"cluster"`
	Genes   []string `json:"genes,omitempty"`
	BoxPlot bool     `json:"boxplot"`
}

// Any reports whether anything was redrawn.
func (r Redraw) Any() bool {
	return r.Cluster || r.BoxPlot || len(r.Genes) > 0
}

// Options configures a Viewer.
type Options struct {
	Scatter   plot.ScatterConfig
	BoxPlot   plot.BoxPlotConfig
	MaxPoints int
	// Rand seeds box-plot jitter; nil keeps it unseeded.
	Rand *rand.Rand
}

type figure struct {
	surface *surface.Surface
	tester  *hittest.Tester
	key     string
}

// Viewer serialises renders and pointer events for one dataset.
type Viewer struct {
	mu      sync.Mutex
	ds      *dataset.Dataset
	scatter *plot.ScatterRenderer
	boxplot *plot.BoxPlotRenderer
	opts    Options

	state   ViewState
	figures map[string]*figure
	hover   hittest.HoverState
}

// New creates a viewer for ds. Nothing is drawn until Apply.
func New(ds *dataset.Dataset, opts Options) *Viewer {
	return &Viewer{
		ds:      ds,
		scatter: plot.NewScatterRenderer(opts.Scatter),
		boxplot: plot.NewBoxPlotRenderer(opts.BoxPlot),
		opts:    opts,
		figures: make(map[string]*figure),
	}
}

// State returns the last applied state.
func (v *Viewer) State() ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Validate checks a state against the dataset.
func (v *Viewer) Validate(state ViewState) error {
	if len(state.SelectedGenes) > MaxSelectedGenes {
		return ErrTooManyGenes
	}
	if _, err := ParseView(string(state.ActiveView)); err != nil {
		return err
	}
	if _, err := stats.ParseGroupBy(string(state.GroupBy)); err != nil {
		return err
	}
	f := state.IndicationFilter
	if f != "" && f != stats.AllIndications && !slices.Contains(v.ds.Indications(), f) {
		return fmt.Errorf("%w: %q", ErrUnknownIndication, f)
	}
	return nil
}

// Apply installs state and redraws the figures whose inputs changed.
func (v *Viewer) Apply(state ViewState) (Redraw, error) {
	if err := v.Validate(state); err != nil {
		return Redraw{}, err
	}
	state.ActiveView, _ = ParseView(string(state.ActiveView))
	state.GroupBy, _ = stats.ParseGroupBy(string(state.GroupBy))
	state.SelectedGenes = dedupe(state.SelectedGenes)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.state = state

	var rd Redraw
	if state.ActiveView != ViewEmbedding {
		// Embedding figures are rebuilt when the tab is shown again.
		v.invalidate(FigureCluster)
		for name := range v.figures {
			if strings.HasPrefix(name, genePrefix) {
				v.invalidate(name)
			}
		}
	} else {
		rd.Cluster = v.renderCluster()
		rd.Genes = v.renderGenes(state.SelectedGenes)
	}

	if state.ActiveView == ViewBoxPlot && state.BoxplotGene != "" {
		rd.BoxPlot = v.renderBoxPlot(state)
	} else {
		v.invalidate(FigureBoxPlot)
	}
	return rd, nil
}

func (v *Viewer) invalidate(name string) {
	if f, ok := v.figures[name]; ok {
		f.key = ""
	}
}

func (v *Viewer) figure(name string) *figure {
	f, ok := v.figures[name]
	if !ok {
		f = &figure{surface: surface.New(1, 1)}
		v.figures[name] = f
	}
	return f
}

func (v *Viewer) renderCluster() bool {
	f := v.figure(FigureCluster)
	if f.key == "rendered" {
		return false
	}
	start := time.Now()
	tester, err := v.scatter.Render(f.surface, v.ds.ClusterCells(), plot.ColorByCluster, "Cluster UMAP")
	if err != nil {
		log.Printf("[Viewer] cluster plot failed: %v", err)
		return false
	}
	f.tester = tester
	f.key = "rendered"
	log.Printf("[Viewer] cluster plot: %d cells in %v", tester.Len(), time.Since(start))
	return true
}

func (v *Viewer) renderGenes(genes []string) []string {
	keep := make(map[string]bool, len(genes))
	var redrawn []string
	for _, gene := range genes {
		name := GeneFigure(gene)
		keep[name] = true
		cells, err := v.ds.GeneCells(gene)
		if err != nil {
			// Selected but not expressed: nothing to draw.
			delete(v.figures, name)
			continue
		}
		f := v.figure(name)
		if f.key == "rendered" {
			continue
		}
		tester, err := v.scatter.Render(f.surface, cells, plot.ColorByExpression, "Expression of "+gene)
		if err != nil {
			log.Printf("[Viewer] gene plot %s failed: %v", gene, err)
			continue
		}
		f.tester = tester
		f.key = "rendered"
		redrawn = append(redrawn, gene)
	}
	for name := range v.figures {
		if strings.HasPrefix(name, genePrefix) && !keep[name] {
			delete(v.figures, name)
		}
	}
	return redrawn
}

func (v *Viewer) renderBoxPlot(state ViewState) bool {
	key := strings.Join([]string{state.BoxplotGene, string(state.GroupBy), state.IndicationFilter}, "\x00")
	f := v.figure(FigureBoxPlot)
	if f.key == key {
		return false
	}
	start := time.Now()
	st := stats.ComputeWith(v.ds, state.BoxplotGene, state.GroupBy, state.IndicationFilter,
		stats.Options{MaxPoints: v.opts.MaxPoints})
	v.boxplot.Render(f.surface, plot.BoxPlotRequest{
		Stats:            st,
		Gene:             state.BoxplotGene,
		GroupBy:          state.GroupBy,
		IndicationFilter: state.IndicationFilter,
		Rand:             v.opts.Rand,
	})
	f.key = key
	log.Printf("[Viewer] box plot %s: %d groups in %v", state.BoxplotGene, len(st), time.Since(start))
	return true
}

// Surface returns the surface of a named figure.
func (v *Viewer) Surface(name string) (*surface.Surface, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	f, ok := v.figures[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFigure, name)
	}
	return f.surface, nil
}

// Figures returns the names of all current figures, sorted.
func (v *Viewer) Figures() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]string, 0, len(v.figures))
	for name := range v.figures {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// PointerMove forwards a pointer position to a figure and returns the
// resulting hover state.
func (v *Viewer) PointerMove(name string, x, y float64) (hittest.HoverState, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	f, ok := v.figures[name]
	if !ok || f.tester == nil {
		return hittest.HoverState{}, fmt.Errorf("%w: %s", ErrUnknownFigure, name)
	}
	f.surface.PointerMove(x, y)
	v.hover = f.tester.Hover()
	return v.hover, nil
}

// PointerLeave clears the hover state of a figure.
func (v *Viewer) PointerLeave(name string) (hittest.HoverState, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	f, ok := v.figures[name]
	if !ok || f.tester == nil {
		return hittest.HoverState{}, fmt.Errorf("%w: %s", ErrUnknownFigure, name)
	}
	f.surface.PointerLeave()
	v.hover = f.tester.Hover()
	return v.hover, nil
}

// Hover returns the most recent hover state.
func (v *Viewer) Hover() hittest.HoverState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.hover
}

func dedupe(genes []string) []string {
	out := make([]string, 0, len(genes))
	for _, g := range genes {
		if g != "" && !slices.Contains(out, g) {
			out = append(out, g)
		}
	}
	return out
}
