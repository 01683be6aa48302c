package viewer

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"

	"github.com/atlasmap-sc/cellview/internal/data/dataset"
	"github.com/atlasmap-sc/cellview/internal/stats"
)

func testDataset() *dataset.Dataset {
	ds := &dataset.Dataset{
		Cells: []dataset.Cell{
			{ID: "a", UMAP1: 0, UMAP2: 0, Cluster: "0", Indication: "Lung", CellLine: "A549"},
			{ID: "b", UMAP1: 2, UMAP2: 2, Cluster: "0", Indication: "Lung", CellLine: "H1299"},
			{ID: "c", UMAP1: 4, UMAP2: 4, Cluster: "1", Indication: "Breast", CellLine: "MCF7"},
			{ID: "d", UMAP1: 6, UMAP2: 6, Cluster: "1", Indication: "Breast", CellLine: "MCF7"},
		},
		Genes: []string{"GAPDH", "CD79A", "ERBB2", "MS4A1", "NOEXPR"},
		ExpressionData: map[string]dataset.Vector{
			"GAPDH": {1, 2, 3, 4},
			"CD79A": {0, 1, 3, 7},
			"ERBB2": {5, 1, 0, 2},
			"MS4A1": {2, 2, 2, 2},
		},
	}
	ds.Finalize()
	return ds
}

func TestDefaultState(t *testing.T) {
	st := DefaultState(testDataset())
	if !reflect.DeepEqual(st.SelectedGenes, []string{"CD79A", "MS4A1"}) {
		t.Errorf("SelectedGenes = %v", st.SelectedGenes)
	}
	if st.BoxplotGene != "ERBB2" {
		t.Errorf("BoxplotGene = %q", st.BoxplotGene)
	}

	ds := &dataset.Dataset{
		Cells:          []dataset.Cell{{ID: "x"}},
		Genes:          []string{"NOEXPR", "TP53"},
		ExpressionData: map[string]dataset.Vector{"TP53": {1}},
	}
	ds.Finalize()
	st = DefaultState(ds)
	if !reflect.DeepEqual(st.SelectedGenes, []string{"TP53"}) || st.BoxplotGene != "TP53" {
		t.Errorf("fallback defaults = %+v", st)
	}
}

func TestApply_DependencyTracking(t *testing.T) {
	v := New(testDataset(), Options{Rand: rand.New(rand.NewSource(1))})
	st := DefaultState(testDataset())

	rd, err := v.Apply(st)
	if err != nil {
		t.Fatal(err)
	}
	if !rd.Cluster || !reflect.DeepEqual(rd.Genes, []string{"CD79A", "MS4A1"}) || rd.BoxPlot {
		t.Fatalf("first apply = %+v", rd)
	}

	rd, _ = v.Apply(st)
	if rd.Any() {
		t.Fatalf("unchanged state should redraw nothing, got %+v", rd)
	}

	st.SelectedGenes = []string{"CD79A", "GAPDH"}
	rd, _ = v.Apply(st)
	if rd.Cluster || !reflect.DeepEqual(rd.Genes, []string{"GAPDH"}) {
		t.Fatalf("adding a gene should redraw only that plot, got %+v", rd)
	}
	if !reflect.DeepEqual(v.Figures(), []string{"cluster", "gene:CD79A", "gene:GAPDH"}) {
		t.Fatalf("deselected gene plot should be dropped, figures = %v", v.Figures())
	}

	st.ActiveView = ViewBoxPlot
	rd, _ = v.Apply(st)
	if !rd.BoxPlot || rd.Cluster {
		t.Fatalf("switching view should draw only the box plot, got %+v", rd)
	}

	st.GroupBy = stats.GroupByCellLine
	st.IndicationFilter = "Lung"
	rd, _ = v.Apply(st)
	if !rd.BoxPlot {
		t.Fatal("changing group_by should redraw the box plot")
	}
	s, err := v.Surface(FigureBoxPlot)
	if err != nil {
		t.Fatal(err)
	}
	if s.Empty() {
		t.Fatal("box plot should have data")
	}

	st.ActiveView = ViewEmbedding
	rd, _ = v.Apply(st)
	if !rd.Cluster || len(rd.Genes) != 2 {
		t.Fatalf("returning to the embedding view should rebuild its plots, got %+v", rd)
	}
}

func TestApply_Validation(t *testing.T) {
	v := New(testDataset(), Options{})

	st := DefaultState(testDataset())
	st.SelectedGenes = []string{"A", "B", "C", "D", "E", "F"}
	if _, err := v.Apply(st); !errors.Is(err, ErrTooManyGenes) {
		t.Errorf("expected ErrTooManyGenes, got %v", err)
	}

	st = DefaultState(testDataset())
	st.GroupBy = "pool"
	if _, err := v.Apply(st); !errors.Is(err, stats.ErrUnknownGroupBy) {
		t.Errorf("expected ErrUnknownGroupBy, got %v", err)
	}

	st = DefaultState(testDataset())
	st.IndicationFilter = "Skin"
	if _, err := v.Apply(st); !errors.Is(err, ErrUnknownIndication) {
		t.Errorf("expected ErrUnknownIndication, got %v", err)
	}

	st = DefaultState(testDataset())
	st.ActiveView = "table"
	if _, err := v.Apply(st); !errors.Is(err, ErrUnknownView) {
		t.Errorf("expected ErrUnknownView, got %v", err)
	}
}

func TestApply_UnexpressedGeneSkipped(t *testing.T) {
	v := New(testDataset(), Options{})
	st := DefaultState(testDataset())
	st.SelectedGenes = []string{"NOEXPR"}
	rd, err := v.Apply(st)
	if err != nil {
		t.Fatal(err)
	}
	if len(rd.Genes) != 0 {
		t.Fatalf("gene without expression should not be drawn: %+v", rd)
	}
	if _, err := v.Surface(GeneFigure("NOEXPR")); !errors.Is(err, ErrUnknownFigure) {
		t.Fatalf("expected ErrUnknownFigure, got %v", err)
	}
}

func TestApply_BoxPlotMissingGeneShowsNoData(t *testing.T) {
	v := New(testDataset(), Options{})
	st := DefaultState(testDataset())
	st.ActiveView = ViewBoxPlot
	st.BoxplotGene = "NOEXPR"
	if _, err := v.Apply(st); err != nil {
		t.Fatal(err)
	}
	s, err := v.Surface(FigureBoxPlot)
	if err != nil {
		t.Fatal(err)
	}
	if !s.Empty() {
		t.Fatal("expected the no-data state")
	}
}

func TestPointer(t *testing.T) {
	v := New(testDataset(), Options{})
	if _, err := v.Apply(DefaultState(testDataset())); err != nil {
		t.Fatal(err)
	}

	// Cell c sits at data (4,4); domain [-1,7] maps onto the plot area.
	x := 60 + (4.0+1)/8*590
	y := 60 + 330 - (4.0+1)/8*330
	h, err := v.PointerMove(GeneFigure("CD79A"), x, y)
	if err != nil {
		t.Fatal(err)
	}
	if !h.Active() || h.Cell.ID != "c" {
		t.Fatalf("expected hover on c, got %+v", h)
	}
	if h.Cell.Expression != 3 {
		t.Fatalf("hovered gene cell should carry its expression, got %v", h.Cell.Expression)
	}

	h, _ = v.PointerLeave(GeneFigure("CD79A"))
	if h.Active() || v.Hover().Active() {
		t.Fatal("hover should clear")
	}

	if _, err := v.PointerMove("nope", 0, 0); !errors.Is(err, ErrUnknownFigure) {
		t.Fatalf("expected ErrUnknownFigure, got %v", err)
	}
}
