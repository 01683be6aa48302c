package colorscale

import (
	"testing"

	"github.com/atlasmap-sc/cellview/internal/data/dataset"
	"github.com/atlasmap-sc/cellview/pkg/colormap"
)

func clusterCells(labels ...string) []dataset.EnrichedCell {
	out := make([]dataset.EnrichedCell, len(labels))
	for i, l := range labels {
		out[i] = dataset.EnrichedCell{Cell: dataset.Cell{Cluster: l, Index: i}}
	}
	return out
}

func exprCells(values ...float64) []dataset.EnrichedCell {
	out := make([]dataset.EnrichedCell, len(values))
	for i, v := range values {
		out[i] = dataset.EnrichedCell{
			Cell:          dataset.Cell{Index: i},
			Expression:    v,
			HasExpression: dataset.Valid(v),
		}
	}
	return out
}

func TestCategoricalIsOrderIndependent(t *testing.T) {
	a := New(true, clusterCells("2", "0", "1", "0"), colormap.Magma, colormap.CategoricalColormap{}).(*Categorical)
	b := New(true, clusterCells("1", "2", "0"), colormap.Magma, colormap.CategoricalColormap{}).(*Categorical)

	for _, label := range []string{"0", "1", "2"} {
		if a.Color(label) != b.Color(label) {
			t.Errorf("label %s: %s vs %s", label, a.Color(label), b.Color(label))
		}
	}
	if a.Color("0") != colormap.Category10.Hex(0) {
		t.Errorf("smallest label should take the first palette colour, got %s", a.Color("0"))
	}
	if got := a.Domain(); len(got) != 3 || got[0] != "0" || got[2] != "2" {
		t.Errorf("Domain = %v", got)
	}
}

func TestCategoricalCyclesPalette(t *testing.T) {
	labels := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k"}
	s := NewCategorical(labels, colormap.Category10)
	if s.Color("k") != s.Color("a") {
		t.Fatalf("11th label should reuse the first colour: %s vs %s", s.Color("k"), s.Color("a"))
	}
	if s.Color("zz") != MissingColor {
		t.Fatalf("unknown label should map to MissingColor")
	}
}

func TestCategoricalPalette(t *testing.T) {
	labels := make([]string, 12)
	for i := range labels {
		labels[i] = string(rune('a' + i))
	}
	s := New(true, clusterCells(labels...), colormap.Magma, colormap.Category20).(*Categorical)
	if s.Color("k") == s.Color("a") {
		t.Errorf("category20 should not repeat within 12 labels")
	}
	if s.Color("k") != colormap.Category20.Hex(10) {
		t.Errorf("label k = %s, want %s", s.Color("k"), colormap.Category20.Hex(10))
	}
}

func TestContinuousEndpoints(t *testing.T) {
	s := New(false, exprCells(2, 4, 6), colormap.Magma, colormap.Category10).(*Continuous)

	lo, hi := s.Domain()
	if lo != 2 || hi != 6 {
		t.Fatalf("Domain = [%v, %v], want [2, 6]", lo, hi)
	}
	if got := s.Color(2); got != colormap.Magma.Hex(0) {
		t.Errorf("min should map to the low end, got %s", got)
	}
	if got := s.Color(6); got != colormap.Magma.Hex(1) {
		t.Errorf("max should map to the high end, got %s", got)
	}
	if got := s.Color(100); got != colormap.Magma.Hex(1) {
		t.Errorf("values above the domain should clamp, got %s", got)
	}
}

func TestContinuousZeroWidth(t *testing.T) {
	s := New(false, exprCells(3, 3, 3), colormap.Magma, colormap.Category10)
	cells := exprCells(3)
	if got := s.CellColor(cells[0]); got != colormap.Magma.Hex(0.5) {
		t.Fatalf("zero-width domain should map to the midpoint, got %s", got)
	}
}

func TestContinuousMissingValue(t *testing.T) {
	cells := exprCells(1, 2)
	cells = append(cells, dataset.EnrichedCell{Cell: dataset.Cell{Index: 2}})
	s := New(false, cells, colormap.Magma, colormap.Category10)
	if got := s.CellColor(cells[2]); got != MissingColor {
		t.Fatalf("cell without expression should use MissingColor, got %s", got)
	}
}
