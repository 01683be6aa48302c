package stats

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/atlasmap-sc/cellview/internal/data/dataset"
)

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func newDataset(cells []dataset.Cell, expr map[string]dataset.Vector) *dataset.Dataset {
	ds := &dataset.Dataset{Cells: cells, ExpressionData: expr}
	for g := range expr {
		ds.Genes = append(ds.Genes, g)
	}
	ds.Finalize()
	return ds
}

func TestCompute_SingleGroup(t *testing.T) {
	cells := make([]dataset.Cell, 4)
	for i := range cells {
		cells[i] = dataset.Cell{ID: fmt.Sprintf("c%d", i), Indication: "Lung", CellLine: "A549"}
	}
	ds := newDataset(cells, map[string]dataset.Vector{"ERBB2": {0, 1, 3, 7}})

	got := Compute(ds, "ERBB2", GroupByIndication, AllIndications)
	if len(got) != 1 {
		t.Fatalf("expected 1 group, got %d", len(got))
	}
	g := got[0]
	checks := []struct {
		name      string
		got, want float64
	}{
		{"Q1", g.Q1, 0.75},
		{"Median", g.Median, 1.5},
		{"Q3", g.Q3, 2.25},
		{"IQR", g.IQR, 1.5},
		{"Min", g.Min, 0},
		{"Max", g.Max, 3},
	}
	for _, c := range checks {
		if !near(c.got, c.want) {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	if g.Count != 4 || len(g.Values) != 4 {
		t.Errorf("Count = %d, Values = %d; want 4", g.Count, len(g.Values))
	}
	for i, want := range []float64{0, 1, 2, 3} {
		if !near(g.Values[i].Log2Expression, want) {
			t.Errorf("log2 value %d = %v, want %v", i, g.Values[i].Log2Expression, want)
		}
	}
}

func TestCompute_MissingGene(t *testing.T) {
	ds := newDataset([]dataset.Cell{{ID: "a", Indication: "Lung"}}, map[string]dataset.Vector{"ERBB2": {1}})
	if got := Compute(ds, "CD19", GroupByIndication, AllIndications); len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
	if got := Compute(nil, "ERBB2", GroupByIndication, AllIndications); got != nil {
		t.Fatalf("expected nil for nil dataset, got %v", got)
	}
}

func TestCompute_FilterAndGrouping(t *testing.T) {
	cells := []dataset.Cell{
		{ID: "a", Indication: "Lung", CellLine: "A549"},
		{ID: "b", Indication: "Lung", CellLine: "H1299"},
		{ID: "c", Indication: "Breast", CellLine: "MCF7"},
		{ID: "d", Indication: "Breast", CellLine: ""},
		{ID: "e", Indication: "Lung", CellLine: "A549"},
	}
	ds := newDataset(cells, map[string]dataset.Vector{"G": {1, 2, 3, 4, math.NaN()}})

	t.Run("by indication ignores filter", func(t *testing.T) {
		got := Compute(ds, "G", GroupByIndication, "Lung")
		if len(got) != 2 || got[0].Group != "Breast" || got[1].Group != "Lung" {
			t.Fatalf("unexpected groups: %+v", got)
		}
		if got[1].Count != 2 {
			t.Errorf("NaN expression should be dropped, Lung count = %d", got[1].Count)
		}
	})

	t.Run("by cell line with filter", func(t *testing.T) {
		got := Compute(ds, "G", GroupByCellLine, "Lung")
		if len(got) != 2 || got[0].Group != "A549" || got[1].Group != "H1299" {
			t.Fatalf("unexpected groups: %+v", got)
		}
		// e sits at dataset position 4 (NaN), not at its filtered position 2.
		if got[0].Count != 1 || len(got[0].Values) != 1 || !near(got[0].Values[0].Log2Expression, 1) {
			t.Errorf("A549 = %+v, want one cell at log2(1+1)", got[0])
		}
		if !near(got[1].Median, math.Log2(3)) {
			t.Errorf("H1299 median = %v, want log2(2+1)", got[1].Median)
		}
	})

	t.Run("filtered cells read their dataset position", func(t *testing.T) {
		got := Compute(ds, "G", GroupByCellLine, "Breast")
		if len(got) != 1 || got[0].Group != "MCF7" {
			t.Fatalf("unexpected groups: %+v", got)
		}
		if got[0].Count != 1 || !near(got[0].Median, 2) {
			t.Errorf("MCF7 = %+v, want one cell at log2(3+1)", got[0])
		}
	})

	t.Run("by cell line unfiltered skips missing group", func(t *testing.T) {
		got := Compute(ds, "G", GroupByCellLine, AllIndications)
		if len(got) != 3 {
			t.Fatalf("expected 3 cell lines, got %+v", got)
		}
	})

	t.Run("filter matches nothing", func(t *testing.T) {
		if got := Compute(ds, "G", GroupByCellLine, "Skin"); got != nil {
			t.Fatalf("expected empty result, got %+v", got)
		}
	})
}

func TestSummarizeInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.Intn(60)
		values := make([]float64, n)
		for i := range values {
			values[i] = math.Floor(rng.ExpFloat64() * 4)
		}
		sort.Float64s(values)
		s := Summarize(values)
		if !(s.Q1 <= s.Median && s.Median <= s.Q3) {
			t.Fatalf("quartiles out of order: %+v", s)
		}
		if s.Min > s.Q1 || s.Max < s.Q3 {
			t.Fatalf("whiskers inside box: %+v", s)
		}
		if s.Min < values[0] || s.Max > values[n-1] {
			t.Fatalf("whiskers beyond observed range: %+v for %v", s, values)
		}
	}
}

func TestQuantile(t *testing.T) {
	v := []float64{1, 2, 3, 4, 5}
	if q := Quantile(v, 0.5); q != 3 {
		t.Errorf("median = %v", q)
	}
	if q := Quantile(v, 0.1); !near(q, 1.4) {
		t.Errorf("p10 = %v, want 1.4", q)
	}
	if q := Quantile([]float64{42}, 0.75); q != 42 {
		t.Errorf("single value quantile = %v", q)
	}
	if q := Quantile(nil, 0.5); !math.IsNaN(q) {
		t.Errorf("empty quantile = %v, want NaN", q)
	}
}

func TestSubsampleCap(t *testing.T) {
	const limit = 500
	for _, n := range []int{0, 1, 499, 500, 501, 999, 1000, 1001, 1499, 12345} {
		items := make([]int, n)
		for i := range items {
			items[i] = i
		}
		got := Subsample(items, limit)
		want := n
		if want > limit {
			want = limit
		}
		if len(got) != want {
			t.Errorf("n=%d: kept %d, want %d", n, len(got), want)
		}
		if n <= limit {
			continue
		}
		if got[0] != 0 {
			t.Errorf("n=%d: first = %d, want 0", n, got[0])
		}
		if last := got[len(got)-1]; last < n-n/limit-1 {
			t.Errorf("n=%d: last = %d, top of range %d dropped", n, last, n-1)
		}
		for i := 1; i < len(got); i++ {
			if got[i] <= got[i-1] {
				t.Fatalf("n=%d: indices not increasing at %d", n, i)
			}
		}
		if n%limit == 0 {
			stride := n / limit
			for i, v := range got {
				if v != i*stride {
					t.Fatalf("n=%d: element %d = %d, want %d", n, i, v, i*stride)
				}
			}
		}
	}
}

func TestJitterBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 1000; i++ {
		x := Jitter(100, 50, rng)
		if x < 90 || x >= 110 {
			t.Fatalf("jitter %v outside [90, 110)", x)
		}
	}

	a := Jitter(0, 10, rand.New(rand.NewSource(5)))
	b := Jitter(0, 10, rand.New(rand.NewSource(5)))
	if a != b {
		t.Fatal("seeded jitter should be reproducible")
	}
}

func TestParseGroupBy(t *testing.T) {
	if g, err := ParseGroupBy(""); err != nil || g != GroupByIndication {
		t.Fatalf("empty group_by = %v, %v", g, err)
	}
	if g, err := ParseGroupBy("cellline"); err != nil || g.Label() != "Cell Line" {
		t.Fatalf("cellline = %v, %v", g, err)
	}
	if _, err := ParseGroupBy("pool"); !errors.Is(err, ErrUnknownGroupBy) {
		t.Fatalf("expected ErrUnknownGroupBy, got %v", err)
	}
}

func BenchmarkCompute(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	n := 100000
	cells := make([]dataset.Cell, n)
	expr := make(dataset.Vector, n)
	for i := range cells {
		cells[i] = dataset.Cell{ID: fmt.Sprintf("c%d", i), Indication: fmt.Sprintf("ind%d", rng.Intn(12))}
		expr[i] = rng.ExpFloat64()
	}
	ds := newDataset(cells, map[string]dataset.Vector{"G": expr})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Compute(ds, "G", GroupByIndication, AllIndications)
	}
}
