package scale

import (
	"math"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestLinearMapInvert(t *testing.T) {
	l := NewLinear(-1, 11, 60, 650)

	if got := l.Map(-1); !approx(got, 60) {
		t.Errorf("Map(-1) = %v, want 60", got)
	}
	if got := l.Map(11); !approx(got, 650) {
		t.Errorf("Map(11) = %v, want 650", got)
	}
	for _, x := range []float64{-1, 0, 3.25, 10, 11} {
		if got := l.Invert(l.Map(x)); !approx(got, x) {
			t.Errorf("Invert(Map(%v)) = %v", x, got)
		}
	}
}

func TestLinearInvertedRange(t *testing.T) {
	l := NewLinear(0, 10, 390, 60)
	if got := l.Map(10); !approx(got, 60) {
		t.Errorf("top of domain should map to top of plot, got %v", got)
	}
	if got := l.Invert(390); !approx(got, 0) {
		t.Errorf("Invert(390) = %v, want 0", got)
	}
}

func TestCoordinateScalePadding(t *testing.T) {
	type pt struct{ x float64 }

	t.Run("spread", func(t *testing.T) {
		s := CoordinateScale([]pt{{2}, {5}, {9}}, func(p pt) float64 { return p.x }, 0, 100)
		lo, hi := s.Domain()
		if lo != 1 || hi != 10 {
			t.Fatalf("domain = [%v, %v], want [1, 10]", lo, hi)
		}
	})

	t.Run("all equal", func(t *testing.T) {
		s := CoordinateScale([]pt{{5}, {5}}, func(p pt) float64 { return p.x }, 0, 100)
		lo, hi := s.Domain()
		if lo != 4 || hi != 6 {
			t.Fatalf("domain = [%v, %v], want [4, 6]", lo, hi)
		}
		if got := s.Map(5); !approx(got, 50) {
			t.Fatalf("Map(5) = %v, want 50", got)
		}
	})

	t.Run("empty", func(t *testing.T) {
		s := CoordinateScale([]pt{}, func(p pt) float64 { return p.x }, 0, 100)
		if s.Valid() {
			t.Fatal("empty input should give an undefined domain")
		}
		if ticks := s.Ticks(5); ticks != nil {
			t.Fatalf("expected no ticks, got %v", ticks)
		}
	})
}

func TestValueScale(t *testing.T) {
	s := ValueScale([]float64{0, 1, 2.5}, 380, 0)
	lo, hi := s.Domain()
	if lo != 0 || !approx(hi, 2.75) {
		t.Fatalf("domain = [%v, %v], want [0, 2.75]", lo, hi)
	}
}

func TestExtentSkipsNaN(t *testing.T) {
	lo, hi := Extent([]float64{math.NaN(), 3, -2, math.NaN(), 7})
	if lo != -2 || hi != 7 {
		t.Fatalf("Extent = [%v, %v], want [-2, 7]", lo, hi)
	}
	lo, hi = Extent(nil)
	if !math.IsNaN(lo) || !math.IsNaN(hi) {
		t.Fatalf("Extent(nil) = [%v, %v], want NaN", lo, hi)
	}
}

func TestTicks(t *testing.T) {
	l := NewLinear(0, 10, 0, 100)
	ticks := l.Ticks(5)
	if len(ticks) == 0 || len(ticks) > 5 {
		t.Fatalf("expected 1..5 ticks, got %v", ticks)
	}
	for i, v := range ticks {
		if v < 0 || v > 10 {
			t.Errorf("tick %v outside domain", v)
		}
		if i > 0 && v <= ticks[i-1] {
			t.Errorf("ticks not ascending: %v", ticks)
		}
	}
}

func TestBand(t *testing.T) {
	b := NewBand([]string{"A", "B", "C"}, 0, 100, DefaultBandPadding)

	// step = 100 / (3 - 0.3 + 0.6)
	wantStep := 100 / 3.3
	if !approx(b.Step(), wantStep) {
		t.Fatalf("Step = %v, want %v", b.Step(), wantStep)
	}
	if !approx(b.Bandwidth(), wantStep*0.7) {
		t.Fatalf("Bandwidth = %v", b.Bandwidth())
	}

	a, _ := b.Position("A")
	c, _ := b.Position("C")
	end := c + b.Bandwidth()
	if !approx(a, 100-end) {
		t.Fatalf("bands not centred: start %v, end %v", a, end)
	}

	mid, ok := b.Center("B")
	if !ok || !approx(mid, 50) {
		t.Fatalf("Center(B) = %v, %v; want 50", mid, ok)
	}
	if _, ok := b.Position("Z"); ok {
		t.Fatal("unknown category should not resolve")
	}
}
