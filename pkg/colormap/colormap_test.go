package colormap

import (
	"math"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
)

func TestMagmaEndpoints(t *testing.T) {
	t.Parallel()

	if got := Magma.Hex(0); got != "#000004" {
		t.Fatalf("unexpected Magma.Hex(0): %s", got)
	}

	if got := Magma.Hex(1); got != "#fcfdbf" {
		t.Fatalf("unexpected Magma.Hex(1): %s", got)
	}
	if got := Magma.Hex(2); got != "#fcfdbf" {
		t.Fatalf("values above 1 should clamp, got %s", got)
	}
	if got := Magma.Hex(math.NaN()); got != "#000004" {
		t.Fatalf("NaN should map to the first stop, got %s", got)
	}
	if got := Magma.Hex(0.5); got != "#b73779" {
		t.Fatalf("unexpected Magma.Hex(0.5): %s", got)
	}
}

func TestLinearColormapMonotoneGreen(t *testing.T) {
	t.Parallel()

	prev := -1.0
	for i := 0; i <= 20; i++ {
		c, err := colorful.Hex(Magma.Hex(float64(i) / 20))
		if err != nil {
			t.Fatal(err)
		}
		if c.G < prev-1.0/255 {
			t.Fatalf("magma green channel decreased at step %d", i)
		}
		prev = c.G
	}
}

func TestCategory10(t *testing.T) {
	t.Parallel()

	if Category10.Len() != 10 {
		t.Fatalf("expected 10 colors, got %d", Category10.Len())
	}
	if Category10.Hex(0) != "#1f77b4" || Category10.Hex(1) != "#ff7f0e" {
		t.Fatalf("unexpected leading colors: %s %s", Category10.Hex(0), Category10.Hex(1))
	}
	if Category10.Hex(10) != Category10.Hex(0) {
		t.Fatal("palette should wrap around")
	}
	if Category10.Hex(-1) != Category10.Hex(9) {
		t.Fatal("negative index should wrap from the end")
	}
}

func TestByName(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"magma", "viridis", "plasma", "inferno"} {
		c, ok := ByName(name)
		if !ok || c.Name() != name {
			t.Errorf("ByName(%q) = %v, %v", name, c.Name(), ok)
		}
	}
	if _, ok := ByName("rainbow"); ok {
		t.Error("unknown colormap should not resolve")
	}
}

func TestCategoricalByName(t *testing.T) {
	t.Parallel()

	c, ok := CategoricalByName("category20")
	if !ok || c.Len() != 20 {
		t.Fatalf("CategoricalByName(category20) = %d colors, %v", c.Len(), ok)
	}
	if c.Hex(10) != "#aec7e8" || c.Hex(20) != c.Hex(0) {
		t.Errorf("unexpected category20 colors: %s %s", c.Hex(10), c.Hex(20))
	}
	if c, ok := CategoricalByName("category10"); !ok || c.Len() != 10 {
		t.Errorf("CategoricalByName(category10) = %d colors, %v", c.Len(), ok)
	}
	if _, ok := CategoricalByName("pastel"); ok {
		t.Error("unknown palette should not resolve")
	}
}

func TestLinearColormapIsColormap(t *testing.T) {
	t.Parallel()

	var cm Colormap = Viridis
	if cm.Hex(0) != "#440154" || cm.Hex(1) != "#fde725" {
		t.Errorf("unexpected viridis endpoints: %s %s", cm.Hex(0), cm.Hex(1))
	}
}
