// Package scale maps data values to screen coordinates.
//
// Linear scales delegate normalisation and tick generation to
// go-moremath; Band lays out categorical groups along an axis.
package scale

import (
	"math"

	"github.com/aclements/go-moremath/scale"
)

// CoordinatePad is added to both ends of an embedding coordinate domain.
const CoordinatePad = 1.0

// ValueHeadroom scales the maximum of a value domain.
const ValueHeadroom = 1.1

// Linear maps a continuous domain onto a screen range. A reversed range
// (r0 > r1) is how Y axes grow upward.
type Linear struct {
	dom    scale.Linear
	r0, r1 float64
}

// NewLinear returns a linear scale from [d0, d1] to [r0, r1].
func NewLinear(d0, d1, r0, r1 float64) Linear {
	return Linear{dom: scale.Linear{Min: d0, Max: d1}, r0: r0, r1: r1}
}

// Map converts a domain value to a range value. A zero-width domain maps
// everything to the middle of the range.
func (l Linear) Map(x float64) float64 {
	return l.r0 + l.dom.Map(x)*(l.r1-l.r0)
}

// Invert converts a range value back to the domain.
func (l Linear) Invert(y float64) float64 {
	if l.r0 == l.r1 {
		return l.dom.Unmap(0.5)
	}
	return l.dom.Unmap((y - l.r0) / (l.r1 - l.r0))
}

// Domain returns the domain bounds.
func (l Linear) Domain() (float64, float64) {
	return l.dom.Min, l.dom.Max
}

// Range returns the range bounds.
func (l Linear) Range() (float64, float64) {
	return l.r0, l.r1
}

// Valid reports whether the domain is finite.
func (l Linear) Valid() bool {
	return finite(l.dom.Min) && finite(l.dom.Max)
}

// Ticks returns at most n round tick values inside the domain.
func (l Linear) Ticks(n int) []float64 {
	if n <= 0 || !l.Valid() {
		return nil
	}
	major, _ := l.dom.Ticks(scale.TickOptions{Max: n})
	return major
}

// Extent returns the minimum and maximum of values, skipping NaN. Both are
// NaN when there is nothing to measure.
func Extent(values []float64) (lo, hi float64) {
	lo, hi = math.NaN(), math.NaN()
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(lo) || v < lo {
			lo = v
		}
		if math.IsNaN(hi) || v > hi {
			hi = v
		}
	}
	return lo, hi
}

// ExtentOf is Extent over an accessor.
func ExtentOf[T any](items []T, value func(T) float64) (lo, hi float64) {
	values := make([]float64, len(items))
	for i, it := range items {
		values[i] = value(it)
	}
	return Extent(values)
}

// CoordinateScale builds an embedding axis: the data extent padded by one
// unit on each side, mapped to [r0, r1]. A single distinct value still gets
// a two-unit domain; an empty collection yields a NaN domain.
func CoordinateScale[T any](items []T, coord func(T) float64, r0, r1 float64) Linear {
	lo, hi := ExtentOf(items, coord)
	return NewLinear(lo-CoordinatePad, hi+CoordinatePad, r0, r1)
}

// ValueScale builds a value axis with domain [0, max*1.1].
func ValueScale(values []float64, r0, r1 float64) Linear {
	_, hi := Extent(values)
	return NewLinear(0, hi*ValueHeadroom, r0, r1)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
