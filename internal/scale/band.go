package scale

// DefaultBandPadding is the inner and outer padding used by the box plot.
const DefaultBandPadding = 0.3

// Band divides a range into equal bands, one per category, with the same
// fraction of a step used as inner and outer padding. Bands are centred in
// the range.
type Band struct {
	domain  []string
	index   map[string]int
	r0, r1  float64
	padding float64
	step    float64
	start   float64
}

// NewBand lays out domain across [r0, r1].
func NewBand(domain []string, r0, r1, padding float64) Band {
	b := Band{
		domain:  domain,
		index:   make(map[string]int, len(domain)),
		r0:      r0,
		r1:      r1,
		padding: padding,
	}
	for i, d := range domain {
		if _, ok := b.index[d]; !ok {
			b.index[d] = i
		}
	}

	n := float64(len(domain))
	width := r1 - r0
	b.step = width / max(1, n-padding+padding*2)
	b.start = r0 + (width-b.step*(n-padding))*0.5
	return b
}

// Domain returns the categories in layout order.
func (b Band) Domain() []string {
	return b.domain
}

// Step returns the distance between the starts of adjacent bands.
func (b Band) Step() float64 {
	return b.step
}

// Bandwidth returns the width of each band.
func (b Band) Bandwidth() float64 {
	return b.step * (1 - b.padding)
}

// Position returns the start of the band for category.
func (b Band) Position(category string) (float64, bool) {
	i, ok := b.index[category]
	if !ok {
		return 0, false
	}
	return b.start + b.step*float64(i), true
}

// Center returns the midpoint of the band for category.
func (b Band) Center(category string) (float64, bool) {
	x, ok := b.Position(category)
	return x + b.Bandwidth()/2, ok
}
