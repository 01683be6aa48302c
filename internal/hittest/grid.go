package hittest

import (
	"math"

	"github.com/atlasmap-sc/cellview/internal/data/dataset"
)

type bucket struct {
	ix, iy int
}

// grid buckets cells by position with a bucket side equal to the hover
// threshold, so any hit lies in the 3x3 neighbourhood of the query bucket.
type grid struct {
	size    float64
	buckets map[bucket][]int
}

func newGrid(cells []dataset.EnrichedCell, size float64) *grid {
	g := &grid{size: size, buckets: make(map[bucket][]int)}
	for i := range cells {
		x, y := cells[i].UMAP1, cells[i].UMAP2
		if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
			continue
		}
		b := g.key(x, y)
		g.buckets[b] = append(g.buckets[b], i)
	}
	return g
}

func (g *grid) key(x, y float64) bucket {
	return bucket{int(math.Floor(x / g.size)), int(math.Floor(y / g.size))}
}

func (g *grid) nearest(cells []dataset.EnrichedCell, dx, dy, threshold float64) (int, bool) {
	if math.IsInf(dx, 0) || math.IsInf(dy, 0) {
		return -1, false
	}
	center := g.key(dx, dy)
	best := -1
	bestDist := math.Inf(1)
	for ox := -1; ox <= 1; ox++ {
		for oy := -1; oy <= 1; oy++ {
			for _, i := range g.buckets[bucket{center.ix + ox, center.iy + oy}] {
				d := math.Hypot(cells[i].UMAP1-dx, cells[i].UMAP2-dy)
				if d < bestDist || (d == bestDist && i < best) {
					bestDist = d
					best = i
				}
			}
		}
	}
	if best < 0 || !(bestDist < threshold) {
		return -1, false
	}
	return best, true
}
