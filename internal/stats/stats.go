// Package stats computes grouped box-plot statistics over log2(expression+1).
package stats

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/atlasmap-sc/cellview/internal/data/dataset"
)

// DefaultMaxPoints caps the strip points kept per group.
const DefaultMaxPoints = 500

// AllIndications disables the indication filter.
const AllIndications = "all"

// ErrUnknownGroupBy is returned for an unrecognised grouping key.
var ErrUnknownGroupBy = errors.New("unknown group_by")

// GroupBy selects the cell attribute that defines groups.
type GroupBy string

const (
	GroupByIndication GroupBy = "indication"
	GroupByCellLine   GroupBy = "cellline"
)

// ParseGroupBy validates a grouping key; empty means indication.
func ParseGroupBy(s string) (GroupBy, error) {
	switch GroupBy(s) {
	case "", GroupByIndication:
		return GroupByIndication, nil
	case GroupByCellLine:
		return GroupByCellLine, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownGroupBy, s)
}

// Label is the human-readable grouping name.
func (g GroupBy) Label() string {
	if g == GroupByCellLine {
		return "Cell Line"
	}
	return "Indication"
}

func (g GroupBy) key(c dataset.Cell) string {
	if g == GroupByCellLine {
		return c.CellLine
	}
	return c.Indication
}

// GroupStats summarises one group. Min and Max are the whisker ends;
// Lowest and Highest are the observed extremes.
type GroupStats struct {
	Group   string                 `json:"group"`
	Count   int                    `json:"count"`
	Q1      float64                `json:"q1"`
	Median  float64                `json:"median"`
	Q3      float64                `json:"q3"`
	IQR     float64                `json:"iqr"`
	Min     float64                `json:"min"`
	Max     float64                `json:"max"`
	Lowest  float64                `json:"lowest"`
	Highest float64                `json:"highest"`
	Values  []dataset.EnrichedCell `json:"-"`
}

// Options tunes Compute.
type Options struct {
	MaxPoints int
}

// Compute groups the cells expressing gene and summarises each group.
// A missing gene or an empty filter result yields nil.
func Compute(ds *dataset.Dataset, gene string, groupBy GroupBy, indicationFilter string) []GroupStats {
	return ComputeWith(ds, gene, groupBy, indicationFilter, Options{})
}

// ComputeWith is Compute with explicit options.
func ComputeWith(ds *dataset.Dataset, gene string, groupBy GroupBy, indicationFilter string, opts Options) []GroupStats {
	if ds == nil {
		return nil
	}
	values, ok := ds.Expression(gene)
	if !ok {
		return nil
	}
	maxPoints := opts.MaxPoints
	if maxPoints <= 0 {
		maxPoints = DefaultMaxPoints
	}

	filter := groupBy == GroupByCellLine && indicationFilter != "" && indicationFilter != AllIndications

	groups := make(map[string][]dataset.EnrichedCell)
	for _, c := range ds.Cells {
		if filter && c.Indication != indicationFilter {
			continue
		}
		// Resolve the dataset position by id when available.
		idx := c.Index
		if c.ID != "" {
			if i, ok := ds.IndexOf(c.ID); ok {
				idx = i
			}
		}
		if idx < 0 || idx >= len(values) {
			continue
		}
		v := values[idx]
		group := groupBy.key(c)
		if group == "" || !dataset.Valid(v) {
			continue
		}
		groups[group] = append(groups[group], dataset.EnrichedCell{
			Cell:           c,
			Expression:     v,
			HasExpression:  true,
			Log2Expression: dataset.Log2p1(v),
			Group:          group,
		})
	}
	if len(groups) == 0 {
		return nil
	}

	names := make([]string, 0, len(groups))
	for g := range groups {
		names = append(names, g)
	}
	sort.Strings(names)

	out := make([]GroupStats, 0, len(names))
	for _, name := range names {
		members := groups[name]
		sort.SliceStable(members, func(i, j int) bool {
			return members[i].Log2Expression < members[j].Log2Expression
		})
		sorted := make([]float64, len(members))
		for i, m := range members {
			sorted[i] = m.Log2Expression
		}

		gs := Summarize(sorted)
		gs.Group = name
		gs.Values = Subsample(members, maxPoints)
		out = append(out, gs)
	}
	return out
}

// Summarize computes quartiles and Tukey whiskers, clamped to the observed
// extremes, of ascending-sorted values.
func Summarize(sorted []float64) GroupStats {
	if len(sorted) == 0 {
		return GroupStats{}
	}
	q1 := Quantile(sorted, 0.25)
	median := Quantile(sorted, 0.5)
	q3 := Quantile(sorted, 0.75)
	iqr := q3 - q1
	lowest, highest := sorted[0], sorted[len(sorted)-1]
	return GroupStats{
		Count:   len(sorted),
		Q1:      q1,
		Median:  median,
		Q3:      q3,
		IQR:     iqr,
		Min:     math.Max(lowest, q1-1.5*iqr),
		Max:     math.Min(highest, q3+1.5*iqr),
		Lowest:  lowest,
		Highest: highest,
	}
}

// Quantile returns the p-quantile of ascending-sorted values using linear
// interpolation between closest ranks (type 7).
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if p <= 0 || n == 1 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	return sorted[lo] + (sorted[lo+1]-sorted[lo])*(h-float64(lo))
}

// Subsample keeps limit elements spread evenly over items when n exceeds
// limit. Index i*n/limit always reaches the tail, so a sorted input keeps its
// full range.
func Subsample[T any](items []T, limit int) []T {
	n := len(items)
	if limit <= 0 || n <= limit {
		return items
	}
	out := make([]T, limit)
	for i := range out {
		out[i] = items[int(int64(i)*int64(n)/int64(limit))]
	}
	return out
}

// Jitter offsets center by a uniform amount in ±0.2 of bandwidth. A nil rng
// uses the global source.
func Jitter(center, bandwidth float64, rng *rand.Rand) float64 {
	var u float64
	if rng != nil {
		u = rng.Float64()
	} else {
		u = rand.Float64()
	}
	return center + (u-0.5)*0.4*bandwidth
}
