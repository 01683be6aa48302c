package dataset

import (
	"fmt"
	"math"
)

// EnrichedCell is a per-render view of a Cell with derived values attached.
type EnrichedCell struct {
	Cell
	Expression     float64 `json:"expression,omitempty"`
	HasExpression  bool    `json:"-"`
	Log2Expression float64 `json:"log2_expression,omitempty"`
	Group          string  `json:"group,omitempty"`
}

// Log2p1 returns log2(v + 1).
func Log2p1(v float64) float64 {
	return math.Log2(v + 1)
}

// Valid reports whether v is a usable expression value.
func Valid(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ClusterCells wraps every cell without expression values.
func (d *Dataset) ClusterCells() []EnrichedCell {
	out := make([]EnrichedCell, len(d.Cells))
	for i, c := range d.Cells {
		out[i] = EnrichedCell{Cell: c}
	}
	return out
}

// GeneCells attaches the expression of gene to every cell, in dataset order.
func (d *Dataset) GeneCells(gene string) ([]EnrichedCell, error) {
	values, ok := d.Expression(gene)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGeneNotFound, gene)
	}
	out := make([]EnrichedCell, len(d.Cells))
	for i, c := range d.Cells {
		ec := EnrichedCell{Cell: c}
		// Non-finite values stay zero so cells remain JSON-encodable.
		if i < len(values) && Valid(values[i]) {
			ec.Expression = values[i]
			ec.HasExpression = true
			ec.Log2Expression = Log2p1(values[i])
		}
		out[i] = ec
	}
	return out, nil
}
