// Package dataset holds the in-memory single-cell dataset consumed by the renderers.
package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
)

var (
	// ErrGeneNotFound is returned when a gene has no expression vector.
	ErrGeneNotFound = errors.New("gene not found in expression data")
)

// Cell is one row of the dataset. Index is the position in Dataset.Cells and is
// the only key linking a cell to its expression values.
type Cell struct {
	ID         string  `json:"id"`
	UMAP1      float64 `json:"umap1"`
	UMAP2      float64 `json:"umap2"`
	Cluster    string  `json:"cluster"`
	CellLine   string  `json:"cellline,omitempty"`
	Indication string  `json:"indication,omitempty"`
	Pool       string  `json:"pool,omitempty"`
	Index      int     `json:"-"`
}

// UnmarshalJSON accepts cluster labels written either as strings or numbers.
func (c *Cell) UnmarshalJSON(data []byte) error {
	type rawCell struct {
		ID         string          `json:"id"`
		UMAP1      float64         `json:"umap1"`
		UMAP2      float64         `json:"umap2"`
		Cluster    json.RawMessage `json:"cluster"`
		CellLine   string          `json:"cellline"`
		Indication string          `json:"indication"`
		Pool       string          `json:"pool"`
	}
	var rc rawCell
	if err := json.Unmarshal(data, &rc); err != nil {
		return err
	}
	label, err := parseLabel(rc.Cluster)
	if err != nil {
		return fmt.Errorf("cell %q: invalid cluster: %w", rc.ID, err)
	}
	*c = Cell{
		ID:         rc.ID,
		UMAP1:      rc.UMAP1,
		UMAP2:      rc.UMAP2,
		Cluster:    label,
		CellLine:   rc.CellLine,
		Indication: rc.Indication,
		Pool:       rc.Pool,
	}
	return nil
}

func parseLabel(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

// Metadata is the optional summary block written by the preprocessing script.
type Metadata struct {
	NCells             int      `json:"n_cells"`
	NGenes             int      `json:"n_genes"`
	NClusters          int      `json:"n_clusters"`
	GenesExported      int      `json:"genes_exported"`
	CellMetadataFields []string `json:"cell_metadata_fields"`
}

// Vector is an expression vector; JSON nulls decode to NaN.
type Vector []float64

// UnmarshalJSON decodes a JSON number array that may contain nulls.
func (v *Vector) UnmarshalJSON(data []byte) error {
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Vector, len(raw))
	for i, p := range raw {
		if p == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *p
	}
	*v = out
	return nil
}

// ExpressionSource supplies expression vectors for genes absent from the JSON file.
type ExpressionSource interface {
	GeneExpression(gene string, nCells int) ([]float64, error)
}

// Dataset is the validated, immutable input of the core.
type Dataset struct {
	Cells          []Cell            `json:"cells"`
	Genes          []string          `json:"genes"`
	ExpressionData map[string]Vector `json:"expressionData"`
	Metadata       *Metadata         `json:"metadata,omitempty"`

	idIndex map[string]int

	source    ExpressionSource
	sourceMu  sync.Mutex
	sourceHit map[string]Vector
}

// Finalize assigns positional indices and builds the id lookup. The loader
// calls it once; constructing a Dataset by hand requires calling it too.
func (d *Dataset) Finalize() {
	d.idIndex = make(map[string]int, len(d.Cells))
	dups := make(map[string]struct{})
	for i := range d.Cells {
		d.Cells[i].Index = i
		id := d.Cells[i].ID
		if id == "" {
			continue
		}
		if _, seen := d.idIndex[id]; seen {
			dups[id] = struct{}{}
			continue
		}
		d.idIndex[id] = i
	}
	// Ambiguous ids resolve by position only.
	for id := range dups {
		delete(d.idIndex, id)
	}
	if d.ExpressionData == nil {
		d.ExpressionData = make(map[string]Vector)
	}
}

// SetExpressionSource attaches a fallback source for genes missing from ExpressionData.
func (d *Dataset) SetExpressionSource(src ExpressionSource) {
	d.sourceMu.Lock()
	defer d.sourceMu.Unlock()
	d.source = src
	d.sourceHit = make(map[string]Vector)
}

// Len returns the number of cells.
func (d *Dataset) Len() int {
	return len(d.Cells)
}

// IndexOf returns the dataset position of the cell with the given id. Ids
// shared by several cells are not indexed.
func (d *Dataset) IndexOf(id string) (int, bool) {
	i, ok := d.idIndex[id]
	return i, ok
}

// Expression returns the expression vector for gene, positionally aligned to Cells.
func (d *Dataset) Expression(gene string) ([]float64, bool) {
	if v, ok := d.ExpressionData[gene]; ok {
		return v, true
	}

	d.sourceMu.Lock()
	defer d.sourceMu.Unlock()
	if d.source == nil {
		return nil, false
	}
	if v, ok := d.sourceHit[gene]; ok {
		return v, v != nil
	}
	v, err := d.source.GeneExpression(gene, len(d.Cells))
	if err != nil {
		if !errors.Is(err, ErrGeneNotFound) {
			log.Printf("[Dataset] expression source failed for %s: %v", gene, err)
		}
		d.sourceHit[gene] = nil
		return nil, false
	}
	d.sourceHit[gene] = v
	return v, true
}

// HasGene reports whether an expression vector exists for gene.
func (d *Dataset) HasGene(gene string) bool {
	_, ok := d.Expression(gene)
	return ok
}

// ExpressedGenes returns the genes, in Genes order, that have expression data.
func (d *Dataset) ExpressedGenes() []string {
	out := make([]string, 0, len(d.ExpressionData))
	for _, g := range d.Genes {
		if _, ok := d.ExpressionData[g]; ok {
			out = append(out, g)
		}
	}
	return out
}

// Clusters returns the sorted distinct cluster labels.
func (d *Dataset) Clusters() []string {
	return distinctSorted(d.Cells, func(c Cell) string { return c.Cluster })
}

// Indications returns distinct non-empty indications in first-seen order.
func (d *Dataset) Indications() []string {
	return distinctOrdered(d.Cells, func(c Cell) string { return c.Indication })
}

// CellLines returns distinct non-empty cell lines in first-seen order.
func (d *Dataset) CellLines() []string {
	return distinctOrdered(d.Cells, func(c Cell) string { return c.CellLine })
}

func distinctOrdered(cells []Cell, key func(Cell) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, c := range cells {
		k := key(c)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func distinctSorted(cells []Cell, key func(Cell) string) []string {
	out := distinctOrdered(cells, key)
	sort.Strings(out)
	return out
}
