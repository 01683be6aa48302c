//go:build soma

package soma

import (
	"fmt"
	"log"
	"math"
	"os"
	"sync"

	tiledb "github.com/TileDB-Inc/TileDB-Go"

	"github.com/atlasmap-sc/cellview/internal/data/dataset"
)

const (
	varArray = "/ms/RNA/var"
	xArray   = "/ms/RNA/X/data"

	// rows fetched per submit when streaming var and X
	chunkRows = 4096
	// upper bound for the var-length gene_id buffer
	maxGeneBytes = 64 * 1024 * 1024
)

// Reader reads gene columns of X via TileDB arrays.
type Reader struct {
	experimentURI string
	ctx           *tiledb.Context

	geneOnce sync.Once
	geneMap  map[string]int64 // gene_id -> gene soma_joinid
	geneErr  error
}

// NewReader opens a TileDB context for the experiment at somaPath.
func NewReader(somaPath string) (*Reader, error) {
	uri, err := ResolveExperimentURI(somaPath)
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(uri); statErr != nil {
		return nil, fmt.Errorf("soma experiment not found at %s: %w", uri, statErr)
	}

	ctx, err := tiledb.NewContext(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create TileDB context: %w", err)
	}

	return &Reader{
		experimentURI: uri,
		ctx:           ctx,
	}, nil
}

func (r *Reader) Supported() bool { return true }

func (r *Reader) ExperimentURI() string { return r.experimentURI }

// Close releases the TileDB context.
func (r *Reader) Close() {
	if r.ctx != nil {
		r.ctx.Free()
	}
}

func (r *Reader) geneJoinID(gene string) (int64, error) {
	r.geneOnce.Do(func() { r.geneErr = r.loadGeneMap() })
	if r.geneErr != nil {
		return 0, r.geneErr
	}
	id, ok := r.geneMap[gene]
	if !ok {
		return 0, fmt.Errorf("%w: %s (soma var)", dataset.ErrGeneNotFound, gene)
	}
	return id, nil
}

// GeneExpression returns a dense vector of length nCells for gene. Cells
// absent from the sparse X array are zero; null values are NaN.
func (r *Reader) GeneExpression(gene string, nCells int) ([]float64, error) {
	geneID, err := r.geneJoinID(gene)
	if err != nil {
		return nil, err
	}
	out := make([]float64, nCells)
	if nCells == 0 {
		return out, nil
	}

	arr, err := r.openArray(xArray)
	if err != nil {
		return nil, err
	}
	defer arr.Free()
	defer arr.Close()

	sub, err := arr.NewSubarray()
	if err != nil {
		return nil, fmt.Errorf("failed to create subarray: %w", err)
	}
	defer sub.Free()
	if err := sub.AddRangeByName("soma_dim_0", tiledb.MakeRange[int64](0, int64(nCells-1))); err != nil {
		return nil, fmt.Errorf("failed to add cell range: %w", err)
	}
	if err := sub.AddRangeByName("soma_dim_1", tiledb.MakeRange[int64](geneID, geneID)); err != nil {
		return nil, fmt.Errorf("failed to add gene range: %w", err)
	}

	q, err := tiledb.NewQuery(r.ctx, arr)
	if err != nil {
		return nil, fmt.Errorf("failed to create query: %w", err)
	}
	defer q.Free()
	if err := q.SetSubarray(sub); err != nil {
		return nil, fmt.Errorf("failed to set subarray: %w", err)
	}
	_ = q.SetLayout(tiledb.TILEDB_UNORDERED)

	valNullable, err := attributeNullable(arr, "soma_data")
	if err != nil {
		return nil, fmt.Errorf("failed to inspect soma_data nullable: %w", err)
	}

	n := chunkRows
	if nCells < n {
		n = nCells
	}
	cells := make([]int64, n)
	genes := make([]int64, n)
	vals := make([]float32, n)
	var valid []uint8
	if valNullable {
		valid = make([]uint8, n)
	}

	nnz := 0
	for {
		// Buffer sizes are in/out parameters; reset them before each submit.
		if _, err := q.SetDataBuffer("soma_dim_0", cells); err != nil {
			return nil, fmt.Errorf("failed to set buffer soma_dim_0: %w", err)
		}
		if _, err := q.SetDataBuffer("soma_dim_1", genes); err != nil {
			return nil, fmt.Errorf("failed to set buffer soma_dim_1: %w", err)
		}
		if _, err := q.SetDataBuffer("soma_data", vals); err != nil {
			return nil, fmt.Errorf("failed to set buffer soma_data: %w", err)
		}
		if valNullable {
			if _, err := q.SetValidityBuffer("soma_data", valid); err != nil {
				return nil, fmt.Errorf("failed to set validity buffer soma_data: %w", err)
			}
		}

		if err := q.Submit(); err != nil {
			return nil, fmt.Errorf("X query submit failed: %w", err)
		}
		status, err := q.Status()
		if err != nil {
			return nil, fmt.Errorf("X query status failed: %w", err)
		}
		elems, err := q.ResultBufferElements()
		if err != nil {
			return nil, fmt.Errorf("X query ResultBufferElements failed: %w", err)
		}

		got := clampLen(int(elems["soma_data"][1]), len(vals))
		gotValid := 0
		if valNullable {
			gotValid = clampLen(int(elems["soma_data"][2]), len(valid))
		}
		for i := 0; i < got; i++ {
			c := cells[i]
			if c < 0 || c >= int64(nCells) {
				continue
			}
			if valNullable && i < gotValid && valid[i] == 0 {
				out[c] = math.NaN()
				continue
			}
			out[c] = float64(vals[i])
			nnz++
		}

		if status == tiledb.TILEDB_COMPLETED {
			break
		}
		if status != tiledb.TILEDB_INCOMPLETE {
			return nil, fmt.Errorf("unexpected TileDB query status for X: %v", status)
		}
		if got == 0 {
			return nil, fmt.Errorf("X query made no progress for gene %s", gene)
		}
	}

	log.Printf("[SOMA] %s: %d non-zero of %d cells", gene, nnz, nCells)
	return out, nil
}

func (r *Reader) openArray(suffix string) (*tiledb.Array, error) {
	uri := r.experimentURI + suffix
	arr, err := tiledb.NewArray(r.ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("failed to open array (%s): %w", uri, err)
	}
	if err := arr.Open(tiledb.TILEDB_READ); err != nil {
		arr.Free()
		return nil, fmt.Errorf("failed to open array %s for read: %w", uri, err)
	}
	return arr, nil
}

func (r *Reader) loadGeneMap() error {
	arr, err := r.openArray(varArray)
	if err != nil {
		return err
	}
	defer arr.Free()
	defer arr.Close()

	// The non-empty domain avoids depending on unbounded dimension domains.
	ned, isEmpty, err := arr.NonEmptyDomainFromName("soma_joinid")
	if err != nil {
		return fmt.Errorf("failed to get var non-empty domain: %w", err)
	}
	if isEmpty || ned == nil {
		r.geneMap = map[string]int64{}
		return nil
	}
	minID, maxID, err := boundsMinMaxInt64(ned.Bounds)
	if err != nil {
		return fmt.Errorf("failed to parse var non-empty domain bounds: %w", err)
	}

	sub, err := arr.NewSubarray()
	if err != nil {
		return fmt.Errorf("failed to create var subarray: %w", err)
	}
	defer sub.Free()
	if err := sub.AddRangeByName("soma_joinid", tiledb.MakeRange[int64](minID, maxID)); err != nil {
		return fmt.Errorf("failed to set var range: %w", err)
	}

	q, err := tiledb.NewQuery(r.ctx, arr)
	if err != nil {
		return fmt.Errorf("failed to create var query: %w", err)
	}
	defer q.Free()
	if err := q.SetSubarray(sub); err != nil {
		return fmt.Errorf("failed to set var subarray: %w", err)
	}
	if err := q.SetLayout(tiledb.TILEDB_ROW_MAJOR); err != nil {
		return fmt.Errorf("failed to set var query layout: %w", err)
	}

	geneNullable, err := attributeNullable(arr, "gene_id")
	if err != nil {
		return fmt.Errorf("failed to inspect gene_id nullable: %w", err)
	}
	joinIDs := make([]int64, chunkRows)
	offsets := make([]uint64, chunkRows)
	var validity []uint8
	if geneNullable {
		validity = make([]uint8, chunkRows)
	}
	data := make([]byte, 1024*1024)

	m := make(map[string]int64, 32768)
	for {
		if _, err := q.SetDataBuffer("soma_joinid", joinIDs); err != nil {
			return fmt.Errorf("failed to set buffer soma_joinid: %w", err)
		}
		if _, err := q.SetOffsetsBuffer("gene_id", offsets); err != nil {
			return fmt.Errorf("failed to set offsets buffer gene_id: %w", err)
		}
		if _, err := q.SetDataBuffer("gene_id", data); err != nil {
			return fmt.Errorf("failed to set data buffer gene_id: %w", err)
		}
		if geneNullable {
			if _, err := q.SetValidityBuffer("gene_id", validity); err != nil {
				return fmt.Errorf("failed to set validity buffer gene_id: %w", err)
			}
		}

		if err := q.Submit(); err != nil {
			return fmt.Errorf("var query submit failed: %w", err)
		}
		status, err := q.Status()
		if err != nil {
			return fmt.Errorf("var query status failed: %w", err)
		}
		elems, err := q.ResultBufferElements()
		if err != nil {
			return fmt.Errorf("var query ResultBufferElements failed: %w", err)
		}

		usedJoin := clampLen(int(elems["soma_joinid"][1]), len(joinIDs))
		usedOffsets := clampLen(int(elems["gene_id"][0]), len(offsets))
		usedBytes := clampLen(int(elems["gene_id"][1]), len(data))
		usedValid := 0
		if geneNullable {
			usedValid = clampLen(int(elems["gene_id"][2]), len(validity))
		}

		if status == tiledb.TILEDB_INCOMPLETE && usedJoin == 0 && usedOffsets == 0 && usedBytes == 0 {
			if len(data) < maxGeneBytes {
				data = make([]byte, len(data)*2)
				continue
			}
			return fmt.Errorf("var query buffers too small (gene_id); grew to %d bytes and still no progress", len(data))
		}

		lim := usedJoin
		if usedOffsets < lim {
			lim = usedOffsets
		}
		for i := 0; i < lim; i++ {
			if geneNullable && i < usedValid && validity[i] == 0 {
				continue
			}
			start := int(offsets[i])
			end := usedBytes
			if i+1 < usedOffsets {
				end = int(offsets[i+1])
			}
			if start < 0 || end < start || end > usedBytes {
				continue
			}
			if g := string(data[start:end]); g != "" {
				m[g] = joinIDs[i]
			}
		}

		if status == tiledb.TILEDB_COMPLETED {
			break
		}
		if status != tiledb.TILEDB_INCOMPLETE {
			return fmt.Errorf("unexpected TileDB query status for var: %v", status)
		}
	}

	r.geneMap = m
	log.Printf("[SOMA] %s: %d genes in var", r.experimentURI, len(m))
	return nil
}

func clampLen(n, limit int) int {
	if n > limit {
		return limit
	}
	return n
}

func boundsMinMaxInt64(bounds interface{}) (int64, int64, error) {
	switch v := bounds.(type) {
	case []int64:
		if len(v) >= 2 {
			return v[0], v[1], nil
		}
	case []int32:
		if len(v) >= 2 {
			return int64(v[0]), int64(v[1]), nil
		}
	case []uint64:
		if len(v) >= 2 {
			if v[0] > math.MaxInt64 || v[1] > math.MaxInt64 {
				return 0, 0, fmt.Errorf("uint64 bounds exceed int64 range")
			}
			return int64(v[0]), int64(v[1]), nil
		}
	case []uint32:
		if len(v) >= 2 {
			return int64(v[0]), int64(v[1]), nil
		}
	}
	return 0, 0, fmt.Errorf("unsupported bounds type for non-empty domain")
}

func attributeNullable(arr *tiledb.Array, name string) (bool, error) {
	schema, err := arr.Schema()
	if err != nil {
		return false, err
	}
	defer schema.Free()
	attr, err := schema.AttributeFromName(name)
	if err != nil {
		return false, err
	}
	defer attr.Free()
	return attr.Nullable()
}
