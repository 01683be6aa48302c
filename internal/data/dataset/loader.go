package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Load reads a combined dataset file (cells, genes, expressionData, metadata).
// Files ending in .gz or .zst are decompressed on the fly.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	switch {
	case strings.HasSuffix(path, ".gz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	case strings.HasSuffix(path, ".zst"):
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open zstd stream: %w", err)
		}
		defer dec.Close()
		r = dec
	}

	ds, err := Decode(r)
	if err != nil {
		return nil, err
	}

	log.Printf("[Loader] %s: %d cells, %d genes, %d with expression",
		path, len(ds.Cells), len(ds.Genes), len(ds.ExpressionData))
	return ds, nil
}

// Decode parses a dataset from r and finalizes it.
func Decode(r io.Reader) (*Dataset, error) {
	var ds Dataset
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}
	if len(ds.Cells) == 0 {
		return nil, errors.New("dataset has no cells")
	}
	ds.Finalize()

	// Alignment is the producer's contract; report it, don't repair it.
	for gene, values := range ds.ExpressionData {
		if len(values) != len(ds.Cells) {
			log.Printf("[Loader] gene %s: %d values for %d cells", gene, len(values), len(ds.Cells))
		}
	}
	return &ds, nil
}
