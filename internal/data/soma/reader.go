// Package soma reads per-gene expression vectors from a TileDB-SOMA experiment.
//
// Cells of the JSON dataset are matched to obs rows by position, so cell i
// has soma_joinid i. Two arrays are read:
//   - ms/RNA/var for the gene_id -> gene soma_joinid map
//   - ms/RNA/X/data for one gene column over all cells
package soma

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupported indicates this binary was built without SOMA/TileDB support.
	ErrUnsupported = errors.New("soma support is not enabled in this build (build server with: go build -tags soma)")
)

// ResolveExperimentURI accepts either:
//   - /path/to/.../soma/experiment.soma
//   - /path/to/.../soma  (parent directory)
//
// and returns the experiment.soma path.
func ResolveExperimentURI(somaPath string) (string, error) {
	p := strings.TrimSpace(somaPath)
	if p == "" {
		return "", errors.New("empty soma_path")
	}
	p = filepath.Clean(os.ExpandEnv(p))

	if strings.HasSuffix(p, ".soma") {
		return p, nil
	}
	return filepath.Join(p, "experiment.soma"), nil
}
