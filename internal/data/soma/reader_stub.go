//go:build !soma

package soma

import (
	"fmt"
	"os"
)

// Reader is a stub when built without "-tags soma". The experiment path is
// still validated so config mistakes surface at startup.
type Reader struct {
	experimentURI string
}

// NewReader creates a SOMA reader (stub).
func NewReader(somaPath string) (*Reader, error) {
	uri, err := ResolveExperimentURI(somaPath)
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(uri); statErr != nil {
		return nil, fmt.Errorf("soma experiment not found at %s: %w", uri, statErr)
	}
	return &Reader{experimentURI: uri}, nil
}

func (r *Reader) Supported() bool { return false }

func (r *Reader) ExperimentURI() string { return r.experimentURI }

// GeneExpression always fails with ErrUnsupported.
func (r *Reader) GeneExpression(gene string, nCells int) ([]float64, error) {
	return nil, ErrUnsupported
}

// Close is a no-op.
func (r *Reader) Close() {}
