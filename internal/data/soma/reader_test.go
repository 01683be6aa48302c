package soma

import (
	"path/filepath"
	"testing"
)

func TestResolveExperimentURI(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/data/pbmc/soma", "/data/pbmc/soma/experiment.soma"},
		{"/data/pbmc/soma/", "/data/pbmc/soma/experiment.soma"},
		{"/data/pbmc/soma/experiment.soma", "/data/pbmc/soma/experiment.soma"},
		{"  /data/x.soma ", "/data/x.soma"},
	}
	for _, tt := range tests {
		got, err := ResolveExperimentURI(tt.in)
		if err != nil {
			t.Fatalf("ResolveExperimentURI(%q) error: %v", tt.in, err)
		}
		if got != filepath.FromSlash(tt.want) {
			t.Errorf("ResolveExperimentURI(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if _, err := ResolveExperimentURI("   "); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestNewReader_MissingExperiment(t *testing.T) {
	if _, err := NewReader(filepath.Join(t.TempDir(), "soma")); err == nil {
		t.Fatal("expected error for missing experiment")
	}
}
