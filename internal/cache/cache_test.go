package cache

import (
	"testing"
	"time"
)

func TestFigureKey(t *testing.T) {
	base := "fig:pbmc|embedding.png"

	t.Run("noParams", func(t *testing.T) {
		if got := FigureKey("pbmc", "embedding", "png", nil); got != base {
			t.Fatalf("expected %q, got %q", base, got)
		}
	})

	t.Run("stableOrder", func(t *testing.T) {
		key1 := FigureKey("pbmc", "embedding", "png", map[string]string{"color": "gene", "gene": "CD79A"})
		key2 := FigureKey("pbmc", "embedding", "png", map[string]string{"gene": "CD79A", "color": "gene"})
		if key1 != key2 {
			t.Fatalf("expected stable key, got %q vs %q", key1, key2)
		}
		if key1 == base {
			t.Fatalf("expected parameterised key to differ from base")
		}
	})

	t.Run("valuesMatter", func(t *testing.T) {
		a := FigureKey("pbmc", "boxplot", "svg", map[string]string{"gene": "ERBB2"})
		b := FigureKey("pbmc", "boxplot", "svg", map[string]string{"gene": "MS4A1"})
		if a == b {
			t.Fatal("different genes should not share a key")
		}
	})
}

func TestManager(t *testing.T) {
	m, err := NewManager(Config{FigureCacheSizeMB: 8, FigureTTL: time.Minute, QueryCacheSize: 4})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	defer m.Close()

	if _, ok := m.GetFigure("missing"); ok {
		t.Fatal("unexpected hit")
	}
	if err := m.SetFigure("k", []byte("png")); err != nil {
		t.Fatalf("SetFigure error: %v", err)
	}
	if data, ok := m.GetFigure("k"); !ok || string(data) != "png" {
		t.Fatalf("GetFigure = %q, %v", data, ok)
	}

	m.SetQuery(QueryKey("a", "cells", "CD79A"), 1)
	m.SetQuery(QueryKey("a", "cells", "MS4A1"), 2)
	m.SetQuery(QueryKey("b", "cells", "CD79A"), 3)
	if v, ok := m.GetQuery(QueryKey("a", "cells", "MS4A1")); !ok || v.(int) != 2 {
		t.Fatalf("GetQuery = %v, %v", v, ok)
	}
	if v, ok := m.GetQuery(QueryKey("b", "cells", "CD79A")); !ok || v.(int) != 3 {
		t.Fatal("datasets should not share query entries")
	}
}
