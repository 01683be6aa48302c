// Package cache provides caching for rendered figures and derived query results.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/allegro/bigcache/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Config contains cache configuration.
type Config struct {
	FigureCacheSizeMB int
	FigureTTL         time.Duration
	QueryCacheSize    int
}

// Manager manages figure and query caches.
type Manager struct {
	figureCache *bigcache.BigCache
	queryCache  *lru.Cache[string, any]
}

// NewManager creates a new cache manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.FigureTTL <= 0 {
		cfg.FigureTTL = 10 * time.Minute
	}
	if cfg.QueryCacheSize <= 0 {
		cfg.QueryCacheSize = 256
	}
	if cfg.FigureCacheSizeMB <= 0 {
		cfg.FigureCacheSizeMB = 64
	}

	// Configure figure cache
	figureCacheConfig := bigcache.Config{
		Shards:             16,
		LifeWindow:         cfg.FigureTTL,
		CleanWindow:        cfg.FigureTTL / 2,
		MaxEntriesInWindow: 1024,
		MaxEntrySize:       512 * 1024, // 512KB per figure
		HardMaxCacheSize:   cfg.FigureCacheSizeMB,
		Verbose:            false,
	}

	figureCache, err := bigcache.New(context.Background(), figureCacheConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create figure cache: %w", err)
	}

	// Create query cache
	queryCache, err := lru.New[string, any](cfg.QueryCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create query cache: %w", err)
	}

	return &Manager{
		figureCache: figureCache,
		queryCache:  queryCache,
	}, nil
}

// GetFigure retrieves encoded figure bytes from cache.
func (m *Manager) GetFigure(key string) ([]byte, bool) {
	data, err := m.figureCache.Get(key)
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetFigure stores encoded figure bytes in cache.
func (m *Manager) SetFigure(key string, data []byte) error {
	return m.figureCache.Set(key, data)
}

// GetQuery retrieves a derived result from cache.
func (m *Manager) GetQuery(key string) (any, bool) {
	return m.queryCache.Get(key)
}

// SetQuery stores a derived result in cache.
func (m *Manager) SetQuery(key string, v any) {
	m.queryCache.Add(key, v)
}

// FigureKey generates a cache key for an encoded figure. Parameter order
// does not affect the key.
func FigureKey(dataset, kind, format string, params map[string]string) string {
	base := fmt.Sprintf("fig:%s|%s.%s", dataset, kind, format)
	if len(params) == 0 {
		return base
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// Hash params for cache key
	h := sha256.New()
	h.Write([]byte(base))
	for _, k := range keys {
		h.Write([]byte(fmt.Sprintf("\x00%s=%s", k, params[k])))
	}
	return base + ":" + hex.EncodeToString(h.Sum(nil))[:16]
}

// QueryKey generates a cache key for a derived result of a dataset.
func QueryKey(dataset, kind string, parts ...string) string {
	return dataset + "|" + kind + ":" + strings.Join(parts, "\x00")
}

// Stats returns cache statistics.
func (m *Manager) Stats() map[string]interface{} {
	return map[string]interface{}{
		"figure_cache_len": m.figureCache.Len(),
		"figure_cache_cap": m.figureCache.Capacity(),
		"query_cache_len":  m.queryCache.Len(),
	}
}

// Close closes the cache manager.
func (m *Manager) Close() error {
	return m.figureCache.Close()
}
