// Package config handles configuration loading for the cellview server.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultDatasetID names the dataset of a single-dataset configuration.
const DefaultDatasetID = "default"

// Config represents the server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Data   DataConfig   `yaml:"data"`
	Cache  CacheConfig  `yaml:"cache"`
	Render RenderConfig `yaml:"render"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
	Title       string   `yaml:"title"`
}

// DatasetConfig locates one dataset.
type DatasetConfig struct {
	Path     string `yaml:"path"`
	SomaPath string `yaml:"soma_path"`
	Title    string `yaml:"title"`
}

// DataConfig contains data source settings. It accepts either a single
// dataset (dataset_path / soma_path keys) or a mapping of named datasets;
// the first named dataset is the default.
type DataConfig struct {
	Datasets       map[string]DatasetConfig
	DefaultDataset string
	order          []string
}

// DatasetIDs returns dataset ids in configuration order.
func (d DataConfig) DatasetIDs() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *DataConfig) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("data: expected a mapping, got %v", value.Tag)
	}

	legacy := false
	for i := 0; i < len(value.Content); i += 2 {
		switch value.Content[i].Value {
		case "dataset_path", "soma_path":
			legacy = true
		}
	}
	if legacy {
		var single struct {
			DatasetPath string `yaml:"dataset_path"`
			SomaPath    string `yaml:"soma_path"`
		}
		if err := value.Decode(&single); err != nil {
			return err
		}
		d.add(DefaultDatasetID, DatasetConfig{Path: single.DatasetPath, SomaPath: single.SomaPath})
		return nil
	}

	for i := 0; i+1 < len(value.Content); i += 2 {
		id := value.Content[i].Value
		var ds DatasetConfig
		if err := value.Content[i+1].Decode(&ds); err != nil {
			return fmt.Errorf("data.%s: %w", id, err)
		}
		d.add(id, ds)
	}
	return nil
}

func (d *DataConfig) add(id string, ds DatasetConfig) {
	if d.Datasets == nil {
		d.Datasets = make(map[string]DatasetConfig)
	}
	if _, ok := d.Datasets[id]; !ok {
		d.order = append(d.order, id)
	}
	d.Datasets[id] = ds
	if d.DefaultDataset == "" {
		d.DefaultDataset = id
	}
}

// CacheConfig contains caching settings.
type CacheConfig struct {
	FigureSizeMB     int `yaml:"figure_size_mb"`
	FigureTTLMinutes int `yaml:"figure_ttl_minutes"`
	QueryCacheSize   int `yaml:"query_cache_size"`
}

// RenderConfig contains rendering settings.
type RenderConfig struct {
	Colormap          string  `yaml:"colormap"`
	Palette           string  `yaml:"palette"`
	DefaultFormat     string  `yaml:"default_format"`
	PointRadius       float64 `yaml:"point_radius"`
	HitRadius         float64 `yaml:"hit_radius"`
	MaxPointsPerGroup int     `yaml:"max_points_per_group"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		// Return default config if file doesn't exist
		return DefaultConfig(), nil
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Apply defaults for missing values
	applyDefaults(&cfg)

	return &cfg, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			Title:       "Single-Cell RNA-seq Viewer",
		},
		Cache: CacheConfig{
			FigureSizeMB:     64,
			FigureTTLMinutes: 10,
			QueryCacheSize:   256,
		},
		Render: RenderConfig{
			Colormap:          "magma",
			Palette:           "category10",
			DefaultFormat:     "png",
			PointRadius:       3,
			HitRadius:         0.5,
			MaxPointsPerGroup: 500,
		},
	}
	cfg.Data.add(DefaultDatasetID, DatasetConfig{Path: "./data/combined_data.json"})
	return cfg
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaults.Server.Port
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = defaults.Server.CORSOrigins
	}
	if cfg.Server.Title == "" {
		cfg.Server.Title = defaults.Server.Title
	}
	if len(cfg.Data.Datasets) == 0 {
		cfg.Data = defaults.Data
	}
	for id, ds := range cfg.Data.Datasets {
		if ds.Path == "" && ds.SomaPath == "" {
			ds.Path = defaults.Data.Datasets[DefaultDatasetID].Path
			cfg.Data.Datasets[id] = ds
		}
	}
	if cfg.Cache.FigureSizeMB == 0 {
		cfg.Cache.FigureSizeMB = defaults.Cache.FigureSizeMB
	}
	if cfg.Cache.FigureTTLMinutes == 0 {
		cfg.Cache.FigureTTLMinutes = defaults.Cache.FigureTTLMinutes
	}
	if cfg.Cache.QueryCacheSize == 0 {
		cfg.Cache.QueryCacheSize = defaults.Cache.QueryCacheSize
	}
	if cfg.Render.Colormap == "" {
		cfg.Render.Colormap = defaults.Render.Colormap
	}
	if cfg.Render.Palette == "" {
		cfg.Render.Palette = defaults.Render.Palette
	}
	if cfg.Render.DefaultFormat == "" {
		cfg.Render.DefaultFormat = defaults.Render.DefaultFormat
	}
	if cfg.Render.PointRadius == 0 {
		cfg.Render.PointRadius = defaults.Render.PointRadius
	}
	if cfg.Render.HitRadius == 0 {
		cfg.Render.HitRadius = defaults.Render.HitRadius
	}
	if cfg.Render.MaxPointsPerGroup == 0 {
		cfg.Render.MaxPointsPerGroup = defaults.Render.MaxPointsPerGroup
	}
}
