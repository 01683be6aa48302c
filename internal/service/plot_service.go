// Package service provides business logic for the figure server.
package service

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/atlasmap-sc/cellview/internal/cache"
	"github.com/atlasmap-sc/cellview/internal/data/dataset"
	"github.com/atlasmap-sc/cellview/internal/hittest"
	"github.com/atlasmap-sc/cellview/internal/plot"
	"github.com/atlasmap-sc/cellview/internal/stats"
	"github.com/atlasmap-sc/cellview/internal/surface"
	"github.com/atlasmap-sc/cellview/internal/viewer"
)

var (
	// ErrMissingGene is returned when a gene-coloured figure names no gene.
	ErrMissingGene = errors.New("gene is required")
	// ErrUnknownFormat is returned for output formats other than png and svg.
	ErrUnknownFormat = errors.New("unknown figure format")
)

// Format is an encoded figure format.
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// ParseFormat parses a format name. Empty selects def.
func ParseFormat(s string, def Format) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return def, nil
	case "png":
		return FormatPNG, nil
	case "svg":
		return FormatSVG, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

// PlotServiceConfig contains plot service configuration.
type PlotServiceConfig struct {
	DatasetID string
	Title     string
	Dataset   *dataset.Dataset
	Cache     *cache.Manager
	Scatter   *plot.ScatterRenderer
	BoxPlot   *plot.BoxPlotRenderer
	PNG       *surface.PNGEncoder
	MaxPoints int
}

// PlotService renders and caches the figures of one dataset.
type PlotService struct {
	datasetID string
	title     string
	ds        *dataset.Dataset
	cache     *cache.Manager
	scatter   *plot.ScatterRenderer
	boxplot   *plot.BoxPlotRenderer
	png       *surface.PNGEncoder
	maxPoints int
}

// NewPlotService creates a new plot service.
func NewPlotService(cfg PlotServiceConfig) *PlotService {
	datasetID := cfg.DatasetID
	if datasetID == "" {
		datasetID = "default"
	}
	if cfg.Scatter == nil {
		cfg.Scatter = plot.NewScatterRenderer(plot.DefaultScatterConfig())
	}
	if cfg.BoxPlot == nil {
		cfg.BoxPlot = plot.NewBoxPlotRenderer(plot.BoxPlotConfig{})
	}
	if cfg.PNG == nil {
		cfg.PNG = surface.NewPNGEncoder()
	}
	if cfg.MaxPoints <= 0 {
		cfg.MaxPoints = stats.DefaultMaxPoints
	}
	return &PlotService{
		datasetID: datasetID,
		title:     cfg.Title,
		ds:        cfg.Dataset,
		cache:     cfg.Cache,
		scatter:   cfg.Scatter,
		boxplot:   cfg.BoxPlot,
		png:       cfg.PNG,
		maxPoints: cfg.MaxPoints,
	}
}

// DatasetID returns the dataset this service renders.
func (s *PlotService) DatasetID() string {
	return s.datasetID
}

// Dataset returns the underlying dataset.
func (s *PlotService) Dataset() *dataset.Dataset {
	return s.ds
}

// Metadata describes the dataset and the figures a client should open with.
type Metadata struct {
	ID             string           `json:"id"`
	Title          string           `json:"title,omitempty"`
	Cells          int              `json:"n_cells"`
	Genes          []string         `json:"genes"`
	ExpressedGenes []string         `json:"expressed_genes"`
	Clusters       []string         `json:"clusters"`
	Indications    []string         `json:"indications"`
	CellLines      []string         `json:"cell_lines"`
	Defaults       viewer.ViewState `json:"defaults"`
}

// Metadata returns the dataset summary.
func (s *PlotService) Metadata() Metadata {
	return Metadata{
		ID:             s.datasetID,
		Title:          s.title,
		Cells:          s.ds.Len(),
		Genes:          s.ds.Genes,
		ExpressedGenes: s.ds.ExpressedGenes(),
		Clusters:       s.ds.Clusters(),
		Indications:    s.ds.Indications(),
		CellLines:      s.ds.CellLines(),
		Defaults:       viewer.DefaultState(s.ds),
	}
}

// cells returns the enriched collection for an embedding figure.
func (s *PlotService) cells(mode plot.ColorMode, gene string) ([]dataset.EnrichedCell, error) {
	if mode == plot.ColorByCluster {
		gene = ""
	} else if gene == "" {
		return nil, ErrMissingGene
	}

	key := cache.QueryKey(s.datasetID, "cells", mode.String(), gene)
	if v, ok := s.cache.GetQuery(key); ok {
		return v.([]dataset.EnrichedCell), nil
	}

	var cells []dataset.EnrichedCell
	if mode == plot.ColorByCluster {
		cells = s.ds.ClusterCells()
	} else {
		var err error
		cells, err = s.ds.GeneCells(gene)
		if err != nil {
			return nil, err
		}
	}
	s.cache.SetQuery(key, cells)
	return cells, nil
}

func embeddingTitle(mode plot.ColorMode, gene string) string {
	if mode == plot.ColorByCluster {
		return "Cluster UMAP"
	}
	return "Expression of " + gene
}

// EmbeddingFigure renders the embedding coloured by cluster or by gene.
func (s *PlotService) EmbeddingFigure(mode plot.ColorMode, gene string, format Format) ([]byte, error) {
	if mode == plot.ColorByCluster {
		gene = ""
	}
	key := cache.FigureKey(s.datasetID, "embedding", string(format), map[string]string{
		"color": mode.String(),
		"gene":  gene,
	})
	if data, ok := s.cache.GetFigure(key); ok {
		return data, nil
	}

	cells, err := s.cells(mode, gene)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	sf := surface.New(0, 0)
	tester, err := s.scatter.Render(sf, cells, mode, embeddingTitle(mode, gene))
	if err != nil {
		return nil, fmt.Errorf("failed to render embedding: %w", err)
	}
	s.cache.SetQuery(cache.QueryKey(s.datasetID, "tester", mode.String(), gene), tester)

	data, err := s.encode(sf, format)
	if err != nil {
		return nil, err
	}
	s.storeFigure(key, data)
	log.Printf("[PlotService] %s embedding %s %s: %d cells, %d bytes in %v",
		s.datasetID, mode, gene, len(cells), len(data), time.Since(start))
	return data, nil
}

// BoxPlotQuery selects the data of a box plot.
type BoxPlotQuery struct {
	Gene             string
	GroupBy          stats.GroupBy
	IndicationFilter string
}

func (q BoxPlotQuery) parts() []string {
	return []string{q.Gene, string(q.GroupBy), q.IndicationFilter}
}

func (s *PlotService) validate(q BoxPlotQuery) error {
	if q.Gene == "" {
		return ErrMissingGene
	}
	if _, err := stats.ParseGroupBy(string(q.GroupBy)); err != nil {
		return err
	}
	if q.IndicationFilter == "" || q.IndicationFilter == stats.AllIndications {
		return nil
	}
	for _, ind := range s.ds.Indications() {
		if ind == q.IndicationFilter {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", viewer.ErrUnknownIndication, q.IndicationFilter)
}

// BoxPlotStats computes per-group statistics. A gene without expression
// yields no groups and no error.
func (s *PlotService) BoxPlotStats(q BoxPlotQuery) ([]stats.GroupStats, error) {
	if q.GroupBy == "" {
		q.GroupBy = stats.GroupByIndication
	}
	if err := s.validate(q); err != nil {
		return nil, err
	}

	key := cache.QueryKey(s.datasetID, "boxplot", q.parts()...)
	if v, ok := s.cache.GetQuery(key); ok {
		return v.([]stats.GroupStats), nil
	}
	st := stats.ComputeWith(s.ds, q.Gene, q.GroupBy, q.IndicationFilter, stats.Options{MaxPoints: s.maxPoints})
	s.cache.SetQuery(key, st)
	return st, nil
}

// BoxPlotFigure renders a box plot. With a nil seed the strip jitter is
// random and the result is not cached.
func (s *PlotService) BoxPlotFigure(q BoxPlotQuery, seed *int64, format Format) ([]byte, error) {
	if q.GroupBy == "" {
		q.GroupBy = stats.GroupByIndication
	}
	st, err := s.BoxPlotStats(q)
	if err != nil {
		return nil, err
	}

	var key string
	if seed != nil {
		key = cache.FigureKey(s.datasetID, "boxplot", string(format), map[string]string{
			"gene":       q.Gene,
			"group_by":   string(q.GroupBy),
			"indication": q.IndicationFilter,
			"seed":       strconv.FormatInt(*seed, 10),
		})
		if data, ok := s.cache.GetFigure(key); ok {
			return data, nil
		}
	}

	start := time.Now()
	sf := surface.New(0, 0)
	s.boxplot.Render(sf, plot.BoxPlotRequest{
		Stats:            st,
		Gene:             q.Gene,
		GroupBy:          q.GroupBy,
		IndicationFilter: q.IndicationFilter,
		Rand:             seededRand(seed),
	})
	data, err := s.encode(sf, format)
	if err != nil {
		return nil, err
	}
	if key != "" {
		s.storeFigure(key, data)
	}
	log.Printf("[PlotService] %s boxplot %s by %s: %d groups, %d bytes in %v",
		s.datasetID, q.Gene, q.GroupBy, len(st), len(data), time.Since(start))
	return data, nil
}

// Hover resolves the cell under a pointer at (x, y) in figure pixels.
func (s *PlotService) Hover(mode plot.ColorMode, gene string, x, y float64) (hittest.HoverState, error) {
	if mode == plot.ColorByCluster {
		gene = ""
	}
	key := cache.QueryKey(s.datasetID, "tester", mode.String(), gene)
	if v, ok := s.cache.GetQuery(key); ok {
		return v.(*hittest.Tester).HoverAt(x, y), nil
	}

	cells, err := s.cells(mode, gene)
	if err != nil {
		return hittest.HoverState{}, err
	}
	tester := s.scatter.Tester(cells, mode)
	s.cache.SetQuery(key, tester)
	return tester.HoverAt(x, y), nil
}

// Legend describes the legend of an embedding figure.
func (s *PlotService) Legend(mode plot.ColorMode, gene string) (plot.Legend, error) {
	cells, err := s.cells(mode, gene)
	if err != nil {
		return plot.Legend{}, err
	}
	return plot.DescribeLegend(s.scatter.Scale(cells, mode)), nil
}

func (s *PlotService) encode(sf *surface.Surface, format Format) ([]byte, error) {
	switch format {
	case FormatSVG:
		return surface.EncodeSVG(sf)
	case FormatPNG, "":
		return s.png.Encode(sf)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

func (s *PlotService) storeFigure(key string, data []byte) {
	if err := s.cache.SetFigure(key, data); err != nil {
		log.Printf("[PlotService] figure not cached (%d bytes): %v", len(data), err)
	}
}

func seededRand(seed *int64) *rand.Rand {
	if seed == nil {
		return nil
	}
	return rand.New(rand.NewSource(*seed))
}
