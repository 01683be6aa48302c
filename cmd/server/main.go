// Package main is the entry point for the cellview figure server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atlasmap-sc/cellview/internal/api"
	"github.com/atlasmap-sc/cellview/internal/cache"
	"github.com/atlasmap-sc/cellview/internal/config"
	"github.com/atlasmap-sc/cellview/internal/data/dataset"
	"github.com/atlasmap-sc/cellview/internal/data/soma"
	"github.com/atlasmap-sc/cellview/internal/plot"
	"github.com/atlasmap-sc/cellview/internal/service"
	"github.com/atlasmap-sc/cellview/internal/surface"
	"github.com/atlasmap-sc/cellview/pkg/colormap"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config/server.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting cellview server on port %d", cfg.Server.Port)

	ctx := context.Background()

	// Initialize cache manager (shared across all datasets)
	cacheManager, err := cache.NewManager(cache.Config{
		FigureCacheSizeMB: cfg.Cache.FigureSizeMB,
		FigureTTL:         time.Duration(cfg.Cache.FigureTTLMinutes) * time.Minute,
		QueryCacheSize:    cfg.Cache.QueryCacheSize,
	})
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}
	defer cacheManager.Close()

	defaultFormat, err := service.ParseFormat(cfg.Render.DefaultFormat, service.FormatPNG)
	if err != nil {
		log.Fatalf("Invalid render.default_format: %v", err)
	}

	// Renderers are stateless and shared across all datasets.
	cmap, ok := colormap.ByName(cfg.Render.Colormap)
	if !ok {
		log.Printf("Unknown colormap %q, using magma", cfg.Render.Colormap)
		cmap = colormap.Magma
	}
	palette, ok := colormap.CategoricalByName(cfg.Render.Palette)
	if !ok {
		log.Printf("Unknown palette %q, using category10", cfg.Render.Palette)
		palette = colormap.Category10
	}
	log.Printf("Render: colormap=%s, %d cluster colours", cmap.Name(), palette.Len())
	scatterRenderer := plot.NewScatterRenderer(plot.ScatterConfig{
		Layout:       plot.ScatterLayout,
		PointRadius:  cfg.Render.PointRadius,
		Colormap:     cmap,
		Palette:      palette,
		HitThreshold: cfg.Render.HitRadius,
	})
	boxPlotRenderer := plot.NewBoxPlotRenderer(plot.BoxPlotConfig{Layout: plot.BoxPlotLayout})
	pngEncoder := surface.NewPNGEncoder()

	// Initialize dataset registry
	datasetIDs := cfg.Data.DatasetIDs()
	registry := api.NewDatasetRegistry(cfg.Data.DefaultDataset, cfg.Server.Title)

	log.Printf("Initializing %d dataset(s), default: %s", len(datasetIDs), cfg.Data.DefaultDataset)

	for _, datasetID := range datasetIDs {
		dsCfg := cfg.Data.Datasets[datasetID]
		if dsCfg.Path == "" {
			log.Fatalf("Dataset %q has no path", datasetID)
		}

		ds, err := dataset.Load(dsCfg.Path)
		if err != nil {
			log.Fatalf("Failed to load dataset %q: %v", datasetID, err)
		}
		log.Printf("  [%s] Loaded from: %s", datasetID, dsCfg.Path)
		log.Printf("    Cells: %d, Genes: %d, Expressed: %d", ds.Len(), len(ds.Genes), len(ds.ExpressedGenes()))

		if dsCfg.SomaPath != "" {
			r, err := soma.NewReader(dsCfg.SomaPath)
			if err != nil {
				log.Printf("  [%s] SOMA not initialized: %v", datasetID, err)
			} else {
				log.Printf("  [%s] SOMA experiment: %s (supported=%v)", datasetID, r.ExperimentURI(), r.Supported())
				if r.Supported() {
					ds.SetExpressionSource(r)
					defer r.Close()
				}
			}
		}

		registry.Register(datasetID, dsCfg.Title, service.NewPlotService(service.PlotServiceConfig{
			DatasetID: datasetID,
			Title:     dsCfg.Title,
			Dataset:   ds,
			Cache:     cacheManager,
			Scatter:   scatterRenderer,
			BoxPlot:   boxPlotRenderer,
			PNG:       pngEncoder,
			MaxPoints: cfg.Render.MaxPointsPerGroup,
		}))
	}

	// Set up HTTP router
	router := api.NewRouter(api.RouterConfig{
		Registry:      registry,
		Cache:         cacheManager,
		CORSOrigins:   cfg.Server.CORSOrigins,
		DefaultFormat: defaultFormat,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on http://localhost:%d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
