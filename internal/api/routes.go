// Package api provides HTTP handlers for the cellview server.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/atlasmap-sc/cellview/internal/cache"
	"github.com/atlasmap-sc/cellview/internal/data/dataset"
	"github.com/atlasmap-sc/cellview/internal/plot"
	"github.com/atlasmap-sc/cellview/internal/service"
	"github.com/atlasmap-sc/cellview/internal/stats"
	"github.com/atlasmap-sc/cellview/internal/viewer"
)

// RouterConfig contains router configuration.
type RouterConfig struct {
	Registry      *DatasetRegistry
	Cache         *cache.Manager
	CORSOrigins   []string
	DefaultFormat service.Format
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) *chi.Mux {
	if cfg.DefaultFormat == "" {
		cfg.DefaultFormat = service.FormatPNG
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Global endpoints (not dataset-scoped)
	r.Get("/api/datasets", datasetsHandler(cfg.Registry))
	if cfg.Cache != nil {
		r.Get("/api/cache/stats", cacheStatsHandler(cfg.Cache))
	}

	// Dataset-scoped routes: /d/{dataset}/...
	r.Route("/d/{dataset}", func(r chi.Router) {
		r.Use(datasetMiddleware(cfg.Registry))

		// The figure segment carries its extension ("embedding.svg"); it is
		// split in the handler so a bare name falls back to the default format.
		r.Get("/plots/{figure}", figureHandler(cfg.DefaultFormat))

		r.Route("/api", func(r chi.Router) {
			r.Get("/metadata", metadataHandler)
			r.Get("/boxplot", boxPlotStatsHandler)
			r.Get("/hover", hoverHandler)
			r.Get("/legend", legendHandler)
		})
	})

	return r
}

// Context key for dataset service
type ctxKey string

const datasetServiceKey ctxKey = "datasetService"

// datasetMiddleware resolves the dataset from URL and injects the plot service into context.
func datasetMiddleware(registry *DatasetRegistry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			datasetID := chi.URLParam(r, "dataset")
			svc := registry.Get(datasetID)
			if svc == nil {
				http.Error(w, "dataset not found: "+datasetID, http.StatusNotFound)
				return
			}
			ctx := context.WithValue(r.Context(), datasetServiceKey, svc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func getDatasetService(r *http.Request) *service.PlotService {
	if svc, ok := r.Context().Value(datasetServiceKey).(*service.PlotService); ok {
		return svc
	}
	return nil
}

// datasetsHandler returns the list of available datasets.
func datasetsHandler(registry *DatasetRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"default":  registry.DefaultDatasetID(),
			"datasets": registry.Datasets(),
			"title":    registry.Title(),
		})
	}
}

func cacheStatsHandler(cm *cache.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, cm.Stats())
	}
}

func metadataHandler(w http.ResponseWriter, r *http.Request) {
	svc := getDatasetService(r)
	if svc == nil {
		http.Error(w, "dataset service not found", http.StatusInternalServerError)
		return
	}
	writeJSON(w, svc.Metadata())
}

func figureHandler(defaultFormat service.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc := getDatasetService(r)
		if svc == nil {
			http.Error(w, "dataset service not found", http.StatusInternalServerError)
			return
		}

		name, ext, _ := strings.Cut(chi.URLParam(r, "figure"), ".")
		format, err := service.ParseFormat(ext, defaultFormat)
		if err != nil {
			writeError(w, err)
			return
		}

		var (
			data      []byte
			cacheable = true
		)
		q := r.URL.Query()
		switch name {
		case "embedding":
			mode, err := plot.ParseColorMode(q.Get("color"))
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			data, err = svc.EmbeddingFigure(mode, strings.TrimSpace(q.Get("gene")), format)
			if err != nil {
				writeError(w, err)
				return
			}
		case "boxplot":
			seed, err := parseSeed(q.Get("seed"))
			if err != nil {
				http.Error(w, "invalid seed", http.StatusBadRequest)
				return
			}
			cacheable = seed != nil
			data, err = svc.BoxPlotFigure(boxPlotQuery(r), seed, format)
			if err != nil {
				writeError(w, err)
				return
			}
		default:
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", format.ContentType())
		if cacheable {
			w.Header().Set("Cache-Control", "public, max-age=3600")
		} else {
			w.Header().Set("Cache-Control", "no-store")
		}
		w.Write(data)
	}
}

func boxPlotStatsHandler(w http.ResponseWriter, r *http.Request) {
	svc := getDatasetService(r)
	if svc == nil {
		http.Error(w, "dataset service not found", http.StatusInternalServerError)
		return
	}
	q := boxPlotQuery(r)
	st, err := svc.BoxPlotStats(q)
	if err != nil {
		writeError(w, err)
		return
	}
	if st == nil {
		st = []stats.GroupStats{}
	}
	writeJSON(w, map[string]interface{}{
		"gene":     q.Gene,
		"group_by": q.GroupBy,
		"groups":   st,
	})
}

func hoverHandler(w http.ResponseWriter, r *http.Request) {
	svc := getDatasetService(r)
	if svc == nil {
		http.Error(w, "dataset service not found", http.StatusInternalServerError)
		return
	}
	q := r.URL.Query()
	mode, err := plot.ParseColorMode(q.Get("color"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	x, errX := strconv.ParseFloat(q.Get("x"), 64)
	y, errY := strconv.ParseFloat(q.Get("y"), 64)
	if errX != nil || errY != nil {
		http.Error(w, "x and y must be numbers", http.StatusBadRequest)
		return
	}

	h, err := svc.Hover(mode, strings.TrimSpace(q.Get("gene")), x, y)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, h)
}

func legendHandler(w http.ResponseWriter, r *http.Request) {
	svc := getDatasetService(r)
	if svc == nil {
		http.Error(w, "dataset service not found", http.StatusInternalServerError)
		return
	}
	q := r.URL.Query()
	mode, err := plot.ParseColorMode(q.Get("color"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	lg, err := svc.Legend(mode, strings.TrimSpace(q.Get("gene")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, lg)
}

func boxPlotQuery(r *http.Request) service.BoxPlotQuery {
	q := r.URL.Query()
	return service.BoxPlotQuery{
		Gene:             strings.TrimSpace(q.Get("gene")),
		GroupBy:          stats.GroupBy(strings.TrimSpace(q.Get("group_by"))),
		IndicationFilter: strings.TrimSpace(q.Get("indication")),
	}
}

func parseSeed(s string) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, dataset.ErrGeneNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrMissingGene),
		errors.Is(err, service.ErrUnknownFormat),
		errors.Is(err, stats.ErrUnknownGroupBy),
		errors.Is(err, viewer.ErrUnknownIndication):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("[API] %v", err)
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] failed to encode response: %v", err)
	}
}
