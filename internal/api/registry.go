package api

import (
	"github.com/atlasmap-sc/cellview/internal/service"
)

// DatasetInfo contains information about a dataset for the API response.
type DatasetInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Cells int    `json:"n_cells"`
}

// DatasetRegistry holds plot services for all configured datasets.
type DatasetRegistry struct {
	services       map[string]*service.PlotService
	titles         map[string]string
	defaultDataset string
	datasetOrder   []string
	title          string
}

// NewDatasetRegistry creates a new dataset registry.
func NewDatasetRegistry(defaultDataset string, title string) *DatasetRegistry {
	return &DatasetRegistry{
		services:       make(map[string]*service.PlotService),
		titles:         make(map[string]string),
		defaultDataset: defaultDataset,
		title:          title,
	}
}

// Register adds a plot service for a dataset. Registration order is the
// listing order.
func (r *DatasetRegistry) Register(datasetID, name string, svc *service.PlotService) {
	if _, ok := r.services[datasetID]; !ok {
		r.datasetOrder = append(r.datasetOrder, datasetID)
	}
	r.services[datasetID] = svc
	r.titles[datasetID] = name
	if r.defaultDataset == "" {
		r.defaultDataset = datasetID
	}
}

// Get returns the plot service for a dataset, or nil if not found.
func (r *DatasetRegistry) Get(datasetID string) *service.PlotService {
	return r.services[datasetID]
}

// Default returns the default dataset's plot service.
func (r *DatasetRegistry) Default() *service.PlotService {
	return r.services[r.defaultDataset]
}

// DefaultDatasetID returns the default dataset ID.
func (r *DatasetRegistry) DefaultDatasetID() string {
	return r.defaultDataset
}

// DatasetIDs returns all dataset IDs in registration order.
func (r *DatasetRegistry) DatasetIDs() []string {
	return r.datasetOrder
}

// Title returns the configured site title.
func (r *DatasetRegistry) Title() string {
	if r.title != "" {
		return r.title
	}
	return "Single-Cell RNA-seq Viewer"
}

// Datasets returns dataset info for all registered datasets.
func (r *DatasetRegistry) Datasets() []DatasetInfo {
	infos := make([]DatasetInfo, 0, len(r.datasetOrder))
	for _, id := range r.datasetOrder {
		name := r.titles[id]
		if name == "" {
			name = id
		}
		infos = append(infos, DatasetInfo{
			ID:    id,
			Name:  name,
			Cells: r.services[id].Dataset().Len(),
		})
	}
	return infos
}
