package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-parking/internal/service"
)

type InfoHandler struct {
	mapSvc   *service.MapService
	datasets *service.DatasetService
	dbOK     bool
}

func NewInfoHandler(mapSvc *service.MapService, datasets *service.DatasetService, dbOK bool) *InfoHandler {
	return &InfoHandler{mapSvc: mapSvc, datasets: datasets, dbOK: dbOK}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string            `json:"name" doc:"Service name"`
	Version  string            `json:"version" doc:"Service version"`
	DataDir  string            `json:"data_dir" doc:"Data directory path"`
	Dataset  string            `json:"dataset" doc:"Segment dataset file"`
	Size     string            `json:"size,omitempty" doc:"Human-readable dataset size"`
	DB       bool              `json:"db" doc:"Whether the stats database is available"`
	Map      service.MapStatus `json:"map" doc:"Current map session"`
	Features []string          `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	body := InfoBody{
		Name:     "plat-parking",
		Version:  "0.1.0",
		DataDir:  h.datasets.DataDir(),
		Dataset:  h.datasets.Name(),
		DB:       h.dbOK,
		Map:      h.mapSvc.Status(),
		Features: []string{"geojson", "zone-colors", "popups", "duckdb", "datastar"},
	}
	if files, err := h.datasets.List(); err == nil {
		for _, f := range files {
			if f.Active {
				body.Size = f.Size
			}
		}
	}
	return &struct{ Body InfoBody }{Body: body}, nil
}
