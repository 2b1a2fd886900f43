package api

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-parking/internal/service"
	"github.com/joeblew999/plat-parking/internal/zones"
)

// DBHandler handles DuckDB-backed endpoints.
type DBHandler struct {
	db       *sql.DB
	datasets *service.DatasetService
}

// NewDBHandler creates a new database handler. db may be nil when DuckDB is
// unavailable.
func NewDBHandler(db *sql.DB, datasets *service.DatasetService) *DBHandler {
	return &DBHandler{db: db, datasets: datasets}
}

// RegisterRoutes registers database routes with Huma.
func (h *DBHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/zones/stats", h.ZoneStats, huma.OperationTags("zones"))
}

// ZoneStatsInput selects the permit zone CSV to summarize.
type ZoneStatsInput struct {
	File  string `query:"file" required:"true" doc:"CSV file in the data directory" example:"Residential_Parking_Permit_Zones.csv"`
	Limit int    `query:"limit" minimum:"1" maximum:"100" default:"10" doc:"Length of the top-N lists"`
}

// ZoneStatsOutput is the response for zone statistics.
type ZoneStatsOutput struct {
	Body zones.Stats
}

// ZoneStats summarizes a permit zone CSV with DuckDB.
func (h *DBHandler) ZoneStats(ctx context.Context, input *ZoneStatsInput) (*ZoneStatsOutput, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}
	if !strings.EqualFold(filepath.Ext(input.File), ".csv") {
		return nil, huma.Error400BadRequest("file must be a CSV")
	}
	path, err := h.datasets.Open(input.File)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, huma.Error404NotFound("file not found")
	}

	st, err := zones.ComputeStats(ctx, h.db, path, input.Limit)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to compute stats", err)
	}
	return &ZoneStatsOutput{Body: st}, nil
}
