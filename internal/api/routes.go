// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-parking/internal/humastar"
	"github.com/joeblew999/plat-parking/internal/mapview"
	"github.com/joeblew999/plat-parking/internal/service"
	"github.com/joeblew999/plat-parking/internal/zonecolor"
)

// Services holds the service dependencies for API handlers.
type Services struct {
	Map      *service.MapService
	Datasets *service.DatasetService
}

// Types

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

type MapOutput struct {
	Body mapview.Program
}

// FeatureRef is a rendered feature as reported by the browser. Only the
// properties are needed to build a popup.
type FeatureRef struct {
	Properties map[string]any `json:"properties" doc:"Feature properties"`
}

type InteractBody struct {
	Event    string       `json:"event" required:"true" enum:"click,mouseenter,mouseleave" doc:"Pointer event"`
	Layer    string       `json:"layer" required:"true" doc:"Layer ID" example:"parking-segments-line"`
	LngLat   orb.Point    `json:"lngLat" doc:"Pointer location as [lon, lat]"`
	Features []FeatureRef `json:"features,omitempty" doc:"Features under the pointer, topmost first"`
}

type InteractOutput struct {
	Body struct {
		Effects []mapview.Effect `json:"effects" doc:"Effects to apply on the page"`
	}
}

type ZonesBody struct {
	Zones    map[string]zonecolor.Color `json:"zones" doc:"Color of every zone in the dataset"`
	Fallback string                     `json:"fallback" doc:"Color for zones not in the dataset" example:"#888"`
}

// StatusBody is the map status with the actions its state allows.
type StatusBody struct {
	service.MapStatus
}

func (b StatusBody) Actions() []humastar.Action {
	acts := []humastar.Action{
		{Rel: "reload", Href: "/api/v1/map/reload", Method: "POST", Title: "Reload the dataset"},
	}
	if b.State == mapview.Bound.String() {
		acts = append(acts, humastar.Action{Rel: "map", Href: "/api/v1/map", Method: "GET", Title: "Map document"})
	}
	return acts
}

type StatusOutput struct {
	Body StatusBody
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterRoutes registers every API route on api.
func RegisterRoutes(api huma.API, svc *Services) {
	huma.AutoRegister(api, NewAPIHandler(svc))
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterMap registers the map document and interaction routes.
func (h *APIHandler) RegisterMap(api huma.API) {
	huma.Get(api, "/api/v1/map", h.GetMap, huma.OperationTags("map"))
	huma.Post(api, "/api/v1/map/interact", h.Interact, huma.OperationTags("map"))
	huma.Post(api, "/api/v1/map/reload", h.Reload, huma.OperationTags("map"))
}

// RegisterZones registers zone color routes.
func (h *APIHandler) RegisterZones(api huma.API) {
	huma.Get(api, "/api/v1/zones", h.GetZones, huma.OperationTags("zones"))
	huma.Get(api, "/api/v1/palette", h.GetPalette, huma.OperationTags("zones"))
}

// RegisterDatasets registers dataset listing routes.
func (h *APIHandler) RegisterDatasets(api huma.API) {
	huma.Get(api, "/api/v1/datasets", h.GetDatasets, huma.OperationTags("datasets"))
}

// mapError converts a map session error into a problem response.
func mapError(err error) error {
	switch {
	case errors.Is(err, service.ErrMapFailed):
		return huma.Error503ServiceUnavailable(mapview.FailureMessage)
	case errors.Is(err, service.ErrMapNotReady):
		return huma.Error503ServiceUnavailable("Map is not loaded yet.")
	case errors.Is(err, mapview.ErrNoBinding):
		return huma.Error404NotFound(err.Error())
	default:
		return huma.Error500InternalServerError("map error", err)
	}
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: "1.0.0"}}, nil
}

func (h *APIHandler) GetMap(ctx context.Context, input *struct{}) (*MapOutput, error) {
	prog, err := h.svc.Map.Program()
	if err != nil {
		return nil, mapError(err)
	}
	return &MapOutput{Body: prog}, nil
}

func (h *APIHandler) Interact(ctx context.Context, input *struct{ Body InteractBody }) (*InteractOutput, error) {
	in := &mapview.Interaction{LngLat: input.Body.LngLat}
	for _, f := range input.Body.Features {
		feat := geojson.NewFeature(nil)
		feat.Properties = f.Properties
		in.Features = append(in.Features, feat)
	}

	effects, err := h.svc.Map.Dispatch(mapview.EventType(input.Body.Event), input.Body.Layer, in)
	if err != nil {
		return nil, mapError(err)
	}
	out := &InteractOutput{}
	out.Body.Effects = effects
	if out.Body.Effects == nil {
		out.Body.Effects = []mapview.Effect{}
	}
	return out, nil
}

func (h *APIHandler) Reload(ctx context.Context, input *struct{}) (*StatusOutput, error) {
	// a failed load is reported through the returned status
	_ = h.svc.Map.Reload(ctx)
	return &StatusOutput{Body: StatusBody{h.svc.Map.Status()}}, nil
}

func (h *APIHandler) GetZones(ctx context.Context, input *struct{}) (*struct{ Body ZonesBody }, error) {
	a, err := h.svc.Map.Zones()
	if err != nil {
		return nil, mapError(err)
	}
	return &struct{ Body ZonesBody }{Body: ZonesBody{Zones: a, Fallback: zonecolor.Fallback}}, nil
}

func (h *APIHandler) GetPalette(ctx context.Context, input *struct{}) (*struct{ Body []zonecolor.Color }, error) {
	return &struct{ Body []zonecolor.Color }{Body: zonecolor.Palette}, nil
}

func (h *APIHandler) GetDatasets(ctx context.Context, input *struct{}) (*struct{ Body []service.DatasetFile }, error) {
	files, err := h.svc.Datasets.List()
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list datasets", err)
	}
	return &struct{ Body []service.DatasetFile }{Body: files}, nil
}
