package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-parking/internal/humastar"
	"github.com/joeblew999/plat-parking/internal/service"
	"github.com/joeblew999/plat-parking/internal/templates"
)

// EventHandler streams map session changes to the viewer via Datastar SSE.
type EventHandler struct {
	mapSvc   *service.MapService
	bus      *service.EventBus
	renderer *templates.Renderer
}

// NewEventHandler creates a new event handler. renderer may be nil, in
// which case only signals are sent.
func NewEventHandler(mapSvc *service.MapService, bus *service.EventBus, renderer *templates.Renderer) *EventHandler {
	return &EventHandler{mapSvc: mapSvc, bus: bus, renderer: renderer}
}

func (h *EventHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/events", h.Events, huma.OperationTags("map"))
}

func (h *EventHandler) Events(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return humastar.Stream(func(sse humastar.SSE) {
		ch := h.bus.Subscribe()
		defer h.bus.Unsubscribe(ch)

		h.sendStatus(sse)
		for {
			select {
			case <-sse.Context().Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				h.sendStatus(sse)
				sse.DispatchCustomEvent("map-changed", map[string]any{
					"resource": ev.Resource,
					"action":   ev.Action,
					"version":  ev.Version,
				})
			}
		}
	}), nil
}

func (h *EventHandler) sendStatus(sse humastar.SSE) {
	st := h.mapSvc.Status()
	sse.Signals(map[string]any{
		"datasetVersion": st.Version,
		"mapState":       st.State,
		"error":          st.Error,
	})
	if h.renderer == nil {
		return
	}
	if html, err := h.renderer.Render("map-status", st); err == nil {
		sse.Patch(html, "#map-status")
	}
}
