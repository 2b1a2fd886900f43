package mapview

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// View is the initial camera and base style of a map.
type View struct {
	Style  string    `json:"style" doc:"Style document URL"`
	Center orb.Point `json:"center" doc:"Initial center as [lon, lat]"`
	Zoom   float64   `json:"zoom" doc:"Initial zoom level"`
}

// Control is an on-screen map control.
type Control struct {
	Type     string `json:"type" doc:"Control type" example:"navigation"`
	Position string `json:"position" doc:"Screen corner" example:"top-right"`
}

// Source is a named data source.
type Source struct {
	Type string                     `json:"type" doc:"Source type" example:"geojson"`
	Data *geojson.FeatureCollection `json:"data" doc:"Feature collection"`
}

// Layer is a styled rendering of a source.
type Layer struct {
	ID     string         `json:"id" doc:"Layer ID"`
	Type   string         `json:"type" doc:"Layer type" example:"line"`
	Source string         `json:"source" doc:"Source ID"`
	Layout map[string]any `json:"layout,omitempty" doc:"Layout properties"`
	Paint  map[string]any `json:"paint,omitempty" doc:"Paint properties"`
}

// EventType is a pointer event scoped to a layer.
type EventType string

const (
	Click      EventType = "click"
	MouseEnter EventType = "mouseenter"
	MouseLeave EventType = "mouseleave"
)

// Handler reacts to one layer event.
type Handler func(in *Interaction)

// Interaction is a single pointer event delivered to handlers. Features are
// the rendered features under the pointer, topmost first.
type Interaction struct {
	LngLat   orb.Point
	Features []*geojson.Feature

	effects []Effect
}

// Effect kinds.
const (
	EffectPopup  = "popup"
	EffectCursor = "cursor"
)

// Effect is a visible reaction to an interaction.
type Effect struct {
	Kind   string     `json:"kind" enum:"popup,cursor" doc:"Effect kind"`
	LngLat *orb.Point `json:"lngLat,omitempty" doc:"Popup anchor as [lon, lat]"`
	HTML   string     `json:"html,omitempty" doc:"Popup content"`
	Cursor *string    `json:"cursor,omitempty" doc:"Canvas cursor, empty for default"`
}

// OpenPopup opens a popup with html at the interaction location.
func (in *Interaction) OpenPopup(html string) {
	at := in.LngLat
	in.effects = append(in.effects, Effect{Kind: EffectPopup, LngLat: &at, HTML: html})
}

// SetCursor sets the canvas cursor. An empty cursor restores the default.
func (in *Interaction) SetCursor(cursor string) {
	in.effects = append(in.effects, Effect{Kind: EffectCursor, Cursor: &cursor})
}

// Effects returns the effects produced so far.
func (in *Interaction) Effects() []Effect {
	return in.effects
}

// Surface is the renderer capability set the map is built on.
type Surface interface {
	Init(v View)
	AddControl(c Control)
	AddSource(id string, src Source) error
	AddLayer(l Layer) error
	On(event EventType, layerID string, h Handler)
}
