package mapview

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/joeblew999/plat-parking/internal/segment"
	"github.com/joeblew999/plat-parking/internal/zonecolor"
)

// Segment layer identifiers and paint.
const (
	SourceID    = "parking-segments"
	LayerID     = "parking-segments-line"
	LineWidth   = 3
	LineOpacity = 0.8
	CursorHover = "pointer"
)

var popupTmpl = template.Must(template.New("popup").Parse(
	`<div class="segment-popup">` +
		`<strong>Zone: {{.Zone}}</strong><br>` +
		`Address: {{.AddressRange}}<br>` +
		`Street: {{.Street}}<br>` +
		`Side: {{.OddEven}}` +
		`</div>`))

// PopupHTML renders the popup content for a segment.
func PopupHTML(s segment.Segment) (string, error) {
	var buf bytes.Buffer
	if err := popupTmpl.Execute(&buf, s); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ZoneColorExpression builds the line-color rule: a match on the zone
// property with one branch per assigned zone and Fallback otherwise.
// Zones are emitted sorted so the rule is stable across loads.
func ZoneColorExpression(a zonecolor.Assignment) any {
	zones := a.Zones()
	if len(zones) == 0 {
		// match needs at least one branch
		return zonecolor.Fallback
	}
	expr := make([]any, 0, 2+2*len(zones)+1)
	expr = append(expr, "match", []any{"get", segment.PropZone})
	for _, z := range zones {
		expr = append(expr, z, a[z].Hex)
	}
	return append(expr, zonecolor.Fallback)
}

// SegmentLayer returns the zone-colored line layer for rule.
func SegmentLayer(rule any) Layer {
	return Layer{
		ID:     LayerID,
		Type:   "line",
		Source: SourceID,
		Layout: map[string]any{
			"line-cap":  "round",
			"line-join": "round",
		},
		Paint: map[string]any{
			"line-color":   rule,
			"line-width":   LineWidth,
			"line-opacity": LineOpacity,
		},
	}
}

// Bind registers c as the segment source and layer and attaches the layer
// interactions. It is called by Load; calling it directly binds an
// Unloaded handle without fetching.
func (h *Handle) Bind(c *segment.Collection) error {
	h.mu.Lock()
	switch h.state {
	case Failed:
		h.mu.Unlock()
		return ErrTerminal
	case Loading, Bound:
		h.mu.Unlock()
		return ErrAlreadyLoaded
	}
	h.state = Loading
	h.mu.Unlock()

	err := h.bind(c)

	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		h.state = Failed
		h.err = err
		return err
	}
	h.state = Bound
	return nil
}

func (h *Handle) bind(c *segment.Collection) error {
	if c == nil {
		return fmt.Errorf("bind: nil collection")
	}
	a := zonecolor.Assign(c.Zones())

	if err := h.surface.AddSource(SourceID, Source{Type: "geojson", Data: c.Features}); err != nil {
		return fmt.Errorf("add source: %w", err)
	}
	if err := h.surface.AddLayer(SegmentLayer(ZoneColorExpression(a))); err != nil {
		return fmt.Errorf("add layer: %w", err)
	}

	h.surface.On(Click, LayerID, h.showSegment)
	h.surface.On(MouseEnter, LayerID, func(in *Interaction) { in.SetCursor(CursorHover) })
	h.surface.On(MouseLeave, LayerID, func(in *Interaction) { in.SetCursor("") })

	h.mu.Lock()
	h.collection = c
	h.assignment = a
	h.mu.Unlock()
	return nil
}

// showSegment opens a popup for the topmost feature under the pointer.
func (h *Handle) showSegment(in *Interaction) {
	if len(in.Features) == 0 {
		return
	}
	s, err := segment.FromFeature(in.Features[0])
	if err != nil {
		h.logger.Warn("popup skipped", "error", err)
		return
	}
	html, err := PopupHTML(s)
	if err != nil {
		h.logger.Error("popup render failed", "error", err)
		return
	}
	in.OpenPopup(html)
}
