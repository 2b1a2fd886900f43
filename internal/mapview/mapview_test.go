package mapview

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-parking/internal/segment"
	"github.com/joeblew999/plat-parking/internal/zonecolor"
)

// fakeSurface records calls without drawing anything.
type fakeSurface struct {
	view     View
	controls []Control
	sources  map[string]Source
	layers   []Layer
	handlers map[EventType]map[string]Handler
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		sources:  map[string]Source{},
		handlers: map[EventType]map[string]Handler{},
	}
}

func (f *fakeSurface) Init(v View)          { f.view = v }
func (f *fakeSurface) AddControl(c Control) { f.controls = append(f.controls, c) }
func (f *fakeSurface) AddSource(id string, src Source) error {
	f.sources[id] = src
	return nil
}
func (f *fakeSurface) AddLayer(l Layer) error {
	f.layers = append(f.layers, l)
	return nil
}
func (f *fakeSurface) On(event EventType, layerID string, h Handler) {
	if f.handlers[event] == nil {
		f.handlers[event] = map[string]Handler{}
	}
	f.handlers[event][layerID] = h
}

func (f *fakeSurface) fire(event EventType, layerID string, in *Interaction) []Effect {
	h, ok := f.handlers[event][layerID]
	if !ok {
		return nil
	}
	h(in)
	return in.Effects()
}

type countingNotifier struct {
	msgs []string
}

func (n *countingNotifier) Notify(msg string) { n.msgs = append(n.msgs, msg) }

func bytesFetcher(doc string) Fetcher {
	return FetcherFunc(func(context.Context) ([]byte, error) { return []byte(doc), nil })
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const singleFeature = `{"type": "FeatureCollection", "features": [
  {"type": "Feature",
   "geometry": {"type": "LineString", "coordinates": [[-87.6277, 41.8826], [-87.6278, 41.8840]]},
   "properties": {"zone": "Metered-1", "address_low": 100, "address_high": 199,
                  "direction": "N", "name": "State", "type": "St", "odd_even": "Odd"}}]}`

func featureCollection(zones ...string) string {
	fc := geojson.NewFeatureCollection()
	for i, z := range zones {
		s := segment.Segment{Zone: z, AddressLow: "1", AddressHigh: "99", Direction: "W", Name: "Street", Type: "Ave", OddEven: "E"}
		fc.Append(s.Feature(orb.LineString{{-87.6, 41.8 + float64(i)/100}, {-87.61, 41.8}}))
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		panic(err)
	}
	return string(data)
}

func TestInitializeMap(t *testing.T) {
	s := newFakeSurface()
	cfg := DefaultConfig()
	cfg.MapKey = "abc"

	h := InitializeMap(cfg, s)

	assert.Equal(t, Unloaded, h.State())
	assert.Equal(t, "https://demotiles.maplibre.org/style.json?key=abc", s.view.Style)
	assert.Equal(t, orb.Point{-87.6298, 41.8781}, s.view.Center)
	assert.Equal(t, float64(11), s.view.Zoom)
	assert.Equal(t, []Control{{Type: "navigation", Position: "top-right"}}, s.controls)
	assert.Empty(t, s.sources)
	assert.Empty(t, s.layers)
}

func TestConfigStyle(t *testing.T) {
	c := Config{StyleURL: "https://tiles.example.com/style.json?lang=en"}
	assert.Equal(t, c.StyleURL, c.Style())

	c.MapKey = "k"
	assert.Equal(t, "https://tiles.example.com/style.json?key=k&lang=en", c.Style())
}

func TestLoad_BindsLayerAndInteractions(t *testing.T) {
	s := newFakeSurface()
	n := &countingNotifier{}
	h := InitializeMap(DefaultConfig(), s, WithLogger(quietLogger()))

	require.NoError(t, h.Load(context.Background(), bytesFetcher(featureCollection("A", "B", "A")), n))

	assert.Equal(t, Bound, h.State())
	assert.Empty(t, n.msgs)
	require.Contains(t, s.sources, SourceID)
	assert.Equal(t, "geojson", s.sources[SourceID].Type)
	assert.Len(t, s.sources[SourceID].Data.Features, 3)

	require.Len(t, s.layers, 1)
	l := s.layers[0]
	assert.Equal(t, LayerID, l.ID)
	assert.Equal(t, "line", l.Type)
	assert.Equal(t, SourceID, l.Source)
	assert.Equal(t, LineWidth, l.Paint["line-width"])
	assert.Equal(t, LineOpacity, l.Paint["line-opacity"])

	rule, ok := l.Paint["line-color"].([]any)
	require.True(t, ok)
	assert.Equal(t, []any{
		"match", []any{"get", "zone"},
		"A", zonecolor.For("A").Hex,
		"B", zonecolor.For("B").Hex,
		zonecolor.Fallback,
	}, rule)

	for _, ev := range []EventType{Click, MouseEnter, MouseLeave} {
		assert.Contains(t, s.handlers[ev], LayerID, ev)
		assert.Len(t, s.handlers[ev], 1, ev)
	}
	assert.Len(t, h.Assignment(), 2)
}

func TestLoad_ClickOpensPopup(t *testing.T) {
	s := newFakeSurface()
	h := InitializeMap(DefaultConfig(), s, WithLogger(quietLogger()))
	require.NoError(t, h.Load(context.Background(), bytesFetcher(singleFeature), nil))

	at := orb.Point{-87.6277, 41.883}
	effects := s.fire(Click, LayerID, &Interaction{
		LngLat:   at,
		Features: h.Collection().Features.Features,
	})

	require.Len(t, effects, 1)
	assert.Equal(t, EffectPopup, effects[0].Kind)
	assert.Equal(t, at, *effects[0].LngLat)
	for _, want := range []string{"Metered-1", "100 - 199", "N State St", "Odd"} {
		assert.Contains(t, effects[0].HTML, want)
	}
}

func TestLoad_HoverCursor(t *testing.T) {
	s := newFakeSurface()
	h := InitializeMap(DefaultConfig(), s, WithLogger(quietLogger()))
	require.NoError(t, h.Load(context.Background(), bytesFetcher(singleFeature), nil))

	enter := s.fire(MouseEnter, LayerID, &Interaction{})
	require.Len(t, enter, 1)
	assert.Equal(t, "pointer", *enter[0].Cursor)

	leave := s.fire(MouseLeave, LayerID, &Interaction{})
	require.Len(t, leave, 1)
	assert.Equal(t, "", *leave[0].Cursor)
}

func TestLoad_ClickWithoutValidFeature(t *testing.T) {
	s := newFakeSurface()
	h := InitializeMap(DefaultConfig(), s, WithLogger(quietLogger()))
	require.NoError(t, h.Load(context.Background(), bytesFetcher(singleFeature), nil))

	assert.Empty(t, s.fire(Click, LayerID, &Interaction{}))
	assert.Empty(t, s.fire(Click, LayerID, &Interaction{
		Features: []*geojson.Feature{geojson.NewFeature(orb.Point{})},
	}))
}

func TestLoad_Failures(t *testing.T) {
	tests := []struct {
		name    string
		fetcher Fetcher
		want    error
	}{
		{
			name: "fetch rejected",
			fetcher: FetcherFunc(func(context.Context) ([]byte, error) {
				return nil, errors.New("404 not found")
			}),
			want: ErrFetch,
		},
		{name: "not parseable", fetcher: bytesFetcher("<html>"), want: segment.ErrParse},
		{
			name:    "missing property",
			fetcher: bytesFetcher(`{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[0,0]},"properties":{"zone":"A"}}]}`),
			want:    segment.ErrMissingProperty,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newFakeSurface()
			n := &countingNotifier{}
			h := InitializeMap(DefaultConfig(), s, WithLogger(quietLogger()))

			err := h.Load(context.Background(), tt.fetcher, n)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, Failed, h.State())
			assert.Equal(t, []string{FailureMessage}, n.msgs)
			assert.Empty(t, s.sources)
			assert.Empty(t, s.layers)
			assert.Empty(t, s.handlers)

			// terminal: no retry, no second notification
			err = h.Load(context.Background(), bytesFetcher(singleFeature), n)
			assert.ErrorIs(t, err, ErrTerminal)
			assert.Len(t, n.msgs, 1)
			assert.Empty(t, s.sources)
		})
	}
}

func TestLoad_OnlyOnce(t *testing.T) {
	s := newFakeSurface()
	h := InitializeMap(DefaultConfig(), s, WithLogger(quietLogger()))
	require.NoError(t, h.Load(context.Background(), bytesFetcher(singleFeature), nil))

	err := h.Load(context.Background(), bytesFetcher(singleFeature), nil)
	assert.ErrorIs(t, err, ErrAlreadyLoaded)
	assert.Len(t, s.layers, 1)
}

func TestLoad_NumericZoneMatchesRule(t *testing.T) {
	const doc = `{"type": "FeatureCollection", "features": [
  {"type": "Feature",
   "geometry": {"type": "LineString", "coordinates": [[-87.6277, 41.8826], [-87.6278, 41.8840]]},
   "properties": {"zone": 143, "address_low": 100, "address_high": 199,
                  "direction": "N", "name": "State", "type": "St", "odd_even": "O"}}]}`

	s := newFakeSurface()
	h := InitializeMap(DefaultConfig(), s)
	require.NoError(t, h.Load(context.Background(), bytesFetcher(doc), &countingNotifier{}))

	rule, ok := s.layers[0].Paint["line-color"].([]any)
	require.True(t, ok)
	label := rule[2]
	value := s.sources[SourceID].Data.Features[0].Properties[segment.PropZone]
	assert.Equal(t, "143", label)
	assert.IsType(t, label, value)
	assert.Equal(t, label, value)
}

func TestZoneColorExpression_Empty(t *testing.T) {
	assert.Equal(t, zonecolor.Fallback, ZoneColorExpression(zonecolor.Assign(nil)))
}

func TestPopupHTML_Escapes(t *testing.T) {
	html, err := PopupHTML(segment.Segment{Zone: "<b>1</b>", AddressLow: "1", AddressHigh: "2"})
	require.NoError(t, err)
	assert.NotContains(t, html, "<b>1</b>")
	assert.Contains(t, html, "&lt;b&gt;1&lt;/b&gt;")
}
