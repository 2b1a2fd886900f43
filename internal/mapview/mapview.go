// Package mapview builds the parking zone map: view, zone-colored segment
// layer and layer-scoped interactions, on top of any Surface.
//
// A Handle moves through Unloaded → Loading → Bound | Failed exactly once.
// Failed is terminal; a new session needs a new Handle.
package mapview

import (
	"log/slog"
	"net/url"
	"sync"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-parking/internal/segment"
	"github.com/joeblew999/plat-parking/internal/zonecolor"
)

// Defaults for the Chicago permit zone map.
const (
	DefaultStyleURL    = "https://demotiles.maplibre.org/style.json"
	DefaultZoom        = 11
	NavigationPosition = "top-right"
)

// DefaultCenter is downtown Chicago.
var DefaultCenter = orb.Point{-87.6298, 41.8781}

// Config describes the initial map view.
type Config struct {
	StyleURL string
	MapKey   string // appended to StyleURL as ?key= when set
	Center   orb.Point
	Zoom     float64
}

// DefaultConfig returns the default view configuration.
func DefaultConfig() Config {
	return Config{
		StyleURL: DefaultStyleURL,
		Center:   DefaultCenter,
		Zoom:     DefaultZoom,
	}
}

// Style returns the style URL with the access key applied. An unparseable
// URL is returned unchanged; the renderer reports it.
func (c Config) Style() string {
	if c.MapKey == "" {
		return c.StyleURL
	}
	u, err := url.Parse(c.StyleURL)
	if err != nil {
		return c.StyleURL
	}
	q := u.Query()
	q.Set("key", c.MapKey)
	u.RawQuery = q.Encode()
	return u.String()
}

// State is the lifecycle state of a Handle.
type State int

const (
	Unloaded State = iota
	Loading
	Bound
	Failed
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Bound:
		return "bound"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Handle is an initialized map.
type Handle struct {
	cfg     Config
	surface Surface
	logger  *slog.Logger

	mu         sync.Mutex
	state      State
	collection *segment.Collection
	assignment zonecolor.Assignment
	err        error
}

// Option configures a Handle.
type Option func(*Handle)

// WithLogger sets the handle's logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handle) { h.logger = l }
}

// InitializeMap sets up the view and navigation control on s and returns an
// Unloaded handle.
func InitializeMap(cfg Config, s Surface, opts ...Option) *Handle {
	h := &Handle{
		cfg:     cfg,
		surface: s,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}

	s.Init(View{
		Style:  cfg.Style(),
		Center: cfg.Center,
		Zoom:   cfg.Zoom,
	})
	s.AddControl(Control{Type: "navigation", Position: NavigationPosition})
	return h
}

// State returns the current lifecycle state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Err returns the load failure, if any.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Collection returns the bound collection, or nil before Bound.
func (h *Handle) Collection() *segment.Collection {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.collection
}

// Assignment returns the zone colors of the bound collection.
func (h *Handle) Assignment() zonecolor.Assignment {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.assignment
}
