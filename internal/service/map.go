package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/joeblew999/plat-parking/internal/mapview"
	"github.com/joeblew999/plat-parking/internal/observability"
	"github.com/joeblew999/plat-parking/internal/zonecolor"
)

// ErrMapFailed is returned for reads of a session whose load failed.
var ErrMapFailed = errors.New(mapview.FailureMessage)

// ErrMapNotReady is returned before the first load finished.
var ErrMapNotReady = errors.New("map is not loaded yet")

// MapService owns the current map session. Every Reload builds a fresh
// Document and Handle so a failed session never blocks the next one.
type MapService struct {
	cfg      mapview.Config
	fetcher  mapview.Fetcher
	bus      *EventBus
	metrics  *observability.Metrics
	logger   *slog.Logger
	reloadMu sync.Mutex

	mu      sync.RWMutex
	doc     *mapview.Document
	handle  *mapview.Handle
	version int
	failure string
}

// NewMapService creates a map service. Call Reload to load the first session.
func NewMapService(cfg mapview.Config, f mapview.Fetcher, bus *EventBus, metrics *observability.Metrics, logger *slog.Logger) *MapService {
	return &MapService{
		cfg:     cfg,
		fetcher: f,
		bus:     bus,
		metrics: metrics,
		logger:  logger,
	}
}

// Reload initializes a new session and loads the dataset into it. The new
// session replaces the current one whether or not the load succeeded.
func (s *MapService) Reload(ctx context.Context) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	s.mu.RLock()
	version := s.version + 1
	s.mu.RUnlock()

	var failure string
	doc := mapview.NewDocument()
	h := mapview.InitializeMap(s.cfg, doc, mapview.WithLogger(s.logger.With("version", version)))
	err := h.Load(ctx, s.fetcher, mapview.NotifierFunc(func(msg string) {
		failure = msg
	}))

	s.mu.Lock()
	s.doc = doc
	s.handle = h
	s.version = version
	s.failure = failure
	s.mu.Unlock()

	if err != nil {
		s.metrics.MapLoads.WithLabelValues("failed").Inc()
		s.metrics.DatasetFeatures.Set(0)
		s.bus.Publish(Event{Resource: "map", Action: "failed", Version: version, Message: failure})
		return err
	}

	s.metrics.MapLoads.WithLabelValues("bound").Inc()
	s.metrics.DatasetFeatures.Set(float64(h.Collection().Len()))
	s.bus.Publish(Event{Resource: "map", Action: "loaded", Version: version})
	return nil
}

func (s *MapService) current() (*mapview.Document, *mapview.Handle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.handle == nil {
		return nil, nil, ErrMapNotReady
	}
	if s.handle.State() == mapview.Failed {
		return nil, nil, ErrMapFailed
	}
	return s.doc, s.handle, nil
}

// Program returns the current map program.
func (s *MapService) Program() (mapview.Program, error) {
	doc, _, err := s.current()
	if err != nil {
		return mapview.Program{}, err
	}
	return doc.Program(), nil
}

// Dispatch runs a browser-forwarded layer event against the current session.
func (s *MapService) Dispatch(event mapview.EventType, layerID string, in *mapview.Interaction) ([]mapview.Effect, error) {
	doc, _, err := s.current()
	if err != nil {
		return nil, err
	}
	effects, err := doc.Dispatch(event, layerID, in)
	if err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}
	s.metrics.Interactions.WithLabelValues(string(event)).Inc()
	return effects, nil
}

// Zones returns the zone colors of the bound dataset.
func (s *MapService) Zones() (zonecolor.Assignment, error) {
	_, h, err := s.current()
	if err != nil {
		return nil, err
	}
	return h.Assignment(), nil
}

// Status reports the current session.
func (s *MapService) Status() MapStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := MapStatus{State: mapview.Unloaded.String(), Version: s.version, Error: s.failure}
	if s.handle == nil {
		return st
	}
	st.State = s.handle.State().String()
	if c := s.handle.Collection(); c != nil && c.Len() > 0 {
		st.Features = c.Len()
		b := c.Bound()
		st.Extent = []float64{b.Min.X(), b.Min.Y(), b.Max.X(), b.Max.Y()}
	}
	st.Zones = len(s.handle.Assignment())
	return st
}
