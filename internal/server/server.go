// Package server wires the parking map services into an HTTP server.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joeblew999/plat-parking/internal/api"
	"github.com/joeblew999/plat-parking/internal/db"
	"github.com/joeblew999/plat-parking/internal/mapview"
	"github.com/joeblew999/plat-parking/internal/observability"
	"github.com/joeblew999/plat-parking/internal/service"
	"github.com/joeblew999/plat-parking/internal/templates"
	"github.com/joeblew999/plat-parking/internal/zonecolor"
)

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    string
	DataDir string
	Dataset string         // segment file name in DataDir
	WebDir  string         // optional directory of templates overriding the embedded ones
	Map     mapview.Config // initial view
}

// Server is the parking map HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	humaAPI  huma.API
	db       *sql.DB
	services *api.Services
	bus      *service.EventBus
	renderer *templates.Renderer
	webDir   string // set when templates come from WebDir
	logger   *slog.Logger
}

// New creates a new parking map server. The map session is empty until
// Reload is called.
func New(cfg Config, metrics *observability.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Create Huma API with humago (pure stdlib) adapter
	humaConfig := huma.DefaultConfig("plat-parking API", "1.0.0")
	humaConfig.Info.Description = "Residential parking permit zone map: zone-colored street segments with popups."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())

	humaAPI := humago.New(mux, humaConfig)

	bus := service.NewEventBus()
	datasets := service.NewDatasetService(cfg.DataDir, cfg.Dataset)
	services := &api.Services{
		Map:      service.NewMapService(cfg.Map, datasets, bus, metrics, logger),
		Datasets: datasets,
	}

	s := &Server{
		config:   cfg,
		mux:      mux,
		humaAPI:  humaAPI,
		services: services,
		bus:      bus,
		logger:   logger,
	}

	if cfg.WebDir != "" {
		if r, err := templates.NewFromDir(cfg.WebDir); err == nil {
			s.renderer = r
			s.webDir = cfg.WebDir
			logger.Info("loaded templates", "dir", cfg.WebDir)
		} else {
			logger.Warn("template dir unusable, using embedded templates", "dir", cfg.WebDir, "error", err)
		}
	}
	if s.renderer == nil {
		r, err := templates.New()
		if err != nil {
			// embedded templates are compiled in
			panic(err)
		}
		s.renderer = r
	}

	// DuckDB backs the zone statistics endpoint only
	conn, err := db.Get(db.Config{
		DataDir: cfg.DataDir,
		DBName:  "parking",
	})
	if err == nil {
		s.db = conn
	} else {
		logger.Warn("duckdb unavailable, zone stats disabled", "error", err)
	}

	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Reload loads the dataset into a new map session.
func (s *Server) Reload(ctx context.Context) error {
	return s.services.Map.Reload(ctx)
}

// Watch reloads the map whenever the dataset file changes, and the templates
// whenever a file in WebDir changes. It blocks until ctx is done.
func (s *Server) Watch(ctx context.Context) error {
	if s.webDir != "" {
		go func() {
			if err := s.renderer.Watch(ctx, s.webDir, s.logger); err != nil {
				s.logger.Warn("template watcher stopped", "error", err)
			}
		}()
	}
	return service.WatchDataset(ctx, s.services.Datasets.Path(), s.services.Map, s.logger)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Close closes server resources.
func (s *Server) Close() error {
	return db.Close()
}

func (s *Server) routes() {
	// Register Huma REST API routes (OpenAPI-documented JSON endpoints)
	api.RegisterRoutes(s.humaAPI, s.services)
	api.NewInfoHandler(s.services.Map, s.services.Datasets, s.db != nil).RegisterRoutes(s.humaAPI)
	api.NewDBHandler(s.db, s.services.Datasets).RegisterRoutes(s.humaAPI)
	api.NewEventHandler(s.services.Map, s.bus, s.renderer).RegisterRoutes(s.humaAPI)

	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.Handle("/data/", http.StripPrefix("/data/", s.handleData()))

	// Page routes
	s.mux.HandleFunc("/viewer", s.handleViewer)
	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, "/viewer", http.StatusFound)
}

type viewerData struct {
	Title   string
	Status  service.MapStatus
	Palette []zonecolor.Color
}

func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := s.renderer.Execute(w, "viewer.html", viewerData{
		Title:   "Chicago Residential Parking Zones",
		Status:  s.services.Map.Status(),
		Palette: zonecolor.Palette,
	})
	if err != nil {
		s.logger.Error("render viewer", "error", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}

// handleData serves data files with CORS headers so other map clients can
// load the dataset directly.
func (s *Server) handleData() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		path, err := s.services.Datasets.Open(r.URL.Path)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		if _, err := os.Stat(path); err != nil {
			http.NotFound(w, r)
			return
		}
		if filepath.Ext(path) == ".geojson" {
			w.Header().Set("Content-Type", "application/geo+json")
		}
		http.ServeFile(w, r, path)
	})
}
