package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/paulmach/orb"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-parking/internal/mapview"
	"github.com/joeblew999/plat-parking/internal/observability"
	"github.com/joeblew999/plat-parking/internal/server"
	"github.com/joeblew999/plat-parking/internal/service"
)

// Options defines all CLI flags and env vars for the parking map server.
// Flags: --host, --port, --data-dir, --dataset, --style-url, --map-key, ...
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_DATASET, ...
type Options struct {
	Host      string `doc:"Host to bind to" default:"0.0.0.0"`
	Port      int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir   string `doc:"Directory for data files" default:".data"`
	Dataset   string `doc:"Segment GeoJSON file in the data directory" default:"parking_segments.geojson"`
	WebDir    string `doc:"Directory of templates overriding the embedded ones" default:""`
	StyleURL  string `doc:"Base map style URL" default:"https://demotiles.maplibre.org/style.json"`
	MapKey    string `doc:"Style service access key, appended as ?key=" default:""`
	Center    string `doc:"Initial map center as lon,lat" default:"-87.6298,41.8781"`
	Zoom      string `doc:"Initial zoom level, fractional allowed" default:"11"`
	Watch     bool   `doc:"Reload the map when the dataset file changes" default:"true"`
	LogLevel  string `doc:"Log level: debug, info, warn, error" default:"info"`
	LogFormat string `doc:"Log format: json or text" default:"text"`
}

func parseCenter(s string) (orb.Point, error) {
	lon, lat, ok := strings.Cut(s, ",")
	if !ok {
		return orb.Point{}, fmt.Errorf("center %q: want lon,lat", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("center longitude: %w", err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("center latitude: %w", err)
	}
	return orb.Point{x, y}, nil
}

func parseZoom(s string) (float64, error) {
	z, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("zoom: %w", err)
	}
	if z < 0 || z > 24 {
		return 0, fmt.Errorf("zoom %g: want 0-24", z)
	}
	return z, nil
}

func mapConfig(opts *Options) (mapview.Config, error) {
	center, err := parseCenter(opts.Center)
	if err != nil {
		return mapview.Config{}, err
	}
	zoom, err := parseZoom(opts.Zoom)
	if err != nil {
		return mapview.Config{}, err
	}
	return mapview.Config{
		StyleURL: opts.StyleURL,
		MapKey:   opts.MapKey,
		Center:   center,
		Zoom:     zoom,
	}, nil
}

func newServer(opts *Options, metrics *observability.Metrics, logger *slog.Logger) (*server.Server, error) {
	cfg, err := mapConfig(opts)
	if err != nil {
		return nil, err
	}
	return server.New(server.Config{
		Host:    opts.Host,
		Port:    fmt.Sprintf("%d", opts.Port),
		DataDir: opts.DataDir,
		Dataset: opts.Dataset,
		WebDir:  opts.WebDir,
		Map:     cfg,
	}, metrics, logger), nil
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		logger := observability.NewLogger(opts.LogLevel, opts.LogFormat)
		slog.SetDefault(logger)

		var (
			httpSrv *http.Server
			srv     *server.Server
			cancel  context.CancelFunc
		)

		hooks.OnStart(func() {
			var err error
			srv, err = newServer(opts, observability.NewMetrics(), logger)
			if err != nil {
				fatal(logger, "invalid configuration", err)
			}

			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())

			if err := srv.Reload(ctx); err != nil {
				// the viewer reports the failure; a fixed dataset is picked up by reload
				logger.Warn("initial map load failed", "error", err)
			}
			if opts.Watch {
				go func() {
					if err := srv.Watch(ctx); err != nil {
						logger.Warn("dataset watcher stopped", "error", err)
					}
				}()
			}

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-parking map server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s/%s\n", opts.DataDir, opts.Dataset)
			fmt.Println()
			fmt.Printf("  Pages:   %s/viewer\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Printf("  Metrics: %s/metrics\n", baseURL)
			fmt.Println()

			httpSrv = &http.Server{
				Addr:              addr,
				Handler:           srv,
				ReadHeaderTimeout: 10 * time.Second,
			}
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fatal(logger, "server error", err)
			}
		})

		hooks.OnStop(func() {
			if cancel != nil {
				cancel()
			}
			if httpSrv != nil {
				shutdown(httpSrv, logger)
			}
			if srv != nil {
				srv.Close()
			}
		})
	})

	cli.Root().Use = "parkmap"
	cli.Root().Short = "Residential parking permit zone map"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			logger := observability.NewLogger(opts.LogLevel, opts.LogFormat)
			srv, err := newServer(opts, observability.NewMetricsForTesting(), logger)
			if err != nil {
				fatal(logger, "invalid configuration", err)
			}
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	cli.Root().AddCommand(zonesCommand())
	cli.Root().AddCommand(geocodeCommand())

	cli.Run()
}

func shutdown(s *http.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		logger.Warn("shutdown", "error", err)
	}
}

// datasetPath is the segment file the geocode command writes by default.
func datasetPath(opts *Options) string {
	return service.NewDatasetService(opts.DataDir, opts.Dataset).Path()
}
