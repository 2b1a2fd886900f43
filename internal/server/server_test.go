package server

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-parking/internal/mapview"
	"github.com/joeblew999/plat-parking/internal/observability"
	"github.com/joeblew999/plat-parking/internal/service"
)

const dataset = `{"type": "FeatureCollection", "features": [{"type": "Feature",
	"geometry": {"type": "LineString", "coordinates": [[-87.6278, 41.8826], [-87.6279, 41.884]]},
	"properties": {"zone": "143", "address_low": "100", "address_high": "199",
		"direction": "N", "name": "STATE", "type": "ST", "odd_even": "O"}}]}`

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, service.DefaultDataset), []byte(dataset), 0644))

	srv := New(Config{
		Host:    "localhost",
		Port:    "0",
		DataDir: dir,
		Map:     mapview.DefaultConfig(),
	}, observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, srv.Reload(context.Background()))

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return srv, ts
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestServer_Viewer(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := get(t, ts.URL+"/viewer")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, body, "maplibre-gl.js")
	assert.Contains(t, body, "1 segments in 1 zones")
	assert.Contains(t, body, "mediumvioletred")
	assert.Contains(t, body, "/api/v1/events")
}

func TestServer_RootRedirects(t *testing.T) {
	_, ts := newTestServer(t)

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Get(ts.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/viewer", resp.Header.Get("Location"))

	resp, _ = get(t, ts.URL+"/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_Data(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := get(t, ts.URL+"/data/"+service.DefaultDataset)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/geo+json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.JSONEq(t, dataset, body)

	resp, _ = get(t, ts.URL+"/data/missing.geojson")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = get(t, ts.URL+"/data/duckdb/parking.duckdb")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_APIAndMetrics(t *testing.T) {
	srv, ts := newTestServer(t)

	resp, body := get(t, ts.URL+"/api/v1/map")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, mapview.LayerID)
	assert.Contains(t, resp.Header.Values("Link"), `</api/v1/map/interact>; rel="interact"`)

	resp, _ = get(t, ts.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	oapi := srv.OpenAPI()
	for _, p := range []string{"/health", "/api/v1/info", "/api/v1/map", "/api/v1/map/interact",
		"/api/v1/map/reload", "/api/v1/zones", "/api/v1/palette", "/api/v1/datasets",
		"/api/v1/zones/stats", "/api/v1/events"} {
		assert.Contains(t, oapi.Paths, p)
	}
}

func TestServer_Events(t *testing.T) {
	srv, ts := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/v1/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	lines := bufio.NewScanner(resp.Body)
	waitFor := func(substr string) {
		t.Helper()
		for lines.Scan() {
			if strings.Contains(lines.Text(), substr) {
				return
			}
		}
		t.Fatalf("stream ended before %q", substr)
	}

	waitFor(`"datasetVersion":1`)
	waitFor("1 segments in 1 zones")

	require.NoError(t, srv.Reload(context.Background()))
	waitFor(`"datasetVersion":2`)
	waitFor("map-changed")
}

func TestServer_WatchReloadsWebDir(t *testing.T) {
	dataDir, webDir := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, service.DefaultDataset), []byte(dataset), 0644))
	viewer := filepath.Join(webDir, "viewer.html")
	require.NoError(t, os.WriteFile(viewer, []byte(`v1 {{.Title}}`), 0644))

	srv := New(Config{
		Host:    "localhost",
		Port:    "0",
		DataDir: dataDir,
		WebDir:  webDir,
		Map:     mapview.DefaultConfig(),
	}, observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	_, body := get(t, ts.URL+"/viewer")
	assert.Equal(t, "v1 Chicago Residential Parking Zones", body)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = srv.Watch(ctx) }()

	require.Eventually(t, func() bool {
		if err := os.WriteFile(viewer, []byte(`v2 {{.Title}}`), 0644); err != nil {
			return false
		}
		_, body := get(t, ts.URL+"/viewer")
		return strings.HasPrefix(body, "v2 ")
	}, 5*time.Second, 50*time.Millisecond)
}
