package geocode

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/joeblew999/plat-parking/internal/observability"
)

// DefaultNominatimURL is the public OpenStreetMap search endpoint.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org/search"

// Client implements Geocoder using the Nominatim search API.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Nominatim client. Nominatim's usage policy requires
// an identifying User-Agent.
func NewClient(baseURL, userAgent string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	return &Client{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		metrics:    metrics,
		logger:     logger,
	}
}

// Geocode returns the best match for query.
func (c *Client) Geocode(ctx context.Context, query string) (Result, bool, error) {
	params := url.Values{
		"q":              {query},
		"format":         {"json"},
		"addressdetails": {"1"},
		"limit":          {"1"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return Result{}, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return Result{}, false, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return Result{}, false, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return Result{}, false, fmt.Errorf("nominatim error: status %d: %s", resp.StatusCode, body)
	}

	first := gjson.GetBytes(body, "0")
	if !first.Exists() {
		c.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
		c.logger.Debug("no geocode match", "query", query)
		return Result{}, false, nil
	}

	// Nominatim encodes coordinates as strings.
	lat, err := strconv.ParseFloat(first.Get("lat").String(), 64)
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return Result{}, false, fmt.Errorf("parse lat: %w", err)
	}
	lon, err := strconv.ParseFloat(first.Get("lon").String(), 64)
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return Result{}, false, fmt.Errorf("parse lon: %w", err)
	}

	c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	return Result{
		Lat:         lat,
		Lon:         lon,
		DisplayName: first.Get("display_name").String(),
	}, true, nil
}
