package geocode

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-parking/internal/observability"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(baseURL string) *Client {
	return NewClient(baseURL, "parkmap-test/1.0", 5*time.Second, observability.NewMetricsForTesting(), quietLogger())
}

func TestClient_Geocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100 N STATE ST, Chicago, IL", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "1", r.URL.Query().Get("addressdetails"))
		assert.Equal(t, "parkmap-test/1.0", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[{"lat": "41.8826", "lon": "-87.6278", "display_name": "100, North State Street, Chicago"}]`)
	}))
	defer srv.Close()

	res, found, err := testClient(srv.URL).Geocode(context.Background(), "100 N STATE ST, Chicago, IL")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 41.8826, res.Lat)
	assert.Equal(t, -87.6278, res.Lon)
	assert.Equal(t, "100, North State Street, Chicago", res.DisplayName)
	assert.False(t, res.Cached)
}

func TestClient_Geocode_NoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	_, found, err := testClient(srv.URL).Geocode(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestClient_Geocode_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error": "slow down"}`},
		{"bad coordinates", http.StatusOK, `[{"lat": "north", "lon": "-87.6"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, found, err := testClient(srv.URL).Geocode(context.Background(), "q")
			require.Error(t, err)
			assert.False(t, found)
		})
	}
}

func TestQuery(t *testing.T) {
	row := testRows()[0]
	assert.Equal(t, "100 N STATE ST, Chicago, IL", Query(row, false))
	assert.Equal(t, "199 N STATE ST, Chicago, IL", Query(row, true))
}
