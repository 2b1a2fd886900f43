// Package geocode turns permit zone address ranges into map segments by
// forward geocoding both ends of each range.
package geocode

import (
	"context"
	"fmt"

	"github.com/joeblew999/plat-parking/internal/zones"
)

// Result is a geocoded location.
type Result struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	DisplayName string  `json:"display_name,omitempty"`

	// Cached is set when the result came from a cache rather than the provider.
	Cached bool `json:"-"`
}

// Geocoder resolves a free-form address. found is false when the provider
// has no match; err is reserved for failed requests.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (res Result, found bool, err error)
}

// City is appended to every street address query.
const City = "Chicago, IL"

// Query builds the geocoding query for one end of a row's address range.
func Query(r zones.Row, high bool) string {
	addr := r.AddressLow
	if high {
		addr = r.AddressHigh
	}
	return fmt.Sprintf("%s %s %s %s, %s", addr, r.Direction, r.Name, r.Type, City)
}
