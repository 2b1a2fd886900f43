package geocode

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-parking/internal/segment"
	"github.com/joeblew999/plat-parking/internal/zones"
)

func testRows() []zones.Row {
	return []zones.Row{
		{Zone: "143", Status: "ACTIVE", OddEven: "O", AddressLow: "100", AddressHigh: "199", Direction: "N", Name: "STATE", Type: "ST"},
		{Zone: "143", Status: "ACTIVE", OddEven: "E", AddressLow: "100", AddressHigh: "198", Direction: "N", Name: "STATE", Type: "ST"},
		{Zone: "62", Status: "INACTIVE", OddEven: "O", AddressLow: "2000", AddressHigh: "2099", Direction: "W", Name: "ARMITAGE", Type: "AVE"},
		{Zone: "383", Status: "ACTIVE", OddEven: "E", AddressLow: "1200", AddressHigh: "1298", Direction: "W", Name: "ARMITAGE", Type: "AVE"},
		{Zone: "9", Status: "ACTIVE", OddEven: "O", AddressLow: "1", AddressHigh: "99", Direction: "E", Name: "NOWHERE", Type: "PL"},
	}
}

func testGeocoder() *mapGeocoder {
	return &mapGeocoder{results: map[string]Result{
		"100 N STATE ST, Chicago, IL":      {Lat: 41.8826, Lon: -87.6278},
		"199 N STATE ST, Chicago, IL":      {Lat: 41.8840, Lon: -87.6279},
		"1200 W ARMITAGE AVE, Chicago, IL": {Lat: 41.9180, Lon: -87.6590},
		"1298 W ARMITAGE AVE, Chicago, IL": {Lat: 41.9181, Lon: -87.6610},
		"1 E NOWHERE PL, Chicago, IL":      {Lat: 41.9, Lon: -87.6},
	}}
}

func testBuilder(g Geocoder) *Builder {
	b := NewBuilder(g, quietLogger())
	b.Delay = 0
	return b
}

func TestBuild(t *testing.T) {
	g := testGeocoder()
	fc, rep, err := testBuilder(g).Build(context.Background(), testRows())
	require.NoError(t, err)

	assert.Equal(t, Report{Segments: 3, Features: 2, Skipped: 1}, rep)
	require.Len(t, fc.Features, 2)

	f := fc.Features[0]
	assert.Equal(t, orb.LineString{{-87.6278, 41.8826}, {-87.6279, 41.8840}}, f.Geometry)
	s, err := segment.FromFeature(f)
	require.NoError(t, err)
	assert.Equal(t, segment.Segment{
		Zone: "143", AddressLow: "100", AddressHigh: "199",
		Direction: "N", Name: "STATE", Type: "ST", OddEven: "O",
	}, s)
	assert.Equal(t, 6, g.calls)
}

func TestBuild_TooManyErrors(t *testing.T) {
	g := testGeocoder()
	g.fail = map[string]bool{
		"100 N STATE ST, Chicago, IL":      true,
		"199 N STATE ST, Chicago, IL":      true,
		"1200 W ARMITAGE AVE, Chicago, IL": true,
		"1298 W ARMITAGE AVE, Chicago, IL": true,
	}

	fc, rep, err := testBuilder(g).Build(context.Background(), testRows())
	assert.ErrorIs(t, err, ErrTooManyErrors)
	assert.Nil(t, fc)
	assert.Equal(t, 4, rep.Errors)
	assert.Equal(t, 4, g.calls, "aborts before the third segment")
}

func TestBuild_ErrorsWithinBudget(t *testing.T) {
	g := testGeocoder()
	g.fail = map[string]bool{"199 N STATE ST, Chicago, IL": true}

	fc, rep, err := testBuilder(g).Build(context.Background(), testRows())
	require.NoError(t, err)
	assert.Equal(t, Report{Segments: 3, Features: 1, Skipped: 2, Errors: 1}, rep)
	assert.Len(t, fc.Features, 1)
}

func TestBuild_WaitsAfterUncachedLookups(t *testing.T) {
	fake := clockwork.NewFakeClock()
	b := NewBuilder(testGeocoder(), quietLogger())
	b.Clock = fake

	rows := testRows()[:1]
	done := make(chan error, 1)
	go func() {
		_, _, err := b.Build(context.Background(), rows)
		done <- err
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := 0; i < 2; i++ {
		require.NoError(t, fake.BlockUntilContext(ctx, 1))
		fake.Advance(DefaultDelay)
	}

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("build did not finish")
	}
}

func TestBuild_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := testBuilder(testGeocoder()).Build(ctx, testRows())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteFile(t *testing.T) {
	fc, _, err := testBuilder(testGeocoder()).Build(context.Background(), testRows())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "data", "parking_segments.geojson")
	require.NoError(t, WriteFile(path, fc))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"type\": \"FeatureCollection\"")

	c, err := segment.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []string{"143", "383"}, c.Zones())
}
