package geocode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-parking/internal/zones"
)

// Builder defaults.
const (
	DefaultDelay     = time.Second
	DefaultMaxErrors = 3
)

// ErrTooManyErrors aborts a build once more than MaxErrors lookups failed.
var ErrTooManyErrors = errors.New("too many geocoding errors")

// Report summarizes a build.
type Report struct {
	Segments int // active, deduplicated segments considered
	Features int // features written
	Skipped  int // segments with an unresolved end
	Errors   int // failed lookups
}

// Builder geocodes permit zone rows into a segment feature collection.
type Builder struct {
	Geocoder  Geocoder
	Clock     clockwork.Clock
	Delay     time.Duration // wait after every uncached lookup
	MaxErrors int
	Logger    *slog.Logger
}

// NewBuilder returns a builder with the default politeness delay and error budget.
func NewBuilder(g Geocoder, logger *slog.Logger) *Builder {
	return &Builder{
		Geocoder:  g,
		Clock:     clockwork.NewRealClock(),
		Delay:     DefaultDelay,
		MaxErrors: DefaultMaxErrors,
		Logger:    logger,
	}
}

// Build geocodes both ends of every active segment in rows and returns one
// LineString feature per fully resolved segment.
func (b *Builder) Build(ctx context.Context, rows []zones.Row) (*geojson.FeatureCollection, Report, error) {
	segs := zones.ActiveSegments(rows)
	rep := Report{Segments: len(segs)}
	fc := geojson.NewFeatureCollection()

	for i, row := range segs {
		if rep.Errors > b.MaxErrors {
			b.Logger.Error("too many geocoding errors, terminating", "errors", rep.Errors)
			return nil, rep, fmt.Errorf("%w: %d", ErrTooManyErrors, rep.Errors)
		}
		b.Logger.Info("geocoding segment",
			"n", i+1, "of", len(segs), "segment", row.ID())

		low, lowOK, err := b.lookup(ctx, Query(row, false), &rep)
		if err != nil {
			return nil, rep, err
		}
		high, highOK, err := b.lookup(ctx, Query(row, true), &rep)
		if err != nil {
			return nil, rep, err
		}
		if !lowOK || !highOK {
			b.Logger.Warn("one or both geocoding results missing, skipping segment", "segment", row.ID())
			rep.Skipped++
			continue
		}

		line := orb.LineString{{low.Lon, low.Lat}, {high.Lon, high.Lat}}
		fc.Append(row.Segment().Feature(line))
		rep.Features++
	}
	return fc, rep, nil
}

// lookup geocodes one query. Provider errors are counted, not returned;
// only context cancellation stops the build.
func (b *Builder) lookup(ctx context.Context, query string, rep *Report) (Result, bool, error) {
	res, found, err := b.Geocoder.Geocode(ctx, query)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{}, false, ctxErr
	}
	if err != nil {
		rep.Errors++
		b.Logger.Error("geocode failed", "query", query, "error", err)
	}
	if !res.Cached {
		if err := b.wait(ctx); err != nil {
			return Result{}, false, err
		}
	}
	return res, found && err == nil, nil
}

func (b *Builder) wait(ctx context.Context) error {
	if b.Delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.Clock.After(b.Delay):
		return nil
	}
}

// WriteFile writes fc as indented GeoJSON. The file is replaced atomically
// so readers never observe a partial document.
func WriteFile(path string, fc *geojson.FeatureCollection) error {
	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}
	data, err = indent(data)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".segments-*.geojson")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func indent(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
