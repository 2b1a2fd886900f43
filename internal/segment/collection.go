package segment

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Collection is a validated feature collection of segments.
// Segments[i] describes Features.Features[i].
type Collection struct {
	Features *geojson.FeatureCollection
	Segments []Segment
}

// Decode parses and validates a GeoJSON feature collection.
func Decode(data []byte) (*Collection, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return NewCollection(fc)
}

// NewCollection validates every feature of fc. Any invalid feature fails
// the whole collection. Zone properties are rewritten as strings so the
// source data matches the string labels of the zone color rule.
func NewCollection(fc *geojson.FeatureCollection) (*Collection, error) {
	if fc == nil {
		return nil, fmt.Errorf("%w: nil collection", ErrParse)
	}
	segs := make([]Segment, len(fc.Features))
	for i, f := range fc.Features {
		s, err := FromFeature(f)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		f.Properties[PropZone] = s.Zone
		segs[i] = s
	}
	return &Collection{Features: fc, Segments: segs}, nil
}

// Len returns the number of segments.
func (c *Collection) Len() int {
	return len(c.Segments)
}

// Zones returns the distinct zones in order of first appearance.
func (c *Collection) Zones() []string {
	seen := make(map[string]struct{})
	var zones []string
	for _, s := range c.Segments {
		if _, ok := seen[s.Zone]; ok {
			continue
		}
		seen[s.Zone] = struct{}{}
		zones = append(zones, s.Zone)
	}
	return zones
}

// Bound returns the bounding box of all segment geometries.
func (c *Collection) Bound() orb.Bound {
	var b orb.Bound
	first := true
	for _, f := range c.Features.Features {
		if f.Geometry == nil {
			continue
		}
		if first {
			b = f.Geometry.Bound()
			first = false
			continue
		}
		b = b.Union(f.Geometry.Bound())
	}
	return b
}
