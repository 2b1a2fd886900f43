// Package segment models parking zone street segments and the GeoJSON
// feature collections they are published as.
package segment

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Property keys carried by every segment feature.
const (
	PropZone        = "zone"
	PropAddressLow  = "address_low"
	PropAddressHigh = "address_high"
	PropDirection   = "direction"
	PropName        = "name"
	PropType        = "type"
	PropOddEven     = "odd_even"
)

var requiredProps = []string{
	PropZone, PropAddressLow, PropAddressHigh, PropDirection, PropName, PropType, PropOddEven,
}

var (
	// ErrMissingProperty is returned when a feature lacks one of the segment properties.
	ErrMissingProperty = errors.New("missing segment property")
	// ErrParse is returned when a document is not a GeoJSON feature collection.
	ErrParse = errors.New("invalid feature collection")
)

// Segment is one permit-zone street segment.
type Segment struct {
	Zone        string `json:"zone" doc:"Permit zone" example:"143"`
	AddressLow  string `json:"address_low" doc:"Low end of the address range" example:"100"`
	AddressHigh string `json:"address_high" doc:"High end of the address range" example:"199"`
	Direction   string `json:"direction" doc:"Street direction" example:"N"`
	Name        string `json:"name" doc:"Street name" example:"STATE"`
	Type        string `json:"type" doc:"Street type" example:"ST"`
	OddEven     string `json:"odd_even" doc:"Side of the street the zone applies to" example:"O"`
}

// FromProperties builds a Segment from a feature's property bag.
// Address bounds may be JSON numbers or strings.
func FromProperties(props geojson.Properties) (Segment, error) {
	for _, key := range requiredProps {
		if v, ok := props[key]; !ok || v == nil {
			return Segment{}, fmt.Errorf("%w: %s", ErrMissingProperty, key)
		}
	}
	return Segment{
		Zone:        display(props[PropZone]),
		AddressLow:  display(props[PropAddressLow]),
		AddressHigh: display(props[PropAddressHigh]),
		Direction:   display(props[PropDirection]),
		Name:        display(props[PropName]),
		Type:        display(props[PropType]),
		OddEven:     display(props[PropOddEven]),
	}, nil
}

// FromFeature builds a Segment from a feature.
func FromFeature(f *geojson.Feature) (Segment, error) {
	if f == nil {
		return Segment{}, fmt.Errorf("%w: nil feature", ErrMissingProperty)
	}
	return FromProperties(f.Properties)
}

func display(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprint(x)
	}
}

// AddressRange formats the address bounds as "low - high".
func (s Segment) AddressRange() string {
	return s.AddressLow + " - " + s.AddressHigh
}

// Street joins direction, name and type, skipping blank parts.
func (s Segment) Street() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{s.Direction, s.Name, s.Type} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Properties returns the segment as a GeoJSON property bag.
func (s Segment) Properties() geojson.Properties {
	return geojson.Properties{
		PropZone:        s.Zone,
		PropAddressLow:  s.AddressLow,
		PropAddressHigh: s.AddressHigh,
		PropDirection:   s.Direction,
		PropName:        s.Name,
		PropType:        s.Type,
		PropOddEven:     s.OddEven,
	}
}

// Feature returns a feature with the given geometry and the segment's properties.
func (s Segment) Feature(g orb.Geometry) *geojson.Feature {
	f := geojson.NewFeature(g)
	f.Properties = s.Properties()
	return f
}
