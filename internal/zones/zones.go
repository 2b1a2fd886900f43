// Package zones reads the city's residential parking permit zone CSV.
package zones

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joeblew999/plat-parking/internal/segment"
)

// CSV column names.
const (
	ColZone        = "ZONE"
	ColStatus      = "STATUS"
	ColOddEven     = "ODD_EVEN"
	ColAddressLow  = "ADDRESS RANGE - LOW"
	ColAddressHigh = "ADDRESS RANGE - HIGH"
	ColDirection   = "STREET DIRECTION"
	ColName        = "STREET NAME"
	ColType        = "STREET TYPE"
)

// StatusActive marks rows currently in force.
const StatusActive = "ACTIVE"

var requiredCols = []string{
	ColZone, ColStatus, ColOddEven, ColAddressLow, ColAddressHigh, ColDirection, ColName, ColType,
}

// ErrMissingColumn is returned when the CSV header lacks a required column.
var ErrMissingColumn = errors.New("missing csv column")

// Row is one permit zone record.
type Row struct {
	Zone        string
	Status      string
	OddEven     string
	AddressLow  string
	AddressHigh string
	Direction   string
	Name        string
	Type        string
}

// Segment converts the row to its map segment.
func (r Row) Segment() segment.Segment {
	return segment.Segment{
		Zone:        r.Zone,
		AddressLow:  r.AddressLow,
		AddressHigh: r.AddressHigh,
		Direction:   r.Direction,
		Name:        r.Name,
		Type:        r.Type,
		OddEven:     r.OddEven,
	}
}

// ID identifies the row's address range: "dir|name|type|low|high".
func (r Row) ID() string {
	return strings.Join([]string{r.Direction, r.Name, r.Type, r.AddressLow, r.AddressHigh}, "|")
}

// Street is the (direction, name, type) key segments are deduplicated on.
type Street struct {
	Direction, Name, Type string
}

// Street returns the row's street key.
func (r Row) Street() Street {
	return Street{Direction: r.Direction, Name: r.Name, Type: r.Type}
}

// Read parses all rows of a permit zone CSV. Columns are matched by header
// name; extra columns are ignored.
func Read(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, c := range requiredCols {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, c)
		}
	}

	var rows []Row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		get := func(col string) string {
			if i := idx[col]; i < len(rec) {
				return rec[i]
			}
			return ""
		}
		rows = append(rows, Row{
			Zone:        get(ColZone),
			Status:      get(ColStatus),
			OddEven:     get(ColOddEven),
			AddressLow:  get(ColAddressLow),
			AddressHigh: get(ColAddressHigh),
			Direction:   get(ColDirection),
			Name:        get(ColName),
			Type:        get(ColType),
		})
	}
	return rows, nil
}

// ReadFile parses the CSV at path.
func ReadFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// ActiveSegments keeps ACTIVE rows, one per street, first occurrence wins.
func ActiveSegments(rows []Row) []Row {
	seen := make(map[Street]struct{})
	var out []Row
	for _, r := range rows {
		if r.Status != StatusActive {
			continue
		}
		k := r.Street()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}
