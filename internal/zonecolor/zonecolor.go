// Package zonecolor assigns display colors to parking zones.
//
// The assignment is a pure function of the zone string: a 32-bit rolling
// hash (acc = c + (acc<<5) - acc over UTF-16 code units, wrapping like a
// JavaScript int32) reduced modulo the palette size. The same dataset always
// renders with the same colors, on any machine, across reloads.
package zonecolor

import (
	"fmt"
	"image/color"
	"sort"
	"unicode/utf16"

	"golang.org/x/image/colornames"
)

// Fallback is the color for features whose zone is not in an Assignment.
const Fallback = "#888"

// Color is a named palette entry.
type Color struct {
	Name string `json:"name" doc:"CSS color name" example:"crimson"`
	Hex  string `json:"hex" doc:"Hex color" example:"#dc143c"`
}

// paletteNames is the fixed, ordered palette. Order is part of the contract:
// reordering changes every zone's color.
var paletteNames = []string{
	"crimson",
	"darkorange",
	"gold",
	"forestgreen",
	"lightseagreen",
	"dodgerblue",
	"mediumblue",
	"blueviolet",
	"mediumvioletred",
	"saddlebrown",
	"teal",
	"slategray",
}

// Palette is the ordered set of colors zones are drawn from.
var Palette = buildPalette(paletteNames)

func buildPalette(names []string) []Color {
	p := make([]Color, len(names))
	for i, name := range names {
		c, ok := colornames.Map[name]
		if !ok {
			panic(fmt.Sprintf("zonecolor: unknown color name %q", name))
		}
		p[i] = Color{Name: name, Hex: hex(c)}
	}
	return p
}

func hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Hash returns the signed 32-bit hash of zone.
func Hash(zone string) int32 {
	var acc int32
	for _, c := range utf16.Encode([]rune(zone)) {
		acc = int32(c) + ((acc << 5) - acc)
	}
	return acc
}

// Index returns the palette index for zone.
func Index(zone string) int {
	h := int64(Hash(zone))
	if h < 0 {
		h = -h
	}
	return int(h % int64(len(Palette)))
}

// For returns the palette color for zone.
func For(zone string) Color {
	return Palette[Index(zone)]
}

// Assignment maps the zones of one dataset to their colors.
type Assignment map[string]Color

// Assign builds the assignment for the given zones. Duplicates collapse.
func Assign(zones []string) Assignment {
	a := make(Assignment, len(zones))
	for _, z := range zones {
		if _, ok := a[z]; ok {
			continue
		}
		a[z] = For(z)
	}
	return a
}

// Lookup returns the hex color for zone, or Fallback if zone is not assigned.
func (a Assignment) Lookup(zone string) string {
	if c, ok := a[zone]; ok {
		return c.Hex
	}
	return Fallback
}

// Zones returns the assigned zones in sorted order.
func (a Assignment) Zones() []string {
	zs := make([]string, 0, len(a))
	for z := range a {
		zs = append(zs, z)
	}
	sort.Strings(zs)
	return zs
}
