// Package service holds the parking map's session and dataset logic shared
// by the HTTP API and the CLI.
package service

import "time"

// DatasetFile is a data file in the data directory.
type DatasetFile struct {
	Name     string    `json:"name" doc:"File name" example:"parking_segments.geojson"`
	Size     string    `json:"size" doc:"Human-readable file size" example:"1.2 MB"`
	Bytes    int64     `json:"bytes" doc:"File size in bytes"`
	FileType string    `json:"fileType" doc:"GeoJSON or CSV" example:"GeoJSON"`
	Modified string    `json:"modified" doc:"Relative modification time" example:"3 hours ago"`
	ModTime  time.Time `json:"modTime" doc:"Modification time"`
	Active   bool      `json:"active" doc:"Whether this file is the map's dataset"`
}

// MapStatus summarizes the current map session.
type MapStatus struct {
	State    string    `json:"state" enum:"unloaded,loading,bound,failed" doc:"Session state"`
	Version  int       `json:"version" doc:"Incremented on every reload"`
	Features int       `json:"features" doc:"Segments in the bound dataset"`
	Zones    int       `json:"zones" doc:"Distinct zones in the bound dataset"`
	Extent   []float64 `json:"extent,omitempty" doc:"Dataset bounding box as [west, south, east, north]"`
	Error    string    `json:"error,omitempty" doc:"User-visible failure message"`
}
