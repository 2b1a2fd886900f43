package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/joeblew999/plat-parking/internal/mapview"
)

// DefaultDataset is the segment file the map loads.
const DefaultDataset = "parking_segments.geojson"

// extToType lists the data files the service knows about.
var extToType = map[string]string{
	".geojson": "GeoJSON",
	".json":    "GeoJSON",
	".csv":     "CSV",
}

// DatasetService manages the files in the data directory.
type DatasetService struct {
	dataDir string
	dataset string
}

// NewDatasetService creates a dataset service. dataset is a file name in dataDir.
func NewDatasetService(dataDir, dataset string) *DatasetService {
	if dataset == "" {
		dataset = DefaultDataset
	}
	return &DatasetService{dataDir: dataDir, dataset: dataset}
}

var _ mapview.Fetcher = (*DatasetService)(nil)

// Fetch reads the map's dataset.
func (s *DatasetService) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path())
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.dataset, err)
	}
	return data, nil
}

// List returns all data files, the active dataset first.
func (s *DatasetService) List() ([]DatasetFile, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []DatasetFile{}, nil
		}
		return nil, err
	}

	files := []DatasetFile{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		fileType, ok := extToType[ext]
		if !ok {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		files = append(files, DatasetFile{
			Name:     entry.Name(),
			Size:     humanize.Bytes(uint64(info.Size())),
			Bytes:    info.Size(),
			FileType: fileType,
			Modified: humanize.Time(info.ModTime()),
			ModTime:  info.ModTime(),
			Active:   entry.Name() == s.dataset,
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].Active && !files[j].Active
	})
	return files, nil
}

// Open returns the path of a data file, rejecting names that escape the
// data directory or are not data files.
func (s *DatasetService) Open(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	if _, ok := extToType[strings.ToLower(filepath.Ext(name))]; !ok {
		return "", fmt.Errorf("unsupported file type %q", name)
	}
	return filepath.Join(s.dataDir, name), nil
}

// Path returns the full path of the map's dataset.
func (s *DatasetService) Path() string {
	return filepath.Join(s.dataDir, s.dataset)
}

// Name returns the dataset file name.
func (s *DatasetService) Name() string {
	return s.dataset
}

// DataDir returns the data directory.
func (s *DatasetService) DataDir() string {
	return s.dataDir
}
