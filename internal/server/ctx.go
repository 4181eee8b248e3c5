// Package server handles HTTP requests and middleware.
package server

import (
	"bytes"
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/chai2010/webp"
	"github.com/rs/zerolog/log"

	"github.com/anlukk/gbifmap/assets"
	"github.com/anlukk/gbifmap/internal/config"
	"github.com/anlukk/gbifmap/internal/geo"
	"github.com/anlukk/gbifmap/internal/occurrence"
)

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	Config          *config.Config
	DatasetResolver map[string]string
	IndexHTML       []byte
	Favicon         []byte
	TransparentTile []byte

	mu      sync.Mutex
	indexes map[string]*occurrence.Index
}

// NewServerContext initializes the context and processes the dataset
// configuration. Datasets without prepared occurrence data are dropped.
func NewServerContext(cfg *config.Config) *ServerContext {
	log.Info().Int("config_datasets_count", len(cfg.Datasets)).Msg("Initializing server context")

	resolver := make(map[string]string)
	validDatasets := make([]config.Dataset, 0, len(cfg.Datasets))

	// Normalize and Sort
	for i := range cfg.Datasets {
		d := &cfg.Datasets[i]

		if d.ZoomLimit <= 0 {
			d.ZoomLimit = cfg.ZoomLimit
		}
		if d.Attribution == "" {
			d.Attribution = cfg.Attribution
		}
		if d.Basemap == "" {
			d.Basemap = cfg.Basemap
		}

		baseDir := filepath.Join("maps", d.Name)

		occFile := filepath.Join(baseDir, "occurrences.geojson")
		if _, err := os.Stat(occFile); os.IsNotExist(err) {
			log.Warn().
				Str("dataset", d.Name).
				Str("path", occFile).
				Msg("Skipping dataset: occurrence data not prepared, run the loader first")
			continue
		}

		if d.Density {
			densityDir := filepath.Join(baseDir, "density")
			if _, err := os.Stat(densityDir); os.IsNotExist(err) {
				d.NoDensity = true
				log.Trace().
					Str("dataset", d.Name).
					Str("path", densityDir).
					Msg("Density layer skipped: directory not found")
			}
		} else {
			d.NoDensity = true
		}

		// Setup Resolver
		resolver[d.Name] = d.Name
		for _, alias := range d.Aliases {
			resolver[alias] = d.Name
		}

		log.Debug().
			Str("dataset", d.Name).
			Bool("density", !d.NoDensity).
			Msg("Dataset validated and added to context")

		validDatasets = append(validDatasets, *d)
	}

	cfg.Datasets = validDatasets

	sort.Slice(cfg.Datasets, func(i, j int) bool {
		idxI, idxJ := 999999, 999999
		if cfg.Datasets[i].Index != nil {
			idxI = *cfg.Datasets[i].Index
		}
		if cfg.Datasets[j].Index != nil {
			idxJ = *cfg.Datasets[j].Index
		}
		if idxI != idxJ {
			return idxI < idxJ
		}

		return cfg.Datasets[i].Name < cfg.Datasets[j].Name
	})

	log.Info().
		Int("valid_datasets_count", len(cfg.Datasets)).
		Msg("Server context initialized successfully")

	return &ServerContext{
		Config:          cfg,
		IndexHTML:       assets.Index,
		Favicon:         assets.Favicon,
		TransparentTile: transparentTile(),
		DatasetResolver: resolver,
		indexes:         make(map[string]*occurrence.Index),
	}
}

// indexFor returns the spatial index of a dataset, loading and caching it
// from the prepared GeoJSON on first use.
func (s *ServerContext) indexFor(name string) (*occurrence.Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx, ok := s.indexes[name]; ok {
		return idx, nil
	}

	path := filepath.Join("maps", name, "occurrences.geojson")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var fc geo.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, err
	}

	idx := occurrence.NewIndex(fc)
	s.indexes[name] = idx

	log.Debug().
		Str("dataset", name).
		Int("features", idx.Size()).
		Msg("Spatial index built")

	return idx, nil
}

// transparentTile encodes the blank WebP served for missing density tiles.
func transparentTile() []byte {
	var buf bytes.Buffer

	img := image.NewRGBA(image.Rect(0, 0, 256, 256))
	if err := webp.Encode(&buf, img, &webp.Options{Lossless: true}); err != nil {
		log.Error().Err(err).Msg("Failed to encode transparent tile")
		return nil
	}

	return buf.Bytes()
}
