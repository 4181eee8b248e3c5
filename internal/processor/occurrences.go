// Package processor handles the downloading and processing of map data.
package processor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/anlukk/gbifmap/internal/config"
	"github.com/anlukk/gbifmap/internal/gbif"
	"github.com/anlukk/gbifmap/internal/geo"
	"github.com/anlukk/gbifmap/internal/occurrence"
)

// DefaultLimit is used when a dataset does not set its own record limit.
const DefaultLimit = gbif.MaxPageSize

// ProcessOccurrences fetches and converts occurrence data for one dataset,
// writing maps/<name>/occurrences.geojson. An existing file is kept unless
// force is set.
func ProcessOccurrences(
	ctx context.Context,
	client *gbif.Client,
	d config.Dataset,
	force bool,
) error {
	destDir := filepath.Join("maps", d.Name)
	destFile := filepath.Join(destDir, "occurrences.geojson")

	if _, err := os.Stat(destFile); err == nil {
		if !force {
			log.Debug().Str("dataset", d.Name).Msg("Occurrences file exists, skipping")
			return nil
		}
	}

	limit := d.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	log.Info().
		Str("dataset", d.Name).
		Int("taxon_key", d.TaxonKey).
		Int("limit", limit).
		Msg("Fetching occurrences")

	prep := occurrence.NewPreparer(client)
	fc, err := prep.Prepare(ctx, gbif.OccurrenceQuery{
		TaxonKey:           d.TaxonKey,
		RequireCoordinates: true,
		Limit:              limit,
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("dataset", d.Name).
		Int("features", len(fc.Features)).
		Msg("Occurrences prepared")

	return saveGeoJSON(destDir, destFile, fc)
}

// saveGeoJSON marshals the feature collection and writes it to disk.
func saveGeoJSON(dir, path string, fc geo.FeatureCollection) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	// We care about write errors on close
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Error().Err(closeErr).Str("path", path).Msg("Failed to close file")
		}
	}()

	return json.NewEncoder(f).Encode(fc)
}
