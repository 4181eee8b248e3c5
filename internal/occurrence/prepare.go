// Package occurrence turns GBIF occurrence records into map-ready
// GeoJSON point features.
package occurrence

import (
	"context"

	"github.com/anlukk/gbifmap/internal/gbif"
	"github.com/anlukk/gbifmap/internal/geo"
)

// Source is the slice of the GBIF client the preparer depends on.
type Source interface {
	LookupSpecies(ctx context.Context, taxonKey int) (*gbif.Species, error)
	SearchOccurrences(ctx context.Context, q gbif.OccurrenceQuery) ([]gbif.Occurrence, error)
}

// Preparer fetches occurrence records and projects them to point features.
type Preparer struct {
	src Source
}

// NewPreparer wires a Preparer to an occurrence source.
func NewPreparer(src Source) *Preparer {
	return &Preparer{src: src}
}

// Prepare runs one occurrence query and converts the result to a WGS84
// feature collection. Each feature carries exactly the genus, species,
// family and eventDate properties; source order is preserved and the
// output never exceeds the requested limit.
//
// The taxon key is resolved against the backbone taxonomy before the
// search is issued; the search endpoint answers unknown keys with an
// empty page instead of an error.
func (p *Preparer) Prepare(ctx context.Context, q gbif.OccurrenceQuery) (geo.FeatureCollection, error) {
	if _, err := p.src.LookupSpecies(ctx, q.TaxonKey); err != nil {
		return geo.FeatureCollection{}, err
	}

	records, err := p.src.SearchOccurrences(ctx, q)
	if err != nil {
		return geo.FeatureCollection{}, err
	}

	fc := geo.NewCollection(len(records))
	for i := range records {
		rec := &records[i]
		if !rec.HasCoordinates() {
			continue
		}

		fc.Features = append(fc.Features, geo.NewPointFeature(
			*rec.DecimalLongitude,
			*rec.DecimalLatitude,
			map[string]interface{}{
				"genus":     rec.Genus,
				"species":   rec.Species,
				"family":    rec.Family,
				"eventDate": rec.EventDate,
			},
		))

		if len(fc.Features) == q.Limit {
			break
		}
	}

	return fc, nil
}
