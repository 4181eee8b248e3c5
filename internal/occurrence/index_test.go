package occurrence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anlukk/gbifmap/internal/geo"
)

func cityCollection() geo.FeatureCollection {
	fc := geo.NewCollection(5)
	fc.Features = append(fc.Features,
		geo.NewPointFeature(-74.0060, 40.7128, map[string]interface{}{"species": "NYC"}),
		geo.NewPointFeature(-0.1278, 51.5074, map[string]interface{}{"species": "London"}),
		geo.NewPointFeature(2.3522, 48.8566, map[string]interface{}{"species": "Paris"}),
		geo.NewPointFeature(139.6503, 35.6762, map[string]interface{}{"species": "Tokyo"}),
		geo.NewPointFeature(151.2093, -33.8688, map[string]interface{}{"species": "Sydney"}),
	)
	return fc
}

func TestNewIndex(t *testing.T) {
	idx := NewIndex(cityCollection())
	require.NotNil(t, idx)
	assert.Equal(t, 5, idx.Size())
}

func TestNewIndexSkipsInvalidGeometry(t *testing.T) {
	fc := cityCollection()
	fc.Features = append(fc.Features,
		geo.Feature{Type: "Feature", Geometry: geo.Geometry{Type: "Point"}},
		geo.Feature{Type: "Feature", Geometry: geo.Geometry{
			Type: "LineString", Coordinates: []float64{0, 0},
		}},
	)

	idx := NewIndex(fc)
	assert.Equal(t, 5, idx.Size())
}

func TestQueryBox(t *testing.T) {
	idx := NewIndex(cityCollection())

	// Box around Europe
	results, err := idx.QueryBox(-5.0, 45.0, 10.0, 55.0)
	require.NoError(t, err)
	require.Len(t, results, 2)

	names := make(map[string]bool)
	for _, f := range results {
		names[f.Properties["species"].(string)] = true
	}
	assert.True(t, names["London"])
	assert.True(t, names["Paris"])
}

func TestQueryBoxNoMatches(t *testing.T) {
	idx := NewIndex(cityCollection())

	// Middle of the Atlantic
	results, err := idx.QueryBox(-40.0, 10.0, -30.0, 20.0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestQueryBoxDegeneratePoint(t *testing.T) {
	idx := NewIndex(cityCollection())

	// A zero-area box on an exact coordinate still matches that point
	results, err := idx.QueryBox(-74.0060, 40.7128, -74.0060, 40.7128)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "NYC", results[0].Properties["species"])
}

func TestQueryBoxInvalid(t *testing.T) {
	idx := NewIndex(cityCollection())

	_, err := idx.QueryBox(10.0, 0.0, -10.0, 5.0)
	assert.Error(t, err)
}
