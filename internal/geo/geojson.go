// Package geo handles geographic data structures and coordinate conversions.
package geo

// CRS84 identifies longitude/latitude coordinates on the WGS84 ellipsoid,
// the coordinate reference GeoJSON assumes and Leaflet consumes.
const CRS84 = "urn:ogc:def:crs:OGC:1.3:CRS84"

// FeatureCollection represents a collection of geographic features.
// It follows the standard GeoJSON structure.
type FeatureCollection struct {
	Type     string    `json:"type" yaml:"type"`
	CRS      *CRS      `json:"crs,omitempty" yaml:"crs,omitempty"`
	Features []Feature `json:"features" yaml:"features"`
}

// CRS is the named coordinate-reference member attached to a collection.
type CRS struct {
	Type       string        `json:"type" yaml:"type"`
	Properties CRSProperties `json:"properties" yaml:"properties"`
}

// CRSProperties holds the reference-system name.
type CRSProperties struct {
	Name string `json:"name" yaml:"name"`
}

// Feature represents a single geographic feature with geometry and properties.
type Feature struct {
	Properties map[string]interface{} `json:"properties" yaml:"properties"`
	Type       string                 `json:"type" yaml:"type"`
	Geometry   Geometry               `json:"geometry" yaml:"geometry"`
}

// Geometry represents the geometry of a feature (Point, Polygon, etc.).
type Geometry struct {
	Type        string    `json:"type" yaml:"type"`
	Coordinates []float64 `json:"coordinates" yaml:"coordinates"` // [Lon, Lat]
}

// NewCollection returns an empty FeatureCollection tagged with CRS84.
func NewCollection(capacity int) FeatureCollection {
	return FeatureCollection{
		Type:     "FeatureCollection",
		CRS:      &CRS{Type: "name", Properties: CRSProperties{Name: CRS84}},
		Features: make([]Feature, 0, capacity),
	}
}

// NewPointFeature builds a Point feature from a lon/lat pair.
func NewPointFeature(lon, lat float64, props map[string]interface{}) Feature {
	return Feature{
		Type: "Feature",
		Geometry: Geometry{
			Type:        "Point",
			Coordinates: []float64{lon, lat},
		},
		Properties: props,
	}
}
