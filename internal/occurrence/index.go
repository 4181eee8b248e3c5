package occurrence

import (
	"fmt"
	"sync"

	"github.com/dhconnelly/rtreego"

	"github.com/anlukk/gbifmap/internal/geo"
)

const (
	tolerance   = 0.0001
	minChildren = 25
	maxChildren = 50
	dimensions  = 2
)

// spatialFeature wraps a feature to implement rtreego.Spatial.
type spatialFeature struct {
	feature *geo.Feature
	rect    *rtreego.Rect
}

func (sf *spatialFeature) Bounds() *rtreego.Rect {
	return sf.rect
}

// Index is a thread-safe R-tree over prepared point features,
// keyed by (lon, lat).
type Index struct {
	tree *rtreego.Rtree
	mu   sync.RWMutex
	size int
}

// NewIndex builds an index over a feature collection. Features without a
// two-element Point coordinate pair are skipped.
func NewIndex(fc geo.FeatureCollection) *Index {
	idx := &Index{tree: rtreego.NewTree(dimensions, minChildren, maxChildren)}

	for i := range fc.Features {
		f := &fc.Features[i]
		if f.Geometry.Type != "Point" || len(f.Geometry.Coordinates) != 2 {
			continue
		}

		p := rtreego.Point{f.Geometry.Coordinates[0], f.Geometry.Coordinates[1]}
		idx.tree.Insert(&spatialFeature{feature: f, rect: p.ToRect(tolerance)})
		idx.size++
	}

	return idx
}

// Size returns the number of indexed features.
func (idx *Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.size
}

// QueryBox returns the features inside a lon/lat bounding box.
func (idx *Index) QueryBox(minLon, minLat, maxLon, maxLat float64) ([]geo.Feature, error) {
	if maxLon < minLon || maxLat < minLat {
		return nil, fmt.Errorf("invalid bounding box: [%v %v %v %v]", minLon, minLat, maxLon, maxLat)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	// Zero-length sides are not valid rtreego rects; inflate them so a
	// degenerate box still works as a point query.
	lenLon := maxLon - minLon
	if lenLon == 0 {
		lenLon = tolerance
	}
	lenLat := maxLat - minLat
	if lenLat == 0 {
		lenLat = tolerance
	}

	bounds, err := rtreego.NewRect(
		rtreego.Point{minLon, minLat},
		[]float64{lenLon, lenLat},
	)
	if err != nil {
		return nil, fmt.Errorf("build search rect: %w", err)
	}

	matches := idx.tree.SearchIntersect(bounds)

	out := make([]geo.Feature, 0, len(matches))
	for _, m := range matches {
		sf, ok := m.(*spatialFeature)
		if !ok {
			continue
		}
		out = append(out, *sf.feature)
	}

	return out, nil
}
