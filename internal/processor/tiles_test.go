package processor

import (
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anlukk/gbifmap/internal/gbif"
	"github.com/anlukk/gbifmap/internal/geo"
)

func TestHasOpaquePixels(t *testing.T) {
	blank := image.NewRGBA(image.Rect(0, 0, 64, 64))
	assert.False(t, hasOpaquePixels(blank))

	dotted := image.NewRGBA(image.Rect(0, 0, 64, 64))
	dotted.Set(0, 0, color.RGBA{R: 255, A: 255})
	assert.True(t, hasOpaquePixels(dotted))
}

func TestDownloadAndConvert(t *testing.T) {
	tile := image.NewRGBA(image.Rect(0, 0, 512, 512))
	for y := 100; y < 120; y++ {
		for x := 100; x < 120; x++ {
			tile.Set(x, y, color.RGBA{R: 200, G: 40, B: 30, A: 255})
		}
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		require.NoError(t, png.Encode(w, tile))
	}))
	defer srv.Close()

	api := gbif.NewClient(srv.URL, srv.Client())
	baseDir := t.TempDir()

	valid, err := downloadAndConvert(srv.Client(), api, 2440021, job{
		BaseDir: baseDir,
		Coord:   TileCoordinate{Z: 1, X: 0, Y: 0},
	}, false)
	require.NoError(t, err)
	assert.True(t, valid)

	info, err := os.Stat(filepath.Join(baseDir, "1", "0", "0.webp"))
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestDownloadAndConvertEmptyTile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	api := gbif.NewClient(srv.URL, srv.Client())
	baseDir := t.TempDir()

	valid, err := downloadAndConvert(srv.Client(), api, 2440021, job{
		BaseDir: baseDir,
		Coord:   TileCoordinate{Z: 0, X: 0, Y: 0},
	}, false)
	require.NoError(t, err)
	assert.False(t, valid)

	_, statErr := os.Stat(filepath.Join(baseDir, "0", "0", "0.webp"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestDatasetExtent(t *testing.T) {
	chdirTemp(t)

	fc := geo.NewCollection(2)
	fc.Features = append(fc.Features,
		geo.NewPointFeature(-74.0060, 40.7128, map[string]interface{}{}),
		geo.NewPointFeature(2.3522, 48.8566, map[string]interface{}{}),
	)
	data, err := json.Marshal(fc)
	require.NoError(t, err)

	dir := filepath.Join("maps", "testset")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "occurrences.geojson"), data, 0o644))

	ext, err := datasetExtent("testset")
	require.NoError(t, err)
	assert.InDelta(t, -74.0060, ext.MinLon, 1e-9)
	assert.InDelta(t, 2.3522, ext.MaxLon, 1e-9)
	assert.InDelta(t, 40.7128, ext.MinLat, 1e-9)
	assert.InDelta(t, 48.8566, ext.MaxLat, 1e-9)
}

func TestExtentContainsTile(t *testing.T) {
	// Western Europe.
	ext := &extent{MinLon: -5, MinLat: 42, MaxLon: 10, MaxLat: 52}

	// Paris sits at tile 32/22 on zoom 6.
	assert.True(t, ext.containsTile(TileCoordinate{Z: 6, X: 32, Y: 22}))
	// Sydney's tile on the same zoom is far outside the extent.
	assert.False(t, ext.containsTile(TileCoordinate{Z: 6, X: 58, Y: 38}))
	// The whole world on zoom 0 always overlaps.
	assert.True(t, ext.containsTile(TileCoordinate{Z: 0, X: 0, Y: 0}))
}
