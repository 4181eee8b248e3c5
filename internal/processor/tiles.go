package processor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/draw"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/chai2010/webp"
	"github.com/rs/zerolog/log"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/anlukk/gbifmap/internal/config"
	"github.com/anlukk/gbifmap/internal/gbif"
	"github.com/anlukk/gbifmap/internal/geo"
)

// tileSize is the edge length of the tiles written to disk. GBIF serves
// 512px "@2x" tiles which are downscaled before encoding.
const tileSize = 256

// TileCoordinate represents a specific tile.
type TileCoordinate struct {
	Z, X, Y int
}

type job struct {
	BaseDir string
	Coord   TileCoordinate
}

type result struct {
	Coord TileCoordinate
	Valid bool
}

// extent is the lon/lat bounding box of a dataset's prepared occurrences.
type extent struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

// datasetExtent reads the prepared GeoJSON of a dataset and returns the
// bounding box of its point features.
func datasetExtent(name string) (*extent, error) {
	data, err := os.ReadFile(filepath.Join("maps", name, "occurrences.geojson"))
	if err != nil {
		return nil, err
	}

	var fc geo.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, err
	}

	var e *extent
	for _, f := range fc.Features {
		if f.Geometry.Type != "Point" || len(f.Geometry.Coordinates) != 2 {
			continue
		}
		lon := f.Geometry.Coordinates[0]
		lat := geo.ClampLat(f.Geometry.Coordinates[1])

		if e == nil {
			e = &extent{MinLon: lon, MinLat: lat, MaxLon: lon, MaxLat: lat}
			continue
		}
		if lon < e.MinLon {
			e.MinLon = lon
		}
		if lon > e.MaxLon {
			e.MaxLon = lon
		}
		if lat < e.MinLat {
			e.MinLat = lat
		}
		if lat > e.MaxLat {
			e.MaxLat = lat
		}
	}

	if e == nil {
		return nil, fmt.Errorf("no point features in %s", name)
	}

	return e, nil
}

// containsTile reports whether a tile overlaps the extent at its zoom level.
func (e *extent) containsTile(t TileCoordinate) bool {
	x0, y0 := geo.LonLatToTile(e.MinLon, e.MaxLat, t.Z)
	x1, y1 := geo.LonLatToTile(e.MaxLon, e.MinLat, t.Z)

	return t.X >= x0 && t.X <= x1 && t.Y >= y0 && t.Y <= y1
}

// ProcessDensityTiles downloads the occurrence-density tile pyramid for a
// dataset and stores it as WebP under maps/<name>/density. Zoom levels are
// descended only under tiles that actually contained data.
func ProcessDensityTiles(
	client *http.Client,
	api *gbif.Client,
	d config.Dataset,
	concurrency, defaultZoom int,
	force, fastCheck bool,
) {
	baseDir := filepath.Join("maps", d.Name, "density")

	if fastCheck {
		if _, err := os.Stat(baseDir); err == nil {
			log.Info().
				Str("dataset", d.Name).
				Msg("Density directory exists, skipping (fast-check)")
			return
		}
	}

	zoomLimit := d.ZoomLimit
	if zoomLimit <= 0 {
		zoomLimit = defaultZoom
	}

	// Limit the pyramid to where the prepared occurrences actually are
	ext, err := datasetExtent(d.Name)
	if err != nil {
		log.Warn().
			Err(err).
			Str("dataset", d.Name).
			Msg("Occurrence extent unavailable, downloading full pyramid")
	}

	log.Info().
		Str("dataset", d.Name).
		Int("zoom_limit", zoomLimit).
		Msg("Starting density tile download")

	currentLevelTiles := []TileCoordinate{{0, 0, 0}}

	for z := 0; z <= zoomLimit; z++ {
		if len(currentLevelTiles) == 0 {
			break
		}
		if z > 0 && !probeLevel(client, api, d.TaxonKey, currentLevelTiles) {
			log.Info().Int("zoom", z).Msg("No data found at zoom level, stopping")
			break
		}

		log.Debug().Int("zoom", z).Int("count", len(currentLevelTiles)).Msg("Processing zoom level")

		validTiles := processBatch(client, api, d.TaxonKey, concurrency, currentLevelTiles, baseDir, force)

		nextLevelTiles := make([]TileCoordinate, 0, len(validTiles)*4)
		for _, t := range validTiles {
			nx, ny := t.X*2, t.Y*2
			for _, child := range []TileCoordinate{
				{Z: z + 1, X: nx, Y: ny},
				{Z: z + 1, X: nx + 1, Y: ny},
				{Z: z + 1, X: nx, Y: ny + 1},
				{Z: z + 1, X: nx + 1, Y: ny + 1},
			} {
				if ext != nil && !ext.containsTile(child) {
					continue
				}
				nextLevelTiles = append(nextLevelTiles, child)
			}
		}
		currentLevelTiles = nextLevelTiles
	}
}

func processBatch(
	client *http.Client,
	api *gbif.Client,
	taxonKey, concurrency int,
	tiles []TileCoordinate,
	baseDir string,
	force bool,
) []TileCoordinate {

	jobs := make(chan job, len(tiles))
	results := make(chan result, len(tiles))

	go func() {
		for _, t := range tiles {
			jobs <- job{Coord: t, BaseDir: baseDir}
		}
		close(jobs)
	}()

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				isValid, err := downloadAndConvert(client, api, taxonKey, j, force)
				if err != nil {
					log.Trace().
						Err(err).
						Int("z", j.Coord.Z).
						Int("x", j.Coord.X).
						Int("y", j.Coord.Y).
						Msg("Failed to download tile")
				}
				results <- result{Coord: j.Coord, Valid: isValid}
			}
		}()
	}
	wg.Wait()
	close(results)

	var valid []TileCoordinate
	for res := range results {
		if res.Valid {
			valid = append(valid, res.Coord)
		}
	}

	return valid
}

func downloadAndConvert(
	client *http.Client,
	api *gbif.Client,
	taxonKey int,
	j job,
	force bool,
) (bool, error) {
	outPath := filepath.Join(
		j.BaseDir,
		fmt.Sprintf("%d", j.Coord.Z),
		fmt.Sprintf("%d", j.Coord.X),
		fmt.Sprintf("%d", j.Coord.Y)+".webp")

	// Check existence if not forcing overwrite
	if !force {
		if info, err := os.Stat(outPath); err == nil && info.Size() > 0 {
			return true, nil
		}
	}

	url := api.DensityTileURL(taxonKey, j.Coord.Z, j.Coord.X, j.Coord.Y)
	resp, err := client.Get(url)
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == 204 || resp.StatusCode == 404 {
		log.Trace().Str("url", url).Msg("Tile has no data")
		return false, nil
	}
	if resp.StatusCode != 200 {
		return false, fmt.Errorf("status code %d", resp.StatusCode)
	}

	bodyBytes, _ := io.ReadAll(resp.Body)
	img, _, err := image.Decode(bytes.NewReader(bodyBytes))
	if err != nil {
		log.Trace().Err(err).Str("url", url).Msg("Failed to decode image")
		return false, nil // Not an image or corrupted
	}

	if !hasOpaquePixels(img) {
		log.Trace().Str("url", url).Msg("Filtered empty tile")
		return false, nil
	}

	// Downscale @2x source to the serving tile size
	out := image.NewRGBA(image.Rect(0, 0, tileSize, tileSize))
	xdraw.CatmullRom.Scale(out, out.Bounds(), img, img.Bounds(), draw.Over, nil)

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return false, err
	}

	outFile, err := os.Create(outPath)
	if err != nil {
		return false, err
	}
	defer func() { _ = outFile.Close() }()

	if err := webp.Encode(outFile, out, &webp.Options{Lossless: false, Quality: 80}); err != nil {
		return false, err
	}

	return true, nil
}

// hasOpaquePixels samples the image on a coarse grid; a tile where every
// sampled pixel is fully transparent carries no occurrence data.
func hasOpaquePixels(img image.Image) bool {
	b := img.Bounds()

	step := b.Dx() / 32
	if step < 1 {
		step = 1
	}

	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			if _, _, _, a := img.At(x, y).RGBA(); a > 0 {
				return true
			}
		}
	}

	return false
}

func probeLevel(client *http.Client, api *gbif.Client, taxonKey int, tiles []TileCoordinate) bool {
	// Check a few points (start, middle, end) to see if the zoom level has data
	probes := []TileCoordinate{}
	if len(tiles) > 0 {
		probes = append(probes, tiles[0])
	}
	if len(tiles) > 10 {
		probes = append(probes, tiles[len(tiles)/2])
	}
	if len(tiles) > 1 {
		probes = append(probes, tiles[len(tiles)-1])
	}

	for _, p := range probes {
		if checkTileExists(client, api.DensityTileURL(taxonKey, p.Z, p.X, p.Y)) {
			return true
		}
	}

	return false
}

func checkTileExists(client *http.Client, url string) bool {
	resp, err := client.Get(url)
	if err != nil || resp.StatusCode != 200 {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)
	img, _, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return false
	}

	return hasOpaquePixels(img)
}
