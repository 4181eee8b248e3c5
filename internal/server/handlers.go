package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/anlukk/gbifmap/internal/geo"
)

const etagCap = 64

// HandleDatasetList serves the JSON configuration of available datasets.
func (s *ServerContext) HandleDatasetList(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(s.Config.Datasets)
}

// HandleFavicon serves the site favicon.
func (s *ServerContext) HandleFavicon(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/favicon.svg" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(s.Favicon)
}

// HandleIndex serves the main HTML application.
func (s *ServerContext) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && strings.Contains(r.URL.Path, ".") {
		http.NotFound(w, r)
		return
	}

	etag := fmt.Sprintf(`"%x"`, len(s.IndexHTML))

	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, no-cache")
	_, _ = w.Write(s.IndexHTML)
}

// HandleOccurrenceQuery answers bounding-box queries against a dataset's
// spatial index. Expects ?dataset=<name>&bbox=minLon,minLat,maxLon,maxLat.
func (s *ServerContext) HandleOccurrenceQuery(w http.ResponseWriter, r *http.Request) {
	name, ok := s.DatasetResolver[r.URL.Query().Get("dataset")]
	if !ok {
		http.Error(w, "unknown dataset", http.StatusNotFound)
		return
	}

	bbox, err := parseBBox(r.URL.Query().Get("bbox"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	idx, err := s.indexFor(name)
	if err != nil {
		http.Error(w, "dataset unavailable", http.StatusInternalServerError)
		return
	}

	features, err := idx.QueryBox(bbox[0], bbox[1], bbox[2], bbox[3])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"type":     "FeatureCollection",
		"features": features,
	})
}

func parseBBox(raw string) ([4]float64, error) {
	var bbox [4]float64

	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return bbox, fmt.Errorf("bbox must be minLon,minLat,maxLon,maxLat")
	}

	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return bbox, fmt.Errorf("bbox element %d: %v", i, err)
		}
		bbox[i] = v
	}

	// Latitudes outside the Web Mercator range cannot appear on the map
	bbox[1] = geo.ClampLat(bbox[1])
	bbox[3] = geo.ClampLat(bbox[3])

	return bbox, nil
}

// HandleDataFiles serves static assets (GeoJSON and density tiles) for
// specific datasets.
func (s *ServerContext) HandleDataFiles(w http.ResponseWriter, r *http.Request) {
	// Path: /maps/{dataset}/...
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	if len(parts) < 3 {
		http.NotFound(w, r)
		return
	}

	requestedName := parts[1]
	realName, ok := s.DatasetResolver[requestedName]
	if !ok {
		http.NotFound(w, r)
		return
	}

	// GeoJSON
	if len(parts) == 3 && parts[2] == "occurrences.geojson" {
		path := filepath.Join("maps", realName, "occurrences.geojson")
		if !s.serveFile(w, r, path, "application/geo+json") {
			http.NotFound(w, r)
		}
		return
	}

	// WebP density tile
	if len(parts) == 6 && parts[2] == "density" {
		// parts: maps, dataset, density, z, x, y.webp
		z, x, y := parts[3], parts[4], parts[5]

		path := filepath.Join("maps", realName, "density", z, x, y)
		if s.serveFile(w, r, path, "") {
			return
		}

		// cache transparent tile
		w.Header().Set("Content-Type", "image/webp")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		_, _ = w.Write(s.TransparentTile)
		return
	}

	http.NotFound(w, r)
}

// serveFile tries to serve a file from disk with ETag generation.
// It returns true if the file was found and served (or 304).
func (s *ServerContext) serveFile(w http.ResponseWriter, r *http.Request, path string, contentType string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if info.IsDir() {
		return false
	}

	buf := make([]byte, 0, etagCap)
	buf = append(buf, '"')
	buf = strconv.AppendInt(buf, info.Size(), 16)
	buf = append(buf, '-')
	buf = strconv.AppendInt(buf, info.ModTime().UnixNano(), 16)
	buf = append(buf, '"')
	etag := string(buf)

	// check If-None-Match (client sent ETag)
	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, no-cache")

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	http.ServeFile(w, r, path)
	return true
}
