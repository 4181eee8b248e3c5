package geo

import "math"

// MaxLat is the latitude bound of the Web Mercator projection.
const MaxLat = 85.05112878

// ClampLat limits a latitude to the Web Mercator range.
func ClampLat(lat float64) float64 {
	if lat > MaxLat {
		return MaxLat
	}
	if lat < -MaxLat {
		return -MaxLat
	}
	return lat
}

// LonLatToTile converts WGS84 coordinates to slippy-map tile indices
// at the given zoom level.
func LonLatToTile(lon, lat float64, zoom int) (x, y int) {
	n := float64(int(1) << zoom)

	x = int((lon + 180.0) / 360.0 * n)

	latRad := ClampLat(lat) * math.Pi / 180.0
	y = int((1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0 * n)

	max := int(n) - 1
	if x < 0 {
		x = 0
	} else if x > max {
		x = max
	}
	if y < 0 {
		y = 0
	} else if y > max {
		y = max
	}

	return x, y
}

