package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLonLatToTile(t *testing.T) {
	tests := []struct {
		name     string
		lon, lat float64
		zoom     int
		x, y     int
	}{
		{"origin zoom 0", 0, 0, 0, 0, 0},
		{"origin zoom 1", 0.1, -0.1, 1, 1, 1},
		{"london zoom 6", -0.1278, 51.5074, 6, 31, 21},
		{"sydney zoom 4", 151.2093, -33.8688, 4, 14, 9},
		{"west edge", -180, 0, 2, 0, 2},
		{"north pole clamped", 0.1, 90, 2, 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := LonLatToTile(tt.lon, tt.lat, tt.zoom)
			assert.Equal(t, tt.x, x)
			assert.Equal(t, tt.y, y)
		})
	}
}

func TestClampLat(t *testing.T) {
	assert.Equal(t, MaxLat, ClampLat(89.9))
	assert.Equal(t, -MaxLat, ClampLat(-89.9))
	assert.Equal(t, 45.0, ClampLat(45.0))
}
