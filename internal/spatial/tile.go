package spatial

import "math"

// MaxZoom is the finest supported slippy map zoom level
const MaxZoom = 20

// BBox is a geographic bounding box in degrees
type BBox struct {
	West  float64 `json:"west"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	North float64 `json:"north"`
}

// ValidTile reports whether (z, x, y) addresses a tile in the supported
// power-of-two scheme
func ValidTile(z, x, y int) bool {
	if z < 0 || z > MaxZoom {
		return false
	}
	n := 1 << uint(z)
	return x >= 0 && x < n && y >= 0 && y < n
}

// TileBBox computes the geographic bounding box of a slippy map tile using
// the inverse Web Mercator projection
func TileBBox(z, x, y int) BBox {
	n := float64(int(1) << uint(z))
	return BBox{
		West:  float64(x)/n*360 - 180,
		East:  float64(x+1)/n*360 - 180,
		North: tileLat(float64(y), n),
		South: tileLat(float64(y+1), n),
	}
}

func tileLat(y, n float64) float64 {
	rad := math.Atan(math.Sinh(math.Pi * (1 - 2*y/n)))
	return rad * 180 / math.Pi
}

// ResolutionForZoom maps a zoom level to the H3 resolution rendered at that
// zoom. The mapping is a fixed monotonic step function, total over [0, MaxZoom];
// zooms outside the range clamp to the nearest bracket.
func ResolutionForZoom(zoom int) int {
	switch {
	case zoom <= 2:
		return 2
	case zoom <= 4:
		return 3
	case zoom <= 6:
		return 4
	case zoom <= 8:
		return 5
	case zoom <= 10:
		return 6
	case zoom <= 12:
		return 7
	case zoom <= 14:
		return 8
	case zoom <= 16:
		return 9
	case zoom <= 18:
		return 10
	default:
		return 11
	}
}
