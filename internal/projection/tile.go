// Package projection implements web-mercator (EPSG:3857) projection math,
// tile corner/bounding-box derivation, and the geohash-precision-by-zoom
// lookup used to size the backing-store aggregation.
package projection

import "math"

const (
	// MaxLatitude is the web-mercator clamp boundary.
	MaxLatitude = 85.0511
	minLatitude = -85.0511
)

// Clamp restricts value to [minimum, maximum].
func Clamp(value, minimum, maximum float64) float64 {
	if value < minimum {
		return minimum
	}
	if value > maximum {
		return maximum
	}
	return value
}

// ClampInt restricts value to [minimum, maximum].
func ClampInt(value, minimum, maximum int) int {
	if value < minimum {
		return minimum
	}
	if value > maximum {
		return maximum
	}
	return value
}

// IsPowerOfTwo reports whether n is a strictly positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// LongitudeToX converts a longitude at the given zoom to an x coordinate on
// the whole-world tile grid, wrapping out-of-range longitudes as if the map
// were a cylinder.
func LongitudeToX(longitude float64, zoom int) float64 {
	if longitude < -180 || longitude > 180 {
		wrapped := math.Mod(longitude+180, 360)
		if wrapped < 0 {
			wrapped += 360
		}
		longitude = wrapped - 180
	}
	return ((longitude + 180) / 360) * math.Pow(2, float64(zoom))
}

// LatitudeToY converts a latitude at the given zoom to a y coordinate on the
// whole-world tile grid using the standard web-mercator projection.
func LatitudeToY(latitude float64, zoom int) float64 {
	latitude = Clamp(latitude, minLatitude, MaxLatitude)
	phi := latitude * math.Pi / 180
	return (1 - math.Log(math.Tan(phi)+1/math.Cos(phi))/math.Pi) / 2 * math.Pow(2, float64(zoom))
}

// precisionByZoom maps a clamped zoom level to the geohash precision used
// for the backing aggregation; chosen to keep cell size sub-pixel at high
// zoom while bounding bucket count at low zoom.
var precisionByZoom = map[int]int{
	0: 3, 1: 3,
	2: 4, 3: 4,
	4: 5, 5: 5,
	6: 6, 7: 6,
	8: 7, 9: 7,
	10: 8,
	11: 9, 12: 9,
	13: 10, 14: 10,
	15: 11, 16: 11, 17: 11,
	18: 12, 19: 12,
}

// Tile is an immutable slippy-map tile coordinate with a square pixel size.
type Tile struct {
	X, Y, Z  int
	TileSize int
}

// New constructs a Tile with the default 256px size.
func New(x, y, z int) Tile {
	return Tile{X: x, Y: y, Z: z, TileSize: 256}
}

// NewSized constructs a Tile with an explicit pixel size, primarily for
// tests; the HTTP surface always uses the default 256.
func NewSized(x, y, z, tileSize int) Tile {
	return Tile{X: x, Y: y, Z: z, TileSize: tileSize}
}

// Precision returns the geohash-grid precision to use for this tile's zoom.
func (t Tile) Precision() int {
	return precisionByZoom[ClampInt(t.Z, 0, 19)]
}

// Translate maps the tile coordinate offset by (xExtra, yExtra) back to a
// (latitude, longitude) pair, pointing at the corresponding corner of the
// tile grid.
func (t Tile) Translate(xExtra, yExtra float64) (lat, lon float64) {
	zoom := math.Pow(2, float64(t.Z))
	lon = (float64(t.X)+xExtra)/zoom*360.0 - 180.0
	lat = math.Atan(math.Sinh(math.Pi*(1-2*(float64(t.Y)+yExtra)/zoom))) * 180 / math.Pi
	return lat, lon
}

// Middle returns the latitude/longitude of the tile's centre.
func (t Tile) Middle() (lat, lon float64) { return t.Translate(0.5, 0.5) }

// TopLeft returns the latitude/longitude of the tile's top-left corner,
// expanded outward by extra tile-fractions on all sides.
func (t Tile) TopLeft(extra float64) (lat, lon float64) { return t.Translate(-extra, -extra) }

// TopRight returns the top-right corner, expanded outward by extra.
func (t Tile) TopRight(extra float64) (lat, lon float64) { return t.Translate(1+extra, -extra) }

// BottomLeft returns the bottom-left corner, expanded outward by extra.
func (t Tile) BottomLeft(extra float64) (lat, lon float64) { return t.Translate(-extra, 1+extra) }

// BottomRight returns the bottom-right corner, expanded outward by extra.
func (t Tile) BottomRight(extra float64) (lat, lon float64) { return t.Translate(1+extra, 1+extra) }

// QueryExtra is the tile-count fraction used to expand the bounding box sent
// to the backing store, avoiding seam artefacts at tile edges.
const QueryExtra = 0.01

// LongitudeToTileX converts a longitude to a pixel x coordinate relative to
// this tile's bounds at the given resize factor.
func (t Tile) LongitudeToTileX(longitude float64, resizeFactor float64) float64 {
	width := float64(t.TileSize) * resizeFactor
	x := LongitudeToX(longitude, t.Z)
	_, midLon := t.Middle()
	centreX := LongitudeToX(midLon, t.Z)
	return (x-centreX)*width + width/2
}

// LatitudeToTileY converts a latitude to a pixel y coordinate relative to
// this tile's bounds at the given resize factor.
func (t Tile) LatitudeToTileY(latitude float64, resizeFactor float64) float64 {
	height := float64(t.TileSize) * resizeFactor
	y := LatitudeToY(latitude, t.Z)
	midLat, _ := t.Middle()
	centreY := LatitudeToY(midLat, t.Z)
	return (y-centreY)*height + height/2
}

// TranslateToTile converts a (latitude, longitude) pair to a pixel (x, y)
// position within this tile at the given resize factor.
func (t Tile) TranslateToTile(latitude, longitude, resizeFactor float64) (x, y float64) {
	return t.LongitudeToTileX(longitude, resizeFactor), t.LatitudeToTileY(latitude, resizeFactor)
}
