// Package bucket defines the aggregation-result Bucket produced by the
// query adapter and consumed by the renderers and the UTFGrid encoder.
package bucket

// BoundingBox is the geohash cell's extent, derived from its key.
type BoundingBox struct {
	West, East, North, South float64
}

// Bucket is one geohash-grid aggregation cell returned by the backing
// store, decoded into a centre point plus a representative record.
type Bucket struct {
	Key         string
	CentreLat   float64
	CentreLon   float64
	Total       int
	FirstRecord map[string]interface{}
	BBox        BoundingBox
}

// Geo returns the "meta.geo" string ("<lat>,<lon>") of the first record, if
// present.
func (b Bucket) Geo() (string, bool) {
	meta, ok := b.FirstRecord["meta"].(map[string]interface{})
	if !ok {
		return "", false
	}
	geo, ok := meta["geo"].(string)
	return geo, ok
}

// Data returns the "data" sub-tree of the first record, if present.
func (b Bucket) Data() interface{} {
	return b.FirstRecord["data"]
}

// AsGeoJSONPolygon renders the bucket's bounding box as a GeoJSON Polygon
// geometry, outer ring only, corners ordered NW, NE, SE, SW (lon-first).
func (b Bucket) AsGeoJSONPolygon() map[string]interface{} {
	ring := [][2]float64{
		{b.BBox.West, b.BBox.North},
		{b.BBox.East, b.BBox.North},
		{b.BBox.East, b.BBox.South},
		{b.BBox.West, b.BBox.South},
		{b.BBox.West, b.BBox.North},
	}
	coords := make([][]float64, len(ring))
	for i, c := range ring {
		coords[i] = []float64{c[0], c[1]}
	}
	return map[string]interface{}{
		"type":        "Polygon",
		"coordinates": [][][]float64{coords},
	}
}
