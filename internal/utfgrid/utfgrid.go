// Package utfgrid implements component H: the UTFGrid-1.3 encoder that
// turns a bucket list into the grid/keys/data interaction document, with
// style-specific mark extraction for Plot and Gridded (Heatmap has none).
package utfgrid

import (
	"strconv"

	"github.com/arxos/tile-server/internal/bucket"
	"github.com/arxos/tile-server/internal/geoquery"
	"github.com/arxos/tile-server/internal/projection"
	"github.com/arxos/tile-server/internal/render"
	"github.com/arxos/tile-server/internal/tileerr"
)

// Document is the UTFGrid-1.3 wire shape.
type Document struct {
	Grid []string              `json:"grid"`
	Keys []string              `json:"keys"`
	Data map[string]interface{} `json:"data"`
}

// mark is one (point_data, gx, gy) record produced by BuildPlot or
// BuildGridded.
type mark struct {
	data interface{}
	gx   float64
	gy   float64
}

// BuildPlot produces the UTFGrid document for the Plot style: one mark per
// bucket, record_latitude/longitude fixed to the bucket centre and
// geo_filter set to the bucket's GeoJSON polygon. Single-record buckets get
// no special treatment.
func BuildPlot(tile projection.Tile, buckets []*bucket.Bucket, gridResolution, pointWidth int) (Document, error) {
	gridSize, err := gridSizeFor(tile, gridResolution)
	if err != nil {
		return Document{}, err
	}

	marks := make([]mark, 0, len(buckets))
	cellRatio := float64(tile.TileSize/gridResolution) / float64(tile.TileSize)
	for _, b := range buckets {
		gx, gy := tile.TranslateToTile(b.CentreLat, b.CentreLon, cellRatio)
		marks = append(marks, mark{
			data: map[string]interface{}{
				"count":            b.Total,
				"data":             bucket.RebuildData(b.Data()),
				"record_latitude":  b.CentreLat,
				"record_longitude": b.CentreLon,
				"geo_filter":       b.AsGeoJSONPolygon(),
			},
			gx: gx,
			gy: gy,
		})
	}

	return assemble(gridSize, pointWidth, marks), nil
}

// BuildGridded produces the UTFGrid document for the Gridded style: one
// mark per non-empty cell, record_latitude/longitude parsed from the cell's
// first record's meta.geo string.
func BuildGridded(tile projection.Tile, buckets []*bucket.Bucket, gridResolution, pointWidth int) (Document, error) {
	grid, gridSize, err := render.GroupIntoCells(tile, buckets, gridResolution)
	if err != nil {
		return Document{}, err
	}

	marks := make([]mark, 0)
	for gy, row := range grid {
		for gx, cell := range row {
			if cell.Count == 0 {
				continue
			}
			pointData := map[string]interface{}{
				"count": cell.Count,
				"data":  bucket.RebuildData(cell.First.Data()),
			}
			if lat, lon, ok := geoquery.RecordGeo(cell.First.FirstRecord); ok {
				pointData["record_latitude"] = lat
				pointData["record_longitude"] = lon
			}
			marks = append(marks, mark{data: pointData, gx: float64(gx), gy: float64(gy)})
		}
	}

	return assemble(gridSize, pointWidth, marks), nil
}

func gridSizeFor(tile projection.Tile, gridResolution int) (int, error) {
	if gridResolution <= 0 || tile.TileSize%gridResolution != 0 {
		return 0, tileerr.GridNotPowerOfTwo(tile.TileSize / maxInt(gridResolution, 1))
	}
	gridSize := tile.TileSize / gridResolution
	if !projection.IsPowerOfTwo(gridSize) {
		return 0, tileerr.GridNotPowerOfTwo(gridSize)
	}
	return gridSize, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// assemble builds the grid/keys/data document from extracted marks. A mark
// whose diamond lands entirely off-grid allocates no key.
func assemble(gridSize, pointWidth int, marks []mark) Document {
	grid := make([][]rune, gridSize)
	for i := range grid {
		row := make([]rune, gridSize)
		for j := range row {
			row[j] = ' '
		}
		grid[i] = row
	}

	keys := []string{""}
	data := map[string]interface{}{}

	for _, m := range marks {
		cells := diamondCells(roundHalfUp(m.gx), roundHalfUp(m.gy), pointWidth, gridSize)
		if len(cells) == 0 {
			continue
		}

		pointID := len(keys)
		glyph := encodeID(pointID)
		for _, c := range cells {
			grid[c[1]][c[0]] = glyph
		}

		idStr := strconv.Itoa(pointID)
		keys = append(keys, idStr)
		data[idStr] = m.data
	}

	out := Document{Grid: make([]string, gridSize), Keys: keys, Data: data}
	for i, row := range grid {
		out.Grid[i] = string(row)
	}
	return out
}

// diamondCells returns the in-bounds cells to paint around (cx, cy) for the
// given point_width: a Manhattan-distance diamond of half-width
// offset = point_width / 2, so width 3 marks 5 cells and width 5 marks 13.
func diamondCells(cx, cy, pointWidth, gridSize int) [][2]int {
	offset := pointWidth / 2
	var out [][2]int

	if offset == 0 {
		if inBounds(cx, cy, gridSize) {
			out = append(out, [2]int{cx, cy})
		}
		return out
	}

	for i := -offset; i <= offset; i++ {
		for j := -offset; j <= offset; j++ {
			if abs(i)+abs(j) > offset {
				continue
			}
			x, y := cx+i, cy+j
			if inBounds(x, y, gridSize) {
				out = append(out, [2]int{x, y})
			}
		}
	}
	return out
}

func inBounds(x, y, gridSize int) bool {
	return x >= 0 && x < gridSize && y >= 0 && y < gridSize
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func roundHalfUp(v float64) int {
	if v >= 0 {
		return int(v + 0.5)
	}
	return -int(-v + 0.5)
}

// encodeID implements the UTFGrid-1.3 escape: enc(k) = k + 32; skip 34 (")
// and 92 (\) by incrementing past them.
func encodeID(pointID int) rune {
	enc := pointID + 32
	if enc >= 34 {
		enc++
	}
	if enc >= 92 {
		enc++
	}
	return rune(enc)
}
