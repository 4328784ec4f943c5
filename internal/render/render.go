// Package render implements components E, F and G: the Plot, Gridded and
// Heatmap tile renderers. Each renderer consumes an ordered bucket list and
// produces a 256x256 (or tile.TileSize) RGBA raster.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"sort"

	"github.com/disintegration/imaging"

	"github.com/arxos/tile-server/internal/bucket"
	"github.com/arxos/tile-server/internal/pointcache"
	"github.com/arxos/tile-server/internal/projection"
	"github.com/arxos/tile-server/internal/tileerr"
	"github.com/arxos/tile-server/internal/tileparams"
)

// Plot pastes one point disc per bucket at its tile-pixel centre, painting
// in the given bucket order so later buckets land on top. Buckets arrive
// in ascending-count order, so the highest-count bucket paints last.
func Plot(tile projection.Tile, buckets []*bucket.Bucket, cache *pointcache.Cache, params tileparams.PlotParams) (*image.RGBA, error) {
	rf := params.ResizeFactor
	if rf < 1 {
		rf = 1
	}
	width := tile.TileSize * rf
	canvas := image.NewRGBA(image.Rect(0, 0, width, width))

	pointImage := cache.GetPoint(params.PointRadius, params.BorderWidth, rf, params.PointColour, params.BorderColour)
	scaledRadius := params.PointRadius * rf

	for _, b := range buckets {
		x, y := tile.TranslateToTile(b.CentreLat, b.CentreLon, float64(rf))
		pasteAt(canvas, pointImage, roundTo(x)-scaledRadius, roundTo(y)-scaledRadius)
	}

	return downsample(canvas, tile.TileSize, rf), nil
}

// CellAgg is the accumulated state of one Gridded cell: total record count
// and the first bucket assigned to it, in the order of the bucket list
// passed in.
type CellAgg struct {
	Count int
	First *bucket.Bucket
}

// GroupIntoCells places each bucket into the cell containing its tile-pixel
// position at the grid's cell ratio, accumulating counts and recording the
// first-assigned bucket per cell. Buckets landing outside the grid are
// dropped. Shared by the Gridded renderer and the Gridded UTFGrid marks.
func GroupIntoCells(tile projection.Tile, buckets []*bucket.Bucket, gridResolution int) ([][]CellAgg, int, error) {
	if gridResolution <= 0 || tile.TileSize%gridResolution != 0 {
		return nil, 0, tileerr.GridNotPowerOfTwo(tile.TileSize / maxInt(gridResolution, 1))
	}
	gridSize := tile.TileSize / gridResolution
	if !projection.IsPowerOfTwo(gridSize) {
		return nil, 0, tileerr.GridNotPowerOfTwo(gridSize)
	}

	grid := make([][]CellAgg, gridSize)
	for i := range grid {
		grid[i] = make([]CellAgg, gridSize)
	}

	cellRatio := float64(tile.TileSize/gridResolution) / float64(tile.TileSize)

	for _, b := range buckets {
		x, y := tile.TranslateToTile(b.CentreLat, b.CentreLon, cellRatio)
		if x < 0 || x >= float64(gridSize) || y < 0 || y >= float64(gridSize) {
			continue
		}
		gx, gy := int(x), int(y)
		cell := &grid[gy][gx]
		cell.Count += b.Total
		if cell.First == nil {
			cell.First = b
		}
	}

	return grid, gridSize, nil
}

// Gridded groups buckets into grid_resolution-sized cells and colours each
// non-empty cell via the exponential-threshold colour ramp.
func Gridded(tile projection.Tile, buckets []*bucket.Bucket, cache *pointcache.Cache, params tileparams.GriddedParams) (*image.RGBA, error) {
	grid, _, err := GroupIntoCells(tile, buckets, params.GridResolution)
	if err != nil {
		return nil, err
	}

	rf := params.ResizeFactor
	if rf < 1 {
		rf = 1
	}
	width := tile.TileSize * rf
	canvas := image.NewRGBA(image.Rect(0, 0, width, width))

	pointRadius := params.GridResolution / 2
	thresholds := exponentialThresholds(params.RangeSize)
	colours := params.ColdColour.RangeTo(params.HotColour, params.RangeSize+1)
	noBorder := tileparams.Colour{}

	for gy, row := range grid {
		for gx, cell := range row {
			if cell.Count == 0 {
				continue
			}
			idx := bisectLeft(thresholds, cell.Count)
			colour := colours[idx]
			pointImage := cache.GetPoint(pointRadius, 0, rf, colour, noBorder)
			px := roundTo(float64(gx * params.GridResolution * rf))
			py := roundTo(float64(gy * params.GridResolution * rf))
			pasteAt(canvas, pointImage, px, py)
		}
	}

	return downsample(canvas, tile.TileSize, rf), nil
}

// exponentialThresholds returns [floor(e^0), floor(e^1), ..., floor(e^(n-1))].
func exponentialThresholds(rangeSize int) []int {
	out := make([]int, rangeSize)
	for i := 0; i < rangeSize; i++ {
		out[i] = int(math.Exp(float64(i)))
	}
	return out
}

// bisectLeft returns the leftmost insertion point for target in a sorted,
// ascending slice.
func bisectLeft(sorted []int, target int) int {
	return sort.Search(len(sorted), func(i int) bool { return sorted[i] >= target })
}

// Heatmap alpha-composites a radial kernel per bucket onto a padded canvas,
// remaps alpha through a 256-entry cold/hot palette, smooths, and crops back
// to tile size. The canvas is padded by one point diameter on every side so
// kernels near the tile edge are not clipped before the crop.
func Heatmap(tile projection.Tile, buckets []*bucket.Bucket, cache *pointcache.Cache, params tileparams.HeatmapParams) (*image.RGBA, error) {
	diameter := params.PointRadius * 2
	width := tile.TileSize + diameter*2
	canvas := image.NewRGBA(image.Rect(0, 0, width, width))

	for _, b := range buckets {
		x, y := tile.TranslateToTile(b.CentreLat, b.CentreLon, 1)
		weight := projection.ClampInt(int(math.Log(float64(b.Total))), 1, 10)
		kernel := cache.GetHeatmapKernel(params.PointRadius, weight, params.Intensity)
		compositeOver(canvas, kernel, roundTo(x)+params.PointRadius, roundTo(y)+params.PointRadius)
	}

	palette := buildPalette(params.ColdColour, params.HotColour)
	remapAlphaToPalette(canvas, palette)
	smoothMore(canvas)

	cropped := imaging.Crop(canvas, image.Rect(diameter, diameter, tile.TileSize+diameter, tile.TileSize+diameter))
	return toRGBA(cropped), nil
}

// buildPalette interpolates 256 colours from cold to hot; index i carries
// alpha i, so index 0 is fully transparent. Entries are non-premultiplied;
// Set premultiplies on write.
func buildPalette(cold, hot tileparams.Colour) [256]color.NRGBA {
	var palette [256]color.NRGBA
	ramp := cold.RangeTo(hot, 256)
	for i, c := range ramp {
		r, g, b, _ := c.RGBA()
		palette[i] = color.NRGBA{R: r, G: g, B: b, A: uint8(i)}
	}
	return palette
}

func remapAlphaToPalette(img *image.RGBA, palette [256]color.NRGBA) {
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			_, _, _, a := img.At(x, y).RGBA()
			alpha8 := uint8(a >> 8)
			c := palette[alpha8]
			img.Set(x, y, c)
		}
	}
}

// smoothMore applies a mild 3x3 low-pass convolution: the kernel sums to
// 100 with a heavy centre weight and light neighbours, softening the hard
// kernel edges left by compositing.
func smoothMore(img *image.RGBA) {
	kernel := [3][3]int{
		{1, 1, 1},
		{1, 92, 1},
		{1, 1, 1},
	}
	const kernelSum = 100

	bounds := img.Bounds()
	src := make([]uint8, len(img.Pix))
	copy(src, img.Pix)
	stride := img.Stride

	at := func(x, y, channel int) int {
		x = clampInt(x, bounds.Min.X, bounds.Max.X-1)
		y = clampInt(y, bounds.Min.Y, bounds.Max.Y-1)
		return int(src[(y-bounds.Min.Y)*stride+(x-bounds.Min.X)*4+channel])
	}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			for channel := 0; channel < 4; channel++ {
				sum := 0
				for ky := -1; ky <= 1; ky++ {
					for kx := -1; kx <= 1; kx++ {
						sum += at(x+kx, y+ky, channel) * kernel[ky+1][kx+1]
					}
				}
				idx := (y-bounds.Min.Y)*stride + (x-bounds.Min.X)*4 + channel
				img.Pix[idx] = uint8(clampInt(sum/kernelSum, 0, 255))
			}
		}
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	bounds := img.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, img, bounds.Min, draw.Src)
	return out
}

// pasteAt composites src onto dst with its top-left corner at (x, y) using
// alpha-over compositing.
func pasteAt(dst *image.RGBA, src *image.RGBA, x, y int) {
	rect := image.Rect(x, y, x+src.Bounds().Dx(), y+src.Bounds().Dy())
	draw.Draw(dst, rect, src, src.Bounds().Min, draw.Over)
}

func compositeOver(dst *image.RGBA, src *image.RGBA, x, y int) {
	pasteAt(dst, src, x, y)
}

// downsample resizes the oversampled canvas down to tileSize using a
// Lanczos filter, skipping the resize entirely when resizeFactor is 1.
func downsample(canvas *image.RGBA, tileSize, resizeFactor int) *image.RGBA {
	if resizeFactor == 1 {
		return canvas
	}
	resized := imaging.Resize(canvas, tileSize, tileSize, imaging.Lanczos)
	return toRGBA(resized)
}

// roundTo implements arithmetic (half-away-from-zero) rounding, used
// consistently for pixel placement across the renderers and the UTFGrid
// encoder.
func roundTo(v float64) int {
	if v >= 0 {
		return int(v + 0.5)
	}
	return -int(-v + 0.5)
}
