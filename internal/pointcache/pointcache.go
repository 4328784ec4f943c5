// Package pointcache is a process-wide, grow-only, memoised cache of
// pre-rendered point discs and heatmap kernels. Entries are immutable once
// inserted and are never evicted; concurrent misses on the same key are
// collapsed via singleflight so they share one drawing, and the first image
// stored for a key is the one every caller receives.
package pointcache

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/arxos/tile-server/internal/tileparams"
)

// Cache holds the shared point-image and heatmap-kernel tables.
type Cache struct {
	points   sync.Map // pointKey -> *image.RGBA
	kernels  sync.Map // kernelKey -> *image.RGBA
	pointsSF singleflight.Group
	kernelSF singleflight.Group
}

// New constructs an empty Cache.
func New() *Cache {
	return &Cache{}
}

type pointKey struct {
	radius, borderWidth, resizeFactor int
	fill, border                      [4]uint8
}

// GetPoint returns the cached point disc for the given parameters, drawing
// it on first request for that key.
func (c *Cache) GetPoint(radius, borderWidth, resizeFactor int, fill, border tileparams.Colour) *image.RGBA {
	fr, fg, fb, fa := fill.RGBA()
	br, bg, bb, ba := border.RGBA()
	key := pointKey{radius, borderWidth, resizeFactor, [4]uint8{fr, fg, fb, fa}, [4]uint8{br, bg, bb, ba}}

	if v, ok := c.points.Load(key); ok {
		return v.(*image.RGBA)
	}

	keyStr := fmt.Sprintf("%+v", key)
	v, _, _ := c.pointsSF.Do(keyStr, func() (interface{}, error) {
		img := drawPoint(radius, borderWidth, resizeFactor, fill, border)
		actual, _ := c.points.LoadOrStore(key, img)
		return actual, nil
	})
	return v.(*image.RGBA)
}

type kernelKey struct {
	radius, weight int
	intensity      float64
}

// GetHeatmapKernel returns the cached alpha kernel for the given
// parameters, drawing it on first request for that key.
func (c *Cache) GetHeatmapKernel(radius, weight int, intensity float64) *image.RGBA {
	key := kernelKey{radius, weight, intensity}

	if v, ok := c.kernels.Load(key); ok {
		return v.(*image.RGBA)
	}

	keyStr := fmt.Sprintf("%+v", key)
	v, _, _ := c.kernelSF.Do(keyStr, func() (interface{}, error) {
		img := drawHeatmapKernel(radius, weight, intensity)
		actual, _ := c.kernels.LoadOrStore(key, img)
		return actual, nil
	})
	return v.(*image.RGBA)
}

// drawPoint renders a disc of the given total radius: an outer ellipse in
// the border colour (skipped when borderWidth is 0) and an inner ellipse in
// the fill colour, inset by the scaled border width.
func drawPoint(radius, borderWidth, resizeFactor int, fill, border tileparams.Colour) *image.RGBA {
	d := radius * 2 * resizeFactor
	img := image.NewRGBA(image.Rect(0, 0, d, d))
	farSide := d - 1

	drawBorder := borderWidth > 0
	scaledBorder := borderWidth * resizeFactor

	if drawBorder {
		fillEllipse(img, 0, 0, farSide, farSide, colourOf(border))
		fillEllipse(img, scaledBorder, scaledBorder, farSide-scaledBorder, farSide-scaledBorder, colourOf(fill))
	} else {
		fillEllipse(img, 0, 0, farSide, farSide, colourOf(fill))
	}
	return img
}

func colourOf(c tileparams.Colour) color.RGBA {
	r, g, b, a := c.RGBA()
	return color.RGBA{R: r, G: g, B: b, A: a}
}

// fillEllipse paints pixels whose centre lies within the ellipse inscribed
// in the inclusive box [x0,y0,x1,y1].
func fillEllipse(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	if x1 < x0 || y1 < y0 {
		return
	}
	cx := float64(x0+x1) / 2
	cy := float64(y0+y1) / 2
	rx := float64(x1-x0+1) / 2
	ry := float64(y1-y0+1) / 2
	if rx <= 0 || ry <= 0 {
		return
	}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			dx := (float64(x) - cx) / rx
			dy := (float64(y) - cy) / ry
			if dx*dx+dy*dy <= 1.0 {
				img.SetRGBA(x, y, c)
			}
		}
	}
}

// drawHeatmapKernel renders a dxd alpha kernel whose alpha falls off
// radially from the centre, scaled by the bucket weight.
func drawHeatmapKernel(radius, weight int, intensity float64) *image.RGBA {
	d := radius * 2
	img := image.NewRGBA(image.Rect(0, 0, d, d))
	r := float64(radius)
	norm := math.Sqrt2 * r

	for y := 0; y < d; y++ {
		for x := 0; x < d; x++ {
			dx := float64(x) - r
			dy := float64(y) - r
			distance := math.Sqrt(dx*dx+dy*dy) / norm
			alphaF := intensity - distance
			if alphaF < 0 {
				alphaF = 0
			}
			alpha := int(255*alphaF) * weight
			if alpha > 0 {
				if alpha > 255 {
					alpha = 255
				}
				img.SetRGBA(x, y, color.RGBA{A: uint8(alpha)})
			}
		}
	}
	return img
}
