package pointcache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arxos/tile-server/internal/tileparams"
)

func TestGetPointCachesByKey(t *testing.T) {
	c := New()
	fill := tileparams.Colour{R: 0xee}
	border := tileparams.Colour{R: 0xff, G: 0xff, B: 0xff}

	img1 := c.GetPoint(4, 1, 4, fill, border)
	img2 := c.GetPoint(4, 1, 4, fill, border)
	assert.Same(t, img1, img2)

	img3 := c.GetPoint(5, 1, 4, fill, border)
	assert.NotSame(t, img1, img3)
}

func TestGetPointDimensions(t *testing.T) {
	c := New()
	img := c.GetPoint(4, 1, 4, tileparams.Colour{R: 0xee}, tileparams.Colour{R: 0xff, G: 0xff, B: 0xff})
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, 32, img.Bounds().Dy())
}

func TestGetHeatmapKernelCachesByKey(t *testing.T) {
	c := New()
	k1 := c.GetHeatmapKernel(8, 1, 0.5)
	k2 := c.GetHeatmapKernel(8, 1, 0.5)
	assert.Same(t, k1, k2)

	k3 := c.GetHeatmapKernel(8, 2, 0.5)
	assert.NotSame(t, k1, k3)
}

func TestHeatmapKernelPeaksAtCentre(t *testing.T) {
	c := New()
	k := c.GetHeatmapKernel(8, 1, 1.0)
	_, _, _, centreAlpha := k.At(8, 8).RGBA()
	_, _, _, cornerAlpha := k.At(0, 0).RGBA()
	assert.Greater(t, centreAlpha, cornerAlpha)
}

func TestConcurrentGetPointSingleFlight(t *testing.T) {
	c := New()
	fill := tileparams.Colour{R: 1, G: 2, B: 3}
	border := tileparams.Colour{R: 4, G: 5, B: 6}

	var wg sync.WaitGroup
	results := make([]interface{}, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.GetPoint(6, 2, 4, fill, border)
		}(i)
	}
	wg.Wait()

	first := results[0]
	for _, r := range results {
		assert.Same(t, first, r)
	}
}
