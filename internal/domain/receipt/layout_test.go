package receipt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFitWithin(t *testing.T) {
	t.Run("scales down by the larger overflow ratio", func(t *testing.T) {
		w, h := FitWithin(1200, 800, 170, 257)
		assert.InDelta(t, 170.0, w, 0.0001)
		assert.InDelta(t, 113.3333, h, 0.001)
		assert.InDelta(t, 1.5, w/h, 0.0001)
	})

	t.Run("tall image is bounded by height", func(t *testing.T) {
		w, h := FitWithin(600, 2000, 170, 257)
		assert.InDelta(t, 257.0, h, 0.0001)
		assert.InDelta(t, 77.1, w, 0.0001)
	})

	t.Run("does not upscale", func(t *testing.T) {
		w, h := FitWithin(100, 50, 170, 257)
		assert.Equal(t, 100.0, w)
		assert.Equal(t, 50.0, h)
	})

	t.Run("degenerate size", func(t *testing.T) {
		w, h := FitWithin(0, 50, 170, 257)
		assert.Zero(t, w)
		assert.Zero(t, h)
	})
}

func TestImagePlacement(t *testing.T) {
	r := ImagePlacement(1200, 800)

	assert.LessOrEqual(t, r.W, PrintableWidth())
	assert.LessOrEqual(t, r.H, PrintableHeight())
	assert.InDelta(t, 1.5, r.W/r.H, 0.01)
	assert.InDelta(t, PageWidth/2, r.X+r.W/2, 0.0001)
	assert.InDelta(t, PageHeight/2, r.Y+r.H/2, 0.0001)
	assert.GreaterOrEqual(t, r.X, Margin)
	assert.GreaterOrEqual(t, r.Y, Margin)
}

func TestLayoutCursor(t *testing.T) {
	c := StartCursor()
	next := c.Advance(20)

	assert.Equal(t, 50.0, c.Y)
	assert.Equal(t, 70.0, next.Y)
	assert.Equal(t, 12.0, next.At(12).Y)
}

func TestFullBleed(t *testing.T) {
	assert.Equal(t, Rect{X: 0, Y: 0, W: PageWidth, H: PageHeight}, FullBleed())
}
