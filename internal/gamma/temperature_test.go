package gamma

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKelvinToRGB_Daylight(t *testing.T) {
	c := KelvinToRGB(6600)

	assert.InDelta(t, 255, c.R, 0.5)
	assert.InDelta(t, 255, c.G, 0.5)
	assert.InDelta(t, 255, c.B, 0.5)
}

func TestKelvinToRGB_Candle(t *testing.T) {
	c := KelvinToRGB(1000)

	assert.Equal(t, 255.0, c.R)
	assert.InDelta(t, 67.9, c.G, 0.5)
	assert.Equal(t, 0.0, c.B)
	assert.Greater(t, c.R, c.G)
}

func TestKelvinToRGB_Cool(t *testing.T) {
	c := KelvinToRGB(10000)

	assert.Less(t, c.R, 255.0)
	assert.Less(t, c.R, c.B)
	assert.Equal(t, 255.0, c.B)
}

func TestKelvinToRGB_Clamped(t *testing.T) {
	for _, k := range []float64{1, 500, 1000, 2700, 4000, 6500, 6600, 6700, 15000, 40000} {
		c := KelvinToRGB(k)
		for _, v := range []float64{c.R, c.G, c.B} {
			if v < 0 || v > 255 {
				t.Errorf("KelvinToRGB(%v) channel %v outside [0, 255]", k, v)
			}
		}
	}
}

func TestKelvinToGamma_Normalized(t *testing.T) {
	g := KelvinToGamma(6600)
	assert.InDelta(t, 1.0, g.Red, 0.002)
	assert.InDelta(t, 1.0, g.Green, 0.002)
	assert.InDelta(t, 1.0, g.Blue, 0.002)

	warm := KelvinToGamma(2700)
	assert.Equal(t, 1.0, warm.Red)
	assert.Less(t, warm.Blue, warm.Green)
}
