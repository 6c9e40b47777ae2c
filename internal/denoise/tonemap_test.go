package denoise

import (
	"math"
	"math/rand"
	"testing"

	"github.com/erinpentecost/hdrdenoise/internal/hdrimage"
	"github.com/stretchr/testify/require"
)

func TestLuminance(t *testing.T) {
	require.Equal(t, float32(0), Luminance(hdrimage.Color{}))
	require.Equal(t, float32(1), Luminance(hdrimage.Color{1, 1, 1}))
	require.InDelta(t, 0.2126, Luminance(hdrimage.Color{1, 0, 0}), 1e-7)
	require.InDelta(t, 0.7152, Luminance(hdrimage.Color{0, 1, 0}), 1e-7)
	require.InDelta(t, 0.0722, Luminance(hdrimage.Color{0, 0, 1}), 1e-7)
}

func TestTonemapRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for range 1000 {
		c := hdrimage.Color{rng.Float32() * 20, rng.Float32() * 20, rng.Float32() * 20}
		back := InverseTonemap(Tonemap(c))
		for ch := range c {
			require.InDelta(t, c[ch], back[ch], 1e-4*float64(1+c[ch]), "color %v", c)
		}
	}
}

func TestTonemapCompresses(t *testing.T) {
	tm := Tonemap(hdrimage.Color{1000, 1000, 1000})
	require.Less(t, Luminance(tm), float32(1))
	require.Greater(t, Luminance(tm), float32(0.99))
}

func TestInverseTonemapUnitLuminance(t *testing.T) {
	c := InverseTonemap(hdrimage.Color{1, 1, 1})
	for ch := range c {
		require.True(t, math.IsInf(float64(c[ch]), 1), "channel %d = %v", ch, c[ch])
	}
}
