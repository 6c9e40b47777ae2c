package denoise

import (
	"math"
	"testing"

	"github.com/erinpentecost/hdrdenoise/internal/hdrimage"
	"github.com/stretchr/testify/require"
)

func TestDecodeNormals(t *testing.T) {
	tests := []struct {
		name   string
		stored hdrimage.Vec3
		want   hdrimage.Vec3
	}{
		{"up", hdrimage.Vec3{0.5, 0.5, 1}, hdrimage.Vec3{0, 0, 1}},
		{"right", hdrimage.Vec3{1, 0.5, 0.5}, hdrimage.Vec3{1, 0, 0}},
		{"down", hdrimage.Vec3{0.5, 0, 0.5}, hdrimage.Vec3{0, -1, 0}},
		{"clamped", hdrimage.Vec3{7, 0.5, 0.5}, hdrimage.Vec3{1, 0, 0}},
		{"renormalized", hdrimage.Vec3{0.75, 0.5, 0.75}, hdrimage.Vec3{float32(math.Sqrt2 / 2), 0, float32(math.Sqrt2 / 2)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := hdrimage.New(2, 1)
			img.Store(0, 0, tt.stored)
			img.Store(1, 0, tt.stored)
			DecodeNormals(img)
			for x := range 2 {
				got := img.Load(x, 0)
				for ch := range got {
					require.InDelta(t, tt.want[ch], got[ch], 1e-6)
				}
				require.InDelta(t, 1, hdrimage.Dot(got, got), 1e-6)
			}
		})
	}
}

func TestDecodeNormalsZeroVector(t *testing.T) {
	img := hdrimage.New(1, 1)
	img.Fill(hdrimage.Vec3{0.5, 0.5, 0.5})
	DecodeNormals(img)
	for _, v := range img.Pix {
		require.True(t, math.IsNaN(float64(v)))
	}
}
