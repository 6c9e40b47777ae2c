package rgbe

import (
	"bytes"
	"image"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/erinpentecost/hdrdenoise/internal/hdrimage"
	"github.com/stretchr/testify/require"
)

func randomImage(rng *rand.Rand, w, h int) *hdrimage.Image {
	img := hdrimage.New(w, h)
	for i := range img.Pix {
		img.Pix[i] = rng.Float32() * 50
	}
	return img
}

// requireClose checks every channel against the precision of an 8 bit
// mantissa shared by the pixel.
func requireClose(t *testing.T, want, got *hdrimage.Image) {
	t.Helper()
	require.True(t, hdrimage.SameSize(want, got))
	for y := range want.Height {
		for x := range want.Width {
			w, g := want.Load(x, y), got.Load(x, y)
			tol := float64(max(w[0], w[1], w[2])) / 128
			for ch := range w {
				require.InDelta(t, w[ch], g[ch], tol, "pixel %d,%d", x, y)
			}
		}
	}
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	tests := []struct {
		name string
		w, h int
	}{
		{"flat narrow", 5, 3},
		{"rle", 64, 4},
		{"rle minimum width", 8, 2},
		{"single pixel", 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := randomImage(rng, tt.w, tt.h)
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, img))

			got, err := Decode(&buf)
			require.NoError(t, err)
			requireClose(t, img, got)
		})
	}
}

func TestRoundTripRuns(t *testing.T) {
	img := hdrimage.New(300, 2)
	img.Fill(hdrimage.Color{1, 0.5, 0.25})
	for x := 100; x < 103; x++ {
		img.Store(x, 0, hdrimage.Color{4, 4, 4})
	}
	img.Store(299, 1, hdrimage.Color{0, 0, 0})

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, img))
	// Runs should make this far smaller than 4 bytes per pixel.
	require.Less(t, buf.Len(), 300*2*4/4)

	got, err := Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, img.Pix, got.Pix)
}

func TestEncodeSpecialValues(t *testing.T) {
	img := hdrimage.New(3, 1)
	img.Store(0, 0, hdrimage.Color{float32(math.NaN()), 1, 1})
	img.Store(1, 0, hdrimage.Color{float32(math.Inf(1)), 1, 1})
	img.Store(2, 0, hdrimage.Color{-1, 0.5, 0})

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, img))
	got, err := Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, hdrimage.Color{}, got.Load(0, 0))
	require.Equal(t, hdrimage.Color{}, got.Load(1, 0))
	require.Equal(t, hdrimage.Color{0, 0.5, 0}, got.Load(2, 0))
}

func TestEncodeClampsOverflow(t *testing.T) {
	img := hdrimage.New(1, 1)
	img.Store(0, 0, hdrimage.Color{math.MaxFloat32, math.MaxFloat32 / 2, 0})

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, img))
	got, err := Decode(&buf)
	require.NoError(t, err)
	brightest := float32(math.Ldexp(255, math.MaxUint8-136))
	c := got.Load(0, 0)
	require.Equal(t, brightest, c[0])
	require.InDelta(t, 0.5, c[1]/c[0], 0.01)
	require.Zero(t, c[2])
}

func TestEncodeEmpty(t *testing.T) {
	require.Error(t, Encode(&bytes.Buffer{}, &hdrimage.Image{}))
}

func TestDecodeFlatScanlineInRLEWidth(t *testing.T) {
	// Width 8 without the 2 2 marker is read as flat RGBE.
	var buf bytes.Buffer
	buf.WriteString("#?RGBE\nEXPOSURE=1.0\n\n-Y 1 +X 8\n")
	for range 8 {
		buf.Write([]byte{128, 64, 0, 129})
	}
	img, err := Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, hdrimage.Color{1, 0.5, 0}, img.Load(7, 0))
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"signature", "P6\n"},
		{"format", "#?RADIANCE\nFORMAT=32-bit_rle_xyze\n\n-Y 1 +X 1\n\x00\x00\x00\x00"},
		{"resolution", "#?RADIANCE\n\n+Y 1 -X 1\n\x00\x00\x00\x00"},
		{"truncated", "#?RADIANCE\n\n-Y 2 +X 1\n\x00\x00\x00\x00"},
		{"rle width", "#?RADIANCE\n\n-Y 1 +X 8\n\x02\x02\x00\x09"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader([]byte(tt.data)))
			require.Error(t, err)
		})
	}
}

func TestDecodeRejectsHugeResolution(t *testing.T) {
	for _, res := range []string{"-Y 16000000 +X 16000000", "-Y 16385 +X 16384"} {
		data := "#?RADIANCE\n" + formatLine + "\n\n" + res + "\n\x00\x00\x00\x00"
		_, err := Decode(strings.NewReader(data))
		require.ErrorIs(t, err, ErrFormat, res)

		_, err = DecodeConfig(strings.NewReader(data))
		require.ErrorIs(t, err, ErrFormat, res)
	}
}

func TestRegisteredFormat(t *testing.T) {
	img := hdrimage.New(9, 2)
	img.Fill(hdrimage.Color{0.5, 0.5, 0.5})
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, img))

	cfg, name, err := image.DecodeConfig(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, "hdr", name)
	require.Equal(t, 9, cfg.Width)
	require.Equal(t, 2, cfg.Height)
}
