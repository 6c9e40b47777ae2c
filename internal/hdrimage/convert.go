package hdrimage

import (
	"image"
	"image/color"
	"math"
)

// DefaultGamma is the transfer curve assumed for 8 and 16 bit inputs.
const DefaultGamma = 2.2

// FromImage converts an integer image into linear floats.
// Each channel becomes (v/max)^gamma. Alpha is dropped.
func FromImage(src image.Image, gamma float64) *Image {
	b := src.Bounds()
	out := New(b.Dx(), b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBA64Model.Convert(src.At(x, y)).(color.NRGBA64)
			out.Store(x-b.Min.X, y-b.Min.Y, Color{
				toLinear(c.R, gamma),
				toLinear(c.G, gamma),
				toLinear(c.B, gamma),
			})
		}
	}
	return out
}

func toLinear(v uint16, gamma float64) float32 {
	n := float64(v) / math.MaxUint16
	if gamma != 1 {
		n = math.Pow(n, gamma)
	}
	return float32(n)
}

// ToNRGBA quantizes the image to 8 bits per channel with an opaque alpha.
// Values are clamped to [0,1] and encoded with 1/gamma. NaN becomes black.
func (m *Image) ToNRGBA(gamma float64) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, m.Width, m.Height))
	for y := range m.Height {
		for x := range m.Width {
			c := m.Load(x, y)
			out.SetNRGBA(x, y, color.NRGBA{
				R: fromLinear(c[0], gamma),
				G: fromLinear(c[1], gamma),
				B: fromLinear(c[2], gamma),
				A: math.MaxUint8,
			})
		}
	}
	return out
}

func fromLinear(v float32, gamma float64) uint8 {
	n := float64(v)
	if math.IsNaN(n) {
		return 0
	}
	n = Clamp(n, 0, 1)
	if gamma != 1 {
		n = math.Pow(n, 1/gamma)
	}
	return uint8(math.Round(n * math.MaxUint8))
}
