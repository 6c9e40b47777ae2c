// Package hdrimage holds linear, floating point RGB buffers as produced by a
// renderer: beauty (color), albedo and normal passes.
package hdrimage

import "fmt"

const channels = 3

// Image is a row-major grid of RGB float pixels.
// Pix holds Width*Height*3 values. An image with no pixels is invalid.
type Image struct {
	Pix    []float32
	Width  int
	Height int
}

// New returns a zeroed image.
func New(width, height int) *Image {
	return &Image{
		Pix:    make([]float32, width*height*channels),
		Width:  width,
		Height: height,
	}
}

// IsValid reports whether m holds any pixels. A nil image is invalid.
func (m *Image) IsValid() bool {
	return m != nil && len(m.Pix) > 0
}

func (m *Image) String() string {
	return fmt.Sprintf("%dx%d", m.Width, m.Height)
}

// clampedIndex snaps x and y onto the nearest edge pixel and returns the
// offset of its first channel.
func (m *Image) clampedIndex(x, y int) int {
	x = Clamp(x, 0, m.Width-1)
	y = Clamp(y, 0, m.Height-1)
	return (x + y*m.Width) * channels
}

// Load returns the pixel at (x, y). Coordinates outside the image read the
// closest edge pixel.
func (m *Image) Load(x, y int) Color {
	i := m.clampedIndex(x, y)
	return Color{m.Pix[i], m.Pix[i+1], m.Pix[i+2]}
}

// Store writes c at (x, y), with the same coordinate clamping as Load.
func (m *Image) Store(x, y int, c Color) {
	i := m.clampedIndex(x, y)
	m.Pix[i] = c[0]
	m.Pix[i+1] = c[1]
	m.Pix[i+2] = c[2]
}

// Fill sets every pixel to c.
func (m *Image) Fill(c Color) {
	for i := 0; i < len(m.Pix); i += channels {
		m.Pix[i] = c[0]
		m.Pix[i+1] = c[1]
		m.Pix[i+2] = c[2]
	}
}

// Clone returns a deep copy of m.
func (m *Image) Clone() *Image {
	out := &Image{
		Pix:    make([]float32, len(m.Pix)),
		Width:  m.Width,
		Height: m.Height,
	}
	copy(out.Pix, m.Pix)
	return out
}

// SameSize reports whether a and b share a resolution.
func SameSize(a, b *Image) bool {
	return a.Width == b.Width && a.Height == b.Height
}
