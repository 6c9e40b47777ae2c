package denoise

import "github.com/erinpentecost/hdrdenoise/internal/hdrimage"

// Luminance assumes linear sRGB primaries.
func Luminance(c hdrimage.Color) float32 {
	return c[0]*0.2126 +
		c[1]*0.7152 +
		c[2]*0.0722
}

// Tonemap is a Reinhard-like compressor on luminance.
func Tonemap(c hdrimage.Color) hdrimage.Color {
	return hdrimage.Scale(c, 1/(Luminance(c)+1))
}

// InverseTonemap undoes Tonemap. A color with luminance 1 has no preimage
// and comes back as Inf/NaN.
func InverseTonemap(c hdrimage.Color) hdrimage.Color {
	return hdrimage.Scale(c, 1/(-Luminance(c)+1))
}
