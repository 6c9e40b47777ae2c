package denoise

import "github.com/erinpentecost/hdrdenoise/internal/hdrimage"

// DecodeNormals rewrites a normal pass stored as (n+1)/2 in [0,1] into unit
// vectors in [-1,1], in place. Pixels that decode to the zero vector become NaN.
//
// Filter expects decoded normals, so call this on a copy of the loaded
// normal pass first.
func DecodeNormals(img *hdrimage.Image) {
	for iy := range img.Height {
		for ix := range img.Width {
			v := img.Load(ix, iy)
			for i := range v {
				v[i] = hdrimage.Clamp(2*v[i]-1, -1, 1)
			}
			img.Store(ix, iy, hdrimage.NormalizeUnsafe(v))
		}
	}
}
