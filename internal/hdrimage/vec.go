package hdrimage

import (
	"cmp"
	"math"
)

// Vec3 is a three component float vector. Directions, normals and colors
// all share this layout.
type Vec3 [3]float32

// Color is a linear RGB triple.
type Color = Vec3

// Clamp limits x to [lo, hi].
func Clamp[T cmp.Ordered](x, lo, hi T) T {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Dot returns the dot product of a and b.
func Dot(a, b Vec3) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

// DistanceSquared returns ||a-b||².
func DistanceSquared(a, b Vec3) float32 {
	return (a[0]-b[0])*(a[0]-b[0]) +
		(a[1]-b[1])*(a[1]-b[1]) +
		(a[2]-b[2])*(a[2]-b[2])
}

// Scale multiplies every component of v by s.
func Scale(v Vec3, s float32) Vec3 {
	return Vec3{v[0] * s, v[1] * s, v[2] * s}
}

// NormalizeUnsafe scales v to unit length.
// A zero vector has no direction; the result is NaN in every component.
func NormalizeUnsafe(v Vec3) Vec3 {
	invLength := 1 / float32(math.Sqrt(float64(Dot(v, v))))
	return Scale(v, invLength)
}
