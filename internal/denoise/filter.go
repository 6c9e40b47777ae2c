// Package denoise removes Monte Carlo noise from a rendered image with a
// cross-bilateral filter guided by the albedo and normal passes.
//
// Neighbours are averaged in a tonemapped space so that a single bright
// sample cannot dominate its surroundings, and the average is mapped back to
// linear HDR afterwards.
package denoise

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/erinpentecost/hdrdenoise/internal/hdrimage"
	"golang.org/x/sync/errgroup"
)

// Filter runs the cross-bilateral filter over whole images.
type Filter struct {
	Params Params

	// Workers caps the number of rows filtered at once.
	// Zero means runtime.GOMAXPROCS(0).
	Workers int

	// Progress, if set, is called after each finished row with the number of
	// rows done so far in that Apply call. Calls from one Apply are serialized.
	Progress func(done, total int)
}

// NewFilter returns a Filter using every CPU.
func NewFilter(p Params) *Filter {
	return &Filter{Params: p}
}

// Denoise filters color with the default parameters.
// The normal pass must already be decoded with DecodeNormals, and all three
// images must share a resolution.
func Denoise(color, albedo, normal *hdrimage.Image) *hdrimage.Image {
	out, err := NewFilter(DefaultParams()).Apply(context.Background(), color, albedo, normal)
	if err != nil {
		// Default parameters are valid and the context never ends.
		panic(err)
	}
	return out
}

// Apply returns a new, filtered copy of color.
//
// albedo and normal must have the same resolution as color; this is not
// checked. Rows are filtered concurrently and the result does not depend on
// the number of workers.
func (f *Filter) Apply(ctx context.Context, color, albedo, normal *hdrimage.Image) (*hdrimage.Image, error) {
	if err := f.Params.Validate(); err != nil {
		return nil, fmt.Errorf("filter params: %w", err)
	}

	k := newKernel(f.Params, color, albedo, normal)

	workers := f.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	rowDone := progressCounter(f.Progress, color.Height)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for iy := range color.Height {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			k.row(iy)
			rowDone()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("filter rows: %w", err)
	}
	return k.out, nil
}

// progressCounter returns a func to call once per finished row. The count is
// private to the caller so concurrent Apply calls do not share it.
func progressCounter(progress func(done, total int), total int) func() {
	if progress == nil {
		return func() {}
	}
	var mux sync.Mutex
	done := 0
	return func() {
		mux.Lock()
		defer mux.Unlock()
		done++
		progress(done, total)
	}
}

// spatialWeights tabulates exp(-(ox²+oy²)/(2σ²)) for every offset in the
// kernel, indexed [oy+radius][ox+radius] flattened.
func spatialWeights(radius int, variance float32) []float32 {
	size := 2*radius + 1
	out := make([]float32, size*size)
	denom := 2 * variance
	for oy := -radius; oy <= radius; oy++ {
		for ox := -radius; ox <= radius; ox++ {
			d := float32(ox*ox + oy*oy)
			out[(oy+radius)*size+ox+radius] = gauss(d, denom)
		}
	}
	return out
}

func gauss(d2, denom float32) float32 {
	return float32(math.Exp(float64(-d2 / denom)))
}

type kernel struct {
	radius      int
	spatial     []float32
	albedoDenom float32
	normalDenom float32

	color  *hdrimage.Image
	albedo *hdrimage.Image
	normal *hdrimage.Image
	out    *hdrimage.Image
}

func newKernel(p Params, color, albedo, normal *hdrimage.Image) *kernel {
	return &kernel{
		radius:      p.Radius,
		spatial:     spatialWeights(p.Radius, p.SpatialVariance),
		albedoDenom: 2 * p.AlbedoVariance,
		normalDenom: 2 * p.NormalVariance,
		color:       color,
		albedo:      albedo,
		normal:      normal,
		out:         hdrimage.New(color.Width, color.Height),
	}
}

func (k *kernel) row(iy int) {
	for ix := range k.color.Width {
		k.out.Store(ix, iy, k.pixel(ix, iy))
	}
}

func (k *kernel) pixel(ix, iy int) hdrimage.Color {
	colorSum, weightSum := k.accumulate(ix, iy)

	var final hdrimage.Color
	for ch := range final {
		final[ch] = float32(colorSum[ch] / weightSum)
	}
	return InverseTonemap(final)
}

// accumulate sums the weighted, tonemapped neighbourhood of (ix, iy).
// The center offset has a spatial weight of exactly 1, so weightSum is
// positive unless a feature pass holds NaN.
func (k *kernel) accumulate(ix, iy int) (colorSum [3]float64, weightSum float64) {
	albedo := k.albedo.Load(ix, iy)
	normal := k.normal.Load(ix, iy)

	size := 2*k.radius + 1
	for oy := -k.radius; oy <= k.radius; oy++ {
		for ox := -k.radius; ox <= k.radius; ox++ {
			colorNeighbor := k.color.Load(ix+ox, iy+oy)
			albedoNeighbor := k.albedo.Load(ix+ox, iy+oy)
			normalNeighbor := k.normal.Load(ix+ox, iy+oy)

			w0 := k.spatial[(oy+k.radius)*size+ox+k.radius]
			w1 := gauss(hdrimage.DistanceSquared(albedo, albedoNeighbor), k.albedoDenom)
			w2 := gauss(hdrimage.DistanceSquared(normal, normalNeighbor), k.normalDenom)

			w := w0 * w1 * w2
			weightSum += float64(w)

			tonemapped := Tonemap(colorNeighbor)
			for ch := range colorSum {
				colorSum[ch] += float64(w * tonemapped[ch])
			}
		}
	}
	return colorSum, weightSum
}
