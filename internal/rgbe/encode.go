package rgbe

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/erinpentecost/hdrdenoise/internal/hdrimage"
)

const (
	minRun     = 4
	maxRun     = 127
	maxLiteral = 128
)

// Encode writes img as a run length encoded Radiance image.
// RGBE has no sign, so negative channels are written as zero. A pixel with a
// NaN or infinite channel is written as black, and finite values beyond the
// exponent range are clamped to the brightest encodable value.
func Encode(w io.Writer, img *hdrimage.Image) error {
	if !img.IsValid() {
		return errors.New("rgbe: empty image")
	}
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "#?RADIANCE\n%s\n\n-Y %d +X %d\n", formatLine, img.Height, img.Width); err != nil {
		return err
	}

	rle := img.Width >= minRLEWidth && img.Width <= maxRLEWidth
	scanline := make([]byte, img.Width*4)
	plane := make([]byte, img.Width)
	for y := range img.Height {
		for x := range img.Width {
			p := scanline[x*4 : x*4+4]
			p[0], p[1], p[2], p[3] = fromFloat(img.Load(x, y))
		}
		if !rle {
			if _, err := bw.Write(scanline); err != nil {
				return err
			}
			continue
		}
		if _, err := bw.Write([]byte{2, 2, byte(img.Width >> 8), byte(img.Width)}); err != nil {
			return err
		}
		for ch := range 4 {
			for x := range img.Width {
				plane[x] = scanline[x*4+ch]
			}
			if err := writePlane(bw, plane); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// writePlane emits one channel of a scanline as runs (count > 128) and
// literal spans (count <= 128).
func writePlane(w io.ByteWriter, data []byte) error {
	for start := 0; start < len(data); {
		// Find the next run that is long enough to be worth encoding.
		runStart := start
		runLen := 0
		for runStart < len(data) {
			runLen = 1
			for runStart+runLen < len(data) && runLen < maxRun && data[runStart+runLen] == data[runStart] {
				runLen++
			}
			if runLen >= minRun {
				break
			}
			runStart += runLen
		}
		if runStart >= len(data) {
			runLen = 0
		}

		// Literal bytes before the run.
		for start < runStart {
			n := min(runStart-start, maxLiteral)
			if err := w.WriteByte(byte(n)); err != nil {
				return err
			}
			for _, v := range data[start : start+n] {
				if err := w.WriteByte(v); err != nil {
					return err
				}
			}
			start += n
		}

		if runLen >= minRun {
			if err := w.WriteByte(byte(128 + runLen)); err != nil {
				return err
			}
			if err := w.WriteByte(data[runStart]); err != nil {
				return err
			}
			start = runStart + runLen
		}
	}
	return nil
}

func fromFloat(c hdrimage.Color) (r, g, b, e byte) {
	for i, v := range c {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return 0, 0, 0, 0
		}
		c[i] = max(v, 0)
	}
	v := max(c[0], c[1], c[2])
	if v < 1e-32 {
		return 0, 0, 0, 0
	}
	frac, exp := math.Frexp(float64(v))
	if exp+128 > math.MaxUint8 {
		// Too bright for the exponent byte; saturate the largest channel.
		return byte(float64(c[0]) / float64(v) * math.MaxUint8),
			byte(float64(c[1]) / float64(v) * math.MaxUint8),
			byte(float64(c[2]) / float64(v) * math.MaxUint8),
			math.MaxUint8
	}
	scale := frac * 256 / float64(v)
	return byte(float64(c[0]) * scale),
		byte(float64(c[1]) * scale),
		byte(float64(c[2]) * scale),
		byte(exp + 128)
}
