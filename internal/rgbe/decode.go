// Package rgbe reads and writes Radiance .hdr images (RGBE encoding).
//
// See also:
// https://paulbourke.net/dataformats/pic/
package rgbe

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"strings"

	"github.com/erinpentecost/hdrdenoise/internal/hdrimage"
)

// ErrFormat is returned for input that is not a Radiance RGBE image.
var ErrFormat = errors.New("rgbe: invalid format")

const (
	formatLine = "FORMAT=32-bit_rle_rgbe"

	// New style run length encoding is only defined for these widths.
	minRLEWidth = 8
	maxRLEWidth = 0x7fff

	maxHeaderLines = 1024

	// Larger images are rejected before any pixel buffer is allocated.
	maxPixels = 1 << 28
)

func init() {
	image.RegisterFormat("hdr", "#?", func(r io.Reader) (image.Image, error) {
		img, err := Decode(r)
		if err != nil {
			return nil, err
		}
		return img.ToNRGBA(1), nil
	}, DecodeConfig)
}

// Decode reads a Radiance image. Only the standard -Y h +X w orientation is
// supported.
func Decode(r io.Reader) (*hdrimage.Image, error) {
	br := bufio.NewReader(r)
	width, height, err := readHeader(br)
	if err != nil {
		return nil, err
	}

	img := hdrimage.New(width, height)
	scanline := make([]byte, width*4)
	for y := range height {
		if err := readScanline(br, scanline); err != nil {
			return nil, fmt.Errorf("rgbe: scanline %d: %w", y, err)
		}
		for x := range width {
			p := scanline[x*4 : x*4+4]
			img.Store(x, y, toFloat(p[0], p[1], p[2], p[3]))
		}
	}
	return img, nil
}

// DecodeConfig reads only the header.
func DecodeConfig(r io.Reader) (image.Config, error) {
	width, height, err := readHeader(bufio.NewReader(r))
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{ColorModel: color.NRGBAModel, Width: width, Height: height}, nil
}

func readHeader(br *bufio.Reader) (width, height int, err error) {
	line, err := readLine(br)
	if err != nil {
		return 0, 0, fmt.Errorf("rgbe: read signature: %w", err)
	}
	if line != "#?RADIANCE" && line != "#?RGBE" {
		return 0, 0, fmt.Errorf("%w: signature %q", ErrFormat, line)
	}

	// Variables until a blank line.
	for range maxHeaderLines {
		line, err = readLine(br)
		if err != nil {
			return 0, 0, fmt.Errorf("rgbe: read header: %w", err)
		}
		if line == "" {
			break
		}
		if strings.HasPrefix(line, "FORMAT=") && line != formatLine {
			return 0, 0, fmt.Errorf("%w: unsupported %q", ErrFormat, line)
		}
	}
	if line != "" {
		return 0, 0, fmt.Errorf("%w: header too long", ErrFormat)
	}

	line, err = readLine(br)
	if err != nil {
		return 0, 0, fmt.Errorf("rgbe: read resolution: %w", err)
	}
	if _, err := fmt.Sscanf(line, "-Y %d +X %d", &height, &width); err != nil {
		return 0, 0, fmt.Errorf("%w: resolution %q", ErrFormat, line)
	}
	if width <= 0 || height <= 0 || width > 1<<24 || height > 1<<24 || width*height > maxPixels {
		return 0, 0, fmt.Errorf("%w: resolution %dx%d", ErrFormat, width, height)
	}
	return width, height, nil
}

func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", io.ErrUnexpectedEOF
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readScanline fills dst with width RGBE quads.
func readScanline(br *bufio.Reader, dst []byte) error {
	width := len(dst) / 4
	if width < minRLEWidth || width > maxRLEWidth {
		_, err := io.ReadFull(br, dst)
		return err
	}

	var marker [4]byte
	if _, err := io.ReadFull(br, marker[:]); err != nil {
		return err
	}
	if marker[0] != 2 || marker[1] != 2 || marker[2]&0x80 != 0 {
		// Flat scanline; the marker was the first pixel.
		copy(dst, marker[:])
		_, err := io.ReadFull(br, dst[4:])
		return err
	}
	if n := int(marker[2])<<8 | int(marker[3]); n != width {
		return fmt.Errorf("%w: scanline width %d, want %d", ErrFormat, n, width)
	}

	// Each channel is stored as its own run length encoded plane.
	for ch := range 4 {
		for x := 0; x < width; {
			count, err := br.ReadByte()
			if err != nil {
				return err
			}
			if count > 128 {
				run := int(count) - 128
				if x+run > width {
					return fmt.Errorf("%w: run overflows scanline", ErrFormat)
				}
				v, err := br.ReadByte()
				if err != nil {
					return err
				}
				for ; run > 0; run-- {
					dst[x*4+ch] = v
					x++
				}
				continue
			}
			if count == 0 || x+int(count) > width {
				return fmt.Errorf("%w: bad literal length %d", ErrFormat, count)
			}
			for range count {
				v, err := br.ReadByte()
				if err != nil {
					return err
				}
				dst[x*4+ch] = v
				x++
			}
		}
	}
	return nil
}

func toFloat(r, g, b, e byte) hdrimage.Color {
	if e == 0 {
		return hdrimage.Color{}
	}
	f := float32(math.Ldexp(1, int(e)-(128+8)))
	return hdrimage.Color{float32(r) * f, float32(g) * f, float32(b) * f}
}
