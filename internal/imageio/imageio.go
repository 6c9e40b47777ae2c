// Package imageio loads and saves render passes by file extension.
//
// Radiance .hdr files keep their linear float values. Every other format
// holds 8 or 16 bit values that are mapped to linear floats with a gamma
// curve on the way in, and back on the way out.
package imageio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dblezek/tga"
	"github.com/erinpentecost/hdrdenoise/internal/dds"
	"github.com/erinpentecost/hdrdenoise/internal/hdrimage"
	"github.com/erinpentecost/hdrdenoise/internal/rgbe"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

var ErrUnsupported = errors.New("unsupported image extension")

type decoder func(r io.Reader) (image.Image, error)

type encoder func(w io.Writer, m image.Image) error

var ldrDecoders = map[string]decoder{
	".png":  png.Decode,
	".bmp":  bmp.Decode,
	".tif":  tiff.Decode,
	".tiff": tiff.Decode,
	".tga":  tga.Decode,
	".dds":  decodeDDS,
}

var ldrEncoders = map[string]encoder{
	".png":  png.Encode,
	".bmp":  bmp.Encode,
	".tif":  encodeTIFF,
	".tiff": encodeTIFF,
	".tga":  tga.Encode,
	".dds":  dds.EncodeLossless,
}

func decodeDDS(r io.Reader) (image.Image, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	img, err := dds.Decode(raw)
	if err != nil {
		return nil, err
	}
	return img, nil
}

func encodeTIFF(w io.Writer, m image.Image) error {
	return tiff.Encode(w, m, &tiff.Options{Compression: tiff.Deflate})
}

func isHDR(ext string) bool {
	return ext == ".hdr" || ext == ".pic"
}

// Load reads the image at path. gamma is applied to non-HDR formats.
func Load(path string, gamma float64) (*hdrimage.Image, error) {
	ext := strings.ToLower(filepath.Ext(path))
	dec, ok := ldrDecoders[ext]
	if !ok && !isHDR(ext) {
		return nil, fmt.Errorf("load %q: %w", path, ErrUnsupported)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", path, err)
	}

	if isHDR(ext) {
		img, err := rgbe.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("decode %q: %w", path, err)
		}
		return img, nil
	}

	m, err := dec(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode %q: %w", path, err)
	}
	img := hdrimage.FromImage(m, gamma)
	if !img.IsValid() {
		return nil, fmt.Errorf("decode %q: image is empty", path)
	}
	return img, nil
}

// Write saves img to path, replacing any existing file.
func Write(path string, img *hdrimage.Image, gamma float64) (err error) {
	ext := strings.ToLower(filepath.Ext(path))
	var enc func(io.Writer) error
	if isHDR(ext) {
		enc = func(w io.Writer) error { return rgbe.Encode(w, img) }
	} else if ldr, ok := ldrEncoders[ext]; ok {
		enc = func(w io.Writer) error { return ldr(w, img.ToNRGBA(gamma)) }
	} else {
		return fmt.Errorf("write %q: %w", path, ErrUnsupported)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %q: %w", path, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %q: %w", path, cerr)
		}
	}()
	if err := enc(out); err != nil {
		return fmt.Errorf("encode %q: %w", path, err)
	}
	return nil
}
