package dds

import (
	"encoding/binary"
	"fmt"
	"image"
	"math"
	"math/bits"

	"github.com/mauserzjeh/dxt"
)

// Decode parses a DDS file. Only the top mip level is read.
func Decode(raw []byte) (*image.NRGBA, error) {
	if len(raw) < fileHeader {
		return nil, fmt.Errorf("%w: data too short for header: %d < %d", ErrFormat, len(raw), fileHeader)
	}
	if string(raw[:len(magic)]) != magic {
		return nil, fmt.Errorf("%w: missing magic %q", ErrFormat, magic)
	}

	hdr := raw[len(magic):fileHeader]
	height := binary.LittleEndian.Uint32(hdr[offHeight:])
	width := binary.LittleEndian.Uint32(hdr[offWidth:])
	if width == 0 || height == 0 || width > 1<<16 || height > 1<<16 {
		return nil, fmt.Errorf("%w: size %dx%d", ErrFormat, width, height)
	}
	pf := parsePixelFormat(hdr[offPixFormat : offPixFormat+pixFormatSize])

	data := raw[fileHeader:]
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no image data", ErrFormat)
	}

	var pix []byte
	var err error
	switch {
	case pf.flags&pfFourCC != 0 || pf.bits == 0:
		pix, err = decodeBlocks(pf.fourCC, data, width, height)
	case pf.bits == 24 || pf.bits == 32:
		pix, err = decodeUncompressed(data, width, height, pf)
	default:
		err = fmt.Errorf("%w: %d bits per pixel", ErrUnsupported, pf.bits)
	}
	if err != nil {
		return nil, err
	}

	img := image.NewNRGBA(image.Rect(0, 0, int(width), int(height)))
	if len(pix) != len(img.Pix) {
		return nil, fmt.Errorf("dds: decoded %d bytes, want %d", len(pix), len(img.Pix))
	}
	copy(img.Pix, pix)
	return img, nil
}

// blockSizes is the byte size of one 4x4 block per supported FourCC.
var blockSizes = map[string]int{"DXT1": 8, "DXT3": 16, "DXT5": 16}

func decodeBlocks(fourCC string, data []byte, width, height uint32) ([]byte, error) {
	blockSize, ok := blockSizes[fourCC]
	if !ok {
		return nil, fmt.Errorf("%w: FourCC %q", ErrUnsupported, fourCC)
	}
	want := int(width+3) / 4 * (int(height+3) / 4) * blockSize
	if len(data) < want {
		return nil, fmt.Errorf("%w: %s data too small (%d < %d)", ErrFormat, fourCC, len(data), want)
	}

	var pix []byte
	var err error
	switch fourCC {
	case "DXT1":
		pix, err = dxt.DecodeDXT1(data, uint(width), uint(height))
	case "DXT3":
		pix, err = dxt.DecodeDXT3(data, uint(width), uint(height))
	case "DXT5":
		pix, err = dxt.DecodeDXT5(data, uint(width), uint(height))
	}
	if err != nil {
		return nil, fmt.Errorf("dds: decode %s: %w", fourCC, err)
	}
	return pix, nil
}

// defaultMasks is the BGRA layout most exporters use when they leave the
// masks blank.
var defaultMasks = [4]uint32{0x00FF0000, 0x0000FF00, 0x000000FF, 0xFF000000}

// decodeUncompressed expands 24 or 32 bit pixels into RGBA bytes using the
// channel masks from the pixel format. Rows are assumed to be unpadded.
func decodeUncompressed(data []byte, width, height uint32, pf pixelFormat) ([]byte, error) {
	bytesPerPixel := int(pf.bits / 8)
	n := int(width) * int(height)
	if len(data) < n*bytesPerPixel {
		return nil, fmt.Errorf("%w: pixel data too small (%d < %d)", ErrFormat, len(data), n*bytesPerPixel)
	}

	masks := pf.masks
	if masks[0]|masks[1]|masks[2] == 0 {
		masks = defaultMasks
	}
	if pf.flags&pfAlphaPixels == 0 || bytesPerPixel == 3 {
		masks[3] = 0
	}

	out := make([]byte, n*4)
	var px [4]byte
	for i := range n {
		copy(px[:], data[i*bytesPerPixel:(i+1)*bytesPerPixel])
		v := binary.LittleEndian.Uint32(px[:])
		for ch, mask := range masks {
			out[i*4+ch] = extract(v, mask)
		}
		if masks[3] == 0 {
			out[i*4+3] = math.MaxUint8
		}
	}
	return out, nil
}

// extract pulls the masked bits out of v and rescales them to 8 bits.
func extract(v, mask uint32) byte {
	if mask == 0 {
		return 0
	}
	shift := bits.TrailingZeros32(mask)
	width := bits.OnesCount32(mask)
	c := uint64((v & mask) >> shift)
	maxVal := uint64(1)<<width - 1
	return byte((c*math.MaxUint8 + maxVal/2) / maxVal)
}
