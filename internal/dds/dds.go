// Package dds reads DirectDraw Surface textures and writes uncompressed ones.
//
// Game engines and some renderers dump their feature passes as DDS, so the
// loader accepts block compressed (DXT1/3/5) and plain RGB(A) surfaces.
package dds

import (
	"encoding/binary"
	"errors"
)

var (
	ErrFormat      = errors.New("dds: invalid format")
	ErrUnsupported = errors.New("dds: unsupported format")
)

const (
	magic = "DDS "

	headerSize = 124
	fileHeader = len(magic) + headerSize

	// offsets inside the 124 byte header
	offFlags      = 4
	offHeight     = 8
	offWidth      = 12
	offPitch      = 16
	offPixFormat  = 72
	offCaps       = 104
	pixFormatSize = 32

	// offsets inside the pixel format block
	pfOffFlags  = 4
	pfOffFourCC = 8
	pfOffBits   = 12
	pfOffRMask  = 16
	pfOffGMask  = 20
	pfOffBMask  = 24
	pfOffAMask  = 28

	flagCaps        = 0x1
	flagHeight      = 0x2
	flagWidth       = 0x4
	flagPitch       = 0x8
	flagPixelFormat = 0x1000

	pfAlphaPixels = 0x1
	pfFourCC      = 0x4
	pfRGB         = 0x40

	capsTexture = 0x1000
)

// pixelFormat is the DDS_PIXELFORMAT block.
type pixelFormat struct {
	flags  uint32
	fourCC string
	bits   uint32
	masks  [4]uint32 // R, G, B, A
}

func parsePixelFormat(pf []byte) pixelFormat {
	out := pixelFormat{
		flags:  binary.LittleEndian.Uint32(pf[pfOffFlags:]),
		fourCC: string(pf[pfOffFourCC : pfOffFourCC+4]),
		bits:   binary.LittleEndian.Uint32(pf[pfOffBits:]),
	}
	for i, off := range []int{pfOffRMask, pfOffGMask, pfOffBMask, pfOffAMask} {
		out.masks[i] = binary.LittleEndian.Uint32(pf[off:])
	}
	return out
}
