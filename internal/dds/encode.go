package dds

import (
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"io"
)

// EncodeLossless writes m as an uncompressed 32-bit DDS with bytes stored
// R, G, B, A. Colors are written non-premultiplied.
func EncodeLossless(w io.Writer, m image.Image) error {
	b := m.Bounds()
	width, height := b.Dx(), b.Dy()
	if width == 0 || height == 0 {
		return errors.New("dds: empty image")
	}

	var header [fileHeader]byte
	copy(header[:], magic)
	hdr := header[len(magic):]
	put := func(off int, v uint32) {
		binary.LittleEndian.PutUint32(hdr[off:], v)
	}
	put(0, headerSize)
	put(offFlags, flagCaps|flagHeight|flagWidth|flagPitch|flagPixelFormat)
	put(offHeight, uint32(height))
	put(offWidth, uint32(width))
	put(offPitch, uint32(width*4))

	put(offPixFormat, pixFormatSize)
	put(offPixFormat+pfOffFlags, pfRGB|pfAlphaPixels)
	put(offPixFormat+pfOffBits, 32)
	// little endian masks putting R in the first byte on disk
	put(offPixFormat+pfOffRMask, 0x000000FF)
	put(offPixFormat+pfOffGMask, 0x0000FF00)
	put(offPixFormat+pfOffBMask, 0x00FF0000)
	put(offPixFormat+pfOffAMask, 0xFF000000)

	put(offCaps, capsTexture)

	if _, err := w.Write(header[:]); err != nil {
		return err
	}

	if nrgba, ok := m.(*image.NRGBA); ok {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			off := nrgba.PixOffset(b.Min.X, y)
			if _, err := w.Write(nrgba.Pix[off : off+width*4]); err != nil {
				return err
			}
		}
		return nil
	}

	row := make([]byte, width*4)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(m.At(x, y)).(color.NRGBA)
			i := (x - b.Min.X) * 4
			row[i], row[i+1], row[i+2], row[i+3] = c.R, c.G, c.B, c.A
		}
		if _, err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}
