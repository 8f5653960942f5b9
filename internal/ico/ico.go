// Package ico writes Windows icon files that embed a single PNG image.
//
// Since Windows Vista an ICO directory entry may point at PNG data instead
// of a BMP bitmap, which keeps full 32-bit alpha and lets the file be
// written without palette conversion.
package ico

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"

	"golang.org/x/image/draw"
)

// MaxSize is the largest edge an ICO directory entry can describe.
const MaxSize = 256

const (
	dirHeaderSize = 6
	dirEntrySize  = 16
	typeIcon      = 1
)

// ErrEmptyImage is returned for images with no pixels.
var ErrEmptyImage = errors.New("ico: empty image")

type iconDir struct {
	Reserved uint16
	Type     uint16
	Count    uint16
}

type iconDirEntry struct {
	Width       uint8
	Height      uint8
	ColorCount  uint8
	Reserved    uint8
	Planes      uint16
	BitCount    uint16
	BytesInRes  uint32
	ImageOffset uint32
}

// Encode writes img to w as a single-image icon. The image is converted
// to RGBA with alpha. Images with an edge longer than [MaxSize] are
// scaled down to fit, keeping their aspect ratio.
func Encode(w io.Writer, img image.Image) error {
	b := img.Bounds()
	if b.Empty() {
		return ErrEmptyImage
	}

	rgba := fit(img, MaxSize)
	var data bytes.Buffer
	if err := png.Encode(&data, rgba); err != nil {
		return fmt.Errorf("ico: encoding png: %w", err)
	}

	size := rgba.Bounds().Size()
	entry := iconDirEntry{
		Width:       edge(size.X),
		Height:      edge(size.Y),
		Planes:      1,
		BitCount:    32,
		BytesInRes:  uint32(data.Len()),
		ImageOffset: dirHeaderSize + dirEntrySize,
	}

	if err := binary.Write(w, binary.LittleEndian, iconDir{Type: typeIcon, Count: 1}); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, entry); err != nil {
		return err
	}
	_, err := w.Write(data.Bytes())
	return err
}

// ConvertFile reads the PNG at src and writes it as an icon to dst.
func ConvertFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	img, err := png.Decode(in)
	if err != nil {
		return fmt.Errorf("ico: decoding %s: %w", src, err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if err := Encode(out, img); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

// edge encodes a pixel length for a directory entry, where 0 means 256.
func edge(n int) uint8 {
	if n >= MaxSize {
		return 0
	}
	return uint8(n)
}

// fit returns img as NRGBA anchored at the origin, scaled down so that
// neither edge exceeds limit.
func fit(img image.Image, limit int) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > limit || h > limit {
		if w >= h {
			h = h * limit / w
			w = limit
		} else {
			w = w * limit / h
			h = limit
		}
		if w < 1 {
			w = 1
		}
		if h < 1 {
			h = 1
		}
		dst := image.NewNRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		return dst
	}

	if n, ok := img.(*image.NRGBA); ok && b.Min == (image.Point{}) {
		return n
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
