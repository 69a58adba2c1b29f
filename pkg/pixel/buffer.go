// Package pixel provides the raw RGBA buffer shared by frames and masks.
package pixel

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
)

// Channels is the fixed number of bytes per pixel (R, G, B, A).
const Channels = 4

// ErrSizeMismatch is returned when raw data does not match width*height*4.
var ErrSizeMismatch = errors.New("pixel: data length does not match dimensions")

// Buffer holds the raw pixel data of a frame or mask.
// Data is laid out row-major, 4 bytes per pixel, without padding.
//
// A Buffer is owned by whichever component currently holds it. Transformations
// work on a Clone unless they document otherwise.
type Buffer struct {
	Width  int
	Height int
	// Seq is the frame sequence number assigned by the frame source.
	// Masks inherit the Seq of the frame they were computed from.
	Seq  int64
	Data []byte
}

// New allocates a zeroed buffer of the given dimensions.
func New(width, height int) *Buffer {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Buffer{
		Width:  width,
		Height: height,
		Data:   make([]byte, width*height*Channels),
	}
}

// FromBytes wraps raw RGBA bytes. The slice is used as-is, not copied.
func FromBytes(width, height int, data []byte) (*Buffer, error) {
	if width < 0 || height < 0 || len(data) != width*height*Channels {
		return nil, fmt.Errorf("%w: %dx%d with %d bytes", ErrSizeMismatch, width, height, len(data))
	}
	return &Buffer{Width: width, Height: height, Data: data}, nil
}

// FromImage copies any image.Image into a new buffer with non-premultiplied
// channel values. The result always starts at (0,0).
func FromImage(img image.Image) *Buffer {
	bounds := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return &Buffer{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Data:   dst.Pix,
	}
}

// Clone returns an independent copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	data := make([]byte, len(b.Data))
	copy(data, b.Data)
	return &Buffer{
		Width:  b.Width,
		Height: b.Height,
		Seq:    b.Seq,
		Data:   data,
	}
}

// Len returns the number of pixels.
func (b *Buffer) Len() int {
	return b.Width * b.Height
}

// Valid reports whether the data length matches the dimensions.
func (b *Buffer) Valid() bool {
	return b != nil && len(b.Data) == b.Width*b.Height*Channels
}

// NRGBA exposes the buffer as an *image.NRGBA sharing the same backing array.
// Writes through the image are visible in the buffer.
func (b *Buffer) NRGBA() *image.NRGBA {
	return &image.NRGBA{
		Pix:    b.Data,
		Stride: b.Width * Channels,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}

// Compatible reports whether two buffers have identical dimensions.
// The channel count is fixed, so width and height are all that matter.
func Compatible(a, b *Buffer) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Width == b.Width && a.Height == b.Height
}
