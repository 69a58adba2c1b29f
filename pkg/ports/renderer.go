package ports

import (
	"image"
	"image/color"
)

// Renderer abstracts image codec and drawing operations.
type Renderer interface {
	// CreateCanvas creates a new drawing canvas initialized with img.
	CreateCanvas(img image.Image) Canvas

	// DecodeImage decodes image data into an image.Image.
	DecodeImage(data []byte, format ImageFormat) (image.Image, error)

	// EncodeImage encodes an image to the specified format.
	EncodeImage(img image.Image, format ImageFormat, quality int) ([]byte, error)

	// ResizeImage resizes an image to the specified dimensions.
	ResizeImage(img image.Image, width, height int) image.Image
}

// Canvas provides drawing operations for overlays.
type Canvas interface {
	// DrawRoundedRect draws a filled rounded rectangle.
	DrawRoundedRect(x, y, w, h, radius int, c color.Color)

	// DrawText draws text at the specified position.
	DrawText(text string, x, y int, style TextStyle)

	// MeasureText returns the width and height of the text.
	MeasureText(text string, style TextStyle) (width, height float64)

	// ToImage returns the canvas as an image.Image.
	ToImage() image.Image
}

// TextStyle defines text rendering properties.
type TextStyle struct {
	FontSize float64
	FontPath string
	Color    color.Color
	Align    TextAlign
}

// TextAlign specifies text alignment.
type TextAlign int

const (
	AlignLeft TextAlign = iota
	AlignCenter
	AlignRight
)

// ImageFormat specifies image encoding format.
type ImageFormat int

const (
	FormatJPEG ImageFormat = iota
	FormatPNG
	// FormatAuto detects the format from the data when decoding.
	FormatAuto
)

// FormatFromExt maps a file extension to an ImageFormat.
func FormatFromExt(ext string) (ImageFormat, bool) {
	switch ext {
	case ".jpg", ".jpeg", ".JPG", ".JPEG":
		return FormatJPEG, true
	case ".png", ".PNG":
		return FormatPNG, true
	default:
		return FormatAuto, false
	}
}
