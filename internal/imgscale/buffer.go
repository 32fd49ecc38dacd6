package imgscale

import (
	"fmt"
	"image"
	"image/draw"
)

// Buffer is a tightly packed 8-bit image, Channels bytes per pixel, rows
// top to bottom.
type Buffer struct {
	Pix      []uint8
	Width    int
	Height   int
	Channels int
}

// NewBuffer allocates a zeroed w by h buffer.
func NewBuffer(w, h, channels int) Buffer {
	return Buffer{Pix: make([]uint8, w*h*channels), Width: w, Height: h, Channels: channels}
}

func (b Buffer) validate() error {
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("imgscale: invalid size %dx%d", b.Width, b.Height)
	}
	if b.Channels < 1 || b.Channels > 4 {
		return fmt.Errorf("imgscale: invalid channel count %d", b.Channels)
	}
	if need := b.Width * b.Height * b.Channels; len(b.Pix) < need {
		return fmt.Errorf("imgscale: buffer holds %d bytes, need %d", len(b.Pix), need)
	}
	return nil
}

// FromImage copies img into a 4-channel buffer.
func FromImage(img image.Image) Buffer {
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return Buffer{Pix: rgba.Pix, Width: bounds.Dx(), Height: bounds.Dy(), Channels: 4}
}

// RGBA converts b to an image. One channel is gray, two are gray and
// alpha, three get an opaque alpha.
func (b Buffer) RGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, b.Width, b.Height))
	if b.Channels == 4 {
		copy(img.Pix, b.Pix)
		return img
	}
	for i, o := 0, 0; i+b.Channels <= len(b.Pix) && o < len(img.Pix); i, o = i+b.Channels, o+4 {
		switch b.Channels {
		case 1:
			img.Pix[o], img.Pix[o+1], img.Pix[o+2], img.Pix[o+3] = b.Pix[i], b.Pix[i], b.Pix[i], 0xff
		case 2:
			img.Pix[o], img.Pix[o+1], img.Pix[o+2], img.Pix[o+3] = b.Pix[i], b.Pix[i], b.Pix[i], b.Pix[i+1]
		case 3:
			img.Pix[o], img.Pix[o+1], img.Pix[o+2], img.Pix[o+3] = b.Pix[i], b.Pix[i+1], b.Pix[i+2], 0xff
		}
	}
	return img
}
