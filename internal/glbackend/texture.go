package glbackend

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/go-gl/gl/v3.3-core/gl"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"go-quad-batch/internal/render2d"
)

// Filter is the min and mag filter of a texture.
type Filter int32

const (
	Nearest Filter = gl.NEAREST
	Linear  Filter = gl.LINEAR
)

// Wrap is a texture wrap mode.
type Wrap int32

const (
	ClampToBorder  Wrap = gl.CLAMP_TO_BORDER
	ClampToEdge    Wrap = gl.CLAMP_TO_EDGE
	Repeat         Wrap = gl.REPEAT
	MirroredRepeat Wrap = gl.MIRRORED_REPEAT
)

// NewTexture allocates an empty RGBA texture of w by h.
func NewTexture(w, h int, filter Filter) render2d.Texture {
	return upload(nil, w, h, gl.RGBA, filter)
}

// TextureFromPixels uploads tightly packed 8-bit pixels with 3 or 4 channels.
func TextureFromPixels(pix []uint8, w, h, channels int, filter Filter) (render2d.Texture, error) {
	var format uint32
	switch channels {
	case 3:
		format = gl.RGB
	case 4:
		format = gl.RGBA
	default:
		return render2d.Texture{}, fmt.Errorf("glbackend: unsupported channel count %d", channels)
	}
	if w <= 0 || h <= 0 || len(pix) < w*h*channels {
		return render2d.Texture{}, fmt.Errorf("glbackend: %d bytes for %dx%dx%d pixels", len(pix), w, h, channels)
	}
	return upload(pix, w, h, format, filter), nil
}

// TextureFromImage uploads img, converting it to RGBA when needed.
func TextureFromImage(img image.Image, filter Filter) (render2d.Texture, error) {
	rgba := toRGBA(img)
	b := rgba.Bounds()
	return TextureFromPixels(rgba.Pix, b.Dx(), b.Dy(), 4, filter)
}

// LoadTexture decodes an image file and uploads it. On failure it logs a
// warning and returns the null texture, which every draw call skips.
func LoadTexture(path string, filter Filter) (render2d.Texture, error) {
	tex, err := loadTexture(path, filter)
	if err != nil {
		slog.Warn("texture could not be loaded, using null texture", "path", path, "error", err)
		return render2d.Texture{}, err
	}
	slog.Debug("texture loaded", "path", path, "id", tex.ID, "width", tex.Width, "height", tex.Height)
	return tex, nil
}

func loadTexture(path string, filter Filter) (render2d.Texture, error) {
	f, err := os.Open(path)
	if err != nil {
		return render2d.Texture{}, err
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return render2d.Texture{}, fmt.Errorf("decode %s: %w", path, err)
	}
	tex, err := TextureFromImage(img, filter)
	if err != nil {
		return render2d.Texture{}, fmt.Errorf("upload %s image: %w", format, err)
	}
	return tex, nil
}

// SetTexturePixels replaces the whole RGBA content of tex.
func SetTexturePixels(tex render2d.Texture, pix []uint8) error {
	if !tex.Valid() {
		return nil
	}
	if len(pix) < int(tex.Width)*int(tex.Height)*4 {
		return fmt.Errorf("glbackend: %d bytes for a %dx%d texture", len(pix), tex.Width, tex.Height)
	}
	gl.BindTexture(gl.TEXTURE_2D, tex.ID)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, tex.Width, tex.Height, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pix))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return nil
}

// SetTexturePacked replaces the content of tex with 0xAABBGGRR words as
// built by render2d.PackRGBA.
func SetTexturePacked(tex render2d.Texture, px []uint32) error {
	return SetTexturePixels(tex, packedBytes(px))
}

func packedBytes(px []uint32) []uint8 {
	pix := make([]uint8, 4*len(px))
	for i, p := range px {
		binary.LittleEndian.PutUint32(pix[4*i:], p)
	}
	return pix
}

// SetTextureWrap sets the horizontal (s) and vertical (t) wrap modes.
func SetTextureWrap(tex render2d.Texture, s, t Wrap) {
	if !tex.Valid() {
		return
	}
	gl.BindTexture(gl.TEXTURE_2D, tex.ID)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, int32(s))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, int32(t))
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

// DisposeTexture deletes tex and zeroes its ID.
func DisposeTexture(tex *render2d.Texture) {
	if tex == nil || tex.ID == 0 {
		return
	}
	gl.DeleteTextures(1, &tex.ID)
	tex.ID = 0
}

func upload(pix []uint8, w, h int, format uint32, filter Filter) render2d.Texture {
	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)

	data := gl.Ptr(nil)
	if len(pix) > 0 {
		data = gl.Ptr(pix)
	}
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, int32(w), int32(h), 0, format, gl.UNSIGNED_BYTE, data)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_BORDER)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_BORDER)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, int32(filter))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, int32(filter))
	gl.BindTexture(gl.TEXTURE_2D, 0)

	return render2d.Texture{ID: id, Width: int32(w), Height: int32(h)}
}

// toRGBA returns img as a tightly packed *image.RGBA with a zero origin.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) && rgba.Stride == 4*rgba.Rect.Dx() {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}
