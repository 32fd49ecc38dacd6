// Package atlas packs glyphs and animation frames into a single RGBA image
// that can be uploaded as one texture and drawn region by region.
package atlas

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"time"

	"go-quad-batch/internal/render2d"
)

// Kind is what an atlas was built from.
type Kind int

const (
	KindFont Kind = iota
	KindGIF
)

func (k Kind) String() string {
	switch k {
	case KindFont:
		return "font"
	case KindGIF:
		return "gif"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Sprite is one packed region.
type Sprite struct {
	ID       string
	X, Y     int
	W, H     int
	Advance  int
	BearingX int
	BearingY int
	Delay    time.Duration // frames only
}

// Source is the sprite's rectangle in atlas pixels.
func (s *Sprite) Source() render2d.Rect {
	return render2d.Rect{X: float32(s.X), Y: float32(s.Y), W: float32(s.W), H: float32(s.H)}
}

// Atlas is a CPU-side packed image with its sprite table.
type Atlas struct {
	Image   *image.RGBA
	Sprites map[string]*Sprite
	Frames  []*Sprite // insertion order for KindGIF
	Kind    Kind

	// LineHeight is the font's line advance; zero for frame atlases.
	LineHeight int

	packer *Packer
}

func New(w, h int, kind Kind) *Atlas {
	return &Atlas{
		Image:   image.NewRGBA(image.Rect(0, 0, w, h)),
		Sprites: make(map[string]*Sprite),
		Kind:    kind,
		packer:  NewPacker(w, h),
	}
}

// Add packs img under id. It fails when the atlas is full.
func (a *Atlas) Add(id string, img image.Image) (*Sprite, error) {
	b := img.Bounds()
	x, y, ok := a.packer.Pack(b.Dx(), b.Dy())
	if !ok {
		return nil, fmt.Errorf("atlas full: %q (%dx%d) does not fit", id, b.Dx(), b.Dy())
	}
	draw.Draw(a.Image, image.Rect(x, y, x+b.Dx(), y+b.Dy()), img, b.Min, draw.Src)

	s := &Sprite{ID: id, X: x, Y: y, W: b.Dx(), H: b.Dy(), Advance: b.Dx()}
	a.Sprites[id] = s
	return s, nil
}

// Sprite looks up a sprite by id.
func (a *Atlas) Sprite(id string) (*Sprite, bool) {
	s, ok := a.Sprites[id]
	return s, ok
}

// Size returns the atlas dimensions.
func (a *Atlas) Size() (w, h int) {
	b := a.Image.Bounds()
	return b.Dx(), b.Dy()
}

// DumpPNG writes the atlas image to fname.
func (a *Atlas) DumpPNG(fname string) error {
	f, err := os.Create(fname)
	if err != nil {
		return err
	}
	if err := png.Encode(f, a.Image); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", fname, err)
	}
	return f.Close()
}

// Config selects and parameterizes an atlas builder.
type Config struct {
	Kind     Kind
	FontPath string
	GIFPath  string
	FontSize int
	DPI      int
	Padding  int
	Width    int
	Height   int
}

// Build dispatches on cfg.Kind.
func Build(cfg Config) (*Atlas, error) {
	switch cfg.Kind {
	case KindFont:
		return BuildFont(cfg)
	case KindGIF:
		return BuildGIF(cfg)
	default:
		return nil, fmt.Errorf("unknown atlas kind: %v", cfg.Kind)
	}
}
