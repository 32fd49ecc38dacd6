package atlas

import (
	"fmt"
	"image"
	"log/slog"
	"os"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

const (
	firstGlyph = rune(32)
	lastGlyph  = rune(126)
	defaultDPI = 72
)

// BuildFont rasterizes printable ASCII from the TTF at cfg.FontPath.
func BuildFont(cfg Config) (*Atlas, error) {
	ttf, err := os.ReadFile(cfg.FontPath)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", cfg.FontPath, err)
	}
	return BuildFontBytes(ttf, cfg)
}

// BuildFontBytes is BuildFont for an in-memory TTF.
func BuildFontBytes(ttf []byte, cfg Config) (*Atlas, error) {
	tt, err := truetype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("parse ttf: %w", err)
	}
	dpi := cfg.DPI
	if dpi <= 0 {
		dpi = defaultDPI
	}
	face := truetype.NewFace(tt, &truetype.Options{
		Size:    float64(cfg.FontSize),
		DPI:     float64(dpi),
		Hinting: font.HintingFull,
	})
	defer face.Close()

	a := New(cfg.Width, cfg.Height, KindFont)
	m := face.Metrics()
	a.LineHeight = m.Height.Ceil()

	skipped := 0
	for r := firstGlyph; r <= lastGlyph; r++ {
		img, advance := rasterizeGlyph(face, r, cfg.Padding)
		s, err := a.Add(string(r), img)
		if err != nil {
			skipped++
			continue
		}
		s.Advance = advance
		s.BearingX = -cfg.Padding
		s.BearingY = -cfg.Padding
	}
	if len(a.Sprites) == 0 {
		return nil, fmt.Errorf("no glyphs fit in a %dx%d atlas", cfg.Width, cfg.Height)
	}
	slog.Info("font atlas packed", "glyphs", len(a.Sprites), "skipped", skipped, "size", cfg.FontSize)
	return a, nil
}

// rasterizeGlyph draws r in white onto a transparent cell one line tall,
// with the baseline at pad+ascent.
func rasterizeGlyph(face font.Face, r rune, pad int) (*image.RGBA, int) {
	m := face.Metrics()
	ascent := m.Ascent.Ceil()
	height := ascent + m.Descent.Ceil()

	adv, _ := face.GlyphAdvance(r)
	advance := adv.Round()
	if advance < 1 {
		advance = 8
	}
	width := max(advance, 8)

	img := image.NewRGBA(image.Rect(0, 0, width+pad*2, height+pad*2))
	d := &font.Drawer{
		Dst:  img,
		Src:  image.White,
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(pad),
			Y: fixed.I(pad + ascent),
		},
	}
	d.DrawString(string(r))
	return img, advance
}
