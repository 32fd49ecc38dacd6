package main

import (
	"go-quad-batch/internal/atlas"
	"go-quad-batch/internal/render2d"
)

// sheet is an atlas uploaded as one texture.
type sheet struct {
	*atlas.Atlas
	tex render2d.Texture
}

// drawText lays s out on one line from (x, y), advancing by glyph width.
// Runes missing from the atlas advance by the space width.
func drawText(b *render2d.QuadBatch, font *sheet, s string, x, y float32, tint render2d.Color) {
	space := 8
	if sp, ok := font.Sprite(" "); ok {
		space = sp.Advance
	}
	for _, r := range s {
		g, ok := font.Sprite(string(r))
		if !ok {
			x += float32(space)
			continue
		}
		dst := render2d.Rect{
			X: x + float32(g.BearingX),
			Y: y + float32(g.BearingY),
			W: float32(g.W),
			H: float32(g.H),
		}
		b.DrawTextureEx(font.tex, g.Source(), dst, tint)
		x += float32(g.Advance)
	}
}

// drawSprite draws a named region at its native size.
func drawSprite(b *render2d.QuadBatch, sh *sheet, id string, x, y float32, tint render2d.Color) {
	s, ok := sh.Sprite(id)
	if !ok {
		return
	}
	b.DrawTextureEx(sh.tex, s.Source(), render2d.Rect{X: x, Y: y, W: float32(s.W), H: float32(s.H)}, tint)
}
