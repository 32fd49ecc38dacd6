package render2d

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// UV sets per corner in emission order: top-left, bottom-left,
// bottom-right, top-right.
var (
	uvDefault        = [8]float32{0, 0, 0, 1, 1, 1, 1, 0}
	uvFlipHorizontal = [8]float32{1, 1, 1, 0, 0, 0, 0, 1}
	uvFlipVertical   = [8]float32{0, 1, 0, 0, 1, 0, 1, 1}
	uvFlipBoth       = [8]float32{1, 0, 1, 1, 0, 1, 0, 0}
)

// flipUVs picks the UV set for f. Both flags must be tested before either
// single flag.
func flipUVs(f FlipFlag) [8]float32 {
	switch {
	case f&FlipBoth == FlipBoth:
		return uvFlipBoth
	case f&FlipHorizontal != 0:
		return uvFlipHorizontal
	case f&FlipVertical != 0:
		return uvFlipVertical
	default:
		return uvDefault
	}
}

// regionUVs maps a unit UV set onto the sub-rectangle (u0,v0)-(u1,v1).
func regionUVs(unit [8]float32, u0, v0, u1, v1 float32) [8]float32 {
	var out [8]float32
	for i := 0; i < len(unit); i += 2 {
		out[i], out[i+1] = u0, v0
		if unit[i] != 0 {
			out[i] = u1
		}
		if unit[i+1] != 0 {
			out[i+1] = v1
		}
	}
	return out
}

func quadCorners(x, y, w, h float32) [4][2]float32 {
	return [4][2]float32{
		{x, y},
		{x, y + h},
		{x + w, y + h},
		{x + w, y},
	}
}

// push writes one quad at the cursor. Callers must have reserved room.
func (b *QuadBatch) push(corners [4][2]float32, uvs [8]float32, c Color, slot float32) {
	v := b.buffer[b.cursor : b.cursor+VerticesPerQuad]
	for i := range v {
		v[i] = Vertex{
			Pos:   corners[i],
			Color: c,
			UV:    [2]float32{uvs[2*i], uvs[2*i+1]},
			Slot:  slot,
		}
	}
	b.cursor += VerticesPerQuad
	b.indexCount += IndicesPerQuad
	b.stats.Quads++
}

// texturedSlot reserves room for a quad and resolves the slot of tex.
func (b *QuadBatch) texturedSlot(tex Texture) (float32, bool) {
	if !tex.Valid() || !b.reserve() {
		return 0, false
	}
	return b.resolve(tex.ID)
}

// DrawTexture draws tex at its native size with the top-left corner at
// (x, y), multiplied by tint.
func (b *QuadBatch) DrawTexture(tex Texture, x, y int32, tint Color) {
	slot, ok := b.texturedSlot(tex)
	if !ok {
		return
	}
	corners := quadCorners(float32(x), float32(y), float32(tex.Width), float32(tex.Height))
	b.push(corners, flipUVs(tex.Flip), tint, slot)
}

// DrawTextureRotated draws tex like DrawTexture, rotated by degrees around
// pivot (in screen coordinates).
func (b *QuadBatch) DrawTextureRotated(tex Texture, x, y int32, pivot mgl32.Vec2, degrees float32, tint Color) {
	slot, ok := b.texturedSlot(tex)
	if !ok {
		return
	}
	corners := quadCorners(float32(x), float32(y), float32(tex.Width), float32(tex.Height))
	if degrees != 0 {
		rotateCorners(&corners, pivot, degrees)
	}
	b.push(corners, flipUVs(tex.Flip), tint, slot)
}

// DrawTextureRotatedCentered rotates around the center of the drawn quad.
func (b *QuadBatch) DrawTextureRotatedCentered(tex Texture, x, y int32, degrees float32, tint Color) {
	pivot := mgl32.Vec2{
		float32(x) + float32(tex.Width)/2,
		float32(y) + float32(tex.Height)/2,
	}
	b.DrawTextureRotated(tex, x, y, pivot, degrees, tint)
}

func rotateCorners(corners *[4][2]float32, pivot mgl32.Vec2, degrees float32) {
	sin, cos := math.Sincos(float64(mgl32.DegToRad(degrees)))
	px, py := float64(pivot.X()), float64(pivot.Y())
	for i, c := range corners {
		dx := float64(c[0]) - px
		dy := float64(c[1]) - py
		corners[i] = [2]float32{
			float32(cos*dx - sin*dy + px),
			float32(sin*dx + cos*dy + py),
		}
	}
}

// DrawTextureEx maps the src rectangle of tex (texture pixels) onto dst
// (screen pixels).
func (b *QuadBatch) DrawTextureEx(tex Texture, src, dst Rect, tint Color) {
	if tex.Width <= 0 || tex.Height <= 0 {
		return
	}
	slot, ok := b.texturedSlot(tex)
	if !ok {
		return
	}
	tw, th := float32(tex.Width), float32(tex.Height)
	uvs := regionUVs(flipUVs(tex.Flip),
		src.X/tw, src.Y/th,
		(src.X+src.W)/tw, (src.Y+src.H)/th)
	b.push(quadCorners(dst.X, dst.Y, dst.W, dst.H), uvs, tint, slot)
}

// DrawRectangle draws an untextured rectangle.
func (b *QuadBatch) DrawRectangle(x, y, w, h int32, c Color) {
	if !b.reserve() {
		return
	}
	corners := quadCorners(float32(x), float32(y), float32(w), float32(h))
	b.push(corners, [8]float32{}, c, 0)
}

// RenderTarget is an off-screen surface whose color attachment can be drawn.
type RenderTarget interface {
	ColorTexture() Texture
}

// DrawFramebuffer draws the color attachment of fb at (x, y).
func (b *QuadBatch) DrawFramebuffer(fb RenderTarget, x, y int32) {
	if fb == nil {
		return
	}
	b.DrawTexture(fb.ColorTexture(), x, y, White)
}
