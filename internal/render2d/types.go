package render2d

import "image/color"

const (
	// DefaultMaxQuads is the quad capacity of a batch created without WithMaxQuads.
	DefaultMaxQuads = 20000
	// MaxTextureSlots is the largest number of distinct textures a single draw can sample.
	MaxTextureSlots = 32

	VerticesPerQuad = 4
	IndicesPerQuad  = 6
)

// Vertex is the layout written into the mapped vertex store.
// Slot 0 means untextured; 1..N picks a bound sampler.
type Vertex struct {
	Pos   [2]float32
	Color [4]float32
	UV    [2]float32
	Slot  float32
}

// VertexSize is the byte stride of Vertex.
const VertexSize = 9 * 4

// Attribute locations, matching the Vertex field order.
const (
	AttribPos   = 0
	AttribColor = 1
	AttribUV    = 2
	AttribSlot  = 3
)

// FlipFlag mirrors a texture when it is sampled.
type FlipFlag uint8

const (
	FlipNone       FlipFlag = 0
	FlipHorizontal FlipFlag = 1
	FlipVertical   FlipFlag = 2
	FlipBoth       FlipFlag = FlipHorizontal | FlipVertical
)

// Texture identifies a GPU texture. The zero ID is the null texture and
// every draw call given it is skipped.
type Texture struct {
	ID     uint32
	Width  int32
	Height int32
	Flip   FlipFlag
}

// Valid reports whether t refers to a live texture.
func (t Texture) Valid() bool { return t.ID != 0 }

// Flipped returns a copy of t with the given flip flags.
func (t Texture) Flipped(f FlipFlag) Texture {
	t.Flip = f
	return t
}

// Rect is an axis-aligned rectangle in pixels.
type Rect struct {
	X, Y, W, H float32
}

// Color is a normalized RGBA color; every emitter takes colors in 0-1.
type Color [4]float32

var (
	White       = Color{1, 1, 1, 1}
	Black       = Color{0, 0, 0, 1}
	Transparent = Color{}
)

// RGBA8 converts 0-255 channels to a normalized Color.
func RGBA8(r, g, b, a uint8) Color {
	return Color{float32(r) / 255, float32(g) / 255, float32(b) / 255, float32(a) / 255}
}

// ColorOf converts any color.Color to a normalized Color.
func ColorOf(c color.Color) Color {
	r, g, b, a := c.RGBA()
	return Color{
		float32(r) / 0xffff,
		float32(g) / 0xffff,
		float32(b) / 0xffff,
		float32(a) / 0xffff,
	}
}

// PackRGBA packs 8-bit channels as 0xAABBGGRR.
func PackRGBA(r, g, b, a uint8) uint32 {
	return uint32(a)<<24 | uint32(b)<<16 | uint32(g)<<8 | uint32(r)
}
