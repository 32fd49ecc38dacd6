// Package render2d batches textured and colored quads into a single indexed
// draw per Begin/End bracket.
//
// A QuadBatch owns a fixed-capacity vertex store, a static index pattern of
// two triangles per quad and a table of up to MaxTextureSlots textures that
// the fragment stage multiplexes by slot number. Running out of either
// vertex room or texture slots flushes the batch and restarts it with the
// same state, so draws never fail for capacity reasons.
//
// A QuadBatch is not safe for concurrent use.
package render2d

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	ErrAlreadyBegun = errors.New("render2d: batch already begun")
	ErrNotBegun     = errors.New("render2d: batch not begun")
	ErrDisposed     = errors.New("render2d: batch disposed")
)

// Stats are cumulative counters since the batch was created.
type Stats struct {
	Quads           int
	DrawCalls       int
	TextureFlushes  int
	CapacityFlushes int
}

// Option configures a QuadBatch at creation.
type Option func(b *QuadBatch)

// WithMaxQuads sets how many quads fit in one draw.
func WithMaxQuads(n int) Option {
	return func(b *QuadBatch) {
		b.maxQuads = n
	}
}

// WithMaxTextures limits the texture table. The device's unit count still
// caps it.
func WithMaxTextures(n int) Option {
	return func(b *QuadBatch) {
		b.maxTextures = n
	}
}

// WithViewport sets a top-left origin orthographic projection of w by h pixels.
func WithViewport(w, h int) Option {
	return func(b *QuadBatch) {
		b.projection = ortho2D(w, h)
	}
}

// WithLogger sets the logger used for flush and lifecycle diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(b *QuadBatch) {
		if l != nil {
			b.log = l
		}
	}
}

// QuadBatch accumulates quads between Begin and End.
type QuadBatch struct {
	dev    Device
	store  VertexStore
	shader Shader
	log    *slog.Logger

	maxQuads    int
	maxTextures int
	projection  mgl32.Mat4
	view        mgl32.Mat4

	// valid only between Begin and End
	buffer     []Vertex
	cursor     int
	indexCount int
	textures   [MaxTextureSlots]uint32
	texCount   int

	active    bool
	blending  bool
	depthTest bool
	disposed  bool

	stats Stats
}

// New allocates the vertex store and index pattern and compiles the shader.
func New(dev Device, opts ...Option) (*QuadBatch, error) {
	if dev == nil {
		return nil, errors.New("render2d: nil device")
	}

	b := &QuadBatch{
		dev:         dev,
		log:         slog.Default(),
		maxQuads:    DefaultMaxQuads,
		maxTextures: MaxTextureSlots,
		projection:  mgl32.Ident4(),
		view:        mgl32.Ident4(),
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.maxQuads <= 0 {
		return nil, fmt.Errorf("render2d: invalid quad capacity %d", b.maxQuads)
	}
	if b.maxTextures > MaxTextureSlots {
		b.maxTextures = MaxTextureSlots
	}
	if units := dev.MaxTextureUnits(); units > 0 && b.maxTextures > units {
		b.maxTextures = units
	}
	if b.maxTextures < 1 {
		b.maxTextures = 1
	}

	store, err := dev.NewVertexStore(b.maxQuads*VerticesPerQuad, QuadIndices(b.maxQuads))
	if err != nil {
		return nil, fmt.Errorf("render2d: allocate vertex store: %w", err)
	}

	vs, fs := ShaderSources(b.maxTextures)
	shader, err := dev.CompileShader(vs, fs)
	if err != nil {
		store.Release()
		return nil, fmt.Errorf("render2d: compile quad shader: %w", err)
	}
	b.store = store
	b.shader = shader

	shader.Activate()
	for i := 0; i < b.maxTextures; i++ {
		shader.UploadInt(samplerUniform(i), int32(i))
	}
	shader.UploadMat4(UniformProjection, b.projection)
	shader.UploadMat4(UniformView, b.view)
	shader.Deactivate()

	b.log.Debug("quad batch created", "maxQuads", b.maxQuads, "maxTextures", b.maxTextures)
	return b, nil
}

// QuadIndices builds the static index pattern for n quads: quad i uses
// vertices 4i..4i+3 as triangles (0,1,2) and (2,3,0).
func QuadIndices(n int) []uint32 {
	indices := make([]uint32, n*IndicesPerQuad)
	var offset uint32
	for i := 0; i < len(indices); i += IndicesPerQuad {
		indices[i+0] = offset + 0
		indices[i+1] = offset + 1
		indices[i+2] = offset + 2
		indices[i+3] = offset + 2
		indices[i+4] = offset + 3
		indices[i+5] = offset + 0
		offset += VerticesPerQuad
	}
	return indices
}

// Begin activates the shader, applies blend and depth state and maps the
// vertex store for writing.
func (b *QuadBatch) Begin(blending, depthTest bool) error {
	if b.disposed {
		return ErrDisposed
	}
	if b.active {
		return ErrAlreadyBegun
	}
	b.blending = blending
	b.depthTest = depthTest
	return b.begin()
}

// BeginDefault begins with blending on and depth testing off, the usual
// state for 2D overlays.
func (b *QuadBatch) BeginDefault() error {
	return b.Begin(true, false)
}

func (b *QuadBatch) begin() error {
	b.shader.Activate()
	b.dev.SetBlending(b.blending)
	b.dev.SetDepthTest(b.depthTest)

	buf, err := b.store.Map()
	if err != nil {
		b.shader.Deactivate()
		return fmt.Errorf("render2d: map vertex store: %w", err)
	}
	if len(buf) < VerticesPerQuad {
		_ = b.store.Unmap()
		b.shader.Deactivate()
		return fmt.Errorf("render2d: mapped %d vertices, need at least %d", len(buf), VerticesPerQuad)
	}

	b.buffer = buf
	b.cursor = 0
	b.indexCount = 0
	b.texCount = 0
	b.active = true
	return nil
}

// End unmaps the store, binds the resolved textures and issues the draw.
func (b *QuadBatch) End() error {
	if !b.active {
		return ErrNotBegun
	}
	return b.end()
}

func (b *QuadBatch) end() error {
	b.buffer = nil
	b.active = false

	err := b.store.Unmap()
	if err == nil {
		for i := 0; i < b.texCount; i++ {
			b.dev.BindTexture(i, b.textures[i])
		}
		b.store.DrawIndexed(b.indexCount)
		b.stats.DrawCalls++
		for i := 0; i < b.texCount; i++ {
			b.dev.UnbindTexture(i)
		}
	}

	b.cursor = 0
	b.indexCount = 0
	b.texCount = 0
	b.shader.Deactivate()

	if err != nil {
		return fmt.Errorf("render2d: unmap vertex store: %w", err)
	}
	return nil
}

// flush drains the queued geometry and restarts the bracket with the same
// state. It reports whether the batch is writable again.
func (b *QuadBatch) flush(reason string) bool {
	queued := b.indexCount / IndicesPerQuad
	if err := b.end(); err != nil {
		b.log.Warn("quad batch flush lost geometry", "reason", reason, "quads", queued, "error", err)
	}
	if err := b.begin(); err != nil {
		b.log.Error("quad batch restart failed", "reason", reason, "error", err)
		return false
	}
	b.log.Debug("quad batch flushed", "reason", reason, "quads", queued)
	return true
}

// reserve makes room for one quad, flushing when the mapped region is full.
func (b *QuadBatch) reserve() bool {
	if !b.active {
		b.log.Debug("quad dropped outside Begin/End")
		return false
	}
	if b.cursor+VerticesPerQuad > len(b.buffer) {
		b.stats.CapacityFlushes++
		return b.flush("capacity")
	}
	return true
}

// Dispose releases the vertex store and the shader. It is safe to call twice.
func (b *QuadBatch) Dispose() {
	if b.disposed {
		return
	}
	if b.active {
		if err := b.end(); err != nil {
			b.log.Warn("quad batch disposed mid-frame", "error", err)
		}
	}
	b.store.Release()
	b.shader.Dispose()
	b.disposed = true
}

// SetProjection replaces the projection matrix.
func (b *QuadBatch) SetProjection(m mgl32.Mat4) {
	b.projection = m
	b.upload(UniformProjection, m)
}

// SetView replaces the view matrix.
func (b *QuadBatch) SetView(m mgl32.Mat4) {
	b.view = m
	b.upload(UniformView, m)
}

// Resize resets the projection to a w by h pixel viewport.
func (b *QuadBatch) Resize(w, h int) {
	b.SetProjection(ortho2D(w, h))
}

func (b *QuadBatch) upload(name string, m mgl32.Mat4) {
	if b.disposed {
		return
	}
	if b.active {
		b.shader.UploadMat4(name, m)
		return
	}
	b.shader.Activate()
	b.shader.UploadMat4(name, m)
	b.shader.Deactivate()
}

// Active reports whether the batch is inside a Begin/End bracket.
func (b *QuadBatch) Active() bool { return b.active }

// MaxQuads is the quad capacity of one draw.
func (b *QuadBatch) MaxQuads() int { return b.maxQuads }

// MaxTextures is the effective size of the texture table.
func (b *QuadBatch) MaxTextures() int { return b.maxTextures }

// QueuedIndices is the number of indices the next draw will cover.
func (b *QuadBatch) QueuedIndices() int { return b.indexCount }

// Stats returns the cumulative counters.
func (b *QuadBatch) Stats() Stats { return b.stats }

func ortho2D(w, h int) mgl32.Mat4 {
	return mgl32.Ortho(0, float32(w), float32(h), 0, -1, 1)
}
