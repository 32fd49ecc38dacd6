package render2d_test

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"go-quad-batch/internal/render2d"
)

func newBatch(t *testing.T, dev *fakeDevice, opts ...render2d.Option) *render2d.QuadBatch {
	t.Helper()
	b, err := render2d.New(dev, opts...)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	return b
}

func tex(id uint32, w, h int32) render2d.Texture {
	return render2d.Texture{ID: id, Width: w, Height: h}
}

func positions(verts []render2d.Vertex) [][2]float32 {
	out := make([][2]float32, len(verts))
	for i, v := range verts {
		out[i] = v.Pos
	}
	return out
}

func uvs(verts []render2d.Vertex) [][2]float32 {
	out := make([][2]float32, len(verts))
	for i, v := range verts {
		out[i] = v.UV
	}
	return out
}

func TestQuadIndicesPattern(t *testing.T) {
	got := render2d.QuadIndices(3)
	want := []uint32{
		0, 1, 2, 2, 3, 0,
		4, 5, 6, 6, 7, 4,
		8, 9, 10, 10, 11, 8,
	}
	if !slices.Equal(got, want) {
		t.Errorf("QuadIndices(3) = %v, want %v", got, want)
	}
}

func TestNewAllocatesStoreAndShader(t *testing.T) {
	dev := newFakeDevice()
	b := newBatch(t, dev, render2d.WithViewport(800, 600))

	if b.MaxQuads() != render2d.DefaultMaxQuads {
		t.Errorf("MaxQuads() = %d, want %d", b.MaxQuads(), render2d.DefaultMaxQuads)
	}
	if got := len(dev.store.buf); got != render2d.DefaultMaxQuads*4 {
		t.Errorf("store capacity = %d vertices, want %d", got, render2d.DefaultMaxQuads*4)
	}
	if got := len(dev.store.indices); got != render2d.DefaultMaxQuads*6 {
		t.Errorf("index count = %d, want %d", got, render2d.DefaultMaxQuads*6)
	}
	if b.QueuedIndices() != 0 || len(b.Textures()) != 0 {
		t.Error("new batch should have nothing queued")
	}

	for i := 0; i < render2d.MaxTextureSlots; i++ {
		name := fmt.Sprintf("u_textures[%d]", i)
		if v, ok := dev.shader.ints[name]; !ok || v != int32(i) {
			t.Errorf("sampler %s = %d (set %v), want %d", name, v, ok, i)
		}
	}

	want := mgl32.Ortho(0, 800, 600, 0, -1, 1)
	if got := dev.shader.mats[render2d.UniformProjection]; got != want {
		t.Errorf("projection = %v, want %v", got, want)
	}
	if got := dev.shader.mats[render2d.UniformView]; got != mgl32.Ident4() {
		t.Errorf("view = %v, want identity", got)
	}
	if dev.shader.active {
		t.Error("shader left active after New")
	}
}

func TestNewClampsTexturesToDeviceUnits(t *testing.T) {
	dev := newFakeDevice()
	dev.units = 16
	b := newBatch(t, dev)

	if b.MaxTextures() != 16 {
		t.Fatalf("MaxTextures() = %d, want 16", b.MaxTextures())
	}
	if !strings.Contains(dev.shader.fragment, "u_textures[16]") {
		t.Error("fragment shader should declare 16 samplers")
	}
	if strings.Contains(dev.shader.fragment, "slot == 17") {
		t.Error("fragment shader should not branch past slot 16")
	}
}

func TestNewErrors(t *testing.T) {
	dev := newFakeDevice()
	dev.storeErr = errors.New("out of memory")
	if _, err := render2d.New(dev); err == nil || !errors.Is(err, dev.storeErr) {
		t.Errorf("New() error = %v, want wrapped store error", err)
	}

	dev = newFakeDevice()
	dev.compileErr = errors.New("bad glsl")
	if _, err := render2d.New(dev); err == nil || !errors.Is(err, dev.compileErr) {
		t.Errorf("New() error = %v, want wrapped compile error", err)
	}
	if !dev.store.released {
		t.Error("vertex store should be released when shader compilation fails")
	}

	if _, err := render2d.New(newFakeDevice(), render2d.WithMaxQuads(0)); err == nil {
		t.Error("New() with zero capacity should fail")
	}
}

func TestBeginEndBracket(t *testing.T) {
	dev := newFakeDevice()
	b := newBatch(t, dev)

	if err := b.End(); !errors.Is(err, render2d.ErrNotBegun) {
		t.Errorf("End() before Begin = %v, want ErrNotBegun", err)
	}
	if err := b.BeginDefault(); err != nil {
		t.Fatalf("BeginDefault() = %v", err)
	}
	if !dev.blending || dev.depthTest {
		t.Errorf("default state blending=%v depth=%v, want true/false", dev.blending, dev.depthTest)
	}
	if !dev.shader.active || !dev.store.mapped {
		t.Error("Begin should activate the shader and map the store")
	}
	if err := b.Begin(true, false); !errors.Is(err, render2d.ErrAlreadyBegun) {
		t.Errorf("nested Begin = %v, want ErrAlreadyBegun", err)
	}
	if err := b.End(); err != nil {
		t.Fatalf("End() = %v", err)
	}
	if dev.shader.active || dev.store.mapped {
		t.Error("End should deactivate the shader and unmap the store")
	}

	if err := b.Begin(false, true); err != nil {
		t.Fatalf("Begin(false, true) = %v", err)
	}
	if dev.blending || !dev.depthTest {
		t.Errorf("state blending=%v depth=%v, want false/true", dev.blending, dev.depthTest)
	}
	_ = b.End()
}

func TestSingleDrawForManyQuads(t *testing.T) {
	dev := newFakeDevice()
	b := newBatch(t, dev)

	const n = 500
	_ = b.BeginDefault()
	for i := 0; i < n; i++ {
		b.DrawTexture(tex(uint32(1+i%8), 8, 8), int32(i), 0, render2d.White)
	}
	if got := b.QueuedIndices(); got != n*6 {
		t.Errorf("QueuedIndices() = %d, want %d", got, n*6)
	}
	if len(dev.store.draws) != 0 {
		t.Fatal("no draw should happen before End")
	}
	_ = b.End()

	if len(dev.store.draws) != 1 {
		t.Fatalf("draw calls = %d, want 1", len(dev.store.draws))
	}
	if dev.store.draws[0].count != n*6 {
		t.Errorf("draw count = %d, want %d", dev.store.draws[0].count, n*6)
	}
	if b.QueuedIndices() != 0 || len(b.Textures()) != 0 {
		t.Error("End should reset queued indices and textures")
	}
	if s := b.Stats(); s.Quads != n || s.DrawCalls != 1 || s.TextureFlushes != 0 || s.CapacityFlushes != 0 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestResolveSlotOrder(t *testing.T) {
	b := newBatch(t, newFakeDevice())
	_ = b.BeginDefault()
	defer b.End()

	for i := 1; i <= render2d.MaxTextureSlots; i++ {
		if got := b.ResolveSlot(tex(uint32(100+i), 4, 4)); got != i {
			t.Fatalf("ResolveSlot(texture %d) = %d, want %d", 100+i, got, i)
		}
	}
	for i := render2d.MaxTextureSlots; i >= 1; i-- {
		if got := b.ResolveSlot(tex(uint32(100+i), 4, 4)); got != i {
			t.Errorf("resubmitted texture %d got slot %d, want %d", 100+i, got, i)
		}
	}
	if got := len(b.Textures()); got != render2d.MaxTextureSlots {
		t.Errorf("table size = %d, want %d", got, render2d.MaxTextureSlots)
	}
	if b.ResolveSlot(render2d.Texture{}) != 0 {
		t.Error("null texture should resolve to slot 0")
	}
}

func TestThirtyThirdTextureFlushes(t *testing.T) {
	dev := newFakeDevice()
	b := newBatch(t, dev)
	_ = b.BeginDefault()

	for i := 1; i <= render2d.MaxTextureSlots; i++ {
		b.DrawTexture(tex(uint32(i), 4, 4), 0, 0, render2d.White)
	}
	if len(dev.store.draws) != 0 {
		t.Fatal("32 textures should fit in one draw")
	}

	b.DrawTexture(tex(33, 4, 4), 0, 0, render2d.White)

	if got := b.Stats().TextureFlushes; got != 1 {
		t.Errorf("TextureFlushes = %d, want 1", got)
	}
	if len(dev.store.draws) != 1 {
		t.Fatalf("draws after 33rd texture = %d, want 1", len(dev.store.draws))
	}
	first := dev.store.draws[0]
	if first.count != render2d.MaxTextureSlots*6 {
		t.Errorf("flushed draw count = %d, want %d", first.count, render2d.MaxTextureSlots*6)
	}
	for unit := 0; unit < render2d.MaxTextureSlots; unit++ {
		if first.textures[unit] != uint32(unit+1) {
			t.Errorf("unit %d bound to %d, want %d", unit, first.textures[unit], unit+1)
		}
	}
	if got := b.Textures(); !slices.Equal(got, []uint32{33}) {
		t.Errorf("table after flush = %v, want [33]", got)
	}
	if got := b.QueuedIndices(); got != 6 {
		t.Errorf("QueuedIndices() after flush = %d, want 6", got)
	}

	_ = b.End()
	if len(dev.store.draws) != 2 {
		t.Fatalf("total draws = %d, want 2", len(dev.store.draws))
	}
	last := dev.store.draws[1]
	if last.count != 6 || last.textures[0] != 33 || last.vertices[0].Slot != 1 {
		t.Errorf("second draw = count %d textures %v slot %v", last.count, last.textures, last.vertices[0].Slot)
	}
	if len(dev.bound) != 0 {
		t.Errorf("textures left bound after End: %v", dev.bound)
	}
}

func TestCapacityOverflowFlushes(t *testing.T) {
	dev := newFakeDevice()
	b := newBatch(t, dev, render2d.WithMaxQuads(4))
	_ = b.BeginDefault()
	for i := 0; i < 10; i++ {
		b.DrawRectangle(int32(i), 0, 1, 1, render2d.White)
	}
	_ = b.End()

	var counts []int
	for _, d := range dev.store.draws {
		counts = append(counts, d.count)
	}
	if !slices.Equal(counts, []int{24, 24, 12}) {
		t.Errorf("draw counts = %v, want [24 24 12]", counts)
	}
	if s := b.Stats(); s.CapacityFlushes != 2 || s.Quads != 10 {
		t.Errorf("Stats() = %+v, want 2 capacity flushes and 10 quads", s)
	}
	// Geometry order survives the flushes.
	if x := dev.store.draws[1].vertices[0].Pos[0]; x != 4 {
		t.Errorf("first quad of second draw at x=%v, want 4", x)
	}
}

func TestFullBufferAndFullTableFlushOnce(t *testing.T) {
	dev := newFakeDevice()
	b := newBatch(t, dev, render2d.WithMaxQuads(render2d.MaxTextureSlots))
	_ = b.BeginDefault()
	for i := 1; i <= render2d.MaxTextureSlots; i++ {
		b.DrawTexture(tex(uint32(i), 4, 4), 0, 0, render2d.White)
	}
	if len(dev.store.draws) != 0 {
		t.Fatal("a full buffer should not draw before the next quad")
	}

	b.DrawTexture(tex(33, 4, 4), 0, 0, render2d.White)

	if len(dev.store.draws) != 1 {
		t.Fatalf("draws = %d, want exactly 1 flush", len(dev.store.draws))
	}
	if s := b.Stats(); s.CapacityFlushes != 1 || s.TextureFlushes != 0 {
		t.Errorf("Stats() = %+v, want one capacity flush and no texture flush", s)
	}
	if got := b.Textures(); !slices.Equal(got, []uint32{33}) {
		t.Errorf("table after flush = %v, want [33]", got)
	}

	_ = b.End()
	if len(dev.store.draws) != 2 {
		t.Fatalf("total draws = %d, want 2", len(dev.store.draws))
	}
	last := dev.store.draws[1]
	if last.count != 6 || last.textures[0] != 33 || last.vertices[0].Slot != 1 {
		t.Errorf("second draw = count %d textures %v slot %v", last.count, last.textures, last.vertices[0].Slot)
	}
}

func TestDrawTextureVertices(t *testing.T) {
	dev := newFakeDevice()
	b := newBatch(t, dev)
	_ = b.BeginDefault()
	b.DrawTexture(tex(5, 32, 16), 10, 20, render2d.White)
	_ = b.End()

	verts := dev.store.draws[0].vertices
	want := [][2]float32{{10, 20}, {10, 36}, {42, 36}, {42, 20}}
	if got := positions(verts); !slices.Equal(got, want) {
		t.Errorf("positions = %v, want %v", got, want)
	}
	for i, v := range verts {
		if v.Color != render2d.White {
			t.Errorf("vertex %d color = %v, want white", i, v.Color)
		}
		if v.Slot != 1 {
			t.Errorf("vertex %d slot = %v, want 1", i, v.Slot)
		}
	}
	if got := uvs(verts); !slices.Equal(got, [][2]float32{{0, 0}, {0, 1}, {1, 1}, {1, 0}}) {
		t.Errorf("default uvs = %v", got)
	}
}

func TestFlipFlagUVSets(t *testing.T) {
	cases := []struct {
		flip render2d.FlipFlag
		want [][2]float32
	}{
		{render2d.FlipNone, [][2]float32{{0, 0}, {0, 1}, {1, 1}, {1, 0}}},
		{render2d.FlipHorizontal, [][2]float32{{1, 1}, {1, 0}, {0, 0}, {0, 1}}},
		{render2d.FlipVertical, [][2]float32{{0, 1}, {0, 0}, {1, 0}, {1, 1}}},
		{render2d.FlipBoth, [][2]float32{{1, 0}, {1, 1}, {0, 1}, {0, 0}}},
	}
	for _, tc := range cases {
		dev := newFakeDevice()
		b := newBatch(t, dev)
		_ = b.BeginDefault()
		b.DrawTexture(tex(1, 8, 8).Flipped(tc.flip), 0, 0, render2d.White)
		_ = b.End()
		if got := uvs(dev.store.draws[0].vertices); !slices.Equal(got, tc.want) {
			t.Errorf("flip %d uvs = %v, want %v", tc.flip, got, tc.want)
		}
	}
}

func TestRotateNinetyAroundCenter(t *testing.T) {
	dev := newFakeDevice()
	b := newBatch(t, dev)
	_ = b.BeginDefault()
	b.DrawTextureRotatedCentered(tex(1, 16, 16), 0, 0, 90, render2d.White)
	_ = b.End()

	verts := dev.store.draws[0].vertices
	topLeft := verts[0].Pos
	wantTopRight := [2]float32{16, 0}
	const eps = 1e-4
	if math.Abs(float64(topLeft[0]-wantTopRight[0])) > eps || math.Abs(float64(topLeft[1]-wantTopRight[1])) > eps {
		t.Errorf("rotated top-left = %v, want %v", topLeft, wantTopRight)
	}
}

func TestRotateAroundExplicitPivot(t *testing.T) {
	dev := newFakeDevice()
	b := newBatch(t, dev)
	_ = b.BeginDefault()
	b.DrawTextureRotated(tex(1, 10, 10), 10, 0, mgl32.Vec2{0, 0}, 180, render2d.White)
	b.DrawTextureRotated(tex(1, 10, 10), 10, 0, mgl32.Vec2{0, 0}, 0, render2d.White)
	_ = b.End()

	verts := dev.store.draws[0].vertices
	const eps = 1e-4
	// 180 degrees about the origin negates every coordinate.
	want := [][2]float32{{-10, 0}, {-10, -10}, {-20, -10}, {-20, 0}}
	for i, w := range want {
		p := verts[i].Pos
		if math.Abs(float64(p[0]-w[0])) > eps || math.Abs(float64(p[1]-w[1])) > eps {
			t.Errorf("vertex %d = %v, want %v", i, p, w)
		}
	}
	if got := positions(verts[4:]); !slices.Equal(got, [][2]float32{{10, 0}, {10, 10}, {20, 10}, {20, 0}}) {
		t.Errorf("zero rotation moved the quad: %v", got)
	}
}

func TestDrawTextureExRegion(t *testing.T) {
	dev := newFakeDevice()
	b := newBatch(t, dev)
	_ = b.BeginDefault()
	src := render2d.Rect{X: 8, Y: 4, W: 16, H: 8}
	dst := render2d.Rect{X: 100, Y: 50, W: 64, H: 32}
	tint := render2d.RGBA8(255, 0, 0, 255)
	b.DrawTextureEx(tex(9, 32, 16), src, dst, tint)
	b.DrawTextureEx(tex(9, 32, 16).Flipped(render2d.FlipBoth), src, dst, tint)
	_ = b.End()

	verts := dev.store.draws[0].vertices
	if got := positions(verts[:4]); !slices.Equal(got, [][2]float32{{100, 50}, {100, 82}, {164, 82}, {164, 50}}) {
		t.Errorf("positions = %v", got)
	}
	if got := uvs(verts[:4]); !slices.Equal(got, [][2]float32{{0.25, 0.25}, {0.25, 0.75}, {0.75, 0.75}, {0.75, 0.25}}) {
		t.Errorf("uvs = %v", got)
	}
	if got := uvs(verts[4:]); !slices.Equal(got, [][2]float32{{0.75, 0.25}, {0.75, 0.75}, {0.25, 0.75}, {0.25, 0.25}}) {
		t.Errorf("both-flipped uvs = %v", got)
	}
	if verts[0].Color != (render2d.Color{1, 0, 0, 1}) {
		t.Errorf("color = %v, want normalized red", verts[0].Color)
	}
}

func TestDrawTextureExFullSourceMatchesDrawTexture(t *testing.T) {
	for _, flip := range []render2d.FlipFlag{render2d.FlipNone, render2d.FlipHorizontal, render2d.FlipVertical, render2d.FlipBoth} {
		dev := newFakeDevice()
		b := newBatch(t, dev)
		tx := tex(3, 20, 10).Flipped(flip)
		_ = b.BeginDefault()
		b.DrawTexture(tx, 5, 5, render2d.White)
		b.DrawTextureEx(tx, render2d.Rect{W: 20, H: 10}, render2d.Rect{X: 5, Y: 5, W: 20, H: 10}, render2d.White)
		_ = b.End()

		verts := dev.store.draws[0].vertices
		if !slices.Equal(verts[:4], verts[4:]) {
			t.Errorf("flip %d: DrawTextureEx %v differs from DrawTexture %v", flip, verts[4:], verts[:4])
		}
	}
}

func TestDrawRectangleIsUntextured(t *testing.T) {
	dev := newFakeDevice()
	b := newBatch(t, dev)
	_ = b.BeginDefault()
	b.DrawRectangle(1, 2, 3, 4, render2d.RGBA8(0, 0, 255, 128))
	_ = b.End()

	verts := dev.store.draws[0].vertices
	if got := positions(verts); !slices.Equal(got, [][2]float32{{1, 2}, {1, 6}, {4, 6}, {4, 2}}) {
		t.Errorf("positions = %v", got)
	}
	for i, v := range verts {
		if v.Slot != 0 || v.UV != [2]float32{} {
			t.Errorf("vertex %d slot=%v uv=%v, want 0 and (0,0)", i, v.Slot, v.UV)
		}
	}
	if len(dev.store.draws[0].textures) != 0 {
		t.Error("rectangles should not bind textures")
	}
}

func TestNullTextureIsSkipped(t *testing.T) {
	dev := newFakeDevice()
	b := newBatch(t, dev)
	null := render2d.Texture{Width: 32, Height: 32}

	_ = b.BeginDefault()
	b.DrawTexture(null, 0, 0, render2d.White)
	b.DrawTextureRotated(null, 0, 0, mgl32.Vec2{}, 45, render2d.White)
	b.DrawTextureRotatedCentered(null, 0, 0, 45, render2d.White)
	b.DrawTextureEx(null, render2d.Rect{W: 1, H: 1}, render2d.Rect{W: 1, H: 1}, render2d.White)
	b.DrawFramebuffer(nil, 0, 0)
	if got := b.QueuedIndices(); got != 0 {
		t.Errorf("QueuedIndices() = %d, want 0", got)
	}
	if len(b.Textures()) != 0 {
		t.Error("null texture should not take a slot")
	}
	_ = b.End()
	if b.Stats().Quads != 0 {
		t.Errorf("Quads = %d, want 0", b.Stats().Quads)
	}
}

type target struct{ tex render2d.Texture }

func (t target) ColorTexture() render2d.Texture { return t.tex }

func TestDrawFramebuffer(t *testing.T) {
	dev := newFakeDevice()
	b := newBatch(t, dev)
	_ = b.BeginDefault()
	b.DrawFramebuffer(target{tex(44, 64, 32)}, 0, 0)
	_ = b.End()

	d := dev.store.draws[0]
	if d.count != 6 || d.textures[0] != 44 {
		t.Errorf("framebuffer draw = count %d textures %v", d.count, d.textures)
	}
}

func TestDrawOutsideBracketIsDropped(t *testing.T) {
	dev := newFakeDevice()
	b := newBatch(t, dev)
	b.DrawRectangle(0, 0, 1, 1, render2d.White)
	b.DrawTexture(tex(1, 1, 1), 0, 0, render2d.White)
	if b.QueuedIndices() != 0 || b.Stats().Quads != 0 {
		t.Error("draws outside Begin/End should be dropped")
	}
}

func TestResizeUploadsProjection(t *testing.T) {
	dev := newFakeDevice()
	b := newBatch(t, dev)
	b.Resize(1024, 768)
	if got, want := dev.shader.mats[render2d.UniformProjection], mgl32.Ortho(0, 1024, 768, 0, -1, 1); got != want {
		t.Errorf("projection = %v, want %v", got, want)
	}
	if dev.shader.active {
		t.Error("shader should be deactivated after an upload outside Begin/End")
	}

	_ = b.BeginDefault()
	view := mgl32.Translate3D(5, 5, 0)
	b.SetView(view)
	if !dev.shader.active {
		t.Error("SetView inside a bracket must not deactivate the shader")
	}
	_ = b.End()
	if dev.shader.mats[render2d.UniformView] != view {
		t.Error("view matrix not uploaded")
	}
}

func TestDispose(t *testing.T) {
	dev := newFakeDevice()
	b := newBatch(t, dev)
	_ = b.BeginDefault()
	b.DrawRectangle(0, 0, 1, 1, render2d.White)
	b.Dispose()
	b.Dispose()

	if !dev.store.released || !dev.shader.disposed {
		t.Error("Dispose should release the store and the shader")
	}
	if dev.store.mapped {
		t.Error("Dispose should unmap an open bracket")
	}
	if err := b.BeginDefault(); !errors.Is(err, render2d.ErrDisposed) {
		t.Errorf("Begin after Dispose = %v, want ErrDisposed", err)
	}
}

func TestShaderSources(t *testing.T) {
	vs, fs := render2d.ShaderSources(4)
	for _, want := range []string{"u_projection * u_view", "layout(location=3) in float a_slot"} {
		if !strings.Contains(vs, want) {
			t.Errorf("vertex source missing %q", want)
		}
	}
	for _, want := range []string{"uniform sampler2D u_textures[4]", "slot == 4) texColor = texture(u_textures[3]", "vec4 texColor = vec4(1.0)"} {
		if !strings.Contains(fs, want) {
			t.Errorf("fragment source missing %q", want)
		}
	}
	if strings.Contains(fs, "slot == 5") {
		t.Error("fragment source branches past its sampler count")
	}

	_, fs = render2d.ShaderSources(100)
	if !strings.Contains(fs, "u_textures[32]") {
		t.Error("slot count should clamp to 32")
	}
}

func TestColorConversions(t *testing.T) {
	if got := render2d.RGBA8(255, 0, 51, 255); got != (render2d.Color{1, 0, 0.2, 1}) {
		t.Errorf("RGBA8 = %v", got)
	}
	if got := render2d.PackRGBA(0x11, 0x22, 0x33, 0x44); got != 0x44332211 {
		t.Errorf("PackRGBA = %#x", got)
	}
}
