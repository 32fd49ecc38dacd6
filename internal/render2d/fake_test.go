package render2d_test

import (
	"errors"
	"maps"

	"github.com/go-gl/mathgl/mgl32"

	"go-quad-batch/internal/render2d"
)

// fakeDevice records what a QuadBatch asks of the GPU.
type fakeDevice struct {
	units int

	storeErr   error
	compileErr error

	store  *fakeStore
	shader *fakeShader

	blending  bool
	depthTest bool
	bound     map[int]uint32
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{units: 32, bound: make(map[int]uint32)}
}

func (d *fakeDevice) CompileShader(vs, fs string) (render2d.Shader, error) {
	if d.compileErr != nil {
		return nil, d.compileErr
	}
	d.shader = &fakeShader{
		vertex:   vs,
		fragment: fs,
		ints:     make(map[string]int32),
		mats:     make(map[string]mgl32.Mat4),
	}
	return d.shader, nil
}

func (d *fakeDevice) NewVertexStore(capacity int, indices []uint32) (render2d.VertexStore, error) {
	if d.storeErr != nil {
		return nil, d.storeErr
	}
	d.store = &fakeStore{
		dev:     d,
		buf:     make([]render2d.Vertex, capacity),
		indices: indices,
	}
	return d.store, nil
}

func (d *fakeDevice) MaxTextureUnits() int      { return d.units }
func (d *fakeDevice) SetBlending(enabled bool)  { d.blending = enabled }
func (d *fakeDevice) SetDepthTest(enabled bool) { d.depthTest = enabled }

func (d *fakeDevice) BindTexture(unit int, id uint32) { d.bound[unit] = id }
func (d *fakeDevice) UnbindTexture(unit int)          { delete(d.bound, unit) }

type drawCall struct {
	count    int
	vertices []render2d.Vertex
	textures map[int]uint32
}

type fakeStore struct {
	dev      *fakeDevice
	buf      []render2d.Vertex
	indices  []uint32
	mapped   bool
	maps     int
	draws    []drawCall
	released bool
}

func (s *fakeStore) Map() ([]render2d.Vertex, error) {
	if s.mapped {
		return nil, errors.New("already mapped")
	}
	clear(s.buf)
	s.mapped = true
	s.maps++
	return s.buf, nil
}

func (s *fakeStore) Unmap() error {
	if !s.mapped {
		return errors.New("not mapped")
	}
	s.mapped = false
	return nil
}

func (s *fakeStore) DrawIndexed(count int) {
	quads := count / render2d.IndicesPerQuad
	verts := make([]render2d.Vertex, quads*render2d.VerticesPerQuad)
	copy(verts, s.buf)
	s.draws = append(s.draws, drawCall{
		count:    count,
		vertices: verts,
		textures: maps.Clone(s.dev.bound),
	})
}

func (s *fakeStore) Release() { s.released = true }

type fakeShader struct {
	vertex   string
	fragment string
	active   bool
	disposed bool
	ints     map[string]int32
	mats     map[string]mgl32.Mat4
}

func (s *fakeShader) Activate()   { s.active = true }
func (s *fakeShader) Deactivate() { s.active = false }
func (s *fakeShader) Dispose()    { s.disposed = true }

func (s *fakeShader) UploadMat4(name string, m mgl32.Mat4) { s.mats[name] = m }
func (s *fakeShader) UploadInt(name string, v int32)       { s.ints[name] = v }
func (s *fakeShader) UploadFloat(name string, v float32)   {}
func (s *fakeShader) UploadVec4(name string, v mgl32.Vec4) {}
