// Package glbackend implements the render2d device contracts on OpenGL 3.3
// core, and loads textures and off-screen targets for them.
//
// Every function in this package must be called on the thread that owns the
// current GL context.
package glbackend

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v3.3-core/gl"

	"go-quad-batch/internal/render2d"
)

// Device talks to the current GL context.
type Device struct {
	units int
}

var _ render2d.Device = (*Device)(nil)

// NewDevice queries the context limits. gl.Init must have run.
func NewDevice() *Device {
	var units int32
	gl.GetIntegerv(gl.MAX_TEXTURE_IMAGE_UNITS, &units)
	return &Device{units: int(units)}
}

// MaxTextureUnits is GL_MAX_TEXTURE_IMAGE_UNITS as read at creation.
func (d *Device) MaxTextureUnits() int { return d.units }

// CompileShader builds a Program from the two stage sources.
func (d *Device) CompileShader(vertexSrc, fragmentSrc string) (render2d.Shader, error) {
	p, err := NewProgram(vertexSrc, fragmentSrc)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// SetBlending toggles straight alpha blending.
func (d *Device) SetBlending(enabled bool) {
	if enabled {
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
		return
	}
	gl.Disable(gl.BLEND)
}

// SetDepthTest toggles depth testing.
func (d *Device) SetDepthTest(enabled bool) {
	if enabled {
		gl.Enable(gl.DEPTH_TEST)
		return
	}
	gl.Disable(gl.DEPTH_TEST)
}

// BindTexture binds id as a 2D texture on unit.
func (d *Device) BindTexture(unit int, id uint32) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	gl.BindTexture(gl.TEXTURE_2D, id)
}

// UnbindTexture clears the 2D binding of unit.
func (d *Device) UnbindTexture(unit int) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

// NewVertexStore creates a VAO with a dynamic vertex buffer of capacity
// vertices and a static element buffer holding indices.
func (d *Device) NewVertexStore(capacity int, indices []uint32) (render2d.VertexStore, error) {
	if capacity <= 0 || len(indices) == 0 {
		return nil, fmt.Errorf("glbackend: empty vertex store (%d vertices, %d indices)", capacity, len(indices))
	}
	s := &vertexStore{capacity: capacity}

	gl.GenVertexArrays(1, &s.vao)
	gl.BindVertexArray(s.vao)

	gl.GenBuffers(1, &s.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, s.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, capacity*int(vertexStride), nil, gl.DYNAMIC_DRAW)

	gl.GenBuffers(1, &s.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, s.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, gl.Ptr(indices), gl.STATIC_DRAW)

	var v render2d.Vertex
	gl.VertexAttribPointerWithOffset(render2d.AttribPos, 2, gl.FLOAT, false, vertexStride, unsafe.Offsetof(v.Pos))
	gl.EnableVertexAttribArray(render2d.AttribPos)
	gl.VertexAttribPointerWithOffset(render2d.AttribColor, 4, gl.FLOAT, false, vertexStride, unsafe.Offsetof(v.Color))
	gl.EnableVertexAttribArray(render2d.AttribColor)
	gl.VertexAttribPointerWithOffset(render2d.AttribUV, 2, gl.FLOAT, false, vertexStride, unsafe.Offsetof(v.UV))
	gl.EnableVertexAttribArray(render2d.AttribUV)
	gl.VertexAttribPointerWithOffset(render2d.AttribSlot, 1, gl.FLOAT, false, vertexStride, unsafe.Offsetof(v.Slot))
	gl.EnableVertexAttribArray(render2d.AttribSlot)

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	if code := gl.GetError(); code != gl.NO_ERROR {
		s.Release()
		return nil, fmt.Errorf("glbackend: create vertex store: GL error 0x%x", code)
	}
	return s, nil
}

const vertexStride = int32(unsafe.Sizeof(render2d.Vertex{}))

var errMapFailed = errors.New("glbackend: map vertex buffer failed")

type vertexStore struct {
	vao, vbo, ebo uint32
	capacity      int
	mapped        bool
}

// Map maps the whole vertex buffer for writing and invalidates it.
func (s *vertexStore) Map() ([]render2d.Vertex, error) {
	gl.BindBuffer(gl.ARRAY_BUFFER, s.vbo)
	ptr := gl.MapBufferRange(gl.ARRAY_BUFFER, 0, s.capacity*int(vertexStride),
		gl.MAP_WRITE_BIT|gl.MAP_INVALIDATE_BUFFER_BIT)
	if ptr == nil {
		gl.BindBuffer(gl.ARRAY_BUFFER, 0)
		return nil, errMapFailed
	}
	s.mapped = true
	return unsafe.Slice((*render2d.Vertex)(ptr), s.capacity), nil
}

// Unmap fails when the driver lost the buffer contents while mapped.
func (s *vertexStore) Unmap() error {
	if !s.mapped {
		return nil
	}
	s.mapped = false
	gl.BindBuffer(gl.ARRAY_BUFFER, s.vbo)
	ok := gl.UnmapBuffer(gl.ARRAY_BUFFER)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	if !ok {
		return errors.New("glbackend: vertex buffer contents lost while mapped")
	}
	return nil
}

// DrawIndexed draws count indices as triangles.
func (s *vertexStore) DrawIndexed(count int) {
	gl.BindVertexArray(s.vao)
	gl.DrawElements(gl.TRIANGLES, int32(count), gl.UNSIGNED_INT, gl.PtrOffset(0))
	gl.BindVertexArray(0)
}

// Release deletes the buffers and the vertex array.
func (s *vertexStore) Release() {
	if s.mapped {
		_ = s.Unmap()
	}
	if s.ebo != 0 {
		gl.DeleteBuffers(1, &s.ebo)
		s.ebo = 0
	}
	if s.vbo != 0 {
		gl.DeleteBuffers(1, &s.vbo)
		s.vbo = 0
	}
	if s.vao != 0 {
		gl.DeleteVertexArrays(1, &s.vao)
		s.vao = 0
	}
}
