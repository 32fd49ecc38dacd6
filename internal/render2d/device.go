package render2d

import "github.com/go-gl/mathgl/mgl32"

// Device is the GPU surface a QuadBatch draws through.
type Device interface {
	// CompileShader compiles and links a program from vertex and fragment sources.
	CompileShader(vertexSrc, fragmentSrc string) (Shader, error)
	// NewVertexStore allocates room for capacity vertices and uploads the
	// static index buffer.
	NewVertexStore(capacity int, indices []uint32) (VertexStore, error)
	// MaxTextureUnits is the number of fragment texture units available.
	MaxTextureUnits() int

	SetBlending(enabled bool)
	SetDepthTest(enabled bool)
	BindTexture(unit int, id uint32)
	UnbindTexture(unit int)
}

// VertexStore is a fixed-capacity vertex region plus its index buffer.
type VertexStore interface {
	// Map gives write-only access to the whole region. Previous content is
	// discarded. The returned slice must not be used after Unmap.
	Map() ([]Vertex, error)
	Unmap() error
	// DrawIndexed draws count indices as triangles.
	DrawIndexed(count int)
	Release()
}

// Shader is a linked program with named uniforms.
type Shader interface {
	Activate()
	Deactivate()
	UploadMat4(name string, m mgl32.Mat4)
	UploadInt(name string, v int32)
	UploadFloat(name string, v float32)
	UploadVec4(name string, v mgl32.Vec4)
	Dispose()
}
