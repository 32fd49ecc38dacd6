package glbackend

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// Program is a linked shader program with a uniform location cache.
type Program struct {
	id        uint32
	locations map[string]int32
}

// NewProgram compiles both stages and links them.
func NewProgram(vertexSrc, fragmentSrc string) (*Program, error) {
	vs, err := compileShader(vertexSrc, gl.VERTEX_SHADER)
	if err != nil {
		return nil, fmt.Errorf("vertex shader: %w", err)
	}
	defer gl.DeleteShader(vs)

	fs, err := compileShader(fragmentSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		return nil, fmt.Errorf("fragment shader: %w", err)
	}
	defer gl.DeleteShader(fs)

	id, err := linkProgram(vs, fs)
	if err != nil {
		return nil, err
	}
	return &Program{id: id, locations: make(map[string]int32)}, nil
}

// ID is the GL program name.
func (p *Program) ID() uint32 { return p.id }

// Activate and Deactivate install and remove the program.
func (p *Program) Activate()   { gl.UseProgram(p.id) }
func (p *Program) Deactivate() { gl.UseProgram(0) }

// Location returns the cached location of a uniform, -1 if the program has
// none by that name.
func (p *Program) Location(name string) int32 {
	if loc, ok := p.locations[name]; ok {
		return loc
	}
	loc := gl.GetUniformLocation(p.id, gl.Str(name+"\x00"))
	p.locations[name] = loc
	return loc
}

// UploadMat4 sets a mat4 uniform.
func (p *Program) UploadMat4(name string, m mgl32.Mat4) {
	gl.UniformMatrix4fv(p.Location(name), 1, false, &m[0])
}

// UploadInt sets an int or sampler uniform.
func (p *Program) UploadInt(name string, v int32) {
	gl.Uniform1i(p.Location(name), v)
}

// UploadFloat sets a float uniform.
func (p *Program) UploadFloat(name string, v float32) {
	gl.Uniform1f(p.Location(name), v)
}

// UploadVec4 sets a vec4 uniform.
func (p *Program) UploadVec4(name string, v mgl32.Vec4) {
	gl.Uniform4f(p.Location(name), v[0], v[1], v[2], v[3])
}

// Dispose deletes the program.
func (p *Program) Dispose() {
	if p.id != 0 {
		gl.DeleteProgram(p.id)
		p.id = 0
	}
	clear(p.locations)
}

func compileShader(src string, shaderType uint32) (uint32, error) {
	sh := gl.CreateShader(shaderType)
	cstrs, free := gl.Strs(terminate(src))
	gl.ShaderSource(sh, 1, cstrs, nil)
	free()
	gl.CompileShader(sh)

	var status int32
	gl.GetShaderiv(sh, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var l int32
		gl.GetShaderiv(sh, gl.INFO_LOG_LENGTH, &l)
		logstr := strings.Repeat("\x00", int(l+1))
		gl.GetShaderInfoLog(sh, l, nil, gl.Str(logstr))
		gl.DeleteShader(sh)
		return 0, fmt.Errorf("compile: %s", strings.TrimRight(logstr, "\x00"))
	}
	return sh, nil
}

func linkProgram(vs, fs uint32) (uint32, error) {
	p := gl.CreateProgram()
	gl.AttachShader(p, vs)
	gl.AttachShader(p, fs)
	gl.LinkProgram(p)

	var status int32
	gl.GetProgramiv(p, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var l int32
		gl.GetProgramiv(p, gl.INFO_LOG_LENGTH, &l)
		logstr := strings.Repeat("\x00", int(l+1))
		gl.GetProgramInfoLog(p, l, nil, gl.Str(logstr))
		gl.DeleteProgram(p)
		return 0, fmt.Errorf("link: %s", strings.TrimRight(logstr, "\x00"))
	}
	gl.DetachShader(p, vs)
	gl.DetachShader(p, fs)
	return p, nil
}

// terminate appends the NUL gl.Strs expects.
func terminate(src string) string {
	if strings.HasSuffix(src, "\x00") {
		return src
	}
	return src + "\x00"
}
