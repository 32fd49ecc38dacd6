package render2d

import (
	"fmt"
	"strings"
)

// Uniform names used by the quad shader.
const (
	UniformProjection = "u_projection"
	UniformView       = "u_view"
	UniformTextures   = "u_textures"
)

const quadVertexShader = `#version 330 core
layout(location=0) in vec2 a_position;
layout(location=1) in vec4 a_color;
layout(location=2) in vec2 a_uv;
layout(location=3) in float a_slot;

uniform mat4 u_projection;
uniform mat4 u_view;

out vec4 v_color;
out vec2 v_uv;
out float v_slot;

void main() {
    v_color = a_color;
    v_uv = a_uv;
    v_slot = a_slot;
    gl_Position = u_projection * u_view * vec4(a_position, 0.0, 1.0);
}
`

// ShaderSources returns the vertex and fragment sources for a batch that
// multiplexes slots samplers. GLSL 3.30 only allows constant sampler array
// indices, so the fragment stage is a generated if-chain keyed by slot.
func ShaderSources(slots int) (vertex, fragment string) {
	if slots < 1 {
		slots = 1
	}
	if slots > MaxTextureSlots {
		slots = MaxTextureSlots
	}

	var b strings.Builder
	b.WriteString("#version 330 core\n")
	b.WriteString("in vec4 v_color;\nin vec2 v_uv;\nin float v_slot;\n\n")
	b.WriteString("out vec4 FragColor;\n\n")
	fmt.Fprintf(&b, "uniform sampler2D %s[%d];\n\n", UniformTextures, slots)
	b.WriteString("void main() {\n")
	b.WriteString("    vec4 texColor = vec4(1.0);\n")
	b.WriteString("    int slot = int(v_slot + 0.5);\n")
	for s := 1; s <= slots; s++ {
		keyword := "else if"
		if s == 1 {
			keyword = "if"
		}
		fmt.Fprintf(&b, "    %s (slot == %d) texColor = texture(%s[%d], v_uv);\n", keyword, s, UniformTextures, s-1)
	}
	b.WriteString("    FragColor = v_color * texColor;\n")
	b.WriteString("}\n")

	return quadVertexShader, b.String()
}

// samplerUniform names element i of the sampler array.
func samplerUniform(i int) string {
	return fmt.Sprintf("%s[%d]", UniformTextures, i)
}
