package glbackend

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-gl/gl/v3.3-core/gl"

	"go-quad-batch/internal/render2d"
)

var ErrIncompleteFramebuffer = errors.New("glbackend: framebuffer incomplete")

// Attachment selects what a Framebuffer renders into.
type Attachment int

const (
	ColorAttachment Attachment = iota
	DepthAttachment
)

// Framebuffer is an off-screen target backed by a texture.
type Framebuffer struct {
	id    uint32
	depth uint32 // renderbuffer, color targets only
	tex   render2d.Texture
	kind  Attachment
}

var _ render2d.RenderTarget = (*Framebuffer)(nil)

// NewFramebuffer creates a w by h target. An incomplete framebuffer is
// released and reported as ErrIncompleteFramebuffer.
func NewFramebuffer(w, h int, kind Attachment, filter Filter) (*Framebuffer, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("glbackend: invalid framebuffer size %dx%d", w, h)
	}
	fb := &Framebuffer{kind: kind}

	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)
	switch kind {
	case ColorAttachment:
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, int32(w), int32(h), 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_BORDER)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_BORDER)
	case DepthAttachment:
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.DEPTH_COMPONENT, int32(w), int32(h), 0, gl.DEPTH_COMPONENT, gl.FLOAT, nil)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	default:
		gl.DeleteTextures(1, &id)
		return nil, fmt.Errorf("glbackend: unknown attachment %d", kind)
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, int32(filter))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, int32(filter))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	// GL stores rows bottom-up; drawing under a top-left projection flips them back.
	fb.tex = render2d.Texture{ID: id, Width: int32(w), Height: int32(h), Flip: render2d.FlipVertical}

	gl.GenFramebuffers(1, &fb.id)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.id)
	if kind == ColorAttachment {
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, id, 0)
		gl.GenRenderbuffers(1, &fb.depth)
		gl.BindRenderbuffer(gl.RENDERBUFFER, fb.depth)
		gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH_COMPONENT, int32(w), int32(h))
		gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, fb.depth)
		gl.BindRenderbuffer(gl.RENDERBUFFER, 0)
	} else {
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D, id, 0)
		gl.DrawBuffer(gl.NONE)
		gl.ReadBuffer(gl.NONE)
	}

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		fb.Dispose()
		return nil, fmt.Errorf("%w: status 0x%x", ErrIncompleteFramebuffer, status)
	}

	slog.Debug("framebuffer created", "id", fb.id, "width", w, "height", h, "depth", kind == DepthAttachment)
	return fb, nil
}

// ColorTexture returns the attachment texture, or the null texture for a
// nil framebuffer.
func (fb *Framebuffer) ColorTexture() render2d.Texture {
	if fb == nil {
		return render2d.Texture{}
	}
	return fb.tex
}

// Bind redirects rendering into fb and sets the viewport to its size.
func (fb *Framebuffer) Bind() {
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.id)
	gl.Viewport(0, 0, fb.tex.Width, fb.tex.Height)
}

// Unbind restores the default framebuffer with a w by h viewport.
func (fb *Framebuffer) Unbind(w, h int) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	SetViewport(w, h)
}

func SetViewport(w, h int) {
	gl.Viewport(0, 0, int32(w), int32(h))
}

// Clear clears the bound target's color and depth.
func Clear(c render2d.Color) {
	gl.ClearColor(c[0], c[1], c[2], c[3])
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// Dispose deletes the framebuffer and its texture.
func (fb *Framebuffer) Dispose() {
	if fb == nil {
		return
	}
	DisposeTexture(&fb.tex)
	if fb.depth != 0 {
		gl.DeleteRenderbuffers(1, &fb.depth)
		fb.depth = 0
	}
	if fb.id != 0 {
		gl.DeleteFramebuffers(1, &fb.id)
		fb.id = 0
	}
}
