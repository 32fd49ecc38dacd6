// Command src is the quad batch demo: a HUD of text, sprites, rectangles,
// rotated and flipped quads and an off-screen panel, all drawn through one
// render2d.QuadBatch.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/font/gofont/goregular"

	"go-quad-batch/internal/atlas"
	"go-quad-batch/internal/config"
	"go-quad-batch/internal/glbackend"
	"go-quad-batch/internal/imgscale"
	"go-quad-batch/internal/render2d"
)

const (
	panelW     = 320
	panelH     = 96
	thumbSize  = 128
	plasmaSize = 32
	gridCols   = 64
	gridRows   = 24
	frameDelay = 100 * time.Millisecond
)

var (
	background = render2d.RGBA8(26, 26, 26, 255)
	panelBG    = render2d.RGBA8(40, 60, 90, 255)
	shade      = render2d.RGBA8(0, 0, 0, 160)
	orange     = render2d.Color{1.0, 0.5, 0.2, 1}
	cyan       = render2d.Color{0.2, 0.8, 1.0, 1}
	grey       = render2d.Color{0.7, 0.7, 0.7, 1}
)

func init() {
	runtime.LockOSThread()
}

func main() {
	cfg, err := config.Load(os.Args[0], os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "invalid settings: %v\n", err)
		os.Exit(2)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()})))

	if err := run(cfg); err != nil {
		slog.Error("demo failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	win, err := glbackend.InitWindow(glbackend.WindowConfig{
		Title:  "Quad Batch Demo",
		Width:  cfg.Width,
		Height: cfg.Height,
		VSync:  cfg.VSync,
	})
	if err != nil {
		return err
	}
	defer glfw.Terminate()

	font, err := loadFont(cfg)
	if err != nil {
		return err
	}
	defer glbackend.DisposeTexture(&font.tex)

	var anim *sheet
	if cfg.GIFPath != "" {
		anim, err = loadSheet(atlas.Config{
			Kind:    atlas.KindGIF,
			GIFPath: cfg.GIFPath,
			Padding: cfg.Padding,
			Width:   cfg.AtlasWidth,
			Height:  cfg.AtlasHeight,
		}, cfg.DumpAtlas)
		if err != nil {
			return fmt.Errorf("GIF atlas: %w", err)
		}
		defer glbackend.DisposeTexture(&anim.tex)
	}

	thumb := thumbnail(font.Atlas, cfg.ScaleThreads)
	defer glbackend.DisposeTexture(&thumb)

	plasmaTex := glbackend.NewTexture(plasmaSize, plasmaSize, glbackend.Nearest)
	defer glbackend.DisposeTexture(&plasmaTex)

	w, h := win.GetFramebufferSize()
	batch, err := render2d.New(glbackend.NewDevice(),
		render2d.WithMaxQuads(cfg.MaxQuads),
		render2d.WithViewport(w, h),
		render2d.WithLogger(slog.Default()))
	if err != nil {
		return fmt.Errorf("create batch: %w", err)
	}
	defer batch.Dispose()

	panel, err := glbackend.NewFramebuffer(panelW, panelH, glbackend.ColorAttachment, glbackend.Linear)
	if err != nil {
		slog.Warn("off-screen panel disabled", "error", err)
	}
	defer panel.Dispose()

	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w, h = width, height
		glbackend.SetViewport(w, h)
		batch.Resize(w, h)
	})
	win.SetKeyCallback(func(win *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			win.SetShouldClose(true)
		}
	})

	d := &demo{
		cfg:   cfg,
		batch: batch,
		font:  font,
		anim:  anim,
		thumb: thumb,
		panel: panel,

		plasma:    plasmaTex,
		plasmaPix: make([]uint32, plasmaSize*plasmaSize),
		fps:   NewFPSCounter(),
		start: time.Now(),
	}
	d.lastFrame = d.start

	slog.Info("starting render loop", "maxQuads", batch.MaxQuads(), "textureSlots", batch.MaxTextures())
	for !win.ShouldClose() {
		glfw.PollEvents()
		d.fps.Update()

		if d.panel != nil {
			d.drawPanel(w, h)
		}

		glbackend.Clear(background)
		if err := d.drawFrame(w, h); err != nil {
			return err
		}
		win.SwapBuffers()
		d.frame++
	}

	s := batch.Stats()
	slog.Info("render loop finished",
		"frames", d.frame,
		"quads", s.Quads,
		"draws", s.DrawCalls,
		"textureFlushes", s.TextureFlushes,
		"capacityFlushes", s.CapacityFlushes)
	return nil
}

func loadFont(cfg config.Config) (*sheet, error) {
	fc := atlas.Config{
		Kind:     atlas.KindFont,
		FontPath: cfg.FontPath,
		FontSize: cfg.FontSize,
		DPI:      cfg.DPI,
		Padding:  cfg.Padding,
		Width:    cfg.AtlasWidth,
		Height:   cfg.AtlasHeight,
	}
	if cfg.FontPath != "" {
		s, err := loadSheet(fc, cfg.DumpAtlas)
		if err != nil {
			return nil, fmt.Errorf("font atlas: %w", err)
		}
		return s, nil
	}

	a, err := atlas.BuildFontBytes(goregular.TTF, fc)
	if err != nil {
		return nil, fmt.Errorf("built-in font atlas: %w", err)
	}
	return upload(a, cfg.DumpAtlas)
}

func loadSheet(ac atlas.Config, dump string) (*sheet, error) {
	a, err := atlas.Build(ac)
	if err != nil {
		return nil, err
	}
	return upload(a, dump)
}

func upload(a *atlas.Atlas, dump string) (*sheet, error) {
	if dump != "" {
		path := fmt.Sprintf("%s-%s.png", strings.TrimSuffix(dump, filepath.Ext(dump)), a.Kind)
		if err := a.DumpPNG(path); err != nil {
			slog.Warn("dump atlas failed", "path", path, "error", err)
		} else {
			slog.Info("wrote atlas", "path", path)
		}
	}
	tex, err := glbackend.TextureFromImage(a.Image, glbackend.Linear)
	if err != nil {
		return nil, fmt.Errorf("upload %s atlas: %w", a.Kind, err)
	}
	return &sheet{Atlas: a, tex: tex}, nil
}

// thumbnail scales the atlas down on the CPU. Failure yields the null
// texture, which the batch skips.
func thumbnail(a *atlas.Atlas, threads int) render2d.Texture {
	img, err := imgscale.ScaleRGBA(a.Image, thumbSize, thumbSize, threads)
	if err != nil {
		slog.Warn("atlas thumbnail failed", "error", err)
		return render2d.Texture{}
	}
	tex, err := glbackend.TextureFromImage(img, glbackend.Linear)
	if err != nil {
		slog.Warn("atlas thumbnail upload failed", "error", err)
		return render2d.Texture{}
	}
	return tex
}

type demo struct {
	cfg   config.Config
	batch *render2d.QuadBatch
	font  *sheet
	anim  *sheet
	thumb render2d.Texture
	panel *glbackend.Framebuffer
	fps   *FPSCounter

	plasma    render2d.Texture
	plasmaPix []uint32

	start     time.Time
	frame     int
	gifFrame  int
	lastFrame time.Time
	last      render2d.Stats
}

func (d *demo) lineHeight() float32 {
	if d.font.LineHeight > 0 {
		return float32(d.font.LineHeight)
	}
	return float32(d.cfg.FontSize)
}

// drawPanel renders into the off-screen target with its own projection.
func (d *demo) drawPanel(w, h int) {
	d.panel.Bind()
	glbackend.Clear(panelBG)
	d.batch.Resize(panelW, panelH)

	if err := d.batch.BeginDefault(); err != nil {
		slog.Warn("panel pass skipped", "error", err)
	} else {
		d.batch.DrawRectangle(0, 0, panelW, 4, orange)
		drawText(d.batch, d.font, "off-screen", 8, 8, render2d.White)
		drawText(d.batch, d.font, fmt.Sprintf("t=%.1fs", time.Since(d.start).Seconds()), 8, 8+d.lineHeight(), cyan)
		if err := d.batch.End(); err != nil {
			slog.Warn("panel pass dropped", "error", err)
		}
	}

	d.panel.Unbind(w, h)
	d.batch.Resize(w, h)
}

func (d *demo) drawFrame(w, h int) error {
	b := d.batch
	before := b.Stats()
	if err := b.BeginDefault(); err != nil {
		return fmt.Errorf("begin frame: %w", err)
	}

	elapsed := time.Since(d.start).Seconds()
	line := d.lineHeight()

	plasma(d.plasmaPix, plasmaSize, plasmaSize, elapsed)
	if err := glbackend.SetTexturePacked(d.plasma, d.plasmaPix); err != nil {
		slog.Warn("plasma upload failed", "error", err)
	}

	// Colored grid behind everything, one quad per cell.
	cellW, cellH := int32(w/gridCols), int32(h/gridRows)
	for row := int32(0); row < gridRows; row++ {
		for col := int32(0); col < gridCols; col++ {
			phase := float64(row+col)*0.2 + elapsed
			c := render2d.Color{
				float32(0.5 + 0.5*math.Sin(phase)),
				float32(0.5 + 0.5*math.Sin(phase+2)),
				float32(0.5 + 0.5*math.Sin(phase+4)),
				0.15,
			}
			b.DrawRectangle(col*cellW, row*cellH, cellW-1, cellH-1, c)
		}
	}

	b.DrawRectangle(40, 40, 560, int32(5*line)+20, shade)
	drawText(b, d.font, "Quad Batch Demo", 50, 50, orange)
	drawText(b, d.font, fmt.Sprintf("FPS: %.1f (VSync: %v)", d.fps.FPS(), d.cfg.VSync), 50, 50+line, cyan)
	drawText(b, d.font, fmt.Sprintf("Frame: %d", d.frame), 50, 50+2*line, grey)
	drawText(b, d.font, fmt.Sprintf("Quads: %d  Draws: %d  Flushes: %d",
		d.last.Quads, d.last.DrawCalls, d.last.TextureFlushes+d.last.CapacityFlushes), 50, 50+3*line, grey)

	tx := int32(w) - thumbSize - 40
	b.DrawTexture(d.thumb, tx, 40, render2d.White)
	b.DrawTextureRotatedCentered(d.thumb, tx, 60+thumbSize, float32(elapsed*45), render2d.White)

	flips := []render2d.FlipFlag{render2d.FlipNone, render2d.FlipHorizontal, render2d.FlipVertical, render2d.FlipBoth}
	for i, f := range flips {
		dst := render2d.Rect{X: float32(tx) - float32(i+1)*72, Y: 40, W: 64, H: 64}
		b.DrawTextureEx(d.thumb.Flipped(f), render2d.Rect{W: thumbSize, H: thumbSize}, dst, render2d.White)
	}

	// Orbit the screen center.
	pivot := mgl32.Vec2{float32(w) / 2, float32(h) / 2}
	b.DrawTextureRotated(d.thumb, int32(pivot.X())+80, int32(pivot.Y()), pivot, float32(elapsed*90), cyan)

	b.DrawFramebuffer(d.panel, 40, int32(h)-panelH-40)
	b.DrawTextureEx(d.plasma, render2d.Rect{W: plasmaSize, H: plasmaSize},
		render2d.Rect{X: float32(w) - 168, Y: float32(h) - 168, W: 128, H: 128}, render2d.White)

	if d.anim != nil {
		d.drawAnimation(b, line)
	}

	if err := b.End(); err != nil {
		slog.Warn("frame dropped", "error", err)
	}
	after := b.Stats()
	d.last = render2d.Stats{
		Quads:           after.Quads - before.Quads,
		DrawCalls:       after.DrawCalls - before.DrawCalls,
		TextureFlushes:  after.TextureFlushes - before.TextureFlushes,
		CapacityFlushes: after.CapacityFlushes - before.CapacityFlushes,
	}
	return nil
}

func (d *demo) drawAnimation(b *render2d.QuadBatch, line float32) {
	frames := d.anim.Frames
	if len(frames) == 0 {
		return
	}
	delay := frames[d.gifFrame].Delay
	if delay <= 0 {
		delay = frameDelay
	}
	if time.Since(d.lastFrame) > delay {
		d.gifFrame = (d.gifFrame + 1) % len(frames)
		d.lastFrame = time.Now()
	}

	drawText(b, d.font, fmt.Sprintf("GIF Frame: %d/%d", d.gifFrame, len(frames)), 50, 50+4*line, grey)
	drawSprite(b, d.anim, frames[d.gifFrame].ID, 200, 200, render2d.White)

	for i, f := range frames {
		x := 50 + float32((i%4)*(f.W+10))
		y := 300 + float32((i/4)*(f.H+10))
		drawSprite(b, d.anim, f.ID, x, y, render2d.White)
	}
}
