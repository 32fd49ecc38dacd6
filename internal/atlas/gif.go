package atlas

import (
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"io"
	"log/slog"
	"os"
	"time"
)

// BuildGIF packs every frame of the animation at cfg.GIFPath, composited
// onto the full logical screen, as sprites "frame_0", "frame_1", ...
func BuildGIF(cfg Config) (*Atlas, error) {
	f, err := os.Open(cfg.GIFPath)
	if err != nil {
		return nil, fmt.Errorf("open GIF %s: %w", cfg.GIFPath, err)
	}
	defer f.Close()

	a, err := BuildGIFReader(f, cfg)
	if err != nil {
		return nil, fmt.Errorf("GIF %s: %w", cfg.GIFPath, err)
	}
	return a, nil
}

// BuildGIFReader is BuildGIF for an open stream.
func BuildGIFReader(r io.Reader, cfg Config) (*Atlas, error) {
	g, err := gif.DecodeAll(r)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if len(g.Image) == 0 {
		return nil, fmt.Errorf("no frames")
	}

	screen := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if screen.Empty() {
		screen = g.Image[0].Bounds()
	}
	canvas := image.NewRGBA(screen)

	a := New(cfg.Width, cfg.Height, KindGIF)
	for i, frame := range g.Image {
		var restore *image.RGBA
		if disposal(g, i) == gif.DisposalPrevious {
			restore = image.NewRGBA(screen)
			copy(restore.Pix, canvas.Pix)
		}
		draw.Draw(canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)

		id := fmt.Sprintf("frame_%d", i)
		s, err := a.Add(id, canvas)
		if err != nil {
			slog.Warn("atlas full, skipping GIF frame", "frame", i, "error", err)
		} else {
			if i < len(g.Delay) {
				s.Delay = time.Duration(g.Delay[i]) * 10 * time.Millisecond
			}
			a.Frames = append(a.Frames, s)
		}

		switch disposal(g, i) {
		case gif.DisposalBackground:
			draw.Draw(canvas, frame.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			canvas = restore
		}
	}
	if len(a.Frames) == 0 {
		return nil, fmt.Errorf("no frames fit in a %dx%d atlas", cfg.Width, cfg.Height)
	}
	slog.Info("GIF atlas packed", "frames", len(a.Frames), "total", len(g.Image))
	return a, nil
}

func disposal(g *gif.GIF, i int) byte {
	if i < len(g.Disposal) {
		return g.Disposal[i]
	}
	return gif.DisposalNone
}
