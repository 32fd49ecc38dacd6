// Command imgscale resizes an image file with the parallel bilinear scaler.
package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	_ "image/gif"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"go-quad-batch/internal/config"
	"go-quad-batch/internal/imgscale"
)

type options struct {
	in, out       string
	width, height int
	factor        float64
	threads       int
	quiet         bool
	logLevel      string
}

func parseArgs(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("imgscale", flag.ContinueOnError)
	fs.StringVar(&o.in, "in", "", "Input image (png, jpeg, gif, bmp, tiff, webp)")
	fs.StringVar(&o.out, "out", "", "Output image; format follows the extension")
	fs.IntVar(&o.width, "width", 0, "Output width in pixels")
	fs.IntVar(&o.height, "height", 0, "Output height in pixels")
	fs.Float64Var(&o.factor, "scale", 0, "Scale factor, used for any dimension left at 0")
	fs.IntVar(&o.threads, "threads", runtime.NumCPU(), "Worker count")
	fs.BoolVar(&o.quiet, "quiet", false, "Hide the progress bar")
	fs.StringVar(&o.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return o, err
	}

	if o.in == "" || o.out == "" {
		return o, errors.New("both -in and -out are required")
	}
	if o.width <= 0 && o.height <= 0 && o.factor <= 0 {
		return o, errors.New("one of -width, -height or -scale is required")
	}
	if o.threads < 1 {
		return o, fmt.Errorf("invalid thread count %d", o.threads)
	}
	if _, err := config.ParseLevel(o.logLevel); err != nil {
		return o, err
	}
	return o, nil
}

// targetSize fills unset dimensions from the scale factor, or keeps the
// aspect ratio when only one side is given.
func targetSize(o options, srcW, srcH int) (int, int) {
	w, h := o.width, o.height
	switch {
	case w > 0 && h > 0:
	case o.factor > 0:
		if w <= 0 {
			w = int(float64(srcW)*o.factor + 0.5)
		}
		if h <= 0 {
			h = int(float64(srcH)*o.factor + 0.5)
		}
	case w > 0:
		h = int(float64(srcH)*float64(w)/float64(srcW) + 0.5)
	case h > 0:
		w = int(float64(srcW)*float64(h)/float64(srcH) + 0.5)
	}
	return max(w, 1), max(h, 1)
}

func encode(w io.Writer, path string, img image.Image) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
	case ".bmp":
		return bmp.Encode(w, img)
	case ".tif", ".tiff":
		return tiff.Encode(w, img, nil)
	case ".png", "":
		return png.Encode(w, img)
	default:
		return fmt.Errorf("unsupported output format %q", filepath.Ext(path))
	}
}

func run(o options) error {
	f, err := os.Open(o.in)
	if err != nil {
		return err
	}
	src, format, err := image.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("decode %s: %w", o.in, err)
	}

	b := src.Bounds()
	w, h := targetSize(o, b.Dx(), b.Dy())
	slog.Info("scaling image", "in", o.in, "format", format, "from", fmt.Sprintf("%dx%d", b.Dx(), b.Dy()),
		"to", fmt.Sprintf("%dx%d", w, h), "threads", o.threads)

	opts := []imgscale.Option{imgscale.WithLogger(slog.Default())}
	if !o.quiet {
		pb := progressbar.Default(int64(h), "scaling")
		defer pb.Close()
		opts = append(opts, imgscale.WithRowHook(func(int) { pb.Add(1) }))
	}

	sc := imgscale.NewScaler(o.threads, opts...)
	defer sc.Close()
	dst, err := sc.Scale(imgscale.FromImage(src), w, h)
	if err != nil {
		return err
	}

	out, err := os.Create(o.out)
	if err != nil {
		return err
	}
	if err := encode(out, o.out, dst.RGBA()); err != nil {
		out.Close()
		return fmt.Errorf("encode %s: %w", o.out, err)
	}
	return out.Close()
}

func main() {
	o, err := parseArgs(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "imgscale: %v\n", err)
		os.Exit(2)
	}
	level, _ := config.ParseLevel(o.logLevel)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(o); err != nil {
		fmt.Fprintf(os.Stderr, "failed to scale image: %v\n", err)
		os.Exit(1)
	}
}
