package main

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestTargetSize(t *testing.T) {
	cases := []struct {
		o          options
		srcW, srcH int
		w, h       int
	}{
		{options{width: 30, height: 40}, 10, 10, 30, 40},
		{options{factor: 2}, 10, 5, 20, 10},
		{options{width: 50, factor: 0.5}, 10, 8, 50, 4},
		{options{width: 50}, 100, 40, 50, 20},
		{options{height: 10}, 100, 40, 25, 10},
		{options{factor: 0.01}, 10, 10, 1, 1},
	}
	for _, tc := range cases {
		w, h := targetSize(tc.o, tc.srcW, tc.srcH)
		if w != tc.w || h != tc.h {
			t.Errorf("targetSize(%+v, %d, %d) = %dx%d, want %dx%d", tc.o, tc.srcW, tc.srcH, w, h, tc.w, tc.h)
		}
	}
}

func TestParseArgs(t *testing.T) {
	if _, err := parseArgs([]string{"-in", "a.png"}); err == nil {
		t.Error("missing -out should fail")
	}
	if _, err := parseArgs([]string{"-in", "a.png", "-out", "b.png"}); err == nil {
		t.Error("missing size should fail")
	}
	o, err := parseArgs([]string{"-in", "a.png", "-out", "b.png", "-scale", "2", "-threads", "3"})
	if err != nil {
		t.Fatalf("parseArgs() error = %v", err)
	}
	if o.factor != 2 || o.threads != 3 {
		t.Errorf("parseArgs() = %+v", o)
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	src := image.NewRGBA(image.Rect(0, 0, 4, 2))
	for x := 0; x < 4; x++ {
		src.Set(x, 0, color.RGBA{B: 255, A: 255})
		src.Set(x, 1, color.RGBA{B: 255, A: 255})
	}
	f, err := os.Create(in)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, src); err != nil {
		t.Fatal(err)
	}
	f.Close()

	for _, name := range []string{"out.png", "out.bmp", "out.tiff", "out.jpg"} {
		out := filepath.Join(dir, name)
		if err := run(options{in: in, out: out, factor: 3, threads: 2, quiet: true}); err != nil {
			t.Fatalf("run(%s) error = %v", name, err)
		}
		g, err := os.Open(out)
		if err != nil {
			t.Fatal(err)
		}
		cfg, _, err := image.DecodeConfig(g)
		g.Close()
		if err != nil {
			t.Fatalf("decode %s: %v", name, err)
		}
		if cfg.Width != 12 || cfg.Height != 6 {
			t.Errorf("%s size = %dx%d, want 12x6", name, cfg.Width, cfg.Height)
		}
	}

	if err := run(options{in: in, out: filepath.Join(dir, "out.xyz"), factor: 1, threads: 1, quiet: true}); err == nil {
		t.Error("unknown output extension should fail")
	}
}
