// Package config loads demo settings from defaults, an optional YAML file
// and command line flags, in increasing order of precedence.
package config

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

const maxFileSize = 1 << 20

// Config holds the demo settings.
type Config struct {
	Width  int  `yaml:"width"`
	Height int  `yaml:"height"`
	VSync  bool `yaml:"vsync"`

	FontPath    string `yaml:"font"`
	GIFPath     string `yaml:"gif"`
	FontSize    int    `yaml:"size"`
	DPI         int    `yaml:"dpi"`
	Padding     int    `yaml:"padding"`
	AtlasWidth  int    `yaml:"atlas_width"`
	AtlasHeight int    `yaml:"atlas_height"`
	DumpAtlas   string `yaml:"dump_atlas"`

	MaxQuads     int    `yaml:"max_quads"`
	ScaleThreads int    `yaml:"scale_threads"`
	LogLevel     string `yaml:"log_level"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Width:        800,
		Height:       600,
		VSync:        true,
		FontSize:     32,
		DPI:          72,
		Padding:      2,
		AtlasWidth:   1024,
		AtlasHeight:  1024,
		MaxQuads:     20000,
		ScaleThreads: runtime.NumCPU(),
		LogLevel:     "info",
	}
}

func bind(fs *flag.FlagSet, c *Config, path *string) {
	fs.StringVar(path, "config", "", "Path to a YAML settings file")
	fs.IntVar(&c.Width, "width", c.Width, "Window width")
	fs.IntVar(&c.Height, "height", c.Height, "Window height")
	fs.BoolVar(&c.VSync, "vsync", c.VSync, "Enable VSync")
	fs.StringVar(&c.FontPath, "font", c.FontPath, "Path to TTF font file (built-in font when empty)")
	fs.StringVar(&c.GIFPath, "gif", c.GIFPath, "Path to GIF animation file")
	fs.IntVar(&c.FontSize, "size", c.FontSize, "Font size in pixels")
	fs.StringVar(&c.DumpAtlas, "dump-atlas", c.DumpAtlas, "Write the packed atlas to this PNG file")
	fs.IntVar(&c.MaxQuads, "max-quads", c.MaxQuads, "Quad capacity of one batch draw")
	fs.IntVar(&c.ScaleThreads, "scale-threads", c.ScaleThreads, "Worker count for image scaling")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level: debug, info, warn or error")
}

// Load parses args. A -config file overrides the defaults and explicitly
// given flags override the file.
func Load(name string, args []string) (Config, error) {
	var (
		scratch = Default()
		path    string
	)
	pre := flag.NewFlagSet(name, flag.ContinueOnError)
	pre.SetOutput(io.Discard)
	bind(pre, &scratch, &path)
	if err := pre.Parse(args); err != nil {
		// Report usage and errors through the real parse below.
		path = ""
	}

	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	bind(fs, &cfg, &path)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// mergeFile overlays the keys present in the YAML file at path onto c.
func (c *Config) mergeFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	if info.Size() > maxFileSize {
		return fmt.Errorf("config %s: file too large (%d bytes)", path, info.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config %s: %w", path, err)
	}
	slog.Debug("loaded config file", "path", path, "size", info.Size())
	return nil
}

// Validate rejects settings the demo cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("invalid window size %dx%d", c.Width, c.Height))
	}
	if c.FontSize <= 0 {
		errs = append(errs, fmt.Errorf("invalid font size %d", c.FontSize))
	}
	if c.AtlasWidth <= 0 || c.AtlasHeight <= 0 {
		errs = append(errs, fmt.Errorf("invalid atlas size %dx%d", c.AtlasWidth, c.AtlasHeight))
	}
	if c.MaxQuads <= 0 {
		errs = append(errs, fmt.Errorf("invalid max quads %d", c.MaxQuads))
	}
	if c.ScaleThreads <= 0 {
		errs = append(errs, fmt.Errorf("invalid scale thread count %d", c.ScaleThreads))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Level is the parsed LogLevel; invalid values fall back to info.
func (c Config) Level() slog.Level {
	l, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

// ParseLevel accepts debug, info, warn and error in any case.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return l, nil
}
