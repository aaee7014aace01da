package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Canvas   CanvasConfig   `yaml:"canvas"`
	Timeline TimelineConfig `yaml:"timeline"`
	Playback PlaybackConfig `yaml:"playback"`
	Capture  CaptureConfig  `yaml:"capture"`
}

// CanvasConfig describes canvas space. Element positions and sizes are
// expressed in these units regardless of the surface they end up on.
type CanvasConfig struct {
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Background string `yaml:"background"`
}

type TimelineConfig struct {
	MaxTracks                 int     `yaml:"max_tracks"`
	SnapTolerance             float64 `yaml:"snap_tolerance"`
	DefaultDuration           float64 `yaml:"default_duration"`
	DefaultTransition         string  `yaml:"default_transition"`
	DefaultTransitionDuration float64 `yaml:"default_transition_duration"`
	MinDuration               float64 `yaml:"min_duration"`
	MaxDuration               float64 `yaml:"max_duration"`
}

type PlaybackConfig struct {
	LiveFPS      int     `yaml:"live_fps"`
	MaxLiveDelta float64 `yaml:"max_live_delta"`
	Loop         bool    `yaml:"loop"`
}

type CaptureConfig struct {
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	FPS       int    `yaml:"fps"`
	Encoder   string `yaml:"encoder"`
	Quality   int    `yaml:"quality"`
	Output    string `yaml:"output"`
	Workers   int    `yaml:"workers"`
	ShowStats bool   `yaml:"show_stats"`
}

// StreamParams is what a video sink needs to know before the first frame.
type StreamParams struct {
	Width, Height int
	FPS           int
	Duration      float64
	Encoder       string
	Quality       int
	Output        string
}

// Default returns five tracks, a 10px snap window at 60 px/s and three
// second slides with a half second fade.
func Default() *Config {
	return &Config{
		Canvas: CanvasConfig{
			Width:      1280,
			Height:     720,
			Background: "#000000",
		},
		Timeline: TimelineConfig{
			MaxTracks:                 5,
			SnapTolerance:             10.0 / 60.0,
			DefaultDuration:           3,
			DefaultTransition:         "fade",
			DefaultTransitionDuration: 0.5,
			MinDuration:               0.5,
			MaxDuration:               100,
		},
		Playback: PlaybackConfig{
			LiveFPS:      60,
			MaxLiveDelta: 0.1,
			Loop:         true,
		},
		Capture: CaptureConfig{
			Width:   1280,
			Height:  720,
			FPS:     60,
			Encoder: "libx264",
			Quality: 23,
			Workers: 4,
		},
	}
}

// Load reads a YAML file on top of Default. An empty path skips the file.
// Variables from an optional .env file and the process environment are
// applied last.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	ints := []struct {
		key string
		dst *int
	}{
		{"SLIDEFORGE_FPS", &c.Capture.FPS},
		{"SLIDEFORGE_WIDTH", &c.Capture.Width},
		{"SLIDEFORGE_HEIGHT", &c.Capture.Height},
		{"SLIDEFORGE_WORKERS", &c.Capture.Workers},
		{"SLIDEFORGE_QUALITY", &c.Capture.Quality},
	}
	for _, v := range ints {
		raw, ok := os.LookupEnv(v.key)
		if !ok || raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", v.key, err)
		}
		*v.dst = n
	}
	if enc := os.Getenv("SLIDEFORGE_ENCODER"); enc != "" {
		c.Capture.Encoder = enc
	}
	return nil
}

func (c *Config) Validate() error {
	switch {
	case c.Canvas.Width <= 0 || c.Canvas.Height <= 0:
		return fmt.Errorf("canvas size must be positive, got %dx%d", c.Canvas.Width, c.Canvas.Height)
	case c.Capture.Width <= 0 || c.Capture.Height <= 0:
		return fmt.Errorf("capture size must be positive, got %dx%d", c.Capture.Width, c.Capture.Height)
	case c.Capture.Width%2 != 0 || c.Capture.Height%2 != 0:
		return fmt.Errorf("capture size must be even for yuv420p, got %dx%d", c.Capture.Width, c.Capture.Height)
	case c.Capture.FPS <= 0:
		return fmt.Errorf("capture fps must be positive, got %d", c.Capture.FPS)
	case c.Playback.LiveFPS <= 0:
		return fmt.Errorf("live fps must be positive, got %d", c.Playback.LiveFPS)
	case c.Timeline.MaxTracks <= 0:
		return fmt.Errorf("max_tracks must be positive, got %d", c.Timeline.MaxTracks)
	case c.Timeline.SnapTolerance < 0:
		return fmt.Errorf("snap_tolerance must not be negative")
	case c.Timeline.MinDuration <= 0 || c.Timeline.MaxDuration < c.Timeline.MinDuration:
		return fmt.Errorf("invalid duration bounds [%g, %g]", c.Timeline.MinDuration, c.Timeline.MaxDuration)
	}
	if c.Capture.Workers <= 0 {
		c.Capture.Workers = 1
	}
	return nil
}

// SurfaceScale converts canvas units to capture pixels.
func (c *Config) SurfaceScale() float64 {
	return float64(c.Capture.Width) / float64(c.Canvas.Width)
}

func (c *Config) StreamParams(duration float64) StreamParams {
	return StreamParams{
		Width:    c.Capture.Width,
		Height:   c.Capture.Height,
		FPS:      c.Capture.FPS,
		Duration: duration,
		Encoder:  c.Capture.Encoder,
		Quality:  c.Capture.Quality,
		Output:   c.Capture.Output,
	}
}
