// Package config holds the settings of the raymarch command.
//
// Values are layered: Default, then a YAML file, then command-line flags.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Config holds all command settings.
type Config struct {
	Window  WindowConfig  `yaml:"window"`
	Render  RenderConfig  `yaml:"render"`
	Camera  CameraConfig  `yaml:"camera"`
	Capture CaptureConfig `yaml:"capture"`
	Logging LoggingConfig `yaml:"logging"`
}

// WindowConfig holds the surface size.
type WindowConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// RenderConfig holds renderer and frame loop settings.
type RenderConfig struct {
	Samples   uint32 `yaml:"samples"`
	FPS       int    `yaml:"fps"`
	Frames    int    `yaml:"frames"`
	ShaderDir string `yaml:"shader_dir"` // empty uses the embedded shaders
	Watch     bool   `yaml:"watch"`
	Adapter   string `yaml:"adapter"`
}

// CameraConfig holds the initial camera pose.
type CameraConfig struct {
	Position [3]float32 `yaml:"position"`
	Rotation [2]float32 `yaml:"rotation"` // pitch, yaw in radians
}

// CaptureConfig holds the output image settings.
type CaptureConfig struct {
	Output string  `yaml:"output"` // .png or .webp; empty disables capture
	Scale  float64 `yaml:"scale"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with the default values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Width:  800,
			Height: 600,
		},
		Render: RenderConfig{
			Samples: 4,
			FPS:     60,
			Frames:  60,
		},
		Camera: CameraConfig{
			Position: [3]float32{0, 0, 5},
		},
		Capture: CaptureConfig{
			Output: "frame.png",
			Scale:  1,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("config: invalid value")

// Validate checks that the settings can drive a run.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		bad("window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	}
	if c.Render.Samples != 1 && c.Render.Samples != 4 {
		bad("render.samples %d must be 1 or 4", c.Render.Samples)
	}
	if c.Render.FPS <= 0 {
		bad("render.fps %d must be positive", c.Render.FPS)
	}
	if c.Render.Frames <= 0 {
		bad("render.frames %d must be positive", c.Render.Frames)
	}
	if c.Render.Watch && c.Render.ShaderDir == "" {
		bad("render.watch needs render.shader_dir")
	}
	if out := c.Capture.Output; out != "" {
		switch strings.ToLower(filepath.Ext(out)) {
		case ".png", ".webp":
		default:
			bad("capture.output %q must end in .png or .webp", out)
		}
	}
	if c.Capture.Scale <= 0 {
		bad("capture.scale %g must be positive", c.Capture.Scale)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		bad("logging.level %q must be debug, info, warn or error", c.Logging.Level)
	}
	return errors.Join(errs...)
}
