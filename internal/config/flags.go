package config

import "flag"

// Flags are the command-line overrides. Only flags that were set on the
// command line are applied.
type Flags struct {
	fs *flag.FlagSet

	Config  string
	Probe   bool
	Width   int
	Height  int
	Samples uint
	Frames  int
	FPS     int
	Out     string
	Scale   float64
	Shaders string
	Watch   bool
	Adapter string
	Level   string
	LogFile string
}

// RegisterFlags defines the flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVar(&f.Config, "config", "", "path to a YAML config file")
	fs.BoolVar(&f.Probe, "probe", false, "print GPU capability and exit")
	fs.IntVar(&f.Width, "width", 0, "surface width")
	fs.IntVar(&f.Height, "height", 0, "surface height")
	fs.UintVar(&f.Samples, "samples", 0, "MSAA sample count (1 or 4)")
	fs.IntVar(&f.Frames, "frames", 0, "number of frames to render")
	fs.IntVar(&f.FPS, "fps", 0, "simulated frames per second")
	fs.StringVar(&f.Out, "out", "", "output image (.png or .webp)")
	fs.Float64Var(&f.Scale, "scale", 0, "output image scale factor")
	fs.StringVar(&f.Shaders, "shaders", "", "directory holding basic.vert.wgsl and basic.frag.wgsl")
	fs.BoolVar(&f.Watch, "watch", false, "reload shaders when files in -shaders change")
	fs.StringVar(&f.Adapter, "adapter", "", "select the adapter whose name contains this text")
	fs.StringVar(&f.Level, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&f.LogFile, "log-file", "", "also log to this file, rotated")
	return f
}

// Apply copies every explicitly set flag into cfg.
func (f *Flags) Apply(cfg *Config) {
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "width":
			cfg.Window.Width = f.Width
		case "height":
			cfg.Window.Height = f.Height
		case "samples":
			cfg.Render.Samples = uint32(f.Samples)
		case "frames":
			cfg.Render.Frames = f.Frames
		case "fps":
			cfg.Render.FPS = f.FPS
		case "out":
			cfg.Capture.Output = f.Out
		case "scale":
			cfg.Capture.Scale = f.Scale
		case "shaders":
			cfg.Render.ShaderDir = f.Shaders
		case "watch":
			cfg.Render.Watch = f.Watch
		case "adapter":
			cfg.Render.Adapter = f.Adapter
		case "log-level":
			cfg.Logging.Level = f.Level
		case "log-file":
			cfg.Logging.LogFile = f.LogFile
		}
	})
}

// Resolve loads the config file named by -config and applies the flags:
// defaults < file < flags. The result is validated.
func (f *Flags) Resolve() (*Config, error) {
	cfg, err := Load(f.Config)
	if err != nil {
		return nil, err
	}
	f.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
