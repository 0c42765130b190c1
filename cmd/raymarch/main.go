// Command raymarch renders the ray-marched scene headlessly on the software
// backend and writes the last frame to an image.
//
// Usage:
//
//	raymarch -width 800 -height 600 -frames 120 -out frame.webp
//	raymarch -shaders ./shaders -watch -out live.png   # re-render on shader edits until Ctrl-C
//	raymarch -probe                                    # report GPU support and exit
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/chewxy/math32"
	"go.uber.org/zap"

	"github.com/gogpu/raymarch"
	"github.com/gogpu/raymarch/camera"
	"github.com/gogpu/raymarch/frame"
	"github.com/gogpu/raymarch/internal/capture"
	"github.com/gogpu/raymarch/internal/config"
	"github.com/gogpu/raymarch/internal/gpu"
	"github.com/gogpu/raymarch/internal/logger"
	"github.com/gogpu/raymarch/internal/shaderwatch"
	_ "github.com/gogpu/wgpu/hal/allbackends"
	"github.com/gogpu/wgpu/hal/software"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "raymarch:", err)
		os.Exit(1)
	}
}

func run() error {
	flags := config.RegisterFlags(flag.CommandLine)
	flag.Parse()

	cfg, err := flags.Resolve()
	if err != nil {
		return err
	}

	log := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile)
	defer func() { _ = log.Sync() }()
	raymarch.SetLogger(logger.Slog(log))

	if flags.Probe {
		return probe(log)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := raymarch.New(software.API{}, rendererOptions(cfg)...)
	target := raymarch.SurfaceTarget{Width: uint32(cfg.Window.Width), Height: uint32(cfg.Window.Height)}
	if err := r.Start(ctx, target); err != nil {
		stage, _ := raymarch.StageOf(err)
		log.Error("start failed", zap.Stringer("stage", stage), zap.Error(err))
		return err
	}
	defer r.Close()

	interval := time.Second / time.Duration(cfg.Render.FPS)
	var (
		ticker frame.Ticker
		opts   []frame.Option
	)
	if cfg.Render.Watch {
		w, err := watchShaders(ctx, cfg, r, log)
		if err != nil {
			return err
		}
		defer w.Close()
		ticker = frame.NewIntervalTicker(interval)
		log.Info("watching shaders, press Ctrl-C to capture and exit", zap.String("dir", cfg.Render.ShaderDir))
	} else {
		tk := frame.NewManualTicker(time.Now())
		for range cfg.Render.Frames {
			tk.Advance(interval)
		}
		tk.Close()
		ticker = tk
		opts = append(opts, frame.WithMaxFrames(uint64(cfg.Render.Frames)))
	}

	start := time.Now()
	err = r.Run(ctx, ticker, opts...)
	if err != nil && !errors.Is(err, context.Canceled) {
		stage, _ := raymarch.StageOf(err)
		log.Error("frame failed", zap.Stringer("stage", stage), zap.Error(err))
		return err
	}

	pose := r.Camera().Snapshot()
	fwd := pose.Forward()
	log.Info("rendered",
		zap.Duration("scene_time", r.Elapsed()),
		zap.Duration("wall_time", time.Since(start)),
		zap.Float32s("camera", pose.Position[:]),
		zap.Float32("heading_deg", math32.Atan2(fwd[0], -fwd[2])*180/math32.Pi),
	)

	if cfg.Capture.Output == "" {
		return nil
	}
	return captureFrame(r.Context(), cfg.Capture, log)
}

func rendererOptions(cfg *config.Config) []raymarch.Option {
	opts := []raymarch.Option{
		raymarch.WithSampleCount(cfg.Render.Samples),
		raymarch.WithCamera(
			camera.WithPosition(cfg.Camera.Position),
			camera.WithRotation(cfg.Camera.Rotation),
		),
	}
	if cfg.Render.ShaderDir != "" {
		opts = append(opts, raymarch.WithShaderDir(cfg.Render.ShaderDir))
	}
	if cfg.Render.Adapter != "" {
		opts = append(opts, raymarch.WithAdapterName(cfg.Render.Adapter))
	}
	return opts
}

// watchShaders requests a reload on the renderer whenever a shader file in
// the shader directory changes. The reload runs on the frame goroutine.
func watchShaders(ctx context.Context, cfg *config.Config, r *raymarch.Renderer, log *zap.Logger) (*shaderwatch.Watcher, error) {
	paths := []string{
		filepath.Join(cfg.Render.ShaderDir, gpu.DefaultVertexShader),
		filepath.Join(cfg.Render.ShaderDir, gpu.DefaultFragmentShader),
	}
	w, err := shaderwatch.New(paths, func(path string) {
		log.Info("shader changed", zap.String("path", path))
		r.RequestReload()
	}, shaderwatch.WithLogger(logger.Slog(log)))
	if err != nil {
		return nil, err
	}
	go func() {
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("shader watch stopped", zap.Error(err))
		}
	}()
	return w, nil
}

func captureFrame(gc *gpu.Context, cfg config.CaptureConfig, log *zap.Logger) error {
	sw, ok := gc.Surface().(*software.Surface)
	if !ok {
		return fmt.Errorf("capture: surface %T has no readable framebuffer", gc.Surface())
	}
	w, h := gc.Size()
	img, err := capture.FromRGBA(sw.GetFramebuffer(), int(w), int(h))
	if err != nil {
		return err
	}
	out := capture.Scale(img, cfg.Scale)
	if err := capture.WriteFile(cfg.Output, out); err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	b := out.Bounds()
	log.Info("frame written", zap.String("path", cfg.Output), zap.Int("width", b.Dx()), zap.Int("height", b.Dy()))
	return nil
}

func probe(log *zap.Logger) error {
	c, backend := raymarch.ProbeDefault()
	if !c.Supported {
		log.Warn("no usable GPU backend", zap.String("reason", c.Reason))
		fmt.Println("unsupported:", c.Reason)
		return nil
	}
	fmt.Printf("supported: %s (%s)\n", c.Adapter, backend.Variant())
	return nil
}
