package raymarch

import (
	"context"
	"errors"
	"io/fs"
	"math"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gogpu/raymarch/camera"
	"github.com/gogpu/raymarch/frame"
	"github.com/gogpu/raymarch/internal/gpu"
	"github.com/gogpu/wgpu/hal/noop"
)

func startNoopRenderer(t *testing.T, opts ...Option) *Renderer {
	t.Helper()
	r := New(noop.API{}, opts...)
	if err := r.Start(context.Background(), SurfaceTarget{Width: 800, Height: 600}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(r.Close)
	return r
}

// shaderFS returns a copy of the embedded shaders as a mutable map.
func shaderFS(t *testing.T) fstest.MapFS {
	t.Helper()
	m := fstest.MapFS{}
	for _, name := range []string{gpu.DefaultVertexShader, gpu.DefaultFragmentShader} {
		data, err := fs.ReadFile(gpu.DefaultShaders(), name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		m[name] = &fstest.MapFile{Data: data}
	}
	return m
}

func approx(a, b float32) bool { return math.Abs(float64(a-b)) < 1e-5 }

func TestRendererStart(t *testing.T) {
	r := startNoopRenderer(t)

	targets := r.Targets()
	if targets.State() != gpu.TargetsValid {
		t.Fatalf("expected valid targets, got %s", targets.State())
	}
	if w, h := targets.Size(); w != 800 || h != 600 {
		t.Errorf("expected targets 800x600, got %dx%d", w, h)
	}
	if targets.SampleCount() != 4 {
		t.Errorf("expected 4 samples, got %d", targets.SampleCount())
	}
	if targets.ColorView() == nil || targets.DepthView() == nil {
		t.Error("expected multisampled color and depth targets")
	}

	p := r.Params()
	if p.Resolution != [2]float32{800, 600} {
		t.Errorf("expected resolution (800, 600), got %v", p.Resolution)
	}
	if p.CameraPosition != camera.DefaultPosition {
		t.Errorf("expected camera at %v, got %v", camera.DefaultPosition, p.CameraPosition)
	}
	if p.Time != 0 {
		t.Errorf("expected time 0, got %v", p.Time)
	}
}

func TestRendererStartSingleSample(t *testing.T) {
	r := startNoopRenderer(t, WithSampleCount(1))
	if r.Targets().ColorView() != nil {
		t.Error("expected no multisampled color target for one sample")
	}
	if err := r.Frame(context.Background(), 16*time.Millisecond); err != nil {
		t.Fatalf("Frame: %v", err)
	}
}

func TestRendererStartTwiceIsNoop(t *testing.T) {
	r := startNoopRenderer(t)
	gc := r.Context()
	if err := r.Start(context.Background(), SurfaceTarget{Width: 10, Height: 10}); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if r.Context() != gc {
		t.Error("expected second Start to keep the context")
	}
}

func TestRendererStartFailureReleases(t *testing.T) {
	bad := shaderFS(t)
	bad[gpu.DefaultFragmentShader] = &fstest.MapFile{Data: []byte("fn broken( {")}

	r := New(noop.API{}, WithShaderFS(bad, gpu.DefaultVertexShader, gpu.DefaultFragmentShader))
	err := r.Start(context.Background(), SurfaceTarget{Width: 800, Height: 600})

	var sce *ShaderCompileError
	if !errors.As(err, &sce) {
		t.Fatalf("expected *ShaderCompileError, got %v", err)
	}
	if sce.Diagnostic == "" {
		t.Error("expected a compiler diagnostic")
	}
	if stage, ok := StageOf(err); !ok || stage != StageShader {
		t.Errorf("expected stage shader, got %s (ok=%v)", stage, ok)
	}
	if r.Context() != nil || r.Targets() != nil {
		t.Error("expected everything released after a failed Start")
	}
	if err := r.Frame(context.Background(), time.Millisecond); !errors.Is(err, ErrSubmission) || !errors.Is(err, ErrNotStarted) {
		t.Errorf("expected ErrSubmission and ErrNotStarted, got %v", err)
	}
}

func TestRendererStartInitFailure(t *testing.T) {
	r := New(brokenBackend{})
	err := r.Start(context.Background(), SurfaceTarget{Width: 8, Height: 8})
	if !errors.Is(err, ErrAdapterUnavailable) {
		t.Fatalf("expected ErrAdapterUnavailable, got %v", err)
	}
	if stage, _ := StageOf(err); stage != StageAdapter {
		t.Errorf("expected stage adapter, got %s", stage)
	}
}

func TestRendererStartPipelineMismatch(t *testing.T) {
	fsys := shaderFS(t)
	fsys[gpu.DefaultFragmentShader] = &fstest.MapFile{Data: []byte(`
struct Params { resolution: vec2<f32>, time: f32, }
@group(0) @binding(1) var<uniform> params: Params;
@fragment
fn main(@builtin(position) p: vec4<f32>) -> @location(0) vec4<f32> {
    return vec4<f32>(params.time, 0.0, 0.0, 1.0);
}
`)}
	r := New(noop.API{}, WithShaderFS(fsys, gpu.DefaultVertexShader, gpu.DefaultFragmentShader))
	err := r.Start(context.Background(), SurfaceTarget{Width: 64, Height: 64})

	var pce *PipelineCreationError
	if !errors.As(err, &pce) {
		t.Fatalf("expected *PipelineCreationError, got %v", err)
	}
	if stage, _ := StageOf(err); stage != StagePipeline {
		t.Errorf("expected stage pipeline, got %s", stage)
	}
}

func TestRendererFrameAccumulatesTime(t *testing.T) {
	r := startNoopRenderer(t)
	ctx := context.Background()

	for _, dt := range []time.Duration{16 * time.Millisecond, 17 * time.Millisecond, 17 * time.Millisecond} {
		if err := r.Frame(ctx, dt); err != nil {
			t.Fatalf("Frame: %v", err)
		}
	}
	if r.Elapsed() != 50*time.Millisecond {
		t.Errorf("expected elapsed 50ms, got %v", r.Elapsed())
	}

	got, err := r.ReadUniforms()
	if err != nil {
		t.Fatalf("ReadUniforms: %v", err)
	}
	if !approx(got.Time, 0.05) {
		t.Errorf("expected uniform time 0.05, got %v", got.Time)
	}
	if got.Resolution != [2]float32{800, 600} {
		t.Errorf("expected resolution (800, 600), got %v", got.Resolution)
	}
}

func TestRendererFrameNegativeDelta(t *testing.T) {
	r := startNoopRenderer(t)
	ctx := context.Background()

	if err := r.Frame(ctx, 100*time.Millisecond); err != nil {
		t.Fatalf("Frame: %v", err)
	}
	before, err := r.ReadUniforms()
	if err != nil {
		t.Fatalf("ReadUniforms: %v", err)
	}

	if err := r.Frame(ctx, -50*time.Millisecond); err != nil {
		t.Fatalf("Frame: %v", err)
	}
	after, err := r.ReadUniforms()
	if err != nil {
		t.Fatalf("ReadUniforms: %v", err)
	}
	if after.Time < before.Time {
		t.Errorf("uniform time decreased: %v -> %v", before.Time, after.Time)
	}
	if r.Elapsed() != 100*time.Millisecond {
		t.Errorf("expected elapsed 100ms, got %v", r.Elapsed())
	}
}

func TestRendererFrameCarriesCamera(t *testing.T) {
	r := startNoopRenderer(t)
	r.Camera().Scroll(100)
	r.Camera().PointerDown(0, 100, 100)
	r.Camera().PointerMove(110, 95)

	if err := r.Frame(context.Background(), 0); err != nil {
		t.Fatalf("Frame: %v", err)
	}
	got, err := r.ReadUniforms()
	if err != nil {
		t.Fatalf("ReadUniforms: %v", err)
	}
	if !approx(got.CameraPosition[2], 6) {
		t.Errorf("expected camera z 6, got %v", got.CameraPosition[2])
	}
	if !approx(got.CameraRotation[0], 0.025) || !approx(got.CameraRotation[1], -0.05) {
		t.Errorf("expected rotation (0.025, -0.05), got %v", got.CameraRotation)
	}
}

func TestRendererResize(t *testing.T) {
	r := startNoopRenderer(t)

	if err := r.Resize(800, 600); err != nil {
		t.Fatalf("Resize unchanged: %v", err)
	}
	if err := r.Resize(0, 600); err != nil {
		t.Fatalf("Resize zero: %v", err)
	}
	if err := r.Resize(-1, -1); err != nil {
		t.Fatalf("Resize negative: %v", err)
	}
	if p := r.Params(); p.Resolution != [2]float32{800, 600} {
		t.Errorf("expected resolution unchanged, got %v", p.Resolution)
	}

	if err := r.Resize(1024, 768); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if w, h := r.Targets().Size(); w != 1024 || h != 768 {
		t.Errorf("expected targets 1024x768, got %dx%d", w, h)
	}
	if w, h := r.Context().Size(); w != 1024 || h != 768 {
		t.Errorf("expected surface 1024x768, got %dx%d", w, h)
	}
	got, err := r.ReadUniforms()
	if err != nil {
		t.Fatalf("ReadUniforms: %v", err)
	}
	if got.Resolution != [2]float32{1024, 768} {
		t.Errorf("expected uniform resolution (1024, 768), got %v", got.Resolution)
	}
}

func TestRendererResizeBeforeStart(t *testing.T) {
	r := New(noop.API{})
	if err := r.Resize(10, 10); !errors.Is(err, ErrNotStarted) {
		t.Errorf("expected ErrNotStarted, got %v", err)
	}
}

func TestRendererRun(t *testing.T) {
	r := startNoopRenderer(t)
	tk := frame.NewManualTicker(time.Unix(0, 0))
	tk.Advance(0)
	tk.Advance(10 * time.Millisecond)
	tk.Advance(15 * time.Millisecond)
	tk.Close()

	if err := r.Run(context.Background(), tk); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if r.Elapsed() != 25*time.Millisecond {
		t.Errorf("expected elapsed 25ms, got %v", r.Elapsed())
	}
}

func TestRendererStopBeforeRun(t *testing.T) {
	r := startNoopRenderer(t)
	tk := frame.NewManualTicker(time.Unix(0, 0))
	tk.Advance(time.Second)

	r.Stop()
	if err := r.Run(context.Background(), tk); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if r.Elapsed() != 0 {
		t.Errorf("expected no frames after Stop, elapsed %v", r.Elapsed())
	}
}

func TestRendererRunMaxFrames(t *testing.T) {
	r := startNoopRenderer(t)
	tk := frame.NewManualTicker(time.Unix(0, 0))
	for range 5 {
		tk.Advance(time.Second)
	}
	if err := r.Run(context.Background(), tk, frame.WithMaxFrames(2)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// The first frame has dt 0.
	if r.Elapsed() != time.Second {
		t.Errorf("expected elapsed 1s, got %v", r.Elapsed())
	}
}

func TestRendererReloadShaders(t *testing.T) {
	fsys := shaderFS(t)
	r := startNoopRenderer(t, WithShaderFS(fsys, gpu.DefaultVertexShader, gpu.DefaultFragmentShader))
	ctx := context.Background()
	before := r.pipeline

	good := fsys[gpu.DefaultFragmentShader]
	fsys[gpu.DefaultFragmentShader] = &fstest.MapFile{Data: []byte("@fragment fn main( {")}
	err := r.ReloadShaders(ctx)
	if !errors.Is(err, ErrShaderCompile) {
		t.Fatalf("expected ErrShaderCompile, got %v", err)
	}
	if r.pipeline != before {
		t.Error("expected previous pipeline to stay active after a failed reload")
	}
	if err := r.Frame(ctx, time.Millisecond); err != nil {
		t.Fatalf("Frame after failed reload: %v", err)
	}

	fsys[gpu.DefaultFragmentShader] = good
	if err := r.ReloadShaders(ctx); err != nil {
		t.Fatalf("ReloadShaders: %v", err)
	}
	if r.pipeline == before {
		t.Error("expected a new pipeline after reload")
	}
}

func TestRendererRequestReload(t *testing.T) {
	r := startNoopRenderer(t)
	before := r.pipeline
	r.RequestReload()
	if err := r.Frame(context.Background(), 0); err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if r.pipeline == before {
		t.Error("expected the pending reload to rebuild the pipeline")
	}
}

func TestRendererCloseTwice(t *testing.T) {
	r := New(noop.API{})
	if err := r.Start(context.Background(), SurfaceTarget{Width: 8, Height: 8}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	r.Close()
	r.Close()
	if r.Context() != nil {
		t.Error("expected context released after Close")
	}
	if _, err := r.ReadUniforms(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("expected ErrNotStarted after Close, got %v", err)
	}
}
