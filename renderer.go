package raymarch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/raymarch/camera"
	"github.com/gogpu/raymarch/frame"
	"github.com/gogpu/raymarch/internal/gpu"
	"github.com/gogpu/raymarch/internal/uniform"
	"github.com/gogpu/wgpu/hal"
)

// Renderer draws the ray-marched scene into one surface.
//
// Start, Resize, Frame, ReloadShaders and Close are serialized by an
// internal mutex, so Resize may be called from a window-event goroutine
// while Run drives frames on another. Stop and RequestReload are lock-free.
type Renderer struct {
	backend hal.Backend
	opts    options
	cam     *camera.Rig

	mu      sync.Mutex
	started bool

	gc             *gpu.Context
	uniforms       *gpu.Buffer
	groupLayout    *gpu.BindGroupLayout
	pipelineLayout *gpu.PipelineLayout
	vert           *gpu.ShaderModule
	frag           *gpu.ShaderModule
	pipeline       *gpu.RenderPipeline
	group          *gpu.BindGroup
	targets        *gpu.RenderTargetManager
	pass           *gpu.FramePass

	params  uniform.Params
	elapsed time.Duration
	scratch [uniform.Size]byte

	sched   atomic.Pointer[frame.Scheduler]
	stopped atomic.Bool
	reload  atomic.Bool
}

// New creates a Renderer for backend. No GPU work happens until Start.
func New(backend hal.Backend, opts ...Option) *Renderer {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Renderer{
		backend: backend,
		opts:    o,
		cam:     camera.New(o.camera...),
	}
}

// Start acquires the device and surface and creates every GPU resource the
// frame needs, in order: uniform buffer, bind group layout, pipeline layout,
// shader modules, pipeline, bind group, render targets. Any failure releases
// what was created so far, in reverse order, and returns a *StageError.
func (r *Renderer) Start(ctx context.Context, target SurfaceTarget) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}
	if err := r.start(ctx, target); err != nil {
		r.release()
		return err
	}
	r.started = true
	Logger().Info("raymarch: renderer started",
		"width", target.Width,
		"height", target.Height,
		"samples", r.opts.sampleCount,
	)
	return nil
}

func (r *Renderer) start(ctx context.Context, target SurfaceTarget) error {
	gc := gpu.NewContext(r.backend, r.opts.context...)
	if err := gc.Initialize(ctx, target); err != nil {
		return err
	}
	r.gc = gc

	uniforms, err := gpu.NewBuffer(gc, gpu.BufferOptions{
		Label: "uniforms",
		Size:  uniform.Size,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return gpu.WithStage(gpu.StageResource, err)
	}
	r.uniforms = uniforms

	groupLayout, err := gpu.NewBindGroupLayout(gc, gpu.BindGroupLayoutOptions{
		Label: "uniforms_layout",
		Entries: []gpu.LayoutEntry{{
			Binding:    0,
			Visibility: gputypes.ShaderStageFragment,
			Kind:       gpu.BindingUniformBuffer,
		}},
	})
	if err != nil {
		return gpu.WithStage(gpu.StageResource, err)
	}
	r.groupLayout = groupLayout

	pipelineLayout, err := gpu.NewPipelineLayout(gc, gpu.PipelineLayoutOptions{
		Label:            "raymarch_layout",
		BindGroupLayouts: []*gpu.BindGroupLayout{groupLayout},
	})
	if err != nil {
		return gpu.WithStage(gpu.StagePipeline, err)
	}
	r.pipelineLayout = pipelineLayout

	vert, frag, err := r.loadShaders(ctx)
	if err != nil {
		return err
	}
	r.vert, r.frag = vert, frag

	pipeline, err := r.buildPipeline(vert, frag)
	if err != nil {
		return err
	}
	r.pipeline = pipeline

	group, err := gpu.NewBindGroup(gc, gpu.BindGroupOptions{
		Label:   "uniforms_group",
		Layout:  groupLayout,
		Entries: []gpu.BindGroupEntry{{Binding: 0, Buffer: uniforms, Size: uniform.Size}},
	})
	if err != nil {
		return gpu.WithStage(gpu.StageResource, err)
	}
	r.group = group

	r.targets = gpu.NewRenderTargetManager(gc, gpu.RenderTargetOptions{
		Label:       "targets",
		SampleCount: r.opts.sampleCount,
		ColorFormat: gc.SurfaceFormat(),
		DepthFormat: r.opts.depthFormat,
	})
	w, h := gc.Size()
	if _, err := r.targets.Resize(int(w), int(h)); err != nil {
		return gpu.WithStage(gpu.StageResource, err)
	}

	r.pass = gpu.NewFramePass(gc, r.targets)
	r.pass.SetClearColor(r.opts.clear)

	r.params = uniform.Params{Resolution: [2]float32{float32(w), float32(h)}}
	r.applyPose()
	if err := r.writeUniforms(); err != nil {
		return gpu.WithStage(gpu.StageResource, err)
	}
	return nil
}

// loadShaders compiles the vertex and fragment modules from the configured
// file system. Errors carry StageShader.
func (r *Renderer) loadShaders(ctx context.Context) (*gpu.ShaderModule, *gpu.ShaderModule, error) {
	vert, err := gpu.NewShaderModule(ctx, r.gc, gpu.ShaderModuleOptions{
		Label:  "vertex",
		Source: gpu.ShaderFile{FS: r.opts.shaderFS, Path: r.opts.vertPath},
	})
	if err != nil {
		return nil, nil, gpu.WithStage(gpu.StageShader, err)
	}
	frag, err := gpu.NewShaderModule(ctx, r.gc, gpu.ShaderModuleOptions{
		Label:  "fragment",
		Source: gpu.ShaderFile{FS: r.opts.shaderFS, Path: r.opts.fragPath},
	})
	if err != nil {
		vert.Destroy()
		return nil, nil, gpu.WithStage(gpu.StageShader, err)
	}
	return vert, frag, nil
}

func (r *Renderer) buildPipeline(vert, frag *gpu.ShaderModule) (*gpu.RenderPipeline, error) {
	p, err := gpu.NewRenderPipelineBuilder(r.gc).
		Label("raymarch").
		Layout(r.pipelineLayout).
		Vertex(vert, r.opts.entryPoint).
		Fragment(frag, r.opts.entryPoint).
		ColorTargets(r.gc.SurfaceFormat()).
		SampleCount(r.opts.sampleCount).
		DepthFormat(r.opts.depthFormat).
		Build()
	if err != nil {
		return nil, gpu.WithStage(gpu.StagePipeline, err)
	}
	return p, nil
}

// release destroys everything in reverse creation order. Nil fields are
// skipped, so it also unwinds a partial Start.
func (r *Renderer) release() {
	r.pass = nil
	if r.targets != nil {
		r.targets.Destroy()
		r.targets = nil
	}
	if r.group != nil {
		r.group.Destroy()
		r.group = nil
	}
	if r.pipeline != nil {
		r.pipeline.Destroy()
		r.pipeline = nil
	}
	if r.frag != nil {
		r.frag.Destroy()
		r.frag = nil
	}
	if r.vert != nil {
		r.vert.Destroy()
		r.vert = nil
	}
	if r.pipelineLayout != nil {
		r.pipelineLayout.Destroy()
		r.pipelineLayout = nil
	}
	if r.groupLayout != nil {
		r.groupLayout.Destroy()
		r.groupLayout = nil
	}
	if r.uniforms != nil {
		r.uniforms.Destroy()
		r.uniforms = nil
	}
	if r.gc != nil {
		r.gc.Destroy()
		r.gc = nil
	}
}

// applyPose copies the camera pose and elapsed time into the uniform block.
func (r *Renderer) applyPose() {
	pose := r.cam.Snapshot()
	r.params.CameraPosition = pose.Position
	r.params.CameraRotation = pose.Rotation
	r.params.Time = float32(r.elapsed.Seconds())
}

func (r *Renderer) writeUniforms() error {
	r.params.MarshalTo(r.scratch[:])
	return r.uniforms.Write(0, r.scratch[:])
}

// Resize reconfigures the surface and recreates the render targets for the
// new size. Non-positive sizes are skipped and an unchanged size is a no-op.
func (r *Renderer) Resize(width, height int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return ErrNotStarted
	}
	if width <= 0 || height <= 0 {
		Logger().Debug("raymarch: resize skipped", "width", width, "height", height)
		return nil
	}
	cw, ch := r.gc.Size()
	if uint32(width) == cw && uint32(height) == ch && r.targets.State() == gpu.TargetsValid {
		return nil
	}

	if err := r.gc.Reconfigure(uint32(width), uint32(height)); err != nil {
		return err
	}
	if _, err := r.targets.Resize(width, height); err != nil {
		return gpu.WithStage(gpu.StageResource, err)
	}
	r.params.Resolution = [2]float32{float32(width), float32(height)}
	if err := r.writeUniforms(); err != nil {
		return gpu.WithStage(gpu.StageResource, err)
	}
	Logger().Debug("raymarch: resized", "width", width, "height", height)
	return nil
}

// ObserveResize forwards resize events from src to Resize.
func (r *Renderer) ObserveResize(src gpucontext.EventSource) {
	src.OnResize(func(width, height int) {
		if err := r.Resize(width, height); err != nil {
			Logger().Warn("raymarch: resize failed", "width", width, "height", height, "err", err)
		}
	})
}

// Frame advances the clock by dt, uploads the uniforms and draws one frame.
// A negative dt counts as zero so the time uniform never decreases.
// It has the frame.StepFunc signature. Errors wrap ErrSubmission.
func (r *Renderer) Frame(ctx context.Context, dt time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return gpu.WithStage(gpu.StageSubmit, fmt.Errorf("%w: %w", gpu.ErrSubmission, ErrNotStarted))
	}

	if r.reload.Swap(false) {
		// A failed reload keeps the running pipeline; reloadShaders logs it.
		_ = r.reloadShaders(ctx)
	}

	if dt < 0 {
		dt = 0
	}
	r.elapsed += dt
	r.applyPose()
	if err := r.writeUniforms(); err != nil {
		return gpu.WithStage(gpu.StageSubmit, fmt.Errorf("%w: write uniforms: %w", gpu.ErrSubmission, err))
	}

	status, err := r.pass.Execute(r.pipeline, r.group)
	if err != nil {
		return err
	}
	if status == gpu.FrameSkipped {
		Logger().Debug("raymarch: frame skipped", "elapsed", r.elapsed)
	}
	return nil
}

// Run drives Frame from ticker until Stop, ctx cancellation, the ticker
// running dry or a frame error, which is returned.
func (r *Renderer) Run(ctx context.Context, ticker frame.Ticker, opts ...frame.Option) error {
	s := frame.NewScheduler(ticker, r.Frame, opts...)
	r.sched.Store(s)
	if r.stopped.Load() {
		s.Stop()
	}
	err := s.Run(ctx)
	Logger().Info("raymarch: run finished", "frames", s.Frames())
	return err
}

// Stop ends Run before its next frame. Safe from any goroutine. A stopped
// Renderer does not run again.
func (r *Renderer) Stop() {
	r.stopped.Store(true)
	if s := r.sched.Load(); s != nil {
		s.Stop()
	}
}

// RequestReload asks the next Frame to reload the shaders before drawing.
// Safe from any goroutine.
func (r *Renderer) RequestReload() { r.reload.Store(true) }

// ReloadShaders recompiles both shaders and rebuilds the pipeline. On
// failure the previous pipeline stays active and the error is returned.
func (r *Renderer) ReloadShaders(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return ErrNotStarted
	}
	return r.reloadShaders(ctx)
}

func (r *Renderer) reloadShaders(ctx context.Context) error {
	vert, frag, err := r.loadShaders(ctx)
	if err != nil {
		Logger().Warn("raymarch: shader reload failed", "err", err)
		return err
	}
	pipeline, err := r.buildPipeline(vert, frag)
	if err != nil {
		frag.Destroy()
		vert.Destroy()
		Logger().Warn("raymarch: shader reload failed", "err", err)
		return err
	}

	if err := r.gc.WaitIdle(); err != nil {
		Logger().Warn("raymarch: wait idle before pipeline swap", "err", err)
	}
	r.pipeline.Destroy()
	r.frag.Destroy()
	r.vert.Destroy()
	r.pipeline, r.vert, r.frag = pipeline, vert, frag
	Logger().Info("raymarch: shaders reloaded")
	return nil
}

// Close stops the renderer, waits for the GPU to go idle and releases every
// resource in reverse creation order. Safe to call twice.
func (r *Renderer) Close() {
	r.Stop()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gc != nil && r.gc.Initialized() {
		if err := r.gc.WaitIdle(); err != nil {
			Logger().Warn("raymarch: wait idle on close", "err", err)
		}
	}
	r.release()
	if r.started {
		Logger().Info("raymarch: renderer closed", "elapsed", r.elapsed)
	}
	r.started = false
}

// Camera returns the camera rig. Attach it to an event source to drive it.
func (r *Renderer) Camera() *camera.Rig { return r.cam }

// Targets returns the render target manager, or nil before Start.
func (r *Renderer) Targets() *gpu.RenderTargetManager {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.targets
}

// Context returns the GPU context, or nil before Start.
func (r *Renderer) Context() *gpu.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gc
}

// Elapsed returns the accumulated frame time.
func (r *Renderer) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.elapsed
}

// Params returns the uniform block last written.
func (r *Renderer) Params() uniform.Params {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.params
}

// ReadUniforms reads the uniform buffer back from the device. Backends that
// cannot map uniform buffers return their mapping error.
func (r *Renderer) ReadUniforms() (uniform.Params, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return uniform.Params{}, ErrNotStarted
	}
	data, err := r.uniforms.Read(0, uniform.Size)
	if err != nil {
		return uniform.Params{}, err
	}
	return uniform.Unmarshal(data), nil
}
