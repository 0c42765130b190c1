package gpu

import (
	"context"
	"fmt"
	"image"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// createNoopContext creates an initialized 800x600 context on the noop
// backend. The context is destroyed when the test ends.
func createNoopContext(t *testing.T) *Context {
	t.Helper()
	gc := NewContext(noop.API{})
	if err := gc.Initialize(context.Background(), SurfaceTarget{Width: 800, Height: 600}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(gc.Destroy)
	return gc
}

// createRecordingContext is createNoopContext over a recordingBackend.
func createRecordingContext(t *testing.T) (*Context, *recordingBackend) {
	t.Helper()
	b := &recordingBackend{}
	gc := NewContext(b)
	if err := gc.Initialize(context.Background(), SurfaceTarget{Width: 800, Height: 600}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(gc.Destroy)
	return gc, b
}

// recordingBackend wraps the noop backend. It injects failures and records
// texture lifecycle events, submissions and surface configuration.
type recordingBackend struct {
	noop.API

	instanceErr error
	noAdapters  bool
	openErr     error
	configErr   error
	acquireErrs []error
	submitErr   error

	events     []string
	configures int
	submits    int
	presents   int
}

func (b *recordingBackend) record(format string, args ...any) {
	b.events = append(b.events, fmt.Sprintf(format, args...))
}

// take returns the recorded events and clears them.
func (b *recordingBackend) take() []string {
	ev := b.events
	b.events = nil
	return ev
}

func (b *recordingBackend) CreateInstance(desc *hal.InstanceDescriptor) (hal.Instance, error) {
	if b.instanceErr != nil {
		return nil, b.instanceErr
	}
	inst, err := b.API.CreateInstance(desc)
	if err != nil {
		return nil, err
	}
	return &recordingInstance{Instance: inst, b: b}, nil
}

type recordingInstance struct {
	hal.Instance
	b *recordingBackend
}

func (i *recordingInstance) CreateSurface(display, window uintptr) (hal.Surface, error) {
	s, err := i.Instance.CreateSurface(display, window)
	if err != nil {
		return nil, err
	}
	return &recordingSurface{Surface: s, b: i.b}, nil
}

func (i *recordingInstance) EnumerateAdapters(hint hal.Surface) []hal.ExposedAdapter {
	if i.b.noAdapters {
		return nil
	}
	adapters := i.Instance.EnumerateAdapters(nil)
	for k := range adapters {
		adapters[k].Adapter = &recordingAdapter{Adapter: adapters[k].Adapter, b: i.b}
	}
	return adapters
}

type recordingAdapter struct {
	hal.Adapter
	b *recordingBackend
}

func (a *recordingAdapter) Open(f gputypes.Features, l gputypes.Limits) (hal.OpenDevice, error) {
	if a.b.openErr != nil {
		return hal.OpenDevice{}, a.b.openErr
	}
	od, err := a.Adapter.Open(f, l)
	if err != nil {
		return od, err
	}
	od.Device = &recordingDevice{Device: od.Device, b: a.b}
	od.Queue = &recordingQueue{Queue: od.Queue, b: a.b}
	return od, nil
}

type recordingSurface struct {
	hal.Surface
	b *recordingBackend
}

func (s *recordingSurface) Configure(d hal.Device, cfg *hal.SurfaceConfiguration) error {
	if s.b.configErr != nil {
		return s.b.configErr
	}
	s.b.configures++
	return s.Surface.Configure(d, cfg)
}

func (s *recordingSurface) AcquireTexture(f hal.Fence) (*hal.AcquiredSurfaceTexture, error) {
	if len(s.b.acquireErrs) > 0 {
		err := s.b.acquireErrs[0]
		s.b.acquireErrs = s.b.acquireErrs[1:]
		return nil, err
	}
	return s.Surface.AcquireTexture(f)
}

type recordingQueue struct {
	hal.Queue
	b *recordingBackend
}

func (q *recordingQueue) Submit(cmds []hal.CommandBuffer) (uint64, error) {
	if q.b.submitErr != nil {
		return 0, q.b.submitErr
	}
	q.b.submits++
	return q.Queue.Submit(cmds)
}

func (q *recordingQueue) Present(s hal.Surface, t hal.SurfaceTexture, damage []image.Rectangle) error {
	q.b.presents++
	if rs, ok := s.(*recordingSurface); ok {
		s = rs.Surface
	}
	return q.Queue.Present(s, t, damage)
}

// recordingDevice labels textures and views so their destruction can be
// matched to their creation; noop handles are zero-size and not comparable.
type recordingDevice struct {
	hal.Device
	b *recordingBackend
}

type labeledTexture struct {
	hal.Texture
	label string
}

type labeledView struct {
	hal.TextureView
	label string
}

func (d *recordingDevice) CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	tex, err := d.Device.CreateTexture(desc)
	if err != nil {
		return nil, err
	}
	d.b.record("create texture %s %dx%d x%d", desc.Label, desc.Size.Width, desc.Size.Height, desc.SampleCount)
	return &labeledTexture{Texture: tex, label: desc.Label}, nil
}

func (d *recordingDevice) DestroyTexture(tex hal.Texture) {
	if lt, ok := tex.(*labeledTexture); ok {
		d.b.record("destroy texture %s", lt.label)
		tex = lt.Texture
	}
	d.Device.DestroyTexture(tex)
}

func (d *recordingDevice) CreateTextureView(tex hal.Texture, desc *hal.TextureViewDescriptor) (hal.TextureView, error) {
	if lt, ok := tex.(*labeledTexture); ok {
		tex = lt.Texture
	}
	view, err := d.Device.CreateTextureView(tex, desc)
	if err != nil {
		return nil, err
	}
	d.b.record("create view %s", desc.Label)
	return &labeledView{TextureView: view, label: desc.Label}, nil
}

func (d *recordingDevice) DestroyTextureView(view hal.TextureView) {
	if lv, ok := view.(*labeledView); ok {
		d.b.record("destroy view %s", lv.label)
		view = lv.TextureView
	}
	d.Device.DestroyTextureView(view)
}

const testUniformWGSL = `
struct Params {
    resolution: vec2<f32>,
    time: f32,
}

@group(0) @binding(0)
var<uniform> params: Params;

@fragment
fn main(@builtin(position) p: vec4<f32>) -> @location(0) vec4<f32> {
    return vec4<f32>(p.x / params.resolution.x, p.y / params.resolution.y, params.time, 1.0);
}
`

const testSecondBindingWGSL = `
struct Params {
    resolution: vec2<f32>,
    time: f32,
}

@group(0) @binding(1)
var<uniform> params: Params;

@fragment
fn main(@builtin(position) p: vec4<f32>) -> @location(0) vec4<f32> {
    return vec4<f32>(params.time, 0.0, 0.0, 1.0);
}
`

// loadDefaultShaders compiles the embedded vertex and fragment shaders.
func loadDefaultShaders(t *testing.T, gc *Context) (*ShaderModule, *ShaderModule) {
	t.Helper()
	ctx := context.Background()
	vert, err := NewShaderModule(ctx, gc, ShaderModuleOptions{
		Label:  "vert",
		Source: ShaderFile{FS: DefaultShaders(), Path: DefaultVertexShader},
	})
	if err != nil {
		t.Fatalf("vertex shader: %v", err)
	}
	t.Cleanup(vert.Destroy)
	frag, err := NewShaderModule(ctx, gc, ShaderModuleOptions{
		Label:  "frag",
		Source: ShaderFile{FS: DefaultShaders(), Path: DefaultFragmentShader},
	})
	if err != nil {
		t.Fatalf("fragment shader: %v", err)
	}
	t.Cleanup(frag.Destroy)
	return vert, frag
}
