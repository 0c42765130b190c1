package gpu

import (
	"context"
	"fmt"
	"strings"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// SurfaceTarget describes the presentable area the runtime renders into.
// A zero WindowHandle requests a headless surface on backends that support it.
type SurfaceTarget struct {
	DisplayHandle uintptr
	WindowHandle  uintptr
	Width         uint32
	Height        uint32
}

// ContextOption configures a Context during creation.
type ContextOption func(*contextOptions)

// contextOptions holds optional configuration for Context creation.
type contextOptions struct {
	adapterName string
	features    gputypes.Features
	limits      gputypes.Limits
	formats     []gputypes.TextureFormat
	presentMode hal.PresentMode
}

// defaultContextOptions returns the default context options.
func defaultContextOptions() contextOptions {
	return contextOptions{
		limits: gputypes.DefaultLimits(),
		formats: []gputypes.TextureFormat{
			gputypes.TextureFormatBGRA8Unorm,
			gputypes.TextureFormatRGBA8Unorm,
			gputypes.TextureFormatBGRA8UnormSrgb,
			gputypes.TextureFormatRGBA8UnormSrgb,
		},
		presentMode: hal.PresentModeFifo,
	}
}

// WithAdapterName restricts adapter selection to adapters whose name
// contains the given substring (case-insensitive).
func WithAdapterName(name string) ContextOption {
	return func(o *contextOptions) {
		o.adapterName = name
	}
}

// WithRequiredFeatures sets the features requested when opening the device.
func WithRequiredFeatures(f gputypes.Features) ContextOption {
	return func(o *contextOptions) {
		o.features = f
	}
}

// WithRequiredLimits sets the limits requested when opening the device.
func WithRequiredLimits(l gputypes.Limits) ContextOption {
	return func(o *contextOptions) {
		o.limits = l
	}
}

// WithPreferredFormats sets the surface formats accepted, in preference order.
func WithPreferredFormats(formats ...gputypes.TextureFormat) ContextOption {
	return func(o *contextOptions) {
		if len(formats) > 0 {
			o.formats = formats
		}
	}
}

// WithPresentMode sets the surface presentation mode.
func WithPresentMode(m hal.PresentMode) ContextOption {
	return func(o *contextOptions) {
		o.presentMode = m
	}
}

// Context owns the device, queue and presentation surface. Every other
// object in this package is created from a Context.
//
// Context implements gpucontext.DeviceProvider so it can be handed to
// libraries of the gogpu ecosystem.
type Context struct {
	backend hal.Backend
	opts    contextOptions

	instance hal.Instance
	surface  hal.Surface
	adapter  hal.Adapter
	info     gputypes.AdapterInfo
	caps     hal.Capabilities
	device   hal.Device
	queue    hal.Queue

	format gputypes.TextureFormat
	width  uint32
	height uint32

	initialized bool
}

var _ gpucontext.DeviceProvider = (*Context)(nil)

// NewContext creates an uninitialized Context for the given backend.
func NewContext(backend hal.Backend, opts ...ContextOption) *Context {
	o := defaultContextOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Context{backend: backend, opts: o}
}

// Initialize acquires instance, surface, adapter and device, then configures
// the surface for the target size. It blocks until negotiation completes or
// ctx is done. On failure everything acquired so far is released.
func (c *Context) Initialize(ctx context.Context, target SurfaceTarget) error {
	if c.initialized {
		return nil
	}
	if c.backend == nil {
		return WithStage(StageAdapter, fmt.Errorf("%w: no backend", ErrAdapterUnavailable))
	}
	if err := c.initialize(ctx, target); err != nil {
		c.release()
		return err
	}
	c.initialized = true
	slogger().Info("gpu: context initialized",
		"adapter", c.info.Name,
		"backend", c.backend.Variant().String(),
		"format", c.format.String(),
		"width", c.width,
		"height", c.height,
	)
	return nil
}

func (c *Context) initialize(ctx context.Context, target SurfaceTarget) error {
	instance, err := c.backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return WithStage(StageAdapter, fmt.Errorf("%w: create instance: %w", ErrAdapterUnavailable, err))
	}
	c.instance = instance

	surface, err := instance.CreateSurface(target.DisplayHandle, target.WindowHandle)
	if err != nil {
		return WithStage(StageAdapter, fmt.Errorf("%w: create surface: %w", ErrAdapterUnavailable, err))
	}
	c.surface = surface

	if err := ctx.Err(); err != nil {
		return WithStage(StageAdapter, err)
	}

	selected, err := selectAdapter(instance.EnumerateAdapters(surface), c.opts.adapterName)
	if err != nil {
		return WithStage(StageAdapter, err)
	}
	c.adapter = selected.Adapter
	c.info = selected.Info
	c.caps = selected.Capabilities
	slogger().Debug("gpu: adapter selected",
		"name", selected.Info.Name,
		"type", selected.Info.DeviceType,
		"driver", selected.Info.Driver,
	)

	if err := ctx.Err(); err != nil {
		return WithStage(StageDevice, err)
	}

	openDev, err := selected.Adapter.Open(c.opts.features, c.opts.limits)
	if err != nil {
		return WithStage(StageDevice, fmt.Errorf("%w: open device: %w", ErrDeviceCreationFailed, err))
	}
	c.device = openDev.Device
	c.queue = openDev.Queue

	c.format = c.preferredFormat()
	if err := c.configure(target.Width, target.Height); err != nil {
		return err
	}
	return nil
}

// selectAdapter prefers a discrete GPU, then integrated, then virtual/CPU.
func selectAdapter(adapters []hal.ExposedAdapter, name string) (*hal.ExposedAdapter, error) {
	if name != "" {
		want := strings.ToLower(name)
		filtered := adapters[:0:0]
		for _, a := range adapters {
			if strings.Contains(strings.ToLower(a.Info.Name), want) {
				filtered = append(filtered, a)
			}
		}
		if len(filtered) == 0 {
			return nil, fmt.Errorf("%w: no adapter matching %q", ErrAdapterUnavailable, name)
		}
		adapters = filtered
	}
	if len(adapters) == 0 {
		return nil, fmt.Errorf("%w: no adapters found", ErrAdapterUnavailable)
	}

	for _, want := range []gputypes.DeviceType{
		gputypes.DeviceTypeDiscreteGPU,
		gputypes.DeviceTypeIntegratedGPU,
		gputypes.DeviceTypeVirtualGPU,
		gputypes.DeviceTypeCPU,
	} {
		for i := range adapters {
			if adapters[i].Info.DeviceType == want {
				return &adapters[i], nil
			}
		}
	}
	return &adapters[0], nil
}

// PreferredAdapter applies the adapter preference order used by Initialize:
// discrete, integrated, virtual, then CPU.
func PreferredAdapter(adapters []hal.ExposedAdapter) (*hal.ExposedAdapter, error) {
	return selectAdapter(adapters, "")
}

// preferredFormat picks the first accepted format the surface reports,
// falling back to the first reported format.
func (c *Context) preferredFormat() gputypes.TextureFormat {
	caps := c.adapter.SurfaceCapabilities(c.surface)
	if caps == nil || len(caps.Formats) == 0 {
		return c.opts.formats[0]
	}
	for _, want := range c.opts.formats {
		for _, have := range caps.Formats {
			if want == have {
				return want
			}
		}
	}
	return caps.Formats[0]
}

func (c *Context) configure(width, height uint32) error {
	err := c.surface.Configure(c.device, &hal.SurfaceConfiguration{
		Width:       width,
		Height:      height,
		Format:      c.format,
		Usage:       gputypes.TextureUsageRenderAttachment,
		PresentMode: c.opts.presentMode,
		AlphaMode:   hal.CompositeAlphaModeOpaque,
	})
	if err != nil {
		return WithStage(StageSurface, fmt.Errorf("%w: %dx%d: %w", ErrSurfaceConfiguration, width, height, err))
	}
	c.width = width
	c.height = height
	return nil
}

// Reconfigure resizes the presentation surface. Zero sizes are skipped and
// an unchanged size is a no-op.
func (c *Context) Reconfigure(width, height uint32) error {
	if !c.initialized {
		return ErrNotInitialized
	}
	if width == 0 || height == 0 {
		slogger().Debug("gpu: surface reconfigure skipped", "width", width, "height", height)
		return nil
	}
	if width == c.width && height == c.height {
		return nil
	}
	return c.configure(width, height)
}

// Refresh reconfigures the surface at its current size, for use after the
// surface reports itself outdated.
func (c *Context) Refresh() error {
	if !c.initialized {
		return ErrNotInitialized
	}
	return c.configure(c.width, c.height)
}

// WaitIdle blocks until the device has finished all submitted work.
func (c *Context) WaitIdle() error {
	if c.device == nil {
		return ErrNotInitialized
	}
	return c.device.WaitIdle()
}

// Destroy waits for the device to go idle and releases surface, device,
// adapter and instance in reverse acquisition order. Safe to call twice.
func (c *Context) Destroy() {
	if c.device != nil {
		if err := c.device.WaitIdle(); err != nil {
			slogger().Warn("gpu: wait idle on destroy", "err", err)
		}
	}
	c.release()
	c.initialized = false
}

func (c *Context) release() {
	if c.surface != nil && c.device != nil {
		c.surface.Unconfigure(c.device)
	}
	if c.device != nil {
		c.device.Destroy()
		c.device = nil
		c.queue = nil
	}
	if c.surface != nil {
		c.surface.Destroy()
		c.surface = nil
	}
	if c.adapter != nil {
		c.adapter.Destroy()
		c.adapter = nil
	}
	if c.instance != nil {
		c.instance.Destroy()
		c.instance = nil
	}
}

// Initialized reports whether Initialize completed successfully.
func (c *Context) Initialized() bool { return c.initialized }

// HalDevice returns the HAL device.
func (c *Context) HalDevice() hal.Device { return c.device }

// HalQueue returns the HAL queue.
func (c *Context) HalQueue() hal.Queue { return c.queue }

// Surface returns the presentation surface.
func (c *Context) Surface() hal.Surface { return c.surface }

// Size returns the configured surface size.
func (c *Context) Size() (width, height uint32) { return c.width, c.height }

// Limits returns the limits reported by the selected adapter.
func (c *Context) Limits() gputypes.Limits { return c.caps.Limits }

// HalAdapterInfo returns the full adapter description.
func (c *Context) HalAdapterInfo() gputypes.AdapterInfo { return c.info }

// Device implements gpucontext.DeviceProvider.
func (c *Context) Device() gpucontext.Device { return c.device }

// Queue implements gpucontext.DeviceProvider.
func (c *Context) Queue() gpucontext.Queue { return c.queue }

// Adapter implements gpucontext.DeviceProvider.
func (c *Context) Adapter() gpucontext.Adapter { return c.adapter }

// SurfaceFormat returns the preferred color format of the surface.
func (c *Context) SurfaceFormat() gputypes.TextureFormat { return c.format }

// AdapterInfo implements gpucontext.DeviceProvider.
func (c *Context) AdapterInfo() gpucontext.AdapterInfo {
	t := gpucontext.AdapterTypeUnknown
	switch c.info.DeviceType {
	case gputypes.DeviceTypeDiscreteGPU:
		t = gpucontext.AdapterTypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		t = gpucontext.AdapterTypeIntegrated
	case gputypes.DeviceTypeCPU:
		t = gpucontext.AdapterTypeSoftware
	}
	return gpucontext.AdapterInfo{Name: c.info.Name, Type: t}
}
