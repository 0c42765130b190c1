package gpu

import (
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// TargetState is the lifecycle state of a RenderTargetManager.
type TargetState int

const (
	// TargetsUninitialized means no targets have been created yet.
	TargetsUninitialized TargetState = iota
	// TargetsValid means the targets match the current size.
	TargetsValid
	// TargetsInvalidated means the old targets are gone and new ones are
	// not (yet) in place.
	TargetsInvalidated
)

// String returns the state name.
func (s TargetState) String() string {
	switch s {
	case TargetsUninitialized:
		return "uninitialized"
	case TargetsValid:
		return "valid"
	case TargetsInvalidated:
		return "invalidated"
	default:
		return "unknown"
	}
}

// RenderTargetOptions configures a RenderTargetManager.
type RenderTargetOptions struct {
	Label       string
	SampleCount uint32
	ColorFormat gputypes.TextureFormat
	// DepthFormat of TextureFormatUndefined disables the depth target.
	DepthFormat gputypes.TextureFormat
}

// RenderTargetManager owns the size-dependent attachments of the frame pass:
// the multisampled color target (absent for a sample count of 1) and the
// depth target. Targets are recreated only when the size actually changes.
type RenderTargetManager struct {
	mu sync.Mutex

	gc    *Context
	label string

	sampleCount uint32
	colorFormat gputypes.TextureFormat
	depthFormat gputypes.TextureFormat

	state     TargetState
	width     int
	height    int
	colorTex  hal.Texture
	colorView hal.TextureView
	depthTex  hal.Texture
	depthView hal.TextureView
}

// NewRenderTargetManager returns a manager in the TargetsUninitialized state.
// No textures are created until the first Resize.
func NewRenderTargetManager(gc *Context, opts RenderTargetOptions) *RenderTargetManager {
	if opts.SampleCount == 0 {
		opts.SampleCount = 1
	}
	if opts.Label == "" {
		opts.Label = "targets"
	}
	return &RenderTargetManager{
		gc:          gc,
		label:       opts.Label,
		sampleCount: opts.SampleCount,
		colorFormat: opts.ColorFormat,
		depthFormat: opts.DepthFormat,
	}
}

// Resize recreates the targets at width x height. It reports whether any
// GPU resources were recreated. Non-positive sizes are skipped, and an
// unchanged size on valid targets is a no-op.
//
// A creation failure leaves the manager TargetsInvalidated with nothing
// allocated.
func (m *RenderTargetManager) Resize(width, height int) (bool, error) {
	if width <= 0 || height <= 0 {
		slogger().Debug("gpu: resize skipped", "label", m.label, "width", width, "height", height)
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == TargetsValid && m.width == width && m.height == height {
		return false, nil
	}
	if m.gc == nil || !m.gc.Initialized() {
		return false, &ResourceError{Kind: "render target", Label: m.label, Err: ErrNotInitialized}
	}

	m.state = TargetsInvalidated
	m.release()

	if err := m.create(uint32(width), uint32(height)); err != nil {
		m.release()
		return false, err
	}
	m.width, m.height = width, height
	m.state = TargetsValid
	slogger().Debug("gpu: render targets resized",
		"label", m.label,
		"width", width,
		"height", height,
		"samples", m.sampleCount,
	)
	return true, nil
}

func (m *RenderTargetManager) create(w, h uint32) error {
	device := m.gc.HalDevice()
	size := hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1}

	if m.sampleCount > 1 {
		tex, err := device.CreateTexture(&hal.TextureDescriptor{
			Label:         m.label + "_msaa_color",
			Size:          size,
			MipLevelCount: 1,
			SampleCount:   m.sampleCount,
			Dimension:     gputypes.TextureDimension2D,
			Format:        m.colorFormat,
			Usage:         gputypes.TextureUsageRenderAttachment,
		})
		if err != nil {
			return &ResourceError{Kind: "texture", Label: m.label + "_msaa_color", Err: err}
		}
		m.colorTex = tex

		view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
			Label: m.label + "_msaa_color_view",
		})
		if err != nil {
			return &ResourceError{Kind: "texture view", Label: m.label + "_msaa_color_view", Err: err}
		}
		m.colorView = view
	}

	if m.depthFormat == gputypes.TextureFormatUndefined {
		return nil
	}
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         m.label + "_depth",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   m.sampleCount,
		Dimension:     gputypes.TextureDimension2D,
		Format:        m.depthFormat,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		return &ResourceError{Kind: "texture", Label: m.label + "_depth", Err: err}
	}
	m.depthTex = tex

	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: m.label + "_depth_view",
	})
	if err != nil {
		return &ResourceError{Kind: "texture view", Label: m.label + "_depth_view", Err: err}
	}
	m.depthView = view
	return nil
}

// release destroys views and textures, color before depth. Callers hold mu.
func (m *RenderTargetManager) release() {
	if m.gc == nil || m.gc.HalDevice() == nil {
		m.colorView, m.colorTex, m.depthView, m.depthTex = nil, nil, nil, nil
		return
	}
	device := m.gc.HalDevice()
	if m.colorView != nil {
		device.DestroyTextureView(m.colorView)
		m.colorView = nil
	}
	if m.colorTex != nil {
		device.DestroyTexture(m.colorTex)
		m.colorTex = nil
	}
	if m.depthView != nil {
		device.DestroyTextureView(m.depthView)
		m.depthView = nil
	}
	if m.depthTex != nil {
		device.DestroyTexture(m.depthTex)
		m.depthTex = nil
	}
}

// State returns the lifecycle state.
func (m *RenderTargetManager) State() TargetState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Size returns the size of the current targets.
func (m *RenderTargetManager) Size() (width, height int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.width, m.height
}

// SampleCount returns the sample count of the targets.
func (m *RenderTargetManager) SampleCount() uint32 { return m.sampleCount }

// ColorFormat returns the color target format.
func (m *RenderTargetManager) ColorFormat() gputypes.TextureFormat { return m.colorFormat }

// DepthFormat returns the depth target format.
func (m *RenderTargetManager) DepthFormat() gputypes.TextureFormat { return m.depthFormat }

// ColorView returns the multisampled color view, or nil when the sample
// count is 1 and the pass renders directly into the surface.
func (m *RenderTargetManager) ColorView() hal.TextureView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.colorView
}

// DepthView returns the depth view, or nil if depth is disabled.
func (m *RenderTargetManager) DepthView() hal.TextureView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.depthView
}

// Destroy releases all targets and returns the manager to
// TargetsUninitialized. Safe to call multiple times.
func (m *RenderTargetManager) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
	m.state = TargetsUninitialized
	m.width, m.height = 0, 0
}
