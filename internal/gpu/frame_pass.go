package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// FrameStatus reports what happened to a frame.
type FrameStatus int

const (
	// FramePresented means the frame was submitted and presented.
	FramePresented FrameStatus = iota
	// FrameSkipped means no surface texture was available. The surface may
	// have been reconfigured; the next frame will try again.
	FrameSkipped
)

// FramePass records and submits the single full-screen draw of a frame:
// acquire a surface texture, clear, draw one triangle, resolve into the
// surface, submit and present.
type FramePass struct {
	gc      *Context
	targets *RenderTargetManager
	label   string

	clear gputypes.Color
}

// NewFramePass returns a pass that draws into gc's surface using the
// attachments held by targets. The clear color is opaque black.
func NewFramePass(gc *Context, targets *RenderTargetManager) *FramePass {
	return &FramePass{
		gc:      gc,
		targets: targets,
		label:   "frame",
		clear:   gputypes.Color{R: 0, G: 0, B: 0, A: 1},
	}
}

// SetClearColor sets the color the pass clears to.
func (p *FramePass) SetClearColor(c gputypes.Color) { p.clear = c }

// Execute encodes and submits one frame with pipeline and bind group 0.
// Errors are *StageError values at StageSubmit wrapping ErrSubmission.
func (p *FramePass) Execute(pipeline *RenderPipeline, group *BindGroup) (FrameStatus, error) {
	if p.gc == nil || !p.gc.Initialized() {
		return FrameSkipped, WithStage(StageSubmit, fmt.Errorf("%w: %w", ErrSubmission, ErrNotInitialized))
	}
	if pipeline == nil || pipeline.Raw() == nil || group == nil || group.Raw() == nil {
		return FrameSkipped, submitErr("frame pass", errors.New("pipeline or bind group missing"))
	}
	if p.targets.State() != TargetsValid {
		return FrameSkipped, submitErr("frame pass", fmt.Errorf("render targets %s", p.targets.State()))
	}

	surface := p.gc.Surface()
	acquired, err := surface.AcquireTexture(nil)
	switch {
	case errors.Is(err, hal.ErrSurfaceOutdated):
		slogger().Debug("gpu: surface outdated, reconfiguring")
		if rerr := p.gc.Refresh(); rerr != nil {
			return FrameSkipped, rerr
		}
		return FrameSkipped, nil
	case errors.Is(err, hal.ErrNotReady), errors.Is(err, hal.ErrTimeout):
		return FrameSkipped, nil
	case err != nil:
		return FrameSkipped, submitErr("acquire surface texture", err)
	}
	if acquired.Suboptimal {
		slogger().Warn("gpu: surface texture suboptimal")
	}

	device := p.gc.HalDevice()
	surfaceView, err := device.CreateTextureView(acquired.Texture, &hal.TextureViewDescriptor{
		Label: p.label + "_surface_view",
	})
	if err != nil {
		surface.DiscardTexture(acquired.Texture)
		return FrameSkipped, submitErr("create surface view", err)
	}
	defer device.DestroyTextureView(surfaceView)

	cmd, err := p.encode(device, pipeline, group, surfaceView)
	if err != nil {
		surface.DiscardTexture(acquired.Texture)
		return FrameSkipped, err
	}
	defer device.FreeCommandBuffer(cmd)

	queue := p.gc.HalQueue()
	if _, err := queue.Submit([]hal.CommandBuffer{cmd}); err != nil {
		surface.DiscardTexture(acquired.Texture)
		return FrameSkipped, submitErr("submit", err)
	}
	if err := queue.Present(surface, acquired.Texture, nil); err != nil {
		if errors.Is(err, hal.ErrSurfaceOutdated) {
			return FrameSkipped, p.gc.Refresh()
		}
		return FrameSkipped, submitErr("present", err)
	}
	return FramePresented, nil
}

func (p *FramePass) encode(device hal.Device, pipeline *RenderPipeline, group *BindGroup, surfaceView hal.TextureView) (hal.CommandBuffer, error) {
	encoder, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: p.label + "_encoder",
	})
	if err != nil {
		return nil, submitErr("create command encoder", err)
	}
	if err := encoder.BeginEncoding(p.label); err != nil {
		return nil, submitErr("begin encoding", err)
	}

	color := hal.RenderPassColorAttachment{
		View:       surfaceView,
		LoadOp:     gputypes.LoadOpClear,
		StoreOp:    gputypes.StoreOpStore,
		ClearValue: p.clear,
	}
	if msaa := p.targets.ColorView(); msaa != nil {
		color.View = msaa
		color.ResolveTarget = surfaceView
	}
	desc := &hal.RenderPassDescriptor{
		Label:            p.label + "_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{color},
	}
	if depth := p.targets.DepthView(); depth != nil && pipeline.DepthFormat() != gputypes.TextureFormatUndefined {
		desc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:            depth,
			DepthLoadOp:     gputypes.LoadOpClear,
			DepthStoreOp:    gputypes.StoreOpDiscard,
			DepthClearValue: 1.0,
		}
	}

	rp := encoder.BeginRenderPass(desc)
	rp.SetPipeline(pipeline.Raw())
	rp.SetBindGroup(0, group.Raw(), nil)
	rp.Draw(3, 1, 0, 0)
	rp.End()

	cmd, err := encoder.EndEncoding()
	if err != nil {
		return nil, submitErr("end encoding", err)
	}
	return cmd, nil
}

func submitErr(op string, err error) error {
	return WithStage(StageSubmit, fmt.Errorf("%w: %s: %w", ErrSubmission, op, err))
}
