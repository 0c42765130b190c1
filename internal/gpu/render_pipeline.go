package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// maxBindGroups is the WebGPU default limit on bind group slots.
const maxBindGroups = 4

// RenderPipelineBuilder composes shader modules and a layout into an
// immutable RenderPipeline.
//
// A nil layout selects "auto": one bind group layout per group is derived
// from the bindings both shader modules declare.
type RenderPipelineBuilder struct {
	gc *Context

	label       string
	layout      *PipelineLayout
	vertex      *ShaderModule
	vertexEntry string
	frag        *ShaderModule
	fragEntry   string
	formats     []gputypes.TextureFormat
	sampleCount uint32
	topology    gputypes.PrimitiveTopology
	depthFormat gputypes.TextureFormat
}

// NewRenderPipelineBuilder returns a builder with a triangle-list topology,
// a sample count of 1 and no depth state.
func NewRenderPipelineBuilder(gc *Context) *RenderPipelineBuilder {
	return &RenderPipelineBuilder{
		gc:          gc,
		label:       "render_pipeline",
		vertexEntry: "main",
		fragEntry:   "main",
		sampleCount: 1,
		topology:    gputypes.PrimitiveTopologyTriangleList,
	}
}

// Label sets the debug label.
func (b *RenderPipelineBuilder) Label(label string) *RenderPipelineBuilder {
	b.label = label
	return b
}

// Layout sets an explicit pipeline layout. Nil selects the auto layout.
func (b *RenderPipelineBuilder) Layout(l *PipelineLayout) *RenderPipelineBuilder {
	b.layout = l
	return b
}

// Vertex sets the vertex stage.
func (b *RenderPipelineBuilder) Vertex(m *ShaderModule, entry string) *RenderPipelineBuilder {
	b.vertex = m
	b.vertexEntry = entry
	return b
}

// Fragment sets the fragment stage.
func (b *RenderPipelineBuilder) Fragment(m *ShaderModule, entry string) *RenderPipelineBuilder {
	b.frag = m
	b.fragEntry = entry
	return b
}

// ColorTargets sets the color attachment formats.
func (b *RenderPipelineBuilder) ColorTargets(formats ...gputypes.TextureFormat) *RenderPipelineBuilder {
	b.formats = append([]gputypes.TextureFormat(nil), formats...)
	return b
}

// SampleCount sets the multisample count (1 or 4).
func (b *RenderPipelineBuilder) SampleCount(n uint32) *RenderPipelineBuilder {
	b.sampleCount = n
	return b
}

// Topology sets the primitive topology.
func (b *RenderPipelineBuilder) Topology(t gputypes.PrimitiveTopology) *RenderPipelineBuilder {
	b.topology = t
	return b
}

// DepthFormat enables a depth state with the given format.
// TextureFormatUndefined disables it.
func (b *RenderPipelineBuilder) DepthFormat(f gputypes.TextureFormat) *RenderPipelineBuilder {
	b.depthFormat = f
	return b
}

// RenderPipeline is an immutable, executable pipeline. A format or sample
// count change requires building a new one.
type RenderPipeline struct {
	raw    hal.RenderPipeline
	device hal.Device
	label  string

	layout      *PipelineLayout
	ownedLayout bool
	autoGroups  []*BindGroupLayout

	formats     []gputypes.TextureFormat
	sampleCount uint32
	topology    gputypes.PrimitiveTopology
	depthFormat gputypes.TextureFormat
}

// Build validates the configuration and creates the pipeline. Interface
// mismatches between shaders and layout fail with *PipelineCreationError
// before any device call.
func (b *RenderPipelineBuilder) Build() (*RenderPipeline, error) {
	if b.gc == nil || !b.gc.Initialized() {
		return nil, &PipelineCreationError{Label: b.label, Reason: "context not initialized", Err: ErrNotInitialized}
	}
	if err := b.validateStages(); err != nil {
		return nil, err
	}

	p := &RenderPipeline{
		device:      b.gc.HalDevice(),
		label:       b.label,
		layout:      b.layout,
		formats:     append([]gputypes.TextureFormat(nil), b.formats...),
		sampleCount: b.sampleCount,
		topology:    b.topology,
		depthFormat: b.depthFormat,
	}

	if p.layout == nil {
		if err := p.createAutoLayout(b.gc, b.vertex, b.frag); err != nil {
			p.Destroy()
			return nil, err
		}
	} else if err := checkLayout(b.label, b.layout, b.vertex, b.frag); err != nil {
		return nil, err
	}

	raw, err := b.gc.HalDevice().CreateRenderPipeline(b.descriptor(p.layout))
	if err != nil {
		p.Destroy()
		return nil, &PipelineCreationError{Label: b.label, Reason: "device rejected pipeline", Err: err}
	}
	p.raw = raw
	slogger().Debug("gpu: render pipeline created",
		"label", b.label,
		"samples", b.sampleCount,
		"format", b.formats[0].String(),
		"auto_layout", p.ownedLayout,
	)
	return p, nil
}

func (b *RenderPipelineBuilder) validateStages() error {
	fail := func(format string, args ...any) error {
		return &PipelineCreationError{Label: b.label, Reason: fmt.Sprintf(format, args...)}
	}
	if b.vertex == nil || b.vertex.Raw() == nil {
		return fail("missing vertex shader module")
	}
	if b.frag == nil || b.frag.Raw() == nil {
		return fail("missing fragment shader module")
	}
	if ep, ok := b.vertex.EntryPoint(b.vertexEntry); !ok || ep.Stage != gputypes.ShaderStageVertex {
		return fail("vertex entry point %q not found in %q", b.vertexEntry, b.vertex.Label())
	}
	if ep, ok := b.frag.EntryPoint(b.fragEntry); !ok || ep.Stage != gputypes.ShaderStageFragment {
		return fail("fragment entry point %q not found in %q", b.fragEntry, b.frag.Label())
	}
	if len(b.formats) == 0 {
		return fail("no color targets")
	}
	if b.sampleCount != 1 && b.sampleCount != 4 {
		return fail("unsupported sample count %d", b.sampleCount)
	}
	if b.depthFormat != gputypes.TextureFormatUndefined && !b.depthFormat.IsDepthStencil() {
		return fail("%s is not a depth format", b.depthFormat)
	}
	return nil
}

// checkLayout verifies that every binding either shader declares exists in
// the layout with a compatible kind and a visibility covering the stage.
func checkLayout(label string, layout *PipelineLayout, vertex, frag *ShaderModule) error {
	stages := []struct {
		module *ShaderModule
		stage  gputypes.ShaderStage
	}{
		{vertex, gputypes.ShaderStageVertex},
		{frag, gputypes.ShaderStageFragment},
	}
	for _, s := range stages {
		for _, sb := range s.module.Bindings() {
			group := layout.Group(int(sb.Group))
			if group == nil {
				return &PipelineCreationError{Label: label,
					Reason: fmt.Sprintf("shader %q uses group %d, layout has %d groups", s.module.Label(), sb.Group, layout.NumGroups())}
			}
			slot, ok := group.Entry(sb.Binding)
			if !ok {
				return &PipelineCreationError{Label: label,
					Reason: fmt.Sprintf("shader %q uses @group(%d) @binding(%d) %q, absent from layout", s.module.Label(), sb.Group, sb.Binding, sb.Name)}
			}
			if !bindingCompatible(slot.Kind, sb.Kind) {
				return &PipelineCreationError{Label: label,
					Reason: fmt.Sprintf("@group(%d) @binding(%d): layout has %s, shader expects %s", sb.Group, sb.Binding, slot.Kind, sb.Kind)}
			}
			if slot.Visibility&s.stage == 0 {
				return &PipelineCreationError{Label: label,
					Reason: fmt.Sprintf("@group(%d) @binding(%d) not visible to %s stage", sb.Group, sb.Binding, stageName(s.stage))}
			}
		}
	}
	return nil
}

// createAutoLayout derives bind group layouts from the union of both modules'
// bindings. The derived objects are owned by the pipeline.
func (p *RenderPipeline) createAutoLayout(gc *Context, vertex, frag *ShaderModule) error {
	type slotKey struct{ group, binding uint32 }
	slots := make(map[slotKey]*LayoutEntry)
	var order []slotKey
	maxGroup := -1

	add := func(m *ShaderModule, stage gputypes.ShaderStage) error {
		for _, sb := range m.Bindings() {
			if sb.Group >= maxBindGroups {
				return &PipelineCreationError{Label: p.label,
					Reason: fmt.Sprintf("shader %q uses group %d, limit is %d", m.Label(), sb.Group, maxBindGroups)}
			}
			k := slotKey{sb.Group, sb.Binding}
			if e, ok := slots[k]; ok {
				if e.Kind != sb.Kind {
					return &PipelineCreationError{Label: p.label,
						Reason: fmt.Sprintf("@group(%d) @binding(%d) declared as %s and %s", sb.Group, sb.Binding, e.Kind, sb.Kind)}
				}
				e.Visibility |= stage
				continue
			}
			slots[k] = &LayoutEntry{Binding: sb.Binding, Visibility: stage, Kind: sb.Kind}
			order = append(order, k)
			if int(sb.Group) > maxGroup {
				maxGroup = int(sb.Group)
			}
		}
		return nil
	}
	if err := add(vertex, gputypes.ShaderStageVertex); err != nil {
		return err
	}
	if err := add(frag, gputypes.ShaderStageFragment); err != nil {
		return err
	}

	groups := make([]*BindGroupLayout, maxGroup+1)
	for g := range groups {
		var entries []LayoutEntry
		for _, k := range order {
			if int(k.group) == g {
				entries = append(entries, *slots[k])
			}
		}
		l, err := NewBindGroupLayout(gc, BindGroupLayoutOptions{
			Label:   fmt.Sprintf("%s_auto_group%d", p.label, g),
			Entries: entries,
		})
		if err != nil {
			return &PipelineCreationError{Label: p.label, Reason: "derive auto layout", Err: err}
		}
		groups[g] = l
		p.autoGroups = append(p.autoGroups, l)
	}

	layout, err := NewPipelineLayout(gc, PipelineLayoutOptions{
		Label:            p.label + "_auto_layout",
		BindGroupLayouts: groups,
	})
	if err != nil {
		return &PipelineCreationError{Label: p.label, Reason: "derive auto layout", Err: err}
	}
	p.layout = layout
	p.ownedLayout = true
	return nil
}

func (b *RenderPipelineBuilder) descriptor(layout *PipelineLayout) *hal.RenderPipelineDescriptor {
	targets := make([]gputypes.ColorTargetState, len(b.formats))
	for i, f := range b.formats {
		targets[i] = gputypes.ColorTargetState{
			Format:    f,
			WriteMask: gputypes.ColorWriteMaskAll,
		}
	}
	desc := &hal.RenderPipelineDescriptor{
		Label:  b.label,
		Layout: layout.Raw(),
		Vertex: hal.VertexState{
			Module:     b.vertex.Raw(),
			EntryPoint: b.vertexEntry,
		},
		Fragment: &hal.FragmentState{
			Module:     b.frag.Raw(),
			EntryPoint: b.fragEntry,
			Targets:    targets,
		},
		Primitive: gputypes.PrimitiveState{
			Topology: b.topology,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: b.sampleCount,
			Mask:  0xFFFFFFFF,
		},
	}
	if b.depthFormat != gputypes.TextureFormatUndefined {
		desc.DepthStencil = &hal.DepthStencilState{
			Format:            b.depthFormat,
			DepthWriteEnabled: true,
			DepthCompare:      gputypes.CompareFunctionLess,
			StencilFront:      keepStencil(),
			StencilBack:       keepStencil(),
		}
	}
	return desc
}

func keepStencil() hal.StencilFaceState {
	return hal.StencilFaceState{
		Compare:     gputypes.CompareFunctionAlways,
		FailOp:      hal.StencilOperationKeep,
		DepthFailOp: hal.StencilOperationKeep,
		PassOp:      hal.StencilOperationKeep,
	}
}

func stageName(s gputypes.ShaderStage) string {
	switch s {
	case gputypes.ShaderStageVertex:
		return "vertex"
	case gputypes.ShaderStageFragment:
		return "fragment"
	default:
		return "compute"
	}
}

// Raw returns the underlying pipeline handle.
func (p *RenderPipeline) Raw() hal.RenderPipeline { return p.raw }

// Label returns the debug label.
func (p *RenderPipeline) Label() string { return p.label }

// Layout returns the explicit or derived pipeline layout.
func (p *RenderPipeline) Layout() *PipelineLayout { return p.layout }

// BindGroupLayout returns the layout of group index, so bind groups can be
// built against an auto-derived layout.
func (p *RenderPipeline) BindGroupLayout(index int) *BindGroupLayout {
	if p.layout == nil {
		return nil
	}
	return p.layout.Group(index)
}

// SampleCount returns the multisample count.
func (p *RenderPipeline) SampleCount() uint32 { return p.sampleCount }

// ColorFormats returns the color target formats.
func (p *RenderPipeline) ColorFormats() []gputypes.TextureFormat {
	return append([]gputypes.TextureFormat(nil), p.formats...)
}

// Topology returns the primitive topology.
func (p *RenderPipeline) Topology() gputypes.PrimitiveTopology { return p.topology }

// DepthFormat returns the depth format, or TextureFormatUndefined.
func (p *RenderPipeline) DepthFormat() gputypes.TextureFormat { return p.depthFormat }

// Destroy releases the pipeline and any auto-derived layouts in reverse
// creation order. Safe to call multiple times.
func (p *RenderPipeline) Destroy() {
	if p.raw != nil && p.device != nil {
		p.device.DestroyRenderPipeline(p.raw)
	}
	p.raw = nil
	if p.ownedLayout && p.layout != nil {
		p.layout.Destroy()
		p.layout = nil
		p.ownedLayout = false
	}
	for i := len(p.autoGroups) - 1; i >= 0; i-- {
		p.autoGroups[i].Destroy()
	}
	p.autoGroups = nil
}
