package gpu

import (
	"fmt"

	"github.com/gogpu/wgpu/hal"
)

// PipelineLayoutOptions describes a pipeline layout to create.
type PipelineLayoutOptions struct {
	Label            string
	BindGroupLayouts []*BindGroupLayout
}

// PipelineLayout is the ordered sequence of bind group layouts a pipeline
// expects, indexed by group number.
type PipelineLayout struct {
	raw     hal.PipelineLayout
	device  hal.Device
	label   string
	layouts []*BindGroupLayout
}

// NewPipelineLayout creates a pipeline layout.
func NewPipelineLayout(gc *Context, opts PipelineLayoutOptions) (*PipelineLayout, error) {
	if gc == nil || !gc.Initialized() {
		return nil, &ResourceError{Kind: "pipeline layout", Label: opts.Label, Err: ErrNotInitialized}
	}
	raws := make([]hal.BindGroupLayout, len(opts.BindGroupLayouts))
	for i, l := range opts.BindGroupLayouts {
		if l == nil || l.Raw() == nil {
			return nil, &ResourceError{Kind: "pipeline layout", Label: opts.Label,
				Err: fmt.Errorf("bind group layout %d is nil", i)}
		}
		raws[i] = l.Raw()
	}
	raw, err := gc.HalDevice().CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            opts.Label,
		BindGroupLayouts: raws,
	})
	if err != nil {
		return nil, &ResourceError{Kind: "pipeline layout", Label: opts.Label, Err: err}
	}
	return &PipelineLayout{
		raw:     raw,
		device:  gc.HalDevice(),
		label:   opts.Label,
		layouts: append([]*BindGroupLayout(nil), opts.BindGroupLayouts...),
	}, nil
}

// Raw returns the underlying pipeline layout handle.
func (p *PipelineLayout) Raw() hal.PipelineLayout { return p.raw }

// Label returns the debug label.
func (p *PipelineLayout) Label() string { return p.label }

// Group returns the bind group layout at index, or nil if out of range.
func (p *PipelineLayout) Group(index int) *BindGroupLayout {
	if index < 0 || index >= len(p.layouts) {
		return nil
	}
	return p.layouts[index]
}

// NumGroups returns the number of bind group slots.
func (p *PipelineLayout) NumGroups() int { return len(p.layouts) }

// Destroy releases the pipeline layout. The bind group layouts are owned by
// the caller and are not destroyed.
func (p *PipelineLayout) Destroy() {
	if p.raw != nil && p.device != nil {
		p.device.DestroyPipelineLayout(p.raw)
	}
	p.raw = nil
}
