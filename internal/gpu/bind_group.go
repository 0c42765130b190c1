package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// BindGroupEntry binds one live resource to a layout slot. Exactly one of
// Buffer, Sampler or TextureView must be set.
type BindGroupEntry struct {
	Binding uint32

	Buffer *Buffer
	Offset uint64
	// Size of the bound range. Zero binds the rest of the buffer.
	Size uint64

	Sampler     hal.Sampler
	TextureView hal.TextureView
}

// kind reports the resource kind carried by the entry. Buffer entries report
// BindingUniformBuffer; their compatibility is checked against the slot.
func (e BindGroupEntry) kind() (BindingKind, error) {
	set := 0
	k := BindingUniformBuffer
	if e.Buffer != nil {
		set++
	}
	if e.Sampler != nil {
		set++
		k = BindingSampler
	}
	if e.TextureView != nil {
		set++
		k = BindingTexture
	}
	if set != 1 {
		return 0, fmt.Errorf("binding %d: exactly one resource must be set, got %d", e.Binding, set)
	}
	return k, nil
}

// BindGroupOptions describes a bind group to create.
type BindGroupOptions struct {
	Label   string
	Layout  *BindGroupLayout
	Entries []BindGroupEntry
}

// BindGroup is a concrete binding of a layout schema to live resources.
type BindGroup struct {
	raw    hal.BindGroup
	device hal.Device
	label  string
	layout *BindGroupLayout
}

// NewBindGroup creates a bind group. The entries must cover exactly the
// layout's binding indices, and each resource kind must fit its slot;
// otherwise it fails with ErrBindGroupMismatch and no device call is made.
func NewBindGroup(gc *Context, opts BindGroupOptions) (*BindGroup, error) {
	if gc == nil || !gc.Initialized() {
		return nil, &ResourceError{Kind: "bind group", Label: opts.Label, Err: ErrNotInitialized}
	}
	if opts.Layout == nil || opts.Layout.Raw() == nil {
		return nil, &ResourceError{Kind: "bind group", Label: opts.Label,
			Err: fmt.Errorf("%w: layout is nil", ErrBindGroupMismatch)}
	}
	if err := matchLayout(opts.Layout, opts.Entries); err != nil {
		return nil, &ResourceError{Kind: "bind group", Label: opts.Label, Err: err}
	}

	entries := make([]gputypes.BindGroupEntry, len(opts.Entries))
	for i, e := range opts.Entries {
		entries[i] = gputypes.BindGroupEntry{Binding: e.Binding, Resource: e.resource()}
	}
	raw, err := gc.HalDevice().CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   opts.Label,
		Layout:  opts.Layout.Raw(),
		Entries: entries,
	})
	if err != nil {
		return nil, &ResourceError{Kind: "bind group", Label: opts.Label, Err: err}
	}
	return &BindGroup{
		raw:    raw,
		device: gc.HalDevice(),
		label:  opts.Label,
		layout: opts.Layout,
	}, nil
}

func (e BindGroupEntry) resource() gputypes.BindingResource {
	switch {
	case e.Buffer != nil:
		size := e.Size
		if size == 0 {
			size = e.Buffer.Size() - e.Offset
		}
		return gputypes.BufferBinding{Buffer: e.Buffer.Raw().NativeHandle(), Offset: e.Offset, Size: size}
	case e.Sampler != nil:
		return gputypes.SamplerBinding{Sampler: e.Sampler.NativeHandle()}
	default:
		return gputypes.TextureViewBinding{TextureView: e.TextureView.NativeHandle()}
	}
}

// matchLayout checks that entries structurally match the layout schema.
func matchLayout(layout *BindGroupLayout, entries []BindGroupEntry) error {
	seen := make(map[uint32]bool, len(entries))
	for _, e := range entries {
		if seen[e.Binding] {
			return fmt.Errorf("%w: binding %d bound twice", ErrBindGroupMismatch, e.Binding)
		}
		seen[e.Binding] = true

		slot, ok := layout.Entry(e.Binding)
		if !ok {
			return fmt.Errorf("%w: binding %d not in layout %q", ErrBindGroupMismatch, e.Binding, layout.Label())
		}
		k, err := e.kind()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrBindGroupMismatch, err)
		}
		if slot.Kind.IsBuffer() && k == BindingUniformBuffer {
			if err := checkBufferEntry(e, slot); err != nil {
				return err
			}
			continue
		}
		if slot.Kind != k {
			return fmt.Errorf("%w: binding %d expects %s, got %s", ErrBindGroupMismatch, e.Binding, slot.Kind, k)
		}
	}
	for _, slot := range layout.entries {
		if !seen[slot.Binding] {
			return fmt.Errorf("%w: binding %d missing", ErrBindGroupMismatch, slot.Binding)
		}
	}
	return nil
}

func checkBufferEntry(e BindGroupEntry, slot LayoutEntry) error {
	if e.Buffer.IsDestroyed() {
		return fmt.Errorf("%w: binding %d: %w", ErrBindGroupMismatch, e.Binding, ErrBufferDestroyed)
	}
	need := gputypes.BufferUsageStorage
	if slot.Kind == BindingUniformBuffer {
		need = gputypes.BufferUsageUniform
	}
	if e.Buffer.Usage()&need == 0 {
		return fmt.Errorf("%w: binding %d expects %s, buffer %q lacks the usage", ErrBindGroupMismatch, e.Binding, slot.Kind, e.Buffer.Label())
	}
	if e.Offset+e.Size > e.Buffer.Size() || e.Offset >= e.Buffer.Size() {
		return fmt.Errorf("%w: binding %d range [%d,+%d) exceeds buffer %q", ErrBindGroupMismatch, e.Binding, e.Offset, e.Size, e.Buffer.Label())
	}
	return nil
}

// Raw returns the underlying bind group handle.
func (g *BindGroup) Raw() hal.BindGroup { return g.raw }

// Layout returns the layout this group was built against.
func (g *BindGroup) Layout() *BindGroupLayout { return g.layout }

// Destroy releases the bind group. Safe to call multiple times.
func (g *BindGroup) Destroy() {
	if g.raw != nil && g.device != nil {
		g.device.DestroyBindGroup(g.raw)
	}
	g.raw = nil
}
