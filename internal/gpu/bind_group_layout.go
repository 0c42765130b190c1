package gpu

import (
	"fmt"
	"sort"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// BindingKind is the resource kind a layout slot accepts.
type BindingKind int

const (
	// BindingUniformBuffer is a uniform buffer slot.
	BindingUniformBuffer BindingKind = iota
	// BindingStorageBuffer is a read-write storage buffer slot.
	BindingStorageBuffer
	// BindingReadOnlyStorageBuffer is a read-only storage buffer slot.
	BindingReadOnlyStorageBuffer
	// BindingSampler is a sampler slot.
	BindingSampler
	// BindingTexture is a sampled texture slot.
	BindingTexture
)

// String returns the string representation of BindingKind.
func (k BindingKind) String() string {
	switch k {
	case BindingUniformBuffer:
		return "UniformBuffer"
	case BindingStorageBuffer:
		return "StorageBuffer"
	case BindingReadOnlyStorageBuffer:
		return "ReadOnlyStorageBuffer"
	case BindingSampler:
		return "Sampler"
	case BindingTexture:
		return "Texture"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// IsBuffer reports whether the kind binds a buffer.
func (k BindingKind) IsBuffer() bool {
	return k == BindingUniformBuffer || k == BindingStorageBuffer || k == BindingReadOnlyStorageBuffer
}

// LayoutEntry is one slot of a bind group layout schema.
type LayoutEntry struct {
	Binding    uint32
	Visibility gputypes.ShaderStages
	Kind       BindingKind
}

func (e LayoutEntry) halEntry() gputypes.BindGroupLayoutEntry {
	out := gputypes.BindGroupLayoutEntry{
		Binding:    e.Binding,
		Visibility: e.Visibility,
	}
	switch e.Kind {
	case BindingUniformBuffer:
		out.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}
	case BindingStorageBuffer:
		out.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}
	case BindingReadOnlyStorageBuffer:
		out.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}
	case BindingSampler:
		out.Sampler = &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering}
	case BindingTexture:
		out.Texture = &gputypes.TextureBindingLayout{
			SampleType:    gputypes.TextureSampleTypeFloat,
			ViewDimension: gputypes.TextureViewDimension2D,
		}
	}
	return out
}

// BindGroupLayoutOptions describes a bind group layout to create.
type BindGroupLayoutOptions struct {
	Label   string
	Entries []LayoutEntry
}

// BindGroupLayout is the schema binding index -> visibility -> resource kind.
type BindGroupLayout struct {
	raw     hal.BindGroupLayout
	device  hal.Device
	label   string
	entries []LayoutEntry
}

// NewBindGroupLayout creates a bind group layout. Entries are kept sorted by
// binding index; a repeated index fails with ErrDuplicateBinding.
func NewBindGroupLayout(gc *Context, opts BindGroupLayoutOptions) (*BindGroupLayout, error) {
	if gc == nil || !gc.Initialized() {
		return nil, &ResourceError{Kind: "bind group layout", Label: opts.Label, Err: ErrNotInitialized}
	}
	entries := append([]LayoutEntry(nil), opts.Entries...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Binding < entries[j].Binding })
	for i := 1; i < len(entries); i++ {
		if entries[i].Binding == entries[i-1].Binding {
			return nil, &ResourceError{Kind: "bind group layout", Label: opts.Label,
				Err: fmt.Errorf("%w: %d", ErrDuplicateBinding, entries[i].Binding)}
		}
	}

	halEntries := make([]gputypes.BindGroupLayoutEntry, len(entries))
	for i, e := range entries {
		halEntries[i] = e.halEntry()
	}
	raw, err := gc.HalDevice().CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   opts.Label,
		Entries: halEntries,
	})
	if err != nil {
		return nil, &ResourceError{Kind: "bind group layout", Label: opts.Label, Err: err}
	}
	return &BindGroupLayout{
		raw:     raw,
		device:  gc.HalDevice(),
		label:   opts.Label,
		entries: entries,
	}, nil
}

// Raw returns the underlying layout handle.
func (l *BindGroupLayout) Raw() hal.BindGroupLayout { return l.raw }

// Label returns the debug label.
func (l *BindGroupLayout) Label() string { return l.label }

// Entries returns a copy of the schema, sorted by binding index.
func (l *BindGroupLayout) Entries() []LayoutEntry {
	return append([]LayoutEntry(nil), l.entries...)
}

// Entry looks up the slot for a binding index.
func (l *BindGroupLayout) Entry(binding uint32) (LayoutEntry, bool) {
	for _, e := range l.entries {
		if e.Binding == binding {
			return e, true
		}
	}
	return LayoutEntry{}, false
}

// Destroy releases the layout. Safe to call multiple times.
func (l *BindGroupLayout) Destroy() {
	if l.raw != nil && l.device != nil {
		l.device.DestroyBindGroupLayout(l.raw)
	}
	l.raw = nil
}
