package gpu

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// BufferOptions describes a buffer to create.
type BufferOptions struct {
	// Label is an optional debug name.
	Label string

	// Size is the buffer size in bytes. Must be non-zero.
	Size uint64

	// Usage specifies how the buffer will be used.
	Usage gputypes.BufferUsage

	// Contents, if set, is written at offset 0 right after creation.
	Contents []byte
}

// Buffer represents a GPU buffer resource.
//
// Capacity is fixed at creation. Contents change only through Write, which
// enqueues a queue write ordered before any later submission.
type Buffer struct {
	mu sync.RWMutex

	halBuffer hal.Buffer
	device    hal.Device
	queue     hal.Queue

	label string
	size  uint64
	usage gputypes.BufferUsage

	destroyed bool
}

// NewBuffer creates a buffer on the context's device.
func NewBuffer(gc *Context, opts BufferOptions) (*Buffer, error) {
	if gc == nil || !gc.Initialized() {
		return nil, &ResourceError{Kind: "buffer", Label: opts.Label, Err: ErrNotInitialized}
	}
	if opts.Size == 0 {
		return nil, &ResourceError{Kind: "buffer", Label: opts.Label, Err: ErrInvalidBufferSize}
	}
	if uint64(len(opts.Contents)) > opts.Size {
		return nil, &ResourceError{Kind: "buffer", Label: opts.Label,
			Err: fmt.Errorf("%w: %d bytes of contents for %d byte buffer", ErrBufferOverflow, len(opts.Contents), opts.Size)}
	}

	raw, err := gc.HalDevice().CreateBuffer(&hal.BufferDescriptor{
		Label: opts.Label,
		Size:  opts.Size,
		Usage: opts.Usage,
	})
	if err != nil {
		return nil, &ResourceError{Kind: "buffer", Label: opts.Label, Err: err}
	}

	b := &Buffer{
		halBuffer: raw,
		device:    gc.HalDevice(),
		queue:     gc.HalQueue(),
		label:     opts.Label,
		size:      opts.Size,
		usage:     opts.Usage,
	}
	if len(opts.Contents) > 0 {
		if err := b.Write(0, opts.Contents); err != nil {
			b.Destroy()
			return nil, &ResourceError{Kind: "buffer", Label: opts.Label, Err: err}
		}
	}
	slogger().Debug("gpu: buffer created", "label", opts.Label, "size", opts.Size)
	return b, nil
}

// Label returns the buffer's debug label.
func (b *Buffer) Label() string { return b.label }

// Size returns the buffer size in bytes.
func (b *Buffer) Size() uint64 { return b.size }

// Usage returns the buffer usage flags.
func (b *Buffer) Usage() gputypes.BufferUsage { return b.usage }

// IsDestroyed returns true if the buffer has been destroyed.
func (b *Buffer) IsDestroyed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.destroyed
}

// Raw returns the underlying buffer handle, or nil after Destroy.
func (b *Buffer) Raw() hal.Buffer {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.destroyed {
		return nil
	}
	return b.halBuffer
}

// Write enqueues data at offset. It does not block on the GPU.
func (b *Buffer) Write(offset uint64, data []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.destroyed {
		return ErrBufferDestroyed
	}
	if offset+uint64(len(data)) > b.size {
		return fmt.Errorf("%w: offset %d + len %d > size %d", ErrBufferOverflow, offset, len(data), b.size)
	}
	if err := b.queue.WriteBuffer(b.halBuffer, offset, data); err != nil {
		return fmt.Errorf("write buffer %q: %w", b.label, err)
	}
	return nil
}

// Read maps [offset, offset+size) and returns a copy of its contents.
// Backends that cannot map the buffer return their mapping error.
func (b *Buffer) Read(offset, size uint64) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.destroyed {
		return nil, ErrBufferDestroyed
	}
	if offset+size > b.size {
		return nil, fmt.Errorf("%w: offset %d + size %d > size %d", ErrBufferOverflow, offset, size, b.size)
	}
	mapping, err := b.device.MapBuffer(b.halBuffer, offset, size)
	if err != nil {
		return nil, fmt.Errorf("map buffer %q: %w", b.label, err)
	}
	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(mapping.Ptr), size))
	if err := b.device.UnmapBuffer(b.halBuffer); err != nil {
		return nil, fmt.Errorf("unmap buffer %q: %w", b.label, err)
	}
	return out, nil
}

// Destroy releases the buffer. Safe to call multiple times.
func (b *Buffer) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return
	}
	b.destroyed = true
	if b.halBuffer != nil && b.device != nil {
		b.device.DestroyBuffer(b.halBuffer)
	}
	b.halBuffer = nil
}
