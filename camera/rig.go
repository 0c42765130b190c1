// Package camera implements the interactive orbit-style camera rig driven by
// host input events.
//
// A Rig holds a position and a (pitch, yaw) rotation. Input handlers may be
// called from the host's event goroutine while the frame loop reads a
// snapshot, so all state is guarded by a mutex.
package camera

import (
	"sync"

	"github.com/gogpu/gpucontext"
)

// Input sensitivities.
const (
	// WheelSensitivity scales scroll deltas into z movement.
	WheelSensitivity = 0.01
	// DragSensitivity scales pointer deltas into radians.
	DragSensitivity = 0.005
	// MoveStep is the x/y step per key press.
	MoveStep = 0.25
)

// DefaultPosition is the starting camera position.
var DefaultPosition = [3]float32{0, 0, 5}

// Rig is the camera state mutated by input events.
type Rig struct {
	mu sync.Mutex

	position [3]float32
	rotation [2]float32

	dragging bool
	lastX    float64
	lastY    float64
	held     map[gpucontext.Key]bool
}

// Option configures a Rig.
type Option func(*Rig)

// WithPosition sets the starting position.
func WithPosition(p [3]float32) Option {
	return func(r *Rig) { r.position = p }
}

// WithRotation sets the starting (pitch, yaw) rotation.
func WithRotation(rot [2]float32) Option {
	return func(r *Rig) { r.rotation = rot }
}

// New returns a rig at DefaultPosition with zero rotation.
func New(opts ...Option) *Rig {
	r := &Rig{
		position: DefaultPosition,
		held:     make(map[gpucontext.Key]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Scroll moves the camera along z by deltaY * WheelSensitivity.
func (r *Rig) Scroll(deltaY float64) {
	r.mu.Lock()
	r.position[2] += float32(deltaY * WheelSensitivity)
	r.mu.Unlock()
}

// PointerDown records the pointer position and starts a drag on the
// primary button.
func (r *Rig) PointerDown(button gpucontext.MouseButton, x, y float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if button == gpucontext.MouseButtonLeft {
		r.dragging = true
	}
	r.lastX, r.lastY = x, y
}

// PointerMove rotates the camera while the primary button is held. Every
// move records the pointer position.
func (r *Rig) PointerMove(x, y float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dragging {
		dx := x - r.lastX
		dy := y - r.lastY
		r.rotation[0] += float32(-dy * DragSensitivity)
		r.rotation[1] += float32(-dx * DragSensitivity)
	}
	r.lastX, r.lastY = x, y
}

// PointerUp records the pointer position and ends a drag on the primary
// button.
func (r *Rig) PointerUp(button gpucontext.MouseButton, x, y float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if button == gpucontext.MouseButtonLeft {
		r.dragging = false
	}
	r.lastX, r.lastY = x, y
}

// KeyDown moves the camera: W/S or Up/Down along y, A/D or Left/Right
// along x. Other keys are ignored.
func (r *Rig) KeyDown(key gpucontext.Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.held[key] = true
	switch key {
	case gpucontext.KeyW, gpucontext.KeyUp:
		r.position[1] += MoveStep
	case gpucontext.KeyS, gpucontext.KeyDown:
		r.position[1] -= MoveStep
	case gpucontext.KeyA, gpucontext.KeyLeft:
		r.position[0] -= MoveStep
	case gpucontext.KeyD, gpucontext.KeyRight:
		r.position[0] += MoveStep
	}
}

// KeyUp clears the held state of key. It does not move the camera.
func (r *Rig) KeyUp(key gpucontext.Key) {
	r.mu.Lock()
	delete(r.held, key)
	r.mu.Unlock()
}

// Held reports whether key is currently held.
func (r *Rig) Held(key gpucontext.Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.held[key]
}

// Dragging reports whether a primary-button drag is in progress.
func (r *Rig) Dragging() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dragging
}

// Position returns the camera position.
func (r *Rig) Position() [3]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.position
}

// Rotation returns the (pitch, yaw) rotation in radians.
func (r *Rig) Rotation() [2]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rotation
}

// Snapshot returns a consistent copy of position and rotation.
func (r *Rig) Snapshot() Pose {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Pose{Position: r.position, Rotation: r.rotation}
}
