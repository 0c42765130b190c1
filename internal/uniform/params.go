// Package uniform defines the per-frame parameter block shared with the
// fragment shader and its byte layout.
package uniform

import (
	"encoding/binary"
	"math"
)

// Byte offsets of each field in the uniform block. The layout follows WGSL
// uniform address space alignment: vec2 at 8, vec3 at 16.
const (
	OffsetResolution     = 0
	OffsetCameraPosition = 16
	OffsetCameraRotation = 32
	OffsetTime           = 40

	// Size is the total block size, rounded up to 16 bytes.
	Size = 48
)

// Params is the per-frame state consumed by the fragment shader.
type Params struct {
	Resolution     [2]float32
	CameraPosition [3]float32
	// CameraRotation is (pitch, yaw) in radians: angles about the X and Y axes.
	CameraRotation [2]float32
	// Time is seconds since start.
	Time float32
}

// Marshal encodes p in its fixed little-endian layout. Padding bytes are zero.
func (p Params) Marshal() []byte {
	buf := make([]byte, Size)
	p.MarshalTo(buf)
	return buf
}

// MarshalTo encodes p into buf, which must be at least Size bytes.
func (p Params) MarshalTo(buf []byte) {
	_ = buf[Size-1]
	clear(buf[:Size])
	putVec(buf[OffsetResolution:], p.Resolution[:])
	putVec(buf[OffsetCameraPosition:], p.CameraPosition[:])
	putVec(buf[OffsetCameraRotation:], p.CameraRotation[:])
	putF32(buf[OffsetTime:], p.Time)
}

// Unmarshal decodes a block produced by Marshal.
func Unmarshal(buf []byte) Params {
	_ = buf[Size-1]
	var p Params
	getVec(buf[OffsetResolution:], p.Resolution[:])
	getVec(buf[OffsetCameraPosition:], p.CameraPosition[:])
	getVec(buf[OffsetCameraRotation:], p.CameraRotation[:])
	p.Time = getF32(buf[OffsetTime:])
	return p
}

func putF32(b []byte, v float32) { binary.LittleEndian.PutUint32(b, math.Float32bits(v)) }

func getF32(b []byte) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(b)) }

func putVec(b []byte, v []float32) {
	for i, f := range v {
		putF32(b[i*4:], f)
	}
}

func getVec(b []byte, v []float32) {
	for i := range v {
		v[i] = getF32(b[i*4:])
	}
}
