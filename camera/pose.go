package camera

import "github.com/chewxy/math32"

// Pose is an immutable camera state read by the frame loop.
type Pose struct {
	Position [3]float32
	// Rotation is (pitch, yaw) in radians.
	Rotation [2]float32
}

// Forward returns the unit view direction: -Z rotated by pitch about X and
// then by yaw about Y, matching the fragment shader.
func (p Pose) Forward() [3]float32 {
	sp, cp := math32.Sincos(p.Rotation[0])
	sy, cy := math32.Sincos(p.Rotation[1])
	return [3]float32{-sy * cp, sp, -cy * cp}
}
