package avatar

import "math"

// Vec3 is a point or direction in world space. Y is up; locomotion and
// gaze heading math happens in the XZ plane.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// DistXZ returns the horizontal distance between two points.
func (v Vec3) DistXZ(o Vec3) float64 {
	dx := o.X - v.X
	dz := o.Z - v.Z
	return math.Sqrt(dx*dx + dz*dz)
}

// HeadingTo returns the yaw that faces from v toward o in the XZ plane.
// Zero yaw faces +Z.
func (v Vec3) HeadingTo(o Vec3) float64 {
	return math.Atan2(o.X-v.X, o.Z-v.Z)
}

// NormalizeAngle wraps an angle to (-pi, pi].
func NormalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// AngleDelta returns the shortest signed rotation from a to b.
func AngleDelta(a, b float64) float64 {
	return NormalizeAngle(b - a)
}
