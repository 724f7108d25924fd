// Package motion classifies the state of a tumbling object (a die) from a
// stream of timestamped 3-axis accelerometer samples. A Detector keeps a short
// bounded history of samples and maps the derived feature window to a Label
// through an ordered cascade of threshold rules.
package motion

import "math"

// Vec3 is a 3-axis measurement or derived vector.
type Vec3 struct {
	X, Y, Z float64
}

// Abs returns the elementwise absolute value.
func (v Vec3) Abs() Vec3 {
	return Vec3{X: math.Abs(v.X), Y: math.Abs(v.Y), Z: math.Abs(v.Z)}
}

// Sub returns the elementwise difference v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Sum returns X + Y + Z.
func (v Vec3) Sum() float64 {
	return v.X + v.Y + v.Z
}

// NormSq returns the squared euclidean norm.
func (v Vec3) NormSq() float64 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

// Sample is one timestamped accelerometer reading.
type Sample struct {
	Time         int64 // milliseconds, non-decreasing across a stream
	Measurements Vec3  // g
}

// NewSample builds a Sample from its raw parts.
func NewSample(millis int64, x, y, z float64) Sample {
	return Sample{Time: millis, Measurements: Vec3{X: x, Y: y, Z: z}}
}
