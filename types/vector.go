package types

import (
	"math"

	"golang.org/x/image/math/f32"
)

type Vec2 f32.Vec2
type Vec3 f32.Vec3
type Vec4 f32.Vec4

// Define a 2 component vector.
func XY(x, y float32) Vec2 {
	return Vec2{x, y}
}

// Define a 3 component vector.
func XYZ(x, y, z float32) Vec3 {
	return Vec3{x, y, z}
}

// Define a 4 component vector.
func XYZW(x, y, z, w float32) Vec4 {
	return Vec4{x, y, z, w}
}

// Expand a 3 component vector to a Vec4.
func (v Vec3) Vec4(w float32) Vec4 {
	return Vec4{v[0], v[1], v[2], w}
}

// Reduce a 4 component vector to a Vec3.
func (v Vec4) Vec3() Vec3 {
	return Vec3{v[0], v[1], v[2]}
}

// Add a vector.
func (v Vec3) Add(v2 Vec3) Vec3 {
	return Vec3{v[0] + v2[0], v[1] + v2[1], v[2] + v2[2]}
}

// Subtract a vector.
func (v Vec3) Sub(v2 Vec3) Vec3 {
	return Vec3{v[0] - v2[0], v[1] - v2[1], v[2] - v2[2]}
}

// Multiply a 3 component vector with a scalar.
func (v Vec3) Mul(s float32) Vec3 {
	return Vec3{v[0] * s, v[1] * s, v[2] * s}
}

// Multiply two vectors component-wise.
func (v Vec3) MulVec3(v2 Vec3) Vec3 {
	return Vec3{v[0] * v2[0], v[1] * v2[1], v[2] * v2[2]}
}

// Get 3 component vector length.
func (v Vec3) Len() float32 {
	return float32(math.Sqrt(float64(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])))
}

// Normalize 3 component vector.
func (v Vec3) Normalize() Vec3 {
	l := v.Len()
	if l < floatCmpEpsilon {
		return Vec3{}
	}
	l = 1.0 / l
	return Vec3{v[0] * l, v[1] * l, v[2] * l}
}

// Subtract a vector.
func (v Vec2) Sub(v2 Vec2) Vec2 {
	return Vec2{v[0] - v2[0], v[1] - v2[1]}
}

// Calculate dot product of 2 vectors
func (v Vec2) Dot(v2 Vec2) float32 {
	return v[0]*v2[0] + v[1]*v2[1]
}

// Calculate dot product of 2 vectors
func (v Vec3) Dot(v2 Vec3) float32 {
	return v[0]*v2[0] + v[1]*v2[1] + v[2]*v2[2]
}

// Calculate cross product of 2 vectors.
func (v Vec3) Cross(v2 Vec3) Vec3 {
	return Vec3{v[1]*v2[2] - v[2]*v2[1], v[2]*v2[0] - v[0]*v2[2], v[0]*v2[1] - v[1]*v2[0]}
}

// Get the largest of the vector's 3 components.
func (v Vec3) MaxComponent() float32 {
	out := v[0]
	if v[1] > out {
		out = v[1]
	}
	if v[2] > out {
		out = v[2]
	}
	return out
}

// Calc min component from two vectors
func MinVec3(v1, v2 Vec3) Vec3 {
	out := v1
	if v2[0] < out[0] {
		out[0] = v2[0]
	}
	if v2[1] < out[1] {
		out[1] = v2[1]
	}
	if v2[2] < out[2] {
		out[2] = v2[2]
	}
	return out
}

// Calc max component from two vectors
func MaxVec3(v1, v2 Vec3) Vec3 {
	out := v1
	if v2[0] > out[0] {
		out[0] = v2[0]
	}
	if v2[1] > out[1] {
		out[1] = v2[1]
	}
	if v2[2] > out[2] {
		out[2] = v2[2]
	}
	return out
}

// Interpolate between two vectors.
func Lerp3(v1, v2 Vec3, t float32) Vec3 {
	return Vec3{
		v1[0] + (v2[0]-v1[0])*t,
		v1[1] + (v2[1]-v1[1])*t,
		v1[2] + (v2[2]-v1[2])*t,
	}
}

// Compare two vectors within the given tolerance.
func ApproxEqual(v1, v2 Vec3, tolerance float32) bool {
	for i := 0; i < 3; i++ {
		d := v1[i] - v2[i]
		if d < -tolerance || d > tolerance {
			return false
		}
	}
	return true
}
