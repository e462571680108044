package types

import "math"

const floatCmpEpsilon float32 = 1e-7

// A 4x4 matrix stored in column-major order. The element layout follows
// github.com/go-gl/mathgl/mgl32: m[col*4+row].
type Mat4 [16]float32

// A 3x3 matrix stored in column-major order.
type Mat3 [9]float32

// Create an identity matrix.
func Ident4() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Create a translation matrix.
func Translate4(v Vec3) Mat4 {
	m := Ident4()
	m[12] = v[0]
	m[13] = v[1]
	m[14] = v[2]
	return m
}

// Create a scale matrix.
func Scale4(v Vec3) Mat4 {
	m := Ident4()
	m[0] = v[0]
	m[5] = v[1]
	m[10] = v[2]
	return m
}

// Create a rotation matrix around the X axis. The angle is in radians.
func RotateX4(angle float32) Mat4 {
	sin := float32(math.Sin(float64(angle)))
	cos := float32(math.Cos(float64(angle)))
	m := Ident4()
	m[5], m[6] = cos, sin
	m[9], m[10] = -sin, cos
	return m
}

// Create a rotation matrix around the Y axis. The angle is in radians.
func RotateY4(angle float32) Mat4 {
	sin := float32(math.Sin(float64(angle)))
	cos := float32(math.Cos(float64(angle)))
	m := Ident4()
	m[0], m[2] = cos, -sin
	m[8], m[10] = sin, cos
	return m
}

// Create a rotation matrix around the Z axis. The angle is in radians.
func RotateZ4(angle float32) Mat4 {
	sin := float32(math.Sin(float64(angle)))
	cos := float32(math.Cos(float64(angle)))
	m := Ident4()
	m[0], m[1] = cos, sin
	m[4], m[5] = -sin, cos
	return m
}

// Multiply two matrices.
func (m Mat4) Mul4(m2 Mat4) Mat4 {
	var out Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m[k*4+row] * m2[col*4+k]
			}
			out[col*4+row] = sum
		}
	}
	return out
}

// Multiply matrix with a column vector.
func (m Mat4) Mul4x1(v Vec4) Vec4 {
	return Vec4{
		m[0]*v[0] + m[4]*v[1] + m[8]*v[2] + m[12]*v[3],
		m[1]*v[0] + m[5]*v[1] + m[9]*v[2] + m[13]*v[3],
		m[2]*v[0] + m[6]*v[1] + m[10]*v[2] + m[14]*v[3],
		m[3]*v[0] + m[7]*v[1] + m[11]*v[2] + m[15]*v[3],
	}
}

// Transpose the matrix.
func (m Mat4) Transpose() Mat4 {
	var out Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			out[row*4+col] = m[col*4+row]
		}
	}
	return out
}

// Extract the top-left 3x3 matrix from a 4x4 matrix.
func (m Mat4) Mat3() Mat3 {
	return Mat3{
		m[0], m[1], m[2],
		m[4], m[5], m[6],
		m[8], m[9], m[10],
	}
}

// Transform a point, applying translation.
func (m Mat4) TransformPoint(v Vec3) Vec3 {
	return m.Mul4x1(v.Vec4(1)).Vec3()
}

// Transform a direction, ignoring translation.
func (m Mat4) TransformDir(v Vec3) Vec3 {
	return m.Mul4x1(v.Vec4(0)).Vec3()
}
