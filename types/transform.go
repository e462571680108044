package types

import "math"

const degToRad = math.Pi / 180.0

// A Transform bundles the object to world matrix of a scene instance with
// the two derived matrices required for intersection tests: the world to
// object matrix for transforming rays and the inverse-transpose for
// transforming surface normals.
type Transform struct {
	Matrix       Mat4
	Inverse      Mat4
	InvTranspose Mat4
}

// Compose a transform from a translation, a set of XYZ Euler rotation
// angles in degrees and a per-axis scale. The matrices are composed as
// T * Rx * Ry * Rz * S; the inverse is assembled analytically from the
// inverted factors rather than via a generic matrix inversion.
func NewTransform(translation, rotationDeg, scale Vec3) Transform {
	rx := rotationDeg[0] * degToRad
	ry := rotationDeg[1] * degToRad
	rz := rotationDeg[2] * degToRad

	rot := RotateX4(rx).Mul4(RotateY4(ry)).Mul4(RotateZ4(rz))

	invScale := Vec3{1, 1, 1}
	for i := 0; i < 3; i++ {
		if scale[i] != 0 {
			invScale[i] = 1.0 / scale[i]
		}
	}

	matrix := Translate4(translation).Mul4(rot).Mul4(Scale4(scale))
	inverse := Scale4(invScale).Mul4(rot.Transpose()).Mul4(Translate4(translation.Mul(-1)))

	return Transform{
		Matrix:       matrix,
		Inverse:      inverse,
		InvTranspose: inverse.Transpose(),
	}
}

// Transform an object-space normal to world space, accounting for
// non-uniform scaling. The result is renormalized.
func (t Transform) TransformNormal(n Vec3) Vec3 {
	return t.InvTranspose.TransformDir(n).Normalize()
}
