package types

import "testing"

func TestTransformRoundTrip(t *testing.T) {
	type spec struct {
		translation Vec3
		rotationDeg Vec3
		scale       Vec3
	}

	specs := []spec{
		{Vec3{}, Vec3{}, Vec3{1, 1, 1}},
		{Vec3{1, -2, 3}, Vec3{}, Vec3{1, 1, 1}},
		{Vec3{}, Vec3{30, 45, -60}, Vec3{1, 1, 1}},
		{Vec3{-4, 2, 7}, Vec3{90, 0, 45}, Vec3{2, 0.5, 3}},
		{Vec3{0, 9.7, 0}, Vec3{0, 0, 0}, Vec3{3, 0.3, 3}},
	}

	points := []Vec3{
		{0, 0, 0},
		{1, 0, 0},
		{-0.5, 0.5, -0.5},
		{2, -3, 4},
	}

	for specIdx, s := range specs {
		tf := NewTransform(s.translation, s.rotationDeg, s.scale)
		for _, p := range points {
			world := tf.Matrix.TransformPoint(p)
			back := tf.Inverse.TransformPoint(world)
			if !ApproxEqual(back, p, 1e-4) {
				t.Fatalf("spec %d: expected inverse(forward(%v)) to be %v; got %v", specIdx, p, p, back)
			}
		}
	}
}

func TestTransformTranslatesPoints(t *testing.T) {
	tf := NewTransform(Vec3{1, 2, 3}, Vec3{}, Vec3{1, 1, 1})

	got := tf.Matrix.TransformPoint(Vec3{0, 0, 0})
	if !ApproxEqual(got, Vec3{1, 2, 3}, 1e-6) {
		t.Fatalf("expected transformed origin to be (1, 2, 3); got %v", got)
	}

	// Directions are unaffected by the translation component.
	gotDir := tf.Matrix.TransformDir(Vec3{0, 0, 1})
	if !ApproxEqual(gotDir, Vec3{0, 0, 1}, 1e-6) {
		t.Fatalf("expected transformed direction to be (0, 0, 1); got %v", gotDir)
	}
}

func TestTransformNormalNonUniformScale(t *testing.T) {
	// A plane tilted by a non-uniform scale must not keep its object
	// space normal; the inverse-transpose fixes it up.
	tf := NewTransform(Vec3{}, Vec3{0, 0, 45}, Vec3{4, 1, 1})

	n := tf.TransformNormal(Vec3{0, 1, 0})
	if d := n.Len(); d < 0.9999 || d > 1.0001 {
		t.Fatalf("expected transformed normal to be unit length; got %f", d)
	}

	// The transformed normal must stay perpendicular to a transformed
	// tangent vector.
	tangent := tf.Matrix.TransformDir(Vec3{1, 0, 0})
	if dot := absf(n.Dot(tangent)); dot > 1e-4 {
		t.Fatalf("expected transformed normal to stay perpendicular to the surface; dot product %f", dot)
	}
}

func TestMatrixMulIdentity(t *testing.T) {
	m := Translate4(Vec3{3, -1, 2}).Mul4(RotateY4(1.1)).Mul4(Scale4(Vec3{2, 2, 2}))

	got := m.Mul4(Ident4())
	if got != m {
		t.Fatalf("expected M * I == M; got %v", got)
	}
	got = Ident4().Mul4(m)
	if got != m {
		t.Fatalf("expected I * M == M; got %v", got)
	}
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
