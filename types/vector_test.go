package types

import "testing"

func TestVec3Algebra(t *testing.T) {
	v1 := XYZ(1, 2, 3)
	v2 := XYZ(-2, 0.5, 4)

	if got := v1.Add(v2); got != (Vec3{-1, 2.5, 7}) {
		t.Fatalf("expected sum to be (-1, 2.5, 7); got %v", got)
	}
	if got := v1.Sub(v2); got != (Vec3{3, 1.5, -1}) {
		t.Fatalf("expected difference to be (3, 1.5, -1); got %v", got)
	}
	if got := v1.Mul(2); got != (Vec3{2, 4, 6}) {
		t.Fatalf("expected scaled vector to be (2, 4, 6); got %v", got)
	}
	if got := v1.MulVec3(v2); got != (Vec3{-2, 1, 12}) {
		t.Fatalf("expected component product to be (-2, 1, 12); got %v", got)
	}
	if got := v1.Dot(v2); got != 11 {
		t.Fatalf("expected dot product to be 11; got %f", got)
	}
}

func TestVec3Cross(t *testing.T) {
	got := XYZ(1, 0, 0).Cross(XYZ(0, 1, 0))
	if got != (Vec3{0, 0, 1}) {
		t.Fatalf("expected x cross y to be z; got %v", got)
	}
}

func TestVec3Normalize(t *testing.T) {
	got := XYZ(0, 3, 4).Normalize()
	if !ApproxEqual(got, Vec3{0, 0.6, 0.8}, 1e-6) {
		t.Fatalf("expected normalized vector to be (0, 0.6, 0.8); got %v", got)
	}

	// Degenerate input yields the zero vector instead of NaNs.
	if got = (Vec3{}).Normalize(); got != (Vec3{}) {
		t.Fatalf("expected zero vector to normalize to zero; got %v", got)
	}
}

func TestVec3MaxComponent(t *testing.T) {
	if got := XYZ(0.2, 0.9, 0.5).MaxComponent(); got != 0.9 {
		t.Fatalf("expected max component to be 0.9; got %f", got)
	}
}

func TestMinMaxVec3(t *testing.T) {
	v1 := XYZ(1, -2, 5)
	v2 := XYZ(0, 3, 4)

	if got := MinVec3(v1, v2); got != (Vec3{0, -2, 4}) {
		t.Fatalf("expected min to be (0, -2, 4); got %v", got)
	}
	if got := MaxVec3(v1, v2); got != (Vec3{1, 3, 5}) {
		t.Fatalf("expected max to be (1, 3, 5); got %v", got)
	}
}

func TestLerp3(t *testing.T) {
	v1 := XYZ(0, 0, 0)
	v2 := XYZ(2, 4, 8)

	if got := Lerp3(v1, v2, 0.5); got != (Vec3{1, 2, 4}) {
		t.Fatalf("expected midpoint to be (1, 2, 4); got %v", got)
	}
	if got := Lerp3(v1, v2, 0); got != v1 {
		t.Fatalf("expected lerp at 0 to return the first vector; got %v", got)
	}
	if got := Lerp3(v1, v2, 1); got != v2 {
		t.Fatalf("expected lerp at 1 to return the second vector; got %v", got)
	}
}
