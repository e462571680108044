package scene

import (
	"math"
	"testing"

	"github.com/helios-rt/helios/types"
)

func testCamera() *Camera {
	cam := NewCamera()
	cam.Position = types.Vec3{0, 5, 9.5}
	cam.LookAt = types.Vec3{0, 5, 0}
	cam.ResolutionX = 800
	cam.ResolutionY = 600
	cam.FOVY = 45
	cam.Update()
	return cam
}

func TestCameraBasisOrthonormal(t *testing.T) {
	cam := testCamera()

	for name, v := range map[string]types.Vec3{"view": cam.View, "right": cam.Right, "up": cam.UpVec} {
		if l := v.Len(); l < 0.9999 || l > 1.0001 {
			t.Fatalf("expected unit length %s vector; got %f", name, l)
		}
	}

	if d := cam.View.Dot(cam.Right); d < -1e-6 || d > 1e-6 {
		t.Fatalf("expected view and right to be orthogonal; dot product %f", d)
	}
	if d := cam.View.Dot(cam.UpVec); d < -1e-6 || d > 1e-6 {
		t.Fatalf("expected view and up to be orthogonal; dot product %f", d)
	}
	if d := cam.Right.Dot(cam.UpVec); d < -1e-6 || d > 1e-6 {
		t.Fatalf("expected right and up to be orthogonal; dot product %f", d)
	}
}

func TestCameraPixelLength(t *testing.T) {
	cam := testCamera()

	halfY := float32(math.Tan(45 * 0.5 * math.Pi / 180))
	halfX := halfY * 800.0 / 600.0

	expX := 2 * halfX / 800
	expY := 2 * halfY / 600
	if d := cam.PixelLength[0] - expX; d < -1e-6 || d > 1e-6 {
		t.Fatalf("expected horizontal pixel length %f; got %f", expX, cam.PixelLength[0])
	}
	if d := cam.PixelLength[1] - expY; d < -1e-6 || d > 1e-6 {
		t.Fatalf("expected vertical pixel length %f; got %f", expY, cam.PixelLength[1])
	}
}

func TestCameraMove(t *testing.T) {
	cam := testCamera()

	cam.Move(Forward, 2)
	if !types.ApproxEqual(cam.Position, types.Vec3{0, 5, 7.5}, 1e-5) {
		t.Fatalf("expected forward move towards the look-at point; got %v", cam.Position)
	}

	cam.Move(Right, 1)
	if !types.ApproxEqual(cam.Position, types.Vec3{1, 5, 7.5}, 1e-5) {
		t.Fatalf("expected strafe along the right vector; got %v", cam.Position)
	}

	// The view direction is unchanged by translation.
	if !types.ApproxEqual(cam.View, types.Vec3{0, 0, -1}, 1e-5) {
		t.Fatalf("expected the view direction to survive translations; got %v", cam.View)
	}
}
