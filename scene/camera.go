package scene

import (
	"math"

	"github.com/helios-rt/helios/types"
)

type CameraDirection uint8

const (
	Forward CameraDirection = iota
	Backward
	Left
	Right
)

// The camera type describes the viewpoint that primary rays are generated
// from. Position, LookAt and Up are the authored values; View, Right, UpVec
// and PixelLength are derived by Update and must be refreshed after any of
// the authored values change.
type Camera struct {
	Position types.Vec3
	LookAt   types.Vec3
	Up       types.Vec3

	// Frame dimensions in pixels.
	ResolutionX uint32
	ResolutionY uint32

	// Vertical field of view in degrees.
	FOVY float32

	// Thin-lens parameters. A zero aperture yields a pinhole camera.
	Aperture    float32
	FocalLength float32

	// Iteration count and trace depth requested by the scene file.
	Iterations uint32
	TraceDepth uint32

	// Output file requested by the scene file.
	OutputFile string

	// Derived orthonormal camera basis and the angular extent of a
	// single pixel.
	View        types.Vec3
	Right       types.Vec3
	UpVec       types.Vec3
	PixelLength types.Vec2
}

// Create a new camera with sane defaults. The caller is expected to fill in
// the authored fields and invoke Update.
func NewCamera() *Camera {
	return &Camera{
		LookAt:      types.Vec3{0, 0, -1},
		Up:          types.Vec3{0, 1, 0},
		FOVY:        45.0,
		Iterations:  1,
		TraceDepth:  8,
		FocalLength: 1.0,
	}
}

// Recompute the derived camera basis and per-pixel angular extents from the
// authored position, look-at point, up hint, field of view and resolution.
// The resulting {Right, UpVec, View} set is orthonormal and right-handed.
func (c *Camera) Update() {
	c.View = c.LookAt.Sub(c.Position).Normalize()
	c.Right = c.View.Cross(c.Up).Normalize()
	c.UpVec = c.Right.Cross(c.View)

	halfY := float32(math.Tan(float64(c.FOVY) * 0.5 * math.Pi / 180.0))
	halfX := halfY * float32(c.ResolutionX) / float32(c.ResolutionY)
	c.PixelLength = types.XY(
		2.0*halfX/float32(c.ResolutionX),
		2.0*halfY/float32(c.ResolutionY),
	)
}

// Move the camera along one of its basis vectors keeping the view direction
// fixed. Used by the interactive renderer.
func (c *Camera) Move(dir CameraDirection, amount float32) {
	var offset types.Vec3
	switch dir {
	case Forward:
		offset = c.View.Mul(amount)
	case Backward:
		offset = c.View.Mul(-amount)
	case Left:
		offset = c.Right.Mul(-amount)
	case Right:
		offset = c.Right.Mul(amount)
	}

	c.Position = c.Position.Add(offset)
	c.LookAt = c.LookAt.Add(offset)
	c.Update()
}
