package scene

import "github.com/helios-rt/helios/types"

type MaterialType uint8

const (
	DiffuseMaterial MaterialType = iota
	SpecularMaterial
	RefractiveMaterial
	EmissiveMaterial
)

// Defines a scene material. The scene file describes materials as a set of
// flags; the reader collapses those into a single Type tag so that the
// shading kernels can branch on it directly.
type Material struct {
	// The type of the material.
	Type MaterialType

	// Diffuse base color.
	Diffuse types.Vec3

	// Specular color and exponent.
	Specular         types.Vec3
	SpecularExponent float32

	// Index of refraction (refractive materials only).
	IOR float32

	// Emitted radiance scaler (emissive materials only).
	Emittance float32
}
