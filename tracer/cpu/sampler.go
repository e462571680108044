package cpu

import (
	"math"

	"github.com/helios-rt/helios/types"
)

const (
	piOver2 float32 = math.Pi / 2
	piOver4 float32 = math.Pi / 4
	twoPi   float32 = 2 * math.Pi

	sqrtOfOneThird float32 = 0.5773502691896258
)

// Thomas Wang's 32-bit integer hash. Used to decorrelate the sampler seed
// components so that neighbouring (iteration, pixel, depth) tuples map to
// distant points of the generator's period.
func wangHash(seed uint32) uint32 {
	seed = (seed ^ 61) ^ (seed >> 16)
	seed *= 9
	seed = seed ^ (seed >> 4)
	seed *= 0x27d4eb2d
	seed = seed ^ (seed >> 15)
	return seed
}

// A deterministic per-sample random stream. Two samplers constructed with
// the same (iteration, pixelIndex, depth) tuple produce identical sequences
// regardless of platform, thread or launch order.
type sampler struct {
	state uint32
}

// Derive a sampler for one pixel sample at one bounce.
func newSampler(iteration, pixelIndex, depth uint32) sampler {
	seed := wangHash((1<<31)|(depth<<22)|iteration) ^ wangHash(pixelIndex)
	return sampler{state: seed}
}

// Advance the 32-bit LCG and return the raw state.
func (s *sampler) next() uint32 {
	s.state = s.state*1664525 + 1013904223
	return s.state
}

// Draw the next float in [0, 1).
func (s *sampler) Float() float32 {
	return float32(s.next()>>8) * (1.0 / 16777216.0)
}

// Map a point of the unit square to the unit disk with uniform area density
// using the Shirley-Chiu concentric mapping.
func concentricSampleDisk(u, v float32) (float32, float32) {
	ox := 2*u - 1
	oy := 2*v - 1

	if ox == 0 && oy == 0 {
		return 0, 0
	}

	var r, theta float32
	if absf(ox) > absf(oy) {
		r = ox
		theta = piOver4 * (oy / ox)
	} else {
		r = oy
		theta = piOver2 - piOver4*(ox/oy)
	}

	return r * cosf(theta), r * sinf(theta)
}

// Sample a cosine-weighted direction in the hemisphere around the given
// normal. The sqrt-distributed polar term makes the density proportional to
// cos(theta) which cancels the lambertian cosine during shading.
func cosineSampleHemisphere(normal types.Vec3, s *sampler) types.Vec3 {
	up := sqrtf(s.Float())
	over := sqrtf(1 - up*up)
	around := s.Float() * twoPi

	// Pick the axis least aligned with the normal to build a local frame.
	var notNormal types.Vec3
	switch {
	case absf(normal[0]) < sqrtOfOneThird:
		notNormal = types.Vec3{1, 0, 0}
	case absf(normal[1]) < sqrtOfOneThird:
		notNormal = types.Vec3{0, 1, 0}
	default:
		notNormal = types.Vec3{0, 0, 1}
	}

	perp1 := normal.Cross(notNormal).Normalize()
	perp2 := normal.Cross(perp1).Normalize()

	return normal.Mul(up).
		Add(perp1.Mul(cosf(around) * over)).
		Add(perp2.Mul(sinf(around) * over))
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func sqrtf(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}

func cosf(v float32) float32 {
	return float32(math.Cos(float64(v)))
}

func sinf(v float32) float32 {
	return float32(math.Sin(float64(v)))
}

func powf(v, exp float32) float32 {
	return float32(math.Pow(float64(v), float64(exp)))
}

func isFinite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
