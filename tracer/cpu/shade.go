package cpu

import (
	"github.com/helios-rt/helios/scene"
	"github.com/helios-rt/helios/types"
)

// Scatter or terminate one live path according to the material at its
// current intersection. Terminal outcomes write the final path color and
// zero the remaining bounce budget; scattering outcomes update the
// throughput and replace the path ray with the sampled continuation.
func shadeSegment(seg *PathSegment, isect *Intersection, materials []scene.Material, smp *sampler, cfg *Config, depth uint32) {
	if !seg.Alive() {
		return
	}

	// Rays that leave the scene contribute nothing.
	if isect.T < 0 {
		seg.Color = types.Vec3{}
		seg.RemainingBounces = 0
		return
	}

	mat := &materials[isect.MaterialIndex]

	// Hitting a light terminates the path with the carried throughput.
	if mat.Type == scene.EmissiveMaterial {
		seg.Color = seg.Throughput.MulVec3(mat.Diffuse.Mul(mat.Emittance))
		seg.RemainingBounces = 0
		return
	}

	hitPoint := seg.Ray.PointAt(isect.T)

	var newDir types.Vec3
	switch mat.Type {
	case scene.DiffuseMaterial:
		// The cosine term and the 1/pi BRDF normalization cancel
		// against the cosine-weighted pdf, leaving the plain albedo.
		newDir = cosineSampleHemisphere(isect.Normal, smp)
		seg.Throughput = seg.Throughput.MulVec3(mat.Diffuse)
	case scene.SpecularMaterial:
		newDir = reflect(seg.Ray.Dir, isect.Normal)
		seg.Throughput = seg.Throughput.MulVec3(mat.Specular)
	case scene.RefractiveMaterial:
		newDir = sampleDielectric(seg.Ray.Dir, isect.Normal, mat.IOR, smp)
		seg.Throughput = seg.Throughput.MulVec3(mat.Specular)
	}

	// Recover from numeric anomalies locally: a degenerate direction or a
	// non-finite throughput terminates the path with zero contribution
	// instead of corrupting the image.
	if !throughputValid(seg.Throughput) || newDir.Dot(newDir) < 0.5 {
		seg.Color = types.Vec3{}
		seg.RemainingBounces = 0
		return
	}

	seg.RemainingBounces--

	// Offset the continuation origin along the surface normal on the side
	// the new ray departs to.
	offset := isect.Normal.Mul(epsilon)
	if newDir.Dot(isect.Normal) < 0 {
		offset = offset.Mul(-1)
	}
	seg.Ray = Ray{Origin: hitPoint.Add(offset), Dir: newDir}

	if seg.RemainingBounces == 0 {
		return
	}

	if cfg.RussianRoulette && depth >= cfg.MinBouncesForRR {
		q := seg.Throughput.MaxComponent()
		if q > 1 {
			q = 1
		}
		if q <= 0 || smp.Float() > q {
			seg.Color = types.Vec3{}
			seg.RemainingBounces = 0
			return
		}
		// Scale survivors to keep the estimator unbiased.
		seg.Throughput = seg.Throughput.Mul(1 / q)
	}
}

// Mirror the incoming direction about the normal.
func reflect(dir, normal types.Vec3) types.Vec3 {
	return dir.Sub(normal.Mul(2 * dir.Dot(normal)))
}

// Sample the dielectric BSDF: reflect with probability equal to the Schlick
// Fresnel reflectance, refract via Snell's law otherwise. Total internal
// reflection falls back to a pure reflection. The entering/exiting case is
// detected from the sign of the incidence cosine against the outward
// normal.
func sampleDielectric(dir, normal types.Vec3, ior float32, smp *sampler) types.Vec3 {
	n := normal
	eta := 1 / ior
	cosI := -dir.Dot(normal)
	if cosI < 0 {
		// Exiting the medium: flip the normal and swap the indices.
		n = normal.Mul(-1)
		eta = ior
		cosI = -cosI
	}

	sinT2 := eta * eta * (1 - cosI*cosI)
	if sinT2 > 1 {
		return reflect(dir, n)
	}

	if smp.Float() < schlick(cosI, ior) {
		return reflect(dir, n)
	}

	cosT := sqrtf(1 - sinT2)
	return dir.Mul(eta).Add(n.Mul(eta*cosI - cosT)).Normalize()
}

// Schlick's approximation of the Fresnel reflectance. The normal incidence
// term is symmetric in the two indices, so the incident side does not need
// to be distinguished here.
func schlick(cosI, ior float32) float32 {
	r0 := (1 - ior) / (1 + ior)
	r0 *= r0
	c := 1 - cosI
	return r0 + (1-r0)*c*c*c*c*c
}

// A throughput is valid while all components are finite and non-negative.
func throughputValid(v types.Vec3) bool {
	for i := 0; i < 3; i++ {
		if !isFinite(v[i]) || v[i] < 0 {
			return false
		}
	}
	return true
}
