package cpu

import (
	"math"

	"github.com/helios-rt/helios/scene"
	"github.com/helios-rt/helios/types"
)

// Offset applied to tie-breaks and to the next bounce origin to avoid
// self-intersection.
const epsilon float32 = 1e-5

// Capacity of the BVH traversal stack. The builder emits trees that stay
// far below this depth even for meshes in the hundred-thousand triangle
// range.
const traversalStackSize = 64

// Find the nearest intersection between a world-space ray and the scene.
// All geoms are tested by transforming the ray into the instance's object
// space and dispatching on the primitive type; the smallest positive
// world-space distance wins, with ties broken by the lower geom index.
func intersectScene(sc *scene.Scene, r Ray, useBvh bool) Intersection {
	best := Intersection{T: -1, MaterialIndex: -1}

	for idx := range sc.Geoms {
		geom := &sc.Geoms[idx]

		var t float32
		var normal types.Vec3
		var hit bool
		switch geom.Type {
		case scene.CubeGeom:
			t, normal, hit = cubeIntersect(geom, r)
		case scene.SphereGeom:
			t, normal, hit = sphereIntersect(geom, r)
		case scene.MeshGeom:
			t, normal, hit = meshIntersect(sc, geom, r, useBvh)
		}

		if hit && t > 0 && (best.T < 0 || t < best.T) {
			best = Intersection{T: t, Normal: normal, MaterialIndex: geom.MaterialIndex}
		}
	}

	return best
}

// Intersect a ray with a unit cube instance spanning [-0.5, 0.5]^3 in
// object space using a slab test. Returns the world-space distance and the
// outward world-space normal of the hit face.
func cubeIntersect(geom *scene.Geom, r Ray) (float32, types.Vec3, bool) {
	ro := geom.Transform.Inverse.TransformPoint(r.Origin)
	rd := geom.Transform.Inverse.TransformDir(r.Dir)

	tmin := float32(-math.MaxFloat32)
	tmax := float32(math.MaxFloat32)
	var tminNormal, tmaxNormal types.Vec3

	for axis := 0; axis < 3; axis++ {
		if absf(rd[axis]) > epsilon {
			t1 := (-0.5 - ro[axis]) / rd[axis]
			t2 := (0.5 - ro[axis]) / rd[axis]

			ta, tb := t1, t2
			if tb < ta {
				ta, tb = tb, ta
			}

			var n types.Vec3
			if t2 < t1 {
				n[axis] = 1
			} else {
				n[axis] = -1
			}

			if ta > 0 && ta > tmin {
				tmin = ta
				tminNormal = n
			}
			if tb < tmax {
				tmax = tb
				tmaxNormal = n
			}
		} else if ro[axis] < -0.5 || ro[axis] > 0.5 {
			// Parallel ray outside the slab.
			return 0, types.Vec3{}, false
		}
	}

	if tmax < tmin || tmax <= 0 {
		return 0, types.Vec3{}, false
	}

	// A non-positive entry distance means the origin is inside the cube;
	// report the exit face instead. Its normal stays outward facing.
	objNormal := tminNormal
	t := tmin
	if tmin <= 0 {
		t = tmax
		objNormal = tmaxNormal.Mul(-1)
	}

	objPoint := ro.Add(rd.Mul(t))
	return worldHit(geom, r, objPoint, objNormal)
}

// Intersect a ray with a unit sphere instance of radius 0.5 centered at the
// object space origin by solving the quadratic analytically. Returns the
// world-space distance and the outward world-space normal.
func sphereIntersect(geom *scene.Geom, r Ray) (float32, types.Vec3, bool) {
	const radius = 0.5

	ro := geom.Transform.Inverse.TransformPoint(r.Origin)
	rd := geom.Transform.Inverse.TransformDir(r.Dir).Normalize()

	b := ro.Dot(rd)
	radicand := b*b - (ro.Dot(ro) - radius*radius)
	if radicand < 0 {
		return 0, types.Vec3{}, false
	}

	root := sqrtf(radicand)
	t1 := -b + root
	t2 := -b - root

	var t float32
	switch {
	case t1 < 0 && t2 < 0:
		return 0, types.Vec3{}, false
	case t1 > 0 && t2 > 0:
		// Outside the sphere: take the near root.
		t = t2
		if t1 < t2 {
			t = t1
		}
	default:
		// Inside the sphere: take the far root.
		t = t1
		if t2 > t1 {
			t = t2
		}
	}

	objPoint := ro.Add(rd.Mul(t))
	return worldHit(geom, r, objPoint, objPoint.Normalize())
}

// Intersect a ray with a mesh instance, either through the mesh BVH or by
// scanning the full triangle range. Both paths return the identical nearest
// hit.
func meshIntersect(sc *scene.Scene, geom *scene.Geom, r Ray, useBvh bool) (float32, types.Vec3, bool) {
	ro := geom.Transform.Inverse.TransformPoint(r.Origin)
	rd := geom.Transform.Inverse.TransformDir(r.Dir)

	var bestT float32 = -1
	var bestNormal types.Vec3

	if useBvh {
		bestT, bestNormal = traverseBvh(sc, geom.BvhRoot, ro, rd)
	} else {
		for i := geom.TriStart; i < geom.TriStart+geom.TriCount; i++ {
			if t, n, ok := triangleIntersect(&sc.Triangles[i], ro, rd); ok && (bestT < 0 || t < bestT) {
				bestT, bestNormal = t, n
			}
		}
	}

	if bestT < 0 {
		return 0, types.Vec3{}, false
	}

	objPoint := ro.Add(rd.Mul(bestT))
	return worldHit(geom, r, objPoint, bestNormal)
}

// Iteratively walk the flat BVH with an explicit stack keeping the nearer
// child on top. Nodes whose entry distance exceeds the current best hit are
// pruned. Returns the object-space distance and unnormalized object-space
// normal of the nearest triangle hit, or a negative distance on miss.
func traverseBvh(sc *scene.Scene, root int32, ro, rd types.Vec3) (float32, types.Vec3) {
	var bestT float32 = -1
	var bestNormal types.Vec3

	invDir := types.Vec3{1 / rd[0], 1 / rd[1], 1 / rd[2]}

	type stackEntry struct {
		node   int32
		tEnter float32
	}
	var stack [traversalStackSize]stackEntry
	stackPtr := 0

	rootNode := &sc.BvhNodes[root]
	if tEnter, tExit := aabbIntersect(rootNode.Min, rootNode.Max, ro, invDir); tEnter <= tExit && tExit >= 0 {
		stack[0] = stackEntry{node: root, tEnter: tEnter}
		stackPtr = 1
	}

	for stackPtr > 0 {
		stackPtr--
		entry := stack[stackPtr]
		if bestT >= 0 && entry.tEnter >= bestT {
			continue
		}

		node := &sc.BvhNodes[entry.node]
		if node.IsLeaf() {
			first, count := node.Triangles()
			for i := first; i < first+count; i++ {
				if t, n, ok := triangleIntersect(&sc.Triangles[i], ro, rd); ok && (bestT < 0 || t < bestT) {
					bestT, bestNormal = t, n
				}
			}
			continue
		}

		left, right := node.ChildNodes()
		leftNode := &sc.BvhNodes[left]
		rightNode := &sc.BvhNodes[right]

		lEnter, lExit := aabbIntersect(leftNode.Min, leftNode.Max, ro, invDir)
		rEnter, rExit := aabbIntersect(rightNode.Min, rightNode.Max, ro, invDir)
		lHit := lEnter <= lExit && lExit >= 0
		rHit := rEnter <= rExit && rExit >= 0

		// Push the farther child first so the nearer child is visited
		// first and can tighten bestT before the farther one is popped.
		switch {
		case lHit && rHit:
			nearIdx, nearEnter := int32(left), lEnter
			farIdx, farEnter := int32(right), rEnter
			if rEnter < lEnter {
				nearIdx, nearEnter, farIdx, farEnter = farIdx, farEnter, nearIdx, nearEnter
			}
			stack[stackPtr] = stackEntry{node: farIdx, tEnter: farEnter}
			stack[stackPtr+1] = stackEntry{node: nearIdx, tEnter: nearEnter}
			stackPtr += 2
		case lHit:
			stack[stackPtr] = stackEntry{node: int32(left), tEnter: lEnter}
			stackPtr++
		case rHit:
			stack[stackPtr] = stackEntry{node: int32(right), tEnter: rEnter}
			stackPtr++
		}
	}

	return bestT, bestNormal
}

// Branchless slab test between a ray and an axis aligned bounding box. The
// box is hit iff tEnter <= tExit && tExit >= 0.
func aabbIntersect(min, max, origin, invDir types.Vec3) (tEnter, tExit float32) {
	tEnter = float32(-math.MaxFloat32)
	tExit = float32(math.MaxFloat32)

	for axis := 0; axis < 3; axis++ {
		t1 := (min[axis] - origin[axis]) * invDir[axis]
		t2 := (max[axis] - origin[axis]) * invDir[axis]
		if t2 < t1 {
			t1, t2 = t2, t1
		}
		if t1 > tEnter {
			tEnter = t1
		}
		if t2 < tExit {
			tExit = t2
		}
	}

	return tEnter, tExit
}

// Möller-Trumbore ray/triangle intersection in mesh object space with
// barycentric interpolation of the vertex normals.
func triangleIntersect(tri *scene.Triangle, ro, rd types.Vec3) (float32, types.Vec3, bool) {
	edge1 := tri.V1.Sub(tri.V0)
	edge2 := tri.V2.Sub(tri.V0)

	pvec := rd.Cross(edge2)
	det := edge1.Dot(pvec)
	if absf(det) < epsilon {
		return 0, types.Vec3{}, false
	}
	invDet := 1 / det

	tvec := ro.Sub(tri.V0)
	u := tvec.Dot(pvec) * invDet
	if u < 0 || u > 1 {
		return 0, types.Vec3{}, false
	}

	qvec := tvec.Cross(edge1)
	v := rd.Dot(qvec) * invDet
	if v < 0 || u+v > 1 {
		return 0, types.Vec3{}, false
	}

	t := edge2.Dot(qvec) * invDet
	if t <= epsilon {
		return 0, types.Vec3{}, false
	}

	normal := tri.N0.Mul(1 - u - v).Add(tri.N1.Mul(u)).Add(tri.N2.Mul(v))
	return t, normal, true
}

// Map an object-space hit back to world space: the hit point goes through
// the forward transform, the normal through the inverse-transpose, and the
// returned distance is measured along the original world-space ray.
func worldHit(geom *scene.Geom, r Ray, objPoint, objNormal types.Vec3) (float32, types.Vec3, bool) {
	worldPoint := geom.Transform.Matrix.TransformPoint(objPoint)
	worldNormal := geom.Transform.TransformNormal(objNormal)

	t := worldPoint.Sub(r.Origin).Dot(r.Dir)
	if t <= 0 {
		return 0, types.Vec3{}, false
	}

	return t, worldNormal, true
}
