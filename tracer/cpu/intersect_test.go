package cpu

import (
	"math/rand"
	"testing"

	"github.com/helios-rt/helios/scene"
	"github.com/helios-rt/helios/scene/bvh"
	"github.com/helios-rt/helios/types"
)

func makeGeom(geomType scene.GeomType, trans, rot, scale types.Vec3) scene.Geom {
	return scene.Geom{
		Type:          geomType,
		Translation:   trans,
		RotationDeg:   rot,
		Scale:         scale,
		Transform:     types.NewTransform(trans, rot, scale),
	}
}

func TestCubeIntersect(t *testing.T) {
	cube := makeGeom(scene.CubeGeom, types.Vec3{0, 0, 0}, types.Vec3{}, types.Vec3{2, 2, 2})

	// Frontal hit along -z.
	r := Ray{Origin: types.Vec3{0, 0, 5}, Dir: types.Vec3{0, 0, -1}}
	dist, normal, hit := cubeIntersect(&cube, r)
	if !hit {
		t.Fatal("expected frontal ray to hit the cube")
	}
	if dist < 3.999 || dist > 4.001 {
		t.Fatalf("expected hit distance 4; got %f", dist)
	}
	if !types.ApproxEqual(normal, types.Vec3{0, 0, 1}, 1e-4) {
		t.Fatalf("expected +z face normal; got %v", normal)
	}

	// Miss.
	r = Ray{Origin: types.Vec3{5, 0, 5}, Dir: types.Vec3{0, 0, -1}}
	if _, _, hit = cubeIntersect(&cube, r); hit {
		t.Fatal("expected offset ray to miss the cube")
	}

	// A ray starting inside reports the exit face with an outward normal.
	r = Ray{Origin: types.Vec3{0, 0, 0}, Dir: types.Vec3{1, 0, 0}}
	dist, normal, hit = cubeIntersect(&cube, r)
	if !hit {
		t.Fatal("expected interior ray to hit the cube")
	}
	if dist < 0.999 || dist > 1.001 {
		t.Fatalf("expected exit distance 1; got %f", dist)
	}
	if !types.ApproxEqual(normal, types.Vec3{1, 0, 0}, 1e-4) {
		t.Fatalf("expected outward +x normal for the exit face; got %v", normal)
	}
}

func TestCubeIntersectRotated(t *testing.T) {
	// A unit cube rotated 45 degrees around y presents an edge to a ray
	// travelling along -z; the hit distance shrinks accordingly.
	cube := makeGeom(scene.CubeGeom, types.Vec3{0, 0, 0}, types.Vec3{0, 45, 0}, types.Vec3{1, 1, 1})

	r := Ray{Origin: types.Vec3{0, 0, 5}, Dir: types.Vec3{0, 0, -1}}
	dist, _, hit := cubeIntersect(&cube, r)
	if !hit {
		t.Fatal("expected ray to hit the rotated cube")
	}

	expDist := 5 - sqrtf(2)/2
	if absf(dist-expDist) > 1e-3 {
		t.Fatalf("expected hit distance %f; got %f", expDist, dist)
	}
}

func TestSphereIntersect(t *testing.T) {
	sphere := makeGeom(scene.SphereGeom, types.Vec3{0, 0, 0}, types.Vec3{}, types.Vec3{2, 2, 2})

	// Frontal hit: radius is 1 after scaling.
	r := Ray{Origin: types.Vec3{0, 0, 5}, Dir: types.Vec3{0, 0, -1}}
	dist, normal, hit := sphereIntersect(&sphere, r)
	if !hit {
		t.Fatal("expected frontal ray to hit the sphere")
	}
	if dist < 3.999 || dist > 4.001 {
		t.Fatalf("expected hit distance 4; got %f", dist)
	}
	if !types.ApproxEqual(normal, types.Vec3{0, 0, 1}, 1e-4) {
		t.Fatalf("expected +z normal at the near pole; got %v", normal)
	}

	// Grazing miss.
	r = Ray{Origin: types.Vec3{0, 1.5, 5}, Dir: types.Vec3{0, 0, -1}}
	if _, _, hit = sphereIntersect(&sphere, r); hit {
		t.Fatal("expected offset ray to miss the sphere")
	}

	// Interior origin: both roots straddle zero, the far one is returned
	// and the normal stays outward.
	r = Ray{Origin: types.Vec3{0, 0, 0}, Dir: types.Vec3{0, 0, -1}}
	dist, normal, hit = sphereIntersect(&sphere, r)
	if !hit {
		t.Fatal("expected interior ray to hit the sphere")
	}
	if dist < 0.999 || dist > 1.001 {
		t.Fatalf("expected exit distance 1; got %f", dist)
	}
	if !types.ApproxEqual(normal, types.Vec3{0, 0, -1}, 1e-4) {
		t.Fatalf("expected outward -z normal at the exit point; got %v", normal)
	}
}

func TestTriangleIntersect(t *testing.T) {
	tri := scene.Triangle{
		V0: types.Vec3{-1, 0, 0},
		V1: types.Vec3{1, 0, 0},
		V2: types.Vec3{0, 2, 0},
		N0: types.Vec3{0, 0, 1},
		N1: types.Vec3{0, 0, 1},
		N2: types.Vec3{0, 0, 1},
	}
	tri.UpdateBBox()

	// Hit through an interior point.
	dist, normal, hit := triangleIntersect(&tri, types.Vec3{0, 0.5, 3}, types.Vec3{0, 0, -1})
	if !hit {
		t.Fatal("expected interior ray to hit the triangle")
	}
	if dist < 2.999 || dist > 3.001 {
		t.Fatalf("expected hit distance 3; got %f", dist)
	}
	if !types.ApproxEqual(normal, types.Vec3{0, 0, 1}, 1e-4) {
		t.Fatalf("expected interpolated normal (0, 0, 1); got %v", normal)
	}

	// Barycentric rejection outside the edges.
	if _, _, hit = triangleIntersect(&tri, types.Vec3{2, 0.5, 3}, types.Vec3{0, 0, -1}); hit {
		t.Fatal("expected ray outside the edges to miss")
	}

	// Behind the origin.
	if _, _, hit = triangleIntersect(&tri, types.Vec3{0, 0.5, -3}, types.Vec3{0, 0, -1}); hit {
		t.Fatal("expected triangle behind the ray to miss")
	}
}

func TestTriangleNormalInterpolation(t *testing.T) {
	tri := scene.Triangle{
		V0: types.Vec3{-1, -1, 0},
		V1: types.Vec3{1, -1, 0},
		V2: types.Vec3{0, 1, 0},
		N0: types.Vec3{-1, 0, 1}.Normalize(),
		N1: types.Vec3{1, 0, 1}.Normalize(),
		N2: types.Vec3{0, 1, 1}.Normalize(),
	}
	tri.UpdateBBox()

	// A hit near a vertex leans towards that vertex normal.
	_, normal, hit := triangleIntersect(&tri, types.Vec3{0.9, -0.9, 3}, types.Vec3{0, 0, -1})
	if !hit {
		t.Fatal("expected hit near the second vertex")
	}
	if normal.Normalize().Dot(tri.N1) < 0.95 {
		t.Fatalf("expected normal to lean towards the nearby vertex normal; got %v", normal)
	}
}

func TestAabbIntersect(t *testing.T) {
	min := types.Vec3{-1, -1, -1}
	max := types.Vec3{1, 1, 1}

	invDir := func(d types.Vec3) types.Vec3 {
		return types.Vec3{1 / d[0], 1 / d[1], 1 / d[2]}
	}

	// Frontal hit.
	tEnter, tExit := aabbIntersect(min, max, types.Vec3{0, 0, 5}, invDir(types.Vec3{0, 0, -1}))
	if tEnter > tExit || tExit < 0 {
		t.Fatal("expected frontal ray to hit the box")
	}
	if absf(tEnter-4) > 1e-4 || absf(tExit-6) > 1e-4 {
		t.Fatalf("expected (tEnter, tExit) = (4, 6); got (%f, %f)", tEnter, tExit)
	}

	// Miss above the box; an axis-parallel direction exercises the
	// infinity propagation of the branchless slab test.
	tEnter, tExit = aabbIntersect(min, max, types.Vec3{0, 5, 5}, invDir(types.Vec3{0, 0, -1}))
	if tEnter <= tExit && tExit >= 0 {
		t.Fatal("expected offset ray to miss the box")
	}

	// Box fully behind the origin.
	tEnter, tExit = aabbIntersect(min, max, types.Vec3{0, 0, 5}, invDir(types.Vec3{0, 0, 1}))
	if tEnter <= tExit && tExit >= 0 {
		t.Fatal("expected box behind the ray to miss")
	}

	// Origin inside the box: tEnter < 0 <= tExit.
	tEnter, tExit = aabbIntersect(min, max, types.Vec3{0, 0, 0}, invDir(types.Vec3{0, 0, 1}))
	if !(tEnter <= 0 && tExit >= 0) {
		t.Fatalf("expected interior origin to straddle zero; got (%f, %f)", tEnter, tExit)
	}
}

// Build a randomized triangle soup and verify that BVH traversal and the
// linear scan agree on the nearest hit for every probe ray.
func TestBvhMatchesLinearScan(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	randVec := func(scale float32) types.Vec3 {
		return types.Vec3{
			(rng.Float32() - 0.5) * scale,
			(rng.Float32() - 0.5) * scale,
			(rng.Float32() - 0.5) * scale,
		}
	}

	const numTris = 500
	tris := make([]scene.Triangle, numTris)
	for i := range tris {
		center := randVec(20)
		tri := scene.Triangle{
			V0: center.Add(randVec(2)),
			V1: center.Add(randVec(2)),
			V2: center.Add(randVec(2)),
		}
		n := tri.V1.Sub(tri.V0).Cross(tri.V2.Sub(tri.V0)).Normalize()
		tri.N0, tri.N1, tri.N2 = n, n, n
		tri.UpdateBBox()
		tris[i] = tri
	}

	sc := &scene.Scene{Triangles: tris}
	sc.BvhNodes = bvh.Build(sc.Triangles, 0, 0, 4, bvh.SurfaceAreaHeuristic)

	geom := makeGeom(scene.MeshGeom, types.Vec3{}, types.Vec3{}, types.Vec3{1, 1, 1})
	geom.TriStart = 0
	geom.TriCount = numTris
	geom.BvhRoot = 0
	sc.Geoms = []scene.Geom{geom}

	const numRays = 1000
	hits := 0
	for i := 0; i < numRays; i++ {
		r := Ray{
			Origin: randVec(50),
			Dir:    randVec(2).Normalize(),
		}
		if r.Dir == (types.Vec3{}) {
			continue
		}

		bvhT, bvhN, bvhHit := meshIntersect(sc, &sc.Geoms[0], r, true)
		linT, linN, linHit := meshIntersect(sc, &sc.Geoms[0], r, false)

		if bvhHit != linHit {
			t.Fatalf("ray %d: expected bvh and linear scan to agree on hit/miss; got %t and %t", i, bvhHit, linHit)
		}
		if !bvhHit {
			continue
		}
		hits++

		if absf(bvhT-linT) > 1e-4 {
			t.Fatalf("ray %d: expected identical hit distance; got %f and %f", i, bvhT, linT)
		}
		if !types.ApproxEqual(bvhN, linN, 1e-4) {
			t.Fatalf("ray %d: expected identical hit normal; got %v and %v", i, bvhN, linN)
		}
	}

	if hits == 0 {
		t.Fatal("expected at least one probe ray to hit the triangle soup")
	}
}

func TestIntersectSceneNearestAndTies(t *testing.T) {
	// Two cubes stacked along the ray: the nearer one must win.
	near := makeGeom(scene.CubeGeom, types.Vec3{0, 0, 2}, types.Vec3{}, types.Vec3{1, 1, 1})
	near.MaterialIndex = 0
	far := makeGeom(scene.CubeGeom, types.Vec3{0, 0, -2}, types.Vec3{}, types.Vec3{1, 1, 1})
	far.MaterialIndex = 1

	sc := &scene.Scene{Geoms: []scene.Geom{far, near}}

	isect := intersectScene(sc, Ray{Origin: types.Vec3{0, 0, 5}, Dir: types.Vec3{0, 0, -1}}, true)
	if isect.T < 0 {
		t.Fatal("expected the ray to hit a cube")
	}
	if isect.MaterialIndex != 0 {
		t.Fatalf("expected the nearer cube's material; got %d", isect.MaterialIndex)
	}

	// Total miss writes the negative sentinel.
	isect = intersectScene(sc, Ray{Origin: types.Vec3{0, 5, 5}, Dir: types.Vec3{0, 1, 0}}, true)
	if isect.T != -1 {
		t.Fatalf("expected miss sentinel -1; got %f", isect.T)
	}

	// Coincident geoms tie-break on the lower geom index.
	twin1 := makeGeom(scene.CubeGeom, types.Vec3{0, 0, 0}, types.Vec3{}, types.Vec3{1, 1, 1})
	twin1.MaterialIndex = 5
	twin2 := twin1
	twin2.MaterialIndex = 6
	sc = &scene.Scene{Geoms: []scene.Geom{twin1, twin2}}

	isect = intersectScene(sc, Ray{Origin: types.Vec3{0, 0, 5}, Dir: types.Vec3{0, 0, -1}}, true)
	if isect.MaterialIndex != 5 {
		t.Fatalf("expected the lower geom index to win the tie; got material %d", isect.MaterialIndex)
	}
}
