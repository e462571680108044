package scene

import "github.com/helios-rt/helios/types"

type GeomType uint32

const (
	CubeGeom GeomType = iota
	SphereGeom
	MeshGeom
)

// A Geom is a transformed instance of a primitive. Cube and sphere
// instances intersect against the canonical unit shape in object space;
// mesh instances reference a triangle range in the scene's flat triangle
// list together with the root of the BVH built over that range.
type Geom struct {
	// The primitive type.
	Type GeomType

	// Index into the scene material list.
	MaterialIndex int32

	// Authored object to world placement.
	Translation types.Vec3
	RotationDeg types.Vec3
	Scale       types.Vec3

	// Derived transform matrices.
	Transform types.Transform

	// Triangle range [TriStart, TriStart+TriCount) and the BVH root node
	// index for mesh instances. Unused for cubes and spheres.
	TriStart int32
	TriCount int32
	BvhRoot  int32
}

// A triangle in mesh object space with per-vertex normals and a cached
// bounding box used by the BVH builder.
type Triangle struct {
	V0, V1, V2 types.Vec3
	N0, N1, N2 types.Vec3

	BBoxMin types.Vec3
	BBoxMax types.Vec3
}

// Recompute the cached bounding box from the triangle vertices.
func (t *Triangle) UpdateBBox() {
	t.BBoxMin = types.MinVec3(types.MinVec3(t.V0, t.V1), t.V2)
	t.BBoxMax = types.MaxVec3(types.MaxVec3(t.V0, t.V1), t.V2)
}

// Get the triangle bounding box.
func (t *Triangle) BBox() [2]types.Vec3 {
	return [2]types.Vec3{t.BBoxMin, t.BBoxMax}
}

// Get the triangle centroid.
func (t *Triangle) Center() types.Vec3 {
	return t.V0.Add(t.V1).Add(t.V2).Mul(1.0 / 3.0)
}
