package reader

import (
	"fmt"

	"github.com/helios-rt/helios/scene"
	"github.com/helios-rt/helios/types"
	"github.com/udhos/gwob"
)

// Load a Wavefront OBJ mesh as a flat triangle list in object space. When
// the file carries no normals each triangle falls back to its face normal.
func loadWavefrontMesh(path string) ([]scene.Triangle, error) {
	options := &gwob.ObjParserOptions{}
	obj, err := gwob.NewObjFromFile(path, options)
	if err != nil {
		return nil, fmt.Errorf("could not parse %s: %s", path, err)
	}

	if len(obj.Indices)%3 != 0 {
		return nil, fmt.Errorf("%s: index count %d is not a multiple of 3", path, len(obj.Indices))
	}

	stride := obj.StrideSize / 4
	posOffset := obj.StrideOffsetPosition / 4
	normOffset := obj.StrideOffsetNormal / 4

	vertexAt := func(index int) types.Vec3 {
		base := index*stride + posOffset
		return types.Vec3{obj.Coord[base], obj.Coord[base+1], obj.Coord[base+2]}
	}
	normalAt := func(index int) types.Vec3 {
		base := index*stride + normOffset
		return types.Vec3{obj.Coord[base], obj.Coord[base+1], obj.Coord[base+2]}
	}

	tris := make([]scene.Triangle, 0, len(obj.Indices)/3)
	for i := 0; i+2 < len(obj.Indices); i += 3 {
		tri := scene.Triangle{
			V0: vertexAt(obj.Indices[i]),
			V1: vertexAt(obj.Indices[i+1]),
			V2: vertexAt(obj.Indices[i+2]),
		}

		if obj.NormCoordFound {
			tri.N0 = normalAt(obj.Indices[i]).Normalize()
			tri.N1 = normalAt(obj.Indices[i+1]).Normalize()
			tri.N2 = normalAt(obj.Indices[i+2]).Normalize()
		} else {
			faceNormal := tri.V1.Sub(tri.V0).Cross(tri.V2.Sub(tri.V0)).Normalize()
			tri.N0, tri.N1, tri.N2 = faceNormal, faceNormal, faceNormal
		}

		tri.UpdateBBox()
		tris = append(tris, tri)
	}

	return tris, nil
}
