package reader

import (
	"fmt"

	"github.com/helios-rt/helios/scene"
	"github.com/helios-rt/helios/types"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// Load every triangle primitive of a glTF document as a flat triangle list
// in object space. Node transforms are ignored; placement comes from the
// scene file TRANS/ROTAT/SCALE declarations instead.
func loadGltfMesh(path string) ([]scene.Triangle, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not parse %s: %s", path, err)
	}

	var tris []scene.Triangle
	for _, mesh := range doc.Meshes {
		for _, prim := range mesh.Primitives {
			if prim.Indices == nil {
				continue
			}

			posAccessor, ok := prim.Attributes[gltf.POSITION]
			if !ok {
				continue
			}
			positions, err := modeler.ReadPosition(doc, doc.Accessors[posAccessor], nil)
			if err != nil {
				return nil, fmt.Errorf("%s: could not read positions: %s", path, err)
			}

			var normals [][3]float32
			if normAccessor, ok := prim.Attributes[gltf.NORMAL]; ok {
				normals, err = modeler.ReadNormal(doc, doc.Accessors[normAccessor], nil)
				if err != nil {
					return nil, fmt.Errorf("%s: could not read normals: %s", path, err)
				}
			}

			indices, err := modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
			if err != nil {
				return nil, fmt.Errorf("%s: could not read indices: %s", path, err)
			}
			if len(indices)%3 != 0 {
				return nil, fmt.Errorf("%s: index count %d is not a multiple of 3", path, len(indices))
			}

			for i := 0; i+2 < len(indices); i += 3 {
				i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
				tri := scene.Triangle{
					V0: types.Vec3(positions[i0]),
					V1: types.Vec3(positions[i1]),
					V2: types.Vec3(positions[i2]),
				}

				if normals != nil {
					tri.N0 = types.Vec3(normals[i0]).Normalize()
					tri.N1 = types.Vec3(normals[i1]).Normalize()
					tri.N2 = types.Vec3(normals[i2]).Normalize()
				} else {
					faceNormal := tri.V1.Sub(tri.V0).Cross(tri.V2.Sub(tri.V0)).Normalize()
					tri.N0, tri.N1, tri.N2 = faceNormal, faceNormal, faceNormal
				}

				tri.UpdateBBox()
				tris = append(tris, tri)
			}
		}
	}

	return tris, nil
}
