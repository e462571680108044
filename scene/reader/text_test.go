package reader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/helios-rt/helios/scene"
	"github.com/helios-rt/helios/types"
)

const testSceneData = `
// Light material
MATERIAL 0
RGB 1 1 1
SPECEX 0
SPECRGB 0 0 0
REFL 0
REFR 0
REFRIOR 0
EMITTANCE 5

// Diffuse white
MATERIAL 1
RGB .98 .98 .98
SPECEX 0
SPECRGB 0 0 0
REFL 0
REFR 0
REFRIOR 0
EMITTANCE 0

// Mirror
MATERIAL 2
RGB 0 0 0
SPECEX 0
SPECRGB .9 .9 .9
REFL 1
REFR 0
REFRIOR 0
EMITTANCE 0

// Glass
MATERIAL 3
RGB 0 0 0
SPECEX 0
SPECRGB .95 .95 .95
REFL 1
REFR 1
REFRIOR 1.55
EMITTANCE 0

CAMERA
RES 640 480
FOVY 45
ITERATIONS 100
DEPTH 8
FILE out
EYE 0 5 10.5
LOOKAT 0 5 0
UP 0 1 0
APERTURE 0.15
FOCALLENGTH 4

OBJECT 0
cube
material 1
TRANS 0 0 0
ROTAT 0 0 45
SCALE 10 .3 10

OBJECT 1
sphere
material 3
TRANS 2 4 -1
ROTAT 0 0 0
SCALE 3 3 3
`

func writeScene(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scene.txt")
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadScene(t *testing.T) {
	sc, err := ReadScene(writeScene(t, testSceneData))
	if err != nil {
		t.Fatal(err)
	}

	if len(sc.Materials) != 4 {
		t.Fatalf("expected 4 materials; got %d", len(sc.Materials))
	}
	if len(sc.Geoms) != 2 {
		t.Fatalf("expected 2 geoms; got %d", len(sc.Geoms))
	}

	expTypes := []scene.MaterialType{
		scene.EmissiveMaterial,
		scene.DiffuseMaterial,
		scene.SpecularMaterial,
		scene.RefractiveMaterial,
	}
	for idx, expType := range expTypes {
		if sc.Materials[idx].Type != expType {
			t.Fatalf("material %d: expected type %d; got %d", idx, expType, sc.Materials[idx].Type)
		}
	}

	if sc.Materials[3].IOR != 1.55 {
		t.Fatalf("expected glass IOR to be 1.55; got %f", sc.Materials[3].IOR)
	}
	if sc.Materials[0].Emittance != 5 {
		t.Fatalf("expected light emittance to be 5; got %f", sc.Materials[0].Emittance)
	}

	if sc.Geoms[0].Type != scene.CubeGeom {
		t.Fatalf("expected geom 0 to be a cube; got type %d", sc.Geoms[0].Type)
	}
	if sc.Geoms[1].Type != scene.SphereGeom {
		t.Fatalf("expected geom 1 to be a sphere; got type %d", sc.Geoms[1].Type)
	}
	if sc.Geoms[0].MaterialIndex != 1 {
		t.Fatalf("expected geom 0 to reference material index 1; got %d", sc.Geoms[0].MaterialIndex)
	}
	if sc.Geoms[1].MaterialIndex != 3 {
		t.Fatalf("expected geom 1 to reference material index 3; got %d", sc.Geoms[1].MaterialIndex)
	}
}

func TestReadSceneCamera(t *testing.T) {
	sc, err := ReadScene(writeScene(t, testSceneData))
	if err != nil {
		t.Fatal(err)
	}

	cam := sc.Camera
	if cam.ResolutionX != 640 || cam.ResolutionY != 480 {
		t.Fatalf("expected resolution to be 640x480; got %dx%d", cam.ResolutionX, cam.ResolutionY)
	}
	if cam.Iterations != 100 {
		t.Fatalf("expected 100 iterations; got %d", cam.Iterations)
	}
	if cam.TraceDepth != 8 {
		t.Fatalf("expected trace depth 8; got %d", cam.TraceDepth)
	}
	if cam.OutputFile != "out" {
		t.Fatalf("expected output file %q; got %q", "out", cam.OutputFile)
	}
	if cam.Aperture != 0.15 {
		t.Fatalf("expected aperture 0.15; got %f", cam.Aperture)
	}
	if cam.FocalLength != 4 {
		t.Fatalf("expected focal length 4; got %f", cam.FocalLength)
	}

	// The derived basis must be orthonormal and right-handed.
	if !types.ApproxEqual(cam.View, types.Vec3{0, 0, -1}, 1e-5) {
		t.Fatalf("expected view direction (0, 0, -1); got %v", cam.View)
	}
	if !types.ApproxEqual(cam.Right, types.Vec3{1, 0, 0}, 1e-5) {
		t.Fatalf("expected right vector (1, 0, 0); got %v", cam.Right)
	}
	if !types.ApproxEqual(cam.UpVec, types.Vec3{0, 1, 0}, 1e-5) {
		t.Fatalf("expected up vector (0, 1, 0); got %v", cam.UpVec)
	}
	if d := cam.Right.Dot(cam.UpVec); d < -1e-5 || d > 1e-5 {
		t.Fatalf("expected camera basis to be orthogonal; right.up = %f", d)
	}
}

func TestReadSceneCaseInsensitiveTokens(t *testing.T) {
	data := strings.NewReplacer(
		"MATERIAL", "Material",
		"CAMERA", "camera",
		"OBJECT", "object",
		"TRANS", "trans",
	).Replace(testSceneData)

	if _, err := ReadScene(writeScene(t, data)); err != nil {
		t.Fatalf("expected case-insensitive tokens to parse; got %s", err)
	}
}

func TestReadSceneErrors(t *testing.T) {
	type errSpec struct {
		name string
		data string
		want string
	}

	specs := []errSpec{
		{
			name: "missing camera",
			data: "MATERIAL 0\nRGB 1 1 1\n",
			want: "camera",
		},
		{
			name: "zero resolution",
			data: "CAMERA\nRES 0 100\n",
			want: "RES",
		},
		{
			name: "unknown material reference",
			data: "CAMERA\nRES 4 4\n\nOBJECT 0\ncube\nmaterial 42\nTRANS 0 0 0\n",
			want: "unknown material",
		},
		{
			name: "non-positive refractive ior",
			data: "MATERIAL 0\nRGB 1 1 1\nREFL 1\nREFR 1\nREFRIOR 0\n\nCAMERA\nRES 4 4\n",
			want: "index of refraction",
		},
		{
			name: "zero scale",
			data: "MATERIAL 0\nRGB 1 1 1\n\nCAMERA\nRES 4 4\n\nOBJECT 0\ncube\nmaterial 0\nSCALE 0 1 1\n",
			want: "zero scale",
		},
		{
			name: "object without material",
			data: "CAMERA\nRES 4 4\n\nOBJECT 0\ncube\nTRANS 0 0 0\n",
			want: "material",
		},
		{
			name: "duplicate material id",
			data: "MATERIAL 0\nRGB 1 1 1\n\nMATERIAL 0\nRGB 0 0 0\n\nCAMERA\nRES 4 4\n",
			want: "duplicate",
		},
	}

	for _, spec := range specs {
		_, err := ReadScene(writeScene(t, spec.data))
		if err == nil {
			t.Fatalf("%s: expected parse error; got nil", spec.name)
		}
		if !strings.Contains(err.Error(), spec.want) {
			t.Fatalf("%s: expected error to mention %q; got %q", spec.name, spec.want, err.Error())
		}
	}
}

func TestReadSceneComments(t *testing.T) {
	data := "// a full line comment\nCAMERA\nRES 8 8 // trailing comment\nFOVY 45\n"
	sc, err := ReadScene(writeScene(t, data))
	if err != nil {
		t.Fatal(err)
	}
	if sc.Camera.ResolutionX != 8 {
		t.Fatalf("expected resolution 8; got %d", sc.Camera.ResolutionX)
	}
}
