package reader

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/helios-rt/helios/log"
	"github.com/helios-rt/helios/scene"
	"github.com/helios-rt/helios/scene/bvh"
	"github.com/helios-rt/helios/types"
)

// The number of triangles that can share a BVH leaf.
const trianglesPerLeaf = 4

type recordType uint8

const (
	noRecord recordType = iota
	materialRecord
	cameraRecord
	objectRecord
)

// A material record before the flag form is collapsed into a tagged type.
type rawMaterial struct {
	id         int
	rgb        types.Vec3
	specEx     float32
	specRGB    types.Vec3
	reflective bool
	refractive bool
	ior        float32
	emittance  float32
}

// An object record before transforms and mesh data are resolved.
type rawObject struct {
	id         int
	shape      string
	meshPath   string
	materialID int
	hasMat     bool
	trans      types.Vec3
	rot        types.Vec3
	scale      types.Vec3
}

// Parses the line-oriented text scene format. Declarations are grouped into
// blank-line separated records introduced by a MATERIAL, CAMERA or OBJECT
// header; tokens are matched case-insensitively and // starts a comment.
type textSceneReader struct {
	logger log.Logger

	sceneFile string
	sceneDir  string

	// Parsed records.
	materials []rawMaterial
	objects   []rawObject
	camera    *scene.Camera
	hasCamera bool

	// Current record state.
	record      recordType
	curMaterial rawMaterial
	curObject   rawObject
}

// Create a new text scene reader.
func newTextSceneReader() *textSceneReader {
	return &textSceneReader{
		logger: log.New("scene reader"),
	}
}

// Read scene definition.
func (p *textSceneReader) Read(sceneFile string) (*scene.Scene, error) {
	p.sceneFile = sceneFile
	p.sceneDir = filepath.Dir(sceneFile)
	p.camera = scene.NewCamera()

	if err := p.parse(sceneFile); err != nil {
		return nil, err
	}

	return p.assemble()
}

// Generate an error message including file and line information.
func (p *textSceneReader) emitError(line int, msgFormat string, args ...interface{}) error {
	msg := fmt.Sprintf(msgFormat, args...)
	if line > 0 {
		return fmt.Errorf("[%s: %d] error: %s", p.sceneFile, line, msg)
	}
	return fmt.Errorf("[%s] error: %s", p.sceneFile, msg)
}

// Parse the scene file into raw records.
func (p *textSceneReader) parse(filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("could not open %s", filename)
	}
	defer f.Close()

	var lineNum int = 0

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lineNum++

		// Strip comments before tokenizing
		line := scanner.Text()
		if idx := strings.Index(line, "//"); idx != -1 {
			line = line[:idx]
		}

		lineTokens := strings.Fields(line)
		if len(lineTokens) == 0 {
			if err := p.flushRecord(lineNum); err != nil {
				return err
			}
			continue
		}

		if err := p.parseLine(lineTokens, lineNum); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	return p.flushRecord(lineNum)
}

// Dispatch a tokenized line to the current record.
func (p *textSceneReader) parseLine(tokens []string, lineNum int) error {
	keyword := strings.ToUpper(tokens[0])

	// MATERIAL doubles as the material record header and as the material
	// reference line inside an OBJECT record.
	if keyword == "MATERIAL" && p.record == objectRecord {
		id, err := parseInt(tokens, 1)
		if err != nil {
			return p.emitError(lineNum, "unsupported syntax for 'material'; expected 1 integer argument")
		}
		p.curObject.materialID = id
		p.curObject.hasMat = true
		return nil
	}

	switch keyword {
	case "MATERIAL":
		if err := p.flushRecord(lineNum); err != nil {
			return err
		}
		id, err := parseInt(tokens, 1)
		if err != nil {
			return p.emitError(lineNum, "unsupported syntax for 'MATERIAL'; expected 1 integer argument")
		}
		p.record = materialRecord
		p.curMaterial = rawMaterial{id: id}
		return nil
	case "CAMERA":
		if err := p.flushRecord(lineNum); err != nil {
			return err
		}
		if p.hasCamera {
			return p.emitError(lineNum, "multiple CAMERA records")
		}
		p.record = cameraRecord
		return nil
	case "OBJECT":
		if err := p.flushRecord(lineNum); err != nil {
			return err
		}
		id, err := parseInt(tokens, 1)
		if err != nil {
			return p.emitError(lineNum, "unsupported syntax for 'OBJECT'; expected 1 integer argument")
		}
		p.record = objectRecord
		p.curObject = rawObject{id: id, scale: types.Vec3{1, 1, 1}}
		return nil
	}

	switch p.record {
	case materialRecord:
		return p.parseMaterialLine(keyword, tokens, lineNum)
	case cameraRecord:
		return p.parseCameraLine(keyword, tokens, lineNum)
	case objectRecord:
		return p.parseObjectLine(keyword, tokens, lineNum)
	}

	return p.emitError(lineNum, "unexpected token %q outside of a record", tokens[0])
}

func (p *textSceneReader) parseMaterialLine(keyword string, tokens []string, lineNum int) error {
	var err error
	mat := &p.curMaterial

	switch keyword {
	case "RGB":
		mat.rgb, err = parseVec3(tokens)
	case "SPECEX":
		mat.specEx, err = parseFloat(tokens, 1)
	case "SPECRGB":
		mat.specRGB, err = parseVec3(tokens)
	case "REFL":
		mat.reflective, err = parseBool(tokens, 1)
	case "REFR":
		mat.refractive, err = parseBool(tokens, 1)
	case "REFRIOR":
		mat.ior, err = parseFloat(tokens, 1)
	case "EMITTANCE":
		mat.emittance, err = parseFloat(tokens, 1)
	default:
		return p.emitError(lineNum, "unknown material token %q", tokens[0])
	}

	if err != nil {
		return p.emitError(lineNum, "invalid arguments for %q: %s", tokens[0], err)
	}
	return nil
}

func (p *textSceneReader) parseCameraLine(keyword string, tokens []string, lineNum int) error {
	var err error
	cam := p.camera

	switch keyword {
	case "RES":
		var w, h int
		w, err = parseInt(tokens, 1)
		if err == nil {
			h, err = parseInt(tokens, 2)
		}
		if err == nil && (w <= 0 || h <= 0) {
			err = fmt.Errorf("resolution must be positive")
		}
		cam.ResolutionX, cam.ResolutionY = uint32(w), uint32(h)
	case "FOVY":
		cam.FOVY, err = parseFloat(tokens, 1)
		if err == nil && (cam.FOVY <= 0 || cam.FOVY >= 180) {
			err = fmt.Errorf("field of view must lie in (0, 180)")
		}
	case "ITERATIONS":
		var n int
		n, err = parseInt(tokens, 1)
		if err == nil && n <= 0 {
			err = fmt.Errorf("iteration count must be positive")
		}
		cam.Iterations = uint32(n)
	case "DEPTH":
		var d int
		d, err = parseInt(tokens, 1)
		if err == nil && d <= 0 {
			err = fmt.Errorf("trace depth must be positive")
		}
		cam.TraceDepth = uint32(d)
	case "FILE":
		if len(tokens) < 2 {
			err = fmt.Errorf("missing argument")
		} else {
			cam.OutputFile = tokens[1]
		}
	case "EYE":
		cam.Position, err = parseVec3(tokens)
	case "LOOKAT":
		cam.LookAt, err = parseVec3(tokens)
	case "UP":
		cam.Up, err = parseVec3(tokens)
	case "APERTURE":
		cam.Aperture, err = parseFloat(tokens, 1)
		if err == nil && cam.Aperture < 0 {
			err = fmt.Errorf("aperture radius cannot be negative")
		}
	case "FOCALLENGTH":
		cam.FocalLength, err = parseFloat(tokens, 1)
	default:
		return p.emitError(lineNum, "unknown camera token %q", tokens[0])
	}

	if err != nil {
		return p.emitError(lineNum, "invalid arguments for %q: %s", tokens[0], err)
	}
	return nil
}

func (p *textSceneReader) parseObjectLine(keyword string, tokens []string, lineNum int) error {
	var err error
	obj := &p.curObject

	switch keyword {
	case "CUBE", "SPHERE":
		obj.shape = strings.ToLower(keyword)
	case "GLTF", "OBJ", "MESH":
		if len(tokens) < 2 {
			return p.emitError(lineNum, "missing mesh file argument for %q", tokens[0])
		}
		obj.shape = strings.ToLower(keyword)
		obj.meshPath = tokens[1]
	case "TRANS":
		obj.trans, err = parseVec3(tokens)
	case "ROTAT":
		obj.rot, err = parseVec3(tokens)
	case "SCALE":
		obj.scale, err = parseVec3(tokens)
	default:
		return p.emitError(lineNum, "unknown object token %q", tokens[0])
	}

	if err != nil {
		return p.emitError(lineNum, "invalid arguments for %q: %s", tokens[0], err)
	}
	return nil
}

// Terminate the current record and validate it.
func (p *textSceneReader) flushRecord(lineNum int) error {
	switch p.record {
	case materialRecord:
		p.materials = append(p.materials, p.curMaterial)
	case cameraRecord:
		if p.camera.ResolutionX == 0 || p.camera.ResolutionY == 0 {
			return p.emitError(lineNum, "camera record is missing a valid RES declaration")
		}
		p.hasCamera = true
	case objectRecord:
		if p.curObject.shape == "" {
			return p.emitError(lineNum, "object %d does not declare a shape", p.curObject.id)
		}
		if !p.curObject.hasMat {
			return p.emitError(lineNum, "object %d does not reference a material", p.curObject.id)
		}
		for _, s := range p.curObject.scale {
			if s == 0 {
				return p.emitError(lineNum, "object %d declares a zero scale component", p.curObject.id)
			}
		}
		p.objects = append(p.objects, p.curObject)
	}

	p.record = noRecord
	return nil
}

// Assemble the parsed records into a scene, collapsing material flags into
// tagged types, resolving material references, building mesh BVH trees and
// deriving the camera basis.
func (p *textSceneReader) assemble() (*scene.Scene, error) {
	if !p.hasCamera {
		return nil, p.emitError(0, "scene does not declare a camera")
	}

	sc := &scene.Scene{
		Camera:    p.camera,
		Materials: make([]scene.Material, len(p.materials)),
		Geoms:     make([]scene.Geom, 0, len(p.objects)),
	}

	matIndex := make(map[int]int32, len(p.materials))
	for idx, raw := range p.materials {
		if _, exists := matIndex[raw.id]; exists {
			return nil, p.emitError(0, "duplicate material id %d", raw.id)
		}
		mat, err := p.buildMaterial(raw)
		if err != nil {
			return nil, err
		}
		sc.Materials[idx] = mat
		matIndex[raw.id] = int32(idx)
	}

	for _, raw := range p.objects {
		matIdx, exists := matIndex[raw.materialID]
		if !exists {
			return nil, p.emitError(0, "object %d references unknown material %d", raw.id, raw.materialID)
		}

		geom := scene.Geom{
			MaterialIndex: matIdx,
			Translation:   raw.trans,
			RotationDeg:   raw.rot,
			Scale:         raw.scale,
			Transform:     types.NewTransform(raw.trans, raw.rot, raw.scale),
		}

		switch raw.shape {
		case "cube":
			geom.Type = scene.CubeGeom
		case "sphere":
			geom.Type = scene.SphereGeom
		default:
			geom.Type = scene.MeshGeom
			if err := p.attachMesh(sc, &geom, raw); err != nil {
				return nil, err
			}
		}

		sc.Geoms = append(sc.Geoms, geom)
	}

	p.camera.Update()
	return sc, nil
}

// Collapse the flag form of a material into its tagged equivalent.
func (p *textSceneReader) buildMaterial(raw rawMaterial) (scene.Material, error) {
	mat := scene.Material{
		Diffuse:          raw.rgb,
		Specular:         raw.specRGB,
		SpecularExponent: raw.specEx,
		IOR:              raw.ior,
		Emittance:        raw.emittance,
	}

	switch {
	case raw.emittance > 0:
		mat.Type = scene.EmissiveMaterial
	case raw.reflective && raw.refractive:
		mat.Type = scene.RefractiveMaterial
		if raw.ior <= 0 {
			return mat, p.emitError(0, "material %d is refractive but declares a non-positive index of refraction", raw.id)
		}
	case raw.reflective:
		mat.Type = scene.SpecularMaterial
	default:
		mat.Type = scene.DiffuseMaterial
	}

	return mat, nil
}

// Load the mesh referenced by an object record, append its triangles and
// BVH nodes to the scene-global lists and point the geom at them.
func (p *textSceneReader) attachMesh(sc *scene.Scene, geom *scene.Geom, raw rawObject) error {
	meshPath := raw.meshPath
	if !filepath.IsAbs(meshPath) {
		meshPath = filepath.Join(p.sceneDir, meshPath)
	}

	var tris []scene.Triangle
	var err error
	switch strings.ToLower(filepath.Ext(meshPath)) {
	case ".obj":
		tris, err = loadWavefrontMesh(meshPath)
	default:
		tris, err = loadGltfMesh(meshPath)
	}
	if err != nil {
		return p.emitError(0, "object %d: %s", raw.id, err)
	}
	if len(tris) == 0 {
		return p.emitError(0, "object %d references mesh %s with no triangles", raw.id, raw.meshPath)
	}

	triOffset := uint32(len(sc.Triangles))
	nodeOffset := uint32(len(sc.BvhNodes))
	nodes := bvh.Build(tris, triOffset, nodeOffset, trianglesPerLeaf, bvh.SurfaceAreaHeuristic)

	geom.TriStart = int32(triOffset)
	geom.TriCount = int32(len(tris))
	geom.BvhRoot = int32(nodeOffset)

	sc.Triangles = append(sc.Triangles, tris...)
	sc.BvhNodes = append(sc.BvhNodes, nodes...)

	p.logger.Infof("loaded mesh %s: %d triangles, %d bvh nodes", raw.meshPath, len(tris), len(nodes))
	return nil
}

func parseInt(tokens []string, index int) (int, error) {
	if index >= len(tokens) {
		return 0, fmt.Errorf("missing argument")
	}
	return strconv.Atoi(tokens[index])
}

func parseFloat(tokens []string, index int) (float32, error) {
	if index >= len(tokens) {
		return 0, fmt.Errorf("missing argument")
	}
	val, err := strconv.ParseFloat(tokens[index], 32)
	return float32(val), err
}

func parseBool(tokens []string, index int) (bool, error) {
	if index >= len(tokens) {
		return false, fmt.Errorf("missing argument")
	}
	switch tokens[index] {
	case "0":
		return false, nil
	case "1":
		return true, nil
	}
	return false, fmt.Errorf("expected 0 or 1; got %s", tokens[index])
}

func parseVec3(tokens []string) (types.Vec3, error) {
	var out types.Vec3
	if len(tokens) < 4 {
		return out, fmt.Errorf("expected 3 arguments; got %d", len(tokens)-1)
	}
	for i := 0; i < 3; i++ {
		val, err := strconv.ParseFloat(tokens[i+1], 32)
		if err != nil {
			return out, err
		}
		out[i] = float32(val)
	}
	return out, nil
}
