package cpu

import (
	"sort"

	"github.com/helios-rt/helios/types"
)

// The throughput every path starts with.
var fullThroughput = types.Vec3{1, 1, 1}

// A ray with a unit length direction.
type Ray struct {
	Origin types.Vec3
	Dir    types.Vec3
}

// Get the point at parametric distance t along the ray.
func (r Ray) PointAt(t float32) types.Vec3 {
	return r.Origin.Add(r.Dir.Mul(t))
}

// A PathSegment tracks the state of one light transport path. Throughput
// starts at full white and accumulates per-bounce attenuation; Color is
// written exactly once when the path terminates. A segment with
// RemainingBounces == 0 is immutable.
type PathSegment struct {
	Ray        Ray
	Throughput types.Vec3
	Color      types.Vec3

	// The frame-global pixel this path contributes to.
	PixelIndex uint32

	RemainingBounces int32
}

// Returns true while the path still scatters.
func (seg *PathSegment) Alive() bool {
	return seg.RemainingBounces > 0
}

// The nearest surface hit for one path during one bounce. A negative T
// denotes a miss; the pool entry is overwritten every bounce.
type Intersection struct {
	T             float32
	Normal        types.Vec3
	MaterialIndex int32
}

// The pools owned by a tracer. Everything is allocated once at setup sized
// to the full frame so that block reassignment between frames never
// triggers an allocation.
type bufferSet struct {
	paths  []PathSegment
	isects []Intersection

	// First bounce intersection cache.
	cache []Intersection

	// Scratch storage for the stable partition and the material sort.
	scratchPaths  []PathSegment
	scratchIsects []Intersection
	perm          []int
}

// Allocate a new buffer set covering numPixels paths.
func newBufferSet(numPixels int) *bufferSet {
	return &bufferSet{
		paths:         make([]PathSegment, numPixels),
		isects:        make([]Intersection, numPixels),
		cache:         make([]Intersection, numPixels),
		scratchPaths:  make([]PathSegment, numPixels),
		scratchIsects: make([]Intersection, numPixels),
		perm:          make([]int, numPixels),
	}
}

// Stable-partition the first numPaths entries of the path pool so that live
// paths precede terminated ones, preserving relative order inside both
// groups. Terminated paths keep their final color for accumulation.
// Returns the live path count.
func (bs *bufferSet) compact(numPaths int) int {
	live := 0
	for i := 0; i < numPaths; i++ {
		if bs.paths[i].Alive() {
			bs.scratchPaths[live] = bs.paths[i]
			live++
		}
	}

	dead := live
	for i := 0; i < numPaths; i++ {
		if !bs.paths[i].Alive() {
			bs.scratchPaths[dead] = bs.paths[i]
			dead++
		}
	}

	copy(bs.paths[:numPaths], bs.scratchPaths[:numPaths])
	return live
}

// Jointly sort the path and intersection pools by material id so that the
// shading stage touches one material at a time. The sort is stable to keep
// per-pixel ordering deterministic.
func (bs *bufferSet) sortByMaterial(numPaths int) {
	perm := bs.perm[:numPaths]
	for i := range perm {
		perm[i] = i
	}

	sort.SliceStable(perm, func(a, b int) bool {
		return bs.isects[perm[a]].MaterialIndex < bs.isects[perm[b]].MaterialIndex
	})

	for i, p := range perm {
		bs.scratchPaths[i] = bs.paths[p]
		bs.scratchIsects[i] = bs.isects[p]
	}
	copy(bs.paths[:numPaths], bs.scratchPaths[:numPaths])
	copy(bs.isects[:numPaths], bs.scratchIsects[:numPaths])
}
