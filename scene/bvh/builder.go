package bvh

import (
	"math"
	"time"

	"github.com/helios-rt/helios/log"
	"github.com/helios-rt/helios/scene"
	"github.com/helios-rt/helios/types"
)

type Axis uint8

const (
	XAxis Axis = iota
	YAxis
	ZAxis

	// The BVH builder will not attempt to calculate split candidates
	// if the node bbox along an axis is less than this threshold.
	minSideLength float32 = 1e-3

	// If the split step (calculated as side length / (1024 / depth+1))
	// is less than this threshold the BVH builder will not evaluate
	// split candidates.
	minSplitStep float32 = 1e-5
)

var (
	// A split scoring strategy that uses the surface area heuristic (SAH).
	SurfaceAreaHeuristic = surfaceAreaHeuristic{}
)

// A split scoring strategy.
type ScoreStrategy interface {
	// Calculate a score for splitting workList at splitPoint along a particular Axis.
	ScoreSplit(workList []scene.Triangle, splitAxis Axis, splitPoint float32) (leftCount, rightCount int, score float32)

	// Calculate a score for all items in workList.
	ScorePartition(workList []scene.Triangle) (score float32)
}

type splitScore struct {
	axis       Axis
	splitPoint float32

	leftCount, rightCount int
	score                 float32
}

type stats struct {
	partitionedItems int
	totalItems       int
	nodes            int
	leafs            int
	maxDepth         int
}

type builder struct {
	logger log.Logger

	// Bvh nodes stored as a contiguous list.
	nodes []scene.BvhNode

	// Index offsets applied to emitted leaf triangle ranges and child
	// node references so that both point into the scene-global lists.
	triOffset  uint32
	nodeOffset uint32

	// Work lists with at most this many triangles become leafs without a
	// split attempt.
	minLeafItems int

	// A channel for receiving score results.
	scoreChan chan splitScore

	// The split scoring strategy to use.
	scoreStrategy ScoreStrategy

	// Stats
	stats stats
}

// Construct a BVH over a triangle list, reordering it in place so that each
// leaf covers a contiguous range. Emitted nodes are laid out depth-first;
// leaf triangle indices are offset by triOffset and child node indices by
// nodeOffset so they can be appended directly to the scene-global lists.
//
// The minLeafItems param specifies the triangle count at or below which a
// work list becomes a leaf. The builder automatically generates leafs if the
// incoming work length is <= minLeafItems or when no split improves the SAH
// score of the unsplit node.
func Build(tris []scene.Triangle, triOffset, nodeOffset uint32, minLeafItems int, scoreStrategy ScoreStrategy) []scene.BvhNode {
	b := &builder{
		logger:        log.New("bvh builder"),
		nodes:         make([]scene.BvhNode, 0),
		triOffset:     triOffset,
		nodeOffset:    nodeOffset,
		minLeafItems:  minLeafItems,
		scoreChan:     make(chan splitScore, 0),
		scoreStrategy: scoreStrategy,
		stats: stats{
			totalItems: len(tris),
		},
	}

	start := time.Now()
	b.partition(tris, 0, 0)
	b.logger.Debugf(
		"BVH tree build time: %d ms, maxDepth: %d, nodes: %d, leafs: %d",
		time.Since(start).Nanoseconds()/1e6,
		b.stats.maxDepth, b.stats.nodes, b.stats.leafs,
	)
	return b.nodes
}

// Partition a triangle sub-range and return the emitted node index. The
// sub-range begins at index first relative to the original triangle list.
func (b *builder) partition(workList []scene.Triangle, first int, depth int) uint32 {
	if depth > b.stats.maxDepth {
		b.stats.maxDepth = depth
	}

	node := scene.BvhNode{
		Min: types.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32},
		Max: types.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32},
	}

	// Calculate bounding box for node
	for i := range workList {
		bbox := workList[i].BBox()
		node.Min = types.MinVec3(node.Min, bbox[0])
		node.Max = types.MaxVec3(node.Max, bbox[1])
	}

	// Do we have enough items for partitioning? If not create a leaf
	if len(workList) <= b.minLeafItems {
		return b.createLeaf(&node, first, len(workList))
	}

	// Calc current node score
	var bestScore float32 = b.scoreStrategy.ScorePartition(workList)
	var bestSplit *splitScore = nil

	// Try partitioning along each axis and select the split with best score
	pendingScores := 0

	// Run axis split tests in parallel
	side := node.Max.Sub(node.Min)
	for axis := XAxis; axis <= ZAxis; axis++ {
		// Skip axis if bbox dimension is too small
		if side[axis] < minSideLength {
			continue
		}

		// We want the split steps to become more granular the deeper we go
		splitStep := side[axis] / (1024.0 / float32(depth+1))
		if splitStep < minSplitStep {
			continue
		}

		for splitPoint := node.Min[axis]; splitPoint < node.Max[axis]; splitPoint += splitStep {
			pendingScores++
			go func(axis Axis, splitPoint float32) {
				lCount, rCount, score := b.scoreStrategy.ScoreSplit(workList, axis, splitPoint)
				b.scoreChan <- splitScore{
					axis:       axis,
					splitPoint: splitPoint,

					leftCount:  lCount,
					rightCount: rCount,
					score:      score,
				}
			}(axis, splitPoint)
		}
	}

	// Process all scores and pick the best split
	for ; pendingScores > 0; pendingScores-- {
		candidate := <-b.scoreChan
		if candidate.score < bestScore {
			bestScore = candidate.score
			bestSplit = &candidate
		}
	}

	// If we can't find a split that improves the current node score create a leaf
	if bestSplit == nil {
		return b.createLeaf(&node, first, len(workList))
	}

	// Reorder the sub-range in place so that triangles left of the split
	// point form a contiguous prefix.
	left := 0
	right := len(workList) - 1
	for left <= right {
		if workList[left].Center()[bestSplit.axis] < bestSplit.splitPoint {
			left++
			continue
		}
		workList[left], workList[right] = workList[right], workList[left]
		right--
	}

	// Add node to list
	nodeIndex := len(b.nodes)
	b.nodes = append(b.nodes, node)
	b.stats.nodes++

	// Partition children and update node indices
	leftNodeIndex := b.partition(workList[:left], first, depth+1)
	rightNodeIndex := b.partition(workList[left:], first+left, depth+1)
	b.nodes[nodeIndex].SetChildNodes(leftNodeIndex, rightNodeIndex)

	return uint32(nodeIndex) + b.nodeOffset
}

// Setup the given node as a leaf covering count triangles starting at index
// first. Returns the index of the node in the emitted node list offset by
// nodeOffset.
func (b *builder) createLeaf(node *scene.BvhNode, first, count int) uint32 {
	node.SetTriangles(uint32(first)+b.triOffset, uint32(count))

	// append node to list
	nodeIndex := len(b.nodes)
	b.nodes = append(b.nodes, *node)

	// update stats
	b.stats.leafs++
	b.stats.partitionedItems += count

	return uint32(nodeIndex) + b.nodeOffset
}

// A score implementation that uses surface area heuristic for calculating split scores.
type surfaceAreaHeuristic struct{}

// Score a BVH split based on the surface area heuristic. The SAH calculates
// the split score using the formula (lower score is better):
//
// left count * left BBOX area + right count * right BBOX area.
//
// SAH avoids splits that generate empty partitions by assigning the worst
// possible score (MaxFloat32) when it encounters such cases.
func (h surfaceAreaHeuristic) ScoreSplit(workList []scene.Triangle, axis Axis, splitPoint float32) (leftCount, rightCount int, score float32) {
	lmin := types.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	rmin := types.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	lmax := types.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	rmax := types.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}

	leftCount = 0
	rightCount = 0
	for i := range workList {
		center := workList[i].Center()
		bbox := workList[i].BBox()
		if center[axis] < splitPoint {
			leftCount++
			lmin = types.MinVec3(lmin, bbox[0])
			lmax = types.MaxVec3(lmax, bbox[1])
		} else {
			rightCount++
			rmin = types.MinVec3(rmin, bbox[0])
			rmax = types.MaxVec3(rmax, bbox[1])
		}
	}

	// Make sure that we don't generate empty partitions
	if leftCount == 0 || rightCount == 0 {
		return leftCount, rightCount, math.MaxFloat32
	}

	lside := lmax.Sub(lmin)
	rside := rmax.Sub(rmin)
	score = (float32(leftCount) * (lside[0]*lside[1] + lside[1]*lside[2] + lside[0]*lside[2])) +
		(float32(rightCount) * (rside[0]*rside[1] + rside[1]*rside[2] + rside[0]*rside[2]))

	return leftCount, rightCount, score
}

// Calculate score for a partitioned workList using formula:
// count * BBOX area
//
// If the workList is empty, then this method returns the worst possible
// score (MaxFloat32).
func (h surfaceAreaHeuristic) ScorePartition(workList []scene.Triangle) (score float32) {
	if len(workList) == 0 {
		return math.MaxFloat32
	}

	min := types.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	max := types.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}

	for i := range workList {
		bbox := workList[i].BBox()
		min = types.MinVec3(min, bbox[0])
		max = types.MaxVec3(max, bbox[1])
	}

	side := max.Sub(min)
	return float32(len(workList)) * (side[0]*side[1] + side[1]*side[2] + side[0]*side[2])
}
