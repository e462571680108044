package scene

import "github.com/helios-rt/helios/types"

// Bvh nodes are comprised of two Vec3 and two multipurpose int32 parameters
// whose value depends on the node type:
//
// - For internal nodes both values are > 0 and point to the L/R child nodes.
// - For leaf nodes the left value is <= 0 and encodes the negated index of
//   the first triangle in the leaf while the right value contains the leaf
//   triangle count.
//
// Nodes are stored as a contiguous list in depth-first order so that
// children are referenced by index into the same list.
type BvhNode struct {
	Min   types.Vec3
	LData int32

	Max   types.Vec3
	RData int32
}

// Set bounding box.
func (n *BvhNode) SetBBox(bbox [2]types.Vec3) {
	n.Min = bbox[0]
	n.Max = bbox[1]
}

// Set left and right child node indices.
func (n *BvhNode) SetChildNodes(left, right uint32) {
	n.LData = int32(left)
	n.RData = int32(right)
}

// Get left and right child node indices.
func (n *BvhNode) ChildNodes() (left, right uint32) {
	return uint32(n.LData), uint32(n.RData)
}

// Returns true if this node is a leaf.
func (n *BvhNode) IsLeaf() bool {
	return n.LData <= 0
}

// Set triangle index and count.
func (n *BvhNode) SetTriangles(firstTriIndex, count uint32) {
	n.LData = -int32(firstTriIndex)
	n.RData = int32(count)
}

// Get triangle index and count.
func (n *BvhNode) Triangles() (firstTriIndex, count uint32) {
	return uint32(-n.LData), uint32(n.RData)
}

// Add offset to the indices of child nodes. Leafs are ignored.
func (n *BvhNode) OffsetChildNodes(offset int32) {
	if n.IsLeaf() {
		return
	}

	n.LData += offset
	n.RData += offset
}
