// Package kdtree implements the SAH kd-tree spatial acceleration
// structure: construction with perfect-split clipping, and explicit-stack
// ray traversal. Grounded on original_source/src/kdtree.h and
// kdtree_builder.cpp, with Go-idiom style grounded on the retrieved
// DigitalWhip kdtree_builder.go port (struct naming, bit layout, the
// stable edge sort with END-before-START tie-break).
package kdtree

import "math"

// leafFlag occupies the low 2 bits of word0 for a leaf node; an interior
// node's low 2 bits instead hold the split axis (0, 1, or 2).
const leafFlag = 3

// MaxDepth bounds the traversal stack and the recursion/iteration depth
// of the builder (spec.md 3/4.4).
const MaxDepth = 64

// MaxNodeCount is the largest number of nodes a kd-tree may contain; it
// matches the 30-bit above-child-index field.
const MaxNodeCount = 1 << 30

// KdNode is the packed 8-byte kd-tree node: two 32-bit words.
//
// Interior: word0 = axis | (aboveChild << 2); word1 = bits of the split
// position as a float32.
// Leaf: word0's low 2 bits are 3 (leafFlag); the remaining 30 bits are
// the triangle count. word1 is a single triangle index (count == 1) or
// an offset into the shared triangle-index buffer (count > 1).
type KdNode struct {
	word0 uint32
	word1 uint32
}

// IsLeaf reports whether the node is a leaf.
func (n KdNode) IsLeaf() bool {
	return n.word0&3 == leafFlag
}

// Axis returns the split axis of an interior node (0=x, 1=y, 2=z).
func (n KdNode) Axis() int {
	return int(n.word0 & 3)
}

// SplitPosition returns the split plane position of an interior node.
func (n KdNode) SplitPosition() float64 {
	return float64(math.Float32frombits(n.word1))
}

// AboveChild returns the index of the node's "above" (far, along the
// split axis) child. The "below"/near child is always the immediately
// following node in array order, per spec.md 3's ordering invariant.
func (n KdNode) AboveChild() uint32 {
	return n.word0 >> 2
}

// TriangleCount returns the number of triangles referenced by a leaf.
func (n KdNode) TriangleCount() uint32 {
	return n.word0 >> 2
}

// TriangleIndex returns the single triangle index stored directly in a
// single-triangle leaf (TriangleCount() == 1).
func (n KdNode) TriangleIndex() uint32 {
	return n.word1
}

// TriangleOffset returns the offset into the shared triangle-index
// buffer for a multi-triangle leaf (TriangleCount() > 1).
func (n KdNode) TriangleOffset() uint32 {
	return n.word1
}

func makeInteriorNode(axis int, splitPosition float64) KdNode {
	return KdNode{
		word0: uint32(axis),
		word1: math.Float32bits(float32(splitPosition)),
	}
}

// patchAboveChild fills in the above-child index of an interior node
// after its subtree has been built (the node's axis/split bits are set
// at creation time; the above-child offset is only known once the left
// subtree has been recursively written).
func (n *KdNode) patchAboveChild(aboveChild uint32) {
	n.word0 = (n.word0 & 3) | (aboveChild << 2)
}

func makeLeafNode0() KdNode {
	return KdNode{word0: leafFlag, word1: 0}
}

func makeLeafNode1(triangleIndex uint32) KdNode {
	return KdNode{word0: leafFlag | (1 << 2), word1: triangleIndex}
}

func makeLeafNodeK(count, offset uint32) KdNode {
	return KdNode{word0: leafFlag | (count << 2), word1: offset}
}
