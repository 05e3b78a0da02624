package kdtree

import (
	"math"
	"testing"

	"github.com/rayforge/rayforge/pkg/geometry"
	"github.com/rayforge/rayforge/pkg/math3d"
)

func twoTriangleSquare() *geometry.TriangleMesh {
	m := geometry.NewTriangleMesh("square")
	m.Positions = []math3d.Vec3{
		math3d.V3(0, 0, 0),
		math3d.V3(1, 0, 0),
		math3d.V3(1, 1, 0),
		math3d.V3(0, 1, 0),
	}
	m.Indices = []uint32{0, 1, 2, 0, 2, 3}
	m.CalculateBounds()
	return m
}

func TestBuildTwoTriangleSquareSingleLeaf(t *testing.T) {
	mesh := twoTriangleSquare()
	params := DefaultBuildParams()
	params.LeafTrianglesLimit = 2

	tree, stats := Build(mesh, params)

	if stats.LeafCount != 1 {
		t.Fatalf("expected exactly one leaf, got %d leaves (nodes=%d)", stats.LeafCount, len(tree.Nodes))
	}
	if len(tree.Nodes) != 1 {
		t.Fatalf("expected the root node to be the only node, got %d nodes", len(tree.Nodes))
	}
	root := tree.Nodes[0]
	if !root.IsLeaf() {
		t.Fatalf("expected root to be a leaf")
	}
	if root.TriangleCount() != 2 {
		t.Errorf("expected root leaf to reference 2 triangles, got %d", root.TriangleCount())
	}
}

func TestTraversalHitsNearerTriangle(t *testing.T) {
	mesh := twoTriangleSquare()
	tree, _ := Build(mesh, DefaultBuildParams())

	r := geometry.NewRay(math3d.V3(0.25, 0.25, 1), math3d.V3(0, 0, -1))
	hit, ok := tree.Intersect(r, 0, math.Inf(1))
	if !ok {
		t.Fatalf("expected a hit")
	}
	if math.Abs(hit.T-1) > 1e-9 {
		t.Errorf("T = %v, want 1", hit.T)
	}
}

func TestTraversalMiss(t *testing.T) {
	mesh := twoTriangleSquare()
	tree, _ := Build(mesh, DefaultBuildParams())

	r := geometry.NewRay(math3d.V3(5, 5, 1), math3d.V3(0, 0, -1))
	_, ok := tree.Intersect(r, 0, math.Inf(1))
	if ok {
		t.Errorf("expected a miss")
	}
}

func TestNodeBitPacking(t *testing.T) {
	n := makeInteriorNode(1, 2.5)
	n.patchAboveChild(7)
	if n.IsLeaf() {
		t.Fatalf("expected interior node")
	}
	if n.Axis() != 1 {
		t.Errorf("Axis() = %d, want 1", n.Axis())
	}
	if math.Abs(n.SplitPosition()-2.5) > 1e-6 {
		t.Errorf("SplitPosition() = %v, want 2.5", n.SplitPosition())
	}
	if n.AboveChild() != 7 {
		t.Errorf("AboveChild() = %d, want 7", n.AboveChild())
	}

	leaf := makeLeafNodeK(5, 12)
	if !leaf.IsLeaf() {
		t.Fatalf("expected leaf node")
	}
	if leaf.TriangleCount() != 5 {
		t.Errorf("TriangleCount() = %d, want 5", leaf.TriangleCount())
	}
	if leaf.TriangleOffset() != 12 {
		t.Errorf("TriangleOffset() = %d, want 12", leaf.TriangleOffset())
	}
}
