package kdtree

import (
	"github.com/rayforge/rayforge/pkg/geometry"
	"github.com/rayforge/rayforge/pkg/intersect"
	"github.com/rayforge/rayforge/pkg/math3d"
)

// KdTree is a built spatial acceleration structure over one mesh's
// triangles: a flat array of packed nodes plus the shared
// triangle-index buffer referenced by multi-triangle leaves.
type KdTree struct {
	Nodes           []KdNode
	TriangleIndices []uint32
	Mesh            *geometry.TriangleMesh
	Bounds          geometry.BoundingBox
}

// Hit is the result of a successful Intersect call: the nearest
// triangle hit along the ray, in world space.
type Hit struct {
	T        float64
	Triangle int
	B1, B2   float64
	// Epsilon is a numerically derived bound on the floating-point error
	// of the hit distance, gamma(6)*(T+B1+B2+1). geometry.OffsetOrigin
	// does not take it; it is reported for callers only.
	Epsilon float64
}

// stackEntry is one frame of the explicit traversal work stack
// (spec.md 4.5): a node to visit together with the ray parameter
// interval valid for it.
type stackEntry struct {
	node     uint32
	tMin     float64
	tMax     float64
}

// Intersect finds the nearest triangle the ray hits within [tMin, tMax],
// using iterative (non-recursive) traversal of the explicit kd-tree:
// an explicit work stack bounded by MaxDepth entries, front-to-back
// child ordering by which side of the split plane the ray origin lies
// on (the direction sign breaks the tie when it lies on the plane), and
// early termination once a hit closer than the remaining stack entries'
// tMin is found. Grounded on spec.md 4.5 and the "short-stack, explicit
// work-stack traversal (not recursive)" guidance in the Design Notes.
func (t *KdTree) Intersect(r geometry.Ray, tMin, tMax float64) (Hit, bool) {
	if len(t.Nodes) == 0 {
		return Hit{}, false
	}

	boxTMin, boxTMax, hitBox := t.Bounds.IntersectRay(r)
	if !hitBox {
		return Hit{}, false
	}
	if boxTMin > tMin {
		tMin = boxTMin
	}
	if boxTMax < tMax {
		tMax = boxTMax
	}
	if tMin > tMax {
		return Hit{}, false
	}

	var stack [MaxDepth]stackEntry
	sp := 0

	bestT := tMax
	bestHit := Hit{}
	found := false

	nodeIndex := uint32(0)
	curTMin, curTMax := tMin, tMax

	for {
		node := t.Nodes[nodeIndex]

		if !node.IsLeaf() {
			axis := node.Axis()
			splitPos := node.SplitPosition()

			origin := componentOf(r.Origin, axis)
			dir := componentOf(r.Direction, axis)

			var tSplit float64
			var belowFirst bool
			if dir != 0 {
				tSplit = (splitPos - origin) / dir
			} else {
				tSplit = origin - splitPos
			}
			belowFirst = origin < splitPos || (origin == splitPos && dir <= 0)

			below := nodeIndex + 1
			above := node.AboveChild()

			var first, second uint32
			if belowFirst {
				first, second = below, above
			} else {
				first, second = above, below
			}

			switch {
			case tSplit > curTMax || tSplit < 0:
				nodeIndex = first
				continue
			case tSplit < curTMin:
				nodeIndex = second
				continue
			default:
				if sp < len(stack) {
					stack[sp] = stackEntry{node: second, tMin: tSplit, tMax: curTMax}
					sp++
				}
				nodeIndex = first
				curTMax = tSplit
				continue
			}
		}

		// Leaf: test every referenced triangle.
		count := node.TriangleCount()
		switch count {
		case 0:
			// no triangles
		case 1:
			if h, ok := t.testTriangle(r, int(node.TriangleIndex()), curTMin, bestT); ok {
				bestT, bestHit, found = h.T, h, true
			}
		default:
			offset := node.TriangleOffset()
			for i := uint32(0); i < count; i++ {
				triIdx := int(t.TriangleIndices[offset+i])
				if h, ok := t.testTriangle(r, triIdx, curTMin, bestT); ok {
					bestT, bestHit, found = h.T, h, true
				}
			}
		}

		// Pop stack entries whose t_min exceeds the current best hit
		// distance; they cannot contain anything closer.
		advanced := false
		for sp > 0 {
			sp--
			entry := stack[sp]
			if found && entry.tMin > bestT {
				continue
			}
			nodeIndex = entry.node
			curTMin = entry.tMin
			curTMax = entry.tMax
			advanced = true
			break
		}
		if !advanced {
			break
		}
	}

	return bestHit, found
}

func (t *KdTree) testTriangle(r geometry.Ray, triIdx int, tMin, tMax float64) (Hit, bool) {
	p0, p1, p2 := t.Mesh.TriangleVertices(triIdx)
	h := intersect.MollerTrumbore(r, p0, p1, p2)
	if h.T < tMin || h.T > tMax {
		return Hit{}, false
	}
	const gamma6 = 6 * 1.1102230246251565e-16 / (1 - 6*1.1102230246251565e-16)
	eps := gamma6 * (h.T + h.B1 + h.B2 + 1)
	return Hit{T: h.T, Triangle: triIdx, B1: h.B1, B2: h.B2, Epsilon: eps}, true
}

func componentOf(v math3d.Vec3, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}
