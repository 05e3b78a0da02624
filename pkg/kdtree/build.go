package kdtree

import (
	"math"
	"sort"

	"github.com/rayforge/rayforge/pkg/geometry"
	"github.com/rayforge/rayforge/pkg/math3d"
)

// BuildParams configures SAH kd-tree construction (spec.md 4.4).
type BuildParams struct {
	IntersectionCost      float64
	TraversalCost         float64
	EmptyBonus            float64
	LeafTrianglesLimit    int
	MaxDepth              int // <0 means auto: floor(8 + 1.3*log2(N)), clamped to MaxDepth
	SplitAlongLongestAxis bool
	SplitClipping         bool
}

// DefaultBuildParams returns the parameter set named in spec.md 4.4.
func DefaultBuildParams() BuildParams {
	return BuildParams{
		IntersectionCost:      80,
		TraversalCost:         1,
		EmptyBonus:            0.3,
		LeafTrianglesLimit:    2,
		MaxDepth:              -1,
		SplitAlongLongestAxis: false,
		SplitClipping:         true,
	}
}

// BuildStats reports summary statistics about a completed build, in the
// spirit of the DigitalWhip Go port's BuildStats.
type BuildStats struct {
	NodeCount        int
	LeafCount        int
	TriangleRefCount int
	MaxDepthReached  int
}

const edgeEndMask = uint32(0x80000000)
const edgeIndexMask = uint32(0x7fffffff)

type boundEdge struct {
	position float32
	flagged  uint32 // low 31 bits: index into the current working triangle slice; high bit: END
}

func (e boundEdge) isEnd() bool   { return e.flagged&edgeEndMask != 0 }
func (e boundEdge) index() uint32 { return e.flagged & edgeIndexMask }

type edgeSorter []boundEdge

func (s edgeSorter) Len() int      { return len(s) }
func (s edgeSorter) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s edgeSorter) Less(i, j int) bool {
	if s[i].position != s[j].position {
		return s[i].position < s[j].position
	}
	// tie-break: END edges sort before START edges at equal position.
	return s[i].isEnd() && !s[j].isEnd()
}

// otherAxis[axis] gives the two axes other than axis, used when deciding
// axis sweep order for the longest-axis fast path.
var otherAxis = [3][2]int{{1, 2}, {0, 2}, {0, 1}}

// Builder constructs a KdTree from a mesh's triangles.
type Builder struct {
	mesh   *geometry.TriangleMesh
	params BuildParams
	stats  BuildStats

	nodes           []KdNode
	triangleIndices []uint32
}

type workTask struct {
	nodeIndex  int
	bounds     geometry.BoundingBox
	triangles  []uint32 // global triangle indices
	triBounds  []geometry.BoundingBox
	depth      int
	isPatch    bool // if true, reserve+patch aboveChild onto parentIndex before building
	parentNode int
}

// Build constructs a kd-tree over every triangle of mesh using an
// explicit work stack (spec.md Design Notes: "explicit work stack of
// (bounds, triangle_range, depth, above_offset)"), per-axis SAH edge
// sweeps (spec.md 4.4a/b) and perfect-split clipping (spec.md 4.4c,
// grounded on original_source/src/kdtree_builder.cpp's clip_bounds).
func Build(mesh *geometry.TriangleMesh, params BuildParams) (*KdTree, BuildStats) {
	n := mesh.TriangleCount()

	maxDepth := params.MaxDepth
	if maxDepth < 0 {
		maxDepth = int(math.Floor(8.0 + 1.3*math.Log2(float64(n))))
	}
	if maxDepth > MaxDepth {
		maxDepth = MaxDepth
	}

	b := &Builder{mesh: mesh, params: params}

	allTriangles := make([]uint32, n)
	allBounds := make([]geometry.BoundingBox, n)
	rootBounds := geometry.EmptyBounds()
	for i := 0; i < n; i++ {
		allTriangles[i] = uint32(i)
		tb := mesh.TriangleBounds(i)
		allBounds[i] = tb
		rootBounds = geometry.Union(rootBounds, tb)
	}

	b.nodes = append(b.nodes, KdNode{})
	stack := []workTask{{nodeIndex: 0, bounds: rootBounds, triangles: allTriangles, triBounds: allBounds, depth: maxDepth}}

	for len(stack) > 0 {
		task := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		nodeIndex := task.nodeIndex
		if task.isPatch {
			nodeIndex = len(b.nodes)
			b.nodes = append(b.nodes, KdNode{})
			b.nodes[task.parentNode].patchAboveChild(uint32(nodeIndex))
		}

		if task.depth <= 0 || len(task.triangles) <= b.params.LeafTrianglesLimit {
			b.emitLeaf(nodeIndex, task.triangles)
			continue
		}

		axis, splitPos, edges, ok := b.selectSplit(task.bounds, task.triBounds)
		if !ok {
			b.emitLeaf(nodeIndex, task.triangles)
			continue
		}

		leftBounds, rightBounds := splitBounds(task.bounds, axis, splitPos)
		leftTris, leftBoundsArr, rightTris, rightBoundsArr := b.classify(task.triangles, task.triBounds, edges, axis, splitPos, leftBounds, rightBounds)

		b.nodes[nodeIndex] = makeInteriorNode(axis, splitPos)

		leftIndex := len(b.nodes)
		b.nodes = append(b.nodes, KdNode{})

		// Push right first so left pops next (LIFO), matching the
		// recursive left-first, "left immediately follows parent" order.
		stack = append(stack, workTask{
			isPatch: true, parentNode: nodeIndex,
			bounds: rightBounds, triangles: rightTris, triBounds: rightBoundsArr, depth: task.depth - 1,
		})
		stack = append(stack, workTask{
			nodeIndex: leftIndex,
			bounds:    leftBounds, triangles: leftTris, triBounds: leftBoundsArr, depth: task.depth - 1,
		})
	}

	b.stats.NodeCount = len(b.nodes)
	b.stats.TriangleRefCount = len(b.triangleIndices)

	return &KdTree{
		Nodes:           b.nodes,
		TriangleIndices: b.triangleIndices,
		Mesh:            mesh,
		Bounds:          rootBounds,
	}, b.stats
}

func (b *Builder) emitLeaf(nodeIndex int, triangles []uint32) {
	b.stats.LeafCount++
	switch len(triangles) {
	case 0:
		b.nodes[nodeIndex] = makeLeafNode0()
	case 1:
		b.nodes[nodeIndex] = makeLeafNode1(triangles[0])
	default:
		offset := uint32(len(b.triangleIndices))
		b.triangleIndices = append(b.triangleIndices, triangles...)
		b.nodes[nodeIndex] = makeLeafNodeK(uint32(len(triangles)), offset)
	}
}

// selectSplit finds the lowest-cost split over the candidate axes,
// returning ok=false when no split improves on the no-split cost
// (intersection_cost * N), per spec.md 4.4 step 3.
func (b *Builder) selectSplit(bounds geometry.BoundingBox, triBounds []geometry.BoundingBox) (axis int, pos float64, edges []boundEdge, ok bool) {
	n := len(triBounds)
	noSplitCost := b.params.IntersectionCost * float64(n)

	axisOrder := [3]int{0, 1, 2}
	if b.params.SplitAlongLongestAxis {
		longest := bounds.MaxExtentAxis()
		others := otherAxis[longest]
		axisOrder = [3]int{longest, others[0], others[1]}
	}

	bestCost := math.Inf(1)
	var bestAxis = -1
	var bestPos float64
	var bestEdges []boundEdge

	for _, a := range axisOrder {
		cost, pos, axisEdges, found := b.selectSplitForAxis(bounds, triBounds, a)
		if found && cost < bestCost {
			bestCost, bestAxis, bestPos, bestEdges = cost, a, pos, axisEdges
		}
		if b.params.SplitAlongLongestAxis && found {
			break
		}
	}

	if bestAxis < 0 || bestCost >= noSplitCost {
		return 0, 0, nil, false
	}
	return bestAxis, bestPos, bestEdges, true
}

func (b *Builder) selectSplitForAxis(bounds geometry.BoundingBox, triBounds []geometry.BoundingBox, axis int) (cost float64, pos float64, edges []boundEdge, found bool) {
	n := len(triBounds)
	edges = make([]boundEdge, 0, 2*n)
	for i, tb := range triBounds {
		lo, hi := tb.Axis(axis)
		edges = append(edges, boundEdge{position: float32(lo), flagged: uint32(i)})
		edges = append(edges, boundEdge{position: float32(hi), flagged: uint32(i) | edgeEndMask})
	}
	sort.Stable(edgeSorter(edges))

	lo, hi := bounds.Axis(axis)
	extent := hi - lo
	if extent <= 0 {
		return 0, 0, edges, false
	}
	surfaceArea := bounds.SurfaceArea()

	nBelow, nAbove := 0, n
	bestCost := math.Inf(1)
	bestPos := 0.0
	found = false

	i := 0
	for i < len(edges) {
		position := edges[i].position
		nEndInGroup, nStartInGroup := 0, 0
		j := i
		for j < len(edges) && edges[j].position == position {
			if edges[j].isEnd() {
				nEndInGroup++
			} else {
				nStartInGroup++
			}
			j++
		}

		nAbove -= nEndInGroup

		if float64(position) > lo && float64(position) < hi {
			belowArea := areaForSlab(bounds, axis, lo, float64(position))
			aboveArea := areaForSlab(bounds, axis, float64(position), hi)

			emptyBonus := 0.0
			if nBelow == 0 || nAbove == 0 {
				emptyBonus = b.params.EmptyBonus
			}
			c := b.params.TraversalCost + (1-emptyBonus)*b.params.IntersectionCost*
				(belowArea/surfaceArea*float64(nBelow)+aboveArea/surfaceArea*float64(nAbove))

			if c < bestCost {
				bestCost = c
				bestPos = float64(position)
				found = true
			}
		}

		nBelow += nStartInGroup
		i = j
	}

	return bestCost, bestPos, edges, found
}

// areaForSlab computes the surface area of bounds with its extent along
// axis replaced by [lo, hi].
func areaForSlab(bounds geometry.BoundingBox, axis int, lo, hi float64) float64 {
	otherA, otherB := otherAxis[axis][0], otherAxis[axis][1]
	loA, hiA := bounds.Axis(otherA)
	loB, hiB := bounds.Axis(otherB)
	dAxis := hi - lo
	dA := hiA - loA
	dB := hiB - loB
	return 2 * (dAxis*dA + dAxis*dB + dA*dB)
}

func splitBounds(bounds geometry.BoundingBox, axis int, pos float64) (left, right geometry.BoundingBox) {
	left, right = bounds, bounds
	switch axis {
	case 0:
		left.Max.X, right.Min.X = pos, pos
	case 1:
		left.Max.Y, right.Min.Y = pos, pos
	default:
		left.Max.Z, right.Min.Z = pos, pos
	}
	return left, right
}

// classify partitions triangles into the left ("below") and right
// ("above") child sets using the chosen split; a straddling triangle
// appears in both sets, each time with bounds tightened by perfect-split
// clipping (spec.md 4.4c) rather than the triangle's unclipped AABB.
func (b *Builder) classify(triangles []uint32, triBounds []geometry.BoundingBox, edges []boundEdge, axis int, splitPos float64, leftBox, rightBox geometry.BoundingBox) (leftTris []uint32, leftBounds []geometry.BoundingBox, rightTris []uint32, rightBounds []geometry.BoundingBox) {
	n := len(triangles)
	leftTris = make([]uint32, 0, n)
	leftBounds = make([]geometry.BoundingBox, 0, n)
	rightTris = make([]uint32, 0, n)
	rightBounds = make([]geometry.BoundingBox, 0, n)

	for i := 0; i < n; i++ {
		lo, hi := triBounds[i].Axis(axis)
		global := triangles[i]

		if lo <= splitPos {
			bb := triBounds[i]
			if b.params.SplitClipping && hi > splitPos {
				bb = clipTriangleBounds(b.mesh, int(global), leftBox)
			} else {
				bb = geometry.Intersection(bb, leftBox)
			}
			leftTris = append(leftTris, global)
			leftBounds = append(leftBounds, bb)
		}
		if hi >= splitPos {
			bb := triBounds[i]
			if b.params.SplitClipping && lo < splitPos {
				bb = clipTriangleBounds(b.mesh, int(global), rightBox)
			} else {
				bb = geometry.Intersection(bb, rightBox)
			}
			rightTris = append(rightTris, global)
			rightBounds = append(rightBounds, bb)
		}
	}
	return
}

// clipTriangleBounds implements perfect-split clipping (Soupikov et al.
// 2008, grounded on original_source/src/kdtree_builder.cpp's
// clip_bounds): for each axis, collect the triangle's vertices that lie
// within the clip box's extent on that axis and the points where its
// edges cross the box's two planes on that axis, build an AABB from
// those points, and intersect it with the child box.
func clipTriangleBounds(mesh *geometry.TriangleMesh, triangle int, clipBox geometry.BoundingBox) geometry.BoundingBox {
	p0, p1, p2 := mesh.TriangleVertices(triangle)
	verts := [3][3]float64{{p0.X, p0.Y, p0.Z}, {p1.X, p1.Y, p1.Z}, {p2.X, p2.Y, p2.Z}}

	result := geometry.EmptyBounds()
	lo := [3]float64{clipBox.Min.X, clipBox.Min.Y, clipBox.Min.Z}
	hi := [3]float64{clipBox.Max.X, clipBox.Max.Y, clipBox.Max.Z}

	edgesOf := [3][2]int{{0, 1}, {1, 2}, {2, 0}}
	for axis := 0; axis < 3; axis++ {
		for _, e := range edgesOf {
			a, bv := verts[e[0]], verts[e[1]]
			lo2, hi2 := lo[axis], hi[axis]

			if a[axis] >= lo2 && a[axis] <= hi2 {
				result = result.AddPoint(vecOf(a))
			}
			if bv[axis] >= lo2 && bv[axis] <= hi2 {
				result = result.AddPoint(vecOf(bv))
			}

			for _, plane := range [2]float64{lo2, hi2} {
				if (a[axis]-plane)*(bv[axis]-plane) < 0 {
					t := (plane - a[axis]) / (bv[axis] - a[axis])
					p := [3]float64{
						a[0] + t*(bv[0]-a[0]),
						a[1] + t*(bv[1]-a[1]),
						a[2] + t*(bv[2]-a[2]),
					}
					result = result.AddPoint(vecOf(p))
				}
			}
		}
	}
	if !result.Valid() {
		return geometry.Intersection(geometry.BoundsFromPoint(vecOf(verts[0])).AddPoint(vecOf(verts[1])).AddPoint(vecOf(verts[2])), clipBox)
	}
	return geometry.Intersection(result, clipBox)
}

func vecOf(a [3]float64) math3d.Vec3 {
	return math3d.V3(a[0], a[1], a[2])
}
