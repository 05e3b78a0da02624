package geometry

import (
	"fmt"

	"github.com/rayforge/rayforge/pkg/math3d"
)

// MaxTriangles is the largest triangle count a mesh may hold; it matches
// the 30-bit triangle-count field packed into a kd-tree leaf node
// (spec.md 3, KdNode leaf encoding).
const MaxTriangles = 1<<30 - 1

// TriangleMesh is an indexed triangle mesh: vertex positions plus optional
// per-vertex normals and UVs, and a flat triangle index array (3 indices
// per triangle). Adapted from the teacher's models.Mesh, generalized to
// the ray tracer's invariants (vertex index bound, triangle count cap)
// and carrying no per-face-material fields — materials are assigned by
// a separate scene-level MaterialHandle slice (pkg/scene), not stored
// per mesh, per the Design Notes' "scene-owned material registry".
type TriangleMesh struct {
	Name string

	Positions []math3d.Vec3
	Normals   []math3d.Vec3 // len == len(Positions) or 0 (absent)
	UVs       []math3d.Vec2 // len == len(Positions) or 0 (absent)

	// Indices holds 3 vertex indices per triangle, flattened.
	Indices []uint32

	boundsMin math3d.Vec3
	boundsMax math3d.Vec3
}

// NewTriangleMesh creates an empty named mesh.
func NewTriangleMesh(name string) *TriangleMesh {
	return &TriangleMesh{Name: name}
}

// Validate checks the invariants from spec.md 3: every vertex index must
// be less than the vertex count, and the triangle count must not exceed
// MaxTriangles.
func (m *TriangleMesh) Validate() error {
	n := m.TriangleCount()
	if n > MaxTriangles {
		return fmt.Errorf("mesh %q: %d triangles exceeds cap of %d", m.Name, n, MaxTriangles)
	}
	vertCount := uint32(len(m.Positions))
	for i, idx := range m.Indices {
		if idx >= vertCount {
			return fmt.Errorf("mesh %q: index %d at position %d out of range (vertex count %d)", m.Name, idx, i, vertCount)
		}
	}
	return nil
}

// TriangleCount returns the number of triangles in the mesh.
func (m *TriangleMesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// VertexCount returns the number of vertices in the mesh.
func (m *TriangleMesh) VertexCount() int {
	return len(m.Positions)
}

// HasNormals reports whether per-vertex normals are present.
func (m *TriangleMesh) HasNormals() bool { return len(m.Normals) == len(m.Positions) && len(m.Normals) > 0 }

// HasUVs reports whether per-vertex UVs are present.
func (m *TriangleMesh) HasUVs() bool { return len(m.UVs) == len(m.Positions) && len(m.UVs) > 0 }

// TriangleVertices returns the three vertex positions of triangle i.
func (m *TriangleMesh) TriangleVertices(i int) (p0, p1, p2 math3d.Vec3) {
	base := i * 3
	a, b, c := m.Indices[base], m.Indices[base+1], m.Indices[base+2]
	return m.Positions[a], m.Positions[b], m.Positions[c]
}

// TriangleBounds returns the bounding box of triangle i.
func (m *TriangleMesh) TriangleBounds(i int) BoundingBox {
	p0, p1, p2 := m.TriangleVertices(i)
	return BoundsFromPoint(p0).AddPoint(p1).AddPoint(p2)
}

// GeometricNormal returns the unnormalized, winding-order-consistent
// face normal of triangle i (p1-p0) x (p2-p0).
func (m *TriangleMesh) GeometricNormal(i int) math3d.Vec3 {
	p0, p1, p2 := m.TriangleVertices(i)
	return p1.Sub(p0).Cross(p2.Sub(p0))
}

// CalculateBounds (re)computes the mesh's cached world-space bounds from
// its vertex positions.
func (m *TriangleMesh) CalculateBounds() {
	if len(m.Positions) == 0 {
		m.boundsMin, m.boundsMax = math3d.Zero3(), math3d.Zero3()
		return
	}
	m.boundsMin, m.boundsMax = m.Positions[0], m.Positions[0]
	for _, p := range m.Positions[1:] {
		m.boundsMin = m.boundsMin.Min(p)
		m.boundsMax = m.boundsMax.Max(p)
	}
}

// Bounds returns the mesh's cached world-space bounding box. Call
// CalculateBounds after mutating Positions.
func (m *TriangleMesh) Bounds() BoundingBox {
	return BoundingBox{Min: m.boundsMin, Max: m.boundsMax}
}

// CalculateSmoothNormals computes area-weighted averaged per-vertex
// normals when the source format didn't supply them. Grounded on the
// teacher's models.Mesh.CalculateSmoothNormals, adapted to the indexed
// vertex/index-triple layout of TriangleMesh.
func (m *TriangleMesh) CalculateSmoothNormals() {
	m.Normals = make([]math3d.Vec3, len(m.Positions))
	for t := 0; t < m.TriangleCount(); t++ {
		n := m.GeometricNormal(t)
		base := t * 3
		for k := 0; k < 3; k++ {
			vi := m.Indices[base+k]
			m.Normals[vi] = m.Normals[vi].Add(n)
		}
	}
	for i := range m.Normals {
		m.Normals[i] = m.Normals[i].Normalize()
	}
}

// Transform applies a world transform to all vertex positions and
// normals (normals via the matrix's linear part, assuming no
// non-uniform scale; see teacher's models.Mesh.Transform for the same
// simplification).
func (m *TriangleMesh) Transform(mat math3d.Mat4) {
	for i := range m.Positions {
		m.Positions[i] = mat.MulVec3(m.Positions[i])
	}
	for i := range m.Normals {
		m.Normals[i] = mat.MulVec3Dir(m.Normals[i]).Normalize()
	}
	m.CalculateBounds()
}
