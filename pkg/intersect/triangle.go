// Package intersect implements ray-triangle intersection: the scalar
// Moller-Trumbore test and a watertight 8-wide batch variant.
package intersect

import (
	"math"

	"github.com/rayforge/rayforge/pkg/geometry"
	"github.com/rayforge/rayforge/pkg/math3d"
)

// TriangleHit is the result of a scalar ray-triangle intersection test.
type TriangleHit struct {
	T  float64
	B1 float64
	B2 float64
}

// B0 returns the third barycentric coordinate, 1 - b1 - b2.
func (h TriangleHit) B0() float64 { return 1 - h.B1 - h.B2 }

// NoHit is returned by MollerTrumbore when the ray misses; T is +Inf.
var NoHit = TriangleHit{T: math.Inf(1)}

// MollerTrumbore intersects a ray against a triangle (p0, p1, p2) using
// the scalar Moller-Trumbore algorithm (spec.md 4.2, grounded on
// original_source/src/intersection.cpp). Returns NoHit (T = +Inf) when:
//   - the divisor dot(edge1, cross(d, edge2)) == 0
//   - b1 not in [0,1], b2 < 0, or b1+b2 > 1
//   - t < 0
func MollerTrumbore(r geometry.Ray, p0, p1, p2 math3d.Vec3) TriangleHit {
	edge1 := p1.Sub(p0)
	edge2 := p2.Sub(p0)

	pvec := r.Direction.Cross(edge2)
	divisor := edge1.Dot(pvec)
	if divisor == 0 {
		return NoHit
	}
	invDivisor := 1.0 / divisor

	tvec := r.Origin.Sub(p0)
	b1 := tvec.Dot(pvec) * invDivisor
	if b1 < 0 || b1 > 1 {
		return NoHit
	}

	qvec := tvec.Cross(edge1)
	b2 := r.Direction.Dot(qvec) * invDivisor
	if b2 < 0 || b1+b2 > 1 {
		return NoHit
	}

	t := edge2.Dot(qvec) * invDivisor
	if t < 0 {
		return NoHit
	}

	return TriangleHit{T: t, B1: b1, B2: b2}
}
