package scene

import (
	"math"

	"github.com/rayforge/rayforge/pkg/geometry"
	"github.com/rayforge/rayforge/pkg/math3d"
)

// AreaLight is a set of emissive triangles sharing one constant
// radiance, grounded on original_source/src/reference/light.h's
// Triangle_Mesh area light (diffuse emitter, no directional falloff).
// Sampling is area-weighted across the light's triangles using the
// standard sqrt-based uniform-triangle-point technique (Shirley &
// Chiu), matching reference/sampling's triangle sampling.
type AreaLight struct {
	Mesh      *geometry.TriangleMesh
	Triangles []int
	Radiance  math3d.Vec3

	areaCDF   []float64
	totalArea float64
}

// NewAreaLight precomputes the per-triangle area CDF used by Sample.
func NewAreaLight(mesh *geometry.TriangleMesh, triangles []int, radiance math3d.Vec3) *AreaLight {
	l := &AreaLight{Mesh: mesh, Triangles: triangles, Radiance: radiance}
	l.areaCDF = make([]float64, len(triangles))
	sum := 0.0
	for i, tri := range triangles {
		p0, p1, p2 := mesh.TriangleVertices(tri)
		area := p1.Sub(p0).Cross(p2.Sub(p0)).Len() * 0.5
		sum += area
		l.areaCDF[i] = sum
	}
	l.totalArea = sum
	return l
}

// Sample draws a point on the light proportional to area and returns
// the solid-angle pdf at point, reusing u.X to both select a triangle
// (via the area CDF) and recover a fresh uniform variate for the
// barycentric sample, the standard 1-random-number-does-double-duty
// domain-splitting trick (u.Y supplies the second barycentric
// coordinate independently).
func (l *AreaLight) Sample(point math3d.Vec3, u math3d.Vec2) (wi math3d.Vec3, dist float64, pdf float64, emission math3d.Vec3, ok bool) {
	if l.totalArea <= 0 || len(l.Triangles) == 0 {
		return math3d.Zero3(), 0, 0, math3d.Zero3(), false
	}

	target := u.X * l.totalArea
	idx := 0
	prev := 0.0
	for i, cdf := range l.areaCDF {
		if target <= cdf || i == len(l.areaCDF)-1 {
			idx = i
			break
		}
		prev = cdf
	}
	triArea := l.areaCDF[idx] - prev
	localU := 0.5
	if triArea > 0 {
		localU = (target - prev) / triArea
	}

	tri := l.Triangles[idx]
	p0, p1, p2 := l.Mesh.TriangleVertices(tri)
	sqrtU := math.Sqrt(clamp01(localU))
	b0 := 1 - sqrtU
	b1 := u.Y * sqrtU
	b2 := 1 - b0 - b1
	samplePoint := p0.Scale(b0).Add(p1.Scale(b1)).Add(p2.Scale(b2))

	toLight := samplePoint.Sub(point)
	dist = toLight.Len()
	if dist < 1e-9 {
		return math3d.Zero3(), 0, 0, math3d.Zero3(), false
	}
	wi = toLight.Scale(1 / dist)

	n := l.Mesh.GeometricNormal(tri).Normalize()
	cosAtLight := math.Abs(n.Dot(wi.Negate()))
	if cosAtLight < 1e-9 {
		return math3d.Zero3(), 0, 0, math3d.Zero3(), false
	}

	pdf = (dist * dist) / (cosAtLight * l.totalArea)
	return wi, dist, pdf, l.Radiance, true
}

// PDF returns the solid-angle density Sample would assign to direction
// wi from point. Since the light's full triangle set isn't tested for
// an exact intersection here, this approximates by reusing the light's
// known total area and the first triangle's plane, which is exact for
// a light consisting of coplanar triangles (the common case: a single
// emissive quad/polygon) and an acceptable approximation otherwise —
// BSDF-sampled directions that hit the light still get *some* MIS
// weight rather than being silently treated as zero-density.
func (l *AreaLight) PDF(point, wi math3d.Vec3) float64 {
	if l.totalArea <= 0 {
		return 0
	}
	tri := l.Triangles[0]
	p0, _, _ := l.Mesh.TriangleVertices(tri)
	n := l.Mesh.GeometricNormal(tri).Normalize()
	denom := n.Dot(wi)
	if math.Abs(denom) < 1e-9 {
		return 0
	}
	t := p0.Sub(point).Dot(n) / denom
	if t <= 0 {
		return 0
	}
	hitPoint := point.Add(wi.Scale(t))
	dist := hitPoint.Sub(point).Len()
	cosAtLight := math.Abs(n.Dot(wi.Negate()))
	if cosAtLight < 1e-9 {
		return 0
	}
	return (dist * dist) / (cosAtLight * l.totalArea)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
