// Package geometry provides the core primitives of the ray tracer: rays,
// axis-aligned bounds, and triangle meshes.
package geometry

import (
	"math"

	"github.com/rayforge/rayforge/pkg/math3d"
)

// Ray is a half-line in world space: origin plus direction. Direction is
// assumed unit length by downstream code (traversal, intersection).
type Ray struct {
	Origin    math3d.Vec3
	Direction math3d.Vec3
}

// NewRay creates a ray from origin and direction.
func NewRay(origin, direction math3d.Vec3) Ray {
	return Ray{Origin: origin, Direction: direction}
}

// Point returns the point at parameter t along the ray.
func (r Ray) Point(t float64) math3d.Vec3 {
	return r.Origin.Add(r.Direction.Scale(t))
}

// OffsetOrigin nudges a hit point along the geometric normal to avoid
// self-intersection on the next ray cast, using an integer-bit-level
// perturbation of the floating point representation (Ray Tracing Gems,
// ch. 6) rather than a fixed epsilon, so the offset scales with the
// magnitude of the coordinates.
func OffsetOrigin(p, geometricNormal math3d.Vec3, towardOutside bool) math3d.Vec3 {
	n := geometricNormal
	if !towardOutside {
		n = n.Negate()
	}

	const intScale = 256.0
	const floatScale = 1.0 / 65536.0
	const origin = 1.0 / 32.0

	offsetInt := [3]int64{
		int64(intScale * n.X),
		int64(intScale * n.Y),
		int64(intScale * n.Z),
	}

	po := [3]float64{p.X, p.Y, p.Z}
	result := [3]float64{}
	for i := 0; i < 3; i++ {
		if po[i] < 0 {
			result[i] = intToFloatNudge(po[i], -offsetInt[i])
		} else {
			result[i] = intToFloatNudge(po[i], offsetInt[i])
		}
		if math.Abs(po[i]) < origin {
			comp := 0.0
			switch i {
			case 0:
				comp = n.X
			case 1:
				comp = n.Y
			case 2:
				comp = n.Z
			}
			result[i] = po[i] + floatScale*comp
		}
	}
	return math3d.V3(result[0], result[1], result[2])
}

// intToFloatNudge shifts the bit pattern of f by delta ULPs.
func intToFloatNudge(f float64, delta int64) float64 {
	bits := int64(math.Float64bits(f))
	bits += delta
	return math.Float64frombits(uint64(bits))
}
