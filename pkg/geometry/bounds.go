package geometry

import (
	"math"

	"github.com/rayforge/rayforge/pkg/math3d"
)

// BoundingBox is an axis-aligned bounding box in world space.
type BoundingBox struct {
	Min math3d.Vec3
	Max math3d.Vec3
}

// EmptyBounds returns a bounding box that contains no points; the first
// AddPoint/Union call establishes real extents.
func EmptyBounds() BoundingBox {
	return BoundingBox{
		Min: math3d.V3(math.Inf(1), math.Inf(1), math.Inf(1)),
		Max: math3d.V3(math.Inf(-1), math.Inf(-1), math.Inf(-1)),
	}
}

// BoundsFromPoint returns a degenerate bounding box containing a single point.
func BoundsFromPoint(p math3d.Vec3) BoundingBox {
	return BoundingBox{Min: p, Max: p}
}

// AddPoint grows the box to contain p and returns the result.
func (b BoundingBox) AddPoint(p math3d.Vec3) BoundingBox {
	return BoundingBox{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// Union returns the smallest box containing both a and b.
func Union(a, b BoundingBox) BoundingBox {
	return BoundingBox{Min: a.Min.Min(b.Min), Max: a.Max.Max(b.Max)}
}

// Intersection returns the box formed by the overlap of a and b. The
// result may be degenerate (Min > Max on some axis) if a and b do not
// actually overlap; callers that care should check with Valid.
func Intersection(a, b BoundingBox) BoundingBox {
	return BoundingBox{Min: a.Min.Max(b.Min), Max: a.Max.Min(b.Max)}
}

// Valid reports whether the box has non-negative extent on every axis.
func (b BoundingBox) Valid() bool {
	return b.Min.X <= b.Max.X && b.Min.Y <= b.Max.Y && b.Min.Z <= b.Max.Z
}

// Contains reports whether point p lies within the box (inclusive).
func (b BoundingBox) Contains(p math3d.Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Diagonal returns Max - Min.
func (b BoundingBox) Diagonal() math3d.Vec3 {
	return b.Max.Sub(b.Min)
}

// SurfaceArea returns the surface area of the box, used by the SAH cost
// model. A degenerate (flat or point) box has zero or reduced area.
func (b BoundingBox) SurfaceArea() float64 {
	d := b.Diagonal()
	return 2 * (d.X*d.Y + d.X*d.Z + d.Y*d.Z)
}

// MaxExtentAxis returns the axis (0=x, 1=y, 2=z) along which the box is
// longest.
func (b BoundingBox) MaxExtentAxis() int {
	d := b.Diagonal()
	if d.X > d.Y && d.X > d.Z {
		return 0
	}
	if d.Y > d.Z {
		return 1
	}
	return 2
}

// Axis returns the min/max of the box along the given axis (0=x,1=y,2=z).
func (b BoundingBox) Axis(axis int) (lo, hi float64) {
	switch axis {
	case 0:
		return b.Min.X, b.Max.X
	case 1:
		return b.Min.Y, b.Max.Y
	default:
		return b.Min.Z, b.Max.Z
	}
}

// IntersectRay performs the slab test: returns the ray parameter interval
// [tMin, tMax] (seeded at [0, +Inf]) intersected with the box, and whether
// the box is hit at all. Handles 1/d = +-Inf correctly so axis-aligned
// rays need no special case (spec.md 4.1 / original_source bounding_box.h).
func (b BoundingBox) IntersectRay(r Ray) (tMin, tMax float64, hit bool) {
	tMin, tMax = 0, math.Inf(1)

	origin := [3]float64{r.Origin.X, r.Origin.Y, r.Origin.Z}
	dir := [3]float64{r.Direction.X, r.Direction.Y, r.Direction.Z}
	lo := [3]float64{b.Min.X, b.Min.Y, b.Min.Z}
	hi := [3]float64{b.Max.X, b.Max.Y, b.Max.Z}

	for i := 0; i < 3; i++ {
		invDir := 1.0 / dir[i]
		t0 := (lo[i] - origin[i]) * invDir
		t1 := (hi[i] - origin[i]) * invDir
		if invDir < 0 {
			t0, t1 = t1, t0
		}
		if t0 > tMin {
			tMin = t0
		}
		if t1 < tMax {
			tMax = t1
		}
		if tMin > tMax {
			return tMin, tMax, false
		}
	}
	return tMin, tMax, true
}
