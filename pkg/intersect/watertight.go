package intersect

import (
	"math"

	"github.com/rayforge/rayforge/pkg/geometry"
	"github.com/rayforge/rayforge/pkg/math3d"
)

// LaneWidth is the batch width of the watertight intersector.
const LaneWidth = 8

// TriangleBatch holds up to LaneWidth triangles in structure-of-arrays
// layout for the watertight test. Lanes beyond Count are ignored (their
// T is left at +Inf after Test).
type TriangleBatch struct {
	P0, P1, P2 [LaneWidth]math3d.Vec3
	Count      int
}

// BatchResult holds the per-lane intersection distance and barycentrics
// produced by Test.
type BatchResult struct {
	T      [LaneWidth]float64
	B1     [LaneWidth]float64
	B2     [LaneWidth]float64
	Hit    [LaneWidth]bool
}

// watertightTest is a function var (rather than calling
// watertightTestScalarLanes directly) so a future real SIMD-intrinsic
// implementation can replace it in one place without touching Test's
// callers; no such implementation exists yet, so this always points at
// the pure-Go, structure-of-arrays body below.
var watertightTest func(r geometry.Ray, batch *TriangleBatch) BatchResult = watertightTestScalarLanes

// Test intersects a single ray against all triangles in the batch using
// the watertight algorithm (Woop/Benthin/Wald): permute axes so the
// largest-magnitude direction component maps to z, shear the other two
// axes so the ray direction becomes (0,0,1), and evaluate three edge
// functions in the sheared 2D plane. Degenerate (exactly-zero) edges are
// recomputed in double precision to preserve watertightness on shared
// triangle edges (spec.md 4.3).
func Test(r geometry.Ray, batch *TriangleBatch) BatchResult {
	return watertightTest(r, batch)
}

func watertightTestScalarLanes(r geometry.Ray, batch *TriangleBatch) BatchResult {
	var out BatchResult
	for i := range out.T {
		out.T[i] = math.Inf(1)
	}

	kz := largestAxis(r.Direction)
	kx := (kz + 1) % 3
	ky := (kx + 1) % 3
	if component(r.Direction, kz) < 0 {
		kx, ky = ky, kx
	}

	sx := component(r.Direction, kx) / component(r.Direction, kz)
	sy := component(r.Direction, ky) / component(r.Direction, kz)
	sz := 1.0 / component(r.Direction, kz)

	for lane := 0; lane < batch.Count; lane++ {
		hit, t, b1, b2 := watertightSingle(r, batch.P0[lane], batch.P1[lane], batch.P2[lane], kx, ky, kz, sx, sy, sz)
		out.Hit[lane] = hit
		if hit {
			out.T[lane] = t
			out.B1[lane] = b1
			out.B2[lane] = b2
		}
	}
	return out
}

func watertightSingle(r geometry.Ray, p0, p1, p2 math3d.Vec3, kx, ky, kz int, sx, sy, sz float64) (hit bool, t, b1, b2 float64) {
	a := translate(p0, r.Origin)
	b := translate(p1, r.Origin)
	c := translate(p2, r.Origin)

	ax := component(a, kx) - sx*component(a, kz)
	ay := component(a, ky) - sy*component(a, kz)
	bx := component(b, kx) - sx*component(b, kz)
	by := component(b, ky) - sy*component(b, kz)
	cx := component(c, kx) - sx*component(c, kz)
	cy := component(c, ky) - sy*component(c, kz)

	e0 := bx*cy - by*cx
	e1 := cx*ay - cy*ax
	e2 := ax*by - ay*bx

	// The original watertight algorithm runs its primary edge functions
	// in single precision and recomputes degenerate (exactly-zero) edges
	// in double precision. This port's primary computation is already
	// float64, so there is no wider hardware type to fall back to;
	// instead, a degenerate edge is recomputed with a compensated
	// difference-of-products (Kahan 2014's 2x2-determinant algorithm via
	// FMA), which recovers the precision an ordinary a*b-c*d loses to
	// catastrophic cancellation near zero — the same failure mode the
	// float32-to-float64 fallback exists to correct.
	if e0 == 0 || e1 == 0 || e2 == 0 {
		e0 = diffOfProducts(bx, cy, by, cx)
		e1 = diffOfProducts(cx, ay, cy, ax)
		e2 = diffOfProducts(ax, by, ay, bx)
	}

	if (e0 < 0 || e1 < 0 || e2 < 0) && (e0 > 0 || e1 > 0 || e2 > 0) {
		return false, 0, 0, 0
	}
	det := e0 + e1 + e2
	if det == 0 {
		return false, 0, 0, 0
	}

	az := sz * component(a, kz)
	bz := sz * component(b, kz)
	cz := sz * component(c, kz)
	tScaled := e0*az + e1*bz + e2*cz

	if det > 0 {
		if tScaled < 0 {
			return false, 0, 0, 0
		}
	} else if tScaled > 0 {
		return false, 0, 0, 0
	}

	invDet := 1.0 / det
	return true, tScaled * invDet, e1 * invDet, e2 * invDet
}

// diffOfProducts computes a*b - c*d with error compensated via FMA
// (Kahan 2014), accurate to within half a ULP even when a*b and c*d
// nearly cancel.
func diffOfProducts(a, b, c, d float64) float64 {
	cd := c * d
	err := math.FMA(-c, d, cd)
	diff := math.FMA(a, b, -cd)
	return diff + err
}

func translate(p, origin math3d.Vec3) math3d.Vec3 {
	return p.Sub(origin)
}

func component(v math3d.Vec3, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

func largestAxis(d math3d.Vec3) int {
	ax, ay, az := math.Abs(d.X), math.Abs(d.Y), math.Abs(d.Z)
	if az >= ax && az >= ay {
		return 2
	}
	if ay >= ax {
		return 1
	}
	return 0
}

// Reduce finds the closest hit in the batch by scanning the lanes in
// order, returning the winning lane index (the lowest lane on a tie),
// -1 if none hit.
func (res BatchResult) Reduce() (lane int, t, b1, b2 float64) {
	best := -1
	bestT := math.Inf(1)
	for i := 0; i < LaneWidth; i++ {
		if res.Hit[i] && res.T[i] < bestT {
			best = i
			bestT = res.T[i]
		}
	}
	if best < 0 {
		return -1, math.Inf(1), 0, 0
	}
	return best, res.T[best], res.B1[best], res.B2[best]
}

// Min folds two batch results lane-wise, keeping the closer hit in each
// lane; used to combine results from successive groups of 8 triangles.
func Min(a, b BatchResult) BatchResult {
	var out BatchResult
	for i := 0; i < LaneWidth; i++ {
		if a.Hit[i] && (!b.Hit[i] || a.T[i] <= b.T[i]) {
			out.Hit[i], out.T[i], out.B1[i], out.B2[i] = a.Hit[i], a.T[i], a.B1[i], a.B2[i]
		} else {
			out.Hit[i], out.T[i], out.B1[i], out.B2[i] = b.Hit[i], b.T[i], b.B1[i], b.B2[i]
		}
	}
	return out
}
