package geometry

import (
	"math"
	"testing"

	"github.com/rayforge/rayforge/pkg/math3d"
)

func TestIntersectRaySlabTest(t *testing.T) {
	cases := []struct {
		name           string
		origin, dir    math3d.Vec3
		box            BoundingBox
		wantHit        bool
		wantMin, wantMax float64
	}{
		{
			name:    "unit cube along +x",
			origin:  math3d.V3(-2, 0.5, 0.5),
			dir:     math3d.V3(1, 0, 0),
			box:     BoundingBox{Min: math3d.V3(0, 0, 0), Max: math3d.V3(1, 1, 1)},
			wantHit: true, wantMin: 2, wantMax: 3,
		},
		{
			name:    "miss to the side",
			origin:  math3d.V3(-2, 5, 0.5),
			dir:     math3d.V3(1, 0, 0),
			box:     BoundingBox{Min: math3d.V3(0, 0, 0), Max: math3d.V3(1, 1, 1)},
			wantHit: false,
		},
		{
			name:    "axis-aligned ray through box (1/d = +Inf)",
			origin:  math3d.V3(0.5, 0.5, -1),
			dir:     math3d.V3(0, 0, 1),
			box:     BoundingBox{Min: math3d.V3(0, 0, 0), Max: math3d.V3(1, 1, 1)},
			wantHit: true, wantMin: 1, wantMax: 2,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := NewRay(c.origin, c.dir)
			tMin, tMax, hit := c.box.IntersectRay(r)
			if hit != c.wantHit {
				t.Fatalf("hit = %v, want %v", hit, c.wantHit)
			}
			if !hit {
				return
			}
			if math.Abs(tMin-c.wantMin) > 1e-9 {
				t.Errorf("tMin = %v, want %v", tMin, c.wantMin)
			}
			if math.Abs(tMax-c.wantMax) > 1e-9 {
				t.Errorf("tMax = %v, want %v", tMax, c.wantMax)
			}
		})
	}
}

func TestSurfaceAreaAndUnion(t *testing.T) {
	a := BoundingBox{Min: math3d.V3(0, 0, 0), Max: math3d.V3(1, 1, 1)}
	if got := a.SurfaceArea(); math.Abs(got-6) > 1e-9 {
		t.Fatalf("SurfaceArea = %v, want 6", got)
	}

	b := BoundingBox{Min: math3d.V3(2, 2, 2), Max: math3d.V3(3, 3, 3)}
	u := Union(a, b)
	if u.Min != (math3d.V3(0, 0, 0)) || u.Max != (math3d.V3(3, 3, 3)) {
		t.Fatalf("Union = %+v", u)
	}
}
