package intersect

import (
	"math"
	"testing"

	"github.com/rayforge/rayforge/pkg/geometry"
	"github.com/rayforge/rayforge/pkg/math3d"
)

func TestMollerTrumboreBoundary(t *testing.T) {
	p0 := math3d.V3(0, 0, 0)
	p1 := math3d.V3(1, 0, 0)
	p2 := math3d.V3(0, 1, 0)

	r := geometry.NewRay(math3d.V3(0.25, 0.25, 1), math3d.V3(0, 0, -1))
	hit := MollerTrumbore(r, p0, p1, p2)

	if math.Abs(hit.T-1) > 1e-9 {
		t.Errorf("T = %v, want 1", hit.T)
	}
	if math.Abs(hit.B1-0.25) > 1e-9 {
		t.Errorf("B1 = %v, want 0.25", hit.B1)
	}
	if math.Abs(hit.B2-0.25) > 1e-9 {
		t.Errorf("B2 = %v, want 0.25", hit.B2)
	}
}

func TestMollerTrumboreMiss(t *testing.T) {
	p0 := math3d.V3(0, 0, 0)
	p1 := math3d.V3(1, 0, 0)
	p2 := math3d.V3(0, 1, 0)

	r := geometry.NewRay(math3d.V3(5, 5, 1), math3d.V3(0, 0, -1))
	hit := MollerTrumbore(r, p0, p1, p2)
	if !math.IsInf(hit.T, 1) {
		t.Errorf("expected NoHit, got T=%v", hit.T)
	}
}

func TestWatertightBatchReduce(t *testing.T) {
	p0 := math3d.V3(0, 0, 0)
	p1 := math3d.V3(1, 0, 0)
	p2 := math3d.V3(0, 1, 0)

	var batch TriangleBatch
	batch.Count = LaneWidth
	for i := 0; i < LaneWidth; i++ {
		batch.P0[i], batch.P1[i], batch.P2[i] = p0, p1, p2
	}

	r := geometry.NewRay(math3d.V3(0.25, 0.25, 1), math3d.V3(0, 0, -1))
	res := Test(r, &batch)

	lane, tVal, _, _ := res.Reduce()
	if lane < 0 {
		t.Fatalf("expected a hit, got none")
	}
	if math.Abs(tVal-1) > 1e-6 {
		t.Errorf("t = %v, want 1", tVal)
	}
	for i := 0; i < LaneWidth; i++ {
		if !res.Hit[i] {
			t.Errorf("lane %d: expected hit", i)
		}
	}
}
