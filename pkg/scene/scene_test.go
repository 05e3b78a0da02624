package scene

import (
	"math"
	"testing"

	"github.com/rayforge/rayforge/pkg/geometry"
	"github.com/rayforge/rayforge/pkg/integrator"
	"github.com/rayforge/rayforge/pkg/kdtree"
	"github.com/rayforge/rayforge/pkg/math3d"
	"github.com/rayforge/rayforge/pkg/sampling"
)

func quadMesh(p0, p1, p2, p3 math3d.Vec3) *geometry.TriangleMesh {
	m := geometry.NewTriangleMesh("quad")
	m.Positions = []math3d.Vec3{p0, p1, p2, p3}
	m.Indices = []uint32{0, 1, 2, 0, 2, 3}
	m.CalculateBounds()
	return m
}

func buildFloorAndLightScene(t *testing.T) *Scene {
	t.Helper()
	b := NewBuilder()

	floorMat := b.AddMaterial(&Material{Kind: MaterialLambertian, Reflectance: math3d.V3(0.7, 0.7, 0.7)})
	floor := quadMesh(
		math3d.V3(-5, 0, -5), math3d.V3(5, 0, -5),
		math3d.V3(5, 0, 5), math3d.V3(-5, 0, 5),
	)
	b.AddMesh(floor, floorMat, false, math3d.Zero3())

	lightMat := b.AddMaterial(&Material{Kind: MaterialLambertian})
	lightMesh := quadMesh(
		math3d.V3(-1, 3, -1), math3d.V3(1, 3, -1),
		math3d.V3(1, 3, 1), math3d.V3(-1, 3, 1),
	)
	b.AddMesh(lightMesh, lightMat, true, math3d.V3(10, 10, 10))

	s, _ := b.Build(kdtree.DefaultBuildParams())
	return s
}

func TestBuilderMergesTriangleCountsAndMaterialAssignment(t *testing.T) {
	s := buildFloorAndLightScene(t)
	if s.Mesh.TriangleCount() != 4 {
		t.Fatalf("TriangleCount() = %d, want 4 (two quads, two triangles each)", s.Mesh.TriangleCount())
	}
	if s.TriangleMaterial[0] != 0 || s.TriangleMaterial[2] != 1 {
		t.Fatalf("TriangleMaterial = %v, want [0,0,1,1]", s.TriangleMaterial)
	}
	if s.TriangleLight[0] != -1 || s.TriangleLight[2] != 0 {
		t.Fatalf("TriangleLight = %v, want [-1,-1,0,0]", s.TriangleLight)
	}
	if len(s.Lights) != 1 {
		t.Fatalf("len(Lights) = %d, want 1", len(s.Lights))
	}
}

func TestPathSceneIntersectFindsFloor(t *testing.T) {
	s := buildFloorAndLightScene(t)
	path := s.NewPath()

	ray := geometry.NewRay(math3d.V3(0, 1, 0), math3d.V3(0, -1, 0))
	hit, ok := path.Intersect(ray, 1e-4, math.Inf(1))
	if !ok {
		t.Fatal("expected a hit on the floor")
	}
	pos := hit.Position()
	if math.Abs(pos.Y) > 1e-6 {
		t.Fatalf("hit position Y = %v, want ~0 (floor plane)", pos.Y)
	}
}

func TestSceneHitScatterReturnsLambertianBSDF(t *testing.T) {
	s := buildFloorAndLightScene(t)
	path := s.NewPath()

	ray := geometry.NewRay(math3d.V3(0, 1, 0), math3d.V3(0, -1, 0))
	hit, ok := path.Intersect(ray, 1e-4, math.Inf(1))
	if !ok {
		t.Fatal("expected a hit")
	}
	scattering := hit.Scatter(0.5)
	if scattering.BSDF == nil {
		t.Fatal("Scatter() returned no BSDF for a Lambertian material")
	}
	if scattering.Delta != nil {
		t.Fatal("Scatter() returned a Delta event for a finite-only material")
	}
}

func TestAreaLightSampleReturnsPositivePDFTowardLight(t *testing.T) {
	s := buildFloorAndLightScene(t)
	light := s.Lights[0]

	wi, dist, pdf, emission, ok := light.Sample(math3d.V3(0, 0, 0), math3d.V2(0.3, 0.6))
	if !ok {
		t.Fatal("Sample() rejected")
	}
	if pdf <= 0 {
		t.Fatalf("pdf = %v, want > 0", pdf)
	}
	if dist <= 0 {
		t.Fatalf("dist = %v, want > 0", dist)
	}
	if emission != math3d.V3(10, 10, 10) {
		t.Fatalf("emission = %+v, want (10,10,10)", emission)
	}
	if wi.Y <= 0 {
		t.Fatalf("wi = %+v, want to point upward toward the light quad at y=3", wi)
	}
}

func TestPathTracerIntegratesFloorUnderAreaLight(t *testing.T) {
	s := buildFloorAndLightScene(t)
	pt := integrator.PathTracer{MaxLightBounces: 2, RussianRouletteBounceCountThreshold: 10, RussianRouletteThreshold: 1.0, ShadowEpsilon: 1e-4}
	sampler := sampling.NewSampler(sampling.NewRNG(11, 22), 1, 1)

	ray := geometry.NewRay(math3d.V3(0, 2, 0), math3d.V3(0, -1, 0))
	path := s.NewPath()
	radiance := pt.Li(path, ray, sampler)

	if radiance.X < 0 || radiance.Y < 0 || radiance.Z < 0 {
		t.Fatalf("Li() = %+v, radiance must be non-negative", radiance)
	}
}

func TestAddMeshTransformedPlacesVerticesByTransform(t *testing.T) {
	b := NewBuilder()
	mat := b.AddMaterial(&Material{Kind: MaterialLambertian, Reflectance: math3d.V3(0.5, 0.5, 0.5)})

	unit := quadMesh(
		math3d.V3(-1, 0, -1), math3d.V3(1, 0, -1),
		math3d.V3(1, 0, 1), math3d.V3(-1, 0, 1),
	)
	xform := math3d.Translate(math3d.V3(0, 5, 0))
	b.AddMeshTransformed(unit, &xform, mat, false, math3d.Zero3())

	s, _ := b.Build(kdtree.DefaultBuildParams())
	for _, p := range s.Mesh.Positions {
		if math.Abs(p.Y-5) > 1e-9 {
			t.Fatalf("position %+v, want y translated to 5", p)
		}
	}

	// The source mesh passed in must be left untouched: AddMeshTransformed
	// applies the transform to the appended copy only.
	for _, p := range unit.Positions {
		if p.Y != 0 {
			t.Fatalf("source mesh mutated: position %+v, want y=0", p)
		}
	}
}
