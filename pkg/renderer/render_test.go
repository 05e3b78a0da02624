package renderer

import (
	"context"
	"testing"

	"github.com/rayforge/rayforge/pkg/camera"
	"github.com/rayforge/rayforge/pkg/geometry"
	"github.com/rayforge/rayforge/pkg/integrator"
	"github.com/rayforge/rayforge/pkg/kdtree"
	"github.com/rayforge/rayforge/pkg/math3d"
	"github.com/rayforge/rayforge/pkg/scene"
)

func buildTestScene(t *testing.T) *scene.Scene {
	t.Helper()
	b := scene.NewBuilder()
	mat := b.AddMaterial(&scene.Material{Kind: scene.MaterialLambertian, Reflectance: math3d.V3(0.8, 0.8, 0.8)})

	mesh := geometry.NewTriangleMesh("floor")
	mesh.Positions = []math3d.Vec3{
		math3d.V3(-5, 0, -5), math3d.V3(5, 0, -5),
		math3d.V3(5, 0, 5), math3d.V3(-5, 0, 5),
	}
	mesh.Indices = []uint32{0, 1, 2, 0, 2, 3}
	mesh.CalculateBounds()
	b.AddMesh(mesh, mat, false, math3d.Zero3())
	b.SetEnvironment(math3d.V3(1, 1, 1))

	s, _ := b.Build(kdtree.DefaultBuildParams())
	return s
}

func testCamera() *camera.Camera {
	cam := camera.NewCamera()
	cam.SetPosition(math3d.V3(0, 2, 5))
	cam.SetAspectRatio(1)
	cam.LookAt(math3d.Zero3(), math3d.V3(0, 1, 0))
	return cam
}

func TestRenderProducesFullResolutionImage(t *testing.T) {
	s := buildTestScene(t)
	cam := testCamera()
	opts := Options{
		Width: 8, Height: 8, TileSize: 4, Workers: 2,
		SamplesX: 1, SamplesY: 1,
		PathTracer: integrator.PathTracer{MaxLightBounces: 2, RussianRouletteBounceCountThreshold: 5, RussianRouletteThreshold: 1.0, ShadowEpsilon: 1e-4},
	}

	img, err := Render(context.Background(), s, cam, opts)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if img.Width != 8 || img.Height != 8 {
		t.Fatalf("image size = %dx%d, want 8x8", img.Width, img.Height)
	}
	for _, px := range img.Pixels {
		if px.X < 0 || px.Y < 0 || px.Z < 0 {
			t.Fatalf("pixel %+v has a negative component", px)
		}
	}
}

func TestRenderRespectsContextCancellation(t *testing.T) {
	s := buildTestScene(t)
	cam := testCamera()
	opts := Options{
		Width: 64, Height: 64, TileSize: 4, Workers: 1,
		SamplesX: 1, SamplesY: 1,
		PathTracer: integrator.PathTracer{MaxLightBounces: 2, RussianRouletteBounceCountThreshold: 5, RussianRouletteThreshold: 1.0, ShadowEpsilon: 1e-4},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Render(ctx, s, cam, opts)
	if err == nil {
		t.Fatal("Render() with an already-canceled context should return an error")
	}
}

func TestTilesCoverFullImageWithoutOverlap(t *testing.T) {
	tiles := Tiles(10, 7, 4)
	count := make([]int, 10*7)
	for _, tile := range tiles {
		for y := tile.MinY; y < tile.MaxY; y++ {
			for x := tile.MinX; x < tile.MaxX; x++ {
				count[y*10+x]++
			}
		}
	}
	for i, c := range count {
		if c != 1 {
			t.Fatalf("pixel %d covered %d times, want exactly 1", i, c)
		}
	}
}
