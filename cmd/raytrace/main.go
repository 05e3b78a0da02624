// raytrace renders a single mesh file with the physically based path
// tracer, writing a half-float OpenEXR image. Rewritten from the
// teacher's cmd/trophy/main.go: the same flag.Parse/os.Exit structure
// and signal.Notify-driven context cancellation, pointed at a batch
// render instead of an interactive rasterizer loop (see DESIGN.md's
// "Dropped teacher code" for what that cut: the rotation-state/
// harmonica spring-damper input handling and the rasterizer itself).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rayforge/rayforge/pkg/camera"
	"github.com/rayforge/rayforge/pkg/config"
	"github.com/rayforge/rayforge/pkg/geometry"
	"github.com/rayforge/rayforge/pkg/image"
	"github.com/rayforge/rayforge/pkg/integrator"
	"github.com/rayforge/rayforge/pkg/kdtree"
	"github.com/rayforge/rayforge/pkg/math3d"
	"github.com/rayforge/rayforge/pkg/meshio"
	"github.com/rayforge/rayforge/pkg/preview"
	"github.com/rayforge/rayforge/pkg/renderer"
	"github.com/rayforge/rayforge/pkg/scene"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		os.Exit(1) // Load already printed usage/the parse error to stderr.
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	mesh, err := loadMesh(cfg.MeshPath)
	if err != nil {
		return fmt.Errorf("load mesh: %w", err)
	}

	b := scene.NewBuilder()
	mat := b.AddMaterial(&scene.Material{Kind: scene.MaterialLambertian, Reflectance: math3d.V3(0.7, 0.7, 0.7)})
	b.AddMesh(mesh, mat, false, math3d.Zero3())
	b.SetEnvironment(math3d.V3(0.2, 0.2, 0.25))

	mergedMesh := b.MergedMesh()
	tree, err := loadOrBuildTree(cfg, mergedMesh)
	if err != nil {
		return fmt.Errorf("kd-tree: %w", err)
	}
	sc := b.BuildWithTree(tree)

	cam := camera.NewCamera()
	cam.SetAspectRatio(float64(cfg.Width) / float64(cfg.Height))
	bounds := mergedMesh.Bounds()
	center := bounds.Min.Add(bounds.Max).Scale(0.5)
	radius := bounds.Max.Sub(bounds.Min).Len() / 2
	if radius <= 0 {
		radius = 1
	}
	cam.SetPosition(center.Add(math3d.V3(0, radius*0.5, radius*2.5)))
	cam.LookAt(center, math3d.V3(0, 1, 0))

	opts := renderer.Options{
		Width: cfg.Width, Height: cfg.Height,
		Workers:  cfg.Workers,
		SamplesX: cfg.XPixelSampleCount, SamplesY: cfg.YPixelSampleCount,
		PathTracer: *integrator.NewPathTracer(cfg.EffectiveMaxBounces(), 3, 1.0),
		Logger:     slog.Default(),
	}

	img, err := renderer.Render(ctx, sc, cam, opts)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	if err := image.WriteEXR(cfg.OutputPath, img); err != nil {
		return fmt.Errorf("write exr: %w", err)
	}
	slog.Info("wrote image", "path", cfg.OutputPath, "width", img.Width, "height", img.Height)

	if cfg.Preview {
		fb := preview.NewFramebuffer(img)
		if err := preview.Show(ctx, fb); err != nil {
			return fmt.Errorf("preview: %w", err)
		}
	}
	return nil
}

// loadMesh dispatches on file extension, matching the external mesh
// I/O formats spec.md §6 names.
func loadMesh(path string) (*geometry.TriangleMesh, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".obj":
		meshes, err := meshio.LoadOBJ(path, meshio.LoadParams{})
		if err != nil {
			return nil, err
		}
		if len(meshes) == 0 {
			return nil, fmt.Errorf("%s: no triangles", path)
		}
		return meshes[0], nil
	case ".stl":
		return meshio.LoadSTL(path)
	case ".ply":
		return meshio.LoadPLY(path)
	case ".gltf", ".glb":
		return meshio.LoadGLTF(path)
	default:
		return nil, fmt.Errorf("%s: unrecognized mesh extension", path)
	}
}

// loadOrBuildTree implements the kd-tree disk cache named in spec.md §6:
// a cache hit against mesh's current content skips the SAH build
// entirely; a miss (or no CachePath configured) builds fresh and, if a
// CachePath was given, persists the result for next time.
func loadOrBuildTree(cfg *config.Config, mesh *geometry.TriangleMesh) (*kdtree.KdTree, error) {
	if cfg.CachePath != "" {
		if tree, err := kdtree.ReadCache(cfg.CachePath, mesh); err == nil {
			slog.Debug("kd-tree cache hit", "path", cfg.CachePath)
			return tree, nil
		}
	}

	tree, stats := kdtree.Build(mesh, kdtree.DefaultBuildParams())
	slog.Debug("kd-tree built", "nodes", stats.NodeCount, "leaves", stats.LeafCount)

	if cfg.CachePath != "" {
		if err := tree.WriteCache(cfg.CachePath); err != nil {
			slog.Warn("failed to write kd-tree cache", "path", cfg.CachePath, "error", err)
		}
	}
	return tree, nil
}
