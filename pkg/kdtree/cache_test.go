package kdtree

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rayforge/rayforge/pkg/geometry"
	"github.com/rayforge/rayforge/pkg/math3d"
)

func TestWriteCacheThenReadCacheRoundTripsTraversal(t *testing.T) {
	mesh := twoTriangleSquare()
	tree, _ := Build(mesh, DefaultBuildParams())

	path := filepath.Join(t.TempDir(), "mesh.kdcache")
	if err := tree.WriteCache(path); err != nil {
		t.Fatalf("WriteCache() error = %v", err)
	}

	loaded, err := ReadCache(path, mesh)
	if err != nil {
		t.Fatalf("ReadCache() error = %v", err)
	}
	if len(loaded.Nodes) != len(tree.Nodes) {
		t.Fatalf("len(Nodes) = %d, want %d", len(loaded.Nodes), len(tree.Nodes))
	}
	if len(loaded.TriangleIndices) != len(tree.TriangleIndices) {
		t.Fatalf("len(TriangleIndices) = %d, want %d", len(loaded.TriangleIndices), len(tree.TriangleIndices))
	}

	r := geometry.NewRay(math3d.V3(0.25, 0.25, 1), math3d.V3(0, 0, -1))
	want, wantOK := tree.Intersect(r, 0, math.MaxFloat64)
	got, gotOK := loaded.Intersect(r, 0, math.MaxFloat64)
	if wantOK != gotOK || want.Triangle != got.Triangle {
		t.Fatalf("loaded tree traversal diverged from the original: got %+v (ok=%v), want %+v (ok=%v)", got, gotOK, want, wantOK)
	}
}

func TestReadCacheRejectsMismatchedMesh(t *testing.T) {
	mesh := twoTriangleSquare()
	tree, _ := Build(mesh, DefaultBuildParams())

	path := filepath.Join(t.TempDir(), "mesh.kdcache")
	if err := tree.WriteCache(path); err != nil {
		t.Fatalf("WriteCache() error = %v", err)
	}

	other := geometry.NewTriangleMesh("other")
	other.Positions = []math3d.Vec3{math3d.V3(0, 0, 0), math3d.V3(2, 0, 0), math3d.V3(2, 2, 0)}
	other.Indices = []uint32{0, 1, 2}
	other.CalculateBounds()

	if _, err := ReadCache(path, other); err == nil {
		t.Fatal("ReadCache() should reject a cache built from different mesh geometry")
	}
}

func TestReadCacheRejectsNonCacheFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.kdcache")
	if err := os.WriteFile(path, []byte("not a kd-tree cache"), 0o644); err != nil {
		t.Fatalf("write garbage file: %v", err)
	}
	if _, err := ReadCache(path, twoTriangleSquare()); err == nil {
		t.Fatal("ReadCache() should reject a file without the cache magic header")
	}
}
