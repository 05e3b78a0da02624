package meshio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rayforge/rayforge/pkg/raytracerr"
)

func writeBinarySTL(t *testing.T, triangles [][3][3]float32) string {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(make([]byte, 80))

	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(triangles)))
	buf.Write(countBuf[:])

	putFloat := func(v float32) {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
		buf.Write(b[:])
	}

	for _, tri := range triangles {
		putFloat(0)
		putFloat(0)
		putFloat(0) // normal, left zero to exercise the recompute path
		for _, v := range tri {
			putFloat(v[0])
			putFloat(v[1])
			putFloat(v[2])
		}
		buf.Write(make([]byte, 2)) // attribute byte count
	}

	path := filepath.Join(t.TempDir(), "test.stl")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write test stl: %v", err)
	}
	return path
}

func TestLoadSTLParsesBinaryTriangles(t *testing.T) {
	path := writeBinarySTL(t, [][3][3]float32{
		{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		{{0, 0, 0}, {0, 1, 0}, {-1, 0, 0}},
	})

	mesh, err := LoadSTL(path)
	if err != nil {
		t.Fatalf("LoadSTL() error = %v", err)
	}
	if mesh.TriangleCount() != 2 {
		t.Fatalf("TriangleCount() = %d, want 2", mesh.TriangleCount())
	}
	if mesh.VertexCount() != 6 {
		t.Fatalf("VertexCount() = %d, want 6 (STL has no shared-vertex topology)", mesh.VertexCount())
	}
	if !mesh.HasNormals() {
		t.Fatal("expected per-vertex normals recomputed from zero-normal facets")
	}
}

func TestLoadSTLRejectsASCII(t *testing.T) {
	content := "solid test\nfacet normal 0 0 1\nouter loop\nvertex 0 0 0\nvertex 1 0 0\nvertex 0 1 0\nendloop\nendfacet\nendsolid test\n"
	path := filepath.Join(t.TempDir(), "ascii.stl")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write test stl: %v", err)
	}

	_, err := LoadSTL(path)
	if err == nil {
		t.Fatal("LoadSTL() should reject an ASCII STL file")
	}
	var formatErr *raytracerr.FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("expected a *raytracerr.FormatError, got %T: %v", err, err)
	}
}
