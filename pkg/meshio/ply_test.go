package meshio

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeTestPLY(t *testing.T, path string) {
	t.Helper()
	var body bytes.Buffer
	putFloat := func(v float32) {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
		body.Write(b[:])
	}
	putUint8 := func(v uint8) { body.WriteByte(v) }
	putUint32 := func(v uint32) {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], v)
		body.Write(b[:])
	}

	// 3 vertices, 1 triangular face.
	putFloat(0)
	putFloat(0)
	putFloat(0)
	putFloat(1)
	putFloat(0)
	putFloat(0)
	putFloat(0)
	putFloat(1)
	putFloat(0)

	putUint8(3)
	putUint32(0)
	putUint32(1)
	putUint32(2)

	header := "ply\n" +
		"format binary_little_endian 1.0\n" +
		"comment generated for a test\n" +
		"element vertex 3\n" +
		"property float x\n" +
		"property float y\n" +
		"property float z\n" +
		"element face 1\n" +
		"property list uchar int vertex_indices\n" +
		"end_header\n"

	var full bytes.Buffer
	full.WriteString(header)
	full.Write(body.Bytes())

	if err := os.WriteFile(path, full.Bytes(), 0o644); err != nil {
		t.Fatalf("write test ply: %v", err)
	}
}

func TestLoadPLYParsesVerticesAndFace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.ply")
	writeTestPLY(t, path)

	mesh, err := LoadPLY(path)
	if err != nil {
		t.Fatalf("LoadPLY() error = %v", err)
	}
	if mesh.VertexCount() != 3 {
		t.Fatalf("VertexCount() = %d, want 3", mesh.VertexCount())
	}
	if mesh.TriangleCount() != 1 {
		t.Fatalf("TriangleCount() = %d, want 1", mesh.TriangleCount())
	}
	if !mesh.HasNormals() {
		t.Fatal("expected normals to be synthesized since the PLY had none")
	}
}

func TestLoadPLYRejectsASCIIFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ascii.ply")
	content := "ply\nformat ascii 1.0\nelement vertex 0\nend_header\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write test ply: %v", err)
	}

	_, err := LoadPLY(path)
	if err == nil {
		t.Fatal("LoadPLY() should reject ascii format")
	}
}

func TestLoadPLYRejectsMissingMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.ply")
	if err := os.WriteFile(path, []byte("not a ply file"), 0o644); err != nil {
		t.Fatalf("write test file: %v", err)
	}

	_, err := LoadPLY(path)
	if err == nil {
		t.Fatal("LoadPLY() should reject a file missing the ply magic line")
	}
}
