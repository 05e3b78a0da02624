package meshio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/qmuntal/gltf"

	"github.com/rayforge/rayforge/pkg/geometry"
	"github.com/rayforge/rayforge/pkg/math3d"
)

// LoadGLTF loads a glTF or GLB file into a geometry.TriangleMesh.
// Adapted from the teacher's pkg/models.GLTFLoader: the accessor-reading
// plumbing (readVec3Accessor/readVec2Accessor/readIndices/
// readAccessorData) is kept nearly verbatim, since it is pure glTF
// binary-layout decoding independent of the rasterizer it used to feed;
// the output type and winding are changed to suit a ray tracer (no
// front-face winding reversal — the integrator derives its geometric
// normal directly from whatever winding the source data uses).
func LoadGLTF(path string) (*geometry.TriangleMesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf %q: %w", path, err)
	}

	mesh := geometry.NewTriangleMesh(filepath.Base(path))

	for _, m := range doc.Meshes {
		if err := appendGLTFMesh(doc, m, mesh); err != nil {
			return nil, fmt.Errorf("process gltf mesh %q: %w", m.Name, err)
		}
	}

	if err := mesh.Validate(); err != nil {
		return nil, err
	}

	if !mesh.HasNormals() {
		mesh.CalculateSmoothNormals()
	}
	mesh.CalculateBounds()

	return mesh, nil
}

func appendGLTFMesh(doc *gltf.Document, m *gltf.Mesh, mesh *geometry.TriangleMesh) error {
	for _, prim := range m.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles && prim.Mode != 0 {
			continue
		}

		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			continue
		}
		positions, err := readVec3Accessor(doc, posIdx)
		if err != nil {
			return fmt.Errorf("read positions: %w", err)
		}

		var normals []math3d.Vec3
		if normIdx, ok := prim.Attributes[gltf.NORMAL]; ok {
			if normals, err = readVec3Accessor(doc, normIdx); err != nil {
				return fmt.Errorf("read normals: %w", err)
			}
		}

		var uvs []math3d.Vec2
		if uvIdx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
			if uvs, err = readVec2Accessor(doc, uvIdx); err != nil {
				return fmt.Errorf("read uvs: %w", err)
			}
		}

		baseVertex := uint32(len(mesh.Positions))
		mesh.Positions = append(mesh.Positions, positions...)
		if len(normals) == len(positions) {
			mesh.Normals = append(mesh.Normals, normals...)
		} else if len(mesh.Normals) > 0 {
			mesh.Normals = append(mesh.Normals, make([]math3d.Vec3, len(positions))...)
		}
		for i := range positions {
			if i < len(uvs) {
				mesh.UVs = append(mesh.UVs, math3d.V2(uvs[i].X, 1.0-uvs[i].Y))
			} else if len(mesh.UVs) > 0 {
				mesh.UVs = append(mesh.UVs, math3d.Zero2())
			}
		}

		if prim.Indices != nil {
			indices, err := readIndices(doc, *prim.Indices)
			if err != nil {
				return fmt.Errorf("read indices: %w", err)
			}
			for _, idx := range indices {
				mesh.Indices = append(mesh.Indices, baseVertex+uint32(idx))
			}
		} else {
			for i := 0; i < len(positions); i++ {
				mesh.Indices = append(mesh.Indices, baseVertex+uint32(i))
			}
		}
	}
	return nil
}

func readVec3Accessor(doc *gltf.Document, accessorIdx int) ([]math3d.Vec3, error) {
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorVec3 {
		return nil, fmt.Errorf("expected VEC3, got %v", accessor.Type)
	}
	data, err := readAccessorData(doc, accessor)
	if err != nil {
		return nil, err
	}
	floats, ok := data.([][3]float32)
	if !ok {
		return nil, fmt.Errorf("unexpected data type for VEC3")
	}
	result := make([]math3d.Vec3, len(floats))
	for i, f := range floats {
		result[i] = math3d.V3(float64(f[0]), float64(f[1]), float64(f[2]))
	}
	return result, nil
}

func readVec2Accessor(doc *gltf.Document, accessorIdx int) ([]math3d.Vec2, error) {
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorVec2 {
		return nil, fmt.Errorf("expected VEC2, got %v", accessor.Type)
	}
	data, err := readAccessorData(doc, accessor)
	if err != nil {
		return nil, err
	}
	floats, ok := data.([][2]float32)
	if !ok {
		return nil, fmt.Errorf("unexpected data type for VEC2")
	}
	result := make([]math3d.Vec2, len(floats))
	for i, f := range floats {
		result[i] = math3d.V2(float64(f[0]), float64(f[1]))
	}
	return result, nil
}

func readIndices(doc *gltf.Document, accessorIdx int) ([]int, error) {
	accessor := doc.Accessors[accessorIdx]
	data, err := readAccessorData(doc, accessor)
	if err != nil {
		return nil, err
	}
	switch v := data.(type) {
	case []uint8:
		result := make([]int, len(v))
		for i, x := range v {
			result[i] = int(x)
		}
		return result, nil
	case []uint16:
		result := make([]int, len(v))
		for i, x := range v {
			result[i] = int(x)
		}
		return result, nil
	case []uint32:
		result := make([]int, len(v))
		for i, x := range v {
			result[i] = int(x)
		}
		return result, nil
	default:
		return nil, fmt.Errorf("unexpected index type: %T", data)
	}
}

func readAccessorData(doc *gltf.Document, accessor *gltf.Accessor) (any, error) {
	if accessor.BufferView == nil {
		return nil, fmt.Errorf("accessor has no buffer view")
	}
	bufferView := doc.BufferViews[*accessor.BufferView]
	buffer := doc.Buffers[bufferView.Buffer]

	bufData := buffer.Data
	if bufData == nil {
		return nil, fmt.Errorf("buffer has no data (external buffers not supported)")
	}

	start := bufferView.ByteOffset + accessor.ByteOffset
	stride := bufferView.ByteStride
	count := accessor.Count

	switch accessor.Type {
	case gltf.AccessorVec3:
		if stride == 0 {
			stride = 12
		}
		result := make([][3]float32, count)
		for i := 0; i < count; i++ {
			offset := start + i*stride
			for j := 0; j < 3; j++ {
				result[i][j] = readFloat32(bufData[offset+j*4:])
			}
		}
		return result, nil

	case gltf.AccessorVec2:
		if stride == 0 {
			stride = 8
		}
		result := make([][2]float32, count)
		for i := 0; i < count; i++ {
			offset := start + i*stride
			for j := 0; j < 2; j++ {
				result[i][j] = readFloat32(bufData[offset+j*4:])
			}
		}
		return result, nil

	case gltf.AccessorScalar:
		if stride == 0 {
			switch accessor.ComponentType {
			case gltf.ComponentUbyte:
				stride = 1
			case gltf.ComponentUshort:
				stride = 2
			case gltf.ComponentUint:
				stride = 4
			}
		}
		switch accessor.ComponentType {
		case gltf.ComponentUbyte:
			result := make([]uint8, count)
			for i := 0; i < count; i++ {
				result[i] = bufData[start+i*stride]
			}
			return result, nil
		case gltf.ComponentUshort:
			result := make([]uint16, count)
			for i := 0; i < count; i++ {
				offset := start + i*stride
				result[i] = binary.LittleEndian.Uint16(bufData[offset:])
			}
			return result, nil
		case gltf.ComponentUint:
			result := make([]uint32, count)
			for i := 0; i < count; i++ {
				offset := start + i*stride
				result[i] = binary.LittleEndian.Uint32(bufData[offset:])
			}
			return result, nil
		}
	}

	return nil, fmt.Errorf("unsupported accessor type: %v / %v", accessor.Type, accessor.ComponentType)
}

func readFloat32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

// LoadGLTFTexture loads a glTF/GLB file's first embedded or
// sibling-file image, for use as a texture map in pkg/scene materials.
// Returns nil if the document has no images.
func LoadGLTFTexture(path string) (image.Image, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf %q: %w", path, err)
	}

	for _, img := range doc.Images {
		var data []byte
		if img.BufferView != nil {
			bv := doc.BufferViews[*img.BufferView]
			buf := doc.Buffers[bv.Buffer]
			if buf.Data != nil {
				data = buf.Data[bv.ByteOffset : bv.ByteOffset+bv.ByteLength]
			}
		} else if img.URI != "" {
			texPath := filepath.Join(filepath.Dir(path), img.URI)
			data, _ = os.ReadFile(texPath)
		}
		if len(data) == 0 {
			continue
		}
		decoded, _, err := image.Decode(bytes.NewReader(data))
		if err == nil {
			return decoded, nil
		}
	}
	return nil, nil
}
