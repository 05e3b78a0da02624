package meshio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rayforge/rayforge/pkg/geometry"
	"github.com/rayforge/rayforge/pkg/math3d"
	"github.com/rayforge/rayforge/pkg/raytracerr"
)

// plyProperty is one declared "property <type> <name>" line of a PLY
// element, or a list property ("property list <count type> <elem type>
// <name>") when listCountType is non-empty.
type plyProperty struct {
	name          string
	scalarType    string
	listCountType string
	listElemType  string
}

type plyElement struct {
	name       string
	count      int
	properties []plyProperty
}

// LoadPLY reads a binary-little-endian PLY file into a TriangleMesh,
// per spec.md 6's "PLY binary little-endian" external interface and
// SPEC_FULL.md 4.10. Only the vertex element's x/y/z (and, if present,
// nx/ny/nz, s/t or u/v) properties and the face element's first list
// property are interpreted; any other element is skipped by its
// declared byte size. ASCII and big-endian PLY are rejected with a
// *raytracerr.FormatError, matching the STL loader's binary-only
// posture.
func LoadPLY(path string) (*geometry.TriangleMesh, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open ply %q: %w", path, err)
	}

	header, body, err := parsePLYHeader(data)
	if err != nil {
		return nil, &raytracerr.FormatError{File: path, Reason: err.Error()}
	}

	mesh, err := parsePLYBody(header, body)
	if err != nil {
		return nil, &raytracerr.FormatError{File: path, Reason: err.Error()}
	}
	mesh.Name = path

	mesh.CalculateBounds()
	if !mesh.HasNormals() {
		mesh.CalculateSmoothNormals()
	}
	if err := mesh.Validate(); err != nil {
		return nil, err
	}
	return mesh, nil
}

func parsePLYHeader(data []byte) ([]plyElement, []byte, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	if !scanner.Scan() || strings.TrimSpace(scanner.Text()) != "ply" {
		return nil, nil, fmt.Errorf("missing \"ply\" magic line")
	}

	var elements []plyElement
	headerLen := len("ply\n")
	sawFormat := false

	for scanner.Scan() {
		line := scanner.Text()
		headerLen += len(line) + 1
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "format":
			sawFormat = true
			if len(fields) < 2 || fields[1] != "binary_little_endian" {
				return nil, nil, fmt.Errorf("unsupported PLY format %q; only binary_little_endian is supported", strings.Join(fields[1:], " "))
			}
		case "comment":
			// ignore
		case "element":
			if len(fields) < 3 {
				return nil, nil, fmt.Errorf("malformed element declaration %q", line)
			}
			count, err := strconv.Atoi(fields[2])
			if err != nil {
				return nil, nil, fmt.Errorf("malformed element count %q", fields[2])
			}
			elements = append(elements, plyElement{name: fields[1], count: count})
		case "property":
			if len(elements) == 0 {
				return nil, nil, fmt.Errorf("property declared before any element")
			}
			last := &elements[len(elements)-1]
			if len(fields) >= 5 && fields[1] == "list" {
				last.properties = append(last.properties, plyProperty{
					name:          fields[4],
					listCountType: fields[2],
					listElemType:  fields[3],
				})
			} else if len(fields) >= 3 {
				last.properties = append(last.properties, plyProperty{name: fields[2], scalarType: fields[1]})
			}
		case "end_header":
			if !sawFormat {
				return nil, nil, fmt.Errorf("missing format line")
			}
			if headerLen > len(data) {
				return nil, nil, fmt.Errorf("truncated header")
			}
			return elements, data[headerLen:], nil
		}
	}
	return nil, nil, fmt.Errorf("missing end_header")
}

func plyTypeSize(t string) int {
	switch t {
	case "char", "uchar", "int8", "uint8":
		return 1
	case "short", "ushort", "int16", "uint16":
		return 2
	case "int", "uint", "int32", "uint32", "float", "float32":
		return 4
	case "double", "float64", "int64", "uint64":
		return 8
	}
	return 0
}

func readPLYFloat(b []byte, t string) float64 {
	switch t {
	case "float", "float32":
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case "double", "float64":
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	}
	return 0
}

func readPLYUint(b []byte, t string) uint64 {
	switch plyTypeSize(t) {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(b))
	case 4:
		return uint64(binary.LittleEndian.Uint32(b))
	case 8:
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func parsePLYBody(elements []plyElement, body []byte) (*geometry.TriangleMesh, error) {
	mesh := geometry.NewTriangleMesh("ply")
	offset := 0

	for _, el := range elements {
		switch el.name {
		case "vertex":
			idx := propertyIndex(el.properties, "x", "y", "z")
			nIdx := propertyIndex(el.properties, "nx", "ny", "nz")
			uvIdx := propertyIndex(el.properties, "u", "v")
			if uvIdx[0] < 0 {
				uvIdx = propertyIndex(el.properties, "s", "t")
			}
			recordSize := 0
			for _, p := range el.properties {
				recordSize += plyTypeSize(p.scalarType)
			}

			for i := 0; i < el.count; i++ {
				if offset+recordSize > len(body) {
					return nil, fmt.Errorf("truncated vertex element at record %d", i)
				}
				rec := body[offset:]
				p, n, uv := readPLYVertex(rec, el.properties, idx, nIdx, uvIdx)
				mesh.Positions = append(mesh.Positions, p)
				if nIdx[0] >= 0 {
					mesh.Normals = append(mesh.Normals, n)
				}
				if uvIdx[0] >= 0 {
					mesh.UVs = append(mesh.UVs, uv)
				}
				offset += recordSize
			}

		case "face":
			if len(el.properties) == 0 {
				continue
			}
			listProp := el.properties[0]
			for i := 0; i < el.count; i++ {
				if offset+plyTypeSize(listProp.listCountType) > len(body) {
					return nil, fmt.Errorf("truncated face element at record %d", i)
				}
				n := int(readPLYUint(body[offset:], listProp.listCountType))
				offset += plyTypeSize(listProp.listCountType)
				elemSize := plyTypeSize(listProp.listElemType)

				indices := make([]uint32, n)
				for j := 0; j < n; j++ {
					if offset+elemSize > len(body) {
						return nil, fmt.Errorf("truncated face index at record %d", i)
					}
					indices[j] = uint32(readPLYUint(body[offset:], listProp.listElemType))
					offset += elemSize
				}
				for j := 1; j+1 < n; j++ {
					mesh.Indices = append(mesh.Indices, indices[0], indices[j], indices[j+1])
				}
			}

		default:
			recordSize := 0
			for _, p := range el.properties {
				if p.listCountType != "" {
					return nil, fmt.Errorf("cannot skip unknown list-valued element %q", el.name)
				}
				recordSize += plyTypeSize(p.scalarType)
			}
			offset += recordSize * el.count
		}
	}
	return mesh, nil
}

func propertyIndex(props []plyProperty, names ...string) [3]int {
	var result [3]int
	for i := range result {
		result[i] = -1
	}
	for i, name := range names {
		for j, p := range props {
			if p.name == name {
				result[i] = j
				break
			}
		}
	}
	return result
}

func readPLYVertex(rec []byte, props []plyProperty, posIdx, normIdx, uvIdx [3]int) (p, n math3d.Vec3, uv math3d.Vec2) {
	offsets := make([]int, len(props))
	o := 0
	for i, prop := range props {
		offsets[i] = o
		o += plyTypeSize(prop.scalarType)
	}
	read := func(i int) float64 {
		if i < 0 {
			return 0
		}
		return readPLYFloat(rec[offsets[i]:], props[i].scalarType)
	}
	p = math3d.V3(read(posIdx[0]), read(posIdx[1]), read(posIdx[2]))
	if normIdx[0] >= 0 {
		n = math3d.V3(read(normIdx[0]), read(normIdx[1]), read(normIdx[2]))
	}
	if uvIdx[0] >= 0 {
		uv = math3d.V2(read(uvIdx[0]), read(uvIdx[1]))
	}
	return
}
