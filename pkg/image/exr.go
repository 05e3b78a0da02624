package image

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// WriteEXR serializes img as an uncompressed, single-part scanline
// OpenEXR file with three half-float channels (R, G, B), written in the
// channel order OpenEXR's file format requires (alphabetical: B, G, R).
// This is a from-specification implementation of the documented OpenEXR
// container layout, standing in for the reference renderer's vendored
// miniexr/half C libraries (see DESIGN.md): no Go OpenEXR writer exists
// anywhere in the example pack.
func WriteEXR(path string, img *Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("image: create %q: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := writeEXR(w, img); err != nil {
		return fmt.Errorf("image: write %q: %w", path, err)
	}
	return w.Flush()
}

func writeEXR(w io.Writer, img *Image) error {
	var header []byte

	// Magic number and version: version 2, no extra flags (ordinary
	// single-part scanline image, no long names, no deep data).
	header = append(header, 0x76, 0x2f, 0x31, 0x01)
	header = append(header, 2, 0, 0, 0)

	header = appendChannelsAttr(header, "channels", []string{"B", "G", "R"})
	header = appendAttr(header, "compression", "compression", []byte{0}) // NO_COMPRESSION
	header = appendBox2i(header, "dataWindow", 0, 0, int32(img.Width-1), int32(img.Height-1))
	header = appendBox2i(header, "displayWindow", 0, 0, int32(img.Width-1), int32(img.Height-1))
	header = appendAttr(header, "lineOrder", "lineOrder", []byte{0}) // INCREASING_Y
	header = appendFloatAttr(header, "pixelAspectRatio", 1.0)
	header = appendAttr(header, "screenWindowCenter", "v2f", float32sToBytes(0, 0))
	header = appendFloatAttr(header, "screenWindowWidth", 1.0)
	header = append(header, 0) // end of header

	const bytesPerChannel = 2
	rowBytes := img.Width * 3 * bytesPerChannel
	offsetTableSize := img.Height * 8
	dataStart := int64(len(header)) + int64(offsetTableSize)

	offsets := make([]uint64, img.Height)
	for y := 0; y < img.Height; y++ {
		offsets[y] = uint64(dataStart) + uint64(y)*uint64(4+4+rowBytes)
	}

	if _, err := w.Write(header); err != nil {
		return err
	}
	offsetBuf := make([]byte, 8)
	for _, o := range offsets {
		binary.LittleEndian.PutUint64(offsetBuf, o)
		if _, err := w.Write(offsetBuf); err != nil {
			return err
		}
	}

	chunkHeader := make([]byte, 8)
	row := make([]byte, rowBytes)
	for y := 0; y < img.Height; y++ {
		binary.LittleEndian.PutUint32(chunkHeader[0:4], uint32(y))
		binary.LittleEndian.PutUint32(chunkHeader[4:8], uint32(rowBytes))
		if _, err := w.Write(chunkHeader); err != nil {
			return err
		}

		pos := 0
		for c := 0; c < 3; c++ { // B, G, R
			for x := 0; x < img.Width; x++ {
				px := img.At(x, y)
				var v float64
				switch c {
				case 0:
					v = px.Z
				case 1:
					v = px.Y
				case 2:
					v = px.X
				}
				binary.LittleEndian.PutUint16(row[pos:pos+2], FloatToHalf(v))
				pos += 2
			}
		}
		if _, err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func appendString(b []byte, s string) []byte {
	b = append(b, []byte(s)...)
	return append(b, 0)
}

func appendAttr(b []byte, name, typ string, value []byte) []byte {
	b = appendString(b, name)
	b = appendString(b, typ)
	b = append(b, int32ToBytes(int32(len(value)))...)
	return append(b, value...)
}

func appendFloatAttr(b []byte, name string, v float32) []byte {
	return appendAttr(b, name, "float", float32sToBytes(v))
}

func appendBox2i(b []byte, name string, xMin, yMin, xMax, yMax int32) []byte {
	value := append(int32ToBytes(xMin), int32ToBytes(yMin)...)
	value = append(value, int32ToBytes(xMax)...)
	value = append(value, int32ToBytes(yMax)...)
	return appendAttr(b, name, "box2i", value)
}

// appendChannelsAttr writes the chlist attribute. OpenEXR requires
// channels to be sorted alphabetically by name; names must already be
// given in that order.
func appendChannelsAttr(b []byte, name string, channelNames []string) []byte {
	var value []byte
	for _, n := range channelNames {
		value = appendString(value, n)
		value = append(value, int32ToBytes(1)...) // pixel type: HALF
		value = append(value, 0, 0, 0, 0)          // pLinear + 3 reserved bytes
		value = append(value, int32ToBytes(1)...)  // xSampling
		value = append(value, int32ToBytes(1)...)  // ySampling
	}
	value = append(value, 0) // end of chlist
	return appendAttr(b, name, "chlist", value)
}

func int32ToBytes(v int32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(v))
	return buf
}

func float32sToBytes(vs ...float32) []byte {
	buf := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(v))
	}
	return buf
}
