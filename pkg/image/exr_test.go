package image

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/rayforge/rayforge/pkg/math3d"
)

func TestWriteEXRProducesValidMagicAndVersion(t *testing.T) {
	img := NewImage(2, 2)
	img.Set(0, 0, math3d.V3(1, 0, 0))
	img.Set(1, 0, math3d.V3(0, 1, 0))
	img.Set(0, 1, math3d.V3(0, 0, 1))
	img.Set(1, 1, math3d.V3(1, 1, 1))

	var buf bytes.Buffer
	if err := writeEXR(&buf, img); err != nil {
		t.Fatalf("writeEXR: %v", err)
	}

	data := buf.Bytes()
	if len(data) < 8 {
		t.Fatal("output too short to contain a magic number and version")
	}
	wantMagic := []byte{0x76, 0x2f, 0x31, 0x01}
	if !bytes.Equal(data[:4], wantMagic) {
		t.Fatalf("magic number = % x, want % x", data[:4], wantMagic)
	}
	if data[4] != 2 {
		t.Fatalf("version = %d, want 2", data[4])
	}
}

func TestWriteEXRHeaderEndsBeforeScanlineOffsets(t *testing.T) {
	img := NewImage(4, 3)
	var buf bytes.Buffer
	if err := writeEXR(&buf, img); err != nil {
		t.Fatalf("writeEXR: %v", err)
	}
	data := buf.Bytes()

	// The attribute list must terminate with a single 0x00 byte directly
	// before the scanline offset table, and the first offset must point
	// just past that table.
	idx := bytes.Index(data, []byte("channels\x00chlist\x00"))
	if idx < 0 {
		t.Fatal("channels attribute not found in header")
	}

	rowBytes := img.Width * 3 * 2
	expectedChunkBytes := img.Height * (8 + rowBytes)
	if len(data) < expectedChunkBytes {
		t.Fatalf("output length %d too short for %d scanlines of %d bytes each",
			len(data), img.Height, rowBytes)
	}

	headerEnd := len(data) - expectedChunkBytes - img.Height*8
	if headerEnd <= idx || data[headerEnd-1] != 0 {
		t.Fatalf("byte before the offset table (at %d) is not the header's 0x00 terminator", headerEnd)
	}
	if got, want := binary.LittleEndian.Uint64(data[headerEnd:]), uint64(headerEnd+img.Height*8); got != want {
		t.Fatalf("first scanline offset = %d, want %d", got, want)
	}
}

func TestWriteEXRScanlineYCoordinatesIncreaseInOrder(t *testing.T) {
	img := NewImage(1, 3)
	var buf bytes.Buffer
	if err := writeEXR(&buf, img); err != nil {
		t.Fatalf("writeEXR: %v", err)
	}
	data := buf.Bytes()

	rowBytes := img.Width * 3 * 2
	chunkSize := 8 + rowBytes
	offsetTableStart := len(data) - img.Height*chunkSize - img.Height*8
	if offsetTableStart < 0 {
		t.Fatal("computed offset table start is negative; header length assumption wrong")
	}

	chunkStart := len(data) - img.Height*chunkSize
	for y := 0; y < img.Height; y++ {
		gotY := binary.LittleEndian.Uint32(data[chunkStart : chunkStart+4])
		if int(gotY) != y {
			t.Errorf("scanline %d has y coordinate %d", y, gotY)
		}
		chunkStart += chunkSize
	}
}

func TestWriteEXREncodesChannelValuesAsHalfFloats(t *testing.T) {
	img := NewImage(1, 1)
	img.Set(0, 0, math3d.V3(1, 2, 3))

	var buf bytes.Buffer
	if err := writeEXR(&buf, img); err != nil {
		t.Fatalf("writeEXR: %v", err)
	}
	data := buf.Bytes()

	rowBytes := img.Width * 3 * 2
	pixelData := data[len(data)-rowBytes:]

	bHalf := binary.LittleEndian.Uint16(pixelData[0:2])
	gHalf := binary.LittleEndian.Uint16(pixelData[2:4])
	rHalf := binary.LittleEndian.Uint16(pixelData[4:6])

	if got := HalfToFloat(bHalf); got != 3 {
		t.Errorf("B channel = %v, want 3", got)
	}
	if got := HalfToFloat(gHalf); got != 2 {
		t.Errorf("G channel = %v, want 2", got)
	}
	if got := HalfToFloat(rHalf); got != 1 {
		t.Errorf("R channel = %v, want 1", got)
	}
}
