package preview

import (
	"testing"

	"github.com/rayforge/rayforge/pkg/image"
	"github.com/rayforge/rayforge/pkg/math3d"
)

func TestNewFramebufferClampsOverbrightValues(t *testing.T) {
	img := image.NewImage(1, 1)
	img.Set(0, 0, math3d.V3(4, 4, 4))

	fb := NewFramebuffer(img)
	r, g, b, a := fb.At(0, 0)
	if r != 255 || g != 255 || b != 255 {
		t.Fatalf("At(0,0) = (%d,%d,%d), want (255,255,255) after clamping", r, g, b)
	}
	if a != 255 {
		t.Fatalf("alpha = %d, want 255", a)
	}
}

func TestNewFramebufferAppliesGammaToMidtones(t *testing.T) {
	img := image.NewImage(1, 1)
	img.Set(0, 0, math3d.V3(0.5, 0.5, 0.5))

	fb := NewFramebuffer(img)
	r, _, _, _ := fb.At(0, 0)
	// 0.5^(1/2.2) * 255 ~= 186, well above a naive linear 0.5*255=128.
	if r < 150 || r > 220 {
		t.Fatalf("gamma-corrected channel = %d, want roughly 186", r)
	}
}

func TestFramebufferAtOutOfBoundsReturnsTransparent(t *testing.T) {
	fb := NewFramebuffer(image.NewImage(2, 2))
	r, g, b, a := fb.At(5, 5)
	if r != 0 || g != 0 || b != 0 || a != 0 {
		t.Fatalf("out-of-bounds At() = (%d,%d,%d,%d), want all zero", r, g, b, a)
	}
}
