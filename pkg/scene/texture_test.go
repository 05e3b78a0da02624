package scene

import (
	"image"
	"image/color"
	"testing"

	"github.com/rayforge/rayforge/pkg/math3d"
)

func TestTextureFromImageSamplesNearestCorner(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	img.Set(1, 0, color.RGBA{G: 255, A: 255})
	img.Set(0, 1, color.RGBA{B: 255, A: 255})
	img.Set(1, 1, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	tex := TextureFromImage(img)
	if tex.Width != 2 || tex.Height != 2 {
		t.Fatalf("dimensions = %dx%d, want 2x2", tex.Width, tex.Height)
	}

	// Image row 0 (pure red) maps to UV v=1 (top) since Sample flips V;
	// (0.25, 0.75) is the centre of the top-left texel, where bilinear
	// filtering returns that texel unblended.
	c := tex.Sample(math3d.V2(0.25, 0.75))
	if c.X < 0.5 || c.Y > 0.1 || c.Z > 0.1 {
		t.Fatalf("Sample(near top-left) = %+v, want reddish", c)
	}
}

func TestTextureSampleWrapsRepeat(t *testing.T) {
	tex := &Texture{Width: 1, Height: 1, Pixels: []math3d.Vec3{math3d.V3(1, 0, 0)}}
	c := tex.Sample(math3d.V2(1.5, -0.5))
	if c.X != 1 {
		t.Fatalf("Sample() with repeat wrap = %+v, want the single stored texel", c)
	}
}

func TestMaterialDiffuseTextureOverridesConstantReflectance(t *testing.T) {
	tex := &Texture{Width: 1, Height: 1, Pixels: []math3d.Vec3{math3d.V3(0, 1, 0)}}
	m := &Material{Kind: MaterialLambertian, Reflectance: math3d.V3(1, 0, 0), DiffuseTexture: tex}
	got := m.diffuseColor(m.Reflectance, math3d.V2(0.5, 0.5))
	if got.X != 0 || got.Y != 1 {
		t.Fatalf("diffuseColor() = %+v, want the texture's green texel, not the constant red reflectance", got)
	}
}
