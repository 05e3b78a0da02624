package scene

import (
	"fmt"
	"image"
	_ "image/jpeg" // registers the JPEG decoder used by embedded glTF images
	_ "image/png"  // registers the PNG decoder used by embedded glTF images
	"math"
	"os"

	"github.com/rayforge/rayforge/pkg/math3d"
)

// WrapMode controls how a Texture handles UV coordinates outside
// [0,1], adapted from the teacher's render.WrapMode.
type WrapMode int

const (
	WrapRepeat WrapMode = iota
	WrapClamp
)

// Texture is a 2D image sampled in linear color space by a
// texture-mapped Material parameter (spec.md's DOMAIN STACK calls for
// wiring glTF's embedded-image decoding into the material model;
// original_source/src/reference/image_texture.cpp is the grounding for
// bilinear-filtered, UV-wrapped lookups feeding a BSDF reflectance
// parameter). Adapted from the teacher's render.Texture: colors here
// are math3d.Vec3 linear radiance rather than 8-bit sRGB Color, and
// the procedural checker/gradient generators are dropped (no
// SPEC_FULL.md component needs them; see DESIGN.md).
type Texture struct {
	Width, Height int
	Pixels        []math3d.Vec3
	WrapU, WrapV  WrapMode
}

// LoadTexture decodes an image file (PNG/JPEG, matching the decoders
// glTF embedded images already require) into a Texture, srgb-decoding
// each 8-bit channel into linear float radiance.
func LoadTexture(path string) (*Texture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open texture %q: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode texture %q: %w", path, err)
	}
	return TextureFromImage(img), nil
}

// TextureFromImage converts a decoded image.Image (e.g. a glTF
// embedded PNG/JPEG) into a Texture.
func TextureFromImage(img image.Image) *Texture {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	tex := &Texture{Width: w, Height: h, Pixels: make([]math3d.Vec3, w*h)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			tex.Pixels[y*w+x] = math3d.V3(srgbToLinear(r), srgbToLinear(g), srgbToLinear(b))
		}
	}
	return tex
}

// srgbToLinear decodes a 16-bit pre-multiplied RGBA channel (as
// returned by image.Color.RGBA) into linear [0,1] radiance.
func srgbToLinear(c uint32) float64 {
	s := float64(c) / 65535
	if s <= 0.04045 {
		return s / 12.92
	}
	return math.Pow((s+0.055)/1.055, 2.4)
}

// Sample bilinearly samples the texture at UV coordinates in [0,1],
// flipping V the way the teacher's Sample does (image row 0 is the
// top, UV v=0 is conventionally the bottom).
func (t *Texture) Sample(uv math3d.Vec2) math3d.Vec3 {
	u := t.wrapCoord(uv.X, t.WrapU)
	v := t.wrapCoord(1-uv.Y, t.WrapV)

	fx := u*float64(t.Width) - 0.5
	fy := v*float64(t.Height) - 0.5
	x0, y0 := int(math.Floor(fx)), int(math.Floor(fy))
	x1, y1 := x0+1, y0+1
	tx, ty := fx-float64(x0), fy-float64(y0)

	x0 = t.wrapPixelCoord(x0, t.Width, t.WrapU)
	x1 = t.wrapPixelCoord(x1, t.Width, t.WrapU)
	y0 = t.wrapPixelCoord(y0, t.Height, t.WrapV)
	y1 = t.wrapPixelCoord(y1, t.Height, t.WrapV)

	c00, c10 := t.at(x0, y0), t.at(x1, y0)
	c01, c11 := t.at(x0, y1), t.at(x1, y1)
	top := c00.Scale(1 - tx).Add(c10.Scale(tx))
	bot := c01.Scale(1 - tx).Add(c11.Scale(tx))
	return top.Scale(1 - ty).Add(bot.Scale(ty))
}

func (t *Texture) at(x, y int) math3d.Vec3 {
	if x < 0 || x >= t.Width || y < 0 || y >= t.Height {
		return math3d.Zero3()
	}
	return t.Pixels[y*t.Width+x]
}

func (t *Texture) wrapCoord(c float64, mode WrapMode) float64 {
	switch mode {
	case WrapRepeat:
		return c - math.Floor(c)
	case WrapClamp:
		return math.Max(0, math.Min(1, c))
	}
	return c
}

func (t *Texture) wrapPixelCoord(x, size int, mode WrapMode) int {
	switch mode {
	case WrapRepeat:
		x %= size
		if x < 0 {
			x += size
		}
		return x
	case WrapClamp:
		if x < 0 {
			return 0
		}
		if x >= size {
			return size - 1
		}
		return x
	}
	return x
}
