package image

import "github.com/rayforge/rayforge/pkg/math3d"

// Image is the renderer's final output buffer: one linear RGB radiance
// value per pixel, row-major, top row first — matching the layout the
// reference renderer's write_exr_image builds before handing it to
// miniexr (see original_source/src/io/io.cpp).
type Image struct {
	Width, Height int
	Pixels        []math3d.Vec3
}

// NewImage allocates a zeroed image of the given dimensions.
func NewImage(width, height int) *Image {
	return &Image{Width: width, Height: height, Pixels: make([]math3d.Vec3, width*height)}
}

// Set stores the radiance value for pixel (x, y), with (0, 0) at the
// top-left corner.
func (img *Image) Set(x, y int, c math3d.Vec3) {
	img.Pixels[y*img.Width+x] = c
}

// At returns the radiance value stored at pixel (x, y).
func (img *Image) At(x, y int) math3d.Vec3 {
	return img.Pixels[y*img.Width+x]
}
