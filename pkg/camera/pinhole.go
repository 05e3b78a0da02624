// Package camera implements the pinhole camera model used to generate
// primary rays: out of scope for spec.md itself (spec.md 1's "the camera
// projection model" is an external collaborator), but required by
// SPEC_FULL.md 4.9 to drive the path integrator end to end. Adapted from
// the teacher's pkg/render.Camera, trimmed of its view/projection matrix
// pipeline and interactive rotation controls (screen-space rasterizer
// concerns that have no ray-generation counterpart).
package camera

import (
	"math"

	"github.com/rayforge/rayforge/pkg/geometry"
	"github.com/rayforge/rayforge/pkg/math3d"
)

// Camera is a pinhole camera: a position, an orthonormal basis, and a
// vertical field of view. GetRay maps a film-plane sample to a world
// space ray; there is no clip space, no projection matrix, and no
// depth buffer, since none of that exists downstream of a ray tracer.
type Camera struct {
	Position math3d.Vec3

	forward math3d.Vec3
	right   math3d.Vec3
	up      math3d.Vec3

	fov         float64 // vertical field of view, radians
	aspectRatio float64

	halfHeight float64
	halfWidth  float64
}

// NewCamera creates a camera at the origin looking down -Z, matching
// the teacher's NewCamera defaults for FOV and aspect ratio.
func NewCamera() *Camera {
	c := &Camera{
		Position:    math3d.Zero3(),
		forward:     math3d.Forward(),
		right:       math3d.Right(),
		up:          math3d.Up(),
		fov:         math.Pi / 3,
		aspectRatio: 16.0 / 9.0,
	}
	c.recomputeFilm()
	return c
}

// SetPosition moves the camera.
func (c *Camera) SetPosition(pos math3d.Vec3) { c.Position = pos }

// SetFOV sets the vertical field of view in radians.
func (c *Camera) SetFOV(fov float64) {
	c.fov = fov
	c.recomputeFilm()
}

// SetAspectRatio sets width/height.
func (c *Camera) SetAspectRatio(aspect float64) {
	c.aspectRatio = aspect
	c.recomputeFilm()
}

// LookAt orients the camera toward target, with the given world-up hint
// used to build the right/up basis (Gram-Schmidt against forward).
func (c *Camera) LookAt(target, worldUp math3d.Vec3) {
	c.forward = target.Sub(c.Position).Normalize()
	c.right = c.forward.Cross(worldUp).Normalize()
	c.up = c.right.Cross(c.forward)
}

func (c *Camera) recomputeFilm() {
	c.halfHeight = math.Tan(c.fov / 2)
	c.halfWidth = c.halfHeight * c.aspectRatio
}

// GetRay returns the primary ray through film-plane coordinates (u, v),
// each in [0, 1), with (0, 0) the top-left corner of the image and v
// increasing downward. Any per-pixel sample jitter is already folded
// into (u, v) by the caller.
func (c *Camera) GetRay(u, v float64) geometry.Ray {
	ndcX := (2*u - 1) * c.halfWidth
	ndcY := (1 - 2*v) * c.halfHeight

	dir := c.forward.Add(c.right.Scale(ndcX)).Add(c.up.Scale(ndcY)).Normalize()
	return geometry.NewRay(c.Position, dir)
}
