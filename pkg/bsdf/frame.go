// Package bsdf implements the microfacet and Lambertian scattering models
// evaluated at a shading point: Lambertian, diffuse transmission, GGX
// metal, plastic, coated-diffuse (Ashikhmin-Shirley-Phong) and the two
// pbrt3-compatible variants (Uber, Plastic). Every BSDF shares the same
// evaluate/sample/pdf contract so the path integrator can treat them
// uniformly, grounded on the teacher's Shading_Context/BSDF split in
// reference/bsdf.h and reference/bsdf.cpp.
package bsdf

import "github.com/rayforge/rayforge/pkg/math3d"

// Frame is the orthonormal shading basis (tangent, bitangent, normal) at
// a shading point. BSDF sampling draws directions in this local space,
// where the shading normal is (0, 0, 1), and rotates them to world space
// with ToWorld; Evaluate and Pdf take world-space directions and use
// Normal directly. Mirrors BSDF::local_to_world/world_to_local.
type Frame struct {
	Tangent, Bitangent, Normal math3d.Vec3
}

// NewFrame builds an orthonormal frame from a shading normal alone,
// using Duff et al.'s branchless tangent construction (the reference
// renderer instead carries an explicit tangent from the mesh/shading
// context; when no tangent is available — e.g. procedural geometry —
// this is the standard fallback).
func NewFrame(normal math3d.Vec3) Frame {
	n := normal.Normalize()
	sign := 1.0
	if n.Z < 0 {
		sign = -1.0
	}
	a := -1.0 / (sign + n.Z)
	b := n.X * n.Y * a
	tangent := math3d.V3(1+sign*n.X*n.X*a, sign*b, -sign*n.X)
	bitangent := math3d.V3(b, sign+n.Y*n.Y*a, -n.Y)
	return Frame{Tangent: tangent, Bitangent: bitangent, Normal: n}
}

// NewFrameFromTangent builds a frame from an explicit shading normal and
// tangent (e.g. derived from a mesh's UV parameterization), orthogonalizing
// the tangent against the normal and deriving the bitangent via cross
// product, as the reference renderer's Shading_Context does when a mesh
// supplies per-vertex tangents.
func NewFrameFromTangent(normal, tangent math3d.Vec3) Frame {
	n := normal.Normalize()
	t := tangent.Sub(n.Scale(n.Dot(tangent))).Normalize()
	b := n.Cross(t)
	return Frame{Tangent: t, Bitangent: b, Normal: n}
}

// ToWorld rotates a local-space direction into world space.
func (f Frame) ToWorld(local math3d.Vec3) math3d.Vec3 {
	return math3d.V3(
		f.Tangent.X*local.X+f.Bitangent.X*local.Y+f.Normal.X*local.Z,
		f.Tangent.Y*local.X+f.Bitangent.Y*local.Y+f.Normal.Y*local.Z,
		f.Tangent.Z*local.X+f.Bitangent.Z*local.Y+f.Normal.Z*local.Z,
	)
}

// ToLocal rotates a world-space direction into the shading frame.
func (f Frame) ToLocal(world math3d.Vec3) math3d.Vec3 {
	return math3d.V3(world.Dot(f.Tangent), world.Dot(f.Bitangent), world.Dot(f.Normal))
}
