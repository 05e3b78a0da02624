package bsdf

import "github.com/rayforge/rayforge/pkg/math3d"

// BSDF is the unified scattering-function contract every material
// variant below implements, grounded on reference/bsdf.h's abstract
// BSDF. wo and wi are both unit world-space directions pointing away
// from the surface (the "away from surface" convention the reference
// renderer uses throughout, rather than the incoming-ray convention).
type BSDF interface {
	// Evaluate returns f(wo, wi), the BSDF value for a given pair of
	// directions.
	Evaluate(wo, wi math3d.Vec3) math3d.Vec3

	// Sample draws an incident direction wi proportional to the BSDF's
	// importance sampling strategy, returning the BSDF value at
	// (wo, wi), the direction, and its pdf. ok is false when the drawn
	// direction lies below the horizon (geometrically invalid sample).
	Sample(u math3d.Vec2, wo math3d.Vec3) (f math3d.Vec3, wi math3d.Vec3, pdf float64, ok bool)

	// Pdf returns the probability density Sample would have assigned to
	// wi, used for multiple importance sampling against light sampling.
	Pdf(wo, wi math3d.Vec3) float64

	// Frame returns the shading frame the BSDF was constructed in, so
	// the integrator can test wo/wi against the geometric normal for
	// shadow terminator / light-leak handling.
	Frame() Frame
}

var ggx = GGXDistribution{}

// microfacetHalfVector is the shared (wo+wi) half-vector the microfacet
// models all compute in evaluate()/pdf().
func microfacetHalfVector(wo, wi math3d.Vec3) math3d.Vec3 {
	return wo.Add(wi).Normalize()
}
