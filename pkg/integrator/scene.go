package integrator

import (
	"github.com/rayforge/rayforge/pkg/bsdf"
	"github.com/rayforge/rayforge/pkg/delta"
	"github.com/rayforge/rayforge/pkg/geometry"
	"github.com/rayforge/rayforge/pkg/math3d"
)

// Scene is the world the path tracer traces against: acceleration
// structure, lights, and environment in one seam so pkg/integrator
// never imports pkg/scene (pkg/scene instead implements this
// interface), grounded on spec.md 4.8's "Trace; if miss and environment
// light exists..." data flow.
type Scene interface {
	// Intersect finds the closest surface hit along ray within
	// [tMin, tMax], mirroring pkg/kdtree.KdTree.Intersect's contract one
	// level up the stack (post material/shading resolution).
	Intersect(ray geometry.Ray, tMin, tMax float64) (SurfaceHit, bool)

	// EnvironmentRadiance returns the radiance contributed by a miss
	// ray (zero if no environment light is configured).
	EnvironmentRadiance(ray geometry.Ray) math3d.Vec3

	// SampleLight picks a single light for the "one-sample" NEE
	// estimator given a selection random variable u, returning the
	// light and the probability it was selected.
	SampleLight(u float64) (Light, float64, bool)

	// LightPDF returns the combined probability density that SampleLight
	// followed by that light's own direction sampling would have
	// produced the direction wi from point — used to build the MIS
	// weight for BSDF-sampled directions during indirect lighting.
	LightPDF(point, wi math3d.Vec3) float64
}

// Light is a single emitter a scene can be asked to importance-sample
// for next-event estimation.
type Light interface {
	// Sample draws a direction toward the light from point, returning
	// the direction, distance to the sampled point, its pdf with
	// respect to solid angle at point, and the emitted radiance,
	// matching the one-sample MIS estimator's light-sampling half.
	Sample(point math3d.Vec3, u math3d.Vec2) (wi math3d.Vec3, dist float64, pdf float64, emission math3d.Vec3, ok bool)

	// PDF returns the solid-angle pdf of sampling direction wi from
	// point via Sample, used to build the BSDF-sampled direction's MIS
	// weight (the indirect-lighting half of the one-sample estimator).
	PDF(point, wi math3d.Vec3) float64
}

// Scattering bundles the two mutually-non-exclusive scattering modes a
// surface hit can expose, grounded on spec.md 4.8 step 3's "either a
// finite BSDF or a Delta event (possibly both)".
type Scattering struct {
	BSDF             bsdf.BSDF
	Delta            *delta.Event
	DeltaProbability float64

	// RemappedScatterU carries the leftover random variable after a
	// material's delta-layer component selection consumed part of the
	// uScatterType passed to Scatter, populated only when both BSDF and
	// Delta are set, mirroring get_pbrt_uber_info's in-place
	// u_scattering_type remap ("re-normalize ... so it can be re-used in
	// the bsdf pipeline"). The path tracer spends it on this bounce's
	// direct-lighting lobe choice via LobeEvaluator instead of drawing an
	// independent sample.
	RemappedScatterU float64
}

// LobeEvaluator is implemented by BSDFs that can evaluate a single
// internal lobe given a pre-drawn selector in [0,1), letting the path
// tracer reuse Scattering.RemappedScatterU for a material whose delta
// layer and finite BSDF both fire on the same bounce, rather than
// spending an extra independent sample on lobe selection.
type LobeEvaluator interface {
	EvaluateLobe(wo, wi math3d.Vec3, uLobe float64) (f math3d.Vec3, pdf float64)
}

// SurfaceHit is everything the integrator needs from a traced
// intersection once materials/shading have been resolved, grounded on
// spec.md 3's Shading_Context.
type SurfaceHit interface {
	Position() math3d.Vec3
	GeometricNormal() math3d.Vec3

	// EmittedRadiance returns the radiance emitted toward wo if this hit
	// lies on an area light, zero otherwise.
	EmittedRadiance(wo math3d.Vec3) math3d.Vec3

	// Scatter resolves the surface's scattering behavior at this hit,
	// consuming uScatterType the way the uber material's delta-layer
	// selection does (spec.md 4.7's "remap u into the bsdf pipeline
	// after extraction").
	Scatter(uScatterType float64) Scattering
}

// PowerHeuristic computes the β=2 power-heuristic MIS weight for
// strategy a given both strategies' sample counts and pdfs, grounded on
// spec.md 4.8's `w_a = pdf_a² / (pdf_a² + pdf_b²)` (nf, ng always 1 in
// this integrator's one-sample-per-strategy estimator, so they are
// omitted from the signature).
func PowerHeuristic(pdfA, pdfB float64) float64 {
	a2 := pdfA * pdfA
	b2 := pdfB * pdfB
	if a2+b2 == 0 {
		return 0
	}
	return a2 / (a2 + b2)
}
