package bsdf

import (
	"math"

	"github.com/rayforge/rayforge/pkg/math3d"
)

// CoatedDiffuse is the Ashikhmin-Shirley-Phong model: a Schlick-Fresnel
// glossy coat over a diffuse substrate whose diffuse term is attenuated
// by (1 - coat reflectance) and a non-Lambertian angular falloff,
// grounded on reference/bsdf.cpp's Ashikhmin_Shirley_Phong_BRDF ("An
// Anisotropic Phong Light Reflection Model", Ashikhmin & Shirley).
type CoatedDiffuse struct {
	frame              Frame
	Alpha              float64
	R0                 math3d.Vec3 // glossy-layer reflectance at normal incidence
	DiffuseReflectance math3d.Vec3
}

func NewCoatedDiffuse(frame Frame, roughness float64, roughnessIsAlpha bool, r0, diffuseReflectance math3d.Vec3) *CoatedDiffuse {
	return &CoatedDiffuse{
		frame:              frame,
		Alpha:              RoughnessToAlpha(roughness, roughnessIsAlpha),
		R0:                 r0,
		DiffuseReflectance: diffuseReflectance,
	}
}

func (c *CoatedDiffuse) Frame() Frame { return c.frame }

func pow5(v float64) float64 { return (v * v) * (v * v) * v }

func (c *CoatedDiffuse) Evaluate(wo, wi math3d.Vec3) math3d.Vec3 {
	n := c.frame.Normal
	wh := microfacetHalfVector(wo, wi)
	cosThetaI := wi.Dot(wh)

	f := SchlickFresnel(c.R0, cosThetaI)
	d := ggx.D(wh, n, c.Alpha)

	denom := 4 * cosThetaI * math.Max(n.Dot(wo), n.Dot(wi))
	var specular math3d.Vec3
	if denom > 0 {
		specular = f.Scale(d / denom)
	}

	one := math3d.V3(1, 1, 1)
	diffuse := c.DiffuseReflectance.Mul(one.Sub(c.R0)).
		Scale(28.0 / (23.0 * math.Pi) *
			(1 - pow5(1-0.5*n.Dot(wi))) *
			(1 - pow5(1-0.5*n.Dot(wo))))

	return diffuse.Add(specular)
}

func (c *CoatedDiffuse) Sample(u math3d.Vec2, wo math3d.Vec3) (math3d.Vec3, math3d.Vec3, float64, bool) {
	wi := sampleDiffuseSpecularMix(c.frame, u, wo, c.Alpha)
	if c.frame.Normal.Dot(wi) <= 0 {
		return math3d.Zero3(), wi, 0, false
	}
	pdf := c.Pdf(wo, wi)
	return c.Evaluate(wo, wi), wi, pdf, true
}

func (c *CoatedDiffuse) Pdf(wo, wi math3d.Vec3) float64 {
	return diffuseSpecularMixPdf(c.frame, wo, wi, c.Alpha)
}
