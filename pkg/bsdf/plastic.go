package bsdf

import (
	"math"

	"github.com/rayforge/rayforge/pkg/math3d"
)

// Plastic is a 50/50 mixture of a Lambertian diffuse base and a GGX
// specular coat with a fixed dielectric normal-incidence reflectance
// r0, sampled and weighted equally between the two lobes, grounded on
// reference/bsdf.cpp's Plastic_BRDF.
type Plastic struct {
	frame               Frame
	Alpha               float64
	R0                  float64
	DiffuseReflectance  math3d.Vec3
}

func NewPlastic(frame Frame, roughness float64, roughnessIsAlpha bool, r0 float64, diffuseReflectance math3d.Vec3) *Plastic {
	return &Plastic{
		frame:              frame,
		Alpha:              RoughnessToAlpha(roughness, roughnessIsAlpha),
		R0:                 r0,
		DiffuseReflectance: diffuseReflectance,
	}
}

func (p *Plastic) Frame() Frame { return p.frame }

func (p *Plastic) Evaluate(wo, wi math3d.Vec3) math3d.Vec3 {
	n := p.frame.Normal
	wh := microfacetHalfVector(wo, wi)
	cosThetaI := wi.Dot(wh)

	f := SchlickFresnel(math3d.V3(0.04, 0.04, 0.04), cosThetaI)
	d := ggx.D(wh, n, p.Alpha)
	g := ggx.G(wi, wo, n, p.Alpha)

	denom := 4 * n.Dot(wo) * n.Dot(wi)
	var specular math3d.Vec3
	if denom > 0 {
		specular = f.Scale(g * d * p.R0 / denom)
	}
	diffuse := p.DiffuseReflectance.Scale(1 / math.Pi)
	return diffuse.Add(specular)
}

func (p *Plastic) Sample(u math3d.Vec2, wo math3d.Vec3) (math3d.Vec3, math3d.Vec3, float64, bool) {
	wi := p.sampleDirection(u, wo)
	if p.frame.Normal.Dot(wi) <= 0 {
		return math3d.Zero3(), wi, 0, false
	}
	pdf := p.Pdf(wo, wi)
	return p.Evaluate(wo, wi), wi, pdf, true
}

// sampleDirection implements the shared diffuse/specular 50-50 mixture
// sampling strategy reused (with different evaluate/pdf) by Plastic,
// CoatedDiffuse, and Pbrt3Uber below.
func (p *Plastic) sampleDirection(u math3d.Vec2, wo math3d.Vec3) math3d.Vec3 {
	return sampleDiffuseSpecularMix(p.frame, u, wo, p.Alpha)
}

func (p *Plastic) Pdf(wo, wi math3d.Vec3) float64 {
	return diffuseSpecularMixPdf(p.frame, wo, wi, p.Alpha)
}

// sampleDiffuseSpecularMix draws wi from a cosine-weighted diffuse lobe
// with probability 1/2 and a GGX-reflected specular lobe otherwise,
// exactly the remap-and-dispatch pattern every 50/50 BRDF in
// reference/bsdf.cpp performs inline in its own sample().
func sampleDiffuseSpecularMix(frame Frame, u math3d.Vec2, wo math3d.Vec3, alpha float64) math3d.Vec3 {
	if u.X < 0.5 {
		u2 := math3d.V2(u.X*2, u.Y)
		local := sampleHemisphereCosine(u2)
		return frame.ToWorld(local)
	}
	u2 := math3d.V2((u.X-0.5)*2, u.Y)
	whLocal := sampleMicrofacetNormal(u2, alpha)
	wh := frame.ToWorld(whLocal)
	return reflect(wo, wh)
}

func diffuseSpecularMixPdf(frame Frame, wo, wi math3d.Vec3, alpha float64) float64 {
	n := frame.Normal
	cosTheta := n.Dot(wi)
	if cosTheta < 0 {
		return 0
	}
	diffusePdf := cosTheta / math.Pi
	wh := microfacetHalfVector(wo, wi)
	specularPdf := microfacetWiPdf(wo, wh, n, alpha)
	return 0.5 * (diffusePdf + specularPdf)
}
