package bsdf

import "github.com/rayforge/rayforge/pkg/math3d"

// Metal is a pure specular GGX conductor, grounded on
// reference/bsdf.cpp's Metal_BRDF and reference/scattering.cpp's
// conductor_fresnel.
type Metal struct {
	frame Frame
	Alpha float64
	EtaI  float64 // index of refraction of the adjacent dielectric (usually air, 1.0)
	EtaT  math3d.Vec3
	KT    math3d.Vec3
}

func NewMetal(frame Frame, roughness float64, roughnessIsAlpha bool, etaI float64, etaT, kT math3d.Vec3) *Metal {
	return &Metal{
		frame: frame,
		Alpha: RoughnessToAlpha(roughness, roughnessIsAlpha),
		EtaI:  etaI,
		EtaT:  etaT,
		KT:    kT,
	}
}

func (m *Metal) Frame() Frame { return m.frame }

func (m *Metal) Evaluate(wo, wi math3d.Vec3) math3d.Vec3 {
	n := m.frame.Normal
	wh := microfacetHalfVector(wo, wi)
	cosThetaI := wi.Dot(wh)

	f := ConductorFresnel(cosThetaI, m.EtaI, m.EtaT, m.KT)
	d := ggx.D(wh, n, m.Alpha)
	g := ggx.G(wi, wo, n, m.Alpha)

	denom := 4 * n.Dot(wo) * n.Dot(wi)
	if denom <= 0 {
		return math3d.Zero3()
	}
	return f.Scale(g * d / denom)
}

func (m *Metal) Sample(u math3d.Vec2, wo math3d.Vec3) (math3d.Vec3, math3d.Vec3, float64, bool) {
	n := m.frame.Normal
	whLocal := sampleMicrofacetNormal(u, m.Alpha)
	wh := m.frame.ToWorld(whLocal)
	wi := reflect(wo, wh)

	if n.Dot(wi) <= 0 {
		return math3d.Zero3(), wi, 0, false
	}
	pdf := microfacetWiPdf(wo, wh, n, m.Alpha)
	return m.Evaluate(wo, wi), wi, pdf, true
}

func (m *Metal) Pdf(wo, wi math3d.Vec3) float64 {
	wh := microfacetHalfVector(wo, wi)
	return microfacetWiPdf(wo, wh, m.frame.Normal, m.Alpha)
}
