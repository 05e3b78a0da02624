package bsdf

import (
	"math"

	"github.com/rayforge/rayforge/pkg/math3d"
)

// Lambertian is a perfectly diffuse reflector, grounded on
// reference/bsdf.cpp's Lambertian_BRDF.
type Lambertian struct {
	frame       Frame
	Reflectance math3d.Vec3
}

// NewLambertian builds a Lambertian BSDF in the given shading frame.
func NewLambertian(frame Frame, reflectance math3d.Vec3) *Lambertian {
	return &Lambertian{frame: frame, Reflectance: reflectance}
}

func (l *Lambertian) Frame() Frame { return l.frame }

func (l *Lambertian) Evaluate(wo, wi math3d.Vec3) math3d.Vec3 {
	return l.Reflectance.Scale(1 / math.Pi)
}

func (l *Lambertian) Sample(u math3d.Vec2, wo math3d.Vec3) (math3d.Vec3, math3d.Vec3, float64, bool) {
	local := sampleHemisphereCosine(u)
	wi := l.frame.ToWorld(local)
	pdf := l.Pdf(wo, wi)
	return l.Evaluate(wo, wi), wi, pdf, true
}

func (l *Lambertian) Pdf(wo, wi math3d.Vec3) float64 {
	cosTheta := l.frame.Normal.Dot(wi)
	if cosTheta < 0 {
		return 0
	}
	return cosineHemispherePdf(cosTheta)
}

// DiffuseTransmission is a two-sided diffuse BSDF: it reflects into the
// wo hemisphere with Reflectance and transmits into the opposite
// hemisphere with Transmittance, chosen by relative albedo, grounded on
// reference/bsdf.cpp's Diffuse_Transmission_BSDF.
type DiffuseTransmission struct {
	frame                    Frame
	Reflectance, Transmittance math3d.Vec3
}

func NewDiffuseTransmission(frame Frame, reflectance, transmittance math3d.Vec3) *DiffuseTransmission {
	return &DiffuseTransmission{frame: frame, Reflectance: reflectance, Transmittance: transmittance}
}

func (d *DiffuseTransmission) Frame() Frame { return d.frame }

func (d *DiffuseTransmission) Evaluate(wo, wi math3d.Vec3) math3d.Vec3 {
	sameHemisphere := wo.Dot(d.frame.Normal)*wi.Dot(d.frame.Normal) > 0
	if sameHemisphere {
		return d.Reflectance.Scale(1 / math.Pi)
	}
	return d.Transmittance.Scale(1 / math.Pi)
}

func (d *DiffuseTransmission) reflectTransmitWeights() (float64, float64) {
	maxR := maxComponent(d.Reflectance)
	maxT := maxComponent(d.Transmittance)
	if maxR+maxT == 0 {
		return 0.5, 0.5
	}
	return maxR / (maxR + maxT), maxT / (maxR + maxT)
}

func (d *DiffuseTransmission) Sample(u math3d.Vec2, wo math3d.Vec3) (math3d.Vec3, math3d.Vec3, float64, bool) {
	p, _ := d.reflectTransmitWeights()
	var local math3d.Vec3
	if u.X < p {
		u2 := math3d.V2(minOneMinusEpsilon(u.X/p), u.Y)
		local = sampleHemisphereCosine(u2)
	} else {
		u2 := math3d.V2(minOneMinusEpsilon((u.X-p)/(1-p)), u.Y)
		local = sampleHemisphereCosine(u2).Scale(-1)
	}
	wi := d.frame.ToWorld(local)
	pdf := d.Pdf(wo, wi)
	return d.Evaluate(wo, wi), wi, pdf, true
}

func (d *DiffuseTransmission) Pdf(wo, wi math3d.Vec3) float64 {
	p, q := d.reflectTransmitWeights()
	cosTheta := math.Abs(d.frame.Normal.Dot(wi))
	pdf := cosineHemispherePdf(cosTheta)
	sameHemisphere := wo.Dot(d.frame.Normal)*wi.Dot(d.frame.Normal) > 0
	if sameHemisphere {
		return p * pdf
	}
	return q * pdf
}

func maxComponent(c math3d.Vec3) float64 {
	m := c.X
	if c.Y > m {
		m = c.Y
	}
	if c.Z > m {
		m = c.Z
	}
	return m
}

func minOneMinusEpsilon(v float64) float64 {
	const oneMinusEpsilon = 1 - 1e-7
	if v < oneMinusEpsilon {
		return v
	}
	return oneMinusEpsilon
}
