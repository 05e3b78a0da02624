package bsdf

import (
	"math"

	"github.com/rayforge/rayforge/pkg/math3d"
)

// SchlickFresnel is Schlick's polynomial approximation to the Fresnel
// reflectance, grounded on reference/scattering.cpp's schlick_fresnel.
func SchlickFresnel(r0 math3d.Vec3, cosThetaI float64) math3d.Vec3 {
	k := 1 - math.Abs(cosThetaI)
	k5 := (k * k) * (k * k) * k
	one := math3d.V3(1, 1, 1)
	return r0.Add(one.Sub(r0).Scale(k5))
}

// DielectricFresnel is the exact unpolarized Fresnel reflectance at a
// dielectric boundary for relative index of refraction eta = eta_t/eta_i,
// grounded on reference/scattering.cpp's dielectric_fresnel. Returns 1
// under total internal reflection.
func DielectricFresnel(cosThetaI, eta float64) float64 {
	cosThetaI = math.Min(math.Abs(cosThetaI), 1)
	sinThetaI := math.Sqrt(math.Max(0, 1-cosThetaI*cosThetaI))
	sinThetaT := (1 / eta) * sinThetaI
	if sinThetaT >= 1 {
		return 1
	}
	cosThetaT := math.Sqrt(1 - sinThetaT*sinThetaT)

	rp := (eta*cosThetaI - cosThetaT) / (eta*cosThetaI + cosThetaT)
	rs := (cosThetaI - eta*cosThetaT) / (cosThetaI + eta*cosThetaT)
	return 0.5 * (rp*rp + rs*rs)
}

// ConductorFresnel is the exact unpolarized Fresnel reflectance at a
// conductor boundary given the dielectric's index etaI and the
// conductor's complex index (etaT, kT), grounded on
// reference/scattering.cpp's conductor_fresnel.
func ConductorFresnel(cosThetaI, etaI float64, etaT, kT math3d.Vec3) math3d.Vec3 {
	cosThetaI = math.Abs(clamp(cosThetaI, -1, 1))
	cos2ThetaI := cosThetaI * cosThetaI
	sin2ThetaI := 1 - cos2ThetaI

	eta := etaT.Scale(1 / etaI)
	k := kT.Scale(1 / etaI)
	eta2 := eta.Mul(eta)
	k2 := k.Mul(k)

	sin2 := math3d.V3(sin2ThetaI, sin2ThetaI, sin2ThetaI)
	t0 := eta2.Sub(k2).Sub(sin2)
	a2PlusB2 := vecSqrt(t0.Mul(t0).Add(eta2.Mul(k2).Scale(4)))
	t1 := a2PlusB2.Add(math3d.V3(cos2ThetaI, cos2ThetaI, cos2ThetaI))
	a := vecSqrt(a2PlusB2.Add(t0).Scale(0.5))
	t2 := a.Scale(2 * cosThetaI)
	rs := vecDiv(t1.Sub(t2), t1.Add(t2))

	sin2sq := math3d.V3(sin2ThetaI*sin2ThetaI, sin2ThetaI*sin2ThetaI, sin2ThetaI*sin2ThetaI)
	t3 := a2PlusB2.Scale(cos2ThetaI).Add(sin2sq)
	t4 := t2.Scale(sin2ThetaI)
	rp := vecDiv(rs.Mul(t3.Sub(t4)), t3.Add(t4))

	return rs.Add(rp).Scale(0.5)
}

func vecSqrt(v math3d.Vec3) math3d.Vec3 {
	return math3d.V3(math.Sqrt(math.Max(0, v.X)), math.Sqrt(math.Max(0, v.Y)), math.Sqrt(math.Max(0, v.Z)))
}

// vecDiv is component-wise division, needed only by ConductorFresnel's
// complex-index algebra (every other color operation in this package is
// add/scale/mul, which math3d.Vec3 already provides).
func vecDiv(a, b math3d.Vec3) math3d.Vec3 {
	return math3d.V3(a.X/b.X, a.Y/b.Y, a.Z/b.Z)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
