package bsdf

import (
	"math"
	"testing"

	"github.com/rayforge/rayforge/pkg/math3d"
)

func approxVec3(a, b math3d.Vec3, eps float64) bool {
	return math.Abs(a.X-b.X) < eps && math.Abs(a.Y-b.Y) < eps && math.Abs(a.Z-b.Z) < eps
}

func TestLambertianEvaluateIsReflectanceOverPi(t *testing.T) {
	frame := NewFrame(math3d.V3(0, 0, 1))
	reflectance := math3d.V3(0.5, 0.6, 0.7)
	l := NewLambertian(frame, reflectance)

	wo := math3d.V3(0, 0, 1)
	wi := math3d.V3(0.3, 0.1, 1).Normalize()

	got := l.Evaluate(wo, wi)
	want := reflectance.Scale(1 / math.Pi)
	if !approxVec3(got, want, 1e-12) {
		t.Fatalf("Evaluate() = %+v, want %+v", got, want)
	}
}

func TestLambertianPdfMatchesCosineWeighting(t *testing.T) {
	frame := NewFrame(math3d.V3(0, 0, 1))
	l := NewLambertian(frame, math3d.V3(1, 1, 1))

	wi := math3d.V3(0, 0, 1)
	got := l.Pdf(math3d.V3(0, 0, 1), wi)
	want := 1.0 / math.Pi
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("Pdf() = %v, want %v", got, want)
	}
}

func TestLambertianSampleStaysAboveHorizon(t *testing.T) {
	frame := NewFrame(math3d.V3(0, 1, 0))
	l := NewLambertian(frame, math3d.V3(0.8, 0.8, 0.8))
	wo := math3d.V3(0, 1, 0)

	for i := 0; i < 64; i++ {
		u := math3d.V2(float64(i)/64, float64(i*7%64)/64)
		_, wi, pdf, ok := l.Sample(u, wo)
		if !ok {
			t.Fatalf("sample %d rejected unexpectedly", i)
		}
		if frame.Normal.Dot(wi) < -1e-9 {
			t.Fatalf("sample %d produced below-horizon direction %+v", i, wi)
		}
		if pdf <= 0 {
			t.Fatalf("sample %d has non-positive pdf %v", i, pdf)
		}
	}
}

func TestMetalEvaluateMatchesSamplePdfAtSameDirection(t *testing.T) {
	frame := NewFrame(math3d.V3(0, 0, 1))
	m := NewMetal(frame, 0.2, false, 1.0, math3d.V3(0.2, 0.2, 0.2), math3d.V3(3, 3, 3))
	wo := math3d.V3(0, 0, 1)

	u := math3d.V2(0.37, 0.61)
	f, wi, pdf, ok := m.Sample(u, wo)
	if !ok {
		t.Fatal("sample rejected")
	}
	if pdf <= 0 {
		t.Fatalf("pdf = %v, want > 0", pdf)
	}
	f2 := m.Evaluate(wo, wi)
	if !approxVec3(f, f2, 1e-9) {
		t.Fatalf("Sample() f = %+v, Evaluate() at same wi = %+v", f, f2)
	}
	pdf2 := m.Pdf(wo, wi)
	if math.Abs(pdf-pdf2) > 1e-9 {
		t.Fatalf("Sample() pdf = %v, Pdf() = %v", pdf, pdf2)
	}
}

func TestPlasticPdfIsAverageOfDiffuseAndSpecular(t *testing.T) {
	frame := NewFrame(math3d.V3(0, 0, 1))
	p := NewPlastic(frame, 0.3, false, 0.05, math3d.V3(0.5, 0.5, 0.5))

	wo := math3d.V3(0.1, 0, 1).Normalize()
	wi := math3d.V3(-0.1, 0.05, 1).Normalize()

	diffusePdf := frame.Normal.Dot(wi) / math.Pi
	wh := microfacetHalfVector(wo, wi)
	specPdf := microfacetWiPdf(wo, wh, frame.Normal, p.Alpha)
	want := 0.5 * (diffusePdf + specPdf)

	got := p.Pdf(wo, wi)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("Pdf() = %v, want %v", got, want)
	}
}

func TestSchlickFresnelAtNormalIncidenceIsR0(t *testing.T) {
	r0 := math3d.V3(0.04, 0.04, 0.04)
	got := SchlickFresnel(r0, 1.0)
	if !approxVec3(got, r0, 1e-12) {
		t.Fatalf("SchlickFresnel(r0, 1) = %+v, want %+v", got, r0)
	}
}

func TestSchlickFresnelAtGrazingIncidenceApproachesOne(t *testing.T) {
	r0 := math3d.V3(0.04, 0.04, 0.04)
	got := SchlickFresnel(r0, 0.001)
	if got.X < 0.9 {
		t.Fatalf("SchlickFresnel at grazing incidence = %+v, want close to 1", got)
	}
}

func TestDielectricFresnelTotalInternalReflection(t *testing.T) {
	// eta = eta_t/eta_i = 1/1.5 (exiting glass into air) at a grazing
	// angle should hit total internal reflection: F == 1.
	got := DielectricFresnel(0.05, 1.0/1.5)
	if got != 1.0 {
		t.Fatalf("DielectricFresnel() = %v, want 1 (total internal reflection)", got)
	}
}

func TestGGXDistributionPeaksAtNormalIncidence(t *testing.T) {
	n := math3d.V3(0, 0, 1)
	atNormal := ggx.D(n, n, 0.1)
	offNormal := ggx.D(math3d.V3(0.3, 0, 0.95).Normalize(), n, 0.1)
	if atNormal <= offNormal {
		t.Fatalf("D(normal) = %v, D(off-normal) = %v; expected normal-incidence peak", atNormal, offNormal)
	}
}

func TestRoughnessToAlphaBypassWhenIsAlpha(t *testing.T) {
	got := RoughnessToAlpha(0.37, true)
	if got != 0.37 {
		t.Fatalf("RoughnessToAlpha(roughnessIsAlpha=true) = %v, want 0.37 unchanged", got)
	}
}

func TestFrameRoundTrip(t *testing.T) {
	frame := NewFrame(math3d.V3(0.2, 0.9, 0.1).Normalize())
	v := math3d.V3(0.4, -0.2, 0.7)
	local := frame.ToLocal(v)
	back := frame.ToWorld(local)
	if !approxVec3(back, v, 1e-9) {
		t.Fatalf("round trip = %+v, want %+v", back, v)
	}
}

func TestDiffuseTransmissionSplitsEnergyAcrossHemispheres(t *testing.T) {
	frame := NewFrame(math3d.V3(0, 0, 1))
	d := NewDiffuseTransmission(frame, math3d.V3(0.8, 0.8, 0.8), math3d.V3(0.2, 0.2, 0.2))

	wo := math3d.V3(0, 0, 1)
	reflected := math3d.V3(0, 0, 1)
	transmitted := math3d.V3(0, 0, -1)

	fr := d.Evaluate(wo, reflected)
	ft := d.Evaluate(wo, transmitted)
	if !approxVec3(fr, math3d.V3(0.8/math.Pi, 0.8/math.Pi, 0.8/math.Pi), 1e-12) {
		t.Fatalf("reflected Evaluate() = %+v", fr)
	}
	if !approxVec3(ft, math3d.V3(0.2/math.Pi, 0.2/math.Pi, 0.2/math.Pi), 1e-12) {
		t.Fatalf("transmitted Evaluate() = %+v", ft)
	}
}
