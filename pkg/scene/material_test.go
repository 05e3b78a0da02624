package scene

import (
	"testing"

	"github.com/rayforge/rayforge/pkg/bsdf"
	"github.com/rayforge/rayforge/pkg/delta"
	"github.com/rayforge/rayforge/pkg/math3d"
)

func TestMaterialPbrt3UberDeltaPopulatesBothBSDFAndDelta(t *testing.T) {
	m := &Material{
		Kind:                MaterialPbrt3UberDelta,
		DiffuseReflectance:  math3d.V3(0.5, 0.5, 0.5),
		SpecularReflectance: math3d.V3(0.9, 0.9, 0.9),
		Opacity:             math3d.V3(0.8, 0.8, 0.8),
		IndexOfRefraction:   1.5,
		UberDeltaComponents: []delta.Pbrt3UberComponent{delta.Pbrt3UberDeltaReflection, delta.Pbrt3UberOpacity},
	}

	frame := bsdf.NewFrame(math3d.V3(0, 1, 0))
	wo := math3d.V3(0, 1, 0)
	state := &delta.NestedDielectricState{}

	scattering := m.Scatter(frame, wo, state, 1, false, 0.1, math3d.Vec2{})
	if scattering.BSDF == nil {
		t.Fatal("Scatter() for MaterialPbrt3UberDelta returned a nil BSDF, want the finite Pbrt3Uber layer populated alongside the delta event")
	}
	if scattering.Delta == nil || scattering.Delta.Kind == delta.None {
		t.Fatal("Scatter() for MaterialPbrt3UberDelta returned no delta event")
	}
	if scattering.DeltaProbability != 1 {
		t.Fatalf("DeltaProbability = %v, want 1 (both configured components are delta-type)", scattering.DeltaProbability)
	}
}

func TestMaterialPbrt3UberDeltaFallsBackToBSDFOnUnsupportedTransmission(t *testing.T) {
	m := &Material{
		Kind:                MaterialPbrt3UberDelta,
		DiffuseReflectance:  math3d.V3(0.5, 0.5, 0.5),
		IndexOfRefraction:   1.5,
		UberDeltaComponents: []delta.Pbrt3UberComponent{delta.Pbrt3UberDeltaTransmission},
	}

	frame := bsdf.NewFrame(math3d.V3(0, 1, 0))
	wo := math3d.V3(0, 1, 0)
	state := &delta.NestedDielectricState{}

	scattering := m.Scatter(frame, wo, state, 1, false, 0.1, math3d.Vec2{})
	if scattering.Delta != nil {
		t.Fatalf("Scatter() = %+v, want no delta event when the only configured component is unsupported", scattering)
	}
	if scattering.BSDF == nil {
		t.Fatal("Scatter() should still return the finite BSDF when the delta layer is unsupported")
	}
}
