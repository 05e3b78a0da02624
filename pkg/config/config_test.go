package config

import "testing"

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load([]string{"mesh.obj"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MeshPath != "mesh.obj" {
		t.Fatalf("MeshPath = %q, want mesh.obj", cfg.MeshPath)
	}
	if cfg.MaxLightBounces != 32 {
		t.Fatalf("MaxLightBounces = %d, want 32", cfg.MaxLightBounces)
	}
	if cfg.RenderingAlgorithm != PathTracer {
		t.Fatalf("RenderingAlgorithm = %v, want PathTracer", cfg.RenderingAlgorithm)
	}
	if cfg.PixelFilterType != Box {
		t.Fatalf("PixelFilterType = %v, want Box", cfg.PixelFilterType)
	}
}

func TestLoadRequiresMeshPath(t *testing.T) {
	if _, err := Load(nil); err == nil {
		t.Fatal("Load() with no positional argument should return an error")
	}
}

func TestLoadRejectsUnknownAlgorithm(t *testing.T) {
	if _, err := Load([]string{"-algorithm=bogus", "mesh.obj"}); err == nil {
		t.Fatal("Load() with an unknown -algorithm should return an error")
	}
}

func TestEffectiveMaxBouncesClampsDirectLighting(t *testing.T) {
	cfg, err := Load([]string{"-algorithm=direct-lighting", "-max-bounces=32", "mesh.obj"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := cfg.EffectiveMaxBounces(); got != 1 {
		t.Fatalf("EffectiveMaxBounces() = %d, want 1 for direct-lighting", got)
	}
}
