package scene

import (
	"github.com/rayforge/rayforge/pkg/bsdf"
	"github.com/rayforge/rayforge/pkg/delta"
	"github.com/rayforge/rayforge/pkg/geometry"
	"github.com/rayforge/rayforge/pkg/integrator"
	"github.com/rayforge/rayforge/pkg/kdtree"
	"github.com/rayforge/rayforge/pkg/math3d"
)

// Scene is the flattened world-space scene the renderer traces
// against: a single merged mesh/kd-tree over every triangle (per
// SPEC_FULL.md 9's "flattened to a single world-space kd-tree over all
// triangles... no per-mesh/scene two-level structure, no instancing"),
// a material registry, a light list, and a constant environment term.
// Grounded on SPEC_FULL.md 4.12, replacing the original's
// `static Materials materials` global.
type Scene struct {
	Mesh *geometry.TriangleMesh
	Tree *kdtree.KdTree

	Materials []*Material
	// TriangleMaterial maps each triangle of Mesh to the material it was
	// assigned at scene-assembly time.
	TriangleMaterial []MaterialHandle
	// TriangleLight maps each triangle to an index into Lights, or -1 if
	// the triangle is not emissive.
	TriangleLight []int

	Lights []*AreaLight

	// Environment is a constant environment radiance returned for rays
	// that miss all geometry; zero means no environment light
	// configured. An image-based environment map is not implemented (no
	// panoramic-mapping/importance-sampling code is grounded anywhere in
	// the example pack beyond plain texture lookup; see DESIGN.md).
	Environment math3d.Vec3
}

// NewPath returns a fresh per-camera-ray view of the scene, carrying
// its own delta.NestedDielectricState so concurrent tile workers never
// share dielectric-nesting state across paths. Implements
// integrator.Scene.
func (s *Scene) NewPath() *PathScene {
	return &PathScene{scene: s}
}

// PathScene adapts Scene to integrator.Scene for the duration of one
// camera ray's path, threading a private delta.NestedDielectricState
// through every material Scatter call along that path.
type PathScene struct {
	scene      *Scene
	dielectric delta.NestedDielectricState
}

func (p *PathScene) Intersect(ray geometry.Ray, tMin, tMax float64) (integrator.SurfaceHit, bool) {
	hit, ok := p.scene.Tree.Intersect(ray, tMin, tMax)
	if !ok {
		return nil, false
	}
	return &sceneHit{scene: p.scene, dielectric: &p.dielectric, ray: ray, hit: hit}, true
}

func (p *PathScene) EnvironmentRadiance(ray geometry.Ray) math3d.Vec3 {
	return p.scene.Environment
}

func (p *PathScene) SampleLight(u float64) (integrator.Light, float64, bool) {
	lights := p.scene.Lights
	if len(lights) == 0 {
		return nil, 0, false
	}
	idx := int(u * float64(len(lights)))
	if idx >= len(lights) {
		idx = len(lights) - 1
	}
	return lightAdapter{lights[idx]}, 1.0 / float64(len(lights)), true
}

func (p *PathScene) LightPDF(point, wi math3d.Vec3) float64 {
	lights := p.scene.Lights
	if len(lights) == 0 {
		return 0
	}
	selectionPdf := 1.0 / float64(len(lights))
	sum := 0.0
	for _, l := range lights {
		sum += selectionPdf * l.PDF(point, wi)
	}
	return sum
}

// lightAdapter satisfies integrator.Light by delegating straight to
// *AreaLight; kept as a separate type so AreaLight's own (point, Vec2)
// signature doesn't have to literally spell integrator.Light (pkg/scene
// is the only place that needs to know about the interface).
type lightAdapter struct{ light *AreaLight }

func (a lightAdapter) Sample(point math3d.Vec3, u math3d.Vec2) (math3d.Vec3, float64, float64, math3d.Vec3, bool) {
	return a.light.Sample(point, u)
}

func (a lightAdapter) PDF(point, wi math3d.Vec3) float64 { return a.light.PDF(point, wi) }

// sceneHit is the integrator.SurfaceHit built from one kd-tree hit:
// position, shading frame, and emission/scattering resolved lazily
// against the scene's material/light registries.
type sceneHit struct {
	scene      *Scene
	dielectric *delta.NestedDielectricState
	ray        geometry.Ray
	hit        kdtree.Hit
}

func (h *sceneHit) Position() math3d.Vec3 {
	return h.ray.Point(h.hit.T)
}

func (h *sceneHit) GeometricNormal() math3d.Vec3 {
	return h.scene.Mesh.GeometricNormal(h.hit.Triangle).Normalize()
}

// shadingNormal interpolates per-vertex normals across the hit's
// barycentric coordinates, falling back to the geometric normal when
// the mesh carries none.
func (h *sceneHit) shadingNormal() math3d.Vec3 {
	mesh := h.scene.Mesh
	if !mesh.HasNormals() {
		return h.GeometricNormal()
	}
	base := h.hit.Triangle * 3
	i0, i1, i2 := mesh.Indices[base], mesh.Indices[base+1], mesh.Indices[base+2]
	n0, n1, n2 := mesh.Normals[i0], mesh.Normals[i1], mesh.Normals[i2]
	b0 := 1 - h.hit.B1 - h.hit.B2
	return n0.Scale(b0).Add(n1.Scale(h.hit.B1)).Add(n2.Scale(h.hit.B2)).Normalize()
}

func (h *sceneHit) EmittedRadiance(wo math3d.Vec3) math3d.Vec3 {
	lightIdx := h.scene.TriangleLight[h.hit.Triangle]
	if lightIdx < 0 {
		return math3d.Zero3()
	}
	light := h.scene.Lights[lightIdx]
	n := h.GeometricNormal()
	if n.Dot(wo) <= 0 {
		return math3d.Zero3()
	}
	return light.Radiance
}

// shadingUV interpolates per-vertex UVs across the hit's barycentric
// coordinates, mirroring shadingNormal's fallback posture: meshes with
// no UVs report the zero coordinate, which a texture sample treats as
// any other in-range lookup rather than a special case.
func (h *sceneHit) shadingUV() math3d.Vec2 {
	mesh := h.scene.Mesh
	if !mesh.HasUVs() {
		return math3d.Vec2{}
	}
	base := h.hit.Triangle * 3
	i0, i1, i2 := mesh.Indices[base], mesh.Indices[base+1], mesh.Indices[base+2]
	uv0, uv1, uv2 := mesh.UVs[i0], mesh.UVs[i1], mesh.UVs[i2]
	b0 := 1 - h.hit.B1 - h.hit.B2
	return math3d.Vec2{
		X: b0*uv0.X + h.hit.B1*uv1.X + h.hit.B2*uv2.X,
		Y: b0*uv0.Y + h.hit.B1*uv1.Y + h.hit.B2*uv2.Y,
	}
}

func (h *sceneHit) Scatter(uScatterType float64) integrator.Scattering {
	handle := h.scene.TriangleMaterial[h.hit.Triangle]
	if int(handle) < 0 || int(handle) >= len(h.scene.Materials) {
		return integrator.Scattering{}
	}
	material := h.scene.Materials[handle]

	wo := h.ray.Direction.Negate()
	n := h.shadingNormal()
	flipped := n.Dot(wo) < 0
	if flipped {
		n = n.Negate()
	}
	frame := bsdf.NewFrame(n)

	return material.Scatter(frame, wo, h.dielectric, handle, flipped, uScatterType, h.shadingUV())
}
