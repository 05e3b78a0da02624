package sampling

import "github.com/rayforge/rayforge/pkg/math3d"

// Sampler generates stratified 2D sample points for a single pixel,
// registering named sample arrays the way the original renderer's pixel
// sampler pre-allocates per-dimension arrays (one per light sample, one
// per BSDF sample, ...) instead of drawing unstratified randoms directly.
// Grounded on spec.md 3 (Shading_Context/"pixel sampler") and 4 (sample
// counts from Configuration).
type Sampler struct {
	rng *RNG

	xSamples, ySamples int
	arrays             map[string][]math3d.Vec2
}

// NewSampler creates a sampler producing xSamples*ySamples stratified
// samples per pixel, per original_source/src/lib/raytracer_config.h's
// x_pixel_sample_count / y_pixel_sample_count.
func NewSampler(rng *RNG, xSamples, ySamples int) *Sampler {
	if xSamples < 1 {
		xSamples = 1
	}
	if ySamples < 1 {
		ySamples = 1
	}
	return &Sampler{rng: rng, xSamples: xSamples, ySamples: ySamples, arrays: make(map[string][]math3d.Vec2)}
}

// SampleCount returns the total number of samples taken per pixel.
func (s *Sampler) SampleCount() int { return s.xSamples * s.ySamples }

// PixelJitter returns one stratified (dx, dy) offset in [0,1)x[0,1) for
// sample index i of the current pixel, used to jitter the camera ray's
// film-plane position.
func (s *Sampler) PixelJitter(i int) math3d.Vec2 {
	col := i % s.xSamples
	row := (i / s.xSamples) % s.ySamples
	jx, jy := s.rng.Float64Pair()
	return math3d.V2(
		(float64(col)+jx)/float64(s.xSamples),
		(float64(row)+jy)/float64(s.ySamples),
	)
}

// Next2D draws a single unstratified 2D sample from the RNG, used for
// light selection, BSDF sampling, and other draws that aren't jittered
// per camera sub-pixel.
func (s *Sampler) Next2D() math3d.Vec2 {
	x, y := s.rng.Float64Pair()
	return math3d.V2(x, y)
}

// Next1D draws a single unstratified sample in [0,1), used for light
// index selection and Russian roulette.
func (s *Sampler) Next1D() float64 {
	return s.rng.Float64()
}

// RegisterArray2D pre-generates a named stratified 2D sample array of
// length n (e.g. "light_samples"), mirroring the original renderer's
// registered-sample-array pixel sampler so repeated per-bounce draws of
// the same dimension stay stratified across the whole path rather than
// degrading to independent randoms after the first bounce.
func (s *Sampler) RegisterArray2D(name string, n int) {
	arr := make([]math3d.Vec2, n)
	for i := range arr {
		x, y := s.rng.Float64Pair()
		arr[i] = math3d.V2(x, y)
	}
	s.arrays[name] = arr
}

// Array2D returns the i-th sample of a previously registered array,
// wrapping around if i exceeds the array length.
func (s *Sampler) Array2D(name string, i int) math3d.Vec2 {
	arr := s.arrays[name]
	if len(arr) == 0 {
		return s.Next2D()
	}
	return arr[i%len(arr)]
}
