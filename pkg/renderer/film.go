package renderer

import (
	"sync"

	"github.com/rayforge/rayforge/pkg/image"
	"github.com/rayforge/rayforge/pkg/math3d"
)

// Film accumulates per-pixel radiance samples behind a mutex so
// concurrent tile workers can merge results without racing, matching
// SPEC_FULL.md 5's "sync.Mutex-protected film" description. Each worker
// accumulates its own tile locally (see Tile) and only takes the lock to
// merge its finished tile in, keeping contention to one short
// critical section per tile rather than one per sample.
type Film struct {
	mu     sync.Mutex
	width  int
	height int
	image  *image.Image
}

// NewFilm allocates an empty film of the given dimensions.
func NewFilm(width, height int) *Film {
	return &Film{width: width, height: height, image: image.NewImage(width, height)}
}

// MergeTile copies a finished tile's resolved pixel values into the
// film under lock.
func (f *Film) MergeTile(t *Tile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for y := t.Bounds.MinY; y < t.Bounds.MaxY; y++ {
		for x := t.Bounds.MinX; x < t.Bounds.MaxX; x++ {
			f.image.Set(x, y, t.at(x, y))
		}
	}
}

// Image returns the film's backing image. Only safe to call after all
// tiles have been merged.
func (f *Film) Image() *image.Image {
	return f.image
}

// Tile is one worker's private accumulation buffer for a rectangular
// pixel region, summed per-pixel radiance plus a sample count so the
// average can be resolved once at merge time.
type Tile struct {
	Bounds  Bounds
	sum     []math3d.Vec3
	samples []int
}

// NewTile allocates an empty accumulation buffer for bounds.
func NewTile(bounds Bounds) *Tile {
	n := bounds.Dx() * bounds.Dy()
	return &Tile{Bounds: bounds, sum: make([]math3d.Vec3, n), samples: make([]int, n)}
}

// AddSample accumulates one radiance sample for pixel (x, y), which
// must lie within the tile's bounds.
func (t *Tile) AddSample(x, y int, radiance math3d.Vec3) {
	i := t.index(x, y)
	t.sum[i] = t.sum[i].Add(radiance)
	t.samples[i]++
}

func (t *Tile) at(x, y int) math3d.Vec3 {
	i := t.index(x, y)
	if t.samples[i] == 0 {
		return math3d.Zero3()
	}
	return t.sum[i].Scale(1.0 / float64(t.samples[i]))
}

func (t *Tile) index(x, y int) int {
	return (y-t.Bounds.MinY)*t.Bounds.Dx() + (x - t.Bounds.MinX)
}

// Bounds is an integer pixel rectangle, half-open on Max like
// image.Rectangle, grounded on df07's RenderBounds tiling pattern.
type Bounds struct {
	MinX, MinY, MaxX, MaxY int
}

func (b Bounds) Dx() int { return b.MaxX - b.MinX }
func (b Bounds) Dy() int { return b.MaxY - b.MinY }
