// Package renderer drives the tile-parallel render loop: it partitions
// the output image into tiles (pkg/renderer.Tiles, grounded on df07's
// RenderBounds pattern), runs one goroutine per tile through a
// golang.org/x/sync/errgroup worker pool that's already part of the
// module's dependency graph (pulled in transitively by
// charmbracelet/fang; promoted here to a direct import for the worker
// pool itself), and merges each finished tile into a mutex-protected
// Film. A context.Context cancels in-flight work early, mirroring the
// teacher's signal.Notify-driven shutdown in cmd/trophy/main.go.
package renderer

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/rayforge/rayforge/pkg/camera"
	"github.com/rayforge/rayforge/pkg/image"
	"github.com/rayforge/rayforge/pkg/integrator"
	"github.com/rayforge/rayforge/pkg/math3d"
	"github.com/rayforge/rayforge/pkg/sampling"
	"github.com/rayforge/rayforge/pkg/scene"
)

// Options configures one render pass.
type Options struct {
	Width, Height int
	TileSize      int // 0 selects a default tile size
	Workers       int // 0 selects runtime.GOMAXPROCS(0)

	SamplesX, SamplesY int // per-pixel stratified sample grid
	RNGSeedOffset      uint64

	PathTracer integrator.PathTracer

	// Logger receives one Debug record per finished tile and any Warn
	// record a recovered tile panic produces. Nil selects slog.Default().
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o Options) tileSize() int {
	if o.TileSize > 0 {
		return o.TileSize
	}
	return 32
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Render traces cam through sc at the resolution and sample counts
// given by opts, returning the resolved output image. It returns early
// with ctx's error if ctx is canceled before all tiles finish.
func Render(ctx context.Context, sc *scene.Scene, cam *camera.Camera, opts Options) (*image.Image, error) {
	film := NewFilm(opts.Width, opts.Height)
	tiles := Tiles(opts.Width, opts.Height, opts.tileSize())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())

	log := opts.logger()
	for _, bounds := range tiles {
		bounds := bounds
		g.Go(func() (err error) {
			if cerr := gctx.Err(); cerr != nil {
				return cerr
			}
			// A panic here means a kd-tree/BSDF invariant this renderer
			// assumes was violated (spec.md §7's "aborts" language); recover
			// just enough to attribute it to the offending tile and turn it
			// into an errgroup error, which cancels gctx for every other
			// in-flight tile rather than leaving the worker pool half-dead.
			defer func() {
				if r := recover(); r != nil {
					log.Warn("tile worker panicked", "bounds", bounds, "panic", r)
					err = fmt.Errorf("render tile %+v: %v", bounds, r)
				}
			}()
			tile := renderTile(sc, cam, opts, bounds)
			film.MergeTile(tile)
			log.Debug("tile finished", "bounds", bounds)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return film.Image(), nil
}

func renderTile(sc *scene.Scene, cam *camera.Camera, opts Options, bounds Bounds) *Tile {
	tile := NewTile(bounds)
	samplesX, samplesY := opts.SamplesX, opts.SamplesY
	if samplesX < 1 {
		samplesX = 1
	}
	if samplesY < 1 {
		samplesY = 1
	}

	for y := bounds.MinY; y < bounds.MaxY; y++ {
		for x := bounds.MinX; x < bounds.MaxX; x++ {
			seed1, seed2 := sampling.PixelSeed(x, y, opts.RNGSeedOffset)
			sampler := sampling.NewSampler(sampling.NewRNG(seed1, seed2), samplesX, samplesY)

			for i := 0; i < sampler.SampleCount(); i++ {
				jitter := sampler.PixelJitter(i)
				u := (float64(x) + jitter.X) / float64(opts.Width)
				v := (float64(y) + jitter.Y) / float64(opts.Height)
				ray := cam.GetRay(u, v)

				path := sc.NewPath()
				radiance := opts.PathTracer.Li(path, ray, sampler)
				tile.AddSample(x, y, clampFinite(radiance))
			}
		}
	}
	return tile
}

// clampFinite zeroes any NaN/Inf component a pathological BSDF sample
// or near-zero PDF division could produce, so a single bad sample can't
// poison a pixel's running average.
func clampFinite(v math3d.Vec3) math3d.Vec3 {
	if isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z) {
		return v
	}
	return math3d.Zero3()
}

func isFinite(f float64) bool {
	return f == f && f > -maxFloat && f < maxFloat
}

const maxFloat = 1.7976931348623157e+308
