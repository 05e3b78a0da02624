// Package preview shows the finished render in the terminal once,
// after the EXR has already been written to disk — a one-shot, non-
// progressive preview (see SPEC_FULL.md's DOMAIN STACK section;
// "progressive preview" is an explicit Non-goal of the renderer
// itself). Adapted from the teacher's pkg/render.Framebuffer/Draw
// half-block terminal rendering (pkg/render/framebuffer.go,
// terminal.go), trading the teacher's live, mutable framebuffer for a
// single tonemapped snapshot of a completed pkg/image.Image.
package preview

import (
	"context"
	"image/color"
	"math"

	uv "github.com/charmbracelet/ultraviolet"

	"github.com/rayforge/rayforge/pkg/image"
	"github.com/rayforge/rayforge/pkg/math3d"
)

// Framebuffer is a tonemapped, gamma-corrected RGBA snapshot of a
// rendered image, ready to draw as terminal half-block cells. Mirrors
// the teacher's Framebuffer type but is built once from a finished
// render instead of mutated frame-to-frame.
type Framebuffer struct {
	Width, Height int
	pixels        []rgba
}

type rgba struct{ r, g, b, a uint8 }

// Gamma is the display gamma applied when tonemapping, matching the
// teacher's render.vec3ToColor-equivalent gamma of 2.2 used throughout
// the example pack for sRGB-ish display output.
const Gamma = 2.2

// NewFramebuffer tonemaps img (clamp, then gamma-correct) into a
// half-block-ready RGBA buffer.
func NewFramebuffer(img *image.Image) *Framebuffer {
	fb := &Framebuffer{Width: img.Width, Height: img.Height, pixels: make([]rgba, img.Width*img.Height)}
	for i, c := range img.Pixels {
		fb.pixels[i] = tonemap(c)
	}
	return fb
}

func tonemap(c math3d.Vec3) rgba {
	clamp := func(v float64) float64 {
		if v < 0 {
			return 0
		}
		if v > 1 {
			return 1
		}
		return v
	}
	gammaCorrect := func(v float64) uint8 {
		return uint8(math.Round(255 * math.Pow(clamp(v), 1.0/Gamma)))
	}
	return rgba{r: gammaCorrect(c.X), g: gammaCorrect(c.Y), b: gammaCorrect(c.Z), a: 255}
}

// At returns the tonemapped color at (x, y), or transparent black if
// out of bounds.
func (fb *Framebuffer) At(x, y int) (r, g, b, a uint8) {
	if x < 0 || x >= fb.Width || y < 0 || y >= fb.Height {
		return 0, 0, 0, 0
	}
	p := fb.pixels[y*fb.Width+x]
	return p.r, p.g, p.b, p.a
}

// Draw renders the framebuffer into screen cells within area, using
// upper-half-block characters to pack two image rows per terminal row —
// the same technique as the teacher's Framebuffer.Draw.
func (fb *Framebuffer) Draw(scr uv.Screen, area uv.Rectangle) {
	for row := area.Min.Y; row < area.Max.Y; row++ {
		topY := (row - area.Min.Y) * 2
		botY := topY + 1

		for col := area.Min.X; col < area.Max.X && col-area.Min.X < fb.Width; col++ {
			x := col - area.Min.X
			tr, tg, tb, ta := fb.At(x, topY)
			br, bg, bb, ba := fb.At(x, botY)

			cell := &uv.Cell{
				Content: "▀",
				Width:   1,
				Style: uv.Style{
					Fg: cellColor(tr, tg, tb, ta),
					Bg: cellColor(br, bg, bb, ba),
				},
			}
			scr.SetCell(col, row, cell)
		}
	}
}

func cellColor(r, g, b, a uint8) color.Color {
	if a == 0 {
		return nil
	}
	return color.RGBA{R: r, G: g, B: b, A: a}
}

// Show opens the terminal, draws one static frame of fb, and waits for
// any key press or ctx cancellation before restoring the terminal —
// a one-shot viewer, not an event loop (no resize handling, no
// re-render), consistent with the render having already finished. The
// exact Terminal-to-Screen wiring the teacher's now-absent
// TerminalRenderer type performed in cmd/trophy/main.go isn't present
// in the filtered example pack; term is used directly as the uv.Screen
// Framebuffer.Draw expects, matching how the teacher's own
// Framebuffer.Draw is written against the generic uv.Screen interface
// rather than a concrete terminal type.
func Show(ctx context.Context, fb *Framebuffer) error {
	term := uv.DefaultTerminal()
	if err := term.Start(); err != nil {
		return err
	}
	defer term.Shutdown(context.Background())

	term.EnterAltScreen()
	defer term.ExitAltScreen()
	term.HideCursor()
	defer term.ShowCursor()

	width, height, err := term.GetSize()
	if err != nil {
		return err
	}
	term.Resize(width, height)

	area := uv.Rectangle{Max: uv.Position{X: width, Y: height / 2}}
	fb.Draw(term, area)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range term.Events() {
			if _, ok := ev.(uv.KeyPressEvent); ok {
				return
			}
		}
	}()

	select {
	case <-ctx.Done():
	case <-done:
	}
	return nil
}
