package renderer

// Tiles splits a width x height image into roughly tileSize x tileSize
// rectangular regions for independent worker processing, listed in
// row-major order, the same bounds partitioning df07's RenderBounds is built to
// consume (see pkg/renderer doc comment in render.go).
func Tiles(width, height, tileSize int) []Bounds {
	if tileSize <= 0 {
		tileSize = width
	}
	var tiles []Bounds
	for y := 0; y < height; y += tileSize {
		maxY := y + tileSize
		if maxY > height {
			maxY = height
		}
		for x := 0; x < width; x += tileSize {
			maxX := x + tileSize
			if maxX > width {
				maxX = width
			}
			tiles = append(tiles, Bounds{MinX: x, MinY: y, MaxX: maxX, MaxY: maxY})
		}
	}
	return tiles
}
