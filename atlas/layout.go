package atlas

import (
	"image"
	"math/bits"

	"github.com/bodgit/spritedice/contenthash"
	"github.com/bodgit/spritedice/tile"
)

func floorPowerOfTwo(n int) int {
	if n < 1 {
		return 0
	}
	return 1 << (bits.Len(uint(n)) - 1)
}

func ceilPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// gridSize returns the number of cell columns and rows for n cells. The
// grid starts as the smallest square that holds n and, unless a square
// is forced, narrower grids that waste fewer cells are preferred as long
// as they stay within the size limit.
func gridSize(n int, opts Options) (cols, rows int) {
	if n < 1 {
		n = 1
	}

	side := 1
	for side*side < n {
		side++
	}
	cols, rows = side, side

	if opts.Square {
		return
	}

	limit := opts.SizeLimit
	if opts.PowerOfTwo {
		limit = floorPowerOfTwo(limit)
	}

	for w := side; w > 0; w-- {
		h := (n + w - 1) / w
		if h*opts.cellSize() > limit {
			break
		}
		if w*h < cols*rows {
			cols, rows = w, h
		}
	}

	return
}

// dimensions returns the atlas size in pixels for n cells.
func dimensions(n int, opts Options) (width, height int) {
	cols, rows := gridSize(n, opts)
	width, height = cols*opts.cellSize(), rows*opts.cellSize()

	if opts.PowerOfTwo {
		width, height = ceilPowerOfTwo(width), ceilPowerOfTwo(height)
	}

	if opts.Square {
		width = max(width, height)
		height = width
	}

	return
}

// cropBorder scales uv down to the part of the cell the unit covers, so
// units clipped at the edge of their source never sample padding.
func cropBorder(uv UVRect, r image.Rectangle, unitSize int) UVRect {
	uv.W *= float64(r.Dx()) / float64(unitSize)
	uv.H *= float64(r.Dy()) / float64(unitSize)
	return uv
}

// inset shrinks uv on every side by the given fraction of half its width.
// The same amount is used for both axes, whatever the atlas aspect ratio.
func inset(uv UVRect, amount float64) UVRect {
	d := amount * uv.W / 2
	return UVRect{
		X: uv.X + d,
		Y: uv.Y + d,
		W: uv.W - d*2,
		H: uv.H - d*2,
	}
}

// layout creates an atlas holding units, one per cell, in order.
func layout(units []tile.Unit, opts Options) *Atlas {
	width, height := dimensions(len(units), opts)
	cell := opts.cellSize()
	perRow := width / cell

	a := &Atlas{
		Image: image.NewNRGBA(image.Rect(0, 0, width, height)),
		UV:    make(map[contenthash.Hash]UVRect, len(units)),
	}

	stride := cell * 4
	for i, u := range units {
		x, y := i%perRow*cell, i/perRow*cell

		for row := 0; row < cell; row++ {
			o := a.Image.PixOffset(x, y+row)
			copy(a.Image.Pix[o:o+stride], u.Padded[row*stride:(row+1)*stride])
		}

		uv := UVRect{
			X: float64(x+opts.Padding) / float64(width),
			Y: float64(y+opts.Padding) / float64(height),
			W: float64(opts.UnitSize) / float64(width),
			H: float64(opts.UnitSize) / float64(height),
		}
		a.UV[u.Hash] = inset(cropBorder(uv, u.Rect, opts.UnitSize), opts.UVInset)
	}

	return a
}
