package tile

import (
	"encoding/binary"
	"fmt"
	"image"

	"github.com/bodgit/spritedice/contenthash"
)

// Options control how a Source is diced.
type Options struct {
	// UnitSize is the width and height of a unit in pixels
	UnitSize int
	// Padding is the number of border pixels copied around each unit
	Padding int
	// TrimTransparent drops units where every pixel has zero alpha
	TrimTransparent bool
}

// Validate checks the options are in range.
func (o Options) Validate() error {
	if o.UnitSize < 1 {
		return fmt.Errorf("%w: unit size must be at least 1", ErrInvalidOptions)
	}
	if o.Padding < 0 {
		return fmt.Errorf("%w: padding must be non-negative", ErrInvalidOptions)
	}
	return nil
}

type dicer struct {
	src  *Source
	opts Options
	h    contenthash.Hash128
}

// pixel returns the offset into the source pixels for (x, y) relative to
// the image origin, clamping to the nearest edge pixel.
func (d *dicer) pixel(x, y int) int {
	m := d.src.Image
	b := m.Bounds()
	if x < 0 {
		x = 0
	} else if x >= b.Dx() {
		x = b.Dx() - 1
	}
	if y < 0 {
		y = 0
	} else if y >= b.Dy() {
		y = b.Dy() - 1
	}
	return m.PixOffset(b.Min.X+x, b.Min.Y+y)
}

func (d *dicer) transparent(x0, y0, x1, y1 int) bool {
	pix := d.src.Image.Pix
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			if pix[d.pixel(x, y)+3] != 0 {
				return false
			}
		}
	}
	return true
}

func (d *dicer) hash(x0, y0, x1, y1 int) contenthash.Hash {
	var hdr [8]byte
	binary.LittleEndian.PutUint32(hdr[:4], uint32(x1-x0))
	binary.LittleEndian.PutUint32(hdr[4:], uint32(y1-y0))

	d.h.Reset()
	d.h.Write(hdr[:])

	pix := d.src.Image.Pix
	for y := y0; y < y1; y++ {
		i := d.pixel(x0, y)
		d.h.Write(pix[i : i+(x1-x0)*bytesPerPixel])
	}

	return d.h.Sum128()
}

func (d *dicer) padded(x0, y0 int) []byte {
	size := d.opts.UnitSize + d.opts.Padding<<1
	out := make([]byte, 0, size*size*bytesPerPixel)

	pix := d.src.Image.Pix
	for y := y0 - d.opts.Padding; y < y0-d.opts.Padding+size; y++ {
		for x := x0 - d.opts.Padding; x < x0-d.opts.Padding+size; x++ {
			i := d.pixel(x, y)
			out = append(out, pix[i:i+bytesPerPixel]...)
		}
	}

	return out
}

// Dice splits the source image into units. A source with no pixels, or
// only transparent pixels when trimming, produces a Texture with no units.
func Dice(src *Source, opts Options) (*Texture, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	t := &Texture{
		Source: src,
	}

	if src.Image == nil || src.Image.Bounds().Empty() {
		return t, nil
	}

	d := dicer{
		src:  src,
		opts: opts,
		h:    contenthash.New(),
	}

	width, height := src.Image.Bounds().Dx(), src.Image.Bounds().Dy()
	countX := (width + opts.UnitSize - 1) / opts.UnitSize
	countY := (height + opts.UnitSize - 1) / opts.UnitSize

	seen := make(map[contenthash.Hash]struct{})

	for uy := 0; uy < countY; uy++ {
		for ux := 0; ux < countX; ux++ {
			x0, y0 := ux*opts.UnitSize, uy*opts.UnitSize
			x1, y1 := min(x0+opts.UnitSize, width), min(y0+opts.UnitSize, height)

			if opts.TrimTransparent && d.transparent(x0, y0, x1, y1) {
				continue
			}

			u := Unit{
				Rect:   image.Rect(x0, y0, x1, y1),
				Padded: d.padded(x0, y0),
				Hash:   d.hash(x0, y0, x1, y1),
			}

			t.Units = append(t.Units, u)
			if _, ok := seen[u.Hash]; !ok {
				seen[u.Hash] = struct{}{}
				t.Unique = append(t.Unique, u)
			}
		}
	}

	return t, nil
}
