/*
Package tile implements dicing of source sprites into fixed-size units.

A source image is split into a grid of unitSize by unitSize pixel units,
walked row by row from the top of the image and left to right within a row.
Units along the right and bottom edges are clipped to the image. Each unit
carries a copy of its pixels grown by padding pixels on every side, with
reads beyond the image clamped to the nearest edge pixel, and a content hash
of its clipped, unpadded pixels.
*/
package tile

import (
	"errors"
	"image"
	"image/draw"

	"github.com/bodgit/spritedice/contenthash"
)

const bytesPerPixel = 4

// ErrInvalidOptions is returned when the dicing options are out of range.
var ErrInvalidOptions = errors.New("tile: invalid options")

// Pivot is a point relative to a sprite's rectangle, where (0, 0) is the
// bottom-left corner and (1, 1) is the top-right corner.
type Pivot struct {
	X, Y float64
}

// Source is a sprite image to be diced. The image is never modified.
type Source struct {
	// ID uniquely identifies the sprite amongst those in a build
	ID string
	// Image holds the sprite pixels, origin at the top-left
	Image *image.NRGBA
	// Pivot optionally overrides the default pivot of the built sprite
	Pivot *Pivot
}

// FromImage returns a Source with the pixels of m converted to 8-bit
// non-premultiplied RGBA with its origin at (0, 0).
func FromImage(id string, m image.Image) *Source {
	b := m.Bounds()
	n, ok := m.(*image.NRGBA)
	if !ok || b.Min != (image.Point{}) {
		n = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(n, n.Bounds(), m, b.Min, draw.Src)
	}
	return &Source{
		ID:    id,
		Image: n,
	}
}

// Unit is a single diced unit. Units are interchangeable when their hashes
// match, regardless of where they were diced from.
type Unit struct {
	// Rect is the position of the unit in the source image, clipped to
	// the image bounds
	Rect image.Rectangle
	// Padded holds the unit pixels plus the padding border as 8-bit
	// NRGBA, row-major, (unitSize+2*padding) pixels square
	Padded []byte
	// Hash is the content hash of the clipped, unpadded pixels
	Hash contenthash.Hash
}

// Equal reports whether u and o hold identical content.
func (u Unit) Equal(o Unit) bool {
	return u.Hash == o.Hash
}

// Texture is the product of dicing a single Source.
type Texture struct {
	Source *Source
	// Units in tiling order
	Units []Unit
	// Unique holds the first occurrence of each distinct hash in Units
	Unique []Unit
}

