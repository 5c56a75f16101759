/*
Package atlas packs the unique units of diced textures into atlas images.

Packing runs in rounds, one atlas per round. Each round greedily takes the
remaining texture whose units add the fewest new cells to the atlas, until
the next cheapest texture would overflow the per-atlas cell budget. A
texture is never split across atlases. The round's unique units are then
laid out on a grid of equally sized cells, each cell holding a unit plus
its padding border.
*/
package atlas

import (
	"errors"
	"fmt"
	"image"

	"github.com/bodgit/spritedice/contenthash"
	"github.com/bodgit/spritedice/tile"
)

var (
	// ErrInvalidOptions is returned when the packing options are out of
	// range.
	ErrInvalidOptions = errors.New("atlas: invalid options")

	// ErrUnpackable is returned when a single texture has more unique
	// units than fit in one atlas.
	ErrUnpackable = errors.New("atlas: texture does not fit in a single atlas")
)

// UnpackableError names the texture that could not be packed.
type UnpackableError struct {
	ID     string
	Units  int
	Budget int
}

func (e *UnpackableError) Error() string {
	return fmt.Sprintf("atlas: %q needs %d units but an atlas holds at most %d; increase the size limit or reduce the unit size", e.ID, e.Units, e.Budget)
}

// Is makes UnpackableError match ErrUnpackable.
func (e *UnpackableError) Is(target error) bool {
	return target == ErrUnpackable
}

// UVRect is a rectangle in texture coordinates, relative to the atlas
// dimensions with the origin at the top-left corner.
type UVRect struct {
	X, Y, W, H float64
}

// Atlas is a packed atlas image.
type Atlas struct {
	// Image holds the atlas pixels
	Image *image.NRGBA
	// UV maps the content hash of every unit in the atlas to its
	// texture coordinates
	UV map[contenthash.Hash]UVRect
	// Textures lists the diced textures whose units are all in this
	// atlas, in the order they were selected
	Textures []*tile.Texture
}

// Units returns the number of unique units stored in the atlas.
func (a *Atlas) Units() int {
	return len(a.UV)
}

// Options control packing.
type Options struct {
	// UnitSize is the size of a unit, it must match the dicing options
	UnitSize int
	// Padding is the border around each unit, it must match the dicing
	// options
	Padding int
	// SizeLimit is the maximum width and height of an atlas
	SizeLimit int
	// Square forces atlas width and height to be equal
	Square bool
	// PowerOfTwo forces atlas width and height to be powers of two
	PowerOfTwo bool
	// UVInset shrinks texture coordinates of each unit, relative to half
	// of the unit extent, in the range 0 to 0.5
	UVInset float64
	// Progress, if not nil, is called after each round with the number
	// of textures placed so far and the total
	Progress func(round, placed, total int)
}

// Validate checks the options are in range.
func (o Options) Validate() error {
	switch {
	case o.UVInset < 0 || o.UVInset > .5:
		return fmt.Errorf("%w: UV inset must be in the range 0 to 0.5", ErrInvalidOptions)
	case o.SizeLimit < 1:
		return fmt.Errorf("%w: size limit must be at least 1", ErrInvalidOptions)
	case o.UnitSize < 1 || o.UnitSize > o.SizeLimit:
		return fmt.Errorf("%w: unit size must be in the range 1 to the size limit", ErrInvalidOptions)
	case o.Padding < 0 || o.Padding > o.UnitSize:
		return fmt.Errorf("%w: padding must be in the range 0 to the unit size", ErrInvalidOptions)
	}
	return nil
}

func (o Options) cellSize() int {
	return o.UnitSize + o.Padding<<1
}

// Budget returns the maximum number of unique units in a single atlas.
func (o Options) Budget() int {
	limit := o.SizeLimit
	if o.PowerOfTwo {
		limit = floorPowerOfTwo(limit)
	}
	n := limit / o.cellSize()
	return n * n
}
