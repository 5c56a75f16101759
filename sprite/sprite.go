/*
Package sprite builds sprite meshes from diced textures and their atlas.

Every unit becomes a quad of four vertices and two triangles. Mesh space
has x to the right and y up, with the sprite pivot at the origin and
positions scaled by 1/PPU. Texture coordinates are those of the atlas,
origin at its top-left corner.
*/
package sprite

import (
	"errors"
	"fmt"

	"github.com/bodgit/spritedice/tile"
)

// DefaultMaxVertices is the vertex limit implied by 16-bit mesh indices.
const DefaultMaxVertices = 65000

var (
	// ErrInvalidOptions is returned when the build options are out of
	// range.
	ErrInvalidOptions = errors.New("sprite: invalid options")

	// ErrGeometryOverflow is returned when a sprite needs more vertices
	// than the mesh format allows.
	ErrGeometryOverflow = errors.New("sprite: too many vertices")
)

// OverflowError names the sprite that exceeded the vertex limit.
type OverflowError struct {
	ID       string
	Vertices int
	Limit    int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("sprite: %q needs %d vertices, limit is %d", e.ID, e.Vertices, e.Limit)
}

// Is makes OverflowError match ErrGeometryOverflow.
func (e *OverflowError) Is(target error) bool {
	return target == ErrGeometryOverflow
}

// Vec2 is a two dimensional vector.
type Vec2 struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle given by its minimum corner and size.
type Rect struct {
	X, Y, W, H float64
}

// Sprite is the mesh that reproduces a source sprite from its atlas.
type Sprite struct {
	ID string
	// Atlas is the index of the atlas holding the sprite's units
	Atlas    int
	Vertices []Vec2
	// UVs has one entry per vertex
	UVs []Vec2
	// Indices lists triangles, three vertex indices each
	Indices []uint32
	// Rect bounds the vertices
	Rect  Rect
	Pivot tile.Pivot
}

// Options control sprite building.
type Options struct {
	// PPU is the number of source pixels per mesh unit
	PPU float64
	// Pivot is used when the source has none or KeepOriginalPivot is
	// false
	Pivot tile.Pivot
	// KeepOriginalPivot uses the source pivot when it has one
	KeepOriginalPivot bool
	// MaxVertices limits the vertices per sprite, DefaultMaxVertices
	// when zero
	MaxVertices int
}

// Validate checks the options are in range.
func (o Options) Validate() error {
	if !(o.PPU > 0) {
		return fmt.Errorf("%w: PPU must be greater than zero", ErrInvalidOptions)
	}
	if o.MaxVertices < 0 {
		return fmt.Errorf("%w: vertex limit must be non-negative", ErrInvalidOptions)
	}
	return nil
}

func (o Options) maxVertices() int {
	if o.MaxVertices == 0 {
		return DefaultMaxVertices
	}
	return o.MaxVertices
}
