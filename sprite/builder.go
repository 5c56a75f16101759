package sprite

import (
	"fmt"
	"math"

	"github.com/bodgit/spritedice/atlas"
	"github.com/bodgit/spritedice/tile"
)

type builder struct {
	vertices []Vec2
	uvs      []Vec2
	indices  []uint32
}

func (b *builder) addVertex(position, uv Vec2) {
	b.vertices = append(b.vertices, position)
	b.uvs = append(b.uvs, uv)
}

// addQuad adds the quad spanning lo to hi. Texture coordinates run top to
// bottom so the bottom of the quad takes the bottom of uv.
func (b *builder) addQuad(lo, hi Vec2, uv atlas.UVRect) {
	i := uint32(len(b.vertices))

	b.addVertex(Vec2{lo.X, lo.Y}, Vec2{uv.X, uv.Y + uv.H})
	b.addVertex(Vec2{lo.X, hi.Y}, Vec2{uv.X, uv.Y})
	b.addVertex(Vec2{hi.X, hi.Y}, Vec2{uv.X + uv.W, uv.Y})
	b.addVertex(Vec2{hi.X, lo.Y}, Vec2{uv.X + uv.W, uv.Y + uv.H})

	b.indices = append(b.indices, i, i+1, i+2, i+2, i+3, i)
}

func (b *builder) bounds() Rect {
	lo := Vec2{math.Inf(1), math.Inf(1)}
	hi := Vec2{math.Inf(-1), math.Inf(-1)}
	for _, v := range b.vertices {
		lo.X, lo.Y = math.Min(lo.X, v.X), math.Min(lo.Y, v.Y)
		hi.X, hi.Y = math.Max(hi.X, v.X), math.Max(hi.Y, v.Y)
	}
	return Rect{lo.X, lo.Y, hi.X - lo.X, hi.Y - lo.Y}
}

// Build creates the mesh for t, whose units must all be in a, the atlas
// at the given index. The mesh is trimmed to the bounds of its units and
// placed so the pivot is at the origin. A texture with no units gives a
// sprite with no vertices and an empty rect.
func Build(t *tile.Texture, a *atlas.Atlas, index int, opts Options) (*Sprite, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	s := &Sprite{
		ID:    t.Source.ID,
		Atlas: index,
		Pivot: opts.Pivot,
	}

	if opts.KeepOriginalPivot && t.Source.Pivot != nil {
		s.Pivot = *t.Source.Pivot
	}

	if n := len(t.Units) * 4; n > opts.maxVertices() {
		return nil, &OverflowError{
			ID:       t.Source.ID,
			Vertices: n,
			Limit:    opts.maxVertices(),
		}
	}

	if len(t.Units) == 0 {
		return s, nil
	}

	size := t.Source.Image.Bounds().Size()

	b := builder{
		vertices: make([]Vec2, 0, len(t.Units)*4),
		uvs:      make([]Vec2, 0, len(t.Units)*4),
		indices:  make([]uint32, 0, len(t.Units)*6),
	}

	for _, u := range t.Units {
		uv, ok := a.UV[u.Hash]
		if !ok {
			return nil, fmt.Errorf("sprite: %q unit at %v is not in atlas %d", t.Source.ID, u.Rect.Min, index)
		}

		// Flip from image space, y down, to mesh space, y up
		lo := Vec2{float64(u.Rect.Min.X), float64(size.Y - u.Rect.Max.Y)}
		hi := Vec2{float64(u.Rect.Max.X), float64(size.Y - u.Rect.Min.Y)}
		b.addQuad(lo, hi, uv)
	}

	box := b.bounds()

	if opts.KeepOriginalPivot && t.Source.Pivot != nil {
		// Re-express the pivot relative to the trimmed bounds
		s.Pivot = tile.Pivot{
			X: (t.Source.Pivot.X*float64(size.X) - box.X) / box.W,
			Y: (t.Source.Pivot.Y*float64(size.Y) - box.Y) / box.H,
		}
	}

	origin := Vec2{box.X + s.Pivot.X*box.W, box.Y + s.Pivot.Y*box.H}
	for i, v := range b.vertices {
		b.vertices[i] = Vec2{(v.X - origin.X) / opts.PPU, (v.Y - origin.Y) / opts.PPU}
	}

	s.Vertices, s.UVs, s.Indices = b.vertices, b.uvs, b.indices
	s.Rect = Rect{
		X: (box.X - origin.X) / opts.PPU,
		Y: (box.Y - origin.Y) / opts.PPU,
		W: box.W / opts.PPU,
		H: box.H / opts.PPU,
	}

	return s, nil
}
