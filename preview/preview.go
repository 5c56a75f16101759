/*
Package preview turns diced sprites back into pixels.

Reconstruct samples every quad of a sprite from its atlas and writes the
result into an image the size of the sprite's trimmed bounds. With no UV
inset and no cropping the output is a pixel-exact copy of the trimmed
source. EncodeGIF strings a set of such images together as an animated GIF
so the output of a run can be eyeballed.
*/
package preview

import (
	"errors"
	"image"
	"math"

	"github.com/bodgit/spritedice/sprite"
)

var errBadGeometry = errors.New("preview: sprite geometry is not made of quads")

// Size returns the pixel dimensions of the sprite's bounds at the given
// pixels per unit.
func Size(s *sprite.Sprite, ppu float64) image.Point {
	return image.Pt(int(math.Round(s.Rect.W*ppu)), int(math.Round(s.Rect.H*ppu)))
}

func clamp(v, lo, hi int) int {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}

// Reconstruct renders s by sampling atlas with nearest filtering. ppu must be
// the value the sprite was built with.
func Reconstruct(s *sprite.Sprite, atlas image.Image, ppu float64) (*image.NRGBA, error) {
	if len(s.Vertices)%4 != 0 || len(s.UVs) != len(s.Vertices) {
		return nil, errBadGeometry
	}

	size := Size(s, ppu)
	m := image.NewNRGBA(image.Rectangle{Max: size})
	if size.X == 0 || size.Y == 0 {
		return m, nil
	}

	ab := atlas.Bounds()
	aw, ah := float64(ab.Dx()), float64(ab.Dy())
	top := s.Rect.Y + s.Rect.H

	for q := 0; q < len(s.Vertices); q += 4 {
		// Bottom-left and top-right corners in mesh space
		bl, tr := s.Vertices[q], s.Vertices[q+2]
		// Top-left and bottom-right corners in UV space
		uvTL, uvBR := s.UVs[q+1], s.UVs[q+3]

		x0 := int(math.Round((bl.X - s.Rect.X) * ppu))
		x1 := int(math.Round((tr.X - s.Rect.X) * ppu))
		y0 := int(math.Round((top - tr.Y) * ppu))
		y1 := int(math.Round((top - bl.Y) * ppu))

		w, h := float64(x1-x0), float64(y1-y0)

		for y := y0; y < y1; y++ {
			v := uvTL.Y + (float64(y-y0)+.5)/h*(uvBR.Y-uvTL.Y)
			ay := clamp(int(math.Floor(v*ah)), 0, ab.Dy()-1) + ab.Min.Y
			for x := x0; x < x1; x++ {
				u := uvTL.X + (float64(x-x0)+.5)/w*(uvBR.X-uvTL.X)
				ax := clamp(int(math.Floor(u*aw)), 0, ab.Dx()-1) + ab.Min.X
				m.Set(x, y, atlas.At(ax, ay))
			}
		}
	}

	return m, nil
}
