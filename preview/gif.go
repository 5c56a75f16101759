package preview

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"io"
	"os"
	"path/filepath"

	// Atlases are written as PNG
	_ "image/png"

	"github.com/bodgit/spritedice/manifest"
	"github.com/ericpauley/go-quantize/quantize"
)

const maxColors = 256

var errNoFrames = errors.New("preview: no frames to encode")

// EncodeGIF writes frames as an animated GIF, each frame shown for delay
// hundredths of a second. Every frame is quantized to its own palette and
// anchored at the top-left of a canvas large enough for the biggest frame.
// Empty frames are skipped.
func EncodeGIF(w io.Writer, frames []image.Image, delay int) error {
	var width, height int
	for _, m := range frames {
		width = max(width, m.Bounds().Dx())
		height = max(height, m.Bounds().Dy())
	}

	g := &gif.GIF{
		Config: image.Config{
			Width:  width,
			Height: height,
		},
	}

	q := quantize.MedianCutQuantizer{}
	r := image.Rect(0, 0, width, height)

	for _, m := range frames {
		b := m.Bounds()
		if b.Empty() {
			continue
		}

		pm := image.NewPaletted(r, q.Quantize(make(color.Palette, 0, maxColors), m))
		draw.Draw(pm, b.Sub(b.Min), m, b.Min, draw.Src)

		g.Image = append(g.Image, pm)
		g.Delay = append(g.Delay, delay)
		g.Disposal = append(g.Disposal, gif.DisposalBackground)
	}

	if len(g.Image) == 0 {
		return errNoFrames
	}

	return gif.EncodeAll(w, g)
}

func loadImage(file string) (image.Image, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}

	return m, nil
}

// Frames reconstructs every sprite in m using the atlas images found in dir.
func Frames(dir string, m *manifest.Manifest) ([]image.Image, error) {
	atlases := make(map[int]image.Image, len(m.Atlases))
	for _, a := range m.Atlases {
		img, err := loadImage(filepath.Join(dir, a.File))
		if err != nil {
			return nil, err
		}
		atlases[a.Index] = img
	}

	frames := make([]image.Image, 0, len(m.Sprites))
	for _, ms := range m.Sprites {
		s := ms.Sprite()

		a, ok := atlases[s.Atlas]
		if !ok {
			if len(s.Vertices) == 0 {
				continue
			}
			return nil, fmt.Errorf("preview: sprite %s references unknown atlas %d", s.ID, s.Atlas)
		}

		img, err := Reconstruct(s, a, m.PPU)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.ID, err)
		}
		frames = append(frames, img)
	}

	return frames, nil
}
