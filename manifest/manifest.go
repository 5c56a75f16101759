/*
Package manifest implements the manifest written alongside the atlas images
of a build, describing every atlas and the mesh of every sprite.

The manifest is JSON. It may be compressed with Zstandard, in which case it
is written with a .zst suffix; Decode detects either form.
*/
package manifest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/bodgit/spritedice/sprite"
	"github.com/bodgit/spritedice/tile"
	"github.com/klauspost/compress/zstd"
)

const (
	// Filename is the expected filename used when writing to disk
	Filename = "sprites.json"

	// CompressedFilename is used instead of Filename when compressing
	CompressedFilename = Filename + ".zst"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Atlas describes an atlas image.
type Atlas struct {
	Index  int    `json:"index"`
	File   string `json:"file"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Vertex is a mesh vertex position.
type Vertex struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// UV is a texture coordinate.
type UV struct {
	U float64 `json:"u"`
	V float64 `json:"v"`
}

// Rect is the bounding rectangle of a sprite mesh.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Pivot is the relative position of the sprite origin.
type Pivot struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sprite is the serialized form of a sprite.Sprite.
type Sprite struct {
	ID       string   `json:"id"`
	Atlas    int      `json:"atlas"`
	Vertices []Vertex `json:"vertices"`
	UVs      []UV     `json:"uvs"`
	Indices  []uint32 `json:"indices"`
	Rect     Rect     `json:"rect"`
	Pivot    Pivot    `json:"pivot"`
}

// FromSprite converts s to its serialized form.
func FromSprite(s *sprite.Sprite) Sprite {
	out := Sprite{
		ID:       s.ID,
		Atlas:    s.Atlas,
		Vertices: make([]Vertex, len(s.Vertices)),
		UVs:      make([]UV, len(s.UVs)),
		Indices:  append([]uint32{}, s.Indices...),
		Rect:     Rect{s.Rect.X, s.Rect.Y, s.Rect.W, s.Rect.H},
		Pivot:    Pivot{s.Pivot.X, s.Pivot.Y},
	}
	for i, v := range s.Vertices {
		out.Vertices[i] = Vertex{v.X, v.Y}
	}
	for i, uv := range s.UVs {
		out.UVs[i] = UV{uv.X, uv.Y}
	}
	return out
}

// Sprite converts the serialized form back to a sprite.Sprite.
func (s Sprite) Sprite() *sprite.Sprite {
	out := &sprite.Sprite{
		ID:       s.ID,
		Atlas:    s.Atlas,
		Vertices: make([]sprite.Vec2, len(s.Vertices)),
		UVs:      make([]sprite.Vec2, len(s.UVs)),
		Indices:  append([]uint32{}, s.Indices...),
		Rect:     sprite.Rect{X: s.Rect.X, Y: s.Rect.Y, W: s.Rect.Width, H: s.Rect.Height},
		Pivot:    tile.Pivot{X: s.Pivot.X, Y: s.Pivot.Y},
	}
	for i, v := range s.Vertices {
		out.Vertices[i] = sprite.Vec2{X: v.X, Y: v.Y}
	}
	for i, uv := range s.UVs {
		out.UVs[i] = sprite.Vec2{X: uv.U, Y: uv.V}
	}
	return out
}

// Manifest is the manifest object. It implements the
// encoding.BinaryMarshaler and encoding.BinaryUnmarshaler interfaces.
type Manifest struct {
	// PPU is the pixels per unit the sprites were built with
	PPU     float64  `json:"ppu"`
	Atlases []Atlas  `json:"atlases"`
	Sprites []Sprite `json:"sprites"`
}

// New returns a manifest for the given atlases and sprites.
func New(ppu float64, atlases []Atlas, sprites []*sprite.Sprite) *Manifest {
	m := &Manifest{
		PPU:     ppu,
		Atlases: append([]Atlas{}, atlases...),
		Sprites: make([]Sprite, 0, len(sprites)),
	}
	for _, s := range sprites {
		m.Sprites = append(m.Sprites, FromSprite(s))
	}
	return m
}

// Length returns the number of sprites in the manifest
func (m *Manifest) Length() int {
	return len(m.Sprites)
}

// MarshalBinary encodes the manifest as indented JSON
func (m *Manifest) MarshalBinary() ([]byte, error) {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// UnmarshalBinary decodes the manifest from JSON
func (m *Manifest) UnmarshalBinary(b []byte) error {
	*m = Manifest{}
	if err := json.Unmarshal(b, m); err != nil {
		return err
	}
	for _, s := range m.Sprites {
		if len(s.Vertices) != len(s.UVs) {
			return errors.New("manifest: vertex and UV counts differ for " + s.ID)
		}
	}
	return nil
}

// Encode writes m to w, compressing it if requested.
func Encode(w io.Writer, m *Manifest, compress bool) error {
	b, err := m.MarshalBinary()
	if err != nil {
		return err
	}

	if !compress {
		_, err = w.Write(b)
		return err
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return err
	}

	if _, err = enc.Write(b); err != nil {
		enc.Close()
		return err
	}

	return enc.Close()
}

// Decode reads a manifest from r, decompressing it if necessary.
func Decode(r io.Reader) (*Manifest, error) {
	br := bufio.NewReader(r)

	magic, err := br.Peek(len(zstdMagic))
	if err != nil && err != io.EOF {
		return nil, err
	}

	var b []byte
	if bytes.Equal(magic, zstdMagic) {
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, err
		}
		defer dec.Close()

		if b, err = io.ReadAll(dec); err != nil {
			return nil, err
		}
	} else {
		if b, err = io.ReadAll(br); err != nil {
			return nil, err
		}
	}

	m := new(Manifest)
	if err := m.UnmarshalBinary(b); err != nil {
		return nil, err
	}
	return m, nil
}

// WriteFile writes m into dir and returns the path written.
func WriteFile(dir string, m *Manifest, compress bool) (string, error) {
	file := filepath.Join(dir, Filename)
	if compress {
		file = filepath.Join(dir, CompressedFilename)
	}

	f, err := os.Create(file)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := Encode(f, m, compress); err != nil {
		return "", err
	}

	return file, f.Close()
}

// ReadFile reads the manifest in dir, preferring the uncompressed form.
func ReadFile(dir string) (*Manifest, error) {
	f, err := os.Open(filepath.Join(dir, Filename))
	if errors.Is(err, os.ErrNotExist) {
		f, err = os.Open(filepath.Join(dir, CompressedFilename))
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Decode(f)
}
