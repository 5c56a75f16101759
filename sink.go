package spritedice

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/bodgit/spritedice/manifest"
	"github.com/bodgit/spritedice/sprite"
)

// DirSink writes atlases as PNG files and sprites as a manifest into a
// directory.
type DirSink struct {
	dir      string
	ppu      float64
	compress bool
	atlases  map[string]manifest.Atlas
}

// NewDirSink creates dir if needed. ppu is recorded in the manifest and
// compress selects the zstd compressed manifest.
func NewDirSink(dir string, ppu float64, compress bool) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DirSink{
		dir:      dir,
		ppu:      ppu,
		compress: compress,
		atlases:  make(map[string]manifest.Atlas),
	}, nil
}

// AtlasFilename returns the name of the file holding atlas index.
func AtlasFilename(index int) string {
	return fmt.Sprintf("atlas_%d.png", index)
}

// PutAtlas writes m and returns its filename relative to the directory.
func (s *DirSink) PutAtlas(index int, m *image.NRGBA) (string, error) {
	file := AtlasFilename(index)

	f, err := os.Create(filepath.Join(s.dir, file))
	if err != nil {
		return "", err
	}
	defer f.Close()

	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(f, m); err != nil {
		return "", err
	}

	if err := f.Close(); err != nil {
		return "", err
	}

	s.atlases[file] = manifest.Atlas{
		Index:  index,
		File:   file,
		Width:  m.Rect.Dx(),
		Height: m.Rect.Dy(),
	}

	return file, nil
}

func (s *DirSink) removeStaleAtlases(keep map[string]struct{}) error {
	files, err := filepath.Glob(filepath.Join(s.dir, "atlas_*.png"))
	if err != nil {
		return err
	}

	for _, file := range files {
		var index int
		base := filepath.Base(file)
		if _, err := fmt.Sscanf(base, "atlas_%d.png", &index); err != nil || AtlasFilename(index) != base {
			continue
		}
		if _, ok := keep[base]; ok {
			continue
		}
		if err := os.Remove(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}

	return nil
}

// ReplaceSprites writes the manifest, removing any manifest in the other
// format and any atlas images not in atlases, so nothing left over from an
// earlier build can be read by mistake.
func (s *DirSink) ReplaceSprites(atlases []string, sprites []*sprite.Sprite) error {
	keep := make(map[string]struct{}, len(atlases))
	list := make([]manifest.Atlas, 0, len(atlases))
	for _, file := range atlases {
		a, ok := s.atlases[file]
		if !ok {
			return fmt.Errorf("unknown atlas %s", file)
		}
		keep[file] = struct{}{}
		list = append(list, a)
	}

	if err := s.removeStaleAtlases(keep); err != nil {
		return err
	}

	stale := manifest.Filename
	if !s.compress {
		stale = manifest.CompressedFilename
	}
	if err := os.Remove(filepath.Join(s.dir, stale)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	_, err := manifest.WriteFile(s.dir, manifest.New(s.ppu, list, sprites), s.compress)
	return err
}
