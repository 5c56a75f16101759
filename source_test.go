package spritedice

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/bodgit/spritedice/tile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func writeImage(t *testing.T, file string, m image.Image) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0o755))

	f, err := os.Create(file)
	require.NoError(t, err)
	defer f.Close()

	if filepath.Ext(file) == ".bmp" {
		require.NoError(t, bmp.Encode(f, m))
	} else {
		require.NoError(t, png.Encode(f, m))
	}
}

func sourceIDs(sources []*tile.Source) []string {
	ids := make([]string, 0, len(sources))
	for _, s := range sources {
		ids = append(ids, s.ID)
	}
	return ids
}

func testTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeImage(t, filepath.Join(dir, "b.png"), pattern(3, 2, 1))
	writeImage(t, filepath.Join(dir, "a.bmp"), pattern(2, 2, 2))
	writeImage(t, filepath.Join(dir, "sub", "c.png"), pattern(1, 4, 3))
	writeImage(t, filepath.Join(dir, "sub", "deeper", "d.png"), pattern(2, 1, 4))
	writeImage(t, filepath.Join(dir, ".hidden.png"), pattern(1, 1, 5))
	writeImage(t, filepath.Join(dir, ".cache", "e.png"), pattern(1, 1, 6))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not an image"), 0o644))
	return dir
}

func TestDirProvider(t *testing.T) {
	dir := testTree(t)

	sources, err := NewDirProvider(dir, false, "", nil).Sources(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, sourceIDs(sources))

	assert.Equal(t, pattern(2, 2, 2).Pix, sources[0].Image.Pix)
	assert.Equal(t, pattern(3, 2, 1).Pix, sources[1].Image.Pix)
	assert.Nil(t, sources[0].Pivot)
}

func TestDirProviderRecursive(t *testing.T) {
	dir := testTree(t)

	sources, err := NewDirProvider(dir, true, "", nil).Sources(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "sub/c", "sub/deeper/d"}, sourceIDs(sources))

	sources, err = NewDirProvider(dir, true, ".", nil).Sources(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "sub.c", "sub.deeper.d"}, sourceIDs(sources))
}

func TestDirProviderErrors(t *testing.T) {
	dir := testTree(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.png"), []byte("not a png"), 0o644))

	_, err := NewDirProvider(dir, true, "", nil).Sources(context.Background())
	assert.Error(t, err)

	_, err = NewDirProvider(filepath.Join(dir, "missing"), false, "", nil).Sources(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = NewDirProvider(filepath.Join(dir, "notes.txt"), false, "", nil).Sources(context.Background())
	assert.Error(t, err)
}

func TestDirProviderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDirProvider(testTree(t), true, "", nil).Sources(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStaticSources(t *testing.T) {
	sources := StaticSources{{ID: "x", Image: pattern(1, 1, 1)}}
	got, err := sources.Sources(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, sourceIDs(got))
}
