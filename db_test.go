package spritedice

import (
	"context"
	"image"
	"path/filepath"
	"testing"

	"github.com/bodgit/spritedice/atlas"
	"github.com/bodgit/spritedice/contenthash"
	"github.com/bodgit/spritedice/preview"
	"github.com/bodgit/spritedice/tile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "sprites.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDBAtlasDeduplicated(t *testing.T) {
	db := openDB(t)

	first, err := db.PutAtlas(0, pattern(4, 4, 1))
	require.NoError(t, err)
	again, err := db.PutAtlas(1, pattern(4, 4, 1))
	require.NoError(t, err)
	other, err := db.PutAtlas(2, pattern(4, 4, 2))
	require.NoError(t, err)

	assert.Equal(t, first, again)
	assert.NotEqual(t, first, other)

	m, err := db.FindAtlas(first)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, image.Rect(0, 0, 4, 4), m.Bounds())

	m, err = db.FindAtlas("999")
	require.NoError(t, err)
	assert.Nil(t, m)

	_, err = db.FindAtlas("bogus")
	assert.Error(t, err)
}

func TestDBRun(t *testing.T) {
	db := openDB(t)

	sources := StaticSources{
		{ID: "one", Image: pattern(4, 2, 1)},
		{ID: "two", Image: pattern(2, 4, 2)},
	}

	opts := testOptions()
	result, err := newBuilder(t, opts).Run(context.Background(), sources, db, db)
	require.NoError(t, err)
	require.Len(t, result.Atlases, 1)

	for _, src := range sources {
		s, handle, err := db.FindSprite(src.ID)
		require.NoError(t, err)
		require.NotNil(t, s, src.ID)

		m, err := db.FindAtlas(handle)
		require.NoError(t, err)

		got, err := preview.Reconstruct(s, m, opts.PPU)
		require.NoError(t, err)
		assert.Equal(t, src.Image.Pix, got.Pix, src.ID)
	}

	// Every unit can be located again by its hash
	for h, uv := range result.Atlases[0].UV {
		loc, err := db.FindUnit(h)
		require.NoError(t, err)
		require.NotNil(t, loc)
		assert.Equal(t, uv, loc.UV)
	}

	s, _, err := db.FindSprite("three")
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestDBReplaceSprites(t *testing.T) {
	db := openDB(t)
	b := newBuilder(t, testOptions())

	_, err := b.Run(context.Background(), StaticSources{{ID: "old", Image: pattern(2, 2, 1)}}, db, db)
	require.NoError(t, err)

	_, err = b.Run(context.Background(), StaticSources{{ID: "new", Image: pattern(2, 2, 2)}}, db, db)
	require.NoError(t, err)

	s, _, err := db.FindSprite("old")
	require.NoError(t, err)
	assert.Nil(t, s)

	s, _, err = db.FindSprite("new")
	require.NoError(t, err)
	assert.NotNil(t, s)

	tex, err := tile.Dice(&tile.Source{ID: "x", Image: pattern(2, 2, 3)}, tile.Options{UnitSize: 2})
	require.NoError(t, err)
	loc, err := db.FindUnit(tex.Units[0].Hash)
	require.NoError(t, err)
	assert.Nil(t, loc)

	assert.Error(t, db.ReplaceSprites([]string{"bogus"}, nil))
	assert.Error(t, db.PutUVs("bogus", map[contenthash.Hash]atlas.UVRect{}))
}
