package spritedice

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/bodgit/spritedice/preview"
	"github.com/bodgit/spritedice/sprite"
	"github.com/bodgit/spritedice/tile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pattern(w, h, seed int) *image.NRGBA {
	m := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m.SetNRGBA(x, y, color.NRGBA{uint8(x*50 + seed*7), uint8(y * 50), uint8(seed * 60), 0xff})
		}
	}
	return m
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.UnitSize = 2
	opts.Padding = 1
	opts.SizeLimit = 64
	opts.TrimTransparent = false
	opts.Workers = 3
	return opts
}

func newBuilder(t *testing.T, opts Options) *Builder {
	t.Helper()
	b, err := New(opts, nil)
	require.NoError(t, err)
	return b
}

func assertReconstructs(t *testing.T, result *Result, sources []*tile.Source, ppu float64) {
	t.Helper()
	byID := make(map[string]*tile.Source, len(sources))
	for _, s := range sources {
		byID[s.ID] = s
	}
	for _, s := range result.Sprites {
		src, ok := byID[s.ID]
		require.True(t, ok, s.ID)
		require.Less(t, s.Atlas, len(result.Atlases))

		got, err := preview.Reconstruct(s, result.Atlases[s.Atlas].Image, ppu)
		require.NoError(t, err)
		require.Equal(t, src.Image.Bounds().Size(), got.Bounds().Size(), s.ID)
		assert.Equal(t, src.Image.Pix, got.Pix, s.ID)
	}
}

func TestBuild(t *testing.T) {
	// The second source repeats the first with an extra row
	first := pattern(4, 4, 1)
	second := image.NewNRGBA(image.Rect(0, 0, 4, 6))
	copy(second.Pix, first.Pix)
	copy(second.Pix[len(first.Pix):], pattern(4, 2, 2).Pix)

	sources := []*tile.Source{
		{ID: "first", Image: first},
		{ID: "second", Image: second},
		{ID: "odd", Image: pattern(3, 5, 3)},
	}

	opts := testOptions()
	result, err := newBuilder(t, opts).Build(context.Background(), sources)
	require.NoError(t, err)

	require.Len(t, result.Atlases, 1)
	require.Len(t, result.Sprites, 3)
	assert.Empty(t, result.Failures)

	for i, s := range result.Sprites {
		assert.Equal(t, sources[i].ID, s.ID)
	}

	// first has 4 units, second only adds 2 and odd adds 6
	assert.Equal(t, 12, result.Atlases[0].Units())

	assertReconstructs(t, result, sources, opts.PPU)
}

func TestBuildMultipleAtlases(t *testing.T) {
	var sources []*tile.Source
	for i := 0; i < 3; i++ {
		sources = append(sources, &tile.Source{ID: string(rune('a' + i)), Image: pattern(4, 4, i)})
	}

	opts := testOptions()
	opts.Padding = 0
	opts.SizeLimit = 4

	result, err := newBuilder(t, opts).Build(context.Background(), sources)
	require.NoError(t, err)

	require.Len(t, result.Atlases, 3)
	require.Len(t, result.Sprites, 3)

	atlases := make(map[int]struct{})
	for _, s := range result.Sprites {
		atlases[s.Atlas] = struct{}{}
	}
	assert.Len(t, atlases, 3)

	assertReconstructs(t, result, sources, opts.PPU)
}

func TestBuildCollectsOverflow(t *testing.T) {
	sources := []*tile.Source{
		{ID: "big", Image: pattern(6, 2, 1)},
		{ID: "small", Image: pattern(2, 2, 2)},
	}

	opts := testOptions()
	opts.MaxVertices = 4

	result, err := newBuilder(t, opts).Build(context.Background(), sources)
	require.NoError(t, err)

	require.Len(t, result.Sprites, 1)
	assert.Equal(t, "small", result.Sprites[0].ID)

	require.Len(t, result.Failures, 1)
	assert.Equal(t, "big", result.Failures[0].ID)
	assert.ErrorIs(t, result.Failures[0], sprite.ErrGeometryOverflow)
}

func TestBuildUnpackable(t *testing.T) {
	opts := testOptions()
	opts.Padding = 0
	opts.SizeLimit = 2

	_, err := newBuilder(t, opts).Build(context.Background(), []*tile.Source{{ID: "big", Image: pattern(4, 4, 1)}})
	assert.Error(t, err)
}

func TestBuildDuplicateID(t *testing.T) {
	sources := []*tile.Source{
		{ID: "same", Image: pattern(2, 2, 1)},
		{ID: "same", Image: pattern(2, 2, 2)},
	}
	_, err := newBuilder(t, testOptions()).Build(context.Background(), sources)
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newBuilder(t, testOptions()).Build(ctx, []*tile.Source{{ID: "a", Image: pattern(4, 4, 1)}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildEmpty(t *testing.T) {
	result, err := newBuilder(t, testOptions()).Build(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Atlases)
	assert.Empty(t, result.Sprites)
}

func TestBuildProgress(t *testing.T) {
	opts := testOptions()

	last := make(map[Stage]int)
	opts.Progress = func(stage Stage, done, total int) {
		assert.LessOrEqual(t, done, total)
		assert.Greater(t, done, last[stage])
		last[stage] = done
	}

	sources := []*tile.Source{
		{ID: "a", Image: pattern(2, 2, 1)},
		{ID: "b", Image: pattern(2, 2, 2)},
	}
	_, err := newBuilder(t, opts).Build(context.Background(), sources)
	require.NoError(t, err)

	assert.Equal(t, map[Stage]int{StageDice: 2, StagePack: 2, StageBuild: 2}, last)
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())

	tables := []struct {
		field string
		f     func(*Options)
	}{
		{"UnitSize", func(o *Options) { o.UnitSize = 0 }},
		{"Padding", func(o *Options) { o.Padding = -1 }},
		{"Padding", func(o *Options) { o.Padding = o.UnitSize + 1 }},
		{"UVInset", func(o *Options) { o.UVInset = .6 }},
		{"UVInset", func(o *Options) { o.UVInset = -.1 }},
		{"SizeLimit", func(o *Options) { o.SizeLimit = 0 }},
		{"SizeLimit", func(o *Options) { o.SizeLimit = 67 }},
		{"SizeLimit", func(o *Options) { o.SizeLimit = 100; o.PowerOfTwo = true }},
		{"PPU", func(o *Options) { o.PPU = 0 }},
		{"MaxVertices", func(o *Options) { o.MaxVertices = -1 }},
		{"Workers", func(o *Options) { o.Workers = -1 }},
	}

	for _, table := range tables {
		opts := DefaultOptions()
		table.f(&opts)

		err := opts.Validate()
		require.ErrorIs(t, err, ErrInvalidConfig, table.field)

		var ce *ConfigError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, table.field, ce.Field)

		_, err = New(opts, nil)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	}
}

func TestOptionsValidateMatchesBudget(t *testing.T) {
	for _, pot := range []bool{false, true} {
		for limit := 1; limit <= 80; limit++ {
			opts := DefaultOptions()
			opts.UnitSize = 30
			opts.Padding = 2
			opts.SizeLimit = limit
			opts.PowerOfTwo = pot

			err := opts.Validate()
			if opts.atlasOptions().Budget() == 0 {
				assert.ErrorIs(t, err, ErrInvalidConfig, "limit %d", limit)
			} else {
				assert.NoError(t, err, "limit %d", limit)
			}
		}
	}

	// A limit of 100 rounds down to 64, enough for a 60 pixel unit
	opts := DefaultOptions()
	opts.UnitSize = 60
	opts.SizeLimit = 100
	opts.PowerOfTwo = true
	assert.NoError(t, opts.Validate())
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "dice", StageDice.String())
	assert.Equal(t, "write", StageWrite.String())
	assert.Equal(t, "Stage(9)", Stage(9).String())
}
