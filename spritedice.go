/*
Package spritedice deduplicates and repacks sprite textures.

Each source image is diced into fixed-size units, every distinct unit is
stored once across one or more atlas images, and each source is rebuilt as
a mesh whose quads sample the shared units. Sprites that repeat regions,
such as animation frames or tilesets, end up sharing atlas space.

A Builder runs the whole pass. Sources come from a SourceProvider, atlas
images go to a TextureSink and the finished sprites go to a SpriteSink.
DirProvider, DirSink and DB are the implementations used by the command line
tool.
*/
package spritedice

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"sync"

	"github.com/bodgit/spritedice/atlas"
	"github.com/bodgit/spritedice/contenthash"
	"github.com/bodgit/spritedice/sprite"
	"github.com/bodgit/spritedice/tile"
)

// ErrDuplicateID is returned when two sources share an id.
var ErrDuplicateID = errors.New("duplicate sprite id")

// SourceProvider yields the sources for a build.
type SourceProvider interface {
	Sources(ctx context.Context) ([]*tile.Source, error)
}

// TextureSink stores atlas images. The returned handle is passed back to
// the SpriteSink, indexed by atlas.
type TextureSink interface {
	PutAtlas(index int, m *image.NRGBA) (string, error)
}

// UVSink is optionally implemented by a TextureSink that also wants the
// texture coordinates of every unit in an atlas.
type UVSink interface {
	PutUVs(handle string, uv map[contenthash.Hash]atlas.UVRect) error
}

// SpriteSink stores built sprites. Each call replaces the whole set.
type SpriteSink interface {
	ReplaceSprites(atlases []string, sprites []*sprite.Sprite) error
}

// StaticSources is a SourceProvider for sources already in memory.
type StaticSources []*tile.Source

// Sources returns the sources unchanged.
func (s StaticSources) Sources(_ context.Context) ([]*tile.Source, error) {
	return s, nil
}

// SpriteError records a sprite that was left out of a build.
type SpriteError struct {
	ID  string
	Err error
}

func (e *SpriteError) Error() string {
	return fmt.Sprintf("%s: %v", e.ID, e.Err)
}

func (e *SpriteError) Unwrap() error {
	return e.Err
}

// Result is the output of a build.
type Result struct {
	Atlases []*atlas.Atlas
	// Sprites are in source order, less any failures
	Sprites  []*sprite.Sprite
	Failures []*SpriteError
}

// Builder runs builds with a fixed set of options.
type Builder struct {
	opts   Options
	logger *log.Logger

	mu sync.Mutex
}

// New returns a Builder after validating opts. A nil logger discards
// output.
func New(opts Options, logger *log.Logger) (*Builder, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Builder{
		opts:   opts,
		logger: logger,
	}, nil
}

func (b *Builder) progress(stage Stage, done, total int) {
	if b.opts.Progress == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opts.Progress(stage, done, total)
}

func checkIDs(sources []*tile.Source) error {
	seen := make(map[string]struct{}, len(sources))
	for _, s := range sources {
		if _, ok := seen[s.ID]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateID, s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	return nil
}

// Build dices, packs and builds sprites for sources. Sprites that exceed
// the vertex limit are reported in the result rather than failing the
// build; any other error aborts it.
func (b *Builder) Build(ctx context.Context, sources []*tile.Source) (*Result, error) {
	if err := checkIDs(sources); err != nil {
		return nil, err
	}

	textures, err := b.dice(ctx, sources)
	if err != nil {
		return nil, err
	}

	opts := b.opts.atlasOptions()
	opts.Progress = func(round, placed, total int) {
		b.logger.Printf("Packed atlas %d, %d of %d textures placed\n", round-1, placed, total)
		b.progress(StagePack, placed, total)
	}

	atlases, err := atlas.Pack(ctx, textures, opts)
	if err != nil {
		return nil, err
	}

	sprites, failures, err := b.build(ctx, textures, atlases)
	if err != nil {
		return nil, err
	}

	for _, f := range failures {
		b.logger.Printf("Skipping %s\n", f)
	}

	return &Result{
		Atlases:  atlases,
		Sprites:  sprites,
		Failures: failures,
	}, nil
}

// Run builds the sources from provider and hands the atlases and sprites to
// the sinks.
func (b *Builder) Run(ctx context.Context, provider SourceProvider, textures TextureSink, sprites SpriteSink) (*Result, error) {
	sources, err := provider.Sources(ctx)
	if err != nil {
		return nil, err
	}

	result, err := b.Build(ctx, sources)
	if err != nil {
		return nil, err
	}

	handles := make([]string, len(result.Atlases))
	for i, a := range result.Atlases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if handles[i], err = textures.PutAtlas(i, a.Image); err != nil {
			return nil, fmt.Errorf("atlas %d: %w", i, err)
		}

		if us, ok := textures.(UVSink); ok {
			if err := us.PutUVs(handles[i], a.UV); err != nil {
				return nil, fmt.Errorf("atlas %d: %w", i, err)
			}
		}

		b.logger.Printf("Wrote atlas %d as %s\n", i, handles[i])
		b.progress(StageWrite, i+1, len(result.Atlases))
	}

	if err := sprites.ReplaceSprites(handles, result.Sprites); err != nil {
		return nil, err
	}

	return result, nil
}
