package spritedice

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bodgit/spritedice/atlas"
	"github.com/bodgit/spritedice/sprite"
	"github.com/bodgit/spritedice/tile"
)

func emitIndices(ctx context.Context, n int) (<-chan int, <-chan error) {
	out := make(chan int)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		for i := 0; i < n; i++ {
			select {
			case out <- i:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()
	return out, errc
}

type counter struct {
	mu sync.Mutex
	n  int
}

// inc bumps the count and passes it to f, holding the lock so that f sees
// the counts in order.
func (c *counter) inc(f func(int)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	f(c.n)
}

func (b *Builder) diceWorker(in <-chan int, sources []*tile.Source, textures []*tile.Texture, done *counter) <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		opts := b.opts.tileOptions()
		for i := range in {
			t, err := tile.Dice(sources[i], opts)
			if err != nil {
				errc <- fmt.Errorf("%s: %w", sources[i].ID, err)
				return
			}
			textures[i] = t

			b.logger.Printf("Diced %s into %d units, %d unique\n", sources[i].ID, len(t.Units), len(t.Unique))
			done.inc(func(n int) {
				b.progress(StageDice, n, len(sources))
			})
		}
	}()
	return errc
}

func (b *Builder) dice(ctx context.Context, sources []*tile.Source) ([]*tile.Texture, error) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	textures := make([]*tile.Texture, len(sources))

	in, errc := emitIndices(ctx, len(sources))
	errcList := []<-chan error{errc}

	done := new(counter)
	for i := 0; i < b.opts.workers(); i++ {
		errcList = append(errcList, b.diceWorker(in, sources, textures, done))
	}

	if err := waitForPipeline(errcList...); err != nil {
		return nil, err
	}

	return textures, nil
}

type buildJob struct {
	texture *tile.Texture
	atlas   *atlas.Atlas
	index   int
}

func (b *Builder) buildWorker(in <-chan int, jobs []buildJob, sprites []*sprite.Sprite, failures []*SpriteError, done *counter) <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		opts := b.opts.spriteOptions()
		for i := range in {
			j := jobs[i]
			s, err := sprite.Build(j.texture, j.atlas, j.index, opts)
			switch {
			case errors.Is(err, sprite.ErrGeometryOverflow):
				failures[i] = &SpriteError{
					ID:  j.texture.Source.ID,
					Err: err,
				}
			case err != nil:
				errc <- fmt.Errorf("%s: %w", j.texture.Source.ID, err)
				return
			default:
				sprites[i] = s
			}

			done.inc(func(n int) {
				b.progress(StageBuild, n, len(jobs))
			})
		}
	}()
	return errc
}

// build creates one sprite per texture. The results keep the order of
// textures with failed sprites omitted.
func (b *Builder) build(ctx context.Context, textures []*tile.Texture, atlases []*atlas.Atlas) ([]*sprite.Sprite, []*SpriteError, error) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	assigned := make(map[*tile.Texture]int, len(textures))
	for i, a := range atlases {
		for _, t := range a.Textures {
			assigned[t] = i
		}
	}

	jobs := make([]buildJob, len(textures))
	for i, t := range textures {
		index, ok := assigned[t]
		if !ok {
			return nil, nil, fmt.Errorf("%s: texture not packed", t.Source.ID)
		}
		jobs[i] = buildJob{
			texture: t,
			atlas:   atlases[index],
			index:   index,
		}
	}

	sprites := make([]*sprite.Sprite, len(jobs))
	failures := make([]*SpriteError, len(jobs))

	in, errc := emitIndices(ctx, len(jobs))
	errcList := []<-chan error{errc}

	done := new(counter)
	for i := 0; i < b.opts.workers(); i++ {
		errcList = append(errcList, b.buildWorker(in, jobs, sprites, failures, done))
	}

	if err := waitForPipeline(errcList...); err != nil {
		return nil, nil, err
	}

	return compact(sprites), compact(failures), nil
}

func compact[T any](s []*T) []*T {
	out := make([]*T, 0, len(s))
	for _, v := range s {
		if v != nil {
			out = append(out, v)
		}
	}
	return out
}

func waitForPipeline(errs ...<-chan error) error {
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}
	return nil
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}
