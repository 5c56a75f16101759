package spritedice

import (
	"context"
	"fmt"
	"image"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	// Decoders for the supported source formats
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/bodgit/spritedice/tile"
)

// DefaultSeparator joins path elements in the ids of directory sources.
const DefaultSeparator = "/"

var extensions = map[string]struct{}{
	".bmp":  {},
	".gif":  {},
	".jpeg": {},
	".jpg":  {},
	".png":  {},
	".tif":  {},
	".tiff": {},
	".webp": {},
}

// DirProvider reads sources from image files in a directory.
type DirProvider struct {
	dir       string
	recursive bool
	separator string
	logger    *log.Logger
}

// NewDirProvider returns a provider for the images in dir. With recursive
// set, subdirectories are included and a source id is the path relative to
// dir, without the extension, with its elements joined by separator.
func NewDirProvider(dir string, recursive bool, separator string, logger *log.Logger) *DirProvider {
	if separator == "" {
		separator = DefaultSeparator
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &DirProvider{
		dir:       dir,
		recursive: recursive,
		separator: separator,
		logger:    logger,
	}
}

func (p *DirProvider) id(root, file string) (string, error) {
	rel, err := filepath.Rel(root, file)
	if err != nil {
		return "", err
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	return strings.Join(strings.Split(rel, string(os.PathSeparator)), p.separator), nil
}

func (p *DirProvider) findFiles(ctx context.Context, root string) (<-chan string, <-chan error) {
	out := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		errc <- filepath.WalkDir(root, func(file string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if file == root {
				return nil
			}

			// Ignore any hidden files or directories
			if d.Name()[0] == '.' {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if d.IsDir() {
				if !p.recursive {
					return filepath.SkipDir
				}
				return nil
			}

			if !d.Type().IsRegular() {
				return nil
			}

			if _, ok := extensions[strings.ToLower(filepath.Ext(file))]; !ok {
				return nil
			}

			select {
			case out <- file:
			case <-ctx.Done():
				return ctx.Err()
			}

			return nil
		})
	}()
	return out, errc
}

func decodeFile(file string) (image.Image, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, _, err := image.Decode(f)
	return m, err
}

// decodeWorker keeps draining in after an error so the walk never blocks.
func (p *DirProvider) decodeWorker(root string, in <-chan string) (<-chan *tile.Source, <-chan error) {
	out := make(chan *tile.Source)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		var failed bool
		for file := range in {
			if failed {
				continue
			}

			id, err := p.id(root, file)
			if err == nil {
				var m image.Image
				if m, err = decodeFile(file); err == nil {
					p.logger.Printf("Read %s as %s\n", file, id)
					out <- tile.FromImage(id, m)
					continue
				}
			}

			errc <- fmt.Errorf("%s: %w", file, err)
			failed = true
		}
	}()
	return out, errc
}

func mergeSources(cs ...<-chan *tile.Source) <-chan *tile.Source {
	out := make(chan *tile.Source)
	done := make(chan struct{})
	for _, c := range cs {
		go func(c <-chan *tile.Source) {
			for s := range c {
				out <- s
			}
			done <- struct{}{}
		}(c)
	}
	go func() {
		for range cs {
			<-done
		}
		close(out)
	}()
	return out
}

// Sources decodes every supported image, sorted by id.
func (p *DirProvider) Sources(ctx context.Context) ([]*tile.Source, error) {
	root, err := filepath.Abs(p.dir)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", root)
	}

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	files, errc := p.findFiles(ctx, root)
	errcList := []<-chan error{errc}

	var outs []<-chan *tile.Source
	for i := 0; i < runtime.NumCPU(); i++ {
		out, errc := p.decodeWorker(root, files)
		outs = append(outs, out)
		errcList = append(errcList, errc)
	}

	var sources []*tile.Source
	for s := range mergeSources(outs...) {
		sources = append(sources, s)
	}

	if err := waitForPipeline(errcList...); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(sources, func(i, j int) bool { return sources[i].ID < sources[j].ID })

	return sources, nil
}
