package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/bodgit/spritedice"
	"github.com/bodgit/spritedice/manifest"
	"github.com/bodgit/spritedice/preview"
	"github.com/bodgit/spritedice/tile"
	"github.com/urfave/cli/v2"
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newLogger(c *cli.Context) *log.Logger {
	logger := log.New(io.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

func diceFlags() []cli.Flag {
	d := spritedice.DefaultOptions()
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "unit-size",
			Aliases: []string{"u"},
			EnvVars: []string{"SPRITEDICE_UNIT_SIZE"},
			Value:   d.UnitSize,
			Usage:   "size of a unit in pixels",
		},
		&cli.IntFlag{
			Name:    "padding",
			Aliases: []string{"p"},
			EnvVars: []string{"SPRITEDICE_PADDING"},
			Value:   d.Padding,
			Usage:   "border pixels stored around each unit",
		},
		&cli.Float64Flag{
			Name:  "uv-inset",
			Value: d.UVInset,
			Usage: "shrink unit texture coordinates, 0 to 0.5",
		},
		&cli.BoolFlag{
			Name:  "trim",
			Value: d.TrimTransparent,
			Usage: "drop fully transparent units",
		},
		&cli.IntFlag{
			Name:    "size-limit",
			Aliases: []string{"s"},
			EnvVars: []string{"SPRITEDICE_SIZE_LIMIT"},
			Value:   d.SizeLimit,
			Usage:   "maximum atlas width and height",
		},
		&cli.BoolFlag{
			Name:  "square",
			Usage: "force square atlases",
		},
		&cli.BoolFlag{
			Name:  "pot",
			Usage: "force power of two atlas dimensions",
		},
		&cli.Float64Flag{
			Name:    "ppu",
			EnvVars: []string{"SPRITEDICE_PPU"},
			Value:   d.PPU,
			Usage:   "pixels per mesh unit",
		},
		&cli.Float64Flag{
			Name:  "pivot-x",
			Value: d.Pivot.X,
			Usage: "default pivot, relative to the left edge",
		},
		&cli.Float64Flag{
			Name:  "pivot-y",
			Value: d.Pivot.Y,
			Usage: "default pivot, relative to the bottom edge",
		},
		&cli.IntFlag{
			Name:  "max-vertices",
			Usage: "vertex limit per sprite, 0 for the default",
		},
		&cli.IntFlag{
			Name:    "workers",
			Aliases: []string{"j"},
			Usage:   "number of workers, 0 for one per CPU",
		},
		&cli.BoolFlag{
			Name:    "recursive",
			Aliases: []string{"r"},
			Usage:   "include subdirectories",
		},
		&cli.StringFlag{
			Name:  "separator",
			Value: spritedice.DefaultSeparator,
			Usage: "joins directory names in sprite ids",
		},
		&cli.BoolFlag{
			Name:    "compress",
			Aliases: []string{"z"},
			EnvVars: []string{"SPRITEDICE_COMPRESS"},
			Usage:   "write a zstd compressed manifest",
		},
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"SPRITEDICE_DB"},
			Usage:   "store the output in a SQLite database instead of a directory",
		},
	}
}

func diceOptions(c *cli.Context, logger *log.Logger) spritedice.Options {
	opts := spritedice.DefaultOptions()
	opts.UnitSize = c.Int("unit-size")
	opts.Padding = c.Int("padding")
	opts.UVInset = c.Float64("uv-inset")
	opts.TrimTransparent = c.Bool("trim")
	opts.SizeLimit = c.Int("size-limit")
	opts.Square = c.Bool("square")
	opts.PowerOfTwo = c.Bool("pot")
	opts.PPU = c.Float64("ppu")
	opts.Pivot = tile.Pivot{X: c.Float64("pivot-x"), Y: c.Float64("pivot-y")}
	opts.MaxVertices = c.Int("max-vertices")
	opts.Workers = c.Int("workers")
	opts.Progress = func(stage spritedice.Stage, done, total int) {
		if done == total {
			logger.Printf("Finished %s stage, %d of %d\n", stage, done, total)
		}
	}
	return opts
}

func dice(c *cli.Context) error {
	if c.NArg() < 1 || (c.NArg() < 2 && c.String("db") == "") {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	logger := newLogger(c)
	opts := diceOptions(c, logger)

	b, err := spritedice.New(opts, logger)
	if err != nil {
		return cli.Exit(err, 1)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	provider := spritedice.NewDirProvider(c.Args().First(), c.Bool("recursive"), c.String("separator"), logger)

	var (
		textures spritedice.TextureSink
		sprites  spritedice.SpriteSink
	)

	if file := c.String("db"); file != "" {
		db, err := spritedice.OpenDB(file)
		if err != nil {
			return cli.Exit(err, 1)
		}
		defer db.Close()
		textures, sprites = db, db
	} else {
		sink, err := spritedice.NewDirSink(c.Args().Get(1), opts.PPU, c.Bool("compress"))
		if err != nil {
			return cli.Exit(err, 1)
		}
		textures, sprites = sink, sink
	}

	result, err := b.Run(ctx, provider, textures, sprites)
	if err != nil {
		return cli.Exit(err, 1)
	}

	for _, f := range result.Failures {
		fmt.Fprintf(c.App.ErrWriter, "warning: %s\n", f)
	}

	logger.Printf("Built %d sprites in %d atlases\n", len(result.Sprites), len(result.Atlases))

	return nil
}

func render(c *cli.Context) error {
	if c.NArg() < 2 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	logger := newLogger(c)
	dir := c.Args().First()

	m, err := manifest.ReadFile(dir)
	if err != nil {
		return cli.Exit(err, 1)
	}

	frames, err := preview.Frames(dir, m)
	if err != nil {
		return cli.Exit(err, 1)
	}

	f, err := os.Create(c.Args().Get(1))
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer f.Close()

	if err := preview.EncodeGIF(f, frames, c.Int("delay")); err != nil {
		return cli.Exit(err, 1)
	}

	logger.Printf("Rendered %d sprites\n", len(frames))

	return f.Close()
}

func main() {
	app := cli.NewApp()

	app.Name = "spritedice"
	app.Usage = "Sprite dicing and atlas packing utility"
	app.Version = "1.0.0"

	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:        "dice",
			Usage:       "Dice a directory of images into atlases and sprites",
			Description: "Writes atlas_<n>.png files and a sprites.json manifest into OUTPUT, or into a database with --db",
			ArgsUsage:   "SOURCE [OUTPUT]",
			Flags:       diceFlags(),
			Action:      dice,
		},
		{
			Name:        "preview",
			Usage:       "Render the sprites in an output directory as an animated GIF",
			Description: "",
			ArgsUsage:   "OUTPUT FILE",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "delay",
					Value: 50,
					Usage: "frame delay in hundredths of a second",
				},
			},
			Action: render,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
