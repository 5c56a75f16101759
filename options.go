package spritedice

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/bodgit/spritedice/atlas"
	"github.com/bodgit/spritedice/sprite"
	"github.com/bodgit/spritedice/tile"
)

// ErrInvalidConfig is returned when the build options are unusable.
var ErrInvalidConfig = errors.New("invalid configuration")

// ConfigError names the offending option.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidConfig, e.Field, e.Reason)
}

// Is makes ConfigError match ErrInvalidConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// Stage identifies a phase of a build for progress reporting.
type Stage int

const (
	StageDice Stage = iota
	StagePack
	StageBuild
	StageWrite
)

var stageNames = [...]string{
	StageDice:  "dice",
	StagePack:  "pack",
	StageBuild: "build",
	StageWrite: "write",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

// Options control a build.
type Options struct {
	// UnitSize is the width and height of a unit in pixels
	UnitSize int
	// Padding is the number of border pixels stored around each unit
	Padding int
	// UVInset shrinks unit texture coordinates, 0 to 0.5
	UVInset float64
	// TrimTransparent drops fully transparent units
	TrimTransparent bool
	// SizeLimit is the maximum atlas width and height
	SizeLimit int
	// Square forces square atlases
	Square bool
	// PowerOfTwo forces atlas dimensions to powers of two
	PowerOfTwo bool
	// PPU is the number of pixels per mesh unit
	PPU float64
	// Pivot is the default sprite pivot
	Pivot tile.Pivot
	// KeepOriginalPivot prefers the pivot carried by a source
	KeepOriginalPivot bool
	// MaxVertices caps the vertices of a single sprite, zero means
	// sprite.DefaultMaxVertices
	MaxVertices int
	// Workers is the size of the dicing and building worker pools, zero
	// means runtime.NumCPU()
	Workers int
	// Progress, if set, is called as work completes. Calls are
	// serialized.
	Progress func(stage Stage, done, total int)
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		UnitSize:        64,
		Padding:         2,
		TrimTransparent: true,
		SizeLimit:       2048,
		PPU:             100,
		Pivot:           tile.Pivot{X: .5, Y: .5},
	}
}

// Validate checks every option, returning a *ConfigError for the first
// one out of range.
func (o Options) Validate() error {
	switch {
	case o.UnitSize < 1:
		return &ConfigError{"UnitSize", "must be at least 1"}
	case o.Padding < 0 || o.Padding > o.UnitSize:
		return &ConfigError{"Padding", "must be in the range 0 to UnitSize"}
	case o.UVInset < 0 || o.UVInset > .5:
		return &ConfigError{"UVInset", "must be in the range 0 to 0.5"}
	case o.SizeLimit < 1:
		return &ConfigError{"SizeLimit", "must be at least 1"}
	case o.atlasOptions().Budget() == 0:
		return &ConfigError{"SizeLimit", "must hold at least one padded unit"}
	case !(o.PPU > 0):
		return &ConfigError{"PPU", "must be greater than 0"}
	case o.MaxVertices < 0:
		return &ConfigError{"MaxVertices", "must not be negative"}
	case o.Workers < 0:
		return &ConfigError{"Workers", "must not be negative"}
	}
	return nil
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.NumCPU()
}

func (o Options) tileOptions() tile.Options {
	return tile.Options{
		UnitSize:        o.UnitSize,
		Padding:         o.Padding,
		TrimTransparent: o.TrimTransparent,
	}
}

func (o Options) atlasOptions() atlas.Options {
	return atlas.Options{
		UnitSize:   o.UnitSize,
		Padding:    o.Padding,
		SizeLimit:  o.SizeLimit,
		Square:     o.Square,
		PowerOfTwo: o.PowerOfTwo,
		UVInset:    o.UVInset,
	}
}

func (o Options) spriteOptions() sprite.Options {
	return sprite.Options{
		PPU:               o.PPU,
		Pivot:             o.Pivot,
		KeepOriginalPivot: o.KeepOriginalPivot,
		MaxVertices:       o.MaxVertices,
	}
}
