package extractor

import (
	"fmt"

	"github.com/kiesman99/tilex/pkg/tile"
)

// Options contains all extraction parameters
type Options struct {
	// Source is the image to slice. It is never modified.
	Source tile.Buffer

	TileWidth  int
	TileHeight int

	// Tolerance is the largest accumulated absolute channel difference
	// between a cell and a tile that still counts as a match.
	Tolerance int

	// AllowFlipping enables matching against mirrored tiles
	AllowFlipping bool
}

// ValidationError reports malformed extraction input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ExecutionError reports an unexpected fault during a scan.
// No partial result accompanies it.
type ExecutionError struct {
	Cause string
}

func (e *ExecutionError) Error() string {
	return "extraction failed: " + e.Cause
}

// Validate checks the options and returns the grid they describe
func (o *Options) Validate() (tile.Grid, error) {
	if o.TileWidth <= 0 {
		return tile.Grid{}, &ValidationError{Field: "tile_width", Message: fmt.Sprintf("must be positive, got %d", o.TileWidth)}
	}
	if o.TileHeight <= 0 {
		return tile.Grid{}, &ValidationError{Field: "tile_height", Message: fmt.Sprintf("must be positive, got %d", o.TileHeight)}
	}
	if o.Tolerance < 0 {
		return tile.Grid{}, &ValidationError{Field: "tolerance", Message: fmt.Sprintf("must not be negative, got %d", o.Tolerance)}
	}
	if !o.Source.Valid() {
		return tile.Grid{}, &ValidationError{
			Field:   "source",
			Message: fmt.Sprintf("pixel data has %d bytes, %dx%d image needs %d", len(o.Source.Pix), o.Source.Width, o.Source.Height, o.Source.Width*o.Source.Height*tile.BytesPerPixel),
		}
	}

	grid := tile.Grid{
		Cols: o.Source.Width / o.TileWidth,
		Rows: o.Source.Height / o.TileHeight,
	}

	if grid.Cols == 0 || o.Source.Width%o.TileWidth != 0 {
		return tile.Grid{}, &ValidationError{Field: "tile_width", Message: fmt.Sprintf("image width %d not divisible by tile width %d", o.Source.Width, o.TileWidth)}
	}
	if grid.Rows == 0 || o.Source.Height%o.TileHeight != 0 {
		return tile.Grid{}, &ValidationError{Field: "tile_height", Message: fmt.Sprintf("image height %d not divisible by tile height %d", o.Source.Height, o.TileHeight)}
	}

	return grid, nil
}

// snapshot returns a copy of the options whose source pixels are owned by the copy
func (o *Options) snapshot() *Options {
	dup := *o
	dup.Source = o.Source.Clone()
	return &dup
}
