// Package extractor deduplicates the cells of a grid-aligned image into a
// set of unique tiles and a per-cell map of tile index and orientation.
package extractor

import (
	"fmt"
	"time"

	"github.com/kiesman99/tilex/pkg/tile"
)

// ProgressInterval is the number of cells processed between progress reports
const ProgressInterval = 32

// Result contains the extraction result
type Result struct {
	// Tiles holds the unique tiles in order of first appearance
	Tiles []tile.Buffer
	// Map holds one entry per grid cell in raster order
	Map        []tile.Cell
	Grid       tile.Grid
	TileWidth  int
	TileHeight int
	Elapsed    time.Duration
}

// ElapsedMs returns the scan duration in whole milliseconds
func (r *Result) ElapsedMs() int64 {
	return r.Elapsed.Milliseconds()
}

// Tile returns the buffer the given cell refers to
func (r *Result) Tile(c tile.Cell) tile.Buffer {
	return r.Tiles[c.Index]
}

// Extract validates the options and runs a full scan on the calling goroutine.
// progress, when non-nil, receives the fraction of cells processed.
func Extract(opts *Options, progress func(float64)) (*Result, error) {
	grid, err := opts.Validate()
	if err != nil {
		return nil, err
	}

	return run(opts, grid, func(p float64) bool {
		if progress != nil {
			progress(p)
		}
		return true
	})
}

// run performs the scan. It stops early only when report returns false.
func run(opts *Options, grid tile.Grid, report func(float64) bool) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = &ExecutionError{Cause: fmt.Sprint(r)}
		}
	}()

	start := time.Now()

	s := &scanner{
		src:        opts.Source,
		tileWidth:  opts.TileWidth,
		tileHeight: opts.TileHeight,
		tolerance:  opts.Tolerance,
		flip:       opts.AllowFlipping,
	}

	numCells := grid.Cells()
	tiles := make([]tile.Buffer, 0)
	cells := make([]tile.Cell, 0, numCells)

	for i := 0; i < numCells; i++ {
		col, row := grid.Cell(i)

		index, orientation, ok := s.match(col, row, tiles)
		if !ok {
			tiles = append(tiles, s.cut(col, row))
			index = len(tiles) - 1
			orientation = tile.Normal
		}
		cells = append(cells, tile.Cell{Index: index, Orientation: orientation})

		if i%ProgressInterval == 0 {
			if !report(float64(i) / float64(numCells)) {
				return nil, errAbandoned
			}
		}
	}

	return &Result{
		Tiles:      tiles,
		Map:        cells,
		Grid:       grid,
		TileWidth:  opts.TileWidth,
		TileHeight: opts.TileHeight,
		Elapsed:    time.Since(start),
	}, nil
}
