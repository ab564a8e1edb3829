// Package tileset runs an extraction on an image file and writes the
// tileset, map and preview files next to each other.
package tileset

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/kiesman99/tilex/internal/export"
	"github.com/kiesman99/tilex/internal/extractor"
	"github.com/kiesman99/tilex/pkg/tile"
)

// Output file names
const (
	MapFile     = "map.json"
	TMXFile     = "tiled.tmx"
	TilemapFile = "tilemap.png"
)

// Options contains all parameters of a file extraction
type Options struct {
	Input     string
	OutputDir string

	TileWidth     int
	TileHeight    int
	Tolerance     int
	AllowFlipping bool

	// Columns of the packed tileset, 0 for the square layout
	Columns int
	// TilesetName is the file name of the packed tileset image
	TilesetName    string
	TMXEncoding    string
	TMXCompression string
}

// OutputFile describes one written file
type OutputFile struct {
	Path string
	Size int64
}

// Summary describes a finished run
type Summary struct {
	Result *extractor.Result
	Format string
	Files  []OutputFile
}

// Builder handles a single file extraction
type Builder struct {
	options  *Options
	progress io.Writer
	logger   *log.Logger
}

// NewBuilder creates a new builder. Progress is written to progress and
// status lines to logger; pass io.Discard to silence either.
func NewBuilder(opts *Options, progress io.Writer, logger *log.Logger) *Builder {
	if opts.TilesetName == "" {
		opts.TilesetName = export.DefaultTilesetImage
	}

	return &Builder{
		options:  opts,
		progress: progress,
		logger:   logger,
	}
}

// Run reads the input image, extracts its tiles and writes every output file
func (b *Builder) Run() (*Summary, error) {
	tmx := export.TMXOptions{
		Encoding:     b.options.TMXEncoding,
		Compression:  b.options.TMXCompression,
		TilesetImage: b.options.TilesetName,
		Columns:      b.options.Columns,
	}
	if err := tmx.Validate(); err != nil {
		return nil, err
	}
	if b.options.Columns < 0 {
		return nil, fmt.Errorf("columns %d less than 0", b.options.Columns)
	}

	src, format, err := tile.ReadImage(b.options.Input)
	if err != nil {
		return nil, err
	}
	b.logger.Printf("==Input: %s (%s, %dx%d)", b.options.Input, format, src.Width, src.Height)
	b.logger.Printf("==Tile Size: %dx%d", b.options.TileWidth, b.options.TileHeight)

	opts := &extractor.Options{
		Source:        src,
		TileWidth:     b.options.TileWidth,
		TileHeight:    b.options.TileHeight,
		Tolerance:     b.options.Tolerance,
		AllowFlipping: b.options.AllowFlipping,
	}

	res, err := extractor.Extract(opts, func(p float64) {
		fmt.Fprintf(b.progress, "\r%.2f%%", p*100)
	})
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(b.progress, "\r%.2f%%\n", 100.0)

	files, err := b.write(res, tmx)
	if err != nil {
		return nil, err
	}

	return &Summary{
		Result: res,
		Format: format,
		Files:  files,
	}, nil
}

// write encodes and writes the output files concurrently
func (b *Builder) write(res *extractor.Result, tmx export.TMXOptions) ([]OutputFile, error) {
	if err := os.MkdirAll(b.options.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	encoders := []struct {
		name   string
		encode func(w io.Writer) error
	}{
		{b.options.TilesetName, func(w io.Writer) error {
			return encodePNG(w, export.PackTileset(res, b.options.Columns))
		}},
		{MapFile, func(w io.Writer) error {
			return export.WriteMapJSON(w, res)
		}},
		{TMXFile, func(w io.Writer) error {
			return export.WriteTMX(w, res, tmx)
		}},
		{TilemapFile, func(w io.Writer) error {
			return encodePNG(w, export.RenderTilemap(res))
		}},
	}

	files := make([]OutputFile, len(encoders))
	var g errgroup.Group

	for i, enc := range encoders {
		i, enc := i, enc
		g.Go(func() error {
			var buf bytes.Buffer
			if err := enc.encode(&buf); err != nil {
				return fmt.Errorf("failed to encode %s: %w", enc.name, err)
			}

			path := filepath.Join(b.options.OutputDir, enc.name)
			if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}

			files[i] = OutputFile{Path: path, Size: int64(buf.Len())}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func encodePNG(w io.Writer, img image.Image) error {
	data, err := tile.EncodePNG(img)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Print writes a human readable report of the run
func (s *Summary) Print(w io.Writer) {
	res := s.Result
	cells := res.Grid.Cells()

	saved := 0.0
	if cells > 0 {
		saved = 100 * float64(cells-len(res.Tiles)) / float64(cells)
	}

	fmt.Fprintf(w, "%s unique tiles from %s cells (%s grid, %.1f%% deduplicated) in %s\n",
		humanize.Comma(int64(len(res.Tiles))),
		humanize.Comma(int64(cells)),
		res.Grid,
		saved,
		res.Elapsed.Round(time.Millisecond),
	)
	for _, f := range s.Files {
		fmt.Fprintf(w, "  %-40s %s\n", f.Path, humanize.Bytes(uint64(f.Size)))
	}
}
