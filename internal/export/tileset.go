// Package export turns extraction results into the files tile-based game
// engines consume: a packed tileset image, a JSON map, a Tiled TMX map and a
// reconstructed preview of the source.
package export

import (
	"image"
	"math"

	"github.com/kiesman99/tilex/internal/extractor"
	"github.com/kiesman99/tilex/pkg/tile"
)

// Layout returns the grid used to pack n tiles. With columns <= 0 the tiles
// are packed roughly square: floor(sqrt(n)) rows.
func Layout(n, columns int) (cols, rows int) {
	if n <= 0 {
		return 0, 0
	}
	if columns <= 0 {
		rows = int(math.Sqrt(float64(n)))
		cols = (n + rows - 1) / rows
		return cols, rows
	}
	return columns, (n + columns - 1) / columns
}

// TilesetSize returns the pixel size of the packed tileset image
func TilesetSize(res *extractor.Result, columns int) (width, height int) {
	cols, rows := Layout(len(res.Tiles), columns)
	return cols * res.TileWidth, rows * res.TileHeight
}

// PackTileset draws every unique tile into a single image, left to right
// and top to bottom in registry order.
func PackTileset(res *extractor.Result, columns int) *image.NRGBA {
	cols, _ := Layout(len(res.Tiles), columns)
	width, height := TilesetSize(res, columns)
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))

	for i, t := range res.Tiles {
		x := (i % cols) * res.TileWidth
		y := (i / cols) * res.TileHeight
		blit(dst, t, x, y)
	}

	return dst
}

// blit copies b into dst at (x0, y0) without any color conversion
func blit(dst *image.NRGBA, b tile.Buffer, x0, y0 int) {
	rowBytes := b.Width * tile.BytesPerPixel
	for y := 0; y < b.Height; y++ {
		off := dst.PixOffset(x0, y0+y)
		copy(dst.Pix[off:off+rowBytes], b.Pix[y*rowBytes:(y+1)*rowBytes])
	}
}
