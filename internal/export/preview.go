package export

import (
	"image"

	"github.com/kiesman99/tilex/internal/extractor"
	"github.com/kiesman99/tilex/pkg/tile"
)

// RenderTilemap rebuilds the source image by drawing every cell's tile under
// its recorded orientation. With zero tolerance the output equals the source,
// alpha included.
func RenderTilemap(res *extractor.Result) *image.NRGBA {
	tw, th := res.TileWidth, res.TileHeight
	dst := image.NewNRGBA(image.Rect(0, 0, res.Grid.Cols*tw, res.Grid.Rows*th))

	oriented := make(map[tile.Cell]tile.Buffer)
	for i, c := range res.Map {
		src, ok := oriented[c]
		if !ok {
			src = res.Tile(c).Oriented(c.Orientation)
			oriented[c] = src
		}

		col, row := res.Grid.Cell(i)
		blit(dst, src, col*tw, row*th)
	}

	return dst
}
