package extractor

import "github.com/kiesman99/tilex/pkg/tile"

// flipOrder is the order in which mirrored orientations are tried after normal
var flipOrder = [...]tile.Orientation{tile.FlipH, tile.FlipV, tile.FlipHV}

// scanner compares grid cells of a source buffer against registered tiles
type scanner struct {
	src        tile.Buffer
	tileWidth  int
	tileHeight int
	tolerance  int
	flip       bool
}

// compare reports whether the cell at (col, row), read under orientation o,
// differs from ref by no more than the tolerance.
func (s *scanner) compare(col, row int, ref tile.Buffer, o tile.Orientation) bool {
	if len(ref.Pix) < s.tileWidth*s.tileHeight*tile.BytesPerPixel {
		return false
	}

	deltaX := col * s.tileWidth
	deltaY := row * s.tileHeight
	difference := 0
	target := 0

	for y := 0; y < s.tileHeight; y++ {
		for x := 0; x < s.tileWidth; x++ {
			sx, sy := o.Source(x, y, s.tileWidth, s.tileHeight)
			sx += deltaX
			sy += deltaY

			// out of bounds counts as a mismatch
			if !s.src.In(sx, sy) {
				return false
			}

			source := s.src.Offset(sx, sy)
			for i := 0; i < tile.BytesPerPixel; i++ {
				difference += absDiff(ref.Pix[target], s.src.Pix[source+i])
				target++
			}

			if difference > s.tolerance {
				return false
			}
		}
	}

	return true
}

// match finds the first registered tile the cell at (col, row) matches.
// Tiles are tried in registration order, normal orientation first.
func (s *scanner) match(col, row int, tiles []tile.Buffer) (int, tile.Orientation, bool) {
	for index, ref := range tiles {
		if s.compare(col, row, ref, tile.Normal) {
			return index, tile.Normal, true
		}
		if !s.flip {
			continue
		}
		for _, o := range flipOrder {
			if s.compare(col, row, ref, o) {
				return index, o, true
			}
		}
	}
	return 0, tile.Normal, false
}

// cut copies the pixels of the cell at (col, row) into a new tile buffer
func (s *scanner) cut(col, row int) tile.Buffer {
	return s.src.Crop(col*s.tileWidth, row*s.tileHeight, s.tileWidth, s.tileHeight)
}

func absDiff(a, b byte) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
