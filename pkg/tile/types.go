package tile

import "fmt"

// BytesPerPixel is the number of channels stored per pixel (R, G, B, A)
const BytesPerPixel = 4

// Buffer holds non-premultiplied RGBA pixel data in row-major order
type Buffer struct {
	Pix    []byte
	Width  int
	Height int
}

// NewBuffer allocates a zeroed buffer of the given size
func NewBuffer(width, height int) Buffer {
	return Buffer{
		Pix:    make([]byte, width*height*BytesPerPixel),
		Width:  width,
		Height: height,
	}
}

// Offset returns the index of the first channel of pixel (x, y)
func (b Buffer) Offset(x, y int) int {
	return (y*b.Width + x) * BytesPerPixel
}

// In reports whether (x, y) lies inside the buffer
func (b Buffer) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.Width && y < b.Height
}

// Valid reports whether the pixel slice matches the declared dimensions
func (b Buffer) Valid() bool {
	return b.Width >= 0 && b.Height >= 0 && len(b.Pix) == b.Width*b.Height*BytesPerPixel
}

// Clone returns a deep copy of the buffer
func (b Buffer) Clone() Buffer {
	pix := make([]byte, len(b.Pix))
	copy(pix, b.Pix)
	return Buffer{Pix: pix, Width: b.Width, Height: b.Height}
}

// Crop copies the w x h region whose top-left corner is (x0, y0) into a new buffer.
// The region must lie inside b.
func (b Buffer) Crop(x0, y0, w, h int) Buffer {
	out := NewBuffer(w, h)
	rowBytes := w * BytesPerPixel
	for y := 0; y < h; y++ {
		src := b.Offset(x0, y0+y)
		copy(out.Pix[y*rowBytes:(y+1)*rowBytes], b.Pix[src:src+rowBytes])
	}
	return out
}

// Oriented returns a copy of b drawn under o
func (b Buffer) Oriented(o Orientation) Buffer {
	if o == Normal {
		return b.Clone()
	}
	out := NewBuffer(b.Width, b.Height)
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			sx, sy := o.Source(x, y, b.Width, b.Height)
			src := b.Offset(sx, sy)
			copy(out.Pix[out.Offset(x, y):], b.Pix[src:src+BytesPerPixel])
		}
	}
	return out
}

// Grid describes how a source image is sliced into cells
type Grid struct {
	Cols int `json:"numCols"`
	Rows int `json:"numRows"`
}

// Cells returns the total number of cells in the grid
func (g Grid) Cells() int {
	return g.Cols * g.Rows
}

// Cell returns the column and row of the cell at raster index i
func (g Grid) Cell(i int) (col, row int) {
	return i % g.Cols, i / g.Cols
}

func (g Grid) String() string {
	return fmt.Sprintf("%dx%d", g.Cols, g.Rows)
}

// Cell maps one grid cell to a registered tile
type Cell struct {
	Index       int         `json:"index"`
	Orientation Orientation `json:"orientation,omitempty"`
}
