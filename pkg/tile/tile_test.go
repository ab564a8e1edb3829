package tile

import (
	"encoding/json"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrientation(t *testing.T) {
	testCases := []struct {
		orientation Orientation
		name        string
		flipH       bool
		flipV       bool
	}{
		{orientation: Normal, name: "normal"},
		{orientation: FlipH, name: "hflip", flipH: true},
		{orientation: FlipV, name: "vflip", flipV: true},
		{orientation: FlipHV, name: "hvflip", flipH: true, flipV: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.name, tc.orientation.String())
			assert.Equal(t, tc.flipH, tc.orientation.HasFlipH())
			assert.Equal(t, tc.flipV, tc.orientation.HasFlipV())

			parsed, err := ParseOrientation(tc.name)
			require.NoError(t, err)
			assert.Equal(t, tc.orientation, parsed)
		})
	}

	_, err := ParseOrientation("sideways")
	assert.Error(t, err)
	assert.False(t, Orientation(9).Valid())
	assert.Equal(t, "Orientation(9)", Orientation(9).String())
}

func TestCell_JSON(t *testing.T) {
	data, err := json.Marshal([]Cell{{Index: 3}, {Index: 1, Orientation: FlipHV}})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"index":3},{"index":1,"orientation":"hvflip"}]`, string(data))

	var cells []Cell
	require.NoError(t, json.Unmarshal([]byte(`[{"index":2,"orientation":"vflip"},{"index":0}]`), &cells))
	assert.Equal(t, []Cell{{Index: 2, Orientation: FlipV}, {Index: 0, Orientation: Normal}}, cells)

	assert.Error(t, json.Unmarshal([]byte(`[{"index":2,"orientation":"diagonal"}]`), &cells))
}

func TestBuffer_Crop(t *testing.T) {
	b := NewBuffer(3, 2)
	for i := range b.Pix {
		b.Pix[i] = byte(i)
	}

	c := b.Crop(1, 1, 2, 1)
	assert.Equal(t, 2, c.Width)
	assert.Equal(t, 1, c.Height)
	assert.Equal(t, b.Pix[b.Offset(1, 1):b.Offset(1, 1)+8], c.Pix)

	// Crops never alias the parent
	c.Pix[0] = 0xff
	assert.NotEqual(t, byte(0xff), b.Pix[b.Offset(1, 1)])
}

func TestBuffer_Clone(t *testing.T) {
	b := NewBuffer(1, 1)
	c := b.Clone()
	c.Pix[0] = 1
	assert.Equal(t, byte(0), b.Pix[0])
	assert.True(t, c.Valid())
	assert.False(t, Buffer{Pix: make([]byte, 3), Width: 1, Height: 1}.Valid())
}

func TestBuffer_Oriented(t *testing.T) {
	// 2x2 tile whose pixels carry their own index and a partial alpha
	b := NewBuffer(2, 2)
	for i := 0; i < 4; i++ {
		copy(b.Pix[i*BytesPerPixel:], []byte{byte(i), byte(i), byte(i), 128})
	}

	testCases := []struct {
		orientation Orientation
		order       []byte
	}{
		{orientation: Normal, order: []byte{0, 1, 2, 3}},
		{orientation: FlipH, order: []byte{1, 0, 3, 2}},
		{orientation: FlipV, order: []byte{2, 3, 0, 1}},
		{orientation: FlipHV, order: []byte{3, 2, 1, 0}},
	}

	for _, tc := range testCases {
		t.Run(tc.orientation.String(), func(t *testing.T) {
			out := b.Oriented(tc.orientation)
			require.True(t, out.Valid())
			for i, want := range tc.order {
				px := out.Pix[i*BytesPerPixel : (i+1)*BytesPerPixel]
				assert.Equal(t, []byte{want, want, want, 128}, px, "pixel %d", i)
			}
			assert.Equal(t, b.Pix, out.Oriented(tc.orientation).Pix, "orientations are involutions")
		})
	}

	out := b.Oriented(Normal)
	out.Pix[0] = 9
	assert.Equal(t, byte(0), b.Pix[0])
}

func TestOrientation_Source(t *testing.T) {
	x, y := FlipHV.Source(0, 1, 3, 2)
	assert.Equal(t, 2, x)
	assert.Equal(t, 0, y)

	x, y = Normal.Source(1, 1, 3, 2)
	assert.Equal(t, 1, x)
	assert.Equal(t, 1, y)
}

func TestGrid(t *testing.T) {
	g := Grid{Cols: 4, Rows: 3}
	assert.Equal(t, 12, g.Cells())

	col, row := g.Cell(9)
	assert.Equal(t, 1, col)
	assert.Equal(t, 2, row)
	assert.Equal(t, "4x3", g.String())
}

func TestFromImage(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	src.SetNRGBA(0, 0, color.NRGBA{R: 200, G: 100, B: 50, A: 128})
	src.SetNRGBA(1, 1, color.NRGBA{R: 1, G: 2, B: 3, A: 255})

	b := FromImage(src)
	assert.Equal(t, src.Pix, b.Pix, "straight alpha survives the conversion")

	// Sub-images keep their own origin
	sub := FromImage(src.SubImage(image.Rect(1, 1, 2, 2)))
	assert.Equal(t, []byte{1, 2, 3, 255}, sub.Pix)

	gray := image.NewGray(image.Rect(0, 0, 1, 1))
	gray.SetGray(0, 0, color.Gray{Y: 77})
	assert.Equal(t, []byte{77, 77, 77, 255}, FromImage(gray).Pix)
}

func TestDecodeImage(t *testing.T) {
	src := NewBuffer(2, 1)
	copy(src.Pix, []byte{9, 8, 7, 255, 1, 2, 3, 64})

	data, err := EncodePNG(src.Image())
	require.NoError(t, err)

	decoded, format, err := DecodeImage(data)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, src, decoded)

	_, _, err = DecodeImage([]byte("not an image"))
	assert.EqualError(t, err, "unrecognized image format")
}

func TestDecodeImageLimited(t *testing.T) {
	data, err := EncodePNG(NewBuffer(100, 100).Image())
	require.NoError(t, err)

	_, _, err = DecodeImageLimited(data, 1000)
	var dimErr *DimensionError
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 100, dimErr.Width)
	assert.Equal(t, 100, dimErr.Height)
	assert.Equal(t, int64(1000), dimErr.Limit)

	decoded, format, err := DecodeImageLimited(data, 100*100)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 100, decoded.Width)

	_, _, err = DecodeImageLimited(data, 0)
	assert.NoError(t, err)

	_, _, err = DecodeImageLimited([]byte("not an image"), 1000)
	assert.EqualError(t, err, "unrecognized image format")
}
