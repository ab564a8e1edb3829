package tile

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var errUnrecognized = errors.New("unrecognized image format")

// DimensionError reports an image whose pixel count exceeds a decode limit
type DimensionError struct {
	Width, Height int
	Limit         int64
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("image is %dx%d, more than %d pixels", e.Width, e.Height, e.Limit)
}

// DecodeImage detects the image format and decodes it into a Buffer.
// It returns the name of the detected format alongside the pixels.
func DecodeImage(data []byte) (Buffer, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if err == image.ErrFormat {
			return Buffer{}, "", errUnrecognized
		}
		return Buffer{}, "", err
	}

	return FromImage(img), format, nil
}

// DecodeImageLimited is DecodeImage with a cap on width*height, checked from
// the image header before any pixel is decoded. maxPixels <= 0 disables the cap.
func DecodeImageLimited(data []byte, maxPixels int64) (Buffer, string, error) {
	if maxPixels > 0 {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			if err == image.ErrFormat {
				return Buffer{}, "", errUnrecognized
			}
			return Buffer{}, "", err
		}
		if int64(cfg.Width)*int64(cfg.Height) > maxPixels {
			return Buffer{}, "", &DimensionError{Width: cfg.Width, Height: cfg.Height, Limit: maxPixels}
		}
	}

	return DecodeImage(data)
}

// ReadImage reads and decodes the image stored at path
func ReadImage(path string) (Buffer, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Buffer{}, "", err
	}
	return DecodeImage(data)
}

// FromImage converts any image into a non-premultiplied RGBA buffer
func FromImage(img image.Image) Buffer {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	buf := NewBuffer(width, height)

	// NRGBA sources can be copied row by row without a color conversion
	if src, ok := img.(*image.NRGBA); ok {
		rowBytes := width * BytesPerPixel
		for y := 0; y < height; y++ {
			off := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			copy(buf.Pix[y*rowBytes:(y+1)*rowBytes], src.Pix[off:off+rowBytes])
		}
		return buf
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			idx := buf.Offset(x, y)
			buf.Pix[idx] = c.R
			buf.Pix[idx+1] = c.G
			buf.Pix[idx+2] = c.B
			buf.Pix[idx+3] = c.A
		}
	}

	return buf
}

// Image wraps the buffer as an *image.NRGBA. The pixel slice is shared, not copied.
func (b Buffer) Image() *image.NRGBA {
	return &image.NRGBA{
		Pix:    b.Pix,
		Stride: b.Width * BytesPerPixel,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}

// EncodePNG encodes an image as PNG bytes
func EncodePNG(img image.Image) ([]byte, error) {
	var output bytes.Buffer
	if err := png.Encode(&output, img); err != nil {
		return nil, err
	}
	return output.Bytes(), nil
}

// WritePNG writes img as PNG to filename, or to stdout when filename is empty
func WritePNG(filename string, img image.Image) error {
	var output io.Writer

	if filename == "" {
		output = os.Stdout
	} else {
		file, err := os.Create(filename)
		if err != nil {
			return err
		}
		defer file.Close()
		output = file
	}

	return png.Encode(output, img)
}
