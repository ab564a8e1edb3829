package export

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"

	"github.com/kiesman99/tilex/internal/extractor"
	"github.com/kiesman99/tilex/pkg/tile"
)

// Tiled global tile id flag bits
const (
	FlippedHorizontallyFlag uint32 = 0x80000000
	FlippedVerticallyFlag   uint32 = 0x40000000
	FlippedDiagonallyFlag   uint32 = 0x20000000

	gidFlags = FlippedHorizontallyFlag | FlippedVerticallyFlag | FlippedDiagonallyFlag
)

// Layer data encodings
const (
	EncodingXML    = "xml"
	EncodingCSV    = "csv"
	EncodingBase64 = "base64"
)

// Layer data compressions, only valid with EncodingBase64
const (
	CompressionNone = ""
	CompressionZlib = "zlib"
	CompressionGzip = "gzip"
	CompressionZstd = "zstd"
)

// DefaultTilesetImage is the file name the TMX tileset refers to
const DefaultTilesetImage = "tiles.png"

// TMXOptions controls how a TMX document is written
type TMXOptions struct {
	Encoding     string
	Compression  string
	TilesetImage string
	// Columns is the column count of the packed tileset image, 0 for the square layout
	Columns int
}

// Validate checks that the encoding and compression are supported together
func (o TMXOptions) Validate() error {
	switch o.Encoding {
	case "", EncodingXML, EncodingCSV:
		if o.Compression != CompressionNone {
			return fmt.Errorf("compression %q requires base64 encoding", o.Compression)
		}
	case EncodingBase64:
		switch o.Compression {
		case CompressionNone, CompressionZlib, CompressionGzip, CompressionZstd:
		default:
			return fmt.Errorf("unknown compression: %s", o.Compression)
		}
	default:
		return fmt.Errorf("unknown encoding: %s", o.Encoding)
	}
	return nil
}

// GID packs a cell into a Tiled global id using firstgid 1
func GID(c tile.Cell) uint32 {
	gid := uint32(c.Index + 1)
	if c.Orientation.HasFlipH() {
		gid |= FlippedHorizontallyFlag
	}
	if c.Orientation.HasFlipV() {
		gid |= FlippedVerticallyFlag
	}
	return gid
}

// DecodeGID is the inverse of GID. It reports false for empty cells and
// diagonal flips, neither of which an extraction produces.
func DecodeGID(gid uint32) (tile.Cell, bool) {
	if gid&FlippedDiagonallyFlag != 0 || gid&^gidFlags == 0 {
		return tile.Cell{}, false
	}

	c := tile.Cell{Index: int(gid&^gidFlags) - 1}
	switch {
	case gid&FlippedHorizontallyFlag != 0 && gid&FlippedVerticallyFlag != 0:
		c.Orientation = tile.FlipHV
	case gid&FlippedHorizontallyFlag != 0:
		c.Orientation = tile.FlipH
	case gid&FlippedVerticallyFlag != 0:
		c.Orientation = tile.FlipV
	}
	return c, true
}

type tmxMap struct {
	XMLName      xml.Name   `xml:"map"`
	Version      string     `xml:"version,attr"`
	Orientation  string     `xml:"orientation,attr"`
	RenderOrder  string     `xml:"renderorder,attr"`
	Width        int        `xml:"width,attr"`
	Height       int        `xml:"height,attr"`
	TileWidth    int        `xml:"tilewidth,attr"`
	TileHeight   int        `xml:"tileheight,attr"`
	NextObjectID int        `xml:"nextobjectid,attr"`
	Tileset      tmxTileset `xml:"tileset"`
	Layer        tmxLayer   `xml:"layer"`
}

type tmxTileset struct {
	FirstGID   int      `xml:"firstgid,attr"`
	Name       string   `xml:"name,attr"`
	TileWidth  int      `xml:"tilewidth,attr"`
	TileHeight int      `xml:"tileheight,attr"`
	TileCount  int      `xml:"tilecount,attr"`
	Columns    int      `xml:"columns,attr"`
	Image      tmxImage `xml:"image"`
}

type tmxImage struct {
	Source string `xml:"source,attr"`
	Width  int    `xml:"width,attr"`
	Height int    `xml:"height,attr"`
}

type tmxLayer struct {
	Name   string  `xml:"name,attr"`
	Width  int     `xml:"width,attr"`
	Height int     `xml:"height,attr"`
	Data   tmxData `xml:"data"`
}

type tmxData struct {
	Encoding    string    `xml:"encoding,attr,omitempty"`
	Compression string    `xml:"compression,attr,omitempty"`
	Tiles       []tmxTile `xml:"tile"`
	Text        string    `xml:",innerxml"`
}

type tmxTile struct {
	GID uint32 `xml:"gid,attr"`
}

// WriteTMX writes res as a Tiled map with a single layer and tileset
func WriteTMX(w io.Writer, res *extractor.Result, opts TMXOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	source := opts.TilesetImage
	if source == "" {
		source = DefaultTilesetImage
	}
	cols, _ := Layout(len(res.Tiles), opts.Columns)
	width, height := TilesetSize(res, opts.Columns)

	gids := make([]uint32, len(res.Map))
	for i, c := range res.Map {
		gids[i] = GID(c)
	}

	data, err := encodeData(gids, res.Grid.Cols, opts)
	if err != nil {
		return err
	}

	m := tmxMap{
		Version:      "1.0",
		Orientation:  "orthogonal",
		RenderOrder:  "right-down",
		Width:        res.Grid.Cols,
		Height:       res.Grid.Rows,
		TileWidth:    res.TileWidth,
		TileHeight:   res.TileHeight,
		NextObjectID: 1,
		Tileset: tmxTileset{
			FirstGID:   1,
			Name:       "tiles",
			TileWidth:  res.TileWidth,
			TileHeight: res.TileHeight,
			TileCount:  len(res.Tiles),
			Columns:    cols,
			Image: tmxImage{
				Source: source,
				Width:  width,
				Height: height,
			},
		},
		Layer: tmxLayer{
			Name:   "layer",
			Width:  res.Grid.Cols,
			Height: res.Grid.Rows,
			Data:   data,
		},
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", " ")
	if err := enc.Encode(m); err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n")
	return err
}

func encodeData(gids []uint32, cols int, opts TMXOptions) (tmxData, error) {
	switch opts.Encoding {
	case "", EncodingXML:
		tiles := make([]tmxTile, len(gids))
		for i, gid := range gids {
			tiles[i].GID = gid
		}
		return tmxData{Tiles: tiles}, nil

	case EncodingCSV:
		var sb strings.Builder
		sb.WriteString("\n")
		for i, gid := range gids {
			sb.WriteString(strconv.FormatUint(uint64(gid), 10))
			if i < len(gids)-1 {
				sb.WriteString(",")
				if (i+1)%cols == 0 {
					sb.WriteString("\n")
				}
			}
		}
		sb.WriteString("\n")
		return tmxData{Encoding: EncodingCSV, Text: sb.String()}, nil

	default:
		raw := make([]byte, 4*len(gids))
		for i, gid := range gids {
			binary.LittleEndian.PutUint32(raw[i*4:], gid)
		}
		packed, err := compress(raw, opts.Compression)
		if err != nil {
			return tmxData{}, err
		}
		return tmxData{
			Encoding:    EncodingBase64,
			Compression: opts.Compression,
			Text:        base64.StdEncoding.EncodeToString(packed),
		}, nil
	}
}

func compress(raw []byte, method string) ([]byte, error) {
	var buf bytes.Buffer
	var w io.WriteCloser

	switch method {
	case CompressionNone:
		return raw, nil
	case CompressionZlib:
		w = zlib.NewWriter(&buf)
	case CompressionGzip:
		w = gzip.NewWriter(&buf)
	case CompressionZstd:
		enc, err := zstd.NewWriter(&buf)
		if err != nil {
			return nil, err
		}
		w = enc
	default:
		return nil, fmt.Errorf("unknown compression: %s", method)
	}

	if _, err := w.Write(raw); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(packed []byte, method string) ([]byte, error) {
	switch method {
	case CompressionNone:
		return packed, nil
	case CompressionZlib:
		r, err := zlib.NewReader(bytes.NewReader(packed))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case CompressionGzip:
		r, err := gzip.NewReader(bytes.NewReader(packed))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(packed, nil)
	default:
		return nil, fmt.Errorf("unknown compression: %s", method)
	}
}

// ReadTMXGIDs parses a TMX document written by WriteTMX and returns the
// layer's global ids in raster order.
func ReadTMXGIDs(r io.Reader) ([]uint32, error) {
	var m tmxMap
	if err := xml.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse TMX: %w", err)
	}
	data := m.Layer.Data

	switch data.Encoding {
	case "":
		gids := make([]uint32, len(data.Tiles))
		for i, t := range data.Tiles {
			gids[i] = t.GID
		}
		return gids, nil

	case EncodingCSV:
		var gids []uint32
		for _, field := range strings.Split(data.Text, ",") {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			gid, err := strconv.ParseUint(field, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid csv gid %q: %w", field, err)
			}
			gids = append(gids, uint32(gid))
		}
		return gids, nil

	case EncodingBase64:
		packed, err := base64.StdEncoding.DecodeString(strings.TrimSpace(data.Text))
		if err != nil {
			return nil, fmt.Errorf("invalid base64 layer data: %w", err)
		}
		raw, err := decompress(packed, data.Compression)
		if err != nil {
			return nil, err
		}
		if len(raw)%4 != 0 {
			return nil, fmt.Errorf("layer data length %d is not a multiple of 4", len(raw))
		}
		gids := make([]uint32, len(raw)/4)
		for i := range gids {
			gids[i] = binary.LittleEndian.Uint32(raw[i*4:])
		}
		return gids, nil

	default:
		return nil, fmt.Errorf("unknown encoding: %s", data.Encoding)
	}
}
