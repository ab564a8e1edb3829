package export

import (
	"encoding/json"
	"io"

	"github.com/kiesman99/tilex/internal/extractor"
	"github.com/kiesman99/tilex/pkg/tile"
)

// MapDocument is the JSON map format. Orientation is omitted for normal cells.
type MapDocument struct {
	Map     []tile.Cell `json:"map"`
	NumCols int         `json:"numCols"`
	NumRows int         `json:"numRows"`
}

// NewMapDocument builds the map document for a result
func NewMapDocument(res *extractor.Result) MapDocument {
	return MapDocument{
		Map:     res.Map,
		NumCols: res.Grid.Cols,
		NumRows: res.Grid.Rows,
	}
}

// WriteMapJSON writes the map document of res to w
func WriteMapJSON(w io.Writer, res *extractor.Result) error {
	return json.NewEncoder(w).Encode(NewMapDocument(res))
}

// ReadMapJSON parses a map document
func ReadMapJSON(r io.Reader) (MapDocument, error) {
	var doc MapDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return MapDocument{}, err
	}
	return doc, nil
}
