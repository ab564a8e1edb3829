package tile

import "fmt"

// Orientation is the geometric transform under which a cell matched a tile
type Orientation uint8

const (
	Normal Orientation = iota
	FlipH
	FlipV
	FlipHV
)

var orientationNames = [...]string{
	Normal: "normal",
	FlipH:  "hflip",
	FlipV:  "vflip",
	FlipHV: "hvflip",
}

// ParseOrientation converts a name such as "hflip" into an Orientation
func ParseOrientation(s string) (Orientation, error) {
	for o, name := range orientationNames {
		if name == s {
			return Orientation(o), nil
		}
	}
	return Normal, fmt.Errorf("unknown orientation %q", s)
}

// Valid reports whether o is one of the four known orientations
func (o Orientation) Valid() bool {
	return int(o) < len(orientationNames)
}

// HasFlipH reports whether the orientation mirrors along the x axis
func (o Orientation) HasFlipH() bool {
	return o == FlipH || o == FlipHV
}

// HasFlipV reports whether the orientation mirrors along the y axis
func (o Orientation) HasFlipV() bool {
	return o == FlipV || o == FlipHV
}

// Source returns the pixel of a w x h tile that appears at (x, y) once the
// tile is drawn under o
func (o Orientation) Source(x, y, w, h int) (int, int) {
	if o.HasFlipH() {
		x = w - 1 - x
	}
	if o.HasFlipV() {
		y = h - 1 - y
	}
	return x, y
}

func (o Orientation) String() string {
	if !o.Valid() {
		return fmt.Sprintf("Orientation(%d)", uint8(o))
	}
	return orientationNames[o]
}

// MarshalText implements encoding.TextMarshaler
func (o Orientation) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("invalid orientation %d", uint8(o))
	}
	return []byte(orientationNames[o]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (o *Orientation) UnmarshalText(text []byte) error {
	parsed, err := ParseOrientation(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}
