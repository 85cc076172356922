package grid

import "fmt"

// Color is the paint of a single cell. Blank cells are unpainted and Wall
// cells are impassable; the remaining nine values are the beepable paints.
type Color int

const (
	Blank Color = iota
	Wall
	Red
	Green
	Blue
	Yellow
	Pink
	Brown
	Gray
	Purple
	Orange
)

var colorNames = [...]string{
	Blank:  "blank",
	Wall:   "wall",
	Red:    "red",
	Green:  "green",
	Blue:   "blue",
	Yellow: "yellow",
	Pink:   "pink",
	Brown:  "brown",
	Gray:   "gray",
	Purple: "purple",
	Orange: "orange",
}

var colorRunes = [...]rune{
	Blank:  ' ',
	Wall:   '#',
	Red:    'r',
	Green:  'g',
	Blue:   'b',
	Yellow: 'y',
	Pink:   'p',
	Brown:  'B',
	Gray:   'G',
	Purple: 'P',
	Orange: 'o',
}

func (c Color) String() string {
	if c < 0 || int(c) >= len(colorNames) {
		return fmt.Sprintf("color(%d)", int(c))
	}
	return colorNames[c]
}

// Rune returns the single-character map encoding of the color.
func (c Color) Rune() rune {
	if c < 0 || int(c) >= len(colorRunes) {
		return '?'
	}
	return colorRunes[c]
}

// Painted reports whether the color is one of the nine beepable paints,
// i.e. neither Blank nor Wall.
func (c Color) Painted() bool {
	return c >= Red && c <= Orange
}

// Colors lists every color in its stable integer order. The index of a color
// in this slice matches int(c) and is the encoding used in observation
// feature vectors.
func Colors() []Color {
	out := make([]Color, len(colorNames))
	for i := range out {
		out[i] = Color(i)
	}
	return out
}

// ColorForRune maps a map character to its color.
func ColorForRune(r rune) (Color, bool) {
	for c, cr := range colorRunes {
		if cr == r {
			return Color(c), true
		}
	}
	return Blank, false
}
