package grid

import "strings"

// Parse builds a ColorGrid from map text: one character per cell, one text
// line per row, all lines equally long. The first text line is the TOP row
// of the map; y grows upward, so the last line holds the cells with y=0.
//
// Cell characters: ' ' blank, '#' wall, 'r' red, 'g' green, 'b' blue,
// 'y' yellow, 'p' pink, 'o' orange, 'B' brown, 'G' gray, 'P' purple.
func Parse(s string) (*ColorGrid, error) {
	s = strings.TrimRight(s, "\n")
	s = strings.TrimPrefix(s, "\n")
	if s == "" {
		return nil, NewConfigurationError("map", "empty map text")
	}

	lines := strings.Split(s, "\n")
	width := len([]rune(lines[0]))
	height := len(lines)
	if width == 0 {
		return nil, NewConfigurationError("map", "empty first row")
	}

	g, err := New(width, height)
	if err != nil {
		return nil, err
	}
	for row, line := range lines {
		runes := []rune(line)
		if len(runes) != width {
			return nil, NewConfigurationError("map", "ragged row %d: got=%d cells want=%d", row, len(runes), width)
		}
		y := height - 1 - row
		for x, r := range runes {
			c, ok := ColorForRune(r)
			if !ok {
				return nil, NewConfigurationError("map", "unknown cell character %q at row %d column %d", r, row, x)
			}
			g.setColor(x, y, c)
		}
	}
	return g, nil
}
