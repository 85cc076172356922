package grid

import "strings"

// ColorGrid is a rectangular colour map plus a per-cell visited bitmap. The
// colour geometry is fixed at construction; the bitmap is the only mutable
// part and flips through MarkVisited alone.
//
// Coordinates are (x, y) with x growing rightward and y growing upward:
// (0, 0) is the bottom-left cell.
type ColorGrid struct {
	width   int
	height  int
	cells   []Color
	visited []bool
}

// New returns an all-blank, all-unvisited grid.
func New(width, height int) (*ColorGrid, error) {
	if width < 1 || height < 1 {
		return nil, NewConfigurationError("grid", "dimensions must be positive: got=%dx%d", width, height)
	}
	return &ColorGrid{
		width:   width,
		height:  height,
		cells:   make([]Color, width*height),
		visited: make([]bool, width*height),
	}, nil
}

func (g *ColorGrid) Width() int  { return g.width }
func (g *ColorGrid) Height() int { return g.height }

// IsInside reports whether the continuous position (x, y) lies within the
// grid area [0, width) x [0, height). Pure; used by collision resolution.
func (g *ColorGrid) IsInside(x, y float64) bool {
	return x >= 0 && x < float64(g.width) && y >= 0 && y < float64(g.height)
}

// ColorAt returns the colour of cell (x, y).
func (g *ColorGrid) ColorAt(x, y int) (Color, error) {
	if !g.inBounds(x, y) {
		return Blank, &OutOfBoundsError{X: x, Y: y, Width: g.width, Height: g.height}
	}
	return g.cells[g.index(x, y)], nil
}

// Visited reports whether cell (x, y) has been marked. Out-of-range cells
// report false.
func (g *ColorGrid) Visited(x, y int) bool {
	if !g.inBounds(x, y) {
		return false
	}
	return g.visited[g.index(x, y)]
}

// MarkVisited records a beep on cell (x, y). It returns true only on the
// first visit to a painted cell; already-visited painted cells return false,
// and Blank or Wall cells are never marked and always return false.
func (g *ColorGrid) MarkVisited(x, y int) (bool, error) {
	if !g.inBounds(x, y) {
		return false, &OutOfBoundsError{X: x, Y: y, Width: g.width, Height: g.height}
	}
	i := g.index(x, y)
	if !g.cells[i].Painted() {
		return false, nil
	}
	if g.visited[i] {
		return false, nil
	}
	g.visited[i] = true
	return true, nil
}

// ResetVisited clears the bitmap back to all-unvisited.
func (g *ColorGrid) ResetVisited() {
	for i := range g.visited {
		g.visited[i] = false
	}
}

// VisitedCount returns how many cells are currently marked.
func (g *ColorGrid) VisitedCount() int {
	n := 0
	for _, v := range g.visited {
		if v {
			n++
		}
	}
	return n
}

// PaintedCount returns how many cells carry a beepable paint.
func (g *ColorGrid) PaintedCount() int {
	n := 0
	for _, c := range g.cells {
		if c.Painted() {
			n++
		}
	}
	return n
}

// Clone returns a deep copy, visited bitmap included. Snapshots hand clones
// out so callers can never mutate the live grid.
func (g *ColorGrid) Clone() *ColorGrid {
	out := &ColorGrid{
		width:   g.width,
		height:  g.height,
		cells:   make([]Color, len(g.cells)),
		visited: make([]bool, len(g.visited)),
	}
	copy(out.cells, g.cells)
	copy(out.visited, g.visited)
	return out
}

// Render returns the grid as map text, top row first. Visited painted cells
// render uppercase (visited 'r' renders as 'R'); Brown/Gray/Purple already
// use uppercase runes and render as '*' when visited.
func (g *ColorGrid) Render() string {
	var b strings.Builder
	for y := g.height - 1; y >= 0; y-- {
		for x := 0; x < g.width; x++ {
			i := g.index(x, y)
			r := g.cells[i].Rune()
			if g.visited[i] {
				switch {
				case r >= 'a' && r <= 'z':
					r = r - 'a' + 'A'
				default:
					r = '*'
				}
			}
			b.WriteRune(r)
		}
		if y > 0 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (g *ColorGrid) setColor(x, y int, c Color) {
	g.cells[g.index(x, y)] = c
}

func (g *ColorGrid) inBounds(x, y int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height
}

func (g *ColorGrid) index(x, y int) int {
	return y*g.width + x
}
