package paint

import "iter"

// Cell is one painted grid slot.
type Cell struct {
	X     int   `json:"x"`
	Y     int   `json:"y"`
	Color Color `json:"color"`
}

// Grid is the color-per-cell store, indexed [x][y].
type Grid struct {
	width, height int
	cells         [][]Color
}

// NewGrid allocates an unpainted width x height grid.
func NewGrid(width, height int) (*Grid, error) {
	g := &Grid{}
	if err := g.Resize(width, height); err != nil {
		return nil, err
	}
	return g, nil
}

// Resize replaces the grid with a fresh unpainted one. Prior contents are
// discarded, never resampled. On error the grid is left untouched.
func (g *Grid) Resize(width, height int) error {
	if err := ValidateCanvasSize(width, height); err != nil {
		return err
	}
	cells := make([][]Color, width)
	for x := range cells {
		cells[x] = make([]Color, height)
	}
	g.width, g.height, g.cells = width, height, cells
	return nil
}

func (g *Grid) Width() int  { return g.width }
func (g *Grid) Height() int { return g.height }

// InBounds reports whether 0 <= x < width and 0 <= y < height.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height
}

// SetCell writes color at (x, y); the zero Color erases. Writes outside the
// grid are ignored. The result reports whether the cell changed.
func (g *Grid) SetCell(x, y int, color Color) bool {
	if !g.InBounds(x, y) {
		return false
	}
	if g.cells[x][y] == color {
		return false
	}
	g.cells[x][y] = color
	return true
}

// Cell returns the color at (x, y) and whether it is painted.
func (g *Grid) Cell(x, y int) (Color, bool) {
	if !g.InBounds(x, y) {
		return "", false
	}
	c := g.cells[x][y]
	return c, c != ""
}

// PaintedCells walks the painted cells with x ascending in the outer loop and
// y ascending in the inner one. The sequence can be ranged over repeatedly.
func (g *Grid) PaintedCells() iter.Seq[Cell] {
	return func(yield func(Cell) bool) {
		for x, column := range g.cells {
			for y, c := range column {
				if c == "" {
					continue
				}
				if !yield(Cell{X: x, Y: y, Color: c}) {
					return
				}
			}
		}
	}
}

// PaintedCount returns the number of painted cells.
func (g *Grid) PaintedCount() int {
	n := 0
	for range g.PaintedCells() {
		n++
	}
	return n
}
