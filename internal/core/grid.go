package core

// Cell values in a Grid.
const (
	Free = 0
	Wall = 1
)

// Grid is the warehouse floor, indexed [row][col].
type Grid [][]int

// NewGrid creates an empty height x width grid.
func NewGrid(height, width int) Grid {
	g := make(Grid, height)
	for r := range g {
		g[r] = make([]int, width)
	}
	return g
}

// Height returns the number of rows.
func (g Grid) Height() int {
	return len(g)
}

// Width returns the number of columns.
func (g Grid) Width() int {
	if len(g) == 0 {
		return 0
	}
	return len(g[0])
}

// InBounds checks if the cell lies inside the grid.
func (g Grid) InBounds(c Cell) bool {
	return c.Row >= 0 && c.Col >= 0 && c.Row < g.Height() && c.Col < len(g[c.Row])
}

// IsFree checks if the cell is inside the grid and not a wall.
func (g Grid) IsFree(c Cell) bool {
	return g.InBounds(c) && g[c.Row][c.Col] == Free
}

// Neighbors returns the 4-connected free neighbours of c.
func (g Grid) Neighbors(c Cell) []Cell {
	var out []Cell
	for _, d := range [...]Cell{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
		n := Cell{Row: c.Row + d.Row, Col: c.Col + d.Col}
		if g.IsFree(n) {
			out = append(out, n)
		}
	}
	return out
}

// Clone returns a deep copy of the grid.
func (g Grid) Clone() Grid {
	out := make(Grid, len(g))
	for r := range g {
		out[r] = append([]int(nil), g[r]...)
	}
	return out
}
