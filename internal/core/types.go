// Package core defines domain models for the warehouse simulation.
package core

import (
	"fmt"
	"math"
)

// Cell is a grid cell addressed by row and column.
type Cell struct {
	Row int `json:"row" yaml:"row"`
	Col int `json:"col" yaml:"col"`
}

// Key returns the canonical "r,c" key for the cell.
func (c Cell) Key() string {
	return CellKey(c)
}

func (c Cell) String() string {
	return fmt.Sprintf("[%d, %d]", c.Row, c.Col)
}

// Pos returns the cell as a continuous position.
func (c Cell) Pos() Pos {
	return Pos{Row: float64(c.Row), Col: float64(c.Col)}
}

// CellKey renders a cell as "r,c".
func CellKey(c Cell) string {
	return fmt.Sprintf("%d,%d", c.Row, c.Col)
}

// Pos is a continuous position on the grid (row/col in cell units).
type Pos struct {
	Row float64 `json:"row"`
	Col float64 `json:"col"`
}

// Lerp interpolates between a and b by frac.
func Lerp(a, b Pos, frac float64) Pos {
	return Pos{
		Row: a.Row + (b.Row-a.Row)*frac,
		Col: a.Col + (b.Col-a.Col)*frac,
	}
}

// Nearest returns the cell closest to the position.
func (p Pos) Nearest() Cell {
	return Cell{Row: int(math.Round(p.Row)), Col: int(math.Round(p.Col))}
}

// Path is an ordered sequence of grid cells, one per time step.
type Path []Cell

// Index returns the first index of c in the path at or after from, or -1.
func (p Path) Index(c Cell, from int) int {
	if from < 0 {
		from = 0
	}
	for i := from; i < len(p); i++ {
		if p[i] == c {
			return i
		}
	}
	return -1
}

// Last returns the final cell of the path.
func (p Path) Last() (Cell, bool) {
	if len(p) == 0 {
		return Cell{}, false
	}
	return p[len(p)-1], true
}

// Clone returns an independent copy of the path.
func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	out := make(Path, len(p))
	copy(out, p)
	return out
}
