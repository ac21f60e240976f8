package core

import "sort"

// Assignment is one ordered task bound to a robot.
type Assignment struct {
	Order int  `json:"order" yaml:"order"`
	Cell  Cell `json:"cell" yaml:"cell"`
}

// SortAssignments orders assignments by Order, keeping input order for ties.
func SortAssignments(as []Assignment) {
	sort.SliceStable(as, func(i, j int) bool {
		return as[i].Order < as[j].Order
	})
}

// AssignmentsFromCells numbers a plain task sequence 1..n.
func AssignmentsFromCells(cells []Cell) []Assignment {
	out := make([]Assignment, len(cells))
	for i, c := range cells {
		out[i] = Assignment{Order: i + 1, Cell: c}
	}
	return out
}

// Cells returns the target cells in order.
func Cells(as []Assignment) []Cell {
	out := make([]Cell, len(as))
	for i, a := range as {
		out[i] = a.Cell
	}
	return out
}
