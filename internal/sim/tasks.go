package sim

import "github.com/elektrokombinacija/warehouse-sim/internal/core"

// Unreachable marks an assignment whose cell never appears in the path.
const Unreachable = -1

// StepIndices maps each assignment to the first path index at or after from
// where the robot stands on its cell.
func StepIndices(path core.Path, assignment []core.Assignment, from int) []int {
	idx := make([]int, len(assignment))
	for i, a := range assignment {
		idx[i] = path.Index(a.Cell, from)
	}
	return idx
}

// CheckCompletions scans assignments from cursor and returns the new cursor
// and the cells passed by progress. The scan stops at the first assignment
// that is unreachable or not yet reached.
func CheckCompletions(assignment []core.Assignment, stepIndex []int, cursor int, progress float64) (int, []core.Cell) {
	var done []core.Cell
	for cursor < len(assignment) && cursor < len(stepIndex) {
		step := stepIndex[cursor]
		if step == Unreachable || progress < float64(step) {
			break
		}
		done = append(done, assignment[cursor].Cell)
		cursor++
	}
	return cursor, done
}
