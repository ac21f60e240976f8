package sim

import (
	"math"

	"github.com/elektrokombinacija/warehouse-sim/internal/core"
)

// ObstaclePositionAt returns where a forklift is at global time t.
// Looping paths wrap back to the first cell; one-shot paths stop on the last.
func ObstaclePositionAt(path core.Path, loop bool, t float64) (core.Pos, bool) {
	n := len(path)
	if n == 0 {
		return core.Pos{}, false
	}
	if n == 1 {
		return path[0].Pos(), true
	}
	if t < 0 || math.IsNaN(t) {
		t = 0
	}

	var progress float64
	if loop {
		progress = math.Mod(t, float64(n))
	} else {
		progress = math.Min(t, float64(n-1))
	}

	base := int(math.Floor(progress))
	next := min(n-1, base+1)
	if loop {
		next = (base + 1) % n
	}
	frac := progress - float64(base)
	return core.Lerp(path[base].Pos(), path[next].Pos(), frac), true
}

// ObstacleCellAt returns the cell a forklift occupies at integer step t.
func ObstacleCellAt(path core.Path, loop bool, t int) (core.Cell, bool) {
	n := len(path)
	if n == 0 {
		return core.Cell{}, false
	}
	if t < 0 {
		t = 0
	}
	if loop {
		return path[t%n], true
	}
	return path[min(t, n-1)], true
}
