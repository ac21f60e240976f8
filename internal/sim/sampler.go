// Package sim animates precomputed robot paths and forklift loops.
//
// The Controller owns a single playback clock. Each frame it advances every
// robot's progress cursor, samples interpolated positions, records task
// completions, and publishes a Snapshot to registered observers. Replanned
// path suffixes arrive asynchronously and are spliced in before the next
// frame reads agent state.
package sim

import (
	"math"

	"github.com/elektrokombinacija/warehouse-sim/internal/core"
)

// Sample returns the interpolated position at a fractional progress along
// path. Returns false for an empty path.
func Sample(path core.Path, progress float64) (core.Pos, bool) {
	n := len(path)
	if n == 0 {
		return core.Pos{}, false
	}
	if n == 1 {
		return path[0].Pos(), true
	}

	limit := float64(n - 1)
	if progress < 0 || math.IsNaN(progress) {
		progress = 0
	}
	if progress > limit {
		progress = limit
	}

	base := int(math.Floor(progress))
	next := min(n-1, base+1)
	frac := progress - float64(base)
	return core.Lerp(path[base].Pos(), path[next].Pos(), frac), true
}

// StepAt returns the integer step index for progress, clamped to the path.
func StepAt(path core.Path, progress float64) int {
	if len(path) == 0 || progress <= 0 || math.IsNaN(progress) {
		return 0
	}
	return min(len(path)-1, int(math.Floor(progress)))
}
