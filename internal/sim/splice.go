package sim

import "github.com/elektrokombinacija/warehouse-sim/internal/core"

// Splice keeps existing[:at] and appends suffix. An empty suffix leaves the
// existing path untouched.
func Splice(existing core.Path, at int, suffix core.Path) core.Path {
	if len(suffix) == 0 {
		return existing
	}
	at = max(0, min(at, len(existing)))

	out := make(core.Path, 0, at+len(suffix))
	out = append(out, existing[:at]...)
	out = append(out, suffix...)
	return out
}
