package sim

import "math"

// Playback speed bounds in cells per second.
const (
	MinSpeed     = 0.1
	MaxSpeed     = 20.0
	DefaultSpeed = 6.0
)

// ClampSpeed keeps a user-supplied speed within [MinSpeed, MaxSpeed].
func ClampSpeed(speed float64) float64 {
	if math.IsNaN(speed) || speed < MinSpeed {
		return MinSpeed
	}
	if speed > MaxSpeed {
		return MaxSpeed
	}
	return speed
}

// Advance moves a progress cursor forward by dt seconds at speed, capped at
// the final index of a path of length pathLen. Negative dt counts as zero and
// speed never drops below MinSpeed. The result is never below progress.
func Advance(progress, dt, speed float64, pathLen int) float64 {
	if pathLen <= 0 {
		return progress
	}
	if dt < 0 || math.IsNaN(dt) {
		dt = 0
	}
	if speed < MinSpeed || math.IsNaN(speed) {
		speed = MinSpeed
	}

	next := progress + dt*speed
	if limit := float64(pathLen - 1); next > limit {
		next = limit
	}
	if next < progress {
		return progress
	}
	return next
}
