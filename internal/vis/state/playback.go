package state

import (
	"errors"

	"github.com/elektrokombinacija/warehouse-sim/internal/sim"
)

// speedStep is the factor applied by SpeedUp and SpeedDown.
const speedStep = 1.5

// Playback maps toolbar and keyboard actions onto the controller.
type Playback struct {
	ctrl *sim.Controller
}

// NewPlayback wraps ctrl.
func NewPlayback(ctrl *sim.Controller) *Playback {
	return &Playback{ctrl: ctrl}
}

// Playing reports whether the clock is running.
func (p *Playback) Playing() bool {
	return p.ctrl.State() == sim.Running
}

// TogglePlay pauses a running simulation and starts anything else. A
// completed run is rewound first.
func (p *Playback) TogglePlay() error {
	switch p.ctrl.State() {
	case sim.Running:
		return p.ctrl.Pause()
	case sim.Completed:
		if err := p.ctrl.Reset(); err != nil {
			return err
		}
	}
	return p.ctrl.Play()
}

// Reset rewinds to t=0. Nothing to rewind is not an error here.
func (p *Playback) Reset() error {
	if err := p.ctrl.Reset(); err != nil && !errors.Is(err, sim.ErrNoPaths) {
		return err
	}
	return nil
}

// SpeedUp multiplies the speed and returns the clamped result.
func (p *Playback) SpeedUp() float64 {
	return p.ctrl.SetSpeed(p.ctrl.Speed() * speedStep)
}

// SpeedDown divides the speed and returns the clamped result.
func (p *Playback) SpeedDown() float64 {
	return p.ctrl.SetSpeed(p.ctrl.Speed() / speedStep)
}

// Progress returns the clock as a fraction of makespan, in [0, 1].
func (p *Playback) Progress(makespan float64) float64 {
	if makespan <= 0 {
		return 0
	}
	return min(p.ctrl.Time()/makespan, 1)
}
