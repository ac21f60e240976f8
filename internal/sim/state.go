package sim

import (
	"errors"
	"fmt"
	"strings"
)

// PlaybackState is the controller lifecycle.
type PlaybackState int

const (
	Idle      PlaybackState = iota // No paths loaded
	Ready                          // Paths loaded, not yet played
	Running                        // Frame loop active
	Paused                         // Frozen mid-run
	Completed                      // Every channel exhausted its path
)

func (s PlaybackState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Completed:
		return "completed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText renders the state by name.
func (s PlaybackState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *PlaybackState) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "idle":
		*s = Idle
	case "ready":
		*s = Ready
	case "running":
		*s = Running
	case "paused":
		*s = Paused
	case "completed":
		*s = Completed
	default:
		return fmt.Errorf("unknown playback state %q", b)
	}
	return nil
}

// Agent status strings published in snapshots.
const (
	StatusEnRoute    = "En route"
	StatusCompleted  = "Completed"
	StatusReplanning = "Replanning"
)

// ObstaclePolicy decides whether forklifts hold back run completion.
type ObstaclePolicy int

const (
	// ObstaclesIgnore completes once every robot is done.
	ObstaclesIgnore ObstaclePolicy = iota
	// ObstaclesGate also waits for one-shot forklifts to reach their last cell.
	// Looping forklifts never finish and are not waited on.
	ObstaclesGate
)

func (p ObstaclePolicy) String() string {
	if p == ObstaclesGate {
		return "gate"
	}
	return "ignore"
}

// ParseObstaclePolicy maps a config string to a policy.
func ParseObstaclePolicy(s string) (ObstaclePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ignore":
		return ObstaclesIgnore, nil
	case "gate":
		return ObstaclesGate, nil
	}
	return ObstaclesIgnore, fmt.Errorf("unknown obstacle policy %q", s)
}

var (
	// ErrNoPaths is returned by controls that need a loaded plan.
	ErrNoPaths = errors.New("sim: no paths loaded")
	// ErrInvalidTransition is returned when a control is not valid in the current state.
	ErrInvalidTransition = errors.New("sim: invalid playback transition")
	// ErrUnknownAgent is returned for replan requests naming an agent that is not loaded.
	ErrUnknownAgent = errors.New("sim: unknown agent")
	// ErrNoReplanner is returned when replanning is requested without a collaborator.
	ErrNoReplanner = errors.New("sim: no replanner configured")
)
