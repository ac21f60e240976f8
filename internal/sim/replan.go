package sim

import (
	"context"

	"github.com/elektrokombinacija/warehouse-sim/internal/core"
)

// ReplanRequest is what the replanning collaborator needs to compute a new
// path suffix for one robot.
type ReplanRequest struct {
	ID          string
	Agent       core.AgentID
	Grid        core.Grid
	Start       core.Cell
	Remaining   []core.Cell
	Obstacles   []core.Obstacle
	CurrentTime int
	// StepIndex is where the returned suffix will be spliced.
	StepIndex int
}

// Replanner computes a path suffix beginning at req.Start. Implementations
// may use any transport. An error or an empty path leaves the robot on its
// current plan.
type Replanner interface {
	Replan(ctx context.Context, req ReplanRequest) (core.Path, error)
}

// ReplanFunc adapts a function to Replanner.
type ReplanFunc func(ctx context.Context, req ReplanRequest) (core.Path, error)

// Replan calls f.
func (f ReplanFunc) Replan(ctx context.Context, req ReplanRequest) (core.Path, error) {
	return f(ctx, req)
}

type replanOutcome struct {
	agent int
	req   ReplanRequest
	path  core.Path
	err   error
}
