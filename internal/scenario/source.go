package scenario

import (
	"context"
	"errors"
	"fmt"

	"github.com/elektrokombinacija/warehouse-sim/internal/core"
	"github.com/elektrokombinacija/warehouse-sim/internal/planner"
)

// Planner is the part of the planning client a Source needs.
type Planner interface {
	GenerateMap(ctx context.Context, req planner.GenerateRequest) (*core.Instance, error)
	BuildPlan(ctx context.Context, inst *core.Instance) (*core.Plan, error)
}

// Source says where a run's plan comes from: a scenario file, or a map
// generated by the planning service.
type Source struct {
	Path     string
	Generate planner.GenerateRequest

	// SavePath, when set, receives the resolved scenario.
	SavePath string
}

// ErrNoSource is returned when neither a file nor a planner is available.
var ErrNoSource = errors.New("scenario: no scenario file and no planner")

// Resolve loads or generates the plan. A scenario without paths is planned
// through p; p may be nil when the file already carries paths.
func (s Source) Resolve(ctx context.Context, p Planner) (*core.Plan, error) {
	var (
		inst *core.Instance
		plan *core.Plan
	)

	if s.Path != "" {
		f, err := Load(s.Path)
		if err != nil {
			return nil, err
		}
		if f.HasPaths() {
			plan, err = f.Plan()
			if err != nil {
				return nil, fmt.Errorf("scenario %s: %w", s.Path, err)
			}
		}
		inst = f.Instance()
	}

	if plan == nil {
		if p == nil {
			return nil, ErrNoSource
		}
		if inst == nil {
			generated, err := p.GenerateMap(ctx, s.Generate)
			if err != nil {
				return nil, err
			}
			inst = generated
		}
		if err := inst.Validate(); err != nil {
			return nil, err
		}
		var err error
		plan, err = p.BuildPlan(ctx, inst)
		if err != nil {
			return nil, err
		}
	}

	if s.SavePath != "" {
		if err := Save(s.SavePath, FromPlan(inst, plan)); err != nil {
			return nil, fmt.Errorf("save scenario: %w", err)
		}
	}
	return plan, nil
}
