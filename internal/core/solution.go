package core

// Obstacle is an independently moving forklift.
type Obstacle struct {
	ID   int
	Path Path
	Loop bool
}

// Period returns the length of one traversal.
func (o *Obstacle) Period() int {
	return len(o.Path)
}

// Plan is everything the simulation needs for one run.
type Plan struct {
	Grid      Grid
	Agents    []AgentPlan
	Obstacles []Obstacle
}

// NewPlan builds a plan from per-agent path and assignment maps.
// Agents are ordered by identity; agents present in either map are kept.
func NewPlan(grid Grid, paths map[AgentID]Path, assignments map[AgentID][]Assignment, obstacles []Obstacle) *Plan {
	ids := make(map[AgentID]struct{})
	for id := range paths {
		ids[id] = struct{}{}
	}
	for id := range assignments {
		ids[id] = struct{}{}
	}

	plan := &Plan{Grid: grid, Obstacles: obstacles}
	for _, id := range SortedAgentIDs(ids) {
		path := paths[id]
		start, ok := ParseAgentID(string(id))
		if !ok && len(path) > 0 {
			start = path[0]
		}
		agent := NewAgentPlan(start, path, assignments[id])
		agent.ID = id
		plan.Agents = append(plan.Agents, agent)
	}
	return plan
}

// Empty reports whether the plan has nothing to animate.
func (p *Plan) Empty() bool {
	return p == nil || (len(p.Agents) == 0 && len(p.Obstacles) == 0)
}

// TaskCells returns every assignment target across agents.
func (p *Plan) TaskCells() []Cell {
	var out []Cell
	for _, a := range p.Agents {
		out = append(out, Cells(a.Assignment)...)
	}
	return out
}
