// Package state holds what the viewer shows: the loaded plan, the latest
// controller snapshot and the user's selection.
package state

import (
	"fmt"
	"sync"

	"github.com/elektrokombinacija/warehouse-sim/internal/core"
	"github.com/elektrokombinacija/warehouse-sim/internal/sim"
)

// maxEvents bounds the activity log.
const maxEvents = 8

// State is shared between the UI goroutine and controller callbacks.
type State struct {
	mu sync.Mutex

	Controller *sim.Controller
	Playback   *Playback

	plan     *core.Plan
	snap     sim.Snapshot
	selected core.AgentID
	events   []string

	// invalidate asks the window for a redraw
	invalidate func()
}

var _ sim.Observer = (*State)(nil)

// NewState wires a state to ctrl and registers it as an observer.
func NewState(ctrl *sim.Controller, invalidate func()) *State {
	st := &State{
		Controller: ctrl,
		Playback:   NewPlayback(ctrl),
		plan:       ctrl.Plan(),
		snap:       ctrl.Snapshot(),
		invalidate: invalidate,
	}
	ctrl.AddObserver(st)
	return st
}

// Load replaces the plan shown and hands it to the controller.
func (s *State) Load(plan *core.Plan) {
	s.mu.Lock()
	s.selected = ""
	s.events = nil
	s.mu.Unlock()

	s.Controller.Load(plan)

	s.mu.Lock()
	s.plan = s.Controller.Plan()
	s.mu.Unlock()
}

// Plan returns the plan being shown, including spliced paths.
func (s *State) Plan() *core.Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plan
}

// Snapshot returns the latest published frame.
func (s *State) Snapshot() sim.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Selected returns the selected agent, if any.
func (s *State) Selected() (core.AgentID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected, s.selected != ""
}

// Select toggles the selection of id.
func (s *State) Select(id core.AgentID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == id {
		s.selected = ""
		return
	}
	s.selected = id
}

// ClearSelection drops the selection.
func (s *State) ClearSelection() {
	s.mu.Lock()
	s.selected = ""
	s.mu.Unlock()
}

// Events returns the most recent activity lines, newest last.
func (s *State) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

// AgentIndex returns the position of id in the plan, used for colouring.
func (s *State) AgentIndex(id core.AgentID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.plan == nil {
		return 0
	}
	for i, a := range s.plan.Agents {
		if a.ID == id {
			return i
		}
	}
	return 0
}

// AgentAt returns the agent drawn closest to cell, within half a cell.
func (s *State) AgentAt(cell core.Cell) (core.AgentID, bool) {
	snap := s.Snapshot()
	for _, a := range snap.Agents {
		if a.Pos.Nearest() == cell {
			return a.ID, true
		}
	}
	return "", false
}

// PathHistory returns the cells an agent has passed plus its current
// interpolated position, for trails.
func (s *State) PathHistory(id core.AgentID) []core.Pos {
	path, progress, ok := s.agentPath(id)
	if !ok || len(path) == 0 {
		return nil
	}
	step := sim.StepAt(path, progress)
	out := make([]core.Pos, 0, step+2)
	for _, c := range path[:step+1] {
		out = append(out, c.Pos())
	}
	if pos, ok := sim.Sample(path, progress); ok {
		out = append(out, pos)
	}
	return out
}

// FuturePath returns the current position followed by the cells still ahead.
func (s *State) FuturePath(id core.AgentID) []core.Pos {
	path, progress, ok := s.agentPath(id)
	if !ok || len(path) == 0 {
		return nil
	}
	pos, _ := sim.Sample(path, progress)
	out := []core.Pos{pos}
	for _, c := range path[sim.StepAt(path, progress)+1:] {
		out = append(out, c.Pos())
	}
	return out
}

func (s *State) agentPath(id core.AgentID) (core.Path, float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.plan == nil {
		return nil, 0, false
	}
	snapAgent, ok := s.snap.Agent(id)
	if !ok {
		return nil, 0, false
	}
	for _, a := range s.plan.Agents {
		if a.ID == id {
			return a.Path, snapAgent.Progress, true
		}
	}
	return nil, 0, false
}

// Makespan returns the global time at which the longest path ends.
func (s *State) Makespan() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.plan == nil {
		return 0
	}
	longest := 0
	for _, a := range s.plan.Agents {
		longest = max(longest, len(a.Path))
	}
	return float64(max(longest-1, 0))
}

func (s *State) OnFrame(snap sim.Snapshot) {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
	s.redraw()
}

func (s *State) OnStateChange(from, to sim.PlaybackState) {
	s.logf("%s -> %s", from, to)
}

func (s *State) OnTaskCompleted(agent core.AgentID, cell core.Cell) {
	s.logf("robot %s reached task %s", agent, cell)
}

func (s *State) OnReplan(agent core.AgentID, ok bool) {
	if !ok {
		s.logf("replan for %s failed, keeping path", agent)
		return
	}
	// Pick up the spliced path.
	plan := s.Controller.Plan()
	s.mu.Lock()
	s.plan = plan
	s.mu.Unlock()
	s.logf("robot %s replanned", agent)
}

// Report adds a failed user action to the activity log.
func (s *State) Report(action string, err error) {
	if err != nil {
		s.logf("%s: %v", action, err)
	}
}

func (s *State) logf(format string, args ...any) {
	s.mu.Lock()
	s.events = append(s.events, fmt.Sprintf(format, args...))
	if len(s.events) > maxEvents {
		s.events = s.events[len(s.events)-maxEvents:]
	}
	s.mu.Unlock()
	s.redraw()
}

func (s *State) redraw() {
	if s.invalidate != nil {
		s.invalidate()
	}
}
