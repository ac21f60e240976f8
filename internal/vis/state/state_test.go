package state

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/elektrokombinacija/warehouse-sim/internal/core"
	"github.com/elektrokombinacija/warehouse-sim/internal/logging"
	"github.com/elektrokombinacija/warehouse-sim/internal/sim"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	st    *State
	sched *sim.FrameScheduler

	mu     sync.Mutex
	now    time.Time
	redraw int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{sched: sim.NewFrameScheduler(nil), now: t0}
	cfg := sim.DefaultConfig()
	cfg.Scheduler = f.sched
	cfg.Logger = logging.Discard()
	cfg.Now = func() time.Time {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.now
	}
	ctrl := sim.NewController(cfg)
	f.st = NewState(ctrl, func() {
		f.mu.Lock()
		f.redraw++
		f.mu.Unlock()
	})

	path := core.Path{{Row: 0, Col: 0}, {Row: 0, Col: 1}, {Row: 0, Col: 2}}
	agent := core.NewAgentPlan(path[0], path, core.AssignmentsFromCells([]core.Cell{{Row: 0, Col: 2}}))
	f.st.Load(&core.Plan{Grid: core.NewGrid(3, 3), Agents: []core.AgentPlan{agent}})
	return f
}

func (f *fixture) frame(d time.Duration) {
	f.sched.Fire(t0.Add(d))
}

func TestStateFollowsController(t *testing.T) {
	f := newFixture(t)
	id := core.AgentIDFor(core.Cell{})

	if got := f.st.Snapshot().State; got != sim.Ready {
		t.Fatalf("state after load = %v, want ready", got)
	}
	if got := f.st.Makespan(); got != 2 {
		t.Errorf("Makespan = %v, want 2", got)
	}

	if err := f.st.Playback.TogglePlay(); err != nil {
		t.Fatal(err)
	}
	f.frame(250 * time.Millisecond)

	snap := f.st.Snapshot()
	if math.Abs(snap.Time-1.5) > 1e-9 {
		t.Fatalf("time = %v, want 1.5", snap.Time)
	}
	if got := f.st.PathHistory(id); len(got) != 3 || got[2] != (core.Pos{Row: 0, Col: 1.5}) {
		t.Errorf("PathHistory = %v", got)
	}
	if got := f.st.FuturePath(id); len(got) != 2 || got[1] != (core.Pos{Row: 0, Col: 2}) {
		t.Errorf("FuturePath = %v", got)
	}
	if got := f.st.Playback.Progress(f.st.Makespan()); math.Abs(got-0.75) > 1e-9 {
		t.Errorf("Progress = %v, want 0.75", got)
	}

	f.frame(time.Second)
	if got := f.st.Snapshot().State; got != sim.Completed {
		t.Fatalf("state = %v, want completed", got)
	}
	if !f.st.Snapshot().IsCompleted(core.Cell{Row: 0, Col: 2}) {
		t.Error("task not marked completed")
	}

	f.mu.Lock()
	redraws := f.redraw
	f.mu.Unlock()
	if redraws == 0 {
		t.Error("observer never asked for a redraw")
	}

	events := f.st.Events()
	if len(events) == 0 || events[len(events)-1] != "running -> completed" {
		t.Errorf("events = %q", events)
	}
}

func TestTogglePlayFromCompletedRewinds(t *testing.T) {
	f := newFixture(t)
	f.st.Playback.TogglePlay()
	f.frame(time.Second)
	if f.st.Controller.State() != sim.Completed {
		t.Fatalf("state = %v, want completed", f.st.Controller.State())
	}

	if err := f.st.Playback.TogglePlay(); err != nil {
		t.Fatal(err)
	}
	if !f.st.Playback.Playing() {
		t.Error("not playing after toggle")
	}
	if got := f.st.Controller.Time(); got != 0 {
		t.Errorf("time = %v, want 0", got)
	}

	if err := f.st.Playback.TogglePlay(); err != nil {
		t.Fatal(err)
	}
	if f.st.Controller.State() != sim.Paused {
		t.Errorf("state = %v, want paused", f.st.Controller.State())
	}
}

func TestSpeedSteps(t *testing.T) {
	f := newFixture(t)
	if got := f.st.Playback.SpeedUp(); got != sim.DefaultSpeed*speedStep {
		t.Errorf("SpeedUp = %v", got)
	}
	for i := 0; i < 20; i++ {
		f.st.Playback.SpeedUp()
	}
	if got := f.st.Controller.Speed(); got != sim.MaxSpeed {
		t.Errorf("speed = %v, want %v", got, sim.MaxSpeed)
	}
	for i := 0; i < 40; i++ {
		f.st.Playback.SpeedDown()
	}
	if got := f.st.Controller.Speed(); got != sim.MinSpeed {
		t.Errorf("speed = %v, want %v", got, sim.MinSpeed)
	}
}

func TestResetWithoutPlan(t *testing.T) {
	f := newFixture(t)
	f.st.Load(nil)
	if err := f.st.Playback.Reset(); err != nil {
		t.Errorf("Reset on empty plan: %v", err)
	}
	if got := f.st.PathHistory("0,0"); got != nil {
		t.Errorf("PathHistory after clear = %v", got)
	}
}

func TestSelection(t *testing.T) {
	f := newFixture(t)
	id, ok := f.st.AgentAt(core.Cell{})
	if !ok || id != "0,0" {
		t.Fatalf("AgentAt = %q, %v", id, ok)
	}
	f.st.Select(id)
	if got, ok := f.st.Selected(); !ok || got != id {
		t.Errorf("Selected = %q, %v", got, ok)
	}
	f.st.Select(id)
	if _, ok := f.st.Selected(); ok {
		t.Error("second Select should clear")
	}
	if _, ok := f.st.AgentAt(core.Cell{Row: 2, Col: 2}); ok {
		t.Error("empty cell reported an agent")
	}
}
