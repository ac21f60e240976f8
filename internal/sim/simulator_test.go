package sim

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/elektrokombinacija/warehouse-sim/internal/core"
	"github.com/elektrokombinacija/warehouse-sim/internal/logging"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// harness drives a Controller with explicit frame times.
type harness struct {
	ctrl  *Controller
	sched *FrameScheduler

	mu  sync.Mutex
	now time.Time
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{sched: NewFrameScheduler(nil), now: t0}
	cfg.Scheduler = h.sched
	cfg.Logger = logging.Discard()
	cfg.Now = func() time.Time {
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.now
	}
	h.ctrl = NewController(cfg)
	return h
}

func (h *harness) setNow(d time.Duration) {
	h.mu.Lock()
	h.now = t0.Add(d)
	h.mu.Unlock()
}

// frame fires one frame at t0+d.
func (h *harness) frame(d time.Duration) {
	h.sched.Fire(t0.Add(d))
}

func (h *harness) progress(t *testing.T, id core.AgentID) float64 {
	t.Helper()
	p, ok := h.ctrl.Progress(id)
	if !ok {
		t.Fatalf("agent %s not loaded", id)
	}
	return p
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func singleAgentPlan(path core.Path, tasks ...core.Cell) *core.Plan {
	agent := core.NewAgentPlan(path[0], path, core.AssignmentsFromCells(tasks))
	return &core.Plan{Grid: core.NewGrid(10, 10), Agents: []core.AgentPlan{agent}}
}

func TestLoadEmptyStaysIdle(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.ctrl.Load(&core.Plan{})

	if got := h.ctrl.State(); got != Idle {
		t.Errorf("State = %v, want idle", got)
	}
	if err := h.ctrl.Play(); !errors.Is(err, ErrNoPaths) {
		t.Errorf("Play on idle = %v, want ErrNoPaths", err)
	}
}

func TestRunCompletesTask(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.ctrl.SetSpeed(2)

	var tasks []string
	var states []PlaybackState
	h.ctrl.AddObserver(ObserverFuncs{
		Task:  func(_ core.AgentID, c core.Cell) { tasks = append(tasks, core.CellKey(c)) },
		State: func(_, to PlaybackState) { states = append(states, to) },
	})

	h.ctrl.Load(singleAgentPlan(row(0, 1, 2), core.Cell{Row: 0, Col: 2}))
	if err := h.ctrl.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}

	h.frame(500 * time.Millisecond)
	if got := h.progress(t, "0,0"); !approx(got, 1) {
		t.Fatalf("progress = %v, want 1", got)
	}
	if len(tasks) != 0 {
		t.Fatalf("task completed early: %v", tasks)
	}

	h.frame(time.Second)
	snap := h.ctrl.Snapshot()
	if !snap.IsCompleted(core.Cell{Row: 0, Col: 2}) {
		t.Errorf("completed = %v, want 0,2", snap.CompletedTasks)
	}
	if a, _ := snap.Agent("0,0"); a.Cursor != 1 || a.Status != StatusCompleted {
		t.Errorf("agent = %+v, want cursor 1 and completed", a)
	}
	if len(tasks) != 1 || tasks[0] != "0,2" {
		t.Errorf("task events = %v", tasks)
	}
	if h.ctrl.State() != Completed {
		t.Errorf("State = %v, want completed", h.ctrl.State())
	}
	if h.sched.Pending() != 0 {
		t.Error("frame chain still scheduled after completion")
	}

	want := []PlaybackState{Ready, Running, Completed}
	if len(states) != len(want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("states[%d] = %v, want %v", i, states[i], want[i])
		}
	}

	if err := h.ctrl.Play(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Play from completed = %v, want ErrInvalidTransition", err)
	}
	if m := h.ctrl.Metrics(); m.TasksCompleted != 1 || m.TasksAssigned != 1 {
		t.Errorf("metrics = %+v", m)
	}
}

func TestPauseResumeContinuity(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.ctrl.SetSpeed(1)
	h.ctrl.Load(singleAgentPlan(row(0, 1, 2, 3, 4, 5, 6, 7, 8, 9)))

	h.ctrl.Play()
	h.frame(time.Second)
	if err := h.ctrl.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	before := h.ctrl.Snapshot()

	// Frames delivered while paused are ignored.
	h.frame(5 * time.Second)
	if got := h.progress(t, "0,0"); !approx(got, 1) {
		t.Errorf("progress moved while paused: %v", got)
	}

	h.setNow(10 * time.Second)
	h.ctrl.Play()
	after := h.ctrl.Snapshot()
	if before.Agents[0].Pos != after.Agents[0].Pos {
		t.Errorf("position jumped on resume: %v -> %v", before.Agents[0].Pos, after.Agents[0].Pos)
	}

	h.frame(10500 * time.Millisecond)
	if got := h.progress(t, "0,0"); !approx(got, 1.5) {
		t.Errorf("progress after resume = %v, want 1.5", got)
	}
	if got := h.ctrl.Time(); !approx(got, 1.5) {
		t.Errorf("time after resume = %v, want 1.5", got)
	}
}

func TestSingleFrameChain(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.ctrl.Load(singleAgentPlan(row(0, 1, 2, 3, 4, 5)))

	h.ctrl.Play()
	h.ctrl.Play()
	if got := h.sched.Pending(); got != 1 {
		t.Errorf("pending after double play = %d, want 1", got)
	}

	h.ctrl.Pause()
	h.ctrl.Play()
	if got := h.sched.Pending(); got != 1 {
		t.Errorf("pending after pause/play = %d, want 1", got)
	}

	h.frame(100 * time.Millisecond)
	if got := h.sched.Pending(); got != 1 {
		t.Errorf("pending after frame = %d, want 1", got)
	}
}

func TestResetRestoresStart(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.ctrl.SetSpeed(2)
	h.ctrl.Load(singleAgentPlan(row(0, 1, 2, 3), core.Cell{Row: 0, Col: 1}))
	runID := h.ctrl.Snapshot().RunID
	before := h.ctrl.Plan().Agents[0]

	h.ctrl.Play()
	h.frame(time.Second)
	if err := h.ctrl.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	snap := h.ctrl.Snapshot()
	if snap.State != Ready || snap.Time != 0 {
		t.Errorf("after reset: state %v, time %v", snap.State, snap.Time)
	}
	if len(snap.CompletedTasks) != 0 {
		t.Errorf("completed not cleared: %v", snap.CompletedTasks)
	}
	if snap.Agents[0].Pos != (core.Pos{}) || snap.Agents[0].Cursor != 0 {
		t.Errorf("agent not rewound: %+v", snap.Agents[0])
	}
	if snap.RunID == runID {
		t.Error("reset kept the run id")
	}

	after := h.ctrl.Plan().Agents[0]
	if !reflect.DeepEqual(after.Path, before.Path) {
		t.Errorf("path = %v, want %v", after.Path, before.Path)
	}
	if !reflect.DeepEqual(after.Assignment, before.Assignment) {
		t.Errorf("assignment = %v, want %v", after.Assignment, before.Assignment)
	}
	if h.sched.Pending() != 0 {
		t.Error("reset left a frame scheduled")
	}
}

func TestPauseInvalidStates(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	if err := h.ctrl.Pause(); !errors.Is(err, ErrNoPaths) {
		t.Errorf("Pause idle = %v", err)
	}
	h.ctrl.Load(singleAgentPlan(row(0, 1)))
	if err := h.ctrl.Pause(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Pause ready = %v", err)
	}
}

func TestStationaryAgent(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	plan := singleAgentPlan(row(0, 1))
	plan.Agents = append(plan.Agents, core.NewAgentPlan(core.Cell{Row: 3, Col: 3}, nil, nil))
	h.ctrl.Load(plan)

	snap := h.ctrl.Snapshot()
	a, ok := snap.Agent("3,3")
	if !ok || !a.Stationary || a.Pos != (core.Pos{Row: 3, Col: 3}) {
		t.Errorf("stationary agent = %+v", a)
	}

	h.ctrl.Play()
	h.frame(time.Second)
	if h.ctrl.State() != Completed {
		t.Errorf("state = %v, stationary agent should not block completion", h.ctrl.State())
	}
}

func TestObstacleGatePolicy(t *testing.T) {
	plan := singleAgentPlan(row(0, 1))
	plan.Obstacles = []core.Obstacle{{ID: 1, Path: core.Path{{5, 0}, {5, 1}, {5, 2}, {5, 3}, {5, 4}}}}

	tests := []struct {
		policy ObstaclePolicy
		// state after one second at speed 1
		want PlaybackState
	}{
		{ObstaclesIgnore, Completed},
		{ObstaclesGate, Running},
	}

	for _, tt := range tests {
		cfg := DefaultConfig()
		cfg.Speed = 1
		cfg.ObstaclePolicy = tt.policy
		h := newHarness(t, cfg)
		h.ctrl.Load(plan)
		h.ctrl.Play()

		h.frame(time.Second)
		if got := h.ctrl.State(); got != tt.want {
			t.Errorf("%v: state = %v, want %v", tt.policy, got, tt.want)
		}

		if tt.policy == ObstaclesGate {
			h.frame(4 * time.Second)
			if got := h.ctrl.State(); got != Completed {
				t.Errorf("gate: state after forklift finished = %v", got)
			}
		}
	}
}

func TestObstacleSnapshot(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	plan := singleAgentPlan(row(0, 1, 2, 3, 4, 5, 6, 7, 8, 9))
	plan.Obstacles = []core.Obstacle{{ID: 7, Path: row(0, 1, 2, 3), Loop: true}}
	h.ctrl.Load(plan)
	h.ctrl.SetSpeed(1)

	h.ctrl.Play()
	h.frame(5500 * time.Millisecond)

	o := h.ctrl.Snapshot().Obstacles[0]
	if o.ID != 7 || !o.Visible || !approx(o.Pos.Col, 1.5) {
		t.Errorf("forklift = %+v, want col 1.5", o)
	}
}

func TestReplanAppliedAtNextTick(t *testing.T) {
	var got ReplanRequest
	suffix := core.Path{{0, 1}, {1, 1}, {2, 1}}

	cfg := DefaultConfig()
	cfg.Speed = 1
	cfg.Replanner = ReplanFunc(func(_ context.Context, req ReplanRequest) (core.Path, error) {
		got = req
		return suffix, nil
	})
	h := newHarness(t, cfg)
	h.ctrl.Load(singleAgentPlan(row(0, 1, 2, 3, 4, 5, 6, 7, 8, 9), core.Cell{Row: 2, Col: 1}))

	h.ctrl.Play()
	h.frame(time.Second)
	if err := h.ctrl.RequestReplan(context.Background(), "0,0"); err != nil {
		t.Fatalf("RequestReplan: %v", err)
	}

	if a, _ := h.ctrl.Snapshot().Agent("0,0"); a.Status != StatusReplanning {
		t.Errorf("status = %q, want replanning", a.Status)
	}
	if n := len(h.ctrl.Plan().Agents[0].Path); n != 10 {
		t.Errorf("path changed before a tick: %d steps", n)
	}

	waitFor(t, "spliced path", func() bool {
		h.frame(time.Second)
		return len(h.ctrl.Plan().Agents[0].Path) == 4
	})

	if got.StepIndex != 1 || got.Start != (core.Cell{Row: 0, Col: 1}) {
		t.Errorf("request = %+v, want step 1 from 0,1", got)
	}
	if len(got.Remaining) != 1 || got.Remaining[0] != (core.Cell{Row: 2, Col: 1}) {
		t.Errorf("remaining = %v", got.Remaining)
	}
	if p := h.progress(t, "0,0"); !approx(p, 1) {
		t.Errorf("progress after splice = %v, want 1", p)
	}

	h.frame(3 * time.Second)
	if h.ctrl.State() != Completed {
		t.Errorf("state = %v, want completed", h.ctrl.State())
	}
	if !h.ctrl.Snapshot().IsCompleted(core.Cell{Row: 2, Col: 1}) {
		t.Error("task on the replanned suffix was not completed")
	}
}

func TestReplanFailureKeepsPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Replanner = ReplanFunc(func(context.Context, ReplanRequest) (core.Path, error) {
		return nil, errors.New("no path")
	})
	h := newHarness(t, cfg)

	results := make(chan bool, 1)
	h.ctrl.AddObserver(ObserverFuncs{Replan: func(_ core.AgentID, ok bool) { results <- ok }})
	h.ctrl.Load(singleAgentPlan(row(0, 1, 2), core.Cell{Row: 0, Col: 2}))

	if err := h.ctrl.RequestReplan(context.Background(), "0,0"); err != nil {
		t.Fatalf("RequestReplan: %v", err)
	}

	select {
	case ok := <-results:
		if ok {
			t.Error("failed replan reported as applied")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no replan result")
	}

	if n := len(h.ctrl.Plan().Agents[0].Path); n != 3 {
		t.Errorf("path length = %d, want 3", n)
	}
	a, _ := h.ctrl.Snapshot().Agent("0,0")
	if a.Status != StatusEnRoute {
		t.Errorf("status = %q, want en route", a.Status)
	}
	if m := h.ctrl.Metrics(); m.ReplanFailures != 1 {
		t.Errorf("failures = %d, want 1", m.ReplanFailures)
	}
}

func TestStaleReplanDropped(t *testing.T) {
	release := make(chan struct{})
	cfg := DefaultConfig()
	cfg.Replanner = ReplanFunc(func(context.Context, ReplanRequest) (core.Path, error) {
		<-release
		return core.Path{{0, 0}, {1, 0}}, nil
	})
	h := newHarness(t, cfg)
	h.ctrl.Load(singleAgentPlan(row(0, 1, 2)))

	h.ctrl.RequestReplan(context.Background(), "0,0")
	h.ctrl.Reset()
	close(release)

	waitFor(t, "stale replan", func() bool { return h.ctrl.Metrics().StaleReplans == 1 })

	if n := len(h.ctrl.Plan().Agents[0].Path); n != 3 {
		t.Errorf("stale result was applied: %d steps", n)
	}
}

func TestRequestReplanErrors(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.ctrl.Load(singleAgentPlan(row(0, 1)))
	if err := h.ctrl.RequestReplan(context.Background(), "0,0"); !errors.Is(err, ErrNoReplanner) {
		t.Errorf("without replanner = %v", err)
	}

	cfg := DefaultConfig()
	cfg.Replanner = ReplanFunc(func(context.Context, ReplanRequest) (core.Path, error) { return nil, nil })
	h = newHarness(t, cfg)
	h.ctrl.Load(singleAgentPlan(row(0, 1)))
	if err := h.ctrl.RequestReplan(context.Background(), "9,9"); !errors.Is(err, ErrUnknownAgent) {
		t.Errorf("unknown agent = %v", err)
	}

	h.ctrl.Play()
	h.frame(time.Second)
	if s := h.ctrl.State(); s != Completed {
		t.Fatalf("state = %v, want completed", s)
	}
	if err := h.ctrl.RequestReplan(context.Background(), "0,0"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("after completion = %v", err)
	}
	if m := h.ctrl.Metrics(); m.ReplanRequests != 0 {
		t.Errorf("replan requests = %d, want 0", m.ReplanRequests)
	}
}

func TestAutoReplanOnBlockedCell(t *testing.T) {
	calls := make(chan ReplanRequest, 4)
	cfg := DefaultConfig()
	cfg.AutoReplan = true
	cfg.Replanner = ReplanFunc(func(_ context.Context, req ReplanRequest) (core.Path, error) {
		calls <- req
		return core.Path{{0, 0}, {1, 0}, {1, 1}}, nil
	})
	h := newHarness(t, cfg)

	plan := singleAgentPlan(row(0, 1, 2))
	plan.Obstacles = []core.Obstacle{{ID: 1, Path: core.Path{{0, 1}}}}
	h.ctrl.Load(plan)
	h.ctrl.Play()
	h.frame(0)

	select {
	case req := <-calls:
		if req.StepIndex != 0 || req.Start != (core.Cell{Row: 0, Col: 0}) {
			t.Errorf("auto request = %+v", req)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no automatic replan")
	}

	waitFor(t, "auto splice", func() bool {
		h.frame(0)
		return h.ctrl.Plan().Agents[0].Path[1] == (core.Cell{Row: 1, Col: 0})
	})
	h.frame(0)

	select {
	case req := <-calls:
		t.Errorf("replanned twice: %+v", req)
	default:
	}
}

func TestSetSpeedClamps(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	if got := h.ctrl.Speed(); got != DefaultSpeed {
		t.Errorf("default speed = %v", got)
	}
	if got := h.ctrl.SetSpeed(50); got != MaxSpeed {
		t.Errorf("SetSpeed(50) = %v", got)
	}
}
