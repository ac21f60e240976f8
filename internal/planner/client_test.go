package planner

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/elektrokombinacija/warehouse-sim/internal/core"
	"github.com/elektrokombinacija/warehouse-sim/internal/logging"
	"github.com/elektrokombinacija/warehouse-sim/internal/sim"
)

// fakeService serves canned responses per endpoint and records request bodies.
type fakeService struct {
	mu        sync.Mutex
	responses map[string]string
	status    map[string]int
	bodies    map[string]map[string]any
}

func (f *fakeService) respond(path string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[path] = body
	f.status[path] = status
}

func (f *fakeService) body(path string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[path]
}

func newFakeService(t *testing.T) (*fakeService, *Client) {
	t.Helper()
	f := &fakeService{
		responses: make(map[string]string),
		status:    make(map[string]int),
		bodies:    make(map[string]map[string]any),
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.bodies[r.URL.Path] = body
		resp, ok := f.responses[r.URL.Path]
		code := f.status[r.URL.Path]
		f.mu.Unlock()

		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if code != 0 {
			w.WriteHeader(code)
		}
		w.Write([]byte(resp))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Config{BaseURL: srv.URL + "/api/", Timeout: 5 * time.Second, Logger: logging.Discard()})
	return f, c
}

func TestGenerateMap(t *testing.T) {
	f, c := newFakeService(t)
	f.respond("/api/generate_map", 0, `{
		"grid": [[0, 0, 0], [0, 1, 0]],
		"robots": [[0, 0]],
		"tasks": [[0, 2], "bad"],
		"moving": [{"path": [[1, 0], [0, 0]]}, {"path": [[1, 2]], "loop": false}],
		"meta": {"seed": 7}
	}`)

	robots := 1
	inst, err := c.GenerateMap(context.Background(), GenerateRequest{Width: 3, Height: 2, NumRobots: &robots})
	if err != nil {
		t.Fatalf("GenerateMap: %v", err)
	}
	if inst.Grid.Width() != 3 || inst.Grid.Height() != 2 {
		t.Errorf("grid = %dx%d", inst.Grid.Width(), inst.Grid.Height())
	}
	if len(inst.Tasks) != 1 {
		t.Errorf("tasks = %v, want malformed entry dropped", inst.Tasks)
	}
	if len(inst.Moving) != 2 || !inst.Moving[0].Loop || inst.Moving[1].Loop {
		t.Errorf("moving = %+v", inst.Moving)
	}
	if got := f.body("/api/generate_map")["num_robots"]; got != float64(1) {
		t.Errorf("num_robots sent = %v", got)
	}
}

func TestBuildPlanPrefersScheduledPaths(t *testing.T) {
	f, c := newFakeService(t)
	f.respond("/api/plan_tasks", 0, `{"assigned": {"[0, 0]": [[0, 2]], "[1, 1]": []}}`)
	f.respond("/api/compute_paths", 0, `{
		"ok": true,
		"paths": {"[0, 0]": [[0, 0], [0, 1], [0, 2]]},
		"scheduled_paths": {"[0, 0]": [[0, 0], [0, 0], [0, 1], [0, 2]], "[1, 1]": [[1, 1]]}
	}`)

	inst := core.NewInstance(2, 3)
	inst.Robots = []core.Cell{{0, 0}, {1, 1}, {1, 2}}
	inst.Tasks = []core.Cell{{0, 2}}

	plan, err := c.BuildPlan(context.Background(), inst)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if len(plan.Agents) != 3 {
		t.Fatalf("agents = %d, want 3", len(plan.Agents))
	}

	a := plan.Agents[0]
	if a.ID != "0,0" || len(a.Path) != 4 {
		t.Errorf("agent = %v, want scheduled path of 4", a)
	}
	if len(a.Assignment) != 1 || a.Assignment[0].Cell != (core.Cell{Row: 0, Col: 2}) {
		t.Errorf("assignment = %v", a.Assignment)
	}
	if idle := plan.Agents[2]; idle.ID != "1,2" || len(idle.Path) != 0 {
		t.Errorf("unplanned robot = %v", idle)
	}

	plans, ok := f.body("/api/compute_paths")["robot_plans"].(map[string]any)
	if !ok || plans["[0, 0]"] == nil {
		t.Errorf("robot_plans sent = %v", f.body("/api/compute_paths")["robot_plans"])
	}
}

func TestComputePathsFailure(t *testing.T) {
	f, c := newFakeService(t)
	f.respond("/api/compute_paths", 0, `{"ok": false, "reason": "no_path", "robot": [0, 0]}`)

	inst := core.NewInstance(1, 1)
	_, err := c.ComputePaths(context.Background(), inst, nil)
	if !errors.Is(err, ErrPlanFailed) {
		t.Errorf("err = %v, want ErrPlanFailed", err)
	}
}

func TestReplan(t *testing.T) {
	f, c := newFakeService(t)
	f.respond("/api/replan", 0, `{"ok": true, "path": [[0, 1], [1, 1], [2, 1]]}`)

	req := sim.ReplanRequest{
		Agent:       "0,0",
		Grid:        core.NewGrid(3, 3),
		Start:       core.Cell{Row: 0, Col: 1},
		Remaining:   []core.Cell{{2, 1}},
		Obstacles:   []core.Obstacle{{Path: core.Path{{1, 0}}, Loop: true}},
		CurrentTime: 4,
	}
	path, err := c.Replan(context.Background(), req)
	if err != nil {
		t.Fatalf("Replan: %v", err)
	}
	if len(path) != 3 || path[0] != req.Start {
		t.Errorf("path = %v", path)
	}

	body := f.body("/api/replan")
	if body["current_time"] != float64(4) {
		t.Errorf("current_time sent = %v", body["current_time"])
	}
	if start, ok := core.ParseCell(body["start"]); !ok || start != req.Start {
		t.Errorf("start sent = %v", body["start"])
	}
	if moving, _ := body["moving"].([]any); len(moving) != 1 {
		t.Errorf("moving sent = %v", body["moving"])
	}
}

func TestReplanErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		plan   bool
	}{
		{"no path", 0, `{"ok": false, "reason": "no_path_replan"}`, true},
		{"server error with reason", http.StatusInternalServerError, `{"ok": false, "reason": "boom"}`, true},
		{"server error", http.StatusBadGateway, `gateway down`, false},
		{"malformed", 0, `{"ok": tru`, false},
	}

	for _, tt := range tests {
		f, c := newFakeService(t)
		f.respond("/api/replan", tt.status, tt.body)

		_, err := c.Replan(context.Background(), sim.ReplanRequest{Grid: core.NewGrid(1, 1)})
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if got := errors.Is(err, ErrPlanFailed); got != tt.plan {
			t.Errorf("%s: errors.Is(ErrPlanFailed) = %v, want %v (%v)", tt.name, got, tt.plan, err)
		}
	}
}

func TestClientDrivesController(t *testing.T) {
	f, c := newFakeService(t)
	f.respond("/api/replan", 0, `{"ok": true, "path": [[0, 0], [1, 0]]}`)

	done := make(chan bool, 1)
	cfg := sim.DefaultConfig()
	cfg.Scheduler = sim.NewFrameScheduler(nil)
	cfg.Replanner = c
	cfg.Logger = logging.Discard()
	ctrl := sim.NewController(cfg)
	ctrl.AddObserver(sim.ObserverFuncs{Replan: func(_ core.AgentID, ok bool) { done <- ok }})

	agent := core.NewAgentPlan(core.Cell{}, core.Path{{0, 0}, {0, 1}}, nil)
	ctrl.Load(&core.Plan{Grid: core.NewGrid(2, 2), Agents: []core.AgentPlan{agent}})
	if err := ctrl.RequestReplan(context.Background(), agent.ID); err != nil {
		t.Fatalf("RequestReplan: %v", err)
	}

	select {
	case ok := <-done:
		if !ok {
			t.Fatal("replan not applied")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out")
	}
	if got := ctrl.Plan().Agents[0].Path; len(got) != 2 || got[1] != (core.Cell{Row: 1, Col: 0}) {
		t.Errorf("path = %v", got)
	}
}
