package scenario

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/elektrokombinacija/warehouse-sim/internal/core"
	"github.com/elektrokombinacija/warehouse-sim/internal/planner"
)

// stubPlanner returns a fixed map and plans a straight path for each robot.
type stubPlanner struct {
	generated int
	planned   []*core.Instance
}

func (s *stubPlanner) GenerateMap(ctx context.Context, req planner.GenerateRequest) (*core.Instance, error) {
	s.generated++
	inst := core.NewInstance(2, 3)
	inst.Robots = []core.Cell{{Row: 0, Col: 0}}
	inst.Tasks = []core.Cell{{Row: 0, Col: 2}}
	return inst, nil
}

func (s *stubPlanner) BuildPlan(ctx context.Context, inst *core.Instance) (*core.Plan, error) {
	s.planned = append(s.planned, inst)
	paths := map[core.AgentID]core.Path{
		"0,0": {{Row: 0, Col: 0}, {Row: 0, Col: 1}, {Row: 0, Col: 2}},
	}
	assigned := map[core.AgentID][]core.Assignment{
		"0,0": core.AssignmentsFromCells([]core.Cell{{Row: 0, Col: 2}}),
	}
	return core.NewPlan(inst.Grid, paths, assigned, inst.Moving), nil
}

func TestResolveGenerates(t *testing.T) {
	p := &stubPlanner{}
	save := filepath.Join(t.TempDir(), "run.yaml")

	plan, err := Source{SavePath: save}.Resolve(context.Background(), p)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.generated != 1 || len(p.planned) != 1 {
		t.Errorf("generated %d, planned %d, want 1 and 1", p.generated, len(p.planned))
	}
	if len(plan.Agents) != 1 || len(plan.Agents[0].Path) != 3 {
		t.Fatalf("plan agents = %+v", plan.Agents)
	}

	// The saved file replays without the planner.
	replayed, err := Source{Path: save}.Resolve(context.Background(), nil)
	if err != nil {
		t.Fatalf("Resolve saved: %v", err)
	}
	if len(replayed.Agents) != 1 || len(replayed.Agents[0].Assignment) != 1 {
		t.Errorf("replayed agents = %+v", replayed.Agents)
	}
}

func TestResolveFileWithoutPaths(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.yaml")
	data := "grid: [[0, 0, 0]]\nrobots: [[0, 0]]\ntasks: [[0, 2]]\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	p := &stubPlanner{}
	if _, err := (Source{Path: path}).Resolve(context.Background(), p); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.generated != 0 || len(p.planned) != 1 {
		t.Errorf("generated %d, planned %d, want 0 and 1", p.generated, len(p.planned))
	}
	if got := p.planned[0].Tasks; len(got) != 1 || got[0] != (core.Cell{Row: 0, Col: 2}) {
		t.Errorf("planned tasks = %v", got)
	}

	if _, err := (Source{Path: path}).Resolve(context.Background(), nil); !errors.Is(err, ErrNoSource) {
		t.Errorf("Resolve without planner = %v, want ErrNoSource", err)
	}
}
