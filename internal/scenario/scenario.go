// Package scenario reads and writes saved warehouse runs: the generated map,
// its robots, tasks and forklifts, and optionally the planned paths and
// task assignments. Files are YAML; JSON written by the planning service is
// accepted as-is.
package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/elektrokombinacija/warehouse-sim/internal/core"
)

// Forklift is a moving obstacle entry.
type Forklift struct {
	Path []any `yaml:"path" json:"path"`
	// Loop defaults to true when omitted.
	Loop *bool `yaml:"loop,omitempty" json:"loop,omitempty"`
}

// File is the on-disk layout. Cells are kept raw so every cell format the
// service emits ("[r, c]" keys, arrays, "r,c" strings) can be read.
type File struct {
	Grid     [][]int          `yaml:"grid" json:"grid"`
	Robots   []any            `yaml:"robots" json:"robots"`
	Tasks    []any            `yaml:"tasks,omitempty" json:"tasks,omitempty"`
	Moving   []Forklift       `yaml:"moving,omitempty" json:"moving,omitempty"`
	Paths    map[string][]any `yaml:"paths,omitempty" json:"paths,omitempty"`
	Assigned map[string][]any `yaml:"assigned,omitempty" json:"assigned,omitempty"`
}

// Load reads a scenario file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return f, nil
}

// Parse decodes YAML or JSON scenario data.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Save writes f as YAML.
func Save(path string, f *File) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Instance returns the map part of the scenario. Malformed cells are dropped.
func (f *File) Instance() *core.Instance {
	inst := &core.Instance{
		Grid:   core.Grid(f.Grid).Clone(),
		Robots: core.CleanPath(f.Robots),
		Tasks:  core.CleanPath(f.Tasks),
	}
	for i, fl := range f.Moving {
		loop := fl.Loop == nil || *fl.Loop
		inst.Moving = append(inst.Moving, core.Obstacle{ID: i, Path: core.CleanPath(fl.Path), Loop: loop})
	}
	return inst
}

// HasPaths reports whether the scenario carries planned paths.
func (f *File) HasPaths() bool {
	return len(f.Paths) > 0
}

// Plan builds a runnable plan. Robots listed without a path are kept as
// stationary agents; path keys that do not parse are skipped.
func (f *File) Plan() (*core.Plan, error) {
	inst := f.Instance()
	if err := inst.Validate(); err != nil {
		return nil, err
	}

	paths := make(map[core.AgentID]core.Path)
	for _, r := range inst.Robots {
		paths[core.AgentIDFor(r)] = nil
	}
	for key, raw := range f.Paths {
		start, ok := core.ParseCell(key)
		if !ok {
			continue
		}
		paths[core.AgentIDFor(start)] = core.CleanPath(raw)
	}

	assignments := make(map[core.AgentID][]core.Assignment)
	for key, raw := range f.Assigned {
		start, ok := core.ParseCell(key)
		if !ok {
			continue
		}
		assignments[core.AgentIDFor(start)] = core.AssignmentsFromCells(core.CleanPath(raw))
	}

	return core.NewPlan(inst.Grid, paths, assignments, inst.Moving), nil
}

// FromPlan builds a file from a plan and the instance it was computed for.
func FromPlan(inst *core.Instance, plan *core.Plan) *File {
	f := &File{
		Grid:     inst.Grid.Clone(),
		Paths:    make(map[string][]any),
		Assigned: make(map[string][]any),
	}
	f.Robots = rawCells(inst.Robots)
	f.Tasks = rawCells(inst.Tasks)
	for _, o := range inst.Moving {
		loop := o.Loop
		f.Moving = append(f.Moving, Forklift{Path: rawCells(o.Path), Loop: &loop})
	}

	if plan != nil {
		for _, a := range plan.Agents {
			key := a.Start.String()
			f.Paths[key] = rawCells(a.Path)
			if len(a.Assignment) > 0 {
				f.Assigned[key] = rawCells(core.Cells(a.Assignment))
			}
		}
	}
	return f
}

func rawCells(cells []core.Cell) []any {
	out := make([]any, len(cells))
	for i, c := range cells {
		out[i] = []int{c.Row, c.Col}
	}
	return out
}
