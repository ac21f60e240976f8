package core

// Instance is a generated warehouse map before planning.
type Instance struct {
	Grid   Grid
	Robots []Cell
	Tasks  []Cell
	Moving []Obstacle
}

// NewInstance creates an empty instance.
func NewInstance(height, width int) *Instance {
	return &Instance{
		Grid: NewGrid(height, width),
	}
}

// Validate checks that robots, tasks and forklift cells are on free cells.
func (inst *Instance) Validate() error {
	for _, c := range inst.Robots {
		if !inst.Grid.IsFree(c) {
			return &CellError{Kind: "robot", Cell: c}
		}
	}
	for _, c := range inst.Tasks {
		if !inst.Grid.IsFree(c) {
			return &CellError{Kind: "task", Cell: c}
		}
	}
	for _, o := range inst.Moving {
		for _, c := range o.Path {
			if !inst.Grid.IsFree(c) {
				return &CellError{Kind: "forklift", Cell: c}
			}
		}
	}
	return nil
}

// CellError reports an entity placed on a blocked or out-of-range cell.
type CellError struct {
	Kind string
	Cell Cell
}

func (e *CellError) Error() string {
	return e.Kind + " at " + e.Cell.String() + " is not on a free cell"
}
