package sim

import "github.com/elektrokombinacija/warehouse-sim/internal/core"

// Snapshot is the per-frame output consumed by renderers.
type Snapshot struct {
	RunID          string             `json:"run_id"`
	State          PlaybackState      `json:"state"`
	Time           float64            `json:"time"`
	Speed          float64            `json:"speed"`
	Agents         []AgentSnapshot    `json:"agents"`
	Obstacles      []ObstacleSnapshot `json:"obstacles"`
	CompletedTasks []string           `json:"completed_tasks"`
}

// AgentSnapshot is one robot's published state.
type AgentSnapshot struct {
	ID       core.AgentID `json:"id"`
	Pos      core.Pos     `json:"pos"`
	Progress float64      `json:"progress"`
	Status   string       `json:"status"`
	Cursor   int          `json:"cursor"`
	Tasks    int          `json:"tasks"`
	PathLen  int          `json:"path_len"`
	// Stationary is set for robots without a usable path; Pos is the start cell.
	Stationary bool `json:"stationary,omitempty"`
}

// ObstacleSnapshot is one forklift's published state.
type ObstacleSnapshot struct {
	ID      int      `json:"id"`
	Pos     core.Pos `json:"pos"`
	Visible bool     `json:"visible"`
}

// Agent finds an agent snapshot by identity.
func (s Snapshot) Agent(id core.AgentID) (AgentSnapshot, bool) {
	for _, a := range s.Agents {
		if a.ID == id {
			return a, true
		}
	}
	return AgentSnapshot{}, false
}

// IsCompleted reports whether the task cell has been reached.
func (s Snapshot) IsCompleted(c core.Cell) bool {
	key := core.CellKey(c)
	for _, k := range s.CompletedTasks {
		if k == key {
			return true
		}
	}
	return false
}
