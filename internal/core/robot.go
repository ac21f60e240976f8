package core

import (
	"fmt"
	"sort"
)

// AgentID is the stable identity of a robot, derived from its start cell.
type AgentID string

// AgentIDFor returns the identity for a robot starting at c.
func AgentIDFor(c Cell) AgentID {
	return AgentID(CellKey(c))
}

// ParseAgentID resolves an identity key (for example "[3, 4]" or "3,4")
// back to the start cell.
func ParseAgentID(key string) (Cell, bool) {
	return ParseCell(key)
}

// AgentPlan is a robot's precomputed path and ordered task list.
type AgentPlan struct {
	ID         AgentID
	Start      Cell
	Path       Path
	Assignment []Assignment
}

// Position returns where the robot stands before moving.
func (a *AgentPlan) Position() Cell {
	if len(a.Path) > 0 {
		return a.Path[0]
	}
	return a.Start
}

// NewAgentPlan builds a plan keyed by the start cell. Assignments are
// ordered by their Order field.
func NewAgentPlan(start Cell, path Path, assignment []Assignment) AgentPlan {
	ordered := append([]Assignment(nil), assignment...)
	SortAssignments(ordered)
	return AgentPlan{
		ID:         AgentIDFor(start),
		Start:      start,
		Path:       path,
		Assignment: ordered,
	}
}

// SortedAgentIDs returns map keys in a deterministic order.
func SortedAgentIDs[V any](m map[AgentID]V) []AgentID {
	ids := make([]AgentID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (a AgentPlan) String() string {
	return fmt.Sprintf("agent %s: %d steps, %d tasks", a.ID, len(a.Path), len(a.Assignment))
}
