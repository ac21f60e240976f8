package sim

import "github.com/elektrokombinacija/warehouse-sim/internal/core"

// Observer receives controller output. Callbacks run on the goroutine that
// produced the event, after the controller lock is released.
type Observer interface {
	// OnFrame is called with the snapshot published after every tick and
	// after every control transition.
	OnFrame(snap Snapshot)

	// OnStateChange is called when the playback state changes.
	OnStateChange(from, to PlaybackState)

	// OnTaskCompleted is called once per completed assignment.
	OnTaskCompleted(agent core.AgentID, cell core.Cell)

	// OnReplan is called when a replan result is applied or discarded.
	OnReplan(agent core.AgentID, ok bool)
}

// ObserverFuncs adapts optional callbacks to Observer.
type ObserverFuncs struct {
	Frame  func(Snapshot)
	State  func(from, to PlaybackState)
	Task   func(core.AgentID, core.Cell)
	Replan func(core.AgentID, bool)
}

func (o ObserverFuncs) OnFrame(snap Snapshot) {
	if o.Frame != nil {
		o.Frame(snap)
	}
}

func (o ObserverFuncs) OnStateChange(from, to PlaybackState) {
	if o.State != nil {
		o.State(from, to)
	}
}

func (o ObserverFuncs) OnTaskCompleted(agent core.AgentID, cell core.Cell) {
	if o.Task != nil {
		o.Task(agent, cell)
	}
}

func (o ObserverFuncs) OnReplan(agent core.AgentID, ok bool) {
	if o.Replan != nil {
		o.Replan(agent, ok)
	}
}

// observerSet fans events out in registration order.
type observerSet []Observer

func (s observerSet) frame(snap Snapshot) {
	for _, o := range s {
		o.OnFrame(snap)
	}
}

func (s observerSet) state(from, to PlaybackState) {
	if from == to {
		return
	}
	for _, o := range s {
		o.OnStateChange(from, to)
	}
}

func (s observerSet) task(agent core.AgentID, cell core.Cell) {
	for _, o := range s {
		o.OnTaskCompleted(agent, cell)
	}
}

func (s observerSet) replan(agent core.AgentID, ok bool) {
	for _, o := range s {
		o.OnReplan(agent, ok)
	}
}
