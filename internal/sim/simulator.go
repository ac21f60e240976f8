package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/elektrokombinacija/warehouse-sim/internal/core"
	"github.com/elektrokombinacija/warehouse-sim/internal/logging"
)

// Config configures a Controller.
type Config struct {
	// Playback speed in cells per second
	Speed float64

	// Frame interval used when Scheduler is nil
	FrameInterval time.Duration

	// Whether one-shot forklifts hold back completion
	ObstaclePolicy ObstaclePolicy

	// Request a replan when a forklift is about to occupy a robot's next cell
	AutoReplan bool

	// Frame source; defaults to a TimerScheduler
	Scheduler Scheduler

	// Replanning collaborator; optional
	Replanner Replanner

	// Logger; defaults to logging.Default()
	Logger *logging.Logger

	// Clock; defaults to time.Now
	Now func() time.Time
}

// DefaultConfig returns default controller configuration.
func DefaultConfig() Config {
	return Config{
		Speed:          DefaultSpeed,
		FrameInterval:  16 * time.Millisecond,
		ObstaclePolicy: ObstaclesIgnore,
	}
}

// Metrics collects counters over the current run.
type Metrics struct {
	RunID           string    `json:"run_id"`
	StartedAt       time.Time `json:"started_at"`
	CompletedAt     time.Time `json:"completed_at"`
	SimulatedTime   float64   `json:"simulated_time"`
	Frames          int       `json:"frames"`
	TasksAssigned   int       `json:"tasks_assigned"`
	TasksCompleted  int       `json:"tasks_completed"`
	ReplanRequests  int       `json:"replan_requests"`
	ReplanSuccesses int       `json:"replan_successes"`
	ReplanFailures  int       `json:"replan_failures"`
	StaleReplans    int       `json:"stale_replans"`
}

// agentChannel is one robot's mutable playback state.
type agentChannel struct {
	plan       core.AgentPlan
	stepIndex  []int
	cursor     int
	progress   float64
	replanning bool
	// step index at which the last automatic replan fired
	autoStep int
}

// Controller is the playback state machine. All simulation state is owned
// here and only mutated under mu, inside a tick or a control call.
type Controller struct {
	mu sync.Mutex

	cfg Config
	log *logging.Logger

	state     PlaybackState
	runID     string
	grid      core.Grid
	agents    []*agentChannel
	index     map[core.AgentID]int
	obstacles []core.Obstacle
	clock     float64
	speed     float64
	completed map[string]struct{}

	// frame chain
	handle   Handle
	gen      uint64
	lastTick time.Time

	// bumped by Load/Reset/Clear so late replan results can be dropped
	epoch   uint64
	results []replanOutcome

	observers observerSet
	metrics   Metrics
}

// NewController creates an idle controller.
func NewController(cfg Config) *Controller {
	if cfg.Scheduler == nil {
		cfg.Scheduler = NewTimerScheduler(cfg.FrameInterval)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Speed == 0 {
		cfg.Speed = DefaultSpeed
	}

	return &Controller{
		cfg:       cfg,
		log:       cfg.Logger,
		state:     Idle,
		speed:     ClampSpeed(cfg.Speed),
		index:     make(map[core.AgentID]int),
		completed: make(map[string]struct{}),
	}
}

// AddObserver registers o for all subsequent events.
func (c *Controller) AddObserver(o Observer) {
	c.mu.Lock()
	c.observers = append(c.observers, o)
	c.mu.Unlock()
}

// Load installs a new plan, resets the clock and completed set, and moves
// to Ready. An empty plan leaves the controller Idle. Valid from any state.
func (c *Controller) Load(plan *core.Plan) {
	c.mu.Lock()
	from := c.state
	c.cancelLocked()
	c.epoch++
	c.results = nil
	c.agents = nil
	c.index = make(map[core.AgentID]int)
	c.obstacles = nil
	c.grid = nil

	if !plan.Empty() {
		c.grid = plan.Grid.Clone()
		for i, ap := range plan.Agents {
			ap.Path = ap.Path.Clone()
			ap.Assignment = append([]core.Assignment(nil), ap.Assignment...)
			c.agents = append(c.agents, &agentChannel{
				plan:      ap,
				stepIndex: StepIndices(ap.Path, ap.Assignment, 0),
				autoStep:  -1,
			})
			c.index[ap.ID] = i
		}
		for _, o := range plan.Obstacles {
			o.Path = o.Path.Clone()
			c.obstacles = append(c.obstacles, o)
		}
	}

	c.resetLocked()
	if plan.Empty() {
		c.state = Idle
	} else {
		c.state = Ready
	}
	c.log.Infof("loaded run %s: %d agents, %d forklifts", c.runID, len(c.agents), len(c.obstacles))
	snap, obs := c.snapshotLocked(), c.observers
	to := c.state
	c.mu.Unlock()

	obs.state(from, to)
	obs.frame(snap)
}

// Clear drops the loaded plan and returns to Idle.
func (c *Controller) Clear() {
	c.Load(nil)
}

// Play starts or resumes playback. Valid from Ready or Paused; a call while
// Running is a no-op.
func (c *Controller) Play() error {
	c.mu.Lock()
	switch c.state {
	case Running:
		c.mu.Unlock()
		return nil
	case Idle:
		c.mu.Unlock()
		return ErrNoPaths
	case Completed:
		c.mu.Unlock()
		return fmt.Errorf("play from %s: %w", Completed, ErrInvalidTransition)
	}

	from := c.state
	c.cancelLocked()
	c.state = Running
	c.lastTick = c.cfg.Now()
	if from == Ready {
		c.metrics.StartedAt = c.lastTick
	}
	c.scheduleLocked()
	c.log.Debugf("run %s: %s -> %s at t=%.2f", c.runID, from, Running, c.clock)
	snap, obs := c.snapshotLocked(), c.observers
	c.mu.Unlock()

	obs.state(from, Running)
	obs.frame(snap)
	return nil
}

// Pause freezes the clock and every progress value. Valid from Running; a
// call while Paused is a no-op.
func (c *Controller) Pause() error {
	c.mu.Lock()
	switch c.state {
	case Paused:
		c.mu.Unlock()
		return nil
	case Idle:
		c.mu.Unlock()
		return ErrNoPaths
	case Running:
	default:
		from := c.state
		c.mu.Unlock()
		return fmt.Errorf("pause from %s: %w", from, ErrInvalidTransition)
	}

	c.cancelLocked()
	c.state = Paused
	c.log.Debugf("run %s: %s -> %s at t=%.2f", c.runID, Running, Paused, c.clock)
	snap, obs := c.snapshotLocked(), c.observers
	c.mu.Unlock()

	obs.state(Running, Paused)
	obs.frame(snap)
	return nil
}

// Reset rewinds the run without discarding the loaded plan.
func (c *Controller) Reset() error {
	c.mu.Lock()
	if c.state == Idle {
		c.mu.Unlock()
		return ErrNoPaths
	}

	from := c.state
	c.cancelLocked()
	c.epoch++
	c.results = nil
	c.resetLocked()
	c.state = Ready
	c.log.Debugf("run %s: reset from %s", c.runID, from)
	snap, obs := c.snapshotLocked(), c.observers
	c.mu.Unlock()

	obs.state(from, Ready)
	obs.frame(snap)
	return nil
}

// SetSpeed changes playback speed; it takes effect on the next tick.
func (c *Controller) SetSpeed(speed float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.speed = ClampSpeed(speed)
	return c.speed
}

// Speed returns the current playback speed.
func (c *Controller) Speed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed
}

// State returns the playback state.
func (c *Controller) State() PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Time returns the global simulated time.
func (c *Controller) Time() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clock
}

// Snapshot returns the current published view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Progress returns an agent's progress cursor.
func (c *Controller) Progress(id core.AgentID) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.index[id]
	if !ok {
		return 0, false
	}
	return c.agents[i].progress, true
}

// Plan returns a copy of the loaded plan with any spliced paths applied.
func (c *Controller) Plan() *core.Plan {
	c.mu.Lock()
	defer c.mu.Unlock()
	plan := &core.Plan{Grid: c.grid.Clone()}
	for _, a := range c.agents {
		ap := a.plan
		ap.Path = ap.Path.Clone()
		ap.Assignment = append([]core.Assignment(nil), ap.Assignment...)
		plan.Agents = append(plan.Agents, ap)
	}
	for _, o := range c.obstacles {
		o.Path = o.Path.Clone()
		plan.Obstacles = append(plan.Obstacles, o)
	}
	return plan
}

// Metrics returns current run metrics.
func (c *Controller) Metrics() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := c.metrics
	m.SimulatedTime = c.clock
	return m
}

// ExportMetrics writes metrics to a JSON file.
func (c *Controller) ExportMetrics(path string) error {
	data, err := json.MarshalIndent(c.Metrics(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// RequestReplan asks the replanning collaborator for a new path for id,
// starting at the robot's current step. The call returns immediately; the
// result is spliced in before a later tick. A second request while one is
// in flight is a no-op. A completed run must be reset before replanning.
func (c *Controller) RequestReplan(ctx context.Context, id core.AgentID) error {
	c.mu.Lock()
	if c.cfg.Replanner == nil {
		c.mu.Unlock()
		return ErrNoReplanner
	}
	i, ok := c.index[id]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("replan %s: %w", id, ErrUnknownAgent)
	}
	if c.state == Completed {
		c.mu.Unlock()
		return fmt.Errorf("replan %s after completion: %w", id, ErrInvalidTransition)
	}
	a := c.agents[i]
	if a.replanning {
		c.mu.Unlock()
		return nil
	}
	req := c.beginReplanLocked(i)
	epoch := c.epoch
	snap, obs := c.snapshotLocked(), c.observers
	c.mu.Unlock()

	obs.frame(snap)
	go c.runReplan(ctx, epoch, i, req)
	return nil
}

// beginReplanLocked marks agent i as replanning and builds its request.
func (c *Controller) beginReplanLocked(i int) ReplanRequest {
	a := c.agents[i]
	step := StepAt(a.plan.Path, a.progress)
	start := a.plan.Start
	if len(a.plan.Path) > 0 {
		start = a.plan.Path[step]
	}

	obstacles := make([]core.Obstacle, len(c.obstacles))
	for k, o := range c.obstacles {
		o.Path = o.Path.Clone()
		obstacles[k] = o
	}

	a.replanning = true
	c.metrics.ReplanRequests++
	req := ReplanRequest{
		ID:          uuid.New().String(),
		Agent:       a.plan.ID,
		Grid:        c.grid.Clone(),
		Start:       start,
		Remaining:   core.Cells(a.plan.Assignment[a.cursor:]),
		Obstacles:   obstacles,
		CurrentTime: int(math.Floor(c.clock)),
		StepIndex:   step,
	}
	c.log.Debugf("replan %s requested for %s at step %d", req.ID[:8], req.Agent, step)
	return req
}

func (c *Controller) runReplan(ctx context.Context, epoch uint64, i int, req ReplanRequest) {
	path, err := c.cfg.Replanner.Replan(ctx, req)
	if err != nil {
		c.log.Warnf("replan %s for %s failed: %v", req.ID[:8], req.Agent, err)
	}

	c.mu.Lock()
	if epoch != c.epoch {
		c.metrics.StaleReplans++
		c.log.Debugf("dropping replan %s for %s from a previous run", req.ID[:8], req.Agent)
		c.mu.Unlock()
		return
	}
	c.results = append(c.results, replanOutcome{agent: i, req: req, path: path, err: err})

	// With no frame chain active the result is applied now.
	if c.state == Running {
		c.mu.Unlock()
		return
	}
	applied := c.applyReplansLocked()
	snap, obs := c.snapshotLocked(), c.observers
	c.mu.Unlock()

	for _, ev := range applied {
		obs.replan(ev.agent, ev.ok)
	}
	obs.frame(snap)
}

type replanEvent struct {
	agent core.AgentID
	ok    bool
}

// applyReplansLocked splices every queued result into its agent's path.
func (c *Controller) applyReplansLocked() []replanEvent {
	if len(c.results) == 0 {
		return nil
	}
	var events []replanEvent
	for _, r := range c.results {
		a := c.agents[r.agent]
		a.replanning = false
		if r.err != nil || len(r.path) == 0 {
			c.metrics.ReplanFailures++
			events = append(events, replanEvent{agent: a.plan.ID, ok: false})
			continue
		}

		a.plan.Path = Splice(a.plan.Path, r.req.StepIndex, r.path)
		for k := a.cursor; k < len(a.plan.Assignment); k++ {
			a.stepIndex[k] = a.plan.Path.Index(a.plan.Assignment[k].Cell, r.req.StepIndex)
		}
		c.metrics.ReplanSuccesses++
		events = append(events, replanEvent{agent: a.plan.ID, ok: true})
		c.log.Debugf("replan %s applied to %s: %d steps", r.req.ID[:8], a.plan.ID, len(a.plan.Path))
	}
	c.results = nil
	return events
}

type taskEvent struct {
	agent core.AgentID
	cell  core.Cell
}

// tick is one frame. gen ties it to the chain that scheduled it.
func (c *Controller) tick(gen uint64, now time.Time) {
	c.mu.Lock()
	if gen != c.gen || c.state != Running {
		c.mu.Unlock()
		return
	}
	c.handle = nil

	replans := c.applyReplansLocked()

	dt := now.Sub(c.lastTick).Seconds()
	if dt < 0 {
		dt = 0
	}
	c.lastTick = now
	speed := c.speed
	c.clock += dt * math.Max(speed, MinSpeed)

	var tasks []taskEvent
	for _, a := range c.agents {
		if len(a.plan.Path) == 0 {
			continue
		}
		a.progress = Advance(a.progress, dt, speed, len(a.plan.Path))

		var done []core.Cell
		a.cursor, done = CheckCompletions(a.plan.Assignment, a.stepIndex, a.cursor, a.progress)
		for _, cell := range done {
			c.completed[core.CellKey(cell)] = struct{}{}
			c.metrics.TasksCompleted++
			tasks = append(tasks, taskEvent{agent: a.plan.ID, cell: cell})
		}
	}

	var requests []ReplanRequest
	var requestAgents []int
	if c.cfg.AutoReplan && c.cfg.Replanner != nil {
		for _, i := range c.blockedAgentsLocked() {
			requests = append(requests, c.beginReplanLocked(i))
			requestAgents = append(requestAgents, i)
		}
	}

	c.metrics.Frames++
	finished := c.finishedLocked()
	if finished {
		c.cancelLocked()
		c.state = Completed
		c.metrics.CompletedAt = now
		c.log.Infof("run %s completed at t=%.2f (%d tasks)", c.runID, c.clock, len(c.completed))
	}
	epoch := c.epoch
	snap, obs := c.snapshotLocked(), c.observers
	c.mu.Unlock()

	for k, req := range requests {
		go c.runReplan(context.Background(), epoch, requestAgents[k], req)
	}
	for _, ev := range replans {
		obs.replan(ev.agent, ev.ok)
	}
	for _, ev := range tasks {
		obs.task(ev.agent, ev.cell)
	}
	if finished {
		obs.state(Running, Completed)
	}
	obs.frame(snap)
	if finished {
		return
	}

	c.mu.Lock()
	if gen == c.gen && c.state == Running && c.handle == nil {
		c.scheduleLocked()
	}
	c.mu.Unlock()
}

// blockedAgentsLocked returns agents whose next cell a forklift will hold at
// the next integer time. Each agent fires at most once per step index.
func (c *Controller) blockedAgentsLocked() []int {
	if len(c.obstacles) == 0 {
		return nil
	}
	next := int(math.Floor(c.clock)) + 1
	var out []int
	for i, a := range c.agents {
		if a.replanning || len(a.plan.Path) < 2 {
			continue
		}
		step := StepAt(a.plan.Path, a.progress)
		if step+1 >= len(a.plan.Path) || step == a.autoStep {
			continue
		}
		target := a.plan.Path[step+1]
		for _, o := range c.obstacles {
			if cell, ok := ObstacleCellAt(o.Path, o.Loop, next); ok && cell == target {
				a.autoStep = step
				out = append(out, i)
				break
			}
		}
	}
	return out
}

func (c *Controller) finishedLocked() bool {
	for _, a := range c.agents {
		if a.replanning {
			return false
		}
		if n := len(a.plan.Path); n > 0 && a.progress < float64(n-1) {
			return false
		}
	}
	if c.cfg.ObstaclePolicy == ObstaclesGate {
		for _, o := range c.obstacles {
			if !o.Loop && len(o.Path) > 1 && c.clock < float64(len(o.Path)-1) {
				return false
			}
		}
	}
	return true
}

func (c *Controller) scheduleLocked() {
	gen := c.gen
	c.handle = c.cfg.Scheduler.Schedule(func(now time.Time) {
		c.tick(gen, now)
	})
}

// cancelLocked drops the pending tick and invalidates any tick in flight.
func (c *Controller) cancelLocked() {
	if c.handle != nil {
		c.handle.Cancel()
		c.handle = nil
	}
	c.gen++
}

// resetLocked zeroes clock, progress, cursors and the completed set.
func (c *Controller) resetLocked() {
	c.clock = 0
	c.completed = make(map[string]struct{})
	tasks := 0
	for _, a := range c.agents {
		a.progress = 0
		a.cursor = 0
		a.replanning = false
		a.autoStep = -1
		tasks += len(a.plan.Assignment)
	}
	c.runID = uuid.New().String()
	c.metrics = Metrics{RunID: c.runID, TasksAssigned: tasks}
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		RunID:          c.runID,
		State:          c.state,
		Time:           c.clock,
		Speed:          c.speed,
		Agents:         make([]AgentSnapshot, len(c.agents)),
		Obstacles:      make([]ObstacleSnapshot, len(c.obstacles)),
		CompletedTasks: make([]string, 0, len(c.completed)),
	}

	for i, a := range c.agents {
		as := AgentSnapshot{
			ID:       a.plan.ID,
			Progress: a.progress,
			Status:   agentStatus(a),
			Cursor:   a.cursor,
			Tasks:    len(a.plan.Assignment),
			PathLen:  len(a.plan.Path),
		}
		if pos, ok := Sample(a.plan.Path, a.progress); ok {
			as.Pos = pos
		} else {
			as.Pos = a.plan.Start.Pos()
			as.Stationary = true
		}
		snap.Agents[i] = as
	}

	for i, o := range c.obstacles {
		pos, ok := ObstaclePositionAt(o.Path, o.Loop, c.clock)
		snap.Obstacles[i] = ObstacleSnapshot{ID: o.ID, Pos: pos, Visible: ok}
	}

	for key := range c.completed {
		snap.CompletedTasks = append(snap.CompletedTasks, key)
	}
	sort.Strings(snap.CompletedTasks)
	return snap
}

func agentStatus(a *agentChannel) string {
	switch {
	case a.replanning:
		return StatusReplanning
	case a.cursor >= len(a.plan.Assignment):
		return StatusCompleted
	default:
		return StatusEnRoute
	}
}
