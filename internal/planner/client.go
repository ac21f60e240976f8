// Package planner is the client for the external planning service that
// generates warehouse maps, assigns tasks, computes collision-free paths
// and replans single robots around forklifts.
package planner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/elektrokombinacija/warehouse-sim/internal/core"
	"github.com/elektrokombinacija/warehouse-sim/internal/logging"
	"github.com/elektrokombinacija/warehouse-sim/internal/sim"
)

// ErrPlanFailed is returned when the service answers with ok=false.
var ErrPlanFailed = errors.New("planner: planning failed")

// DefaultURL is where the service listens in a local setup.
const DefaultURL = "http://localhost:5001/api"

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration

	// Defaults to JSONCodec
	Codec Codec

	// Defaults to an http.Client with Timeout
	HTTPClient *http.Client

	Logger *logging.Logger

	// Path and assignment algorithms passed through to the service
	PathAlg   string
	Optimizer string
}

// DefaultConfig returns a local-service configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultURL,
		Timeout:   30 * time.Second,
		PathAlg:   "astar",
		Optimizer: "greedy",
	}
}

var _ sim.Replanner = (*Client)(nil)

// Client talks to the planning service.
type Client struct {
	cfg  Config
	http *http.Client
	log  *logging.Logger
}

// NewClient creates a client. Zero fields in cfg fall back to defaults.
func NewClient(cfg Config) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.PathAlg == "" {
		cfg.PathAlg = def.PathAlg
	}
	if cfg.Optimizer == "" {
		cfg.Optimizer = def.Optimizer
	}
	if cfg.Codec == nil {
		cfg.Codec = JSONCodec{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, http: hc, log: cfg.Logger}
}

// BaseURL returns the service root the client posts to.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

type forkliftJSON struct {
	Path []any `json:"path"`
	Loop *bool `json:"loop,omitempty"`
}

type statusJSON struct {
	OK     *bool  `json:"ok,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func (s statusJSON) err(endpoint string) error {
	if s.OK != nil && !*s.OK {
		reason := s.Reason
		if reason == "" {
			reason = "unknown"
		}
		return fmt.Errorf("%s: %w: %s", endpoint, ErrPlanFailed, reason)
	}
	return nil
}

// GenerateRequest sets map generation parameters. Nil fields let the service
// pick from its configured ranges.
type GenerateRequest struct {
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	NumRobots *int   `json:"num_robots,omitempty"`
	Moving    *int   `json:"moving,omitempty"`
	Seed      *int64 `json:"seed,omitempty"`
}

type generateResponse struct {
	statusJSON
	Grid   [][]int        `json:"grid"`
	Robots []any          `json:"robots"`
	Tasks  []any          `json:"tasks"`
	Moving []forkliftJSON `json:"moving"`
}

// GenerateMap asks the service for a new warehouse layout.
func (c *Client) GenerateMap(ctx context.Context, req GenerateRequest) (*core.Instance, error) {
	var resp generateResponse
	if err := c.post(ctx, "/generate_map", req, &resp); err != nil {
		return nil, err
	}
	if err := resp.err("generate_map"); err != nil {
		return nil, err
	}

	inst := &core.Instance{
		Grid:   core.Grid(resp.Grid),
		Robots: core.CleanPath(resp.Robots),
		Tasks:  core.CleanPath(resp.Tasks),
		Moving: obstaclesFromJSON(resp.Moving),
	}
	c.log.Infof("generated %dx%d map: %d robots, %d tasks, %d forklifts",
		inst.Grid.Height(), inst.Grid.Width(), len(inst.Robots), len(inst.Tasks), len(inst.Moving))
	return inst, nil
}

type planTasksRequest struct {
	Grid      [][]int `json:"grid"`
	Robots    [][]int `json:"robots"`
	Tasks     [][]int `json:"tasks"`
	Optimizer string  `json:"optimizer"`
	PathAlg   string  `json:"path_alg"`
}

type planTasksResponse struct {
	statusJSON
	Assigned map[string][]any `json:"assigned"`
}

// PlanTasks assigns the instance's tasks to its robots.
func (c *Client) PlanTasks(ctx context.Context, inst *core.Instance) (map[core.AgentID][]core.Assignment, error) {
	req := planTasksRequest{
		Grid:      inst.Grid,
		Robots:    cellsJSON(inst.Robots),
		Tasks:     cellsJSON(inst.Tasks),
		Optimizer: c.cfg.Optimizer,
		PathAlg:   c.cfg.PathAlg,
	}
	var resp planTasksResponse
	if err := c.post(ctx, "/plan_tasks", req, &resp); err != nil {
		return nil, err
	}
	if err := resp.err("plan_tasks"); err != nil {
		return nil, err
	}

	out := make(map[core.AgentID][]core.Assignment, len(resp.Assigned))
	for key, raw := range resp.Assigned {
		start, ok := core.ParseCell(key)
		if !ok {
			c.log.Warnf("plan_tasks: skipping robot key %q", key)
			continue
		}
		out[core.AgentIDFor(start)] = core.AssignmentsFromCells(core.CleanPath(raw))
	}
	return out, nil
}

type computePathsRequest struct {
	Grid       [][]int            `json:"grid"`
	Alg        string             `json:"alg"`
	RobotPlans map[string][][]int `json:"robot_plans"`
	Moving     []forkliftJSON     `json:"moving"`
}

type computePathsResponse struct {
	statusJSON
	Paths          map[string][]any `json:"paths"`
	ScheduledPaths map[string][]any `json:"scheduled_paths"`
}

// ComputePaths computes one path per robot visiting its assignments in
// order. Scheduled paths, which include start delays around forklifts, are
// preferred over raw paths.
func (c *Client) ComputePaths(ctx context.Context, inst *core.Instance, assignments map[core.AgentID][]core.Assignment) (map[core.AgentID]core.Path, error) {
	req := computePathsRequest{
		Grid:       inst.Grid,
		Alg:        c.cfg.PathAlg,
		RobotPlans: make(map[string][][]int, len(assignments)),
		Moving:     obstaclesJSON(inst.Moving),
	}
	for id, as := range assignments {
		start, ok := core.ParseAgentID(string(id))
		if !ok {
			continue
		}
		req.RobotPlans[start.String()] = cellsJSON(core.Cells(as))
	}

	var resp computePathsResponse
	if err := c.post(ctx, "/compute_paths", req, &resp); err != nil {
		return nil, err
	}
	if err := resp.err("compute_paths"); err != nil {
		return nil, err
	}

	raw := resp.ScheduledPaths
	if len(raw) == 0 {
		raw = resp.Paths
	}
	out := make(map[core.AgentID]core.Path, len(raw))
	for key, cells := range raw {
		start, ok := core.ParseCell(key)
		if !ok {
			c.log.Warnf("compute_paths: skipping robot key %q", key)
			continue
		}
		out[core.AgentIDFor(start)] = core.CleanPath(cells)
	}
	return out, nil
}

// BuildPlan assigns tasks and computes paths for inst.
func (c *Client) BuildPlan(ctx context.Context, inst *core.Instance) (*core.Plan, error) {
	assignments, err := c.PlanTasks(ctx, inst)
	if err != nil {
		return nil, err
	}
	paths, err := c.ComputePaths(ctx, inst, assignments)
	if err != nil {
		return nil, err
	}
	// Robots the service left out still appear as stationary agents.
	for _, r := range inst.Robots {
		if _, ok := paths[core.AgentIDFor(r)]; !ok {
			paths[core.AgentIDFor(r)] = nil
		}
	}
	return core.NewPlan(inst.Grid, paths, assignments, inst.Moving), nil
}

type replanRequest struct {
	Grid           [][]int        `json:"grid"`
	Start          []int          `json:"start"`
	TasksRemaining [][]int        `json:"tasks_remaining"`
	Moving         []forkliftJSON `json:"moving"`
	CurrentTime    int            `json:"current_time"`
}

type replanResponse struct {
	statusJSON
	Path []any `json:"path"`
}

// Replan implements sim.Replanner over POST /replan.
func (c *Client) Replan(ctx context.Context, req sim.ReplanRequest) (core.Path, error) {
	body := replanRequest{
		Grid:           req.Grid,
		Start:          []int{req.Start.Row, req.Start.Col},
		TasksRemaining: cellsJSON(req.Remaining),
		Moving:         obstaclesJSON(req.Obstacles),
		CurrentTime:    req.CurrentTime,
	}
	var resp replanResponse
	if err := c.post(ctx, "/replan", body, &resp); err != nil {
		return nil, err
	}
	if err := resp.err("replan"); err != nil {
		return nil, err
	}
	return core.CleanPath(resp.Path), nil
}

func (c *Client) post(ctx context.Context, endpoint string, in, out any) error {
	body, err := c.cfg.Codec.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: encode: %w", endpoint, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", c.cfg.Codec.ContentType())
	httpReq.Header.Set("Accept", c.cfg.Codec.ContentType())

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read body: %w", endpoint, err)
	}
	c.log.Debugf("POST %s -> %d (%d bytes, %s)", endpoint, resp.StatusCode, len(data), time.Since(start).Round(time.Millisecond))

	if resp.StatusCode != http.StatusOK {
		// Failed plans may still carry {ok:false, reason}.
		var st statusJSON
		if c.cfg.Codec.Unmarshal(data, &st) == nil {
			if err := st.err(strings.TrimPrefix(endpoint, "/")); err != nil {
				return err
			}
		}
		return fmt.Errorf("%s: unexpected status %s", endpoint, resp.Status)
	}
	if err := c.cfg.Codec.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode: %w", endpoint, err)
	}
	return nil
}

func cellsJSON(cells []core.Cell) [][]int {
	out := make([][]int, len(cells))
	for i, c := range cells {
		out[i] = []int{c.Row, c.Col}
	}
	return out
}

func obstaclesJSON(obs []core.Obstacle) []forkliftJSON {
	out := make([]forkliftJSON, len(obs))
	for i, o := range obs {
		loop := o.Loop
		path := make([]any, len(o.Path))
		for k, c := range o.Path {
			path[k] = []int{c.Row, c.Col}
		}
		out[i] = forkliftJSON{Path: path, Loop: &loop}
	}
	return out
}

func obstaclesFromJSON(in []forkliftJSON) []core.Obstacle {
	out := make([]core.Obstacle, 0, len(in))
	for i, f := range in {
		loop := f.Loop == nil || *f.Loop
		out = append(out, core.Obstacle{ID: i, Path: core.CleanPath(f.Path), Loop: loop})
	}
	return out
}
