// Package vis implements a Gio-based viewer for the warehouse simulation.
package vis

import (
	"image/color"

	"gioui.org/app"
	"gioui.org/io/event"
	"gioui.org/io/key"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/paint"
	"gioui.org/widget/material"

	"github.com/elektrokombinacija/warehouse-sim/internal/core"
	"github.com/elektrokombinacija/warehouse-sim/internal/sim"
	"github.com/elektrokombinacija/warehouse-sim/internal/vis/interact"
	"github.com/elektrokombinacija/warehouse-sim/internal/vis/state"
	"github.com/elektrokombinacija/warehouse-sim/internal/vis/widgets"
)

// App is the main visualization application.
type App struct {
	state     *state.State
	sched     *sim.FrameScheduler
	theme     *material.Theme
	workspace *widgets.Workspace
	timeline  *widgets.Timeline
	toolbar   *widgets.Toolbar
	agents    *widgets.AgentPanel
	camera    *interact.Camera
}

// NewApp creates the viewer for ctrl. ctrl must be driven by sched, and
// sched should invalidate w when it queues a tick.
func NewApp(w *app.Window, ctrl *sim.Controller, sched *sim.FrameScheduler) *App {
	th := material.NewTheme()
	st := state.NewState(ctrl, w.Invalidate)
	camera := interact.NewCamera()

	return &App{
		state:     st,
		sched:     sched,
		theme:     th,
		workspace: widgets.NewWorkspace(st, camera),
		timeline:  widgets.NewTimeline(st),
		toolbar:   widgets.NewToolbar(st),
		agents:    widgets.NewAgentPanel(st),
		camera:    camera,
	}
}

// Load shows a new plan.
func (a *App) Load(plan *core.Plan) {
	a.state.Load(plan)
	a.camera.Reset()
}

// Run starts the application event loop.
func (a *App) Run(w *app.Window) error {
	var ops op.Ops

	// Event filters for keyboard input
	tag := new(int)

	for {
		switch e := w.Event().(type) {
		case app.DestroyEvent:
			a.state.Controller.Clear()
			return e.Err

		case app.FrameEvent:
			// Advance the simulation before drawing it.
			a.sched.Fire(e.Now)

			gtx := app.NewContext(&ops, e)

			for {
				ev, ok := gtx.Event(key.Filter{Focus: tag, Optional: key.ModShift})
				if !ok {
					break
				}
				if ke, ok := ev.(key.Event); ok && ke.State == key.Press {
					a.handleKeyEvent(ke)
				}
			}

			// Request focus for keyboard input
			event.Op(gtx.Ops, tag)

			a.layout(gtx)
			e.Frame(gtx.Ops)

			if replanning(a.state.Snapshot()) {
				w.Invalidate()
			}
		}
	}
}

func replanning(snap sim.Snapshot) bool {
	for _, ag := range snap.Agents {
		if ag.Status == sim.StatusReplanning {
			return true
		}
	}
	return false
}

func (a *App) handleKeyEvent(e key.Event) {
	pb := a.state.Playback
	switch e.Name {
	case key.NameSpace:
		a.state.Report("play", pb.TogglePlay())
	case key.NameHome:
		a.state.Report("reset", pb.Reset())
	case key.NameEscape:
		a.state.ClearSelection()
	case "R":
		a.camera.Reset()
	case "+", "=":
		pb.SpeedUp()
	case "-":
		pb.SpeedDown()
	}
}

func (a *App) layout(gtx layout.Context) layout.Dimensions {
	paint.Fill(gtx.Ops, color.NRGBA{R: 30, G: 30, B: 35, A: 255})

	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return a.toolbar.Layout(gtx, a.theme)
		}),
		layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
			return layout.Flex{Axis: layout.Horizontal}.Layout(gtx,
				layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
					return a.workspace.Layout(gtx, a.theme)
				}),
				layout.Rigid(func(gtx layout.Context) layout.Dimensions {
					return a.agents.Layout(gtx, a.theme)
				}),
			)
		}),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return a.timeline.Layout(gtx, a.theme)
		}),
	)
}
