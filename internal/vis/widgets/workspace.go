// Package widgets provides Gio UI widgets for the visualizer.
package widgets

import (
	"image"
	"image/color"

	"gioui.org/io/event"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/widget/material"

	"github.com/elektrokombinacija/warehouse-sim/internal/core"
	"github.com/elektrokombinacija/warehouse-sim/internal/vis/draw"
	"github.com/elektrokombinacija/warehouse-sim/internal/vis/interact"
	"github.com/elektrokombinacija/warehouse-sim/internal/vis/state"
)

// Workspace is the main grid view.
type Workspace struct {
	state  *state.State
	camera *interact.Camera

	// grid size the camera was last fitted to
	rows, cols int
}

// NewWorkspace creates a new workspace widget.
func NewWorkspace(st *state.State, camera *interact.Camera) *Workspace {
	return &Workspace{
		state:  st,
		camera: camera,
	}
}

// Layout renders the workspace.
func (w *Workspace) Layout(gtx layout.Context, th *material.Theme) layout.Dimensions {
	bounds := gtx.Constraints.Max
	defer clip.Rect(image.Rect(0, 0, bounds.X, bounds.Y)).Push(gtx.Ops).Pop()

	paint.Fill(gtx.Ops, color.NRGBA{R: 25, G: 28, B: 32, A: 255})

	plan := w.state.Plan()
	if plan.Empty() {
		return layout.Dimensions{Size: bounds}
	}

	if rows, cols := plan.Grid.Height(), plan.Grid.Width(); rows != w.rows || cols != w.cols {
		w.rows, w.cols = rows, cols
		w.camera.Fitted = false
	}
	if !w.camera.Fitted {
		w.camera.FitGrid(w.rows, w.cols, float32(bounds.X), float32(bounds.Y), 20)
	}

	w.handlePointerEvents(gtx)

	snap := w.state.Snapshot()
	selected, hasSelection := w.state.Selected()

	draw.DrawGrid(gtx, plan.Grid, w.camera)
	draw.DrawTasks(gtx, plan.TaskCells(), snap.IsCompleted, w.camera)

	for i, a := range plan.Agents {
		col := draw.RobotColor(i)
		draw.DrawPathTrail(gtx, w.state.PathHistory(a.ID), w.camera, col, 3)
		if !hasSelection || a.ID == selected {
			draw.DrawFuturePath(gtx, w.state.FuturePath(a.ID), w.camera, col)
		}
	}

	draw.DrawForklifts(gtx, snap.Obstacles, w.camera)
	draw.DrawRobots(gtx, snap, w.state.AgentIndex, w.camera, selected)
	draw.DrawReplanAlerts(gtx, snap, w.camera, gtx.Now)

	return layout.Dimensions{Size: bounds}
}

func (w *Workspace) handlePointerEvents(gtx layout.Context) {
	area := clip.Rect(image.Rect(0, 0, gtx.Constraints.Max.X, gtx.Constraints.Max.Y)).Push(gtx.Ops)
	event.Op(gtx.Ops, w)
	area.Pop()

	for {
		ev, ok := gtx.Event(pointer.Filter{
			Target:  w,
			Kinds:   pointer.Press | pointer.Drag | pointer.Release | pointer.Scroll,
			ScrollY: pointer.ScrollRange{Min: -100, Max: 100},
		})
		if !ok {
			break
		}
		pe, ok := ev.(pointer.Event)
		if !ok {
			continue
		}
		w.camera.HandleEvent(pe)
		if pe.Kind == pointer.Press && pe.Buttons.Contain(pointer.ButtonPrimary) {
			w.handleClick(pe.Position.X, pe.Position.Y)
		}
	}
}

func (w *Workspace) handleClick(screenX, screenY float32) {
	row, col := w.camera.ScreenToCell(screenX, screenY)
	if id, ok := w.state.AgentAt(core.Cell{Row: row, Col: col}); ok {
		w.state.Select(id)
		return
	}
	w.state.ClearSelection()
}
