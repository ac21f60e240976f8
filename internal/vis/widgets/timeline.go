package widgets

import (
	"fmt"
	"image"
	"image/color"

	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget/material"

	"github.com/elektrokombinacija/warehouse-sim/internal/sim"
	"github.com/elektrokombinacija/warehouse-sim/internal/vis/state"
)

// Timeline shows clock progress against makespan plus run status.
type Timeline struct {
	state *state.State
}

// NewTimeline creates a new timeline widget.
func NewTimeline(st *state.State) *Timeline {
	return &Timeline{
		state: st,
	}
}

var stateColors = map[sim.PlaybackState]color.NRGBA{
	sim.Idle:      {R: 150, G: 150, B: 150, A: 255},
	sim.Ready:     {R: 150, G: 180, B: 200, A: 255},
	sim.Running:   {R: 100, G: 200, B: 120, A: 255},
	sim.Paused:    {R: 230, G: 190, B: 60, A: 255},
	sim.Completed: {R: 100, G: 180, B: 255, A: 255},
}

// Layout renders the timeline.
func (t *Timeline) Layout(gtx layout.Context, th *material.Theme) layout.Dimensions {
	height := 60

	rect := image.Rect(0, 0, gtx.Constraints.Max.X, height)
	paint.FillShape(gtx.Ops, color.NRGBA{R: 35, G: 38, B: 42, A: 255}, clip.Rect(rect).Op())

	margin := 20
	trackY := height * 2 / 3
	trackHeight := 6
	trackWidth := gtx.Constraints.Max.X - 2*margin

	trackRect := image.Rect(margin, trackY-trackHeight/2, margin+trackWidth, trackY+trackHeight/2)
	paint.FillShape(gtx.Ops, color.NRGBA{R: 60, G: 65, B: 70, A: 255}, clip.Rect(trackRect).Op())

	snap := t.state.Snapshot()
	makespan := t.state.Makespan()
	fillWidth := int(float64(trackWidth) * t.state.Playback.Progress(makespan))
	if fillWidth > 0 {
		fillRect := image.Rect(margin, trackY-trackHeight/2, margin+fillWidth, trackY+trackHeight/2)
		paint.FillShape(gtx.Ops, color.NRGBA{R: 100, G: 180, B: 255, A: 255}, clip.Rect(fillRect).Op())
	}

	t.drawLabels(gtx, th, snap, makespan)

	return layout.Dimensions{Size: image.Point{X: gtx.Constraints.Max.X, Y: height}}
}

func (t *Timeline) drawLabels(gtx layout.Context, th *material.Theme, snap sim.Snapshot, makespan float64) {
	timeLabel := material.Label(th, 12, fmt.Sprintf("t=%.1f / %.0f", snap.Time, makespan))
	timeLabel.Color = color.NRGBA{R: 200, G: 200, B: 200, A: 255}

	stateLabel := material.Label(th, 12, snap.State.String())
	stateLabel.Color = stateColors[snap.State]

	tasks := 0
	for _, a := range snap.Agents {
		tasks += a.Tasks
	}
	tasksLabel := material.Label(th, 12, fmt.Sprintf("tasks %d/%d", len(snap.CompletedTasks), tasks))
	tasksLabel.Color = color.NRGBA{R: 150, G: 150, B: 150, A: 255}

	speedLabel := material.Label(th, 12, fmt.Sprintf("%.1f cells/s", snap.Speed))
	speedLabel.Color = color.NRGBA{R: 150, G: 180, B: 200, A: 255}

	layout.Inset{Top: unit.Dp(4), Left: unit.Dp(20), Right: unit.Dp(20)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Flex{Axis: layout.Horizontal, Spacing: layout.SpaceBetween}.Layout(gtx,
			layout.Rigid(timeLabel.Layout),
			layout.Rigid(stateLabel.Layout),
			layout.Rigid(tasksLabel.Layout),
			layout.Rigid(speedLabel.Layout),
		)
	})
}
