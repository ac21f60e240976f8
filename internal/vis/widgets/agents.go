package widgets

import (
	"fmt"
	"image"
	"image/color"

	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"

	"github.com/elektrokombinacija/warehouse-sim/internal/core"
	"github.com/elektrokombinacija/warehouse-sim/internal/sim"
	"github.com/elektrokombinacija/warehouse-sim/internal/vis/draw"
	"github.com/elektrokombinacija/warehouse-sim/internal/vis/state"
)

// AgentPanel lists robots with their status and the recent activity log.
type AgentPanel struct {
	state *state.State
	list  layout.List
	rows  map[core.AgentID]*widget.Clickable
}

// NewAgentPanel creates the side panel.
func NewAgentPanel(st *state.State) *AgentPanel {
	return &AgentPanel{
		state: st,
		list:  layout.List{Axis: layout.Vertical},
		rows:  make(map[core.AgentID]*widget.Clickable),
	}
}

var (
	ColorPanelText  = color.NRGBA{R: 200, G: 200, B: 200, A: 255}
	ColorPanelMuted = color.NRGBA{R: 150, G: 150, B: 150, A: 255}
	ColorRowActive  = color.NRGBA{R: 60, G: 70, B: 90, A: 255}
)

// Layout renders the panel.
func (p *AgentPanel) Layout(gtx layout.Context, th *material.Theme) layout.Dimensions {
	width := gtx.Dp(unit.Dp(260))
	height := gtx.Constraints.Max.Y
	gtx.Constraints = layout.Exact(image.Point{X: width, Y: height})

	rect := image.Rect(0, 0, width, height)
	paint.FillShape(gtx.Ops, color.NRGBA{R: 35, G: 38, B: 42, A: 255}, clip.Rect(rect).Op())

	snap := p.state.Snapshot()
	p.handleClicks(gtx)
	selected, _ := p.state.Selected()

	return layout.UniformInset(unit.Dp(10)).Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				label := material.Label(th, 14, fmt.Sprintf("Robots (%d)", len(snap.Agents)))
				label.Color = ColorPanelText
				return label.Layout(gtx)
			}),
			layout.Rigid(layout.Spacer{Height: unit.Dp(6)}.Layout),
			layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
				return p.list.Layout(gtx, len(snap.Agents), func(gtx layout.Context, i int) layout.Dimensions {
					a := snap.Agents[i]
					return p.layoutRow(gtx, th, a, a.ID == selected)
				})
			}),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				return p.layoutEvents(gtx, th)
			}),
		)
	})
}

func (p *AgentPanel) row(id core.AgentID) *widget.Clickable {
	btn, ok := p.rows[id]
	if !ok {
		btn = new(widget.Clickable)
		p.rows[id] = btn
	}
	return btn
}

func (p *AgentPanel) handleClicks(gtx layout.Context) {
	for id, btn := range p.rows {
		for btn.Clicked(gtx) {
			p.state.Select(id)
		}
	}
}

func (p *AgentPanel) layoutRow(gtx layout.Context, th *material.Theme, a sim.AgentSnapshot, selected bool) layout.Dimensions {
	btn := p.row(a.ID)
	return btn.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Background{}.Layout(gtx,
			func(gtx layout.Context) layout.Dimensions {
				sz := gtx.Constraints.Min
				if selected || btn.Hovered() {
					paint.FillShape(gtx.Ops, ColorRowActive, clip.Rect(image.Rectangle{Max: sz}).Op())
				}
				return layout.Dimensions{Size: sz}
			},
			func(gtx layout.Context) layout.Dimensions {
				gtx.Constraints.Min.X = gtx.Constraints.Max.X
				return layout.Inset{Top: unit.Dp(3), Bottom: unit.Dp(3), Left: unit.Dp(4)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
					return layout.Flex{Axis: layout.Horizontal, Alignment: layout.Middle}.Layout(gtx,
						layout.Rigid(func(gtx layout.Context) layout.Dimensions {
							s := gtx.Dp(unit.Dp(10))
							col := draw.RobotColor(p.state.AgentIndex(a.ID))
							paint.FillShape(gtx.Ops, col, clip.Rect(image.Rect(0, 0, s, s)).Op())
							return layout.Dimensions{Size: image.Point{X: s, Y: s}}
						}),
						layout.Rigid(layout.Spacer{Width: unit.Dp(6)}.Layout),
						layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
							label := material.Label(th, 12, fmt.Sprintf("%s  %s", a.ID, a.Status))
							label.Color = ColorPanelText
							return label.Layout(gtx)
						}),
						layout.Rigid(func(gtx layout.Context) layout.Dimensions {
							label := material.Label(th, 11, fmt.Sprintf("%d/%d", a.Cursor, a.Tasks))
							label.Color = ColorPanelMuted
							return label.Layout(gtx)
						}),
					)
				})
			},
		)
	})
}

func (p *AgentPanel) layoutEvents(gtx layout.Context, th *material.Theme) layout.Dimensions {
	events := p.state.Events()
	children := make([]layout.FlexChild, 0, len(events)+1)
	children = append(children, layout.Rigid(func(gtx layout.Context) layout.Dimensions {
		label := material.Label(th, 13, "Activity")
		label.Color = ColorPanelText
		return layout.Inset{Top: unit.Dp(8), Bottom: unit.Dp(4)}.Layout(gtx, label.Layout)
	}))
	for _, ev := range events {
		label := material.Label(th, 11, ev)
		label.Color = ColorPanelMuted
		children = append(children, layout.Rigid(label.Layout))
	}
	return layout.Flex{Axis: layout.Vertical}.Layout(gtx, children...)
}
