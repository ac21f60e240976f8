package draw

import (
	"image/color"

	"gioui.org/f32"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"

	"github.com/elektrokombinacija/warehouse-sim/internal/core"
	"github.com/elektrokombinacija/warehouse-sim/internal/sim"
	"github.com/elektrokombinacija/warehouse-sim/internal/vis/interact"
)

// Robot colors, picked by plan order.
var robotPalette = []color.NRGBA{
	{R: 100, G: 200, B: 255, A: 255},
	{R: 200, G: 100, B: 255, A: 255},
	{R: 120, G: 220, B: 140, A: 255},
	{R: 255, G: 120, B: 160, A: 255},
	{R: 90, G: 140, B: 255, A: 255},
	{R: 240, G: 220, B: 100, A: 255},
	{R: 100, G: 230, B: 210, A: 255},
	{R: 220, G: 160, B: 120, A: 255},
}

var (
	ColorRobotSelected   = color.NRGBA{R: 255, G: 255, B: 100, A: 255}
	ColorRobotStationary = color.NRGBA{R: 130, G: 135, B: 145, A: 255}
	ColorForklift        = color.NRGBA{R: 255, G: 150, B: 60, A: 255}
)

// RobotColor returns the color for the i-th robot of a plan.
func RobotColor(i int) color.NRGBA {
	if i < 0 {
		i = -i
	}
	return robotPalette[i%len(robotPalette)]
}

// DrawRobot draws a robot as a square at its interpolated position.
func DrawRobot(gtx layout.Context, agent sim.AgentSnapshot, col color.NRGBA, camera *interact.Camera, selected bool) {
	x, y := camera.CellToScreen(agent.Pos.Row, agent.Pos.Col)
	size := float32(interact.CellSize) * 0.6 * camera.Zoom

	if agent.Stationary {
		col = ColorRobotStationary
	}
	if selected {
		drawSquare(gtx, x, y, size+4*camera.Zoom, ColorRobotSelected)
	}
	drawSquare(gtx, x, y, size, col)

	// Remaining tasks as a bar under the body.
	if agent.Tasks > 0 {
		done := float32(agent.Cursor) / float32(agent.Tasks)
		barY := y + size/2 + 3*camera.Zoom
		drawRectangle(gtx, x, barY, size, 2*camera.Zoom, ColorGridLine)
		w := size * done
		drawRectangle(gtx, x-size/2+w/2, barY, w, 2*camera.Zoom, ColorTaskCompleted)
	}
}

// DrawRobots draws every robot in the snapshot. index gives plan order for colouring.
func DrawRobots(gtx layout.Context, snap sim.Snapshot, index func(core.AgentID) int, camera *interact.Camera, selected core.AgentID) {
	for _, a := range snap.Agents {
		DrawRobot(gtx, a, RobotColor(index(a.ID)), camera, a.ID == selected)
	}
}

// DrawForklifts draws visible forklifts as wide rectangles.
func DrawForklifts(gtx layout.Context, obstacles []sim.ObstacleSnapshot, camera *interact.Camera) {
	size := float32(interact.CellSize) * camera.Zoom
	for _, o := range obstacles {
		if !o.Visible {
			continue
		}
		x, y := camera.CellToScreen(o.Pos.Row, o.Pos.Col)
		drawRectangle(gtx, x, y, size*0.8, size*0.5, ColorForklift)
	}
}

func drawSquare(gtx layout.Context, cx, cy, size float32, col color.NRGBA) {
	drawRectangle(gtx, cx, cy, size, size, col)
}

func drawRectangle(gtx layout.Context, cx, cy, width, height float32, col color.NRGBA) {
	if width <= 0 || height <= 0 {
		return
	}
	halfW := width / 2
	halfH := height / 2
	var path clip.Path
	path.Begin(gtx.Ops)
	path.MoveTo(f32.Pt(cx-halfW, cy-halfH))
	path.LineTo(f32.Pt(cx+halfW, cy-halfH))
	path.LineTo(f32.Pt(cx+halfW, cy+halfH))
	path.LineTo(f32.Pt(cx-halfW, cy+halfH))
	path.Close()

	paint.FillShape(gtx.Ops, col, clip.Outline{Path: path.End()}.Op())
}
