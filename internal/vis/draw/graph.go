// Package draw provides rendering functions for visualization.
package draw

import (
	"image"
	"image/color"
	"math"

	"gioui.org/f32"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"

	"github.com/elektrokombinacija/warehouse-sim/internal/core"
	"github.com/elektrokombinacija/warehouse-sim/internal/vis/interact"
)

// Floor colors
var (
	ColorFloor         = color.NRGBA{R: 42, G: 46, B: 54, A: 255}
	ColorWall          = color.NRGBA{R: 96, G: 100, B: 110, A: 255}
	ColorGridLine      = color.NRGBA{R: 60, G: 65, B: 75, A: 255}
	ColorTaskPending   = color.NRGBA{R: 230, G: 190, B: 60, A: 255}
	ColorTaskCompleted = color.NRGBA{R: 80, G: 180, B: 100, A: 255}
)

// DrawGrid renders the floor: free cells, walls and the cell grid lines.
func DrawGrid(gtx layout.Context, grid core.Grid, camera *interact.Camera) {
	for r := range grid {
		for c := range grid[r] {
			col := ColorFloor
			if grid[r][c] == core.Wall {
				col = ColorWall
			}
			fillCell(gtx, camera, r, c, col, 0)
		}
	}
	drawGridLines(gtx, grid.Height(), grid.Width(), camera)
}

// DrawTasks marks task cells, filled once reached.
func DrawTasks(gtx layout.Context, tasks []core.Cell, completed func(core.Cell) bool, camera *interact.Camera) {
	size := float32(interact.CellSize) * camera.Zoom
	for _, t := range tasks {
		x, y := camera.CellToScreen(float64(t.Row), float64(t.Col))
		if completed(t) {
			drawDiamond(gtx, x, y, size*0.3, ColorTaskCompleted)
			continue
		}
		DrawCircleOutline(gtx, x, y, size*0.3, ColorTaskPending, max(2*camera.Zoom, 1))
	}
}

// fillCell fills a cell, shrunk by inset on each side.
func fillCell(gtx layout.Context, camera *interact.Camera, row, col int, c color.NRGBA, inset float32) {
	x0, y0 := camera.WorldToScreen(float64(col)*interact.CellSize, float64(row)*interact.CellSize)
	x1, y1 := camera.WorldToScreen(float64(col+1)*interact.CellSize, float64(row+1)*interact.CellSize)
	rect := image.Rect(int(x0+inset), int(y0+inset), int(x1-inset), int(y1-inset))
	if rect.Empty() {
		return
	}
	paint.FillShape(gtx.Ops, c, clip.Rect(rect).Op())
}

func drawGridLines(gtx layout.Context, rows, cols int, camera *interact.Camera) {
	x0, y0 := camera.WorldToScreen(0, 0)
	x1, y1 := camera.WorldToScreen(float64(cols)*interact.CellSize, float64(rows)*interact.CellSize)

	for c := 0; c <= cols; c++ {
		sx, _ := camera.WorldToScreen(float64(c)*interact.CellSize, 0)
		rect := image.Rect(int(sx), int(y0), int(sx)+1, int(y1))
		paint.FillShape(gtx.Ops, ColorGridLine, clip.Rect(rect).Op())
	}
	for r := 0; r <= rows; r++ {
		_, sy := camera.WorldToScreen(0, float64(r)*interact.CellSize)
		rect := image.Rect(int(x0), int(sy), int(x1), int(sy)+1)
		paint.FillShape(gtx.Ops, ColorGridLine, clip.Rect(rect).Op())
	}
}

func drawDiamond(gtx layout.Context, cx, cy, r float32, col color.NRGBA) {
	var path clip.Path
	path.Begin(gtx.Ops)
	path.MoveTo(f32.Pt(cx, cy-r))
	path.LineTo(f32.Pt(cx+r, cy))
	path.LineTo(f32.Pt(cx, cy+r))
	path.LineTo(f32.Pt(cx-r, cy))
	path.Close()

	paint.FillShape(gtx.Ops, col, clip.Outline{Path: path.End()}.Op())
}

// DrawCircleOutline draws a circle outline.
func DrawCircleOutline(gtx layout.Context, centerX, centerY float32, radius float32, col color.NRGBA, strokeWidth float32) {
	var path clip.Path
	path.Begin(gtx.Ops)
	circle(&path, centerX, centerY, radius, 24, false)

	// Inner circle wound the other way cuts the hole.
	circle(&path, centerX, centerY, max(radius-strokeWidth, 0), 24, true)

	paint.FillShape(gtx.Ops, col, clip.Outline{Path: path.End()}.Op())
}

func drawFilledCircle(gtx layout.Context, cx, cy, radius float32, col color.NRGBA) {
	var path clip.Path
	path.Begin(gtx.Ops)
	circle(&path, cx, cy, radius, 16, false)

	paint.FillShape(gtx.Ops, col, clip.Outline{Path: path.End()}.Op())
}

// circle appends a closed polygon approximating a circle to path.
func circle(path *clip.Path, cx, cy, radius float32, segments int, reverse bool) {
	path.MoveTo(f32.Pt(cx+radius, cy))
	for i := 1; i <= segments; i++ {
		angle := float64(i) * 2 * math.Pi / float64(segments)
		if reverse {
			angle = -angle
		}
		path.LineTo(f32.Pt(cx+radius*float32(math.Cos(angle)), cy+radius*float32(math.Sin(angle))))
	}
	path.Close()
}
