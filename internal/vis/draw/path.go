package draw

import (
	"image/color"
	"math"

	"gioui.org/f32"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"

	"github.com/elektrokombinacija/warehouse-sim/internal/core"
	"github.com/elektrokombinacija/warehouse-sim/internal/vis/interact"
)

// DrawPath draws a polyline through cell positions.
func DrawPath(gtx layout.Context, path []core.Pos, camera *interact.Camera, col color.NRGBA, width float32) {
	if len(path) < 2 {
		return
	}

	w := width * camera.Zoom
	for i := 0; i < len(path)-1; i++ {
		x1, y1 := camera.CellToScreen(path[i].Row, path[i].Col)
		x2, y2 := camera.CellToScreen(path[i+1].Row, path[i+1].Col)
		drawPathSegment(gtx, x1, y1, x2, y2, w, col)
	}
}

// DrawPathTrail draws a fading trail behind a robot.
func DrawPathTrail(gtx layout.Context, history []core.Pos, camera *interact.Camera, baseColor color.NRGBA, maxWidth float32) {
	if len(history) < 2 {
		return
	}

	n := len(history)
	for i := 0; i < n-1; i++ {
		col := baseColor
		col.A = uint8(50 + float64(i)/float64(n)*150)
		w := maxWidth * camera.Zoom * (0.3 + 0.7*float32(i)/float32(n))

		x1, y1 := camera.CellToScreen(history[i].Row, history[i].Col)
		x2, y2 := camera.CellToScreen(history[i+1].Row, history[i+1].Col)
		drawPathSegment(gtx, x1, y1, x2, y2, w, col)
	}
}

// DrawFuturePath draws the remaining route dimmed, ending in a marker.
func DrawFuturePath(gtx layout.Context, future []core.Pos, camera *interact.Camera, col color.NRGBA) {
	if len(future) < 2 {
		return
	}
	dim := col
	dim.A = 80
	DrawPath(gtx, future, camera, dim, 2)

	end := future[len(future)-1]
	x, y := camera.CellToScreen(end.Row, end.Col)
	drawFilledCircle(gtx, x, y, 4*camera.Zoom, dim)
}

func drawPathSegment(gtx layout.Context, x1, y1, x2, y2, width float32, col color.NRGBA) {
	dx := x2 - x1
	dy := y2 - y1
	length := float32(math.Sqrt(float64(dx*dx + dy*dy)))
	if length < 0.1 {
		return
	}

	dx /= length
	dy /= length
	px := -dy * width / 2
	py := dx * width / 2

	var path clip.Path
	path.Begin(gtx.Ops)
	path.MoveTo(f32.Pt(x1+px, y1+py))
	path.LineTo(f32.Pt(x2+px, y2+py))
	path.LineTo(f32.Pt(x2-px, y2-py))
	path.LineTo(f32.Pt(x1-px, y1-py))
	path.Close()

	paint.FillShape(gtx.Ops, col, clip.Outline{Path: path.End()}.Op())
}
