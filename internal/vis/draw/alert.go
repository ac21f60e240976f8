package draw

import (
	"image/color"
	"math"
	"time"

	"gioui.org/layout"

	"github.com/elektrokombinacija/warehouse-sim/internal/sim"
	"github.com/elektrokombinacija/warehouse-sim/internal/vis/interact"
)

// ColorReplan marks robots waiting on a new route.
var ColorReplan = color.NRGBA{R: 255, G: 80, B: 80, A: 200}

// DrawReplanAlerts draws expanding rings around robots whose replan is in flight.
func DrawReplanAlerts(gtx layout.Context, snap sim.Snapshot, camera *interact.Camera, now time.Time) {
	t := float64(now.UnixMilli()) / 1000.0
	for _, a := range snap.Agents {
		if a.Status != sim.StatusReplanning {
			continue
		}
		x, y := camera.CellToScreen(a.Pos.Row, a.Pos.Col)
		for i := 0; i < 3; i++ {
			ripple := float32(math.Mod(t+float64(i)*0.3, 1.0))
			radius := float32(10+20*ripple) * camera.Zoom
			col := ColorReplan
			col.A = uint8((1.0 - ripple) * 200)
			DrawCircleOutline(gtx, x, y, radius, col, 2*camera.Zoom)
		}
	}
}
