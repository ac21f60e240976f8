package interact

import (
	"math"
	"testing"
)

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-3
}

func TestFitGridCentres(t *testing.T) {
	c := NewCamera()
	c.FitGrid(10, 20, 800, 600, 20)

	if !c.Fitted {
		t.Fatal("camera not marked fitted")
	}
	// Width limits: (800-40)/(20*32)
	if want := float32(760.0 / 640.0); !near(c.Zoom, want) {
		t.Errorf("zoom = %v, want %v", c.Zoom, want)
	}

	x0, y0 := c.WorldToScreen(0, 0)
	x1, y1 := c.WorldToScreen(20*CellSize, 10*CellSize)
	if !near(x0+x1, 800) || !near(y0+y1, 600) {
		t.Errorf("grid not centred: (%v,%v)-(%v,%v)", x0, y0, x1, y1)
	}
}

func TestCellRoundTrip(t *testing.T) {
	c := NewCamera()
	c.FitGrid(8, 8, 400, 400, 0)

	tests := []struct{ row, col int }{{0, 0}, {3, 5}, {7, 7}}
	for _, tt := range tests {
		x, y := c.CellToScreen(float64(tt.row), float64(tt.col))
		r, col := c.ScreenToCell(x, y)
		if r != tt.row || col != tt.col {
			t.Errorf("cell (%d,%d) -> (%d,%d)", tt.row, tt.col, r, col)
		}
	}

	if r, col := c.ScreenToCell(-5, -5); r != -1 || col != -1 {
		t.Errorf("point left of grid -> (%d,%d), want (-1,-1)", r, col)
	}
}

func TestZoomByKeepsAnchor(t *testing.T) {
	c := NewCamera()
	wx, wy := c.ScreenToWorld(120, 80)
	c.ZoomBy(2, 120, 80)

	x, y := c.WorldToScreen(wx, wy)
	if !near(x, 120) || !near(y, 80) {
		t.Errorf("anchor moved to (%v,%v)", x, y)
	}

	c.ZoomBy(1000, 0, 0)
	if c.Zoom != maxZoom {
		t.Errorf("zoom = %v, want clamp at %v", c.Zoom, maxZoom)
	}
}
