// Package interact handles pan and zoom over the warehouse grid.
package interact

import (
	"gioui.org/io/pointer"
)

// CellSize is the edge of one grid cell in world units.
const CellSize = 32.0

const (
	minZoom = 0.1
	maxZoom = 10
)

// Camera maps world coordinates (cell units times CellSize) to screen pixels.
type Camera struct {
	OffsetX float32
	OffsetY float32
	Zoom    float32

	// Fitted is cleared when the grid changes so the next layout refits.
	Fitted bool

	dragging bool
	lastX    float32
	lastY    float32
}

// NewCamera creates a camera at 100% with no offset.
func NewCamera() *Camera {
	return &Camera{Zoom: 1}
}

// Reset makes the next layout fit the grid again.
func (c *Camera) Reset() {
	c.Zoom = 1
	c.OffsetX, c.OffsetY = 0, 0
	c.Fitted = false
}

// WorldToScreen converts world coordinates to screen coordinates.
func (c *Camera) WorldToScreen(worldX, worldY float64) (screenX, screenY float32) {
	screenX = float32(worldX)*c.Zoom + c.OffsetX
	screenY = float32(worldY)*c.Zoom + c.OffsetY
	return
}

// ScreenToWorld converts screen coordinates to world coordinates.
func (c *Camera) ScreenToWorld(screenX, screenY float32) (worldX, worldY float64) {
	worldX = float64((screenX - c.OffsetX) / c.Zoom)
	worldY = float64((screenY - c.OffsetY) / c.Zoom)
	return
}

// CellToScreen returns the screen position of the centre of a (row, col)
// position. Fractional positions come from interpolation.
func (c *Camera) CellToScreen(row, col float64) (float32, float32) {
	return c.WorldToScreen((col+0.5)*CellSize, (row+0.5)*CellSize)
}

// ScreenToCell returns the cell under a screen point.
func (c *Camera) ScreenToCell(screenX, screenY float32) (row, col int) {
	wx, wy := c.ScreenToWorld(screenX, screenY)
	return floorDiv(wy), floorDiv(wx)
}

func floorDiv(w float64) int {
	v := w / CellSize
	if v < 0 {
		return int(v) - 1
	}
	return int(v)
}

// HandleEvent pans with the secondary or middle button and zooms on scroll
// around the pointer.
func (c *Camera) HandleEvent(ev pointer.Event) {
	switch ev.Kind {
	case pointer.Press:
		c.dragging = ev.Buttons.Contain(pointer.ButtonSecondary) || ev.Buttons.Contain(pointer.ButtonTertiary)
		c.lastX, c.lastY = ev.Position.X, ev.Position.Y

	case pointer.Drag:
		if c.dragging {
			c.OffsetX += ev.Position.X - c.lastX
			c.OffsetY += ev.Position.Y - c.lastY
		}
		c.lastX, c.lastY = ev.Position.X, ev.Position.Y

	case pointer.Release:
		c.dragging = false

	case pointer.Scroll:
		if ev.Scroll.Y > 0 {
			c.ZoomBy(1/1.1, ev.Position.X, ev.Position.Y)
		} else if ev.Scroll.Y < 0 {
			c.ZoomBy(1.1, ev.Position.X, ev.Position.Y)
		}
	}
}

// ZoomBy zooms by factor keeping the world point under (centerX, centerY)
// fixed on screen.
func (c *Camera) ZoomBy(factor float32, centerX, centerY float32) {
	worldX, worldY := c.ScreenToWorld(centerX, centerY)
	c.Zoom = clampZoom(c.Zoom * factor)

	newX, newY := c.WorldToScreen(worldX, worldY)
	c.OffsetX += centerX - newX
	c.OffsetY += centerY - newY
}

// FitGrid scales and centres a rows x cols grid inside the screen.
func (c *Camera) FitGrid(rows, cols int, screenWidth, screenHeight, margin float32) {
	if rows <= 0 || cols <= 0 {
		return
	}
	worldW := float32(cols) * CellSize
	worldH := float32(rows) * CellSize

	zoomX := (screenWidth - 2*margin) / worldW
	zoomY := (screenHeight - 2*margin) / worldH
	c.Zoom = clampZoom(min(zoomX, zoomY))

	c.OffsetX = (screenWidth - worldW*c.Zoom) / 2
	c.OffsetY = (screenHeight - worldH*c.Zoom) / 2
	c.Fitted = true
}

func clampZoom(z float32) float32 {
	return max(minZoom, min(maxZoom, z))
}
