package viz

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/clothsim/internal/render"
)

// CanvasRenderer draws render calls onto a braille canvas through a
// camera. Colours are dropped; braille has one ink.
type CanvasRenderer struct {
	Canvas *Canvas
	Camera *Camera
}

func NewCanvasRenderer(c *Canvas, cam *Camera) *CanvasRenderer {
	return &CanvasRenderer{Canvas: c, Camera: cam}
}

func (r *CanvasRenderer) line(a, b mgl64.Vec3) {
	sw, sh := r.Canvas.PixelSize()
	x0, y0, _, v0 := r.Camera.Project(a, sw, sh)
	x1, y1, _, v1 := r.Camera.Project(b, sw, sh)
	if !v0 && !v1 {
		return
	}
	r.Canvas.DrawLine(x0, y0, x1, y1)
}

// DrawQuad outlines the quad.
func (r *CanvasRenderer) DrawQuad(q render.Quad) {
	for i := range q {
		r.line(q[i].Position, q[(i+1)%len(q)].Position)
	}
}

func (r *CanvasRenderer) DrawLine(a, b mgl64.Vec3, _ render.Color) {
	r.line(a, b)
}

// DrawParticle draws a sphere as a circle and a box as a square, never
// smaller than a single dot.
func (r *CanvasRenderer) DrawParticle(center mgl64.Vec3, radius float64, shape render.Shape) {
	sw, sh := r.Canvas.PixelSize()
	x, y, _, ok := r.Camera.Project(center, sw, sh)
	if !ok {
		return
	}
	size := int(math.Round(radius * r.Camera.Scale(sw, sh)))
	switch shape {
	case render.ShapeBox:
		if size == 0 {
			r.Canvas.Set(x, y)
			return
		}
		r.Canvas.DrawRect(x, y, size)
	default:
		r.Canvas.DrawCircle(x, y, size)
	}
}
