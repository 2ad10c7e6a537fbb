package viz

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/clothsim/internal/dynamo"
)

// Camera projects world points onto the canvas. At rest it looks along
// world +Y with world up (+Z) pointing up the screen and +X to the right.
type Camera struct {
	Target   mgl64.Vec3
	Distance float64
	RotX     float64
	RotY     float64
	Zoom     float64
}

func NewCamera() *Camera {
	return &Camera{Distance: 8, Zoom: 1.0}
}

func (c *Camera) RotateX(a float64) { c.RotX += a }
func (c *Camera) RotateY(a float64) { c.RotY += a }
func (c *Camera) ZoomIn()           { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut()          { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

// Reset drops every rotation and zoom change.
func (c *Camera) Reset() {
	c.RotX, c.RotY, c.Zoom = 0, 0, 1
}

// view turns a world point into camera space: x right, y up, z toward the
// viewer.
func (c *Camera) view(p mgl64.Vec3) mgl64.Vec3 {
	rel := p.Sub(c.Target)
	v := mgl64.Vec3{rel.X(), rel.Dot(dynamo.Up), -rel.Y()}
	v = mgl64.Rotate3DX(c.RotX).Mul3x1(v)
	v = mgl64.Rotate3DY(c.RotY).Mul3x1(v)
	return v.Mul(c.Zoom)
}

// Project converts a world point to canvas dots for a sw x sh dot canvas.
// It returns x, y, depth and whether the dot lands on the canvas.
func (c *Camera) Project(p mgl64.Vec3, sw, sh int) (int, int, float64, bool) {
	v := c.view(p)
	if v.Z() >= c.Distance-0.1 {
		return 0, 0, 0, false
	}
	scale := c.Distance / (c.Distance - v.Z())
	minDim := math.Min(float64(sw), float64(sh))
	pScale := minDim / 3.0
	sx := int(math.Round(v.X()*scale*pScale)) + sw/2
	sy := int(math.Round(-v.Y()*scale*pScale)) + sh/2
	return sx, sy, v.Z(), sx >= 0 && sx < sw && sy >= 0 && sy < sh
}

// Scale returns how many dots one world unit at the target spans.
func (c *Camera) Scale(sw, sh int) float64 {
	return math.Min(float64(sw), float64(sh)) / 3.0 * c.Zoom
}
