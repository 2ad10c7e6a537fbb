// Package render defines the in-process contract between the simulation
// and whatever draws it. The simulation only produces positions, colours
// and texture coordinates; it never reads anything back.
package render

import "github.com/go-gl/mathgl/mgl64"

// Shape selects how a particle marker is drawn.
type Shape int

const (
	ShapeBox Shape = iota
	ShapeSphere
)

func (s Shape) String() string {
	switch s {
	case ShapeBox:
		return "box"
	case ShapeSphere:
		return "sphere"
	default:
		return "unknown"
	}
}

// Color is an 8-bit RGBA colour.
type Color struct {
	R, G, B, A uint8
}

var (
	White = Color{255, 255, 255, 255}
	Red   = Color{255, 0, 0, 255}
	Green = Color{0, 255, 0, 255}
	Blue  = Color{0, 0, 255, 255}
)

// Vertex is a position with colour and texture coordinates.
type Vertex struct {
	Position mgl64.Vec3
	Color    Color
	UV       mgl64.Vec2
}

// Quad holds four vertices in bottom-left, bottom-right, top-right,
// top-left order.
type Quad [4]Vertex

// Renderer receives draw calls. Implementations must not retain the
// arguments beyond the call unless they copy them.
type Renderer interface {
	DrawQuad(q Quad)
	DrawLine(a, b mgl64.Vec3, c Color)
	DrawParticle(center mgl64.Vec3, radius float64, shape Shape)
}

// Line is a recorded DrawLine call.
type Line struct {
	A, B  mgl64.Vec3
	Color Color
}

// Marker is a recorded DrawParticle call.
type Marker struct {
	Center mgl64.Vec3
	Radius float64
	Shape  Shape
}

// Recorder is a Renderer that keeps every call, for tests and exporters.
type Recorder struct {
	Quads   []Quad
	Lines   []Line
	Markers []Marker
}

func (r *Recorder) DrawQuad(q Quad) { r.Quads = append(r.Quads, q) }

func (r *Recorder) DrawLine(a, b mgl64.Vec3, c Color) {
	r.Lines = append(r.Lines, Line{A: a, B: b, Color: c})
}

func (r *Recorder) DrawParticle(center mgl64.Vec3, radius float64, shape Shape) {
	r.Markers = append(r.Markers, Marker{Center: center, Radius: radius, Shape: shape})
}

// Reset drops recorded calls and keeps the backing storage.
func (r *Recorder) Reset() {
	r.Quads = r.Quads[:0]
	r.Lines = r.Lines[:0]
	r.Markers = r.Markers[:0]
}

// Bounds returns the axis-aligned box around every recorded position.
// ok is false when nothing was recorded.
func (r *Recorder) Bounds() (lo, hi mgl64.Vec3, ok bool) {
	extend := func(p mgl64.Vec3) {
		if !ok {
			lo, hi, ok = p, p, true
			return
		}
		for i := 0; i < 3; i++ {
			lo[i] = min(lo[i], p[i])
			hi[i] = max(hi[i], p[i])
		}
	}
	for _, q := range r.Quads {
		for _, v := range q {
			extend(v.Position)
		}
	}
	for _, l := range r.Lines {
		extend(l.A)
		extend(l.B)
	}
	for _, m := range r.Markers {
		extend(m.Center)
	}
	return lo, hi, ok
}
