package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/clothsim/internal/dynamo"
	"github.com/san-kum/clothsim/internal/render"
)

const svgHeader = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`

// frontView maps world points onto the page looking along +Y: world X
// runs right and world up runs up the page.
type frontView struct {
	minX, minY    float64
	scale         float64
	width, height int
}

func newFrontView(lo, hi mgl64.Vec3, width, height int) frontView {
	lx, ly := lo.X(), lo.Dot(dynamo.Up)
	hx, hy := hi.X(), hi.Dot(dynamo.Up)
	if lx > hx {
		lx, hx = hx, lx
	}
	if ly > hy {
		ly, hy = hy, ly
	}
	rx, ry := hx-lx, hy-ly
	if rx == 0 {
		rx = 1
	}
	if ry == 0 {
		ry = 1
	}
	lx -= rx * 0.1
	ly -= ry * 0.1
	rx *= 1.2
	ry *= 1.2
	return frontView{
		minX:   lx,
		minY:   ly,
		scale:  math.Min(float64(width)/rx, float64(height)/ry),
		width:  width,
		height: height,
	}
}

func (v frontView) point(p mgl64.Vec3) (float64, float64) {
	x := (p.X() - v.minX) * v.scale
	y := float64(v.height) - (p.Dot(dynamo.Up)-v.minY)*v.scale
	return x, y
}

func colorHex(c render.Color) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// SceneToSVG draws the calls kept by rec as a front view. Quads become
// outlined polygons, lines keep their colour and particles become circles
// or squares. An empty recorder yields an empty string.
func SceneToSVG(rec *render.Recorder, width, height int) string {
	lo, hi, ok := rec.Bounds()
	if !ok {
		return ""
	}
	v := newFrontView(lo, hi, width, height)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(svgHeader, width, height, width, height))

	if len(rec.Quads) > 0 {
		sb.WriteString(`<g fill="#1e3a5f" fill-opacity="0.6" stroke="#4fc3f7" stroke-width="0.5">` + "\n")
		for _, q := range rec.Quads {
			pts := make([]string, len(q))
			for i, vert := range q {
				x, y := v.point(vert.Position)
				pts[i] = fmt.Sprintf("%.1f,%.1f", x, y)
			}
			sb.WriteString(fmt.Sprintf(`<polygon points="%s"/>`+"\n", strings.Join(pts, " ")))
		}
		sb.WriteString("</g>\n")
	}

	for _, l := range rec.Lines {
		x1, y1 := v.point(l.A)
		x2, y2 := v.point(l.B)
		sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="0.5"/>`+"\n",
			x1, y1, x2, y2, colorHex(l.Color)))
	}

	if len(rec.Markers) > 0 {
		sb.WriteString(`<g fill="#ffcc00">` + "\n")
		for _, m := range rec.Markers {
			cx, cy := v.point(m.Center)
			r := math.Max(m.Radius*v.scale, 1)
			if m.Shape == render.ShapeBox {
				sb.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f"/>`+"\n", cx-r, cy-r, 2*r, 2*r))
				continue
			}
			sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f"/>`+"\n", cx, cy, r))
		}
		sb.WriteString("</g>\n")
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// SeriesToSVG plots values against their index as a single path.
func SeriesToSVG(values []float64, width, height int, strokeColor string) string {
	if len(values) < 2 {
		return ""
	}

	lo, hi := values[0], values[0]
	for _, y := range values {
		lo, hi = math.Min(lo, y), math.Max(hi, y)
	}
	rangeY := hi - lo
	if rangeY == 0 {
		rangeY = 1
	}
	lo -= rangeY * 0.1
	rangeY *= 1.2
	step := float64(width) / float64(len(values)-1)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(svgHeader, width, height, width, height))
	sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="M`, strokeColor))
	for i, y := range values {
		px := float64(i) * step
		py := float64(height) - (y-lo)/rangeY*float64(height)
		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", px, py))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", px, py))
		}
	}
	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}
