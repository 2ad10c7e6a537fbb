package cloth

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/clothsim/internal/render"
)

// RenderOptions selects the layers drawn by Render.
type RenderOptions struct {
	Cloth       bool
	Constraints bool
	Particles   bool
}

var constraintColors = map[ConstraintKind]render.Color{
	Stretch: render.Red,
	Shear:   render.Green,
	Bend:    render.Blue,
}

// Render draws the fabric as textured quads, then the constraint lines,
// then the particle markers.
func (cl *Cloth) Render(r render.Renderer, opts RenderOptions) {
	if opts.Cloth {
		cl.renderQuads(r)
	}
	if opts.Constraints {
		for _, cc := range cl.constraints {
			a := cl.particles[cc.P1].State().Position()
			b := cl.particles[cc.P2].State().Position()
			r.DrawLine(a, b, constraintColors[cc.Kind])
		}
	}
	if opts.Particles {
		for _, p := range cl.particles {
			p.Render(r)
		}
	}
}

// renderQuads emits one quad per 2x2 block that still has a live corner.
// Texture u runs from 1 at the left column to 0 at the right one, v from 0
// at the top row to 1 at the bottom one.
func (cl *Cloth) renderQuads(r render.Renderer) {
	rows, cols := cl.cfg.Rows, cl.cfg.Cols
	if rows < 2 || cols < 2 {
		return
	}

	u := func(c int) float64 { return 1 - float64(c)/float64(cols-1) }
	v := func(row int) float64 { return float64(row) / float64(rows-1) }
	vertex := func(row, c int) render.Vertex {
		return render.Vertex{
			Position: cl.particles[cl.index(row, c)].State().Position(),
			Color:    render.White,
			UV:       mgl64.Vec2{u(c), v(row)},
		}
	}

	for row := 0; row+1 < rows; row++ {
		for c := 0; c+1 < cols; c++ {
			if cl.blockExpired(row, c) {
				continue
			}
			r.DrawQuad(render.Quad{
				vertex(row+1, c),
				vertex(row+1, c+1),
				vertex(row, c+1),
				vertex(row, c),
			})
		}
	}
}

func (cl *Cloth) blockExpired(row, c int) bool {
	for _, idx := range [4]int{
		cl.index(row, c), cl.index(row, c+1),
		cl.index(row+1, c), cl.index(row+1, c+1),
	} {
		if !cl.particles[idx].IsExpired() {
			return false
		}
	}
	return true
}
