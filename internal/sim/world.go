package sim

import (
	"errors"
	"fmt"

	"github.com/san-kum/clothsim/internal/cloth"
	"github.com/san-kum/clothsim/internal/particle"
	"github.com/san-kum/clothsim/internal/render"
)

// World is the host side of a scene: an optional cloth plus any number of
// emitters, updated in that order every frame. When a renderer is set the
// frame is drawn into it as part of the step, which is also when expired
// emitter particles are dropped.
type World struct {
	cloth   *cloth.Cloth
	systems []*particle.System

	renderer render.Renderer
	drawOpts cloth.RenderOptions

	frame int
	time  float64
}

func NewWorld(cl *cloth.Cloth, systems ...*particle.System) *World {
	return &World{cloth: cl, systems: systems}
}

func (w *World) Cloth() *cloth.Cloth                { return w.cloth }
func (w *World) Systems() []*particle.System        { return w.systems }
func (w *World) AddSystem(s *particle.System)       { w.systems = append(w.systems, s) }
func (w *World) Time() float64                      { return w.time }
func (w *World) FrameIndex() int                    { return w.frame }
func (w *World) Renderer() render.Renderer          { return w.renderer }
func (w *World) RenderOptions() cloth.RenderOptions { return w.drawOpts }

// SetRenderer makes every later Step draw into r. A nil r turns drawing
// off.
func (w *World) SetRenderer(r render.Renderer, opts cloth.RenderOptions) {
	w.renderer = r
	w.drawOpts = opts
}

func (w *World) Step(dt float64) (Frame, error) {
	var errs []error
	f := Frame{}

	if w.cloth != nil {
		res, err := w.cloth.Update(dt)
		if err != nil {
			errs = append(errs, fmt.Errorf("cloth: %w", err))
		}
		f.Residuals = res
		f.Alive = w.cloth.Alive()
		if w.renderer != nil {
			w.cloth.Render(w.renderer, w.drawOpts)
		}
	}

	for i, s := range w.systems {
		if err := s.Update(dt); err != nil {
			errs = append(errs, fmt.Errorf("emitter %d: %w", i, err))
		}
		s.RenderThenExpire(w.renderer)
		f.Live += s.Live()
	}

	w.frame++
	w.time += dt
	f.Index = w.frame
	f.Time = w.time
	return f, errors.Join(errs...)
}

// Draw renders the current frame into r without advancing anything.
func (w *World) Draw(r render.Renderer, opts cloth.RenderOptions) {
	if w.cloth != nil {
		w.cloth.Render(r, opts)
	}
	for _, s := range w.systems {
		s.Render(r)
	}
}

// Live counts emitted particles held by every emitter.
func (w *World) Live() int {
	n := 0
	for _, s := range w.systems {
		n += s.Live()
	}
	return n
}

// IsValid reports whether every cloth and emitted particle has a finite
// state.
func (w *World) IsValid() bool {
	if w.cloth != nil {
		for _, p := range w.cloth.Particles() {
			if !p.State().IsValid() {
				return false
			}
		}
	}
	for _, s := range w.systems {
		for _, p := range s.Particles() {
			if st := p.State(); st != nil && !st.IsValid() {
				return false
			}
		}
	}
	return true
}
