package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/clothsim/internal/cloth"
	"github.com/san-kum/clothsim/internal/dynamo"
	"github.com/san-kum/clothsim/internal/sim"
)

const (
	width           = 80
	height          = 24
	historyCapacity = 600
	dragStep        = 0.02
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(45)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	onStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(2)
)

type TickMsg time.Time

// WorldBuilder assembles a fresh scene. The live view calls it again on
// reset.
type WorldBuilder func() (*sim.World, error)

// Model drives a scene from bubbletea ticks and draws it on a braille canvas.
type Model struct {
	build    WorldBuilder
	world    *sim.World
	name     string
	dt       float64
	canvas   *Canvas
	camera   *Camera
	renderer *CanvasRenderer
	opts     cloth.RenderOptions

	running  bool
	showHelp bool
	err      error

	residuals []float64
	live      []float64
}

// NewModel builds the first scene. dt is the simulated time per tick.
func NewModel(name string, build WorldBuilder, dt float64) (Model, error) {
	w, err := build()
	if err != nil {
		return Model{}, err
	}
	canvas := NewCanvas(width, height)
	camera := NewCamera()
	m := Model{
		build:     build,
		world:     w,
		name:      name,
		dt:        dt,
		canvas:    canvas,
		camera:    camera,
		renderer:  NewCanvasRenderer(canvas, camera),
		opts:      cloth.RenderOptions{Cloth: true, Particles: true},
		running:   true,
		residuals: make([]float64, 0, historyCapacity),
		live:      make([]float64, 0, historyCapacity),
	}
	m.focus()
	m.draw()
	return m, nil
}

func (m Model) World() *sim.World                  { return m.world }
func (m Model) Running() bool                      { return m.running }
func (m Model) RenderOptions() cloth.RenderOptions { return m.opts }
func (m Model) Err() error                         { return m.err }

func tick() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles input events and steps the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "up", "w":
			m.drag(dynamo.Up.Mul(dragStep))
		case "down", "s":
			m.drag(dynamo.Up.Mul(-dragStep))
		case "left", "a":
			m.drag(mgl64.Vec3{-dragStep, 0, 0})
		case "right", "d":
			m.drag(mgl64.Vec3{dragStep, 0, 0})
		case "c":
			m.opts.Constraints = !m.opts.Constraints
		case "p":
			m.opts.Particles = !m.opts.Particles
		case "f":
			m.opts.Cloth = !m.opts.Cloth
		case "x":
			m.puncture()
		case "e":
			for _, s := range m.world.Systems() {
				s.Emit()
			}
		case "+", "=":
			m.camera.ZoomIn()
		case "-", "_":
			m.camera.ZoomOut()
		case "h":
			m.camera.RotateY(-0.1)
		case "l":
			m.camera.RotateY(0.1)
		case "j":
			m.camera.RotateX(0.1)
		case "k":
			m.camera.RotateX(-0.1)
		case "?":
			m.showHelp = !m.showHelp
		}
		m.draw()
	case TickMsg:
		if m.running {
			m.step()
		}
		m.draw()
		return m, tick()
	}
	return m, nil
}

// step advances the scene one tick and records its history.
func (m *Model) step() {
	f, err := m.world.Step(m.dt)
	if err != nil {
		m.err = err
		m.running = false
	}
	m.residuals = appendCapped(m.residuals, f.FinalResidual())
	m.live = appendCapped(m.live, float64(f.Live))
}

func appendCapped(xs []float64, v float64) []float64 {
	xs = append(xs, v)
	if len(xs) > historyCapacity {
		xs = xs[1:]
	}
	return xs
}

func (m *Model) drag(offset mgl64.Vec3) {
	if cl := m.world.Cloth(); cl != nil {
		cl.MoveClothByOffset(offset)
	}
}

// puncture tears a hole around the middle of the cloth.
func (m *Model) puncture() {
	cl := m.world.Cloth()
	if cl == nil {
		return
	}
	p, ok := cl.GetParticle(cl.Rows()/2, cl.Cols()/2)
	if !ok || p.State() == nil {
		return
	}
	cl.Puncture(p.State().Position(), 1.5*cl.Config().BaseDistance)
}

// reset rebuilds the scene from scratch. A failing builder keeps the
// current scene and reports the error.
func (m *Model) reset() {
	w, err := m.build()
	if err != nil {
		m.err = err
		return
	}
	m.world, m.err = w, nil
	m.residuals = m.residuals[:0]
	m.live = m.live[:0]
	m.camera.Reset()
	m.focus()
}

// focus points the camera at the middle of the cloth, or at the first
// emitter when there is no cloth.
func (m *Model) focus() {
	if cl := m.world.Cloth(); cl != nil {
		cfg := cl.Config()
		w := float64(cfg.Cols-1) * cfg.BaseDistance
		h := float64(cfg.Rows-1) * cfg.BaseDistance
		m.camera.Target = cl.OriginalTopLeft().Add(mgl64.Vec3{w / 2, 0, -h / 2})
		if extent := math.Max(w, h); extent > 0 {
			m.camera.Zoom = 2 / extent
		}
		return
	}
	if systems := m.world.Systems(); len(systems) > 0 {
		m.camera.Target = systems[0].Config().EmitterPosition
	}
}

func (m *Model) draw() {
	m.canvas.Clear()
	m.world.Draw(m.renderer, m.opts)
}

func toggle(on bool) string {
	if on {
		return onStyle.Render("on")
	}
	return "off"
}

// View renders the TUI interface.
func (m Model) View() string {
	canvasView := canvasStyle.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.name)) + "\n")
	status := "RUNNING"
	if !m.running {
		status = "PAUSED"
	}
	s.WriteString(status + "\n\n")

	if len(m.residuals) > 1 {
		chart := asciigraph.Plot(m.residuals, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Residual"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}
	s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.2fs", m.world.Time())) + "\n")
	s.WriteString(labelStyle.Render("Frame") + valueStyle.Render(fmt.Sprintf("%d", m.world.FrameIndex())) + "\n")
	if cl := m.world.Cloth(); cl != nil {
		s.WriteString(labelStyle.Render("Alive") + valueStyle.Render(fmt.Sprintf("%d/%d", cl.Alive(), cl.Rows()*cl.Cols())) + "\n")
	}
	s.WriteString(labelStyle.Render("Emitted") + valueStyle.Render(fmt.Sprintf("%d live", m.world.Live())) + "\n")
	if len(m.live) > 1 {
		s.WriteString(labelStyle.Render("") + SparklineChart(m.live, 24) + "\n")
	}
	if m.err != nil {
		s.WriteString("\n" + errorStyle.Render(m.err.Error()) + "\n")
	}

	s.WriteString("\nLAYERS\n")
	s.WriteString(labelStyle.Render("  cloth") + toggle(m.opts.Cloth) + "\n")
	s.WriteString(labelStyle.Render("  links") + toggle(m.opts.Constraints) + "\n")
	s.WriteString(labelStyle.Render("  points") + toggle(m.opts.Particles) + "\n")

	s.WriteString(helpStyle.Render("\n─────────────────────\nSP:Pause R:Reset Q:Quit\nWASD:Drag X:Tear E:Emit\n?:Help"))
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
	if m.showHelp {
		return `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS         ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume simulation  ║
║  R        - Rebuild the scene        ║
║  Q        - Quit                     ║
║  WASD     - Drag the top edge        ║
║  X        - Tear a hole mid-cloth    ║
║  E        - Fire every emitter       ║
║  F/C/P    - Cloth, links, points     ║
║  H/L J/K  - Rotate the camera        ║
║  +/-      - Zoom                     ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝
` + "\n\n" + mainView
	}
	return mainView
}
