package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/clothsim/internal/audio"
	"github.com/san-kum/clothsim/internal/config"
	"github.com/san-kum/clothsim/internal/particle"
	"github.com/san-kum/clothsim/internal/sim"
)

var presetInfo = map[string]string{
	"drape":     "cloth hanging from two pins",
	"flag":      "cloth in a steady breeze",
	"fireworks": "bursting emitter",
	"debris":    "boxes bouncing off the ground",
	"wormhole":  "everything pulled to the origin",
}

const (
	stateMenu = iota
	stateSim
)

type model struct {
	state, cursor int
	presets       []string
	bank          *audio.Bank
	opts          []particle.SystemOption
	err           error
	liveModel     Model
}

// NewInteractiveApp lists the built-in presets and opens the selected one in
// the live view. Emitters resolve their sounds through bank and take opts.
func NewInteractiveApp(bank *audio.Bank, opts ...particle.SystemOption) *model {
	return &model{
		state:   stateMenu,
		presets: config.ListPresets(),
		bank:    bank,
		opts:    opts,
	}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.state == stateSim {
		newLive, cmd := m.liveModel.Update(msg)
		m.liveModel = newLive.(Model)
		return m, cmd
	}
	if msg, ok := msg.(tea.KeyMsg); ok {
		return m.menuKey(msg)
	}
	return m, nil
}

func (m model) menuKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.presets)-1 {
			m.cursor++
		}
	case "enter", " ":
		return m.start()
	}
	return m, nil
}

// PresetBuilder returns a WorldBuilder that assembles the named preset.
func PresetBuilder(name string, bank *audio.Bank, opts ...particle.SystemOption) WorldBuilder {
	return func() (*sim.World, error) {
		cfg := config.GetPreset(name)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset %q", name)
		}
		return cfg.BuildWorld(bank, opts...)
	}
}

func (m model) start() (model, tea.Cmd) {
	name := m.presets[m.cursor]
	live, err := NewModel(name, PresetBuilder(name, m.bank, m.opts...), config.GetPreset(name).Dt)
	if err != nil {
		m.err = err
		return m, nil
	}
	m.liveModel, m.err = live, nil
	m.state = stateSim
	return m, m.liveModel.Init()
}

func (m model) View() string {
	if m.state == stateSim {
		return m.liveModel.View()
	}
	return m.viewMenu()
}

func (m model) viewMenu() string {
	var b strings.Builder
	b.WriteString("\n\n    " + GradientText("CLOTHSIM", lipgloss.Color("#00cccc"), lipgloss.Color("#ff88ff")) +
		"\n    " + Subtle.Render("cloth and particle playground") + "\n    " + Separator(25) + "\n\n")
	for i, name := range m.presets {
		desc := presetInfo[name]
		if i == m.cursor {
			b.WriteString(fmt.Sprintf("    %s %s  %s\n", Cursor.Render("▸"), Selected.Render(fmt.Sprintf("%-12s", name)), Accent.Render(desc)))
		} else {
			b.WriteString(fmt.Sprintf("    %s  %s\n", Muted.Render(fmt.Sprintf("  %-12s", name)), Muted.Render(desc)))
		}
	}
	if m.err != nil {
		b.WriteString("\n    " + errorStyle.Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n    " + KeyHint.Render("j/k") + Muted.Render(" navigate  ") + KeyHint.Render("enter") + Muted.Render(" select  ") + KeyHint.Render("q") + Muted.Render(" quit") + "\n")
	return b.String()
}

func RunInteractive(bank *audio.Bank, opts ...particle.SystemOption) error {
	_, err := tea.NewProgram(NewInteractiveApp(bank, opts...), tea.WithAltScreen()).Run()
	return err
}

// RunLive opens a single scene in the live view.
func RunLive(name string, build WorldBuilder, dt float64) error {
	m, err := NewModel(name, build, dt)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
