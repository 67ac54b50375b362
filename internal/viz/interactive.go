package viz

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/xpbd/internal/config"
	"github.com/san-kum/xpbd/internal/experiment"
	"github.com/san-kum/xpbd/internal/sim"
)

const (
	stateMenu = iota
	stateConfig
	stateSim
)

type entry struct {
	scene, variant string
}

func (e entry) String() string { return e.scene + "/" + e.variant }

type param struct {
	name  string
	value float64
	step  float64
	apply func(c *config.Config, v float64)
}

func paramsFor(c *config.Config) []param {
	return []param{
		{"dt", c.Dt, 0.001, func(c *config.Config, v float64) { c.Dt = v }},
		{"gravity", c.Gravity.Y, 0.5, func(c *config.Config, v float64) { c.Gravity.Y = v }},
		{"margin", c.SafetyMargin, 0.5, func(c *config.Config, v float64) { c.SafetyMargin = v }},
		{"resting", c.RestingSpeed, 0.05, func(c *config.Config, v float64) { c.RestingSpeed = v }},
		{"seed", float64(c.Seed), 1, func(c *config.Config, v float64) { c.Seed = int64(v) }},
	}
}

type model struct {
	state, cursor int
	entries       []entry
	selected      entry
	params        []param
	paramCursor   int
	editing       bool
	editBuf       string
	err           error
	theme         string
	styles        Styles
	liveModel     Model
}

// NewInteractiveApp lists every preset and opens the chosen one in the live
// view after its solver settings have been tuned.
func NewInteractiveApp(theme string) *model {
	var entries []entry
	for _, scene := range config.ListScenes() {
		for _, variant := range config.ListPresets(scene) {
			entries = append(entries, entry{scene, variant})
		}
	}
	return &model{
		state:   stateMenu,
		entries: entries,
		theme:   theme,
		styles:  NewStyles(GetTheme(theme)),
	}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch m.state {
		case stateMenu:
			return m.menuKey(msg)
		case stateConfig:
			return m.configKey(msg)
		}
	}
	if m.state == stateSim {
		if key, ok := msg.(tea.KeyMsg); ok && key.String() == "esc" {
			m.liveModel.flushRecording()
			m.state = stateConfig
			return m, nil
		}
		next, cmd := m.liveModel.Update(msg)
		m.liveModel = next.(Model)
		return m, cmd
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
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
	case "enter", " ":
		if len(m.entries) == 0 {
			return m, nil
		}
		m.selected = m.entries[m.cursor]
		m.params = paramsFor(config.GetPreset(m.selected.scene, m.selected.variant))
		m.state, m.paramCursor, m.err = stateConfig, 0, nil
	}
	return m, nil
}

func (m model) configKey(msg tea.KeyMsg) (model, tea.Cmd) {
	if m.editing {
		switch msg.String() {
		case "enter":
			if v, err := strconv.ParseFloat(m.editBuf, 64); err == nil {
				m.params[m.paramCursor].value = v
			}
			m.editing, m.editBuf = false, ""
		case "esc":
			m.editing, m.editBuf = false, ""
		case "backspace":
			if len(m.editBuf) > 0 {
				m.editBuf = m.editBuf[:len(m.editBuf)-1]
			}
		default:
			if s := msg.String(); len(s) == 1 && strings.ContainsAny(s, "0123456789.-") {
				m.editBuf += s
			}
		}
		return m, nil
	}
	switch msg.String() {
	case "q", "esc":
		m.state = stateMenu
	case "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.paramCursor > 0 {
			m.paramCursor--
		}
	case "down", "j":
		if m.paramCursor < len(m.params)-1 {
			m.paramCursor++
		}
	case "enter", " ":
		m.editing = true
		m.editBuf = strconv.FormatFloat(m.params[m.paramCursor].value, 'f', -1, 64)
	case "left", "h":
		m.params[m.paramCursor].value -= m.params[m.paramCursor].step
	case "right", "l":
		m.params[m.paramCursor].value += m.params[m.paramCursor].step
	case "s":
		return m.start()
	}
	return m, nil
}

// builder returns the scene with the tuned parameters applied.
func (m model) builder() Builder {
	cfg := config.GetPreset(m.selected.scene, m.selected.variant)
	for _, p := range m.params {
		p.apply(cfg, p.value)
	}
	return func() (*sim.Simulator, error) {
		e, err := experiment.New(cfg)
		if err != nil {
			return nil, err
		}
		return e.Simulator(), nil
	}
}

func (m model) start() (model, tea.Cmd) {
	live, err := NewModel(m.selected.String(), m.builder(), Options{Theme: m.theme})
	if err != nil {
		m.err = err
		return m, nil
	}
	m.liveModel, m.state, m.err = live, stateSim, nil
	return m, m.liveModel.Init()
}

func (m model) View() string {
	switch m.state {
	case stateMenu:
		return m.viewMenu()
	case stateConfig:
		return m.viewConfig()
	case stateSim:
		return m.liveModel.View()
	}
	return ""
}

func (m model) viewMenu() string {
	st := m.styles
	var b strings.Builder
	b.WriteString("\n\n  " + st.Header.Render("XPBD") + "\n  " + st.Label.Render("scenes") + "\n\n")
	for i, e := range m.entries {
		if i == m.cursor {
			b.WriteString(st.Chosen.Render("▸ "+e.String()) + "\n")
		} else {
			b.WriteString(st.Item.Render(e.String()) + "\n")
		}
	}
	b.WriteString(st.Help.Render("\n  j/k navigate  enter select  q quit") + "\n")
	return b.String()
}

func (m model) viewConfig() string {
	st := m.styles
	var b strings.Builder
	b.WriteString("\n\n  " + st.Header.Render(strings.ToUpper(m.selected.String())) + "\n\n")
	for i, p := range m.params {
		val := fmt.Sprintf("%8.3f", p.value)
		if m.editing && i == m.paramCursor {
			val = fmt.Sprintf("%8s", m.editBuf+"_")
		}
		line := fmt.Sprintf("%-10s %s", p.name, val)
		if i == m.paramCursor {
			b.WriteString(st.Chosen.Render("▸ "+line) + "\n")
		} else {
			b.WriteString(st.Item.Render(line) + "\n")
		}
	}
	if m.err != nil {
		b.WriteString("\n  " + st.Error.Render(m.err.Error()) + "\n")
	}
	b.WriteString(st.Help.Render("\n  j/k select  h/l adjust  enter edit  s start  esc back") + "\n")
	return b.String()
}

func RunInteractive(theme string) error {
	_, err := tea.NewProgram(NewInteractiveApp(theme), tea.WithAltScreen()).Run()
	return err
}
