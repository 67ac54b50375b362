package viz

import (
	"fmt"
	"image"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/xpbd/internal/sim"
)

const (
	defaultWidth    = 80
	defaultHeight   = 24
	historyCapacity = 600
	panStep         = 8.0
	gifPath         = "simulation.gif"
)

// Builder constructs a fresh simulator. The live view calls it again on reset.
type Builder func() (*sim.Simulator, error)

type Options struct {
	Width, Height int // canvas size in cells
	Theme         string
}

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Model steps a simulator at 60 Hz and draws it on a braille canvas. The last
// historyCapacity frames can be scrubbed with [ and ].
type Model struct {
	sim     *sim.Simulator
	build   Builder
	title   string
	bodies  *Canvas
	statics *Canvas
	view    Viewport
	home    Viewport

	theme  Theme
	styles Styles

	running   bool
	gravity   mgl64.Vec2
	gravityOn bool

	energy   []float64
	contacts []float64
	history  []Frame
	playHead int

	recording bool
	frames    []*image.Paletted
	showHelp  bool
	err       error
}

func NewModel(title string, build Builder, opts Options) (Model, error) {
	if opts.Width <= 0 {
		opts.Width = defaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = defaultHeight
	}
	s, err := build()
	if err != nil {
		return Model{}, err
	}
	theme := GetTheme(opts.Theme)
	center, half := Bounds(s.World())
	home := FitViewport(center, half, opts.Width, opts.Height)

	return Model{
		sim:       s,
		build:     build,
		title:     title,
		bodies:    NewCanvas(opts.Width, opts.Height),
		statics:   NewCanvas(opts.Width, opts.Height),
		view:      home,
		home:      home,
		theme:     theme,
		styles:    NewStyles(theme),
		running:   true,
		gravity:   s.Solver().Config().Gravity,
		gravityOn: true,
		energy:    make([]float64, 0, historyCapacity),
		contacts:  make([]float64, 0, historyCapacity),
		history:   make([]Frame, 0, historyCapacity),
		playHead:  -1,
	}, nil
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.flushRecording()
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case ".":
			if !m.running && m.playHead == -1 {
				m.step()
			}
		case "r":
			m.reset()
		case "[":
			m.scrub(-1)
		case "]":
			m.scrub(1)
		case "f":
			m.toggleGravity()
		case "t":
			m.theme = NextTheme(m.theme.Name)
			m.styles = NewStyles(m.theme)
		case "g":
			if m.recording {
				m.flushRecording()
			} else {
				m.recording = true
				m.frames = make([]*image.Paletted, 0)
			}
		case "+", "=":
			m.view = m.view.Zoom(1.25)
		case "-", "_":
			m.view = m.view.Zoom(0.8)
		case "left", "h":
			m.view = m.view.Pan(mgl64.Vec2{-panStep, 0})
		case "right", "l":
			m.view = m.view.Pan(mgl64.Vec2{panStep, 0})
		case "up", "k":
			m.view = m.view.Pan(mgl64.Vec2{0, panStep})
		case "down", "j":
			m.view = m.view.Pan(mgl64.Vec2{0, -panStep})
		case "0":
			m.view = m.home
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			if m.playHead == -1 {
				m.step()
			} else {
				m.playHead++
				if m.playHead >= len(m.history) {
					m.playHead = -1
				}
			}
		}
		if m.recording {
			m.draw(m.frame())
			m.frames = append(m.frames, Rasterize(m.bodies, m.statics))
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) step() {
	if err := m.sim.Step(); err != nil {
		m.err = err
		m.running = false
		return
	}
	solver := m.sim.Solver()
	f := Capture(m.sim.World(), m.sim.Time())
	m.energy = appendBounded(m.energy, f.Energy)
	m.contacts = appendBounded(m.contacts, float64(len(solver.Contacts())+len(solver.StaticContacts())))
	m.history = append(m.history, f)
	if len(m.history) > historyCapacity {
		m.history = m.history[1:]
	}
}

func appendBounded(xs []float64, v float64) []float64 {
	xs = append(xs, v)
	if len(xs) > historyCapacity {
		xs = xs[1:]
	}
	return xs
}

func (m *Model) scrub(dir int) {
	if m.playHead == -1 {
		if len(m.history) == 0 {
			return
		}
		m.playHead = len(m.history) - 1
		m.running = false
	}
	m.playHead = max(0, m.playHead+dir)
	if m.playHead >= len(m.history) {
		m.playHead = -1
	}
}

// reset rebuilds the scene. Gravity and history start over, the view is kept.
func (m *Model) reset() {
	s, err := m.build()
	if err != nil {
		m.err = err
		return
	}
	m.sim = s
	m.gravity = s.Solver().Config().Gravity
	m.gravityOn = true
	m.energy = m.energy[:0]
	m.contacts = m.contacts[:0]
	m.history = m.history[:0]
	m.playHead = -1
	m.err = nil
}

func (m *Model) toggleGravity() {
	m.gravityOn = !m.gravityOn
	if m.gravityOn {
		m.sim.Solver().SetGravity(m.gravity)
	} else {
		m.sim.Solver().SetGravity(mgl64.Vec2{})
	}
}

func (m *Model) flushRecording() {
	if !m.recording {
		return
	}
	if len(m.frames) > 0 {
		if err := SaveGIF(gifPath, m.frames); err != nil {
			m.err = err
		}
	}
	m.recording = false
	m.frames = nil
}

// frame is the replayed frame or the current state of the world.
func (m Model) frame() Frame {
	if m.playHead >= 0 && m.playHead < len(m.history) {
		return m.history[m.playHead]
	}
	return Capture(m.sim.World(), m.sim.Time())
}

func (m Model) draw(f Frame) {
	m.bodies.Clear()
	m.statics.Clear()
	DrawStatics(m.statics, m.sim.World(), m.view)
	DrawFrame(m.bodies, f, m.view)
}

func (m Model) status() string {
	switch {
	case m.err != nil:
		return m.styles.Error.Render("HALTED")
	case m.playHead != -1:
		back := m.history[m.playHead].Time - m.history[len(m.history)-1].Time
		if m.running {
			return m.styles.Paused.Render(fmt.Sprintf("REPLAYING (%.2fs)", back))
		}
		return m.styles.Paused.Render(fmt.Sprintf("REPLAY PAUSED (%.2fs)", back))
	case !m.running:
		return m.styles.Paused.Render("PAUSED")
	}
	return m.styles.Running.Render("RUNNING")
}

func (m Model) View() string {
	f := m.frame()
	m.draw(f)
	canvasView := lipgloss.NewStyle().Padding(1, 2).Render(Compose(m.bodies, m.statics, m.styles))

	st := m.styles
	row := func(label, value string) string {
		return st.Label.Render(label) + st.Value.Render(value) + "\n"
	}
	solver := m.sim.Solver()

	var s strings.Builder
	s.WriteString(st.Header.Render(strings.ToUpper(m.title)) + "\n")
	s.WriteString(m.status())
	if m.recording {
		s.WriteString("  " + st.Record.Render("● REC"))
	}
	s.WriteString("\n\n")

	if len(m.energy) > 1 {
		chart := asciigraph.Plot(m.energy, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Kinetic energy"))
		s.WriteString(st.Graph.Render(chart) + "\n\n")
	}
	s.WriteString(row("Time", fmt.Sprintf("%.2fs", f.Time)))
	s.WriteString(row("Step", fmt.Sprintf("%d", solver.Steps())))
	s.WriteString(row("Bodies", fmt.Sprintf("%d", f.State.Bodies())))
	s.WriteString(row("Pairs", fmt.Sprintf("%d", len(solver.CollisionPairs()))))
	s.WriteString(row("Contacts", fmt.Sprintf("%d %s", len(solver.Contacts())+len(solver.StaticContacts()), Sparkline(m.contacts, 16))))
	s.WriteString(row("Kinetic", fmt.Sprintf("%.3f", f.Energy)))
	gravity := "off"
	if m.gravityOn {
		gravity = fmt.Sprintf("(%.2f, %.2f)", m.gravity.X(), m.gravity.Y())
	}
	s.WriteString(row("Gravity", gravity))
	s.WriteString(row("Zoom", fmt.Sprintf("%.1fx", m.view.Scale/m.home.Scale)))
	s.WriteString(row("Theme", m.theme.Name))
	if m.err != nil {
		s.WriteString("\n" + st.Error.Render(m.err.Error()) + "\n")
	}
	s.WriteString(st.Help.Render("SP:Pause .:Step R:Reset Q:Quit\nF:Gravity T:Theme G:Record ?:Help"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, st.Panel.Render(s.String()))
	if m.showHelp {
		return helpText + "\n" + mainView
	}
	return mainView
}

const helpText = `
  Space     pause / resume
  .         single step while paused
  R         rebuild the scene
  [ ]       rewind / forward through recent frames
  F         toggle gravity
  + -       zoom, arrows or hjkl pan, 0 resets the view
  G         toggle GIF recording (` + gifPath + `)
  T         cycle themes
  Q         quit
`

// RunLive opens the live view full screen and blocks until it quits.
func RunLive(title string, build Builder, opts Options) error {
	m, err := NewModel(title, build, opts)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
