package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/gdlab/internal/descent"
	"github.com/san-kum/gdlab/internal/playback"
)

const (
	defaultWidth  = 120
	defaultHeight = 40
	pageStep      = 10
)

// TickMsg is one auto-play timer event. Gen is the controller generation
// it was scheduled under; ticks from an older generation are dropped.
type TickMsg struct {
	Gen uint64
}

// Options configure the TUI.
type Options struct {
	Interval time.Duration
	Theme    string
	// Header is shown above the panels, e.g. the preset or run id.
	Header string
}

// Model is the playback TUI. Navigation goes through the controller;
// everything drawn is derived from renderer frames.
type Model struct {
	ctrl     *playback.Controller
	rend     *playback.Renderer
	mo       descent.Moments
	interval time.Duration
	header   string
	theme    Theme
	st       styles
	width    int
	height   int
	showHelp bool
	fit      *Canvas
	hist     *Canvas
	path     *Canvas
}

func NewModel(rend *playback.Renderer, opts Options) Model {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Millisecond
	}
	theme := GetTheme(opts.Theme)
	m := Model{
		ctrl:     playback.New(rend.Trajectory()),
		rend:     rend,
		mo:       descent.MomentsOf(rend.Dataset()),
		interval: opts.Interval,
		header:   opts.Header,
		theme:    theme,
		st:       newStyles(theme),
	}
	m.resize(defaultWidth, defaultHeight)
	return m
}

// Controller exposes the playback state, mainly for tests.
func (m Model) Controller() *playback.Controller { return m.ctrl }

func (m Model) Theme() Theme { return m.theme }

func (m Model) Init() tea.Cmd { return nil }

func tick(interval time.Duration, gen uint64) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg { return TickMsg{Gen: gen} })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
	case TickMsg:
		m.ctrl.Tick(msg.Gen)
		if m.ctrl.Playing() && m.ctrl.Generation() == msg.Gen {
			return m, tick(m.interval, msg.Gen)
		}
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.ctrl.Pause()
		return m, tea.Quit
	case " ", "space":
		if state, gen := m.ctrl.Toggle(); state == playback.Playing {
			return m, tick(m.interval, gen)
		}
	case "r":
		m.ctrl.Reset()
	case "left", "[":
		m.ctrl.Step(-1)
	case "right", "]":
		m.ctrl.Step(1)
	case "pgup":
		m.ctrl.Step(-pageStep)
	case "pgdown":
		m.ctrl.Step(pageStep)
	case "home":
		m.ctrl.Seek(1)
	case "end":
		m.ctrl.Seek(m.ctrl.Steps())
	case "d":
		m.rend.SetDynamicLimits(!m.rend.Options().DynamicLimits)
	case "t":
		m.theme = m.theme.Next()
		m.st = newStyles(m.theme)
	case "?":
		m.showHelp = !m.showHelp
	}
	return m, nil
}

// resize lays the three canvases out on a 2x2 grid; the fourth cell is
// the loss chart.
func (m *Model) resize(w, h int) {
	m.width, m.height = w, h
	cw := max((w-8)/2, 10)
	ch := max((h-12)/2, 4)
	m.fit = NewCanvas(cw, ch)
	m.hist = NewCanvas(cw, ch)
	m.path = NewCanvas(cw, ch)
}

func (m Model) View() string {
	f := m.rend.Frame(m.ctrl.Position())

	drawFit(m.fit, f, m.rend.Dataset())
	drawHistory(m.hist, f, m.rend.Dataset())
	drawPath(m.path, f, m.rend.Surface(), m.mo)

	px, py := pathAxes(f)
	fitPanel := m.panel("Fit", m.fit.Render(m.st.ramp),
		rangeLabel("x", f.Bounds.FitX)+"  "+rangeLabel("y", f.Bounds.FitY))
	histPanel := m.panel("History", m.hist.Render(m.st.ramp),
		fmt.Sprintf("%d lines, every %d steps", len(f.History), m.rend.Options().HistoryStride))
	pathPanel := m.panel("Parameters", m.path.Render(m.st.contours),
		rangeLabel(px, f.Bounds.PathX)+"  "+rangeLabel(py, f.Bounds.PathY))
	lossPanel := m.panel("Loss", m.st.graph.Render(lossChart(f, m.fit.Width-8, m.fit.Height)), "")

	grid := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, fitPanel, histPanel),
		lipgloss.JoinHorizontal(lipgloss.Top, pathPanel, lossPanel),
	)

	var s strings.Builder
	s.WriteString(m.statusBar(f) + "\n")
	s.WriteString(m.st.header.Render(f.Title[0]) + "\n")
	s.WriteString(m.st.label.Render(f.Title[1]) + "\n")
	if m.showHelp {
		s.WriteString(m.st.panel.Render(helpText) + "\n")
	}
	s.WriteString(grid + "\n")
	s.WriteString(m.st.keyHint.Render("SP:Play/Pause R:Reset ←→:Step PgUp/PgDn:±10 D:Limits T:Theme ?:Help Q:Quit"))
	return s.String()
}

func (m Model) panel(title, body, footer string) string {
	content := m.st.title.Render(title) + "\n" + body
	if footer != "" {
		content += "\n" + m.st.label.Render(footer)
	}
	return m.st.panel.Render(content)
}

func (m Model) statusBar(f playback.Frame) string {
	state := m.st.paused.Render(m.ctrl.State().String())
	if m.ctrl.Playing() {
		state = m.st.playing.Render(m.ctrl.State().String())
	}
	mode := "fixed"
	if m.rend.Options().DynamicLimits {
		mode = "dynamic"
	}
	bar := slider(f.Step, f.Steps, max(m.width/3, 10), m.st.playing, m.st.label)
	parts := []string{state, bar, m.st.value.Render(fmt.Sprintf("MSE %.4f", f.Current.Loss)),
		m.st.label.Render("limits " + mode), m.st.label.Render("theme " + m.theme.Name)}
	if m.header != "" {
		parts = append([]string{m.st.title.Render(m.header)}, parts...)
	}
	return strings.Join(parts, "  ")
}

const helpText = `KEYBOARD SHORTCUTS
  Space      Play/Pause
  R          Reset to the first step
  ←/→ [ ]    Step back/forward
  PgUp/PgDn  Jump 10 steps
  Home/End   First/last step
  D          Toggle dynamic axis limits
  T          Cycle themes
  ?          Toggle this help
  Q          Quit`

// Run starts the TUI in the alternate screen and blocks until it exits.
func Run(rend *playback.Renderer, opts Options) error {
	p := tea.NewProgram(NewModel(rend, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
