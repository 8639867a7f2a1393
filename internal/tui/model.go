package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tinytelemetry/trellis/internal/component"
)

// Controller is the part of a running process the terminal drives.
type Controller interface {
	Dispatch(msg component.Msg) component.Settled
	Back() bool
	Forward() bool
}

// Counter reports dispatched messages per tag for the inspector.
type Counter interface {
	Counts() map[string]int
	Total() uint64
}

// Model is the bubbletea model hosting the screens a Bridge delivers.
type Model struct {
	bridge *Bridge
	ctrl   Controller
	counts Counter
	keys   KeyMap
	help   help.Model

	screen    Screen
	hasScreen bool

	width  int
	height int

	showInspector bool
	ticking       bool
}

// NewModel creates a model. counts may be nil, which disables the inspector.
func NewModel(bridge *Bridge, ctrl Controller, counts Counter) *Model {
	return &Model{
		bridge: bridge,
		ctrl:   ctrl,
		counts: counts,
		keys:   DefaultKeyMap(),
		help:   help.New(),
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.bridge.next(), m.ensureTick())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case frameMsg:
		m.screen = msg.screen
		m.hasScreen = true
		return m, tea.Batch(m.bridge.next(), m.ensureTick())

	case SpinnerTickMsg:
		m.ticking = false
		return m, m.ensureTick()

	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}
	return m, nil
}

// ensureTick schedules a spinner tick while anything on screen animates.
func (m *Model) ensureTick() tea.Cmd {
	if m.ticking {
		return nil
	}
	if m.hasScreen && !m.screen.Busy && !m.showInspector {
		return nil
	}
	m.ticking = true
	return spinnerTick()
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, m.keys.ForceQuit) {
		return tea.Quit
	}
	if m.help.ShowAll && key.Matches(msg, m.keys.Help, m.keys.Escape) {
		m.help.ShowAll = false
		return nil
	}
	if m.hasScreen && m.screen.HandleKey(msg) {
		return nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = true
	case key.Matches(msg, m.keys.Back):
		m.ctrl.Back()
	case key.Matches(msg, m.keys.Forward):
		m.ctrl.Forward()
	case key.Matches(msg, m.keys.Reload):
		m.ctrl.Dispatch(component.Reload{})
	case key.Matches(msg, m.keys.Inspector):
		if m.counts != nil {
			m.showInspector = !m.showInspector
			return m.ensureTick()
		}
	}
	return nil
}

func (m *Model) View() string {
	if m.width <= 0 || m.height <= 0 {
		return "Initializing..."
	}

	helpView := m.help.View(m.keys)
	bodyHeight := m.height - lipgloss.Height(helpView)

	var inspector string
	if m.showInspector && m.counts != nil {
		inspector = renderInspector(m.counts.Counts(), m.counts.Total(), m.width, inspectorHeight)
		bodyHeight -= lipgloss.Height(inspector)
	}
	bodyHeight = max(bodyHeight, 1)

	var body string
	if m.hasScreen {
		body = m.screen.View(m.width, bodyHeight)
	} else {
		body = renderLoadingPlaceholder("", m.width, bodyHeight)
	}
	body = lipgloss.NewStyle().
		Width(m.width).
		Height(bodyHeight).
		MaxHeight(bodyHeight).
		Render(body)

	sections := []string{body}
	if inspector != "" {
		sections = append(sections, inspector)
	}
	sections = append(sections, helpView)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
