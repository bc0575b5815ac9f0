// ABOUTME: Bubbletea model for the status TUI
// ABOUTME: Shows the kept endpoints and handles restart/quit keys
package ui

import (
	"fmt"
	"time"

	"github.com/Soundless-Audio/soundless-go/internal/keeper"
	"github.com/Soundless-Audio/soundless-go/internal/version"
	tea "github.com/charmbracelet/bubbletea"
)

// Model represents the TUI state.
type Model struct {
	backend   string
	endpoints []keeper.EndpointStatus
	started   time.Time
	restarts  int

	ctrl *Control

	width  int
	height int
}

// StatusMsg updates the TUI state.
type StatusMsg struct {
	Backend   string
	Endpoints []keeper.EndpointStatus
	Restarts  int
}

// NewModel creates a new TUI model.
func NewModel(ctrl *Control) Model {
	return Model{
		ctrl:    ctrl,
		started: time.Now(),
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := m.renderHeader()
	s += m.renderEndpoints()
	s += m.renderFooter()

	return s
}

// renderHeader renders product, backend, and uptime.
func (m Model) renderHeader() string {
	uptime := time.Since(m.started).Round(time.Second)

	return fmt.Sprintf(`┌─ %s %s ─────────────────────────────────────┐
│ Backend: %-10s  Uptime: %-12s  Restarts: %-4d │
├──────────────────────────────────────────────────────────┤
`, version.Product, version.Version, m.backend, uptime, m.restarts)
}

// renderEndpoints renders one line per kept endpoint.
func (m Model) renderEndpoints() string {
	if len(m.endpoints) == 0 {
		return "│ No active render endpoints                               │\n"
	}

	s := ""
	for _, ep := range m.endpoints {
		marker := " "
		if ep.Default {
			marker = "*"
		}
		s += fmt.Sprintf("│ %s %-36s %-15s │\n",
			marker, truncate(ep.Name, 36), ep.State)
	}

	return s
}

// renderFooter renders keyboard shortcuts.
func (m Model) renderFooter() string {
	return `├──────────────────────────────────────────────────────────┤
│ r:Restart  q:Quit                                        │
└──────────────────────────────────────────────────────────┘
`
}

// handleKey handles keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.ctrl != nil {
			select {
			case m.ctrl.Quit <- struct{}{}:
			default:
			}
		}
		return m, tea.Quit
	case "r":
		if m.ctrl != nil {
			select {
			case m.ctrl.Restart <- struct{}{}:
			default:
			}
		}
	}

	return m, nil
}

// applyStatus updates the model from a status message.
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Backend != "" {
		m.backend = msg.Backend
	}
	if msg.Endpoints != nil {
		m.endpoints = msg.Endpoints
	}
	if msg.Restarts != 0 {
		m.restarts = msg.Restarts
	}
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}
