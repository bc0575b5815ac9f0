// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program for the status view
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Control holds the channels the TUI uses to drive the engine.
type Control struct {
	Restart chan struct{}
	Quit    chan struct{}
}

// NewControl creates the TUI control channels.
func NewControl() *Control {
	return &Control{
		Restart: make(chan struct{}, 1),
		Quit:    make(chan struct{}, 1),
	}
}

// Run starts the TUI program.
func Run(ctrl *Control) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(ctrl), tea.WithAltScreen())
	return p, nil
}
