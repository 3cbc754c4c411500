// ABOUTME: TUI initialization and control
// ABOUTME: Wraps bubbletea program for player UI
package ui

import (
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

// Controls holds channels for user actions raised by the TUI
type Controls struct {
	Toggle chan struct{}
	Quit   chan struct{}
}

// NewControls creates a new control handler
func NewControls() *Controls {
	return &Controls{
		Toggle: make(chan struct{}, 10),
		Quit:   make(chan struct{}, 1),
	}
}

func (c *Controls) toggle() {
	if c == nil {
		return
	}
	select {
	case c.Toggle <- struct{}{}:
	default:
	}
}

func (c *Controls) quit() {
	if c == nil {
		return
	}
	select {
	case c.Quit <- struct{}{}:
	default:
	}
}

// NewModel creates a new TUI model
func NewModel(controls *Controls) Model {
	return Model{
		state:    "uninitialized",
		controls: controls,
		progress: progress.New(
			progress.WithGradient(string(accentColor), string(successColor)),
			progress.WithWidth(30),
			progress.WithoutPercentage(),
		),
	}
}

// Run creates the TUI program; the caller starts it with Run
func Run(controls *Controls) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(controls), tea.WithAltScreen())
	return p, nil
}
