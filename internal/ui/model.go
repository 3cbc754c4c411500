// ABOUTME: Bubbletea model for player TUI
// ABOUTME: Shows stream, lifecycle state and pipeline counters
package ui

import (
	"fmt"
	"strings"

	"github.com/Resonate-Protocol/streamplay/pkg/streamplay"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	accentColor  = lipgloss.Color("#FFA500")
	successColor = lipgloss.Color("#00AA00")
	errorColor   = lipgloss.Color("#DC143C")
	mutedColor   = lipgloss.Color("#888888")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	keyStyle   = lipgloss.NewStyle().Foreground(mutedColor).Width(10)
	valueStyle = lipgloss.NewStyle().Bold(true)
	okStyle    = lipgloss.NewStyle().Bold(true).Foreground(successColor)
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(errorColor)
	helpStyle  = lipgloss.NewStyle().Foreground(mutedColor)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(0, 1)
)

// Model represents the TUI state
type Model struct {
	// Stream
	source   string
	mimeType string
	mode     string
	playerID string

	// Playback
	state string
	ended bool
	err   string

	// Stats
	stats    streamplay.Stats
	total    int64 // input size, 0 when unknown
	progress progress.Model

	// Debug
	showDebug bool

	controls *Controls

	// Dimensions
	width  int
	height int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = max(10, min(msg.Width-30, 40))
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("streamplay"))
	s.WriteString("\n")
	s.WriteString(m.renderStream())
	s.WriteString(m.renderStats())

	if m.showDebug {
		s.WriteString(m.renderDebug())
	}

	return boxStyle.Render(s.String()) + "\n" + m.renderHelp()
}

func row(key, value string) string {
	return keyStyle.Render(key) + value + "\n"
}

// renderStream renders the source and playback state
func (m Model) renderStream() string {
	if m.source == "" {
		return row("Source:", "(none)")
	}

	state := valueStyle.Render(m.state)
	switch {
	case m.err != "":
		state = errStyle.Render("error: " + m.err)
	case m.ended:
		state = okStyle.Render("stream ended")
	}

	return row("Source:", valueStyle.Render(truncate(m.source, 48))) +
		row("Format:", m.mimeType) +
		row("Mode:", m.mode) +
		row("State:", state)
}

// renderStats renders pipeline counters
func (m Model) renderStats() string {
	fed := fmt.Sprintf("%d chunks, %s", m.stats.ChunksFed, formatBytes(m.stats.BytesFed))

	s := "\n" + row("Fed:", fed)
	if m.total > 0 {
		frac := min(1, float64(m.stats.BytesFed)/float64(m.total))
		s += row("Input:", fmt.Sprintf("%s %3.0f%%", m.progress.ViewAs(frac), frac*100))
	}
	if m.mode == streamplay.ModeManualDecode.String() {
		s += row("Decoded:", fmt.Sprintf("%d segments, %d failures", m.stats.SegmentsScheduled, m.stats.DecodeFailures))
		s += row("Pending:", formatBytes(int64(m.stats.Pending)))
	} else {
		s += row("Written:", fmt.Sprintf("%d chunks, %d dropped", m.stats.ChunksWritten, m.stats.ChunksDropped))
		s += row("Queued:", fmt.Sprintf("%d chunks", m.stats.Pending))
	}
	return s
}

// renderDebug renders debug information
func (m Model) renderDebug() string {
	return "\n" + row("Player:", m.playerID)
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return helpStyle.Render("space:Play/Pause  d:Debug  q:Quit")
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.controls.quit()
		return m, tea.Quit
	case " ", "space", "p":
		m.controls.toggle()
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Source != "" {
		m.source = msg.Source
		m.mimeType = msg.MIMEType
		m.total = msg.Total
	}
	if msg.Mode != "" {
		m.mode = msg.Mode
	}
	if msg.PlayerID != "" {
		m.playerID = msg.PlayerID
	}
	if msg.State != "" {
		m.state = msg.State
	}
	if msg.Ended {
		m.ended = true
	}
	if msg.Err != "" {
		m.err = msg.Err
	}
	if msg.Stats != nil {
		m.stats = *msg.Stats
	}
}

// StatusMsg updates TUI state. Empty fields leave the current value.
type StatusMsg struct {
	Source   string
	MIMEType string
	Total    int64
	Mode     string
	PlayerID string
	State    string
	Ended    bool
	Err      string
	Stats    *streamplay.Stats
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
