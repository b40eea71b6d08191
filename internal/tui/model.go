package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/lithotile/internal/core/domain"
	"go.trai.ch/lithotile/internal/ui/style"
)

const barWidth = 30

// Model is the Bubble Tea model of a preparation batch.
type Model struct {
	feed   ProgressSource
	cancel context.CancelFunc

	total     int
	completed int
	finished  []string

	cancelling bool
	done       bool
	result     domain.BatchResult
	err        error

	width   int
	height  int
	spinner spinner.Model
}

// NewModel creates a model reading from feed. cancel is called on the first
// Ctrl+C; a second one leaves the view without waiting for the batch.
func NewModel(feed ProgressSource, cancel context.CancelFunc) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(style.Active.Color)

	return &Model{
		feed:    feed,
		cancel:  cancel,
		spinner: s,
	}
}

// Init starts reading progress and animating the spinner.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		WaitForProgress(m.feed),
		m.spinner.Tick,
	)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case MsgProgress:
		m.apply(msg.Progress)
		return m, WaitForProgress(m.feed)
	case MsgFeedEnded:
		return m, nil
	case MsgBatchDone:
		m.done = true
		m.result = msg.Result
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type != tea.KeyCtrlC {
		return m, nil
	}
	if m.cancelling {
		return m, tea.Quit
	}
	m.cancelling = true
	if m.cancel != nil {
		m.cancel()
	}
	return m, nil
}

func (m *Model) apply(p domain.Progress) {
	m.total = p.TotalImages
	if p.CompletedImages > m.completed && p.CurrentImageName != "" {
		m.finished = append(m.finished, p.CurrentImageName)
	}
	m.completed = max(m.completed, p.CompletedImages)
}

// View renders the finished images followed by the progress line.
func (m *Model) View() string {
	if m.done {
		return ""
	}

	var s strings.Builder

	// Keep the progress line on screen when the list overflows.
	start := 0
	if rows := m.height - 1; rows > 0 && len(m.finished) > rows {
		start = len(m.finished) - rows
	}
	for _, name := range m.finished[start:] {
		fmt.Fprintf(&s, "%s %s\n", style.Done.Render(), name)
	}

	icon := m.spinner.View()
	label := "preparing"
	if m.cancelling {
		icon = style.Failed.Render()
		label = "cancelling"
	}
	fmt.Fprintf(&s, "%s %s %s %d/%d\n", icon, label, m.bar(), m.completed, m.total)
	return s.String()
}

func (m *Model) bar() string {
	filled := 0
	if m.total > 0 {
		filled = barWidth * m.completed / m.total
	}
	return style.Done.Text(strings.Repeat("█", filled)) +
		style.Muted.Render(strings.Repeat("░", barWidth-filled))
}
