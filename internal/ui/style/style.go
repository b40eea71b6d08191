// Package style maps job and tile states to the marks shown in terminal output.
package style

import (
	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/lithotile/internal/core/domain"
)

// Colors.
var (
	Quiet   = lipgloss.Color("#667085")
	Good    = lipgloss.Color("#22A06B")
	Bad     = lipgloss.Color("#D93025")
	Caution = lipgloss.Color("#F59E0B")
	Accent  = lipgloss.Color("#0E9384")
)

// Heading renders a section title in command output.
var Heading = lipgloss.NewStyle().Bold(true).Foreground(Accent)

// Muted renders secondary values such as fingerprints and tile counts.
var Muted = lipgloss.NewStyle().Foreground(Quiet)

// Mark is a one-glyph state indicator.
type Mark struct {
	Glyph string
	Color lipgloss.Color
}

// Render returns the colored glyph. A mark without color renders plain.
func (m Mark) Render() string {
	if m.Color == "" {
		return m.Glyph
	}
	return lipgloss.NewStyle().Foreground(m.Color).Render(m.Glyph)
}

// Text renders s in the mark's color.
func (m Mark) Text(s string) string {
	if m.Color == "" {
		return s
	}
	return lipgloss.NewStyle().Foreground(m.Color).Render(s)
}

// Marks.
var (
	Done    = Mark{Glyph: "✓", Color: Good}
	Failed  = Mark{Glyph: "✗", Color: Bad}
	Warn    = Mark{Glyph: "!", Color: Caution}
	Active  = Mark{Glyph: "●", Color: Caution}
	Idle    = Mark{Glyph: "○"}
	Reused  = Mark{Glyph: "~", Color: Good}
	Standin = Mark{Glyph: "◐", Color: Caution}
)

// ForJob returns the mark of a preparation job state.
func ForJob(status domain.JobStatus) Mark {
	switch status {
	case domain.JobDone:
		return Done
	case domain.JobCached:
		return Reused
	case domain.JobFailed:
		return Failed
	case domain.JobCancelled:
		return Warn
	case domain.JobRunning:
		return Active
	default:
		return Idle
	}
}

// ForTile returns the mark of a renderable tile kind.
func ForTile(kind domain.TileKind) Mark {
	switch kind {
	case domain.TileReady:
		return Done
	case domain.TilePlaceholder:
		return Standin
	case domain.TileError:
		return Failed
	default:
		return Idle
	}
}
