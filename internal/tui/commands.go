// Package tui provides a terminal view of a running preparation batch.
package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"go.trai.ch/lithotile/internal/core/domain"
)

// Feed is a ports.ProgressSink that buffers events for the view.
// Events published after Close are dropped.
type Feed struct {
	mu     sync.Mutex
	ch     chan domain.Progress
	closed bool
}

// NewFeed creates a feed buffering up to size events. Events that do not fit
// are dropped; the final batch result arrives separately as MsgBatchDone.
func NewFeed(size int) *Feed {
	return &Feed{ch: make(chan domain.Progress, max(size, 1))}
}

// Publish implements ports.ProgressSink.
func (f *Feed) Publish(p domain.Progress) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	select {
	case f.ch <- p:
	default:
	}
}

// Close ends the feed.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.ch)
	}
}

// Next blocks for the next event. It returns false once the feed is closed
// and drained.
func (f *Feed) Next() (domain.Progress, bool) {
	p, ok := <-f.ch
	return p, ok
}

// ProgressSource yields progress events until it is exhausted.
type ProgressSource interface {
	Next() (domain.Progress, bool)
}

// WaitForProgress returns a Bubble Tea command that reads the next event.
// It returns MsgProgress, or MsgFeedEnded once the source is exhausted.
func WaitForProgress(src ProgressSource) tea.Cmd {
	return func() tea.Msg {
		p, ok := src.Next()
		if !ok {
			return MsgFeedEnded{}
		}
		return MsgProgress{Progress: p}
	}
}
