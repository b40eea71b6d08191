package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"go.trai.ch/lithotile/internal/core/domain"
	"go.trai.ch/lithotile/internal/core/ports"
	"go.trai.ch/zerr"
)

// PrepareFunc runs a batch, publishing progress to sink.
type PrepareFunc func(ctx context.Context, sink ports.ProgressSink) (domain.BatchResult, error)

// Run shows the view while prepare runs and returns the batch outcome.
// Interrupting the view cancels the batch.
func Run(ctx context.Context, prepare PrepareFunc, opts ...tea.ProgramOption) (domain.BatchResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	feed := NewFeed(64)
	p := tea.NewProgram(NewModel(feed, cancel), opts...)

	done := make(chan MsgBatchDone, 1)
	go func() {
		res, err := prepare(ctx, feed)
		feed.Close()
		msg := MsgBatchDone{Result: res, Err: err}
		done <- msg
		p.Send(msg)
	}()

	_, runErr := p.Run()
	if runErr != nil {
		cancel()
	}
	msg := <-done
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return msg.Result, errors.Join(msg.Err, zerr.Wrap(runErr, "progress view failed"))
	}
	return msg.Result, msg.Err
}
