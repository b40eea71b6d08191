//nolint:testpackage // Test needs access to unexported fields
package tui

import (
	"context"
	"io"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/lithotile/internal/core/domain"
	"go.trai.ch/lithotile/internal/core/ports"
)

// sliceSource replays a fixed list of events.
type sliceSource struct {
	events []domain.Progress
}

func (s *sliceSource) Next() (domain.Progress, bool) {
	if len(s.events) == 0 {
		return domain.Progress{}, false
	}
	p := s.events[0]
	s.events = s.events[1:]
	return p, true
}

func TestModel_Update_Progress(t *testing.T) {
	m := NewModel(&sliceSource{}, nil)

	m.Update(MsgProgress{Progress: domain.Progress{TotalImages: 3, IsPreparationPhase: true}})
	assert.Equal(t, 3, m.total)
	assert.Empty(t, m.finished)

	_, cmd := m.Update(MsgProgress{Progress: domain.Progress{
		TotalImages: 3, CompletedImages: 1, CurrentImageName: "ppl.png", IsPreparationPhase: true,
	}})
	assert.NotNil(t, cmd)
	assert.Equal(t, 1, m.completed)
	assert.Equal(t, []string{"ppl.png"}, m.finished)

	// The closing event repeats the count without a name.
	m.Update(MsgProgress{Progress: domain.Progress{TotalImages: 3, CompletedImages: 1}})
	assert.Equal(t, []string{"ppl.png"}, m.finished)
}

func TestModel_Update_CtrlC(t *testing.T) {
	cancelled := 0
	m := NewModel(&sliceSource{}, func() { cancelled++ })

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.Nil(t, cmd, "first interrupt waits for the batch")
	assert.Equal(t, 1, cancelled)
	assert.Contains(t, m.View(), "cancelling")

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Equal(t, 1, cancelled)
}

func TestModel_Update_BatchDone(t *testing.T) {
	m := NewModel(&sliceSource{}, nil)
	res := domain.BatchResult{Prepared: 2, Total: 2}

	_, cmd := m.Update(MsgBatchDone{Result: res})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Equal(t, res, m.result)
	assert.Empty(t, m.View())
}

func TestModel_View(t *testing.T) {
	m := NewModel(&sliceSource{}, nil)
	m.height = 3
	m.total = 4
	m.completed = 4
	m.finished = []string{"a.png", "b.png", "c.png", "d.png"}

	out := m.View()
	assert.NotContains(t, out, "a.png")
	assert.NotContains(t, out, "b.png")
	assert.Contains(t, out, "c.png")
	assert.Contains(t, out, "d.png")
	assert.Contains(t, out, "✓")
	assert.Contains(t, out, "4/4")
}

func TestWaitForProgress(t *testing.T) {
	src := &sliceSource{events: []domain.Progress{{TotalImages: 1}}}

	assert.Equal(t, MsgProgress{Progress: domain.Progress{TotalImages: 1}}, WaitForProgress(src)())
	assert.Equal(t, MsgFeedEnded{}, WaitForProgress(src)())
}

func TestFeed(t *testing.T) {
	f := NewFeed(2)
	f.Publish(domain.Progress{CompletedImages: 1})
	f.Publish(domain.Progress{CompletedImages: 2})
	f.Publish(domain.Progress{CompletedImages: 3}) // dropped
	f.Close()
	f.Publish(domain.Progress{CompletedImages: 4}) // after close
	f.Close()

	var got []int
	for {
		p, ok := f.Next()
		if !ok {
			break
		}
		got = append(got, p.CompletedImages)
	}
	assert.Equal(t, []int{1, 2}, got)
}

func TestRun(t *testing.T) {
	want := domain.BatchResult{Prepared: 1, Total: 1}

	got, err := Run(context.Background(), func(_ context.Context, sink ports.ProgressSink) (domain.BatchResult, error) {
		sink.Publish(domain.Progress{TotalImages: 1, IsPreparationPhase: true})
		sink.Publish(domain.Progress{TotalImages: 1, CompletedImages: 1, CurrentImageName: "a.png", IsPreparationPhase: true})
		return want, nil
	}, tea.WithInput(nil), tea.WithOutput(io.Discard), tea.WithoutRenderer())

	require.NoError(t, err)
	assert.Equal(t, want, got)
}
