package style_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/lithotile/internal/core/domain"
	"go.trai.ch/lithotile/internal/ui/style"
)

func TestForJob(t *testing.T) {
	tests := []struct {
		status domain.JobStatus
		want   style.Mark
	}{
		{domain.JobDone, style.Done},
		{domain.JobCached, style.Reused},
		{domain.JobFailed, style.Failed},
		{domain.JobCancelled, style.Warn},
		{domain.JobRunning, style.Active},
		{domain.JobPending, style.Idle},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, style.ForJob(tt.status))
		})
	}
}

func TestForTile(t *testing.T) {
	assert.Equal(t, style.Done, style.ForTile(domain.TileReady))
	assert.Equal(t, style.Standin, style.ForTile(domain.TilePlaceholder))
	assert.Equal(t, style.Failed, style.ForTile(domain.TileError))
	assert.Equal(t, style.Idle, style.ForTile(domain.TileMissing))
}

func TestMark_UncoloredRendersPlain(t *testing.T) {
	assert.Equal(t, "○", style.Idle.Render())
	assert.Equal(t, "pending", style.Idle.Text("pending"))
}
