package watcher_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/lithotile/internal/adapters/watcher"
	"go.trai.ch/lithotile/internal/core/domain"
	"go.trai.ch/lithotile/internal/core/ports"
	"go.trai.ch/lithotile/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func TestWatcher_ReportsOnlyWatchedFiles(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Warn(gomock.Any()).AnyTimes()

	dir := t.TempDir()
	watched := filepath.Join(dir, "basalt.ppm")
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(watched, []byte("P6"), domain.FilePerm))

	w, err := watcher.NewWatcher(log)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = w.Stop()
	})
	require.NoError(t, w.Start(ctx, watched))

	require.NoError(t, os.WriteFile(other, []byte("x"), domain.FilePerm))
	require.NoError(t, os.WriteFile(watched, []byte("P6 changed"), domain.FilePerm))

	events := make(chan ports.WatchEvent, 16)
	go func() {
		for ev := range w.Events() {
			events <- ev
		}
		close(events)
	}()

	select {
	case ev := <-events:
		resolved, err := filepath.EvalSymlinks(watched)
		require.NoError(t, err)
		got, err := filepath.EvalSymlinks(ev.Path)
		require.NoError(t, err)
		assert.Equal(t, resolved, got)
		assert.Contains(t, []ports.WatchOp{ports.OpWrite, ports.OpCreate}, ev.Operation)
	case <-time.After(5 * time.Second):
		t.Fatal("no event for the watched file")
	}
}

func TestWatcher_StartMissingDirectory(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)

	w, err := watcher.NewWatcher(log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	err = w.Start(context.Background(), filepath.Join(t.TempDir(), "missing", "a.tif"))
	require.Error(t, err)
}
