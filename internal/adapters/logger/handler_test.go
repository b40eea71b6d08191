package logger_test

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/lithotile/internal/adapters/logger"
)

func newConsole(t *testing.T, level slog.Level) (*slog.Logger, *bytes.Buffer) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
	buf := &bytes.Buffer{}
	return slog.New(logger.NewConsoleHandler(buf, &slog.HandlerOptions{Level: level})), buf
}

func TestConsoleHandler_Levels(t *testing.T) {
	tests := []struct {
		name  string
		level slog.Level
		want  string
	}{
		{"debug", slog.LevelDebug, "· tile built\n"},
		{"info", slog.LevelInfo, "tile built\n"},
		{"warn", slog.LevelWarn, "! tile built\n"},
		{"error", slog.LevelError, "✗ tile built\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, buf := newConsole(t, slog.LevelDebug)
			log.Log(t.Context(), tt.level, "tile built")
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestConsoleHandler_FiltersBelowLevel(t *testing.T) {
	log, buf := newConsole(t, slog.LevelInfo)
	log.Debug("tile built")
	assert.Empty(t, buf.String())
}

func TestConsoleHandler_Attrs(t *testing.T) {
	log, buf := newConsole(t, slog.LevelInfo)
	log.Info("tile built",
		"key", "ab12/0/1_2",
		"took", 1240*time.Millisecond,
		"image", "basalt ppl.png",
		slog.Group("source", "w", 1000, "h", 800),
	)
	assert.Equal(t,
		"tile built key=ab12/0/1_2 took=1.2s image=\"basalt ppl.png\" source.w=1000 source.h=800\n",
		buf.String())
}

func TestConsoleHandler_WithAttrsAndNestedGroups(t *testing.T) {
	log, buf := newConsole(t, slog.LevelInfo)
	log = log.With("project", "thin-sections").WithGroup("cache").WithGroup("gc")
	log.Info("collected", "evicted", 3, "reason", "")
	assert.Equal(t, "collected project=thin-sections cache.gc.evicted=3 cache.gc.reason=\"\"\n", buf.String())
}

func TestConsoleHandler_DerivedHandlersShareOutput(t *testing.T) {
	log, buf := newConsole(t, slog.LevelInfo)
	log.With("a", 1).Info("one")
	log.WithGroup("g").Info("two", "b", 2)
	assert.Equal(t, "one a=1\ntwo g.b=2\n", buf.String())
}
