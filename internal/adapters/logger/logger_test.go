package logger_test

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/lithotile/internal/adapters/logger"
	"go.trai.ch/lithotile/internal/core/domain"
	"go.trai.ch/zerr"
)

// newTestLogger creates a logger writing uncolored output into a buffer.
func newTestLogger(t *testing.T) (*logger.Logger, *bytes.Buffer) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")

	buf := &bytes.Buffer{}
	lg, ok := logger.New().(*logger.Logger)
	require.True(t, ok)
	lg.SetOutput(buf)
	return lg, buf
}

func TestLogger_Info(t *testing.T) {
	lg, buf := newTestLogger(t)
	lg.Info("prepared 3 images")
	assert.Equal(t, "prepared 3 images\n", buf.String())
}

func TestLogger_Warn(t *testing.T) {
	lg, buf := newTestLogger(t)
	lg.Warn("overlay cycle dropped")
	assert.Equal(t, "! overlay cycle dropped\n", buf.String())
}

func TestLogger_Error(t *testing.T) {
	t.Run("nil error is ignored", func(t *testing.T) {
		lg, buf := newTestLogger(t)
		lg.Error(nil)
		assert.Empty(t, buf.String())
	})

	t.Run("chain with metadata", func(t *testing.T) {
		lg, buf := newTestLogger(t)
		err := zerr.With(zerr.Wrap(errors.New("disk full"), "write tile"), "key", "ab/0/0_0")
		lg.Error(err)

		want := "✗ Error: write tile (key=ab/0/0_0)\n\n  Caused by:\n    → disk full\n"
		assert.Equal(t, want, buf.String())
	})

	t.Run("sentinel annotated without message", func(t *testing.T) {
		lg, buf := newTestLogger(t)
		err := zerr.With(zerr.Wrap(domain.ErrCacheIO, ""), "path", "/cache/x.png")
		lg.Error(err)

		assert.Equal(t, "✗ Error: tile cache i/o failed (path=/cache/x.png)\n", buf.String())
	})
}

func TestLogger_SetJSON(t *testing.T) {
	lg, buf := newTestLogger(t)
	lg.SetJSON(true)
	lg.Error(errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, `"msg":"operation failed"`)
	assert.Contains(t, out, `"error":"boom"`)

	buf.Reset()
	lg.SetJSON(false)
	lg.Info("plain")
	assert.Equal(t, "plain\n", buf.String())
}

func TestLogger_ConcurrentUse(t *testing.T) {
	lg, buf := newTestLogger(t)

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			lg.Info("tick")
		})
	}
	wg.Wait()

	assert.Equal(t, 8, strings.Count(buf.String(), "tick\n"))
}

func TestFormatErrorEntries(t *testing.T) {
	err := zerr.Wrap(zerr.Wrap(errors.New("line one\nline two"), "decode"), "prepare image")
	entries := logger.CollectErrorEntries(err)
	require.Len(t, entries, 3)

	got := logger.FormatErrorEntries(entries)
	want := strings.Join([]string{
		"Error: prepare image",
		"",
		"  Caused by:",
		"    → decode",
		"    → line one",
		"      line two",
	}, "\n")
	assert.Equal(t, want, got)
}
