// Package logger implements a logging adapter using log/slog.
package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"

	"go.trai.ch/lithotile/internal/core/ports"
)

// messager is an error that reports its own message without the chain (zerr.Error).
type messager interface {
	Message() string
}

// metadataer is an error that carries key-value metadata (zerr.Error).
type metadataer interface {
	Metadata() map[string]any
}

// Logger implements ports.Logger using log/slog.
type Logger struct {
	logger   *slog.Logger
	mu       sync.RWMutex
	jsonMode bool
	output   io.Writer
}

// New creates a new Logger writing pretty output to stderr.
func New() ports.Logger {
	return &Logger{
		logger: slog.New(newHandler(os.Stderr, false)),
		output: os.Stderr,
	}
}

func newHandler(w io.Writer, jsonMode bool) slog.Handler {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if jsonMode {
		return slog.NewJSONHandler(w, opts)
	}
	return NewConsoleHandler(w, opts)
}

// SetOutput updates the logger's output destination, keeping the JSON mode.
// If w is nil, os.Stderr is used.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if w == nil {
		w = os.Stderr
	}
	l.output = w
	l.logger = slog.New(newHandler(w, l.jsonMode))
}

// SetJSON switches between JSON and pretty logging.
func (l *Logger) SetJSON(enable bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.jsonMode = enable
	w := l.output
	if w == nil {
		w = os.Stderr
	}
	l.logger = slog.New(newHandler(w, enable))
}

// Info logs an informational message.
func (l *Logger) Info(msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Info(msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Warn(msg)
}

// Error logs an error with its cause chain.
func (l *Logger) Error(err error) {
	if err == nil {
		return
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.jsonMode {
		l.logger.Error("operation failed", "error", err)
		return
	}
	l.logger.Error(formatErrorEntries(collectErrorEntries(err)))
}

// errorEntry is one level of an error chain.
type errorEntry struct {
	message string
	fields  string
}

// collectErrorEntries walks the chain of zerr errors. Standard errors and
// joined errors end the walk with their full text.
func collectErrorEntries(err error) []errorEntry {
	var entries []errorEntry
	// Fields of message-less wrappers attach to the nearest message.
	var pending string
	for current := err; current != nil; {
		m, ok := current.(messager)
		if !ok {
			entries = append(entries, errorEntry{message: current.Error(), fields: pending})
			break
		}
		fields := joinFields(pending, formatMetadata(current))
		current = errors.Unwrap(current)
		switch {
		case m.Message() != "":
			entries = append(entries, errorEntry{message: m.Message(), fields: fields})
			pending = ""
		case len(entries) > 0:
			last := &entries[len(entries)-1]
			last.fields = joinFields(last.fields, fields)
		default:
			pending = fields
		}
	}
	return entries
}

func joinFields(a, b string) string {
	return strings.TrimSpace(a + " " + b)
}

func formatMetadata(err error) string {
	md, ok := err.(metadataer)
	if !ok {
		return ""
	}
	meta := md.Metadata()
	parts := make([]string, 0, len(meta))
	for _, k := range slices.Sorted(maps.Keys(meta)) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, meta[k]))
	}
	return strings.Join(parts, " ")
}

// formatErrorEntries renders the chain as a main line followed by causes.
func formatErrorEntries(entries []errorEntry) string {
	var lines []string
	for i, e := range entries {
		msgLines := strings.Split(e.message, "\n")
		head := msgLines[0]
		if e.fields != "" {
			head += " (" + e.fields + ")"
		}
		if i == 0 {
			lines = append(lines, "Error: "+head)
			for _, line := range msgLines[1:] {
				lines = append(lines, "       "+line)
			}
			continue
		}
		if i == 1 {
			lines = append(lines, "", "  Caused by:")
		}
		lines = append(lines, "    → "+head)
		for _, line := range msgLines[1:] {
			lines = append(lines, "      "+line)
		}
	}
	return strings.Join(lines, "\n")
}
