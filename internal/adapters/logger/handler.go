package logger

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/muesli/termenv"
	"go.trai.ch/lithotile/internal/ui/output"
	"go.trai.ch/lithotile/internal/ui/style"
)

// console is the terminal shared by a handler and its derived handlers.
type console struct {
	mu  sync.Mutex
	out *termenv.Output
}

// ConsoleHandler is a slog.Handler for people watching a batch: one line
// per record, marked and colored by level, with attributes as key=value.
type ConsoleHandler struct {
	term   *console
	level  slog.Leveler
	prefix string
	bound  string
}

// NewConsoleHandler creates a ConsoleHandler writing to w, stderr if nil.
func NewConsoleHandler(w io.Writer, opts *slog.HandlerOptions) *ConsoleHandler {
	h := &ConsoleHandler{
		term:  &console{out: output.New(w)},
		level: slog.LevelInfo,
	}
	if opts != nil && opts.Level != nil {
		h.level = opts.Level
	}
	return h
}

// Enabled implements slog.Handler.
func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
//
//nolint:gocritic // slog.Handler interface requires slog.Record by value
func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	mark := levelMark(r.Level)
	if mark.Glyph != "" {
		b.WriteString(mark.Glyph)
		b.WriteByte(' ')
	}
	b.WriteString(r.Message)
	b.WriteString(h.bound)
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&b, h.prefix, a)
		return true
	})

	text := h.term.out.String(b.String())
	if mark.Color != "" {
		text = text.Foreground(termenv.RGBColor(string(mark.Color)))
	}

	h.term.mu.Lock()
	defer h.term.mu.Unlock()
	_, err := h.term.out.WriteString(text.String() + "\n")
	return err
}

// WithAttrs implements slog.Handler. The attributes are formatted once here.
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var b strings.Builder
	b.WriteString(h.bound)
	for _, a := range attrs {
		appendAttr(&b, h.prefix, a)
	}
	next := *h
	next.bound = b.String()
	return &next
}

// WithGroup implements slog.Handler. Groups nest: a.b.key=value.
func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func levelMark(level slog.Level) style.Mark {
	switch {
	case level >= slog.LevelError:
		return style.Failed
	case level >= slog.LevelWarn:
		return style.Warn
	case level < slog.LevelInfo:
		return style.Mark{Glyph: "·", Color: style.Quiet}
	default:
		return style.Mark{}
	}
}

func appendAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		inner := prefix
		if a.Key != "" {
			inner += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			appendAttr(b, inner, ga)
		}
		return
	}
	b.WriteByte(' ')
	b.WriteString(prefix)
	b.WriteString(a.Key)
	b.WriteByte('=')
	b.WriteString(formatValue(a.Value))
}

func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindDuration:
		return output.Elapsed(v.Duration())
	case slog.KindTime:
		return v.Time().Format(time.TimeOnly)
	case slog.KindString:
		s := v.String()
		if s == "" || strings.ContainsAny(s, " =\"\n\t") {
			return strconv.Quote(s)
		}
		return s
	default:
		return v.String()
	}
}
