// Package telemetry implements ports.Tracer on OpenTelemetry.
package telemetry

import (
	"context"
	"fmt"
	"image"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.trai.ch/lithotile/internal/core/domain"
	"go.trai.ch/lithotile/internal/core/ports"
)

var (
	_ ports.Tracer = (*Tracer)(nil)
	_ ports.Span   = (*Span)(nil)
)

// Tracer hands out OpenTelemetry spans.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer uses the globally registered provider.
func NewTracer(name string) *Tracer {
	return &Tracer{tracer: otel.Tracer(name)}
}

// FromProvider uses tp instead of the global provider.
func FromProvider(tp trace.TracerProvider, name string) *Tracer {
	return &Tracer{tracer: tp.Tracer(name)}
}

// Discard returns a tracer whose spans are never recorded.
func Discard() *Tracer {
	return FromProvider(noop.NewTracerProvider(), InstrumentationName)
}

// Start implements ports.Tracer.
func (t *Tracer) Start(ctx context.Context, name string) (context.Context, ports.Span) {
	ctx, span := t.tracer.Start(ctx, name)
	return ctx, &Span{span: span}
}

// Span wraps a trace.Span.
type Span struct {
	span trace.Span
}

// End implements ports.Span.
func (s *Span) End() { s.span.End() }

// RecordError adds an exception event and marks the span failed. Nil is ignored.
func (s *Span) RecordError(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// SetAttribute implements ports.Span. Tile keys and regions expand into one
// attribute per component under key.
func (s *Span) SetAttribute(key string, value any) {
	s.span.SetAttributes(attributes(key, value)...)
}

func attributes(key string, value any) []attribute.KeyValue {
	switch v := value.(type) {
	case domain.TileKey:
		return []attribute.KeyValue{
			attribute.String(key+".fingerprint", v.Fingerprint.String()),
			attribute.Int(key+".level", v.Level),
			attribute.Int(key+".row", v.Row),
			attribute.Int(key+".col", v.Col),
		}
	case image.Rectangle:
		return []attribute.KeyValue{
			attribute.Int(key+".x", v.Min.X),
			attribute.Int(key+".y", v.Min.Y),
			attribute.Int(key+".w", v.Dx()),
			attribute.Int(key+".h", v.Dy()),
		}
	case time.Duration:
		return []attribute.KeyValue{attribute.Int64(key+".ms", v.Milliseconds())}
	case string:
		return []attribute.KeyValue{attribute.String(key, v)}
	case int:
		return []attribute.KeyValue{attribute.Int(key, v)}
	case int64:
		return []attribute.KeyValue{attribute.Int64(key, v)}
	case float64:
		return []attribute.KeyValue{attribute.Float64(key, v)}
	case bool:
		return []attribute.KeyValue{attribute.Bool(key, v)}
	case []string:
		return []attribute.KeyValue{attribute.StringSlice(key, v)}
	case fmt.Stringer:
		return []attribute.KeyValue{attribute.String(key, v.String())}
	default:
		return []attribute.KeyValue{attribute.String(key, fmt.Sprint(v))}
	}
}
