package ports

import (
	"context"
	"io"
	"log/slog"
)

//go:generate go run go.uber.org/mock/mockgen -source=telemetry.go -destination=mocks/mock_telemetry.go -package=mocks

// Tracer is the entry point for creating spans.
type Tracer interface {
	// Start creates a new span.
	Start(ctx context.Context, name string) (context.Context, Span)
}

// Span represents a unit of work.
type Span interface {
	// End completes the span.
	End()
	// RecordError records an error for the span.
	RecordError(err error)
	// SetAttribute adds a key-value pair to the span.
	SetAttribute(key string, value any)
}

// Telemetry records a progress vertex per prepared image.
type Telemetry interface {
	// Record starts a vertex.
	Record(ctx context.Context, name string) (context.Context, Vertex)
	// Close flushes and closes the recording session.
	Close() error
}

// Vertex is one recorded unit of progress.
type Vertex interface {
	// Stdout returns a writer attached to the vertex.
	Stdout() io.Writer
	// Log records a leveled message on the vertex.
	Log(level slog.Level, msg string)
	// Complete marks the vertex as finished, failed when err is non-nil.
	Complete(err error)
	// Cached marks the vertex as satisfied from cache.
	Cached()
}
