package progrock

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/opencontainers/go-digest"
	"github.com/vito/progrock"
)

// Vertex implements ports.Vertex wrapping *progrock.VertexRecorder.
type Vertex struct {
	id     digest.Digest
	vertex *progrock.VertexRecorder
}

// ID returns the digest the vertex was recorded under.
func (v *Vertex) ID() digest.Digest {
	return v.id
}

// Stdout returns a writer to capture standard output stream.
func (v *Vertex) Stdout() io.Writer {
	return v.vertex.Stdout()
}

// Log writes msg to the vertex. Warnings and errors go to its stderr stream.
func (v *Vertex) Log(level slog.Level, msg string) {
	w := v.vertex.Stdout()
	if level >= slog.LevelWarn {
		w = v.vertex.Stderr()
	}
	_, _ = fmt.Fprintf(w, "%s %s\n", level, msg)
}

// Complete marks the vertex as finished (successfully or with an error).
func (v *Vertex) Complete(err error) {
	v.vertex.Done(err)
}

// Cached marks the vertex as a cache hit.
func (v *Vertex) Cached() {
	v.vertex.Cached()
}
