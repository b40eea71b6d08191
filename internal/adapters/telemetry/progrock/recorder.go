// Package progrock records per-image preparation progress on a progrock tape.
package progrock

import (
	"context"
	"fmt"
	"sync"

	"github.com/opencontainers/go-digest"
	"github.com/vito/progrock"
	"go.trai.ch/lithotile/internal/core/ports"
)

var _ ports.Telemetry = (*Recorder)(nil)

// Recorder implements ports.Telemetry on top of a progrock recorder.
type Recorder struct {
	w   progrock.Writer
	rec *progrock.Recorder

	mu   sync.Mutex
	seen map[digest.Digest]int
}

// New creates a Recorder writing to a fresh in-memory tape.
func New() *Recorder {
	return NewRecorder(progrock.NewTape())
}

// NewRecorder creates a new Recorder with the given writer.
func NewRecorder(w progrock.Writer) *Recorder {
	return &Recorder{
		w:    w,
		rec:  progrock.NewRecorder(w),
		seen: make(map[digest.Digest]int),
	}
}

// Record starts a vertex named name. Repeated names get distinct vertex
// digests so a re-prepared image does not collapse into its earlier run.
func (r *Recorder) Record(ctx context.Context, name string) (context.Context, ports.Vertex) {
	r.mu.Lock()
	base := digest.FromString(name)
	n := r.seen[base]
	r.seen[base] = n + 1
	r.mu.Unlock()

	d := base
	if n > 0 {
		d = digest.FromString(fmt.Sprintf("%s#%d", name, n))
	}

	vertex := &Vertex{id: d, vertex: r.rec.Vertex(d, name)}
	return ctx, vertex
}

// Close flushes and closes the recording session.
func (r *Recorder) Close() error {
	if c, ok := r.w.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
